package models

import (
    "database/sql"
    "time"
)

// Subscription lifecycle states.
const (
    StatusDraft     = "Draft"
    StatusActive    = "Active"
    StatusSuspended = "Suspended"
    StatusExpired   = "Expired"
)

// Payment states and methods.
const (
    PaymentPending   = "Pending"
    PaymentCompleted = "Completed"

    PaymentMethodMpesa   = "M-Pesa"
    PaymentMethodInvoice = "Invoice"
)

type Operator struct {
    ID           int            `json:"id"`
    Email        string         `json:"email"`
    PasswordHash string         `json:"-"`
    Role         string         `json:"role"`
    FullName     sql.NullString `json:"full_name"`
    IsActive     bool           `json:"is_active"`
    CreatedAt    time.Time      `json:"created_at"`
}

type Customer struct {
    ID          int            `json:"id"`
    Name        string         `json:"name"`
    PhoneNumber string         `json:"phone_number"`
    Email       sql.NullString `json:"email"`
    Disabled    bool           `json:"disabled"`
    CreatedAt   time.Time      `json:"created_at"`
}

type Router struct {
    ID        int          `json:"id"`
    Name      string       `json:"name"`
    Host      string       `json:"host"`
    Port      int          `json:"port"`
    Username  string       `json:"username"`
    Password  string       `json:"-"`
    UseTLS    bool         `json:"use_tls"`
    ProbeOnly bool         `json:"probe_only"`
    LastSync  sql.NullTime `json:"last_sync"`
    CreatedAt time.Time    `json:"created_at"`
    UpdatedAt time.Time    `json:"updated_at"`
}

// ConnectionType maps an access technology to a named router profile, with
// optional bandwidth limits inherited from a parent profile.
type ConnectionType struct {
    ID            int            `json:"id"`
    Name          string         `json:"name"`
    ServiceName   string         `json:"service_name"`
    ProfileName   string         `json:"profile_name"`
    ParentProfile sql.NullString `json:"parent_profile"`
    SpeedLimitRx  sql.NullString `json:"speed_limit_rx"`
    SpeedLimitTx  sql.NullString `json:"speed_limit_tx"`
    BurstLimitRx  sql.NullString `json:"burst_limit_rx"`
    BurstLimitTx  sql.NullString `json:"burst_limit_tx"`
    CreatedAt     time.Time      `json:"created_at"`
}

type InternetPlan struct {
    ID             int             `json:"id"`
    Name           string          `json:"name"`
    ConnectionType string          `json:"connection_type"`
    ValidityDays   int             `json:"validity_days"`
    Price          float64         `json:"price"`
    Currency       string          `json:"currency"`
    DataQuotaMB    sql.NullFloat64 `json:"data_quota_mb"`
    ResellerMarkup sql.NullFloat64 `json:"reseller_markup"`
    IsActive       bool            `json:"is_active"`
    CreatedAt      time.Time       `json:"created_at"`
}

// ResellerPrice returns the plan price with the reseller markup applied.
func (p *InternetPlan) ResellerPrice() float64 {
    if !p.ResellerMarkup.Valid || p.ResellerMarkup.Float64 == 0 {
        return p.Price
    }
    return p.Price * (1 + p.ResellerMarkup.Float64/100)
}

type Subscription struct {
    ID               int            `json:"id"`
    SubscriptionID   string         `json:"subscription_id"`
    CustomerID       int            `json:"customer_id"`
    CustomerName     string         `json:"customer_name"`
    ConnectionType   string         `json:"connection_type"`
    PlanID           int            `json:"plan_id"`
    RouterID         int            `json:"router_id"`
    Username         string         `json:"username"`
    Password         string         `json:"-"`
    StartDate        time.Time      `json:"start_date"`
    ExpiryDate       time.Time      `json:"expiry_date"`
    DataUsedMB       float64        `json:"data_used_mb"`
    LastLogin        sql.NullTime   `json:"last_login"`
    Status           string         `json:"status"`
    PaymentStatus    string         `json:"payment_status"`
    PaymentMethod    string         `json:"payment_method"`
    PaymentDate      sql.NullTime   `json:"payment_date"`
    PaymentReference sql.NullString `json:"payment_reference"`
    CreatedAt        time.Time      `json:"created_at"`
    UpdatedAt        time.Time      `json:"updated_at"`
}

type APILogEntry struct {
    ID         int64     `json:"id"`
    Router     string    `json:"router"`
    Operation  string    `json:"operation"`
    Parameters string    `json:"parameters"`
    Response   string    `json:"response"`
    Status     string    `json:"status"`
    Timestamp  time.Time `json:"timestamp"`
}

type Setting struct {
    Key         string    `json:"key"`
    Value       string    `json:"value"`
    Description string    `json:"description"`
    UpdatedAt   time.Time `json:"updated_at"`
}
