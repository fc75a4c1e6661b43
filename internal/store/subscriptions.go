package store

import (
    "database/sql"
    "fmt"
    "time"

    "github.com/WinAndronuX/mikrotik-integration/internal/models"
    "github.com/WinAndronuX/mikrotik-integration/pkg/database"
)

const subscriptionColumns = `
    s.id, s.subscription_id, s.customer_id, c.name, s.connection_type, s.plan_id,
    s.router_id, s.username, s.password, s.start_date, s.expiry_date, s.data_used_mb,
    s.last_login, s.status, s.payment_status, s.payment_method, s.payment_date,
    s.payment_reference, s.created_at, s.updated_at`

// SubscriptionStore persists subscriptions and the records the state machine
// reads alongside them.
type SubscriptionStore struct {
    db *database.DB
}

func NewSubscriptionStore(db *database.DB) *SubscriptionStore {
    return &SubscriptionStore{db: db}
}

func scanSubscription(row interface{ Scan(...interface{}) error }) (*models.Subscription, error) {
    var s models.Subscription
    err := row.Scan(
        &s.ID, &s.SubscriptionID, &s.CustomerID, &s.CustomerName, &s.ConnectionType, &s.PlanID,
        &s.RouterID, &s.Username, &s.Password, &s.StartDate, &s.ExpiryDate, &s.DataUsedMB,
        &s.LastLogin, &s.Status, &s.PaymentStatus, &s.PaymentMethod, &s.PaymentDate,
        &s.PaymentReference, &s.CreatedAt, &s.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &s, nil
}

func (st *SubscriptionStore) GetBySubscriptionID(id string) (*models.Subscription, error) {
    row := st.db.QueryRow(`
        SELECT `+subscriptionColumns+`
        FROM subscriptions s JOIN customers c ON s.customer_id = c.id
        WHERE s.subscription_id = $1
    `, id)
    sub, err := scanSubscription(row)
    if err == sql.ErrNoRows {
        return nil, fmt.Errorf("subscription %s not found", id)
    }
    return sub, err
}

func (st *SubscriptionStore) Create(sub *models.Subscription) error {
    return st.db.QueryRow(`
        INSERT INTO subscriptions
            (subscription_id, customer_id, connection_type, plan_id, router_id, username,
             password, start_date, expiry_date, data_used_mb, status, payment_status, payment_method)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id, created_at, updated_at
    `, sub.SubscriptionID, sub.CustomerID, sub.ConnectionType, sub.PlanID, sub.RouterID,
        sub.Username, sub.Password, sub.StartDate, sub.ExpiryDate, sub.DataUsedMB,
        sub.Status, sub.PaymentStatus, sub.PaymentMethod,
    ).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
}

// Update writes the mutable fields of one subscription. Each call is its own
// transaction so a failing item in a batch never drags others down with it.
func (st *SubscriptionStore) Update(sub *models.Subscription) error {
    _, err := st.db.Exec(`
        UPDATE subscriptions SET
            expiry_date = $1, data_used_mb = $2, last_login = $3, status = $4,
            payment_status = $5, payment_date = $6, payment_reference = $7, updated_at = NOW()
        WHERE subscription_id = $8
    `, sub.ExpiryDate, sub.DataUsedMB, sub.LastLogin, sub.Status,
        sub.PaymentStatus, sub.PaymentDate, sub.PaymentReference, sub.SubscriptionID)
    return err
}

func (st *SubscriptionStore) Customer(id int) (*models.Customer, error) {
    var c models.Customer
    err := st.db.QueryRow(`
        SELECT id, name, phone_number, email, disabled, created_at FROM customers WHERE id = $1
    `, id).Scan(&c.ID, &c.Name, &c.PhoneNumber, &c.Email, &c.Disabled, &c.CreatedAt)
    if err == sql.ErrNoRows {
        return nil, fmt.Errorf("customer %d not found", id)
    }
    if err != nil {
        return nil, err
    }
    return &c, nil
}

func (st *SubscriptionStore) Plan(id int) (*models.InternetPlan, error) {
    var p models.InternetPlan
    err := st.db.QueryRow(`
        SELECT id, name, connection_type, validity_days, price, currency, data_quota_mb,
               reseller_markup, is_active, created_at
        FROM internet_plans WHERE id = $1
    `, id).Scan(&p.ID, &p.Name, &p.ConnectionType, &p.ValidityDays, &p.Price, &p.Currency,
        &p.DataQuotaMB, &p.ResellerMarkup, &p.IsActive, &p.CreatedAt)
    if err == sql.ErrNoRows {
        return nil, fmt.Errorf("internet plan %d not found", id)
    }
    if err != nil {
        return nil, err
    }
    return &p, nil
}

func (st *SubscriptionStore) list(where string, args ...interface{}) ([]models.Subscription, error) {
    rows, err := st.db.Query(`
        SELECT `+subscriptionColumns+`
        FROM subscriptions s JOIN customers c ON s.customer_id = c.id
        `+where+` ORDER BY s.created_at DESC
    `, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var subs []models.Subscription
    for rows.Next() {
        sub, err := scanSubscription(rows)
        if err != nil {
            return nil, err
        }
        subs = append(subs, *sub)
    }
    return subs, rows.Err()
}

func (st *SubscriptionStore) ActiveSubscriptions() ([]models.Subscription, error) {
    return st.list("WHERE s.status = $1", models.StatusActive)
}

func (st *SubscriptionStore) ExpiredActive(asOf time.Time) ([]models.Subscription, error) {
    return st.list("WHERE s.status = $1 AND s.expiry_date <= $2", models.StatusActive, asOf)
}

func (st *SubscriptionStore) ActiveOrSuspended() ([]models.Subscription, error) {
    return st.list("WHERE s.status = $1 OR s.status = $2", models.StatusActive, models.StatusSuspended)
}
