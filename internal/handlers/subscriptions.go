package handlers

import (
    "encoding/json"
    "net/http"
    "time"

    "github.com/gorilla/mux"

    "github.com/WinAndronuX/mikrotik-integration/internal/middleware"
    "github.com/WinAndronuX/mikrotik-integration/internal/models"
)

type SubscriptionResponse struct {
    SubscriptionID string  `json:"subscription_id"`
    CustomerName   string  `json:"customer_name"`
    ConnectionType string  `json:"connection_type"`
    PlanID         int     `json:"plan_id"`
    RouterID       int     `json:"router_id"`
    Username       string  `json:"username"`
    StartDate      string  `json:"start_date"`
    ExpiryDate     string  `json:"expiry_date"`
    DataUsedMB     float64 `json:"data_used_mb"`
    LastLogin      *string `json:"last_login"`
    Status         string  `json:"status"`
    PaymentStatus  string  `json:"payment_status"`
    PaymentMethod  string  `json:"payment_method"`
}

type CreateSubscriptionRequest struct {
    CustomerID     int    `json:"customer_id"`
    ConnectionType string `json:"connection_type"`
    PlanID         int    `json:"plan_id"`
    RouterID       int    `json:"router_id"`
    PaymentMethod  string `json:"payment_method"`
    StartDate      string `json:"start_date,omitempty"`
}

func toSubscriptionResponse(s *models.Subscription) SubscriptionResponse {
    resp := SubscriptionResponse{
        SubscriptionID: s.SubscriptionID,
        CustomerName:   s.CustomerName,
        ConnectionType: s.ConnectionType,
        PlanID:         s.PlanID,
        RouterID:       s.RouterID,
        Username:       s.Username,
        StartDate:      s.StartDate.Format("2006-01-02"),
        ExpiryDate:     s.ExpiryDate.Format("2006-01-02"),
        DataUsedMB:     s.DataUsedMB,
        Status:         s.Status,
        PaymentStatus:  s.PaymentStatus,
        PaymentMethod:  s.PaymentMethod,
    }
    if s.LastLogin.Valid {
        lastLogin := s.LastLogin.Time.Format(time.RFC3339)
        resp.LastLogin = &lastLogin
    }
    return resp
}

func (h *Handler) GetSubscriptions(w http.ResponseWriter, r *http.Request) {
    status := r.URL.Query().Get("status")

    query := `
        SELECT s.subscription_id, c.name, s.connection_type, s.plan_id, s.router_id, s.username,
               s.start_date, s.expiry_date, s.data_used_mb, s.last_login, s.status,
               s.payment_status, s.payment_method
        FROM subscriptions s JOIN customers c ON s.customer_id = c.id`
    args := []interface{}{}
    if status != "" {
        query += " WHERE s.status = $1"
        args = append(args, status)
    }
    query += " ORDER BY s.created_at DESC"

    rows, err := h.db.Query(query, args...)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
        return
    }
    defer rows.Close()

    var subs []SubscriptionResponse
    for rows.Next() {
        var s models.Subscription
        rows.Scan(&s.SubscriptionID, &s.CustomerName, &s.ConnectionType, &s.PlanID, &s.RouterID,
            &s.Username, &s.StartDate, &s.ExpiryDate, &s.DataUsedMB, &s.LastLogin, &s.Status,
            &s.PaymentStatus, &s.PaymentMethod)
        subs = append(subs, toSubscriptionResponse(&s))
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: subs})
}

func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
    id := mux.Vars(r)["id"]

    sub, err := h.subs.Get(id)
    if err != nil {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Subscription not found"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: toSubscriptionResponse(sub)})
}

func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
    var req CreateSubscriptionRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }

    if req.CustomerID == 0 || req.ConnectionType == "" || req.PlanID == 0 || req.RouterID == 0 {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "customer_id, connection_type, plan_id and router_id are required"})
        return
    }

    sub := &models.Subscription{
        CustomerID:     req.CustomerID,
        ConnectionType: req.ConnectionType,
        PlanID:         req.PlanID,
        RouterID:       req.RouterID,
        PaymentMethod:  req.PaymentMethod,
    }
    if req.StartDate != "" {
        start, err := time.Parse("2006-01-02", req.StartDate)
        if err != nil {
            h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "start_date must be YYYY-MM-DD"})
            return
        }
        sub.StartDate = start
    }

    if err := h.subs.Create(sub); err != nil {
        h.sendError(w, err)
        return
    }

    h.logger.Info("Subscription created", "subscription", sub.SubscriptionID, "customer_id", sub.CustomerID)
    h.sendJSON(w, http.StatusCreated, Response{
        Success: true,
        Message: "Subscription created",
        Data:    toSubscriptionResponse(sub),
    })
}

func (h *Handler) ActivateSubscription(w http.ResponseWriter, r *http.Request) {
    id := mux.Vars(r)["id"]
    if err := h.subs.Activate(id); err != nil {
        h.sendError(w, err)
        return
    }
    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Subscription activated"})
}

func (h *Handler) SuspendSubscription(w http.ResponseWriter, r *http.Request) {
    id := mux.Vars(r)["id"]
    if err := h.subs.Suspend(id); err != nil {
        h.sendError(w, err)
        return
    }
    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Subscription suspended"})
}

func (h *Handler) ReactivateSubscription(w http.ResponseWriter, r *http.Request) {
    id := mux.Vars(r)["id"]
    if err := h.subs.Reactivate(id); err != nil {
        h.sendError(w, err)
        return
    }
    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Subscription reactivated"})
}

func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
    id := mux.Vars(r)["id"]
    if err := h.subs.Cancel(id); err != nil {
        h.sendError(w, err)
        return
    }
    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Subscription cancelled"})
}

type ExtendRequest struct {
    Days int `json:"days"`
}

func (h *Handler) ExtendSubscription(w http.ResponseWriter, r *http.Request) {
    id := mux.Vars(r)["id"]

    var req ExtendRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }

    if err := h.subs.ExtendValidity(id, req.Days); err != nil {
        h.sendError(w, err)
        return
    }
    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Validity extended"})
}

// GetRouterStatus reports the router's live view of the account.
func (h *Handler) GetRouterStatus(w http.ResponseWriter, r *http.Request) {
    id := mux.Vars(r)["id"]

    sub, err := h.subs.Get(id)
    if err != nil {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Subscription not found"})
        return
    }

    status := h.engine.CheckStatus(sub)
    h.sendJSON(w, http.StatusOK, Response{
        Success: true,
        Data: map[string]string{
            "subscription_id": sub.SubscriptionID,
            "local_status":    sub.Status,
            "router_status":   string(status),
        },
    })
}

func (h *Handler) RequestPayment(w http.ResponseWriter, r *http.Request) {
    id := mux.Vars(r)["id"]

    message, err := h.subs.RequestPayment(id)
    if err != nil {
        h.sendError(w, err)
        return
    }
    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: message})
}

type PaymentSettledRequest struct {
    SubscriptionID   string `json:"subscription_id"`
    PaymentReference string `json:"payment_reference"`
    PaymentType      string `json:"payment_type"`
}

// PaymentSettled is the billing collaborator's callback: it records payment
// completion and drives the implicit activation transition.
func (h *Handler) PaymentSettled(w http.ResponseWriter, r *http.Request) {
    var req PaymentSettledRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }
    if req.SubscriptionID == "" || req.PaymentReference == "" {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "subscription_id and payment_reference are required"})
        return
    }

    if err := h.subs.SettlePayment(req.SubscriptionID, req.PaymentReference, req.PaymentType); err != nil {
        h.sendError(w, err)
        return
    }

    h.logger.Info("Payment settled", "subscription", req.SubscriptionID, "type", req.PaymentType)
    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Payment recorded"})
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
    claims := middleware.GetUserFromContext(r)
    if claims == nil || claims.Role != "admin" {
        h.sendJSON(w, http.StatusForbidden, Response{Success: false, Error: "Admin access required"})
        return false
    }
    return true
}
