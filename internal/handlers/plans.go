package handlers

import (
    "encoding/json"
    "net/http"
    "strconv"

    "github.com/gorilla/mux"

    "github.com/WinAndronuX/mikrotik-integration/internal/models"
)

type PlanResponse struct {
    ID             int      `json:"id"`
    Name           string   `json:"name"`
    ConnectionType string   `json:"connection_type"`
    ValidityDays   int      `json:"validity_days"`
    Price          float64  `json:"price"`
    ResellerPrice  float64  `json:"reseller_price"`
    Currency       string   `json:"currency"`
    DataQuotaMB    *float64 `json:"data_quota_mb"`
    IsActive       bool     `json:"is_active"`
}

type PlanRequest struct {
    Name           string  `json:"name"`
    ConnectionType string  `json:"connection_type"`
    ValidityDays   int     `json:"validity_days"`
    Price          float64 `json:"price"`
    Currency       string  `json:"currency"`
    DataQuotaMB    float64 `json:"data_quota_mb"`
    ResellerMarkup float64 `json:"reseller_markup"`
}

func toPlanResponse(p *models.InternetPlan) PlanResponse {
    resp := PlanResponse{
        ID:             p.ID,
        Name:           p.Name,
        ConnectionType: p.ConnectionType,
        ValidityDays:   p.ValidityDays,
        Price:          p.Price,
        ResellerPrice:  p.ResellerPrice(),
        Currency:       p.Currency,
        IsActive:       p.IsActive,
    }
    if p.DataQuotaMB.Valid {
        quota := p.DataQuotaMB.Float64
        resp.DataQuotaMB = &quota
    }
    return resp
}

func (h *Handler) GetPlans(w http.ResponseWriter, r *http.Request) {
    rows, err := h.db.Query(`
        SELECT id, name, connection_type, validity_days, price, currency, data_quota_mb,
               reseller_markup, is_active, created_at
        FROM internet_plans WHERE is_active = true ORDER BY price
    `)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
        return
    }
    defer rows.Close()

    var plans []PlanResponse
    for rows.Next() {
        var p models.InternetPlan
        rows.Scan(&p.ID, &p.Name, &p.ConnectionType, &p.ValidityDays, &p.Price, &p.Currency,
            &p.DataQuotaMB, &p.ResellerMarkup, &p.IsActive, &p.CreatedAt)
        plans = append(plans, toPlanResponse(&p))
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: plans})
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
    id, _ := strconv.Atoi(mux.Vars(r)["id"])

    var p models.InternetPlan
    err := h.db.QueryRow(`
        SELECT id, name, connection_type, validity_days, price, currency, data_quota_mb,
               reseller_markup, is_active, created_at
        FROM internet_plans WHERE id = $1
    `, id).Scan(&p.ID, &p.Name, &p.ConnectionType, &p.ValidityDays, &p.Price, &p.Currency,
        &p.DataQuotaMB, &p.ResellerMarkup, &p.IsActive, &p.CreatedAt)
    if err != nil {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Plan not found"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: toPlanResponse(&p)})
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }

    var req PlanRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }

    if req.ValidityDays <= 0 {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Validity days must be greater than 0"})
        return
    }
    if req.Price <= 0 {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Price must be greater than 0"})
        return
    }
    if req.DataQuotaMB < 0 {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Data quota must be greater than 0 MB"})
        return
    }
    if req.ResellerMarkup < 0 {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Reseller markup cannot be negative"})
        return
    }

    var exists int
    if err := h.db.QueryRow("SELECT COUNT(*) FROM connection_types WHERE name = $1", req.ConnectionType).Scan(&exists); err != nil || exists == 0 {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Connection type does not exist"})
        return
    }

    if req.Currency == "" {
        req.Currency = "KES"
    }

    var planID int
    err := h.db.QueryRow(`
        INSERT INTO internet_plans (name, connection_type, validity_days, price, currency, data_quota_mb, reseller_markup)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0), NULLIF($7, 0)) RETURNING id
    `, req.Name, req.ConnectionType, req.ValidityDays, req.Price, req.Currency, req.DataQuotaMB, req.ResellerMarkup).Scan(&planID)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to create plan"})
        return
    }

    h.logger.Info("Internet plan created", "plan_id", planID, "name", req.Name)
    h.sendJSON(w, http.StatusCreated, Response{Success: true, Data: map[string]int{"id": planID}})
}

func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }
    id, _ := strconv.Atoi(mux.Vars(r)["id"])

    var req PlanRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }
    if req.ValidityDays <= 0 || req.Price <= 0 {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Validity days and price must be greater than 0"})
        return
    }

    result, err := h.db.Exec(`
        UPDATE internet_plans SET name = $1, validity_days = $2, price = $3,
               data_quota_mb = NULLIF($4, 0), reseller_markup = NULLIF($5, 0)
        WHERE id = $6
    `, req.Name, req.ValidityDays, req.Price, req.DataQuotaMB, req.ResellerMarkup, id)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to update plan"})
        return
    }
    if rows, _ := result.RowsAffected(); rows == 0 {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Plan not found"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Plan updated"})
}

// DeletePlan retires the plan instead of removing the row: existing
// subscriptions keep referencing it for validity and quota checks.
func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }
    id, _ := strconv.Atoi(mux.Vars(r)["id"])

    result, err := h.db.Exec("UPDATE internet_plans SET is_active = false WHERE id = $1", id)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to retire plan"})
        return
    }
    if rows, _ := result.RowsAffected(); rows == 0 {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Plan not found"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Plan retired"})
}
