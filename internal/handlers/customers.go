package handlers

import (
    "encoding/json"
    "net/http"

    "github.com/WinAndronuX/mikrotik-integration/internal/models"
)

type CustomerResponse struct {
    ID          int    `json:"id"`
    Name        string `json:"name"`
    PhoneNumber string `json:"phone_number"`
    Email       string `json:"email,omitempty"`
    Disabled    bool   `json:"disabled"`
}

type CustomerRequest struct {
    Name        string `json:"name"`
    PhoneNumber string `json:"phone_number"`
    Email       string `json:"email"`
}

func (h *Handler) GetCustomers(w http.ResponseWriter, r *http.Request) {
    rows, err := h.db.Query(`
        SELECT id, name, phone_number, email, disabled, created_at FROM customers ORDER BY name
    `)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
        return
    }
    defer rows.Close()

    var customers []CustomerResponse
    for rows.Next() {
        var c models.Customer
        rows.Scan(&c.ID, &c.Name, &c.PhoneNumber, &c.Email, &c.Disabled, &c.CreatedAt)
        customers = append(customers, CustomerResponse{
            ID:          c.ID,
            Name:        c.Name,
            PhoneNumber: c.PhoneNumber,
            Email:       c.Email.String,
            Disabled:    c.Disabled,
        })
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: customers})
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
    var req CustomerRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }
    if req.Name == "" || req.PhoneNumber == "" {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Name and phone number are required"})
        return
    }

    var customerID int
    err := h.db.QueryRow(`
        INSERT INTO customers (name, phone_number, email) VALUES ($1, $2, NULLIF($3, '')) RETURNING id
    `, req.Name, req.PhoneNumber, req.Email).Scan(&customerID)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to create customer"})
        return
    }

    h.sendJSON(w, http.StatusCreated, Response{Success: true, Data: map[string]int{"id": customerID}})
}
