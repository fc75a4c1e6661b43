package handlers

import (
    "encoding/json"
    "net/http"
    "strconv"
    "time"

    "github.com/gorilla/mux"

    "github.com/WinAndronuX/mikrotik-integration/internal/models"
    "github.com/WinAndronuX/mikrotik-integration/internal/routeros"
)

type RouterResponse struct {
    ID        int     `json:"id"`
    Name      string  `json:"name"`
    Host      string  `json:"host"`
    Port      int     `json:"port"`
    Username  string  `json:"username"`
    UseTLS    bool    `json:"use_tls"`
    ProbeOnly bool    `json:"probe_only"`
    LastSync  *string `json:"last_sync"`
}

type RouterRequest struct {
    Name      string `json:"name"`
    Host      string `json:"host"`
    Port      int    `json:"port"`
    Username  string `json:"username"`
    Password  string `json:"password"`
    UseTLS    bool   `json:"use_tls"`
    ProbeOnly bool   `json:"probe_only"`
}

func toRouterResponse(r *models.Router) RouterResponse {
    resp := RouterResponse{
        ID:        r.ID,
        Name:      r.Name,
        Host:      r.Host,
        Port:      r.Port,
        Username:  r.Username,
        UseTLS:    r.UseTLS,
        ProbeOnly: r.ProbeOnly,
    }
    if r.LastSync.Valid {
        lastSync := r.LastSync.Time.Format(time.RFC3339)
        resp.LastSync = &lastSync
    }
    return resp
}

func (h *Handler) GetRouters(w http.ResponseWriter, r *http.Request) {
    routers, err := h.catalog.Routers()
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
        return
    }

    var out []RouterResponse
    for i := range routers {
        out = append(out, toRouterResponse(&routers[i]))
    }
    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: out})
}

func (h *Handler) GetRouter(w http.ResponseWriter, r *http.Request) {
    id, _ := strconv.Atoi(mux.Vars(r)["id"])

    router, err := h.catalog.Router(id)
    if err != nil {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Router not found"})
        return
    }
    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: toRouterResponse(router)})
}

func (h *Handler) CreateRouter(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }

    var req RouterRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }
    if req.Name == "" || req.Host == "" || req.Username == "" {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Name, host and username are required"})
        return
    }

    var routerID int
    err := h.db.QueryRow(`
        INSERT INTO routers (name, host, port, username, password, use_tls, probe_only)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id
    `, req.Name, req.Host, req.Port, req.Username, req.Password, req.UseTLS, req.ProbeOnly).Scan(&routerID)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to create router"})
        return
    }

    h.logger.Info("Router created", "router_id", routerID, "name", req.Name)
    h.sendJSON(w, http.StatusCreated, Response{Success: true, Data: map[string]int{"id": routerID}})
}

func (h *Handler) UpdateRouter(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }
    id, _ := strconv.Atoi(mux.Vars(r)["id"])

    var req RouterRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }

    result, err := h.db.Exec(`
        UPDATE routers SET name = $1, host = $2, port = $3, username = $4,
               password = COALESCE(NULLIF($5, ''), password),
               use_tls = $6, probe_only = $7, updated_at = NOW()
        WHERE id = $8
    `, req.Name, req.Host, req.Port, req.Username, req.Password, req.UseTLS, req.ProbeOnly, id)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to update router"})
        return
    }
    if rows, _ := result.RowsAffected(); rows == 0 {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Router not found"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Router updated"})
}

func (h *Handler) DeleteRouter(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }
    id, _ := strconv.Atoi(mux.Vars(r)["id"])

    var count int
    h.db.QueryRow("SELECT COUNT(*) FROM subscriptions WHERE router_id = $1 AND status != 'Expired'", id).Scan(&count)
    if count > 0 {
        h.sendJSON(w, http.StatusConflict, Response{Success: false, Error: "Router still has live subscriptions"})
        return
    }

    result, err := h.db.Exec("DELETE FROM routers WHERE id = $1", id)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to delete router"})
        return
    }
    if rows, _ := result.RowsAffected(); rows == 0 {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Router not found"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Router deleted"})
}

// TestRouterConnection opens a full API session against the router and
// reports its identity, or a classified error.
func (h *Handler) TestRouterConnection(w http.ResponseWriter, r *http.Request) {
    id, _ := strconv.Atoi(mux.Vars(r)["id"])

    router, err := h.catalog.Router(id)
    if err != nil {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Router not found"})
        return
    }

    if router.ProbeOnly {
        if routeros.Ping(*router) {
            h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Router is responding"})
        } else {
            h.sendJSON(w, http.StatusBadGateway, Response{Success: false, Error: "Router is not responding"})
        }
        return
    }

    conn, err := routeros.Dial(*router)
    if err != nil {
        h.sendJSON(w, http.StatusBadGateway, Response{Success: false, Error: err.Error()})
        return
    }
    defer conn.Close()

    identity, err := conn.Identity()
    if err != nil {
        h.sendJSON(w, http.StatusBadGateway, Response{Success: false, Error: err.Error()})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{
        Success: true,
        Message: "Successfully connected to router",
        Data:    map[string]string{"identity": identity},
    })
}
