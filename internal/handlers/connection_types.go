package handlers

import (
    "database/sql"
    "encoding/json"
    "net/http"
    "strconv"

    "github.com/gorilla/mux"

    "github.com/WinAndronuX/mikrotik-integration/internal/models"
    "github.com/WinAndronuX/mikrotik-integration/internal/profile"
    "github.com/WinAndronuX/mikrotik-integration/internal/routeros"
)

type ConnectionTypeResponse struct {
    ID            int    `json:"id"`
    Name          string `json:"name"`
    ServiceName   string `json:"service_name"`
    ProfileName   string `json:"profile_name"`
    ParentProfile string `json:"parent_profile,omitempty"`
    SpeedLimitRx  string `json:"speed_limit_rx,omitempty"`
    SpeedLimitTx  string `json:"speed_limit_tx,omitempty"`
    BurstLimitRx  string `json:"burst_limit_rx,omitempty"`
    BurstLimitTx  string `json:"burst_limit_tx,omitempty"`
}

type ConnectionTypeRequest struct {
    Name          string `json:"name"`
    ServiceName   string `json:"service_name"`
    ProfileName   string `json:"profile_name"`
    ParentProfile string `json:"parent_profile"`
    SpeedLimitRx  string `json:"speed_limit_rx"`
    SpeedLimitTx  string `json:"speed_limit_tx"`
    BurstLimitRx  string `json:"burst_limit_rx"`
    BurstLimitTx  string `json:"burst_limit_tx"`
}

func toConnectionTypeResponse(ct *models.ConnectionType) ConnectionTypeResponse {
    return ConnectionTypeResponse{
        ID:            ct.ID,
        Name:          ct.Name,
        ServiceName:   ct.ServiceName,
        ProfileName:   ct.ProfileName,
        ParentProfile: ct.ParentProfile.String,
        SpeedLimitRx:  ct.SpeedLimitRx.String,
        SpeedLimitTx:  ct.SpeedLimitTx.String,
        BurstLimitRx:  ct.BurstLimitRx.String,
        BurstLimitTx:  ct.BurstLimitTx.String,
    }
}

func nullString(s string) sql.NullString {
    return sql.NullString{String: s, Valid: s != ""}
}

func (h *Handler) GetConnectionTypes(w http.ResponseWriter, r *http.Request) {
    types, err := h.catalog.ConnectionTypes()
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
        return
    }

    var out []ConnectionTypeResponse
    for i := range types {
        out = append(out, toConnectionTypeResponse(&types[i]))
    }
    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: out})
}

// validateConnectionType runs the write-time checks: known service name,
// bandwidth format, and an acyclic parent chain over the proposed set.
func (h *Handler) validateConnectionType(candidate models.ConnectionType) error {
    if _, err := routeros.Lookup(candidate.ServiceName); err != nil {
        return err
    }

    existing, err := h.catalog.ConnectionTypes()
    if err != nil {
        return err
    }

    proposed := make([]models.ConnectionType, 0, len(existing)+1)
    for _, ct := range existing {
        if ct.Name != candidate.Name {
            proposed = append(proposed, ct)
        }
    }
    proposed = append(proposed, candidate)

    return profile.NewResolver(proposed).Validate(candidate.Name)
}

func (h *Handler) CreateConnectionType(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }

    var req ConnectionTypeRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }
    if req.Name == "" || req.ServiceName == "" || req.ProfileName == "" {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Name, service_name and profile_name are required"})
        return
    }

    candidate := models.ConnectionType{
        Name:          req.Name,
        ServiceName:   req.ServiceName,
        ProfileName:   req.ProfileName,
        ParentProfile: nullString(req.ParentProfile),
        SpeedLimitRx:  nullString(req.SpeedLimitRx),
        SpeedLimitTx:  nullString(req.SpeedLimitTx),
        BurstLimitRx:  nullString(req.BurstLimitRx),
        BurstLimitTx:  nullString(req.BurstLimitTx),
    }
    if err := h.validateConnectionType(candidate); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: err.Error()})
        return
    }

    var typeID int
    err := h.db.QueryRow(`
        INSERT INTO connection_types
            (name, service_name, profile_name, parent_profile, speed_limit_rx, speed_limit_tx, burst_limit_rx, burst_limit_tx)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id
    `, candidate.Name, candidate.ServiceName, candidate.ProfileName, candidate.ParentProfile,
        candidate.SpeedLimitRx, candidate.SpeedLimitTx, candidate.BurstLimitRx, candidate.BurstLimitTx).Scan(&typeID)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to create connection type"})
        return
    }

    h.logger.Info("Connection type created", "name", candidate.Name, "service", candidate.ServiceName)
    h.sendJSON(w, http.StatusCreated, Response{Success: true, Data: map[string]int{"id": typeID}})
}

func (h *Handler) UpdateConnectionType(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }
    id, _ := strconv.Atoi(mux.Vars(r)["id"])

    var req ConnectionTypeRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }

    candidate := models.ConnectionType{
        ID:            id,
        Name:          req.Name,
        ServiceName:   req.ServiceName,
        ProfileName:   req.ProfileName,
        ParentProfile: nullString(req.ParentProfile),
        SpeedLimitRx:  nullString(req.SpeedLimitRx),
        SpeedLimitTx:  nullString(req.SpeedLimitTx),
        BurstLimitRx:  nullString(req.BurstLimitRx),
        BurstLimitTx:  nullString(req.BurstLimitTx),
    }
    if err := h.validateConnectionType(candidate); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: err.Error()})
        return
    }

    result, err := h.db.Exec(`
        UPDATE connection_types SET name = $1, service_name = $2, profile_name = $3, parent_profile = $4,
               speed_limit_rx = $5, speed_limit_tx = $6, burst_limit_rx = $7, burst_limit_tx = $8
        WHERE id = $9
    `, candidate.Name, candidate.ServiceName, candidate.ProfileName, candidate.ParentProfile,
        candidate.SpeedLimitRx, candidate.SpeedLimitTx, candidate.BurstLimitRx, candidate.BurstLimitTx, id)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to update connection type"})
        return
    }
    if rows, _ := result.RowsAffected(); rows == 0 {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Connection type not found"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Connection type updated"})
}

func (h *Handler) DeleteConnectionType(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }
    id, _ := strconv.Atoi(mux.Vars(r)["id"])

    var name string
    if err := h.db.QueryRow("SELECT name FROM connection_types WHERE id = $1", id).Scan(&name); err != nil {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Connection type not found"})
        return
    }

    var count int
    h.db.QueryRow("SELECT COUNT(*) FROM connection_types WHERE parent_profile = $1", name).Scan(&count)
    if count > 0 {
        h.sendJSON(w, http.StatusConflict, Response{Success: false, Error: "Connection type is a parent of other profiles"})
        return
    }
    h.db.QueryRow("SELECT COUNT(*) FROM subscriptions WHERE connection_type = $1 AND status != 'Expired'", name).Scan(&count)
    if count > 0 {
        h.sendJSON(w, http.StatusConflict, Response{Success: false, Error: "Connection type still has live subscriptions"})
        return
    }

    if _, err := h.db.Exec("DELETE FROM connection_types WHERE id = $1", id); err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to delete connection type"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Connection type deleted"})
}
