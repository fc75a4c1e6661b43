package handlers

import (
    "encoding/json"
    "net/http"
    "time"

    "github.com/gorilla/mux"

    "github.com/WinAndronuX/mikrotik-integration/internal/models"
)

const settingsCacheTTL = 5 * time.Minute

type SettingResponse struct {
    Key   string `json:"key"`
    Value string `json:"value"`
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }

    rows, err := h.db.Query("SELECT key, value FROM settings ORDER BY key")
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
        return
    }
    defer rows.Close()

    var settings []SettingResponse
    for rows.Next() {
        var s models.Setting
        rows.Scan(&s.Key, &s.Value)
        settings = append(settings, SettingResponse{Key: s.Key, Value: s.Value})
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: settings})
}

func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
    key := mux.Vars(r)["key"]

    if cached, ok := h.redis.CacheGet("settings:" + key); ok {
        h.sendJSON(w, http.StatusOK, Response{Success: true, Data: SettingResponse{Key: key, Value: cached}})
        return
    }

    var value string
    if err := h.db.QueryRow("SELECT value FROM settings WHERE key = $1", key).Scan(&value); err != nil {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Setting not found"})
        return
    }

    if err := h.redis.CacheSet("settings:"+key, value, settingsCacheTTL); err != nil {
        h.logger.Warn("Failed to cache setting", "key", key, "error", err)
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: SettingResponse{Key: key, Value: value}})
}

func (h *Handler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }
    key := mux.Vars(r)["key"]

    var req struct {
        Value string `json:"value"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }

    _, err := h.db.Exec(`
        INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
        ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()
    `, key, req.Value)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to update setting"})
        return
    }

    if err := h.redis.CacheInvalidate("settings:" + key); err != nil {
        h.logger.Warn("Failed to invalidate setting cache", "key", key, "error", err)
    }

    h.logger.Info("Setting updated", "key", key)
    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Setting updated"})
}
