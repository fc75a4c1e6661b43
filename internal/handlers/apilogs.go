package handlers

import (
    "net/http"
    "strconv"

    "github.com/WinAndronuX/mikrotik-integration/internal/auditlog"
)

func (h *Handler) GetAPILogs(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }

    status := r.URL.Query().Get("status")
    limit := 100
    if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
        if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
            limit = l
        }
    }

    entries, err := h.audit.List(status, limit)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: entries})
}

func (h *Handler) GetAPILogStats(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }

    stats, err := h.audit.Stats(
        r.URL.Query().Get("router"),
        r.URL.Query().Get("status"),
        r.URL.Query().Get("operation"),
    )
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: stats})
}

func (h *Handler) PurgeAPILogs(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }

    days := auditlog.DefaultRetentionDays
    if daysStr := r.URL.Query().Get("days"); daysStr != "" {
        if d, err := strconv.Atoi(daysStr); err == nil && d > 0 {
            days = d
        }
    }

    deleted, err := h.audit.PurgeOlderThan(days)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to purge logs"})
        return
    }

    h.logger.Info("API logs purged", "deleted", deleted, "days", days)
    h.sendJSON(w, http.StatusOK, Response{
        Success: true,
        Message: "Old API logs deleted",
        Data:    map[string]int64{"deleted": deleted},
    })
}
