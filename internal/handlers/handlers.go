package handlers

import (
    "encoding/json"
    "errors"
    "net/http"
    "time"

    "github.com/WinAndronuX/mikrotik-integration/internal/auditlog"
    "github.com/WinAndronuX/mikrotik-integration/internal/provision"
    "github.com/WinAndronuX/mikrotik-integration/internal/scheduler"
    "github.com/WinAndronuX/mikrotik-integration/internal/store"
    "github.com/WinAndronuX/mikrotik-integration/internal/subscription"
    "github.com/WinAndronuX/mikrotik-integration/pkg/database"
    "github.com/WinAndronuX/mikrotik-integration/pkg/logger"
    "github.com/WinAndronuX/mikrotik-integration/pkg/redis"
)

type Handler struct {
    db      *database.DB
    logger  *logger.Logger
    redis   *redis.RedisClient
    subs    *subscription.Service
    engine  *provision.Engine
    audit   *auditlog.Store
    jobs    *scheduler.Jobs
    catalog *store.CatalogStore
}

func New(db *database.DB, l *logger.Logger, r *redis.RedisClient, subs *subscription.Service,
    engine *provision.Engine, audit *auditlog.Store, jobs *scheduler.Jobs, catalog *store.CatalogStore) *Handler {
    return &Handler{
        db:      db,
        logger:  l,
        redis:   r,
        subs:    subs,
        engine:  engine,
        audit:   audit,
        jobs:    jobs,
        catalog: catalog,
    }
}

type Response struct {
    Success bool        `json:"success"`
    Message string      `json:"message,omitempty"`
    Data    interface{} `json:"data,omitempty"`
    Error   string      `json:"error,omitempty"`
}

func (h *Handler) sendJSON(w http.ResponseWriter, status int, resp Response) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    json.NewEncoder(w).Encode(resp)
}

// sendError maps validation failures to 400 and everything else to 500.
func (h *Handler) sendError(w http.ResponseWriter, err error) {
    var verr *subscription.ValidationError
    if errors.As(err, &verr) {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: verr.Message})
        return
    }
    h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
    var dbStatus string
    if err := h.db.Ping(); err != nil {
        dbStatus = "disconnected"
    } else {
        dbStatus = "connected"
    }

    h.sendJSON(w, http.StatusOK, Response{
        Success: true,
        Message: "MikroTik Billing API is running",
        Data: map[string]interface{}{
            "version":   "1.0.0",
            "timestamp": time.Now().Format(time.RFC3339),
            "database":  dbStatus,
        },
    })
}
