package handlers

import "net/http"

// Manual triggers for the periodic jobs. Each runs the job inline so the
// caller sees completion, not just enqueueing.

func (h *Handler) TriggerUsageSync(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }
    h.jobs.SyncUsage()
    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Usage sync completed"})
}

func (h *Handler) TriggerExpirySweep(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }
    h.jobs.SweepExpired()
    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Expiry sweep completed"})
}

func (h *Handler) TriggerRouterStatusSync(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }
    h.jobs.SyncRouterStatus()
    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Router status sync completed"})
}

func (h *Handler) TriggerRouterSync(w http.ResponseWriter, r *http.Request) {
    if !h.requireAdmin(w, r) {
        return
    }
    h.jobs.SyncRouters()
    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Router connectivity sync completed"})
}
