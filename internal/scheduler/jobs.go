package scheduler

import (
    "database/sql"
    "time"

    "github.com/robfig/cron/v3"

    "github.com/WinAndronuX/mikrotik-integration/internal/models"
    "github.com/WinAndronuX/mikrotik-integration/internal/provision"
    "github.com/WinAndronuX/mikrotik-integration/internal/routeros"
    "github.com/WinAndronuX/mikrotik-integration/pkg/logger"
)

// SubscriptionStore provides the candidate sets the periodic jobs iterate.
type SubscriptionStore interface {
    ActiveSubscriptions() ([]models.Subscription, error)
    ExpiredActive(asOf time.Time) ([]models.Subscription, error)
    ActiveOrSuspended() ([]models.Subscription, error)
    Update(sub *models.Subscription) error
    Plan(id int) (*models.InternetPlan, error)
}

type RouterStore interface {
    Routers() ([]models.Router, error)
    TouchLastSync(id int) error
}

// Reconciler is the read side of the provisioning engine.
type Reconciler interface {
    GetUsage(sub *models.Subscription) *provision.Usage
    CheckStatus(sub *models.Subscription) provision.Status
}

// Lifecycle is the state-machine entry point the jobs drive.
type Lifecycle interface {
    Suspend(id string) error
}

type Notifier interface {
    StatusUpdate(subscriptionID, event, message, status string) error
}

type AuditPurger interface {
    PurgeOlderThan(days int) (int64, error)
}

// Jobs holds the four reconciliation entry points. Each job processes its
// candidates one by one and isolates per-item failure: one unreachable
// router must never abort the rest of the batch.
type Jobs struct {
    subs          SubscriptionStore
    routers       RouterStore
    engine        Reconciler
    lifecycle     Lifecycle
    notifier      Notifier
    audit         AuditPurger
    dial          routeros.Dialer
    log           *logger.Logger
    RetentionDays int
}

func NewJobs(subs SubscriptionStore, routers RouterStore, engine Reconciler, lifecycle Lifecycle,
    notifier Notifier, audit AuditPurger, dial routeros.Dialer, log *logger.Logger) *Jobs {
    return &Jobs{
        subs:          subs,
        routers:       routers,
        engine:        engine,
        lifecycle:     lifecycle,
        notifier:      notifier,
        audit:         audit,
        dial:          dial,
        log:           log,
        RetentionDays: 30,
    }
}

// Start registers the jobs at their fixed cadences and starts the cron
// runner.
func Start(j *Jobs) *cron.Cron {
    c := cron.New()
    c.AddFunc("@hourly", j.SyncUsage)
    c.AddFunc("@daily", j.SweepExpired)
    c.AddFunc("@daily", j.PurgeAuditLogs)
    c.AddFunc("*/2 * * * *", j.SyncRouterStatus)
    c.AddFunc("*/5 * * * *", j.SyncRouters)
    c.Start()
    return c
}

// SyncUsage refreshes counters for every active subscription and suspends
// the ones that crossed their quota. A nil usage read means "skip this
// cycle", never "zero usage".
func (j *Jobs) SyncUsage() {
    subs, err := j.subs.ActiveSubscriptions()
    if err != nil {
        j.log.Error("Usage sync: failed to list active subscriptions", "error", err)
        return
    }

    for i := range subs {
        sub := subs[i]

        usage := j.engine.GetUsage(&sub)
        if usage == nil {
            j.log.Warn("Usage sync: skipping subscription", "subscription", sub.SubscriptionID)
            continue
        }

        sub.DataUsedMB = usage.DataUsedMB
        if usage.LastLogin != nil {
            sub.LastLogin = sql.NullTime{Time: *usage.LastLogin, Valid: true}
        }
        if err := j.subs.Update(&sub); err != nil {
            j.log.Error("Usage sync: failed to persist usage", "subscription", sub.SubscriptionID, "error", err)
            continue
        }

        plan, err := j.subs.Plan(sub.PlanID)
        if err != nil {
            j.log.Error("Usage sync: failed to look up plan", "subscription", sub.SubscriptionID, "error", err)
            continue
        }
        if plan.DataQuotaMB.Valid && sub.DataUsedMB >= plan.DataQuotaMB.Float64 {
            if err := j.lifecycle.Suspend(sub.SubscriptionID); err != nil {
                j.log.Error("Usage sync: failed to suspend over-quota subscription", "subscription", sub.SubscriptionID, "error", err)
                continue
            }
            j.notify(sub.SubscriptionID, "quota_exceeded", "Data quota exceeded", models.StatusSuspended)
        }

        if err := j.routers.TouchLastSync(sub.RouterID); err != nil {
            j.log.Error("Usage sync: failed to update router last sync", "router_id", sub.RouterID, "error", err)
        }
    }
}

// SweepExpired suspends every active subscription whose expiry date has
// passed. The candidate query only matches Active records, so re-running
// the sweep does not touch already-suspended subscriptions.
func (j *Jobs) SweepExpired() {
    expired, err := j.subs.ExpiredActive(time.Now())
    if err != nil {
        j.log.Error("Expiry sweep: failed to list expired subscriptions", "error", err)
        return
    }

    for _, sub := range expired {
        if err := j.lifecycle.Suspend(sub.SubscriptionID); err != nil {
            j.log.Error("Expiry sweep: failed to suspend subscription", "subscription", sub.SubscriptionID, "error", err)
            continue
        }
        j.notify(sub.SubscriptionID, "expired", "Subscription expired", models.StatusSuspended)
    }
}

// SyncRouterStatus compares the router's view of each account against the
// local record and adopts the router's view on mismatch. Only Active and
// Suspended are adopted; Not Found and Error never overwrite local state.
func (j *Jobs) SyncRouterStatus() {
    subs, err := j.subs.ActiveOrSuspended()
    if err != nil {
        j.log.Error("Router status sync: failed to list subscriptions", "error", err)
        return
    }

    for i := range subs {
        sub := subs[i]

        routerStatus := j.engine.CheckStatus(&sub)
        switch routerStatus {
        case provision.StatusActive, provision.StatusSuspended:
            if string(routerStatus) == sub.Status {
                continue
            }
            sub.Status = string(routerStatus)
            if err := j.subs.Update(&sub); err != nil {
                j.log.Error("Router status sync: failed to persist status", "subscription", sub.SubscriptionID, "error", err)
                continue
            }
            j.notify(sub.SubscriptionID, "router_sync", "Status synced from router: "+sub.Status, sub.Status)
        default:
            j.log.Warn("Router status sync: account not reconcilable", "subscription", sub.SubscriptionID, "router_status", string(routerStatus))
        }
    }
}

// SyncRouters runs a lightweight identity query against every configured
// router and stamps last_sync on the ones that answer. Probe-only routers
// get a bare socket check instead.
func (j *Jobs) SyncRouters() {
    routers, err := j.routers.Routers()
    if err != nil {
        j.log.Error("Router sync: failed to list routers", "error", err)
        return
    }

    for _, router := range routers {
        if router.ProbeOnly {
            if !routeros.Ping(router) {
                j.log.Error("Router sync: probe failed", "router", router.Name)
                continue
            }
        } else {
            conn, err := j.dial(router)
            if err != nil {
                j.log.Error("Router sync: connection failed", "router", router.Name, "error", err)
                continue
            }
            _, err = conn.Identity()
            conn.Close()
            if err != nil {
                j.log.Error("Router sync: identity query failed", "router", router.Name, "error", err)
                continue
            }
        }

        if err := j.routers.TouchLastSync(router.ID); err != nil {
            j.log.Error("Router sync: failed to update last sync", "router", router.Name, "error", err)
        }
    }
}

// PurgeAuditLogs applies the audit retention policy.
func (j *Jobs) PurgeAuditLogs() {
    deleted, err := j.audit.PurgeOlderThan(j.RetentionDays)
    if err != nil {
        j.log.Error("Audit purge failed", "error", err)
        return
    }
    j.log.Info("Audit logs purged", "deleted", deleted, "retention_days", j.RetentionDays)
}

func (j *Jobs) notify(subscriptionID, event, message, status string) {
    if j.notifier == nil {
        return
    }
    if err := j.notifier.StatusUpdate(subscriptionID, event, message, status); err != nil {
        j.log.Error("Failed to broadcast event", "subscription", subscriptionID, "event", event, "error", err)
    }
}
