package provision

import (
    "encoding/json"
    "fmt"
    "strings"
    "time"

    "github.com/WinAndronuX/mikrotik-integration/internal/models"
    "github.com/WinAndronuX/mikrotik-integration/internal/profile"
    "github.com/WinAndronuX/mikrotik-integration/internal/routeros"
    "github.com/WinAndronuX/mikrotik-integration/pkg/logger"
)

// Status is the router-reported state of a subscription's account.
type Status string

const (
    StatusActive    Status = "Active"
    StatusSuspended Status = "Suspended"
    StatusNotFound  Status = "Not Found"
    StatusError     Status = "Error"
)

// Usage is the counters read back from the router for one account.
type Usage struct {
    DataUsedMB float64
    LastLogin  *time.Time
}

// ConfigStore resolves the router and connection-type records an operation
// needs before it can touch the network.
type ConfigStore interface {
    Router(id int) (*models.Router, error)
    ConnectionTypes() ([]models.ConnectionType, error)
}

// AuditRecorder receives one entry per router operation attempt.
type AuditRecorder interface {
    Record(router, operation, parameters, status, response string)
}

// Engine drives create/remove/status/usage of router accounts for
// subscriptions. Connections are opened per operation and always closed.
type Engine struct {
    dial   routeros.Dialer
    config ConfigStore
    audit  AuditRecorder
    log    *logger.Logger
}

func NewEngine(dial routeros.Dialer, config ConfigStore, audit AuditRecorder, log *logger.Logger) *Engine {
    return &Engine{dial: dial, config: config, audit: audit, log: log}
}

type target struct {
    router   models.Router
    connType models.ConnectionType
    cap      routeros.Capability
    resolver *profile.Resolver
}

func (e *Engine) resolveTarget(sub *models.Subscription) (*target, error) {
    router, err := e.config.Router(sub.RouterID)
    if err != nil {
        return nil, fmt.Errorf("failed to look up router for subscription %s: %w", sub.SubscriptionID, err)
    }

    types, err := e.config.ConnectionTypes()
    if err != nil {
        return nil, fmt.Errorf("failed to load connection types: %w", err)
    }
    resolver := profile.NewResolver(types)

    connType, ok := resolver.Get(sub.ConnectionType)
    if !ok {
        return nil, fmt.Errorf("connection type %s does not exist", sub.ConnectionType)
    }

    cap, err := routeros.Lookup(connType.ServiceName)
    if err != nil {
        return nil, err
    }

    return &target{router: *router, connType: connType, cap: cap, resolver: resolver}, nil
}

// Provision creates the subscription's account on its router. Any failure is
// audited and returned: an activation the user asked for must fail loudly.
func (e *Engine) Provision(sub *models.Subscription) error {
    t, err := e.resolveTarget(sub)
    if err != nil {
        return err
    }

    conn, err := e.dial(t.router)
    if err != nil {
        e.audit.Record(t.router.Name, "add_user_failed", err.Error(), "Failed", "")
        return fmt.Errorf("failed to provision router account: %w", err)
    }
    defer conn.Close()

    params := routeros.AccountParams{
        Name:     sub.Username,
        Password: sub.Password,
        Profile:  t.connType.ProfileName,
    }
    if t.cap.SupportsService {
        params.Service = t.connType.ServiceName
    }

    // Leaf profiles carry explicit limits; inheriting profiles rely on the
    // router-side named profile so the two never conflict.
    if !t.resolver.HasParent(t.connType.Name) {
        limits := t.resolver.BandwidthLimits(t.connType.Name)
        if limits.SpeedRx != "" {
            params.RateLimit = fmt.Sprintf("%s/%s", limits.SpeedRx, limits.SpeedTx)
        }
        if limits.BurstRx != "" {
            params.BurstLimit = fmt.Sprintf("%s/%s", limits.BurstRx, limits.BurstTx)
        }
    }

    if err := conn.CreateAccount(t.cap, params); err != nil {
        e.audit.Record(t.router.Name, "add_user_failed", err.Error(), "Failed", "")
        return fmt.Errorf("failed to provision router account: %w", err)
    }

    e.audit.Record(t.router.Name, "add_user_"+t.connType.ServiceName, params.JSON(), "Success", "")
    return nil
}

// Deprovision removes the subscription's account from its router. A missing
// account is treated as already removed, so repeated calls are idempotent.
func (e *Engine) Deprovision(sub *models.Subscription) error {
    t, err := e.resolveTarget(sub)
    if err != nil {
        return err
    }

    conn, err := e.dial(t.router)
    if err != nil {
        e.audit.Record(t.router.Name, "remove_user_failed", err.Error(), "Failed", "")
        return fmt.Errorf("failed to remove router account: %w", err)
    }
    defer conn.Close()

    account, err := conn.FindAccount(t.cap, sub.Username)
    if err != nil {
        e.audit.Record(t.router.Name, "remove_user_failed", err.Error(), "Failed", "")
        return fmt.Errorf("failed to remove router account: %w", err)
    }
    if account == nil {
        return nil
    }

    if err := conn.RemoveAccount(t.cap, account.ID); err != nil {
        e.audit.Record(t.router.Name, "remove_user_failed", err.Error(), "Failed", "")
        return fmt.Errorf("failed to remove router account: %w", err)
    }

    e.audit.Record(t.router.Name, "remove_user_"+t.connType.ServiceName, sub.Username, "Success", "")
    return nil
}

// CheckStatus reports the router's view of the account. Status checks are
// best-effort: every failure maps to StatusError instead of propagating.
func (e *Engine) CheckStatus(sub *models.Subscription) Status {
    t, err := e.resolveTarget(sub)
    if err != nil {
        e.log.Error("Status check failed", "subscription", sub.SubscriptionID, "error", err)
        return StatusError
    }

    conn, err := e.dial(t.router)
    if err != nil {
        e.recordCheckFailure(t, "check_user_status", sub, err)
        return StatusError
    }
    defer conn.Close()

    account, err := conn.FindAccount(t.cap, sub.Username)
    if err != nil {
        e.recordCheckFailure(t, "check_user_status", sub, err)
        return StatusError
    }
    if account == nil {
        return StatusNotFound
    }
    if account.Disabled {
        return StatusSuspended
    }
    return StatusActive
}

// GetUsage reads byte counters and last-login for the account. It returns
// nil on any failure; callers must treat nil as "skip this cycle".
func (e *Engine) GetUsage(sub *models.Subscription) *Usage {
    t, err := e.resolveTarget(sub)
    if err != nil {
        e.log.Error("Usage fetch failed", "subscription", sub.SubscriptionID, "error", err)
        return nil
    }

    conn, err := e.dial(t.router)
    if err != nil {
        e.recordCheckFailure(t, "get_usage", sub, err)
        return nil
    }
    defer conn.Close()

    account, err := conn.FindAccount(t.cap, sub.Username)
    if err != nil {
        e.recordCheckFailure(t, "get_usage", sub, err)
        return nil
    }
    if account == nil {
        return &Usage{}
    }

    usage := &Usage{
        DataUsedMB: (account.BytesIn + account.BytesOut) / (1024 * 1024),
    }

    sessions, err := conn.ActiveSessions(t.cap, sub.Username)
    if err != nil {
        e.recordCheckFailure(t, "get_usage", sub, err)
        return nil
    }
    if len(sessions) > 0 {
        usage.LastLogin = ParseRouterDate(sessions[0].LastLogged)
    }

    return usage
}

func (e *Engine) recordCheckFailure(t *target, operation string, sub *models.Subscription, err error) {
    params, _ := json.Marshal(map[string]string{
        "username":        sub.Username,
        "connection_type": t.connType.ServiceName,
    })
    e.audit.Record(t.router.Name, operation, string(params), "Failed", err.Error())
    e.log.Error("Router operation failed", "operation", operation, "router", t.router.Name, "error", err)
}

var routerDateLayouts = []string{
    "Jan/02/2006 15:04:05",
    "01/02/2006 15:04:05",
}

// ParseRouterDate parses the two date formats RouterOS emits for last-logged
// timestamps. Unparsable values yield nil rather than an error.
func ParseRouterDate(value string) *time.Time {
    if value == "" {
        return nil
    }
    // RouterOS prints month abbreviations in lower case.
    normalized := value
    if len(value) >= 3 {
        normalized = strings.ToUpper(value[:1]) + strings.ToLower(value[1:3]) + value[3:]
    }
    for _, layout := range routerDateLayouts {
        if t, err := time.Parse(layout, normalized); err == nil {
            return &t
        }
    }
    return nil
}
