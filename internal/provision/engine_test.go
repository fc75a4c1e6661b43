package provision

import (
    "database/sql"
    "errors"
    "fmt"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/WinAndronuX/mikrotik-integration/internal/models"
    "github.com/WinAndronuX/mikrotik-integration/internal/routeros"
    "github.com/WinAndronuX/mikrotik-integration/pkg/logger"
)

type fakeConn struct {
    accounts map[string]*routeros.Account
    sessions map[string][]routeros.Session
    created  []routeros.AccountParams
    failWith error
    nextID   int
}

func newFakeConn() *fakeConn {
    return &fakeConn{
        accounts: map[string]*routeros.Account{},
        sessions: map[string][]routeros.Session{},
    }
}

func (c *fakeConn) FindAccount(cap routeros.Capability, username string) (*routeros.Account, error) {
    if c.failWith != nil {
        return nil, c.failWith
    }
    return c.accounts[username], nil
}

func (c *fakeConn) CreateAccount(cap routeros.Capability, params routeros.AccountParams) error {
    if c.failWith != nil {
        return c.failWith
    }
    c.created = append(c.created, params)
    c.nextID++
    c.accounts[params.Name] = &routeros.Account{
        ID:      fmt.Sprintf("*%d", c.nextID),
        Name:    params.Name,
        Profile: params.Profile,
    }
    return nil
}

func (c *fakeConn) RemoveAccount(cap routeros.Capability, accountID string) error {
    if c.failWith != nil {
        return c.failWith
    }
    for name, acct := range c.accounts {
        if acct.ID == accountID {
            delete(c.accounts, name)
            return nil
        }
    }
    return errors.New("no such item")
}

func (c *fakeConn) ActiveSessions(cap routeros.Capability, username string) ([]routeros.Session, error) {
    if c.failWith != nil {
        return nil, c.failWith
    }
    return c.sessions[username], nil
}

func (c *fakeConn) Identity() (string, error) { return "test-router", nil }
func (c *fakeConn) Close() error              { return nil }

type fakeConfig struct {
    router models.Router
    types  []models.ConnectionType
}

func (f *fakeConfig) Router(id int) (*models.Router, error) {
    r := f.router
    return &r, nil
}

func (f *fakeConfig) ConnectionTypes() ([]models.ConnectionType, error) {
    return f.types, nil
}

type auditEntry struct {
    Router     string
    Operation  string
    Parameters string
    Status     string
    Response   string
}

type fakeAudit struct {
    entries []auditEntry
}

func (f *fakeAudit) Record(router, operation, parameters, status, response string) {
    f.entries = append(f.entries, auditEntry{router, operation, parameters, status, response})
}

func ns(s string) sql.NullString {
    return sql.NullString{String: s, Valid: s != ""}
}

func testConfig() *fakeConfig {
    return &fakeConfig{
        router: models.Router{ID: 1, Name: "branch-router", Host: "10.0.0.1"},
        types: []models.ConnectionType{
            {
                Name:         "pppoe-gold",
                ServiceName:  "pppoe",
                ProfileName:  "gold",
                SpeedLimitRx: ns("2M"),
                SpeedLimitTx: ns("1M"),
                BurstLimitRx: ns("4M"),
                BurstLimitTx: ns("2M"),
            },
            {
                Name:          "pppoe-child",
                ServiceName:   "pppoe",
                ProfileName:   "child",
                ParentProfile: ns("pppoe-gold"),
            },
            {
                Name:        "hotspot-basic",
                ServiceName: "hotspot",
                ProfileName: "basic",
            },
        },
    }
}

func testSub(connType string) *models.Subscription {
    return &models.Subscription{
        SubscriptionID: "SUB-1A2B3C4D",
        ConnectionType: connType,
        RouterID:       1,
        Username:       "john-3c4d",
        Password:       "s3cret",
    }
}

func newTestEngine(conn *fakeConn, dialErr error) (*Engine, *fakeAudit) {
    audit := &fakeAudit{}
    dial := func(router models.Router) (routeros.Conn, error) {
        if dialErr != nil {
            return nil, dialErr
        }
        return conn, nil
    }
    return NewEngine(dial, testConfig(), audit, logger.New()), audit
}

func TestProvisionLeafProfileCarriesLimits(t *testing.T) {
    conn := newFakeConn()
    engine, audit := newTestEngine(conn, nil)

    require.NoError(t, engine.Provision(testSub("pppoe-gold")))

    require.Len(t, conn.created, 1)
    params := conn.created[0]
    assert.Equal(t, "john-3c4d", params.Name)
    assert.Equal(t, "gold", params.Profile)
    assert.Equal(t, "pppoe", params.Service)
    assert.Equal(t, "2M/1M", params.RateLimit)
    assert.Equal(t, "4M/2M", params.BurstLimit)

    require.Len(t, audit.entries, 1)
    assert.Equal(t, "add_user_pppoe", audit.entries[0].Operation)
    assert.Equal(t, "Success", audit.entries[0].Status)
}

func TestProvisionInheritingProfileOmitsLimits(t *testing.T) {
    conn := newFakeConn()
    engine, _ := newTestEngine(conn, nil)

    require.NoError(t, engine.Provision(testSub("pppoe-child")))

    require.Len(t, conn.created, 1)
    assert.Empty(t, conn.created[0].RateLimit)
    assert.Empty(t, conn.created[0].BurstLimit)
    assert.Equal(t, "child", conn.created[0].Profile)
}

func TestProvisionHotspotOmitsServiceParam(t *testing.T) {
    conn := newFakeConn()
    engine, audit := newTestEngine(conn, nil)

    require.NoError(t, engine.Provision(testSub("hotspot-basic")))

    require.Len(t, conn.created, 1)
    assert.Empty(t, conn.created[0].Service)
    assert.Equal(t, "add_user_hotspot", audit.entries[0].Operation)
}

func TestProvisionDialFailureIsAudited(t *testing.T) {
    engine, audit := newTestEngine(nil, errors.New("connection refused"))

    err := engine.Provision(testSub("pppoe-gold"))
    require.Error(t, err)

    require.Len(t, audit.entries, 1)
    assert.Equal(t, "add_user_failed", audit.entries[0].Operation)
    assert.Equal(t, "Failed", audit.entries[0].Status)
}

func TestDeprovisionMissingAccountIsIdempotent(t *testing.T) {
    conn := newFakeConn()
    engine, audit := newTestEngine(conn, nil)

    require.NoError(t, engine.Deprovision(testSub("pppoe-gold")))
    require.NoError(t, engine.Deprovision(testSub("pppoe-gold")))
    assert.Empty(t, audit.entries)
}

func TestProvisionDeprovisionRoundTrip(t *testing.T) {
    conn := newFakeConn()
    engine, audit := newTestEngine(conn, nil)
    sub := testSub("pppoe-gold")

    require.NoError(t, engine.Provision(sub))
    assert.Len(t, conn.accounts, 1)

    require.NoError(t, engine.Deprovision(sub))
    assert.Empty(t, conn.accounts)

    require.Len(t, audit.entries, 2)
    assert.Equal(t, "remove_user_pppoe", audit.entries[1].Operation)
}

func TestCheckStatus(t *testing.T) {
    conn := newFakeConn()
    engine, _ := newTestEngine(conn, nil)
    sub := testSub("pppoe-gold")

    assert.Equal(t, StatusNotFound, engine.CheckStatus(sub))

    conn.accounts[sub.Username] = &routeros.Account{ID: "*1", Name: sub.Username}
    assert.Equal(t, StatusActive, engine.CheckStatus(sub))

    conn.accounts[sub.Username].Disabled = true
    assert.Equal(t, StatusSuspended, engine.CheckStatus(sub))
}

func TestCheckStatusSwallowsConnectionErrors(t *testing.T) {
    engine, audit := newTestEngine(nil, errors.New("i/o timeout"))

    status := engine.CheckStatus(testSub("pppoe-gold"))
    assert.Equal(t, StatusError, status)

    require.Len(t, audit.entries, 1)
    assert.Equal(t, "check_user_status", audit.entries[0].Operation)
    assert.Equal(t, "Failed", audit.entries[0].Status)
}

func TestGetUsageConvertsBytesToMB(t *testing.T) {
    conn := newFakeConn()
    engine, _ := newTestEngine(conn, nil)
    sub := testSub("pppoe-gold")

    conn.accounts[sub.Username] = &routeros.Account{
        ID:       "*1",
        Name:     sub.Username,
        BytesIn:  1048576,
        BytesOut: 1048576,
    }
    conn.sessions[sub.Username] = []routeros.Session{
        {Username: sub.Username, LastLogged: "jan/15/2026 10:30:00"},
    }

    usage := engine.GetUsage(sub)
    require.NotNil(t, usage)
    assert.Equal(t, 2.0, usage.DataUsedMB)
    require.NotNil(t, usage.LastLogin)
    assert.Equal(t, time.Date(2026, time.January, 15, 10, 30, 0, 0, time.UTC), *usage.LastLogin)
}

func TestGetUsageMissingAccountIsZero(t *testing.T) {
    conn := newFakeConn()
    engine, _ := newTestEngine(conn, nil)

    usage := engine.GetUsage(testSub("pppoe-gold"))
    require.NotNil(t, usage)
    assert.Equal(t, 0.0, usage.DataUsedMB)
    assert.Nil(t, usage.LastLogin)
}

func TestGetUsageFailureReturnsNil(t *testing.T) {
    engine, audit := newTestEngine(nil, errors.New("connection refused"))

    assert.Nil(t, engine.GetUsage(testSub("pppoe-gold")))
    require.Len(t, audit.entries, 1)
    assert.Equal(t, "get_usage", audit.entries[0].Operation)
}

func TestParseRouterDate(t *testing.T) {
    tests := []struct {
        name  string
        value string
        want  *time.Time
    }{
        {
            name:  "month abbreviation",
            value: "Jan/15/2026 10:30:00",
            want:  timePtr(time.Date(2026, time.January, 15, 10, 30, 0, 0, time.UTC)),
        },
        {
            name:  "lowercase month",
            value: "dec/01/2025 23:59:59",
            want:  timePtr(time.Date(2025, time.December, 1, 23, 59, 59, 0, time.UTC)),
        },
        {
            name:  "numeric month",
            value: "01/15/2026 10:30:00",
            want:  timePtr(time.Date(2026, time.January, 15, 10, 30, 0, 0, time.UTC)),
        },
        {name: "empty", value: "", want: nil},
        {name: "garbage", value: "not a date", want: nil},
    }

    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            got := ParseRouterDate(tt.value)
            if tt.want == nil {
                assert.Nil(t, got)
            } else {
                require.NotNil(t, got)
                assert.True(t, tt.want.Equal(*got))
            }
        })
    }
}

func timePtr(t time.Time) *time.Time {
    return &t
}
