package routeros

import (
    "crypto/tls"
    "fmt"
    "net"
    "strconv"
    "time"

    ros "github.com/go-routeros/routeros/v3"

    "github.com/WinAndronuX/mikrotik-integration/internal/models"
)

const (
    connectTimeout = 5 * time.Second
    probeTimeout   = 2 * time.Second

    defaultAPIPort    = 8728
    defaultAPITLSPort = 8729
)

// Account is a router-side credential record in one of the service
// namespaces.
type Account struct {
    ID       string
    Name     string
    Profile  string
    Disabled bool
    BytesIn  float64
    BytesOut float64
}

// Session is an entry from a service's active table.
type Session struct {
    Username   string
    Address    string
    Uptime     string
    LastLogged string
}

// Conn is one open handle to a router. Callers own the handle and must close
// it on every exit path.
type Conn interface {
    FindAccount(cap Capability, username string) (*Account, error)
    CreateAccount(cap Capability, params AccountParams) error
    RemoveAccount(cap Capability, accountID string) error
    ActiveSessions(cap Capability, username string) ([]Session, error)
    Identity() (string, error)
    Close() error
}

// Dialer opens a connection to one router. Injected so the provisioning
// engine can be exercised without hardware.
type Dialer func(router models.Router) (Conn, error)

type conn struct {
    client *ros.Client
}

// Dial opens the RouterOS binary API, logs in and probes /system/resource so
// a half-working transport is caught before any account command runs.
func Dial(router models.Router) (Conn, error) {
    addr := apiAddr(router)

    var client *ros.Client
    var err error
    if router.UseTLS {
        client, err = ros.DialTLSTimeout(addr, router.Username, router.Password,
            &tls.Config{InsecureSkipVerify: true}, connectTimeout)
    } else {
        client, err = ros.DialTimeout(addr, router.Username, router.Password, connectTimeout)
    }
    if err != nil {
        return nil, classify(err)
    }

    if _, err := client.Run("/system/resource/print"); err != nil {
        client.Close()
        return nil, classify(err)
    }

    return &conn{client: client}, nil
}

// Ping is a bare socket-open probe for routers whose API is not provisioned
// for full queries. It only proves something is listening on the API port.
func Ping(router models.Router) bool {
    c, err := net.DialTimeout("tcp", apiAddr(router), probeTimeout)
    if err != nil {
        return false
    }
    c.Close()
    return true
}

func apiAddr(router models.Router) string {
    port := router.Port
    if port == 0 {
        if router.UseTLS {
            port = defaultAPITLSPort
        } else {
            port = defaultAPIPort
        }
    }
    return net.JoinHostPort(router.Host, strconv.Itoa(port))
}

func (c *conn) FindAccount(cap Capability, username string) (*Account, error) {
    reply, err := c.client.Run(cap.Namespace+"/print", "?name="+username)
    if err != nil {
        return nil, classify(err)
    }
    if len(reply.Re) == 0 {
        return nil, nil
    }

    attrs := reply.Re[0].Map
    account := &Account{
        ID:       attrs[".id"],
        Name:     attrs["name"],
        Profile:  attrs["profile"],
        Disabled: attrs["disabled"] == "true",
    }
    account.BytesIn, _ = strconv.ParseFloat(attrs["bytes-in"], 64)
    account.BytesOut, _ = strconv.ParseFloat(attrs["bytes-out"], 64)
    return account, nil
}

func (c *conn) CreateAccount(cap Capability, params AccountParams) error {
    sentence := append([]string{cap.Namespace + "/add"}, params.Words()...)
    if _, err := c.client.Run(sentence...); err != nil {
        return classify(err)
    }
    return nil
}

func (c *conn) RemoveAccount(cap Capability, accountID string) error {
    if _, err := c.client.Run(cap.Namespace+"/remove", "=.id="+accountID); err != nil {
        return classify(err)
    }
    return nil
}

func (c *conn) ActiveSessions(cap Capability, username string) ([]Session, error) {
    reply, err := c.client.Run(cap.ActiveNamespace+"/print", "?"+cap.ActiveQueryKey+"="+username)
    if err != nil {
        return nil, classify(err)
    }

    sessions := make([]Session, 0, len(reply.Re))
    for _, re := range reply.Re {
        sessions = append(sessions, Session{
            Username:   re.Map[cap.ActiveQueryKey],
            Address:    re.Map["address"],
            Uptime:     re.Map["uptime"],
            LastLogged: re.Map["last-logged"],
        })
    }
    return sessions, nil
}

func (c *conn) Identity() (string, error) {
    reply, err := c.client.Run("/system/identity/print")
    if err != nil {
        return "", classify(err)
    }
    if len(reply.Re) == 0 {
        return "", fmt.Errorf("empty identity reply")
    }
    return reply.Re[0].Map["name"], nil
}

func (c *conn) Close() error {
    c.client.Close()
    return nil
}
