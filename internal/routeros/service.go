package routeros

import (
    "encoding/json"
    "fmt"
)

// Capability describes how one access service maps onto the RouterOS command
// tree. The three PPP protocols share /ppp/secret because RouterOS keeps a
// single secret store for all of them.
type Capability struct {
    Service         string
    Namespace       string
    ActiveNamespace string
    // ActiveQueryKey is the attribute the active-session table is keyed by.
    // Hotspot sessions are keyed by "user", everything else by "name".
    ActiveQueryKey  string
    SupportsService bool
}

var capabilities = map[string]Capability{
    "hotspot": {
        Service:         "hotspot",
        Namespace:       "/ip/hotspot/user",
        ActiveNamespace: "/ip/hotspot/active",
        ActiveQueryKey:  "user",
    },
    "pppoe": {
        Service:         "pppoe",
        Namespace:       "/ppp/secret",
        ActiveNamespace: "/ppp/active",
        ActiveQueryKey:  "name",
        SupportsService: true,
    },
    "l2tp": {
        Service:         "l2tp",
        Namespace:       "/ppp/secret",
        ActiveNamespace: "/ppp/active",
        ActiveQueryKey:  "name",
        SupportsService: true,
    },
    "pptp": {
        Service:         "pptp",
        Namespace:       "/ppp/secret",
        ActiveNamespace: "/ppp/active",
        ActiveQueryKey:  "name",
        SupportsService: true,
    },
    "openvpn": {
        Service:         "openvpn",
        Namespace:       "/interface/ovpn-server/user",
        ActiveNamespace: "/interface/ovpn-server/active",
        ActiveQueryKey:  "name",
    },
}

// Lookup resolves a service name to its command namespace. Unknown services
// are a configuration error and must be rejected before any network call.
func Lookup(serviceName string) (Capability, error) {
    cap, ok := capabilities[serviceName]
    if !ok {
        return Capability{}, &ConfigError{Message: fmt.Sprintf("unsupported connection type: %s", serviceName)}
    }
    return cap, nil
}

// AccountParams is the exact parameter shape RouterOS expects for an account
// add. Optional fields are omitted from the wire sentence when empty.
type AccountParams struct {
    Name       string `json:"name"`
    Password   string `json:"password"`
    Profile    string `json:"profile"`
    Service    string `json:"service,omitempty"`
    RateLimit  string `json:"rate-limit,omitempty"`
    BurstLimit string `json:"burst-limit,omitempty"`
}

// Words renders the params as API attribute words.
func (p AccountParams) Words() []string {
    words := []string{
        "=name=" + p.Name,
        "=password=" + p.Password,
        "=profile=" + p.Profile,
    }
    if p.Service != "" {
        words = append(words, "=service="+p.Service)
    }
    if p.RateLimit != "" {
        words = append(words, "=rate-limit="+p.RateLimit)
    }
    if p.BurstLimit != "" {
        words = append(words, "=burst-limit="+p.BurstLimit)
    }
    return words
}

// JSON serializes the params for audit logging.
func (p AccountParams) JSON() string {
    out, _ := json.Marshal(p)
    return string(out)
}
