package routeros

import (
    "encoding/json"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestLookupNamespaces(t *testing.T) {
    tests := []struct {
        service         string
        namespace       string
        activeNamespace string
        activeQueryKey  string
        supportsService bool
    }{
        {"hotspot", "/ip/hotspot/user", "/ip/hotspot/active", "user", false},
        {"pppoe", "/ppp/secret", "/ppp/active", "name", true},
        {"l2tp", "/ppp/secret", "/ppp/active", "name", true},
        {"pptp", "/ppp/secret", "/ppp/active", "name", true},
        {"openvpn", "/interface/ovpn-server/user", "/interface/ovpn-server/active", "name", false},
    }

    for _, tt := range tests {
        t.Run(tt.service, func(t *testing.T) {
            cap, err := Lookup(tt.service)
            require.NoError(t, err)
            assert.Equal(t, tt.namespace, cap.Namespace)
            assert.Equal(t, tt.activeNamespace, cap.ActiveNamespace)
            assert.Equal(t, tt.activeQueryKey, cap.ActiveQueryKey)
            assert.Equal(t, tt.supportsService, cap.SupportsService)
        })
    }
}

func TestLookupUnknownService(t *testing.T) {
    _, err := Lookup("wireguard")
    require.Error(t, err)

    var cfgErr *ConfigError
    require.ErrorAs(t, err, &cfgErr)
    assert.Contains(t, cfgErr.Message, "wireguard")
}

func TestAccountParamsWords(t *testing.T) {
    full := AccountParams{
        Name:       "john-1A2B",
        Password:   "s3cret",
        Profile:    "gold",
        Service:    "pppoe",
        RateLimit:  "2M/1M",
        BurstLimit: "4M/2M",
    }
    assert.Equal(t, []string{
        "=name=john-1A2B",
        "=password=s3cret",
        "=profile=gold",
        "=service=pppoe",
        "=rate-limit=2M/1M",
        "=burst-limit=4M/2M",
    }, full.Words())

    // Optional fields are omitted, never sent empty.
    minimal := AccountParams{Name: "n", Password: "p", Profile: "pr"}
    assert.Equal(t, []string{"=name=n", "=password=p", "=profile=pr"}, minimal.Words())
}

func TestAccountParamsJSON(t *testing.T) {
    p := AccountParams{Name: "n", Password: "p", Profile: "pr", RateLimit: "2M/1M"}

    var decoded map[string]string
    require.NoError(t, json.Unmarshal([]byte(p.JSON()), &decoded))
    assert.Equal(t, "n", decoded["name"])
    assert.Equal(t, "2M/1M", decoded["rate-limit"])
    _, hasService := decoded["service"]
    assert.False(t, hasService)
}
