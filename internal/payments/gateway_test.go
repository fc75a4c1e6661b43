package payments

import (
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestInitiateSendsRequestShape(t *testing.T) {
    var got initiateRequest
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        require.Equal(t, "/api/payments/initiate", r.URL.Path)
        require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
        json.NewEncoder(w).Encode(initiateResponse{Success: true, Message: "STK push sent"})
    }))
    defer srv.Close()

    g := &HTTPGateway{baseURL: srv.URL, client: srv.Client()}
    message, err := g.Initiate("254700000001", 1500, "SUB-1A2B3C4D")
    require.NoError(t, err)

    assert.Equal(t, "STK push sent", message)
    assert.Equal(t, "254700000001", got.PhoneNumber)
    assert.Equal(t, 1500.0, got.Amount)
    assert.Equal(t, "SUB-1A2B3C4D", got.BillRefNumber)
}

func TestInitiateGatewayRejection(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        json.NewEncoder(w).Encode(initiateResponse{Success: false, Message: "invalid phone number"})
    }))
    defer srv.Close()

    g := &HTTPGateway{baseURL: srv.URL, client: srv.Client()}
    _, err := g.Initiate("bad", 1500, "SUB-1A2B3C4D")
    require.Error(t, err)
    assert.Contains(t, err.Error(), "invalid phone number")
}

func TestInitiateGatewayUnreachable(t *testing.T) {
    g := &HTTPGateway{baseURL: "http://127.0.0.1:1", client: http.DefaultClient}
    _, err := g.Initiate("254700000001", 1500, "SUB-1A2B3C4D")
    require.Error(t, err)
    assert.Contains(t, err.Error(), "payment gateway unreachable")
}
