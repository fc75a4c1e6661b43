package payments

import (
    "bytes"
    "encoding/json"
    "fmt"
    "net/http"
    "os"
    "time"
)

// HTTPGateway asks the external billing collaborator to start an STK-push
// payment flow. The collaborator later reports settlement back through the
// payment-settled webhook; this client never polls for the result.
type HTTPGateway struct {
    baseURL string
    client  *http.Client
}

func NewHTTPGateway() *HTTPGateway {
    baseURL := os.Getenv("PAYMENT_GATEWAY_URL")
    if baseURL == "" {
        baseURL = "http://localhost:9090"
    }
    return &HTTPGateway{
        baseURL: baseURL,
        client:  &http.Client{Timeout: 10 * time.Second},
    }
}

type initiateRequest struct {
    PhoneNumber   string  `json:"phone_number"`
    Amount        float64 `json:"amount"`
    BillRefNumber string  `json:"bill_ref_number"`
}

type initiateResponse struct {
    Success bool   `json:"success"`
    Message string `json:"message"`
}

func (g *HTTPGateway) Initiate(phoneNumber string, amount float64, billRef string) (string, error) {
    body, err := json.Marshal(initiateRequest{
        PhoneNumber:   phoneNumber,
        Amount:        amount,
        BillRefNumber: billRef,
    })
    if err != nil {
        return "", err
    }

    resp, err := g.client.Post(g.baseURL+"/api/payments/initiate", "application/json", bytes.NewReader(body))
    if err != nil {
        return "", fmt.Errorf("payment gateway unreachable: %w", err)
    }
    defer resp.Body.Close()

    var result initiateResponse
    if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
        return "", fmt.Errorf("invalid payment gateway response: %w", err)
    }
    if !result.Success {
        return "", fmt.Errorf("payment gateway rejected request: %s", result.Message)
    }
    if result.Message == "" {
        result.Message = "Payment initiated successfully"
    }
    return result.Message, nil
}
