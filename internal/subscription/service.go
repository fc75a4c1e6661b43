package subscription

import (
    "crypto/rand"
    "encoding/hex"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/WinAndronuX/mikrotik-integration/internal/models"
    "github.com/WinAndronuX/mikrotik-integration/pkg/logger"
)

// ValidationError marks an illegal transition or invalid input. The HTTP
// surface maps it to a 400 instead of a 500.
type ValidationError struct {
    Message string
}

func (e *ValidationError) Error() string {
    return e.Message
}

func validationErrorf(format string, args ...interface{}) error {
    return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Store is the persistence the state machine needs.
type Store interface {
    GetBySubscriptionID(id string) (*models.Subscription, error)
    Create(sub *models.Subscription) error
    Update(sub *models.Subscription) error
    Customer(id int) (*models.Customer, error)
    Plan(id int) (*models.InternetPlan, error)
}

// Provisioner is the router-facing side of a transition.
type Provisioner interface {
    Provision(sub *models.Subscription) error
    Deprovision(sub *models.Subscription) error
}

// Notifier delivers best-effort status-change events.
type Notifier interface {
    StatusUpdate(subscriptionID, event, message, status string) error
}

// PaymentGateway is the billing collaborator boundary: it initiates an
// external payment flow billed under the subscription id.
type PaymentGateway interface {
    Initiate(phoneNumber string, amount float64, billRef string) (string, error)
}

// Service governs the subscription lifecycle and drives the provisioning
// engine on every legal transition.
type Service struct {
    store    Store
    engine   Provisioner
    notifier Notifier
    gateway  PaymentGateway
    log      *logger.Logger
}

func NewService(store Store, engine Provisioner, notifier Notifier, gateway PaymentGateway, log *logger.Logger) *Service {
    return &Service{store: store, engine: engine, notifier: notifier, gateway: gateway, log: log}
}

// MikroTik account names are capped at 32 characters.
const usernameMaxLen = 32

// Get returns one subscription by its public id.
func (s *Service) Get(id string) (*models.Subscription, error) {
    return s.store.GetBySubscriptionID(id)
}

// PrepareNew validates a draft subscription and fills in derived fields:
// id, credentials, dates.
func (s *Service) PrepareNew(sub *models.Subscription) error {
    customer, err := s.store.Customer(sub.CustomerID)
    if err != nil {
        return fmt.Errorf("failed to look up customer: %w", err)
    }
    if customer.Disabled {
        return validationErrorf("customer %s is disabled", customer.Name)
    }
    sub.CustomerName = customer.Name

    if sub.SubscriptionID == "" {
        id := uuid.New()
        sub.SubscriptionID = "SUB-" + strings.ToUpper(hex.EncodeToString(id[:4]))
    }

    if sub.StartDate.IsZero() {
        sub.StartDate = time.Now()
    }
    if sub.ExpiryDate.IsZero() {
        plan, err := s.store.Plan(sub.PlanID)
        if err != nil {
            return fmt.Errorf("failed to look up plan: %w", err)
        }
        sub.ExpiryDate = sub.StartDate.AddDate(0, 0, plan.ValidityDays)
    }

    if sub.Username == "" {
        base := strings.ToLower(strings.ReplaceAll(customer.Name, " ", ""))
        username := fmt.Sprintf("%s-%s", base, sub.SubscriptionID[len(sub.SubscriptionID)-4:])
        if len(username) > usernameMaxLen {
            username = username[:usernameMaxLen]
        }
        sub.Username = username
    }
    if sub.Password == "" {
        sub.Password = randomString(10)
    }

    if sub.Status == "" {
        sub.Status = models.StatusDraft
    }
    if sub.PaymentStatus == "" {
        sub.PaymentStatus = models.PaymentPending
    }
    return nil
}

// Create persists a new draft subscription.
func (s *Service) Create(sub *models.Subscription) error {
    if err := s.PrepareNew(sub); err != nil {
        return err
    }
    return s.store.Create(sub)
}

// Activate takes a draft subscription live and provisions its router
// account. Provisioning failure propagates: the user asked for this.
func (s *Service) Activate(id string) error {
    sub, err := s.store.GetBySubscriptionID(id)
    if err != nil {
        return err
    }
    if sub.Status != models.StatusDraft {
        return validationErrorf("can only activate draft subscriptions")
    }

    if err := s.engine.Provision(sub); err != nil {
        return err
    }

    sub.Status = models.StatusActive
    if err := s.store.Update(sub); err != nil {
        return err
    }
    s.broadcast(sub, "status_changed", "Status changed to Active")
    return nil
}

// Suspend removes the router account and parks the subscription.
func (s *Service) Suspend(id string) error {
    sub, err := s.store.GetBySubscriptionID(id)
    if err != nil {
        return err
    }
    return s.suspend(sub)
}

func (s *Service) suspend(sub *models.Subscription) error {
    if sub.Status != models.StatusActive {
        return validationErrorf("can only suspend active subscriptions")
    }

    if err := s.engine.Deprovision(sub); err != nil {
        return err
    }

    sub.Status = models.StatusSuspended
    if err := s.store.Update(sub); err != nil {
        return err
    }
    s.broadcast(sub, "status_changed", "Status changed to Suspended")
    return nil
}

// Reactivate re-provisions a suspended subscription, gated on it still being
// inside its validity window and under quota.
func (s *Service) Reactivate(id string) error {
    sub, err := s.store.GetBySubscriptionID(id)
    if err != nil {
        return err
    }
    return s.reactivate(sub)
}

func (s *Service) reactivate(sub *models.Subscription) error {
    if sub.Status != models.StatusSuspended {
        return validationErrorf("can only reactivate suspended subscriptions")
    }

    valid, err := s.IsValid(sub)
    if err != nil {
        return err
    }
    if !valid {
        return validationErrorf("subscription has expired or exceeded quota")
    }

    if err := s.engine.Provision(sub); err != nil {
        return err
    }

    sub.Status = models.StatusActive
    if err := s.store.Update(sub); err != nil {
        return err
    }
    s.broadcast(sub, "status_changed", "Status changed to Active")
    return nil
}

// Cancel deprovisions and moves the subscription to its terminal state.
func (s *Service) Cancel(id string) error {
    sub, err := s.store.GetBySubscriptionID(id)
    if err != nil {
        return err
    }
    if sub.Status != models.StatusActive && sub.Status != models.StatusSuspended {
        return validationErrorf("can only cancel active or suspended subscriptions")
    }

    if err := s.engine.Deprovision(sub); err != nil {
        return err
    }

    sub.Status = models.StatusExpired
    if err := s.store.Update(sub); err != nil {
        return err
    }
    s.broadcast(sub, "status_changed", "Status changed to Expired")
    return nil
}

// ExtendValidity pushes the expiry date out. An expired subscription gets
// re-provisioned and comes back active.
func (s *Service) ExtendValidity(id string, days int) error {
    if days <= 0 {
        return validationErrorf("extension days must be greater than 0")
    }
    sub, err := s.store.GetBySubscriptionID(id)
    if err != nil {
        return err
    }
    if sub.Status == models.StatusDraft {
        return validationErrorf("can only extend activated subscriptions")
    }

    sub.ExpiryDate = sub.ExpiryDate.AddDate(0, 0, days)

    if sub.Status == models.StatusExpired {
        if err := s.engine.Provision(sub); err != nil {
            return err
        }
        sub.Status = models.StatusActive
    }

    if err := s.store.Update(sub); err != nil {
        return err
    }
    s.broadcast(sub, "validity_extended", fmt.Sprintf("Validity extended by %d days", days))
    return nil
}

// SettlePayment records a completed payment and drives the implicit
// activation it triggers: Draft goes live, Suspended reactivates.
func (s *Service) SettlePayment(id, paymentReference, paymentType string) error {
    if paymentType != models.PaymentMethodMpesa && paymentType != models.PaymentMethodInvoice {
        return validationErrorf("unknown payment type: %s", paymentType)
    }

    sub, err := s.store.GetBySubscriptionID(id)
    if err != nil {
        return err
    }

    sub.PaymentStatus = models.PaymentCompleted
    sub.PaymentDate.Time = time.Now()
    sub.PaymentDate.Valid = true
    sub.PaymentReference.String = paymentReference
    sub.PaymentReference.Valid = true

    switch sub.Status {
    case models.StatusDraft:
        if err := s.engine.Provision(sub); err != nil {
            return err
        }
        sub.Status = models.StatusActive
        if err := s.store.Update(sub); err != nil {
            return err
        }
        s.broadcast(sub, "active", fmt.Sprintf("Service activated after %s payment", paymentType))
    case models.StatusSuspended:
        if err := s.reactivate(sub); err != nil {
            return err
        }
        s.broadcast(sub, "reactivated", fmt.Sprintf("Service reactivated after %s payment", paymentType))
    default:
        if err := s.store.Update(sub); err != nil {
            return err
        }
    }
    return nil
}

// RequestPayment asks the billing collaborator to start an external payment
// flow billed under the subscription id.
func (s *Service) RequestPayment(id string) (string, error) {
    sub, err := s.store.GetBySubscriptionID(id)
    if err != nil {
        return "", err
    }
    if sub.PaymentMethod != models.PaymentMethodMpesa {
        return "", validationErrorf("payment requests are only supported for M-Pesa subscriptions")
    }
    if sub.PaymentStatus == models.PaymentCompleted {
        return "", validationErrorf("payment already completed")
    }

    customer, err := s.store.Customer(sub.CustomerID)
    if err != nil {
        return "", fmt.Errorf("failed to look up customer: %w", err)
    }
    plan, err := s.store.Plan(sub.PlanID)
    if err != nil {
        return "", fmt.Errorf("failed to look up plan: %w", err)
    }

    message, err := s.gateway.Initiate(customer.PhoneNumber, plan.Price, sub.SubscriptionID)
    if err != nil {
        s.log.Error("Payment request failed", "subscription", sub.SubscriptionID, "error", err)
        return "", err
    }
    return message, nil
}

// IsValid reports whether the subscription is inside its validity window and
// under its plan's data quota.
func (s *Service) IsValid(sub *models.Subscription) (bool, error) {
    if sub.Status == models.StatusExpired {
        return false, nil
    }
    if sub.ExpiryDate.Before(startOfToday()) {
        return false, nil
    }

    plan, err := s.store.Plan(sub.PlanID)
    if err != nil {
        return false, fmt.Errorf("failed to look up plan: %w", err)
    }
    if plan.DataQuotaMB.Valid && sub.DataUsedMB >= plan.DataQuotaMB.Float64 {
        return false, nil
    }
    return true, nil
}

func (s *Service) broadcast(sub *models.Subscription, event, message string) {
    if s.notifier == nil {
        return
    }
    if err := s.notifier.StatusUpdate(sub.SubscriptionID, event, message, sub.Status); err != nil {
        s.log.Error("Failed to broadcast status update", "subscription", sub.SubscriptionID, "event", event, "error", err)
    }
}

func startOfToday() time.Time {
    now := time.Now()
    return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func randomString(length int) string {
    buf := make([]byte, (length+1)/2)
    rand.Read(buf)
    return hex.EncodeToString(buf)[:length]
}
