package subscription

import (
    "database/sql"
    "fmt"
    "strings"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/WinAndronuX/mikrotik-integration/internal/models"
    "github.com/WinAndronuX/mikrotik-integration/pkg/logger"
)

type memStore struct {
    subs      map[string]*models.Subscription
    customers map[int]*models.Customer
    plans     map[int]*models.InternetPlan
}

func newMemStore() *memStore {
    return &memStore{
        subs: map[string]*models.Subscription{},
        customers: map[int]*models.Customer{
            1: {ID: 1, Name: "John Doe", PhoneNumber: "254700000001"},
            2: {ID: 2, Name: "Blocked Person", PhoneNumber: "254700000002", Disabled: true},
        },
        plans: map[int]*models.InternetPlan{
            1: {ID: 1, Name: "Gold", ValidityDays: 30, Price: 1500},
            2: {
                ID: 2, Name: "Capped", ValidityDays: 30, Price: 500,
                DataQuotaMB: sql.NullFloat64{Float64: 1000, Valid: true},
            },
        },
    }
}

func (m *memStore) GetBySubscriptionID(id string) (*models.Subscription, error) {
    sub, ok := m.subs[id]
    if !ok {
        return nil, fmt.Errorf("subscription %s not found", id)
    }
    copied := *sub
    return &copied, nil
}

func (m *memStore) Create(sub *models.Subscription) error {
    copied := *sub
    m.subs[sub.SubscriptionID] = &copied
    return nil
}

func (m *memStore) Update(sub *models.Subscription) error {
    copied := *sub
    m.subs[sub.SubscriptionID] = &copied
    return nil
}

func (m *memStore) Customer(id int) (*models.Customer, error) {
    c, ok := m.customers[id]
    if !ok {
        return nil, fmt.Errorf("customer %d not found", id)
    }
    return c, nil
}

func (m *memStore) Plan(id int) (*models.InternetPlan, error) {
    p, ok := m.plans[id]
    if !ok {
        return nil, fmt.Errorf("plan %d not found", id)
    }
    return p, nil
}

type fakeProvisioner struct {
    provisioned   []string
    deprovisioned []string
    failWith      error
}

func (f *fakeProvisioner) Provision(sub *models.Subscription) error {
    if f.failWith != nil {
        return f.failWith
    }
    f.provisioned = append(f.provisioned, sub.SubscriptionID)
    return nil
}

func (f *fakeProvisioner) Deprovision(sub *models.Subscription) error {
    if f.failWith != nil {
        return f.failWith
    }
    f.deprovisioned = append(f.deprovisioned, sub.SubscriptionID)
    return nil
}

type capturedEvent struct {
    SubscriptionID string
    Event          string
    Message        string
    Status         string
}

type fakeNotifier struct {
    events []capturedEvent
}

func (f *fakeNotifier) StatusUpdate(subscriptionID, event, message, status string) error {
    f.events = append(f.events, capturedEvent{subscriptionID, event, message, status})
    return nil
}

type fakeGateway struct {
    phone   string
    amount  float64
    billRef string
}

func (f *fakeGateway) Initiate(phoneNumber string, amount float64, billRef string) (string, error) {
    f.phone = phoneNumber
    f.amount = amount
    f.billRef = billRef
    return "Payment request sent", nil
}

func newTestService() (*Service, *memStore, *fakeProvisioner, *fakeNotifier, *fakeGateway) {
    store := newMemStore()
    engine := &fakeProvisioner{}
    notifier := &fakeNotifier{}
    gateway := &fakeGateway{}
    svc := NewService(store, engine, notifier, gateway, logger.New())
    return svc, store, engine, notifier, gateway
}

func draftSub(customerID int) *models.Subscription {
    return &models.Subscription{
        CustomerID:     customerID,
        ConnectionType: "pppoe-gold",
        PlanID:         1,
        RouterID:       1,
        PaymentMethod:  models.PaymentMethodMpesa,
    }
}

func TestCreateFillsDerivedFields(t *testing.T) {
    svc, _, engine, _, _ := newTestService()

    sub := draftSub(1)
    require.NoError(t, svc.Create(sub))

    assert.Regexp(t, `^SUB-[0-9A-F]{8}$`, sub.SubscriptionID)
    assert.Equal(t, models.StatusDraft, sub.Status)
    assert.Equal(t, models.PaymentPending, sub.PaymentStatus)
    assert.Len(t, sub.Password, 10)

    suffix := strings.ToLower(sub.SubscriptionID[len(sub.SubscriptionID)-4:])
    assert.Equal(t, "johndoe-"+suffix, strings.ToLower(sub.Username))

    expectedExpiry := sub.StartDate.AddDate(0, 0, 30)
    assert.Equal(t, expectedExpiry, sub.ExpiryDate)

    // Creating a draft never touches the router.
    assert.Empty(t, engine.provisioned)
}

func TestCreateTruncatesLongUsernames(t *testing.T) {
    svc, store, _, _, _ := newTestService()
    store.customers[3] = &models.Customer{
        ID:          3,
        Name:        "An Extraordinarily Long Customer Name Indeed",
        PhoneNumber: "254700000003",
    }

    sub := draftSub(3)
    require.NoError(t, svc.Create(sub))
    assert.LessOrEqual(t, len(sub.Username), 32)
}

func TestCreateRejectsDisabledCustomer(t *testing.T) {
    svc, _, _, _, _ := newTestService()

    err := svc.Create(draftSub(2))
    require.Error(t, err)
    var verr *ValidationError
    assert.ErrorAs(t, err, &verr)
}

func TestActivateDraft(t *testing.T) {
    svc, store, engine, notifier, _ := newTestService()
    sub := draftSub(1)
    require.NoError(t, svc.Create(sub))

    require.NoError(t, svc.Activate(sub.SubscriptionID))

    assert.Equal(t, []string{sub.SubscriptionID}, engine.provisioned)
    stored, _ := store.GetBySubscriptionID(sub.SubscriptionID)
    assert.Equal(t, models.StatusActive, stored.Status)

    require.Len(t, notifier.events, 1)
    assert.Equal(t, "status_changed", notifier.events[0].Event)
    assert.Equal(t, models.StatusActive, notifier.events[0].Status)
}

func TestActivateRejectsNonDraft(t *testing.T) {
    svc, store, engine, _, _ := newTestService()
    sub := draftSub(1)
    require.NoError(t, svc.Create(sub))
    require.NoError(t, svc.Activate(sub.SubscriptionID))
    engine.provisioned = nil

    err := svc.Activate(sub.SubscriptionID)
    var verr *ValidationError
    require.ErrorAs(t, err, &verr)
    assert.Empty(t, engine.provisioned)

    stored, _ := store.GetBySubscriptionID(sub.SubscriptionID)
    assert.Equal(t, models.StatusActive, stored.Status)
}

func TestSuspendDeprovisions(t *testing.T) {
    svc, store, engine, notifier, _ := newTestService()
    sub := draftSub(1)
    require.NoError(t, svc.Create(sub))
    require.NoError(t, svc.Activate(sub.SubscriptionID))

    require.NoError(t, svc.Suspend(sub.SubscriptionID))

    assert.Equal(t, []string{sub.SubscriptionID}, engine.deprovisioned)
    stored, _ := store.GetBySubscriptionID(sub.SubscriptionID)
    assert.Equal(t, models.StatusSuspended, stored.Status)
    assert.Equal(t, "status_changed", notifier.events[len(notifier.events)-1].Event)
}

func TestSuspendRejectsNonActive(t *testing.T) {
    svc, _, engine, _, _ := newTestService()
    sub := draftSub(1)
    require.NoError(t, svc.Create(sub))

    err := svc.Suspend(sub.SubscriptionID)
    var verr *ValidationError
    require.ErrorAs(t, err, &verr)
    assert.Empty(t, engine.deprovisioned)
}

func TestReactivateSuspended(t *testing.T) {
    svc, store, engine, _, _ := newTestService()
    sub := draftSub(1)
    require.NoError(t, svc.Create(sub))
    require.NoError(t, svc.Activate(sub.SubscriptionID))
    require.NoError(t, svc.Suspend(sub.SubscriptionID))
    engine.provisioned = nil

    require.NoError(t, svc.Reactivate(sub.SubscriptionID))

    assert.Equal(t, []string{sub.SubscriptionID}, engine.provisioned)
    stored, _ := store.GetBySubscriptionID(sub.SubscriptionID)
    assert.Equal(t, models.StatusActive, stored.Status)
}

func TestReactivateRejectsExpiredWithoutProvisioning(t *testing.T) {
    svc, store, engine, _, _ := newTestService()
    sub := draftSub(1)
    require.NoError(t, svc.Create(sub))
    require.NoError(t, svc.Activate(sub.SubscriptionID))
    require.NoError(t, svc.Suspend(sub.SubscriptionID))

    // Push the validity window into the past.
    stored := store.subs[sub.SubscriptionID]
    stored.ExpiryDate = time.Now().AddDate(0, 0, -1)
    engine.provisioned = nil

    err := svc.Reactivate(sub.SubscriptionID)
    var verr *ValidationError
    require.ErrorAs(t, err, &verr)

    // The validity gate must fire before any router call.
    assert.Empty(t, engine.provisioned)
    assert.Equal(t, models.StatusSuspended, store.subs[sub.SubscriptionID].Status)
}

func TestReactivateRejectsOverQuota(t *testing.T) {
    svc, store, engine, _, _ := newTestService()
    sub := draftSub(1)
    sub.PlanID = 2
    require.NoError(t, svc.Create(sub))
    require.NoError(t, svc.Activate(sub.SubscriptionID))
    require.NoError(t, svc.Suspend(sub.SubscriptionID))

    stored := store.subs[sub.SubscriptionID]
    stored.DataUsedMB = 1500
    engine.provisioned = nil

    err := svc.Reactivate(sub.SubscriptionID)
    var verr *ValidationError
    require.ErrorAs(t, err, &verr)
    assert.Empty(t, engine.provisioned)
}

func TestCancelTransitions(t *testing.T) {
    svc, store, engine, _, _ := newTestService()
    sub := draftSub(1)
    require.NoError(t, svc.Create(sub))

    // Draft cannot be cancelled.
    err := svc.Cancel(sub.SubscriptionID)
    var verr *ValidationError
    require.ErrorAs(t, err, &verr)

    require.NoError(t, svc.Activate(sub.SubscriptionID))
    require.NoError(t, svc.Cancel(sub.SubscriptionID))

    assert.Equal(t, []string{sub.SubscriptionID}, engine.deprovisioned)
    assert.Equal(t, models.StatusExpired, store.subs[sub.SubscriptionID].Status)
}

func TestExtendValidity(t *testing.T) {
    svc, store, engine, notifier, _ := newTestService()
    sub := draftSub(1)
    require.NoError(t, svc.Create(sub))

    // Drafts cannot be extended.
    err := svc.ExtendValidity(sub.SubscriptionID, 7)
    var verr *ValidationError
    require.ErrorAs(t, err, &verr)

    require.NoError(t, svc.Activate(sub.SubscriptionID))
    before := store.subs[sub.SubscriptionID].ExpiryDate

    require.NoError(t, svc.ExtendValidity(sub.SubscriptionID, 7))
    assert.Equal(t, before.AddDate(0, 0, 7), store.subs[sub.SubscriptionID].ExpiryDate)
    assert.Equal(t, "validity_extended", notifier.events[len(notifier.events)-1].Event)

    // Extending an expired subscription re-provisions it.
    require.NoError(t, svc.Cancel(sub.SubscriptionID))
    engine.provisioned = nil
    require.NoError(t, svc.ExtendValidity(sub.SubscriptionID, 30))
    assert.Equal(t, []string{sub.SubscriptionID}, engine.provisioned)
    assert.Equal(t, models.StatusActive, store.subs[sub.SubscriptionID].Status)
}

func TestExtendValidityRejectsNonPositiveDays(t *testing.T) {
    svc, _, _, _, _ := newTestService()
    err := svc.ExtendValidity("SUB-DEADBEEF", 0)
    var verr *ValidationError
    require.ErrorAs(t, err, &verr)
}

func TestSettlePaymentActivatesDraft(t *testing.T) {
    svc, store, engine, notifier, _ := newTestService()
    sub := draftSub(1)
    require.NoError(t, svc.Create(sub))

    require.NoError(t, svc.SettlePayment(sub.SubscriptionID, "MPESA-REF-1", models.PaymentMethodMpesa))

    stored := store.subs[sub.SubscriptionID]
    assert.Equal(t, models.StatusActive, stored.Status)
    assert.Equal(t, models.PaymentCompleted, stored.PaymentStatus)
    assert.Equal(t, "MPESA-REF-1", stored.PaymentReference.String)
    assert.True(t, stored.PaymentDate.Valid)
    assert.Equal(t, []string{sub.SubscriptionID}, engine.provisioned)

    require.NotEmpty(t, notifier.events)
    assert.Equal(t, "active", notifier.events[len(notifier.events)-1].Event)
}

func TestSettlePaymentReactivatesSuspended(t *testing.T) {
    svc, store, engine, notifier, _ := newTestService()
    sub := draftSub(1)
    require.NoError(t, svc.Create(sub))
    require.NoError(t, svc.Activate(sub.SubscriptionID))
    require.NoError(t, svc.Suspend(sub.SubscriptionID))
    engine.provisioned = nil

    require.NoError(t, svc.SettlePayment(sub.SubscriptionID, "INV-42", models.PaymentMethodInvoice))

    assert.Equal(t, models.StatusActive, store.subs[sub.SubscriptionID].Status)
    assert.Equal(t, []string{sub.SubscriptionID}, engine.provisioned)
    assert.Equal(t, "reactivated", notifier.events[len(notifier.events)-1].Event)
}

func TestSettlePaymentRejectsUnknownType(t *testing.T) {
    svc, _, _, _, _ := newTestService()
    err := svc.SettlePayment("SUB-DEADBEEF", "REF", "Bitcoin")
    var verr *ValidationError
    require.ErrorAs(t, err, &verr)
}

func TestRequestPayment(t *testing.T) {
    svc, _, _, _, gateway := newTestService()
    sub := draftSub(1)
    require.NoError(t, svc.Create(sub))

    message, err := svc.RequestPayment(sub.SubscriptionID)
    require.NoError(t, err)
    assert.Equal(t, "Payment request sent", message)
    assert.Equal(t, "254700000001", gateway.phone)
    assert.Equal(t, 1500.0, gateway.amount)
    assert.Equal(t, sub.SubscriptionID, gateway.billRef)
}

func TestRequestPaymentRejectsNonMpesa(t *testing.T) {
    svc, _, _, _, _ := newTestService()
    sub := draftSub(1)
    sub.PaymentMethod = models.PaymentMethodInvoice
    require.NoError(t, svc.Create(sub))

    _, err := svc.RequestPayment(sub.SubscriptionID)
    var verr *ValidationError
    require.ErrorAs(t, err, &verr)
}

func TestRequestPaymentRejectsCompleted(t *testing.T) {
    svc, store, _, _, _ := newTestService()
    sub := draftSub(1)
    require.NoError(t, svc.Create(sub))
    store.subs[sub.SubscriptionID].PaymentStatus = models.PaymentCompleted

    _, err := svc.RequestPayment(sub.SubscriptionID)
    var verr *ValidationError
    require.ErrorAs(t, err, &verr)
}
