package broadcast

import (
    "encoding/json"
    "errors"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

type capturingPublisher struct {
    channel string
    payload []byte
    err     error
}

func (p *capturingPublisher) Publish(channel string, payload []byte) error {
    p.channel = channel
    p.payload = payload
    return p.err
}

func TestStatusUpdatePayload(t *testing.T) {
    pub := &capturingPublisher{}
    b := New(pub)

    require.NoError(t, b.StatusUpdate("SUB-1A2B3C4D", "quota_exceeded", "Data quota exceeded", "Suspended"))
    assert.Equal(t, Channel, pub.channel)

    var event Event
    require.NoError(t, json.Unmarshal(pub.payload, &event))
    assert.Equal(t, "quota_exceeded", event.Event)
    assert.Equal(t, "Data quota exceeded", event.Message)
    assert.Equal(t, "SUB-1A2B3C4D", event.SubscriptionID)
    assert.Equal(t, "Suspended", event.Status)
    assert.NotEmpty(t, event.Timestamp)
}

func TestStatusUpdateReturnsPublishError(t *testing.T) {
    pub := &capturingPublisher{err: errors.New("redis down")}
    b := New(pub)

    err := b.StatusUpdate("SUB-1A2B3C4D", "expired", "Subscription expired", "Suspended")
    assert.Error(t, err)
}

func TestStatusUpdateNilPublisher(t *testing.T) {
    b := New(nil)
    assert.NoError(t, b.StatusUpdate("SUB-1A2B3C4D", "active", "Service activated", "Active"))
}
