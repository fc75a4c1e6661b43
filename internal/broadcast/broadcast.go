package broadcast

import (
    "encoding/json"
    "time"
)

const Channel = "subscription:events"

// Event is the fire-and-forget payload emitted on every subscription status
// change. Delivery is not guaranteed and is never retried.
type Event struct {
    Event          string `json:"event"`
    Message        string `json:"message"`
    SubscriptionID string `json:"subscription_id"`
    Status         string `json:"status"`
    Timestamp      string `json:"timestamp"`
}

// Publisher is satisfied by the Redis client.
type Publisher interface {
    Publish(channel string, payload []byte) error
}

type Broadcaster struct {
    pub Publisher
}

func New(pub Publisher) *Broadcaster {
    return &Broadcaster{pub: pub}
}

// StatusUpdate publishes one event. It returns the publish error so callers
// can decide to log and discard it; a broadcast failure must never fail the
// operation that triggered it.
func (b *Broadcaster) StatusUpdate(subscriptionID, event, message, status string) error {
    if b.pub == nil {
        return nil
    }
    payload, err := json.Marshal(Event{
        Event:          event,
        Message:        message,
        SubscriptionID: subscriptionID,
        Status:         status,
        Timestamp:      time.Now().Format(time.RFC3339),
    })
    if err != nil {
        return err
    }
    return b.pub.Publish(Channel, payload)
}
