// Package events publishes committed ledger events to interested consumers.
package events

import (
	"context" // Cancellation for publishing
	"sync"    // Guarding the recorder
	"time"    // Event timestamps

	"cbms_backend/internal/metrics" // Event counters

	"github.com/sirupsen/logrus" // Logging library
)

// Event names, also used as AMQP routing keys
const (
	FundRequestApproved     = "fund_request.approved"
	FundRequestDeclined     = "fund_request.declined"
	FundRequestDisbursed    = "fund_request.disbursed"
	WalletApproved          = "wallet_transaction.approved"
	WalletRejected          = "wallet_transaction.rejected"
	PaymentRecorded         = "payment.recorded"
	AnnouncementBroadcasted = "notification.broadcast"
)

// Event is a small message describing a committed state change
type Event struct {
	Name      string         `json:"name"`      // One of the event names above
	ObjectID  uint           `json:"object_id"` // ID of the changed record
	ActorID   uint           `json:"actor_id"`  // User who caused the change
	Data      map[string]any `json:"data"`      // Event specific details
	Timestamp time.Time      `json:"timestamp"` // When the change committed
}

// New builds an event stamped with the current time
func New(name string, objectID, actorID uint, data map[string]any) Event {
	return Event{Name: name, ObjectID: objectID, ActorID: actorID, Data: data, Timestamp: time.Now().UTC()}
}

// Publisher delivers events after the originating transaction has committed
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Emit counts the event and publishes it, logging instead of failing the caller
func Emit(ctx context.Context, p Publisher, evt Event) {
	metrics.LedgerEvents.WithLabelValues(evt.Name).Inc()
	if p == nil {
		return
	}
	if err := p.Publish(ctx, evt); err != nil {
		logrus.WithFields(logrus.Fields{
			"event":     evt.Name,     // Event name
			"object_id": evt.ObjectID, // Changed record
			"error":     err.Error(),  // Error message
		}).Warn("Failed to publish event")
	}
}

// Nop discards every event
type Nop struct{}

// Publish implements Publisher
func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher
func (r *Recorder) Publish(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Names returns the names of the recorded events in order
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.Name
	}
	return names
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
