// Package ledger implements the state transitions of the fund pool: payment
// recording, the fund request lifecycle, wallet approvals and user management.
// Every mutation runs in one database transaction together with the
// notification it produces; events are published after commit.
package ledger

import (
	"context" // Request scoped cancellation
	"errors"  // Error matching
	"strings" // Input trimming
	"time"    // Clock

	"cbms_backend/internal/domain" // Importing domain models
	"cbms_backend/internal/events" // Post-commit events

	"github.com/shopspring/decimal" // Fixed-precision amounts
	"gorm.io/datatypes"             // Time of day
	"gorm.io/gorm"                  // GORM ORM library
	"gorm.io/gorm/clause"           // Row locking
)

// maxAmount is the largest value a decimal(12,2) column holds
var maxAmount = decimal.New(1, 10)

// Ledger owns the database handle and the event publisher
type Ledger struct {
	db        *gorm.DB
	events    events.Publisher
	batchSize int
	now       func() time.Time
}

// Option customizes a Ledger
type Option func(*Ledger)

// WithBatchSize sets the broadcast insert batch size
func WithBatchSize(n int) Option { return func(l *Ledger) { l.batchSize = n } }

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// New creates a Ledger; a nil publisher discards events
func New(db *gorm.DB, pub events.Publisher, opts ...Option) *Ledger {
	if pub == nil {
		pub = events.Nop{}
	}
	l := &Ledger{db: db, events: pub, batchSize: 500, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DB returns the underlying handle for read-only queries
func (l *Ledger) DB() *gorm.DB { return l.db }

// emit publishes an event after commit
func (l *Ledger) emit(ctx context.Context, name string, objectID, actorID uint, data map[string]any) {
	events.Emit(ctx, l.events, events.New(name, objectID, actorID, data))
}

// lockByID loads a row for update inside tx, mapping a miss to a NotFoundError
func lockByID(tx *gorm.DB, dest any, id uint, what string) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what + " not found.")
	}
	return err
}

// validateAmount checks an amount fits a positive decimal(12,2)
func validateAmount(v *ValidationError, field string, amount decimal.Decimal) {
	switch {
	case !amount.IsPositive():
		v.Add(field, "Ensure this value is greater than 0.")
	case amount.Exponent() < -2 && !amount.Equal(amount.Round(2)):
		v.Add(field, "Ensure that there are no more than 2 decimal places.")
	case amount.GreaterThanOrEqual(maxAmount):
		v.Add(field, "Ensure that there are no more than 12 digits in total.")
	}
}

// ParseDate parses a YYYY-MM-DD date; an empty string yields nil
func ParseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, Invalid(field, "Date has wrong format. Use YYYY-MM-DD.")
	}
	return &t, nil
}

// ParseTimeOfDay parses HH:MM or HH:MM:SS
func ParseTimeOfDay(field, s string) (datatypes.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return datatypes.NewTime(t.Hour(), t.Minute(), t.Second(), 0), nil
		}
	}
	return 0, Invalid(field, "Time has wrong format. Use hh:mm[:ss].")
}

// ParseDateTime accepts RFC 3339 timestamps or plain dates
func ParseDateTime(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	return ParseDate(field, s)
}

// timeOfDay extracts the wall clock part of t
func timeOfDay(t time.Time) datatypes.Time {
	return datatypes.NewTime(t.Hour(), t.Minute(), t.Second(), 0)
}

// dateOf truncates t to its calendar day
func dateOf(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func requireAdmin(u *domain.User, msg string) error {
	if !u.IsAdmin() {
		return forbidden(msg)
	}
	return nil
}
