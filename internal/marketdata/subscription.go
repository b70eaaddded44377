package marketdata

import (
	"time"

	"github.com/google/uuid"

	"github.com/nasdaq/itchcore/internal/domain"
)

// Subscriber receives delivered market-data messages. Implementations
// must not block for long: Deliver runs on the publisher's single
// consumer goroutine (or, for snapshot sends, on the caller's goroutine).
type Subscriber interface {
	Deliver(msg Message)
}

// Subscription describes one filter a subscriber has registered:
// which symbol (0 = all), which message type, how deep an L2 snapshot
// should go, and how often updates may be delivered.
type Subscription struct {
	ID       uuid.UUID
	Symbol   domain.SymbolID // 0 = all symbols
	Type     MessageType
	Enabled  bool
	MaxDepth int
	Throttle time.Duration
	LastSent time.Time
}

func (s *Subscription) matches(msg Message) bool {
	if !s.Enabled {
		return false
	}
	if s.Type != msg.Type {
		return false
	}
	return s.Symbol == 0 || s.Symbol == msg.Symbol
}

// dueAt reports whether now clears the subscription's throttle window.
// A subscription with no throttle configured is always due.
func (s *Subscription) dueAt(now time.Time) bool {
	if s.Throttle <= 0 {
		return true
	}
	return s.LastSent.IsZero() || now.Sub(s.LastSent) >= s.Throttle
}

// subscriberInfo is one registered subscriber and its live subscriptions.
type subscriberInfo struct {
	subscriber Subscriber
	subs       map[uuid.UUID]*Subscription
	active     bool
}
