package wire

import "github.com/nasdaq/itchcore/internal/domain"

// EventKind tags the flattened Event union. Mirrors the source's
// type-tagged event variants (Add/Execute/Cancel/Delete/Replace) as a
// single flat struct with a discriminant, the shape used throughout this
// module's event/message payloads.
type EventKind uint8

const (
	EventNone EventKind = iota
	EventAdd
	EventExecute
	EventCancel
	EventDelete
	EventReplace
)

func (k EventKind) String() string {
	switch k {
	case EventAdd:
		return "ADD"
	case EventExecute:
		return "EXECUTE"
	case EventCancel:
		return "CANCEL"
	case EventDelete:
		return "DELETE"
	case EventReplace:
		return "REPLACE"
	default:
		return "NONE"
	}
}

// Event is the decoded, order-book-affecting result of one wire message.
// Symbol is populated on Add; Replace carries symbol id 0 as the
// unchanged-symbol sentinel, per the wire contract — the apply layer
// resolves it from the original order id.
type Event struct {
	Kind      EventKind
	ID        domain.OrderID
	NewID     domain.OrderID // Replace only
	Side      domain.Side    // Add only; unknown for the rest until resolved
	Qty       domain.Quantity
	Price     domain.Price
	Symbol    domain.SymbolID
	Tracking  uint64
}

// IsZero reports whether e carries no event (S/R messages, or a decode
// that produced no book mutation).
func (e Event) IsZero() bool { return e.Kind == EventNone }
