package wire

import (
	"encoding/binary"

	"github.com/nasdaq/itchcore/internal/domain"
	"github.com/nasdaq/itchcore/internal/symbol"
)

// SymbolInterner is the subset of symbol.Table the decoder needs. Add and
// Stock Directory messages intern their symbol; everything else only
// carries an order id.
type SymbolInterner interface {
	GetOrIntern(name8 []byte) domain.SymbolID
}

var _ SymbolInterner = (*symbol.Table)(nil)

// Decoder turns raw ITCH bytes into decoded Events. It allocates nothing:
// all field reads go straight off the input slice via encoding/binary,
// which for ITCH's big-endian wire format doubles as the network-to-host
// byte swap the source performs with bswap64/ntohl.
type Decoder struct {
	symbols SymbolInterner
}

// New creates a Decoder that interns symbols through symbols.
func New(symbols SymbolInterner) *Decoder {
	return &Decoder{symbols: symbols}
}

// Field offsets are constant across message types after the common
// 11-byte prefix (type + stockLocate + trackingNumber + timestamp); the
// order reference number always starts at byte 11.
const orderRefOffset = 11

// DecodeOne decodes a single message from the front of buf. It returns the
// decoded event (zero-value Kind if the message produces no book event,
// e.g. System Event or Stock Directory) and the number of bytes consumed.
// A returned size of 0 means the caller must stop processing this packet:
// either the buffer is shorter than the message the tag implies, or the
// tag itself is unrecognized.
func (d *Decoder) DecodeOne(buf []byte) (Event, uint32) {
	if len(buf) < HeaderSize {
		return Event{}, 0
	}

	tag := buf[0]
	size := MessageSize(tag)
	if size == 0 || int(size) > len(buf) {
		return Event{}, 0
	}

	tracking := uint64(binary.BigEndian.Uint16(buf[3:5]))

	var evt Event
	switch tag {
	case TagSystemEvent:
		// No book event; consumes bytes only.
	case TagStockDirectory:
		sym := buf[11:19]
		d.symbols.GetOrIntern(sym)
	case TagAddOrder, TagAddOrderMPID:
		evt = d.decodeAdd(buf)
	case TagOrderExecuted:
		evt = Event{
			Kind: EventExecute,
			ID:   domain.OrderID(binary.BigEndian.Uint64(buf[11:19])),
			Qty:  domain.Quantity(binary.BigEndian.Uint32(buf[19:23])),
		}
	case TagOrderExecutedPx:
		// Unlike a plain Order Executed message, this variant replaces the
		// original order's price with an explicit execution price (bytes
		// 32:36, after the 8-byte match number and 1-byte printable flag).
		evt = Event{
			Kind:  EventExecute,
			ID:    domain.OrderID(binary.BigEndian.Uint64(buf[11:19])),
			Qty:   domain.Quantity(binary.BigEndian.Uint32(buf[19:23])),
			Price: domain.Price(binary.BigEndian.Uint32(buf[32:36])),
		}
	case TagOrderCancel:
		evt = Event{
			Kind: EventCancel,
			ID:   domain.OrderID(binary.BigEndian.Uint64(buf[11:19])),
			Qty:  domain.Quantity(binary.BigEndian.Uint32(buf[19:23])),
		}
	case TagOrderDelete:
		evt = Event{
			Kind: EventDelete,
			ID:   domain.OrderID(binary.BigEndian.Uint64(buf[11:19])),
		}
	case TagOrderReplace:
		evt = Event{
			Kind:   EventReplace,
			ID:     domain.OrderID(binary.BigEndian.Uint64(buf[11:19])),
			NewID:  domain.OrderID(binary.BigEndian.Uint64(buf[19:27])),
			Qty:    domain.Quantity(binary.BigEndian.Uint32(buf[27:31])),
			Price:  domain.Price(binary.BigEndian.Uint32(buf[31:35])),
			Symbol: 0, // unchanged-symbol sentinel; apply layer resolves it
		}
	}

	if evt.Kind != EventNone {
		evt.Tracking = tracking
	}
	return evt, size
}

func (d *Decoder) decodeAdd(buf []byte) Event {
	orderID := domain.OrderID(binary.BigEndian.Uint64(buf[11:19]))
	side := domain.Buy
	if buf[19] == 'S' {
		side = domain.Sell
	}
	qty := domain.Quantity(binary.BigEndian.Uint32(buf[20:24]))
	symBytes := buf[24:32]
	price := domain.Price(binary.BigEndian.Uint32(buf[32:36]))

	return Event{
		Kind:   EventAdd,
		ID:     orderID,
		Side:   side,
		Qty:    qty,
		Price:  price,
		Symbol: d.symbols.GetOrIntern(symBytes),
	}
}
