// Package wire decodes the ITCH-style binary feed into typed events and
// defines the shared packet/event value types used by the rest of the
// pipeline. Nothing here allocates on the decode path.
package wire

// Message type tags, one byte, as they appear at the start of every ITCH
// message.
const (
	TagSystemEvent     byte = 'S'
	TagStockDirectory  byte = 'R'
	TagAddOrder        byte = 'A'
	TagAddOrderMPID    byte = 'F'
	TagOrderExecuted   byte = 'E'
	TagOrderExecutedPx byte = 'C'
	TagOrderCancel     byte = 'X'
	TagOrderDelete     byte = 'D'
	TagOrderReplace    byte = 'U'
)

// HeaderSize is the size of the common prefix present on every message:
// type(1) + stockLocate(2) + trackingNumber(2).
const HeaderSize = 5

// Fixed message sizes, matching the packed C struct layouts this feed
// format is derived from.
const (
	sizeSystemEvent     = 12
	sizeStockDirectory  = 39
	sizeAddOrder        = 36
	sizeAddOrderMPID    = 40
	sizeOrderExecuted   = 31
	sizeOrderExecutedPx = 36
	sizeOrderCancel     = 23
	sizeOrderDelete     = 19
	sizeOrderReplace    = 35
)

// MessageSize returns the fixed wire size of a message given its type tag,
// or 0 if the tag is unrecognized.
func MessageSize(tag byte) uint32 {
	switch tag {
	case TagSystemEvent:
		return sizeSystemEvent
	case TagStockDirectory:
		return sizeStockDirectory
	case TagAddOrder:
		return sizeAddOrder
	case TagAddOrderMPID:
		return sizeAddOrderMPID
	case TagOrderExecuted:
		return sizeOrderExecuted
	case TagOrderExecutedPx:
		return sizeOrderExecutedPx
	case TagOrderCancel:
		return sizeOrderCancel
	case TagOrderDelete:
		return sizeOrderDelete
	case TagOrderReplace:
		return sizeOrderReplace
	default:
		return 0
	}
}

// SymbolFieldLen is the width of the space-padded ASCII symbol field.
const SymbolFieldLen = 8

// PacketView borrows a slice of feed bytes without taking ownership. The
// arbiter and decoder pass these around instead of copying.
type PacketView struct {
	Data []byte
}

// Len returns the borrowed length.
func (p PacketView) Len() int { return len(p.Data) }

// smallMsgCap is the inline capacity of a SmallMsg, sized to the largest
// fixed message (Add Order with MPID, 40 bytes) with headroom.
const smallMsgCap = 64

// SmallMsg is an owned, fixed-size inline copy of one message, used by the
// feed arbiter's gap buffer so buffered messages never touch the heap.
type SmallMsg struct {
	Len   int
	Bytes [smallMsgCap]byte
}

// View returns a PacketView over the owned bytes.
func (m *SmallMsg) View() PacketView {
	return PacketView{Data: m.Bytes[:m.Len]}
}

// FromView copies a borrowed packet into the inline buffer, truncating if
// it exceeds smallMsgCap (never expected for known ITCH message sizes).
func (m *SmallMsg) FromView(v PacketView) {
	n := copy(m.Bytes[:], v.Data)
	m.Len = n
}
