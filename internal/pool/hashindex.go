package pool

import "github.com/nasdaq/itchcore/internal/domain"

// multiplier is the 64-bit multiplicative hash constant from the source
// design (a well-known odd fibonacci-hashing constant).
const multiplier = 0x9e3779b97f4a7c15

type slotState uint8

const (
	slotEmpty slotState = iota
	slotOccupied
	slotTombstone
)

type indexSlot struct {
	state slotState
	id    domain.OrderID
	arena uint32
}

// HashIndex is an open-addressed, linear-probing map from order id to
// arena slot index, with a bounded probe window and tombstone deletion.
// Capacity must be a power of two.
type HashIndex struct {
	slots      []indexSlot
	mask       uint64
	probeLimit int
}

// NewHashIndex creates an index with the given power-of-two capacity and
// bounded probe length.
func NewHashIndex(capacity, probeLimit int) *HashIndex {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("pool: hash index capacity must be a positive power of two")
	}
	return &HashIndex{
		slots:      make([]indexSlot, capacity),
		mask:       uint64(capacity - 1),
		probeLimit: probeLimit,
	}
}

func (h *HashIndex) initialSlot(id domain.OrderID) uint64 {
	return (uint64(id) * multiplier) & h.mask
}

// Insert associates id with an arena slot. Returns false if the probe
// window is exhausted (caller must treat the order as absent — the table
// needs resizing).
func (h *HashIndex) Insert(id domain.OrderID, arena uint32) bool {
	start := h.initialSlot(id)
	firstTombstone := -1
	n := uint64(len(h.slots))

	limit := h.probeLimit
	if limit > len(h.slots) {
		limit = len(h.slots)
	}

	for i := 0; i < limit; i++ {
		idx := (start + uint64(i)) % n
		s := &h.slots[idx]
		switch s.state {
		case slotEmpty:
			target := idx
			if firstTombstone >= 0 {
				target = uint64(firstTombstone)
			}
			h.slots[target] = indexSlot{state: slotOccupied, id: id, arena: arena}
			return true
		case slotTombstone:
			if firstTombstone < 0 {
				firstTombstone = int(idx)
			}
		case slotOccupied:
			if s.id == id {
				s.arena = arena
				return true
			}
		}
	}

	if firstTombstone >= 0 {
		h.slots[firstTombstone] = indexSlot{state: slotOccupied, id: id, arena: arena}
		return true
	}
	return false
}

// Find returns the arena slot for id, if present.
func (h *HashIndex) Find(id domain.OrderID) (uint32, bool) {
	start := h.initialSlot(id)
	n := uint64(len(h.slots))

	limit := h.probeLimit
	if limit > len(h.slots) {
		limit = len(h.slots)
	}

	for i := 0; i < limit; i++ {
		idx := (start + uint64(i)) % n
		s := &h.slots[idx]
		switch s.state {
		case slotEmpty:
			return 0, false
		case slotOccupied:
			if s.id == id {
				return s.arena, true
			}
		}
	}
	return 0, false
}

// Remove marks id's slot as a tombstone. Returns false if id was not
// present.
func (h *HashIndex) Remove(id domain.OrderID) bool {
	start := h.initialSlot(id)
	n := uint64(len(h.slots))

	limit := h.probeLimit
	if limit > len(h.slots) {
		limit = len(h.slots)
	}

	for i := 0; i < limit; i++ {
		idx := (start + uint64(i)) % n
		s := &h.slots[idx]
		switch s.state {
		case slotEmpty:
			return false
		case slotOccupied:
			if s.id == id {
				s.state = slotTombstone
				return true
			}
		}
	}
	return false
}
