// Package pool implements the fixed-capacity order arena and open-addressed
// ID index (C4) that the order book uses for O(1) allocation and lookup.
package pool

import "github.com/nasdaq/itchcore/internal/domain"

// NoIndex is the sentinel arena slot index meaning "no order" (list
// terminator, empty level).
const NoIndex = ^uint32(0)

// Order is one arena-resident order record. Prev/Next are arena slot
// indices forming the intrusive per-level doubly linked list; ownership of
// an Order is exclusive to the book that allocated it.
type Order struct {
	ID         domain.OrderID
	Side       domain.Side
	Price      domain.Price
	Original   domain.Quantity
	Remaining  domain.Quantity
	ArrivalSeq uint64
	Prev, Next uint32
}

// Pool is a bump-allocated, fixed-capacity arena of Order records. Slots
// are never returned to a freelist: acquisition always advances the bump
// counter, matching the reference design's pool ("release is best-effort";
// callers reuse capacity across a session, not across individual orders).
type Pool struct {
	orders []Order
	next   uint32
}

// New creates an arena with room for capacity orders.
func New(capacity int) *Pool {
	return &Pool{orders: make([]Order, capacity)}
}

// Acquire returns the arena index of a fresh, zeroed Order slot, or
// (0, false) if the pool is exhausted.
func (p *Pool) Acquire() (uint32, bool) {
	if int(p.next) >= len(p.orders) {
		return 0, false
	}
	idx := p.next
	p.next++
	p.orders[idx] = Order{}
	return idx, true
}

// Get returns a pointer to the order at idx for in-place mutation.
func (p *Pool) Get(idx uint32) *Order {
	return &p.orders[idx]
}

// Reset restarts the bump counter, effectively discarding all live orders.
func (p *Pool) Reset() {
	p.next = 0
}

// Cap returns the arena's fixed capacity.
func (p *Pool) Cap() int { return len(p.orders) }

// Len returns the number of slots ever acquired (not the number still
// live — the book's hash index tracks liveness).
func (p *Pool) Len() int { return int(p.next) }
