// Package book implements the per-symbol price-indexed order book (C5)
// and its registry (C6).
package book

import (
	"github.com/nasdaq/itchcore/internal/domain"
	"github.com/nasdaq/itchcore/internal/pool"
)

// Config carries the book's fixed capacities and price domain, mirroring
// the wire format's [P_MIN, P_MAX] configuration parameters.
type Config struct {
	PriceMin     domain.Price
	PriceMax     domain.Price
	HashCapacity int
	PoolCapacity int
	ProbeLimit   int
}

// Level is one price level's aggregate state.
type Level struct {
	Quantity   domain.Quantity
	Count      uint32
	head, tail uint32
}

// Active reports whether the level currently holds resting quantity.
func (l Level) Active() bool { return l.Count > 0 }

// Book is a single symbol's limit order book: two arrays of price levels
// covering [PriceMin, PriceMax], an intrusive doubly linked order list per
// level for O(1) time-priority mutation, and a hash index from order id to
// arena slot for O(1) lookup. Exclusive to one worker goroutine; no
// internal locking.
type Book struct {
	symbol domain.SymbolID
	cfg    Config

	bids []Level
	asks []Level

	pool  *pool.Pool
	index *pool.HashIndex

	bestBidIdx int // -1 = no active bid level
	bestAskIdx int // -1 = no active ask level

	arrivalSeq uint64
}

// New creates an empty book for symbol with zeroed level arrays.
func New(symbol domain.SymbolID, cfg Config) *Book {
	width := int(cfg.PriceMax-cfg.PriceMin) + 1
	b := &Book{
		symbol:     symbol,
		cfg:        cfg,
		bids:       make([]Level, width),
		asks:       make([]Level, width),
		pool:       pool.New(cfg.PoolCapacity),
		index:      pool.NewHashIndex(cfg.HashCapacity, cfg.ProbeLimit),
		bestBidIdx: -1,
		bestAskIdx: -1,
	}
	for i := range b.bids {
		b.bids[i].head, b.bids[i].tail = pool.NoIndex, pool.NoIndex
		b.asks[i].head, b.asks[i].tail = pool.NoIndex, pool.NoIndex
	}
	return b
}

// Symbol returns the symbol this book belongs to.
func (b *Book) Symbol() domain.SymbolID { return b.symbol }

func (b *Book) levelsFor(side domain.Side) []Level {
	if side == domain.Buy {
		return b.bids
	}
	return b.asks
}

func (b *Book) inRange(px domain.Price) bool {
	return px >= b.cfg.PriceMin && px <= b.cfg.PriceMax
}

func (b *Book) levelIndex(px domain.Price) int {
	return int(px - b.cfg.PriceMin)
}

// Add inserts a new resting order. No-op (returns false) if id already
// exists, the price is outside [PriceMin, PriceMax], or the order pool or
// hash index is exhausted.
func (b *Book) Add(id domain.OrderID, side domain.Side, qty domain.Quantity, px domain.Price) bool {
	if _, exists := b.index.Find(id); exists {
		return false
	}
	if !b.inRange(px) {
		return false
	}

	idx, ok := b.pool.Acquire()
	if !ok {
		return false
	}

	if !b.index.Insert(id, idx) {
		// Hash probe exhausted: the arena slot is wasted (bump allocator,
		// no freelist) and the order is treated as absent, per the pool's
		// documented failure mode.
		return false
	}

	b.arrivalSeq++
	o := b.pool.Get(idx)
	o.ID = id
	o.Side = side
	o.Price = px
	o.Original = qty
	o.Remaining = qty
	o.ArrivalSeq = b.arrivalSeq
	o.Prev = pool.NoIndex
	o.Next = pool.NoIndex

	li := b.levelIndex(px)
	b.appendToLevel(side, li, idx)
	b.onLevelActivated(side, li)
	return true
}

// appendToLevel adds the order at arena index idx to the tail of the
// level's intrusive list, preserving time priority.
func (b *Book) appendToLevel(side domain.Side, li int, idx uint32) {
	levels := b.levelsFor(side)
	lvl := &levels[li]
	o := b.pool.Get(idx)
	if lvl.head == pool.NoIndex {
		lvl.head = idx
		lvl.tail = idx
	} else {
		b.pool.Get(lvl.tail).Next = idx
		o.Prev = lvl.tail
		lvl.tail = idx
	}
	lvl.Quantity += o.Remaining
	lvl.Count++
}

// unlinkFromLevel removes the order at idx from its level's list, fixing
// prev/next pointers in O(1), decrementing count, and clearing the level
// (head/tail nil) when it becomes empty.
func (b *Book) unlinkFromLevel(side domain.Side, li int, idx uint32) {
	levels := b.levelsFor(side)
	lvl := &levels[li]
	o := b.pool.Get(idx)

	if o.Prev != pool.NoIndex {
		b.pool.Get(o.Prev).Next = o.Next
	} else {
		lvl.head = o.Next
	}
	if o.Next != pool.NoIndex {
		b.pool.Get(o.Next).Prev = o.Prev
	} else {
		lvl.tail = o.Prev
	}
	lvl.Count--
	if lvl.Count == 0 {
		lvl.head, lvl.tail = pool.NoIndex, pool.NoIndex
		lvl.Quantity = 0
		b.onLevelEmptied(side, li)
	}
}

// Execute reduces id's remaining quantity by min(qty, remaining). If the
// order becomes fully filled it is unlinked and released. No-op on an
// unknown id (feed semantics: the book is a passive observer).
func (b *Book) Execute(id domain.OrderID, qty domain.Quantity) bool {
	idx, ok := b.index.Find(id)
	if !ok {
		return false
	}
	o := b.pool.Get(idx)
	d := qty
	if d > o.Remaining {
		d = o.Remaining
	}

	li := b.levelIndex(o.Price)
	levels := b.levelsFor(o.Side)
	levels[li].Quantity -= d
	o.Remaining -= d

	if o.Remaining == 0 {
		b.unlinkFromLevel(o.Side, li, idx)
		b.index.Remove(id)
	}
	return true
}

// Cancel is an alias for Execute: feed semantics treat a partial cancel as
// a quantity reduction identical to an execution.
func (b *Book) Cancel(id domain.OrderID, qty domain.Quantity) bool {
	return b.Execute(id, qty)
}

// Delete removes id's full remaining quantity regardless of size. No-op on
// an unknown id.
func (b *Book) Delete(id domain.OrderID) bool {
	idx, ok := b.index.Find(id)
	if !ok {
		return false
	}
	o := b.pool.Get(idx)
	li := b.levelIndex(o.Price)
	levels := b.levelsFor(o.Side)
	levels[li].Quantity -= o.Remaining
	o.Remaining = 0

	b.unlinkFromLevel(o.Side, li, idx)
	b.index.Remove(id)
	return true
}

// Replace rewrites oldID as newID with a new quantity and price,
// preserving side. If the price is unchanged, the order is rewritten in
// place (O(1)); otherwise it is fully removed and re-added at the new
// price (preserving side, losing time priority at the new level, matching
// feed semantics for a repriced order). No-op if oldID is unknown.
func (b *Book) Replace(oldID, newID domain.OrderID, qty domain.Quantity, px domain.Price) bool {
	idx, ok := b.index.Find(oldID)
	if !ok {
		return false
	}
	o := b.pool.Get(idx)
	side := o.Side

	if px == o.Price {
		li := b.levelIndex(o.Price)
		levels := b.levelsFor(side)
		levels[li].Quantity = levels[li].Quantity - o.Remaining + qty

		b.index.Remove(oldID)
		o.ID = newID
		o.Original = qty
		o.Remaining = qty
		if !b.index.Insert(newID, idx) {
			// Hash probe exhausted on rename: drop the order per the pool's
			// documented failure mode, unlinking it so level accounting
			// stays consistent.
			levels[li].Quantity -= qty
			b.unlinkFromLevel(side, li, idx)
			return false
		}
		return true
	}

	li := b.levelIndex(o.Price)
	levels := b.levelsFor(side)
	levels[li].Quantity -= o.Remaining
	b.unlinkFromLevel(side, li, idx)
	b.index.Remove(oldID)

	return b.Add(newID, side, qty, px)
}

// onLevelActivated updates the best-price cursor when a level transitions
// from inactive to active with a new order at li.
func (b *Book) onLevelActivated(side domain.Side, li int) {
	if side == domain.Buy {
		if b.bestBidIdx < 0 || li > b.bestBidIdx {
			b.bestBidIdx = li
		}
		return
	}
	if b.bestAskIdx < 0 || li < b.bestAskIdx {
		b.bestAskIdx = li
	}
}

// onLevelEmptied rescans for the new best price when the current best
// level empties. Mirrors the moving bidMax/askMin cursor technique: the
// scan only runs when the emptied level was the best, and it resumes from
// the emptied index rather than restarting from a bound.
func (b *Book) onLevelEmptied(side domain.Side, li int) {
	if side == domain.Buy {
		if li != b.bestBidIdx {
			return
		}
		for i := li - 1; i >= 0; i-- {
			if b.bids[i].Active() {
				b.bestBidIdx = i
				return
			}
		}
		b.bestBidIdx = -1
		return
	}
	if li != b.bestAskIdx {
		return
	}
	for i := li + 1; i < len(b.asks); i++ {
		if b.asks[i].Active() {
			b.bestAskIdx = i
			return
		}
	}
	b.bestAskIdx = -1
}

// BestBid returns the highest active bid price, or 0 if the bid side is
// empty.
func (b *Book) BestBid() domain.Price {
	if b.bestBidIdx < 0 {
		return 0
	}
	return b.cfg.PriceMin + domain.Price(b.bestBidIdx)
}

// BestAsk returns the lowest active ask price, or 0 if the ask side is
// empty.
func (b *Book) BestAsk() domain.Price {
	if b.bestAskIdx < 0 {
		return 0
	}
	return b.cfg.PriceMin + domain.Price(b.bestAskIdx)
}

// FrontOrderID returns the id of the order at the head of the given
// side/price's time-priority list (the next one to trade), if any.
func (b *Book) FrontOrderID(side domain.Side, px domain.Price) (domain.OrderID, bool) {
	if !b.inRange(px) {
		return 0, false
	}
	lvl := &b.levelsFor(side)[b.levelIndex(px)]
	if lvl.head == pool.NoIndex {
		return 0, false
	}
	return b.pool.Get(lvl.head).ID, true
}

// LevelAt returns a snapshot of the level at side/px.
func (b *Book) LevelAt(side domain.Side, px domain.Price) Level {
	if !b.inRange(px) {
		return Level{head: pool.NoIndex, tail: pool.NoIndex}
	}
	return b.levelsFor(side)[b.levelIndex(px)]
}

// OrderRemaining returns id's remaining quantity and whether it exists.
func (b *Book) OrderRemaining(id domain.OrderID) (domain.Quantity, bool) {
	idx, ok := b.index.Find(id)
	if !ok {
		return 0, false
	}
	return b.pool.Get(idx).Remaining, true
}

// AvailableToCross sums resting quantity on the opposite side that would
// cross against an aggressive order of the given side, up to want units,
// without mutating anything. market bypasses the limit price check. Used
// for an all-or-nothing pre-check before committing any fills.
func (b *Book) AvailableToCross(side domain.Side, limitPrice domain.Price, market bool, want domain.Quantity) domain.Quantity {
	opp := side.Opposite()
	levels := b.levelsFor(opp)
	var total domain.Quantity

	if opp == domain.Sell {
		for i := b.bestAskIdx; i >= 0 && i < len(levels) && total < want; i++ {
			if !levels[i].Active() {
				continue
			}
			px := b.cfg.PriceMin + domain.Price(i)
			if !market && limitPrice < px {
				break
			}
			total += levels[i].Quantity
		}
	} else {
		for i := b.bestBidIdx; i >= 0 && total < want; i-- {
			if !levels[i].Active() {
				continue
			}
			px := b.cfg.PriceMin + domain.Price(i)
			if !market && limitPrice > px {
				break
			}
			total += levels[i].Quantity
		}
	}

	if total > want {
		total = want
	}
	return total
}

// TopLevels walks up to depth active levels starting from the best price,
// calling fn(price, level) in priority order (best-first). Used by the
// market-data publisher to build L2 snapshots without allocating.
func (b *Book) TopLevels(side domain.Side, depth int, fn func(px domain.Price, lvl Level)) {
	levels := b.levelsFor(side)
	if side == domain.Buy {
		for i, n := b.bestBidIdx, 0; i >= 0 && n < depth; i-- {
			if levels[i].Active() {
				fn(b.cfg.PriceMin+domain.Price(i), levels[i])
				n++
			}
		}
		return
	}
	for i, n := b.bestAskIdx, 0; i >= 0 && i < len(levels) && n < depth; i++ {
		if levels[i].Active() {
			fn(b.cfg.PriceMin+domain.Price(i), levels[i])
			n++
		}
	}
}
