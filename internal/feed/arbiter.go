// Package feed merges two redundant ITCH feeds (A and B lines) into a
// single, gap-resolved, duplicate-free message stream ordered by
// tracking number (C3).
package feed

import (
	"encoding/binary"
	"time"

	"github.com/google/btree"
	"github.com/nasdaq/itchcore/internal/wire"
)

// PopFunc returns the next raw packet from a feed, or false when the
// feed currently has nothing buffered. Multicast reception itself is out
// of scope here; PopFunc is the seam a UDP reader would plug into.
type PopFunc func() (wire.PacketView, bool)

// Metrics counts the arbiter's gap-resolution outcomes.
type Metrics struct {
	GapDetected        uint64
	GapFilled          uint64
	DupDropped         uint64
	GapDroppedTTL      uint64
	GapDroppedCapacity uint64
}

type gapItem struct {
	msg wire.SmallMsg
	ts  time.Time
}

// Arbiter merges feeds popA/popB by tracking number, buffering
// out-of-order arrivals for up to ttl before giving up on them.
type Arbiter struct {
	popA, popB PopFunc

	gapCapacity int
	ttl         time.Duration

	expected uint64
	gapTree  *btree.BTreeG[uint64]
	gapByTN  map[uint64]gapItem
	metrics  Metrics

	bufA, bufB [][]byte
	ready      []wire.SmallMsg

	now func() time.Time
}

func lessUint64(a, b uint64) bool { return a < b }

// New creates an arbiter over popA/popB with the given gap-buffer
// capacity and TTL.
func New(popA, popB PopFunc, gapCapacity int, ttl time.Duration) *Arbiter {
	return &Arbiter{
		popA:        popA,
		popB:        popB,
		gapCapacity: gapCapacity,
		ttl:         ttl,
		expected:    1,
		gapTree:     btree.NewG(32, lessUint64),
		gapByTN:     make(map[uint64]gapItem),
		now:         time.Now,
	}
}

// Metrics returns a snapshot of the arbiter's counters.
func (a *Arbiter) Metrics() Metrics { return a.metrics }

func trackingNumberFrom(msg []byte) uint64 {
	if len(msg) < wire.HeaderSize {
		return 0
	}
	return uint64(binary.BigEndian.Uint16(msg[3:5]))
}

// loadFeedMessages drains everything currently available from pop,
// splitting each packet into its constituent fixed-size ITCH messages
// and appending message-level slices to buf.
func loadFeedMessages(pop PopFunc, buf *[][]byte) {
	for {
		pkt, ok := pop()
		if !ok {
			return
		}
		cur := 0
		data := pkt.Data
		for cur < len(data) {
			msz := int(wire.MessageSize(data[cur]))
			if msz == 0 || cur+msz > len(data) {
				break
			}
			*buf = append(*buf, data[cur:cur+msz])
			cur += msz
		}
	}
}

// pruneExpired evicts gap entries whose TTL has elapsed. Entries are
// visited in tracking-number order, matching the reference design's
// ordered-map eviction from the low end; since tracking numbers advance
// with arrival time this approximates oldest-first eviction without a
// second, time-ordered index.
func (a *Arbiter) pruneExpired() {
	now := a.now()
	for {
		var lowest uint64
		found := false
		a.gapTree.Ascend(func(k uint64) bool {
			lowest = k
			found = true
			return false
		})
		if !found {
			return
		}
		item := a.gapByTN[lowest]
		if now.Sub(item.ts) <= a.ttl {
			return
		}
		a.gapTree.Delete(lowest)
		delete(a.gapByTN, lowest)
		a.metrics.GapDroppedTTL++
	}
}

func (a *Arbiter) bufferGap(tn uint64, msg []byte) {
	if _, exists := a.gapByTN[tn]; exists {
		return
	}
	if a.gapTree.Len() >= a.gapCapacity {
		var evict uint64
		a.gapTree.Ascend(func(k uint64) bool {
			evict = k
			return false
		})
		a.gapTree.Delete(evict)
		delete(a.gapByTN, evict)
		a.metrics.GapDroppedCapacity++
	}
	var item gapItem
	item.msg.FromView(wire.PacketView{Data: msg})
	item.ts = a.now()
	a.gapByTN[tn] = item
	a.gapTree.ReplaceOrInsert(tn)
	a.metrics.GapDetected++
}

// drainGaps moves any consecutive buffered messages starting at expected
// into the ready queue.
func (a *Arbiter) drainGaps() {
	for {
		item, ok := a.gapByTN[a.expected]
		if !ok {
			return
		}
		a.ready = append(a.ready, item.msg)
		delete(a.gapByTN, a.expected)
		a.gapTree.Delete(a.expected)
		a.metrics.GapFilled++
		a.expected++
	}
}

// pickNext chooses the lower-tracking-number front message across first
// and second (first wins ties), pops it, and applies dedup/gap logic.
// Returns (message, true) for an in-order message ready to emit, or
// (nil, false) if the popped message was consumed into the gap buffer,
// dropped as a duplicate, or both buffers were empty.
func (a *Arbiter) pickNext(first, second *[][]byte) ([]byte, bool) {
	if len(*first) == 0 && len(*second) == 0 {
		return nil, false
	}
	chooseFirst := len(*second) == 0
	if len(*first) != 0 && len(*second) != 0 {
		chooseFirst = trackingNumberFrom((*first)[0]) <= trackingNumberFrom((*second)[0])
	}
	src := second
	if chooseFirst {
		src = first
	}
	if len(*src) == 0 {
		return nil, false
	}
	msg := (*src)[0]
	*src = (*src)[1:]

	tn := trackingNumberFrom(msg)
	if tn == 0 {
		return msg, true
	}
	if tn < a.expected {
		a.metrics.DupDropped++
		return nil, false
	}
	if tn > a.expected {
		a.bufferGap(tn, msg)
		return nil, false
	}

	a.expected++
	a.drainGaps()
	return msg, true
}

// NextMessage returns the next in-order message across both feeds, or
// (PacketView{}, false) if nothing is currently available.
func (a *Arbiter) NextMessage() (wire.PacketView, bool) {
	a.pruneExpired()

	if len(a.ready) > 0 {
		m := a.ready[0]
		a.ready = a.ready[1:]
		return m.View(), true
	}

	loadFeedMessages(a.popA, &a.bufA)
	loadFeedMessages(a.popB, &a.bufB)

	if msg, ok := a.pickNext(&a.bufA, &a.bufB); ok {
		return wire.PacketView{Data: msg}, true
	}
	if msg, ok := a.pickNext(&a.bufB, &a.bufA); ok {
		return wire.PacketView{Data: msg}, true
	}
	return wire.PacketView{}, false
}
