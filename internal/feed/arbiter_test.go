package feed

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/nasdaq/itchcore/internal/wire"
)

// buildOrderDelete builds a minimal OrderDeleteMessage (tag 'D', 19
// bytes) with the given tracking number, for arbiter-level tests that
// only care about the common header.
func buildOrderDelete(tracking uint16) []byte {
	buf := make([]byte, wire.MessageSize(wire.TagOrderDelete))
	buf[0] = wire.TagOrderDelete
	binary.BigEndian.PutUint16(buf[3:5], tracking)
	return buf
}

// feedQueue is a simple PopFunc backed by a slice of packets, each
// popped once.
func feedQueue(packets ...[]byte) PopFunc {
	i := 0
	return func() (wire.PacketView, bool) {
		if i >= len(packets) {
			return wire.PacketView{}, false
		}
		p := packets[i]
		i++
		return wire.PacketView{Data: p}, true
	}
}

func emptyFeed() PopFunc {
	return func() (wire.PacketView, bool) { return wire.PacketView{}, false }
}

// mutableFeed lets a test push packets between NextMessage calls, needed
// to exercise gap buffering (which depends on what has and hasn't
// arrived yet at a given point in time).
type mutableFeed struct {
	pending [][]byte
}

func (f *mutableFeed) push(pkt []byte) { f.pending = append(f.pending, pkt) }

func (f *mutableFeed) pop() (wire.PacketView, bool) {
	if len(f.pending) == 0 {
		return wire.PacketView{}, false
	}
	p := f.pending[0]
	f.pending = f.pending[1:]
	return wire.PacketView{Data: p}, true
}

func TestArbiter_InOrderSingleFeedPassesThrough(t *testing.T) {
	a := New(feedQueue(buildOrderDelete(1), buildOrderDelete(2)), emptyFeed(), 64, time.Second)

	m1, ok := a.NextMessage()
	if !ok || m1.Len() == 0 {
		t.Fatal("expected first message")
	}
	m2, ok := a.NextMessage()
	if !ok || m2.Len() == 0 {
		t.Fatal("expected second message")
	}
	if _, ok := a.NextMessage(); ok {
		t.Fatal("expected no more messages")
	}
}

func TestArbiter_DuplicateAcrossFeedsDropped(t *testing.T) {
	a := New(feedQueue(buildOrderDelete(1)), feedQueue(buildOrderDelete(1)), 64, time.Second)

	_, ok := a.NextMessage()
	if !ok {
		t.Fatal("expected the first copy of tracking=1 to pass through")
	}
	if _, ok := a.NextMessage(); ok {
		t.Fatal("the duplicate copy should have been dropped, not emitted")
	}
	if a.Metrics().DupDropped != 1 {
		t.Fatalf("DupDropped = %d, want 1", a.Metrics().DupDropped)
	}
}

func TestArbiter_GapBufferedThenFilled(t *testing.T) {
	feedA := &mutableFeed{}
	feedB := &mutableFeed{}
	a := New(feedA.pop, feedB.pop, 64, time.Second)

	feedA.push(buildOrderDelete(1))
	m1, ok := a.NextMessage()
	if !ok || trackingNumberFrom(m1.Data) != 1 {
		t.Fatalf("expected tracking=1 first, got ok=%v", ok)
	}

	// Message 3 arrives on feed A before 2 arrives on feed B: the arbiter
	// must buffer it as a gap rather than emit it out of order.
	feedA.push(buildOrderDelete(3))
	if _, ok := a.NextMessage(); ok {
		t.Fatal("tracking=3 should be buffered as a gap, not emitted early")
	}
	if a.Metrics().GapDetected != 1 {
		t.Fatalf("GapDetected = %d, want 1", a.Metrics().GapDetected)
	}

	// tracking=2 now arrives on feed B, resolving the gap and draining
	// tracking=3 behind it.
	feedB.push(buildOrderDelete(2))
	m2, ok := a.NextMessage()
	if !ok || trackingNumberFrom(m2.Data) != 2 {
		t.Fatalf("expected tracking=2, got ok=%v", ok)
	}

	m3, ok := a.NextMessage()
	if !ok || trackingNumberFrom(m3.Data) != 3 {
		t.Fatal("expected the previously gapped tracking=3 to drain next")
	}
	if a.Metrics().GapFilled != 1 {
		t.Fatalf("GapFilled = %d, want 1", a.Metrics().GapFilled)
	}
}

func TestArbiter_GapExpiresAfterTTL(t *testing.T) {
	a := New(feedQueue(buildOrderDelete(1), buildOrderDelete(3)), emptyFeed(), 64, 10*time.Millisecond)
	fakeNow := time.Now()
	a.now = func() time.Time { return fakeNow }

	if _, ok := a.NextMessage(); !ok {
		t.Fatal("expected tracking=1")
	}
	if _, ok := a.NextMessage(); ok {
		t.Fatal("tracking=3 should be buffered as a gap, not emitted")
	}
	if a.Metrics().GapDetected != 1 {
		t.Fatalf("GapDetected = %d, want 1", a.Metrics().GapDetected)
	}

	fakeNow = fakeNow.Add(20 * time.Millisecond)
	if _, ok := a.NextMessage(); ok {
		t.Fatal("expired gap entry should not be emitted")
	}
	if a.Metrics().GapDroppedTTL != 1 {
		t.Fatalf("GapDroppedTTL = %d, want 1", a.Metrics().GapDroppedTTL)
	}
}

func TestArbiter_GapCapacityEvictsOldest(t *testing.T) {
	// Three messages, all beyond expected=1, none filling the gap:
	// tracking numbers 5, 6, 7 with a gap capacity of 2 should evict one.
	a := New(feedQueue(buildOrderDelete(5), buildOrderDelete(6), buildOrderDelete(7)), emptyFeed(), 2, time.Second)

	for i := 0; i < 3; i++ {
		if _, ok := a.NextMessage(); ok {
			t.Fatal("none of these should be emitted; all are ahead of the expected sequence")
		}
	}
	if a.Metrics().GapDroppedCapacity != 1 {
		t.Fatalf("GapDroppedCapacity = %d, want 1", a.Metrics().GapDroppedCapacity)
	}
}

func TestArbiter_TiesPreferFeedA(t *testing.T) {
	// Both feeds present tracking=1 in the same call; A should win the tie,
	// leaving B's copy to be dropped as a duplicate.
	a := New(feedQueue(buildOrderDelete(1)), feedQueue(buildOrderDelete(1)), 64, time.Second)
	if _, ok := a.NextMessage(); !ok {
		t.Fatal("expected a message")
	}
	if a.Metrics().DupDropped != 0 {
		t.Fatal("the tie-break copy should still be pending, not yet counted")
	}
	if _, ok := a.NextMessage(); ok {
		t.Fatal("second call should discover and drop the duplicate")
	}
	if a.Metrics().DupDropped != 1 {
		t.Fatalf("DupDropped = %d, want 1", a.Metrics().DupDropped)
	}
}
