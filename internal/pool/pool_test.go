package pool

import "testing"

func TestPool_AcquireBumpsCounter(t *testing.T) {
	p := New(4)

	idx0, ok := p.Acquire()
	if !ok || idx0 != 0 {
		t.Fatalf("Acquire() = (%d, %v), want (0, true)", idx0, ok)
	}
	idx1, ok := p.Acquire()
	if !ok || idx1 != 1 {
		t.Fatalf("Acquire() = (%d, %v), want (1, true)", idx1, ok)
	}
	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}
}

func TestPool_ExhaustionReturnsFalse(t *testing.T) {
	p := New(2)
	if _, ok := p.Acquire(); !ok {
		t.Fatal("first acquire should succeed")
	}
	if _, ok := p.Acquire(); !ok {
		t.Fatal("second acquire should succeed")
	}
	if _, ok := p.Acquire(); ok {
		t.Fatal("third acquire should fail on a capacity-2 pool")
	}
}

func TestPool_ResetRestartsCounter(t *testing.T) {
	p := New(2)
	p.Acquire()
	p.Acquire()
	p.Reset()
	if p.Len() != 0 {
		t.Errorf("Len() after Reset() = %d, want 0", p.Len())
	}
	if _, ok := p.Acquire(); !ok {
		t.Fatal("acquire after reset should succeed")
	}
}

func TestPool_AcquireZeroesSlot(t *testing.T) {
	p := New(2)
	idx, _ := p.Acquire()
	p.Get(idx).Remaining = 999
	p.Reset()
	idx2, _ := p.Acquire()
	if p.Get(idx2).Remaining != 0 {
		t.Errorf("Remaining = %d, want 0 on freshly acquired slot", p.Get(idx2).Remaining)
	}
}
