package book

import (
	"testing"

	"github.com/nasdaq/itchcore/internal/domain"
	"pgregory.net/rapid"
)

func testConfig() Config {
	return Config{
		PriceMin:     100,
		PriceMax:     200,
		HashCapacity: 256,
		PoolCapacity: 256,
		ProbeLimit:   32,
	}
}

func TestBook_AddSetsBestPrices(t *testing.T) {
	b := New(1, testConfig())

	if !b.Add(1, domain.Buy, 10, 150) {
		t.Fatal("Add should succeed for an in-range price")
	}
	if got := b.BestBid(); got != 150 {
		t.Errorf("BestBid() = %d, want 150", got)
	}
	if !b.Add(2, domain.Sell, 5, 160) {
		t.Fatal("Add should succeed for an in-range price")
	}
	if got := b.BestAsk(); got != 160 {
		t.Errorf("BestAsk() = %d, want 160", got)
	}
}

func TestBook_AddOutOfRangeIsNoOp(t *testing.T) {
	b := New(1, testConfig())
	if b.Add(1, domain.Buy, 10, 99) {
		t.Fatal("Add below PriceMin should fail")
	}
	if b.Add(2, domain.Sell, 10, 201) {
		t.Fatal("Add above PriceMax should fail")
	}
	if b.BestBid() != 0 || b.BestAsk() != 0 {
		t.Fatal("book should remain empty")
	}
}

func TestBook_AddDuplicateIDRejected(t *testing.T) {
	b := New(1, testConfig())
	b.Add(1, domain.Buy, 10, 150)
	if b.Add(1, domain.Buy, 5, 151) {
		t.Fatal("Add with a duplicate id should fail")
	}
}

func TestBook_ExecuteClampsToRemaining(t *testing.T) {
	b := New(1, testConfig())
	b.Add(1, domain.Buy, 10, 150)
	if !b.Execute(1, 1000) {
		t.Fatal("Execute on a known id should succeed")
	}
	if rem, ok := b.OrderRemaining(1); ok {
		t.Fatalf("order should be gone after over-execute, got remaining=%d", rem)
	}
	if b.BestBid() != 0 {
		t.Errorf("BestBid() = %d, want 0 after level empties", b.BestBid())
	}
}

func TestBook_ExecutePartialLeavesOrderResting(t *testing.T) {
	b := New(1, testConfig())
	b.Add(1, domain.Buy, 10, 150)
	b.Execute(1, 4)
	rem, ok := b.OrderRemaining(1)
	if !ok || rem != 6 {
		t.Fatalf("OrderRemaining = (%d, %v), want (6, true)", rem, ok)
	}
	lvl := b.LevelAt(domain.Buy, 150)
	if lvl.Quantity != 6 {
		t.Errorf("level quantity = %d, want 6", lvl.Quantity)
	}
}

func TestBook_DeleteUnlinksRegardlessOfQuantity(t *testing.T) {
	b := New(1, testConfig())
	b.Add(1, domain.Buy, 10, 150)
	b.Add(2, domain.Buy, 5, 150)
	if !b.Delete(1) {
		t.Fatal("Delete of a known id should succeed")
	}
	if _, ok := b.OrderRemaining(1); ok {
		t.Fatal("deleted order should no longer be findable")
	}
	front, ok := b.FrontOrderID(domain.Buy, 150)
	if !ok || front != 2 {
		t.Fatalf("FrontOrderID = (%d, %v), want (2, true)", front, ok)
	}
	lvl := b.LevelAt(domain.Buy, 150)
	if lvl.Quantity != 5 || lvl.Count != 1 {
		t.Errorf("level = %+v, want Quantity=5 Count=1", lvl)
	}
}

func TestBook_DeleteUnknownIsNoOp(t *testing.T) {
	b := New(1, testConfig())
	if b.Delete(999) {
		t.Fatal("Delete of an unknown id should fail")
	}
}

func TestBook_FrontOrderIDIsFIFO(t *testing.T) {
	b := New(1, testConfig())
	b.Add(1, domain.Buy, 10, 150)
	b.Add(2, domain.Buy, 10, 150)
	b.Add(3, domain.Buy, 10, 150)

	front, _ := b.FrontOrderID(domain.Buy, 150)
	if front != 1 {
		t.Fatalf("FrontOrderID = %d, want 1", front)
	}
	b.Delete(1)
	front, _ = b.FrontOrderID(domain.Buy, 150)
	if front != 2 {
		t.Fatalf("FrontOrderID after delete = %d, want 2", front)
	}
}

func TestBook_ReplaceSamePriceRewritesInPlace(t *testing.T) {
	b := New(1, testConfig())
	b.Add(1, domain.Buy, 10, 150)
	if !b.Replace(1, 2, 20, 150) {
		t.Fatal("Replace at the same price should succeed")
	}
	if _, ok := b.OrderRemaining(1); ok {
		t.Fatal("old id should no longer resolve")
	}
	rem, ok := b.OrderRemaining(2)
	if !ok || rem != 20 {
		t.Fatalf("OrderRemaining(2) = (%d, %v), want (20, true)", rem, ok)
	}
	lvl := b.LevelAt(domain.Buy, 150)
	if lvl.Quantity != 20 {
		t.Errorf("level quantity = %d, want 20", lvl.Quantity)
	}
}

func TestBook_ReplaceNewPriceMovesOrder(t *testing.T) {
	b := New(1, testConfig())
	b.Add(1, domain.Buy, 10, 150)
	if !b.Replace(1, 2, 10, 160) {
		t.Fatal("Replace at a new price should succeed")
	}
	if b.LevelAt(domain.Buy, 150).Quantity != 0 {
		t.Error("old level should be empty")
	}
	if b.LevelAt(domain.Buy, 160).Quantity != 10 {
		t.Error("new level should hold the moved quantity")
	}
	if b.BestBid() != 160 {
		t.Errorf("BestBid() = %d, want 160", b.BestBid())
	}
}

func TestBook_ReplaceUnknownIsNoOp(t *testing.T) {
	b := New(1, testConfig())
	if b.Replace(999, 1000, 10, 150) {
		t.Fatal("Replace of an unknown id should fail")
	}
}

func TestBook_BestBidCursorRescansOnEmpty(t *testing.T) {
	b := New(1, testConfig())
	b.Add(1, domain.Buy, 10, 150)
	b.Add(2, domain.Buy, 10, 140)
	if b.BestBid() != 150 {
		t.Fatalf("BestBid() = %d, want 150", b.BestBid())
	}
	b.Delete(1)
	if b.BestBid() != 140 {
		t.Fatalf("BestBid() after emptying top level = %d, want 140", b.BestBid())
	}
}

func TestBook_BestAskCursorRescansOnEmpty(t *testing.T) {
	b := New(1, testConfig())
	b.Add(1, domain.Sell, 10, 150)
	b.Add(2, domain.Sell, 10, 160)
	if b.BestAsk() != 150 {
		t.Fatalf("BestAsk() = %d, want 150", b.BestAsk())
	}
	b.Delete(1)
	if b.BestAsk() != 160 {
		t.Fatalf("BestAsk() after emptying top level = %d, want 160", b.BestAsk())
	}
}

func TestBook_TopLevelsOrdering(t *testing.T) {
	b := New(1, testConfig())
	b.Add(1, domain.Buy, 10, 150)
	b.Add(2, domain.Buy, 10, 160)
	b.Add(3, domain.Buy, 10, 155)

	var seen []domain.Price
	b.TopLevels(domain.Buy, 10, func(px domain.Price, lvl Level) {
		seen = append(seen, px)
	})
	want := []domain.Price{160, 155, 150}
	if len(seen) != len(want) {
		t.Fatalf("got %d levels, want %d", len(seen), len(want))
	}
	for i, px := range want {
		if seen[i] != px {
			t.Errorf("seen[%d] = %d, want %d", i, seen[i], px)
		}
	}
}

// TestProperty_LevelQuantityMatchesRestingOrders checks the invariant that a
// level's aggregate quantity always equals the sum of its resting orders'
// remaining quantity, under randomized add/execute/delete sequences.
func TestProperty_LevelQuantityMatchesRestingOrders(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := Config{PriceMin: 100, PriceMax: 110, HashCapacity: 256, PoolCapacity: 256, ProbeLimit: 32}
		b := New(1, cfg)
		live := map[domain.OrderID]domain.Quantity{}
		nextID := domain.OrderID(1)

		n := rapid.IntRange(1, 100).Draw(t, "n")
		for i := 0; i < n; i++ {
			op := rapid.SampledFrom([]string{"add", "execute", "delete"}).Draw(t, "op")
			switch op {
			case "add":
				id := nextID
				nextID++
				qty := domain.Quantity(rapid.IntRange(1, 50).Draw(t, "qty"))
				px := domain.Price(rapid.IntRange(100, 110).Draw(t, "px"))
				if b.Add(id, domain.Buy, qty, px) {
					live[id] = qty
				}
			case "execute":
				if len(live) == 0 {
					continue
				}
				id := pickKey(live)
				d := domain.Quantity(rapid.IntRange(1, 60).Draw(t, "d"))
				b.Execute(id, d)
				if d >= live[id] {
					delete(live, id)
				} else {
					live[id] -= d
				}
			case "delete":
				if len(live) == 0 {
					continue
				}
				id := pickKey(live)
				b.Delete(id)
				delete(live, id)
			}
		}

		var total domain.Quantity
		for _, qty := range live {
			total += qty
		}
		var levelTotal domain.Quantity
		for px := domain.Price(100); px <= 110; px++ {
			levelTotal += b.LevelAt(domain.Buy, px).Quantity
		}
		if levelTotal != total {
			t.Fatalf("sum of level quantities = %d, want %d (sum of live order remaining)", levelTotal, total)
		}
	})
}

func pickKey(m map[domain.OrderID]domain.Quantity) domain.OrderID {
	for k := range m {
		return k
	}
	return 0
}
