// Package matching implements price-time-priority crossing of
// order-entry orders against a symbol's resting book (C8).
//
// This engine owns its own book registry, independent of the one the
// market-data apply layer mirrors from the ITCH feed: the feed's book is
// a read-only replica of exchange state, while this one is the crossing
// venue for orders this process actually accepts.
package matching

import (
	"sync"
	"time"

	"github.com/nasdaq/itchcore/internal/book"
	"github.com/nasdaq/itchcore/internal/domain"
	"github.com/nasdaq/itchcore/internal/symbol"
)

// Order is an incoming order-entry request.
type Order struct {
	ID       domain.OrderID
	Symbol   domain.SymbolID
	Side     domain.Side
	Type     domain.OrderType
	TIF      domain.TimeInForce
	Price    domain.Price // ignored for Type == Market
	Quantity domain.Quantity
}

// Fill records one execution produced by crossing an aggressive order
// against a resting passive order actually present in the book.
type Fill struct {
	Symbol       domain.SymbolID
	AggressiveID domain.OrderID
	PassiveID    domain.OrderID
	Price        domain.Price
	Quantity     domain.Quantity
	Time         time.Time
}

// Result is the outcome of processing one order.
type Result struct {
	Status domain.OrderStatus
	Filled domain.Quantity
	Fills  []Fill
}

func (r Result) fullyFilled(requested domain.Quantity) bool { return r.Filled >= requested }

// Engine crosses orders against per-symbol books with price-time
// priority. A symbol's book is only ever touched from within a single
// ProcessOrder/Cancel/Replace call at a time; callers sharding work by
// symbol get lock-free hot paths: Engine's own lock guards only its
// active-order map (the registry locks its own lookups), never a match
// pass.
type Engine struct {
	books   *book.Registry
	symbols *symbol.Manager

	mu     sync.Mutex
	active map[domain.OrderID]Order
}

// New creates a matching engine whose books use cfg for price domain and
// arena/hash-index sizing.
func New(cfg book.Config, symbols *symbol.Manager) *Engine {
	return &Engine{
		books:   book.NewRegistry(cfg),
		symbols: symbols,
		active:  make(map[domain.OrderID]Order),
	}
}

// Books exposes the underlying registry for read-only introspection
// (level 1/2 snapshots, diagnostics).
func (e *Engine) Books() *book.Registry { return e.books }

// ProcessOrder validates, crosses, and (for DAY/GTC limit orders with a
// remainder) rests order. Market orders and IOC/FOK orders never rest.
func (e *Engine) ProcessOrder(order Order) Result {
	if order.Quantity == 0 {
		return Result{Status: domain.StatusRejected}
	}
	if e.symbols != nil {
		if !e.symbols.CanTrade(order.Symbol) {
			return Result{Status: domain.StatusRejected}
		}
		if order.Type == domain.Limit && !e.symbols.ValidatePrice(order.Symbol, order.Price) {
			return Result{Status: domain.StatusRejected}
		}
		if !e.symbols.ValidateQuantity(order.Symbol, order.Quantity) {
			return Result{Status: domain.StatusRejected}
		}
		if order.Type == domain.Limit {
			order.Price = e.symbols.RoundToTick(order.Symbol, order.Price)
		}
		order.Quantity = e.symbols.RoundToLot(order.Symbol, order.Quantity)
	}

	b := e.books.GetOrCreate(order.Symbol)
	market := order.Type == domain.Market

	if market {
		noLiquidity := (order.Side == domain.Buy && b.BestAsk() == 0) ||
			(order.Side == domain.Sell && b.BestBid() == 0)
		if noLiquidity {
			return Result{Status: domain.StatusRejected}
		}
	}

	if order.TIF == domain.FOK {
		available := b.AvailableToCross(order.Side, order.Price, market, order.Quantity)
		if available < order.Quantity {
			// Nothing has been mutated yet: the pre-check runs before any
			// execution is issued, so a failed FOK never needs reversal.
			return Result{Status: domain.StatusCanceled}
		}
	}

	e.mu.Lock()
	e.active[order.ID] = order
	e.mu.Unlock()

	result := e.attemptCross(order, b)
	remaining := order.Quantity - result.Filled

	canRest := remaining > 0 && order.Type == domain.Limit &&
		(order.TIF == domain.DAY || order.TIF == domain.GTC)

	switch {
	case remaining == 0:
		result.Status = domain.StatusFilled
	case canRest:
		b.Add(order.ID, order.Side, remaining, order.Price)
		if result.Filled == 0 {
			result.Status = domain.StatusNew
		} else {
			result.Status = domain.StatusPartiallyFilled
		}
	default:
		// IOC/FOK/market remainder, or a DAY/GTC order the book rejected:
		// never rests.
		result.Status = domain.StatusCanceled
	}

	e.mu.Lock()
	if canRest {
		order.Quantity = remaining
		e.active[order.ID] = order
	} else {
		delete(e.active, order.ID)
	}
	e.mu.Unlock()

	return result
}

// attemptCross walks the opposite side's resting orders in price-time
// priority, executing against the real passive order at the front of
// each crossing level — never a synthetic counterparty — until the
// aggressive order is filled, the book runs out of crossing liquidity, or
// (for IOC) no further attempts are allowed once liquidity is exhausted.
func (e *Engine) attemptCross(order Order, b *book.Book) Result {
	var result Result
	remaining := order.Quantity
	market := order.Type == domain.Market

	for remaining > 0 {
		oppSide := order.Side.Opposite()
		var bestPx domain.Price
		if oppSide == domain.Sell {
			bestPx = b.BestAsk()
		} else {
			bestPx = b.BestBid()
		}
		if bestPx == 0 {
			break
		}

		if !market {
			if order.Side == domain.Buy && order.Price < bestPx {
				break
			}
			if order.Side == domain.Sell && order.Price > bestPx {
				break
			}
		}

		passiveID, ok := b.FrontOrderID(oppSide, bestPx)
		if !ok {
			break
		}
		passiveRemaining, ok := b.OrderRemaining(passiveID)
		if !ok {
			break
		}

		fillQty := remaining
		if passiveRemaining < fillQty {
			fillQty = passiveRemaining
		}

		b.Execute(passiveID, fillQty)

		result.Fills = append(result.Fills, Fill{
			Symbol:       order.Symbol,
			AggressiveID: order.ID,
			PassiveID:    passiveID,
			Price:        bestPx,
			Quantity:     fillQty,
		})
		result.Filled += fillQty
		remaining -= fillQty

		if e.symbols != nil {
			e.symbols.UpdateStats(order.Symbol, fillQty, true)
		}
	}

	return result
}

// CancelOrder removes a resting order from its book. Returns false if the
// order is unknown or already terminal.
func (e *Engine) CancelOrder(id domain.OrderID) bool {
	e.mu.Lock()
	order, ok := e.active[id]
	if ok {
		delete(e.active, id)
	}
	e.mu.Unlock()
	if !ok {
		return false
	}
	b, ok := e.books.Get(order.Symbol)
	if !ok {
		return false
	}
	return b.Delete(id)
}

// ReplaceOrder cancels oldID and, if it was still resting, submits a
// fresh order at the new price/quantity through the normal crossing path
// (a reprice can newly cross the book, unlike a same-price quantity
// change).
func (e *Engine) ReplaceOrder(oldID, newID domain.OrderID, qty domain.Quantity, px domain.Price) Result {
	e.mu.Lock()
	order, ok := e.active[oldID]
	e.mu.Unlock()
	if !ok {
		return Result{Status: domain.StatusRejected}
	}

	e.CancelOrder(oldID)

	order.ID = newID
	order.Quantity = qty
	order.Price = px
	return e.ProcessOrder(order)
}

// Level1 is a snapshot of a symbol's inside market.
type Level1 struct {
	Symbol   domain.SymbolID
	BidPrice domain.Price
	AskPrice domain.Price
}

// GetLevel1 returns the current inside market for symbol.
func (e *Engine) GetLevel1(sym domain.SymbolID) Level1 {
	b, ok := e.books.Get(sym)
	if !ok {
		return Level1{Symbol: sym}
	}
	return Level1{Symbol: sym, BidPrice: b.BestBid(), AskPrice: b.BestAsk()}
}

// Level2Row is one price level in a depth snapshot.
type Level2Row struct {
	Price    domain.Price
	Quantity domain.Quantity
	Orders   uint32
}

// GetLevel2 returns up to depth price levels per side for symbol, best
// price first.
func (e *Engine) GetLevel2(sym domain.SymbolID, depth int) (bids, asks []Level2Row) {
	b, ok := e.books.Get(sym)
	if !ok {
		return nil, nil
	}
	b.TopLevels(domain.Buy, depth, func(px domain.Price, lvl book.Level) {
		bids = append(bids, Level2Row{Price: px, Quantity: lvl.Quantity, Orders: lvl.Count})
	})
	b.TopLevels(domain.Sell, depth, func(px domain.Price, lvl book.Level) {
		asks = append(asks, Level2Row{Price: px, Quantity: lvl.Quantity, Orders: lvl.Count})
	})
	return bids, asks
}
