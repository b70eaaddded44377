// Package apply routes decoded wire events to the right per-symbol order
// book (C10), tracking which symbol and side each live order belongs to
// since most ITCH message types after the initial add carry only an
// order reference number.
package apply

import (
	"sync"

	"github.com/nasdaq/itchcore/internal/book"
	"github.com/nasdaq/itchcore/internal/domain"
	"github.com/nasdaq/itchcore/internal/symbol"
	"github.com/nasdaq/itchcore/internal/wire"
)

type route struct {
	symbol domain.SymbolID
	side   domain.Side
}

// Layer applies decoded events to a book registry, maintaining the
// order-id-to-symbol/side routing table that Execute/Cancel/Delete/Replace
// messages need but do not themselves carry.
type Layer struct {
	registry *book.Registry
	symbols  *symbol.Manager

	mu     sync.Mutex
	routes map[domain.OrderID]route
}

// New creates an apply layer over registry. symbols is stored on the
// layer, but Apply does not consult it: Add events arrive with their
// symbol id already interned by the decoder.
func New(registry *book.Registry, symbols *symbol.Manager) *Layer {
	return &Layer{
		registry: registry,
		symbols:  symbols,
		routes:   make(map[domain.OrderID]route),
	}
}

// Registry exposes the underlying book registry for read-only
// introspection (e.g. publishing a snapshot after applying an event).
func (l *Layer) Registry() *book.Registry { return l.registry }

// Apply dispatches evt to the owning book and returns the symbol it
// affected (0 if evt was unroutable or a no-op). Zero-value and
// unroutable events (unknown order id for anything but Add) are silently
// ignored, matching feed semantics: the book is a passive observer of a
// feed that is assumed well-formed once arbitration has resolved gaps and
// dupes.
func (l *Layer) Apply(evt wire.Event) domain.SymbolID {
	switch evt.Kind {
	case wire.EventAdd:
		return l.applyAdd(evt)
	case wire.EventExecute:
		return l.applyExecute(evt)
	case wire.EventCancel:
		return l.applyCancel(evt)
	case wire.EventDelete:
		return l.applyDelete(evt)
	case wire.EventReplace:
		return l.applyReplace(evt)
	}
	return 0
}

func (l *Layer) applyAdd(evt wire.Event) domain.SymbolID {
	b := l.registry.GetOrCreate(evt.Symbol)
	if !b.Add(evt.ID, evt.Side, evt.Qty, evt.Price) {
		return 0
	}
	l.mu.Lock()
	l.routes[evt.ID] = route{symbol: evt.Symbol, side: evt.Side}
	l.mu.Unlock()
	return evt.Symbol
}

func (l *Layer) lookupRoute(id domain.OrderID) (route, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.routes[id]
	return r, ok
}

func (l *Layer) applyExecute(evt wire.Event) domain.SymbolID {
	r, ok := l.lookupRoute(evt.ID)
	if !ok {
		return 0
	}
	b, ok := l.registry.Get(r.symbol)
	if !ok {
		return 0
	}
	b.Execute(evt.ID, evt.Qty)
	l.forgetIfGone(evt.ID, r.symbol)
	return r.symbol
}

func (l *Layer) applyCancel(evt wire.Event) domain.SymbolID {
	r, ok := l.lookupRoute(evt.ID)
	if !ok {
		return 0
	}
	b, ok := l.registry.Get(r.symbol)
	if !ok {
		return 0
	}
	b.Cancel(evt.ID, evt.Qty)
	l.forgetIfGone(evt.ID, r.symbol)
	return r.symbol
}

func (l *Layer) applyDelete(evt wire.Event) domain.SymbolID {
	r, ok := l.lookupRoute(evt.ID)
	if !ok {
		return 0
	}
	b, ok := l.registry.Get(r.symbol)
	if !ok {
		return 0
	}
	b.Delete(evt.ID)
	l.mu.Lock()
	delete(l.routes, evt.ID)
	l.mu.Unlock()
	return r.symbol
}

func (l *Layer) applyReplace(evt wire.Event) domain.SymbolID {
	r, ok := l.lookupRoute(evt.ID)
	if !ok {
		return 0
	}
	b, ok := l.registry.Get(r.symbol)
	if !ok {
		return 0
	}
	if !b.Replace(evt.ID, evt.NewID, evt.Qty, evt.Price) {
		l.mu.Lock()
		delete(l.routes, evt.ID)
		l.mu.Unlock()
		return r.symbol
	}
	l.mu.Lock()
	delete(l.routes, evt.ID)
	l.routes[evt.NewID] = r
	l.mu.Unlock()
	return r.symbol
}

// forgetIfGone drops the routing entry for id once the book no longer
// carries it (fully executed away).
func (l *Layer) forgetIfGone(id domain.OrderID, sym domain.SymbolID) {
	b, ok := l.registry.Get(sym)
	if !ok {
		return
	}
	if _, live := b.OrderRemaining(id); live {
		return
	}
	l.mu.Lock()
	delete(l.routes, id)
	l.mu.Unlock()
}

// RouteCount returns the number of live order routes, for diagnostics.
func (l *Layer) RouteCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.routes)
}
