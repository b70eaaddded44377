package symbol

import (
	"sync"
	"time"

	"github.com/nasdaq/itchcore/internal/domain"
)

// Info is a symbol's trading metadata and running statistics.
type Info struct {
	ID    domain.SymbolID
	Name  string
	State domain.SymbolState

	TickSize    domain.Price
	MinPrice    domain.Price
	MaxPrice    domain.Price
	MinQuantity domain.Quantity
	MaxQuantity domain.Quantity
	LotSize     domain.Quantity

	SessionOpen  time.Time
	SessionClose time.Time

	TotalVolume  uint64
	TotalTrades  uint32
	ActiveOrders uint32
}

// CanTrade reports whether new orders are accepted in the symbol's
// current state.
func (i Info) CanTrade() bool { return i.State.CanTrade() }

// ManagerStats summarizes the manager's symbol population.
type ManagerStats struct {
	TotalSymbols   int
	ActiveSymbols  int
	TradingSymbols int
	TotalVolume    uint64
	TotalTrades    uint32
}

// Manager tracks per-symbol trading metadata: lifecycle state, tick/lot
// sizing, price/quantity bounds, and running volume statistics. It wraps
// a Table for name interning so callers have a single point of symbol
// registration.
type Manager struct {
	table *Table

	mu   sync.RWMutex
	info map[domain.SymbolID]*Info
}

// NewManager creates a manager backed by a fresh interning table.
func NewManager() *Manager {
	return &Manager{
		table: New(),
		info:  make(map[domain.SymbolID]*Info),
	}
}

// Table returns the underlying interning table, e.g. for the wire
// decoder to share.
func (m *Manager) Table() *Table { return m.table }

// AddSymbol interns name and registers default trading parameters for it,
// leaving the symbol Inactive until explicitly opened. Returns the
// existing id if name is already registered.
func (m *Manager) AddSymbol(name string, tickSize, minPrice, maxPrice domain.Price) domain.SymbolID {
	padded := make([]byte, nameLen)
	copy(padded, name)
	for i := len(name); i < nameLen; i++ {
		padded[i] = ' '
	}
	id := m.table.GetOrIntern(padded)
	if id == 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.info[id]; exists {
		return id
	}
	m.info[id] = &Info{
		ID:          id,
		Name:        name,
		State:       domain.Inactive,
		TickSize:    tickSize,
		MinPrice:    minPrice,
		MaxPrice:    maxPrice,
		MinQuantity: 1,
		MaxQuantity: 1000000,
		LotSize:     100,
	}
	return id
}

// EnsureSymbol interns name (if unseen) and lazily registers it with
// permissive defaults, for use by the decoder path where stock directory
// messages carry no trading-parameter fields.
func (m *Manager) EnsureSymbol(name8 []byte) domain.SymbolID {
	id := m.table.GetOrIntern(name8)
	if id == 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.info[id]; !exists {
		m.info[id] = &Info{
			ID:          id,
			Name:        string(trim(name8)),
			State:       domain.Inactive,
			TickSize:    1,
			MinPrice:    1,
			MaxPrice:    ^domain.Price(0),
			MinQuantity: 1,
			MaxQuantity: 1000000,
			LotSize:     1,
		}
	}
	return id
}

func (m *Manager) get(id domain.SymbolID) (*Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.info[id]
	return info, ok
}

// Info returns a snapshot of id's metadata.
func (m *Manager) Info(id domain.SymbolID) (Info, bool) {
	info, ok := m.get(id)
	if !ok {
		return Info{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *info, true
}

// SetState transitions id to state. Returns false if id is unregistered.
func (m *Manager) SetState(id domain.SymbolID, state domain.SymbolState) bool {
	info, ok := m.get(id)
	if !ok {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	info.State = state
	return true
}

// OpenTrading moves id into the Open state.
func (m *Manager) OpenTrading(id domain.SymbolID) bool { return m.SetState(id, domain.Open) }

// CloseTrading moves id into the Closed state.
func (m *Manager) CloseTrading(id domain.SymbolID) bool { return m.SetState(id, domain.Closed) }

// Halt moves id into the Halted state.
func (m *Manager) Halt(id domain.SymbolID) bool { return m.SetState(id, domain.Halted) }

// Resume moves a Halted or Suspended symbol back to Open.
func (m *Manager) Resume(id domain.SymbolID) bool {
	info, ok := m.get(id)
	if !ok {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if info.State != domain.Halted && info.State != domain.Suspended {
		return false
	}
	info.State = domain.Open
	return true
}

// CanTrade reports whether id currently accepts new orders.
func (m *Manager) CanTrade(id domain.SymbolID) bool {
	info, ok := m.get(id)
	if !ok {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return info.CanTrade()
}

// ValidatePrice reports whether px lies within id's configured price
// bounds and falls on a tick boundary. Unregistered symbols reject
// everything.
func (m *Manager) ValidatePrice(id domain.SymbolID, px domain.Price) bool {
	info, ok := m.get(id)
	if !ok {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if px < info.MinPrice || px > info.MaxPrice {
		return false
	}
	if info.TickSize != 0 && px%info.TickSize != 0 {
		return false
	}
	return true
}

// ValidateQuantity reports whether qty lies within id's configured size
// bounds.
func (m *Manager) ValidateQuantity(id domain.SymbolID, qty domain.Quantity) bool {
	info, ok := m.get(id)
	if !ok {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return qty >= info.MinQuantity && qty <= info.MaxQuantity
}

// RoundToTick rounds px down to the nearest multiple of id's tick size.
// Unregistered symbols or a zero tick size return px unchanged.
func (m *Manager) RoundToTick(id domain.SymbolID, px domain.Price) domain.Price {
	info, ok := m.get(id)
	if !ok {
		return px
	}
	m.mu.RLock()
	tick := info.TickSize
	m.mu.RUnlock()
	if tick == 0 {
		return px
	}
	return (px / tick) * tick
}

// RoundToLot rounds qty down to the nearest multiple of id's lot size.
func (m *Manager) RoundToLot(id domain.SymbolID, qty domain.Quantity) domain.Quantity {
	info, ok := m.get(id)
	if !ok {
		return qty
	}
	m.mu.RLock()
	lot := info.LotSize
	m.mu.RUnlock()
	if lot == 0 {
		return qty
	}
	return (qty / lot) * lot
}

// UpdateStats accumulates volume and, if isTrade, a trade count against
// id's running statistics.
func (m *Manager) UpdateStats(id domain.SymbolID, volume domain.Quantity, isTrade bool) {
	info, ok := m.get(id)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	info.TotalVolume += uint64(volume)
	if isTrade {
		info.TotalTrades++
	}
}

// OpenMarket transitions every PreOpen symbol to Open and stamps the
// session open time, for a bulk start-of-day rollover. Inactive symbols
// are left untouched: a symbol that was never explicitly activated
// doesn't get force-opened by a rollover.
func (m *Manager) OpenMarket(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, info := range m.info {
		if info.State == domain.PreOpen {
			info.State = domain.Open
			info.SessionOpen = at
		}
	}
}

// CloseMarket transitions every Open or PreOpen symbol to Closed and
// stamps the session close time.
func (m *Manager) CloseMarket(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, info := range m.info {
		if info.State == domain.Open || info.State == domain.PreOpen {
			info.State = domain.Closed
			info.SessionClose = at
		}
	}
}

// Each calls fn once per registered symbol with a snapshot of its info.
// Order is unspecified.
func (m *Manager) Each(fn func(Info)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, info := range m.info {
		fn(*info)
	}
}

// Stats summarizes the manager's current symbol population.
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var s ManagerStats
	s.TotalSymbols = len(m.info)
	for _, info := range m.info {
		if info.State != domain.Inactive {
			s.ActiveSymbols++
		}
		if info.State == domain.Open || info.State == domain.PreOpen {
			s.TradingSymbols++
		}
		s.TotalVolume += info.TotalVolume
		s.TotalTrades += info.TotalTrades
	}
	return s
}
