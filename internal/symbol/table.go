// Package symbol interns wire symbol names into dense IDs (C1) and tracks
// per-symbol trading state and validation rules (C7).
package symbol

import (
	"bytes"
	"sync"

	"github.com/nasdaq/itchcore/internal/domain"
)

// MaxSymbols bounds the table the way the reference design does (65535
// live symbols, id 0 reserved).
const MaxSymbols = 65535

const nameLen = 8

// Table interns fixed-width, space-padded symbol names into a dense
// domain.SymbolID. Single-writer (decoder thread); reads may run
// concurrently under the read lock.
type Table struct {
	mu       sync.RWMutex
	byName   map[[nameLen]byte]domain.SymbolID
	names    [][nameLen]byte // index 0 unused
	trimmed  [][]byte        // canonical trimmed view per id, borrows from names
}

// New creates an empty table.
func New() *Table {
	t := &Table{
		byName: make(map[[nameLen]byte]domain.SymbolID, 1024),
	}
	// id 0 reserved.
	t.names = append(t.names, [nameLen]byte{})
	t.trimmed = append(t.trimmed, nil)
	return t
}

// GetOrIntern returns the existing id for a padded 8-byte symbol name, or
// allocates the next id. Returns SymbolID 0 if the table is full.
func (t *Table) GetOrIntern(name8 []byte) domain.SymbolID {
	var key [nameLen]byte
	copy(key[:], name8)

	t.mu.RLock()
	if id, ok := t.byName[key]; ok {
		t.mu.RUnlock()
		return id
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	// Re-check under write lock in case of a race with another interner.
	if id, ok := t.byName[key]; ok {
		return id
	}

	if len(t.names) > MaxSymbols {
		return 0
	}

	id := domain.SymbolID(len(t.names))
	t.names = append(t.names, key)
	t.trimmed = append(t.trimmed, trim(t.names[id][:]))
	t.byName[key] = id
	return id
}

// Lookup returns the id already interned for name, without allocating one
// if it isn't present. Trailing padding is applied the same way
// GetOrIntern applies it, so a plain "AAPL" matches a symbol interned
// from the wire's space-padded 8-byte field.
func (t *Table) Lookup(name string) (domain.SymbolID, bool) {
	padded := make([]byte, nameLen)
	copy(padded, name)
	for i := len(name); i < nameLen; i++ {
		padded[i] = ' '
	}
	var key [nameLen]byte
	copy(key[:], padded)

	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byName[key]
	return id, ok
}

// View borrows the canonical trimmed name bytes for id, or nil if unknown.
func (t *Table) View(id domain.SymbolID) []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) >= len(t.trimmed) {
		return nil
	}
	return t.trimmed[id]
}

// Len returns the number of interned symbols (excluding the reserved 0).
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names) - 1
}

func trim(b []byte) []byte {
	return bytes.TrimRight(b, " ")
}
