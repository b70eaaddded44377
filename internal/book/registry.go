package book

import (
	"sync"

	"github.com/google/btree"
	"github.com/nasdaq/itchcore/internal/domain"
)

// Registry owns one Book per symbol, created lazily on first reference.
// GetOrCreate uses double-checked locking so the common case (symbol
// already has a book) only takes a read lock.
type Registry struct {
	mu    sync.RWMutex
	cfg   Config
	books map[domain.SymbolID]*Book
	byID  *btree.BTreeG[domain.SymbolID]
}

func lessSymbolID(a, b domain.SymbolID) bool { return a < b }

// NewRegistry creates an empty registry that builds books with cfg.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:   cfg,
		books: make(map[domain.SymbolID]*Book),
		byID:  btree.NewG(32, lessSymbolID),
	}
}

// GetOrCreate returns the book for id, creating it on first reference.
func (r *Registry) GetOrCreate(id domain.SymbolID) *Book {
	r.mu.RLock()
	b, ok := r.books[id]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.books[id]; ok {
		return b
	}
	b = New(id, r.cfg)
	r.books[id] = b
	r.byID.ReplaceOrInsert(id)
	return b
}

// Get returns the book for id without creating one.
func (r *Registry) Get(id domain.SymbolID) (*Book, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[id]
	return b, ok
}

// Len returns the number of symbols with a book.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.books)
}

// Each calls fn for every book in ascending symbol id order.
func (r *Registry) Each(fn func(*Book)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.byID.Ascend(func(id domain.SymbolID) bool {
		fn(r.books[id])
		return true
	})
}
