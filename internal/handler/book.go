package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nasdaq/itchcore/internal/matching"
	"github.com/nasdaq/itchcore/internal/symbol"
)

// BookHandler exposes read-only order-book snapshots from the matching
// engine's crossing venue.
type BookHandler struct {
	engine       *matching.Engine
	symbols      *symbol.Manager
	defaultDepth int
}

// NewBookHandler creates a BookHandler over engine, resolving symbol
// names through symbols and defaulting Level2 depth to defaultDepth.
func NewBookHandler(engine *matching.Engine, symbols *symbol.Manager, defaultDepth int) *BookHandler {
	return &BookHandler{engine: engine, symbols: symbols, defaultDepth: defaultDepth}
}

func (h *BookHandler) resolveSymbol(w http.ResponseWriter, r *http.Request) (symbol.Info, bool) {
	name := chi.URLParam(r, "symbol")
	id, ok := h.symbols.Table().Lookup(name)
	if !ok {
		WriteError(w, http.StatusNotFound, "unknown_symbol", "no such symbol: "+name)
		return symbol.Info{}, false
	}
	info, ok := h.symbols.Info(id)
	if !ok {
		WriteError(w, http.StatusNotFound, "unknown_symbol", "no such symbol: "+name)
		return symbol.Info{}, false
	}
	return info, true
}

type level1Response struct {
	Symbol   string `json:"symbol"`
	BidPrice uint32 `json:"bid_price"`
	AskPrice uint32 `json:"ask_price"`
}

// Level1 returns the current inside market for a symbol.
func (h *BookHandler) Level1(w http.ResponseWriter, r *http.Request) {
	info, ok := h.resolveSymbol(w, r)
	if !ok {
		return
	}
	l1 := h.engine.GetLevel1(info.ID)
	WriteJSON(w, http.StatusOK, level1Response{
		Symbol:   info.Name,
		BidPrice: uint32(l1.BidPrice),
		AskPrice: uint32(l1.AskPrice),
	})
}

type level2Row struct {
	Price    uint32 `json:"price"`
	Quantity uint32 `json:"quantity"`
	Orders   uint32 `json:"orders"`
}

type level2Response struct {
	Symbol string      `json:"symbol"`
	Bids   []level2Row `json:"bids"`
	Asks   []level2Row `json:"asks"`
}

// Level2 returns a depth-of-book snapshot for a symbol, best price first
// on each side. The "depth" query parameter overrides the handler's
// default depth.
func (h *BookHandler) Level2(w http.ResponseWriter, r *http.Request) {
	info, ok := h.resolveSymbol(w, r)
	if !ok {
		return
	}
	depth := h.defaultDepth
	if raw := r.URL.Query().Get("depth"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			depth = n
		}
	}

	bids, asks := h.engine.GetLevel2(info.ID, depth)
	WriteJSON(w, http.StatusOK, level2Response{
		Symbol: info.Name,
		Bids:   toLevel2Rows(bids),
		Asks:   toLevel2Rows(asks),
	})
}

func toLevel2Rows(rows []matching.Level2Row) []level2Row {
	out := make([]level2Row, len(rows))
	for i, r := range rows {
		out[i] = level2Row{Price: uint32(r.Price), Quantity: uint32(r.Quantity), Orders: r.Orders}
	}
	return out
}
