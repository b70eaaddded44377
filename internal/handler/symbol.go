package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nasdaq/itchcore/internal/symbol"
)

// SymbolHandler exposes symbol registration state and lifecycle control.
type SymbolHandler struct {
	symbols *symbol.Manager
}

// NewSymbolHandler creates a SymbolHandler over symbols.
func NewSymbolHandler(symbols *symbol.Manager) *SymbolHandler {
	return &SymbolHandler{symbols: symbols}
}

// symbolInfoResponse is the JSON shape for one symbol's trading metadata.
type symbolInfoResponse struct {
	Symbol       string `json:"symbol"`
	State        string `json:"state"`
	TickSize     uint32 `json:"tick_size"`
	MinPrice     uint32 `json:"min_price"`
	MaxPrice     uint32 `json:"max_price"`
	LotSize      uint32 `json:"lot_size"`
	TotalVolume  uint64 `json:"total_volume"`
	TotalTrades  uint32 `json:"total_trades"`
	ActiveOrders uint32 `json:"active_orders"`
}

func toSymbolInfoResponse(info symbol.Info) symbolInfoResponse {
	return symbolInfoResponse{
		Symbol:       info.Name,
		State:        info.State.String(),
		TickSize:     uint32(info.TickSize),
		MinPrice:     uint32(info.MinPrice),
		MaxPrice:     uint32(info.MaxPrice),
		LotSize:      uint32(info.LotSize),
		TotalVolume:  info.TotalVolume,
		TotalTrades:  info.TotalTrades,
		ActiveOrders: info.ActiveOrders,
	}
}

// List returns every registered symbol's trading metadata.
func (h *SymbolHandler) List(w http.ResponseWriter, r *http.Request) {
	var out []symbolInfoResponse
	h.symbols.Each(func(info symbol.Info) {
		out = append(out, toSymbolInfoResponse(info))
	})
	WriteJSON(w, http.StatusOK, out)
}

// resolve looks up the symbol id named by the "symbol" URL parameter, or
// writes a 404 and returns ok=false.
func (h *SymbolHandler) resolve(w http.ResponseWriter, r *http.Request) (symbol.Info, bool) {
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

// Get returns one symbol's trading metadata.
func (h *SymbolHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, ok := h.resolve(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, toSymbolInfoResponse(info))
}

// Halt transitions a symbol to the halted state.
func (h *SymbolHandler) Halt(w http.ResponseWriter, r *http.Request) {
	info, ok := h.resolve(w, r)
	if !ok {
		return
	}
	h.symbols.Halt(info.ID)
	WriteJSON(w, http.StatusOK, map[string]string{"symbol": info.Name, "state": "HALTED"})
}

// Resume transitions a halted or suspended symbol back to open.
func (h *SymbolHandler) Resume(w http.ResponseWriter, r *http.Request) {
	info, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if !h.symbols.Resume(info.ID) {
		WriteError(w, http.StatusConflict, "invalid_transition", "symbol is not halted or suspended")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"symbol": info.Name, "state": "OPEN"})
}
