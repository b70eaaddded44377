package handler

import (
	"net/http"

	"github.com/nasdaq/itchcore/internal/marketdata"
	"github.com/nasdaq/itchcore/internal/perf"
	"github.com/nasdaq/itchcore/internal/symbol"
)

// StatsHandler exposes the running counters kept by the latency tracker,
// the market-data publisher, and the symbol manager.
type StatsHandler struct {
	tracker *perf.Tracker
	pub     *marketdata.Publisher
	symbols *symbol.Manager
}

// NewStatsHandler creates a StatsHandler over the given components.
func NewStatsHandler(tracker *perf.Tracker, pub *marketdata.Publisher, symbols *symbol.Manager) *StatsHandler {
	return &StatsHandler{tracker: tracker, pub: pub, symbols: symbols}
}

// Latency returns the current p50/p95/p99 latency snapshot.
func (h *StatsHandler) Latency(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.tracker.Stats())
}

// Publisher returns the market-data publisher's delivery counters.
func (h *StatsHandler) Publisher(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.pub.Stats())
}

// Symbols returns aggregate symbol-population statistics.
func (h *StatsHandler) Symbols(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.symbols.Stats())
}
