package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nasdaq/itchcore/internal/marketdata"
	"github.com/nasdaq/itchcore/internal/matching"
	"github.com/nasdaq/itchcore/internal/perf"
	"github.com/nasdaq/itchcore/internal/symbol"
)

// NewRouter creates a chi router with every operational route registered
// and request logging middleware.
func NewRouter(
	symbols *symbol.Manager,
	engine *matching.Engine,
	pub *marketdata.Publisher,
	tracker *perf.Tracker,
	defaultL2Depth int,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogging(logger))

	symbolH := NewSymbolHandler(symbols)
	bookH := NewBookHandler(engine, symbols, defaultL2Depth)
	statsH := NewStatsHandler(tracker, pub, symbols)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/symbols", symbolH.List)
	r.Get("/symbols/{symbol}", symbolH.Get)
	r.Post("/symbols/{symbol}/halt", symbolH.Halt)
	r.Post("/symbols/{symbol}/resume", symbolH.Resume)

	r.Get("/books/{symbol}/level1", bookH.Level1)
	r.Get("/books/{symbol}/level2", bookH.Level2)

	r.Get("/stats/latency", statsH.Latency)
	r.Get("/stats/publisher", statsH.Publisher)
	r.Get("/stats/symbols", statsH.Symbols)

	return r
}

// requestLogging returns middleware that logs each request's method,
// path, status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}
