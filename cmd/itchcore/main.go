// Command itchcore ingests a redundant pair of ITCH feeds, applies
// decoded events to per-symbol order books, crosses order-entry orders
// through a price-time-priority matching engine, and republishes market
// data to subscribers, all behind an operational HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nasdaq/itchcore/internal/apply"
	"github.com/nasdaq/itchcore/internal/book"
	"github.com/nasdaq/itchcore/internal/config"
	"github.com/nasdaq/itchcore/internal/domain"
	"github.com/nasdaq/itchcore/internal/feed"
	"github.com/nasdaq/itchcore/internal/handler"
	"github.com/nasdaq/itchcore/internal/marketdata"
	"github.com/nasdaq/itchcore/internal/matching"
	"github.com/nasdaq/itchcore/internal/perf"
	"github.com/nasdaq/itchcore/internal/symbol"
	"github.com/nasdaq/itchcore/internal/wire"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	bookCfg := book.Config{
		PriceMin:     domain.Price(cfg.PriceMin),
		PriceMax:     domain.Price(cfg.PriceMax),
		HashCapacity: cfg.HashCapacity,
		PoolCapacity: cfg.OrderPoolCapacity,
		ProbeLimit:   cfg.HashProbeLimit,
	}

	// Symbol registration/state is shared between the feed-mirror book and
	// the matching engine's own crossing venue.
	symbols := symbol.NewManager()

	// The feed's book is a passive replica of exchange-reported state.
	feedBooks := book.NewRegistry(bookCfg)
	applyLayer := apply.New(feedBooks, symbols)
	decoder := wire.New(symbols.Table())

	// The matching engine owns an independent book: the crossing venue for
	// order-entry orders this process actually accepts.
	engine := matching.New(bookCfg, symbols)

	pub := marketdata.New(marketdata.Config{
		MaxQueueSize:    cfg.MaxQueueSize,
		DefaultL2Depth:  cfg.DefaultL2Depth,
		DefaultThrottle: cfg.DefaultThrottle,
		EnableLevel1:    cfg.EnableLevel1,
		EnableLevel2:    cfg.EnableLevel2,
		EnableTrades:    cfg.EnableTrades,
		EnableStatus:    cfg.EnableStatus,
	})

	tracker := perf.NewTracker(cfg.LatencySampleCapacity)

	// Multicast reception is out of scope: these PopFuncs never yield a
	// packet. A real deployment plugs UDP readers for the A/B lines in
	// here; everything downstream (arbitration, decode, apply, publish)
	// is fully wired and ready to run against them.
	noFeed := func() (wire.PacketView, bool) { return wire.PacketView{}, false }
	arbiter := feed.New(noFeed, noFeed, cfg.GapCapacity, cfg.GapTTL)

	router := handler.NewRouter(symbols, engine, pub, tracker, cfg.DefaultL2Depth, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub.Start(ctx)
	go runIngestPipeline(ctx, arbiter, decoder, applyLayer, feedBooks, pub, tracker, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()
	pub.Stop()

	logger.Info("server stopped")
}

// runIngestPipeline pulls arbitrated messages, decodes them, applies them
// to the feed's book, and republishes a trade report for each execute
// event plus the resulting level 1 view to market-data subscribers. It
// backs off
// briefly when the arbiter has nothing buffered rather than busy-spinning
// while no feed reader is plugged into it.
func runIngestPipeline(
	ctx context.Context,
	arbiter *feed.Arbiter,
	decoder *wire.Decoder,
	applyLayer *apply.Layer,
	feedBooks *book.Registry,
	pub *marketdata.Publisher,
	tracker *perf.Tracker,
	logger *slog.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, ok := arbiter.NextMessage()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}

		stop := tracker.StartMeasurement()
		evt, _ := decoder.DecodeOne(msg.Data)
		if evt.IsZero() {
			stop()
			continue
		}

		sym := applyLayer.Apply(evt)
		stop()
		if sym == 0 {
			continue
		}

		if evt.Kind == wire.EventExecute {
			pub.PublishTrade(marketdata.TradeData{Symbol: sym, Price: evt.Price, Quantity: evt.Qty})
		}

		if b, ok := feedBooks.Get(sym); ok {
			bidPx, askPx := b.BestBid(), b.BestAsk()
			pub.PublishLevel1(marketdata.Level1Data{
				Symbol:   sym,
				BidPrice: bidPx,
				BidSize:  b.LevelAt(domain.Buy, bidPx).Quantity,
				AskPrice: askPx,
				AskSize:  b.LevelAt(domain.Sell, askPx).Quantity,
			})
		}
	}
}
