package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the ingestion/matching/publishing
// core.
type Config struct {
	Port     int
	LogLevel string

	// Book (C5) — price domain and per-symbol capacities.
	PriceMin          uint32
	PriceMax          uint32
	HashCapacity      int
	OrderPoolCapacity int
	HashProbeLimit    int

	// Feed arbiter (C3).
	GapCapacity int
	GapTTL      time.Duration

	// Market-data publisher (C9).
	MaxQueueSize     int
	DefaultL2Depth   int
	DefaultThrottle  time.Duration
	EnableLevel1     bool
	EnableLevel2     bool
	EnableTrades     bool
	EnableStatus     bool

	// Latency tracker (C11).
	LatencySampleCapacity int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	priceMin, err := getInt("PRICE_MIN", 40000)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_MIN: %w", err)
	}
	priceMax, err := getInt("PRICE_MAX", 60000)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_MAX: %w", err)
	}
	if priceMax <= priceMin {
		return nil, fmt.Errorf("invalid price domain: PRICE_MAX (%d) must be > PRICE_MIN (%d)", priceMax, priceMin)
	}

	hashCapacity, err := getInt("HASH_CAPACITY", 65536)
	if err != nil {
		return nil, fmt.Errorf("invalid HASH_CAPACITY: %w", err)
	}
	if hashCapacity <= 0 || hashCapacity&(hashCapacity-1) != 0 {
		return nil, fmt.Errorf("invalid HASH_CAPACITY: %d must be a positive power of two", hashCapacity)
	}

	orderPoolCapacity, err := getInt("ORDER_POOL_CAPACITY", 1_000_000)
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_POOL_CAPACITY: %w", err)
	}

	hashProbeLimit, err := getInt("HASH_PROBE_LIMIT", 64)
	if err != nil {
		return nil, fmt.Errorf("invalid HASH_PROBE_LIMIT: %w", err)
	}

	gapCapacity, err := getInt("GAP_CAPACITY", 65536)
	if err != nil {
		return nil, fmt.Errorf("invalid GAP_CAPACITY: %w", err)
	}

	gapTTL, err := getDuration("GAP_TTL", 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid GAP_TTL: %w", err)
	}

	maxQueueSize, err := getInt("MAX_QUEUE_SIZE", 10000)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_QUEUE_SIZE: %w", err)
	}

	defaultL2Depth, err := getInt("DEFAULT_L2_DEPTH", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_L2_DEPTH: %w", err)
	}

	defaultThrottle, err := getDuration("DEFAULT_THROTTLE", 1*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_THROTTLE: %w", err)
	}

	enableLevel1, err := getBool("ENABLE_LEVEL1", true)
	if err != nil {
		return nil, fmt.Errorf("invalid ENABLE_LEVEL1: %w", err)
	}
	enableLevel2, err := getBool("ENABLE_LEVEL2", true)
	if err != nil {
		return nil, fmt.Errorf("invalid ENABLE_LEVEL2: %w", err)
	}
	enableTrades, err := getBool("ENABLE_TRADES", true)
	if err != nil {
		return nil, fmt.Errorf("invalid ENABLE_TRADES: %w", err)
	}
	enableStatus, err := getBool("ENABLE_STATUS", true)
	if err != nil {
		return nil, fmt.Errorf("invalid ENABLE_STATUS: %w", err)
	}

	latencySampleCapacity, err := getInt("LATENCY_SAMPLE_CAPACITY", 100000)
	if err != nil {
		return nil, fmt.Errorf("invalid LATENCY_SAMPLE_CAPACITY: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:                  port,
		LogLevel:              logLevel,
		PriceMin:              uint32(priceMin),
		PriceMax:              uint32(priceMax),
		HashCapacity:          hashCapacity,
		OrderPoolCapacity:     orderPoolCapacity,
		HashProbeLimit:        hashProbeLimit,
		GapCapacity:           gapCapacity,
		GapTTL:                gapTTL,
		MaxQueueSize:          maxQueueSize,
		DefaultL2Depth:        defaultL2Depth,
		DefaultThrottle:       defaultThrottle,
		EnableLevel1:          enableLevel1,
		EnableLevel2:          enableLevel2,
		EnableTrades:          enableTrades,
		EnableStatus:          enableStatus,
		LatencySampleCapacity: latencySampleCapacity,
		ReadTimeout:           readTimeout,
		WriteTimeout:          writeTimeout,
		IdleTimeout:           idleTimeout,
		ShutdownTimeout:       shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
