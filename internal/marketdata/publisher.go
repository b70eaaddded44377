// Package marketdata fans decoded book/trade/status events out to
// registered subscribers as a filtered, throttled, sequence-numbered
// message stream (C9).
package marketdata

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nasdaq/itchcore/internal/domain"
)

// Config controls which message classes the publisher emits and how its
// delivery queue and default per-subscription settings behave.
type Config struct {
	MaxQueueSize    int
	DefaultL2Depth  int
	DefaultThrottle time.Duration
	EnableLevel1    bool
	EnableLevel2    bool
	EnableTrades    bool
	EnableStatus    bool
}

// Stats counts messages published, broken down by type, plus subscriber
// count and back-pressure drops.
type Stats struct {
	TotalMessages   uint64
	Level1Messages  uint64
	Level2Messages  uint64
	TradeMessages   uint64
	StatusMessages  uint64
	Subscribers     int
	DroppedMessages uint64
}

// Publisher queues published messages and delivers them to matching
// subscribers on a single consumer goroutine, so a slow or malicious
// subscriber cannot block the matching/apply hot path that calls
// Publish*. The queue is bounded: once full, the oldest queued message is
// dropped to make room, and DroppedMessages counts the loss.
type Publisher struct {
	cfg Config

	queueMu sync.Mutex
	cond    *sync.Cond
	queue   []Message
	running bool
	done    chan struct{}

	subMu       sync.RWMutex
	subscribers map[uuid.UUID]*subscriberInfo

	statsMu sync.Mutex
	stats   Stats

	seqMu sync.Mutex
	seq   uint64
}

// New creates a publisher with the given configuration. Call Start to
// begin delivering queued messages.
func New(cfg Config) *Publisher {
	p := &Publisher{
		cfg:         cfg,
		subscribers: make(map[uuid.UUID]*subscriberInfo),
	}
	p.cond = sync.NewCond(&p.queueMu)
	return p
}

// Start launches the delivery goroutine. It stops when ctx is cancelled
// or Stop is called.
func (p *Publisher) Start(ctx context.Context) {
	p.queueMu.Lock()
	if p.running {
		p.queueMu.Unlock()
		return
	}
	p.running = true
	p.done = make(chan struct{})
	p.queueMu.Unlock()

	go p.loop()

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
}

// Stop halts the delivery goroutine after it drains any message already
// queued. Safe to call more than once.
func (p *Publisher) Stop() {
	p.queueMu.Lock()
	if !p.running {
		p.queueMu.Unlock()
		return
	}
	p.running = false
	done := p.done
	p.cond.Broadcast()
	p.queueMu.Unlock()
	<-done
}

// IsRunning reports whether the delivery goroutine is active.
func (p *Publisher) IsRunning() bool {
	p.queueMu.Lock()
	defer p.queueMu.Unlock()
	return p.running
}

func (p *Publisher) loop() {
	defer close(p.done)
	for {
		p.queueMu.Lock()
		for len(p.queue) == 0 && p.running {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && !p.running {
			p.queueMu.Unlock()
			return
		}
		msg := p.queue[0]
		p.queue = p.queue[1:]
		p.queueMu.Unlock()

		p.deliver(msg)
	}
}

// enqueue appends msg to the delivery queue, dropping the oldest queued
// message first if the queue is already at capacity.
func (p *Publisher) enqueue(msg Message) {
	p.seqMu.Lock()
	p.seq++
	msg.Sequence = p.seq
	p.seqMu.Unlock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	p.queueMu.Lock()
	if p.cfg.MaxQueueSize > 0 && len(p.queue) >= p.cfg.MaxQueueSize {
		p.queue = p.queue[1:]
		p.statsMu.Lock()
		p.stats.DroppedMessages++
		p.statsMu.Unlock()
	}
	p.queue = append(p.queue, msg)
	p.cond.Signal()
	p.queueMu.Unlock()
}

// AddSubscriber registers sub and returns its subscriber id.
func (p *Publisher) AddSubscriber(sub Subscriber) uuid.UUID {
	id := uuid.New()
	p.subMu.Lock()
	p.subscribers[id] = &subscriberInfo{
		subscriber: sub,
		subs:       make(map[uuid.UUID]*Subscription),
		active:     true,
	}
	p.subMu.Unlock()

	p.statsMu.Lock()
	p.stats.Subscribers = len(p.subscribers)
	p.statsMu.Unlock()
	return id
}

// RemoveSubscriber drops subscriberID and every subscription it holds.
func (p *Publisher) RemoveSubscriber(subscriberID uuid.UUID) bool {
	p.subMu.Lock()
	_, ok := p.subscribers[subscriberID]
	if ok {
		delete(p.subscribers, subscriberID)
	}
	p.subMu.Unlock()

	if ok {
		p.statsMu.Lock()
		p.stats.Subscribers = len(p.subscribers)
		p.statsMu.Unlock()
	}
	return ok
}

func (p *Publisher) defaultDepth(maxDepth int) int {
	if maxDepth > 0 {
		return maxDepth
	}
	return p.cfg.DefaultL2Depth
}

func (p *Publisher) defaultThrottle(throttle time.Duration) time.Duration {
	if throttle > 0 {
		return throttle
	}
	return p.cfg.DefaultThrottle
}

// Subscribe registers a filter for subscriberID and returns the new
// subscription's id. maxDepth and throttle of zero fall back to the
// publisher's configured defaults.
func (p *Publisher) Subscribe(subscriberID uuid.UUID, symbol domain.SymbolID, msgType MessageType, maxDepth int, throttle time.Duration) (uuid.UUID, bool) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	info, ok := p.subscribers[subscriberID]
	if !ok {
		return uuid.UUID{}, false
	}
	subID := uuid.New()
	info.subs[subID] = &Subscription{
		ID:       subID,
		Symbol:   symbol,
		Type:     msgType,
		Enabled:  true,
		MaxDepth: p.defaultDepth(maxDepth),
		Throttle: p.defaultThrottle(throttle),
	}
	return subID, true
}

// SubscribeAllSymbols is Subscribe with symbol wildcarded to 0.
func (p *Publisher) SubscribeAllSymbols(subscriberID uuid.UUID, msgType MessageType, maxDepth int, throttle time.Duration) (uuid.UUID, bool) {
	return p.Subscribe(subscriberID, 0, msgType, maxDepth, throttle)
}

// SubscribeSymbolList subscribes subscriberID to each symbol in symbols
// individually and returns the resulting subscription ids in order.
func (p *Publisher) SubscribeSymbolList(subscriberID uuid.UUID, symbols []domain.SymbolID, msgType MessageType, maxDepth int, throttle time.Duration) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(symbols))
	for _, sym := range symbols {
		if id, ok := p.Subscribe(subscriberID, sym, msgType, maxDepth, throttle); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Unsubscribe removes one subscription from subscriberID.
func (p *Publisher) Unsubscribe(subscriberID, subscriptionID uuid.UUID) bool {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	info, ok := p.subscribers[subscriberID]
	if !ok {
		return false
	}
	if _, ok := info.subs[subscriptionID]; !ok {
		return false
	}
	delete(info.subs, subscriptionID)
	return true
}

// SubscriberCount returns the number of registered subscribers.
func (p *Publisher) SubscriberCount() int {
	p.subMu.RLock()
	defer p.subMu.RUnlock()
	return len(p.subscribers)
}

// deliver finds every subscription across every subscriber matching msg
// and due for delivery, updates their throttle clocks, and calls Deliver
// outside the subscriber lock so a slow subscriber cannot stall matching
// against other subscribers.
func (p *Publisher) deliver(msg Message) {
	now := time.Now()
	type target struct {
		subscriber Subscriber
		out        Message
	}
	var targets []target

	p.subMu.Lock()
	for _, info := range p.subscribers {
		if !info.active {
			continue
		}
		for _, sub := range info.subs {
			if !sub.matches(msg) || !sub.dueAt(now) {
				continue
			}
			sub.LastSent = now
			targets = append(targets, target{subscriber: info.subscriber, out: p.shapeForSubscription(msg, sub)})
		}
	}
	p.subMu.Unlock()

	for _, t := range targets {
		deliverSafely(t.subscriber, t.out)
	}

	p.statsMu.Lock()
	p.stats.TotalMessages++
	switch msg.Type {
	case Level1Update, SnapshotL1:
		p.stats.Level1Messages++
	case Level2Update, SnapshotL2:
		p.stats.Level2Messages++
	case TradeReport:
		p.stats.TradeMessages++
	case SymbolStatus:
		p.stats.StatusMessages++
	}
	p.statsMu.Unlock()
}

// shapeForSubscription truncates an L2 snapshot to sub's configured
// depth. Every other message type is delivered unchanged.
func (p *Publisher) shapeForSubscription(msg Message, sub *Subscription) Message {
	if msg.Type != Level2Update && msg.Type != SnapshotL2 {
		return msg
	}
	if msg.Level2.Action != L2Snapshot {
		return msg
	}
	depth := sub.MaxDepth
	if depth <= 0 {
		return msg
	}
	out := msg
	if len(out.Level2.Bids) > depth {
		out.Level2.Bids = out.Level2.Bids[:depth]
	}
	if len(out.Level2.Asks) > depth {
		out.Level2.Asks = out.Level2.Asks[:depth]
	}
	return out
}

// PublishLevel1 enqueues an inside-market update, a no-op if level 1
// publishing is disabled in Config.
func (p *Publisher) PublishLevel1(data Level1Data) {
	if !p.cfg.EnableLevel1 {
		return
	}
	p.enqueue(Message{Type: Level1Update, Symbol: data.Symbol, Level1: data})
}

// PublishLevel2Snapshot enqueues a full depth-of-book snapshot.
func (p *Publisher) PublishLevel2Snapshot(symbol domain.SymbolID, bids, asks []L2PriceLevel) {
	if !p.cfg.EnableLevel2 {
		return
	}
	p.enqueue(Message{
		Type:   Level2Update,
		Symbol: symbol,
		Level2: Level2Data{Symbol: symbol, Action: L2Snapshot, Bids: bids, Asks: asks},
	})
}

// PublishLevel2Incremental enqueues a single changed price level.
func (p *Publisher) PublishLevel2Incremental(symbol domain.SymbolID, side domain.Side, level L2PriceLevel) {
	if !p.cfg.EnableLevel2 {
		return
	}
	p.enqueue(Message{
		Type:   Level2Update,
		Symbol: symbol,
		Level2: Level2Data{Symbol: symbol, Side: side, Action: L2Incremental, Level: level},
	})
}

// PublishTrade enqueues a trade report.
func (p *Publisher) PublishTrade(data TradeData) {
	if !p.cfg.EnableTrades {
		return
	}
	p.enqueue(Message{Type: TradeReport, Symbol: data.Symbol, Trade: data})
}

// PublishSymbolStatus enqueues a symbol state-change notification.
func (p *Publisher) PublishSymbolStatus(data SymbolStatusData) {
	if !p.cfg.EnableStatus {
		return
	}
	p.enqueue(Message{Type: SymbolStatus, Symbol: data.Symbol, Status: data})
}

// SendLevel1Snapshot delivers data to subscriberID directly, bypassing
// the queue and throttle so a freshly-subscribed client gets an
// immediate, unfiltered picture of the current market.
func (p *Publisher) SendLevel1Snapshot(subscriberID uuid.UUID, data Level1Data) bool {
	p.subMu.RLock()
	info, ok := p.subscribers[subscriberID]
	p.subMu.RUnlock()
	if !ok {
		return false
	}
	deliverSafely(info.subscriber, Message{Type: SnapshotL1, Symbol: data.Symbol, Timestamp: time.Now(), Level1: data})
	return true
}

// SendLevel2Snapshot delivers a full depth snapshot to subscriberID
// directly, bypassing the queue and throttle, truncated to depth (or the
// publisher's default if depth is zero).
func (p *Publisher) SendLevel2Snapshot(subscriberID uuid.UUID, symbol domain.SymbolID, bids, asks []L2PriceLevel, depth int) bool {
	p.subMu.RLock()
	info, ok := p.subscribers[subscriberID]
	p.subMu.RUnlock()
	if !ok {
		return false
	}
	d := p.defaultDepth(depth)
	if d > 0 {
		if len(bids) > d {
			bids = bids[:d]
		}
		if len(asks) > d {
			asks = asks[:d]
		}
	}
	deliverSafely(info.subscriber, Message{
		Type:      SnapshotL2,
		Symbol:    symbol,
		Timestamp: time.Now(),
		Level2:    Level2Data{Symbol: symbol, Action: L2Snapshot, Bids: bids, Asks: asks},
	})
	return true
}

// deliverSafely calls sub.Deliver, recovering a panic so one faulty
// subscriber can't take down the publisher's delivery loop.
func deliverSafely(sub Subscriber, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("subscriber panicked during delivery", slog.Any("panic", r))
		}
	}()
	sub.Deliver(msg)
}

// Stats returns a snapshot of the publisher's running counters.
func (p *Publisher) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

// ResetStats zeroes every counter except the current subscriber count.
func (p *Publisher) ResetStats() {
	p.statsMu.Lock()
	subs := p.stats.Subscribers
	p.stats = Stats{Subscribers: subs}
	p.statsMu.Unlock()
}

// QueueLen reports how many messages are currently queued for delivery,
// for diagnostics and tests.
func (p *Publisher) QueueLen() int {
	p.queueMu.Lock()
	defer p.queueMu.Unlock()
	return len(p.queue)
}
