package simulated

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"stream-operators/src/interfaces"
	"stream-operators/src/logger"
	"stream-operators/src/models"
)

// -----------------------------------------------------------------------------

// Subscriber produces a random-walk price feed per symbol for offline use.
// Walks are seeded from the symbol so repeated runs see the same prices.
type Subscriber struct {
	Interval   time.Duration
	StartPrice float64
	Seed       int64
	Logger     *logger.Logger
}

func NewSubscriber(cfg models.MStreamConfig, log *logger.Logger) *Subscriber {
	if log == nil {
		log = logger.NewLogger(nil, "SimulatedSubscriber")
	}
	interval := time.Duration(cfg.SimulatedIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Subscriber{Interval: interval, StartPrice: 100, Logger: log}
}

func (s *Subscriber) rng(symbol string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return rand.New(rand.NewSource(s.Seed ^ int64(h.Sum64())))
}

// Subscribe syncs immediately with an initial price and then ticks every Interval.
func (s *Subscriber) Subscribe(ctx context.Context, symbol string) (interfaces.ISubscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := s.rng(symbol)
	start := s.StartPrice
	if start <= 0 {
		start = 100
	}
	start *= 0.5 + r.Float64()

	sub := &subscription{
		symbol:  symbol,
		rng:     r,
		updates: make(chan models.MStreamUpdate, 1),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	sub.latest = sub.event(round2(start))
	sub.hasLatest = true

	s.Logger.Debug("Simulated feed for %s starts at %.2f", symbol, sub.latest.Price)
	go sub.run(s.Interval)
	return sub, nil
}

// -----------------------------------------------------------------------------

type subscription struct {
	symbol string
	rng    *rand.Rand

	updates   chan models.MStreamUpdate
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu        sync.RWMutex
	latest    models.MStreamEvent
	hasLatest bool
}

func (s *subscription) Updates() <-chan models.MStreamUpdate { return s.updates }

func (s *subscription) Latest() (models.MStreamEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.hasLatest
}

func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		<-s.done
	})
	return nil
}

func (s *subscription) event(price float64) models.MStreamEvent {
	now := time.Now()
	return models.MStreamEvent{
		Symbol:     s.symbol,
		Price:      price,
		Timestamp:  now.UnixMilli(),
		Fields:     map[string]interface{}{"price": price, "timestamp": float64(now.UnixMilli())},
		ReceivedAt: now,
	}
}

// run delivers the initial value first, then one step per tick.
func (s *subscription) run(interval time.Duration) {
	defer close(s.done)
	defer close(s.updates)

	s.mu.RLock()
	current := s.latest
	s.mu.RUnlock()
	if !s.send(models.MStreamUpdate{Event: current}) {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.closing:
			return
		case <-ticker.C:
			step := s.rng.NormFloat64() * 0.01 * current.Price
			next := s.event(math.Max(0.01, round2(current.Price+step)))

			s.mu.Lock()
			s.latest = next
			s.mu.Unlock()

			if !s.send(models.MStreamUpdate{Event: next, Previous: current}) {
				return
			}
			current = next
		}
	}
}

func (s *subscription) send(u models.MStreamUpdate) bool {
	select {
	case s.updates <- u:
		return true
	case <-s.closing:
		return false
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
