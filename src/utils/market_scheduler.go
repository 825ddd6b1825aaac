package utils

import (
	"sync"
	"time"

	"stream-operators/src/logger"
)

// MarketScheduler resolves and caches a trading calendar per symbol.
type MarketScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(symbols []string, l *logger.Logger) *MarketScheduler {
	if l == nil {
		l = logger.NewLogger(nil, "MarketScheduler")
	}
	ms := &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
	}
	for _, symbol := range symbols {
		ms.calendarFor(symbol)
	}
	return ms
}

// -----------------------------------------------------------------------------

func (ms *MarketScheduler) calendarFor(symbol string) *TradingCalendar {
	ms.mu.RLock()
	cal, ok := ms.Calendars[symbol]
	ms.mu.RUnlock()
	if ok {
		return cal
	}

	cal = GetCalendar(symbol)
	ms.mu.Lock()
	if existing, ok := ms.Calendars[symbol]; ok {
		cal = existing
	} else {
		ms.Calendars[symbol] = cal
		ms.Logger.Debug("MarketScheduler: %s mapped to %s", symbol, cal.MIC)
	}
	ms.mu.Unlock()
	return cal
}

// -----------------------------------------------------------------------------

// IsOpen reports whether symbol's market is in session at t.
func (ms *MarketScheduler) IsOpen(symbol string, t time.Time) bool {
	return ms.calendarFor(symbol).IsOpenOnMinute(t.UTC())
}

// -----------------------------------------------------------------------------

// AnyMarketOpen checks if ANY tracked market is currently open
func (ms *MarketScheduler) AnyMarketOpen() bool {
	now := time.Now().UTC()

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, cal := range ms.Calendars {
		if cal.IsOpenOnMinute(now) {
			return true
		}
	}
	return false
}
