package pricing

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process price store fed by the websocket feed. Reads
// fall back to the wrapped source until the feed has delivered a tick for the
// requested symbol, so the bot can start trading before the stream warms up.
type MemoryStore struct {
	mu       sync.RWMutex
	prices   map[string]float64
	fallback Source
}

// NewMemoryStore creates a MemoryStore. fallback may be nil, in which case
// missing symbols return domain.ErrNoPrice.
func NewMemoryStore(fallback Source) *MemoryStore {
	return &MemoryStore{
		prices:   make(map[string]float64),
		fallback: fallback,
	}
}

// SetPrice records the latest price for symbol. The timestamp is accepted for
// interface symmetry with the Redis cache; the in-memory store always serves
// the most recent write.
func (m *MemoryStore) SetPrice(symbol string, price float64, _ time.Time) {
	m.mu.Lock()
	m.prices[symbol] = price
	m.mu.Unlock()
}

// Price implements Source.
func (m *MemoryStore) Price(ctx context.Context, symbol string) (float64, error) {
	m.mu.RLock()
	p, ok := m.prices[symbol]
	m.mu.RUnlock()
	if ok {
		return p, nil
	}
	if m.fallback != nil {
		return m.fallback.Price(ctx, symbol)
	}
	return 0, errNoPrice(symbol)
}

// Name implements Source.
func (m *MemoryStore) Name() string { return "live" }
