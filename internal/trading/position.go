// Package trading contains the position lifecycle: sizing, parameter
// generation, the single-position state machine, the close/verify protocol,
// the startup reconciliation sweep, and the controller loop that sequences
// them.
package trading

import (
	"math/rand"
	"sync"
	"time"

	"github.com/alanyoungcy/pacificabot/internal/config"
	"github.com/alanyoungcy/pacificabot/internal/domain"
)

// Manager owns the single in-flight position record and its hold-time policy.
// It is a tiny synchronous state machine with two states, empty and open; the
// controller sequences all network activity around it.
type Manager struct {
	mu      sync.Mutex
	cfg     *config.TradingConfig
	rng     *rand.Rand
	now     func() time.Time
	current *domain.Position
}

// NewManager creates an empty Manager. rng feeds the hold-time draw; now is
// the clock, overridable in tests.
func NewManager(cfg *config.TradingConfig, rng *rand.Rand, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{cfg: cfg, rng: rng, now: now}
}

// HasPosition reports whether a position is currently open.
func (m *Manager) HasPosition() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// holdTime draws the hold duration for a new position: the fixed legacy
// override when configured, otherwise a uniform integer draw from the
// configured bounds.
func (m *Manager) holdTime() int {
	if m.cfg.HoldMinutes > 0 {
		return m.cfg.HoldMinutes
	}
	return m.cfg.MinHoldMinutes + m.rng.Intn(m.cfg.MaxHoldMinutes-m.cfg.MinHoldMinutes+1)
}

// Open records a new position with a freshly drawn hold time and returns it.
func (m *Manager) Open(symbol string, side domain.Side, amount, orderID string) domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos := domain.Position{
		Symbol:      symbol,
		Side:        side,
		Amount:      amount,
		OrderID:     orderID,
		HoldMinutes: m.holdTime(),
		OpenedAt:    m.now(),
	}
	m.current = &pos
	return pos
}

// Current returns a copy of the open position, or nil when empty.
func (m *Manager) Current() *domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	pos := *m.current
	return &pos
}

// ShouldClose reports whether the position has been held for at least its
// target hold time. It returns false, not an error, when no position exists
// or the record's timestamp is unset; the latter guards against reading a
// partially constructed record while an open is in flight.
func (m *Manager) ShouldClose() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.OpenedAt.IsZero() || m.current.HoldMinutes <= 0 {
		return false
	}
	held := m.now().Sub(m.current.OpenedAt)
	return held >= time.Duration(m.current.HoldMinutes)*time.Minute
}

// Close clears the position record unconditionally. Calling it on an empty
// manager is a no-op.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
}

// Info returns an observability snapshot of the current position, or nil when
// empty or when the record's timestamp is unset.
func (m *Manager) Info() *domain.PositionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.OpenedAt.IsZero() {
		return nil
	}
	held := m.now().Sub(m.current.OpenedAt)
	return &domain.PositionInfo{
		Position:          *m.current,
		HeldMinutes:       held.Minutes(),
		TargetHoldMinutes: m.current.HoldMinutes,
		ShouldClose:       held >= time.Duration(m.current.HoldMinutes)*time.Minute,
	}
}
