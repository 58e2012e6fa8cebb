package trading

import (
	"math/rand"
	"testing"
	"time"

	"github.com/alanyoungcy/pacificabot/internal/domain"
)

func TestManagerLifecycle(t *testing.T) {
	cfg := testTradingConfig()
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := NewManager(cfg, rand.New(rand.NewSource(1)), clock)

	if m.HasPosition() {
		t.Fatal("fresh manager reports a position")
	}
	if m.Current() != nil {
		t.Fatal("Current() on empty manager is not nil")
	}
	if m.ShouldClose() {
		t.Fatal("ShouldClose() on empty manager")
	}

	pos := m.Open("BTC", domain.SideBid, "0.001", "order-1")
	if !m.HasPosition() {
		t.Fatal("no position after Open")
	}
	if pos.HoldMinutes < cfg.MinHoldMinutes || pos.HoldMinutes > cfg.MaxHoldMinutes {
		t.Fatalf("hold minutes %d outside [%d, %d]", pos.HoldMinutes, cfg.MinHoldMinutes, cfg.MaxHoldMinutes)
	}
	if !pos.OpenedAt.Equal(now) {
		t.Fatalf("OpenedAt = %v, want %v", pos.OpenedAt, now)
	}
	if m.ShouldClose() {
		t.Fatal("ShouldClose() immediately after open")
	}

	// Just under the target hold time.
	now = pos.OpenedAt.Add(time.Duration(pos.HoldMinutes)*time.Minute - time.Second)
	if m.ShouldClose() {
		t.Fatal("ShouldClose() before hold time elapsed")
	}

	now = pos.OpenedAt.Add(time.Duration(pos.HoldMinutes) * time.Minute)
	if !m.ShouldClose() {
		t.Fatal("ShouldClose() false after hold time elapsed")
	}

	info := m.Info()
	if info == nil {
		t.Fatal("Info() nil with an open position")
	}
	if !info.ShouldClose || info.TargetHoldMinutes != pos.HoldMinutes {
		t.Fatalf("Info() = %+v, want ShouldClose with target %d", info, pos.HoldMinutes)
	}

	m.Close()
	if m.HasPosition() {
		t.Fatal("position survives Close")
	}
	m.Close() // second close is a no-op
}

func TestManagerCurrentReturnsCopy(t *testing.T) {
	cfg := testTradingConfig()
	m := NewManager(cfg, rand.New(rand.NewSource(2)), nil)
	m.Open("ETH", domain.SideAsk, "0.05", "order-2")

	cur := m.Current()
	cur.Symbol = "mutated"
	if got := m.Current().Symbol; got != "ETH" {
		t.Fatalf("internal state mutated through Current copy: %q", got)
	}
}

func TestManagerFixedHoldOverride(t *testing.T) {
	cfg := testTradingConfig()
	cfg.HoldMinutes = 7
	m := NewManager(cfg, rand.New(rand.NewSource(3)), nil)

	for i := 0; i < 10; i++ {
		pos := m.Open("BTC", domain.SideBid, "0.001", "o")
		if pos.HoldMinutes != 7 {
			t.Fatalf("HoldMinutes = %d, want fixed 7", pos.HoldMinutes)
		}
		m.Close()
	}
}

func TestManagerHoldDrawBounds(t *testing.T) {
	cfg := testTradingConfig()
	m := NewManager(cfg, rand.New(rand.NewSource(4)), nil)

	seen := make(map[int]int)
	for i := 0; i < 1000; i++ {
		pos := m.Open("BTC", domain.SideBid, "0.001", "o")
		if pos.HoldMinutes < cfg.MinHoldMinutes || pos.HoldMinutes > cfg.MaxHoldMinutes {
			t.Fatalf("hold draw %d outside [%d, %d]", pos.HoldMinutes, cfg.MinHoldMinutes, cfg.MaxHoldMinutes)
		}
		seen[pos.HoldMinutes]++
		m.Close()
	}
	for v := cfg.MinHoldMinutes; v <= cfg.MaxHoldMinutes; v++ {
		if seen[v] == 0 {
			t.Errorf("hold value %d never drawn in 1000 samples", v)
		}
	}
}

func TestManagerZeroTimestampGuard(t *testing.T) {
	cfg := testTradingConfig()
	m := NewManager(cfg, rand.New(rand.NewSource(5)), func() time.Time { return time.Time{} })
	m.Open("BTC", domain.SideBid, "0.001", "o")

	if m.ShouldClose() {
		t.Fatal("ShouldClose() true for a record with an unset timestamp")
	}
	if m.Info() != nil {
		t.Fatal("Info() not nil for a record with an unset timestamp")
	}
}
