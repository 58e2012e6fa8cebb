package trading

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/alanyoungcy/pacificabot/internal/config"
	"github.com/alanyoungcy/pacificabot/internal/pricing"
)

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.events = append(n.events, event)
	return nil
}

type botFixture struct {
	bot       *Bot
	transport *scriptedTransport
	manager   *Manager
	notifier  *recordingNotifier
	now       *time.Time
}

func newBotFixture(t *testing.T, cfg *config.Config, steps []step) *botFixture {
	t.Helper()

	rng := rand.New(rand.NewSource(21))
	logger := testLogger()
	transport := &scriptedTransport{steps: steps}

	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	sizer := NewSizer(&cfg.Trading, rng, logger)
	generator := NewGenerator(&cfg.Trading, sizer, pricing.NewStatic(), "0.5", rng, logger)
	manager := NewManager(&cfg.Trading, rng, clock)
	closer := newTestCloser(transport)
	reconciler := newTestReconciler(transport, cfg.Trading.Pairs)
	notifier := &recordingNotifier{}

	bot := NewBot(cfg, generator, manager, transport, closer, reconciler, notifier, rng, logger)
	bot.sleep = noSleep
	bot.now = clock

	return &botFixture{bot: bot, transport: transport, manager: manager, notifier: notifier, now: &now}
}

func testBotConfig() *config.Config {
	cfg := config.Defaults()
	return &cfg
}

func TestBotOpensWhenFlat(t *testing.T) {
	cfg := testBotConfig()
	f := newBotFixture(t, cfg, []step{accepted()})

	if err := f.bot.singlePositionTick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !f.manager.HasPosition() {
		t.Fatal("no position after an accepted open")
	}
	if len(f.transport.calls) != 1 {
		t.Fatalf("got %d requests, want 1", len(f.transport.calls))
	}
	if f.transport.calls[0].ReduceOnly {
		t.Fatal("opening order marked reduce-only")
	}
	if f.bot.stats.SuccessfulTrades != 1 || f.bot.stats.DailyTrades != 1 {
		t.Fatalf("stats = %+v, want one successful trade", f.bot.stats)
	}
	if len(f.notifier.events) != 1 || f.notifier.events[0] != EventPositionOpen {
		t.Fatalf("events = %v, want [%s]", f.notifier.events, EventPositionOpen)
	}
}

func TestBotRejectedOpenCountsFailure(t *testing.T) {
	cfg := testBotConfig()
	f := newBotFixture(t, cfg, []step{rejected("insufficient margin")})

	if err := f.bot.singlePositionTick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if f.manager.HasPosition() {
		t.Fatal("position recorded for a rejected open")
	}
	if f.bot.stats.FailedTrades != 1 || f.bot.stats.SuccessfulTrades != 0 {
		t.Fatalf("stats = %+v, want one failed trade", f.bot.stats)
	}
}

func TestBotHoldsUntilTargetElapses(t *testing.T) {
	cfg := testBotConfig()
	f := newBotFixture(t, cfg, []step{accepted()})

	if err := f.bot.singlePositionTick(context.Background()); err != nil {
		t.Fatalf("open tick: %v", err)
	}
	if err := f.bot.singlePositionTick(context.Background()); err != nil {
		t.Fatalf("hold tick: %v", err)
	}
	if !f.manager.HasPosition() {
		t.Fatal("position closed before its hold time")
	}
	// Only the open order should have gone out.
	if len(f.transport.calls) != 1 {
		t.Fatalf("got %d requests during hold, want 1", len(f.transport.calls))
	}
}

func TestBotClosesAfterHoldTime(t *testing.T) {
	cfg := testBotConfig()
	f := newBotFixture(t, cfg, []step{
		accepted(),
		accepted(),
		rejected("Error: No position found"),
	})

	if err := f.bot.singlePositionTick(context.Background()); err != nil {
		t.Fatalf("open tick: %v", err)
	}
	pos := f.manager.Current()

	*f.now = f.now.Add(time.Duration(pos.HoldMinutes)*time.Minute + time.Second)
	if err := f.bot.singlePositionTick(context.Background()); err != nil {
		t.Fatalf("close tick: %v", err)
	}
	if f.manager.HasPosition() {
		t.Fatal("position survives a confirmed close")
	}
	if len(f.notifier.events) != 2 || f.notifier.events[1] != EventPositionClose {
		t.Fatalf("events = %v, want open then close", f.notifier.events)
	}
}

func TestBotKeepsPositionOnRejectedClose(t *testing.T) {
	cfg := testBotConfig()
	f := newBotFixture(t, cfg, []step{
		accepted(),
		rejected("insufficient margin"),
	})

	if err := f.bot.singlePositionTick(context.Background()); err != nil {
		t.Fatalf("open tick: %v", err)
	}
	pos := f.manager.Current()

	*f.now = f.now.Add(time.Duration(pos.HoldMinutes)*time.Minute + time.Second)
	if err := f.bot.singlePositionTick(context.Background()); err != nil {
		t.Fatalf("close tick: %v", err)
	}
	if !f.manager.HasPosition() {
		t.Fatal("position record dropped after a rejected close")
	}
}

func TestBotRunStopsOnCancellation(t *testing.T) {
	cfg := testBotConfig()
	cfg.Trading.CloseExistingOnStart = false
	f := newBotFixture(t, cfg, []step{accepted()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.bot.Run(ctx); err != context.Canceled {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
}

func TestBotRunReconcilesOnStart(t *testing.T) {
	cfg := testBotConfig()
	cfg.Trading.Pairs = []string{"BTC"}
	cfg.Trading.Leverage = map[string]float64{"BTC": 5}

	// The reconciliation sweep finds and closes a leftover long; the loop is
	// then cancelled at its first wait.
	f := newBotFixture(t, cfg, []step{
		accepted(),
		rejected("Error: No position found"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.bot.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	if err := f.bot.Run(ctx); err != context.Canceled {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if len(f.notifier.events) == 0 || f.notifier.events[0] != EventReconcile {
		t.Fatalf("events = %v, want reconcile first", f.notifier.events)
	}
}
