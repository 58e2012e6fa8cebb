package trading

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/alanyoungcy/pacificabot/internal/config"
	"github.com/alanyoungcy/pacificabot/internal/domain"
)

// Notifier is the optional alerting hook the controller fires on trade
// events. A nil Notifier disables alerting.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Notification event types emitted by the controller.
const (
	EventPositionOpen  = "position_open"
	EventPositionClose = "position_close"
	EventReconcile     = "reconcile"
)

// Bot is the controller: it reconciles once at startup, then alternates
// between "no position, open one" and "position open, wait and close". All
// network activity is sequential; the loop suspends only at explicit
// context-aware waits.
type Bot struct {
	cfg        *config.Config
	generator  *Generator
	manager    *Manager
	transport  domain.OrderSubmitter
	closer     *Closer
	reconciler *Reconciler
	stats      *Stats
	notifier   Notifier
	rng        *rand.Rand
	logger     *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	lastPositionLog time.Time
	dailyCapWarned  bool
}

// NewBot wires the controller. notifier may be nil.
func NewBot(
	cfg *config.Config,
	generator *Generator,
	manager *Manager,
	transport domain.OrderSubmitter,
	closer *Closer,
	reconciler *Reconciler,
	notifier Notifier,
	rng *rand.Rand,
	logger *slog.Logger,
) *Bot {
	return &Bot{
		cfg:        cfg,
		generator:  generator,
		manager:    manager,
		transport:  transport,
		closer:     closer,
		reconciler: reconciler,
		stats:      NewStats(),
		notifier:   notifier,
		rng:        rng,
		logger:     logger.With(slog.String("component", "bot")),
		sleep:      sleepCtx,
		now:        time.Now,
	}
}

// Stats exposes the trade counters for the final report.
func (b *Bot) Stats() *Stats {
	return b.stats
}

// Run executes the main trading loop until ctx is cancelled. It does not
// force-close an open position on shutdown; the next run's reconciliation
// sweep picks it up.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("starting random trading bot")
	if b.cfg.Trading.SinglePosition {
		b.logger.Info("single position mode enabled",
			slog.Int("min_hold_minutes", b.cfg.Trading.MinHoldMinutes),
			slog.Int("max_hold_minutes", b.cfg.Trading.MaxHoldMinutes),
		)
	}

	if b.cfg.Trading.CloseExistingOnStart {
		found := b.reconciler.Sweep(ctx)
		if found > 0 {
			b.notify(ctx, EventReconcile, "Startup reconciliation",
				"closed leftover positions from a previous run")
		}
	} else {
		b.logger.Warn("skipping existing position check")
	}

	defer b.logger.Info("trading stats", slog.String("stats", b.stats.Line(b.cfg.Trading.MaxDailyTrades)))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b.logger.Info("trading stats", slog.String("stats", b.stats.Line(b.cfg.Trading.MaxDailyTrades)))

		var err error
		if b.cfg.Trading.SinglePosition {
			err = b.singlePositionTick(ctx)
		} else {
			err = b.intervalTick(ctx)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			// Non-context errors are already logged and counted; keep looping.
		}
	}
}

// singlePositionTick performs one iteration of single-position mode.
func (b *Bot) singlePositionTick(ctx context.Context) error {
	if !b.manager.HasPosition() {
		b.placeTrade(ctx)
		// Small initial wait after opening a position.
		return b.sleep(ctx, 10*time.Second)
	}

	info := b.manager.Info()
	if info == nil {
		// Open is mid-flight on a partially constructed record; skip.
		b.logger.Warn("position info unavailable, skipping cycle")
		return b.sleep(ctx, time.Second)
	}

	b.logPositionThrottled(info)

	if !b.manager.ShouldClose() {
		// Poll interval between hold-time checks.
		return b.sleep(ctx, 30*time.Second)
	}

	b.closeCurrent(ctx)
	b.lastPositionLog = time.Time{}

	wait := b.drawSeconds(b.cfg.Trading.MinWaitSecs, b.cfg.Trading.MaxWaitSecs)
	b.logger.Info("waiting before opening next position", slog.Int("seconds", wait))
	return b.sleep(ctx, time.Duration(wait)*time.Second)
}

// intervalTick performs one iteration of the legacy multi-position mode: open
// a trade, then wait a random interval, checking for shutdown every second.
func (b *Bot) intervalTick(ctx context.Context) error {
	b.placeTrade(ctx)

	wait := b.drawSeconds(b.cfg.Trading.MinTradeIntervalSecs, b.cfg.Trading.MaxTradeIntervalSecs)
	b.logger.Info("waiting until next trade", slog.Int("seconds", wait))
	for i := 0; i < wait; i++ {
		if err := b.sleep(ctx, time.Second); err != nil {
			return err
		}
	}
	return nil
}

// placeTrade generates and submits a new position, recording the outcome.
func (b *Bot) placeTrade(ctx context.Context) {
	req, err := b.generator.Generate(ctx)
	if err != nil {
		b.logger.Error("failed to generate trade parameters", slog.String("error", err.Error()))
		b.stats.RecordFailure()
		return
	}

	b.logger.Info("placing market order",
		slog.String("symbol", req.Symbol),
		slog.String("side", string(req.Side)),
		slog.String("amount", req.Amount),
		slog.String("slippage", req.SlippagePercent),
		slog.String("client_order_id", req.ClientOrderID),
	)

	res, err := b.transport.SubmitOrder(ctx, req)
	if err != nil || !res.Success {
		b.logger.Error("trade failed", slog.String("symbol", req.Symbol))
		b.stats.RecordFailure()
		return
	}

	pos := b.manager.Open(req.Symbol, req.Side, req.Amount, req.ClientOrderID)
	b.stats.RecordSuccess()
	b.checkDailyCap()

	holdType := "random"
	if b.cfg.Trading.HoldMinutes > 0 {
		holdType = "fixed"
	}
	b.logger.Info("position opened",
		slog.String("symbol", pos.Symbol),
		slog.String("side", string(pos.Side)),
		slog.String("amount", pos.Amount),
		slog.String("order_id", pos.OrderID),
		slog.Int("hold_minutes", pos.HoldMinutes),
		slog.String("hold_type", holdType),
		slog.Int("daily_trades", b.stats.DailyTrades),
		slog.Int("total_trades", b.stats.TotalTrades),
	)
	b.notify(ctx, EventPositionOpen, "Position opened",
		pos.Symbol+" "+string(pos.Side)+" "+pos.Amount)
}

// closeCurrent runs the close protocol for the held position and clears local
// state for every outcome except a non-"no position" rejection.
func (b *Bot) closeCurrent(ctx context.Context) {
	pos := b.manager.Current()
	if pos == nil {
		return
	}

	outcome := b.closer.ClosePosition(ctx, *pos)
	if outcome.Cleared() {
		b.manager.Close()
		b.notify(ctx, EventPositionClose, "Position closed",
			pos.Symbol+" "+string(pos.Side)+" "+pos.Amount)
	}
}

// logPositionThrottled emits the held-position status line at most once per
// configured log interval, not on every 30-second poll.
func (b *Bot) logPositionThrottled(info *domain.PositionInfo) {
	interval := time.Duration(b.cfg.Trading.PositionLogIntervalSecs) * time.Second
	now := b.now()
	if b.lastPositionLog.IsZero() {
		b.lastPositionLog = now
		return
	}
	if now.Sub(b.lastPositionLog) < interval {
		return
	}
	b.logger.Info("current position",
		slog.String("symbol", info.Symbol),
		slog.String("side", string(info.Side)),
		slog.Float64("held_minutes", info.HeldMinutes),
		slog.Int("target_hold_minutes", info.TargetHoldMinutes),
	)
	b.lastPositionLog = now
}

// checkDailyCap logs once when the configured daily trade cap is crossed. The
// cap is advisory: the original operator semantics keep trading.
func (b *Bot) checkDailyCap() {
	if !b.cfg.Trading.EnableRiskLimits || b.dailyCapWarned {
		return
	}
	if b.stats.DailyTrades >= b.cfg.Trading.MaxDailyTrades {
		b.logger.Warn("daily trade cap reached",
			slog.Int("daily_trades", b.stats.DailyTrades),
			slog.Int("max_daily_trades", b.cfg.Trading.MaxDailyTrades),
		)
		b.dailyCapWarned = true
	}
}

// drawSeconds draws a uniform integer from [min, max].
func (b *Bot) drawSeconds(min, max int) int {
	if max <= min {
		return min
	}
	return min + b.rng.Intn(max-min+1)
}

// notify fires the optional notifier, logging delivery failures at debug
// level so alerting problems never disturb trading.
func (b *Bot) notify(ctx context.Context, event, title, message string) {
	if b.notifier == nil {
		return
	}
	if err := b.notifier.Notify(ctx, event, title, message); err != nil {
		b.logger.Debug("notification failed", slog.String("error", err.Error()))
	}
}
