package trading

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/pacificabot/internal/domain"
)

// probeAmounts are the coarse lot multiples the startup sweep tries per
// symbol. Positions opened by this bot land on one of these magnitudes.
var probeAmounts = []string{"0.001", "0.01", "0.1", "1.0"}

// Reconciler discovers and closes positions left over from a previous run.
// The exchange exposes no position listing, so it probes every configured
// symbol with the close protocol, first assuming a long, then a short.
// Reconciliation is best-effort: it never blocks startup on a failed probe.
type Reconciler struct {
	closer *Closer
	pairs  []string

	// settle is the pause after a sweep that found positions, letting
	// exchange state catch up before trading starts.
	settle time.Duration

	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewReconciler creates a Reconciler over the configured pairs.
func NewReconciler(closer *Closer, pairs []string, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		closer: closer,
		pairs:  pairs,
		settle: 5 * time.Second,
		logger: logger.With(slog.String("component", "reconciler")),
		sleep:  sleepCtx,
	}
}

// Sweep probes every configured symbol for leftover positions and closes the
// ones it finds. It returns the number of positions closed. Probing a symbol
// stops at the first hit so a found position is never closed twice.
func (r *Reconciler) Sweep(ctx context.Context) int {
	r.logger.Info("checking for existing open positions")

	found := 0
	for _, symbol := range r.pairs {
		if ctx.Err() != nil {
			break
		}
		r.logger.Debug("probing symbol", slog.String("symbol", symbol))

		if r.sweepSymbol(ctx, symbol) {
			found++
		}
	}

	if found > 0 {
		r.logger.Info("closed existing positions", slog.Int("count", found))
		_ = r.sleep(ctx, r.settle)
	} else {
		r.logger.Info("no existing positions found")
	}
	return found
}

// sweepSymbol probes one symbol: candidate quantities assuming a long
// (reduced by an ask), then, only when that found nothing, assuming a short.
func (r *Reconciler) sweepSymbol(ctx context.Context, symbol string) bool {
	for _, amount := range probeAmounts {
		if ctx.Err() != nil {
			return false
		}
		if r.closer.AttemptClose(ctx, symbol, domain.SideAsk, amount) {
			r.logger.Info("closed leftover long position",
				slog.String("symbol", symbol),
				slog.String("amount", amount),
			)
			return true
		}
	}
	for _, amount := range probeAmounts {
		if ctx.Err() != nil {
			return false
		}
		if r.closer.AttemptClose(ctx, symbol, domain.SideBid, amount) {
			r.logger.Info("closed leftover short position",
				slog.String("symbol", symbol),
				slog.String("amount", amount),
			)
			return true
		}
	}
	return false
}
