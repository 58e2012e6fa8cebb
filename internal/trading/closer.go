package trading

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/pacificabot/internal/domain"
)

// probeAmount is the tiny reduce-only quantity used to test whether a
// position still exists after a close order.
const probeAmount = "0.0001"

// CloseOutcome is the result of a steady-state close attempt.
type CloseOutcome int

const (
	// CloseConfirmed means the verify probe was rejected with "no position":
	// the position is gone.
	CloseConfirmed CloseOutcome = iota
	// CloseFallback means the verify probe was accepted, so a position still
	// existed, and the opposite-direction retry closed it.
	CloseFallback
	// CloseNotFound means the exchange rejected the close order because it
	// had no position; local state was stale.
	CloseNotFound
	// CloseFailed means neither the original nor the opposite-direction
	// attempt could confirm closure. Local state is cleared anyway so the
	// controller cannot get stuck retrying forever.
	CloseFailed
	// CloseRejected means the close order was rejected for a reason other
	// than a missing position. The position record is kept for the next tick.
	CloseRejected
)

// Cleared reports whether the controller should drop its local position
// record after this outcome. Everything except CloseRejected clears: this is
// the deliberate liveness-over-consistency tradeoff, and the one place local
// state can drift from the exchange.
func (o CloseOutcome) Cleared() bool {
	return o != CloseRejected
}

// Closer implements the close/verify protocol. The exchange has no "list
// positions" endpoint, so confirmation works by probing: a reduce-only order
// is accepted only when a matching position exists, which makes a rejection
// with "no position" the success signal.
type Closer struct {
	transport domain.OrderSubmitter
	slippage  string

	// settleDelay is the wait between a steady-state close order and its
	// verify probe; probeSettleDelay is the slightly longer wait used by
	// startup probes.
	settleDelay      time.Duration
	probeSettleDelay time.Duration

	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewCloser creates a Closer with the production settle delays.
func NewCloser(transport domain.OrderSubmitter, slippagePercent string, logger *slog.Logger) *Closer {
	return &Closer{
		transport:        transport,
		slippage:         slippagePercent,
		settleDelay:      2 * time.Second,
		probeSettleDelay: 3 * time.Second,
		logger:           logger.With(slog.String("component", "closer")),
		sleep:            sleepCtx,
	}
}

func (c *Closer) reduceOrder(symbol string, side domain.Side, amount string) domain.MarketOrderRequest {
	return domain.MarketOrderRequest{
		Symbol:          symbol,
		Side:            side,
		Amount:          amount,
		SlippagePercent: c.slippage,
		ReduceOnly:      true,
		ClientOrderID:   uuid.NewString(),
	}
}

// ClosePosition runs the steady-state close protocol for a held position:
// place a reduce-only order on the opposite side, wait for settlement, then
// verify with a small same-side probe, falling back to one opposite-direction
// retry when the probe shows the position still exists.
func (c *Closer) ClosePosition(ctx context.Context, pos domain.Position) CloseOutcome {
	log := c.logger.With(
		slog.String("symbol", pos.Symbol),
		slog.String("side", string(pos.Side)),
		slog.String("amount", pos.Amount),
	)
	log.Info("closing position")

	res, err := c.transport.SubmitOrder(ctx, c.reduceOrder(pos.Symbol, pos.Side.Opposite(), pos.Amount))
	if err != nil {
		log.Error("close order failed, clearing position state", slog.String("error", err.Error()))
		return CloseFailed
	}
	if !res.Success {
		if res.ErrKind() == domain.ErrKindNoPosition {
			log.Warn("position not found on exchange, clearing internal state")
			return CloseNotFound
		}
		log.Error("failed to close position", slog.String("error", res.Err.Message))
		return CloseRejected
	}

	if err := c.sleep(ctx, c.settleDelay); err != nil {
		log.Warn("interrupted while waiting for close settlement, clearing position state")
		return CloseFailed
	}

	// Probe with a small reduce-only order on the SAME side as the held
	// position. Rejection means nothing is left to reduce: success.
	test, err := c.transport.SubmitOrderQuiet(ctx, c.reduceOrder(pos.Symbol, pos.Side, probeAmount))
	if err != nil {
		log.Error("close verification failed, clearing position state", slog.String("error", err.Error()))
		return CloseFailed
	}
	if !test.Success {
		log.Info("position successfully closed")
		return CloseConfirmed
	}

	// The probe was accepted, so a position still exists. Retry once in the
	// opposite direction.
	log.Warn("position may still exist, trying opposite direction")
	opposite, err := c.transport.SubmitOrder(ctx, c.reduceOrder(pos.Symbol, pos.Side.Opposite(), pos.Amount))
	if err == nil && opposite.Success {
		log.Info("position closed with opposite direction")
		return CloseFallback
	}
	log.Error("both close attempts failed, clearing position state to avoid a stuck loop")
	return CloseFailed
}

// AttemptClose probes a single (symbol, side, amount) candidate for a
// leftover position and closes it when found. All requests are quiet because
// rejection is the common, expected outcome. It returns true only when a
// position was found and its closure verified.
func (c *Closer) AttemptClose(ctx context.Context, symbol string, side domain.Side, amount string) bool {
	log := c.logger.With(
		slog.String("symbol", symbol),
		slog.String("side", string(side)),
		slog.String("amount", amount),
	)

	res, err := c.transport.SubmitOrderQuiet(ctx, c.reduceOrder(symbol, side, amount))
	if err != nil {
		log.Debug("probe request failed", slog.String("error", err.Error()))
		return false
	}
	if !res.Success {
		// No position on this side at this quantity. The distinct rejection
		// kinds only matter for debugging the sweep.
		log.Debug("probe rejected", slog.String("kind", res.ErrKind().String()))
		return false
	}

	// The close order was accepted, so something was there. Wait, then verify
	// with a same-side probe at the same quantity.
	if err := c.sleep(ctx, c.probeSettleDelay); err != nil {
		return false
	}

	test, err := c.transport.SubmitOrderQuiet(ctx, c.reduceOrder(symbol, side, amount))
	if err != nil {
		log.Debug("verification request failed", slog.String("error", err.Error()))
		return false
	}
	if !test.Success {
		if test.ErrKind() == domain.ErrKindNoPosition {
			log.Info("leftover position closed and verified")
			return true
		}
		log.Debug("verification rejected", slog.String("kind", test.ErrKind().String()))
		return false
	}

	// Still open; one opposite-direction retry.
	log.Warn("position still exists, trying opposite direction")
	opposite, err := c.transport.SubmitOrderQuiet(ctx, c.reduceOrder(symbol, side.Opposite(), amount))
	if err == nil && opposite.Success {
		log.Info("leftover position closed with opposite direction")
		return true
	}
	log.Debug("opposite direction also failed")
	return false
}

// sleepCtx blocks for d or until ctx is cancelled, returning the context
// error in the latter case.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
