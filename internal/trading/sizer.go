package trading

import (
	"log/slog"
	"math"
	"math/rand"
	"strconv"

	"github.com/alanyoungcy/pacificabot/internal/config"
)

// platformLeverage is the leverage the exchange actually applies to margin,
// regardless of the per-symbol leverage the operator configures. Position
// sizes are scaled down by configured/platform so the intended risk exposure
// survives the mismatch.
const platformLeverage = 50.0

// maxBalanceFraction caps any single position's risk amount.
const maxBalanceFraction = 0.8

// Sizer converts a random risk percentage of the account balance into a
// lot-aligned order quantity.
type Sizer struct {
	cfg    *config.TradingConfig
	rng    *rand.Rand
	logger *slog.Logger
}

// NewSizer creates a Sizer. rng is injected so tests can supply a
// deterministic sequence.
func NewSizer(cfg *config.TradingConfig, rng *rand.Rand, logger *slog.Logger) *Sizer {
	return &Sizer{
		cfg:    cfg,
		rng:    rng,
		logger: logger.With(slog.String("component", "sizer")),
	}
}

// Amount computes the order quantity for symbol at the given price. It
// returns the exchange-formatted amount string and the numeric quantity.
// price must be positive; the result is always a positive multiple of the
// symbol's lot size.
func (s *Sizer) Amount(symbol string, price float64) (string, float64) {
	riskPercent := s.cfg.MinPositionPercent +
		s.rng.Float64()*(s.cfg.MaxPositionPercent-s.cfg.MinPositionPercent)
	riskAmount := riskPercent / 100 * s.cfg.AccountBalance

	configuredLeverage := s.cfg.ConfiguredLeverage(symbol)
	adjustmentFactor := configuredLeverage / platformLeverage

	size := riskAmount * adjustmentFactor / price

	maxSize := maxBalanceFraction * s.cfg.AccountBalance * adjustmentFactor / price
	if size > maxSize {
		size = maxSize
		s.logger.Warn("reduced position size due to risk limits", slog.String("symbol", symbol))
	}

	lot := s.cfg.LotSize(symbol)
	rounded := math.Round(size/lot) * lot
	if rounded < lot {
		rounded = lot
	}

	amount := FormatAmount(rounded, lot)

	s.logger.Info("position size calculated",
		slog.String("symbol", symbol),
		slog.Float64("risk_percent", riskPercent),
		slog.Float64("risk_amount", riskAmount),
		slog.Float64("configured_leverage", configuredLeverage),
		slog.Float64("platform_leverage", platformLeverage),
		slog.Float64("adjustment_factor", adjustmentFactor),
		slog.Float64("raw_size", size),
		slog.String("amount", amount),
		slog.Float64("notional", rounded*price*platformLeverage),
	)

	return amount, rounded
}

// FormatAmount renders a quantity with the decimal precision implied by the
// symbol's lot size. The exchange rejects amounts with more precision than
// the lot grid allows.
func FormatAmount(units, lot float64) string {
	switch {
	case lot >= 1.0:
		return strconv.FormatFloat(units, 'f', 0, 64)
	case lot >= 0.01:
		return strconv.FormatFloat(units, 'f', 2, 64)
	default:
		return strconv.FormatFloat(units, 'f', 3, 64)
	}
}
