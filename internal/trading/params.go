package trading

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"github.com/alanyoungcy/pacificabot/internal/config"
	"github.com/alanyoungcy/pacificabot/internal/domain"
	"github.com/alanyoungcy/pacificabot/internal/pricing"
)

// Generator produces randomized market order requests: uniform symbol and
// side, sized by the Sizer at the current price.
type Generator struct {
	cfg      *config.TradingConfig
	sizer    *Sizer
	prices   pricing.Source
	slippage string
	rng      *rand.Rand
	logger   *slog.Logger
}

// NewGenerator creates a Generator drawing from the configured pair list.
func NewGenerator(cfg *config.TradingConfig, sizer *Sizer, prices pricing.Source, slippagePercent string, rng *rand.Rand, logger *slog.Logger) *Generator {
	return &Generator{
		cfg:      cfg,
		sizer:    sizer,
		prices:   prices,
		slippage: slippagePercent,
		rng:      rng,
		logger:   logger.With(slog.String("component", "generator")),
	}
}

// Generate builds a fresh randomized order request. It fails only when the
// price source cannot supply a price for the drawn symbol.
func (g *Generator) Generate(ctx context.Context) (domain.MarketOrderRequest, error) {
	symbol := g.cfg.Pairs[g.rng.Intn(len(g.cfg.Pairs))]

	side := domain.SideBid
	if g.rng.Intn(2) == 1 {
		side = domain.SideAsk
	}

	price, err := g.prices.Price(ctx, symbol)
	if err != nil {
		return domain.MarketOrderRequest{}, fmt.Errorf("trading: price for %s: %w", symbol, err)
	}
	if price <= 0 {
		return domain.MarketOrderRequest{}, fmt.Errorf("trading: non-positive price %g for %s", price, symbol)
	}

	amount, units := g.sizer.Amount(symbol, price)

	g.logger.Info("trade parameters generated",
		slog.String("symbol", symbol),
		slog.String("side", string(side)),
		slog.String("amount", amount),
		slog.Float64("units", units),
		slog.Float64("price", price),
	)

	return domain.MarketOrderRequest{
		Symbol:          symbol,
		Side:            side,
		Amount:          amount,
		SlippagePercent: g.slippage,
		ReduceOnly:      false,
		ClientOrderID:   uuid.NewString(),
	}, nil
}
