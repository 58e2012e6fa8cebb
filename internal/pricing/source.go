// Package pricing provides the price sources backing trade sizing. The
// default is a fixed reference table; live deployments can swap in the
// exchange websocket feed or a shared Redis cache without touching the
// trading layer.
package pricing

import "context"

// Source supplies the current mark price for a symbol.
type Source interface {
	// Price returns the price for symbol. Implementations that can run dry
	// (live feed before first tick, stale cache) return domain.ErrNoPrice.
	Price(ctx context.Context, symbol string) (float64, error)
	// Name identifies the source in logs.
	Name() string
}

// staticPrices is the built-in reference table. Symbols outside the table
// fall back to 100.0 so the sizer always has a usable price.
var staticPrices = map[string]float64{
	"BTC":  65_000.0,
	"ETH":  3_500.0,
	"HYPE": 0.25,
	"SOL":  150.0,
	"BNB":  600.0,
}

const staticFallbackPrice = 100.0

// Static is the fixed reference-table source. It never fails.
type Static struct{}

// NewStatic returns the static source.
func NewStatic() *Static {
	return &Static{}
}

// Price returns the table price for symbol, or the fallback for unknown
// symbols.
func (s *Static) Price(_ context.Context, symbol string) (float64, error) {
	if p, ok := staticPrices[symbol]; ok {
		return p, nil
	}
	return staticFallbackPrice, nil
}

// Name implements Source.
func (s *Static) Name() string { return "static" }
