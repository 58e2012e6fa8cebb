package trading

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"strconv"
	"testing"

	"github.com/alanyoungcy/pacificabot/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTradingConfig() *config.TradingConfig {
	cfg := config.Defaults().Trading
	return &cfg
}

func TestSizerAmountOnLotGrid(t *testing.T) {
	cfg := testTradingConfig()
	sizer := NewSizer(cfg, rand.New(rand.NewSource(7)), testLogger())

	for _, symbol := range cfg.Pairs {
		lot := cfg.LotSize(symbol)
		price := map[string]float64{"BTC": 65000, "ETH": 3500, "HYPE": 0.25, "SOL": 150, "BNB": 600}[symbol]

		for i := 0; i < 50; i++ {
			amount, units := sizer.Amount(symbol, price)
			if units < lot {
				t.Fatalf("%s: units %g below lot size %g", symbol, units, lot)
			}
			mult := units / lot
			if math.Abs(mult-math.Round(mult)) > 1e-6 {
				t.Fatalf("%s: units %g not a multiple of lot size %g", symbol, units, lot)
			}
			parsed, err := strconv.ParseFloat(amount, 64)
			if err != nil {
				t.Fatalf("%s: amount %q does not parse: %v", symbol, amount, err)
			}
			if math.Abs(parsed-units) > lot/2 {
				t.Fatalf("%s: amount %q drifted from units %g", symbol, amount, units)
			}
		}
	}
}

func TestSizerBTCDefaults(t *testing.T) {
	cfg := testTradingConfig()
	sizer := NewSizer(cfg, rand.New(rand.NewSource(1)), testLogger())

	// With the default balance the leverage-adjusted BTC size lands below a
	// single lot and is floored to exactly one.
	for i := 0; i < 20; i++ {
		amount, units := sizer.Amount("BTC", 65000)
		if amount != "0.001" {
			t.Fatalf("amount = %q, want 0.001", amount)
		}
		if units != 0.001 {
			t.Fatalf("units = %g, want 0.001", units)
		}
	}
}

func TestSizerCapsRiskAmount(t *testing.T) {
	cfg := testTradingConfig()
	cfg.MinPositionPercent = 90
	cfg.MaxPositionPercent = 95
	sizer := NewSizer(cfg, rand.New(rand.NewSource(3)), testLogger())

	// 90-95% of a 500 balance exceeds the 80% cap, so HYPE at 0.25 is pinned
	// to 0.8 * 500 * (5/50) / 0.25 = 160 units.
	for i := 0; i < 20; i++ {
		amount, units := sizer.Amount("HYPE", 0.25)
		if amount != "160" {
			t.Fatalf("amount = %q, want 160", amount)
		}
		if units != 160 {
			t.Fatalf("units = %g, want 160", units)
		}
	}
}

func TestSizerUnknownSymbolDefaults(t *testing.T) {
	cfg := testTradingConfig()
	sizer := NewSizer(cfg, rand.New(rand.NewSource(9)), testLogger())

	// Unknown symbols fall back to lot 0.01 and leverage 1.0.
	amount, units := sizer.Amount("DOGE", 100)
	if units < 0.01 {
		t.Fatalf("units = %g, want at least one default lot", units)
	}
	if _, err := strconv.ParseFloat(amount, 64); err != nil {
		t.Fatalf("amount %q does not parse: %v", amount, err)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		units float64
		lot   float64
		want  string
	}{
		{0.004, 0.001, "0.004"},
		{0.05, 0.01, "0.05"},
		{160, 1.0, "160"},
		{1.5, 0.001, "1.500"},
		{2, 0.01, "2.00"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.units, tt.lot); got != tt.want {
			t.Errorf("FormatAmount(%g, %g) = %q, want %q", tt.units, tt.lot, got, tt.want)
		}
	}
}
