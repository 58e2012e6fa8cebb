package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the TOML configuration file at path, merges it on top of the
// built-in defaults, applies PACIFICA_* environment variable overrides, and
// returns the final Config. A missing file is not an error; defaults plus
// environment are enough to run. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env if present (silently ignore if missing). DOTENV_PATH points
	// at an alternate file, used by the test environment.
	if p := os.Getenv("DOTENV_PATH"); p != "" {
		_ = godotenv.Load(p)
	} else {
		_ = godotenv.Load()
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PACIFICA_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Exchange ──
	setStr(&cfg.Exchange.BaseURL, "PACIFICA_BASE_URL")
	setStr(&cfg.Exchange.WsURL, "PACIFICA_WS_URL")
	setStr(&cfg.Exchange.PrivateKey, "PACIFICA_PRIVATE_KEY")
	setStr(&cfg.Exchange.EncryptedKeyPath, "PACIFICA_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Exchange.KeyPassword, "PACIFICA_KEY_PASSWORD")
	setInt(&cfg.Exchange.OrderTimeoutSecs, "ORDER_TIMEOUT")
	setFloat64(&cfg.Exchange.SlippagePercent, "DEFAULT_SLIPPAGE")

	// ── Proxy ──
	setBool(&cfg.Proxy.Enabled, "USE_PROXY")
	setStr(&cfg.Proxy.URL, "PROXY_URL")

	// ── Trading ──
	setFloat64(&cfg.Trading.AccountBalance, "ACCOUNT_BALANCE")
	setFloat64(&cfg.Trading.MinPositionPercent, "MIN_POSITION_PERCENT")
	setFloat64(&cfg.Trading.MaxPositionPercent, "MAX_POSITION_PERCENT")
	setInt(&cfg.Trading.MinHoldMinutes, "MIN_POSITION_HOLD_MINUTES")
	setInt(&cfg.Trading.MaxHoldMinutes, "MAX_POSITION_HOLD_MINUTES")
	setInt(&cfg.Trading.HoldMinutes, "POSITION_HOLD_MINUTES")
	setBool(&cfg.Trading.SinglePosition, "SINGLE_POSITION_MODE")
	setInt(&cfg.Trading.MinWaitSecs, "MIN_WAIT_BETWEEN_POSITIONS")
	setInt(&cfg.Trading.MaxWaitSecs, "MAX_WAIT_BETWEEN_POSITIONS")
	setInt(&cfg.Trading.MinTradeIntervalSecs, "MIN_TRADE_INTERVAL")
	setInt(&cfg.Trading.MaxTradeIntervalSecs, "MAX_TRADE_INTERVAL")
	setInt(&cfg.Trading.PositionLogIntervalSecs, "POSITION_LOG_INTERVAL_SECONDS")
	setBool(&cfg.Trading.CloseExistingOnStart, "CLOSE_EXISTING_POSITIONS_ON_START")
	setInt(&cfg.Trading.MaxDailyTrades, "MAX_DAILY_TRADES")
	setBool(&cfg.Trading.EnableRiskLimits, "ENABLE_RISK_LIMITS")
	setInt(&cfg.Trading.MarginMode, "MARGIN_MODE")

	// ── Pricing ──
	setStr(&cfg.Pricing.Source, "PACIFICA_PRICE_SOURCE")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PACIFICA_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PACIFICA_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PACIFICA_REDIS_DB")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PACIFICA_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PACIFICA_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PACIFICA_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PACIFICA_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "LOG_LEVEL")
	setStr(&cfg.LogFile, "LOG_FILE")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes", "on":
			*dst = true
		case "false", "0", "no", "off":
			*dst = false
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
