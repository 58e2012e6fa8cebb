package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	redact(&out.Exchange.PrivateKey)
	redact(&out.Exchange.KeyPassword)
	redact(&out.Proxy.URL)
	redact(&out.Redis.Password)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices and maps so callers cannot mutate the original through the
	// redacted copy.
	if cfg.Trading.Pairs != nil {
		out.Trading.Pairs = append([]string(nil), cfg.Trading.Pairs...)
	}
	if cfg.Notify.Events != nil {
		out.Notify.Events = append([]string(nil), cfg.Notify.Events...)
	}
	if cfg.Trading.Leverage != nil {
		out.Trading.Leverage = make(map[string]float64, len(cfg.Trading.Leverage))
		for k, v := range cfg.Trading.Leverage {
			out.Trading.Leverage[k] = v
		}
	}
	if cfg.Trading.LotSizes != nil {
		out.Trading.LotSizes = make(map[string]float64, len(cfg.Trading.LotSizes))
		for k, v := range cfg.Trading.LotSizes {
			out.Trading.LotSizes[k] = v
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
