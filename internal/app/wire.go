package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/pacificabot/internal/config"
	"github.com/alanyoungcy/pacificabot/internal/crypto"
	"github.com/alanyoungcy/pacificabot/internal/feed"
	"github.com/alanyoungcy/pacificabot/internal/notify"
	"github.com/alanyoungcy/pacificabot/internal/platform/pacifica"
	"github.com/alanyoungcy/pacificabot/internal/pricing"
	"github.com/alanyoungcy/pacificabot/internal/proclock"
	"github.com/alanyoungcy/pacificabot/internal/trading"
)

// Dependencies bundles everything the trading loop needs. It is constructed by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Bot    *trading.Bot
	Feed   *feed.PacificaWSFeed // nil unless the live price source is configured
	Lock   *proclock.Lock
	Client *pacifica.Client
}

// Wire constructs all concrete dependencies from the configuration and returns
// them with a cleanup function to run at shutdown. Acquiring the instance lock
// happens here: two bots sharing one account must never both reach the loop.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- Instance lock ---
	lock, err := proclock.Acquire(cfg.Process.LockFile, cfg.Process.PIDFile)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: %w", err)
	}
	closers = append(closers, func() { _ = lock.Release() })

	// --- Signing key ---
	keypair, err := crypto.LoadKeypair(crypto.KeyConfig{
		RawPrivateKey:    cfg.Exchange.PrivateKey,
		EncryptedKeyPath: cfg.Exchange.EncryptedKeyPath,
		KeyPassword:      cfg.Exchange.KeyPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: load keypair: %w", err)
	}
	signer := crypto.NewSigner(keypair)
	logger.Info("wallet loaded", slog.String("account", signer.Account()))

	// --- Exchange client ---
	proxyURL := ""
	if cfg.Proxy.Enabled {
		proxyURL = cfg.Proxy.URL
	}
	client, err := pacifica.NewClient(pacifica.ClientConfig{
		BaseURL:        cfg.Exchange.BaseURL,
		ProxyURL:       proxyURL,
		Timeout:        time.Duration(cfg.Exchange.OrderTimeoutSecs) * time.Second,
		ExpiryWindowMs: cfg.Exchange.ExpiryWindowMs,
	}, signer, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: pacifica client: %w", err)
	}

	// --- Price source ---
	var (
		prices pricing.Source
		wsFeed *feed.PacificaWSFeed
	)
	switch strings.ToLower(cfg.Pricing.Source) {
	case "live":
		store := pricing.NewMemoryStore(pricing.NewStatic())
		wsFeed = feed.NewPacificaWSFeed(cfg.Exchange.WsURL, store, logger)
		closers = append(closers, wsFeed.Close)
		prices = store
	case "redis":
		src, err := pricing.NewRedisSource(ctx, pricing.RedisConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			MaxAge:     time.Duration(cfg.Pricing.MaxAgeSecs) * time.Second,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis price source: %w", err)
		}
		closers = append(closers, func() { _ = src.Close() })
		prices = src
	default:
		prices = pricing.NewStatic()
	}
	logger.Info("price source selected", slog.String("source", prices.Name()))

	// --- Trading loop ---
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	slippage := strconv.FormatFloat(cfg.Exchange.SlippagePercent, 'f', -1, 64)

	sizer := trading.NewSizer(&cfg.Trading, rng, logger)
	generator := trading.NewGenerator(&cfg.Trading, sizer, prices, slippage, rng, logger)
	manager := trading.NewManager(&cfg.Trading, rng, nil)
	closer := trading.NewCloser(client, slippage, logger)
	reconciler := trading.NewReconciler(closer, cfg.Trading.Pairs, logger)

	var notifier trading.Notifier
	if d := notify.FromConfig(cfg.Notify, logger); d != nil {
		notifier = d
	}

	bot := trading.NewBot(cfg, generator, manager, client, closer, reconciler, notifier, rng, logger)

	return &Dependencies{
		Bot:    bot,
		Feed:   wsFeed,
		Lock:   lock,
		Client: client,
	}, cleanup, nil
}
