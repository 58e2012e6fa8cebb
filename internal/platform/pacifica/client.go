// Package pacifica is the REST client for the Pacifica exchange API. It
// handles request signing, the mandatory proxy tunnel, and promotion of
// rejection messages to domain.ExchangeErrorKind at the transport boundary.
package pacifica

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/pacificabot/internal/crypto"
	"github.com/alanyoungcy/pacificabot/internal/domain"
)

// ClientConfig holds the transport parameters.
type ClientConfig struct {
	BaseURL        string
	ProxyURL       string // empty disables the proxy tunnel
	Timeout        time.Duration
	ExpiryWindowMs int64
}

// Client submits signed requests to the exchange. It implements
// domain.OrderSubmitter.
type Client struct {
	baseURL      string
	expiryWindow int64
	httpClient   *http.Client
	signer       *crypto.Signer
	logger       *slog.Logger

	// now is the timestamp source, overridable in tests.
	now func() time.Time
}

// NewClient creates a Client. When cfg.ProxyURL is set, all traffic tunnels
// through it.
func NewClient(cfg ClientConfig, signer *crypto.Signer, logger *slog.Logger) (*Client, error) {
	transport := http.DefaultTransport
	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("pacifica: invalid proxy url: %w", err)
		}
		transport = &http.Transport{Proxy: http.ProxyURL(proxy)}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	expiry := cfg.ExpiryWindowMs
	if expiry <= 0 {
		expiry = 5_000
	}

	return &Client{
		baseURL:      cfg.BaseURL,
		expiryWindow: expiry,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		signer: signer,
		logger: logger.With(slog.String("component", "pacifica_client")),
		now:    time.Now,
	}, nil
}

// Account returns the base58 public key the client signs with.
func (c *Client) Account() string {
	return c.signer.Account()
}

// SubmitOrder submits a market order and logs rejections.
func (c *Client) SubmitOrder(ctx context.Context, req domain.MarketOrderRequest) (domain.OrderResult, error) {
	return c.submit(ctx, req, false)
}

// SubmitOrderQuiet submits a market order without rejection logging. Position
// probes use it so expected "No position found" rejections do not spam the log.
func (c *Client) SubmitOrderQuiet(ctx context.Context, req domain.MarketOrderRequest) (domain.OrderResult, error) {
	return c.submit(ctx, req, true)
}

func (c *Client) submit(ctx context.Context, req domain.MarketOrderRequest, quiet bool) (domain.OrderResult, error) {
	timestamp := c.now().UnixMilli()
	header := crypto.SignatureHeader{
		Timestamp:    timestamp,
		ExpiryWindow: c.expiryWindow,
		Type:         typeCreateMarketOrder,
	}

	signature, err := c.signer.SignRequest(header, req)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("pacifica: %w: %v", domain.ErrSigningFailed, err)
	}

	envelope := signedRequest{
		Account:         c.signer.Account(),
		Signature:       signature,
		Timestamp:       timestamp,
		ExpiryWindow:    c.expiryWindow,
		Symbol:          req.Symbol,
		Side:            string(req.Side),
		Amount:          req.Amount,
		SlippagePercent: req.SlippagePercent,
		ReduceOnly:      req.ReduceOnly,
		ClientOrderID:   req.ClientOrderID,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("pacifica: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpointCreateMarketOrder, bytes.NewReader(body))
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("pacifica: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if !quiet {
			c.logger.Error("request failed",
				slog.String("symbol", req.Symbol),
				slog.String("side", string(req.Side)),
				slog.String("error", err.Error()),
			)
		}
		return domain.OrderResult{}, fmt.Errorf("pacifica: post order: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("pacifica: read response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		var parsed apiResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return domain.OrderResult{}, fmt.Errorf("pacifica: decode response: %w", err)
		}
		return domain.OrderResult{Success: true, Raw: parsed.Data}, nil
	}

	// Non-2xx carries a rejection message; classify it once here so the
	// protocol layer switches on a closed enum instead of substrings.
	message := extractError(respBody)
	exchErr := domain.ClassifyExchangeError(message)
	if !quiet {
		c.logger.Error("order rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("symbol", req.Symbol),
			slog.String("side", string(req.Side)),
			slog.String("amount", req.Amount),
			slog.String("kind", exchErr.Kind.String()),
			slog.String("error", message),
		)
	}
	return domain.OrderResult{Success: false, Err: exchErr}, nil
}

// extractError pulls the error message out of a rejection body, falling back
// to the raw text when the body is not the expected JSON shape.
func extractError(body []byte) string {
	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	return string(body)
}
