// Package feed streams live mark prices from the exchange websocket into a
// price sink. It is only wired when the "live" price source is configured.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// PriceSink receives each price tick. Implemented by pricing.MemoryStore.
type PriceSink interface {
	SetPrice(symbol string, price float64, ts time.Time)
}

// PacificaWSFeed connects to the exchange websocket, subscribes to the prices
// channel, and pushes every tick into the sink. It reconnects on disconnect.
type PacificaWSFeed struct {
	wsURL     string
	sink      PriceSink
	logger    *slog.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// subscribeMsg is the prices-channel subscription request.
type subscribeMsg struct {
	Method string          `json:"method"`
	Params subscribeParams `json:"params"`
}

type subscribeParams struct {
	Source string `json:"source"`
}

// priceMsg is a prices-channel frame. Mark prices arrive as decimal strings.
type priceMsg struct {
	Channel string       `json:"channel"`
	Data    []priceEntry `json:"data"`
}

type priceEntry struct {
	Symbol string `json:"symbol"`
	Mark   string `json:"mark"`
}

// NewPacificaWSFeed creates a feed writing into sink.
func NewPacificaWSFeed(wsURL string, sink PriceSink, logger *slog.Logger) *PacificaWSFeed {
	return &PacificaWSFeed{
		wsURL:  wsURL,
		sink:   sink,
		logger: logger.With(slog.String("component", "pacifica_ws_feed")),
		done:   make(chan struct{}),
	}
}

// Run connects, subscribes, and pumps ticks until ctx is cancelled. It
// reconnects with a short backoff on disconnect.
func (f *PacificaWSFeed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("websocket disconnected, reconnecting", slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func (f *PacificaWSFeed) runConnection(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, f.wsURL, nil)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := subscribeMsg{Method: "subscribe", Params: subscribeParams{Source: "prices"}}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	f.logger.Info("subscribed to price stream", slog.String("url", f.wsURL))

	// Close the connection when ctx ends so ReadMessage unblocks.
	readerDone := make(chan struct{})
	defer close(readerDone)
	go func() {
		select {
		case <-ctx.Done():
		case <-f.done:
		case <-readerDone:
		}
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.handleMessage(raw)
	}
}

func (f *PacificaWSFeed) handleMessage(raw []byte) {
	var msg priceMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		f.logger.Debug("unparseable frame", slog.String("error", err.Error()))
		return
	}
	if msg.Channel != "prices" {
		return
	}
	now := time.Now()
	for _, e := range msg.Data {
		price, err := strconv.ParseFloat(e.Mark, 64)
		if err != nil || price <= 0 {
			continue
		}
		f.sink.SetPrice(e.Symbol, price, now)
	}
}

// Close stops the feed.
func (f *PacificaWSFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
