package domain

import (
	"context"
	"encoding/json"
)

// Side is the order direction on the Pacifica wire. A "bid" opens or extends a
// long position, an "ask" opens or extends a short.
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// Opposite returns the reducing side for a position held on s.
func (s Side) Opposite() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

// MarketOrderRequest is a single market order submission. Amounts and slippage
// travel as decimal strings because the exchange rejects float-formatted
// quantities that drift off the lot grid.
type MarketOrderRequest struct {
	Symbol          string `json:"symbol"`
	Side            Side   `json:"side"`
	Amount          string `json:"amount"`
	SlippagePercent string `json:"slippage_percent"`
	ReduceOnly      bool   `json:"reduce_only"`
	ClientOrderID   string `json:"client_order_id"`
}

// OrderResult is the tagged outcome of a market order submission. Exactly one
// of the two arms is populated: Success carries the raw response body, a
// rejection carries a classified ExchangeError.
type OrderResult struct {
	Success bool
	Raw     json.RawMessage
	Err     *ExchangeError
}

// ErrKind returns the classified rejection kind, or ErrKindOther when the
// result carries no exchange error at all.
func (r OrderResult) ErrKind() ExchangeErrorKind {
	if r.Err == nil {
		return ErrKindOther
	}
	return r.Err.Kind
}

// OrderSubmitter is the authenticated transport to the exchange. A returned
// error means the request never produced a usable exchange response (timeout,
// connection failure, malformed body); exchange-level rejections come back as
// an OrderResult with Success=false and a classified Err.
type OrderSubmitter interface {
	// SubmitOrder submits a market order and logs rejections.
	SubmitOrder(ctx context.Context, req MarketOrderRequest) (OrderResult, error)

	// SubmitOrderQuiet is SubmitOrder without rejection logging. Position
	// probes use it because rejection is their expected outcome.
	SubmitOrderQuiet(ctx context.Context, req MarketOrderRequest) (OrderResult, error)
}
