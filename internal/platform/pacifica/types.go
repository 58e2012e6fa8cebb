package pacifica

import "encoding/json"

// Endpoint and operation-type constants for the subset of the API the bot
// uses. Market orders are the only mutation this client performs.
const (
	endpointCreateMarketOrder = "/orders/create_market"
	typeCreateMarketOrder     = "create_market_order"
)

// signedRequest is the on-the-wire envelope: signature fields first, then the
// operation payload flattened alongside them.
type signedRequest struct {
	Account      string `json:"account"`
	Signature    string `json:"signature"`
	Timestamp    int64  `json:"timestamp"`
	ExpiryWindow int64  `json:"expiry_window"`

	Symbol          string `json:"symbol"`
	Side            string `json:"side"`
	Amount          string `json:"amount"`
	SlippagePercent string `json:"slippage_percent"`
	ReduceOnly      bool   `json:"reduce_only"`
	ClientOrderID   string `json:"client_order_id"`
}

// apiResponse is the common response shape. On rejection the HTTP status is
// non-2xx and Error carries the machine-readable message the close/verify
// protocol classifies.
type apiResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}
