// Package domain holds the value types and collaborator interfaces shared by
// the trading, transport, and pricing layers.
package domain

import "time"

// Position is the single in-flight position record. It is immutable once
// opened; the position manager only reads it for hold-time bookkeeping and
// replaces it wholesale on close.
type Position struct {
	Symbol      string
	Side        Side
	Amount      string // lot-aligned decimal quantity as sent to the exchange
	OrderID     string // client-generated correlation id
	HoldMinutes int    // drawn once at open time
	OpenedAt    time.Time
}

// PositionInfo is an observability snapshot of the current position.
type PositionInfo struct {
	Position
	HeldMinutes       float64
	TargetHoldMinutes int
	ShouldClose       bool
}
