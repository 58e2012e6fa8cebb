package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoPrice       = errors.New("no price available")
	ErrLockHeld      = errors.New("lock already held")
	ErrSigningFailed = errors.New("signing failed")
	ErrNotRunning    = errors.New("process not running")
)

// ExchangeErrorKind is the closed set of rejection classes the close/verify
// protocol distinguishes. The exchange only reports rejections as free-form
// message text, so the transport promotes the known substrings to this enum
// and everything downstream switches on it.
type ExchangeErrorKind int

const (
	// ErrKindOther is any rejection the protocol has no special handling for.
	ErrKindOther ExchangeErrorKind = iota
	// ErrKindNoPosition means a reduce-only order found nothing to reduce.
	// For position probes this is the success signal.
	ErrKindNoPosition
	// ErrKindLotSizeMismatch means the amount is not on the symbol's lot grid.
	ErrKindLotSizeMismatch
	// ErrKindInvalidReduceSide means a position exists but the reduce-only
	// order was placed on the wrong side of it.
	ErrKindInvalidReduceSide
)

// String returns a short identifier for logging.
func (k ExchangeErrorKind) String() string {
	switch k {
	case ErrKindNoPosition:
		return "no_position"
	case ErrKindLotSizeMismatch:
		return "lot_size_mismatch"
	case ErrKindInvalidReduceSide:
		return "invalid_reduce_side"
	default:
		return "other"
	}
}

// ExchangeError is a classified exchange-level rejection.
type ExchangeError struct {
	Kind    ExchangeErrorKind
	Message string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange rejected order (%s): %s", e.Kind, e.Message)
}

// Rejection substrings as emitted by the exchange API. The no-position
// message varies ("No position found", "No position for ..."), so only the
// stable prefix is matched.
const (
	msgNoPosition        = "No position"
	msgLotSizeMismatch   = "not a multiple of lot size"
	msgInvalidReduceSide = "Invalid reduce-only order side"
)

// ClassifyExchangeError maps a raw rejection message to an ExchangeError.
// Matching happens once here, at the transport boundary.
func ClassifyExchangeError(message string) *ExchangeError {
	kind := ErrKindOther
	switch {
	case strings.Contains(message, msgNoPosition):
		kind = ErrKindNoPosition
	case strings.Contains(message, msgLotSizeMismatch):
		kind = ErrKindLotSizeMismatch
	case strings.Contains(message, msgInvalidReduceSide):
		kind = ErrKindInvalidReduceSide
	}
	return &ExchangeError{Kind: kind, Message: message}
}
