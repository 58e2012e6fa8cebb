package trading

import (
	"fmt"
	"time"
)

// Stats tracks trade counters for the lifetime of the process. Only the
// controller mutates it, after each open or close attempt; it is never
// persisted.
type Stats struct {
	DailyTrades      int
	TotalTrades      int
	SuccessfulTrades int
	FailedTrades     int
	StartTime        time.Time
}

// NewStats returns zeroed counters stamped with the current time.
func NewStats() *Stats {
	return &Stats{StartTime: time.Now()}
}

// RecordSuccess counts a successfully opened trade.
func (s *Stats) RecordSuccess() {
	s.DailyTrades++
	s.TotalTrades++
	s.SuccessfulTrades++
}

// RecordFailure counts a failed trade attempt.
func (s *Stats) RecordFailure() {
	s.FailedTrades++
}

// SuccessRate returns the percentage of successful trades, or 0 before any
// trade has been attempted.
func (s *Stats) SuccessRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.SuccessfulTrades) / float64(s.TotalTrades) * 100
}

// Line renders the one-line stats report emitted each loop iteration and at
// shutdown.
func (s *Stats) Line(maxDaily int) string {
	return fmt.Sprintf("daily %d/%d total %d success %d failed %d rate %.1f%%",
		s.DailyTrades, maxDaily, s.TotalTrades, s.SuccessfulTrades, s.FailedTrades, s.SuccessRate())
}
