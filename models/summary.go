package models

import "time"

// IVStats describes the distribution of resolved implied volatilities in
// a completed batch.
type IVStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
}

// BatchSummary is the operator-facing result of one enrichment run: row
// totals and a breakdown of unavailable rows by reason, enough to judge
// data quality without inspecting individual rows.
type BatchSummary struct {
	RunID       string           `json:"run_id"`
	TotalRows   int64            `json:"total_rows"`
	Resolved    int64            `json:"resolved"`
	Unavailable map[Reason]int64 `json:"unavailable"`
	Chunks      int64            `json:"chunks"`
	IVStats     *IVStats         `json:"iv_stats,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	Duration    time.Duration    `json:"duration"`
}

// UnavailableTotal sums the per-reason counts.
func (s *BatchSummary) UnavailableTotal() int64 {
	var total int64
	for _, n := range s.Unavailable {
		total += n
	}
	return total
}
