package engine

import (
	"github.com/montanaflynn/stats"

	"github.com/qodelabs/chaingreeks/models"
)

// ivStats summarizes the distribution of resolved implied volatilities.
// Returns nil when no row resolved.
func ivStats(ivs []float64) *models.IVStats {
	if len(ivs) == 0 {
		return nil
	}

	mean, err := stats.Mean(ivs)
	if err != nil {
		return nil
	}
	median, err := stats.Median(ivs)
	if err != nil {
		return nil
	}
	p95, err := stats.Percentile(ivs, 95)
	if err != nil {
		// Percentile needs more than one sample.
		p95 = median
	}

	return &models.IVStats{Mean: mean, Median: median, P95: p95}
}
