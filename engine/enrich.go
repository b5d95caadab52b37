package engine

import (
	"math"
	"sync"

	log "github.com/sirupsen/logrus"
	mpb "github.com/vbauerster/mpb/v7"

	"github.com/qodelabs/chaingreeks/models"
	"github.com/qodelabs/chaingreeks/pricing"
)

// processChunk fans the chunk's rows out over the worker pool. Each
// worker writes to a disjoint index of the output slice, so the rows stay
// in input order without coordination.
func (e *Engine) processChunk(quotes []models.Quote, bar *mpb.Bar) []models.EnrichedQuote {
	out := make([]models.EnrichedQuote, len(quotes))

	jobs := make(chan int, len(quotes))
	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = e.enrichRow(quotes[i])
				if bar != nil {
					bar.Increment()
				}
			}
		}()
	}

	for i := range quotes {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return out
}

// enrichRow derives one EnrichedQuote. A row that panics or produces
// non-finite intermediates is marked unavailable with ReasonAnomaly and
// logged with its key fields; it never aborts the batch.
func (e *Engine) enrichRow(q models.Quote) (enriched models.EnrichedQuote) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"symbol":    q.Symbol,
				"timestamp": q.Timestamp,
				"strike":    q.Strike,
				"panic":     r,
			}).Warn("numerical anomaly while enriching row")
			enriched = unavailable(q, 0, models.ReasonAnomaly)
		}
	}()

	T := e.clock.YearsToExpiry(q.Timestamp, q.Expiry)

	// Bad upstream joins (zero spot, zero strike) surface here rather
	// than as InvalidParameters deeper in the pricing core.
	if q.Strike <= 0 || q.UnderlyingPrice <= 0 || q.MarketPrice < 0 ||
		math.IsNaN(q.UnderlyingPrice) || math.IsNaN(q.MarketPrice) {
		return unavailable(q, T, models.ReasonBadInput)
	}

	// Many chain rows are observed on or after their own expiry; this is
	// the dominant unavailable category in the historical data.
	if T <= 0 {
		return unavailable(q, 0, models.ReasonExpired)
	}

	r := e.rates.Rate(q.Timestamp.In(e.clock.Location).Year())

	if q.MarketPrice <= 0 || q.MarketPrice <= pricing.IntrinsicValue(q.UnderlyingPrice, q.Strike, q.OptionType) {
		return unavailable(q, T, models.ReasonNoTimeValue)
	}

	sigma, ok := e.solver.ImpliedVolatility(q.MarketPrice, q.UnderlyingPrice, q.Strike, T, r, q.OptionType)
	if !ok {
		return unavailable(q, T, models.ReasonNoConvergence)
	}

	greeks, err := pricing.ComputeGreeks(q.UnderlyingPrice, q.Strike, T, r, sigma, q.OptionType)
	if err != nil || !finiteGreeks(greeks) {
		log.WithFields(log.Fields{
			"symbol":    q.Symbol,
			"timestamp": q.Timestamp,
			"strike":    q.Strike,
			"iv":        sigma,
		}).Warn("greeks computation failed on solved volatility")
		return unavailable(q, T, models.ReasonAnomaly)
	}

	return models.EnrichedQuote{
		Quote:             q,
		TimeToExpiryYears: T,
		ImpliedVolatility: &sigma,
		Delta:             &greeks.Delta,
		Gamma:             &greeks.Gamma,
		Theta:             &greeks.Theta,
		Vega:              &greeks.Vega,
		Rho:               &greeks.Rho,
	}
}

func unavailable(q models.Quote, T float64, reason models.Reason) models.EnrichedQuote {
	return models.EnrichedQuote{
		Quote:             q,
		TimeToExpiryYears: T,
		Reason:            reason,
	}
}

func finiteGreeks(g pricing.Greeks) bool {
	for _, v := range []float64{g.Delta, g.Gamma, g.Theta, g.Vega, g.Rho} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
