package pricing

import (
	"math"

	"github.com/qodelabs/chaingreeks/models"
)

// Greeks holds the five standard sensitivities in reporting convention:
// theta per calendar day, vega per volatility point (1%), rho per
// percentage point of rate. Delta and gamma are unscaled.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// ComputeGreeks returns the analytic Black-Scholes sensitivities for a
// contract priced at volatility sigma.
//
// Greeks are undefined on the expiry boundary, so unlike Price this also
// rejects T <= 0. Batch callers are expected to have filtered expired
// rows already.
func ComputeGreeks(S, K, T, r, sigma float64, optionType models.OptionType) (Greeks, error) {
	if S <= 0 || K <= 0 || sigma <= 0 || T <= 0 {
		return Greeks{}, ErrInvalidParameters
	}

	d1, d2 := d1d2(S, K, T, r, sigma)
	sqrtT := math.Sqrt(T)
	pdfD1 := normPDF(d1)
	discount := K * math.Exp(-r*T)

	g := Greeks{
		Gamma: pdfD1 / (S * sigma * sqrtT),
		Vega:  S * pdfD1 * sqrtT / 100,
	}

	if optionType.IsCall() {
		g.Delta = normCDF(d1)
		g.Theta = (-S*pdfD1*sigma/(2*sqrtT) - r*discount*normCDF(d2)) / 365
		g.Rho = T * discount * normCDF(d2) / 100
	} else {
		g.Delta = normCDF(d1) - 1
		g.Theta = (-S*pdfD1*sigma/(2*sqrtT) + r*discount*normCDF(-d2)) / 365
		g.Rho = -T * discount * normCDF(-d2) / 100
	}

	return g, nil
}
