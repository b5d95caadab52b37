// Package pricing implements closed-form Black-Scholes pricing, analytic
// greeks and implied-volatility recovery. Everything here is a pure
// function of its inputs; batching, I/O and logging live in engine.
package pricing

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/qodelabs/chaingreeks/models"
)

// ErrInvalidParameters marks a pricing or greeks call with structurally
// invalid inputs: non-positive spot, strike or volatility where one is
// required. Callers batching noisy market data are expected to pre-filter
// instead of handling this per row.
var ErrInvalidParameters = errors.New("pricing: invalid parameters")

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// normCDF is the standard normal CDF. distuv computes it via erfc, which
// stays exact for |x| large enough that a naive series would lose the tail.
func normCDF(x float64) float64 {
	return stdNormal.CDF(x)
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return stdNormal.Prob(x)
}

// d1d2 returns the two Black-Scholes quantiles. All greeks for a contract
// must be derived from one d1/d2 pair so rounding drift cannot make them
// mutually inconsistent.
func d1d2(S, K, T, r, sigma float64) (float64, float64) {
	sqrtT := math.Sqrt(T)
	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * sqrtT)
	return d1, d1 - sigma*sqrtT
}

// IntrinsicValue is the exercise value of the contract at spot S.
func IntrinsicValue(S, K float64, optionType models.OptionType) float64 {
	if optionType.IsCall() {
		return math.Max(S-K, 0)
	}
	return math.Max(K-S, 0)
}

// Price returns the Black-Scholes value of a European option.
//
// An expired or expiring-now contract (T <= 0) has a deterministic value,
// so it prices at intrinsic rather than failing. Non-positive S, K or
// sigma have no economically meaningful price and return
// ErrInvalidParameters.
func Price(S, K, T, r, sigma float64, optionType models.OptionType) (float64, error) {
	if S <= 0 || K <= 0 || sigma <= 0 {
		return 0, ErrInvalidParameters
	}
	if T <= 0 {
		return IntrinsicValue(S, K, optionType), nil
	}

	d1, d2 := d1d2(S, K, T, r, sigma)
	discount := K * math.Exp(-r*T)

	var price float64
	if optionType.IsCall() {
		price = S*normCDF(d1) - discount*normCDF(d2)
	} else {
		price = discount*normCDF(-d2) - S*normCDF(-d1)
	}

	// Cancellation on deep out-of-the-money contracts can leave a tiny
	// negative residue.
	return math.Max(price, 0), nil
}
