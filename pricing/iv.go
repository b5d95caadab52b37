package pricing

import (
	"math"

	"github.com/qodelabs/chaingreeks/models"
)

const (
	ivSeed       = 0.2 // equity-index default starting guess
	vegaCollapse = 1e-10

	// Bisection brackets by moneyness, per the historical solver. The
	// upper bound widens for very short-dated contracts, where quotes at
	// modest premiums can imply extreme volatility.
	bracketLow        = 0.05
	bracketHighATM    = 1.0
	bracketHighWing   = 2.0
	bracketHighShort  = 3.0
	shortDatedYears   = 0.05
	bisectionMaxIters = 100
	bisectionXTol     = 1e-6
)

// Solver recovers implied volatility from an observed market price via
// safeguarded Newton-Raphson with a bracketed bisection fallback. The
// zero value is not usable; construct with NewSolver.
type Solver struct {
	MaxIterations int
	Tolerance     float64
	Floor         float64
	Ceiling       float64
}

// NewSolver applies defaults for unset fields: 100 iterations, 1e-6
// relative tolerance, volatility clamped to [0.001, 5.0].
func NewSolver(maxIterations int, tolerance, floor, ceiling float64) Solver {
	if maxIterations <= 0 {
		maxIterations = 100
	}
	if tolerance <= 0 {
		tolerance = 1e-6
	}
	if floor <= 0 {
		floor = 0.001
	}
	if ceiling <= floor {
		ceiling = 5.0
	}
	return Solver{MaxIterations: maxIterations, Tolerance: tolerance, Floor: floor, Ceiling: ceiling}
}

// rawVega is the price sensitivity S·φ(d1)·√T that drives the Newton
// step. The /100-scaled figure in Greeks is a reporting convention only
// and must never be used here.
func rawVega(S, K, T, r, sigma float64) float64 {
	d1, _ := d1d2(S, K, T, r, sigma)
	return S * normPDF(d1) * math.Sqrt(T)
}

// ImpliedVolatility returns the volatility at which the Black-Scholes
// price matches marketPrice, or ok=false when none is recoverable. A
// false result is an expected outcome on real chain data (no time value,
// expired rows, non-convergence), not an error.
//
// The result is always finite, at least the configured floor and at most
// the ceiling.
func (s Solver) ImpliedVolatility(marketPrice, S, K, T, r float64, optionType models.OptionType) (float64, bool) {
	if marketPrice <= 0 || S <= 0 || K <= 0 || T <= 0 {
		return 0, false
	}
	// A quote at or below intrinsic carries no time value, so the model
	// does not define a volatility for it.
	if marketPrice <= IntrinsicValue(S, K, optionType) {
		return 0, false
	}

	if sigma, ok := s.newton(marketPrice, S, K, T, r, optionType); ok {
		return sigma, true
	}
	return s.bisect(marketPrice, S, K, T, r, optionType)
}

func (s Solver) newton(marketPrice, S, K, T, r float64, optionType models.OptionType) (float64, bool) {
	sigma := ivSeed
	for i := 0; i < s.MaxIterations; i++ {
		price, err := Price(S, K, T, r, sigma, optionType)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			return 0, false
		}

		diff := price - marketPrice
		// Relative tolerance: an absolute 1e-6 either over-iterates cheap
		// contracts or under-iterates expensive ones.
		if math.Abs(diff) < s.Tolerance*math.Max(1, marketPrice) {
			return s.clamp(sigma), true
		}

		vega := rawVega(S, K, T, r, sigma)
		if math.Abs(vega) < vegaCollapse {
			// Flat objective, the step cannot progress.
			return 0, false
		}

		sigma -= diff / vega
		if sigma <= 0 {
			sigma = s.Floor
		} else if sigma > s.Ceiling {
			sigma = s.Ceiling
		}
	}
	return 0, false
}

// bisect root-finds price(sigma) - marketPrice over a moneyness-dependent
// bracket. When the objective does not change sign across the bracket the
// quote is declared unavailable rather than extrapolated.
func (s Solver) bisect(marketPrice, S, K, T, r float64, optionType models.OptionType) (float64, bool) {
	lo, hi := bracketLow, bracketHighWing
	if moneyness := S / K; moneyness >= 0.9 && moneyness <= 1.1 {
		hi = bracketHighATM
	}
	if T < shortDatedYears {
		hi = math.Max(hi, bracketHighShort)
	}
	hi = math.Min(hi, s.Ceiling)

	objective := func(sigma float64) float64 {
		price, err := Price(S, K, T, r, sigma, optionType)
		if err != nil {
			return math.NaN()
		}
		return price - marketPrice
	}

	fLo, fHi := objective(lo), objective(hi)
	if math.IsNaN(fLo) || math.IsNaN(fHi) || fLo*fHi > 0 {
		return 0, false
	}
	if fLo == 0 {
		return s.clamp(lo), true
	}
	if fHi == 0 {
		return s.clamp(hi), true
	}

	for i := 0; i < bisectionMaxIters; i++ {
		mid := 0.5 * (lo + hi)
		fMid := objective(mid)
		if math.IsNaN(fMid) {
			return 0, false
		}
		if math.Abs(fMid) < s.Tolerance*math.Max(1, marketPrice) || hi-lo < bisectionXTol {
			return s.clamp(mid), true
		}
		if fLo*fMid < 0 {
			hi = mid
		} else {
			lo, fLo = mid, fMid
		}
	}
	return s.clamp(0.5 * (lo + hi)), true
}

func (s Solver) clamp(sigma float64) float64 {
	return math.Min(math.Max(sigma, s.Floor), s.Ceiling)
}
