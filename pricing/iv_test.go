package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/qodelabs/chaingreeks/models"
)

func defaultSolver() Solver {
	return NewSolver(0, 0, 0, 0)
}

func TestImpliedVolatilityRoundTrip(t *testing.T) {
	solver := defaultSolver()
	rng := rand.New(rand.NewSource(1))

	tested := 0
	for i := 0; i < 2000; i++ {
		S := 100.0
		K := 70 + 60*rng.Float64()
		T := 0.01 + 1.99*rng.Float64()
		sigma := 0.05 + 1.95*rng.Float64()
		optionType := models.Call
		if rng.Intn(2) == 0 {
			optionType = models.Put
		}

		price, err := Price(S, K, T, 0.065, sigma, optionType)
		require.NoError(t, err)

		// Skip quotes that do not determine a volatility: no meaningful
		// time value, or vega too flat for the price to pin sigma down.
		if price-IntrinsicValue(S, K, optionType) < 1e-3 || rawVega(S, K, T, 0.065, sigma) < 0.5 {
			continue
		}
		tested++

		got, ok := solver.ImpliedVolatility(price, S, K, T, 0.065, optionType)
		require.True(t, ok, "S=%v K=%v T=%v sigma=%v type=%v", S, K, T, sigma, optionType)
		assert.InDelta(t, sigma, got, 1e-4, "S=%v K=%v T=%v type=%v", S, K, T, optionType)
	}
	// The guard must not hollow the test out.
	assert.Greater(t, tested, 1500)
}

func TestImpliedVolatilityShortDatedPut(t *testing.T) {
	solver := defaultSolver()

	// Reference contract: the 77.55 market premium implies ~11.57% vol,
	// while 18% vol prices the same contract at ~125.12.
	iv, ok := solver.ImpliedVolatility(77.55, 25108, 25100, 2.0/365, 0.065, models.Put)
	require.True(t, ok)
	assert.InDelta(t, 0.115693, iv, 1e-4)

	price, err := Price(25108, 25100, 2.0/365, 0.065, iv, models.Put)
	require.NoError(t, err)
	assert.InDelta(t, 77.55, price, 1e-4)

	iv, ok = solver.ImpliedVolatility(125.1197, 25108, 25100, 2.0/365, 0.065, models.Put)
	require.True(t, ok)
	assert.InDelta(t, 0.18, iv, 1e-4)
}

func TestImpliedVolatilityUnavailable(t *testing.T) {
	solver := defaultSolver()

	t.Run("no time value", func(t *testing.T) {
		// Deep ITM call quoted exactly at intrinsic.
		_, ok := solver.ImpliedVolatility(20, 120, 100, 0.5, 0.065, models.Call)
		assert.False(t, ok)
	})

	t.Run("below intrinsic", func(t *testing.T) {
		_, ok := solver.ImpliedVolatility(15, 120, 100, 0.5, 0.065, models.Call)
		assert.False(t, ok)
	})

	t.Run("zero or negative inputs", func(t *testing.T) {
		_, ok := solver.ImpliedVolatility(0, 100, 100, 0.5, 0.065, models.Call)
		assert.False(t, ok)
		_, ok = solver.ImpliedVolatility(5, 0, 100, 0.5, 0.065, models.Call)
		assert.False(t, ok)
		_, ok = solver.ImpliedVolatility(5, 100, 0, 0.5, 0.065, models.Call)
		assert.False(t, ok)
		_, ok = solver.ImpliedVolatility(5, 100, 100, 0, 0.065, models.Call)
		assert.False(t, ok)
	})
}

func TestImpliedVolatilityDeepOTMShortDated(t *testing.T) {
	solver := defaultSolver()

	// A 50-point premium on a call 20% out of the money with ~3.65 days
	// left implies volatility far beyond the ceiling. The solver must
	// refuse rather than extrapolate, and must never yield sigma <= 0.
	sigma, ok := solver.ImpliedVolatility(50, 80, 100, 0.01, 0.065, models.Call)
	if ok {
		assert.Greater(t, sigma, 0.0)
		assert.LessOrEqual(t, sigma, solver.Ceiling)
		assert.False(t, math.IsNaN(sigma))
	} else {
		assert.Equal(t, 0.0, sigma)
	}
}

func TestImpliedVolatilityBounded(t *testing.T) {
	solver := defaultSolver()
	rng := rand.New(rand.NewSource(2))

	// Whatever garbage comes in, any recovered sigma stays inside
	// [floor, ceiling] and is finite.
	for i := 0; i < 500; i++ {
		market := rng.Float64() * 200
		S := rng.Float64() * 200
		K := rng.Float64() * 200
		T := rng.Float64() * 2
		sigma, ok := solver.ImpliedVolatility(market, S, K, T, 0.065, models.Put)
		if !ok {
			continue
		}
		assert.False(t, math.IsNaN(sigma))
		assert.False(t, math.IsInf(sigma, 0))
		assert.GreaterOrEqual(t, sigma, solver.Floor)
		assert.LessOrEqual(t, sigma, solver.Ceiling)
	}
}

func TestNewSolverDefaults(t *testing.T) {
	s := NewSolver(0, 0, 0, 0)
	assert.Equal(t, 100, s.MaxIterations)
	assert.Equal(t, 1e-6, s.Tolerance)
	assert.Equal(t, 0.001, s.Floor)
	assert.Equal(t, 5.0, s.Ceiling)

	custom := NewSolver(50, 1e-8, 0.01, 8)
	assert.Equal(t, 50, custom.MaxIterations)
	assert.Equal(t, 8.0, custom.Ceiling)
}
