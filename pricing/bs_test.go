package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qodelabs/chaingreeks/models"
)

func TestPrice(t *testing.T) {
	t.Run("atm references", func(t *testing.T) {
		// S=100, K=100, T=1y, r=5%, sigma=20%: well-known textbook values.
		call, err := Price(100, 100, 1, 0.05, 0.2, models.Call)
		require.NoError(t, err)
		assert.InDelta(t, 10.4506, call, 1e-4)

		put, err := Price(100, 100, 1, 0.05, 0.2, models.Put)
		require.NoError(t, err)
		assert.InDelta(t, 5.5735, put, 1e-4)
	})

	t.Run("short dated index put", func(t *testing.T) {
		price, err := Price(25108, 25100, 2.0/365, 0.065, 0.18, models.Put)
		require.NoError(t, err)
		assert.InDelta(t, 125.1197, price, 1e-3)
	})

	t.Run("expired prices at intrinsic", func(t *testing.T) {
		call, err := Price(110, 100, 0, 0.065, 0.2, models.Call)
		require.NoError(t, err)
		assert.Equal(t, 10.0, call)

		put, err := Price(110, 100, -0.5, 0.065, 0.2, models.Put)
		require.NoError(t, err)
		assert.Equal(t, 0.0, put)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		for _, args := range [][]float64{
			{0, 100, 1, 0.05, 0.2},
			{-5, 100, 1, 0.05, 0.2},
			{100, 0, 1, 0.05, 0.2},
			{100, 100, 1, 0.05, 0},
			{100, 100, 1, 0.05, -0.1},
		} {
			_, err := Price(args[0], args[1], args[2], args[3], args[4], models.Call)
			assert.ErrorIs(t, err, ErrInvalidParameters)
		}
	})

	t.Run("deep otm never negative", func(t *testing.T) {
		price, err := Price(100, 500, 0.01, 0.065, 0.05, models.Call)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, price, 0.0)
		assert.False(t, math.IsNaN(price))
	})
}

func TestPutCallParity(t *testing.T) {
	cases := []struct{ S, K, T, r, sigma float64 }{
		{105, 100, 0.5, 0.06, 0.3},
		{25108, 25100, 2.0 / 365, 0.065, 0.18},
		{80, 100, 1.5, 0.04, 0.6},
		{100, 100, 2, 0.065, 0.12},
	}
	for _, c := range cases {
		call, err := Price(c.S, c.K, c.T, c.r, c.sigma, models.Call)
		require.NoError(t, err)
		put, err := Price(c.S, c.K, c.T, c.r, c.sigma, models.Put)
		require.NoError(t, err)

		forward := c.S - c.K*math.Exp(-c.r*c.T)
		assert.InDelta(t, forward, call-put, math.Abs(forward)*1e-9+1e-12)
	}
}

func TestPriceMonotonicity(t *testing.T) {
	const K, T, r, sigma = 100.0, 0.25, 0.065, 0.25

	t.Run("call non-decreasing in spot", func(t *testing.T) {
		prev := -1.0
		for S := 50.0; S <= 150; S += 1 {
			price, err := Price(S, K, T, r, sigma, models.Call)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, price, prev)
			prev = price
		}
	})

	t.Run("put non-increasing in spot", func(t *testing.T) {
		prev := math.Inf(1)
		for S := 50.0; S <= 150; S += 1 {
			price, err := Price(S, K, T, r, sigma, models.Put)
			require.NoError(t, err)
			assert.LessOrEqual(t, price, prev)
			prev = price
		}
	})

	t.Run("call non-increasing in strike", func(t *testing.T) {
		prev := math.Inf(1)
		for k := 50.0; k <= 150; k += 1 {
			price, err := Price(100, k, T, r, sigma, models.Call)
			require.NoError(t, err)
			assert.LessOrEqual(t, price, prev)
			prev = price
		}
	})

	t.Run("put non-decreasing in strike", func(t *testing.T) {
		prev := -1.0
		for k := 50.0; k <= 150; k += 1 {
			price, err := Price(100, k, T, r, sigma, models.Put)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, price, prev)
			prev = price
		}
	})
}
