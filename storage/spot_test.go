package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qodelabs/chaingreeks/models"
)

func TestSpotIndexNearestPreceding(t *testing.T) {
	idx := NewSpotIndex()
	base := time.Date(2025, 1, 2, 9, 15, 0, 0, time.UTC)
	// Insert out of order; Freeze sorts.
	idx.Add("NIFTY", base.Add(2*time.Minute), 25110)
	idx.Add("NIFTY", base, 25100)
	idx.Add("NIFTY", base.Add(1*time.Minute), 25105)
	idx.Freeze()

	t.Run("exact timestamp", func(t *testing.T) {
		price, ok := idx.Price("NIFTY", base.Add(1*time.Minute))
		require.True(t, ok)
		assert.Equal(t, 25105.0, price)
	})

	t.Run("between bars takes the preceding one", func(t *testing.T) {
		price, ok := idx.Price("NIFTY", base.Add(90*time.Second))
		require.True(t, ok)
		assert.Equal(t, 25105.0, price)
	})

	t.Run("after the last bar", func(t *testing.T) {
		price, ok := idx.Price("NIFTY", base.Add(time.Hour))
		require.True(t, ok)
		assert.Equal(t, 25110.0, price)
	})

	t.Run("before the first bar", func(t *testing.T) {
		_, ok := idx.Price("NIFTY", base.Add(-time.Second))
		assert.False(t, ok)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		_, ok := idx.Price("BANKNIFTY", base)
		assert.False(t, ok)
	})
}

func TestJoinUnderlying(t *testing.T) {
	idx := NewSpotIndex()
	base := time.Date(2025, 1, 2, 9, 15, 0, 0, time.UTC)
	idx.Add("NIFTY", base, 25100)
	idx.Freeze()

	quotes := []models.Quote{
		{Symbol: "NIFTY25JAN25000CE", Timestamp: base.Add(time.Minute)},
		{Symbol: "NIFTY25JAN25000PE", Timestamp: base.Add(-time.Minute)},
	}
	JoinUnderlying(quotes, idx, "NIFTY")

	assert.Equal(t, 25100.0, quotes[0].UnderlyingPrice)
	// No preceding bar: left at zero for the engine to classify.
	assert.Equal(t, 0.0, quotes[1].UnderlyingPrice)
}

func TestSpotIndexFromCSV(t *testing.T) {
	path := writeTempCSV(t, "spot.csv",
		"timestamp,symbol,close\n"+
			"2025-01-02 09:15:00,NIFTY,25100\n"+
			"2025-01-02 09:16:00,NIFTY,0\n"+ // zero bars are dropped
			"2025-01-02 09:17:00,NIFTY,25120\n")

	idx, err := NewSpotIndexFromCSV(path, time.UTC)
	require.NoError(t, err)

	price, ok := idx.Price("NIFTY", time.Date(2025, 1, 2, 9, 16, 30, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 25100.0, price)
}
