package storage

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/qodelabs/chaingreeks/models"
)

type spotRecord struct {
	Timestamp string  `csv:"timestamp"`
	Symbol    string  `csv:"symbol"`
	Close     float64 `csv:"close"`
}

type spotPoint struct {
	ts    time.Time
	price float64
}

// SpotIndex is a read-only point-in-time lookup of underlying prices:
// the prevailing price for a quote is the spot bar at the nearest
// preceding timestamp. Build it fully before sharing; lookups are safe
// to run concurrently once Freeze has been called.
type SpotIndex struct {
	series map[string][]spotPoint
	frozen bool
}

func NewSpotIndex() *SpotIndex {
	return &SpotIndex{series: make(map[string][]spotPoint)}
}

// NewSpotIndexFromCSV loads spot bars (timestamp, symbol, close) from a
// CSV file and returns a frozen index.
func NewSpotIndexFromCSV(path string, loc *time.Location) (*SpotIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening spot file: %w", err)
	}
	defer f.Close()

	var records []*spotRecord
	if err := gocsv.Unmarshal(f, &records); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	idx := NewSpotIndex()
	for i, rec := range records {
		if rec.Close <= 0 {
			continue
		}
		ts, err := parseInLocation(rec.Timestamp, timestampLayouts, loc)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		idx.Add(rec.Symbol, ts, rec.Close)
	}
	idx.Freeze()
	return idx, nil
}

func (s *SpotIndex) Add(symbol string, ts time.Time, price float64) {
	s.series[symbol] = append(s.series[symbol], spotPoint{ts: ts, price: price})
}

// Freeze sorts each series by timestamp. Add must not be called after.
func (s *SpotIndex) Freeze() {
	for _, points := range s.series {
		sort.Slice(points, func(i, j int) bool { return points[i].ts.Before(points[j].ts) })
	}
	s.frozen = true
}

// Price returns the spot at the nearest timestamp at or before `at`, or
// ok=false when the symbol has no bar that early.
func (s *SpotIndex) Price(symbol string, at time.Time) (float64, bool) {
	points := s.series[symbol]
	if len(points) == 0 {
		return 0, false
	}
	// First point strictly after `at`; the answer is the one before it.
	i := sort.Search(len(points), func(i int) bool { return points[i].ts.After(at) })
	if i == 0 {
		return 0, false
	}
	return points[i-1].price, true
}

// JoinUnderlying fills each quote's UnderlyingPrice from the index.
// Quotes with no preceding spot bar keep a zero price, which the engine
// classifies as bad input rather than failing the batch.
func JoinUnderlying(quotes []models.Quote, index *SpotIndex, underlyingSymbol string) {
	for i := range quotes {
		if price, ok := index.Price(underlyingSymbol, quotes[i].Timestamp); ok {
			quotes[i].UnderlyingPrice = price
		}
	}
}
