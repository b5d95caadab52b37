// Package storage provides the collaborators around the numerical core:
// CSV-backed quote sources and enriched sinks, point-in-time spot price
// lookups, and the JSON summary artifact.
package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/qodelabs/chaingreeks/models"
)

var quoteColumns = []string{"timestamp", "symbol", "strike", "expiry", "option_type", "market_price"}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

var expiryLayouts = []string{
	"2006-01-02",
	"20060102",
	"2006-01-02 15:04:05",
}

type quoteRecord struct {
	Timestamp       string  `csv:"timestamp"`
	Symbol          string  `csv:"symbol"`
	Strike          float64 `csv:"strike"`
	Expiry          string  `csv:"expiry"`
	OptionType      string  `csv:"option_type"`
	UnderlyingPrice float64 `csv:"underlying_price"`
	MarketPrice     float64 `csv:"market_price"`
}

// CSVQuoteSource serves quote rows from a CSV archive in chunks. The file
// is decoded eagerly: the historical master files fit in memory and an
// upfront parse lets structural problems fail the batch before any chunk
// is committed downstream.
type CSVQuoteSource struct {
	quotes []models.Quote
	pos    int
}

// NewCSVQuoteSource parses path. Timestamps without zone information are
// interpreted in loc. Missing required columns or unparseable rows are
// caller contract violations and fail immediately.
func NewCSVQuoteSource(path string, loc *time.Location) (*CSVQuoteSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening quote file: %w", err)
	}
	defer f.Close()

	if err := validateHeader(f, quoteColumns); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var records []*quoteRecord
	if err := gocsv.Unmarshal(f, &records); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	quotes := make([]models.Quote, 0, len(records))
	for i, rec := range records {
		q, err := rec.toQuote(loc)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		quotes = append(quotes, q)
	}

	return &CSVQuoteSource{quotes: quotes}, nil
}

// NewQuoteSourceFromSlice wraps already-loaded rows, mainly for tests and
// for callers that join spot prices before enrichment.
func NewQuoteSourceFromSlice(quotes []models.Quote) *CSVQuoteSource {
	return &CSVQuoteSource{quotes: quotes}
}

// Quotes exposes the decoded rows so the spot join can run before the
// engine sees them.
func (s *CSVQuoteSource) Quotes() []models.Quote {
	return s.quotes
}

func (s *CSVQuoteSource) TotalRows() int64 {
	return int64(len(s.quotes))
}

func (s *CSVQuoteSource) Next(_ context.Context, max int) ([]models.Quote, error) {
	if s.pos >= len(s.quotes) {
		return nil, nil
	}
	end := s.pos + max
	if end > len(s.quotes) {
		end = len(s.quotes)
	}
	chunk := s.quotes[s.pos:end]
	s.pos = end
	return chunk, nil
}

func (r *quoteRecord) toQuote(loc *time.Location) (models.Quote, error) {
	ts, err := parseInLocation(r.Timestamp, timestampLayouts, loc)
	if err != nil {
		return models.Quote{}, fmt.Errorf("timestamp: %w", err)
	}
	expiry, err := parseInLocation(r.Expiry, expiryLayouts, loc)
	if err != nil {
		return models.Quote{}, fmt.Errorf("expiry: %w", err)
	}
	optionType, err := models.ParseOptionType(r.OptionType)
	if err != nil {
		return models.Quote{}, err
	}
	return models.Quote{
		Timestamp:       ts,
		Symbol:          r.Symbol,
		Strike:          r.Strike,
		Expiry:          expiry,
		OptionType:      optionType,
		UnderlyingPrice: r.UnderlyingPrice,
		MarketPrice:     r.MarketPrice,
	}, nil
}

func parseInLocation(value string, layouts []string, loc *time.Location) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}

func validateHeader(r io.Reader, required []string) error {
	header, err := csv.NewReader(r).Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}
	for _, col := range required {
		if !present[col] {
			return fmt.Errorf("missing required column %q", col)
		}
	}
	return nil
}
