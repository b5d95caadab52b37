package storage

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/qodelabs/chaingreeks/models"
)

// nullFloat carries optional analytics through CSV. An empty cell maps
// to a nil value in both directions, so an unavailable figure never
// loads back as a zero.
type nullFloat struct {
	value *float64
}

func (n nullFloat) MarshalCSV() (string, error) {
	if n.value == nil {
		return "", nil
	}
	return strconv.FormatFloat(*n.value, 'f', -1, 64), nil
}

func (n *nullFloat) UnmarshalCSV(cell string) error {
	if cell == "" {
		n.value = nil
		return nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return err
	}
	n.value = &v
	return nil
}

type enrichedRecord struct {
	Timestamp         string    `csv:"timestamp"`
	Symbol            string    `csv:"symbol"`
	Strike            float64   `csv:"strike"`
	Expiry            string    `csv:"expiry"`
	OptionType        string    `csv:"option_type"`
	UnderlyingPrice   float64   `csv:"underlying_price"`
	MarketPrice       float64   `csv:"market_price"`
	TimeToExpiryYears float64   `csv:"time_to_expiry_years"`
	IV                nullFloat `csv:"iv"`
	Delta             nullFloat `csv:"delta"`
	Gamma             nullFloat `csv:"gamma"`
	Theta             nullFloat `csv:"theta"`
	Vega              nullFloat `csv:"vega"`
	Rho               nullFloat `csv:"rho"`
	Reason            string    `csv:"reason"`
}

// CSVEnrichedWriter appends enriched chunks to a CSV file. Unavailable
// analytics serialize as empty cells, which load back as NULLs on the
// database side; no sentinel floats ever reach disk.
type CSVEnrichedWriter struct {
	file        *os.File
	wroteHeader bool
}

func NewCSVEnrichedWriter(path string) (*CSVEnrichedWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	return &CSVEnrichedWriter{file: f}, nil
}

func (w *CSVEnrichedWriter) WriteChunk(_ context.Context, rows []models.EnrichedQuote) error {
	records := make([]*enrichedRecord, len(rows))
	for i := range rows {
		records[i] = toRecord(&rows[i])
	}

	var err error
	if w.wroteHeader {
		err = gocsv.MarshalWithoutHeaders(&records, w.file)
	} else {
		err = gocsv.Marshal(&records, w.file)
		w.wroteHeader = true
	}
	if err != nil {
		return fmt.Errorf("writing chunk: %w", err)
	}
	return nil
}

func (w *CSVEnrichedWriter) Close() error {
	return w.file.Close()
}

func toRecord(e *models.EnrichedQuote) *enrichedRecord {
	return &enrichedRecord{
		Timestamp:         e.Timestamp.Format("2006-01-02 15:04:05"),
		Symbol:            e.Symbol,
		Strike:            e.Strike,
		Expiry:            e.Expiry.Format("2006-01-02"),
		OptionType:        string(e.OptionType),
		UnderlyingPrice:   e.UnderlyingPrice,
		MarketPrice:       e.MarketPrice,
		TimeToExpiryYears: e.TimeToExpiryYears,
		IV:                nullFloat{e.ImpliedVolatility},
		Delta:             nullFloat{e.Delta},
		Gamma:             nullFloat{e.Gamma},
		Theta:             nullFloat{e.Theta},
		Vega:              nullFloat{e.Vega},
		Rho:               nullFloat{e.Rho},
		Reason:            string(e.Reason),
	}
}

// ChunkCollector is an in-memory EnrichedWriter for tests and small runs.
type ChunkCollector struct {
	Rows   []models.EnrichedQuote
	Chunks int
}

func (c *ChunkCollector) WriteChunk(_ context.Context, rows []models.EnrichedQuote) error {
	c.Rows = append(c.Rows, rows...)
	c.Chunks++
	return nil
}

// ReadEnrichedCSV loads an enriched output file back, for verification
// tooling and tests.
func ReadEnrichedCSV(path string, loc *time.Location) ([]models.EnrichedQuote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []*enrichedRecord
	if err := gocsv.Unmarshal(f, &records); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	rows := make([]models.EnrichedQuote, 0, len(records))
	for i, rec := range records {
		ts, err := parseInLocation(rec.Timestamp, timestampLayouts, loc)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		expiry, err := parseInLocation(rec.Expiry, expiryLayouts, loc)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		optionType, err := models.ParseOptionType(rec.OptionType)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		rows = append(rows, models.EnrichedQuote{
			Quote: models.Quote{
				Timestamp:       ts,
				Symbol:          rec.Symbol,
				Strike:          rec.Strike,
				Expiry:          expiry,
				OptionType:      optionType,
				UnderlyingPrice: rec.UnderlyingPrice,
				MarketPrice:     rec.MarketPrice,
			},
			TimeToExpiryYears: rec.TimeToExpiryYears,
			ImpliedVolatility: rec.IV.value,
			Delta:             rec.Delta.value,
			Gamma:             rec.Gamma.value,
			Theta:             rec.Theta.value,
			Vega:              rec.Vega.value,
			Rho:               rec.Rho.value,
			Reason:            models.Reason(rec.Reason),
		})
	}
	return rows, nil
}
