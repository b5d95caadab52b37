// Package engine applies the pricing core to batches of option quotes:
// chunked, parallel, cancellable enrichment with per-row failure
// isolation and an operator-facing summary.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	mpb "github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"

	"github.com/qodelabs/chaingreeks/models"
	"github.com/qodelabs/chaingreeks/pricing"
)

const defaultChunkSize = 10000

// QuoteSource streams quote rows in chunks. Next returns at most max rows
// and an empty slice once the source is exhausted. TotalRows returns the
// row count when known in advance, or -1.
type QuoteSource interface {
	Next(ctx context.Context, max int) ([]models.Quote, error)
	TotalRows() int64
}

// EnrichedWriter persists one enriched chunk. Writes are expected to be
// transactional per chunk, which is what makes chunk-boundary
// cancellation safe.
type EnrichedWriter interface {
	WriteChunk(ctx context.Context, rows []models.EnrichedQuote) error
}

// Config carries everything a batch run needs. RateTable is shared
// read-only across workers; all other state is per-row.
type Config struct {
	RateTable *models.RateTable
	Clock     pricing.ExpiryClock
	Solver    pricing.Solver
	ChunkSize int
	Workers   int
	Progress  bool
}

// Engine enriches quote rows with time-to-expiry, implied volatility and
// greeks. It holds no mutable state between runs: processing the same
// input twice yields identical output.
type Engine struct {
	rates     *models.RateTable
	clock     pricing.ExpiryClock
	solver    pricing.Solver
	chunkSize int
	workers   int
	progress  bool
}

func New(cfg Config) *Engine {
	if cfg.RateTable == nil {
		cfg.RateTable = models.NewRateTable(nil, models.DefaultRiskFreeRate)
	}
	if cfg.Clock.Location == nil {
		cfg.Clock = pricing.NewExpiryClock(-1, 0, nil)
	}
	if cfg.Solver.MaxIterations == 0 {
		cfg.Solver = pricing.NewSolver(0, 0, 0, 0)
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Engine{
		rates:     cfg.RateTable,
		clock:     cfg.Clock,
		solver:    cfg.Solver,
		chunkSize: cfg.ChunkSize,
		workers:   cfg.Workers,
		progress:  cfg.Progress,
	}
}

// Run streams chunks from source through the worker pool and commits each
// enriched chunk to writer before pulling the next. Cancellation is
// honored between chunks: committed chunks stay committed, the partial
// chunk is discarded, and the summary covers what completed.
func (e *Engine) Run(ctx context.Context, source QuoteSource, writer EnrichedWriter) (*models.BatchSummary, error) {
	summary := e.newSummary()
	logger := log.WithField("run_id", summary.RunID)
	logger.WithFields(log.Fields{
		"workers":    e.workers,
		"chunk_size": e.chunkSize,
	}).Info("starting enrichment run")

	var bar *mpb.Bar
	if total := source.TotalRows(); e.progress && total > 0 {
		progress := mpb.New(mpb.WithWidth(64))
		bar = progress.AddBar(total,
			mpb.PrependDecorators(
				decor.Name("Enriching"),
				decor.Percentage(decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersNoUnit("(%d / %d)", decor.WCSyncSpace),
			),
		)
		// Shut the renderer down on every exit path. Abort is a no-op
		// once the bar has completed.
		defer func() {
			bar.Abort(true)
			progress.Wait()
		}()
	}

	var ivs []float64
	for {
		if err := ctx.Err(); err != nil {
			e.finish(summary, ivs)
			return summary, err
		}

		quotes, err := source.Next(ctx, e.chunkSize)
		if err != nil {
			e.finish(summary, ivs)
			return summary, fmt.Errorf("reading quote chunk: %w", err)
		}
		if len(quotes) == 0 {
			break
		}

		enriched := e.processChunk(quotes, bar)
		if err := writer.WriteChunk(ctx, enriched); err != nil {
			e.finish(summary, ivs)
			return summary, fmt.Errorf("writing enriched chunk: %w", err)
		}

		summary.Chunks++
		e.tally(summary, enriched, &ivs)
	}

	e.finish(summary, ivs)
	logger.WithFields(log.Fields{
		"total":       summary.TotalRows,
		"resolved":    summary.Resolved,
		"unavailable": summary.UnavailableTotal(),
		"chunks":      summary.Chunks,
		"duration":    summary.Duration,
	}).Info("enrichment run complete")
	return summary, nil
}

// Process enriches an in-memory batch and returns the rows alongside the
// summary. It is Run without the streaming collaborators, for callers
// that already hold the rows.
func (e *Engine) Process(ctx context.Context, quotes []models.Quote) ([]models.EnrichedQuote, *models.BatchSummary, error) {
	summary := e.newSummary()
	var out []models.EnrichedQuote
	var ivs []float64

	for start := 0; start < len(quotes); start += e.chunkSize {
		if err := ctx.Err(); err != nil {
			e.finish(summary, ivs)
			return out, summary, err
		}
		end := start + e.chunkSize
		if end > len(quotes) {
			end = len(quotes)
		}
		enriched := e.processChunk(quotes[start:end], nil)
		out = append(out, enriched...)
		summary.Chunks++
		e.tally(summary, enriched, &ivs)
	}

	e.finish(summary, ivs)
	return out, summary, nil
}

func (e *Engine) newSummary() *models.BatchSummary {
	return &models.BatchSummary{
		RunID:       uuid.NewString(),
		Unavailable: make(map[models.Reason]int64),
		StartedAt:   time.Now(),
	}
}

func (e *Engine) tally(summary *models.BatchSummary, rows []models.EnrichedQuote, ivs *[]float64) {
	for i := range rows {
		summary.TotalRows++
		if rows[i].Resolved() {
			summary.Resolved++
			*ivs = append(*ivs, *rows[i].ImpliedVolatility)
		} else {
			summary.Unavailable[rows[i].Reason]++
		}
	}
}

func (e *Engine) finish(summary *models.BatchSummary, ivs []float64) {
	summary.Duration = time.Since(summary.StartedAt)
	summary.IVStats = ivStats(ivs)
}
