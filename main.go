package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/cpu"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qodelabs/chaingreeks/config"
	"github.com/qodelabs/chaingreeks/engine"
	"github.com/qodelabs/chaingreeks/storage"
)

var (
	flagConfig     string
	flagInput      string
	flagOutput     string
	flagSpot       string
	flagUnderlying string
	flagSummary    string
	flagWorkers    int
	flagNoProgress bool
)

var rootCmd = &cobra.Command{
	Use:          "chaingreeks",
	Short:        "Implied volatility and greeks enrichment for historical option quotes",
	SilenceUsage: true,
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a CSV of option quotes with IV and greeks",
	RunE:  runEnrich,
}

func init() {
	enrichCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "YAML config file")
	enrichCmd.Flags().StringVarP(&flagInput, "input", "i", "", "input quotes CSV (required)")
	enrichCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output enriched CSV (required)")
	enrichCmd.Flags().StringVar(&flagSpot, "spot", "", "spot bars CSV for the underlying join")
	enrichCmd.Flags().StringVar(&flagUnderlying, "underlying", "", "underlying symbol for the spot join")
	enrichCmd.Flags().StringVar(&flagSummary, "summary", "", "write batch summary JSON to this path")
	enrichCmd.Flags().IntVar(&flagWorkers, "workers", 0, "worker count (default: all CPUs)")
	enrichCmd.Flags().BoolVar(&flagNoProgress, "no-progress", false, "disable the progress bar")
	enrichCmd.MarkFlagRequired("input")
	enrichCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	logCPUInfo()

	source, err := storage.NewCSVQuoteSource(flagInput, cfg.Location())
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"file": flagInput, "rows": source.TotalRows()}).Info("loaded quotes")

	if flagSpot != "" {
		if flagUnderlying == "" {
			return fmt.Errorf("--underlying is required with --spot")
		}
		index, err := storage.NewSpotIndexFromCSV(flagSpot, cfg.Location())
		if err != nil {
			return err
		}
		storage.JoinUnderlying(source.Quotes(), index, flagUnderlying)
		log.WithField("underlying", flagUnderlying).Info("joined spot prices")
	}

	writer, err := storage.NewCSVEnrichedWriter(flagOutput)
	if err != nil {
		return err
	}
	defer writer.Close()

	eng := engine.New(engine.Config{
		RateTable: cfg.RateTable(),
		Clock:     cfg.Clock(),
		Solver:    cfg.Solver(),
		ChunkSize: cfg.ChunkSize,
		Workers:   pickWorkers(cfg.Workers),
		Progress:  !flagNoProgress,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := eng.Run(ctx, source, writer)
	if summary != nil && flagSummary != "" {
		if werr := storage.WriteSummary(flagSummary, summary); werr != nil {
			log.WithError(werr).Warn("failed to write summary")
		}
	}
	if err != nil {
		return err
	}

	fmt.Printf("Enriched %d rows (%d resolved, %d unavailable) in %v\n",
		summary.TotalRows, summary.Resolved, summary.UnavailableTotal(), summary.Duration.Round(time.Millisecond))
	return nil
}

// logCPUInfo records the host topology before the worker pool is sized,
// which makes throughput numbers in the logs comparable across machines.
func logCPUInfo() {
	fields := log.Fields{"gomaxprocs": runtime.GOMAXPROCS(0)}
	if counts, err := cpu.Counts(true); err == nil {
		fields["logical_cpus"] = counts
	}
	if percent, err := cpu.Percent(time.Second, false); err == nil && len(percent) > 0 {
		fields["cpu_busy_pct"] = fmt.Sprintf("%.1f", percent[0])
	}
	log.WithFields(fields).Info("host CPU")
}

func pickWorkers(configured int) int {
	if flagWorkers > 0 {
		return flagWorkers
	}
	if configured > 0 {
		return configured
	}
	return runtime.NumCPU()
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
