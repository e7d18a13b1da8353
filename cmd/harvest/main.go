package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"catalogue-rag/internal/di"
	"catalogue-rag/internal/domain"
	"catalogue-rag/internal/infra"
	"catalogue-rag/internal/infra/config"
)

var (
	version = "dev"

	verbose         bool
	sparseStatsPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "harvest",
	Short:   "Harvest dataset catalogues into the hybrid index",
	Version: version,
}

var runCmd = &cobra.Command{
	Use:   "run [source]",
	Short: "Harvest one source catalogue, or all of them",
	Long: `Harvest dataset descriptions and index them.

The source argument is one of ADR, UKDS, CDRC, or "all" to harvest every
registered catalogue concurrently.

Examples:
  # Harvest a single catalogue
  harvest run UKDS

  # Harvest everything
  harvest run all`,
	Args: cobra.ExactArgs(1),
	RunE: runHarvest,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [dataset-id]",
	Short: "Remove one dataset from the hybrid index",
	Long: `Delete a dataset's chunks and attribution record. The dataset is indexed
again from scratch on the next harvest of its catalogue.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

var rebuildSparseCmd = &cobra.Command{
	Use:   "rebuild-sparse",
	Short: "Rebuild the sparse corpus-statistics artifact from the index",
	Long: `Recompute term document frequencies over every indexed chunk and write
the artifact the query-time sparse encoder loads. Run this after a harvest so
lexical retrieval reflects the refreshed corpus.`,
	RunE: runRebuildSparse,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rebuildSparseCmd.Flags().StringVar(&sparseStatsPath, "out", "", "output path (defaults to SPARSE_STATS_PATH)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(rebuildSparseCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func setup(ctx context.Context, logger *slog.Logger) (*di.ApplicationComponents, func(), error) {
	cfg := config.Load()
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := infra.NewPostgresDB(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to db: %w", err)
	}
	components := di.NewApplicationComponents(cfg, pool, logger)
	return components, pool.Close, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

func runHarvest(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx, cancel := signalContext()
	defer cancel()

	components, closePool, err := setup(ctx, logger)
	if err != nil {
		return err
	}
	defer closePool()

	if args[0] == "all" {
		return components.HarvestUsecase.HarvestAll(ctx)
	}

	source, err := domain.ParseSource(args[0])
	if err != nil {
		return err
	}
	return components.HarvestUsecase.HarvestSource(ctx, source)
}

func runDelete(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx, cancel := signalContext()
	defer cancel()

	components, closePool, err := setup(ctx, logger)
	if err != nil {
		return err
	}
	defer closePool()

	return components.IndexUsecase.Delete(ctx, args[0])
}

func runRebuildSparse(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx, cancel := signalContext()
	defer cancel()

	components, closePool, err := setup(ctx, logger)
	if err != nil {
		return err
	}
	defer closePool()

	path := sparseStatsPath
	if path == "" {
		path = config.Load().SparseStatsPath
	}
	return components.IndexUsecase.RebuildSparseStats(ctx, path)
}
