package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"catalogue-rag/internal/domain"

	"golang.org/x/sync/errgroup"
)

// HarvestUsecase pulls dataset descriptions from the source catalogues and
// feeds them through ingestion.
type HarvestUsecase interface {
	// HarvestSource harvests one catalogue and indexes every document it
	// returns. Individual document failures are logged and skipped so one bad
	// record never aborts a full harvest.
	HarvestSource(ctx context.Context, source domain.Source) error
	// HarvestAll harvests every registered catalogue concurrently.
	HarvestAll(ctx context.Context) error
}

type harvestUsecase struct {
	registry *domain.HarvesterRegistry
	indexer  IndexDatasetUsecase
	logger   *slog.Logger
}

func NewHarvestUsecase(
	registry *domain.HarvesterRegistry,
	indexer IndexDatasetUsecase,
	logger *slog.Logger,
) HarvestUsecase {
	return &harvestUsecase{
		registry: registry,
		indexer:  indexer,
		logger:   logger,
	}
}

func (u *harvestUsecase) HarvestSource(ctx context.Context, source domain.Source) error {
	harvester, err := u.registry.ForSource(source)
	if err != nil {
		return err
	}

	docs, err := harvester.Harvest(ctx)
	if err != nil {
		return fmt.Errorf("failed to harvest %s: %w", source, err)
	}

	indexed, skipped := 0, 0
	for _, doc := range docs {
		if err := u.indexer.Upsert(ctx, doc); err != nil {
			skipped++
			u.logger.Error("dataset_index_failed",
				slog.String("source", string(source)),
				slog.String("dataset_id", doc.ID),
				slog.String("error", err.Error()))
			continue
		}
		indexed++
	}

	u.logger.Info("harvest_completed",
		slog.String("source", string(source)),
		slog.Int("harvested", len(docs)),
		slog.Int("indexed", indexed),
		slog.Int("skipped", skipped))
	return nil
}

func (u *harvestUsecase) HarvestAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, h := range u.registry.All() {
		source := h.Source()
		g.Go(func() error {
			return u.HarvestSource(ctx, source)
		})
	}
	return g.Wait()
}
