package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"catalogue-rag/internal/domain"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// IndexDatasetUsecase ingests normalized dataset descriptions into the
// hybrid index. Upsert is idempotent on the source hash.
type IndexDatasetUsecase interface {
	Upsert(ctx context.Context, doc domain.NormalizedDocument) error
	Delete(ctx context.Context, datasetID string) error
	// RebuildSparseStats recomputes the corpus-statistics artifact from
	// every indexed chunk and writes it to path.
	RebuildSparseStats(ctx context.Context, path string) error
}

type indexDatasetUsecase struct {
	metaRepo  domain.DatasetMetadataRepository
	chunkRepo domain.CatalogueChunkRepository
	txManager domain.TransactionManager
	hasher    domain.SourceHashPolicy
	chunker   domain.Chunker
	encoder   domain.VectorEncoder
	logger    *slog.Logger
}

// NewIndexDatasetUsecase wires the ingestion components.
func NewIndexDatasetUsecase(
	metaRepo domain.DatasetMetadataRepository,
	chunkRepo domain.CatalogueChunkRepository,
	txManager domain.TransactionManager,
	hasher domain.SourceHashPolicy,
	chunker domain.Chunker,
	encoder domain.VectorEncoder,
	logger *slog.Logger,
) IndexDatasetUsecase {
	return &indexDatasetUsecase{
		metaRepo:  metaRepo,
		chunkRepo: chunkRepo,
		txManager: txManager,
		hasher:    hasher,
		chunker:   chunker,
		encoder:   encoder,
		logger:    logger,
	}
}

func (u *indexDatasetUsecase) Upsert(ctx context.Context, doc domain.NormalizedDocument) error {
	if doc.ID == "" {
		return fmt.Errorf("dataset id is empty")
	}

	sourceHash := u.hasher.Compute(doc.Title, doc.Content)

	return u.txManager.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := u.metaRepo.GetByID(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("failed to get dataset metadata: %w", err)
		}
		if existing != nil && existing.SourceHash == sourceHash {
			return nil
		}

		chunks, err := u.chunker.Chunk(doc.Content)
		if err != nil {
			return fmt.Errorf("failed to chunk dataset description: %w", err)
		}

		// A lone undersized chunk survives the merge pass; it is excluded
		// from the index here.
		kept := chunks[:0]
		for _, c := range chunks {
			if utf8.RuneCountInString(c.Content) >= domain.MinChunkLength {
				kept = append(kept, c)
			}
		}
		chunks = kept

		now := time.Now()
		catalogueChunks := make([]domain.CatalogueChunk, 0, len(chunks))
		contents := make([]string, 0, len(chunks))
		for _, c := range chunks {
			catalogueChunks = append(catalogueChunks, domain.CatalogueChunk{
				ID:        uuid.New(),
				DatasetID: doc.ID,
				Ordinal:   c.Ordinal,
				Content:   c.Content,
				Hash:      c.Hash,
				CreatedAt: now,
			})
			contents = append(contents, c.Content)
		}

		if len(contents) > 0 {
			embeddings, err := u.encoder.Encode(ctx, contents)
			if err != nil {
				return fmt.Errorf("failed to encode chunks: %w", err)
			}
			if len(embeddings) != len(contents) {
				return fmt.Errorf("expected %d embeddings, got %d", len(contents), len(embeddings))
			}
			for i := range catalogueChunks {
				catalogueChunks[i].Embedding = pgvector.NewVector(embeddings[i])
			}
		}

		if err := u.chunkRepo.DeleteByDatasetID(ctx, doc.ID); err != nil {
			return fmt.Errorf("failed to delete stale chunks: %w", err)
		}
		if err := u.chunkRepo.BulkInsertChunks(ctx, catalogueChunks); err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}

		meta := &domain.DatasetMetadata{
			ID:          doc.ID,
			Title:       doc.Title,
			URL:         doc.URL,
			Source:      doc.Source,
			DateCreated: doc.DateCreated,
			SourceHash:  sourceHash,
			UpdatedAt:   now,
		}
		if err := u.metaRepo.Upsert(ctx, meta); err != nil {
			return fmt.Errorf("failed to upsert dataset metadata: %w", err)
		}

		u.logger.Info("dataset_indexed",
			slog.String("dataset_id", doc.ID),
			slog.String("source", string(doc.Source)),
			slog.Int("chunk_count", len(catalogueChunks)))
		return nil
	})
}

// Delete removes a dataset's chunks and its attribution record in one
// transaction. The record carries the source hash, so leaving it behind would
// make a later Upsert of the unchanged description hit the no-op path and
// never restore the chunks.
func (u *indexDatasetUsecase) Delete(ctx context.Context, datasetID string) error {
	if datasetID == "" {
		return fmt.Errorf("dataset id is empty")
	}
	return u.txManager.RunInTx(ctx, func(ctx context.Context) error {
		if err := u.chunkRepo.DeleteByDatasetID(ctx, datasetID); err != nil {
			return fmt.Errorf("failed to delete chunks: %w", err)
		}
		if err := u.metaRepo.DeleteByID(ctx, datasetID); err != nil {
			return fmt.Errorf("failed to delete dataset metadata: %w", err)
		}
		u.logger.Info("dataset_deleted", slog.String("dataset_id", datasetID))
		return nil
	})
}

func (u *indexDatasetUsecase) RebuildSparseStats(ctx context.Context, path string) error {
	contents, err := u.chunkRepo.ListContents(ctx)
	if err != nil {
		return fmt.Errorf("failed to list chunk contents: %w", err)
	}
	stats, err := domain.BuildSparseStats(contents)
	if err != nil {
		return fmt.Errorf("failed to build sparse stats: %w", err)
	}
	if err := domain.SaveSparseStats(stats, path); err != nil {
		return err
	}
	u.logger.Info("sparse_stats_rebuilt",
		slog.Int("doc_count", stats.DocCount),
		slog.Int("term_count", len(stats.DocFreq)),
		slog.String("path", path))
	return nil
}
