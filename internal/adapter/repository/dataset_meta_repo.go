package repository

import (
	"context"
	"errors"
	"fmt"

	"catalogue-rag/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type datasetMetadataRepository struct {
	pool *pgxpool.Pool
}

// NewDatasetMetadataRepository creates a new DatasetMetadataRepository.
func NewDatasetMetadataRepository(pool *pgxpool.Pool) domain.DatasetMetadataRepository {
	return &datasetMetadataRepository{pool: pool}
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *datasetMetadataRepository) getQuerier(ctx context.Context) rowQuerier {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

func (r *datasetMetadataRepository) GetByID(ctx context.Context, id string) (*domain.DatasetMetadata, error) {
	query := `
		SELECT id, title, url, source, date_created, source_hash, updated_at
		FROM dataset_metadata
		WHERE id = $1
	`
	var meta domain.DatasetMetadata
	var source string
	err := r.getQuerier(ctx).QueryRow(ctx, query, id).Scan(
		&meta.ID,
		&meta.Title,
		&meta.URL,
		&source,
		&meta.DateCreated,
		&meta.SourceHash,
		&meta.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get dataset metadata: %w", err)
	}
	meta.Source = domain.Source(source)
	return &meta, nil
}

func (r *datasetMetadataRepository) Upsert(ctx context.Context, meta *domain.DatasetMetadata) error {
	query := `
		INSERT INTO dataset_metadata (id, title, url, source, date_created, source_hash, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			url = EXCLUDED.url,
			source = EXCLUDED.source,
			date_created = EXCLUDED.date_created,
			source_hash = EXCLUDED.source_hash,
			updated_at = EXCLUDED.updated_at
	`
	exec := dbExecutor(r.pool)
	if tx := ExtractTx(ctx); tx != nil {
		exec = tx
	}
	_, err := exec.Exec(ctx, query,
		meta.ID,
		meta.Title,
		meta.URL,
		string(meta.Source),
		meta.DateCreated,
		meta.SourceHash,
		meta.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert dataset metadata: %w", err)
	}
	return nil
}

func (r *datasetMetadataRepository) DeleteByID(ctx context.Context, id string) error {
	exec := dbExecutor(r.pool)
	if tx := ExtractTx(ctx); tx != nil {
		exec = tx
	}
	_, err := exec.Exec(ctx, `DELETE FROM dataset_metadata WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset metadata %s: %w", id, err)
	}
	return nil
}
