package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// CatalogueChunk is a persistable chunk of a dataset description.
type CatalogueChunk struct {
	ID        uuid.UUID
	DatasetID string
	Ordinal   int
	Content   string
	Hash      string
	Embedding pgvector.Vector
	CreatedAt time.Time
}

// DatasetMetadata is the attribution record of one dataset, keyed by the
// catalogue's stable dataset id.
type DatasetMetadata struct {
	ID          string
	Title       string
	URL         string
	Source      Source
	DateCreated string
	SourceHash  string
	UpdatedAt   time.Time
}

// CatalogueChunkRepository manages chunk storage and hybrid retrieval.
type CatalogueChunkRepository interface {
	// BulkInsertChunks inserts chunks; the serving sparse index (tsvector)
	// is derived from content by the store.
	BulkInsertChunks(ctx context.Context, chunks []CatalogueChunk) error

	// DeleteByDatasetID removes every chunk of one dataset, used when a
	// dataset description is re-indexed.
	DeleteByDatasetID(ctx context.Context, datasetID string) error

	// HybridSearch runs one combined dense+sparse query. alpha is the dense
	// weight of the convex blend; sparseTerms drive the full-text arm and may
	// be empty, in which case only dense similarity contributes. Results are
	// ordered by blended score descending, limited to topK.
	HybridSearch(ctx context.Context, embedding []float32, sparseTerms []string, alpha float64, topK int) ([]RetrievalMatch, error)

	// ListContents streams every chunk content, used to rebuild the sparse
	// statistics artifact.
	ListContents(ctx context.Context) ([]string, error)
}

// DatasetMetadataRepository manages dataset attribution records.
type DatasetMetadataRepository interface {
	// GetByID returns nil, nil when the dataset id is unknown; callers treat
	// that as missing metadata, not as a failure.
	GetByID(ctx context.Context, id string) (*DatasetMetadata, error)
	Upsert(ctx context.Context, meta *DatasetMetadata) error
	// DeleteByID removes the attribution record, including the source hash,
	// so a later re-index of the same description is not skipped as unchanged.
	DeleteByID(ctx context.Context, id string) error
}

// HarvestJob is a queued unit of ingestion work.
type HarvestJob struct {
	ID           uuid.UUID
	JobType      string
	Payload      map[string]interface{}
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HarvestJobRepository is the durable queue behind the ingestion worker.
type HarvestJobRepository interface {
	Enqueue(ctx context.Context, job *HarvestJob) error
	// AcquireNextJob atomically claims the oldest queued job, or returns
	// nil, nil when the queue is empty.
	AcquireNextJob(ctx context.Context) (*HarvestJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
}

// TransactionManager defines the interface for handling database transactions.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
