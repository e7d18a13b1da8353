package repository

import (
	"context"
	"fmt"
	"strings"

	"catalogue-rag/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type catalogueChunkRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogueChunkRepository creates a new CatalogueChunkRepository.
func NewCatalogueChunkRepository(pool *pgxpool.Pool) domain.CatalogueChunkRepository {
	return &catalogueChunkRepository{pool: pool}
}

type dbExecutor interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func (r *catalogueChunkRepository) getExecutor(ctx context.Context) dbExecutor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

func (r *catalogueChunkRepository) BulkInsertChunks(ctx context.Context, chunks []domain.CatalogueChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(chunks))
	for i, chunk := range chunks {
		rows[i] = []interface{}{
			chunk.ID,
			chunk.DatasetID,
			chunk.Ordinal,
			chunk.Content,
			chunk.Hash,
			chunk.Embedding,
			chunk.CreatedAt,
		}
	}

	_, err := r.getExecutor(ctx).CopyFrom(
		ctx,
		pgx.Identifier{"catalogue_chunks"},
		[]string{"id", "dataset_id", "ordinal", "content", "hash", "embedding", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert chunks: %w", err)
	}

	return nil
}

func (r *catalogueChunkRepository) DeleteByDatasetID(ctx context.Context, datasetID string) error {
	_, err := r.getExecutor(ctx).Exec(ctx,
		`DELETE FROM catalogue_chunks WHERE dataset_id = $1`, datasetID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks for dataset %s: %w", datasetID, err)
	}
	return nil
}

// hybridQuery blends cosine similarity on the embedding with a normalised
// full-text rank over the generated content_tsv column. ts_rank_cd with
// normalisation flag 32 maps the rank into [0, 1), keeping both arms on a
// comparable scale before the alpha blend. The metadata join is LEFT so a
// chunk whose dataset id has no attribution row still surfaces, with empty
// attribution fields.
const hybridQuery = `
	SELECT c.dataset_id, c.content,
	       COALESCE(m.title, ''), COALESCE(m.url, ''),
	       COALESCE(m.source, ''), COALESCE(m.date_created, ''),
	       ($3::float8 * (1 - (c.embedding <=> $1))
	        + (1 - $3::float8) * ts_rank_cd(c.content_tsv, to_tsquery('english', $2), 32)) AS score
	FROM catalogue_chunks c
	LEFT JOIN dataset_metadata m ON m.id = c.dataset_id
	ORDER BY score DESC
	LIMIT $4
`

// denseOnlyQuery serves queries the sparse encoder has no terms for. The
// cosine similarity is reported unscaled so scores stay comparable with and
// without the sparse artifact loaded.
const denseOnlyQuery = `
	SELECT c.dataset_id, c.content,
	       COALESCE(m.title, ''), COALESCE(m.url, ''),
	       COALESCE(m.source, ''), COALESCE(m.date_created, ''),
	       (1 - (c.embedding <=> $1)) AS score
	FROM catalogue_chunks c
	LEFT JOIN dataset_metadata m ON m.id = c.dataset_id
	ORDER BY score DESC
	LIMIT $2
`

// buildTsQuery renders the terms as quoted tsquery lexemes joined by the OR
// operator. Quoting matters: the tokenizer keeps apostrophe words like
// "women's" intact, and a bare ' would open an unterminated lexeme in
// tsquery syntax.
func buildTsQuery(terms []string) string {
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = "'" + strings.ReplaceAll(term, "'", "''") + "'"
	}
	return strings.Join(quoted, " | ")
}

func (r *catalogueChunkRepository) HybridSearch(ctx context.Context, embedding []float32, sparseTerms []string, alpha float64, topK int) ([]domain.RetrievalMatch, error) {
	var rows pgx.Rows
	var err error
	if len(sparseTerms) > 0 {
		rows, err = r.getExecutor(ctx).Query(ctx, hybridQuery,
			pgvector.NewVector(embedding), buildTsQuery(sparseTerms), alpha, topK)
	} else {
		rows, err = r.getExecutor(ctx).Query(ctx, denseOnlyQuery,
			pgvector.NewVector(embedding), topK)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to run hybrid search: %w", err)
	}
	defer rows.Close()

	var matches []domain.RetrievalMatch
	for rows.Next() {
		var (
			datasetID, content, title, url, source, dateCreated string
			score                                               float64
		)
		if err := rows.Scan(&datasetID, &content, &title, &url, &source, &dateCreated, &score); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, domain.RetrievalMatch{
			Chunk: domain.DocumentChunk{
				ID:      datasetID,
				Content: content,
				Metadata: domain.Metadata{
					ID:          datasetID,
					Title:       title,
					URL:         url,
					Source:      domain.Source(source),
					DateCreated: dateCreated,
					Score:       float32(score),
				},
			},
			Score: float32(score),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return matches, nil
}

func (r *catalogueChunkRepository) ListContents(ctx context.Context) ([]string, error) {
	rows, err := r.getExecutor(ctx).Query(ctx, `SELECT content FROM catalogue_chunks`)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunk contents: %w", err)
	}
	defer rows.Close()

	var contents []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		contents = append(contents, content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return contents, nil
}
