package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"catalogue-rag/internal/domain"
)

// SearchState is the result of one search invocation: the query and the
// grouped candidate documents, in retrieval order.
type SearchState struct {
	Query     string
	Documents []domain.GroupedDocument
}

// SearchUsecase runs the single-stage search pipeline.
type SearchUsecase interface {
	Execute(ctx context.Context, query string) (*SearchState, error)
}

type searchUsecase struct {
	chunkRepo domain.CatalogueChunkRepository
	encoder   domain.VectorEncoder
	sparse    domain.SparseEncoder
	cfg       HybridConfig
	logger    *slog.Logger
}

// NewSearchUsecase creates a SearchUsecase. sparse may be nil when no
// corpus-statistics artifact has been built yet; retrieval then runs on the
// dense arm alone.
func NewSearchUsecase(
	chunkRepo domain.CatalogueChunkRepository,
	encoder domain.VectorEncoder,
	sparse domain.SparseEncoder,
	cfg HybridConfig,
	logger *slog.Logger,
) SearchUsecase {
	return &searchUsecase{
		chunkRepo: chunkRepo,
		encoder:   encoder,
		sparse:    sparse,
		cfg:       cfg,
		logger:    logger,
	}
}

func (u *searchUsecase) Execute(ctx context.Context, query string) (*SearchState, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}

	embeddings, err := u.encoder.Encode(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(embeddings))
	}

	var sparseTerms []string
	if u.sparse != nil {
		sparseTerms = u.sparse.QueryTerms(query)
	}

	matches, err := u.chunkRepo.HybridSearch(ctx, embeddings[0], sparseTerms, u.cfg.Alpha, u.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	documents := domain.GroupByDocument(matches)

	u.logger.Info("search_completed",
		slog.String("query", query),
		slog.Int("match_count", len(matches)),
		slog.Int("document_count", len(documents)),
		slog.Int("sparse_term_count", len(sparseTerms)))

	return &SearchState{
		Query:     query,
		Documents: documents,
	}, nil
}
