package usecase_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"catalogue-rag/internal/domain"
	"catalogue-rag/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) BulkInsertChunks(ctx context.Context, chunks []domain.CatalogueChunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockChunkRepository) DeleteByDatasetID(ctx context.Context, datasetID string) error {
	args := m.Called(ctx, datasetID)
	return args.Error(0)
}

func (m *MockChunkRepository) HybridSearch(ctx context.Context, embedding []float32, sparseTerms []string, alpha float64, topK int) ([]domain.RetrievalMatch, error) {
	args := m.Called(ctx, embedding, sparseTerms, alpha, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievalMatch), args.Error(1)
}

func (m *MockChunkRepository) ListContents(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockVectorEncoder struct {
	mock.Mock
}

func (m *MockVectorEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockVectorEncoder) Version() string {
	return "test-embedder"
}

func searchMatch(id, content string, score float32) domain.RetrievalMatch {
	return domain.RetrievalMatch{
		Chunk: domain.DocumentChunk{
			ID:      id,
			Content: content,
			Metadata: domain.Metadata{ID: id, Title: "Title " + id, Score: score},
		},
		Score: score,
	}
}

func TestSearchUsecase_GroupsMatchesByDataset(t *testing.T) {
	repo := new(MockChunkRepository)
	encoder := new(MockVectorEncoder)
	cfg := usecase.DefaultHybridConfig()

	encoder.On("Encode", mock.Anything, []string{"population density"}).
		Return([][]float32{{0.1, 0.2}}, nil).Once()
	repo.On("HybridSearch", mock.Anything, []float32{0.1, 0.2}, []string(nil), cfg.Alpha, cfg.TopK).
		Return([]domain.RetrievalMatch{
			searchMatch("a", "a1", 0.9),
			searchMatch("b", "b1", 0.8),
			searchMatch("a", "a2", 0.7),
		}, nil).Once()

	uc := usecase.NewSearchUsecase(repo, encoder, nil, cfg, slog.New(slog.DiscardHandler))
	state, err := uc.Execute(context.Background(), "population density")

	require.NoError(t, err)
	require.Len(t, state.Documents, 2)
	assert.Equal(t, "a", state.Documents[0].Metadata.ID)
	assert.Equal(t, "a1"+domain.GroupSeparator+"a2", state.Documents[0].Content)
	assert.Equal(t, "b", state.Documents[1].Metadata.ID)

	repo.AssertExpectations(t)
	encoder.AssertExpectations(t)
}

func TestSearchUsecase_PassesSparseTerms(t *testing.T) {
	repo := new(MockChunkRepository)
	encoder := new(MockVectorEncoder)
	cfg := usecase.DefaultHybridConfig()

	stats, err := domain.BuildSparseStats([]string{"population density", "population census"})
	require.NoError(t, err)
	sparse, err := domain.NewSparseEncoder(stats)
	require.NoError(t, err)

	encoder.On("Encode", mock.Anything, mock.Anything).
		Return([][]float32{{0.5}}, nil).Once()
	repo.On("HybridSearch", mock.Anything, mock.Anything, []string{"density", "population"}, cfg.Alpha, cfg.TopK).
		Return([]domain.RetrievalMatch{}, nil).Once()

	uc := usecase.NewSearchUsecase(repo, encoder, sparse, cfg, slog.New(slog.DiscardHandler))
	state, err := uc.Execute(context.Background(), "population density")

	require.NoError(t, err)
	assert.Empty(t, state.Documents)
	repo.AssertExpectations(t)
}

func TestSearchUsecase_EmptyQuery(t *testing.T) {
	uc := usecase.NewSearchUsecase(new(MockChunkRepository), new(MockVectorEncoder), nil,
		usecase.DefaultHybridConfig(), slog.New(slog.DiscardHandler))

	_, err := uc.Execute(context.Background(), "  \n ")
	assert.Error(t, err)
}

func TestSearchUsecase_EncoderFailure(t *testing.T) {
	repo := new(MockChunkRepository)
	encoder := new(MockVectorEncoder)

	encoder.On("Encode", mock.Anything, mock.Anything).
		Return(nil, errors.New("embedder down")).Once()

	uc := usecase.NewSearchUsecase(repo, encoder, nil,
		usecase.DefaultHybridConfig(), slog.New(slog.DiscardHandler))

	_, err := uc.Execute(context.Background(), "population")
	require.Error(t, err)
	repo.AssertNotCalled(t, "HybridSearch",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchUsecase_NoMatches(t *testing.T) {
	repo := new(MockChunkRepository)
	encoder := new(MockVectorEncoder)

	encoder.On("Encode", mock.Anything, mock.Anything).
		Return([][]float32{{0.1}}, nil).Once()
	repo.On("HybridSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.RetrievalMatch{}, nil).Once()

	uc := usecase.NewSearchUsecase(repo, encoder, nil,
		usecase.DefaultHybridConfig(), slog.New(slog.DiscardHandler))

	state, err := uc.Execute(context.Background(), "nonexistent topic")
	require.NoError(t, err)
	assert.Empty(t, state.Documents)
}
