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

type MockIndexUsecase struct {
	mock.Mock
}

func (m *MockIndexUsecase) Upsert(ctx context.Context, doc domain.NormalizedDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockIndexUsecase) Delete(ctx context.Context, datasetID string) error {
	args := m.Called(ctx, datasetID)
	return args.Error(0)
}

func (m *MockIndexUsecase) RebuildSparseStats(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

type fakeHarvester struct {
	source domain.Source
	docs   []domain.NormalizedDocument
	err    error
}

func (f fakeHarvester) Source() domain.Source {
	return f.source
}

func (f fakeHarvester) Harvest(ctx context.Context) ([]domain.NormalizedDocument, error) {
	return f.docs, f.err
}

func TestHarvestUsecase_IndexesEveryDocument(t *testing.T) {
	indexer := new(MockIndexUsecase)
	registry := domain.NewHarvesterRegistry(fakeHarvester{
		source: domain.SourceADR,
		docs: []domain.NormalizedDocument{
			{ID: "d1", Title: "One", Source: domain.SourceADR, Content: "c1"},
			{ID: "d2", Title: "Two", Source: domain.SourceADR, Content: "c2"},
		},
	})

	indexer.On("Upsert", mock.Anything, mock.Anything).Return(nil).Twice()

	uc := usecase.NewHarvestUsecase(registry, indexer, slog.New(slog.DiscardHandler))
	require.NoError(t, uc.HarvestSource(context.Background(), domain.SourceADR))
	indexer.AssertExpectations(t)
}

func TestHarvestUsecase_BadDocumentDoesNotAbortHarvest(t *testing.T) {
	indexer := new(MockIndexUsecase)
	registry := domain.NewHarvesterRegistry(fakeHarvester{
		source: domain.SourceUKDS,
		docs: []domain.NormalizedDocument{
			{ID: "bad", Source: domain.SourceUKDS, Content: "x"},
			{ID: "good", Source: domain.SourceUKDS, Content: "y"},
		},
	})

	indexer.On("Upsert", mock.Anything, mock.MatchedBy(func(d domain.NormalizedDocument) bool {
		return d.ID == "bad"
	})).Return(errors.New("embedder down")).Once()
	indexer.On("Upsert", mock.Anything, mock.MatchedBy(func(d domain.NormalizedDocument) bool {
		return d.ID == "good"
	})).Return(nil).Once()

	uc := usecase.NewHarvestUsecase(registry, indexer, slog.New(slog.DiscardHandler))
	require.NoError(t, uc.HarvestSource(context.Background(), domain.SourceUKDS))
	indexer.AssertExpectations(t)
}

func TestHarvestUsecase_HarvestFailurePropagates(t *testing.T) {
	indexer := new(MockIndexUsecase)
	registry := domain.NewHarvesterRegistry(fakeHarvester{
		source: domain.SourceCDRC,
		err:    errors.New("catalogue unreachable"),
	})

	uc := usecase.NewHarvestUsecase(registry, indexer, slog.New(slog.DiscardHandler))
	err := uc.HarvestSource(context.Background(), domain.SourceCDRC)

	require.Error(t, err)
	indexer.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestHarvestUsecase_UnknownSource(t *testing.T) {
	uc := usecase.NewHarvestUsecase(domain.NewHarvesterRegistry(), new(MockIndexUsecase), slog.New(slog.DiscardHandler))
	assert.Error(t, uc.HarvestSource(context.Background(), domain.SourceADR))
}

func TestHarvestUsecase_HarvestAllCoversEveryRegisteredSource(t *testing.T) {
	indexer := new(MockIndexUsecase)
	registry := domain.NewHarvesterRegistry(
		fakeHarvester{source: domain.SourceADR, docs: []domain.NormalizedDocument{{ID: "a", Source: domain.SourceADR, Content: "x"}}},
		fakeHarvester{source: domain.SourceUKDS, docs: []domain.NormalizedDocument{{ID: "u", Source: domain.SourceUKDS, Content: "y"}}},
	)

	indexer.On("Upsert", mock.Anything, mock.Anything).Return(nil).Twice()

	uc := usecase.NewHarvestUsecase(registry, indexer, slog.New(slog.DiscardHandler))
	require.NoError(t, uc.HarvestAll(context.Background()))
	indexer.AssertExpectations(t)
}
