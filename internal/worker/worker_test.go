package worker

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"catalogue-rag/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJobRepo struct {
	job          *domain.HarvestJob
	acquireErr   error
	updatedID    uuid.UUID
	updatedState string
	updatedError *string
}

func (s *stubJobRepo) Enqueue(ctx context.Context, job *domain.HarvestJob) error {
	return nil
}

func (s *stubJobRepo) AcquireNextJob(ctx context.Context) (*domain.HarvestJob, error) {
	job := s.job
	s.job = nil
	return job, s.acquireErr
}

func (s *stubJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	s.updatedID = id
	s.updatedState = status
	s.updatedError = errorMessage
	return nil
}

type stubHarvestUsecase struct {
	gotSource domain.Source
	called    bool
	err       error
}

func (s *stubHarvestUsecase) HarvestSource(ctx context.Context, source domain.Source) error {
	s.called = true
	s.gotSource = source
	return s.err
}

func (s *stubHarvestUsecase) HarvestAll(ctx context.Context) error {
	return nil
}

type stubIndexUsecase struct {
	gotDoc domain.NormalizedDocument
	called bool
	err    error
}

func (s *stubIndexUsecase) Upsert(ctx context.Context, doc domain.NormalizedDocument) error {
	s.called = true
	s.gotDoc = doc
	return s.err
}

func (s *stubIndexUsecase) Delete(ctx context.Context, datasetID string) error {
	return nil
}

func (s *stubIndexUsecase) RebuildSparseStats(ctx context.Context, path string) error {
	return nil
}

func newTestWorker(jobRepo *stubJobRepo, harvestUC *stubHarvestUsecase, indexUC *stubIndexUsecase) *JobWorker {
	return NewJobWorker(jobRepo, harvestUC, indexUC, slog.New(slog.DiscardHandler))
}

func TestJobWorker_ProcessHarvestSourceJob(t *testing.T) {
	jobRepo := &stubJobRepo{job: &domain.HarvestJob{
		ID:      uuid.New(),
		JobType: "harvest_source",
		Payload: map[string]interface{}{"source": "UKDS"},
	}}
	harvestUC := &stubHarvestUsecase{}
	w := newTestWorker(jobRepo, harvestUC, &stubIndexUsecase{})

	w.processNextJob()

	assert.True(t, harvestUC.called)
	assert.Equal(t, domain.SourceUKDS, harvestUC.gotSource)
	assert.Equal(t, "completed", jobRepo.updatedState)
	assert.Nil(t, jobRepo.updatedError)
	assert.Zero(t, w.backoff)
}

func TestJobWorker_ProcessIndexDatasetJob(t *testing.T) {
	jobID := uuid.New()
	jobRepo := &stubJobRepo{job: &domain.HarvestJob{
		ID:      jobID,
		JobType: "index_dataset",
		Payload: map[string]interface{}{
			"dataset_id":   "study-1",
			"title":        "Census",
			"content":      "Counts of people.",
			"source":       "ADR",
			"url":          "https://example.org/study-1",
			"date_created": "2020-01-01",
		},
	}}
	indexUC := &stubIndexUsecase{}
	w := newTestWorker(jobRepo, &stubHarvestUsecase{}, indexUC)

	w.processNextJob()

	require.True(t, indexUC.called)
	assert.Equal(t, "study-1", indexUC.gotDoc.ID)
	assert.Equal(t, domain.SourceADR, indexUC.gotDoc.Source)
	assert.Equal(t, "https://example.org/study-1", indexUC.gotDoc.URL)
	assert.Equal(t, jobID, jobRepo.updatedID)
	assert.Equal(t, "completed", jobRepo.updatedState)
}

func TestJobWorker_IndexJobMissingPayloadField(t *testing.T) {
	jobRepo := &stubJobRepo{job: &domain.HarvestJob{
		ID:      uuid.New(),
		JobType: "index_dataset",
		Payload: map[string]interface{}{"dataset_id": "study-1"},
	}}
	indexUC := &stubIndexUsecase{}
	w := newTestWorker(jobRepo, &stubHarvestUsecase{}, indexUC)

	w.processNextJob()

	assert.False(t, indexUC.called)
	assert.Equal(t, "failed", jobRepo.updatedState)
	require.NotNil(t, jobRepo.updatedError)
	assert.Contains(t, *jobRepo.updatedError, "title")
}

func TestJobWorker_UnknownJobType(t *testing.T) {
	jobRepo := &stubJobRepo{job: &domain.HarvestJob{
		ID:      uuid.New(),
		JobType: "vacuum_index",
		Payload: map[string]interface{}{},
	}}
	w := newTestWorker(jobRepo, &stubHarvestUsecase{}, &stubIndexUsecase{})

	w.processNextJob()

	assert.Equal(t, "failed", jobRepo.updatedState)
	require.NotNil(t, jobRepo.updatedError)
	assert.Contains(t, *jobRepo.updatedError, "unknown job type")
}

func TestJobWorker_FailureBacksOffAndSuccessResets(t *testing.T) {
	jobRepo := &stubJobRepo{job: &domain.HarvestJob{
		ID:      uuid.New(),
		JobType: "harvest_source",
		Payload: map[string]interface{}{"source": "CDRC"},
	}}
	harvestUC := &stubHarvestUsecase{err: errors.New("catalogue unreachable")}
	w := newTestWorker(jobRepo, harvestUC, &stubIndexUsecase{})

	w.processNextJob()
	assert.Equal(t, initialBackoff, w.backoff)
	assert.Equal(t, "failed", jobRepo.updatedState)

	jobRepo.job = &domain.HarvestJob{
		ID:      uuid.New(),
		JobType: "harvest_source",
		Payload: map[string]interface{}{"source": "CDRC"},
	}
	harvestUC.err = nil
	w.processNextJob()
	assert.Zero(t, w.backoff)
	assert.Equal(t, "completed", jobRepo.updatedState)
}

func TestJobWorker_NoJobIsQuiet(t *testing.T) {
	jobRepo := &stubJobRepo{}
	harvestUC := &stubHarvestUsecase{}
	w := newTestWorker(jobRepo, harvestUC, &stubIndexUsecase{})

	w.processNextJob()

	assert.False(t, harvestUC.called)
	assert.Empty(t, jobRepo.updatedState)
}

func TestJobWorker_BackoffIsCapped(t *testing.T) {
	w := newTestWorker(&stubJobRepo{}, &stubHarvestUsecase{}, &stubIndexUsecase{})

	backoff := w.nextBackoff(0)
	assert.Equal(t, initialBackoff, backoff)

	for i := 0; i < 20; i++ {
		backoff = w.nextBackoff(backoff)
	}
	assert.Equal(t, maxBackoff, backoff)
}
