package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"catalogue-rag/internal/domain"
	"catalogue-rag/internal/infra/logger"
	"catalogue-rag/internal/usecase"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	harvestJobTimeout   = 30 * time.Minute
	indexJobTimeout     = 60 * time.Second
	initialBackoff      = 1 * time.Second
	maxBackoff          = 5 * time.Minute
)

// JobWorker drains the harvest-job queue. It polls frequently when healthy
// and backs off exponentially after a failure.
type JobWorker struct {
	jobRepo        domain.HarvestJobRepository
	harvestUsecase usecase.HarvestUsecase
	indexUsecase   usecase.IndexDatasetUsecase
	logger         *slog.Logger
	ctxLogger      *logger.ContextLogger
	stopChan       chan struct{}
	backoff        time.Duration
}

func NewJobWorker(
	jobRepo domain.HarvestJobRepository,
	harvestUsecase usecase.HarvestUsecase,
	indexUsecase usecase.IndexDatasetUsecase,
	log *slog.Logger,
) *JobWorker {
	return &JobWorker{
		jobRepo:        jobRepo,
		harvestUsecase: harvestUsecase,
		indexUsecase:   indexUsecase,
		logger:         log,
		ctxLogger:      logger.NewContextLogger(log, "catalogue-rag-worker"),
		stopChan:       make(chan struct{}),
	}
}

func (w *JobWorker) Start() {
	w.logger.Info("Starting JobWorker")
	go w.run()
}

func (w *JobWorker) Stop() {
	w.logger.Info("Stopping JobWorker")
	close(w.stopChan)
}

func (w *JobWorker) run() {
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processNextJob()
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(defaultPollInterval)
			}
		}
	}
}

func (w *JobWorker) processNextJob() {
	acquireCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	job, err := w.jobRepo.AcquireNextJob(acquireCtx)
	cancel()
	if err != nil {
		w.logger.Error("Failed to acquire next job", "error", err)
		return
	}
	if job == nil {
		return // No jobs
	}

	timeout := indexJobTimeout
	if job.JobType == "harvest_source" {
		// A full catalogue harvest pages through thousands of records.
		timeout = harvestJobTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ctx = logger.WithJobID(ctx, job.ID.String())
	if source, ok := job.Payload["source"].(string); ok {
		ctx = logger.WithSource(ctx, source)
	}
	if datasetID, ok := job.Payload["dataset_id"].(string); ok {
		ctx = logger.WithDatasetID(ctx, datasetID)
	}
	jobLog := w.ctxLogger.WithContext(ctx)
	jobLog.Info("Processing job", "type", job.JobType)

	var processErr error
	switch job.JobType {
	case "harvest_source":
		processErr = w.processHarvestSource(ctx, job)
	case "index_dataset":
		processErr = w.processIndexDataset(ctx, job)
	default:
		processErr = fmt.Errorf("unknown job type: %s", job.JobType)
	}

	status := "completed"
	var errMsg *string
	if processErr != nil {
		status = "failed"
		msg := processErr.Error()
		errMsg = &msg
		w.backoff = w.nextBackoff(w.backoff)
		jobLog.Warn("Worker backing off", "backoff", w.backoff, "error", processErr)
	} else {
		w.backoff = 0
		jobLog.Info("Job completed")
	}

	if err := w.jobRepo.UpdateStatus(ctx, job.ID, status, errMsg); err != nil {
		jobLog.Error("Failed to update job status", "error", err)
	}
}

func (w *JobWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (w *JobWorker) processHarvestSource(ctx context.Context, job *domain.HarvestJob) error {
	raw, ok := job.Payload["source"].(string)
	if !ok {
		return fmt.Errorf("missing or invalid source")
	}
	source, err := domain.ParseSource(raw)
	if err != nil {
		return err
	}
	return w.harvestUsecase.HarvestSource(ctx, source)
}

func (w *JobWorker) processIndexDataset(ctx context.Context, job *domain.HarvestJob) error {
	payload := job.Payload
	id, ok := payload["dataset_id"].(string)
	if !ok {
		return fmt.Errorf("missing or invalid dataset_id")
	}
	title, ok := payload["title"].(string)
	if !ok {
		return fmt.Errorf("missing or invalid title")
	}
	content, ok := payload["content"].(string)
	if !ok {
		return fmt.Errorf("missing or invalid content")
	}
	rawSource, ok := payload["source"].(string)
	if !ok {
		return fmt.Errorf("missing or invalid source")
	}
	source, err := domain.ParseSource(rawSource)
	if err != nil {
		return err
	}
	url, _ := payload["url"].(string)
	dateCreated, _ := payload["date_created"].(string)

	return w.indexUsecase.Upsert(ctx, domain.NormalizedDocument{
		ID:          id,
		Title:       title,
		URL:         url,
		Source:      source,
		DateCreated: dateCreated,
		Content:     content,
	})
}
