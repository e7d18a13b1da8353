package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"catalogue-rag/internal/domain"
	"catalogue-rag/internal/session"
	"catalogue-rag/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Handler exposes the search and explanation pipelines over HTTP.
type Handler struct {
	searchUsecase  usecase.SearchUsecase
	explainUsecase usecase.ExplainUsecase
	sessions       *session.Store
	jobRepo        domain.HarvestJobRepository
	logger         *slog.Logger
}

func NewHandler(
	searchUsecase usecase.SearchUsecase,
	explainUsecase usecase.ExplainUsecase,
	sessions *session.Store,
	jobRepo domain.HarvestJobRepository,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		searchUsecase:  searchUsecase,
		explainUsecase: explainUsecase,
		sessions:       sessions,
		jobRepo:        jobRepo,
		logger:         logger,
	}
}

// Register mounts the routes on the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/v1/search", h.Search)
	e.POST("/v1/explain", h.Explain)
	e.POST("/internal/harvest", h.EnqueueHarvest)
	e.GET("/healthz", h.Healthz)
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResult struct {
	ResultID    string  `json:"result_id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Source      string  `json:"source"`
	DateCreated string  `json:"date_created,omitempty"`
	Score       float32 `json:"score"`
	Content     string  `json:"content"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Results []searchResult `json:"results"`
}

// Search runs retrieval and stores each candidate document under a result id,
// so a follow-up explanation request does not re-run retrieval.
func (h *Handler) Search(ctx echo.Context) error {
	var req searchRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Query == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing query"})
	}

	state, err := h.searchUsecase.Execute(ctx.Request().Context(), req.Query)
	if err != nil {
		h.logger.Error("search_failed", slog.String("error", err.Error()))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "search failed"})
	}

	results := make([]searchResult, 0, len(state.Documents))
	for _, doc := range state.Documents {
		resultID := h.sessions.Put(session.Entry{
			Query:    state.Query,
			Document: doc,
		})
		results = append(results, searchResult{
			ResultID:    resultID,
			Title:       doc.Metadata.Title,
			URL:         doc.Metadata.URL,
			Source:      string(doc.Metadata.Source),
			DateCreated: doc.Metadata.DateCreated,
			Score:       doc.Metadata.Score,
			Content:     doc.Content,
		})
	}

	return ctx.JSON(http.StatusOK, searchResponse{
		Query:   state.Query,
		Results: results,
	})
}

type explainRequest struct {
	ResultID string `json:"result_id"`
	// Query optionally overrides the query the result was searched with.
	Query string `json:"query,omitempty"`
}

type explainResponse struct {
	Generation string `json:"generation"`
	Citations  []int  `json:"citations"`
	Moderated  bool   `json:"moderated"`
	Ungrounded bool   `json:"ungrounded"`
}

// Explain generates a cited, gated explanation for one stored search result.
func (h *Handler) Explain(ctx echo.Context) error {
	var req explainRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.ResultID == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing result_id"})
	}

	entry, ok := h.sessions.Get(req.ResultID)
	if !ok {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "result not found or expired"})
	}

	query := entry.Query
	if req.Query != "" {
		query = req.Query
	}

	state, err := h.explainUsecase.Execute(ctx.Request().Context(), query, entry.Document)
	if err != nil {
		h.logger.Error("explain_failed",
			slog.String("result_id", req.ResultID),
			slog.String("error", err.Error()))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "explanation failed"})
	}

	citations := state.Citations
	if citations == nil {
		citations = []int{}
	}

	return ctx.JSON(http.StatusOK, explainResponse{
		Generation: state.Generation,
		Citations:  citations,
		Moderated:  state.Inappropriate != "",
		Ungrounded: state.Hallucination != "",
	})
}

type harvestRequest struct {
	Source string `json:"source"`
}

// EnqueueHarvest queues a harvest of one source catalogue.
func (h *Handler) EnqueueHarvest(ctx echo.Context) error {
	var req harvestRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	source, err := domain.ParseSource(req.Source)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	job := &domain.HarvestJob{
		ID:        uuid.New(),
		JobType:   "harvest_source",
		Payload:   map[string]interface{}{"source": string(source)},
		Status:    "new",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := h.jobRepo.Enqueue(ctx.Request().Context(), job); err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusAccepted, map[string]string{"job_id": job.ID.String(), "status": "queued"})
}

func (h *Handler) Healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
