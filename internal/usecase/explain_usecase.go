package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"catalogue-rag/internal/domain"
)

// Sentinel texts substituted for a generation that fails a gate. These are
// the only two user-visible failure strings of the pipeline.
const (
	ModerationSentinel    = "Inappropriate content found in generation."
	HallucinationSentinel = "Hallucination found in generation."
)

// PipelineState names one state of the explanation state machine.
type PipelineState string

const (
	StateStart              PipelineState = "start"
	StateExplainDataset     PipelineState = "explain_dataset"
	StateModerateGeneration PipelineState = "moderate_generation"
	StateCheckHallucination PipelineState = "check_hallucination"
	StateTerminal           PipelineState = "terminal"
)

// GenerationState is the mutable state threaded through one explanation
// invocation. Generation is overwritten (never appended) by a failing gate;
// Inappropriate and Hallucination are write-once side channels holding the
// original text when that happens. The state is not persisted after return.
type GenerationState struct {
	Query         string
	Document      domain.GroupedDocument
	Chunks        []domain.Chunk
	Generation    string
	Citations     []int
	Inappropriate string
	Hallucination string
}

// ExplainUsecase runs the explanation pipeline for one selected document.
type ExplainUsecase interface {
	Execute(ctx context.Context, query string, document domain.GroupedDocument) (*GenerationState, error)
}

type explainUsecase struct {
	chunker       domain.Chunker
	promptBuilder PromptBuilder
	llmClient     domain.LLMClient
	validator     OutputValidator
	moderation    domain.ModerationClient
	grounding     domain.GroundingClient
	cfg           GenerationConfig
	logger        *slog.Logger
}

// NewExplainUsecase wires the components of the explanation pipeline.
func NewExplainUsecase(
	chunker domain.Chunker,
	promptBuilder PromptBuilder,
	llmClient domain.LLMClient,
	validator OutputValidator,
	moderation domain.ModerationClient,
	grounding domain.GroundingClient,
	cfg GenerationConfig,
	logger *slog.Logger,
) ExplainUsecase {
	return &explainUsecase{
		chunker:       chunker,
		promptBuilder: promptBuilder,
		llmClient:     llmClient,
		validator:     validator,
		moderation:    moderation,
		grounding:     grounding,
		cfg:           cfg,
		logger:        logger,
	}
}

// Execute drives the state machine to its terminal state. Stages are
// strictly sequential: moderation needs the generation, grounding needs a
// moderation-passed generation, and a flagged moderation verdict skips
// grounding entirely.
func (u *explainUsecase) Execute(ctx context.Context, query string, document domain.GroupedDocument) (*GenerationState, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is empty")
	}

	gs := &GenerationState{
		Query:    query,
		Document: document,
	}

	state := StateStart
	for state != StateTerminal {
		next, err := u.transition(ctx, state, gs)
		if err != nil {
			return nil, fmt.Errorf("explanation pipeline failed in state %s: %w", state, err)
		}
		state = next
	}
	return gs, nil
}

func (u *explainUsecase) transition(ctx context.Context, state PipelineState, gs *GenerationState) (PipelineState, error) {
	switch state {
	case StateStart:
		return StateExplainDataset, nil
	case StateExplainDataset:
		if err := u.explainDataset(ctx, gs); err != nil {
			return "", err
		}
		return StateModerateGeneration, nil
	case StateModerateGeneration:
		return u.moderateGeneration(ctx, gs)
	case StateCheckHallucination:
		if err := u.checkHallucination(ctx, gs); err != nil {
			return "", err
		}
		return StateTerminal, nil
	default:
		return "", fmt.Errorf("unknown pipeline state %q", state)
	}
}

// explainDataset chunks the selected document, presents the chunks with
// zero-based source ids, and obtains a cited explanation from the generator.
func (u *explainUsecase) explainDataset(ctx context.Context, gs *GenerationState) error {
	chunks, err := u.chunker.Chunk(gs.Document.Content)
	if err != nil {
		return fmt.Errorf("failed to chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("document %s has no content to explain", gs.Document.Metadata.ID)
	}
	gs.Chunks = chunks

	prompt, err := u.promptBuilder.Build(gs.Query, gs.Document.Metadata.Title, chunks)
	if err != nil {
		return fmt.Errorf("failed to build prompt: %w", err)
	}

	raw, err := u.generateWithRetry(ctx, prompt)
	if err != nil {
		return err
	}

	answer, err := u.validator.Validate(raw, len(chunks))
	if err != nil {
		return fmt.Errorf("generation violated output contract: %w", err)
	}

	gs.Generation = strings.TrimSpace(answer.Generation)
	gs.Citations = answer.Citations

	u.logger.Info("dataset_explained",
		slog.String("dataset_id", gs.Document.Metadata.ID),
		slog.Int("chunk_count", len(chunks)),
		slog.Int("citation_count", len(answer.Citations)))
	return nil
}

// generateWithRetry retries transport failures with doubling backoff.
// Structured-output violations are handled by the validator afterwards and
// are deliberately not retried here.
func (u *explainUsecase) generateWithRetry(ctx context.Context, prompt string) (string, error) {
	backoff := u.cfg.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= u.cfg.MaxAttempts; attempt++ {
		resp, err := u.llmClient.Generate(ctx, prompt, u.cfg.MaxTokens)
		if err == nil && resp != nil && strings.TrimSpace(resp.Text) != "" {
			return resp.Text, nil
		}
		if err == nil {
			err = fmt.Errorf("generator returned an empty response")
		}
		lastErr = err

		u.logger.Warn("generation_attempt_failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", u.cfg.MaxAttempts),
			slog.String("error", err.Error()))

		if attempt == u.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return "", fmt.Errorf("generation failed after %d attempts: %w", u.cfg.MaxAttempts, lastErr)
}

// moderateGeneration applies the content-policy gate. A flagged verdict is an
// expected outcome, not an error: the generation is replaced by the
// moderation sentinel and the pipeline goes straight to terminal.
func (u *explainUsecase) moderateGeneration(ctx context.Context, gs *GenerationState) (PipelineState, error) {
	result, err := u.moderation.Moderate(ctx, gs.Generation)
	if err != nil {
		return "", fmt.Errorf("moderation check failed: %w", err)
	}

	if result.Flagged {
		u.logger.Warn("generation_flagged",
			slog.String("dataset_id", gs.Document.Metadata.ID),
			slog.Any("categories", result.Categories))
		gs.Inappropriate = gs.Generation
		gs.Generation = ModerationSentinel
		return StateTerminal, nil
	}
	return StateCheckHallucination, nil
}

// checkHallucination applies the grounding gate. An ungrounded verdict is an
// expected outcome: the generation is replaced by the hallucination sentinel.
func (u *explainUsecase) checkHallucination(ctx context.Context, gs *GenerationState) error {
	grounded, err := u.grounding.CheckGrounding(ctx, gs.Document.Content, gs.Generation)
	if err != nil {
		return fmt.Errorf("grounding check failed: %w", err)
	}

	if !grounded {
		u.logger.Warn("generation_ungrounded",
			slog.String("dataset_id", gs.Document.Metadata.ID))
		gs.Hallucination = gs.Generation
		gs.Generation = HallucinationSentinel
	}
	return nil
}
