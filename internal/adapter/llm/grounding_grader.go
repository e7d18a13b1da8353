package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"catalogue-rag/internal/domain"
)

var binaryScoreFormat = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"binary_score": map[string]interface{}{
			"type": "string",
			"enum": []string{"yes", "no"},
		},
	},
	"required": []string{"binary_score"},
}

const groundingSystemPrompt = `You are a grader assessing whether an LLM generation is grounded in / supported by a set of retrieved facts. Give a binary score 'yes' or 'no'. 'yes' means that the answer is grounded in / supported by the set of facts.`

// GroundingGrader asks a grader model for a binary grounded/ungrounded
// verdict on a generation against its source facts.
type GroundingGrader struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewGroundingGrader(baseURL, model string, client *http.Client) *GroundingGrader {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &GroundingGrader{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  client,
	}
}

type binaryScore struct {
	BinaryScore string `json:"binary_score"`
}

// CheckGrounding returns true only when the grader answers "yes".
func (g *GroundingGrader) CheckGrounding(ctx context.Context, facts, generation string) (bool, error) {
	userPrompt := fmt.Sprintf("Set of facts:\n\n%s\n\nLLM generation: %s", facts, generation)

	reqBody := chatRequest{
		Model: g.Model,
		Messages: []chatMessage{
			{Role: "system", Content: groundingSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream:    false,
		KeepAlive: keepAliveSeconds,
		Format:    binaryScoreFormat,
		Options: map[string]interface{}{
			"temperature": 0.0,
		},
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return false, fmt.Errorf("failed to marshal grading request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", g.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return false, fmt.Errorf("failed to create grading request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call grading endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("grading endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return false, fmt.Errorf("failed to decode grading response: %w", err)
	}

	var score binaryScore
	if err := json.Unmarshal([]byte(chatResp.Message.Content), &score); err != nil {
		return false, fmt.Errorf("failed to parse grading verdict: %w", err)
	}

	return strings.EqualFold(strings.TrimSpace(score.BinaryScore), "yes"), nil
}

var _ domain.GroundingClient = (*GroundingGrader)(nil)
