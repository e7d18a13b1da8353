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

// ModerationClient calls an OpenAI-compatible moderations endpoint and maps
// its verdict onto the domain result.
type ModerationClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

func NewModerationClient(baseURL, apiKey, model string, client *http.Client) *ModerationClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ModerationClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		Client:  client,
	}
}

type moderationRequest struct {
	Input string `json:"input"`
	Model string `json:"model,omitempty"`
}

type moderationResponse struct {
	Results []struct {
		Flagged    bool            `json:"flagged"`
		Categories map[string]bool `json:"categories"`
	} `json:"results"`
}

// Moderate submits the text for a content-policy verdict. Categories only
// carries the categories that actually fired.
func (m *ModerationClient) Moderate(ctx context.Context, text string) (*domain.ModerationResult, error) {
	reqBody := moderationRequest{Input: text, Model: m.Model}
	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal moderation request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/moderations", m.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create moderation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.APIKey)
	}

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call moderation endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("moderation endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var modResp moderationResponse
	if err := json.NewDecoder(resp.Body).Decode(&modResp); err != nil {
		return nil, fmt.Errorf("failed to decode moderation response: %w", err)
	}
	if len(modResp.Results) == 0 {
		return nil, fmt.Errorf("moderation endpoint returned no results")
	}

	result := modResp.Results[0]
	var fired []string
	for category, hit := range result.Categories {
		if hit {
			fired = append(fired, category)
		}
	}

	return &domain.ModerationResult{
		Flagged:    result.Flagged,
		Categories: fired,
	}, nil
}

var _ domain.ModerationClient = (*ModerationClient)(nil)
