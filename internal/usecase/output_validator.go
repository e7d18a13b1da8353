package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CitedAnswer models the structured output the generation prompt enforces.
// Citation indices are zero-based positions in the chunk list presented to
// the model by this invocation, not index-time chunk ids.
type CitedAnswer struct {
	Generation string `json:"generation"`
	Citations  []int  `json:"citations"`
}

// OutputValidator ensures the generation output follows the expected
// structure and only cites presented chunks.
type OutputValidator struct{}

// NewOutputValidator creates a validator instance (stateless).
func NewOutputValidator() OutputValidator {
	return OutputValidator{}
}

// Validate parses the raw model output and checks the citation contract
// against the number of presented chunks. A malformed result is a contract
// violation; missing citations are never guessed.
func (v OutputValidator) Validate(raw string, chunkCount int) (*CitedAnswer, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("generation response is empty")
	}

	var answer CitedAnswer
	if err := json.Unmarshal([]byte(trimmed), &answer); err != nil {
		return nil, fmt.Errorf("failed to parse generation response: %w", err)
	}

	if strings.TrimSpace(answer.Generation) == "" {
		return nil, errors.New("missing generation in response")
	}
	if answer.Citations == nil {
		return nil, errors.New("missing citations in response")
	}
	for _, c := range answer.Citations {
		if c < 0 || c >= chunkCount {
			return nil, fmt.Errorf("citation index %d out of range for %d presented chunks", c, chunkCount)
		}
	}

	return &answer, nil
}
