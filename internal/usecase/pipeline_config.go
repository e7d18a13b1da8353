package usecase

import (
	"fmt"
	"time"
)

// HybridConfig holds the tunables of the hybrid retrieval stage.
type HybridConfig struct {
	// TopK is the number of chunk matches requested per query, bounded 1-100.
	TopK int
	// Alpha is the dense weight of the convex blend between dense similarity
	// (1.0) and sparse term-weighted similarity (0.0).
	Alpha float64
}

// DefaultHybridConfig returns the serving defaults.
func DefaultHybridConfig() HybridConfig {
	return HybridConfig{
		TopK:  10,
		Alpha: 0.3,
	}
}

// Validate checks the hybrid retrieval configuration.
func (c HybridConfig) Validate() error {
	if c.TopK < 1 || c.TopK > 100 {
		return fmt.Errorf("topK must be in [1, 100], got %d", c.TopK)
	}
	if c.Alpha < 0.0 || c.Alpha > 1.0 {
		return fmt.Errorf("alpha must be in [0.0, 1.0], got %f", c.Alpha)
	}
	return nil
}

// GenerationConfig holds the tunables of the explanation stage.
type GenerationConfig struct {
	// MaxTokens caps the generated explanation length.
	MaxTokens int
	// MaxAttempts bounds retries of the generation call on transport
	// failures. Malformed structured output is never retried.
	MaxAttempts int
	// InitialBackoff is the wait before the first retry; it doubles per
	// attempt.
	InitialBackoff time.Duration
}

// DefaultGenerationConfig returns the serving defaults. The retry policy
// mirrors the harvesters: three attempts with exponential backoff.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		MaxTokens:      512,
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
	}
}

// Validate checks the generation configuration.
func (c GenerationConfig) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("maxTokens must be positive, got %d", c.MaxTokens)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("maxAttempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.InitialBackoff < 0 {
		return fmt.Errorf("initialBackoff must be non-negative, got %v", c.InitialBackoff)
	}
	return nil
}
