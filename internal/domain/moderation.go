package domain

import "context"

// ModerationResult is the verdict of the content-policy classifier.
type ModerationResult struct {
	Flagged    bool
	Categories []string
}

// ModerationClient classifies generated text against content policy.
type ModerationClient interface {
	Moderate(ctx context.Context, text string) (*ModerationResult, error)
}
