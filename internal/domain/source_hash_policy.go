package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SourceHashPolicy computes a stable hash for a harvested dataset
// description, so re-indexing an unchanged description is a no-op.
type SourceHashPolicy interface {
	Compute(title, content string) string
}

type sourceHashPolicy struct{}

// NewSourceHashPolicy creates the default SourceHashPolicy.
func NewSourceHashPolicy() SourceHashPolicy {
	return &sourceHashPolicy{}
}

// Compute returns the SHA-256 of the whitespace-normalized title and content,
// joined with a null byte so the boundary between them is unambiguous.
func (p *sourceHashPolicy) Compute(title, content string) string {
	normalized := strings.TrimSpace(title) + "\x00" + strings.TrimSpace(content)
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}
