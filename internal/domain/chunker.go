package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ChunkerVersion identifies the chunking algorithm used for an index build,
// so a corpus snapshot records which rules produced its chunks.
type ChunkerVersion string

const (
	// ChunkerVersionV1 is the paragraph-first bounded chunker.
	ChunkerVersionV1 ChunkerVersion = "v1"
)

const (
	// MinChunkLength is the minimum chunk length in runes. Shorter chunks are
	// merged with a neighbour; whitespace-trivial leftovers below this bound
	// are excluded from indexing.
	MinChunkLength = 80
	// MaxChunkLength is the maximum chunk length in runes, sized for a
	// generation window of roughly 512 tokens.
	MaxChunkLength = 2048
)

// Chunk is a single bounded span of document text.
type Chunk struct {
	Ordinal int
	Content string
	Hash    string // SHA-256 of the content
}

// Chunker splits text into bounded chunks. Splits happen preferentially at
// paragraph boundaries, then line boundaries, then sentence boundaries, and
// never inside a word.
type Chunker interface {
	Chunk(body string) ([]Chunk, error)
	Version() ChunkerVersion
}

type boundaryChunker struct{}

// NewChunker creates the default boundary-preserving chunker.
func NewChunker() Chunker {
	return &boundaryChunker{}
}

func (c *boundaryChunker) Version() ChunkerVersion {
	return ChunkerVersionV1
}

// Chunk normalizes newlines, splits the body into paragraphs, merges
// undersized paragraphs, splits oversized ones at progressively finer
// boundaries, and assigns ordinals and content hashes.
func (c *boundaryChunker) Chunk(body string) ([]Chunk, error) {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	var paragraphs []string
	for _, part := range strings.Split(normalized, "\n\n") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}

	pieces := splitLongChunks(mergeShortChunks(paragraphs))

	var chunks []Chunk
	for i, content := range pieces {
		hashBytes := sha256.Sum256([]byte(content))
		chunks = append(chunks, Chunk{
			Ordinal: i,
			Content: content,
			Hash:    hex.EncodeToString(hashBytes[:]),
		})
	}
	return chunks, nil
}
