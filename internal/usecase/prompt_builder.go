package usecase

import (
	"fmt"
	"strings"

	"catalogue-rag/internal/domain"
)

// PromptBuilder composes the generation prompt from the query and the chunks
// presented for citation.
type PromptBuilder interface {
	Build(query, title string, chunks []domain.Chunk) (string, error)
}

type citedPromptBuilder struct{}

// NewCitedPromptBuilder creates the prompt builder for cited explanations.
// Each chunk is labelled with its zero-based source id so the model's
// citation indices map back onto the presented chunk list.
func NewCitedPromptBuilder() PromptBuilder {
	return &citedPromptBuilder{}
}

const citedPromptTemplate = `A user has queried a data catalogue, which has returned a relevant dataset.

Summarise the relevance of this dataset to the query in under three sentences, using the source snippets provided. Do not say it is unrelated; find a relevant connection. Place the relevant citation right after each sentence. Repeats are allowed. Use '[SOURCE_NUMBER]' for the citation (e.g. 'The Space Needle is in Seattle [1][2]'). You MUST use ALL citations.

Respond with JSON only: {"generation": "<summary with [SOURCE_NUMBER] citations>", "citations": [<integer ids of the sources used>]}

Query: "%s"

Dataset snippets:

%s
`

func (b *citedPromptBuilder) Build(query, title string, chunks []domain.Chunk) (string, error) {
	if len(chunks) == 0 {
		return "", fmt.Errorf("no chunks to present")
	}

	formatted := make([]string, len(chunks))
	for i, chunk := range chunks {
		formatted[i] = fmt.Sprintf("Source ID: %d\nDataset Title: %s\nDataset Snippet: %s",
			i, strings.TrimSpace(title), chunk.Content)
	}

	return fmt.Sprintf(citedPromptTemplate, query, strings.Join(formatted, "\n\n")), nil
}
