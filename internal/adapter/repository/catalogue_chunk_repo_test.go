package repository

import (
	"strings"
	"testing"

	"catalogue-rag/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTsQuery_QuotesTerms(t *testing.T) {
	assert.Equal(t, "'census'", buildTsQuery([]string{"census"}))
	assert.Equal(t, "'health' | 'population'", buildTsQuery([]string{"health", "population"}))
}

func TestBuildTsQuery_EscapesApostrophes(t *testing.T) {
	got := buildTsQuery([]string{"health", "women's"})
	assert.Equal(t, "'health' | 'women''s'", got)

	// Every lexeme stays balanced: outside the doubled escapes, quotes come
	// in opening/closing pairs.
	unescaped := strings.ReplaceAll(got, "''", "")
	assert.Zero(t, strings.Count(unescaped, "'")%2)
}

func TestBuildTsQuery_HandlesTokenizerApostropheTerms(t *testing.T) {
	stats, err := domain.BuildSparseStats([]string{
		"The women's health survey covers maternal care.",
		"A second survey covers general practice.",
	})
	require.NoError(t, err)
	sparse, err := domain.NewSparseEncoder(stats)
	require.NoError(t, err)

	terms := sparse.QueryTerms("women's health")
	require.Contains(t, terms, "women's")

	got := buildTsQuery(terms)
	assert.Contains(t, got, "'women''s'")
	assert.NotContains(t, got, " women's")
}

func TestRetrievalQueries_KeepChunksWithoutMetadata(t *testing.T) {
	for _, query := range []string{hybridQuery, denseOnlyQuery} {
		assert.Contains(t, query, "LEFT JOIN dataset_metadata")
		assert.Contains(t, query, "COALESCE(m.title, '')")
	}
}

func TestDenseOnlyQuery_ScoreIsUnscaled(t *testing.T) {
	assert.NotContains(t, denseOnlyQuery, "$3")
	assert.Contains(t, denseOnlyQuery, "(1 - (c.embedding <=> $1)) AS score")
}
