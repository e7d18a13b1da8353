package usecase_test

import (
	"testing"

	"catalogue-rag/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputValidator_ValidAnswer(t *testing.T) {
	validator := usecase.NewOutputValidator()

	answer, err := validator.Validate(
		`{"generation": "Counts households by area [0][2].", "citations": [0, 2]}`, 3)
	require.NoError(t, err)
	assert.Equal(t, "Counts households by area [0][2].", answer.Generation)
	assert.Equal(t, []int{0, 2}, answer.Citations)
}

func TestOutputValidator_EmptyCitationsAllowed(t *testing.T) {
	validator := usecase.NewOutputValidator()

	answer, err := validator.Validate(`{"generation": "Some answer.", "citations": []}`, 1)
	require.NoError(t, err)
	assert.Empty(t, answer.Citations)
}

func TestOutputValidator_Rejections(t *testing.T) {
	validator := usecase.NewOutputValidator()

	tests := []struct {
		name       string
		input      string
		chunkCount int
	}{
		{name: "empty response", input: "", chunkCount: 3},
		{name: "whitespace response", input: "   \n", chunkCount: 3},
		{name: "malformed json", input: `{"generation": "x"`, chunkCount: 3},
		{name: "not json", input: "Here is my answer [0].", chunkCount: 3},
		{name: "missing generation", input: `{"citations": [0]}`, chunkCount: 3},
		{name: "blank generation", input: `{"generation": "  ", "citations": [0]}`, chunkCount: 3},
		{name: "missing citations", input: `{"generation": "x"}`, chunkCount: 3},
		{name: "negative citation", input: `{"generation": "x", "citations": [-1]}`, chunkCount: 3},
		{name: "citation beyond chunks", input: `{"generation": "x", "citations": [3]}`, chunkCount: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.Validate(tt.input, tt.chunkCount)
			assert.Error(t, err)
		})
	}
}

func TestOutputValidator_CitationBoundIsChunkCount(t *testing.T) {
	validator := usecase.NewOutputValidator()

	// The last presented chunk id is chunkCount-1.
	_, err := validator.Validate(`{"generation": "x", "citations": [1]}`, 2)
	assert.NoError(t, err)
	_, err = validator.Validate(`{"generation": "x", "citations": [2]}`, 2)
	assert.Error(t, err)
}
