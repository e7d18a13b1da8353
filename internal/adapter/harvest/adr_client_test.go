package harvest_test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"catalogue-rag/internal/adapter/harvest"
	"catalogue-rag/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestADRClient_Harvest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2.0", r.Header.Get("X-API-Version"))
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Path == "/dataset" {
			switch r.URL.Query().Get("pageNumber") {
			case "1":
				fmt.Fprint(w, `{"content": [
					{"id": "ds-1", "title": "Hospital Episodes", "searchResultType": "PHYSICAL", "origin": {"id": "nhs"}},
					{"id": "ds-2", "title": "Virtual Series", "searchResultType": "VIRTUAL", "origin": {"id": "nhs"}}
				]}`)
			case "2":
				fmt.Fprint(w, `{"content": [
					{"id": "ds-3", "title": "School Census", "searchResultType": "PHYSICAL", "origin": {"id": "dfe"}}
				]}`)
			default:
				fmt.Fprint(w, `{"content": []}`)
			}
			return
		}

		// Detail fetches.
		fmt.Fprint(w, `{
			"origin": {"name": "NHS Digital", "link": "https://example.org/detail"},
			"summary": {"abstract": "An abstract.", "publicationDate": "2020-01-01"},
			"documentation": {"description": "A description."}
		}`)
	}))
	defer server.Close()

	client := harvest.NewADRClient(server.URL, server.Client(), 1000, testLogger())
	docs, err := client.Harvest(context.Background())

	require.NoError(t, err)
	require.Len(t, docs, 2, "virtual datasets are filtered out")

	assert.Equal(t, "ds-1-nhs", docs[0].ID)
	assert.Equal(t, "Hospital Episodes", docs[0].Title)
	assert.Equal(t, "https://example.org/detail", docs[0].URL)
	assert.Equal(t, domain.SourceADR, docs[0].Source)
	assert.Equal(t, "2020-01-01", docs[0].DateCreated)
	assert.Equal(t, "Dataset Title: Hospital Episodes\n\nDescription: \n\nA description.\n\nAbstract: \n\nAn abstract.", docs[0].Content)

	assert.Equal(t, "ds-3-dfe", docs[1].ID)
}

func TestADRClient_DetailFailureSkipsDataset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/dataset" {
			if r.URL.Query().Get("pageNumber") == "1" {
				fmt.Fprint(w, `{"content": [
					{"id": "broken", "title": "Broken", "searchResultType": "PHYSICAL", "origin": {"id": "x"}}
				]}`)
			} else {
				fmt.Fprint(w, `{"content": []}`)
			}
			return
		}
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	client := harvest.NewADRClient(server.URL, server.Client(), 1000, testLogger())
	docs, err := client.Harvest(context.Background())

	require.NoError(t, err)
	assert.Empty(t, docs)
}
