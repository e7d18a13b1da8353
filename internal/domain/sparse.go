package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"
)

// SparseEncoder turns free text into weighted index terms for the sparse arm
// of hybrid retrieval. The weights come from a corpus-statistics artifact
// built by the ingestion job and loaded read-only at query time.
type SparseEncoder interface {
	// QueryTerms returns the query's known terms ordered by descending IDF
	// weight. Unknown and stopword terms are dropped; an empty slice means
	// the sparse arm has nothing to match on.
	QueryTerms(query string) []string
	Version() string
}

// SparseStats is the serialized corpus-statistics artifact. DocCount and the
// per-term document frequencies are enough to recompute smoothed IDF on load.
type SparseStats struct {
	Version  string         `json:"version"`
	DocCount int            `json:"doc_count"`
	DocFreq  map[string]int `json:"doc_freq"`
}

const sparseStatsVersion = "bm25-v1"

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

type bm25Encoder struct {
	idf       map[string]float64
	stopwords map[string]struct{}
	version   string
}

// BuildSparseStats computes document frequencies over the chunk corpus.
func BuildSparseStats(corpus []string) (*SparseStats, error) {
	if len(corpus) == 0 {
		return nil, errors.New("empty corpus for sparse statistics")
	}
	stops := defaultStopwords()
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(text) {
			if _, isStop := stops[tok]; isStop {
				continue
			}
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return nil, errors.New("no tokens found in corpus")
	}
	return &SparseStats{
		Version:  sparseStatsVersion,
		DocCount: len(corpus),
		DocFreq:  df,
	}, nil
}

// SaveSparseStats writes the artifact as JSON.
func SaveSparseStats(stats *SparseStats, path string) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal sparse stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write sparse stats: %w", err)
	}
	return nil
}

// LoadSparseEncoder reads the artifact and builds a query-time encoder.
func LoadSparseEncoder(path string) (SparseEncoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sparse stats: %w", err)
	}
	var stats SparseStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to parse sparse stats: %w", err)
	}
	return NewSparseEncoder(&stats)
}

// NewSparseEncoder builds a query-time encoder from corpus statistics,
// recomputing smoothed IDF per term.
func NewSparseEncoder(stats *SparseStats) (SparseEncoder, error) {
	if stats.DocCount <= 0 || len(stats.DocFreq) == 0 {
		return nil, errors.New("sparse stats are empty")
	}
	idf := make(map[string]float64, len(stats.DocFreq))
	n := float64(stats.DocCount)
	for term, df := range stats.DocFreq {
		idf[term] = math.Log((1+n)/(1+float64(df))) + 1.0
	}
	version := stats.Version
	if version == "" {
		version = sparseStatsVersion
	}
	return &bm25Encoder{
		idf:       idf,
		stopwords: defaultStopwords(),
		version:   version,
	}, nil
}

func (e *bm25Encoder) QueryTerms(query string) []string {
	weights := make(map[string]float64)
	for _, tok := range tokenize(query) {
		if _, isStop := e.stopwords[tok]; isStop {
			continue
		}
		if w, ok := e.idf[tok]; ok {
			weights[tok] += w
		}
	}
	terms := make([]string, 0, len(weights))
	for term := range weights {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if weights[terms[i]] != weights[terms[j]] {
			return weights[terms[i]] > weights[terms[j]]
		}
		return terms[i] < terms[j]
	})
	return terms
}

func (e *bm25Encoder) Version() string {
	return e.version
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
		"has", "have", "in", "is", "it", "its", "of", "on", "or", "that",
		"the", "this", "to", "was", "were", "which", "will", "with",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
