package domain

import (
	"context"
	"fmt"
)

// Source tags the catalogue a dataset originated from.
type Source string

const (
	// SourceADR is the UK administrative-data registry.
	SourceADR Source = "ADR"
	// SourceUKDS is the national social-science data archive.
	SourceUKDS Source = "UKDS"
	// SourceCDRC is the municipal-research data repository.
	SourceCDRC Source = "CDRC"
)

// ParseSource validates a source tag from configuration or job payloads.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceADR, SourceUKDS, SourceCDRC:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// NormalizedDocument is the unit every harvester produces: one dataset
// description with its attribution fields, ready for chunking and indexing.
type NormalizedDocument struct {
	ID          string
	Title       string
	URL         string
	Source      Source
	DateCreated string // ISO8601 string, empty when the catalogue omits it
	Content     string
}

// Harvester fetches and normalizes every dataset description of one source
// catalogue. Implementations are thin I/O clients; they do not chunk, embed,
// or persist.
type Harvester interface {
	Source() Source
	Harvest(ctx context.Context) ([]NormalizedDocument, error)
}

// HarvesterRegistry dispatches on the source tag, one variant per catalogue.
type HarvesterRegistry struct {
	harvesters map[Source]Harvester
}

// NewHarvesterRegistry builds a registry from the given harvesters.
func NewHarvesterRegistry(harvesters ...Harvester) *HarvesterRegistry {
	m := make(map[Source]Harvester, len(harvesters))
	for _, h := range harvesters {
		m[h.Source()] = h
	}
	return &HarvesterRegistry{harvesters: m}
}

// ForSource returns the harvester registered for the source tag.
func (r *HarvesterRegistry) ForSource(source Source) (Harvester, error) {
	h, ok := r.harvesters[source]
	if !ok {
		return nil, fmt.Errorf("no harvester registered for source %q", source)
	}
	return h, nil
}

// All returns every registered harvester.
func (r *HarvesterRegistry) All() []Harvester {
	out := make([]Harvester, 0, len(r.harvesters))
	for _, source := range []Source{SourceADR, SourceUKDS, SourceCDRC} {
		if h, ok := r.harvesters[source]; ok {
			out = append(out, h)
		}
	}
	return out
}
