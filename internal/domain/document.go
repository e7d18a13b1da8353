package domain

import "strings"

// GroupSeparator joins the chunk contents of a grouped document. It is kept
// visible so that generation prompts make the chunk boundaries obvious.
const GroupSeparator = "\n--------------------\n"

// Metadata carries the attribution fields of a catalogue dataset.
type Metadata struct {
	ID          string
	Title       string
	URL         string
	Source      Source
	DateCreated string // ISO8601 string
	Score       float32
}

// DocumentChunk is one retrievable unit of a dataset description.
// ID is the parent dataset id and is shared by all chunks of a document.
type DocumentChunk struct {
	ID       string
	Content  string
	Metadata Metadata
}

// RetrievalMatch is a scored chunk returned by one hybrid index query.
type RetrievalMatch struct {
	Chunk DocumentChunk
	Score float32
}

// GroupedDocument merges all matches that share a dataset id into a single
// unit. Content is the concatenation of the constituent chunk texts in
// retrieval order; Metadata is the first chunk's metadata with Score replaced
// by the maximum score in the group.
type GroupedDocument struct {
	Content  string
	Metadata Metadata
}

// GroupByDocument collapses retrieval matches into one GroupedDocument per
// distinct dataset id. Output order is the first-appearance order of each
// group's first match; groups are NOT re-sorted by merged score. This
// reproduces the catalogue's historical result ordering.
func GroupByDocument(matches []RetrievalMatch) []GroupedDocument {
	order := make([]string, 0, len(matches))
	grouped := make(map[string][]RetrievalMatch, len(matches))

	for _, m := range matches {
		id := m.Chunk.Metadata.ID
		if _, ok := grouped[id]; !ok {
			order = append(order, id)
		}
		grouped[id] = append(grouped[id], m)
	}

	out := make([]GroupedDocument, 0, len(order))
	for _, id := range order {
		group := grouped[id]

		contents := make([]string, len(group))
		maxScore := group[0].Score
		for i, m := range group {
			contents[i] = m.Chunk.Content
			if m.Score > maxScore {
				maxScore = m.Score
			}
		}

		meta := group[0].Chunk.Metadata
		meta.Score = maxScore

		out = append(out, GroupedDocument{
			Content:  strings.Join(contents, GroupSeparator),
			Metadata: meta,
		})
	}
	return out
}
