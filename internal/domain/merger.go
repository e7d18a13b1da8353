package domain

import "unicode/utf8"

// mergeShortChunks folds paragraphs shorter than MinChunkLength into a
// neighbour so no undersized chunk reaches the index. Leading short
// paragraphs are prepended to the first full-size paragraph; trailing ones
// are appended to the last chunk produced.
func mergeShortChunks(paragraphs []string) []string {
	if len(paragraphs) == 0 {
		return paragraphs
	}

	var merged []string
	var pending string

	appendPending := func(para string) string {
		if pending == "" {
			return para
		}
		joined := pending + "\n\n" + para
		pending = ""
		return joined
	}

	for _, para := range paragraphs {
		if utf8.RuneCountInString(para) >= MinChunkLength {
			merged = append(merged, appendPending(para))
			continue
		}
		if pending != "" {
			pending += "\n\n" + para
		} else {
			pending = para
		}
		if utf8.RuneCountInString(pending) >= MinChunkLength {
			merged = append(merged, pending)
			pending = ""
		}
	}

	if pending != "" {
		if len(merged) > 0 && utf8.RuneCountInString(pending) < MinChunkLength {
			merged[len(merged)-1] = merged[len(merged)-1] + "\n\n" + pending
		} else {
			merged = append(merged, pending)
		}
	}
	return merged
}
