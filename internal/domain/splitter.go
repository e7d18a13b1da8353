package domain

import (
	"strings"
	"unicode/utf8"
)

// splitLongChunks splits pieces longer than MaxChunkLength at the finest
// boundary that keeps each piece within bounds: lines first, then sentences,
// then individual words. Words are never split.
func splitLongChunks(paragraphs []string) []string {
	var result []string
	for _, para := range paragraphs {
		if utf8.RuneCountInString(para) <= MaxChunkLength {
			result = append(result, para)
			continue
		}
		result = append(result, packUnits(splitOversized(para, splitIntoLines), "\n")...)
	}
	return result
}

// splitOversized applies split to the text and recursively breaks down any
// unit the splitter could not bring under MaxChunkLength.
func splitOversized(text string, split func(string) []string) []string {
	var units []string
	for _, unit := range split(text) {
		if utf8.RuneCountInString(unit) <= MaxChunkLength {
			units = append(units, unit)
			continue
		}
		switch {
		case strings.Contains(unit, "\n"):
			units = append(units, splitOversized(unit, splitIntoLines)...)
		default:
			sentences := splitIntoSentences(unit)
			if len(sentences) > 1 {
				for _, s := range sentences {
					if utf8.RuneCountInString(s) <= MaxChunkLength {
						units = append(units, s)
					} else {
						units = append(units, packUnits(strings.Fields(s), " ")...)
					}
				}
			} else {
				units = append(units, packUnits(strings.Fields(unit), " ")...)
			}
		}
	}
	return units
}

// packUnits greedily joins units into chunks no longer than MaxChunkLength.
func packUnits(units []string, sep string) []string {
	var result []string
	var chunk string
	sepLen := utf8.RuneCountInString(sep)

	for _, unit := range units {
		chunkLen := utf8.RuneCountInString(chunk)
		unitLen := utf8.RuneCountInString(unit)

		if chunkLen > 0 && chunkLen+sepLen+unitLen > MaxChunkLength {
			result = append(result, chunk)
			chunk = unit
			continue
		}
		if chunk != "" {
			chunk += sep
		}
		chunk += unit
	}
	if chunk != "" {
		result = append(result, chunk)
	}
	return result
}

func splitIntoLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// splitIntoSentences splits text at . ! ? boundaries followed by whitespace.
func splitIntoSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])

		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
				if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
					sentences = append(sentences, trimmed)
				}
				current.Reset()
			}
		}
	}
	if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
		sentences = append(sentences, trimmed)
	}
	return sentences
}
