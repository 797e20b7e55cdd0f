package chunking

import (
	"regexp"
	"strings"
)

var paragraphSep = regexp.MustCompile(`\n\s*\n`)

// Splitter merges paragraphs into chunks of at most MaxChars characters.
// Oversized paragraphs are hard-split; paragraph boundaries are otherwise
// preserved so evidence snippets stay readable.
type Splitter struct {
	MaxChars int
}

func NewSplitter(maxChars int) *Splitter {
	if maxChars <= 0 {
		maxChars = 1200
	}
	return &Splitter{MaxChars: maxChars}
}

func (s *Splitter) Split(text string) []string {
	paragraphs := nonEmpty(paragraphSep.Split(text, -1))
	if len(paragraphs) == 0 {
		paragraphs = nonEmpty(strings.Split(text, "\n"))
	}

	var chunks []string
	buf := ""
	for _, part := range paragraphs {
		if len(part) > s.MaxChars {
			if buf != "" {
				chunks = append(chunks, buf)
				buf = ""
			}
			chunks = append(chunks, hardSplit(part, s.MaxChars)...)
			continue
		}

		candidate := part
		if buf != "" {
			candidate = buf + "\n\n" + part
		}
		if len(candidate) <= s.MaxChars {
			buf = candidate
		} else {
			if buf != "" {
				chunks = append(chunks, buf)
			}
			buf = part
		}
	}
	if buf != "" {
		chunks = append(chunks, buf)
	}
	return chunks
}

func hardSplit(part string, maxChars int) []string {
	var out []string
	runes := []rune(part)
	for start := 0; start < len(runes); start += maxChars {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		segment := strings.TrimSpace(string(runes[start:end]))
		if segment != "" {
			out = append(out, segment)
		}
	}
	return out
}

func nonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
