package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxOverlap keeps every chunk advancing past the previous one.
const maxOverlap = 0.9

var wordRe = regexp.MustCompile(`\S+\s*`)

// EstimateTokens approximates the token count of s as runes/4.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	if n < 4 {
		return 1
	}
	return n / 4
}

// Chunk splits text into pieces of at most threshold estimated tokens,
// breaking only on whitespace. Each chunk after the first repeats the last
// overlap fraction of the previous chunk's words. A single word longer than
// threshold becomes its own chunk.
func Chunk(text string, threshold int, overlap float64) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if threshold <= 0 || EstimateTokens(text) <= threshold {
		return []string{text}
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > maxOverlap {
		overlap = maxOverlap
	}

	words := wordRe.FindAllString(text, -1)
	var (
		chunks    []string
		cur       []string
		curTokens int
	)
	flush := func() {
		chunks = append(chunks, strings.TrimSpace(strings.Join(cur, "")))
		keep := int(float64(len(cur)) * overlap)
		tail := append([]string(nil), cur[len(cur)-keep:]...)
		cur = tail
		curTokens = 0
		for _, w := range cur {
			curTokens += EstimateTokens(w)
		}
	}

	for _, w := range words {
		t := EstimateTokens(w)
		if len(cur) > 0 && curTokens+t > threshold {
			flush()
		}
		cur = append(cur, w)
		curTokens += t
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.TrimSpace(strings.Join(cur, "")))
	}
	return chunks
}
