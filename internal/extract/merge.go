package extract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceRe  = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	blocksRe = regexp.MustCompile(`(?s)<blocks>(.*?)</blocks>`)
)

// CleanJSON pulls a JSON value out of a model answer. It strips code fences
// and <blocks> wrappers, then falls back to the outermost array or object
// in the text. ok is false when no valid JSON is found.
func CleanJSON(text string) (json.RawMessage, bool) {
	s := strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if m := blocksRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if s != "" && json.Valid([]byte(s)) {
		return json.RawMessage(s), true
	}

	for _, pair := range [][2]string{{"[", "]"}, {"{", "}"}} {
		start := strings.Index(s, pair[0])
		end := strings.LastIndex(s, pair[1])
		if start >= 0 && end > start {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return json.RawMessage(candidate), true
			}
		}
	}
	return nil, false
}

// Merge combines per-chunk answers into one JSON array: arrays are
// concatenated, other values become single elements, nulls are dropped.
func Merge(parts []json.RawMessage) json.RawMessage {
	items := make([]json.RawMessage, 0, len(parts))
	for _, p := range parts {
		p = bytes.TrimSpace(p)
		if len(p) == 0 || bytes.Equal(p, []byte("null")) {
			continue
		}
		if p[0] == '[' {
			var arr []json.RawMessage
			if err := json.Unmarshal(p, &arr); err == nil {
				items = append(items, arr...)
				continue
			}
		}
		items = append(items, p)
	}
	out, _ := json.Marshal(items)
	return out
}
