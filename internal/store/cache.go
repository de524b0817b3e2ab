package store

import (
	"encoding/json"
	"time"

	"github.com/sells-group/extract-cli/internal/model"
)

func marshalPage(p model.CrawledPage) (string, error) {
	b, err := json.Marshal(p)
	return string(b), err
}

func unmarshalPage(s string, p *model.CrawledPage) error {
	return json.Unmarshal([]byte(s), p)
}

// cacheTimes fills in fetch and expiry times the caller left zero.
func cacheTimes(page model.CachedPage, ttl time.Duration) (time.Time, time.Time) {
	fetched := page.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now().UTC()
	}
	expires := page.ExpiresAt
	if expires.IsZero() {
		expires = fetched.Add(ttl)
	}
	return fetched.UTC(), expires.UTC()
}
