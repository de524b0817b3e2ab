package model

import "time"

// CrawledPage represents a page fetched by a scraper.
type CrawledPage struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Markdown   string `json:"markdown"`
	HTML       string `json:"html,omitempty"`
	StatusCode int    `json:"status_code"`
}

// CachedPage is a scraped page held in the store until it expires.
type CachedPage struct {
	CrawledPage
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
