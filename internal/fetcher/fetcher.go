// Package fetcher loads batch item lists from local files, HTTP(S) and FTP
// locations. JSON, CSV and XLSX lists are supported.
package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads a remote item list.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}
