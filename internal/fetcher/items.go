package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/extract-cli/internal/model"
)

// LoaderOptions configures the remote fetchers used by a Loader.
type LoaderOptions struct {
	HTTP HTTPOptions
	FTP  FTPOptions
	// Sheet names the XLSX worksheet to read; empty means the first.
	Sheet string
}

// Loader reads item lists from a local path or an http(s):// or ftp:// URL.
type Loader struct {
	http  Fetcher
	ftp   Fetcher
	sheet string
}

// NewLoader creates a Loader.
func NewLoader(opts LoaderOptions) *Loader {
	return &Loader{
		http:  NewHTTPFetcher(opts.HTTP),
		ftp:   NewFTPFetcher(opts.FTP),
		sheet: opts.Sheet,
	}
}

func (l *Loader) remote(src string) Fetcher {
	u, err := url.Parse(src)
	if err != nil {
		return nil
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return l.http
	case "ftp":
		return l.ftp
	}
	return nil
}

// Open returns a reader over src.
func (l *Loader) Open(ctx context.Context, src string) (io.ReadCloser, error) {
	if f := l.remote(src); f != nil {
		return f.Download(ctx, src)
	}
	file, err := os.Open(src)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", src)
	}
	return file, nil
}

// LoadItems reads the item list at src. The format follows the file
// extension: .csv and .xlsx lists need a header row naming the title and url
// columns; anything else is parsed as a JSON array of {title, url} objects.
func (l *Loader) LoadItems(ctx context.Context, src string) ([]model.BatchItem, error) {
	var (
		items []model.BatchItem
		err   error
	)
	switch listExt(src) {
	case ".xlsx":
		items, err = l.loadXLSX(ctx, src)
	case ".csv":
		items, err = l.loadStream(ctx, src, readCSVItems)
	default:
		items, err = l.loadStream(ctx, src, decodeJSONItems)
	}
	if err != nil {
		return nil, err
	}
	zap.L().Info("fetcher: loaded items", zap.String("source", src), zap.Int("count", len(items)))
	return items, nil
}

func listExt(src string) string {
	p := src
	if u, err := url.Parse(src); err == nil && len(u.Scheme) > 1 {
		p = u.Path
	}
	return strings.ToLower(path.Ext(p))
}

func (l *Loader) loadStream(ctx context.Context, src string, read func(context.Context, io.Reader) ([]model.BatchItem, error)) ([]model.BatchItem, error) {
	rc, err := l.Open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	items, err := read(ctx, rc)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", src)
	}
	return items, nil
}

func (l *Loader) loadXLSX(ctx context.Context, src string) ([]model.BatchItem, error) {
	local := src
	if f := l.remote(src); f != nil {
		dir, err := os.MkdirTemp("", "extract-items-*")
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: temp dir")
		}
		defer os.RemoveAll(dir) //nolint:errcheck

		local = filepath.Join(dir, "items.xlsx")
		if _, err := f.DownloadToFile(ctx, src, local); err != nil {
			return nil, err
		}
	}

	header, rows, err := readXLSXTable(local, l.sheet)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", src)
	}
	if header == nil {
		return nil, nil
	}
	return rowsToItems(header, rows)
}

func readCSVItems(ctx context.Context, r io.Reader) ([]model.BatchItem, error) {
	header, rows, err := readCSVTable(ctx, r)
	if err != nil || header == nil {
		return nil, err
	}
	return rowsToItems(header, rows)
}

// rowsToItems maps tabular rows onto items using the title and url header
// columns. Rows with every cell blank are skipped; any other row becomes an
// item, even when its title and url cells are empty.
func rowsToItems(header []string, rows [][]string) ([]model.BatchItem, error) {
	titleCol, urlCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "title":
			titleCol = i
		case "url":
			urlCol = i
		}
	}
	if urlCol < 0 {
		return nil, eris.Errorf("fetcher: header %v has no url column", header)
	}

	cell := func(row []string, i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	items := make([]model.BatchItem, 0, len(rows))
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		items = append(items, model.BatchItem{Title: cell(row, titleCol), URL: cell(row, urlCol)})
	}
	return items, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
