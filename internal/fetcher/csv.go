package fetcher

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"

	"github.com/rotisserie/eris"
)

const utf8BOM = "\ufeff"

// readCSVTable reads a CSV item list. The first record is the header; a
// leading byte order mark, as written by spreadsheet exports, is dropped.
// Rows may have any number of fields.
func readCSVTable(ctx context.Context, r io.Reader) (header []string, rows [][]string, err error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && string(b) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	for line := 0; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, eris.Wrap(err, "csv: cancelled")
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return header, rows, nil
		}
		if err != nil {
			return nil, nil, eris.Wrapf(err, "csv: read row %d", line+1)
		}
		if header == nil {
			header = record
			continue
		}
		rows = append(rows, record)
	}
}
