package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/extract-cli/internal/model"
)

// decodeJSONItems reads a JSON array of {"title", "url"} objects element by
// element. Key matching is case-insensitive, so {"Title", "URL"} works too.
// Elements with neither field are skipped.
func decodeJSONItems(ctx context.Context, r io.Reader) ([]model.BatchItem, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "json: read opening token")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, eris.Errorf("json: item list must be an array, got %v", tok)
	}

	var items []model.BatchItem
	for i := 0; dec.More(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "json: cancelled")
		}
		var item model.BatchItem
		if err := dec.Decode(&item); err != nil {
			return nil, eris.Wrapf(err, "json: item %d", i)
		}
		items = append(items, item)
	}

	if _, err := dec.Token(); err != nil {
		return nil, eris.Wrap(err, "json: read closing token")
	}
	return items, nil
}
