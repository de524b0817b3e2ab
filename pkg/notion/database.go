package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/extract-cli/internal/model"
)

// QueryAll fetches all pages from a Notion database, handling pagination.
// Rate limiting is enforced by the Client (3 req/s by default).
// The next page is fetched in a goroutine while the current one is appended.
func QueryAll(ctx context.Context, c Client, dbID string, filter *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var all []notionapi.Page

	newReq := func(cursor notionapi.Cursor) *notionapi.DatabaseQueryRequest {
		req := &notionapi.DatabaseQueryRequest{StartCursor: cursor}
		if filter != nil {
			req.Filter = filter.Filter
			req.Sorts = filter.Sorts
			req.PageSize = filter.PageSize
		}
		return req
	}

	type prefetchResult struct {
		resp *notionapi.DatabaseQueryResponse
		err  error
	}
	var prefetchCh <-chan prefetchResult

	for {
		var (
			resp *notionapi.DatabaseQueryResponse
			err  error
		)
		if prefetchCh != nil {
			result := <-prefetchCh
			resp, err = result.resp, result.err
		} else {
			resp, err = c.QueryDatabase(ctx, dbID, newReq(""))
		}
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}

		all = append(all, resp.Results...)
		if !resp.HasMore {
			break
		}

		next := newReq(resp.NextCursor)
		ch := make(chan prefetchResult, 1)
		prefetchCh = ch
		go func() {
			r, e := c.QueryDatabase(ctx, dbID, next)
			ch <- prefetchResult{resp: r, err: e}
		}()
	}

	return all, nil
}

// ItemQuery names the database properties that hold an item's title and
// URL. Status, when set, limits the query to pages in that status.
type ItemQuery struct {
	TitleProperty string
	URLProperty   string
	Status        string
}

func (q ItemQuery) withDefaults() ItemQuery {
	if q.TitleProperty == "" {
		q.TitleProperty = "Name"
	}
	if q.URLProperty == "" {
		q.URLProperty = "URL"
	}
	return q
}

// QueryItems returns the database rows as batch items in query order.
// Every page becomes an item; one without a URL is reported by the batch.
func QueryItems(ctx context.Context, c Client, dbID string, q ItemQuery) ([]model.BatchItem, error) {
	q = q.withDefaults()

	var filter *notionapi.DatabaseQueryRequest
	if q.Status != "" {
		filter = &notionapi.DatabaseQueryRequest{
			Filter: notionapi.PropertyFilter{
				Property: "Status",
				Status: &notionapi.StatusFilterCondition{
					Equals: q.Status,
				},
			},
		}
	}

	pages, err := QueryAll(ctx, c, dbID, filter)
	if err != nil {
		return nil, eris.Wrap(err, "notion: query items")
	}

	items := make([]model.BatchItem, 0, len(pages))
	for _, p := range pages {
		items = append(items, model.BatchItem{
			Title: propertyText(p.Properties[q.TitleProperty]),
			URL:   propertyText(p.Properties[q.URLProperty]),
		})
	}
	return items, nil
}

// propertyText flattens title, rich text and URL properties to a string.
func propertyText(p notionapi.Property) string {
	switch v := p.(type) {
	case *notionapi.TitleProperty:
		return richText(v.Title)
	case notionapi.TitleProperty:
		return richText(v.Title)
	case *notionapi.RichTextProperty:
		return richText(v.RichText)
	case notionapi.RichTextProperty:
		return richText(v.RichText)
	case *notionapi.URLProperty:
		return strings.TrimSpace(v.URL)
	case notionapi.URLProperty:
		return strings.TrimSpace(v.URL)
	}
	return ""
}

func richText(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range parts {
		b.WriteString(rt.PlainText)
	}
	return strings.TrimSpace(b.String())
}
