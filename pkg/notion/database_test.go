package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/extract-cli/internal/model"
)

func TestQueryAll_SinglePage(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{{ID: "p1"}, {ID: "p2"}},
			HasMore: false,
		}, nil).Once()

	pages, err := QueryAll(ctx, mc, "db-1", nil)
	assert.NoError(t, err)
	assert.Len(t, pages, 2)
	mc.AssertExpectations(t)
}

func TestQueryAll_MultiPage(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == ""
	})).Return(&notionapi.DatabaseQueryResponse{
		Results:    []notionapi.Page{{ID: "p1"}},
		HasMore:    true,
		NextCursor: notionapi.Cursor("cursor-abc"),
	}, nil).Once()

	mc.On("QueryDatabase", ctx, "db-1", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == notionapi.Cursor("cursor-abc")
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{{ID: "p2"}},
		HasMore: false,
	}, nil).Once()

	pages, err := QueryAll(ctx, mc, "db-1", nil)
	assert.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, notionapi.ObjectID("p1"), pages[0].ID)
	assert.Equal(t, notionapi.ObjectID("p2"), pages[1].ID)
	mc.AssertExpectations(t)
}

func TestQueryAll_Error(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(nil, assert.AnError).Once()

	pages, err := QueryAll(ctx, mc, "db-1", nil)
	assert.Error(t, err)
	assert.Nil(t, pages)
	mc.AssertExpectations(t)
}

func titleProp(s string) *notionapi.TitleProperty {
	return &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: s}}}
}

func TestQueryItems(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-movies", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.Filter == nil
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{
			{ID: "p1", Properties: notionapi.Properties{
				"Name": titleProp("Roja"),
				"URL":  &notionapi.URLProperty{URL: "/wiki/Roja"},
			}},
			{ID: "p2", Properties: notionapi.Properties{
				"Name": notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: "Bombay "}, {PlainText: "(film)"}}},
				"URL":  &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: " /wiki/Bombay_(film) "}}},
			}},
			{ID: "p3", Properties: notionapi.Properties{}},
		},
	}, nil).Once()

	items, err := QueryItems(ctx, mc, "db-movies", ItemQuery{})
	require.NoError(t, err)
	assert.Equal(t, []model.BatchItem{
		{Title: "Roja", URL: "/wiki/Roja"},
		{Title: "Bombay (film)", URL: "/wiki/Bombay_(film)"},
		{},
	}, items)
	mc.AssertExpectations(t)
}

func TestQueryItems_CustomPropertiesAndStatus(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		pf, ok := req.Filter.(notionapi.PropertyFilter)
		return ok && pf.Property == "Status" && pf.Status != nil && pf.Status.Equals == "Queued"
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{
			{ID: "p1", Properties: notionapi.Properties{
				"Film": titleProp("Roja"),
				"Link": &notionapi.URLProperty{URL: "https://en.wikipedia.org/wiki/Roja"},
			}},
		},
	}, nil).Once()

	items, err := QueryItems(ctx, mc, "db-1", ItemQuery{TitleProperty: "Film", URLProperty: "Link", Status: "Queued"})
	require.NoError(t, err)
	assert.Equal(t, []model.BatchItem{{Title: "Roja", URL: "https://en.wikipedia.org/wiki/Roja"}}, items)
	mc.AssertExpectations(t)
}

func TestQueryItems_Error(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-err", mock.Anything).Return(nil, assert.AnError).Once()

	items, err := QueryItems(ctx, mc, "db-err", ItemQuery{})
	require.Error(t, err)
	assert.Nil(t, items)
	assert.Contains(t, err.Error(), "notion: query items")
}
