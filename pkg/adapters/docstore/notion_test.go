package docstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/taskflow/pkg/models"
)

type fakeNotion struct {
	existing []notionapi.Page
	queryErr error

	queried []notionapi.DatabaseID
	filters []*notionapi.PropertyFilter
	created []*notionapi.PageCreateRequest
	updated map[notionapi.PageID]*notionapi.PageUpdateRequest
}

func (f *fakeNotion) Query(_ context.Context, id notionapi.DatabaseID, request *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	f.queried = append(f.queried, id)
	f.filters = append(f.filters, request.Filter.(*notionapi.PropertyFilter))

	if f.queryErr != nil {
		return nil, f.queryErr
	}

	return &notionapi.DatabaseQueryResponse{Results: f.existing}, nil
}

func (f *fakeNotion) Create(_ context.Context, request *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	f.created = append(f.created, request)

	return &notionapi.Page{ID: "new-page", URL: "https://notion.so/new-page"}, nil
}

func (f *fakeNotion) Update(_ context.Context, id notionapi.PageID, request *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	if f.updated == nil {
		f.updated = map[notionapi.PageID]*notionapi.PageUpdateRequest{}
	}

	f.updated[id] = request

	return &notionapi.Page{ID: notionapi.ObjectID(id), URL: "https://notion.so/" + string(id)}, nil
}

func newTestAdapter(fake *fakeNotion, defaultDatabaseID string) *NotionAdapter {
	return newNotionAdapter(fake, fake, defaultDatabaseID, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNotionAdapter_CreatesMissingPage(t *testing.T) {
	fake := &fakeNotion{}
	task := models.Task{ID: "t1", Title: "Write docs", Completed: true}

	ref, err := newTestAdapter(fake, "db-default").UpsertTaskPage(context.Background(), "", task, "all done")
	require.NoError(t, err)

	assert.Equal(t, "new-page", ref.ID)
	assert.Equal(t, "https://notion.so/new-page", ref.URL)

	require.Len(t, fake.queried, 1)
	assert.Equal(t, notionapi.DatabaseID("db-default"), fake.queried[0])
	assert.Equal(t, PropertyTitle, fake.filters[0].Property)
	assert.Equal(t, "Write docs", fake.filters[0].RichText.Equals)

	require.Len(t, fake.created, 1)
	request := fake.created[0]
	assert.Equal(t, notionapi.DatabaseID("db-default"), request.Parent.DatabaseID)
	assert.Equal(t, "Write docs", request.Properties[PropertyTitle].(notionapi.TitleProperty).Title[0].Text.Content)
	assert.Equal(t, "all done", request.Properties[PropertySummary].(notionapi.RichTextProperty).RichText[0].Text.Content)
	assert.True(t, request.Properties[PropertyDone].(notionapi.CheckboxProperty).Checkbox)
}

func TestNotionAdapter_UpdatesPageWithSameTitle(t *testing.T) {
	fake := &fakeNotion{existing: []notionapi.Page{{ID: "page-1"}}}
	task := models.Task{ID: "t1", Title: "Write docs"}

	ref, err := newTestAdapter(fake, "db-default").UpsertTaskPage(context.Background(), "db-other", task, "in progress")
	require.NoError(t, err)

	assert.Equal(t, "page-1", ref.ID)
	assert.Equal(t, notionapi.DatabaseID("db-other"), fake.queried[0])
	assert.Empty(t, fake.created)
	require.Contains(t, fake.updated, notionapi.PageID("page-1"))
	assert.False(t, fake.updated["page-1"].Properties[PropertyDone].(notionapi.CheckboxProperty).Checkbox)
}

func TestNotionAdapter_Errors(t *testing.T) {
	_, err := newTestAdapter(&fakeNotion{}, "").UpsertTaskPage(context.Background(), "", models.Task{Title: "x"}, "")
	require.ErrorIs(t, err, ErrNoDatabase)

	queryErr := errors.New("notion: unauthorized")
	_, err = newTestAdapter(&fakeNotion{queryErr: queryErr}, "db").UpsertTaskPage(context.Background(), "", models.Task{Title: "x"}, "")
	require.ErrorIs(t, err, queryErr)
}

func TestRichTextIsTruncated(t *testing.T) {
	text := richText(strings.Repeat("é", maxRichTextLength+10))

	assert.Len(t, []rune(text[0].Text.Content), maxRichTextLength)
}
