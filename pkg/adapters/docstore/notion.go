// Package docstore implements protocol.DocumentStoreAdapter on Notion databases.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jomei/notionapi"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/protocol"
)

// Property names expected on the target database.
const (
	PropertyTitle   = "Name"
	PropertySummary = "Summary"
	PropertyDone    = "Done"
)

// Notion rejects rich text blocks longer than this.
const maxRichTextLength = 2000

var ErrNoDatabase = errors.New("no database configured")

type databaseQuerier interface {
	Query(ctx context.Context, id notionapi.DatabaseID, request *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

type pageWriter interface {
	Create(ctx context.Context, request *notionapi.PageCreateRequest) (*notionapi.Page, error)
	Update(ctx context.Context, id notionapi.PageID, request *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// NotionAdapter keeps one page per task title.
type NotionAdapter struct {
	databases         databaseQuerier
	pages             pageWriter
	defaultDatabaseID string
	logger            *slog.Logger
}

func NewNotionAdapter(token, defaultDatabaseID string, logger *slog.Logger) *NotionAdapter {
	client := notionapi.NewClient(notionapi.Token(token))

	return newNotionAdapter(client.Database, client.Page, defaultDatabaseID, logger)
}

func newNotionAdapter(databases databaseQuerier, pages pageWriter, defaultDatabaseID string, logger *slog.Logger) *NotionAdapter {
	return &NotionAdapter{
		databases:         databases,
		pages:             pages,
		defaultDatabaseID: defaultDatabaseID,
		logger:            logger.With("module", "notion_adapter"),
	}
}

func (a *NotionAdapter) UpsertTaskPage(
	ctx context.Context,
	databaseID string,
	task models.Task,
	summary string,
) (protocol.PageRef, error) {
	if databaseID == "" {
		databaseID = a.defaultDatabaseID
	}

	if databaseID == "" {
		return protocol.PageRef{}, ErrNoDatabase
	}

	logger := a.logger.With("database_id", databaseID, "task_id", task.ID)

	existing, err := a.findByTitle(ctx, databaseID, task.Title)
	if err != nil {
		return protocol.PageRef{}, fmt.Errorf("failed to query database %s: %w", databaseID, err)
	}

	properties := notionapi.Properties{
		PropertyTitle:   notionapi.TitleProperty{Title: richText(task.Title)},
		PropertySummary: notionapi.RichTextProperty{RichText: richText(summary)},
		PropertyDone:    notionapi.CheckboxProperty{Checkbox: task.Completed},
	}

	var page *notionapi.Page

	if existing != nil {
		page, err = a.pages.Update(ctx, notionapi.PageID(existing.ID), &notionapi.PageUpdateRequest{Properties: properties})
		if err != nil {
			return protocol.PageRef{}, fmt.Errorf("failed to update page %s: %w", existing.ID, err)
		}

		logger.InfoContext(ctx, "Updated task page", "page_id", page.ID)
	} else {
		page, err = a.pages.Create(ctx, &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(databaseID),
			},
			Properties: properties,
		})
		if err != nil {
			return protocol.PageRef{}, fmt.Errorf("failed to create page: %w", err)
		}

		logger.InfoContext(ctx, "Created task page", "page_id", page.ID)
	}

	return protocol.PageRef{URL: page.URL, ID: page.ID.String()}, nil
}

func (a *NotionAdapter) findByTitle(ctx context.Context, databaseID, title string) (*notionapi.Page, error) {
	resp, err := a.databases.Query(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseQueryRequest{
		Filter: &notionapi.PropertyFilter{
			Property: PropertyTitle,
			RichText: &notionapi.TextFilterCondition{Equals: title},
		},
		PageSize: 1,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		return nil, nil
	}

	return &resp.Results[0], nil
}

func richText(content string) []notionapi.RichText {
	runes := []rune(content)
	if len(runes) > maxRichTextLength {
		content = string(runes[:maxRichTextLength])
	}

	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: content},
	}}
}
