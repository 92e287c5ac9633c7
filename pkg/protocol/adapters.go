package protocol

import (
	"context"

	"github.com/dukex/taskflow/pkg/models"
)

// AIAdapter produces text about a task using a language model.
type AIAdapter interface {
	Analyze(ctx context.Context, task models.Task) (string, error)
	Generate(ctx context.Context, task models.Task, contentType string) (string, error)
	Categorize(ctx context.Context, task models.Task) (string, error)
}

// PageRef identifies a page in the document store.
type PageRef struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

// DocumentStoreAdapter keeps one page per task title. An empty databaseID
// selects the adapter's default database.
type DocumentStoreAdapter interface {
	UpsertTaskPage(ctx context.Context, databaseID string, task models.Task, summary string) (PageRef, error)
}

// MessageRef identifies a posted chat message.
type MessageRef struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
}

// ChatAdapter posts task updates to a chat service. An empty channel
// selects the adapter's default channel.
type ChatAdapter interface {
	PostTaskUpdate(ctx context.Context, channel string, task models.Task, text string) (MessageRef, error)
}

// Adapters groups the external services available to node executors.
// A nil member disables the nodes that depend on it.
type Adapters struct {
	AI            AIAdapter
	DocumentStore DocumentStoreAdapter
	Chat          ChatAdapter
}
