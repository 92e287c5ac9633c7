package models

import (
	"slices"
	"time"
)

// NodeKind is the role a node plays in the graph.
type NodeKind string

const (
	NodeKindInput      NodeKind = "input"      // Fires when the project emits its trigger
	NodeKindProcessing NodeKind = "processing" // Calls the AI adapter
	NodeKindOutput     NodeKind = "output"     // Publishes to an external service
)

// Node subtypes of the fixed catalog.
const (
	SubtypeTaskCreated   = "task-created"
	SubtypeTaskCompleted = "task-completed"
	SubtypeTaskUpdated   = "task-updated"

	SubtypeAIAnalyze    = "ai-analyze"
	SubtypeAIGenerate   = "ai-generate"
	SubtypeAICategorize = "ai-categorize"

	SubtypeUpdateDocumentStore = "update-document-store"
	SubtypePostChatMessage     = "post-chat-message"
)

// Keys used in node result payloads.
const (
	PayloadKeyContent     = "content"
	PayloadKeyAnalysis    = "analysis"
	PayloadKeyContentType = "content_type"
	PayloadKeyCategory    = "category"
	PayloadKeyFallback    = "fallback"
	PayloadKeyPageURL     = "page_url"
	PayloadKeyPageID      = "page_id"
	PayloadKeyMessageID   = "message_id"
	PayloadKeyChannel     = "channel"
)

var catalog = map[string]NodeKind{
	SubtypeTaskCreated:         NodeKindInput,
	SubtypeTaskCompleted:       NodeKindInput,
	SubtypeTaskUpdated:         NodeKindInput,
	SubtypeAIAnalyze:           NodeKindProcessing,
	SubtypeAIGenerate:          NodeKindProcessing,
	SubtypeAICategorize:        NodeKindProcessing,
	SubtypeUpdateDocumentStore: NodeKindOutput,
	SubtypePostChatMessage:     NodeKindOutput,
}

// KindOfSubtype returns the kind a catalog subtype belongs to.
func KindOfSubtype(subtype string) (NodeKind, bool) {
	kind, ok := catalog[subtype]

	return kind, ok
}

// Subtypes returns every catalog subtype, sorted.
func Subtypes() []string {
	subtypes := make([]string, 0, len(catalog))
	for subtype := range catalog {
		subtypes = append(subtypes, subtype)
	}

	slices.Sort(subtypes)

	return subtypes
}

// Node is a single step of a workflow. Title, description and position
// are display metadata only.
type Node struct {
	ID          string         `json:"id"                    validate:"required"`
	Kind        NodeKind       `json:"kind"                  validate:"required,oneof=input processing output"`
	Subtype     string         `json:"subtype"               validate:"required"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
	PositionX   int            `json:"position_x"`
	PositionY   int            `json:"position_y"`
}

func (n *Node) IsInput() bool {
	return n.Kind == NodeKindInput
}

// NodeResult is the outcome of dispatching one node during a run.
type NodeResult struct {
	NodeID     string         `json:"node_id"`
	Success    bool           `json:"success"`
	Message    string         `json:"message"`
	Payload    map[string]any `json:"payload,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Content returns the generated content field of the payload, if any.
func (r NodeResult) Content() (string, bool) {
	if r.Payload == nil {
		return "", false
	}

	content, ok := r.Payload[PayloadKeyContent].(string)

	return content, ok
}
