// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dukex/taskflow/pkg/adapters/ai"
	"github.com/dukex/taskflow/pkg/adapters/chat"
	"github.com/dukex/taskflow/pkg/adapters/docstore"
	"github.com/dukex/taskflow/pkg/protocol"
	"github.com/dukex/taskflow/pkg/registry"
)

// AdapterConfig carries the credentials of the external services. A service
// without credentials stays unconfigured and its nodes fail at dispatch.
type AdapterConfig struct {
	AIProvider       string
	AIAPIKey         string
	AIModel          string
	NotionToken      string
	NotionDatabaseID string
	SlackToken       string
	SlackChannel     string
}

func NewAdapters(cfg AdapterConfig, logger *slog.Logger) (protocol.Adapters, error) {
	var adapters protocol.Adapters

	if cfg.AIAPIKey != "" {
		adapter, err := ai.New(ai.Config{Provider: cfg.AIProvider, APIKey: cfg.AIAPIKey, Model: cfg.AIModel}, logger)
		if err != nil {
			return adapters, err
		}

		adapters.AI = adapter
	} else {
		logger.Warn("AI adapter not configured", "provider", cfg.AIProvider)
	}

	if cfg.NotionToken != "" {
		adapters.DocumentStore = docstore.NewNotionAdapter(cfg.NotionToken, cfg.NotionDatabaseID, logger)
	} else {
		logger.Warn("Document store adapter not configured")
	}

	if cfg.SlackToken != "" {
		adapters.Chat = chat.NewSlackAdapter(cfg.SlackToken, cfg.SlackChannel, logger)
	} else {
		logger.Warn("Chat adapter not configured")
	}

	return adapters, nil
}

func NewRegistry(log *slog.Logger, adapters protocol.Adapters) *registry.Registry {
	reg := registry.NewRegistry(log)

	if err := reg.RegisterDefaultNodes(adapters); err != nil {
		panic(fmt.Errorf("failed to register nodes: %w", err))
	}

	return reg
}
