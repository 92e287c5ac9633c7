// Package chat implements protocol.ChatAdapter on Slack.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/protocol"
)

var ErrNoChannel = errors.New("no channel configured")

type messagePoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

type SlackAdapter struct {
	client         messagePoster
	defaultChannel string
	logger         *slog.Logger
}

func NewSlackAdapter(token, defaultChannel string, logger *slog.Logger) *SlackAdapter {
	return newSlackAdapter(slack.New(token), defaultChannel, logger)
}

func newSlackAdapter(client messagePoster, defaultChannel string, logger *slog.Logger) *SlackAdapter {
	return &SlackAdapter{
		client:         client,
		defaultChannel: defaultChannel,
		logger:         logger.With("module", "slack_adapter"),
	}
}

// PostTaskUpdate posts text as an mrkdwn message. The message id is the
// Slack timestamp of the posted message.
func (a *SlackAdapter) PostTaskUpdate(
	ctx context.Context,
	channel string,
	task models.Task,
	text string,
) (protocol.MessageRef, error) {
	if channel == "" {
		channel = a.defaultChannel
	}

	if channel == "" {
		return protocol.MessageRef{}, ErrNoChannel
	}

	postedChannel, timestamp, err := a.client.PostMessageContext(ctx, channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		return protocol.MessageRef{}, fmt.Errorf("failed to post to %s: %w", channel, err)
	}

	a.logger.InfoContext(ctx, "Posted task update", "channel", postedChannel, "task_id", task.ID, "ts", timestamp)

	return protocol.MessageRef{ID: timestamp, Channel: postedChannel}, nil
}
