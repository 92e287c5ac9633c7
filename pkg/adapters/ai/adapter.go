// Package ai implements protocol.AIAdapter on top of langchaingo models.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tmc/langchaingo/llms"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/template"
)

const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultMaxTokens    = 1024

	// CategoryOther is returned when the model answers outside of the known categories.
	CategoryOther = "other"
)

// Categories accepted from ai-categorize.
var Categories = []string{"feature", "bug", "documentation", "chore", "research", CategoryOther}

var ErrEmptyResponse = errors.New("model returned an empty response")

const systemPrompt = "You are an assistant embedded in a project management tool. " +
	"Answer with plain text only, without preamble."

var prompts = map[string]string{
	"analyze": `Analyze the following task. Point out risks, missing information and a suggested next step.

Title: {{.task.title}}
Status: {{status .task.completed}}
Description:
{{.task.description}}`,
	"generate": `Write a {{.content_type}} for the following task.

Title: {{.task.title}}
Status: {{status .task.completed}}
Description:
{{.task.description}}`,
	"categorize": `Classify the following task into exactly one of these categories: {{.categories}}.
Answer with the category name only.

Title: {{.task.title}}
Description:
{{.task.description}}`,
}

// Model is the part of llms.Model the adapter consumes.
type Model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Adapter struct {
	model        Model
	provider     string
	maxRetries   uint64
	initialDelay time.Duration
	maxTokens    int
	logger       *slog.Logger
}

type Option func(*Adapter)

// WithRetries sets how many times a transient failure is retried.
func WithRetries(maxRetries uint64, initialDelay time.Duration) Option {
	return func(a *Adapter) {
		a.maxRetries = maxRetries
		a.initialDelay = initialDelay
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(a *Adapter) {
		a.maxTokens = maxTokens
	}
}

func NewAdapter(model Model, provider string, logger *slog.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		model:        model,
		provider:     provider,
		maxRetries:   DefaultMaxRetries,
		initialDelay: DefaultInitialDelay,
		maxTokens:    DefaultMaxTokens,
		logger:       logger.With("module", "ai_adapter", "provider", provider),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Adapter) Analyze(ctx context.Context, task models.Task) (string, error) {
	return a.complete(ctx, "analyze", promptData(task, nil))
}

func (a *Adapter) Generate(ctx context.Context, task models.Task, contentType string) (string, error) {
	return a.complete(ctx, "generate", promptData(task, map[string]any{
		"content_type": strings.ReplaceAll(contentType, "-", " "),
	}))
}

func (a *Adapter) Categorize(ctx context.Context, task models.Task) (string, error) {
	answer, err := a.complete(ctx, "categorize", promptData(task, map[string]any{
		"categories": strings.Join(Categories, ", "),
	}))
	if err != nil {
		return "", err
	}

	return normalizeCategory(answer), nil
}

func promptData(task models.Task, extra map[string]any) map[string]any {
	data := template.TaskData(nil, task, "")
	for k, v := range extra {
		data[k] = v
	}

	return data
}

func (a *Adapter) complete(ctx context.Context, operation string, data map[string]any) (string, error) {
	prompt, err := template.Render(prompts[operation], data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", operation, err)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	var text string

	attempt := 0
	call := func() error {
		attempt++

		resp, err := a.model.GenerateContent(ctx, messages, llms.WithMaxTokens(a.maxTokens))
		if err != nil {
			if !isTransient(err) {
				return backoff.Permanent(err)
			}

			a.logger.WarnContext(ctx, "Transient model error", "operation", operation, "attempt", attempt, "error", err)

			return err
		}

		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
			return backoff.Permanent(ErrEmptyResponse)
		}

		text = strings.TrimSpace(resp.Choices[0].Content)

		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = a.initialDelay

	if err := backoff.Retry(call, backoff.WithContext(backoff.WithMaxRetries(policy, a.maxRetries), ctx)); err != nil {
		a.logger.ErrorContext(ctx, "Model call failed", "operation", operation, "attempts", attempt, "error", err)

		return "", fmt.Errorf("%s: %s: %w", a.provider, operation, err)
	}

	return text, nil
}

// isTransient reports errors worth retrying: rate limits, overloads,
// timeouts and 5xx responses.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())

	for _, marker := range []string{"rate limit", "429", "overloaded", "timeout", "temporarily", "500", "502", "503", "504"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

func normalizeCategory(answer string) string {
	category := strings.ToLower(strings.TrimSpace(answer))
	category = strings.Trim(category, ".\"'` ")

	if line, _, found := strings.Cut(category, "\n"); found {
		category = strings.TrimSpace(line)
	}

	if slices.Contains(Categories, category) {
		return category
	}

	return CategoryOther
}
