// Package template renders text/template strings for prompts and messages.
package template

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/dukex/taskflow/pkg/models"
)

var funcs = template.FuncMap{
	"now": func() string {
		return time.Now().UTC().Format(time.RFC3339)
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"trim":  strings.TrimSpace,
	"truncate": func(limit int, s string) string {
		runes := []rune(s)
		if limit < 0 || len(runes) <= limit {
			return s
		}

		return string(runes[:limit]) + "…"
	},
	"status": func(completed bool) string {
		if completed {
			return "completed"
		}

		return "open"
	},
}

// Render executes templateStr against data. Missing keys are an error.
func Render(templateStr string, data any) (string, error) {
	tmpl, err := template.New("taskflow").Funcs(funcs).Option("missingkey=error").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return strings.TrimSpace(buf.String()), nil
}

// TaskData is the data exposed to templates rendered for a task.
func TaskData(execCtx *models.ExecutionContext, task models.Task, summary string) map[string]any {
	data := map[string]any{
		"task": map[string]any{
			"id":          task.ID,
			"title":       task.Title,
			"description": task.Description,
			"completed":   task.Completed,
			"created_at":  task.CreatedAt,
			"updated_at":  task.UpdatedAt,
			"metadata":    task.Metadata,
		},
		"summary": summary,
	}

	if execCtx != nil {
		data["project"] = map[string]any{
			"id":         execCtx.ProjectID,
			"name":       execCtx.ProjectName,
			"task_count": len(execCtx.Tasks),
		}
		data["execution"] = map[string]any{
			"id":          execCtx.ID,
			"workflow_id": execCtx.WorkflowID,
		}
	}

	return data
}

// RenderTask renders templateStr with TaskData.
func RenderTask(templateStr string, execCtx *models.ExecutionContext, task models.Task, summary string) (string, error) {
	return Render(templateStr, TaskData(execCtx, task, summary))
}
