package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dukex/taskflow/pkg/engine"
	"github.com/dukex/taskflow/pkg/eventbus"
	"github.com/dukex/taskflow/pkg/events"
	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/registry"
	"github.com/dukex/taskflow/pkg/services"
)

const defaultHistoryLimit = 50

// Evaluator runs the engine over a project snapshot.
type Evaluator interface {
	Evaluate(ctx context.Context, project *models.Project) (*engine.Report, error)
}

type APIHandlers struct {
	projects  *services.Project
	workflows *services.Workflow
	actions   *services.ActionRecorder
	evaluator Evaluator
	publisher eventbus.EventPublisher
	registry  *registry.Registry
	validator *validator.Validate
	logger    *slog.Logger
}

func NewAPIHandlers(
	projects *services.Project,
	workflows *services.Workflow,
	actions *services.ActionRecorder,
	evaluator Evaluator,
	publisher eventbus.EventPublisher,
	registry *registry.Registry,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		projects:  projects,
		workflows: workflows,
		actions:   actions,
		evaluator: evaluator,
		publisher: publisher,
		registry:  registry,
		validator: validator,
		logger:    logger.With("module", "web"),
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck := "ok"

	regErr := h.registry.HealthCheck(c.Context())
	if regErr != nil {
		registryCheck = regErr.Error()
	}

	repositoryCheck, repOk := h.workflows.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Taskflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regErr == nil && repOk {
		status = "healthy"
		message = "Taskflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetProjects(c fiber.Ctx) error {
	projects, err := h.projects.FetchAll(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(projects)
}

func (h *APIHandlers) GetProject(c fiber.Ctx) error {
	project, err := h.projects.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(project)
}

func (h *APIHandlers) SaveProject(c fiber.Ctx) error {
	var req SaveProjectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	project, change, err := h.projects.Save(c.Context(), c.Params("id"), &models.Project{
		Name:     req.Name,
		Tasks:    req.Tasks,
		Diagrams: req.Diagrams,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(SaveProjectResponse{Project: project, Change: change})
}

func (h *APIHandlers) CoupleWorkflow(c fiber.Ctx) error {
	project, err := h.projects.Couple(c.Context(), c.Params("id"), c.Params("workflowId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(project)
}

func (h *APIHandlers) DecoupleWorkflow(c fiber.Ctx) error {
	project, err := h.projects.Decouple(c.Context(), c.Params("id"), c.Params("workflowId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(project)
}

// EvaluateProject runs the engine synchronously and returns its report.
func (h *APIHandlers) EvaluateProject(c fiber.Ctx) error {
	var req EvaluateRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}

		if err := h.validator.Struct(req); err != nil {
			return badRequest(c, err.Error())
		}
	}

	project, err := h.projects.Proposed(c.Context(), c.Params("id"), req.Snapshot.project())
	if err != nil {
		return handleServiceError(c, err)
	}

	report, err := h.evaluator.Evaluate(c.Context(), project)
	if err != nil {
		h.logger.ErrorContext(c.Context(), "Project evaluation failed", "project_id", project.ID, "error", err)

		return internalError(c, err)
	}

	return c.JSON(report)
}

// PublishProjectEvent emits project.changed for the workers.
func (h *APIHandlers) PublishProjectEvent(c fiber.Ctx) error {
	var req PublishEventRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}

		if err := h.validator.Struct(req); err != nil {
			return badRequest(c, err.Error())
		}
	}

	id := c.Params("id")

	if _, err := h.projects.FetchByID(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	source := req.Source
	if source == "" {
		source = "api"
	}

	event := events.ProjectChanged{
		BaseEvent: events.NewBaseEvent(events.ProjectChangedEvent, id),
		Snapshot:  req.Snapshot.project(),
		Source:    source,
	}

	if err := h.publisher.Publish(c.Context(), id, event); err != nil {
		h.logger.ErrorContext(c.Context(), "Failed to publish project event", "project_id", id, "error", err)

		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(PublishEventResponse{EventID: event.ID})
}

func (h *APIHandlers) GetProjectActions(c fiber.Ctx) error {
	limit := defaultHistoryLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			return badRequest(c, "Invalid limit")
		}

		limit = parsed
	}

	id := c.Params("id")

	if _, err := h.projects.FetchByID(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	records, err := h.actions.History(c.Context(), id, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(records)
}

func (h *APIHandlers) GetAction(c fiber.Ctx) error {
	record, err := h.actions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflows.FetchAll(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflows.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) SaveWorkflow(c fiber.Ctx) error {
	var workflow models.Workflow
	if err := c.Bind().JSON(&workflow); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	saved, err := h.workflows.Save(c.Context(), c.Params("id"), &workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(saved)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.workflows.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ValidateWorkflow reports graph and configuration problems without saving.
func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	var workflow models.Workflow
	if err := c.Bind().JSON(&workflow); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	err := h.workflows.Validate(&workflow)

	switch {
	case err == nil:
		return c.JSON(ValidationResponse{Valid: true})
	case services.IsValidationError(err):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ValidationResponse{Errors: err.Error()})
	default:
		return internalError(c, err)
	}
}

func (h *APIHandlers) GetAvailableNodes(c fiber.Ctx) error {
	factories := h.registry.GetAvailableNodes()

	nodes := make([]NodeTypeResponse, 0, len(factories))
	for _, factory := range factories {
		nodes = append(nodes, NodeTypeResponse{
			Subtype:     factory.ID(),
			Kind:        string(factory.Kind()),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return c.JSON(nodes)
}
