// Package web provides the HTTP handlers for flow management, trigger runs,
// and the pre-commit evaluation endpoints.
package web

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/recordflow/recordflow/pkg/engine"
	"github.com/recordflow/recordflow/pkg/flow"
	"github.com/recordflow/recordflow/pkg/models"
)

const defaultExecutionsLimit = 50

type APIHandlers struct {
	flows     *flow.Repository
	engine    *engine.Engine
	validator *validator.Validate
}

func NewAPIHandlers(flows *flow.Repository, flowEngine *engine.Engine, validate *validator.Validate) *APIHandlers {
	return &APIHandlers{
		flows:     flows,
		engine:    flowEngine,
		validator: validate,
	}
}

// TriggerRunRequest is the payload of a record lifecycle trigger delivered
// over HTTP instead of the event bus.
type TriggerRunRequest struct {
	WorkspaceID string         `json:"workspaceId" validate:"required"`
	TriggerType string         `json:"triggerType" validate:"required,oneof=create update delete"`
	TableID     string         `json:"tableId"     validate:"required"`
	Record      map[string]any `json:"record"`
}

func (h *APIHandlers) RunTrigger(c fiber.Ctx) error {
	var req TriggerRunRequest

	err := c.Bind().Body(&req)
	if err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	err = h.validator.Struct(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	outcome, err := h.engine.RunFlowsForTrigger(c.Context(), req.WorkspaceID, models.TriggerType(req.TriggerType), req.TableID, req.Record)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(outcome)
}

// BeforeCreateRequest asks for pre-commit evaluation of a record that has
// not been persisted yet.
type BeforeCreateRequest struct {
	WorkspaceID string         `json:"workspaceId" validate:"required"`
	TableID     string         `json:"tableId"     validate:"required"`
	Fields      map[string]any `json:"fields"      validate:"required"`
}

func (h *APIHandlers) RunBeforeCreate(c fiber.Ctx) error {
	var req BeforeCreateRequest

	err := c.Bind().Body(&req)
	if err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	err = h.validator.Struct(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	outcome, err := h.engine.RunBeforeCreate(c.Context(), req.WorkspaceID, req.TableID, req.Fields)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(outcome)
}

// PendingActionsRequest carries the deferred actions of a beforeCreate run
// back for execution once the record is durably persisted.
type PendingActionsRequest struct {
	WorkspaceID   string                 `json:"workspaceId" validate:"required"`
	Actions       []models.PendingAction `json:"actions"     validate:"required"`
	CreatedRecord map[string]any         `json:"createdRecord"`
}

func (h *APIHandlers) RunPendingActions(c fiber.Ctx) error {
	var req PendingActionsRequest

	err := c.Bind().Body(&req)
	if err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	err = h.validator.Struct(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	outcome := h.engine.RunPendingActions(c.Context(), req.WorkspaceID, req.Actions, req.CreatedRecord)

	return c.JSON(outcome)
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	flows, err := h.flows.FetchAll(c.Context(), c.Query("workspace_id"))
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"flows": flows, "count": len(flows)})
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	definition, err := h.flows.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var definition models.Flow

	err := c.Bind().Body(&definition)
	if err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	created, err := h.flows.Create(c.Context(), &definition)
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	var definition models.Flow

	err := c.Bind().Body(&definition)
	if err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	updated, err := h.flows.Update(c.Context(), c.Params("id"), &definition)
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	err := h.flows.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		return badRequest(c, "workspace_id query parameter is required")
	}

	limit := defaultExecutionsLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			return badRequest(c, "limit must be a positive integer")
		}

		limit = parsed
	}

	logs, err := h.engine.Recorder().List(c.Context(), workspaceID, limit)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"executions": logs, "count": len(logs)})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, healthy := h.flows.HealthCheck(c.Context())
	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy", "message": message})
	}

	return c.JSON(fiber.Map{"status": "healthy", "message": message})
}
