// Package web provides the HTTP handlers of the flow management REST API.
package web

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/calder/automa/pkg/models"
	"github.com/calder/automa/pkg/registry"
	"github.com/calder/automa/pkg/services"
)

type APIHandlers struct {
	flowService *services.Flow
	validator   *validator.Validate
	registry    *registry.Registry
}

func NewAPIHandlers(
	flowService *services.Flow,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		flowService: flowService,
		validator:   validator,
		registry:    registry,
	}
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	limit, offset, err := parsePagination(c)
	if err != nil {
		return badRequest(c, "Invalid pagination parameters: "+err.Error())
	}

	var status *models.FlowStatus

	if statusStr := c.Query("status"); statusStr != "" {
		value := models.FlowStatus(statusStr)
		status = &value
	}

	flows, err := h.flowService.List(c.Context(), limit, offset, status)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"flows": flows,
		"pagination": fiber.Map{
			"limit":  limit,
			"offset": offset,
		},
	})
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req CreateFlowRequest

	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	flow, err := h.flowService.Create(c.Context(), services.CreateFlowRequest{
		Name:          req.Name,
		Description:   req.Description,
		TriggerType:   req.TriggerType,
		TriggerConfig: req.TriggerConfig,
		CanvasState:   req.CanvasState,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(flow)
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	flow, err := h.flowService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req UpdateFlowRequest

	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	flow, err := h.flowService.Update(c.Context(), id, services.UpdateFlowRequest{
		Name:          req.Name,
		Description:   req.Description,
		TriggerType:   req.TriggerType,
		TriggerConfig: req.TriggerConfig,
		Operations:    req.Operations,
		Connections:   req.Connections,
		CanvasState:   req.CanvasState,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	if err := h.flowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ActivateFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	flow, err := h.flowService.Activate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) DeactivateFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	flow, err := h.flowService.Deactivate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) TriggerFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req TriggerFlowRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return badRequest(c, "Invalid request body: "+err.Error())
		}
	}

	record, err := h.flowService.Trigger(c.Context(), id, req.Payload)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) DuplicateFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req DuplicateFlowRequest

	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	flow, err := h.flowService.Duplicate(c.Context(), id, req.Name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(flow)
}

func (h *APIHandlers) ValidateFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	issues, err := h.flowService.Validate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"valid":  len(issues) == 0,
		"issues": issues,
	})
}

func (h *APIHandlers) GetFlowExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	limit := 20

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit: "+err.Error())
		}

		limit = parsed
	}

	records, err := h.flowService.Executions(c.Context(), id, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": records})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	record, err := h.flowService.Execution(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

// Webhook handles POST /webhooks/:flowID. Only active flows with the
// webhook trigger type accept deliveries; the request body becomes the
// trigger payload.
func (h *APIHandlers) Webhook(c fiber.Ctx) error {
	flowID := c.Params("flowID")
	if flowID == "" {
		return badRequest(c, "Flow ID is required")
	}

	flow, err := h.flowService.Get(c.Context(), flowID)
	if err != nil {
		return handleServiceError(c, err)
	}

	if flow.TriggerType != models.TriggerTypeWebhook {
		return notFound(c, "flow does not accept webhook deliveries")
	}

	var payload map[string]any

	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&payload); err != nil {
			return badRequest(c, "Invalid webhook payload: "+err.Error())
		}
	}

	record, err := h.flowService.Trigger(c.Context(), flowID, payload)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

// GetOperations lists every registered operation type with its schema.
func (h *APIHandlers) GetOperations(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"operations": h.registry.Components()})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, healthy := h.flowService.HealthCheck(c.Context())

	status := fiber.StatusOK
	if !healthy {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"healthy": healthy,
		"message": message,
	})
}

func parsePagination(c fiber.Ctx) (int, int, error) {
	limit := 20
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, err
		}

		limit = parsed
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		parsed, err := strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, err
		}

		offset = parsed
	}

	return limit, offset, nil
}
