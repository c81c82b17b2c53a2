package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/calder/automa/pkg/compiler"
	"github.com/calder/automa/pkg/eventbus"
	"github.com/calder/automa/pkg/events"
	"github.com/calder/automa/pkg/executor"
	"github.com/calder/automa/pkg/models"
	"github.com/calder/automa/pkg/persistence"
	"github.com/calder/automa/pkg/registry"
)

// Flow is the business logic service for flow management and triggering.
type Flow struct {
	persistence persistence.Persistence
	compiler    *compiler.Compiler
	executor    *executor.Executor
	registry    *registry.Registry
	validator   *validator.Validate
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// FlowOption configures the flow service.
type FlowOption func(*Flow)

// WithEventPublisher makes the service publish trigger events.
func WithEventPublisher(publisher eventbus.EventPublisher) FlowOption {
	return func(f *Flow) {
		f.publisher = publisher
	}
}

// NewFlow creates a new flow service.
func NewFlow(
	persistence persistence.Persistence,
	comp *compiler.Compiler,
	exec *executor.Executor,
	reg *registry.Registry,
	logger *slog.Logger,
	opts ...FlowOption,
) *Flow {
	f := &Flow{
		persistence: persistence,
		compiler:    comp,
		executor:    exec,
		registry:    reg,
		validator:   validator.New(),
		logger:      logger.With("module", "flow_service"),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// HealthCheck checks the health of the persistence layer.
func (f *Flow) HealthCheck(ctx context.Context) (string, bool) {
	if f.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := f.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateFlowRequest carries the fields a client may set on a new flow.
type CreateFlowRequest struct {
	Name          string             `validate:"required,min=3"`
	Description   string             ``
	TriggerType   models.TriggerType `validate:"required,oneof=event schedule webhook manual another_flow"`
	TriggerConfig map[string]any     ``
	CanvasState   *models.CanvasState
}

// Create stores a new draft flow.
func (f *Flow) Create(ctx context.Context, req CreateFlowRequest) (*models.Flow, error) {
	if err := f.validator.Struct(req); err != nil {
		return nil, NewValidationError("Create", "INVALID_FLOW", err.Error(), ErrInvalidRequest)
	}

	now := time.Now().UTC()
	flow := &models.Flow{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Description:   req.Description,
		Status:        models.FlowStatusDraft,
		TriggerType:   req.TriggerType,
		TriggerConfig: req.TriggerConfig,
		Operations:    []*models.Operation{},
		Connections:   []*models.Connection{},
		CanvasState:   req.CanvasState,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := f.persistence.FlowRepository().Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	f.logger.InfoContext(ctx, "Flow created", "flow_id", flow.ID, "name", flow.Name)

	return flow, nil
}

// Get returns the flow with the given id.
func (f *Flow) Get(ctx context.Context, id string) (*models.Flow, error) {
	return f.persistence.FlowRepository().GetByID(ctx, id)
}

// List returns flows filtered by status.
func (f *Flow) List(ctx context.Context, limit, offset int, status *models.FlowStatus) ([]*models.Flow, error) {
	return f.persistence.FlowRepository().List(ctx, persistence.ListFlowsOptions{
		Limit:  limit,
		Offset: offset,
		Status: status,
	})
}

// UpdateFlowRequest carries the mutable fields of a flow. Nil pointers
// leave the current value untouched.
type UpdateFlowRequest struct {
	Name          *string `validate:"omitempty,min=3"`
	Description   *string
	TriggerType   *models.TriggerType `validate:"omitempty,oneof=event schedule webhook manual another_flow"`
	TriggerConfig map[string]any
	Operations    []*models.Operation
	Connections   []*models.Connection
	CanvasState   *models.CanvasState
}

// Update modifies an editable flow. Active flows are structurally frozen
// and must be deactivated first.
func (f *Flow) Update(ctx context.Context, id string, req UpdateFlowRequest) (*models.Flow, error) {
	if err := f.validator.Struct(req); err != nil {
		return nil, NewValidationError("Update", "INVALID_FLOW", err.Error(), ErrInvalidRequest)
	}

	flow, err := f.persistence.FlowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !flow.Editable() {
		return nil, NewConflictError("Update", "FLOW_ACTIVE",
			"deactivate the flow before editing it", ErrCannotModifyActive)
	}

	if req.Name != nil {
		flow.Name = *req.Name
	}

	if req.Description != nil {
		flow.Description = *req.Description
	}

	if req.TriggerType != nil {
		flow.TriggerType = *req.TriggerType
	}

	if req.TriggerConfig != nil {
		flow.TriggerConfig = req.TriggerConfig
	}

	if req.Operations != nil {
		flow.Operations = req.Operations
	}

	if req.Connections != nil {
		flow.Connections = req.Connections
	}

	if req.CanvasState != nil {
		flow.CanvasState = req.CanvasState

		// A fresh canvas invalidates previously derived lists unless the
		// caller supplied new ones as well.
		if req.Operations == nil {
			flow.Operations = []*models.Operation{}
		}

		if req.Connections == nil {
			flow.Connections = []*models.Connection{}
		}
	}

	flow.UpdatedAt = time.Now().UTC()

	if err := f.persistence.FlowRepository().Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	f.logger.InfoContext(ctx, "Flow updated", "flow_id", flow.ID)

	return flow, nil
}

// Delete removes a non-active flow. Execution records are kept.
func (f *Flow) Delete(ctx context.Context, id string) error {
	flow, err := f.persistence.FlowRepository().GetByID(ctx, id)
	if err != nil {
		return err
	}

	if flow.Status == models.FlowStatusActive {
		return NewConflictError("Delete", "FLOW_ACTIVE",
			"deactivate the flow before deleting it", ErrCannotDeleteActive)
	}

	if err := f.persistence.FlowRepository().Delete(ctx, id); err != nil {
		return err
	}

	f.logger.InfoContext(ctx, "Flow deleted", "flow_id", id)

	return nil
}

// Activate makes the flow triggerable. A flow with validation issues
// cannot be activated.
func (f *Flow) Activate(ctx context.Context, id string) (*models.Flow, error) {
	flow, err := f.persistence.FlowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if flow.Status == models.FlowStatusActive {
		return nil, NewConflictError("Activate", "FLOW_ACTIVE",
			"flow is already active", ErrFlowAlreadyActive)
	}

	if issues := f.validateFlow(ctx, flow); len(issues) > 0 {
		return nil, NewValidationError("Activate", "FLOW_NOT_VALID",
			fmt.Sprintf("flow has %d validation issues, first: %s", len(issues), issues[0].Message),
			ErrFlowNotValid)
	}

	// Compiling persists the canonical graph when only a canvas exists, so
	// activation freezes an executable structure.
	if _, err := f.compiler.Compile(ctx, flow); err != nil {
		return nil, NewValidationError("Activate", "FLOW_NOT_VALID", err.Error(), ErrFlowNotValid)
	}

	flow.Status = models.FlowStatusActive
	flow.UpdatedAt = time.Now().UTC()

	if err := f.persistence.FlowRepository().Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	f.logger.InfoContext(ctx, "Flow activated", "flow_id", flow.ID)

	return flow, nil
}

// Deactivate makes the flow editable again.
func (f *Flow) Deactivate(ctx context.Context, id string) (*models.Flow, error) {
	flow, err := f.persistence.FlowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if flow.Status != models.FlowStatusActive {
		return nil, NewConflictError("Deactivate", "FLOW_NOT_ACTIVE",
			"flow is not active", ErrFlowNotActive)
	}

	flow.Status = models.FlowStatusInactive
	flow.UpdatedAt = time.Now().UTC()

	if err := f.persistence.FlowRepository().Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	f.logger.InfoContext(ctx, "Flow deactivated", "flow_id", flow.ID)

	return flow, nil
}

// Trigger runs an active flow against the payload and returns the
// finalized execution record. Non-active flows are rejected.
func (f *Flow) Trigger(ctx context.Context, flowID string, payload map[string]any) (*models.ExecutionRecord, error) {
	flow, err := f.persistence.FlowRepository().GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if !flow.Triggerable() {
		return nil, NewConflictError("Trigger", "FLOW_NOT_ACTIVE",
			fmt.Sprintf("flow %s has status %q, only active flows can be triggered", flowID, flow.Status),
			ErrFlowNotActive)
	}

	g, err := f.compiler.Compile(ctx, flow)
	if err != nil {
		return nil, fmt.Errorf("failed to compile flow %s: %w", flowID, err)
	}

	if f.publisher != nil {
		event := events.FlowTriggered{
			BaseEvent:   events.NewBaseEvent(events.FlowTriggeredEvent, flow.ID),
			TriggerData: payload,
		}
		if err := f.publisher.Publish(ctx, flow.ID, event); err != nil {
			f.logger.ErrorContext(ctx, "Failed to publish trigger event", "flow_id", flow.ID, "error", err)
		}
	}

	return f.executor.Execute(ctx, flow, g, payload)
}

// Duplicate copies a flow's topology and options under fresh ids. The copy
// starts as a draft with no execution history. An empty newName keeps the
// source flow's name.
func (f *Flow) Duplicate(ctx context.Context, flowID, newName string) (*models.Flow, error) {
	source, err := f.persistence.FlowRepository().GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if newName == "" {
		newName = source.Name
	}

	idMap := make(map[string]string, len(source.Operations)+1)
	idMap[models.TriggerNodeID] = models.TriggerNodeID

	operations := make([]*models.Operation, 0, len(source.Operations))

	for _, op := range source.Operations {
		duplicated := *op
		duplicated.ID = uuid.New().String()
		duplicated.Options = deepCopyMap(op.Options)
		idMap[op.ID] = duplicated.ID
		operations = append(operations, &duplicated)
	}

	connections := make([]*models.Connection, 0, len(source.Connections))

	for _, conn := range source.Connections {
		duplicated := *conn
		duplicated.ID = uuid.New().String()
		duplicated.SourceID = idMap[conn.SourceID]
		duplicated.TargetID = idMap[conn.TargetID]
		connections = append(connections, &duplicated)
	}

	now := time.Now().UTC()
	flow := &models.Flow{
		ID:            uuid.New().String(),
		Name:          newName,
		Description:   source.Description,
		Status:        models.FlowStatusDraft,
		TriggerType:   source.TriggerType,
		TriggerConfig: deepCopyMap(source.TriggerConfig),
		Operations:    operations,
		Connections:   connections,
		CanvasState:   duplicateCanvas(source.CanvasState),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := f.persistence.FlowRepository().Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to save duplicated flow: %w", err)
	}

	f.logger.InfoContext(ctx, "Flow duplicated", "source_flow_id", flowID, "flow_id", flow.ID)

	return flow, nil
}

// Validate reports every structural issue in the flow without persisting
// anything. An empty slice means the flow can be activated.
func (f *Flow) Validate(ctx context.Context, flowID string) ([]compiler.ValidationIssue, error) {
	flow, err := f.persistence.FlowRepository().GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	return f.validateFlow(ctx, flow), nil
}

// Executions lists recent execution records for the flow.
func (f *Flow) Executions(ctx context.Context, flowID string, limit int) ([]*models.ExecutionRecord, error) {
	if _, err := f.persistence.FlowRepository().GetByID(ctx, flowID); err != nil {
		return nil, err
	}

	return f.persistence.ExecutionRepository().ListByFlow(ctx, flowID, limit)
}

// Execution returns one execution record by id.
func (f *Flow) Execution(ctx context.Context, executionID string) (*models.ExecutionRecord, error) {
	return f.persistence.ExecutionRepository().GetByID(ctx, executionID)
}

func (f *Flow) validateFlow(ctx context.Context, flow *models.Flow) []compiler.ValidationIssue {
	issues := f.compiler.Validate(ctx, flow)

	for _, op := range flow.Operations {
		if !f.registry.Registered(op.OperationType) {
			issues = append(issues, compiler.ValidationIssue{
				Code:    compiler.IssueUnknownOperation,
				NodeID:  op.ID,
				Message: fmt.Sprintf("operation type %q is not registered", op.OperationType),
			})
		}
	}

	return issues
}

// duplicateCanvas deep-copies an editor snapshot under fresh node and
// edge ids so the clone never aliases the source's canvas.
func duplicateCanvas(src *models.CanvasState) *models.CanvasState {
	if src == nil {
		return nil
	}

	idMap := make(map[string]string, len(src.Nodes))
	nodes := make([]models.CanvasNode, 0, len(src.Nodes))

	for _, node := range src.Nodes {
		duplicated := node
		duplicated.ID = uuid.New().String()
		duplicated.Data = deepCopyMap(node.Data)
		idMap[node.ID] = duplicated.ID
		nodes = append(nodes, duplicated)
	}

	edges := make([]models.CanvasEdge, 0, len(src.Edges))

	for _, edge := range src.Edges {
		duplicated := edge
		duplicated.ID = uuid.New().String()
		duplicated.Source = idMap[edge.Source]
		duplicated.Target = idMap[edge.Target]
		edges = append(edges, duplicated)
	}

	return &models.CanvasState{
		Nodes:    nodes,
		Edges:    edges,
		Viewport: src.Viewport,
	}
}

func deepCopyMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}

	dst := make(map[string]any, len(src))

	for key, value := range src {
		switch typed := value.(type) {
		case map[string]any:
			dst[key] = deepCopyMap(typed)
		case []any:
			copied := make([]any, len(typed))

			for i, item := range typed {
				if nested, ok := item.(map[string]any); ok {
					copied[i] = deepCopyMap(nested)
				} else {
					copied[i] = item
				}
			}

			dst[key] = copied
		default:
			dst[key] = value
		}
	}

	return dst
}
