package web

import "github.com/calder/automa/pkg/models"

// CreateFlowRequest is the POST /flows body.
type CreateFlowRequest struct {
	Name          string              `json:"name"           validate:"required,min=3"`
	Description   string              `json:"description"`
	TriggerType   models.TriggerType  `json:"trigger_type"   validate:"required,oneof=event schedule webhook manual another_flow"`
	TriggerConfig map[string]any      `json:"trigger_config"`
	CanvasState   *models.CanvasState `json:"canvas_state"`
}

// UpdateFlowRequest is the PATCH /flows/:id body. Absent fields keep their
// current value.
type UpdateFlowRequest struct {
	Name          *string              `json:"name"           validate:"omitempty,min=3"`
	Description   *string              `json:"description"`
	TriggerType   *models.TriggerType  `json:"trigger_type"   validate:"omitempty,oneof=event schedule webhook manual another_flow"`
	TriggerConfig map[string]any       `json:"trigger_config"`
	Operations    []*models.Operation  `json:"operations"`
	Connections   []*models.Connection `json:"connections"`
	CanvasState   *models.CanvasState  `json:"canvas_state"`
}

// TriggerFlowRequest is the POST /flows/:id/trigger body.
type TriggerFlowRequest struct {
	Payload map[string]any `json:"payload"`
}

// DuplicateFlowRequest is the POST /flows/:id/duplicate body. An omitted
// name keeps the source flow's name.
type DuplicateFlowRequest struct {
	Name string `json:"name" validate:"omitempty,min=3"`
}
