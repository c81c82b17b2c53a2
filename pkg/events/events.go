// Package events defines event types and structures for flow lifecycle
// notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the event bus topic all flow events share.
const Topic = "automa.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	FlowTriggeredEvent EventType = "flow.triggered"

	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	FlowID    string         `json:"flow_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent creates the common envelope for a flow event.
func NewBaseEvent(eventType EventType, flowID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		FlowID:    flowID,
	}
}

// FlowTriggered is published when something requests a flow run, before
// the execution record exists.
type FlowTriggered struct {
	BaseEvent

	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e FlowTriggered) GetType() EventType {
	return FlowTriggeredEvent
}

// ExecutionStarted is published once the execution record is created.
type ExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

// ExecutionCompleted is published when a run finishes with every visited
// branch successful or contained.
type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

// ExecutionFailed is published when a run finishes failed.
type ExecutionFailed struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Error       string        `json:"error"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

// ExecutionCancelled is published when a run is cut short by context
// cancellation.
type ExecutionCancelled struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}
