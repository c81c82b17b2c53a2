// Package log provides the logging operation for flow execution.
package log

import (
	"context"
	"errors"
	"log/slog"

	"github.com/calder/automa/pkg/datachain"
	"github.com/calder/automa/pkg/protocol"
)

// Operation emits one structured log line and records it in the node's
// logs.
type Operation struct {
	id      string
	message string
	level   string
	logger  *slog.Logger
}

// New creates a log operation from interpolated options.
func New(id string, options map[string]any) (*Operation, error) {
	message, ok := options["message"].(string)
	if !ok {
		return nil, errors.New("missing required field 'message'")
	}

	level := "info"
	if l, ok := options["level"].(string); ok {
		level = l
	}

	return &Operation{
		id:      id,
		message: message,
		level:   level,
		logger:  slog.With("module", "operation_log", "operation_id", id),
	}, nil
}

// Execute logs the message at the configured level.
func (o *Operation) Execute(ctx context.Context, chain *datachain.Context) (*protocol.Result, error) {
	attrs := []any{"flow_id", chain.FlowID(), "execution_id", chain.ExecutionID()}

	switch o.level {
	case "debug":
		o.logger.DebugContext(ctx, o.message, attrs...)
	case "warn":
		o.logger.WarnContext(ctx, o.message, attrs...)
	case "error":
		o.logger.ErrorContext(ctx, o.message, attrs...)
	default:
		o.logger.InfoContext(ctx, o.message, attrs...)
	}

	return &protocol.Result{
		Output: map[string]any{"message": o.message, "level": o.level},
		Logs:   []string{o.message},
	}, nil
}
