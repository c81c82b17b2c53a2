// Package registry maps operation type keys to their factories. The table
// is populated once at startup; execution resolves every node through it.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/calder/automa/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// Component describes a registered operation type for editor and API
// consumption.
type Component struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.OperationFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]protocol.OperationFactory),
	}
}

// Register adds an operation factory to the table, replacing any previous
// factory for the same type key.
func (r *Registry) Register(factory protocol.OperationFactory) {
	r.factories[factory.ID()] = factory
}

// Create resolves the factory for operationType, applies schema defaults
// to the (already interpolated) options, validates them and builds the
// operation instance.
func (r *Registry) Create(
	ctx context.Context,
	operationType string,
	id string,
	options map[string]any,
) (protocol.Operation, error) {
	factory, ok := r.factories[operationType]
	if !ok {
		return nil, &UnknownOperationError{OperationType: operationType}
	}

	merged := ApplyDefaults(factory.Schema(), options)

	if err := r.validateOptions(operationType, factory.Schema(), merged); err != nil {
		return nil, err
	}

	operation, err := factory.Create(ctx, id, merged)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation %q: %w", operationType, err)
	}

	return operation, nil
}

// Registered checks whether an operation type is in the table.
func (r *Registry) Registered(operationType string) bool {
	_, ok := r.factories[operationType]

	return ok
}

// OperationTypes returns all registered type keys, sorted.
func (r *Registry) OperationTypes() []string {
	types := make([]string, 0, len(r.factories))
	for operationType := range r.factories {
		types = append(types, operationType)
	}

	sort.Strings(types)

	return types
}

// Components returns metadata for every registered operation type, sorted
// by type key.
func (r *Registry) Components() []Component {
	components := make([]Component, 0, len(r.factories))

	for _, operationType := range r.OperationTypes() {
		factory := r.factories[operationType]
		components = append(components, Component{
			Type:        factory.ID(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return components
}

func (r *Registry) validateOptions(operationType string, schema, options map[string]any) error {
	if schema == nil {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	optionsLoader := gojsonschema.NewGoLoader(options)

	result, err := gojsonschema.Validate(schemaLoader, optionsLoader)
	if err != nil {
		return fmt.Errorf("failed to validate options for %q: %w", operationType, err)
	}

	if !result.Valid() {
		causes := make([]string, 0, len(result.Errors()))
		for _, cause := range result.Errors() {
			causes = append(causes, cause.String())
		}

		return &OptionsValidationError{OperationType: operationType, Causes: causes}
	}

	return nil
}

// ApplyDefaults fills missing top-level options with the defaults declared
// in the schema's properties.
func ApplyDefaults(schema, options map[string]any) map[string]any {
	merged := make(map[string]any, len(options))
	for k, v := range options {
		merged[k] = v
	}

	if schema == nil {
		return merged
	}

	properties, ok := schema["properties"].(map[string]any)
	if !ok {
		return merged
	}

	for name, raw := range properties {
		property, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		if _, present := merged[name]; present {
			continue
		}

		if def, hasDefault := property["default"]; hasDefault {
			merged[name] = def
		}
	}

	return merged
}
