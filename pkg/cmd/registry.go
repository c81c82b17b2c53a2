package cmd

import (
	"log/slog"

	"github.com/calder/automa/pkg/registry"
)

// NewRegistry creates a registry populated with the built-in operations.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultOperations()

	return reg
}
