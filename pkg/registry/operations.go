// Package registry provides operation factory registration for the
// engine's built-in operation types.
package registry

import (
	"github.com/calder/automa/pkg/operations/bulkupdate"
	"github.com/calder/automa/pkg/operations/code"
	"github.com/calder/automa/pkg/operations/condition"
	"github.com/calder/automa/pkg/operations/delay"
	"github.com/calder/automa/pkg/operations/httprequest"
	logop "github.com/calder/automa/pkg/operations/log"
	"github.com/calder/automa/pkg/operations/transform"
)

// RegisterDefaultOperations registers all built-in stateless operation
// factories. The run_flow factory needs a flow trigger dependency and is
// registered separately during service wiring.
func (r *Registry) RegisterDefaultOperations() {
	r.Register(code.NewFactory())
	r.Register(bulkupdate.NewFactory())
	r.Register(httprequest.NewFactory())
	r.Register(transform.NewFactory())
	r.Register(condition.NewFactory())
	r.Register(logop.NewFactory())
	r.Register(delay.NewFactory())
}
