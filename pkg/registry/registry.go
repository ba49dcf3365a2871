// Package registry maps executable node types to their handlers.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/protocol"
)

// Registry holds the node handlers the step executor dispatches to. Flow
// control nodes (start, delay, branch, end) are owned by the walker and are
// never registered here.
type Registry struct {
	logger   *slog.Logger
	handlers map[models.NodeType]protocol.NodeHandler
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logger,
		handlers: make(map[models.NodeType]protocol.NodeHandler),
	}
}

func (r *Registry) Register(handler protocol.NodeHandler) {
	if _, exists := r.handlers[handler.Type()]; exists {
		r.logger.Warn("overwriting node handler", "node_type", handler.Type())
	}

	r.handlers[handler.Type()] = handler
}

func (r *Registry) HandlerFor(nodeType models.NodeType) (protocol.NodeHandler, error) {
	handler, ok := r.handlers[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type %q not registered", nodeType)
	}

	return handler, nil
}

// Types returns the registered node types, useful for startup logging.
func (r *Registry) Types() []models.NodeType {
	types := make([]models.NodeType, 0, len(r.handlers))
	for nodeType := range r.handlers {
		types = append(types, nodeType)
	}

	return types
}
