package application

import (
	"context"
	"fmt"

	"github.com/nikhilsharma-dev/mcp-bugzilla/internal/domain"
)

// RequestRouter dispatches MCP tool requests to the appropriate ToolHandler.
// Each handler declares its tools via ListTools; the router registers every
// declared tool name, so lookup is exact and unknown names are rejected
// before any handler runs.
type RequestRouter struct {
	handlers map[string]domain.ToolHandler
	catalog  []domain.ToolDefinition
}

// NewRequestRouter creates a new RequestRouter with the provided handlers.
// Tools are registered in the order the handlers declare them.
func NewRequestRouter(handlers ...domain.ToolHandler) *RequestRouter {
	router := &RequestRouter{
		handlers: make(map[string]domain.ToolHandler),
	}

	for _, handler := range handlers {
		for _, tool := range handler.ListTools() {
			router.handlers[tool.Name] = handler
			router.catalog = append(router.catalog, tool)
		}
	}

	return router
}

// Route dispatches a tool request to the handler that declared the tool.
// Returns an error if the tool name is unknown or if the handler fails to
// process the request.
func (r *RequestRouter) Route(ctx context.Context, req *domain.ToolRequest) (*domain.ToolResponse, error) {
	handler, exists := r.handlers[req.Name]
	if !exists {
		return nil, &domain.Error{
			Code:    domain.MethodNotFound,
			Message: fmt.Sprintf("unknown tool: %s", req.Name),
		}
	}

	return handler.Handle(ctx, req)
}

// ListAllTools returns the aggregated tool catalog from all registered
// handlers. This is used for MCP tool discovery (tools/list method).
func (r *RequestRouter) ListAllTools() []domain.ToolDefinition {
	return r.catalog
}

// HasTool reports whether a tool name is registered.
// This is useful for testing and debugging.
func (r *RequestRouter) HasTool(name string) bool {
	_, exists := r.handlers[name]
	return exists
}
