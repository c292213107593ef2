package domain

import (
	"context"
)

// ToolHandler processes requests for a group of related tools.
// The Bugzilla handler implements this interface; the router uses the
// ListTools catalog to dispatch incoming tool calls.
type ToolHandler interface {
	// Handle processes an MCP tool call request.
	// Returns the tool response or an error if processing fails.
	Handle(ctx context.Context, req *ToolRequest) (*ToolResponse, error)

	// ListTools returns the tools this handler serves.
	// Each tool represents a specific operation (e.g., get_bug, create_bug).
	ListTools() []ToolDefinition
}
