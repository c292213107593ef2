package domain

import "encoding/json"

// ResponseMapper converts Bugzilla payloads and errors to MCP tool
// responses. Success payloads are relayed verbatim; errors are mapped to
// JSON-RPC error objects.
type ResponseMapper interface {
	// MapToToolResponse wraps a raw Bugzilla JSON payload in MCP format.
	// The payload is not re-shaped.
	MapToToolResponse(payload json.RawMessage) (*ToolResponse, error)

	// MapError converts a client error to MCP error format, mapping
	// Bugzilla status codes to JSON-RPC error codes.
	MapError(err error) *Error
}
