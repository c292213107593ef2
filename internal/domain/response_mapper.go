package domain

import (
	"encoding/json"
	"errors"
	"net/http"
)

// DefaultResponseMapper is the default implementation of ResponseMapper.
// It relays Bugzilla JSON payloads as MCP text content blocks.
type DefaultResponseMapper struct{}

// NewResponseMapper creates a new instance of DefaultResponseMapper.
func NewResponseMapper() ResponseMapper {
	return &DefaultResponseMapper{}
}

// MapToToolResponse wraps a raw Bugzilla payload in MCP format.
// The payload is passed through byte for byte; the backend's JSON is the
// contract, so no re-marshaling or pretty-printing is applied.
func (m *DefaultResponseMapper) MapToToolResponse(payload json.RawMessage) (*ToolResponse, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	return &ToolResponse{
		Content: []ContentBlock{
			{
				Type: "text",
				Text: string(payload),
			},
		},
	}, nil
}

// MapError converts a client error to MCP error format.
// RequestError status codes map onto JSON-RPC error codes; transport-level
// failures collapse into NetworkError.
func (m *DefaultResponseMapper) MapError(err error) *Error {
	if err == nil {
		return nil
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return mapRequestError(reqErr)
	}

	// Already a domain Error (e.g. InvalidParams raised by the handler)
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr
	}

	return &Error{
		Code:    InternalError,
		Message: err.Error(),
	}
}

// mapRequestError maps a failed Bugzilla call to a JSON-RPC error.
func mapRequestError(reqErr *RequestError) *Error {
	code := APIError
	message := "Bugzilla request failed"

	switch {
	case reqErr.StatusCode == 0:
		// connection refused, timeout, malformed response
		code = NetworkError
		message = "Bugzilla request failed: network error"
	case reqErr.StatusCode == http.StatusUnauthorized,
		reqErr.StatusCode == http.StatusForbidden:
		code = AuthenticationError
		message = "Bugzilla rejected the API key"
	case reqErr.StatusCode >= 500:
		code = NetworkError
		message = "Bugzilla server error"
	}

	errorData := map[string]interface{}{
		"operation": reqErr.Op,
	}
	if reqErr.StatusCode != 0 {
		errorData["statusCode"] = reqErr.StatusCode
	}

	return &Error{
		Code:    code,
		Message: message,
		Data:    errorData,
	}
}
