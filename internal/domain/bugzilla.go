package domain

import (
	"encoding/json"
	"fmt"
)

// Tool names for the six Bugzilla operations. This catalog is fixed: the
// dispatcher rejects anything else before network I/O happens.
const (
	ToolGetBug         = "get_bug"
	ToolGetBugHistory  = "get_bug_history"
	ToolSearchBugs     = "search_bugs"
	ToolCreateBug      = "create_bug"
	ToolUpdateBug      = "update_bug"
	ToolGetBugComments = "get_bug_comments"
)

// NotFoundPayload is the result returned when a lookup-by-id operation
// receives a 404 from Bugzilla. A missing bug on a read is a normal
// outcome for callers, not a fault, so it travels as data.
var NotFoundPayload = json.RawMessage(`{"error": "Bug not found"}`)

// RequestError reports a failed Bugzilla call: any non-success status
// (including 404 where the not-found special case does not apply) or a
// transport-level failure. Status and body are kept for diagnostics and
// are not guaranteed to reach the caller verbatim.
type RequestError struct {
	Op         string // tool name, e.g. "create_bug"
	StatusCode int    // zero for transport-level failures
	Body       string // raw response body, if any
	Err        error  // underlying transport error, if any
}

// Error implements the error interface for RequestError.
func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: request failed with status %d", e.Op, e.StatusCode)
}

// Unwrap exposes the underlying transport error, if any.
func (e *RequestError) Unwrap() error {
	return e.Err
}
