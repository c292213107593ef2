package application

import (
	"context"
	"fmt"

	"github.com/nikhilsharma-dev/mcp-bugzilla/internal/domain"
	"github.com/nikhilsharma-dev/mcp-bugzilla/internal/infrastructure"
)

// defaultNewSince is the history cutoff used when new_since is omitted,
// effectively returning the full history.
const defaultNewSince = "1970-01-01"

// BugzillaHandler implements ToolHandler for the six Bugzilla operations.
// It validates arguments against the declared schemas before any network
// I/O, routes to the matching BugzillaClient method, and relays the
// backend payload verbatim through the ResponseMapper.
type BugzillaHandler struct {
	client *infrastructure.BugzillaClient
	mapper domain.ResponseMapper
}

// NewBugzillaHandler creates a new BugzillaHandler instance.
func NewBugzillaHandler(client *infrastructure.BugzillaClient, mapper domain.ResponseMapper) *BugzillaHandler {
	return &BugzillaHandler{
		client: client,
		mapper: mapper,
	}
}

// ListTools returns the fixed catalog of Bugzilla tools.
func (h *BugzillaHandler) ListTools() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        domain.ToolGetBug,
			Description: "Get details about particular bugs in Bugzilla by ID",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"bug_ids": map[string]interface{}{
						"type":        "string",
						"description": "A single bug ID, or several joined by commas (e.g., '123456' or '123456,789012')",
					},
				},
				Required: []string{"bug_ids"},
			},
		},
		{
			Name:        domain.ToolGetBugHistory,
			Description: "Get the change history of a bug in Bugzilla",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"bug_id": map[string]interface{}{
						"type":        "string",
						"description": "The ID of the bug to fetch history for",
					},
					"new_since": map[string]interface{}{
						"type":        "string",
						"description": "Only return changes on or after this date (YYYY-MM-DD, optional)",
					},
				},
				Required: []string{"bug_id"},
			},
		},
		{
			Name:        domain.ToolSearchBugs,
			Description: "Search for bugs in Bugzilla by field criteria (e.g., status, product, assigned_to). All fields are combined with logical AND; list values within a field match with logical OR",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "object",
						"description": "Mapping of Bugzilla search fields to values or lists of values (e.g., {\"status\": \"NEW\", \"product\": \"MyProduct\"})",
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        domain.ToolCreateBug,
			Description: "Create a new bug in Bugzilla. bug_data must contain product, component, summary, and version; any other backend-recognized or custom field passes through",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"bug_data": map[string]interface{}{
						"type":        "object",
						"description": "Fields for the new bug; product, component, summary, and version are required",
					},
				},
				Required: []string{"bug_data"},
			},
		},
		{
			Name:        domain.ToolUpdateBug,
			Description: "Update an existing bug in Bugzilla. bug_data holds the fields to change and is forwarded without modification",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"bug_id": map[string]interface{}{
						"type":        "string",
						"description": "The ID or alias of the bug to update",
					},
					"bug_data": map[string]interface{}{
						"type":        "object",
						"description": "Mapping of fields to change (e.g., {\"status\": \"RESOLVED\", \"resolution\": \"FIXED\"})",
					},
				},
				Required: []string{"bug_id", "bug_data"},
			},
		},
		{
			Name:        domain.ToolGetBugComments,
			Description: "Get all comments on a bug in Bugzilla; comment 0 is the initial description",
			InputSchema: domain.JSONSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"bug_id": map[string]interface{}{
						"type":        "string",
						"description": "The ID of the bug to fetch comments for",
					},
				},
				Required: []string{"bug_id"},
			},
		},
	}
}

// Handle processes an MCP tool call request for Bugzilla operations.
func (h *BugzillaHandler) Handle(ctx context.Context, req *domain.ToolRequest) (*domain.ToolResponse, error) {
	if req.Arguments == nil {
		req.Arguments = make(map[string]interface{})
	}

	switch req.Name {
	case domain.ToolGetBug:
		return h.handleGetBug(ctx, req.Arguments)
	case domain.ToolGetBugHistory:
		return h.handleGetBugHistory(ctx, req.Arguments)
	case domain.ToolSearchBugs:
		return h.handleSearchBugs(ctx, req.Arguments)
	case domain.ToolCreateBug:
		return h.handleCreateBug(ctx, req.Arguments)
	case domain.ToolUpdateBug:
		return h.handleUpdateBug(ctx, req.Arguments)
	case domain.ToolGetBugComments:
		return h.handleGetBugComments(ctx, req.Arguments)
	default:
		return nil, &domain.Error{
			Code:    domain.MethodNotFound,
			Message: fmt.Sprintf("unknown tool: %s", req.Name),
		}
	}
}

// handleGetBug handles the get_bug tool call.
func (h *BugzillaHandler) handleGetBug(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	bugIDs, err := getStringParam(args, "bug_ids", true)
	if err != nil {
		return nil, err
	}

	payload, err := h.client.GetBugs(ctx, bugIDs)
	if err != nil {
		return nil, h.mapper.MapError(err)
	}

	return h.mapper.MapToToolResponse(payload)
}

// handleGetBugHistory handles the get_bug_history tool call.
func (h *BugzillaHandler) handleGetBugHistory(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	bugID, err := getStringParam(args, "bug_id", true)
	if err != nil {
		return nil, err
	}

	newSince, err := getStringParamDefault(args, "new_since", defaultNewSince)
	if err != nil {
		return nil, err
	}

	payload, err := h.client.GetBugHistory(ctx, bugID, newSince)
	if err != nil {
		return nil, h.mapper.MapError(err)
	}

	return h.mapper.MapToToolResponse(payload)
}

// handleSearchBugs handles the search_bugs tool call.
func (h *BugzillaHandler) handleSearchBugs(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	query, err := getObjectParam(args, "query", true)
	if err != nil {
		return nil, err
	}

	payload, err := h.client.SearchBugs(ctx, query)
	if err != nil {
		return nil, h.mapper.MapError(err)
	}

	return h.mapper.MapToToolResponse(payload)
}

// handleCreateBug handles the create_bug tool call.
// Presence of the four mandatory Bugzilla fields is checked here so the
// call fails before any network I/O; their values are not interpreted.
func (h *BugzillaHandler) handleCreateBug(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	bugData, err := getObjectParam(args, "bug_data", true)
	if err != nil {
		return nil, err
	}

	if err := requireObjectKeys(bugData, "bug_data", "product", "component", "summary", "version"); err != nil {
		return nil, err
	}

	payload, err := h.client.CreateBug(ctx, bugData)
	if err != nil {
		return nil, h.mapper.MapError(err)
	}

	return h.mapper.MapToToolResponse(payload)
}

// handleUpdateBug handles the update_bug tool call.
func (h *BugzillaHandler) handleUpdateBug(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	bugID, err := getStringParam(args, "bug_id", true)
	if err != nil {
		return nil, err
	}

	bugData, err := getObjectParam(args, "bug_data", true)
	if err != nil {
		return nil, err
	}

	payload, err := h.client.UpdateBug(ctx, bugID, bugData)
	if err != nil {
		return nil, h.mapper.MapError(err)
	}

	return h.mapper.MapToToolResponse(payload)
}

// handleGetBugComments handles the get_bug_comments tool call.
func (h *BugzillaHandler) handleGetBugComments(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	bugID, err := getStringParam(args, "bug_id", true)
	if err != nil {
		return nil, err
	}

	payload, err := h.client.GetBugComments(ctx, bugID)
	if err != nil {
		return nil, h.mapper.MapError(err)
	}

	return h.mapper.MapToToolResponse(payload)
}
