package application

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/nikhilsharma-dev/mcp-bugzilla/internal/domain"
	"github.com/nikhilsharma-dev/mcp-bugzilla/internal/infrastructure"
)

// setupMockBugzillaServer creates a mock Bugzilla backend for handler tests.
func setupMockBugzillaServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == "GET" && r.URL.Path == "/bug" && r.URL.Query().Get("id") == "123":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"bugs":[{"id":123,"summary":"x"}],"faults":[]}`))

		case r.Method == "GET" && r.URL.Path == "/bug" && r.URL.Query().Get("id") == "999":
			w.WriteHeader(http.StatusNotFound)

		case r.Method == "GET" && r.URL.Path == "/bug":
			// search
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"bugs":[{"id":7,"status":"NEW"}],"faults":[]}`))

		case r.Method == "GET" && r.URL.Path == "/bug/123/history":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"bugs":[{"id":123,"alias":[],"history":[]}]}`))

		case r.Method == "POST" && r.URL.Path == "/bug":
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":42}`))

		case r.Method == "PUT" && r.URL.Path == "/bug/123":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"bugs":[{"id":123,"alias":[],"last_change_time":"2024-01-02T00:00:00Z","changes":{}}]}`))

		case r.Method == "GET" && r.URL.Path == "/bug/123/comment":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"bugs":{"123":{"comments":[]}},"comments":{}}`))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// newTestHandler wires a handler against the given backend URL.
func newTestHandler(serverURL string) *BugzillaHandler {
	httpClient := domain.NewAPIKeyClient(domain.NewCredential("test-key"), 0, false)
	client := infrastructure.NewBugzillaClient(serverURL, httpClient, zap.NewNop())
	return NewBugzillaHandler(client, domain.NewResponseMapper())
}

// contentText extracts the single text block from a tool response.
func contentText(t *testing.T, resp *domain.ToolResponse) string {
	t.Helper()
	if resp == nil || len(resp.Content) != 1 {
		t.Fatalf("response = %+v, want exactly one content block", resp)
	}
	return resp.Content[0].Text
}

func TestListTools_FullCatalog(t *testing.T) {
	handler := newTestHandler("http://unused")
	tools := handler.ListTools()

	want := []string{
		domain.ToolGetBug,
		domain.ToolGetBugHistory,
		domain.ToolSearchBugs,
		domain.ToolCreateBug,
		domain.ToolUpdateBug,
		domain.ToolGetBugComments,
	}

	if len(tools) != len(want) {
		t.Fatalf("len(tools) = %d, want %d", len(tools), len(want))
	}

	for i, name := range want {
		if tools[i].Name != name {
			t.Errorf("tools[%d].Name = %s, want %s", i, tools[i].Name, name)
		}
		if tools[i].Description == "" {
			t.Errorf("tools[%d] has no description", i)
		}
		if tools[i].InputSchema.Type != "object" {
			t.Errorf("tools[%d].InputSchema.Type = %s, want object", i, tools[i].InputSchema.Type)
		}
	}
}

func TestHandle_GetBug_Success(t *testing.T) {
	server := setupMockBugzillaServer()
	defer server.Close()

	handler := newTestHandler(server.URL)

	resp, err := handler.Handle(context.Background(), &domain.ToolRequest{
		Name:      domain.ToolGetBug,
		Arguments: map[string]interface{}{"bug_ids": "123"},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if got := contentText(t, resp); got != `{"bugs":[{"id":123,"summary":"x"}],"faults":[]}` {
		t.Errorf("payload = %s, want backend body unchanged", got)
	}
}

func TestHandle_GetBug_NotFoundIsResult(t *testing.T) {
	server := setupMockBugzillaServer()
	defer server.Close()

	handler := newTestHandler(server.URL)

	resp, err := handler.Handle(context.Background(), &domain.ToolRequest{
		Name:      domain.ToolGetBug,
		Arguments: map[string]interface{}{"bug_ids": "999"},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v, want not-found as a normal result", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(contentText(t, resp)), &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded["error"] != "Bug not found" {
		t.Errorf("payload = %v, want not-found marker", decoded)
	}
}

func TestHandle_GetBug_MissingParam(t *testing.T) {
	// Any network call would be a bug here: validation happens first
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend was contacted before argument validation")
	}))
	defer server.Close()

	handler := newTestHandler(server.URL)

	_, err := handler.Handle(context.Background(), &domain.ToolRequest{
		Name:      domain.ToolGetBug,
		Arguments: map[string]interface{}{},
	})
	assertInvalidParams(t, err, "bug_ids")
}

func TestHandle_GetBug_WrongParamType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend was contacted before argument validation")
	}))
	defer server.Close()

	handler := newTestHandler(server.URL)

	_, err := handler.Handle(context.Background(), &domain.ToolRequest{
		Name:      domain.ToolGetBug,
		Arguments: map[string]interface{}{"bug_ids": 123},
	})
	assertInvalidParams(t, err, "bug_ids")
}

func TestHandle_GetBugHistory_DefaultNewSince(t *testing.T) {
	var capturedNewSince string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedNewSince = r.URL.Query().Get("new_since")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"bugs":[]}`))
	}))
	defer server.Close()

	handler := newTestHandler(server.URL)

	_, err := handler.Handle(context.Background(), &domain.ToolRequest{
		Name:      domain.ToolGetBugHistory,
		Arguments: map[string]interface{}{"bug_id": "123"},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if capturedNewSince != "1970-01-01" {
		t.Errorf("new_since = %q, want default 1970-01-01", capturedNewSince)
	}
}

func TestHandle_GetBugHistory_ExplicitNewSince(t *testing.T) {
	var capturedNewSince string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedNewSince = r.URL.Query().Get("new_since")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"bugs":[]}`))
	}))
	defer server.Close()

	handler := newTestHandler(server.URL)

	_, err := handler.Handle(context.Background(), &domain.ToolRequest{
		Name: domain.ToolGetBugHistory,
		Arguments: map[string]interface{}{
			"bug_id":    "123",
			"new_since": "2023-01-01",
		},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if capturedNewSince != "2023-01-01" {
		t.Errorf("new_since = %q, want 2023-01-01", capturedNewSince)
	}
}

func TestHandle_SearchBugs_Success(t *testing.T) {
	server := setupMockBugzillaServer()
	defer server.Close()

	handler := newTestHandler(server.URL)

	resp, err := handler.Handle(context.Background(), &domain.ToolRequest{
		Name: domain.ToolSearchBugs,
		Arguments: map[string]interface{}{
			"query": map[string]interface{}{"status": "NEW"},
		},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if !strings.Contains(contentText(t, resp), `"status":"NEW"`) {
		t.Errorf("payload = %s, want search results", contentText(t, resp))
	}
}

func TestHandle_SearchBugs_QueryMustBeObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend was contacted before argument validation")
	}))
	defer server.Close()

	handler := newTestHandler(server.URL)

	_, err := handler.Handle(context.Background(), &domain.ToolRequest{
		Name:      domain.ToolSearchBugs,
		Arguments: map[string]interface{}{"query": "status=NEW"},
	})
	assertInvalidParams(t, err, "query")
}

func TestHandle_CreateBug_Success(t *testing.T) {
	server := setupMockBugzillaServer()
	defer server.Close()

	handler := newTestHandler(server.URL)

	resp, err := handler.Handle(context.Background(), &domain.ToolRequest{
		Name: domain.ToolCreateBug,
		Arguments: map[string]interface{}{
			"bug_data": map[string]interface{}{
				"product":   "P",
				"component": "C",
				"summary":   "S",
				"version":   "1.0",
			},
		},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if got := contentText(t, resp); got != `{"id":42}` {
		t.Errorf("payload = %s, want {\"id\":42}", got)
	}
}

func TestHandle_CreateBug_MissingMandatoryField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend was contacted before argument validation")
	}))
	defer server.Close()

	handler := newTestHandler(server.URL)

	// version is missing
	_, err := handler.Handle(context.Background(), &domain.ToolRequest{
		Name: domain.ToolCreateBug,
		Arguments: map[string]interface{}{
			"bug_data": map[string]interface{}{
				"product":   "P",
				"component": "C",
				"summary":   "S",
			},
		},
	})
	assertInvalidParams(t, err, "version")
}

func TestHandle_CreateBug_ExtraFieldsPassThrough(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":42}`))
	}))
	defer server.Close()

	handler := newTestHandler(server.URL)

	_, err := handler.Handle(context.Background(), &domain.ToolRequest{
		Name: domain.ToolCreateBug,
		Arguments: map[string]interface{}{
			"bug_data": map[string]interface{}{
				"product":      "P",
				"component":    "C",
				"summary":      "S",
				"version":      "1.0",
				"cf_build_id":  "20240101",
				"severity":     "critical",
			},
		},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if captured["cf_build_id"] != "20240101" {
		t.Errorf("custom field was stripped: %v", captured)
	}
	if captured["severity"] != "critical" {
		t.Errorf("severity was stripped: %v", captured)
	}
}

func TestHandle_UpdateBug_Success(t *testing.T) {
	server := setupMockBugzillaServer()
	defer server.Close()

	handler := newTestHandler(server.URL)

	resp, err := handler.Handle(context.Background(), &domain.ToolRequest{
		Name: domain.ToolUpdateBug,
		Arguments: map[string]interface{}{
			"bug_id":   "123",
			"bug_data": map[string]interface{}{"status": "RESOLVED"},
		},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if !strings.Contains(contentText(t, resp), `"last_change_time"`) {
		t.Errorf("payload = %s, want update result", contentText(t, resp))
	}
}

func TestHandle_UpdateBug_MissingBugData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend was contacted before argument validation")
	}))
	defer server.Close()

	handler := newTestHandler(server.URL)

	_, err := handler.Handle(context.Background(), &domain.ToolRequest{
		Name:      domain.ToolUpdateBug,
		Arguments: map[string]interface{}{"bug_id": "123"},
	})
	assertInvalidParams(t, err, "bug_data")
}

func TestHandle_GetBugComments_Success(t *testing.T) {
	server := setupMockBugzillaServer()
	defer server.Close()

	handler := newTestHandler(server.URL)

	resp, err := handler.Handle(context.Background(), &domain.ToolRequest{
		Name:      domain.ToolGetBugComments,
		Arguments: map[string]interface{}{"bug_id": "123"},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if !strings.Contains(contentText(t, resp), `"comments"`) {
		t.Errorf("payload = %s, want comments result", contentText(t, resp))
	}
}

func TestHandle_UnknownTool(t *testing.T) {
	handler := newTestHandler("http://unused")

	_, err := handler.Handle(context.Background(), &domain.ToolRequest{
		Name: "delete_bug",
	})
	if err == nil {
		t.Fatal("Handle() error = nil, want unknown tool error")
	}

	domainErr, ok := err.(*domain.Error)
	if !ok {
		t.Fatalf("error = %T, want *domain.Error", err)
	}
	if domainErr.Code != domain.MethodNotFound {
		t.Errorf("Code = %d, want MethodNotFound", domainErr.Code)
	}
}

func TestHandle_NilArguments(t *testing.T) {
	handler := newTestHandler("http://unused")

	_, err := handler.Handle(context.Background(), &domain.ToolRequest{
		Name:      domain.ToolGetBug,
		Arguments: nil,
	})
	assertInvalidParams(t, err, "bug_ids")
}

// assertInvalidParams verifies an InvalidParams error naming the field.
func assertInvalidParams(t *testing.T, err error, field string) {
	t.Helper()

	if err == nil {
		t.Fatal("error = nil, want InvalidParams")
	}

	domainErr, ok := err.(*domain.Error)
	if !ok {
		t.Fatalf("error = %T (%v), want *domain.Error", err, err)
	}
	if domainErr.Code != domain.InvalidParams {
		t.Errorf("Code = %d, want InvalidParams", domainErr.Code)
	}
	if !strings.Contains(domainErr.Message, field) {
		t.Errorf("Message = %q, want mention of %q", domainErr.Message, field)
	}
}
