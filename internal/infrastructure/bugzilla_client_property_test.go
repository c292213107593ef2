package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: REST request validity.
//
// For any bug ID, each lookup operation must issue a GET against the
// documented Bugzilla path with the api_key credential present in the
// query string. No outbound request may omit the credential.
func TestProperty_RequestValidity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Generator for numeric bug IDs as Bugzilla uses them
	genBugID := gen.IntRange(1, 9999999).Map(func(n int) string {
		return fmt.Sprintf("%d", n)
	})

	properties.Property("GetBugs issues GET /bug with id and api_key", prop.ForAll(
		func(bugID string) bool {
			var capturedReq *http.Request
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedReq = r
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"bugs":[],"faults":[]}`))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			if _, err := client.GetBugs(context.Background(), bugID); err != nil {
				return false
			}

			return capturedReq.Method == http.MethodGet &&
				capturedReq.URL.Path == "/bug" &&
				capturedReq.URL.Query().Get("id") == bugID &&
				capturedReq.URL.Query().Get("api_key") == testAPIKey
		},
		genBugID,
	))

	properties.Property("GetBugHistory issues GET /bug/{id}/history with api_key", prop.ForAll(
		func(bugID string) bool {
			var capturedReq *http.Request
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedReq = r
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"bugs":[]}`))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			if _, err := client.GetBugHistory(context.Background(), bugID, "1970-01-01"); err != nil {
				return false
			}

			return capturedReq.Method == http.MethodGet &&
				capturedReq.URL.Path == fmt.Sprintf("/bug/%s/history", bugID) &&
				capturedReq.URL.Query().Get("api_key") == testAPIKey
		},
		genBugID,
	))

	properties.Property("GetBugComments issues GET /bug/{id}/comment with api_key", prop.ForAll(
		func(bugID string) bool {
			var capturedReq *http.Request
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedReq = r
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"bugs":{},"comments":{}}`))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			if _, err := client.GetBugComments(context.Background(), bugID); err != nil {
				return false
			}

			return capturedReq.Method == http.MethodGet &&
				capturedReq.URL.Path == fmt.Sprintf("/bug/%s/comment", bugID) &&
				capturedReq.URL.Query().Get("api_key") == testAPIKey
		},
		genBugID,
	))

	properties.TestingRun(t)
}

// Property: pass-through fidelity.
//
// Whatever JSON object the backend returns with a success status must
// come back from the client byte for byte.
func TestProperty_PayloadPassThrough(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Generator for arbitrary flat JSON objects
	genPayload := gen.MapOf(gen.Identifier(), gen.AlphaString()).Map(func(m map[string]string) string {
		data, _ := json.Marshal(m)
		return string(data)
	})

	properties.Property("GetBugs returns the backend body unchanged", prop.ForAll(
		func(body string) bool {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			payload, err := client.GetBugs(context.Background(), "123")
			if err != nil {
				return false
			}
			return string(payload) == body
		},
		genPayload,
	))

	// Property: update_bug sends bug_data without field stripping
	properties.Property("UpdateBug request body equals bug_data", prop.ForAll(
		func(m map[string]string) bool {
			bugData := make(map[string]interface{}, len(m))
			for k, v := range m {
				bugData[k] = v
			}

			var captured map[string]interface{}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&captured)
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"bugs":[]}`))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			if _, err := client.UpdateBug(context.Background(), "123", bugData); err != nil {
				return false
			}

			if len(captured) != len(bugData) {
				return false
			}
			for k, v := range bugData {
				if captured[k] != v {
					return false
				}
			}
			return true
		},
		gen.MapOf(gen.Identifier(), gen.AlphaString()),
	))

	properties.TestingRun(t)
}
