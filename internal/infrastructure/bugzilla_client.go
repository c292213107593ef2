package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/nikhilsharma-dev/mcp-bugzilla/internal/domain"
)

// BugzillaClient handles Bugzilla REST API interactions.
// Each method performs exactly one HTTP round trip and classifies the
// outcome: success payloads are returned verbatim, a 404 on a
// lookup-by-id read becomes the not-found payload, and everything else
// becomes a RequestError. The injected http.Client is expected to carry
// the api_key credential and the request timeout.
type BugzillaClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewBugzillaClient creates a new Bugzilla API client.
// The baseURL should be the REST root of the Bugzilla instance
// (e.g., "https://bugzilla.example.com/rest").
func NewBugzillaClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *BugzillaClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BugzillaClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// BaseURL returns the configured base URL for the Bugzilla instance.
func (c *BugzillaClient) BaseURL() string {
	return c.baseURL
}

// Do executes an HTTP request with the common JSON headers.
func (c *BugzillaClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

// GetBugs retrieves one or more bugs by ID.
// bugIDs is a single ID or several joined by commas ("123" or "123,456").
// A 404 yields the not-found payload rather than an error.
func (c *BugzillaClient) GetBugs(ctx context.Context, bugIDs string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bug", c.baseURL)

	params := url.Values{}
	params.Set("id", bugIDs)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, c.transportError(domain.ToolGetBug, err)
	}
	defer resp.Body.Close()

	return c.classify(domain.ToolGetBug, resp, http.StatusOK, true)
}

// GetBugHistory retrieves the change history of a bug.
// newSince filters changes to those on or after the given YYYY-MM-DD date.
// A 404 yields the not-found payload rather than an error.
func (c *BugzillaClient) GetBugHistory(ctx context.Context, bugID, newSince string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bug/%s/history", c.baseURL, url.PathEscape(bugID))

	params := url.Values{}
	params.Set("new_since", newSince)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, c.transportError(domain.ToolGetBugHistory, err)
	}
	defer resp.Body.Close()

	return c.classify(domain.ToolGetBugHistory, resp, http.StatusOK, true)
}

// SearchBugs searches for bugs matching the given field criteria.
// Every field is forwarded to Bugzilla untouched; list values become
// repeated query parameters (logical OR within a field). Unlike the
// lookup-by-id reads, a 404 here is an error.
func (c *BugzillaClient) SearchBugs(ctx context.Context, query map[string]interface{}) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bug", c.baseURL)

	params := encodeQuery(query)
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, c.transportError(domain.ToolSearchBugs, err)
	}
	defer resp.Body.Close()

	return c.classify(domain.ToolSearchBugs, resp, http.StatusOK, false)
}

// CreateBug files a new bug. bugData is sent as the JSON body with no
// field stripping, so backend-specific and custom fields pass through.
// Bugzilla answers a successful create with 201; anything else, including
// a 200, is an error.
func (c *BugzillaClient) CreateBug(ctx context.Context, bugData map[string]interface{}) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bug", c.baseURL)

	body, err := json.Marshal(bugData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bug data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, c.transportError(domain.ToolCreateBug, err)
	}
	defer resp.Body.Close()

	return c.classify(domain.ToolCreateBug, resp, http.StatusCreated, false)
}

// UpdateBug modifies an existing bug. bugData is sent as the JSON body
// with no field stripping. A 404 here is an error, not the not-found
// payload.
func (c *BugzillaClient) UpdateBug(ctx context.Context, bugID string, bugData map[string]interface{}) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bug/%s", c.baseURL, url.PathEscape(bugID))

	body, err := json.Marshal(bugData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bug data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, c.transportError(domain.ToolUpdateBug, err)
	}
	defer resp.Body.Close()

	return c.classify(domain.ToolUpdateBug, resp, http.StatusOK, false)
}

// GetBugComments retrieves all comments on a bug. Comment 0 is the bug's
// initial description. A 404 yields the not-found payload rather than an
// error.
func (c *BugzillaClient) GetBugComments(ctx context.Context, bugID string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bug/%s/comment", c.baseURL, url.PathEscape(bugID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, c.transportError(domain.ToolGetBugComments, err)
	}
	defer resp.Body.Close()

	return c.classify(domain.ToolGetBugComments, resp, http.StatusOK, true)
}

// classify applies the uniform response policy: the expected status
// returns the body verbatim, a 404 on a lookup-by-id read returns the
// not-found payload, and any other status is a RequestError. The raw
// status and body are logged for diagnostics either way.
func (c *BugzillaClient) classify(op string, resp *http.Response, wantStatus int, notFoundAsData bool) (json.RawMessage, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(op, err)
	}

	if resp.StatusCode == wantStatus {
		if !json.Valid(body) {
			c.logger.Error("bugzilla returned malformed JSON",
				zap.String("operation", op),
				zap.Int("status", resp.StatusCode))
			return nil, &domain.RequestError{
				Op:         op,
				StatusCode: resp.StatusCode,
				Body:       string(body),
				Err:        fmt.Errorf("malformed response body"),
			}
		}
		return json.RawMessage(body), nil
	}

	if resp.StatusCode == http.StatusNotFound && notFoundAsData {
		c.logger.Info("bug not found", zap.String("operation", op))
		return domain.NotFoundPayload, nil
	}

	c.logger.Error("bugzilla request failed",
		zap.String("operation", op),
		zap.Int("status", resp.StatusCode),
		zap.String("body", string(body)))

	return nil, &domain.RequestError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}

// transportError wraps a connection-level failure (refused, timeout,
// unreadable body) in the same error class as a bad status.
func (c *BugzillaClient) transportError(op string, err error) error {
	c.logger.Error("bugzilla request failed",
		zap.String("operation", op),
		zap.Error(err))

	return &domain.RequestError{
		Op:  op,
		Err: err,
	}
}

// encodeQuery converts a search query mapping into URL query parameters.
// Lists become repeated parameters; scalars are stringified. Nested
// objects are not meaningful in Bugzilla search fields and are skipped.
func encodeQuery(query map[string]interface{}) url.Values {
	params := url.Values{}

	for key, value := range query {
		switch v := value.(type) {
		case []interface{}:
			for _, item := range v {
				params.Add(key, stringifyQueryValue(item))
			}
		case []string:
			for _, item := range v {
				params.Add(key, item)
			}
		case map[string]interface{}:
			continue
		default:
			params.Set(key, stringifyQueryValue(v))
		}
	}

	return params
}

// stringifyQueryValue renders a scalar query value the way Bugzilla
// expects it on the wire.
func stringifyQueryValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		// JSON numbers arrive as float64; render integers without decimals
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", v)
	}
}
