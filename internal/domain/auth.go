package domain

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"
)

// Credential holds the static Bugzilla API key.
// Bugzilla authenticates REST calls via an api_key query parameter rather
// than an Authorization header.
type Credential struct {
	APIKey string
}

// NewCredential creates a Credential for the given API key.
func NewCredential(apiKey string) *Credential {
	return &Credential{APIKey: apiKey}
}

// Validate checks that the credential is usable.
func (c *Credential) Validate() error {
	if c == nil || c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	return nil
}

// NewAPIKeyClient returns an HTTP client whose transport appends the
// credential to every outbound request and enforces a bounded timeout.
// When insecureSkipVerify is set, TLS certificate verification is disabled.
func NewAPIKeyClient(cred *Credential, timeoutSeconds int, insecureSkipVerify bool) *http.Client {
	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultTimeoutSeconds
	}

	base := http.DefaultTransport
	if insecureSkipVerify {
		if t, ok := base.(*http.Transport); ok {
			t = t.Clone()
			t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
			base = t
		}
	}

	return &http.Client{
		Timeout: time.Duration(timeoutSeconds) * time.Second,
		Transport: &apiKeyTransport{
			base:       base,
			credential: cred,
		},
	}
}

// apiKeyTransport is an http.RoundTripper that forwards the credential as
// an api_key query parameter on every request. Centralizing this here
// guarantees no outbound call can omit it.
type apiKeyTransport struct {
	base       http.RoundTripper
	credential *Credential
}

// RoundTrip implements http.RoundTripper by adding the api_key parameter.
func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	clonedReq := req.Clone(req.Context())

	if t.credential != nil && t.credential.APIKey != "" {
		query := clonedReq.URL.Query()
		query.Set("api_key", t.credential.APIKey)
		clonedReq.URL.RawQuery = query.Encode()
	}

	return t.base.RoundTrip(clonedReq)
}
