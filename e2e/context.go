//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"credreg/internal/platform/config"
	"credreg/internal/registry/gate/jwtproof"
	"credreg/pkg/domain"
	"credreg/pkg/platform/middleware/caller"
)

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte
	Admin            domain.Identity

	proofs     *jwtproof.Service
	recipients map[string]domain.Identity
	lastIssued domain.CredentialID
	savedCount uint64
}

// NewTestContext creates a new test context
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL: envOr("BASE_URL", "http://localhost:8080"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		Admin: domain.Identity(envOr("E2E_ADMIN", "GADMIN")),
		proofs: jwtproof.New(
			envOr("PROOF_SIGNING_KEY", config.DevProofSigningKey),
			envOr("PROOF_ISSUER", "credreg"),
			time.Minute,
		),
		recipients: make(map[string]domain.Identity),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Recipient maps a scenario alias to an identity unique to this run, so
// scenarios do not see each other's credentials on a shared server.
func (tc *TestContext) Recipient(alias string) domain.Identity {
	if id, ok := tc.recipients[alias]; ok {
		return id
	}
	id := domain.Identity(fmt.Sprintf("G%s-%s", strings.ToUpper(alias), uuid.NewString()[:8]))
	tc.recipients[alias] = id
	return id
}

// Identity resolves "admin" to the registry admin and anything else to a
// scenario-unique identity.
func (tc *TestContext) Identity(alias string) domain.Identity {
	if alias == "admin" {
		return tc.Admin
	}
	return tc.Recipient(alias)
}

// CallerHeaders builds identity and proof headers for identity.
func (tc *TestContext) CallerHeaders(identity domain.Identity) (map[string]string, error) {
	proof, err := tc.proofs.Mint(context.Background(), identity)
	if err != nil {
		return nil, fmt.Errorf("mint proof: %w", err)
	}
	return map[string]string{
		caller.IdentityHeader: identity.String(),
		"Authorization":       "Bearer " + proof,
	}, nil
}

// POST makes a POST request and stores the response
func (tc *TestContext) POST(path string, body any) error {
	return tc.POSTWithHeaders(path, body, nil)
}

// POSTWithHeaders makes a POST request with optional headers
func (tc *TestContext) POSTWithHeaders(path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	return tc.do(http.MethodPost, path, reader, headers)
}

// GET makes a GET request and stores the response
func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body io.Reader, headers map[string]string) error {
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a field from the JSON response
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response", field)
	}
	return value, nil
}

// ResponseContains checks if the response body contains a field or text
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err == nil {
		if _, ok := data[text]; ok {
			return true
		}
	}
	return false
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}

func (tc *TestContext) LastIssued() domain.CredentialID      { return tc.lastIssued }
func (tc *TestContext) SetLastIssued(id domain.CredentialID) { tc.lastIssued = id }
func (tc *TestContext) SavedCount() uint64                   { return tc.savedCount }
func (tc *TestContext) SetSavedCount(n uint64)               { tc.savedCount = n }
