// Package e2e drives a running contribution-metrics server through its HTTP
// API with godog scenarios. Set E2E_BASE_URL to target a deployment other than
// http://localhost:3000.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TestContext carries one scenario's HTTP state.
type TestContext struct {
	baseURL    string
	adminToken string
	client     *http.Client

	status int
	body   []byte
	values map[string]string
}

// NewTestContext reads the target from the environment.
func NewTestContext() *TestContext {
	base := os.Getenv("E2E_BASE_URL")
	if base == "" {
		base = "http://localhost:3000"
	}
	return &TestContext{
		baseURL:    strings.TrimSuffix(base, "/"),
		adminToken: os.Getenv("E2E_ADMIN_TOKEN"),
		client:     &http.Client{Timeout: 30 * time.Second},
		values:     map[string]string{"run": uuid.NewString()[:8]},
	}
}

// Reset clears response state and remembered values between scenarios. Each
// scenario gets a fresh {run} suffix so names stay unique on a shared server.
func (tc *TestContext) Reset() {
	tc.status = 0
	tc.body = nil
	tc.values = map[string]string{"run": uuid.NewString()[:8]}
}

func (tc *TestContext) GET(ctx context.Context, path string) error {
	return tc.do(ctx, http.MethodGet, path, nil)
}

func (tc *TestContext) POST(ctx context.Context, path string, body any) error {
	return tc.do(ctx, http.MethodPost, path, body)
}

func (tc *TestContext) PUT(ctx context.Context, path string, body any) error {
	return tc.do(ctx, http.MethodPut, path, body)
}

func (tc *TestContext) DELETE(ctx context.Context, path string) error {
	return tc.do(ctx, http.MethodDelete, path, nil)
}

func (tc *TestContext) do(ctx context.Context, method, path string, body any) error {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(tc.Expand(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, tc.baseURL+tc.Expand(path), reader)
	if err != nil {
		return err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.adminToken != "" {
		req.Header.Set("X-Admin-Token", tc.adminToken)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.status = resp.StatusCode
	tc.body, err = io.ReadAll(resp.Body)
	return err
}

// Status returns the last response status code.
func (tc *TestContext) Status() int {
	return tc.status
}

// Body returns the last response body.
func (tc *TestContext) Body() []byte {
	return tc.body
}

// GetResponseField resolves a dotted path such as "data.0.currentUsername"
// against the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var doc any
	if err := json.Unmarshal(tc.body, &doc); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w (body: %s)", err, tc.body)
	}
	cur := doc
	for _, part := range strings.Split(field, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found in %s", field, tc.body)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range for %q", part, field)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %q of %q", part, field)
		}
	}
	return cur, nil
}

// Remember stores a value for later {name} substitution.
func (tc *TestContext) Remember(name, value string) {
	tc.values[name] = value
}

// Expand replaces {name} placeholders with remembered values.
func (tc *TestContext) Expand(s string) string {
	for k, v := range tc.values {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}
