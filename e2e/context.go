// Package e2e drives a running startingline server through its HTTP API with
// godog scenarios. Start the server with the in-memory stores (no
// DATABASE_URL) so the demo catalog is loaded, then run:
//
//	STARTINGLINE_URL=http://localhost:8080 go test ./...
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TestContext carries HTTP state between the steps of one scenario.
type TestContext struct {
	baseURL string
	client  *http.Client

	status  int
	headers http.Header
	body    []byte

	runID      string
	email      string
	token      string
	remembered map[string]string
}

func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Reset clears per-scenario state and picks a fresh run id so scenarios never
// share accounts or idempotency keys.
func (tc *TestContext) Reset() {
	tc.status = 0
	tc.headers = nil
	tc.body = nil
	tc.email = ""
	tc.token = ""
	tc.remembered = map[string]string{}
	tc.runID = strconv.FormatInt(time.Now().UnixNano(), 36)
}

func (tc *TestContext) RunID() string { return tc.runID }

func (tc *TestContext) Email() string         { return tc.email }
func (tc *TestContext) SetEmail(email string) { tc.email = email }

func (tc *TestContext) Token() string         { return tc.token }
func (tc *TestContext) SetToken(token string) { tc.token = token }

func (tc *TestContext) Remember(name, value string) { tc.remembered[name] = value }

func (tc *TestContext) Recall(name string) (string, bool) {
	v, ok := tc.remembered[name]
	return v, ok
}

func (tc *TestContext) POST(path string, body any, headers map[string]string) error {
	return tc.do(http.MethodPost, path, body, headers)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.body, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	tc.status = resp.StatusCode
	tc.headers = resp.Header
	return nil
}

func (tc *TestContext) Status() int { return tc.status }

func (tc *TestContext) Body() string { return string(tc.body) }

func (tc *TestContext) Header(name string) string {
	if tc.headers == nil {
		return ""
	}
	return tc.headers.Get(name)
}

// ResponseField walks a dotted path through the JSON response, e.g.
// "data.tickets.0.amount".
func (tc *TestContext) ResponseField(path string) (any, error) {
	var current any
	if err := json.Unmarshal(tc.body, &current); err != nil {
		return nil, fmt.Errorf("response is not JSON: %s", tc.body)
	}
	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found in %s", path, tc.body)
			}
			current = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %s", part, path)
			}
			current = node[i]
		default:
			return nil, fmt.Errorf("field %q not found in %s", path, tc.body)
		}
	}
	return current, nil
}
