package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenSource yields the bearer credential attached to outgoing requests.
// An empty string means the request goes out unauthenticated; the server's
// 401 then surfaces as a normal APIError. The onboarding session token is
// NOT a TokenSource — it travels in request bodies and query strings only.
type TokenSource interface {
	Get() string
}

// Client is a thin JSON client over the BlueCone HTTP API.
type Client struct {
	baseURL string
	httpc   *http.Client
	bearer  TokenSource
}

// New builds a client for baseURL. bearer may be nil for endpoints that are
// never header-authenticated (the onboarding API).
func New(baseURL string, bearer TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
		bearer:  bearer,
	}
}

// WithHTTPClient overrides the underlying http.Client (tests, custom timeouts).
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpc = h
	return c
}

// APIError is a non-success HTTP response. Message is the server's body text
// when it sent one, otherwise a synthesized path+status line.
type APIError struct {
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Payload is a successful response body. Callers must not assume JSON
// without checking: some admin endpoints answer with plain text.
type Payload struct {
	raw    []byte
	isJSON bool
}

// IsJSON reports whether the response declared application/json.
func (p *Payload) IsJSON() bool { return p.isJSON }

// Text returns the raw body as text.
func (p *Payload) Text() string { return string(p.raw) }

// Decode unmarshals a JSON payload into v.
func (p *Payload) Decode(v any) error {
	if !p.isJSON {
		return fmt.Errorf("response is not JSON")
	}
	return json.Unmarshal(p.raw, v)
}

// List normalizes a list-shaped payload, see NormalizeList.
func (p *Payload) List() []json.RawMessage {
	if !p.isJSON {
		return []json.RawMessage{}
	}
	return NormalizeList(p.raw)
}

// NextCursor extracts the pagination cursor from the raw response envelope.
// nil means the envelope carried none (bare array or exhausted feed).
func (p *Payload) NextCursor() *string {
	if !p.isJSON {
		return nil
	}
	var env struct {
		NextCursor *string `json:"nextCursor"`
	}
	if err := json.Unmarshal(p.raw, &env); err != nil {
		return nil
	}
	if env.NextCursor != nil && *env.NextCursor == "" {
		return nil
	}
	return env.NextCursor
}

// Get issues a GET without a body.
func (c *Client) Get(ctx context.Context, path string) (*Payload, error) {
	return c.Request(ctx, http.MethodGet, path, nil)
}

// Post issues a POST; body may be nil for action endpoints.
func (c *Client) Post(ctx context.Context, path string, body any) (*Payload, error) {
	return c.Request(ctx, http.MethodPost, path, body)
}

// Request performs one HTTP call. A nil body sends no body at all, which is
// distinct from an empty JSON object. Failures are never retried here.
func (c *Client) Request(ctx context.Context, method, path string, body any) (*Payload, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != nil {
		if token := c.bearer.Get(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := strings.TrimSpace(string(data))
		if message == "" {
			message = fmt.Sprintf("请求 %s 失败(%d)", path, resp.StatusCode)
		}
		return nil, &APIError{Path: path, Status: resp.StatusCode, Message: message}
	}

	ctype := resp.Header.Get("Content-Type")
	return &Payload{raw: data, isJSON: strings.Contains(ctype, "application/json")}, nil
}

// NormalizeList extracts the array from a list-shaped payload. The admin
// controllers are not uniform: some return a bare array, others wrap it in
// items, data or records. That priority order is a contract; the first
// array-valued candidate wins and a non-match yields an empty sequence.
func NormalizeList(raw json.RawMessage) []json.RawMessage {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		if arr == nil {
			return []json.RawMessage{}
		}
		return arr
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return []json.RawMessage{}
	}
	for _, key := range []string{"items", "data", "records"} {
		value, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, &arr); err == nil && arr != nil {
			return arr
		}
	}
	return []json.RawMessage{}
}

// DecodeList normalizes and unmarshals every element into T, skipping none:
// a malformed element fails the whole call so partial rows never render.
func DecodeList[T any](p *Payload) ([]T, error) {
	rawItems := p.List()
	out := make([]T, 0, len(rawItems))
	for _, raw := range rawItems {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("decode list item: %w", err)
		}
		out = append(out, item)
	}
	return out, nil
}
