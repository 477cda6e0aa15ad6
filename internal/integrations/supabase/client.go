package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"amli-assistant/internal/domain"
)

const defaultFunction = "search_certificate"

// searchRequest is the RPC payload; field names match the database function
// arguments.
type searchRequest struct {
	EnrollmentNo string `json:"enrollment_no"`
	PassKey      string `json:"pass_key"`
}

// KeySource yields the service API key.
type KeySource interface {
	Value(ctx context.Context) (string, error)
}

// StatusError captures non-2xx responses from the RPC endpoint.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("supabase: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client calls a Supabase RPC function that returns certificate records.
type Client struct {
	baseURL    string
	function   string
	keys       KeySource
	httpClient *http.Client
}

type Option func(*Client)

func WithFunction(name string) Option {
	return func(c *Client) {
		if name = strings.TrimSpace(name); name != "" {
			c.function = name
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL string, keys KeySource, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("supabase: base URL must not be empty")
	}
	if keys == nil {
		return nil, errors.New("supabase: key source must not be nil")
	}
	c := &Client{
		baseURL:    baseURL,
		function:   defaultFunction,
		keys:       keys,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func rpcURL(baseURL, function string) string {
	return strings.TrimRight(baseURL, "/") + "/rest/v1/rpc/" + function
}

// Search posts the enrollment number and pass key to the RPC function and
// decodes the returned array of records.
func (c *Client) Search(ctx context.Context, enrollmentNo, passKey string) ([]domain.Document, error) {
	apiKey, err := c.keys.Value(ctx)
	if err != nil {
		return nil, fmt.Errorf("supabase: Search: resolve key: %w", err)
	}

	body, err := json.Marshal(searchRequest{EnrollmentNo: enrollmentNo, PassKey: passKey})
	if err != nil {
		return nil, fmt.Errorf("supabase: Search: marshal request: %w", err)
	}

	url := rpcURL(c.baseURL, c.function)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("supabase: Search: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", apiKey)
	req.Header.Set("Authorization", "Bearer "+apiKey)

	raw, err := c.do(req, url)
	if err != nil {
		return nil, fmt.Errorf("supabase: Search: %w", err)
	}
	return decodeDocuments(raw)
}

func (c *Client) do(req *http.Request, url string) ([]byte, error) {
	httpClient := c.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	res, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &StatusError{StatusCode: res.StatusCode, URL: url, Body: string(buf)}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

func decodeDocuments(raw []byte) ([]domain.Document, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("supabase: decode response: invalid JSON")
	}
	result := gjson.ParseBytes(raw)
	if !result.IsArray() {
		return nil, errors.New("supabase: decode response: expected a JSON array")
	}

	records := result.Array()
	docs := make([]domain.Document, 0, len(records))
	for i, rec := range records {
		if !rec.IsObject() {
			return nil, fmt.Errorf("supabase: decode response: record %d is not an object", i)
		}
		fields, _ := rec.Value().(map[string]any)
		delete(fields, "pass_key")
		docs = append(docs, domain.Document{
			Name:    rec.Get("name").String(),
			Course:  rec.Get("course").String(),
			Status:  rec.Get("status").String(),
			FileURL: rec.Get("file_url").String(),
			Fields:  fields,
		})
	}
	return docs, nil
}
