package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"amli-assistant/internal/domain"
)

const DefaultModel = "gemini-1.5-flash"

// KeySource yields the Gemini API key.
type KeySource interface {
	Value(ctx context.Context) (string, error)
}

// contentGenerator is the slice of *genai.Models used by Client.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client is a Gemini-backed generation model. The SDK client is built on the
// first call, once the API key is available, and reused afterwards.
type Client struct {
	model      string
	keys       KeySource
	baseURL    string
	httpClient *http.Client

	mu     sync.Mutex
	models contentGenerator
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(keys KeySource, model string, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("gemini: key source must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	c := &Client{model: model, keys: keys}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Generate sends the prompt, plus an optional inline attachment, as a single
// user turn.
func (c *Client) Generate(ctx context.Context, prompt string, attachment *domain.Attachment) (domain.Reply, error) {
	models, err := c.resolveModels(ctx)
	if err != nil {
		return domain.Reply{}, err
	}
	resp, err := models.GenerateContent(ctx, c.model, buildContents(prompt, attachment), nil)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("gemini: generate content: %w", err)
	}
	return toReply(resp), nil
}

// resolveModels builds the SDK client on first success. Failures are not
// cached so a transient key lookup error does not disable the client.
func (c *Client) resolveModels(ctx context.Context) (contentGenerator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.models != nil {
		return c.models, nil
	}

	apiKey, err := c.keys.Value(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini: resolve api key: %w", err)
	}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	c.models = client.Models
	return c.models, nil
}

func buildContents(prompt string, attachment *domain.Attachment) []*genai.Content {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if attachment != nil && len(attachment.Data) > 0 {
		mimeType := attachment.MIMEType
		if mimeType == "" {
			mimeType = http.DetectContentType(attachment.Data)
		}
		parts = append(parts, genai.NewPartFromBytes(attachment.Data, mimeType))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

// toReply keeps both reply shapes: the SDK's aggregated text and the raw
// text parts of the first candidate.
func toReply(resp *genai.GenerateContentResponse) domain.Reply {
	if resp == nil {
		return domain.Reply{}
	}
	reply := domain.Reply{Text: resp.Text()}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return reply
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" {
			reply.Parts = append(reply.Parts, p.Text)
		}
	}
	return reply
}
