// Package generation wraps the remote generative-text service with prompt
// assembly, bounded retries and failure classification.
package generation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"amli-assistant/internal/domain"
)

const (
	defaultAttempts  = 3
	defaultBaseDelay = 800 * time.Millisecond

	msgUnavailable = "I'm sorry, the AI service is not configured right now. Please try again later or contact AmLI support."
	msgQuota       = "I'm getting a lot of questions right now and have hit my usage limit. Please try again in a few minutes."
	msgError       = "I'm sorry, I couldn't generate a response right now. Please try again."
)

// Model is the generation service port.
type Model interface {
	Generate(ctx context.Context, prompt string, attachment *domain.Attachment) (domain.Reply, error)
}

// Input is everything needed to produce one generated reply.
type Input struct {
	Message     string
	History     []domain.Turn
	FileName    string
	FileContext string
	Attachment  *domain.Attachment
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// Client produces ChatResponses from a Model. A nil Model means the service
// is unconfigured.
type Client struct {
	model     Model
	attempts  uint
	baseDelay time.Duration
	timer     retry.Timer
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Client)

func WithAttempts(n uint) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.baseDelay = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(model Model, opts ...Option) *Client {
	c := &Client{
		model:     model,
		attempts:  defaultAttempts,
		baseDelay: defaultBaseDelay,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a model is wired in.
func (c *Client) Configured() bool {
	return c != nil && c.model != nil
}

// Generate never returns an error: terminal failures become
// quota_exceeded, error or service_unavailable responses.
func (c *Client) Generate(ctx context.Context, in Input) domain.ChatResponse {
	if !c.Configured() {
		return c.respond(domain.TypeServiceUnavailable, msgUnavailable)
	}

	prompt := buildPrompt(in)
	var text string
	err := retry.Do(func() error {
		reply, err := c.model.Generate(ctx, prompt, in.Attachment)
		if err != nil {
			return err
		}
		text, err = reply.ExtractText()
		return err
	}, c.retryOptions(ctx)...)
	if err != nil {
		if isQuotaError(err) {
			c.logger.WarnContext(ctx, "generation quota exceeded", "attempts", c.attempts, "err", err)
			return c.respond(domain.TypeQuotaExceeded, msgQuota)
		}
		c.logger.ErrorContext(ctx, "generation failed", "attempts", c.attempts, "err", err)
		return c.respond(domain.TypeError, msgError)
	}
	return c.respond(domain.TypeGeneralResponse, text)
}

func (c *Client) retryOptions(ctx context.Context) []retry.Option {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.baseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.WarnContext(ctx, "generation attempt failed", "attempt", n+1, "err", err)
		}),
	}
	if c.timer != nil {
		opts = append(opts, retry.WithTimer(c.timer))
	}
	return opts
}

func (c *Client) respond(typ domain.ResponseType, text string) domain.ChatResponse {
	return domain.ChatResponse{
		Response:  text,
		Timestamp: c.now().UTC().Format(time.RFC3339),
		Type:      typ,
	}
}

// isQuotaError decides whether a terminal failure is the service pushing back
// on usage. A structured 429 wins; otherwise the error text is searched for
// the markers the service is known to emit.
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	var statusErr httpStatusCoder
	if errors.As(err, &statusErr) && statusErr.HTTPStatusCode() == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit")
}
