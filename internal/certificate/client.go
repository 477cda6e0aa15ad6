// Package certificate looks up certificate records by enrollment number and
// pass key and turns each lookup into exactly one chat outcome.
package certificate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"amli-assistant/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Searcher is the document lookup backend. The pass key is compared by the
// backend, never locally.
type Searcher interface {
	Search(ctx context.Context, enrollmentNo, passKey string) ([]domain.Document, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// Client wraps a Searcher with a fixed per-call timeout. A nil Searcher means
// the service is unconfigured.
type Client struct {
	searcher Searcher
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
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

func NewClient(searcher Searcher, opts ...Option) *Client {
	c := &Client{
		searcher: searcher,
		timeout:  defaultTimeout,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Configured() bool {
	return c != nil && c.searcher != nil
}

// Search issues one lookup. It never returns an error; every failure is a
// tagged response.
func (c *Client) Search(ctx context.Context, enrollmentNo, password string) domain.ChatResponse {
	if !c.Configured() {
		return c.respond(domain.TypeServiceUnavailable,
			"Certificate search is not available right now. Please contact AmLI support for help with your certificate.")
	}
	enrollmentNo = strings.TrimSpace(enrollmentNo)
	if enrollmentNo == "" || strings.TrimSpace(password) == "" {
		return c.respond(domain.TypeValidationError,
			"Please provide both your enrollment number and password to search for your certificate.")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	docs, err := c.searcher.Search(ctx, enrollmentNo, password)
	if err != nil {
		return c.classifyError(ctx, enrollmentNo, err)
	}
	if len(docs) == 0 {
		out := c.respond(domain.TypeNoDocument, fmt.Sprintf(
			"I couldn't find a certificate for enrollment number %s with that password. "+
				"Please check your details and try again.", enrollmentNo))
		out.EnrollmentNo = enrollmentNo
		return out
	}

	doc := docs[0]
	out := c.respond(domain.TypeDocumentFound, formatDocument(enrollmentNo, doc))
	out.EnrollmentNo = enrollmentNo
	out.Document = documentFields(doc)
	out.DownloadURL = doc.FileURL
	return out
}

func (c *Client) classifyError(ctx context.Context, enrollmentNo string, err error) domain.ChatResponse {
	var statusErr httpStatusCoder
	switch {
	case isTimeout(err):
		c.logger.WarnContext(ctx, "certificate search timed out", "enrollment_no", enrollmentNo, "timeout", c.timeout)
		return c.respond(domain.TypeTimeout,
			"The certificate search is taking too long. Please try again in a moment.")
	case errors.As(err, &statusErr) && (statusErr.HTTPStatusCode() < 200 || statusErr.HTTPStatusCode() >= 300):
		c.logger.ErrorContext(ctx, "certificate search returned error status",
			"enrollment_no", enrollmentNo, "status", statusErr.HTTPStatusCode(), "err", err)
		return c.respond(domain.TypeDatabaseError,
			"I couldn't reach the certificate database. Please try again later.")
	default:
		c.logger.ErrorContext(ctx, "certificate search failed", "enrollment_no", enrollmentNo, "err", err)
		return c.respond(domain.TypeError,
			"Something went wrong while searching for your certificate. Please try again.")
	}
}

func (c *Client) respond(typ domain.ResponseType, text string) domain.ChatResponse {
	return domain.ChatResponse{
		Response:  text,
		Timestamp: c.now().UTC().Format(time.RFC3339),
		Type:      typ,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func formatDocument(enrollmentNo string, doc domain.Document) string {
	lines := []string{
		"Certificate found for enrollment number " + enrollmentNo + ".",
		"",
		"Name: " + fallback(doc.Name),
		"Course: " + fallback(doc.Course),
		"Status: " + fallback(doc.Status),
	}
	if doc.FileURL != "" {
		lines = append(lines, "", "You can download your certificate using the link below.")
	}
	return strings.Join(lines, "\n")
}

func documentFields(doc domain.Document) map[string]any {
	fields := make(map[string]any, len(doc.Fields)+4)
	for k, v := range doc.Fields {
		fields[k] = v
	}
	setIfMissing(fields, "name", doc.Name)
	setIfMissing(fields, "course", doc.Course)
	setIfMissing(fields, "status", doc.Status)
	setIfMissing(fields, "file_url", doc.FileURL)
	return fields
}

func setIfMissing(m map[string]any, key, value string) {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

func fallback(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
