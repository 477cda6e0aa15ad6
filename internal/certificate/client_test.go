package certificate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"amli-assistant/internal/domain"
)

type stubSearcher struct {
	docs      []domain.Document
	err       error
	block     bool
	calls     int
	lastEnrol string
	lastPass  string
}

func (s *stubSearcher) Search(ctx context.Context, enrollmentNo, passKey string) ([]domain.Document, error) {
	s.calls++
	s.lastEnrol = enrollmentNo
	s.lastPass = passKey
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.docs, s.err
}

type statusErr struct{ code int }

func (e *statusErr) Error() string       { return fmt.Sprintf("status %d", e.code) }
func (e *statusErr) HTTPStatusCode() int { return e.code }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func sampleDoc() domain.Document {
	return domain.Document{
		Name:    "Asha Rao",
		Course:  "Data Analytics",
		Status:  "issued",
		FileURL: "https://files.example/cert/123456.pdf",
		Fields: map[string]any{
			"name":     "Asha Rao",
			"course":   "Data Analytics",
			"status":   "issued",
			"file_url": "https://files.example/cert/123456.pdf",
			"batch":    "2025-A",
		},
	}
}

func TestSearch_DocumentFound(t *testing.T) {
	s := &stubSearcher{docs: []domain.Document{sampleDoc(), {Name: "second"}}}
	c := NewClient(s)

	out := c.Search(context.Background(), "123456", "secret")
	require.Equal(t, domain.TypeDocumentFound, out.Type)
	require.Equal(t, "123456", out.EnrollmentNo)
	require.Equal(t, "https://files.example/cert/123456.pdf", out.DownloadURL)
	require.Equal(t, "Asha Rao", out.Document["name"])
	require.Equal(t, "Data Analytics", out.Document["course"])
	require.Equal(t, "issued", out.Document["status"])
	require.Equal(t, "2025-A", out.Document["batch"])
	require.Contains(t, out.Response, "Name: Asha Rao")
	require.Equal(t, "secret", s.lastPass)
	require.Equal(t, 1, s.calls)
}

func TestSearch_DocumentWithoutRawFields(t *testing.T) {
	doc := domain.Document{Name: "Ravi", Course: "Welding", Status: "pending"}
	c := NewClient(&stubSearcher{docs: []domain.Document{doc}})

	out := c.Search(context.Background(), "654321", "pw")
	require.Equal(t, domain.TypeDocumentFound, out.Type)
	require.Equal(t, "Ravi", out.Document["name"])
	require.Equal(t, "", out.Document["file_url"])
	require.Empty(t, out.DownloadURL)
	require.NotContains(t, out.Response, "download")
}

func TestSearch_NoDocument(t *testing.T) {
	c := NewClient(&stubSearcher{docs: []domain.Document{}})
	out := c.Search(context.Background(), "123456", "secret")
	require.Equal(t, domain.TypeNoDocument, out.Type)
	require.Equal(t, "123456", out.EnrollmentNo)
}

func TestSearch_ErrorClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domain.ResponseType
	}{
		{name: "non-success status", err: fmt.Errorf("wrapped: %w", &statusErr{code: http.StatusInternalServerError}), want: domain.TypeDatabaseError},
		{name: "deadline", err: fmt.Errorf("do: %w", context.DeadlineExceeded), want: domain.TypeTimeout},
		{name: "net timeout", err: timeoutErr{}, want: domain.TypeTimeout},
		{name: "other", err: errors.New("connection refused"), want: domain.TypeError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &stubSearcher{err: tc.err}
			out := NewClient(s).Search(context.Background(), "123456", "secret")
			require.Equal(t, tc.want, out.Type)
			require.Equal(t, 1, s.calls, "search must not be retried")
		})
	}
}

func TestSearch_TimeoutIsApplied(t *testing.T) {
	s := &stubSearcher{block: true}
	c := NewClient(s, WithTimeout(20*time.Millisecond))

	start := time.Now()
	out := c.Search(context.Background(), "123456", "secret")
	require.Equal(t, domain.TypeTimeout, out.Type)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestSearch_Unconfigured(t *testing.T) {
	c := NewClient(nil)
	require.False(t, c.Configured())
	out := c.Search(context.Background(), "123456", "secret")
	require.Equal(t, domain.TypeServiceUnavailable, out.Type)
}

func TestSearch_MissingCredentials(t *testing.T) {
	s := &stubSearcher{}
	c := NewClient(s)

	out := c.Search(context.Background(), "", "secret")
	require.Equal(t, domain.TypeValidationError, out.Type)
	out = c.Search(context.Background(), "123456", "  ")
	require.Equal(t, domain.TypeValidationError, out.Type)
	require.Zero(t, s.calls)
}
