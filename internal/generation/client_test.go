package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"amli-assistant/internal/domain"
)

type modelResult struct {
	reply domain.Reply
	err   error
}

type mockModel struct {
	results    []modelResult
	callCount  int
	lastPrompt string
	lastAttach *domain.Attachment
}

func (m *mockModel) Generate(_ context.Context, prompt string, attachment *domain.Attachment) (domain.Reply, error) {
	m.lastPrompt = prompt
	m.lastAttach = attachment
	if len(m.results) == 0 {
		return domain.Reply{}, errors.New("no model result configured")
	}
	idx := m.callCount
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	m.callCount++
	return m.results[idx].reply, m.results[idx].err
}

// fakeTimer records requested backoff delays and fires immediately.
type fakeTimer struct {
	delays []time.Duration
}

func (f *fakeTimer) After(d time.Duration) <-chan time.Time {
	f.delays = append(f.delays, d)
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

type statusErr struct{ code int }

func (e *statusErr) Error() string       { return fmt.Sprintf("upstream status %d", e.code) }
func (e *statusErr) HTTPStatusCode() int { return e.code }

func newTestClient(m Model) (*Client, *fakeTimer) {
	timer := &fakeTimer{}
	c := NewClient(m)
	c.timer = timer
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return c, timer
}

func TestGenerate_HappyPath(t *testing.T) {
	m := &mockModel{results: []modelResult{{reply: domain.Reply{Text: "Hello there!"}}}}
	c, timer := newTestClient(m)

	out := c.Generate(context.Background(), Input{Message: "hello"})
	require.Equal(t, domain.TypeGeneralResponse, out.Type)
	require.Equal(t, "Hello there!", out.Response)
	require.Equal(t, "2026-01-02T03:04:05Z", out.Timestamp)
	require.Equal(t, 1, m.callCount)
	require.Empty(t, timer.delays)
}

func TestGenerate_UsesNestedPartWhenTextMissing(t *testing.T) {
	m := &mockModel{results: []modelResult{{reply: domain.Reply{Parts: []string{"from candidate"}}}}}
	c, _ := newTestClient(m)

	out := c.Generate(context.Background(), Input{Message: "hello"})
	require.Equal(t, domain.TypeGeneralResponse, out.Type)
	require.Equal(t, "from candidate", out.Response)
}

func TestGenerate_RetriesThenSucceeds(t *testing.T) {
	m := &mockModel{results: []modelResult{
		{err: errors.New("connection reset")},
		{err: errors.New("service unavailable")},
		{reply: domain.Reply{Text: "third time lucky"}},
	}}
	c, timer := newTestClient(m)

	out := c.Generate(context.Background(), Input{Message: "hello"})
	require.Equal(t, domain.TypeGeneralResponse, out.Type)
	require.Equal(t, "third time lucky", out.Response)
	require.Equal(t, 3, m.callCount)
	require.Equal(t, []time.Duration{800 * time.Millisecond, 1600 * time.Millisecond}, timer.delays)
}

func TestGenerate_EmptyReplyIsRetried(t *testing.T) {
	m := &mockModel{results: []modelResult{
		{reply: domain.Reply{}},
		{reply: domain.Reply{Text: "ok"}},
	}}
	c, _ := newTestClient(m)

	out := c.Generate(context.Background(), Input{Message: "hello"})
	require.Equal(t, domain.TypeGeneralResponse, out.Type)
	require.Equal(t, 2, m.callCount)
}

func TestGenerate_QuotaExhaustsRetries(t *testing.T) {
	m := &mockModel{results: []modelResult{{err: errors.New("Error 429: Quota exceeded for model")}}}
	c, timer := newTestClient(m)

	out := c.Generate(context.Background(), Input{Message: "hello"})
	require.Equal(t, domain.TypeQuotaExceeded, out.Type)
	require.Equal(t, msgQuota, out.Response)
	require.Equal(t, 3, m.callCount)
	require.Len(t, timer.delays, 2)
}

func TestGenerate_GenericErrorAfterRetries(t *testing.T) {
	m := &mockModel{results: []modelResult{{err: errors.New("internal failure")}}}
	c, _ := newTestClient(m)

	out := c.Generate(context.Background(), Input{Message: "hello"})
	require.Equal(t, domain.TypeError, out.Type)
	require.Equal(t, msgError, out.Response)
	require.Equal(t, 3, m.callCount)
}

func TestGenerate_NoTextAfterRetriesIsGenericError(t *testing.T) {
	m := &mockModel{results: []modelResult{{reply: domain.Reply{}}}}
	c, _ := newTestClient(m)

	out := c.Generate(context.Background(), Input{Message: "hello"})
	require.Equal(t, domain.TypeError, out.Type)
}

func TestGenerate_Unconfigured(t *testing.T) {
	c := NewClient(nil)
	require.False(t, c.Configured())

	out := c.Generate(context.Background(), Input{Message: "hello"})
	require.Equal(t, domain.TypeServiceUnavailable, out.Type)
	require.Equal(t, msgUnavailable, out.Response)
}

func TestGenerate_WithAttemptsOption(t *testing.T) {
	m := &mockModel{results: []modelResult{{err: errors.New("boom")}}}
	c, _ := newTestClient(m)
	WithAttempts(1)(c)

	out := c.Generate(context.Background(), Input{Message: "hello"})
	require.Equal(t, domain.TypeError, out.Type)
	require.Equal(t, 1, m.callCount)
}

func TestGenerate_PassesPromptAndAttachment(t *testing.T) {
	m := &mockModel{results: []modelResult{{reply: domain.Reply{Text: "ok"}}}}
	c, _ := newTestClient(m)
	att := &domain.Attachment{MIMEType: "image/png", Data: []byte{0x89, 0x50}}

	c.Generate(context.Background(), Input{
		Message:     "what is in this picture?",
		FileName:    "photo.png",
		FileContext: "A diagram of a circuit.",
		Attachment:  att,
	})
	require.Same(t, att, m.lastAttach)
	require.Contains(t, m.lastPrompt, "Current user message: what is in this picture?")
	require.Contains(t, m.lastPrompt, "Attached file analysis (photo.png):")
	require.Contains(t, m.lastPrompt, "A diagram of a circuit.")
}

func TestIsQuotaError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("HTTP 429 Too Many Requests"), true},
		{errors.New("RESOURCE_EXHAUSTED: QUOTA exceeded"), true},
		{errors.New("Rate Limit reached"), true},
		{fmt.Errorf("wrapped: %w", &statusErr{code: http.StatusTooManyRequests}), true},
		{&statusErr{code: http.StatusInternalServerError}, false},
		{errors.New("deadline exceeded"), false},
		{nil, false},
	}
	for _, tc := range cases {
		name := "nil"
		if tc.err != nil {
			name = tc.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, isQuotaError(tc.err))
		})
	}
}

func TestBuildPrompt_UsesLastFiveTurns(t *testing.T) {
	var history []domain.Turn
	for i := 0; i < 8; i++ {
		history = append(history, domain.Turn{Content: fmt.Sprintf("turn-%d", i), IsUser: i%2 == 0})
	}

	prompt := buildPrompt(Input{Message: "latest", History: history})
	require.NotContains(t, prompt, "turn-2")
	require.Contains(t, prompt, "Assistant: turn-3")
	require.Contains(t, prompt, "User: turn-4")
	require.Contains(t, prompt, "Assistant: turn-7")
	require.True(t, strings.HasSuffix(prompt, "Assistant:"))
	require.Less(t, strings.Index(prompt, "Current user message"), strings.Index(prompt, "Recent conversation"))
}

func TestBuildPrompt_WithoutOptionalSections(t *testing.T) {
	prompt := buildPrompt(Input{Message: "hi"})
	require.Contains(t, prompt, "AmLI assistant")
	require.NotContains(t, prompt, "Recent conversation")
	require.NotContains(t, prompt, "Attached file analysis")
	require.Contains(t, prompt, "Guidelines:")
}
