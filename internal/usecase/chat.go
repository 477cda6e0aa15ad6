package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"amli-assistant/internal/domain"
	"amli-assistant/internal/generation"
	"amli-assistant/internal/intent"
)

// maxMessageLength caps the characters of one message before classification.
const maxMessageLength = 2000

// Explicit intents a client may send to bypass classification.
const (
	explicitJobApplication    = "job_application"
	explicitCertificateSearch = "certificate_search"
	explicitVerifyPassword    = "verify_password"
	explicitGeneral           = "general"
)

type Classifier interface {
	Classify(message string) intent.Result
}

type HistoryStore interface {
	Append(ctx context.Context, sessionID string, turns ...domain.Turn) error
	History(ctx context.Context, sessionID string) ([]domain.Turn, error)
}

type Generator interface {
	Generate(ctx context.Context, in generation.Input) domain.ChatResponse
}

type DocumentSearcher interface {
	Search(ctx context.Context, enrollmentNo, password string) domain.ChatResponse
}

// sessionCounter is implemented by stores that can report how many sessions
// they hold.
type sessionCounter interface {
	Sessions() int
}

type ChatService struct {
	classifier Classifier
	store      HistoryStore
	generator  Generator
	searcher   DocumentSearcher
	jobFormURL string
	logger     *slog.Logger
	now        func() time.Time
	locks      *sessionLocks
}

type Option func(*ChatService)

// WithJobFormURL sets the link returned with job application replies.
func WithJobFormURL(u string) Option {
	return func(s *ChatService) {
		s.jobFormURL = strings.TrimSpace(u)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *ChatService) {
		if l != nil {
			s.logger = l
		}
	}
}

// Request is one inbound chat message with its optional routing fields.
type Request struct {
	Message      string
	Intent       string
	SessionID    string
	EnrollmentNo string
	Password     string
	HasFile      bool
	FileAnalysis string
	FileName     string
	FileData     []byte
	FileMIMEType string
}

func NewChatService(c Classifier, store HistoryStore, g Generator, searcher DocumentSearcher, opts ...Option) (*ChatService, error) {
	if c == nil {
		return nil, errors.New("usecase: classifier must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: history store must not be nil")
	}
	if g == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	if searcher == nil {
		return nil, errors.New("usecase: document searcher must not be nil")
	}
	s := &ChatService{
		classifier: c,
		store:      store,
		generator:  g,
		searcher:   searcher,
		logger:     slog.Default(),
		now:        time.Now,
		locks:      newSessionLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handle routes one message and records the exchange in the session history.
// The returned error is always a *Error; dependency failures come back as a
// tagged ChatResponse instead.
func (s *ChatService) Handle(ctx context.Context, req Request) (domain.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	explicit := strings.ToLower(strings.TrimSpace(req.Intent))
	if message == "" && explicit == "" {
		return domain.ChatResponse{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		return domain.ChatResponse{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = newUUID()
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	history, err := s.store.History(ctx, sessionID)
	if err != nil {
		return domain.ChatResponse{}, newError(ErrorInternal, "history_read_error", err)
	}
	userTurn := domain.Turn{Content: message, IsUser: true, Timestamp: s.timestamp()}

	var (
		out   domain.ChatResponse
		label string
	)
	if explicit != "" {
		label = explicit
		out = s.dispatchExplicit(ctx, explicit, message, history, req)
	} else {
		res := s.classifier.Classify(message)
		label = string(res.Primary)
		out = s.dispatchClassified(ctx, res, message, history, req)
	}

	if out.Timestamp == "" {
		out.Timestamp = s.timestamp()
	}
	out.SessionID = sessionID

	assistantTurn := domain.Turn{Content: out.Response, IsUser: false, Timestamp: out.Timestamp}
	if err := s.store.Append(ctx, sessionID, userTurn, assistantTurn); err != nil {
		return domain.ChatResponse{}, newError(ErrorInternal, "history_write_error", err)
	}

	attrs := []any{"session_id", sessionID, "intent", label, "type", out.Type}
	if counter, ok := s.store.(sessionCounter); ok {
		attrs = append(attrs, "sessions", counter.Sessions())
	}
	s.logger.InfoContext(ctx, "chat handled", attrs...)
	return out, nil
}

func (s *ChatService) dispatchExplicit(ctx context.Context, explicit, message string, history []domain.Turn, req Request) domain.ChatResponse {
	switch explicit {
	case explicitJobApplication:
		return s.jobApplicationReply()
	case explicitCertificateSearch:
		return s.certificatePrompt(s.enrollmentNo(req, message))
	case explicitVerifyPassword:
		enrollmentNo := s.enrollmentNo(req, message)
		if enrollmentNo == "" || strings.TrimSpace(req.Password) == "" {
			return s.reply(domain.TypeValidationError,
				"Please provide both your enrollment number and password to search for your certificate.")
		}
		return s.searcher.Search(ctx, enrollmentNo, req.Password)
	case explicitGeneral:
		return s.generate(ctx, message, history, req)
	default:
		s.logger.DebugContext(ctx, "unknown explicit intent, falling back to generation", "intent", explicit)
		return s.generate(ctx, message, history, req)
	}
}

func (s *ChatService) dispatchClassified(ctx context.Context, res intent.Result, message string, history []domain.Turn, req Request) domain.ChatResponse {
	switch res.Primary {
	case intent.JobApplication:
		return s.jobApplicationReply()
	case intent.CertificateSearch:
		enrollmentNo := strings.TrimSpace(req.EnrollmentNo)
		if enrollmentNo == "" {
			enrollmentNo = res.EnrollmentNo
		}
		return s.certificatePrompt(enrollmentNo)
	case intent.AmLIInfo:
		return s.reply(domain.TypeAmLIInfo, amliInfoText)
	case intent.SupportIssue:
		return s.reply(domain.TypeSupportIssue, supportText)
	case intent.Greeting:
		return s.reply(domain.TypeGreeting, greetingText)
	case intent.Thanks:
		return s.reply(domain.TypeThanks, thanksText)
	case intent.Goodbye:
		return s.reply(domain.TypeGoodbye, goodbyeText)
	case intent.TimeDate:
		return s.timeDateReply()
	case intent.SimpleMath:
		return s.mathReply(message)
	default:
		return s.generate(ctx, message, history, req)
	}
}

func (s *ChatService) generate(ctx context.Context, message string, history []domain.Turn, req Request) domain.ChatResponse {
	in := generation.Input{Message: message, History: history}
	if req.HasFile {
		in.FileName = strings.TrimSpace(req.FileName)
		in.FileContext = strings.TrimSpace(req.FileAnalysis)
	}
	if len(req.FileData) > 0 {
		in.Attachment = &domain.Attachment{MIMEType: req.FileMIMEType, Data: req.FileData}
	}
	return s.generator.Generate(ctx, in)
}

// enrollmentNo prefers the explicit field and falls back to the message text.
func (s *ChatService) enrollmentNo(req Request, message string) string {
	if v := strings.TrimSpace(req.EnrollmentNo); v != "" {
		return v
	}
	return intent.ExtractEnrollmentNo(message)
}

func (s *ChatService) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

var newUUID = func() string {
	return uuid.NewString()
}
