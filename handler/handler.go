package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"amli-assistant/internal/domain"
	"amli-assistant/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// maxBodyBytes bounds a request body, inline file data included.
const maxBodyBytes = 8 << 20

const (
	msgInvalidBody  = "Invalid request body."
	msgTooLarge     = "The request is too large."
	msgEmptyMessage = "Please enter a message."
	msgInvalidFile  = "The attached file could not be read."
	msgInternal     = "Sorry, something went wrong. Please try again."
)

type ChatUseCase interface {
	Handle(ctx context.Context, req usecase.Request) (domain.ChatResponse, error)
}

type Handler struct {
	uc     ChatUseCase
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

type chatRequest struct {
	Message      string `json:"message"`
	Intent       string `json:"intent"`
	SessionID    string `json:"session_id"`
	EnrollmentNo string `json:"enrollment_no"`
	Password     string `json:"password"`
	HasFile      bool   `json:"has_file"`
	FileAnalysis string `json:"file_analysis"`
	FileName     string `json:"file_name"`
	FileData     string `json:"file_data"`
	FileMIMEType string `json:"file_mime_type"`
}

type errorResponse struct {
	Error     string              `json:"error"`
	Response  string              `json:"response"`
	Type      domain.ResponseType `json:"type"`
	Timestamp string              `json:"timestamp"`
}

func NewHandler(uc ChatUseCase, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	h := &Handler{uc: uc, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle serves API Gateway proxy events. Every outcome, including a panic
// further down, is rendered as a JSON response so the error return is
// always nil.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(event.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	var (
		status  int
		payload any
	)
	if event.HTTPMethod == http.MethodGet && strings.HasSuffix(event.Path, "/healthz") {
		status, payload = http.StatusOK, healthResponse()
	} else if len(event.Body) > maxBodyBytes {
		status, payload = h.fail(ctx, correlationID, http.StatusRequestEntityTooLarge, msgTooLarge,
			fmt.Errorf("handler: body of %d bytes exceeds %d", len(event.Body), maxBodyBytes))
	} else {
		body := []byte(event.Body)
		if event.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(event.Body)
			if err != nil {
				status, payload = h.fail(ctx, correlationID, http.StatusBadRequest, msgInvalidBody, err)
				return h.proxyResponse(correlationID, status, payload), nil
			}
			body = decoded
		}
		status, payload = h.process(ctx, correlationID, body)
	}
	return h.proxyResponse(correlationID, status, payload), nil
}

func (h *Handler) proxyResponse(correlationID string, status int, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + msgInternal + `","type":"error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(body),
	}
}

// process is the transport-independent pipeline shared by the Lambda and
// gin entry points.
func (h *Handler) process(ctx context.Context, correlationID string, body []byte) (status int, payload any) {
	defer func() {
		if r := recover(); r != nil {
			status, payload = h.fail(ctx, correlationID, http.StatusInternalServerError, msgInternal, fmt.Errorf("panic: %v", r))
		}
	}()

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return h.fail(ctx, correlationID, http.StatusBadRequest, msgInvalidBody, err)
	}
	in, err := req.toUseCase()
	if err != nil {
		return h.fail(ctx, correlationID, http.StatusBadRequest, msgInvalidFile, err)
	}

	start := h.now()
	out, err := h.uc.Handle(ctx, in)
	if err != nil {
		var ucErr *usecase.Error
		if errors.As(err, &ucErr) && ucErr.Code == usecase.ErrorInvalidInput {
			return h.fail(ctx, correlationID, http.StatusBadRequest, msgEmptyMessage, err)
		}
		return h.fail(ctx, correlationID, http.StatusInternalServerError, msgInternal, err)
	}

	h.logger.InfoContext(ctx, "chat request served",
		"correlation_id", correlationID,
		"session_id", out.SessionID,
		"type", out.Type,
		"duration", h.now().Sub(start),
	)
	return http.StatusOK, out
}

func (h *Handler) fail(ctx context.Context, correlationID string, status int, msg string, err error) (int, any) {
	typ := domain.TypeError
	level := slog.LevelError
	if status < http.StatusInternalServerError {
		typ = domain.TypeValidationError
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, "chat request failed",
		"correlation_id", correlationID,
		"status", status,
		"err", err,
	)
	return status, errorResponse{
		Error:     msg,
		Response:  msg,
		Type:      typ,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}
}

func (r chatRequest) toUseCase() (usecase.Request, error) {
	out := usecase.Request{
		Message:      r.Message,
		Intent:       r.Intent,
		SessionID:    r.SessionID,
		EnrollmentNo: r.EnrollmentNo,
		Password:     r.Password,
		HasFile:      r.HasFile,
		FileAnalysis: r.FileAnalysis,
		FileName:     r.FileName,
		FileMIMEType: r.FileMIMEType,
	}
	if data := strings.TrimSpace(r.FileData); data != "" {
		// Browsers send data URLs; keep only the payload.
		if i := strings.Index(data, ","); strings.HasPrefix(data, "data:") && i >= 0 {
			data = data[i+1:]
		}
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return usecase.Request{}, fmt.Errorf("handler: decode file data: %w", err)
		}
		out.FileData = decoded
	}
	return out, nil
}

func healthResponse() map[string]string {
	return map[string]string{"status": "ok"}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
