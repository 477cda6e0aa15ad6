package domain

import (
	"errors"
	"strings"
)

// ResponseType tags every ChatResponse so callers can branch on the outcome.
type ResponseType string

const (
	TypeGreeting           ResponseType = "greeting"
	TypeThanks             ResponseType = "thanks"
	TypeGoodbye            ResponseType = "goodbye"
	TypeSmallTalk          ResponseType = "small_talk"
	TypeAmLIInfo           ResponseType = "amli_info"
	TypeSupportIssue       ResponseType = "support_issue"
	TypeJobApplication     ResponseType = "job_application"
	TypeRequestEnrollment  ResponseType = "request_enrollment"
	TypeRequestPassword    ResponseType = "request_password"
	TypeDocumentFound      ResponseType = "document_found"
	TypeNoDocument         ResponseType = "no_document"
	TypeDatabaseError      ResponseType = "database_error"
	TypeTimeout            ResponseType = "timeout"
	TypeTimeDate           ResponseType = "time_date"
	TypeSimpleMath         ResponseType = "simple_math"
	TypeGeneralResponse    ResponseType = "general_response"
	TypeQuotaExceeded      ResponseType = "quota_exceeded"
	TypeServiceUnavailable ResponseType = "service_unavailable"
	TypeValidationError    ResponseType = "validation_error"
	TypeError              ResponseType = "error"
)

// ChatResponse is returned to the caller and folded into the assistant turn.
type ChatResponse struct {
	Response     string         `json:"response"`
	Timestamp    string         `json:"timestamp"`
	Type         ResponseType   `json:"type"`
	SessionID    string         `json:"session_id,omitempty"`
	FormURL      string         `json:"form_url,omitempty"`
	EnrollmentNo string         `json:"enrollment_no,omitempty"`
	Document     map[string]any `json:"document,omitempty"`
	DownloadURL  string         `json:"download_url,omitempty"`
	Result       *float64       `json:"result,omitempty"`
}

// Attachment is an inline binary forwarded to the generation service.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// ErrNoResponseText is returned when a generation reply carries no usable text.
var ErrNoResponseText = errors.New("No response text found")

// Reply is the provider-agnostic shape of a generation result. Text is the
// service's direct text field; Parts holds the text parts of the first candidate.
type Reply struct {
	Text  string
	Parts []string
}

// ExtractText returns the direct text when present, otherwise the first
// non-blank candidate part.
func (r Reply) ExtractText() (string, error) {
	if strings.TrimSpace(r.Text) != "" {
		return r.Text, nil
	}
	for _, p := range r.Parts {
		if strings.TrimSpace(p) != "" {
			return p, nil
		}
	}
	return "", ErrNoResponseText
}
