package usecase

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"amli-assistant/internal/domain"
	"amli-assistant/internal/intent"
)

const (
	greetingText = "Hello! I'm the AmLI assistant. I can help with certificates, job applications " +
		"and questions about AmLI. What can I do for you today?"
	thanksText  = "You're welcome! Let me know if there's anything else I can help you with."
	goodbyeText = "Goodbye! Thanks for chatting with the AmLI assistant. Have a great day."

	amliInfoText = "AmLI is a learning and training institute offering career-focused courses and " +
		"certifications. Ask me about your certificate, job openings or anything else you'd like to know."
	supportText = "Sorry you're running into trouble. Please describe the problem in as much detail as " +
		"you can, or reach the AmLI support team through the contact page and we'll get back to you."

	requestEnrollmentText = "Sure, I can look up your certificate. Please share your 6-digit enrollment number."
)

func (s *ChatService) reply(typ domain.ResponseType, text string) domain.ChatResponse {
	return domain.ChatResponse{Response: text, Timestamp: s.timestamp(), Type: typ}
}

func (s *ChatService) jobApplicationReply() domain.ChatResponse {
	if s.jobFormURL == "" {
		return s.reply(domain.TypeJobApplication,
			"Thanks for your interest in working with AmLI! Please send your resume to our HR team "+
				"and they'll be in touch about open positions.")
	}
	out := s.reply(domain.TypeJobApplication,
		"Thanks for your interest in working with AmLI! You can apply through our job application form.")
	out.FormURL = s.jobFormURL
	return out
}

// certificatePrompt asks for whichever credential is still missing. The
// search itself only runs on verify_password.
func (s *ChatService) certificatePrompt(enrollmentNo string) domain.ChatResponse {
	if enrollmentNo == "" {
		return s.reply(domain.TypeRequestEnrollment, requestEnrollmentText)
	}
	out := s.reply(domain.TypeRequestPassword, fmt.Sprintf(
		"Got it, enrollment number %s. Please enter your password to view your certificate.", enrollmentNo))
	out.EnrollmentNo = enrollmentNo
	return out
}

func (s *ChatService) timeDateReply() domain.ChatResponse {
	now := s.now()
	return s.reply(domain.TypeTimeDate, fmt.Sprintf("It's %s on %s.",
		now.Format("3:04 PM"), now.Format("Monday, January 2, 2006")))
}

func (s *ChatService) mathReply(message string) domain.ChatResponse {
	expr := strings.TrimSpace(message)
	v, err := intent.Evaluate(expr)
	if errors.Is(err, intent.ErrDivisionByZero) {
		return s.reply(domain.TypeSimpleMath, fmt.Sprintf("I can't calculate %s because it divides by zero.", expr))
	}
	if err != nil {
		return s.reply(domain.TypeSimpleMath, fmt.Sprintf("I couldn't work out %s. Please check the expression.", expr))
	}
	out := s.reply(domain.TypeSimpleMath, fmt.Sprintf("%s = %s", expr, strconv.FormatFloat(v, 'f', -1, 64)))
	out.Result = &v
	return out
}
