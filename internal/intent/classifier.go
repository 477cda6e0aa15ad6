// Package intent maps a raw user utterance to a single labelled intent.
//
// Classification is a deterministic walk over an ordered rule table: the first
// rule whose predicate matches wins and General is returned when none do.
package intent

import (
	"regexp"
	"strings"
	"unicode"
)

type Intent string

const (
	Greeting          Intent = "greeting"
	Thanks            Intent = "thanks"
	Goodbye           Intent = "goodbye"
	SmallTalk         Intent = "small_talk"
	AmLIInfo          Intent = "amli_info"
	SupportIssue      Intent = "support_issue"
	JobApplication    Intent = "job_application"
	CertificateSearch Intent = "certificate_search"
	TimeDate          Intent = "time_date"
	SimpleMath        Intent = "simple_math"
	General           Intent = "general"
)

// Result is the transient outcome of classifying one message.
type Result struct {
	Primary      Intent
	EnrollmentNo string
}

var (
	enrollmentPattern = regexp.MustCompile(`\b\d{6}\b`)
	mathPattern       = regexp.MustCompile(`^[0-9\s+\-*/().]+$`)
)

// rule pairs a label with its predicate over the lower-cased, trimmed message.
type rule struct {
	intent Intent
	match  func(msg string, words map[string]bool) bool
}

// keywords matches when any phrase is a substring of the message or any word
// appears as a whole token.
func keywords(phrases, words []string) func(string, map[string]bool) bool {
	return func(msg string, tokens map[string]bool) bool {
		for _, p := range phrases {
			if strings.Contains(msg, p) {
				return true
			}
		}
		for _, w := range words {
			if tokens[w] {
				return true
			}
		}
		return false
	}
}

// defaultRules is evaluated top to bottom. Order is the tie-break.
var defaultRules = []rule{
	{CertificateSearch, keywords(
		[]string{"certificate", "certification", "enrollment", "enrolment", "marksheet", "mark sheet", "my document"},
		nil,
	)},
	{JobApplication, keywords(
		[]string{"job", "apply", "career", "vacanc", "hiring", "recruit", "internship", "job opening", "openings"},
		nil,
	)},
	{SupportIssue, keywords(
		[]string{"not working", "problem", "issue", "complaint", "trouble", "support", "broken", "can't login", "cannot login"},
		[]string{"error", "bug"},
	)},
	{AmLIInfo, keywords(
		[]string{"amli", "your services", "what services", "courses", "training program", "about your company", "about the company"},
		nil,
	)},
	{SimpleMath, func(msg string, _ map[string]bool) bool { return IsSimpleMath(msg) }},
	{TimeDate, keywords(
		[]string{"what time", "current time", "time is it", "time now", "today's date", "todays date", "what date", "the date", "what day", "which day"},
		nil,
	)},
	{Goodbye, keywords(
		[]string{"goodbye", "good bye", "see you", "see ya", "farewell", "good night", "take care"},
		[]string{"bye", "cya"},
	)},
	{Thanks, keywords(
		[]string{"thank", "appreciate", "grateful"},
		[]string{"thx", "ty"},
	)},
	{Greeting, keywords(
		[]string{"good morning", "good afternoon", "good evening", "greetings", "namaste"},
		[]string{"hello", "hi", "hey", "hiya", "howdy", "yo"},
	)},
	{SmallTalk, keywords(
		[]string{"how are you", "how's it going", "hows it going", "what's up", "whats up", "who are you", "your name", "tell me a joke", "how do you do"},
		[]string{"sup"},
	)},
}

// Classifier evaluates an ordered rule table.
type Classifier struct {
	rules []rule
}

func NewClassifier() *Classifier {
	return &Classifier{rules: defaultRules}
}

// Classify returns the first matching intent and any enrollment number found
// in the message.
func (c *Classifier) Classify(message string) Result {
	msg := strings.ToLower(strings.TrimSpace(message))
	res := Result{Primary: General, EnrollmentNo: ExtractEnrollmentNo(msg)}
	if msg == "" {
		return res
	}
	tokens := tokenize(msg)
	for _, r := range c.rules {
		if r.match(msg, tokens) {
			res.Primary = r.intent
			return res
		}
	}
	return res
}

// ExtractEnrollmentNo returns the first standalone 6-digit number, or "".
func ExtractEnrollmentNo(message string) string {
	return enrollmentPattern.FindString(message)
}

// IsSimpleMath reports whether the whole message is an arithmetic expression
// with at least one operator.
func IsSimpleMath(message string) bool {
	msg := strings.TrimSpace(message)
	if msg == "" || !mathPattern.MatchString(msg) {
		return false
	}
	return strings.ContainsAny(msg, "+-*/")
}

func tokenize(msg string) map[string]bool {
	fields := strings.FieldsFunc(msg, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		out[f] = true
	}
	return out
}
