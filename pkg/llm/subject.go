package llm

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"mcp-insight-service/pkg/prompts"
)

// Subject line bounds, in characters
const (
	SubjectMinLength = 50
	SubjectMaxLength = 60
)

// Renderer fills a named prompt template
type Renderer interface {
	Render(name string, args map[string]interface{}) (string, error)
}

// SubjectGenerator turns a short topic description into an email subject line
type SubjectGenerator struct {
	generator Generator
	prompts   Renderer
}

// NewSubjectGenerator creates a subject generator
func NewSubjectGenerator(generator Generator, prompts Renderer) *SubjectGenerator {
	return &SubjectGenerator{generator: generator, prompts: prompts}
}

// Generate asks for a subject with the email-subject template. When the reply
// is not a single line of 50 to 60 characters it retries once with the
// email-subject-fallback template, then clamps whatever came back.
func (s *SubjectGenerator) Generate(ctx context.Context, subjectPrompt string) (string, error) {
	args := map[string]interface{}{"subjectPrompt": subjectPrompt}

	first, err := s.ask(ctx, prompts.TemplateEmailSubject, args)
	if err != nil {
		return "", err
	}
	if IsValidSubject(first) {
		return NormalizeSubject(first), nil
	}

	second, err := s.ask(ctx, prompts.TemplateEmailSubjectFallback, args)
	if err != nil {
		return "", err
	}
	if IsValidSubject(second) {
		return NormalizeSubject(second), nil
	}

	candidate := NormalizeSubject(second)
	if candidate == "" {
		candidate = NormalizeSubject(first)
	}
	if candidate == "" {
		candidate = NormalizeSubject(subjectPrompt)
	}
	return ClampSubject(candidate), nil
}

func (s *SubjectGenerator) ask(ctx context.Context, template string, args map[string]interface{}) (string, error) {
	prompt, err := s.prompts.Render(template, args)
	if err != nil {
		return "", err
	}
	return s.generator.Generate(ctx, prompt)
}

var (
	whitespace    = regexp.MustCompile(`\s+`)
	subjectPrefix = regexp.MustCompile(`(?i)^\s*(\*\*)?subject(\s+line)?\s*:\s*(\*\*)?\s*`)
)

// NormalizeSubject keeps the first non-empty line, drops a "Subject:" label
// and surrounding quotes or emphasis, and collapses whitespace
func NormalizeSubject(raw string) string {
	line := ""
	for _, l := range strings.Split(raw, "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}

	line = subjectPrefix.ReplaceAllString(line, "")
	line = strings.Trim(strings.TrimSpace(line), "\"'`*“”‘’")
	line = whitespace.ReplaceAllString(line, " ")
	return strings.TrimSpace(line)
}

// IsValidSubject reports whether raw holds exactly one non-empty line whose
// normalised length is within bounds
func IsValidSubject(raw string) bool {
	lines := 0
	for _, l := range strings.Split(strings.TrimSpace(raw), "\n") {
		if strings.TrimSpace(l) != "" {
			lines++
		}
	}
	if lines != 1 {
		return false
	}
	n := utf8.RuneCountInString(NormalizeSubject(raw))
	return n >= SubjectMinLength && n <= SubjectMaxLength
}

// ClampSubject shortens subject to at most SubjectMaxLength characters,
// cutting at the last word boundary when there is one
func ClampSubject(subject string) string {
	runes := []rune(subject)
	if len(runes) <= SubjectMaxLength {
		return subject
	}

	cut := string(runes[:SubjectMaxLength])
	if runes[SubjectMaxLength] != ' ' {
		if i := strings.LastIndex(cut, " "); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRight(strings.TrimSpace(cut), ",;:-")
}
