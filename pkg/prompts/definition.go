// Package prompts holds the prompt templates sent to the generative API.
// Built-in defaults can be overridden by YAML or JSON files in a prompts
// directory, which is reloaded when it changes.
package prompts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template names used by the tools
const (
	TemplateThinking             = "thinking"
	TemplateEmailSubject         = "email-subject"
	TemplateEmailSubjectFallback = "email-subject-fallback"
	TemplateDataInsights         = "data-insights"
)

// PromptDefinition is one named template
type PromptDefinition struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Template    string `json:"template" yaml:"template"`

	// Source is the file the definition came from, empty for built-ins
	Source string `json:"-" yaml:"-"`
}

var promptNamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// IsDefinitionFile reports whether path has a supported extension
func IsDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadFromFile loads a prompt definition from a YAML or JSON file
func LoadFromFile(path string) (*PromptDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}

	var def PromptDefinition
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse prompt JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse prompt YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported prompt file extension: %s", filepath.Ext(path))
	}

	def.Source = path
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &def, nil
}

// Validate checks the structural integrity of the prompt definition
func (pd *PromptDefinition) Validate() error {
	if pd.Name == "" {
		return fmt.Errorf("prompt name is required")
	}
	if !promptNamePattern.MatchString(pd.Name) {
		return fmt.Errorf("prompt name must match pattern ^[a-z0-9-]+$, got: %s", pd.Name)
	}
	if strings.TrimSpace(pd.Template) == "" {
		return fmt.Errorf("prompt %s: template is required", pd.Name)
	}
	return nil
}

// Variables lists the placeholder names used by the template, in order of
// first appearance
func (pd *PromptDefinition) Variables() []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range variablePattern.FindAllStringSubmatch(pd.Template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Defaults returns the built-in templates
func Defaults() map[string]*PromptDefinition {
	defs := []*PromptDefinition{
		{
			Name:        TemplateThinking,
			Description: "Free-form reasoning on a user prompt",
			Template: `Think carefully about the following request. Work through it step by step, ` +
				`then give a clear, well-structured answer in markdown.

Request:
{{prompt}}`,
		},
		{
			Name:        TemplateEmailSubject,
			Description: "Professional subject line for an outgoing email",
			Template: `Write a professional email subject line for the topic below.
Requirements:
- between 50 and 60 characters long
- a single line
- no quotation marks and no "Subject:" prefix

Topic:
{{subjectPrompt}}

Reply with the subject line only.`,
		},
		{
			Name:        TemplateEmailSubjectFallback,
			Description: "Stricter retry when the first subject misses the length rules",
			Template: `Your previous answer was not a valid subject line. Produce exactly one line of ` +
				`text, 50 to 60 characters long, summarising this topic: {{subjectPrompt}}
Output the subject line and nothing else.`,
		},
		{
			Name:        TemplateDataInsights,
			Description: "Narrative insights for an analysed table",
			Template: `You are a data analyst. The file "{{fileName}}" has been summarised as follows.

Statistics (JSON):
{{statistics}}

Sample rows (JSON):
{{sampleRows}}

Write the key insights in markdown: notable patterns and outliers first, then concrete recommendations.`,
		},
	}

	out := make(map[string]*PromptDefinition, len(defs))
	for _, d := range defs {
		out[d.Name] = d
	}
	return out
}
