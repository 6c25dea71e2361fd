package prompts

import (
	"testing"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		args     map[string]interface{}
		want     string
	}{
		{"simple substitution", "Hello {{name}}", map[string]interface{}{"name": "Ada"}, "Hello Ada"},
		{"repeated placeholder", "{{x}}-{{x}}", map[string]interface{}{"x": "1"}, "1-1"},
		{"unknown placeholder kept", "{{known}} {{unknown}}", map[string]interface{}{"known": "yes"}, "yes {{unknown}}"},
		{"non-string value", "rows={{rows}}", map[string]interface{}{"rows": 42}, "rows=42"},
		{"values are not re-expanded", "{{a}}", map[string]interface{}{"a": "{{b}}", "b": "nope"}, "{{b}}"},
		{"no placeholders", "plain text", nil, "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderTemplate(tt.template, tt.args); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestVariables(t *testing.T) {
	def := &PromptDefinition{Name: "x", Template: "{{b}} {{a}} {{b}}"}
	got := def.Variables()
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Errorf("Expected [b a], got %v", got)
	}
}

func TestDefaultsAreValid(t *testing.T) {
	defaults := Defaults()
	for _, name := range []string{TemplateThinking, TemplateEmailSubject, TemplateEmailSubjectFallback, TemplateDataInsights} {
		def, ok := defaults[name]
		if !ok {
			t.Fatalf("Expected built-in template %s", name)
		}
		if err := def.Validate(); err != nil {
			t.Errorf("Built-in template %s invalid: %v", name, err)
		}
	}

	if vars := defaults[TemplateDataInsights].Variables(); len(vars) != 3 {
		t.Errorf("Expected data-insights to use 3 variables, got %v", vars)
	}
}
