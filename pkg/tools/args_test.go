package tools

import (
	"strings"
	"testing"

	"mcp-insight-service/pkg/errors"
)

func violationFields(vs []errors.FieldViolation) []string {
	fields := make([]string, len(vs))
	for i, v := range vs {
		fields[i] = v.Field
	}
	return fields
}

func TestParseGenerateThinking(t *testing.T) {
	tests := []struct {
		name       string
		args       map[string]interface{}
		wantFields []string
		want       GenerateThinkingArgs
	}{
		{
			name: "prompt only",
			args: map[string]interface{}{"prompt": "Plan a migration"},
			want: GenerateThinkingArgs{Prompt: "Plan a migration"},
		},
		{
			name: "with output dir",
			args: map[string]interface{}{"prompt": "Plan", "outputDir": " out/thinking "},
			want: GenerateThinkingArgs{Prompt: "Plan", OutputDir: "out/thinking"},
		},
		{
			name:       "missing prompt",
			args:       map[string]interface{}{},
			wantFields: []string{"prompt"},
		},
		{
			name:       "blank prompt",
			args:       map[string]interface{}{"prompt": "   "},
			wantFields: []string{"prompt"},
		},
		{
			name:       "wrong types",
			args:       map[string]interface{}{"prompt": 42.0, "outputDir": true},
			wantFields: []string{"prompt", "outputDir"},
		},
		{
			name: "unknown fields are ignored",
			args: map[string]interface{}{"prompt": "Plan", "temperature": 0.2},
			want: GenerateThinkingArgs{Prompt: "Plan"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, violations := ParseGenerateThinking(tt.args)
			if strings.Join(violationFields(violations), ",") != strings.Join(tt.wantFields, ",") {
				t.Fatalf("violations = %v, want fields %v", violations, tt.wantFields)
			}
			if len(tt.wantFields) == 0 && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseSendEmail(t *testing.T) {
	valid := func() map[string]interface{} {
		return map[string]interface{}{
			"to":            "team@example.com",
			"subjectPrompt": "Weekly metrics",
			"text":          "Numbers are **up**.",
		}
	}

	t.Run("defaults", func(t *testing.T) {
		got, violations := ParseSendEmail(valid())
		if len(violations) != 0 {
			t.Fatalf("unexpected violations: %v", violations)
		}
		if got.HTML != "" || len(got.Images) != 0 {
			t.Errorf("expected empty optional fields, got %+v", got)
		}
	})

	t.Run("missing text", func(t *testing.T) {
		args := valid()
		delete(args, "text")
		_, violations := ParseSendEmail(args)
		if len(violations) != 1 || violations[0].Field != "text" || violations[0].Message != "is required" {
			t.Errorf("violations = %v", violations)
		}
	})

	t.Run("invalid address", func(t *testing.T) {
		args := valid()
		args["to"] = "not an address"
		_, violations := ParseSendEmail(args)
		if len(violations) != 1 || violations[0].Field != "to" {
			t.Errorf("violations = %v", violations)
		}
	})

	t.Run("images", func(t *testing.T) {
		args := valid()
		args["images"] = []interface{}{
			map[string]interface{}{"name": "chart.png", "data": "data:image/png;base64," + encode("png")},
			map[string]interface{}{"name": "logo.png"},
			map[string]interface{}{"name": "bad.png", "data": "%%%"},
			"chart.png",
		}
		got, violations := ParseSendEmail(args)

		want := []string{"images[1].data", "images[2].data", "images[3]"}
		if strings.Join(violationFields(violations), ",") != strings.Join(want, ",") {
			t.Fatalf("violations = %v, want fields %v", violations, want)
		}
		if len(got.Images) != 3 || got.Images[0].Name != "chart.png" {
			t.Errorf("images = %+v", got.Images)
		}
	})

	t.Run("images must be an array", func(t *testing.T) {
		args := valid()
		args["images"] = "chart.png"
		_, violations := ParseSendEmail(args)
		if len(violations) != 1 || violations[0].Field != "images" {
			t.Errorf("violations = %v", violations)
		}
	})
}

func TestParseAnalyzeData(t *testing.T) {
	base := func(analysisType interface{}) map[string]interface{} {
		return map[string]interface{}{
			"fileData":     encode("a,b\n1,x\n"),
			"fileName":     "sales.csv",
			"analysisType": analysisType,
		}
	}

	tests := []struct {
		name      string
		args      map[string]interface{}
		wantField string
		wantType  AnalysisType
	}{
		{name: "basic", args: base("basic"), wantType: AnalysisBasic},
		{name: "detailed", args: base("detailed"), wantType: AnalysisDetailed},
		{name: "outside enum", args: base("wrong"), wantField: "analysisType"},
		{name: "wrong type", args: base(3.0), wantField: "analysisType"},
		{name: "missing file name", args: func() map[string]interface{} {
			a := base("basic")
			delete(a, "fileName")
			return a
		}(), wantField: "fileName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, violations := ParseAnalyzeData(tt.args)
			if tt.wantField == "" {
				if len(violations) != 0 {
					t.Fatalf("unexpected violations: %v", violations)
				}
				if got.AnalysisType != tt.wantType {
					t.Errorf("AnalysisType = %q, want %q", got.AnalysisType, tt.wantType)
				}
				return
			}
			if len(violations) != 1 || violations[0].Field != tt.wantField {
				t.Fatalf("violations = %v, want field %s", violations, tt.wantField)
			}
		})
	}

	t.Run("enum message names the allowed values", func(t *testing.T) {
		_, violations := ParseAnalyzeData(base("wrong"))
		if len(violations) != 1 {
			t.Fatalf("violations = %v", violations)
		}
		msg := violations[0].Message
		if !strings.Contains(msg, "basic") || !strings.Contains(msg, "detailed") || !strings.Contains(msg, `"wrong"`) {
			t.Errorf("message %q should list allowed values and the rejected one", msg)
		}
	})
}
