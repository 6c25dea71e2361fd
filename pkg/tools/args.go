package tools

import (
	"fmt"
	"net/mail"
	"strings"

	"mcp-insight-service/pkg/datauri"
	"mcp-insight-service/pkg/errors"
)

// AnalysisType selects how much work analyze-data does
type AnalysisType string

// Supported analysis types
const (
	AnalysisBasic    AnalysisType = "basic"
	AnalysisDetailed AnalysisType = "detailed"
)

// GenerateThinkingArgs are the arguments of generate-thinking
type GenerateThinkingArgs struct {
	Prompt    string `json:"prompt" jsonschema_description:"The question or task to think through"`
	OutputDir string `json:"outputDir,omitempty" jsonschema_description:"Directory for the saved markdown file; defaults to the server output directory"`
}

// ImageAttachment is one inline image for send-email
type ImageAttachment struct {
	Name string `json:"name" jsonschema_description:"File name of the image, e.g. chart.png"`
	Data string `json:"data" jsonschema_description:"Base64 image data, optionally as a data URI"`
}

// SendEmailArgs are the arguments of send-email
type SendEmailArgs struct {
	To            string            `json:"to" jsonschema_description:"Recipient email address"`
	SubjectPrompt string            `json:"subjectPrompt" jsonschema_description:"Short description the subject line is generated from"`
	Text          string            `json:"text" jsonschema_description:"Message body as plain text or markdown"`
	HTML          string            `json:"html,omitempty" jsonschema_description:"Optional HTML body; derived from text when omitted"`
	Images        []ImageAttachment `json:"images,omitempty" jsonschema_description:"Images embedded inline in the HTML body"`
}

// AnalyzeDataArgs are the arguments of analyze-data
type AnalyzeDataArgs struct {
	FileData     string       `json:"fileData" jsonschema_description:"Base64 encoded file contents"`
	FileName     string       `json:"fileName" jsonschema_description:"Original file name; the extension selects the parser (.csv, .xlsx, .xls)"`
	AnalysisType AnalysisType `json:"analysisType" jsonschema:"enum=basic,enum=detailed" jsonschema_description:"basic computes statistics and charts; detailed also asks the model for insights"`
	OutputDir    string       `json:"outputDir,omitempty" jsonschema_description:"Directory for charts and the report; defaults to the server output directory"`
}

// argReader pulls typed fields out of an untyped argument map and collects
// one violation per offending field
type argReader struct {
	args       map[string]interface{}
	violations []errors.FieldViolation
}

func (r *argReader) fail(field, format string, a ...interface{}) {
	r.violations = append(r.violations, errors.FieldViolation{
		Field:   field,
		Message: fmt.Sprintf(format, a...),
	})
}

func (r *argReader) requiredString(field string) string {
	raw, ok := r.args[field]
	if !ok || raw == nil {
		r.fail(field, "is required")
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		r.fail(field, "must be a string, got %s", jsonType(raw))
		return ""
	}
	if strings.TrimSpace(s) == "" {
		r.fail(field, "must not be empty")
		return ""
	}
	return s
}

// optionalString returns "" when the field is absent, null or empty
func (r *argReader) optionalString(field string) string {
	raw, ok := r.args[field]
	if !ok || raw == nil {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		r.fail(field, "must be a string, got %s", jsonType(raw))
		return ""
	}
	return strings.TrimSpace(s)
}

func jsonType(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, float32, int, int64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// ParseGenerateThinking validates generate-thinking arguments
func ParseGenerateThinking(args map[string]interface{}) (GenerateThinkingArgs, []errors.FieldViolation) {
	r := &argReader{args: args}
	out := GenerateThinkingArgs{
		Prompt:    r.requiredString("prompt"),
		OutputDir: r.optionalString("outputDir"),
	}
	return out, r.violations
}

// ParseSendEmail validates send-email arguments
func ParseSendEmail(args map[string]interface{}) (SendEmailArgs, []errors.FieldViolation) {
	r := &argReader{args: args}
	out := SendEmailArgs{
		To:            r.requiredString("to"),
		SubjectPrompt: r.requiredString("subjectPrompt"),
		Text:          r.requiredString("text"),
		HTML:          r.optionalString("html"),
	}

	if out.To != "" {
		if _, err := mail.ParseAddress(out.To); err != nil {
			r.fail("to", "must be a valid email address")
		}
	}

	raw, ok := args["images"]
	if ok && raw != nil {
		items, isList := raw.([]interface{})
		if !isList {
			r.fail("images", "must be an array, got %s", jsonType(raw))
		}
		for i, item := range items {
			field := fmt.Sprintf("images[%d]", i)
			obj, isObj := item.(map[string]interface{})
			if !isObj {
				r.fail(field, "must be an object with name and data, got %s", jsonType(item))
				continue
			}
			ir := &argReader{args: obj}
			img := ImageAttachment{
				Name: ir.requiredString("name"),
				Data: ir.requiredString("data"),
			}
			if img.Data != "" {
				if _, _, err := datauri.Decode(img.Data); err != nil {
					ir.fail("data", "must be base64 image data")
				}
			}
			for _, v := range ir.violations {
				r.fail(field+"."+v.Field, "%s", v.Message)
			}
			out.Images = append(out.Images, img)
		}
	}

	return out, r.violations
}

// ParseAnalyzeData validates analyze-data arguments
func ParseAnalyzeData(args map[string]interface{}) (AnalyzeDataArgs, []errors.FieldViolation) {
	r := &argReader{args: args}
	out := AnalyzeDataArgs{
		FileData:  r.requiredString("fileData"),
		FileName:  r.requiredString("fileName"),
		OutputDir: r.optionalString("outputDir"),
	}

	switch t := AnalysisType(r.requiredString("analysisType")); t {
	case "":
	case AnalysisBasic, AnalysisDetailed:
		out.AnalysisType = t
	default:
		r.fail("analysisType", "must be one of %s, %s; got %q", AnalysisBasic, AnalysisDetailed, string(t))
	}

	return out, r.violations
}
