package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"mcp-insight-service/pkg/errors"
)

// schemaBaseURL names compiled schemas; nothing is fetched from it
const schemaBaseURL = "https://mcp-insight.local/schemas/"

var printer = message.NewPrinter(language.English)

// ArgumentSchema is the advertised input schema of a tool and its compiled form
type ArgumentSchema struct {
	doc      map[string]interface{}
	compiled *jsonschema.Schema
}

// ReflectSchema builds the input schema for the argument struct v
func ReflectSchema(toolName string, v interface{}) (*ArgumentSchema, error) {
	r := &invopop.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}

	raw, err := json.Marshal(r.Reflect(v))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema for %s: %w", toolName, err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode schema for %s: %w", toolName, err)
	}

	compiled, err := compileSchema(toolName, raw)
	if err != nil {
		return nil, err
	}

	delete(doc, "$id")
	delete(doc, "$schema")
	return &ArgumentSchema{doc: doc, compiled: compiled}, nil
}

func compileSchema(toolName string, raw []byte) (*jsonschema.Schema, error) {
	loaded, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to load schema for %s: %w", toolName, err)
	}
	if m, ok := loaded.(map[string]interface{}); ok {
		delete(m, "$id")
	}

	url := schemaBaseURL + toolName + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, loaded); err != nil {
		return nil, fmt.Errorf("failed to add schema for %s: %w", toolName, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema for %s: %w", toolName, err)
	}
	return compiled, nil
}

// Document returns a copy of the schema advertised in tools/list
func (s *ArgumentSchema) Document() map[string]interface{} {
	out := make(map[string]interface{}, len(s.doc))
	for k, v := range s.doc {
		out[k] = v
	}
	return out
}

// Validate checks arguments against the compiled schema
func (s *ArgumentSchema) Validate(arguments map[string]interface{}) []errors.FieldViolation {
	var instance interface{} = arguments
	if arguments == nil {
		instance = map[string]interface{}{}
	}

	err := s.compiled.Validate(instance)
	if err == nil {
		return nil
	}

	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []errors.FieldViolation{{Field: "arguments", Message: err.Error()}}
	}

	var violations []errors.FieldViolation
	collectViolations(verr, &violations)
	return violations
}

// collectViolations flattens the leaves of a validation error tree
func collectViolations(verr *jsonschema.ValidationError, out *[]errors.FieldViolation) {
	if len(verr.Causes) > 0 {
		for _, cause := range verr.Causes {
			collectViolations(cause, out)
		}
		return
	}

	location := fieldPath(verr.InstanceLocation)

	if req, ok := verr.ErrorKind.(*kind.Required); ok {
		for _, missing := range req.Missing {
			field := missing
			if location != "" {
				field = location + "." + missing
			}
			*out = append(*out, errors.FieldViolation{Field: field, Message: "is required"})
		}
		return
	}

	if location == "" {
		location = "arguments"
	}
	*out = append(*out, errors.FieldViolation{
		Field:   location,
		Message: verr.ErrorKind.LocalizedString(printer),
	})
}

// fieldPath turns ["images","0","data"] into images[0].data
func fieldPath(location []string) string {
	var sb strings.Builder
	for _, part := range location {
		if _, err := strconv.Atoi(part); err == nil {
			sb.WriteString("[" + part + "]")
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(part)
	}
	return sb.String()
}
