package prompts

import (
	"fmt"
	"regexp"
)

// variablePattern matches {{variableName}} for substitution
var variablePattern = regexp.MustCompile(`\{\{([a-zA-Z0-9_-]+)\}\}`)

// RenderTemplate performs variable substitution on a template string.
// Placeholders without a value in args are left as-is.
func RenderTemplate(template string, args map[string]interface{}) string {
	return variablePattern.ReplaceAllStringFunc(template, func(placeholder string) string {
		name := variablePattern.FindStringSubmatch(placeholder)[1]
		value, exists := args[name]
		if !exists {
			return placeholder
		}
		if s, ok := value.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", value)
	})
}
