package tools

import (
	"context"
	"fmt"
	"strings"

	"mcp-insight-service/pkg/errors"
	"mcp-insight-service/pkg/llm"
	"mcp-insight-service/pkg/logging"
	"mcp-insight-service/pkg/markdown"
	"mcp-insight-service/pkg/prompts"
)

// GenerateThinkingTool asks the model to reason through a prompt and saves
// the answer as markdown
type GenerateThinkingTool struct {
	generator llm.Generator
	prompts   llm.Renderer
	markdown  *markdown.Renderer
	output    *OutputWriter
	schema    *ArgumentSchema
	logger    *logging.StructuredLogger
}

// NewGenerateThinkingTool creates the generate-thinking tool
func NewGenerateThinkingTool(generator llm.Generator, prompts llm.Renderer, md *markdown.Renderer, output *OutputWriter, logger *logging.StructuredLogger) (*GenerateThinkingTool, error) {
	schema, err := ReflectSchema(ToolGenerateThinking, &GenerateThinkingArgs{})
	if err != nil {
		return nil, err
	}
	return &GenerateThinkingTool{
		generator: generator,
		prompts:   prompts,
		markdown:  md,
		output:    output,
		schema:    schema,
		logger:    logger,
	}, nil
}

// Name returns the tool name
func (t *GenerateThinkingTool) Name() string { return ToolGenerateThinking }

// Description returns the tool description
func (t *GenerateThinkingTool) Description() string {
	return "Think through a question or task step by step with the language model and save the answer as a markdown file"
}

// Schema returns the input schema
func (t *GenerateThinkingTool) Schema() *ArgumentSchema { return t.schema }

// Parse validates the raw arguments
func (t *GenerateThinkingTool) Parse(arguments map[string]interface{}) (interface{}, []errors.FieldViolation) {
	return ParseGenerateThinking(arguments)
}

// Execute generates the answer and writes thinking-<ms>.md
func (t *GenerateThinkingTool) Execute(ctx context.Context, raw interface{}) (string, error) {
	args := raw.(GenerateThinkingArgs)

	prompt, err := t.prompts.Render(prompts.TemplateThinking, map[string]interface{}{
		"prompt": args.Prompt,
	})
	if err != nil {
		return "", err
	}

	text, err := t.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)

	name := ArtifactName("thinking", "", t.output.Stamp(), ".md")
	path, err := t.output.Write(args.OutputDir, name, []byte(text+"\n"))
	if err != nil {
		return "", err
	}

	t.logger.WithContext("title", t.markdown.ExtractTitle(text)).
		WithContext("path", path).
		Info("Thinking saved")

	return fmt.Sprintf("%s\n\nSaved to: %s", text, path), nil
}
