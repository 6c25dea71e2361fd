package tools

import (
	"context"
	stderrors "errors"
	"fmt"

	"mcp-insight-service/pkg/config"
	"mcp-insight-service/pkg/errors"
	"mcp-insight-service/pkg/logging"
	"mcp-insight-service/pkg/mailer"
	"mcp-insight-service/pkg/markdown"
)

// failedEmailPrefix starts the result text of a send that did not go through
const failedEmailPrefix = "Failed to send email: "

// SubjectSource produces a subject line from a short description
type SubjectSource interface {
	Generate(ctx context.Context, subjectPrompt string) (string, error)
}

// SendEmailTool composes an HTML email with a generated subject and submits it
type SendEmailTool struct {
	cfg      *config.Config
	subjects SubjectSource
	sender   mailer.Sender
	markdown *markdown.Renderer
	output   *OutputWriter
	schema   *ArgumentSchema
	logger   *logging.StructuredLogger
}

// NewSendEmailTool creates the send-email tool
func NewSendEmailTool(cfg *config.Config, subjects SubjectSource, sender mailer.Sender, md *markdown.Renderer, output *OutputWriter, logger *logging.StructuredLogger) (*SendEmailTool, error) {
	schema, err := ReflectSchema(ToolSendEmail, &SendEmailArgs{})
	if err != nil {
		return nil, err
	}
	return &SendEmailTool{
		cfg:      cfg,
		subjects: subjects,
		sender:   sender,
		markdown: md,
		output:   output,
		schema:   schema,
		logger:   logger,
	}, nil
}

// Name returns the tool name
func (t *SendEmailTool) Name() string { return ToolSendEmail }

// Description returns the tool description
func (t *SendEmailTool) Description() string {
	return "Send an HTML email with a generated subject line; the body is given as markdown text or HTML and images are embedded inline"
}

// Schema returns the input schema
func (t *SendEmailTool) Schema() *ArgumentSchema { return t.schema }

// Parse validates the raw arguments
func (t *SendEmailTool) Parse(arguments map[string]interface{}) (interface{}, []errors.FieldViolation) {
	return ParseSendEmail(arguments)
}

// Execute builds and sends the email. Failures of the subject generator or
// the mail relay are reported in the result text; missing credentials fail
// the call.
func (t *SendEmailTool) Execute(ctx context.Context, raw interface{}) (string, error) {
	args := raw.(SendEmailArgs)

	if err := t.cfg.RequireMailer(); err != nil {
		return "", err
	}

	subject, err := t.subjects.Generate(ctx, args.SubjectPrompt)
	if err != nil {
		if stderrors.Is(err, errors.ErrConfiguration) {
			return "", err
		}
		return t.failed(args.To, err), nil
	}

	msg, err := t.compose(args, subject)
	if err != nil {
		return "", err
	}

	name := ArtifactName("email", "", t.output.Stamp(), ".html")
	path, err := t.output.Write("", name, []byte(msg.HTML))
	if err != nil {
		return "", err
	}

	if err := t.sender.Send(ctx, msg); err != nil {
		return t.failed(args.To, err), nil
	}

	t.logger.WithContext("subject", subject).
		WithContext("attachments", len(msg.Attachments)).
		Info("Email sent")

	return fmt.Sprintf("Email sent successfully to %s\nSubject: %s\nSaved to: %s", args.To, subject, path), nil
}

// compose decodes the images and renders the HTML body. Without html the
// body is the markdown rendering of text.
func (t *SendEmailTool) compose(args SendEmailArgs, subject string) (*mailer.EmailMessage, error) {
	attachments := make([]mailer.Attachment, 0, len(args.Images))
	for i, img := range args.Images {
		att, err := mailer.DecodeImage(img.Name, img.Data, i+1)
		if err != nil {
			return nil, errors.NewArgumentsError(ToolSendEmail, []errors.FieldViolation{{
				Field:   fmt.Sprintf("images[%d].data", i),
				Message: err.Error(),
			}})
		}
		attachments = append(attachments, att)
	}

	body := args.HTML
	if body == "" {
		rendered, err := t.markdown.Render(args.Text)
		if err != nil {
			return nil, errors.NewSystemError(errors.ErrCodeToolExecutionFailed, "failed to render email text", err)
		}
		body = rendered
	}

	html, err := mailer.ComposeHTML(subject, body, attachments)
	if err != nil {
		return nil, errors.NewSystemError(errors.ErrCodeToolExecutionFailed, "failed to compose email", err)
	}

	return &mailer.EmailMessage{
		From:        t.cfg.Mail.From,
		To:          args.To,
		Subject:     subject,
		Text:        args.Text,
		HTML:        html,
		Attachments: attachments,
	}, nil
}

func (t *SendEmailTool) failed(to string, err error) string {
	t.logger.WithContext("recipient", to).
		WithError(err).
		Warn("Email not sent")
	return failedEmailPrefix + err.Error()
}
