package tools

import (
	"context"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mcp-insight-service/pkg/config"
	"mcp-insight-service/pkg/logging"
	"mcp-insight-service/pkg/mailer"
	"mcp-insight-service/pkg/markdown"
	"mcp-insight-service/pkg/prompts"
)

// fakeGenerator returns a fixed reply and records every prompt
type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeGenerator) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

type fakeSubjects struct {
	subject string
	err     error
}

func (f *fakeSubjects) Generate(context.Context, string) (string, error) {
	return f.subject, f.err
}

type fakeSender struct {
	err  error
	sent []*mailer.EmailMessage
}

func (f *fakeSender) Send(_ context.Context, msg *mailer.EmailMessage) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func testLogger() *logging.StructuredLogger {
	return logging.NewLoggingManagerWithWriter(io.Discard).GetLogger("test")
}

func newTestOutput(dir string) *OutputWriter {
	w := NewOutputWriter(dir, testLogger())
	w.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return w
}

func mailConfig() *config.Config {
	cfg := config.Default()
	cfg.Mail.Username = "reports@example.com"
	cfg.Mail.Password = "app-password"
	cfg.Mail.From = "reports@example.com"
	return cfg
}

func newPromptManager() *prompts.PromptManager {
	return prompts.NewPromptManager("", nil)
}

func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, filepath.Base(e.Name()))
	}
	return names
}

func newThinkingTool(t *testing.T, gen *fakeGenerator, dir string) *GenerateThinkingTool {
	t.Helper()
	tool, err := NewGenerateThinkingTool(gen, newPromptManager(), markdown.NewRenderer(), newTestOutput(dir), testLogger())
	if err != nil {
		t.Fatalf("NewGenerateThinkingTool: %v", err)
	}
	return tool
}

func newEmailTool(t *testing.T, cfg *config.Config, subjects SubjectSource, sender mailer.Sender, dir string) *SendEmailTool {
	t.Helper()
	tool, err := NewSendEmailTool(cfg, subjects, sender, markdown.NewRenderer(), newTestOutput(dir), testLogger())
	if err != nil {
		t.Fatalf("NewSendEmailTool: %v", err)
	}
	return tool
}

func newAnalyzeTool(t *testing.T, gen *fakeGenerator, dir string) *AnalyzeDataTool {
	t.Helper()
	tool, err := NewAnalyzeDataTool(gen, newPromptManager(), markdown.NewRenderer(), newTestOutput(dir), testLogger())
	if err != nil {
		t.Fatalf("NewAnalyzeDataTool: %v", err)
	}
	return tool
}

func newTestManager(t *testing.T, dir string, gen *fakeGenerator, sender *fakeSender) *ToolManager {
	t.Helper()
	logs := logging.NewLoggingManagerWithWriter(io.Discard)
	tm := NewToolManager(NewToolExecutor(time.Second, testLogger()), logs)

	for _, tool := range []Tool{
		newThinkingTool(t, gen, dir),
		newEmailTool(t, mailConfig(), &fakeSubjects{subject: "Quarterly revenue summary and regional performance notes"}, sender, dir),
		newAnalyzeTool(t, gen, dir),
	} {
		if err := tm.RegisterTool(tool); err != nil {
			t.Fatalf("RegisterTool: %v", err)
		}
	}
	return tm
}
