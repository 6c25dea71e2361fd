package tools

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"mcp-insight-service/pkg/errors"
)

func TestArtifactName(t *testing.T) {
	tests := []struct {
		prefix, label string
		want          string
	}{
		{"report", "", "report-42.html"},
		{"chart", "revenue", "chart-revenue-42.html"},
		{"chart", "Unit Price ($)", "chart-Unit_Price-42.html"},
		{"chart", "../../etc/passwd", "chart-etc_passwd-42.html"},
		{"chart", "///", "chart-42.html"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := ArtifactName(tt.prefix, tt.label, 42, ".html"); got != tt.want {
				t.Errorf("ArtifactName(%q, %q) = %q, want %q", tt.prefix, tt.label, got, tt.want)
			}
		})
	}
}

func TestUniqueArtifactName(t *testing.T) {
	used := make(map[string]bool)
	labels := []string{"price (usd)", "price [usd]", "price_usd", "%%", "$$", "2"}
	want := []string{
		"chart-price_usd-42.html",
		"chart-price_usd-2-42.html",
		"chart-price_usd-3-42.html",
		"chart-42.html",
		"chart-2-42.html",
		"chart-2-2-42.html",
	}

	for i, label := range labels {
		if got := UniqueArtifactName("chart", label, 42, ".html", used); got != want[i] {
			t.Errorf("UniqueArtifactName(%q) = %q, want %q", label, got, want[i])
		}
	}
	if len(used) != len(labels) {
		t.Errorf("expected %d recorded names, got %d", len(labels), len(used))
	}
}

func TestOutputWriter(t *testing.T) {
	dir := t.TempDir()
	w := newTestOutput(filepath.Join(dir, "default"))

	t.Run("Resolve", func(t *testing.T) {
		if got := w.Resolve("  "); got != filepath.Join(dir, "default") {
			t.Errorf("Resolve(blank) = %q", got)
		}
		if got := w.Resolve("elsewhere"); got != "elsewhere" {
			t.Errorf("Resolve(elsewhere) = %q", got)
		}
	})

	t.Run("Write creates directories", func(t *testing.T) {
		path, err := w.Write("", "a.txt", []byte("hi"))
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil || string(data) != "hi" {
			t.Errorf("read back %q, %v", data, err)
		}
	})

	t.Run("Write into a file path fails", func(t *testing.T) {
		blocker := filepath.Join(dir, "blocker")
		if err := os.WriteFile(blocker, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := w.Write(blocker, "a.txt", []byte("hi"))

		var se *errors.StructuredError
		if !stderrors.As(err, &se) || se.Category != errors.ErrorCategoryFileSystem {
			t.Fatalf("expected filesystem error, got %v", err)
		}
	})
}
