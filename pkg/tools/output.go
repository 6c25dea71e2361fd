package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"mcp-insight-service/pkg/errors"
	"mcp-insight-service/pkg/logging"
)

// OutputWriter writes tool artifacts under an output directory
type OutputWriter struct {
	defaultDir string
	now        func() time.Time
	logger     *logging.StructuredLogger
}

// NewOutputWriter creates a writer whose default directory is defaultDir
func NewOutputWriter(defaultDir string, logger *logging.StructuredLogger) *OutputWriter {
	return &OutputWriter{
		defaultDir: defaultDir,
		now:        time.Now,
		logger:     logger,
	}
}

// Resolve returns dir, or the default directory when dir is empty
func (w *OutputWriter) Resolve(dir string) string {
	if strings.TrimSpace(dir) == "" {
		return w.defaultDir
	}
	return dir
}

// Stamp returns the millisecond timestamp embedded in artifact names
func (w *OutputWriter) Stamp() int64 {
	return w.now().UnixMilli()
}

// Write stores data as dir/name, creating dir when needed
func (w *OutputWriter) Write(dir, name string, data []byte) (string, error) {
	dir = w.Resolve(dir)
	path := filepath.Join(dir, name)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", writeError(path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", writeError(path, err)
	}

	w.logger.LogArtifact(strings.TrimSuffix(name, filepath.Ext(name)), path, len(data))
	return path, nil
}

func writeError(path string, err error) error {
	code := errors.ErrCodeWriteFailed
	if os.IsPermission(err) {
		code = errors.ErrCodePermissionDenied
	}
	return errors.NewFileSystemError(code, "failed to write output file", err).
		WithContext("path", path)
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ArtifactName builds <prefix>-<stamp><ext>, or <prefix>-<label>-<stamp><ext>
// with label reduced to file-name safe characters
func ArtifactName(prefix, label string, stamp int64, ext string) string {
	label = safeLabel(label)
	if label == "" {
		return fmt.Sprintf("%s-%d%s", prefix, stamp, ext)
	}
	return fmt.Sprintf("%s-%s-%d%s", prefix, label, stamp, ext)
}

// UniqueArtifactName is ArtifactName with a counter appended to the label
// while the name is already in used. The chosen name is added to used.
func UniqueArtifactName(prefix, label string, stamp int64, ext string, used map[string]bool) string {
	base := safeLabel(label)
	name := ArtifactName(prefix, base, stamp, ext)
	for n := 2; used[name]; n++ {
		suffixed := strconv.Itoa(n)
		if base != "" {
			suffixed = base + "-" + suffixed
		}
		name = ArtifactName(prefix, suffixed, stamp, ext)
	}
	used[name] = true
	return name
}

func safeLabel(label string) string {
	return strings.Trim(unsafeNameChars.ReplaceAllString(label, "_"), "_.")
}
