package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// Logger wraps an hclog logger with the file handle it writes to.
type Logger struct {
	hclog.Logger
	file *os.File
}

// New appends to <logDir>/protocol.log so storage degrades and swallowed
// collaborator failures can be inspected after the run.
func New(logDir, level string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, "protocol.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{Logger: NewWriter(f, level), file: f}, nil
}

func NewWriter(w io.Writer, level string) hclog.Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "protocol",
		Level:  lvl,
		Output: w,
	})
}

func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
