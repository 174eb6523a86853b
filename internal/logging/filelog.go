package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lohnkonto/lohnkonto-client/internal/constants"
)

// EnableFileLogging adds a rotating log file next to the console output.
// The returned function closes the file.
func (l *Logger) EnableFileLogging(path string) (func() error, error) {
	if path == "" {
		return func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    constants.LogFileMaxSizeMB,
		MaxBackups: constants.LogFileMaxBackups,
		MaxAge:     constants.LogFileMaxAgeDays,
		Compress:   true,
	}
	l.file = file
	l.rebuild()

	return func() error {
		l.file = nil
		l.rebuild()
		return file.Close()
	}, nil
}
