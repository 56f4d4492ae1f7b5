package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the fluentnotes logger: human-readable text on stderr
// plus JSON appended to the log file (FLUENTNOTES_LOG_FILE). The returned
// cleanup closes the file. If the file cannot be opened the logger falls
// back to stderr only.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	opts := &slog.HandlerOptions{Level: level}
	stderrHandler := slog.NewTextHandler(os.Stderr, opts)

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Error("failed to open log file, logging to stderr only", "error", err, "file", logFile)
		return slog.New(stderrHandler), func() error { return nil }
	}

	logger := slog.New(slogmulti.Fanout(
		stderrHandler,
		slog.NewJSONHandler(file, opts),
	))
	return logger, file.Close
}

// SetupLoggerWithWriters builds the same dual-output logger over arbitrary
// writers, for tests.
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(stderr, opts),
		slog.NewJSONHandler(file, opts),
	))
}
