// ABOUTME: Structured logging setup
// ABOUTME: Configures a JSON slog logger for the service
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup returns a JSON-emitting slog.Logger writing to w.
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler)
}

// SetupDefault installs the JSON logger as the process-wide default.
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w))
}
