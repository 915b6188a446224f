package ftp

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// NewLogger builds the default tint-backed structured logger used when
// the caller does not inject one of its own.
func NewLogger(level slog.Level) *slog.Logger {
	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	})
	return slog.New(handler)
}
