package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Log is the process-wide structured logger.
var Log *slog.Logger

func init() {
	Init("info")
}

// Init configures the global logger at the given level. Unknown levels
// fall back to info.
func Init(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	Log = slog.New(handler)
}
