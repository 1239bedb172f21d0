package debug

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	once    sync.Once
	logger  *slog.Logger
	logFile = "/tmp/aichat-debug.log"
)

// SetLogFile sets the file the logger writes to. Must be called before the first GetLogger.
func SetLogFile(path string) {
	if path != "" {
		logFile = path
	}
}

// GetLogger returns a singleton slog logger instance.
// The terminal belongs to the UI so everything goes to a file.
func GetLogger() *slog.Logger {
	once.Do(func() {
		f, err := os.OpenFile(logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
			return
		}
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		}))
	})
	return logger
}
