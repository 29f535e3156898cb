package cnx

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	ErrorLevel
)

// Logger is the logging surface connectors and handlers depend on. The
// contract layer itself never logs; instrumentation decorators and the HTTP
// pieces do.
type Logger interface {
	Debug(msg string, args ...any)
	Debugf(format string, a ...any)
	Info(msg string, args ...any)
	Infof(format string, a ...any)
	Error(msg string, args ...any)
	Errorf(format string, a ...any)
	With(args ...any) Logger
}

type slogLogger struct {
	logger *slog.Logger
}

// NewLogger builds a slog-backed Logger writing to stdout. Output is plain
// text unless LOG_FORMAT=json is set.
func NewLogger(logLevelStr string) Logger {
	return newLogger(os.Stdout, logLevelStr, os.Getenv("LOG_FORMAT") == "json")
}

func newLogger(w io.Writer, logLevelStr string, jsonFormat bool) Logger {
	opts := &slog.HandlerOptions{Level: slogLevel(toValidLevel(logLevelStr))}
	var handler slog.Handler
	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &slogLogger{logger: slog.New(handler)}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *slogLogger) Debugf(format string, a ...any) { l.logger.Debug(fmt.Sprintf(format, a...)) }
func (l *slogLogger) Infof(format string, a ...any)  { l.logger.Info(fmt.Sprintf(format, a...)) }
func (l *slogLogger) Errorf(format string, a ...any) { l.logger.Error(fmt.Sprintf(format, a...)) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any)  {}
func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Info(string, ...any)   {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Error(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}
func (noopLogger) With(...any) Logger    { return noopLogger{} }

func NewNoopLogger() Logger {
	return noopLogger{}
}

func toValidLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug", "dbg":
		return DebugLevel
	case "info", "inf":
		return InfoLevel
	case "error", "err":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewRequestLogger returns a chi RequestLogger middleware emitting structured
// request lifecycle logs through the provided Logger.
func NewRequestLogger(logger Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = NewNoopLogger()
	}
	return chimiddleware.RequestLogger(&requestLogFormatter{logger: logger})
}

type requestLogFormatter struct {
	logger Logger
}

func (f *requestLogFormatter) NewLogEntry(r *http.Request) chimiddleware.LogEntry {
	return &requestLogEntry{
		logger: f.logger.With(
			"request_id", RequestIDFrom(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
		),
		start: time.Now(),
	}
}

type requestLogEntry struct {
	logger Logger
	start  time.Time
}

func (e *requestLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	e.logger.Info("request completed",
		"status", status,
		"bytes", bytes,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

func (e *requestLogEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error("request panic",
		"panic", fmt.Sprint(v),
		"stack", string(stack),
	)
}
