package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mdobak/go-xerrors"
	console "github.com/phsym/console-slog"
	slogmulti "github.com/samber/slog-multi"
)

const (
	LevelSecurity = slog.Level(16)

	SeverityLow    = "Low"
	SeverityMedium = "Medium"
	SeverityHigh   = "High"

	CategoryAuthentication  = "Authentication"
	CategoryAuthorization   = "Authorization"
	CategoryInputValidation = "Input Validation"

	SourceCLI        = "cli"
	SourceToolkit    = "toolkit"
	SourceWebService = "webservice"

	securityMessage = "security_log"
)

// A security relevant event. Entries never carry key, certificate
// or password material.
type SecurityLogEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	Severity        string    `json:"severity"`
	Category        string    `json:"category"`
	Description     string    `json:"description"`
	Details         string    `json:"details,omitempty"`
	Source          string    `json:"source,omitempty"`
	OffenderAddress string    `json:"offender_address,omitempty"`
}

func (entry SecurityLogEntry) attrs() []slog.Attr {
	return []slog.Attr{
		slog.Time("timestamp", entry.Timestamp),
		slog.String("severity", entry.Severity),
		slog.String("category", entry.Category),
		slog.String("description", entry.Description),
		slog.String("details", entry.Details),
		slog.String("source", entry.Source),
		slog.String("offender_address", entry.OffenderAddress),
	}
}

type Logger struct {
	slog *slog.Logger
}

// Returns a debug logger that writes to the console only
func DefaultLogger() *Logger {
	return NewLogger(slog.LevelDebug, nil)
}

func NewDiscardLogger() *Logger {
	return &Logger{slog: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

// Creates a logger that writes JSON lines to w. At debug level
// entries are also fanned out to a colored console handler on
// stdout. A nil writer discards the JSON output.
func NewLogger(level slog.Level, w io.Writer) *Logger {
	if w == nil {
		w = io.Discard
	}
	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	})
	if level <= slog.LevelDebug {
		handler = slogmulti.Fanout(
			handler,
			console.NewHandler(os.Stdout, &console.HandlerOptions{Level: level}),
		)
	}
	return &Logger{slog: slog.New(handler)}
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		if level, ok := a.Value.Any().(slog.Level); ok && level == LevelSecurity {
			a.Value = slog.StringValue("SECURITY")
		}
	case "error":
		// %+v renders the xerrors stack trace
		if err, ok := a.Value.Any().(error); ok {
			a.Value = slog.StringValue(fmt.Sprintf("%+v", err))
		}
	}
	return a
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

func (l *Logger) log(level slog.Level, message string, args ...any) {
	if l == nil || l.slog == nil {
		slog.Log(context.Background(), level, message, args...)
		return
	}
	l.slog.Log(context.Background(), level, message, args...)
}

func (l *Logger) Debug(message string, args ...any) {
	l.log(slog.LevelDebug, message, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	l.log(slog.LevelDebug, fmt.Sprintf(format, args...))
}

func (l *Logger) Info(message string, args ...any) {
	l.log(slog.LevelInfo, message, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.log(slog.LevelInfo, fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(message string, args ...any) {
	l.log(slog.LevelWarn, message, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.log(slog.LevelWarn, fmt.Sprintf(format, args...))
}

// Logs the error message with a stack trace captured at the call site
func (l *Logger) Error(err error, args ...any) {
	l.log(slog.LevelError, err.Error(), append([]any{slog.Any("error", xerrors.New(err))}, args...)...)
}

// Logs a security event at the SECURITY level, above error, so
// it is never filtered out
func (l *Logger) Security(entry SecurityLogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if l == nil || l.slog == nil {
		return
	}
	l.slog.LogAttrs(context.Background(), LevelSecurity, securityMessage, entry.attrs()...)
}
