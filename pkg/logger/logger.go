package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/twscan/pkg/config"
)

// Field names shared by every component so log queries stay uniform
const (
	FieldStock  = "stock_code"
	FieldRun    = "run_id"
	FieldModule = "module"
)

// Logger is a structured logger wrapper around zerolog
// ⭐ SSOT: 모든 로깅은 이 패키지를 통해서만 수행
type Logger struct {
	zlog zerolog.Logger
}

// New creates a Logger on stdout from config
// ⭐ SSOT: zerolog 인스턴스는 여기서만 생성
func New(cfg *config.Config) *Logger {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter creates a Logger writing to w.
// "console" and "pretty" render human-readable lines, anything else is JSON.
// The level applies to this logger only; the zerolog global level is untouched.
func NewWithWriter(w io.Writer, cfg *config.Config) *Logger {
	output := w
	if cfg.LogFormat == "console" || cfg.LogFormat == "pretty" {
		output = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	zlog := zerolog.New(output).
		Level(parseLogLevel(cfg.LogLevel)).
		With().
		Timestamp().
		Str("service", "twscan").
		Str("env", cfg.Env).
		Logger()

	return &Logger{zlog: zlog}
}

// Nop returns a Logger that discards everything
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

func parseLogLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "trace", "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Level reports the minimum level this logger writes
func (l *Logger) Level() zerolog.Level {
	return l.zlog.GetLevel()
}

func (l *Logger) Debug(msg string) { l.zlog.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zlog.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zlog.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zlog.Error().Msg(msg) }

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zlog.Warn().Msgf(format, args...)
}

// WithField returns a child logger with one extra field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zlog: l.zlog.With().Interface(key, value).Logger()}
}

// WithFields returns a child logger with several extra fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zlog: ctx.Logger()}
}

// WithError returns a child logger carrying err
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zlog: l.zlog.With().Err(err).Logger()}
}

// WithModule tags the component that owns the logger
func (l *Logger) WithModule(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str(FieldModule, name).Logger()}
}

// WithStock tags an instrument code
func (l *Logger) WithStock(code string) *Logger {
	return &Logger{zlog: l.zlog.With().Str(FieldStock, code).Logger()}
}

// WithRun tags a scan run id
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{zlog: l.zlog.With().Str(FieldRun, runID).Logger()}
}
