package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	out    io.Writer = os.Stdout
	format           = ""
	level            = zerolog.InfoLevel
)

// Configure sets the output, format ("json" or "console") and minimum level
// for loggers created afterwards. An empty format falls back to APP_ENV:
// console when APP_ENV=dev, json otherwise.
func Configure(w io.Writer, fmtName, lvl string) error {
	parsed := zerolog.InfoLevel
	if lvl != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(lvl))
		if err != nil {
			return err
		}
		parsed = l
	}
	mu.Lock()
	defer mu.Unlock()
	if w != nil {
		out = w
	}
	format = strings.ToLower(fmtName)
	level = parsed
	return nil
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a logger whose entries carry the component field.
func NewZerologLogger(component string) Logger {
	mu.RLock()
	w, f, l := out, format, level
	mu.RUnlock()
	if f == "" && strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		f = "console"
	}
	if f == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(w).Level(l).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Infow(msg string, fields map[string]any) {
	l.log.Info().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
