// Package logger declares the logging contract shared by the board, the
// assignment coordinator and the adapters.
package logger

// Logger exposes leveled printf-style logging plus structured variants used
// for assignment and refresh traces.
type Logger interface {
	Debugf(format string, args ...any)
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Infow(msg string, fields map[string]any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
