// Package logger collects messages produced during plan generation so they
// can be shown together once the plan is ready, instead of interleaved with
// progress output.
package logger

import "fmt"

type Level string

const (
	Info  Level = "info"
	Warn  Level = "warn"
	Error Level = "error"
)

type Msg struct {
	Level Level
	Msg   string
}

type Logger struct {
	Logs []Msg
}

func NewLogger() *Logger {
	return &Logger{
		Logs: []Msg{},
	}
}

func (l *Logger) LogInfo(format string, args ...interface{}) {
	l.log(Info, format, args...)
}

func (l *Logger) LogWarn(format string, args ...interface{}) {
	l.log(Warn, format, args...)
}

func (l *Logger) LogError(format string, args ...interface{}) {
	l.log(Error, format, args...)
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.Logs = append(l.Logs, Msg{
		Level: level,
		Msg:   msg,
	})
}
