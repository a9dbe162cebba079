package bthost

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level is the stack log level. Higher values are more verbose.
type Level int

// Stack log levels, matching STACK_LOG_LEVEL.
const (
	LevelNone Level = iota
	LevelErr
	LevelWrn
	LevelInf
	LevelDbg
)

// DefaultLevel is the threshold used until SetLogLevel is called.
const DefaultLevel = LevelInf

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelErr:
		return "err"
	case LevelWrn:
		return "wrn"
	case LevelInf:
		return "inf"
	case LevelDbg:
		return "dbg"
	default:
		return "unknown"
	}
}

func (l Level) logrus() logrus.Level {
	switch {
	case l <= LevelNone:
		return logrus.PanicLevel
	case l == LevelErr:
		return logrus.ErrorLevel
	case l == LevelWrn:
		return logrus.WarnLevel
	case l == LevelInf:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

type Logger interface {
	Info(...interface{})
	Debug(...interface{})
	Error(...interface{})
	Warn(...interface{})

	Infof(string, ...interface{})
	Debugf(string, ...interface{})
	Errorf(string, ...interface{})
	Warnf(string, ...interface{})

	ChildLogger(tags map[string]interface{}) Logger
}

var logger Logger
var loggerMu sync.Mutex

var level = DefaultLevel
var levelMu sync.RWMutex

// SetLogLevel changes the emission threshold. Levels outside 0..4 are clamped.
func SetLogLevel(l Level) {
	if l < LevelNone {
		l = LevelNone
	}
	if l > LevelDbg {
		l = LevelDbg
	}

	levelMu.Lock()
	level = l
	levelMu.Unlock()

	if lg, ok := GetLogger().(*defaultLogger); ok {
		lg.Entry.Logger.SetLevel(l.logrus())
	}
}

// LogLevel returns the current threshold.
func LogLevel() Level {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return level
}

// LevelCheck reports whether a message at l would be emitted.
func LevelCheck(l Level) bool {
	return l > LevelNone && l <= LogLevel()
}

func SetLogger(l Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

func GetLogger() Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logger == nil {
		logger = buildDefaultLogger()
	}

	return logger
}

type defaultLogger struct {
	*logrus.Entry
}

func buildDefaultLogger() Logger {
	l := &logrus.Logger{
		Formatter: &logrus.TextFormatter{DisableTimestamp: true},
		Level:     LogLevel().logrus(),
		Out:       os.Stderr,
		Hooks:     make(logrus.LevelHooks),
		ExitFunc:  os.Exit,
	}

	return &defaultLogger{Entry: l.WithFields(map[string]interface{}{})}
}

func (d *defaultLogger) ChildLogger(ff map[string]interface{}) Logger {
	nl := &defaultLogger{d.Entry.WithFields(ff)}
	return nl
}

// The gated emitters check the stack threshold before handing the message
// to the logger, so a replacement Logger sees only what would be emitted.

// LogErr emits at LevelErr.
func LogErr(l Logger, format string, args ...interface{}) {
	if LevelCheck(LevelErr) {
		l.Errorf(format, args...)
	}
}

// LogWrn emits at LevelWrn.
func LogWrn(l Logger, format string, args ...interface{}) {
	if LevelCheck(LevelWrn) {
		l.Warnf(format, args...)
	}
}

// LogInf emits at LevelInf.
func LogInf(l Logger, format string, args ...interface{}) {
	if LevelCheck(LevelInf) {
		l.Infof(format, args...)
	}
}

// LogDbg emits at LevelDbg.
func LogDbg(l Logger, format string, args ...interface{}) {
	if LevelCheck(LevelDbg) {
		l.Debugf(format, args...)
	}
}
