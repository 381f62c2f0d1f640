package util

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(LogLevelInfo))
}

func SetLevel(level LogLevel) {
	currentLevel.Store(int32(level))
}

func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

func enabled(level LogLevel) bool {
	return LogLevel(currentLevel.Load()) <= level
}

func Debug(format string, v ...interface{}) {
	if enabled(LogLevelDebug) {
		log.Printf("[DEBUG] "+format, v...)
	}
}

func Info(format string, v ...interface{}) {
	if enabled(LogLevelInfo) {
		log.Printf("[INFO] "+format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	if enabled(LogLevelWarn) {
		log.Printf("[WARN] "+format, v...)
	}
}

func Error(format string, v ...interface{}) {
	if enabled(LogLevelError) {
		log.Printf("[ERROR] "+format, v...)
	}
}

func Fatal(format string, v ...interface{}) {
	log.Printf("[FATAL] "+format, v...)
	os.Exit(1)
}

// Logger tags every line with a component name, e.g. "journal[orders/node-1]".
type Logger struct {
	tag string
}

func NewLogger(component string, args ...interface{}) *Logger {
	if len(args) > 0 {
		component = fmt.Sprintf(component, args...)
	}
	return &Logger{tag: component}
}

func (l *Logger) Tag() string {
	return l.tag
}

func (l *Logger) Debug(format string, v ...interface{}) {
	Debug(l.tag+" "+format, v...)
}

func (l *Logger) Info(format string, v ...interface{}) {
	Info(l.tag+" "+format, v...)
}

func (l *Logger) Warn(format string, v ...interface{}) {
	Warn(l.tag+" "+format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	Error(l.tag+" "+format, v...)
}
