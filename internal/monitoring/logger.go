// Package monitoring holds the process-wide logger used by the HTTP surface
// and the command-line tools.
package monitoring

import (
	"log"
	"sync"
)

var (
	mu   sync.RWMutex
	logf = log.Printf
)

// Logf writes through the current logger. It defaults to log.Printf.
func Logf(format string, v ...interface{}) {
	mu.RLock()
	f := logf
	mu.RUnlock()
	f(format, v...)
}

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	mu.Lock()
	defer mu.Unlock()
	if f == nil {
		logf = func(string, ...interface{}) {}
		return
	}
	logf = f
}

// Componentf returns a logger that prefixes every line with "[component] ".
func Componentf(component string) func(format string, v ...interface{}) {
	prefix := "[" + component + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
