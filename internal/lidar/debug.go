package lidar

import (
	"io"
	"log"
	"os"
	"sync"
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	// Ops receives lifecycle events and actionable warnings.
	Ops io.Writer
	// Diag receives per-frame failures ("fail to load frame N: ...").
	Diag io.Writer
	// Trace receives per-frame classification telemetry.
	Trace io.Writer
}

var (
	mu          sync.RWMutex
	opsLogger   = newLogger(os.Stderr)
	diagLogger  = newLogger(os.Stderr)
	traceLogger *log.Logger
)

// SetLogWriters replaces all three streams. A nil writer silences that stream.
func SetLogWriters(w LogWriters) {
	mu.Lock()
	defer mu.Unlock()
	opsLogger = newLogger(w.Ops)
	diagLogger = newLogger(w.Diag)
	traceLogger = newLogger(w.Trace)
}

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "[lidar] ", log.LstdFlags|log.Lmicroseconds)
}

func logTo(l **log.Logger, format string, args ...interface{}) {
	mu.RLock()
	logger := *l
	mu.RUnlock()
	if logger != nil {
		logger.Printf(format, args...)
	}
}

// Opsf logs to the ops stream.
func Opsf(format string, args ...interface{}) { logTo(&opsLogger, format, args...) }

// Diagf logs to the diag stream.
func Diagf(format string, args ...interface{}) { logTo(&diagLogger, format, args...) }

// Tracef logs to the trace stream.
func Tracef(format string, args ...interface{}) { logTo(&traceLogger, format, args...) }
