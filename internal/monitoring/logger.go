package monitoring

import (
	"io"
	"log"
	"strings"
)

// Logf is the process-wide diagnostic logger used outside the stage
// packages (CLI, storage migrations). It defaults to log.Printf but may be
// replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Writer adapts Logf to an io.Writer so stage log streams can be routed
// through it. Each Write becomes one Logf call with the trailing newline
// trimmed.
func Writer() io.Writer { return logfWriter{} }

type logfWriter struct{}

func (logfWriter) Write(p []byte) (int, error) {
	Logf("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
