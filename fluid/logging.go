package fluid

import (
	"fmt"
	"io"
	"os"
)

// logWriter is where Logf sends human-readable per-tick summaries. It
// defaults to stdout so a headless run always shows something, and tests
// redirect it to a buffer to assert on log content without touching stdout.
var logWriter io.Writer = os.Stdout

// SetLogWriter redirects Logf output. Passing nil restores stdout.
func SetLogWriter(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	logWriter = w
}

// Logf writes a formatted line to the current log writer. Failures to write
// are ignored — logging must never be able to break a running simulation.
func Logf(format string, args ...any) {
	fmt.Fprintf(logWriter, format+"\n", args...)
}
