package cli

import (
	"fmt"
	"os"
)

// stderrLogger writes engine log lines to stderr so command output on
// stdout stays parseable.
type stderrLogger struct {
	verbose bool
}

func newLogger(verbose bool) *stderrLogger {
	return &stderrLogger{verbose: verbose}
}

func (l *stderrLogger) Debug(message string) {
	if l.verbose {
		fmt.Fprintf(os.Stderr, "debug: %s\n", message)
	}
}

func (l *stderrLogger) Error(message string) {
	fmt.Fprintf(os.Stderr, "error: %s\n", message)
}
