// Package diag provides the core's diagnostic sink: non-fatal, host-routable
// records for unmapped memory access and illegal/unimplemented opcodes (§7).
// The core never panics or returns an error for these conditions; it reports
// them here and continues.
package diag

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// A Sink receives formatted diagnostic lines. The default Sink writes to
// stderr with a "zx:" prefix; hosts embedding the core may install their own.
type Sink interface {
	Diag(line string)
}

type writerSink struct {
	logger *log.Logger
}

func (s *writerSink) Diag(line string) { s.logger.Print(line) }

// NewWriterSink wraps an io.Writer as a Sink, formatting lines the way the
// default CLI sink does.
func NewWriterSink(w io.Writer) Sink {
	return &writerSink{logger: log.New(w, "zx: ", 0)}
}

var (
	mu      sync.Mutex
	current Sink = NewWriterSink(os.Stderr)
)

// SetSink installs sink as the process-wide diagnostic destination. Passing
// nil silences diagnostics entirely.
func SetSink(sink Sink) {
	mu.Lock()
	defer mu.Unlock()
	current = sink
}

// Warnf formats and emits a diagnostic line. It is safe to call from any
// goroutine, though the core itself is single-threaded per §5.
func Warnf(format string, args ...any) {
	mu.Lock()
	sink := current
	mu.Unlock()
	if sink == nil {
		return
	}
	sink.Diag(fmt.Sprintf(format, args...))
}
