package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/cachesim/cachelevel"
	"github.com/sarchlab/cachesim/simerr"
)

// FileTrace writes the indented call/return access trace to an
// underlying writer (log_system.lgs on disk in production, a
// strings.Builder in tests).
type FileTrace struct {
	w      *bufio.Writer
	closer io.Closer
	depth  int
	closed bool
}

// NewFileTrace creates log_system.lgs in the current directory and
// returns a Trace writing to it.
func NewFileTrace() (*FileTrace, error) {
	f, err := os.Create("log_system.lgs")
	if err != nil {
		return nil, fmt.Errorf("report: create log_system.lgs: %w", err)
	}
	return &FileTrace{w: bufio.NewWriter(f), closer: f}, nil
}

// NewTrace wraps an arbitrary io.Writer as a Trace, for tests and any
// sink that does not need a dedicated file.
func NewTrace(w io.Writer) *FileTrace {
	return &FileTrace{w: bufio.NewWriter(w), closer: nopCloser{}}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func (t *FileTrace) indent() string {
	return strings.Repeat("\t", t.depth)
}

// Call implements Trace.
func (t *FileTrace) Call(clock uint64, location, op string, decoded cachelevel.Address, address uint32) {
	fmt.Fprintf(t.w, "%s%d→%s::%s({%d(%s):%d(%s):%d(%s)}=%d){\n",
		t.indent(), clock, location, op,
		decoded.Tag, binString(decoded.Tag),
		decoded.Index, binString(decoded.Index),
		decoded.Offset, binString(decoded.Offset),
		address)
	t.depth++
}

// Note implements Trace.
func (t *FileTrace) Note(clock uint64, status string) {
	fmt.Fprintf(t.w, "%s%d←%s]\n", t.indent(), clock, status)
}

// Return implements Trace.
func (t *FileTrace) Return(clock uint64, status string) {
	if t.depth == 0 {
		simerr.Raise("report: %v", ErrTraceUnderflow)
	}
	t.depth--
	fmt.Fprintf(t.w, "%s}%d←%s\n", t.indent(), clock, status)
}

// Close flushes buffered output and closes the underlying file, if any.
// It is idempotent: a Halt task closes the trace explicitly, and the CLI
// closes it again on the way out, so a second call is a silent no-op
// rather than a "file already closed" error.
func (t *FileTrace) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("report: flush trace: %w", err)
	}
	return t.closer.Close()
}

func binString(v uint32) string {
	return strconv.FormatUint(uint64(v), 2)
}
