// Package results provides durable sinks for per-trial protocol results: a
// plain-text log holding one QBER per line, and an optional SQLite store for
// offline analysis.
package results

import (
	"fmt"
	"os"
	"strconv"

	"github.com/qberlab/qkdsim/qkd"
)

// A Writer appends one line per completed trial to a plain-text file: the
// trial's QBER as a decimal string, newline-terminated, in completion order.
// No header and no other fields are written.
type Writer struct {
	f *os.File
}

// NewWriter opens (and truncates) the result file at path.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening result file: %w", err)
	}
	return &Writer{f: f}, nil
}

// Record implements the qkd.Sink interface.
func (w *Writer) Record(trial int, t qkd.Trial) error {
	line := strconv.FormatFloat(t.QBER, 'g', -1, 64) + "\n"
	if _, err := w.f.WriteString(line); err != nil {
		return fmt.Errorf("writing trial %d: %w", trial, err)
	}
	return nil
}

// Close flushes and closes the result file.
func (w *Writer) Close() error {
	return w.f.Close()
}
