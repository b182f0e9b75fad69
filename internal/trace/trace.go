// Package trace records optimization progress as JSON lines.
package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/copyleftdev/simplexopt/internal/optimization"
	"github.com/copyleftdev/simplexopt/internal/optimization/neldermead"
	"github.com/copyleftdev/simplexopt/internal/optimization/penalty"
)

// Kind tells which of the payload fields of an Entry is set.
type Kind string

const (
	KindSimplex Kind = "simplex"
	KindPenalty Kind = "penalty"
)

// Entry is one line of a trace file.
type Entry struct {
	Kind Kind `json:"kind"`
	// Run identifies the optimization the entry belongs to.
	Run string `json:"run,omitempty"`
	// Start is the index of the starting point within the run.
	Start     int       `json:"start"`
	Iteration int       `json:"iteration"`
	Timestamp time.Time `json:"timestamp"`

	// Set for KindSimplex.
	Operation string               `json:"operation,omitempty"`
	Simplex   optimization.Simplex `json:"simplex,omitempty"`

	// Set for KindPenalty.
	Outer *penalty.Iteration `json:"outer,omitempty"`
}

// Writer appends entries to an underlying stream. It is safe for
// concurrent use.
type Writer struct {
	mu     sync.Mutex
	closer io.Closer
	writer *bufio.Writer
	now    func() time.Time
}

// NewWriter buffers entries onto w. If w is an io.Closer, Close closes it.
func NewWriter(w io.Writer) *Writer {
	tw := &Writer{
		writer: bufio.NewWriterSize(w, 64*1024),
		now:    time.Now,
	}
	if c, ok := w.(io.Closer); ok {
		tw.closer = c
	}
	return tw
}

// Create opens path for writing, creating parent directories. With append
// set, existing entries are kept.
func Create(path string, append bool) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	return NewWriter(f), nil
}

// Write appends one entry. A zero Timestamp is set to the current time.
func (tw *Writer) Write(e Entry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.write(e)
}

func (tw *Writer) write(e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = tw.now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal trace entry: %w", err)
	}
	if _, err := tw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write trace entry: %w", err)
	}
	return tw.writer.WriteByte('\n')
}

// WriteSimplex appends every snapshot of a simplex trace.
func (tw *Writer) WriteSimplex(run string, start int, snapshots neldermead.Trace) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	for _, s := range snapshots {
		err := tw.write(Entry{
			Kind:      KindSimplex,
			Run:       run,
			Start:     start,
			Iteration: s.Iteration,
			Operation: s.Operation.String(),
			Simplex:   s.Simplex,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// WritePenalty appends the outer iterations of a penalty run.
func (tw *Writer) WritePenalty(run string, start int, history []penalty.Iteration) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	for i := range history {
		it := history[i]
		err := tw.write(Entry{
			Kind:      KindPenalty,
			Run:       run,
			Start:     start,
			Iteration: it.Iteration,
			Outer:     &it,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Flush writes buffered entries through.
func (tw *Writer) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace writer: %w", err)
	}
	if f, ok := tw.closer.(*os.File); ok {
		if err := f.Sync(); err != nil {
			return fmt.Errorf("failed to sync trace file: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the underlying stream if it has a Close method.
func (tw *Writer) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	flushErr := tw.writer.Flush()
	var closeErr error
	if tw.closer != nil {
		closeErr = tw.closer.Close()
	}
	if flushErr != nil {
		return fmt.Errorf("failed to flush on close: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close trace: %w", closeErr)
	}
	return nil
}

// Reader reads entries back in the order they were written.
type Reader struct {
	closer  io.Closer
	scanner *bufio.Scanner
	line    int
}

// NewReader reads entries from r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	tr := &Reader{scanner: scanner}
	if c, ok := r.(io.Closer); ok {
		tr.closer = c
	}
	return tr
}

// Open reads the trace file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	return NewReader(f), nil
}

// Read returns the next entry, or io.EOF at the end of the stream.
// Blank lines are skipped.
func (tr *Reader) Read() (*Entry, error) {
	for tr.scanner.Scan() {
		tr.line++
		line := tr.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("line %d: failed to unmarshal trace entry: %w", tr.line, err)
		}
		return &e, nil
	}
	if err := tr.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan trace line: %w", err)
	}
	return nil, io.EOF
}

// ReadAll reads the remaining entries.
func (tr *Reader) ReadAll() ([]Entry, error) {
	var entries []Entry
	for {
		e, err := tr.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
}

// Close closes the underlying stream if it has a Close method.
func (tr *Reader) Close() error {
	if tr.closer == nil {
		return nil
	}
	return tr.closer.Close()
}
