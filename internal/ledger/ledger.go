// Package ledger implements the append-only line logs that accepted
// prescriptions and remarks are written to.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ErrWrite marks a failure to append to a log. Validation may have passed;
// the submission still counts as failed.
var ErrWrite = errors.New("log append failed")

// Appender appends a single line to a log.
type Appender interface {
	Append(line string) error
}

// File appends to a text file on disk. Every Append opens, writes and closes
// the file; no handle is held between calls.
type File struct {
	Path string
}

// NewFile returns a File appender for path. The file is created on first append.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Append writes line plus a newline at the end of the file, creating it if absent.
func (f *File) Append(line string) (err error) {
	fh, err := os.OpenFile(f.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", ErrWrite, f.Path, err)
	}
	defer func() {
		if cerr := fh.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: closing %s: %w", ErrWrite, f.Path, cerr)
		}
	}()

	if _, err := io.WriteString(fh, singleLine(line)+"\n"); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrWrite, f.Path, err)
	}
	return nil
}

// Memory is an in-memory Appender, used where a file is unwanted (tests, dry runs).
type Memory struct {
	mu    sync.Mutex
	lines []string
	// Fail, when non-nil, is returned (wrapped in ErrWrite) by every Append.
	Fail error
}

// Append records line unless the sink has been armed to fail.
func (m *Memory) Append(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return fmt.Errorf("%w: %w", ErrWrite, m.Fail)
	}
	m.lines = append(m.lines, singleLine(line))
	return nil
}

// Lines returns a copy of everything appended so far.
func (m *Memory) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}

// singleLine keeps one submission on one line: CR and LF become spaces.
func singleLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// CountLines returns the number of lines in the file at path.
// A missing file has zero lines.
func CountLines(path string) (int, error) {
	fh, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer fh.Close()

	n := 0
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		n++
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return n, nil
}
