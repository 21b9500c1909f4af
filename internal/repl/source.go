// internal/repl/source.go
package repl

import (
	"fmt"
	"io"
)

// InteractiveSource adapts a line-at-a-time LineSource into the buffered
// character stream the scanner consumes. Fetched lines accumulate in an
// append-only buffer with a cursor, so the scanner can seek backwards over
// anything already entered. Each iteration of the session constructs a fresh
// InteractiveSource; the line counter in the prompt starts at 1.
type InteractiveSource struct {
	lines  LineSource
	text   []byte
	cursor int
	line   int
	eof    bool
}

func NewInteractiveSource(lines LineSource) *InteractiveSource {
	return &InteractiveSource{lines: lines, line: 1}
}

// ReadN returns exactly n characters, prompting for as many further lines as
// that requires. It never returns a short read: once the input ends before n
// characters are available the result is io.EOF, on this call and every call
// after it.
func (s *InteractiveSource) ReadN(n int) ([]byte, error) {
	for s.cursor+n > len(s.text) {
		if s.eof {
			return nil, io.EOF
		}
		if err := s.fetch(); err != nil {
			return nil, err
		}
	}
	out := s.text[s.cursor : s.cursor+n]
	s.cursor += n
	return out, nil
}

// Seek repositions the cursor unconditionally. Positions within everything
// fetched so far are always valid because the buffer only grows.
func (s *InteractiveSource) Seek(pos int) {
	s.cursor = pos
}

// Buffered returns the fetched-but-unread tail of the buffer without
// prompting for more input.
func (s *InteractiveSource) Buffered() []byte {
	return s.text[s.cursor:]
}

// fetch prompts for one more line. An empty line or a closed underlying
// input ends the input for good; a non-empty line is appended with its
// terminating newline restored.
func (s *InteractiveSource) fetch() error {
	line, err := s.lines.NextLine(fmt.Sprintf("%2d| ", s.line))
	if err == io.EOF {
		s.eof = true
		return nil
	}
	if err != nil {
		return err
	}
	if line == "" {
		s.eof = true
		return nil
	}
	s.text = append(s.text, line...)
	s.text = append(s.text, '\n')
	s.line++
	return nil
}
