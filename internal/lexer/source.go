// internal/lexer/source.go
package lexer

import (
	"errors"
	"io"
)

// ErrInterrupted reports that the user interrupted the toolchain while it was
// waiting for, or working on, input. It is a control condition, not a
// compiler error, and callers are expected to recover from it.
var ErrInterrupted = errors.New("interrupted")

// Source is the pull-based character stream the front-end consumes. Batch
// mode backs it with an in-memory buffer; interactive mode backs it with the
// prompt-driven session adapter.
//
// ReadN returns exactly n bytes, or io.EOF once the underlying input is
// exhausted before n bytes are available. It never returns a short read.
// Seek repositions the read cursor; callers only seek to offsets they have
// previously observed, so no bounds checking is performed beyond the buffer
// invariant. Buffered returns whatever has been fetched but not yet read,
// without requesting more input.
type Source interface {
	ReadN(n int) ([]byte, error)
	Seek(pos int)
	Buffered() []byte
}

// StringSource is a Source over a fixed, fully-known input. Used for files,
// piped stdin, and tests.
type StringSource struct {
	text   []byte
	cursor int
}

func NewStringSource(text string) *StringSource {
	return &StringSource{text: []byte(text)}
}

func (s *StringSource) ReadN(n int) ([]byte, error) {
	if s.cursor+n > len(s.text) {
		return nil, io.EOF
	}
	out := s.text[s.cursor : s.cursor+n]
	s.cursor += n
	return out, nil
}

func (s *StringSource) Seek(pos int) {
	s.cursor = pos
}

func (s *StringSource) Buffered() []byte {
	return s.text[s.cursor:]
}
