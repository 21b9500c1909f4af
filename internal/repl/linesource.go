// internal/repl/linesource.go
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"

	"plum/internal/lexer"
)

// LineSource supplies input one line at a time. NextLine shows the prompt and
// blocks until a line arrives; it returns lexer.ErrInterrupted when the user
// interrupts instead of typing a line, and io.EOF when the underlying input
// closes.
type LineSource interface {
	NextLine(prompt string) (string, error)
}

type lineResult struct {
	text string
	err  error
}

// TerminalLineSource reads lines from a terminal while listening for
// interrupt signals. A reader goroutine feeds lines over a channel so that
// NextLine can select between input and an interrupt.
type TerminalLineSource struct {
	out   io.Writer
	lines chan lineResult
	sig   chan os.Signal
	done  chan struct{}
}

func NewTerminalLineSource(in io.Reader, out io.Writer) *TerminalLineSource {
	t := &TerminalLineSource{
		out:   out,
		lines: make(chan lineResult),
		sig:   make(chan os.Signal, 1),
		done:  make(chan struct{}),
	}
	signal.Notify(t.sig, os.Interrupt)

	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case t.lines <- lineResult{text: sc.Text()}:
			case <-t.done:
				return
			}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		for {
			select {
			case t.lines <- lineResult{err: err}:
			case <-t.done:
				return
			}
		}
	}()
	return t
}

func (t *TerminalLineSource) NextLine(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)
	select {
	case res := <-t.lines:
		return res.text, res.err
	case <-t.sig:
		fmt.Fprintln(t.out)
		return "", lexer.ErrInterrupted
	}
}

// Interrupted reports without blocking whether an interrupt arrived since the
// last check. The VM polls this while executing.
func (t *TerminalLineSource) Interrupted() bool {
	select {
	case <-t.sig:
		return true
	default:
		return false
	}
}

// Close stops signal delivery and releases the reader goroutine once it is
// parked delivering a result. A goroutine mid-read still blocks until the
// underlying reader yields or closes.
func (t *TerminalLineSource) Close() {
	signal.Stop(t.sig)
	close(t.done)
}
