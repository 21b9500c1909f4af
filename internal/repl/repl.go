// internal/repl/repl.go
package repl

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	pkgerrors "github.com/pkg/errors"

	"plum/internal/compiler"
	"plum/internal/lexer"
	"plum/internal/vm"
)

// restartMarker separates iterations of the session so the user can see where
// one statement's input and output end and the next begin.
const restartMarker = "----"

// REPL drives the read-compile-execute loop. Each iteration compiles exactly
// one statement from a fresh InteractiveSource and runs it on a persistent
// VM, so definitions survive while input buffering does not.
type REPL struct {
	lines LineSource
	vm    *vm.VM
	out   io.Writer
	opt   int

	errColor    *color.Color
	noticeColor *color.Color
}

func New(lines LineSource, machine *vm.VM, out io.Writer, opt int) *REPL {
	if poller, ok := lines.(interface{ Interrupted() bool }); ok {
		machine.SetInterrupt(poller.Interrupted)
	}
	return &REPL{
		lines:       lines,
		vm:          machine,
		out:         out,
		opt:         opt,
		errColor:    color.New(color.FgRed),
		noticeColor: color.New(color.FgYellow),
	}
}

// Run loops until the input ends. Compile and runtime errors are printed and
// the session continues; an interrupt at any point abandons the current
// statement and continues; end of input at the top level ends the session.
func (r *REPL) Run() error {
	for {
		fmt.Fprintln(r.out, restartMarker)

		src := NewInteractiveSource(r.lines)
		prog, err := compiler.CompileStatement(src, "<stdin>", r.opt)

		switch {
		case err == nil:
			// fall through to execution

		case pkgerrors.Is(err, io.EOF):
			return nil

		case pkgerrors.Is(err, lexer.ErrInterrupted):
			r.noticeColor.Fprintln(r.out, "interrupted")
			continue

		default:
			r.errColor.Fprintln(r.out, err.Error())
			continue
		}

		if err := r.vm.Interpret(prog.Chunk); err != nil {
			if pkgerrors.Is(err, vm.ErrInterrupted) {
				r.noticeColor.Fprintln(r.out, "interrupted")
				continue
			}
			r.errColor.Fprintln(r.out, err.Error())
		}
	}
}
