// cmd/plum/commands/run.go
package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"plum/internal/bytecode"
	"plum/internal/compiler"
	"plum/internal/errors"
	"plum/internal/lexer"
	"plum/internal/repl"
	"plum/internal/vm"
)

var disasm bool

var RunCmd = &cobra.Command{
	Use:     "run [file]",
	Aliases: []string{"r"},
	Short:   "Run a program, or start an interactive session",
	Long: `Run executes a program on the bytecode interpreter.

With a file argument the file runs to completion. Without one, input comes
from standard input: an interactive session when attached to a terminal,
otherwise a batch run of whatever is piped in.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return runFile(args[0])
		}
		if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			return runInteractive()
		}
		return runReader(os.Stdin, "<stdin>")
	},
}

func init() {
	RunCmd.Flags().BoolVar(&disasm, "disasm", false, "print compiled bytecode before running")
}

func runFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return runSource(string(data), path)
}

func runReader(r io.Reader, name string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return runSource(string(data), name)
}

func runSource(source, name string) error {
	prog, err := compiler.Compile(lexer.NewStringSource(source), name, optLevel)
	if err != nil {
		return attachSource(err, source)
	}
	log.Debug("compiled", "name", name, "bytes", len(prog.Chunk.Code), "constants", len(prog.Chunk.Constants))

	if disasm {
		fmt.Print(bytecode.Disassemble(prog.Chunk, name))
	}

	return vm.NewVM(os.Stdout).Interpret(prog.Chunk)
}

func runInteractive() error {
	fmt.Printf("plum %s — an empty line ends the session\n", Version)

	lines := repl.NewTerminalLineSource(os.Stdin, os.Stdout)
	defer lines.Close()

	machine := vm.NewVM(os.Stdout)
	return repl.New(lines, machine, os.Stdout, optLevel).Run()
}

// attachSource adds the offending line of source to a structured error so the
// rendered message can point at it.
func attachSource(err error, source string) error {
	e, ok := err.(*errors.Error)
	if !ok || e.Location.Line == 0 || e.Source != "" {
		return err
	}
	lines := strings.Split(source, "\n")
	if e.Location.Line <= len(lines) {
		e.WithSource(lines[e.Location.Line-1])
	}
	return e
}
