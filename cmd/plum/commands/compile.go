// cmd/plum/commands/compile.go
package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"plum/internal/codegen"
	"plum/internal/compiler"
	"plum/internal/lexer"
)

var (
	outPath string
	emitIR  bool
)

var CompileCmd = &cobra.Command{
	Use:     "compile [file]",
	Aliases: []string{"c"},
	Short:   "Compile a program to a native executable",
	Long: `Compile lowers a program to LLVM IR and links it with the system C
compiler (clang by default; override with PLUM_CC). Without a file argument,
or with "-", the program is read from standard input. With --emit-ir the
textual IR is written to standard output instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "<stdin>"
		var data []byte
		var err error
		if len(args) == 1 && args[0] != "-" {
			path = args[0]
			data, err = os.ReadFile(path)
		} else {
			data, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return err
		}

		prog, err := compiler.Compile(lexer.NewStringSource(string(data)), path, optLevel)
		if err != nil {
			return attachSource(err, string(data))
		}

		if emitIR {
			ir, err := codegen.EmitTextual(prog)
			if err != nil {
				return err
			}
			fmt.Print(ir)
			return nil
		}

		out := outPath
		if out == "" {
			if path == "<stdin>" {
				out = "a.out"
			} else {
				base := filepath.Base(path)
				out = strings.TrimSuffix(base, filepath.Ext(base))
				if out == base {
					out = base + ".out"
				}
			}
		}
		return codegen.BuildExecutable(prog, out)
	},
}

func init() {
	CompileCmd.Flags().StringVarP(&outPath, "output", "o", "", "output executable path")
	CompileCmd.Flags().BoolVarP(&emitIR, "emit-ir", "S", false, "write textual LLVM IR to stdout")
}
