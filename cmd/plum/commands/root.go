// cmd/plum/commands/root.go
package commands

import (
	"os"
	"runtime/pprof"

	"github.com/charmbracelet/log"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var (
	optLevel    int
	verbosity   int
	profilePath string

	profileFile *os.File
)

var RootCmd = &cobra.Command{
	Use:           "plum",
	Short:         "plum — a small language with an interactive session and a native compiler",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case verbosity >= 2:
			log.SetLevel(log.DebugLevel)
		case verbosity == 1:
			log.SetLevel(log.InfoLevel)
		default:
			log.SetLevel(log.WarnLevel)
		}

		if profilePath != "" {
			f, err := os.Create(profilePath)
			if err != nil {
				return pkgerrors.Wrap(err, "create profile file")
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				f.Close()
				return pkgerrors.Wrap(err, "start cpu profile")
			}
			profileFile = f
			log.Debug("cpu profiling enabled", "path", profilePath)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if profileFile != nil {
			pprof.StopCPUProfile()
			profileFile.Close()
		}
	},
}

func init() {
	RootCmd.PersistentFlags().IntVarP(&optLevel, "opt", "O", 1, "optimisation level (0-3)")
	RootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	RootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "write a CPU profile to the given file")

	RootCmd.AddCommand(RunCmd)
	RootCmd.AddCommand(CompileCmd)
}
