// cmd/plum/main.go
package main

import (
	"os"

	"github.com/fatih/color"

	"plum/cmd/plum/commands"
)

func main() {
	if err := commands.RootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
