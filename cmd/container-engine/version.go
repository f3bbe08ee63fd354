package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "latest" // version is the application version shown by --version
)

// newCmdVersion returns a command that prints the application version.
func newCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			// Keep output minimal and script-friendly
			fmt.Fprintf(cmd.OutOrStdout(), "container-engine version %s\n", version)
		},
	}
}
