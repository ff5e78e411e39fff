package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the application version.
// Set at build time with:
// go build -ldflags "-X github.com/geraldpeng6/crawler-for-attack/cmd.Version=1.0.0"
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}
