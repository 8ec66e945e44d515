package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.1.0"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gtfscache version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "gtfscache v%s\n", version)
			return nil
		},
	}
}
