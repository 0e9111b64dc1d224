package main

import (
	"fmt"

	"github.com/danmuck/stmmctl/internal/protocol"
	"github.com/spf13/cobra"
)

func newFunctionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the variable-service function codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, fn := range protocol.Functions() {
				note := ""
				if fn.NotifyOnly() {
					note = "  notify"
				}
				fmt.Fprintf(out, "%2d  %s%s\n", uint64(fn), fn, note)
			}
			return nil
		},
	}
}
