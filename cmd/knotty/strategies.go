package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/on-the-ground/knotty_go/knotty"
	"github.com/spf13/cobra"
)

func newStrategiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the scheduling strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STRATEGY\tBEHAVIOR")
			for _, s := range knotty.Strategies() {
				fmt.Fprintf(w, "%s\t%s\n", s, s.Summary())
			}
			return w.Flush()
		},
	}
}
