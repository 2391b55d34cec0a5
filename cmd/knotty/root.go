package main

import (
	"github.com/on-the-ground/knotty_go/knotty/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	Verbose bool
}

func (o *rootOptions) logger() *zap.Logger {
	if o.Verbose {
		return log.NewConsole(zap.DebugLevel)
	}
	return log.NewConsole(zap.WarnLevel)
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "knotty",
		Short:         "Intent-driven store playground",
		Long:          "Dispatch intents to a counter store under each scheduling strategy and watch the outcomes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log store diagnostics at debug level")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newStrategiesCommand())
	cmd.AddCommand(newBroadcastCommand(opts))
	return cmd
}
