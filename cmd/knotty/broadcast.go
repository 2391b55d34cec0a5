package main

import (
	"fmt"
	"time"

	"github.com/on-the-ground/knotty_go/knotty"
	"github.com/on-the-ground/knotty_go/knotty/bus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type broadcastOptions struct {
	*rootOptions
	Stores  int
	Count   int
	Timeout time.Duration
}

func newBroadcastCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &broadcastOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Send increments through the bus to several stores",
		Long: `Build --stores counter stores on one bus, send --count increments
through the bus without referencing any store, and print every counter.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return broadcast(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Stores, "stores", 3, "number of stores listening on the bus")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 5, "number of increments to send")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "how long to wait for the stores to settle")

	return cmd
}

func broadcast(cmd *cobra.Command, opts *broadcastOptions) error {
	if opts.Stores <= 0 || opts.Count <= 0 {
		return fmt.Errorf("--stores and --count must be positive")
	}

	logger := opts.logger()
	defer func() { _ = logger.Sync() }()
	b := bus.New(bus.WithLogger(logger))

	stores := make([]*counterStore, opts.Stores)
	for i := range stores {
		s, err := knotty.New(counterState{}, handleCounter, knotty.Config[CounterIntent]{
			Name:        fmt.Sprintf("store-%d", i+1),
			Logger:      logger,
			Bus:         b,
			StrategyFor: func(CounterIntent) knotty.Strategy { return knotty.Queue },
		})
		if err != nil {
			return err
		}
		defer s.Close()
		stores[i] = s
	}

	for i := 0; i < opts.Count; i++ {
		b.Send(Increment{Seq: i + 1})
	}

	deadline := time.Now().Add(opts.Timeout)
	for _, s := range stores {
		for s.State().Count < opts.Count || s.IsLoading() {
			if time.Now().After(deadline) {
				logger.Warn("store did not settle", zap.String("store", s.Name()))
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	out := cmd.OutOrStdout()
	for _, s := range stores {
		fmt.Fprintf(out, "%s: %d\n", s.Name(), s.State().Count)
	}
	return nil
}
