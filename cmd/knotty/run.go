package main

import (
	"fmt"
	"time"

	"github.com/on-the-ground/knotty_go/knotty"
	"github.com/on-the-ground/knotty_go/knotty/debugger"
	"github.com/on-the-ground/knotty_go/knotty/effect"
	"github.com/on-the-ground/knotty_go/knotty/middleware"
	"github.com/spf13/cobra"
)

type runOptions struct {
	*rootOptions
	Strategy string
	Count    int
	Work     time.Duration
	Gap      time.Duration
	Delay    time.Duration
	Policies string
	Record   string
}

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Dispatch slow increments under one strategy",
		Long: `Dispatch --count increments, each taking --work, spaced --gap apart,
and print how each one was resolved.

Example:
  knotty run --strategy queue --count 3 --work 50ms
  knotty run --strategy debounce --count 5 --gap 10ms --delay 100ms
  knotty run --policies policies.yaml --record session.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCounter(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Strategy, "strategy", "s", "block", "strategy for Increment (block|queue|debounce|cancel-previous|parallel)")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 3, "number of increments to dispatch")
	cmd.Flags().DurationVar(&opts.Work, "work", 50*time.Millisecond, "time each increment takes")
	cmd.Flags().DurationVar(&opts.Gap, "gap", 10*time.Millisecond, "pause between dispatches")
	cmd.Flags().DurationVar(&opts.Delay, "delay", knotty.DefaultDebounceDelay, "debounce quiet window")
	cmd.Flags().StringVar(&opts.Policies, "policies", "", "YAML policy table; overrides --strategy and --delay")
	cmd.Flags().StringVar(&opts.Record, "record", "", "export the recorded session to this .json or .yaml file")

	return cmd
}

func runCounter(cmd *cobra.Command, opts *runOptions) error {
	if opts.Count <= 0 {
		return fmt.Errorf("--count must be positive, got %d", opts.Count)
	}
	strategy, err := knotty.ParseStrategy(opts.Strategy)
	if err != nil {
		return err
	}

	logger := opts.logger()
	defer func() { _ = logger.Sync() }()

	cfg := knotty.Config[CounterIntent]{
		Name:        "Counter",
		Logger:      logger,
		DisableBus:  true,
		StrategyFor: func(CounterIntent) knotty.Strategy { return strategy },
		DelayFor:    func(CounterIntent) time.Duration { return opts.Delay },
		Middleware:  []middleware.Middleware{middleware.Recover(logger), middleware.Logging(logger)},
	}
	if opts.Policies != "" {
		policies, err := knotty.LoadPoliciesFile(opts.Policies)
		if err != nil {
			return err
		}
		cfg = cfg.WithPolicies(policies)
	}

	var recorder *debugger.Recorder
	if opts.Record != "" {
		if _, err := debugger.FormatFromPath(opts.Record); err != nil {
			return err
		}
		recorder = debugger.NewRecorder(debugger.Options{Enabled: true, Logger: logger})
		defer recorder.Close()
		cfg.Recorder = recorder
	}

	store, err := knotty.New(counterState{}, handleCounter, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	effect.SubscribeTo(store.Effects(), func(m Milestone) {
		fmt.Fprintf(out, "milestone: %d\n", m.Count)
	})

	results := make([]<-chan knotty.Result, opts.Count)
	for i := range results {
		if i > 0 && opts.Gap > 0 {
			time.Sleep(opts.Gap)
		}
		results[i] = store.Submit(Increment{Seq: i + 1, Work: opts.Work})
	}

	for i, ch := range results {
		r := <-ch
		line := fmt.Sprintf("#%d %-10s", i+1, r.Outcome)
		if r.Err != nil {
			line += " " + r.Err.Error()
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "final count: %d\n", store.State().Count)

	if recorder != nil {
		if err := recorder.ExportToFile(opts.Record); err != nil {
			return err
		}
		fmt.Fprintf(out, "recorded %d entries to %s\n", len(recorder.Entries()), opts.Record)
	}
	return nil
}
