package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"screen-translate-overlay/src/singleinstance"
)

type stressOptions struct {
	n        int
	command  string
	deadline time.Duration
}

type counts struct {
	ok, absent, failed int32
}

// forwardFunc is replaced in tests.
var forwardFunc = singleinstance.Forward

func main() {
	opts := &stressOptions{}
	if err := newRootCmd(opts).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-forward",
		Short:         "Fire concurrent forwarded commands at a running overlay instance",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseCommand(opts.command)
			if err != nil {
				return err
			}
			res := runWithOptions(*opts, c)
			report(cmd.OutOrStdout(), opts.n, res)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of concurrent clients")
	cmd.Flags().StringVar(&opts.command, "command", "capture", "capture|dismiss")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func parseCommand(s string) (singleinstance.Command, error) {
	switch s {
	case "capture":
		return singleinstance.CommandCapture, nil
	case "dismiss":
		return singleinstance.CommandDismissAll, nil
	}
	return "", fmt.Errorf("unknown command %q (want capture or dismiss)", s)
}

func runWithOptions(opts stressOptions, c singleinstance.Command) *counts {
	var wg sync.WaitGroup
	res := &counts{}
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			delegated, err := forwardFunc(ctx, c)
			switch {
			case err != nil:
				atomic.AddInt32(&res.failed, 1)
			case delegated:
				atomic.AddInt32(&res.ok, 1)
			default:
				atomic.AddInt32(&res.absent, 1)
			}
		}()
	}
	wg.Wait()
	return res
}

func report(w io.Writer, n int, res *counts) {
	fmt.Fprintf(w, "launched=%d ok=%d absent=%d err=%d\n", n, res.ok, res.absent, res.failed)
}
