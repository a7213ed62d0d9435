package main

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"screen-translate-overlay/src/singleinstance"
)

func TestNewRootCmdDefaults(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 50 {
		t.Fatalf("Expected default n=50, got %d", opts.n)
	}
	if opts.command != "capture" {
		t.Fatalf("Expected default command=capture, got %q", opts.command)
	}
	if opts.deadline != 5*time.Second {
		t.Fatalf("Expected default deadline=5s, got %v", opts.deadline)
	}
}

func TestParseCommand(t *testing.T) {
	if c, err := parseCommand("dismiss"); err != nil || c != singleinstance.CommandDismissAll {
		t.Fatalf("Expected DISMISS_ALL, got %q %v", c, err)
	}
	if _, err := parseCommand("reboot"); err == nil {
		t.Fatal("Expected error for unknown command")
	}
}

func TestRunCountsOutcomes(t *testing.T) {
	var calls int32
	orig := forwardFunc
	forwardFunc = func(_ context.Context, c singleinstance.Command) (bool, error) {
		switch atomic.AddInt32(&calls, 1) % 3 {
		case 0:
			return true, errors.New("boom")
		case 1:
			return true, nil
		}
		return false, nil
	}
	defer func() { forwardFunc = orig }()

	var out bytes.Buffer
	cmd := newRootCmd(&stressOptions{})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--n", "9"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := out.String(); got != "launched=9 ok=3 absent=3 err=3\n" {
		t.Fatalf("Expected evenly split counts, got %q", got)
	}
}
