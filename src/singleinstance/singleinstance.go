// Package singleinstance keeps one resident overlay process per session and
// lets later launches hand their request to it over loopback TCP.
package singleinstance

import (
	"context"
	"errors"
)

// Command is a request a second launch forwards to the resident process.
type Command string

const (
	CommandCapture    Command = "CAPTURE"
	CommandDismissAll Command = "DISMISS_ALL"
)

var ErrUnknownCommand = errors.New("unknown command")

func parseCommand(line string) (Command, error) {
	switch c := Command(line); c {
	case CommandCapture, CommandDismissAll:
		return c, nil
	}
	return "", ErrUnknownCommand
}

// Handler executes a forwarded command inside the resident process.
type Handler func(ctx context.Context, cmd Command) error

// Serve answers connections on s until ctx is cancelled.
func Serve(ctx context.Context, s *Server, h Handler) {
	for {
		conn, err := s.Next(ctx)
		if err != nil {
			return
		}
		_ = conn.Respond(h(ctx, conn.Command()))
		_ = conn.Close()
	}
}
