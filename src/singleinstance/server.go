package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	residentHost = "127.0.0.1"
	pingRequest  = "PING\n"
	pongResponse = "PONG\n"
)

var ErrServerClosed = errors.New("singleinstance: server closed")

// Server owns the resident port and queues forwarded commands.
type Server struct {
	lis      net.Listener
	port     int
	incoming chan *Conn
	done     chan struct{}
	once     sync.Once
}

// Listen binds the first port of the configured range. Failure means another
// resident owns it.
func Listen(ctx context.Context) (*Server, error) {
	start, _ := portRange()
	addr := fmt.Sprintf("%s:%d", residentHost, start)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("singleinstance: failed to bind %s: %v", addr, err)
		return nil, err
	}
	s := &Server{
		lis:      lis,
		port:     start,
		incoming: make(chan *Conn, 8),
		done:     make(chan struct{}),
	}
	log.Printf("singleinstance: listening on %s", addr)
	go s.acceptLoop(ctx)
	return s, nil
}

func (s *Server) Port() int { return s.port }

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		c, err := s.lis.Accept()
		if err != nil {
			return
		}
		remote := c.RemoteAddr().String()
		_ = c.SetDeadline(time.Now().Add(3 * time.Second))
		br := bufio.NewReader(c)
		bw := bufio.NewWriter(c)
		line, _ := br.ReadString('\n')
		if line == pingRequest {
			_, _ = bw.WriteString(pongResponse)
			_ = bw.Flush()
			_ = c.Close()
			continue
		}
		cmd, err := parseCommand(strings.TrimSpace(line))
		if err != nil {
			log.Printf("singleinstance: rejecting %q from %s", strings.TrimSpace(line), remote)
			_, _ = bw.WriteString("ERROR\n" + err.Error())
			_ = bw.Flush()
			_ = c.Close()
			continue
		}
		_ = c.SetDeadline(time.Time{})
		log.Printf("singleinstance: %s from %s", cmd, remote)
		select {
		case s.incoming <- &Conn{c: c, w: bw, cmd: cmd}:
		case <-s.done:
			_ = c.Close()
			return
		case <-ctx.Done():
			_ = c.Close()
			return
		}
	}
}

// Next returns the next forwarded command.
func (s *Server) Next(ctx context.Context) (*Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrServerClosed
	case c := <-s.incoming:
		return c, nil
	}
}

func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.lis.Close()
	})
	return err
}

// Conn is one forwarded command awaiting its reply.
type Conn struct {
	c   net.Conn
	w   *bufio.Writer
	cmd Command
}

func (c *Conn) Command() Command { return c.cmd }

// Respond reports the outcome to the launching process.
func (c *Conn) Respond(err error) error {
	reply := "SUCCESS\n"
	if err != nil {
		reply = "ERROR\n" + err.Error()
	}
	if _, werr := c.w.WriteString(reply); werr != nil {
		return werr
	}
	return c.w.Flush()
}

func (c *Conn) Close() error { return c.c.Close() }
