package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// DetectResidentPort scans the port range and returns the port of a resident
// that answers PING.
func DetectResidentPort(ctx context.Context) (int, bool) {
	timeout := dialTimeout(ctx, 300*time.Millisecond)
	start, end := portRange()
	for port := start; port <= end; port++ {
		if ping(addrFor(port), timeout) {
			return port, true
		}
	}
	return 0, false
}

// Forward sends cmd to a running resident. delegated is false when none
// answered, in which case the caller should become the resident itself.
func Forward(ctx context.Context, cmd Command) (delegated bool, err error) {
	port, ok := DetectResidentPort(ctx)
	if !ok {
		return false, nil
	}
	timeout := dialTimeout(ctx, 2*time.Second)
	conn, err := net.DialTimeout("tcp", addrFor(port), timeout)
	if err != nil {
		return false, nil
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(string(cmd) + "\n"); err != nil {
		return true, err
	}
	if err := w.Flush(); err != nil {
		return true, err
	}
	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return true, fmt.Errorf("read reply: %w", err)
	}
	switch status {
	case "SUCCESS\n":
		return true, nil
	case "ERROR\n":
		msg, _ := io.ReadAll(br)
		return true, errors.New(string(msg))
	}
	return true, fmt.Errorf("unexpected reply %q", status)
}

func addrFor(port int) string {
	return net.JoinHostPort(residentHost, strconv.Itoa(port))
}

func dialTimeout(ctx context.Context, def time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return def
}

func ping(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := io.WriteString(conn, pingRequest); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}
