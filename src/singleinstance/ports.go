package singleinstance

import (
	"os"
	"strconv"
)

const (
	defaultPortStart = 49600
	defaultPortEnd   = 49610
)

// portRange reads OVERLAY_PORT_START and OVERLAY_PORT_END (inclusive),
// falling back to defaults and clamping to [1024, 65535].
func portRange() (int, int) {
	start, end := defaultPortStart, defaultPortEnd
	if v := os.Getenv("OVERLAY_PORT_START"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			start = n
		}
	}
	if v := os.Getenv("OVERLAY_PORT_END"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			end = n
		}
	}
	if start < 1024 {
		start = 1024
	}
	if end > 65535 {
		end = 65535
	}
	if end < start {
		start, end = end, start
	}
	return start, end
}
