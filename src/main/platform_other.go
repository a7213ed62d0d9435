//go:build !windows

package main

import (
	"log"

	"screen-translate-overlay/src/screenshot"
)

func enableDPIAwareness() {}

func logMonitorConfiguration() {
	for i, d := range screenshot.Displays() {
		log.Printf("Monitor: display %d at %v", i, d)
	}
}
