//go:build windows

package main

import (
	"log"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

// enableDPIAwareness sets per-monitor DPI awareness so window rectangles are in physical pixels.
func enableDPIAwareness() {
	shcore := windows.NewLazySystemDLL("Shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	const processPerMonitorDPIAware = 2
	if err := setProcessDpiAwareness.Find(); err == nil {
		if ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware)); ret != 0 {
			log.Printf("DPI: SetProcessDpiAwareness failed, error code: %d", ret)
		}
		return
	}
	if !win.SetProcessDPIAware() {
		log.Printf("DPI: SetProcessDPIAware failed")
	}
}

func logMonitorConfiguration() {
	const (
		smXVirtualScreen  = 76
		smYVirtualScreen  = 77
		smCXVirtualScreen = 78
		smCYVirtualScreen = 79
		smCMonitors       = 80
	)
	log.Printf("Monitor: %d monitors, virtual screen x:%d y:%d w:%d h:%d",
		win.GetSystemMetrics(smCMonitors),
		win.GetSystemMetrics(smXVirtualScreen), win.GetSystemMetrics(smYVirtualScreen),
		win.GetSystemMetrics(smCXVirtualScreen), win.GetSystemMetrics(smCYVirtualScreen))
}
