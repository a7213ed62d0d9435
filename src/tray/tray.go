package tray

import (
	"log"

	"github.com/getlantern/systray"
)

// Actions are invoked from the tray's menu goroutine.
type Actions struct {
	OnCapture    func()
	OnDismissAll func()
	OnQuit       func()
}

// Run shows the tray icon and blocks until Quit is called.
func Run(title string, actions Actions) {
	systray.Run(func() { onReady(title, actions) }, func() {
		log.Printf("Tray: exited")
	})
}

// Quit removes the icon and makes Run return.
func Quit() {
	systray.Quit()
}

func onReady(title string, actions Actions) {
	if icon, err := Icon(); err == nil {
		systray.SetIcon(icon)
	} else {
		log.Printf("Tray: failed to build icon: %v", err)
	}
	systray.SetTitle(title)
	systray.SetTooltip(title)

	mCapture := systray.AddMenuItem("Capture", "Capture the configured region")
	mDismiss := systray.AddMenuItem("Dismiss all", "Close every result window")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit the application")

	go func() {
		for {
			select {
			case <-mCapture.ClickedCh:
				call(actions.OnCapture)
			case <-mDismiss.ClickedCh:
				call(actions.OnDismissAll)
			case <-mQuit.ClickedCh:
				call(actions.OnQuit)
				systray.Quit()
				return
			}
		}
	}()
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

// SetTooltip updates the hover text of the tray icon.
func SetTooltip(text string) {
	systray.SetTooltip(text)
}
