package hotkey

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// Combo is a parsed key combination; each key may match several rawcodes
// (left and right modifier variants).
type Combo struct {
	text string
	keys []comboKey
}

type comboKey struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// Parse converts a hotkey string like "Ctrl+Alt+T" into a Combo.
func Parse(hotkeyConfig string) (*Combo, error) {
	c := &Combo{text: hotkeyConfig}
	for _, name := range parseHotkey(hotkeyConfig) {
		rawcodes := keyNameToRawcodes(name)
		if len(rawcodes) == 0 {
			return nil, fmt.Errorf("hotkey %q: unknown key %q", hotkeyConfig, name)
		}
		c.keys = append(c.keys, comboKey{name: name, rawcodes: rawcodes})
	}
	if len(c.keys) == 0 {
		return nil, fmt.Errorf("hotkey %q: no keys", hotkeyConfig)
	}
	return c, nil
}

func (c *Combo) String() string { return c.text }

// feed applies one key event and reports whether the whole combination is
// now held. States reset after a match so holding the keys fires once.
func (c *Combo) feed(down bool, rawcode uint16) bool {
	for i := range c.keys {
		if c.keys[i].matches(rawcode) {
			c.keys[i].pressed = down
		}
	}
	if !down {
		return false
	}
	for i := range c.keys {
		if !c.keys[i].pressed {
			return false
		}
	}
	for i := range c.keys {
		c.keys[i].pressed = false
	}
	return true
}

func (k comboKey) matches(rawcode uint16) bool {
	for _, rc := range k.rawcodes {
		if rc == rawcode {
			return true
		}
	}
	return false
}

// Listen starts the global keyboard hook and calls callback every time the
// combination is pressed, until ctx is cancelled.
func Listen(ctx context.Context, hotkeyConfig string, callback func()) error {
	combo, err := Parse(hotkeyConfig)
	if err != nil {
		return err
	}
	log.Printf("Hotkey: listening for %s", combo)

	evChan := gohook.Start()
	if evChan == nil {
		return fmt.Errorf("hotkey: gohook.Start() returned nil channel")
	}

	var stopOnce sync.Once
	stop := func() { stopOnce.Do(gohook.End) }

	go func() {
		<-ctx.Done()
		stop()
	}()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Hotkey: PANIC in hook goroutine: %v", r)
			}
		}()
		for ev := range evChan {
			if ev.Kind != gohook.KeyDown && ev.Kind != gohook.KeyUp {
				continue
			}
			if combo.feed(ev.Kind == gohook.KeyDown, ev.Rawcode) {
				log.Printf("Hotkey: %s activated", combo)
				if callback != nil {
					callback()
				}
			}
		}
		log.Printf("Hotkey: event channel closed")
	}()
	return nil
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		case "control":
			keys = append(keys, "ctrl")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

var namedKeys = map[string][]uint16{
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}

// keyNameToRawcodes maps a key name to its Windows virtual key code rawcodes.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	switch keyName {
	case "win", "super":
		keyName = "cmd"
	}
	if codes, ok := namedKeys[keyName]; ok {
		return codes
	}

	// Letters A-Z are VK 65-90, digits 0-9 are VK 48-57.
	if len(keyName) == 1 {
		switch ch := keyName[0]; {
		case ch >= 'a' && ch <= 'z':
			return []uint16{uint16(ch-'a') + 65}
		case ch >= '0' && ch <= '9':
			return []uint16{uint16(ch-'0') + 48}
		}
	}

	// F1-F24 are VK 112-135.
	if strings.HasPrefix(keyName, "f") {
		if n, err := strconv.Atoi(keyName[1:]); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(111 + n)}
		}
	}

	log.Printf("Hotkey: unknown key name '%s', cannot map to rawcode", keyName)
	return nil
}
