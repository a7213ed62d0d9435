package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"testing"
)

func TestIconPNG(t *testing.T) {
	data, err := iconPNG()
	if err != nil {
		t.Fatalf("Expected icon to render, got %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Expected valid PNG, got %v", err)
	}
	if b := img.Bounds(); b.Dx() != iconSize || b.Dy() != iconSize {
		t.Fatalf("Expected %dx%d icon, got %v", iconSize, iconSize, b)
	}
}

func TestWrapICO(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	ico := wrapICO(payload, 32)
	if len(ico) != 22+len(payload) {
		t.Fatalf("Expected %d bytes, got %d", 22+len(payload), len(ico))
	}
	if binary.LittleEndian.Uint16(ico[2:]) != 1 || binary.LittleEndian.Uint16(ico[4:]) != 1 {
		t.Fatalf("Expected icon type with one image, got % x", ico[:6])
	}
	if ico[6] != 32 || ico[7] != 32 {
		t.Fatalf("Expected 32x32 entry, got %dx%d", ico[6], ico[7])
	}
	if binary.LittleEndian.Uint32(ico[14:]) != uint32(len(payload)) || binary.LittleEndian.Uint32(ico[18:]) != 22 {
		t.Fatalf("Expected size and offset fields, got % x", ico[14:22])
	}
	if !bytes.Equal(ico[22:], payload) {
		t.Fatal("Expected payload after the directory")
	}
}
