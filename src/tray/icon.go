package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"runtime"

	"github.com/fogleman/gg"
)

const iconSize = 32

// iconPNG draws the tray icon: a capture frame with a translucent result card.
func iconPNG() ([]byte, error) {
	dc := gg.NewContext(iconSize, iconSize)

	dc.DrawRoundedRectangle(2, 2, 28, 28, 6)
	dc.SetRGBA255(0x22, 0x22, 0x22, 0xdc)
	dc.Fill()

	dc.SetDash(3, 2)
	dc.SetLineWidth(2)
	dc.DrawRectangle(7, 7, 18, 12)
	dc.SetRGB255(0x00, 0x78, 0xd4)
	dc.Stroke()

	dc.SetDash()
	dc.DrawRoundedRectangle(11, 16, 16, 11, 2)
	dc.SetRGB255(0x2d, 0x4a, 0x22)
	dc.FillPreserve()
	dc.SetRGB255(0xdd, 0xdd, 0xdd)
	dc.SetLineWidth(1)
	dc.Stroke()

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// wrapICO embeds a PNG in a single-image ICO container.
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, struct {
		Reserved, Type, Count uint16
	}{0, 1, 1})
	dim := uint8(size)
	if size >= 256 {
		dim = 0
	}
	binary.Write(&buf, binary.LittleEndian, struct {
		Width, Height, Colors, Reserved uint8
		Planes, BitCount                uint16
		Size, Offset                    uint32
	}{dim, dim, 0, 0, 1, 32, uint32(len(pngData)), 6 + 16})
	buf.Write(pngData)
	return buf.Bytes()
}

// Icon returns the icon in the format the platform tray expects.
func Icon() ([]byte, error) {
	data, err := iconPNG()
	if err != nil {
		return nil, err
	}
	if runtime.GOOS == "windows" {
		return wrapICO(data, iconSize), nil
	}
	return data, nil
}
