package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
)

const iconSize = 32

var iconColor = color.NRGBA{R: 0x65, G: 0x45, B: 0x9e, A: 0xff}

// iconPNG draws the tray icon: a filled disc on a transparent square.
func iconPNG() ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	r := float64(iconSize)/2 - 1
	c := float64(iconSize) / 2
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := float64(x)+0.5-c, float64(y)+0.5-c
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(x, y, iconColor)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// wrapICO packs a PNG into a single-image ICO container, which Windows
// requires for tray icons.
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian
	_ = binary.Write(&buf, le, [3]uint16{0, 1, 1})
	buf.Write([]byte{byte(size), byte(size), 0, 0})
	_ = binary.Write(&buf, le, [2]uint16{1, 32})
	_ = binary.Write(&buf, le, [2]uint32{uint32(len(pngData)), 22})
	buf.Write(pngData)
	return buf.Bytes()
}
