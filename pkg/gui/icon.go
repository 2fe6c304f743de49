package gui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jiofi-tools/jiobatt/pkg/jiofi"
)

const iconSize = 16

var levelColors = map[jiofi.Level]color.RGBA{
	jiofi.LevelGood:    {R: 0x2e, G: 0xa0, B: 0x43, A: 0xff},
	jiofi.LevelFair:    {R: 0xd9, G: 0xa4, B: 0x06, A: 0xff},
	jiofi.LevelLow:     {R: 0xd0, G: 0x2f, B: 0x2f, A: 0xff},
	jiofi.LevelUnknown: {R: 0x8c, G: 0x8c, B: 0x8c, A: 0xff},
}

var (
	iconMu    sync.Mutex
	iconCache = map[jiofi.Level][]byte{}
)

// levelIcon is a round PNG dot in the colour of the level.
func levelIcon(l jiofi.Level) []byte {
	iconMu.Lock()
	defer iconMu.Unlock()

	if b, ok := iconCache[l]; ok {
		return b
	}

	c, ok := levelColors[l]
	if !ok {
		c = levelColors[jiofi.LevelUnknown]
	}

	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	const r = iconSize / 2
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := x-r, y-r
			if dx*dx+dy*dy < r*r {
				img.SetRGBA(x, y, c)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		logrus.WithError(err).Error("failed to encode tray icon")
		return nil
	}
	iconCache[l] = buf.Bytes()
	return iconCache[l]
}
