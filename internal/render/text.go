package render

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var (
	fontOnce    sync.Once
	regularFont *opentype.Font
	fontErr     error

	// faces caches one face per quantized pixel size. Zooming produces many
	// distinct sizes, so sizes are rounded to half a pixel.
	faces sync.Map
)

const (
	minFaceSize = 4
	maxFaceSize = 256
)

func quantizeSize(size float64) float64 {
	size = math.Max(minFaceSize, math.Min(maxFaceSize, size))
	return math.Round(size*2) / 2
}

// FaceForSize returns a Go Regular face at size pixels.
func FaceForSize(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		regularFont, fontErr = opentype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("parse goregular: %w", fontErr)
	}
	size = quantizeSize(size)
	if f, ok := faces.Load(size); ok {
		return f.(font.Face), nil
	}
	face, err := opentype.NewFace(regularFont, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, err
	}
	actual, _ := faces.LoadOrStore(size, face)
	return actual.(font.Face), nil
}

// MeasureText returns the advance width and line height of text at size.
func MeasureText(text string, size float64) (width, height float64, err error) {
	face, err := FaceForSize(size)
	if err != nil {
		return 0, 0, err
	}
	d := &font.Drawer{Face: face}
	m := face.Metrics()
	return float64(d.MeasureString(text).Ceil()), float64((m.Ascent + m.Descent).Ceil()), nil
}

// abbreviate returns up to two initials of name for token discs.
func abbreviate(name string) string {
	var out []rune
	start := true
	for _, r := range name {
		if r == ' ' || r == '-' || r == '_' {
			start = true
			continue
		}
		if start {
			out = append(out, r)
			if len(out) == 2 {
				break
			}
			start = false
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}
