// Package assets provides the application icon. The icon is drawn at start
// up rather than shipped as image files, so every size is available.
package assets

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/fogleman/gg"
)

var iconSizes = []int{16, 32, 48, 64, 128, 256}

var (
	iconMu    sync.Mutex
	iconCache = map[int]*image.RGBA{}

	fileOnce sync.Once
	filePath string
	fileErr  error
)

var (
	tileFill   = color.NRGBA{R: 86, G: 140, B: 70, A: 255}
	tileEdge   = color.NRGBA{R: 40, G: 62, B: 34, A: 255}
	riverColor = color.NRGBA{R: 52, G: 110, B: 200, A: 255}
)

// IconSizes lists the sizes the icon is published at.
func IconSizes() []int {
	return append([]int(nil), iconSizes...)
}

// IconImage returns the icon drawn at size pixels square.
func IconImage(size int) (image.Image, error) {
	if size < 8 || size > 1024 {
		return nil, fmt.Errorf("icon size %dpx out of range", size)
	}
	iconMu.Lock()
	defer iconMu.Unlock()
	if img, ok := iconCache[size]; ok {
		return img, nil
	}
	img := drawIcon(size)
	iconCache[size] = img
	return img, nil
}

// IconPNG returns the icon encoded as PNG.
func IconPNG(size int) ([]byte, error) {
	img, err := IconImage(size)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode icon: %w", err)
	}
	return buf.Bytes(), nil
}

// IconFile writes the 128px icon under the user cache directory once and
// returns its path, for notification daemons that want a file.
func IconFile() (string, error) {
	fileOnce.Do(func() {
		dir, err := os.UserCacheDir()
		if err != nil {
			fileErr = err
			return
		}
		data, err := IconPNG(128)
		if err != nil {
			fileErr = err
			return
		}
		p := filepath.Join(dir, "mapforge", "icon-128.png")
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			fileErr = fmt.Errorf("create icon dir: %w", err)
			return
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			fileErr = fmt.Errorf("write icon: %w", err)
			return
		}
		filePath = p
	})
	return filePath, fileErr
}

// drawIcon paints a flat-top hex tile crossed by a river.
func drawIcon(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	dc := gg.NewContextForRGBA(img)
	s := float64(size)
	cx, cy, r := s/2, s/2, s*0.46
	for i := 0; i < 6; i++ {
		a := math.Pi / 3 * float64(i)
		dc.LineTo(cx+r*math.Cos(a), cy+r*math.Sin(a))
	}
	dc.ClosePath()
	dc.SetColor(tileFill)
	dc.FillPreserve()
	dc.SetColor(tileEdge)
	dc.SetLineWidth(math.Max(1, s/24))
	dc.Stroke()

	dc.MoveTo(cx-r*0.55, cy-r*0.7)
	dc.CubicTo(cx+r*0.4, cy-r*0.35, cx-r*0.4, cy+r*0.35, cx+r*0.55, cy+r*0.7)
	dc.SetColor(riverColor)
	dc.SetLineWidth(math.Max(1, s/12))
	dc.SetLineCapRound()
	dc.Stroke()
	return img
}
