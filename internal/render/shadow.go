package render

import (
	"image"
	"image/color"
	"image/draw"
	"sync"
)

// ShadowOptions configures a blurred drop shadow.
type ShadowOptions struct {
	Radius  int
	Offset  image.Point
	Opacity float64
}

// DefaultShadowOptions is the drop shadow used around exported maps.
func DefaultShadowOptions() ShadowOptions {
	return ShadowOptions{Radius: 24, Offset: image.Pt(16, 16), Opacity: 0.55}
}

// ApplyShadow returns img on an enlarged transparent canvas with a blurred
// shadow beneath it. The result has a zero origin.
func ApplyShadow(img *image.RGBA, opts ShadowOptions) *image.RGBA {
	if img == nil || img.Bounds().Empty() || opts.Opacity <= 0 {
		return img
	}
	radius := max(opts.Radius, 0)
	src := img.Bounds()
	padded := src.Inset(-radius)

	mask := image.NewGray(padded.Sub(padded.Min))
	for y := src.Min.Y; y < src.Max.Y; y++ {
		for x := src.Min.X; x < src.Max.X; x++ {
			if a := img.RGBAAt(x, y).A; a != 0 {
				mask.SetGray(x-padded.Min.X, y-padded.Min.Y, color.Gray{Y: a})
			}
		}
	}
	shadow := shadowFromMask(mask, radius, opts.Opacity)

	shadowRect := padded.Add(opts.Offset)
	all := src.Union(shadowRect)
	dst := image.NewRGBA(all.Sub(all.Min))
	draw.Draw(dst, shadowRect.Sub(all.Min), shadow, image.Point{}, draw.Over)
	draw.Draw(dst, src.Sub(all.Min), img, src.Min, draw.Over)
	return dst
}

type spriteKey struct {
	diameter, blur int
	opacity        float64
}

var sprites sync.Map // spriteKey -> *image.RGBA

// ShadowSprite returns a soft round shadow for a token of the given pixel
// diameter. Sprites are cached per size.
func ShadowSprite(diameter, blur int, opacity float64) *image.RGBA {
	key := spriteKey{diameter, blur, opacity}
	if s, ok := sprites.Load(key); ok {
		return s.(*image.RGBA)
	}
	blur = max(blur, 0)
	size := diameter + 2*blur
	mask := image.NewGray(image.Rect(0, 0, size, size))
	c := float64(size) / 2
	r2 := float64(diameter) * float64(diameter) / 4
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)+0.5-c, float64(y)+0.5-c
			if dx*dx+dy*dy <= r2 {
				mask.Pix[y*mask.Stride+x] = 255
			}
		}
	}
	s := shadowFromMask(mask, blur, opacity)
	actual, _ := sprites.LoadOrStore(key, s)
	return actual.(*image.RGBA)
}

// shadowFromMask blurs mask and tints it black at the given opacity.
func shadowFromMask(mask *image.Gray, radius int, opacity float64) *image.RGBA {
	opacity = min(max(opacity, 0), 1)
	blurred := blurGray(mask, radius)
	out := image.NewRGBA(blurred.Bounds())
	alpha := uint8(opacity*255 + 0.5)
	draw.DrawMask(out, out.Bounds(), image.NewUniform(color.RGBA{0, 0, 0, alpha}), image.Point{}, blurred, blurred.Bounds().Min, draw.Over)
	return out
}

// blurGray is a separable box blur using running sums per row and column.
func blurGray(src *image.Gray, radius int) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	if radius <= 0 {
		copy(dst.Pix, src.Pix)
		return dst
	}
	w, h := b.Dx(), b.Dy()
	tmp := image.NewGray(b)
	boxPass(w, h, radius, func(i, j int) int { return int(src.Pix[j*src.Stride+i]) },
		func(i, j int, v uint8) { tmp.Pix[j*tmp.Stride+i] = v })
	boxPass(h, w, radius, func(i, j int) int { return int(tmp.Pix[i*tmp.Stride+j]) },
		func(i, j int, v uint8) { dst.Pix[i*dst.Stride+j] = v })
	return dst
}

// boxPass averages along i for every line j, clamping the window at the edges.
func boxPass(n, lines, radius int, get func(i, j int) int, set func(i, j int, v uint8)) {
	prefix := make([]int, n+1)
	for j := 0; j < lines; j++ {
		for i := 0; i < n; i++ {
			prefix[i+1] = prefix[i] + get(i, j)
		}
		for i := 0; i < n; i++ {
			lo := max(i-radius, 0)
			hi := min(i+radius, n-1)
			set(i, j, uint8((prefix[hi+1]-prefix[lo])/(hi-lo+1)))
		}
	}
}
