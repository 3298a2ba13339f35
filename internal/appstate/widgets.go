package appstate

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/example/mapforge/internal/editor"
	"github.com/example/mapforge/internal/theme"
)

// KeyShortcut describes a window-level keyboard combination.
type KeyShortcut = editor.KeyShortcut

// KeyboardShortcuts returns the shortcuts associated with an action.
type KeyboardShortcuts interface {
	KeyboardShortcuts() []KeyShortcut
}

type shortcutList []KeyShortcut

func (s shortcutList) KeyboardShortcuts() []KeyShortcut { return []KeyShortcut(s) }

// ButtonState describes the visual state of a button.
type ButtonState int

const (
	StateDefault ButtonState = iota
	StateHover
	StatePressed
)

// Button represents an interactive UI element.
type Button interface {
	Draw(dst *image.RGBA, state ButtonState)
	Rect() image.Rectangle
	SetRect(r image.Rectangle)
	Activate()
}

// CacheButton wraps another Button and caches its rendered states.
type CacheButton struct {
	Button
	cache [3]*image.RGBA
}

var _ Button = (*CacheButton)(nil)

func (cb *CacheButton) Draw(dst *image.RGBA, state ButtonState) {
	if cb.cache[state] == nil {
		rect := cb.Button.Rect()
		img := image.NewRGBA(rect)
		cb.Button.Draw(img, state)
		cb.cache[state] = img
	}
	draw.Draw(dst, cb.Button.Rect(), cb.cache[state], cb.Button.Rect().Min, draw.Src)
}

func (cb *CacheButton) SetRect(r image.Rectangle) {
	if r != cb.Button.Rect() {
		cb.Button.SetRect(r)
		cb.cache = [3]*image.RGBA{}
	}
}

func buttonFill(th *theme.Theme, state ButtonState) color.RGBA {
	switch state {
	case StateHover:
		return th.ButtonBackgroundHover
	case StatePressed:
		return th.ButtonBackgroundPress
	}
	return th.ButtonBackground
}

func drawLabel(dst *image.RGBA, th *theme.Theme, s string, x, y int) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(th.ButtonText), Face: basicfont.Face7x13,
		Dot: fixed.P(x, y)}
	d.DrawString(s)
}

func measure(s string) int {
	return (&font.Drawer{Face: basicfont.Face7x13}).MeasureString(s).Ceil()
}

// ToolButton selects an editor tool.
type ToolButton struct {
	theme    *theme.Theme
	tool     editor.Tool
	rect     image.Rectangle
	onSelect func(editor.Tool)
}

func toolLabel(t editor.Tool) string {
	name := t.String()
	return strings.ToUpper(string(t.Shortcut())) + ":" + strings.ToUpper(name[:1]) + name[1:]
}

func (tb *ToolButton) Draw(dst *image.RGBA, state ButtonState) {
	draw.Draw(dst, tb.rect, &image.Uniform{buttonFill(tb.theme, state)}, image.Point{}, draw.Src)
	drawLabel(dst, tb.theme, toolLabel(tb.tool), tb.rect.Min.X+4, tb.rect.Min.Y+16)
}

func (tb *ToolButton) Rect() image.Rectangle     { return tb.rect }
func (tb *ToolButton) SetRect(r image.Rectangle) { tb.rect = r }

func (tb *ToolButton) Activate() {
	if tb.onSelect != nil {
		tb.onSelect(tb.tool)
	}
}

// OptionButton picks a sub-type of the active tool: a terrain, path type,
// label size, wall mode or feature. A non-nil swatch is drawn before the
// label.
type OptionButton struct {
	theme    *theme.Theme
	label    string
	swatch   color.Color
	rect     image.Rectangle
	onSelect func()
}

func (ob *OptionButton) Draw(dst *image.RGBA, state ButtonState) {
	draw.Draw(dst, ob.rect, &image.Uniform{buttonFill(ob.theme, state)}, image.Point{}, draw.Src)
	x := ob.rect.Min.X + 4
	if ob.swatch != nil {
		sw := image.Rect(x, ob.rect.Min.Y+3, x+12, ob.rect.Max.Y-3)
		draw.Draw(dst, sw, &image.Uniform{ob.swatch}, image.Point{}, draw.Over)
		drawRect(dst, sw, ob.theme.ButtonBorder)
		x += 16
	}
	drawLabel(dst, ob.theme, ob.label, x, ob.rect.Min.Y+13)
}

func (ob *OptionButton) Rect() image.Rectangle     { return ob.rect }
func (ob *OptionButton) SetRect(r image.Rectangle) { ob.rect = r }

func (ob *OptionButton) Activate() {
	if ob.onSelect != nil {
		ob.onSelect()
	}
}

// Shortcut is a clickable hint in the status bar.
type Shortcut struct {
	theme  *theme.Theme
	label  string
	action func()
	rect   image.Rectangle
}

func (s *Shortcut) Draw(dst *image.RGBA, state ButtonState) {
	draw.Draw(dst, s.rect, &image.Uniform{buttonFill(s.theme, state)}, image.Point{}, draw.Src)
	drawRect(dst, s.rect, s.theme.ButtonBorder)
	drawLabel(dst, s.theme, s.label, s.rect.Min.X+2, s.rect.Min.Y+14)
}

func (s *Shortcut) Rect() image.Rectangle     { return s.rect }
func (s *Shortcut) SetRect(r image.Rectangle) { s.rect = r }

func (s *Shortcut) Activate() {
	if s.action != nil {
		s.action()
	}
}

// drawRect outlines r with a one pixel border.
func drawRect(dst *image.RGBA, r image.Rectangle, c color.Color) {
	u := &image.Uniform{c}
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), u, image.Point{}, draw.Over)
	draw.Draw(dst, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), u, image.Point{}, draw.Over)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), u, image.Point{}, draw.Over)
	draw.Draw(dst, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), u, image.Point{}, draw.Over)
}

// hit returns the index of the button containing p, or -1.
func hit(buttons []*CacheButton, p image.Point) int {
	for i, b := range buttons {
		if p.In(b.Rect()) {
			return i
		}
	}
	return -1
}
