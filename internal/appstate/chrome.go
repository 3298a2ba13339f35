package appstate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/example/mapforge/internal/content"
	"github.com/example/mapforge/internal/editor"
	"github.com/example/mapforge/internal/render"
	"github.com/example/mapforge/internal/theme"
)

const (
	titleHeight  = 24
	toolHeight   = 24
	optionHeight = 18
	statusHeight = 24

	minToolbarWidth = 96
)

// option is one entry of the sub-type list shown under the tool buttons.
type option struct {
	label    string
	swatch   color.Color
	selected bool
	apply    func()
}

func pathColor(th *theme.Theme, t content.PathType) color.RGBA {
	switch t {
	case content.River:
		return th.River
	case content.Stream:
		return th.Stream
	case content.Border:
		return th.Border
	case content.Trail:
		return th.Trail
	}
	return th.Road
}

// subOptions lists the sub-types of the editor's active tool.
func subOptions(ed *editor.Editor, th *theme.Theme) []option {
	st := ed.State()
	var out []option
	switch st.Tool {
	case editor.ToolTerrain:
		for _, name := range content.TerrainTypes {
			out = append(out, option{
				label:    name,
				swatch:   render.TerrainTint(name),
				selected: name == st.Terrain,
				apply:    func() { ed.SetTerrain(name) },
			})
		}
	case editor.ToolPath:
		for t := content.Road; t <= content.Trail; t++ {
			out = append(out, option{
				label:    t.String(),
				swatch:   pathColor(th, t),
				selected: t == st.PathType,
				apply:    func() { ed.SetPathType(t) },
			})
		}
	case editor.ToolLabel:
		for s := content.Small; s <= content.XLarge; s++ {
			out = append(out, option{
				label:    s.String(),
				selected: s == st.LabelSize,
				apply:    func() { ed.SetLabelSize(s) },
			})
		}
	case editor.ToolWall:
		out = append(out,
			option{label: "add", swatch: th.WallFill, selected: st.WallAdd, apply: func() { ed.SetWallMode(true) }},
			option{label: "remove", selected: !st.WallAdd, apply: func() { ed.SetWallMode(false) }},
		)
	case editor.ToolFeature:
		for _, f := range content.Features {
			out = append(out, option{
				label:    f.Name,
				swatch:   th.FeatureFill,
				selected: f.Name == st.FeatureType,
				apply:    func() { ed.SetFeatureType(f.Name) },
			})
		}
	}
	return out
}

// toolbarWidthFor fits the title, every tool label and every option label.
func toolbarWidthFor(tools []editor.Tool) int {
	w := max(minToolbarWidth, measure("mapforge")+8)
	for _, t := range tools {
		w = max(w, measure(toolLabel(t))+8)
	}
	labels := append([]string{"remove"}, content.TerrainTypes...)
	for _, f := range content.Features {
		labels = append(labels, f.Name)
	}
	for t := content.Road; t <= content.Trail; t++ {
		labels = append(labels, t.String())
	}
	for _, l := range labels {
		w = max(w, measure(l)+24)
	}
	return w
}

// chrome is the toolbar and status bar around the canvas. It is owned by the
// event loop; frames receive finished images of it.
type chrome struct {
	theme        *theme.Theme
	toolbarWidth int

	tools     []*CacheButton
	options   []*CacheButton
	optionSig string
	shortcuts []*CacheButton

	hoverTool     int
	hoverOption   int
	hoverShortcut int
}

func newChrome(th *theme.Theme, tools []editor.Tool, onSelect func(editor.Tool)) *chrome {
	c := &chrome{
		theme:         th,
		toolbarWidth:  toolbarWidthFor(tools),
		hoverTool:     -1,
		hoverOption:   -1,
		hoverShortcut: -1,
	}
	y := titleHeight
	for _, t := range tools {
		c.tools = append(c.tools, &CacheButton{Button: &ToolButton{
			theme:    th,
			tool:     t,
			rect:     image.Rect(0, y, c.toolbarWidth, y+toolHeight),
			onSelect: onSelect,
		}})
		y += toolHeight
	}
	return c
}

// setOptions rebuilds the option buttons when the list changed.
func (c *chrome) setOptions(opts []option) {
	sig := ""
	for _, o := range opts {
		sig += o.label + "\x00"
	}
	if sig == c.optionSig {
		for i, o := range opts {
			c.options[i].Button.(*OptionButton).onSelect = o.apply
		}
		return
	}
	c.optionSig = sig
	c.options = c.options[:0]
	c.hoverOption = -1
	y := titleHeight + len(c.tools)*toolHeight + 6
	for _, o := range opts {
		c.options = append(c.options, &CacheButton{Button: &OptionButton{
			theme:    c.theme,
			label:    o.label,
			swatch:   o.swatch,
			rect:     image.Rect(0, y, c.toolbarWidth, y+optionHeight),
			onSelect: o.apply,
		}})
		y += optionHeight
	}
}

// status is the text content of the status bar.
type status struct {
	tool    editor.Tool
	zoom    int
	save    content.Status
	saveErr error
	message string
}

func (s status) text() string {
	save := s.save.String()
	if s.saveErr != nil {
		save = fmt.Sprintf("%s: %v", save, s.saveErr)
	}
	out := fmt.Sprintf("%s | %d%% | %s", s.tool, s.zoom, save)
	if s.message != "" {
		out += " | " + s.message
	}
	return out
}

// drawToolbar paints the title, tool buttons and options of the active tool.
func (c *chrome) drawToolbar(height int, active editor.Tool, opts []option) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.toolbarWidth, max(height, 1)))
	draw.Draw(img, img.Bounds(), &image.Uniform{c.theme.ToolbarBackground}, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: img, Src: image.NewUniform(c.theme.Foreground), Face: basicfont.Face7x13,
		Dot: fixed.P(4, 16)}
	d.DrawString("mapforge")
	for i, cb := range c.tools {
		state := StateDefault
		if cb.Button.(*ToolButton).tool == active {
			state = StatePressed
		} else if i == c.hoverTool {
			state = StateHover
		}
		cb.Draw(img, state)
	}
	for i, cb := range c.options {
		state := StateDefault
		if i < len(opts) && opts[i].selected {
			state = StatePressed
		} else if i == c.hoverOption {
			state = StateHover
		}
		cb.Draw(img, state)
	}
	return img
}

// drawStatus paints the shortcut hints on the left and the status text on
// the right. Shortcut rects are laid out relative to the bar.
func (c *chrome) drawStatus(width int, st status, trigger func(string)) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, max(width, 1), statusHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{c.theme.StatusBackground}, image.Point{}, draw.Src)
	hints := []struct{ label, action string }{
		{"^S:save", "save"},
		{"^C:copy", "copy"},
		{fmt.Sprintf("+/-:zoom (%d%%)", st.zoom), "zoom-in"},
	}
	if len(c.shortcuts) != len(hints) || c.shortcuts[2].Button.(*Shortcut).label != hints[2].label {
		c.shortcuts = c.shortcuts[:0]
		x := 4
		for _, h := range hints {
			w := measure(h.label)
			c.shortcuts = append(c.shortcuts, &CacheButton{Button: &Shortcut{
				theme:  c.theme,
				label:  h.label,
				action: func() { trigger(h.action) },
				rect:   image.Rect(x, 3, x+w+4, statusHeight-3),
			}})
			x += w + 12
		}
	}
	right := 4
	for i, cb := range c.shortcuts {
		state := StateDefault
		if i == c.hoverShortcut {
			state = StateHover
		}
		cb.Draw(img, state)
		right = cb.Rect().Max.X + 12
	}
	text := st.text()
	x := max(right, width-measure(text)-6)
	d := &font.Drawer{Dst: img, Src: image.NewUniform(c.theme.Foreground), Face: basicfont.Face7x13,
		Dot: fixed.P(x, 16)}
	d.DrawString(text)
	return img
}
