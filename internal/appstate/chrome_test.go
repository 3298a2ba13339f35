package appstate

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/example/mapforge/internal/content"
	"github.com/example/mapforge/internal/editor"
	"github.com/example/mapforge/internal/grid"
	"github.com/example/mapforge/internal/theme"
	"github.com/example/mapforge/internal/viewport"
)

type countingButton struct {
	rect  image.Rectangle
	draws int
}

func (b *countingButton) Draw(dst *image.RGBA, _ ButtonState) { b.draws++ }
func (b *countingButton) Rect() image.Rectangle                { return b.rect }
func (b *countingButton) SetRect(r image.Rectangle)            { b.rect = r }
func (b *countingButton) Activate()                            {}

func TestCacheButtonReusesRenderedState(t *testing.T) {
	inner := &countingButton{rect: image.Rect(0, 0, 10, 10)}
	cb := &CacheButton{Button: inner}
	dst := image.NewRGBA(image.Rect(0, 0, 20, 20))
	cb.Draw(dst, StateDefault)
	cb.Draw(dst, StateDefault)
	if inner.draws != 1 {
		t.Fatalf("draws = %d, want 1", inner.draws)
	}
	cb.Draw(dst, StateHover)
	cb.SetRect(image.Rect(0, 10, 10, 20))
	cb.Draw(dst, StateDefault)
	if inner.draws != 3 {
		t.Fatalf("draws after move = %d, want 3", inner.draws)
	}
}

func TestToolLabel(t *testing.T) {
	if got := toolLabel(editor.ToolPath); got != "R:Path" {
		t.Errorf("toolLabel(path) = %q", got)
	}
	if got := toolLabel(editor.ToolPan); got != "P:Pan" {
		t.Errorf("toolLabel(pan) = %q", got)
	}
}

func newTestEditor(typ grid.Type) *editor.Editor {
	m := content.NewModel(grid.Map{Type: typ, Width: 10, Height: 10, CellSize: 40})
	return editor.New(m, viewport.New())
}

func TestSubOptionsFollowActiveTool(t *testing.T) {
	th := theme.Default()
	ed := newTestEditor(grid.Hex)
	if opts := subOptions(ed, th); len(opts) != 0 {
		t.Fatalf("pan options = %d, want 0", len(opts))
	}
	ed.SetTool(editor.ToolTerrain)
	opts := subOptions(ed, th)
	if len(opts) != len(content.TerrainTypes) {
		t.Fatalf("terrain options = %d", len(opts))
	}
	opts[1].apply()
	opts = subOptions(ed, th)
	if !opts[1].selected || opts[0].selected {
		t.Errorf("selection did not follow apply: %+v", opts[:2])
	}

	sq := newTestEditor(grid.Square)
	sq.SetTool(editor.ToolWall)
	opts = subOptions(sq, th)
	if len(opts) != 2 || !opts[0].selected {
		t.Fatalf("wall options = %+v", opts)
	}
	opts[1].apply()
	if sq.State().WallAdd {
		t.Error("remove option left wall mode on add")
	}
}

func TestChromeOptionsRebuildOnlyOnChange(t *testing.T) {
	th := theme.Default()
	ed := newTestEditor(grid.Hex)
	ui := newChrome(th, editor.Tools(grid.Hex), func(t editor.Tool) { ed.SetTool(t) })
	if len(ui.tools) != len(editor.Tools(grid.Hex)) {
		t.Fatalf("tools = %d", len(ui.tools))
	}
	ed.SetTool(editor.ToolPath)
	ui.setOptions(subOptions(ed, th))
	first := ui.options[0]
	ui.setOptions(subOptions(ed, th))
	if ui.options[0] != first {
		t.Error("identical options rebuilt their buttons")
	}
	ed.SetTool(editor.ToolTerrain)
	ui.setOptions(subOptions(ed, th))
	if len(ui.options) != len(content.TerrainTypes) {
		t.Errorf("options = %d after tool change", len(ui.options))
	}
	below := ui.tools[len(ui.tools)-1].Rect().Max.Y
	if ui.options[0].Rect().Min.Y <= below {
		t.Error("options overlap the tool buttons")
	}
}

func TestChromeToolButtonSelectsTool(t *testing.T) {
	ed := newTestEditor(grid.Square)
	ui := newChrome(theme.Default(), editor.Tools(grid.Square), func(t editor.Tool) { ed.SetTool(t) })
	for i, cb := range ui.tools {
		if cb.Button.(*ToolButton).tool != editor.ToolWall {
			continue
		}
		centre := cb.Rect().Min.Add(image.Pt(5, 5))
		if got := hit(ui.tools, centre); got != i {
			t.Fatalf("hit = %d, want %d", got, i)
		}
		cb.Activate()
	}
	if ed.Tool() != editor.ToolWall {
		t.Errorf("tool = %v, want wall", ed.Tool())
	}
}

func TestStatusBar(t *testing.T) {
	ui := newChrome(theme.Default(), nil, nil)
	var fired string
	img := ui.drawStatus(800, status{tool: editor.ToolPath, zoom: 150, save: content.StatusSaved}, func(a string) { fired = a })
	if img.Bounds().Dx() != 800 || img.Bounds().Dy() != statusHeight {
		t.Fatalf("status size = %v", img.Bounds())
	}
	if len(ui.shortcuts) != 3 {
		t.Fatalf("shortcuts = %d", len(ui.shortcuts))
	}
	ui.shortcuts[0].Activate()
	if fired != "save" {
		t.Errorf("fired = %q, want save", fired)
	}

	text := status{tool: editor.ToolPan, zoom: 100, save: content.StatusError, saveErr: errors.New("disk full"), message: "hi"}.text()
	for _, want := range []string{"pan", "100%", "error: disk full", "hi"} {
		if !strings.Contains(text, want) {
			t.Errorf("status %q missing %q", text, want)
		}
	}
}

func TestNewWiresPersister(t *testing.T) {
	m := content.NewModel(grid.Map{Type: grid.Square, Width: 5, Height: 5, CellSize: 40})
	var saved []content.Document
	a := New("test", m, WithSaveFunc(func(_ context.Context, d content.Document) error {
		saved = append(saved, d)
		return nil
	}))
	t.Cleanup(a.notifyClose)
	if a.Persister() == nil {
		t.Fatal("no persister with a save func")
	}
	m.SetWall(grid.Coord{Col: 1, Row: 1}, true)
	if err := a.Persister().Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(saved) != 1 || len(saved[0].Walls) != 1 {
		t.Fatalf("saved = %+v", saved)
	}
	if New("bare", m).Persister() != nil {
		t.Error("persister without a save func")
	}
}

func TestLayoutCentresOnFirstRealSize(t *testing.T) {
	g := grid.Map{Type: grid.Square, Width: 10, Height: 10, CellSize: 20}
	vp := viewport.New()
	lay := &layout{width: defaultWidth, height: defaultHeight, toolbarWidth: 100}
	if vp.Centered() {
		t.Fatal("centred before any size event")
	}
	lay.resize(0, 0, vp, g)
	if vp.Centered() {
		t.Fatal("empty size centred the map")
	}
	lay.resize(700, 524, vp, g)
	// canvas is 600x500; map is 200x200
	if want := (grid.Point{X: 200, Y: 150}); vp.Offset != want {
		t.Errorf("offset = %+v, want %+v", vp.Offset, want)
	}
	lay.resize(1400, 1024, vp, g)
	if want := (grid.Point{X: 200, Y: 150}); vp.Offset != want {
		t.Errorf("second size moved the map to %+v", vp.Offset)
	}
	if got := lay.canvas(); got != image.Rect(100, 0, 1400, 1000) {
		t.Errorf("canvas = %v", got)
	}
}
