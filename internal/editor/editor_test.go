package editor

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"golang.org/x/mobile/event/key"

	"github.com/example/mapforge/internal/content"
	"github.com/example/mapforge/internal/grid"
	"github.com/example/mapforge/internal/session"
	"github.com/example/mapforge/internal/viewport"
)

type fixture struct {
	m    *content.Model
	vp   *viewport.Viewport
	ed   *Editor
	now  time.Time
	msgs []string
}

func newFixture(t *testing.T, typ grid.Type, w, h int, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{now: time.Unix(1000, 0)}
	f.m = content.NewModel(grid.Map{Type: typ, Width: w, Height: h, CellSize: 40},
		content.WithRand(rand.New(rand.NewSource(1))))
	f.vp = viewport.New()
	opts = append([]Option{
		WithNow(func() time.Time { return f.now }),
		WithMessage(func(s string) { f.msgs = append(f.msgs, s) }),
	}, opts...)
	f.ed = New(f.m, f.vp, opts...)
	return f
}

func (f *fixture) wait(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) click(p grid.Point) {
	s := f.vp.WorldToScreen(p)
	f.ed.PointerDown(s)
	f.ed.PointerUp(s)
	f.wait(time.Second)
}

func (f *fixture) center(c grid.Coord) grid.Point { return f.m.Grid().CellCenter(c) }

func press(r rune, code key.Code) key.Event {
	return key.Event{Rune: r, Code: code, Direction: key.DirPress}
}

func TestEraseTerrainScenario(t *testing.T) {
	f := newFixture(t, grid.Hex, 30, 30)
	c := grid.Coord{Col: 5, Row: 5}
	f.m.StampTerrain(c, "forest")
	if !f.ed.SetTool(ToolErase) {
		t.Fatal("erase is legal on hex maps")
	}
	f.click(grid.HexToPixel(c, 40))
	if n := f.m.TerrainCount(); n != 0 {
		t.Fatalf("terrain size %d after erase, want 0", n)
	}
}

func TestToolLegality(t *testing.T) {
	sq := newFixture(t, grid.Square, 10, 10)
	for _, tool := range []Tool{ToolTerrain, ToolPath} {
		if sq.ed.SetTool(tool) {
			t.Errorf("%v should be illegal on square maps", tool)
		}
	}
	for _, tool := range []Tool{ToolWall, ToolFeature, ToolPan, ToolLabel, ToolErase} {
		if !sq.ed.SetTool(tool) {
			t.Errorf("%v should be legal on square maps", tool)
		}
	}
	hx := newFixture(t, grid.Hex, 10, 10)
	hx.ed.Key(press('w', key.CodeW))
	if hx.ed.Tool() != ToolPan {
		t.Fatalf("W on a hex map must be ignored, tool is %v", hx.ed.Tool())
	}
	hx.ed.Key(press('T', key.CodeT))
	if hx.ed.Tool() != ToolTerrain {
		t.Fatalf("T should select terrain, tool is %v", hx.ed.Tool())
	}
}

func TestTerrainDragSkipsRepeatedCells(t *testing.T) {
	writes := 0
	f := newFixture(t, grid.Hex, 30, 30)
	f.m.SetOnChange(func() { writes++ })
	f.ed.SetTool(ToolTerrain)
	f.ed.SetTerrain("hills")
	a := f.center(grid.Coord{Col: 2, Row: 2})
	b := f.center(grid.Coord{Col: 3, Row: 2})
	f.ed.PointerDown(a)
	f.ed.PointerMove(a.Add(grid.Point{X: 1, Y: 1}))
	f.ed.PointerMove(a.Add(grid.Point{X: -1, Y: 0}))
	f.ed.PointerMove(b)
	f.ed.PointerUp(b)
	if writes != 2 || f.m.TerrainCount() != 2 {
		t.Fatalf("writes %d stamps %d, want 2 and 2", writes, f.m.TerrainCount())
	}
	f.ed.PointerMove(grid.Point{X: 600, Y: 600})
	if f.m.TerrainCount() != 2 {
		t.Fatal("moving without a button must not paint")
	}

	f.ed.SetTerrain(content.ClearTerrain)
	f.ed.PointerDown(a)
	f.ed.PointerUp(a)
	if f.m.TerrainCount() != 1 {
		t.Fatalf("clear brush should remove one stamp, have %d", f.m.TerrainCount())
	}
}

func TestFinishShortPathDiscards(t *testing.T) {
	f := newFixture(t, grid.Hex, 30, 30)
	f.ed.SetTool(ToolPath)
	f.click(grid.Point{X: 100, Y: 100})
	if !f.ed.Key(press(0, key.CodeReturnEnter)) {
		t.Fatal("Enter should be consumed while drafting")
	}
	if len(f.m.Paths()) != 0 {
		t.Fatal("single-point path must be discarded")
	}
	if len(f.ed.State().Draft) != 0 {
		t.Fatal("draft should be cleared")
	}
}

func TestPathClicksAndDoubleClick(t *testing.T) {
	f := newFixture(t, grid.Hex, 30, 30)
	f.ed.SetTool(ToolPath)
	f.ed.Key(press('2', key.Code2))
	f.click(f.center(grid.Coord{Col: 2, Row: 2}))
	f.click(f.center(grid.Coord{Col: 6, Row: 2}))
	if got := len(f.ed.State().Draft); got != 2 {
		t.Fatalf("draft has %d points, want 2", got)
	}
	// Second click of a double-click finalizes.
	s := f.vp.WorldToScreen(f.center(grid.Coord{Col: 9, Row: 4}))
	f.ed.PointerDown(s)
	f.ed.PointerUp(s)
	f.wait(100 * time.Millisecond)
	f.ed.PointerDown(s)
	f.ed.PointerUp(s)
	paths := f.m.Paths()
	if len(paths) != 1 {
		t.Fatalf("expected one path, got %d", len(paths))
	}
	if paths[0].Type != content.River || len(paths[0].Points) != 3 {
		t.Fatalf("unexpected path %+v", paths[0])
	}
	if f.ed.State().SelectedPath != paths[0].ID {
		t.Fatal("finished path should be selected")
	}
}

func TestBorderPathSnapsToCorners(t *testing.T) {
	f := newFixture(t, grid.Hex, 30, 30)
	f.ed.SetTool(ToolPath)
	f.ed.Key(press('4', key.Code4))
	if f.ed.State().PathType != content.Border {
		t.Fatal("4 should select border paths")
	}
	center := f.center(grid.Coord{Col: 5, Row: 5})
	mids := grid.HexEdgeMidpoints(center, 40)
	f.click(mids[1].Add(grid.Point{X: 0.5, Y: 0.5}))
	f.click(mids[4].Add(grid.Point{X: -0.5, Y: -0.5}))
	f.ed.Key(press(0, key.CodeReturnEnter))
	paths := f.m.Paths()
	if len(paths) != 1 {
		t.Fatalf("expected one path, got %d", len(paths))
	}
	for _, p := range paths[0].Points {
		for _, m := range mids {
			if p.Eq(m, 1e-6) {
				t.Fatalf("border vertex %v landed on an edge midpoint", p)
			}
		}
		if !isCorner(p) {
			t.Fatalf("border vertex %v is not a hex corner", p)
		}
	}
}

func isCorner(p grid.Point) bool {
	home := grid.PixelToHex(p.X, p.Y, 40)
	nbrs := grid.HexNeighbors(home)
	cells := append([]grid.Coord{home}, nbrs[:]...)
	for _, c := range cells {
		for _, k := range grid.HexCorners(grid.HexToPixel(c, 40), 40) {
			if p.Eq(k, 1e-6) {
				return true
			}
		}
	}
	return false
}

func TestDragPathVertexResnaps(t *testing.T) {
	f := newFixture(t, grid.Hex, 30, 30)
	f.ed.SetTool(ToolPath)
	a := grid.HexCorners(f.center(grid.Coord{Col: 3, Row: 3}), 40)[0]
	b := grid.HexCorners(f.center(grid.Coord{Col: 8, Row: 3}), 40)[0]
	p, err := f.m.AddPath(content.Road, []grid.Point{a, b})
	if err != nil {
		t.Fatal(err)
	}
	f.click(a.Mid(b))
	if f.ed.State().SelectedPath != p.ID {
		t.Fatal("click on a path should select it")
	}
	target := grid.HexCorners(f.center(grid.Coord{Col: 3, Row: 6}), 40)[2]
	f.ed.PointerDown(f.vp.WorldToScreen(a))
	f.ed.PointerMove(f.vp.WorldToScreen(target.Add(grid.Point{X: 2, Y: -1})))
	f.ed.PointerUp(f.vp.WorldToScreen(target))
	got, _ := f.m.Path(p.ID)
	if !got.Points[0].Eq(target, 1e-6) {
		t.Fatalf("vertex at %v, want snapped %v", got.Points[0], target)
	}
}

func TestSwitchingToolDiscardsDraft(t *testing.T) {
	f := newFixture(t, grid.Hex, 30, 30)
	f.ed.SetTool(ToolPath)
	f.click(grid.Point{X: 100, Y: 100})
	f.click(grid.Point{X: 200, Y: 100})
	f.ed.Key(press('l', key.CodeL))
	if f.ed.Tool() != ToolLabel {
		t.Fatalf("tool %v", f.ed.Tool())
	}
	if len(f.ed.State().Draft) != 0 || len(f.m.Paths()) != 0 {
		t.Fatal("switching tools must discard the draft without committing")
	}
}

func TestSpaceHeldPansTemporarily(t *testing.T) {
	f := newFixture(t, grid.Hex, 30, 30)
	f.ed.SetTool(ToolPath)
	f.click(grid.Point{X: 100, Y: 100})
	f.ed.Key(key.Event{Code: key.CodeSpacebar, Direction: key.DirPress})
	if f.ed.Tool() != ToolPan {
		t.Fatal("space should force pan")
	}
	f.ed.PointerDown(grid.Point{X: 10, Y: 10})
	f.ed.PointerMove(grid.Point{X: 40, Y: 30})
	f.ed.PointerUp(grid.Point{X: 40, Y: 30})
	f.ed.Key(key.Event{Code: key.CodeSpacebar, Direction: key.DirRelease})
	if f.ed.Tool() != ToolPath {
		t.Fatalf("tool should be restored, got %v", f.ed.Tool())
	}
	if f.vp.Offset != (grid.Point{X: 30, Y: 20}) {
		t.Fatalf("offset %v", f.vp.Offset)
	}
	if len(f.ed.State().Draft) != 1 {
		t.Fatal("temporary pan must keep the draft")
	}
}

func TestWallModes(t *testing.T) {
	f := newFixture(t, grid.Square, 10, 10)
	f.ed.SetTool(ToolWall)
	writes := 0
	f.m.SetOnChange(func() { writes++ })
	cell := func(c, r int) grid.Point { return f.center(grid.Coord{Col: c, Row: r}) }

	f.ed.PointerDown(cell(1, 1))
	f.ed.PointerMove(cell(2, 1))
	f.ed.PointerMove(cell(3, 1))
	f.ed.PointerUp(cell(3, 1))
	if f.m.WallCount() != 3 || writes != 3 {
		t.Fatalf("walls %d writes %d", f.m.WallCount(), writes)
	}
	f.ed.PointerDown(cell(2, 1))
	f.ed.PointerUp(cell(2, 1))
	if writes != 3 {
		t.Fatal("adding over an existing wall must be a no-op")
	}

	f.ed.Key(press('2', key.Code2))
	f.ed.PointerDown(cell(5, 5))
	f.ed.PointerMove(cell(2, 1))
	f.ed.PointerUp(cell(2, 1))
	if f.m.WallCount() != 2 || writes != 4 {
		t.Fatalf("walls %d writes %d after removal", f.m.WallCount(), writes)
	}
}

func TestFeaturePlacementAndRotation(t *testing.T) {
	const w = 10
	f := newFixture(t, grid.Square, w, 10)
	f.ed.SetTool(ToolFeature)
	if !f.ed.SetFeatureType("bed") {
		t.Fatal("bed is a known feature")
	}
	f.ed.Key(press('z', key.CodeZ))
	if f.ed.State().FeatureRotation != 90 {
		t.Fatalf("rotation %d", f.ed.State().FeatureRotation)
	}
	f.click(f.center(grid.Coord{Col: w - 1, Row: 0}))
	if len(f.m.Features()) != 0 {
		t.Fatal("rotated bed at the right edge must be rejected")
	}
	if len(f.msgs) == 0 {
		t.Fatal("rejection should produce a message")
	}
	f.ed.Key(key.Event{Rune: 'Z', Code: key.CodeZ, Modifiers: key.ModShift, Direction: key.DirPress})
	if f.ed.State().FeatureRotation != 0 {
		t.Fatalf("shift+z should rotate back, got %d", f.ed.State().FeatureRotation)
	}
	f.click(f.center(grid.Coord{Col: w - 1, Row: 0}))
	feats := f.m.Features()
	if len(feats) != 1 {
		t.Fatalf("upright bed should fit, have %d features", len(feats))
	}

	// Select it, then rotate: the rotated footprint leaves the map.
	f.ed.Key(press('z', key.CodeZ))
	f.click(f.center(grid.Coord{Col: w - 1, Row: 1}))
	st := f.ed.State()
	if st.SelectedFeature != feats[0].ID || st.FeatureRotation != 0 {
		t.Fatalf("selecting should sync rotation: %+v", st)
	}
	if f.ed.Rotate(false) {
		t.Fatal("rotation off the map must be rejected")
	}

	// Drag the selected bed two cells left.
	from := f.vp.WorldToScreen(f.center(grid.Coord{Col: w - 1, Row: 1}))
	to := f.vp.WorldToScreen(f.center(grid.Coord{Col: w - 3, Row: 1}))
	f.ed.PointerDown(from)
	f.ed.PointerMove(to)
	f.ed.PointerUp(to)
	got, _ := f.m.Feature(feats[0].ID)
	if got.Position != (grid.Coord{Col: w - 3, Row: 0}) {
		t.Fatalf("feature at %v after drag", got.Position)
	}
	if !f.ed.Rotate(false) {
		t.Fatal("rotation should now fit")
	}
	got, _ = f.m.Feature(feats[0].ID)
	if got.Rotation != 90 {
		t.Fatalf("rotation %d", got.Rotation)
	}
	// Dragging so the footprint leaves the map is refused.
	from = f.vp.WorldToScreen(f.center(grid.Coord{Col: w - 3, Row: 0}))
	to = f.vp.WorldToScreen(f.center(grid.Coord{Col: w - 1, Row: 0}))
	f.ed.PointerDown(from)
	f.ed.PointerMove(to)
	f.ed.PointerUp(to)
	got, _ = f.m.Feature(feats[0].ID)
	if got.Position != (grid.Coord{Col: w - 3, Row: 0}) {
		t.Fatalf("out-of-bounds drag moved feature to %v", got.Position)
	}
}

func TestLabelLifecycle(t *testing.T) {
	f := newFixture(t, grid.Square, 20, 20)
	f.ed.SetTool(ToolLabel)
	f.ed.Key(press('3', key.Code3))
	pos := grid.Point{X: 200, Y: 200}
	f.click(pos)
	if _, ok := f.ed.LabelEntry(); !ok {
		t.Fatal("click on empty space should open an entry")
	}
	for _, r := range "Inn" {
		f.ed.Key(press(r, key.CodeUnknown))
	}
	f.ed.Key(press(0, key.CodeReturnEnter))
	labels := f.m.Labels()
	if len(labels) != 1 || labels[0].Text != "Inn" || labels[0].Size != content.Large {
		t.Fatalf("unexpected labels %+v", labels)
	}

	// Empty confirm on a new label discards it.
	f.click(grid.Point{X: 600, Y: 600})
	f.ed.Key(press(' ', key.CodeSpacebar))
	f.ed.Key(press(0, key.CodeReturnEnter))
	if len(f.m.Labels()) != 1 {
		t.Fatal("empty new label must be discarded")
	}

	// Double-click edits; emptying the text deletes.
	s := f.vp.WorldToScreen(pos)
	f.ed.PointerDown(s)
	f.ed.PointerUp(s)
	f.wait(50 * time.Millisecond)
	f.ed.PointerDown(s)
	f.ed.PointerUp(s)
	entry, ok := f.ed.LabelEntry()
	if !ok || entry.ID != labels[0].ID || entry.Text != "Inn" {
		t.Fatalf("double-click should edit the label, entry %+v", entry)
	}
	for i := 0; i < 3; i++ {
		f.ed.Key(press(0, key.CodeDeleteBackspace))
	}
	f.ed.Key(press(0, key.CodeReturnEnter))
	if len(f.m.Labels()) != 0 {
		t.Fatal("empty confirm on an existing label must delete it")
	}
}

func TestLabelDrag(t *testing.T) {
	f := newFixture(t, grid.Square, 20, 20)
	l, _ := f.m.AddLabel("Camp", grid.Point{X: 100, Y: 100}, content.Medium)
	f.ed.SetTool(ToolLabel)
	f.click(grid.Point{X: 100, Y: 100})
	if f.ed.State().SelectedLabel != l.ID {
		t.Fatal("first click selects")
	}
	f.ed.PointerDown(grid.Point{X: 102, Y: 101})
	f.ed.PointerMove(grid.Point{X: 152, Y: 131})
	f.ed.PointerUp(grid.Point{X: 152, Y: 131})
	got, _ := f.m.Label(l.ID)
	if got.Position != (grid.Point{X: 150, Y: 130}) {
		t.Fatalf("label at %v after drag", got.Position)
	}
}

func TestEraseTwoStep(t *testing.T) {
	f := newFixture(t, grid.Hex, 30, 30)
	p, _ := f.m.AddPath(content.Road, []grid.Point{{X: 100, Y: 100}, {X: 300, Y: 100}})
	f.m.StampTerrain(grid.PixelToHex(200, 100, 40), "plains")
	f.ed.SetTool(ToolErase)
	f.click(grid.Point{X: 200, Y: 101})
	if len(f.m.Paths()) != 1 || f.ed.State().SelectedPath != p.ID {
		t.Fatal("first erase click should only select the path")
	}
	f.click(grid.Point{X: 200, Y: 101})
	if len(f.m.Paths()) != 0 {
		t.Fatal("second erase click should delete the path")
	}
	if f.m.TerrainCount() != 1 {
		t.Fatal("terrain under the path must survive path deletion")
	}
	f.click(grid.Point{X: 200, Y: 101})
	if f.m.TerrainCount() != 0 {
		t.Fatal("next click should erase terrain")
	}
}

func TestDeleteKeyRemovesSelection(t *testing.T) {
	f := newFixture(t, grid.Square, 10, 10)
	feat, _ := f.m.PlaceFeature("door", grid.Coord{Col: 2, Row: 2}, 0)
	f.ed.SetTool(ToolFeature)
	f.click(f.center(grid.Coord{Col: 2, Row: 2}))
	if f.ed.State().SelectedFeature != feat.ID {
		t.Fatal("feature should be selected")
	}
	if !f.ed.Key(press(0, key.CodeDeleteBackspace)) {
		t.Fatal("delete should be consumed")
	}
	if len(f.m.Features()) != 0 {
		t.Fatal("feature should be deleted")
	}
}

func TestEscapeCancelsThenDeselects(t *testing.T) {
	f := newFixture(t, grid.Hex, 30, 30)
	p, _ := f.m.AddPath(content.Trail, []grid.Point{{X: 40, Y: 40}, {X: 400, Y: 40}})
	f.ed.SetTool(ToolPath)
	f.click(grid.Point{X: 200, Y: 40})
	if f.ed.State().SelectedPath != p.ID {
		t.Fatal("path should be selected")
	}
	f.ed.Key(press(0, key.CodeEscape))
	if f.ed.State().SelectedPath != "" {
		t.Fatal("escape should deselect")
	}
	f.click(grid.Point{X: 600, Y: 600})
	f.ed.Key(press(0, key.CodeEscape))
	if len(f.ed.State().Draft) != 0 || len(f.m.Paths()) != 1 {
		t.Fatal("escape should cancel the draft")
	}
}

func TestNonFiniteInputIgnored(t *testing.T) {
	f := newFixture(t, grid.Hex, 30, 30)
	f.ed.SetTool(ToolTerrain)
	f.ed.PointerDown(grid.Point{X: math.NaN(), Y: 0})
	f.ed.PointerMove(grid.Point{X: math.Inf(1), Y: 0})
	f.ed.PointerUp(grid.Point{X: math.NaN(), Y: math.NaN()})
	if f.m.TerrainCount() != 0 {
		t.Fatal("non-finite input must not mutate content")
	}
}

func TestPointerLeaveStopsPainting(t *testing.T) {
	f := newFixture(t, grid.Square, 10, 10)
	f.ed.SetTool(ToolWall)
	f.ed.PointerDown(f.center(grid.Coord{Col: 1, Row: 1}))
	f.ed.PointerLeave()
	f.ed.PointerMove(f.center(grid.Coord{Col: 2, Row: 1}))
	if f.m.WallCount() != 1 {
		t.Fatalf("walls %d, want the one painted before leaving", f.m.WallCount())
	}
}

type sinkRecorder struct {
	cells  []grid.Coord
	clicks []string
	drags  []grid.Coord
}

func (s *sinkRecorder) OnCellClick(c grid.Coord) { s.cells = append(s.cells, c) }
func (s *sinkRecorder) OnTokenClick(id string) { s.clicks = append(s.clicks, id) }
func (s *sinkRecorder) OnTokenDrag(id string, to grid.Coord) { s.drags = append(s.drags, to) }

func TestSessionIntents(t *testing.T) {
	o := &session.Overlay{
		Revealed:    map[grid.Coord]struct{}{{Col: 2, Row: 2}: {}},
		Tokens:      []session.Token{{ID: "tok", Name: "Aria", Position: grid.Coord{Col: 2, Row: 2}}},
		IsDM:        false,
		SessionTool: "select",
	}
	sink := &sinkRecorder{}
	f := newFixture(t, grid.Square, 10, 10,
		WithOverlay(func() *session.Overlay { return o }), WithIntentSink(sink))
	f.ed.SetTool(ToolWall)

	f.click(f.center(grid.Coord{Col: 4, Row: 4}))
	if len(sink.cells) != 1 || sink.cells[0] != (grid.Coord{Col: 4, Row: 4}) {
		t.Fatalf("cell clicks %v", sink.cells)
	}
	if f.m.WallCount() != 0 {
		t.Fatal("session input must not reach the editing tools")
	}
	f.click(f.center(grid.Coord{Col: 2, Row: 2}))
	if len(sink.clicks) != 1 || sink.clicks[0] != "tok" {
		t.Fatalf("token clicks %v", sink.clicks)
	}
	from := f.center(grid.Coord{Col: 2, Row: 2})
	to := f.center(grid.Coord{Col: 3, Row: 2})
	f.ed.PointerDown(from)
	f.ed.PointerMove(to)
	if f.ed.State().DraggingToken != "tok" {
		t.Fatal("drag state should expose the token")
	}
	f.ed.PointerUp(to)
	if len(sink.drags) != 1 || sink.drags[0] != (grid.Coord{Col: 3, Row: 2}) {
		t.Fatalf("token drags %v", sink.drags)
	}
}
