package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/example/mapforge/internal/content"
	"github.com/example/mapforge/internal/editor"
	"github.com/example/mapforge/internal/grid"
	"github.com/example/mapforge/internal/session"
	"github.com/example/mapforge/internal/theme"
)

func squareModel(t *testing.T, cs float64) *content.Model {
	t.Helper()
	return content.NewModel(grid.Map{Type: grid.Square, Width: 10, Height: 10, CellSize: cs})
}

func renderFrame(t *testing.T, f Frame) *image.RGBA {
	t.Helper()
	r := New()
	t.Cleanup(r.Close)
	dst := image.NewRGBA(image.Rect(0, 0, 400, 400))
	f.Zoom = 1
	if err := r.Render(context.Background(), dst, f); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return dst
}

func opaque(c color.RGBA) color.RGBA { c.A = 255; return c }

func TestRenderWallFill(t *testing.T) {
	m := squareModel(t, 20)
	m.SetWall(grid.Coord{Col: 2, Row: 3}, true)
	img := renderFrame(t, Frame{Model: m})
	th := theme.Default()
	if got := img.RGBAAt(50, 70); got != th.WallFill {
		t.Errorf("wall pixel = %v, want %v", got, th.WallFill)
	}
	if got := img.RGBAAt(90, 90); got != th.CellFill {
		t.Errorf("empty cell pixel = %v, want %v", got, th.CellFill)
	}
	if got := img.RGBAAt(300, 300); got != th.Background {
		t.Errorf("outside map = %v, want background %v", got, th.Background)
	}
}

func TestRenderPlayerFogHidesTokens(t *testing.T) {
	m := squareModel(t, 40)
	ov := &session.Overlay{
		Revealed: map[grid.Coord]struct{}{{Col: 0, Row: 0}: {}},
		Tokens:   []session.Token{{ID: "t1", Type: "monster", Name: "Goblin", Position: grid.Coord{Col: 4, Row: 4}}},
	}
	img := renderFrame(t, Frame{Model: m, Overlay: ov})
	th := theme.Default()
	if got := img.RGBAAt(20, 20); got != th.CellFill {
		t.Errorf("revealed cell = %v, want %v", got, th.CellFill)
	}
	if got := img.RGBAAt(170, 180); got != opaque(th.FogPlayer) {
		t.Errorf("hidden token leaked, pixel %v", got)
	}
}

func TestRenderDMSeesTokensThroughFog(t *testing.T) {
	m := squareModel(t, 40)
	ov := &session.Overlay{
		IsDM:   true,
		Tokens: []session.Token{{ID: "t1", Type: "monster", Name: "Goblin", Position: grid.Coord{Col: 4, Row: 4}}},
	}
	img := renderFrame(t, Frame{Model: m, Overlay: ov})
	th := theme.Default()
	// Inside the disc, clear of the border ring and initials.
	if got := img.RGBAAt(170, 180); got != th.TokenBackground {
		t.Errorf("token body = %v, want %v", got, th.TokenBackground)
	}
	if got := img.RGBAAt(300, 20); got == th.CellFill || got == opaque(th.FogPlayer) {
		t.Errorf("DM fog should be translucent, got %v", got)
	}
}

func TestRenderCancelled(t *testing.T) {
	m := squareModel(t, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New()
	defer r.Close()
	err := r.Render(ctx, image.NewRGBA(image.Rect(0, 0, 50, 50)), Frame{Model: m, Zoom: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRenderHexWithPaths(t *testing.T) {
	m := content.NewModel(grid.Map{Type: grid.Hex, Width: 8, Height: 8, CellSize: 40})
	m.StampTerrain(grid.Coord{Col: 2, Row: 2}, "forest")
	if _, err := m.AddPath(content.River, []grid.Point{{X: 10, Y: 10}, {X: 120, Y: 80}, {X: 200, Y: 60}}); err != nil {
		t.Fatal(err)
	}
	img := renderFrame(t, Frame{Model: m})
	th := theme.Default()
	if got := img.RGBAAt(120, 80); got != th.River {
		t.Errorf("river vertex pixel = %v, want %v", got, th.River)
	}
}

func TestEraseHoverDrawsCross(t *testing.T) {
	m := squareModel(t, 40)
	plain := renderFrame(t, Frame{Model: m})
	hover := renderFrame(t, Frame{Model: m, State: editor.DrawState{
		Tool:    editor.ToolErase,
		Hover:   grid.Point{X: 100, Y: 100},
		HoverOK: true,
	}})
	// centre of cell (2,2) and a point on one diagonal
	for _, pt := range []image.Point{{100, 100}, {92, 92}} {
		if hover.RGBAAt(pt.X, pt.Y) == plain.RGBAAt(pt.X, pt.Y) {
			t.Errorf("no erase mark at %v", pt)
		}
	}
	if hover.RGBAAt(94, 106) == plain.RGBAAt(94, 106) && hover.RGBAAt(106, 94) == plain.RGBAAt(106, 94) {
		t.Error("second diagonal missing")
	}
}

func TestRenderRoadUsesStraightSegments(t *testing.T) {
	m := content.NewModel(grid.Map{Type: grid.Hex, Width: 8, Height: 8, CellSize: 40})
	if _, err := m.AddPath(content.Road, []grid.Point{{X: 20, Y: 20}, {X: 100, Y: 100}, {X: 180, Y: 20}}); err != nil {
		t.Fatal(err)
	}
	img := renderFrame(t, Frame{Model: m})
	road := theme.Default().Road
	if got := img.RGBAAt(60, 60); got != road {
		t.Errorf("pixel on the chord = %v, want road %v", got, road)
	}
	if got := img.RGBAAt(55, 65); got == road {
		t.Error("road bulges off its chord like a spline")
	}
}

func TestPolylineKeepsControlPointsOnChord(t *testing.T) {
	pts := []grid.Point{{X: 0, Y: 0}, {X: 30, Y: 30}, {X: 60, Y: 0}}
	cv := Polyline(pts)
	if len(cv.Segments) != 2 {
		t.Fatalf("segments = %d", len(cv.Segments))
	}
	s := cv.Segments[0]
	if s.C1 != (grid.Point{X: 10, Y: 10}) || s.C2 != (grid.Point{X: 20, Y: 20}) {
		t.Errorf("controls = %+v %+v", s.C1, s.C2)
	}
	if cv.Bounds.Max.Y != 30 {
		t.Errorf("bounds %+v", cv.Bounds)
	}
}

func TestSmoothPassesThroughPoints(t *testing.T) {
	pts := []grid.Point{{X: 0, Y: 0}, {X: 10, Y: 5}, {X: 20, Y: 0}, {X: 30, Y: 10}}
	cv := Smooth(pts)
	if len(cv.Segments) != 3 {
		t.Fatalf("segments = %d", len(cv.Segments))
	}
	for i, s := range cv.Segments {
		if s.P0 != pts[i] || s.P3 != pts[i+1] {
			t.Errorf("segment %d = %+v", i, s)
		}
	}
	if !cv.Bounds.Contains(grid.Point{X: 15, Y: 2}) {
		t.Errorf("bounds %+v", cv.Bounds)
	}
}

func TestCurveCacheKeyedByPoints(t *testing.T) {
	cc, err := NewCurveCache(1024)
	if err != nil {
		t.Fatal(err)
	}
	defer cc.Close()
	p := content.Path{ID: "a", Points: []grid.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}}
	first := cc.Get(p)
	cc.Wait()
	if again := cc.Get(p); again != first {
		t.Error("expected cached curve for unchanged path")
	}
	p.Points = []grid.Point{{X: 0, Y: 0}, {X: 20, Y: 10}}
	if moved := cc.Get(p); moved == first {
		t.Error("edited path reused stale geometry")
	}
	river := p
	river.Type = content.River
	if curveKey(river) == curveKey(p) {
		t.Error("path type missing from the cache key")
	}
}

func TestAbbreviate(t *testing.T) {
	cases := map[string]string{"Goblin Archer": "GA", "orc": "o", "": "?", "big-bad wolf": "bb"}
	for in, want := range cases {
		if got := abbreviate(in); got != want {
			t.Errorf("abbreviate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSchedulerCoalesces(t *testing.T) {
	var mu sync.Mutex
	var drawn []int
	cancelled := make(chan int, 8)
	started := make(chan int, 8)
	s := NewScheduler(func(ctx context.Context, f Frame) {
		started <- f.Width
		if f.Width == 1 {
			<-ctx.Done()
			cancelled <- f.Width
			return
		}
		mu.Lock()
		drawn = append(drawn, f.Width)
		mu.Unlock()
	})

	s.Request(Frame{Width: 1})
	if w := <-started; w != 1 {
		t.Fatalf("first frame = %d", w)
	}
	s.Request(Frame{Width: 2})
	s.Request(Frame{Width: 3})

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight frame was not cancelled")
	}
	deadline := time.After(2 * time.Second)
	for {
		select {
		case w := <-started:
			if w == 3 {
				s.Close()
				mu.Lock()
				defer mu.Unlock()
				if drawn[len(drawn)-1] != 3 {
					t.Errorf("last drawn = %v", drawn)
				}
				return
			}
		case <-deadline:
			t.Fatal("latest frame never drawn")
		}
	}
}

func TestRenderMapCoversWholeMap(t *testing.T) {
	m := squareModel(t, 20)
	m.SetWall(grid.Coord{Col: 2, Row: 3}, true)
	r := New()
	t.Cleanup(r.Close)
	img, err := r.RenderMap(context.Background(), m, nil, 2)
	if err != nil {
		t.Fatalf("RenderMap: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(400, 400) {
		t.Fatalf("size = %v, want 400x400", got)
	}
	if got := img.RGBAAt(100, 140); got != theme.Default().WallFill {
		t.Errorf("wall pixel = %v", got)
	}
}

func TestRenderMapRejectsHugeImages(t *testing.T) {
	m := content.NewModel(grid.Map{Type: grid.Square, Width: 1000, Height: 1000, CellSize: 40})
	r := New()
	t.Cleanup(r.Close)
	if _, err := r.RenderMap(context.Background(), m, nil, 1); err == nil {
		t.Fatal("expected size error")
	}
}
