// Package viewport holds the camera state of a map canvas: the screen offset
// of the world origin and the zoom factor, plus the gesture bookkeeping that
// changes them.
package viewport

import (
	"math"

	"github.com/example/mapforge/internal/grid"
)

const (
	MinZoom = 0.5
	MaxZoom = 5.0

	coarseStep = 0.25
	fineStep   = 0.10
)

// Viewport maps world coordinates to screen coordinates as
// screen = world*Zoom + Offset.
type Viewport struct {
	Offset grid.Point
	Zoom   float64

	centered bool

	panning   bool
	panStart  grid.Point
	panOrigin grid.Point

	touches map[int]grid.Point
	pinch   *pinchState
}

type pinchState struct {
	a, b        int
	initialDist float64
	initialZoom float64
}

// Option configures a Viewport.
type Option func(*Viewport)

// WithZoom sets the starting zoom, clamped to the legal range.
func WithZoom(z float64) Option {
	return func(v *Viewport) { v.Zoom = ClampZoom(z) }
}

// WithOffset sets the starting offset and disables auto-centering.
func WithOffset(p grid.Point) Option {
	return func(v *Viewport) {
		v.Offset = p
		v.centered = true
	}
}

// New returns a viewport at 100% zoom.
func New(opts ...Option) *Viewport {
	v := &Viewport{Zoom: 1, touches: map[int]grid.Point{}}
	for _, o := range opts {
		o(v)
	}
	return v
}

// ClampZoom limits z to [MinZoom, MaxZoom]. NaN maps to 1.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// ScreenToWorld converts a screen point to world space.
func (v *Viewport) ScreenToWorld(p grid.Point) grid.Point {
	return p.Sub(v.Offset).Scale(1 / v.Zoom)
}

// WorldToScreen converts a world point to screen space.
func (v *Viewport) WorldToScreen(p grid.Point) grid.Point {
	return p.Scale(v.Zoom).Add(v.Offset)
}

// VisibleWorldRect returns the world rectangle covered by a w×h screen.
func (v *Viewport) VisibleWorldRect(w, h float64) grid.Rect {
	return grid.Rect{
		Min: v.ScreenToWorld(grid.Point{}),
		Max: v.ScreenToWorld(grid.Point{X: w, Y: h}),
	}
}

// ZoomPercent returns the zoom as a rounded percentage.
func (v *Viewport) ZoomPercent() int {
	return int(math.Round(v.Zoom * 100))
}

// ZoomStep returns the increment used by ZoomToward at zoom z. Steps are
// coarse above 100% and fine below it, and the boundary is asymmetric so
// zooming out from exactly 100% uses the fine step.
func ZoomStep(z float64, zoomingIn bool) float64 {
	pct := math.Round(z * 100)
	if zoomingIn && pct >= 100 || !zoomingIn && pct > 100 {
		return coarseStep
	}
	return fineStep
}

// ZoomToward steps the zoom in or out keeping the world point under anchor
// fixed on screen. It reports whether the zoom changed.
func (v *Viewport) ZoomToward(anchor grid.Point, zoomingIn bool) bool {
	step := ZoomStep(v.Zoom, zoomingIn)
	if !zoomingIn {
		step = -step
	}
	next := math.Round((v.Zoom+step)*100) / 100
	return v.SetZoomAt(anchor, next)
}

// SetZoomAt sets the zoom to z (clamped) keeping the world point under
// anchor fixed. It reports whether the zoom changed.
func (v *Viewport) SetZoomAt(anchor grid.Point, z float64) bool {
	if !anchor.Finite() || math.IsNaN(z) {
		return false
	}
	z = ClampZoom(z)
	if z == v.Zoom {
		return false
	}
	ratio := z / v.Zoom
	v.Offset = anchor.Sub(anchor.Sub(v.Offset).Scale(ratio))
	v.Zoom = z
	return true
}

// Measure records the canvas size. The first non-zero measurement centres
// a map of mapW×mapH world units; later calls do nothing. It reports whether
// centering happened.
func (v *Viewport) Measure(w, h, mapW, mapH float64) bool {
	if v.centered || w <= 0 || h <= 0 {
		return false
	}
	v.Offset = grid.Point{
		X: (w - mapW*v.Zoom) / 2,
		Y: (h - mapH*v.Zoom) / 2,
	}
	v.centered = true
	return true
}

// Centered reports whether the initial centering has happened.
func (v *Viewport) Centered() bool { return v.centered }

// BeginPan starts a drag pan at screen point p.
func (v *Viewport) BeginPan(p grid.Point) {
	if !p.Finite() {
		return
	}
	v.panning = true
	v.panStart = p
	v.panOrigin = v.Offset
}

// PanTo moves the view so the point grabbed by BeginPan follows p.
func (v *Viewport) PanTo(p grid.Point) bool {
	if !v.panning || !p.Finite() {
		return false
	}
	v.Offset = v.panOrigin.Add(p.Sub(v.panStart))
	return true
}

// EndPan finishes a drag pan. It is also used when the pointer leaves the
// canvas; the offset reached so far is kept.
func (v *Viewport) EndPan() { v.panning = false }

// Panning reports whether a drag pan is active.
func (v *Viewport) Panning() bool { return v.panning }

// PanBy shifts the view by d screen pixels.
func (v *Viewport) PanBy(d grid.Point) {
	if d.Finite() {
		v.Offset = v.Offset.Add(d)
	}
}

// TouchBegin registers a finger. One finger pans; a second one starts a pinch.
func (v *Viewport) TouchBegin(id int, p grid.Point) {
	if !p.Finite() {
		return
	}
	v.touches[id] = p
	switch len(v.touches) {
	case 1:
		v.BeginPan(p)
	case 2:
		v.EndPan()
		v.startPinch()
	}
}

func (v *Viewport) startPinch() {
	ids := make([]int, 0, 2)
	for id := range v.touches {
		ids = append(ids, id)
	}
	a, b := ids[0], ids[1]
	d := v.touches[a].Dist(v.touches[b])
	if d == 0 {
		return
	}
	v.pinch = &pinchState{a: a, b: b, initialDist: d, initialZoom: v.Zoom}
}

// TouchMove updates a finger. It reports whether the view changed.
func (v *Viewport) TouchMove(id int, p grid.Point) bool {
	if _, ok := v.touches[id]; !ok || !p.Finite() {
		return false
	}
	v.touches[id] = p
	if v.pinch != nil {
		pa, okA := v.touches[v.pinch.a]
		pb, okB := v.touches[v.pinch.b]
		if !okA || !okB {
			return false
		}
		d := pa.Dist(pb)
		return v.SetZoomAt(pa.Mid(pb), v.pinch.initialZoom*d/v.pinch.initialDist)
	}
	if len(v.touches) == 1 {
		return v.PanTo(p)
	}
	return false
}

// TouchEnd removes a finger. Lifting one finger of a pinch resumes panning
// with the remaining one.
func (v *Viewport) TouchEnd(id int) {
	if _, ok := v.touches[id]; !ok {
		return
	}
	delete(v.touches, id)
	v.pinch = nil
	v.EndPan()
	for _, p := range v.touches {
		if len(v.touches) == 1 {
			v.BeginPan(p)
		}
	}
}

// CancelGestures drops all pointer and touch state, keeping the view.
func (v *Viewport) CancelGestures() {
	v.EndPan()
	v.pinch = nil
	clear(v.touches)
}
