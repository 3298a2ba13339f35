// Package render draws a map canvas frame: the grid, committed content,
// session fog and tokens, then the editor's transient previews on top.
package render

import (
	"context"
	"image"
	"image/color"
	"log"
	"math"

	"github.com/fogleman/gg"

	"github.com/example/mapforge/internal/content"
	"github.com/example/mapforge/internal/editor"
	"github.com/example/mapforge/internal/grid"
	"github.com/example/mapforge/internal/session"
	"github.com/example/mapforge/internal/theme"
)

// Frame is everything needed to draw one canvas image. It is a snapshot:
// the renderer may run on another goroutine than the one that built it.
type Frame struct {
	Model   *content.Model
	Offset  grid.Point
	Zoom    float64
	State   editor.DrawState
	Overlay *session.Overlay
	Width   int
	Height  int
}

// Renderer draws frames with a fixed theme.
type Renderer struct {
	theme  *theme.Theme
	curves *CurveCache
	tint   bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTheme sets the colour theme.
func WithTheme(t *theme.Theme) Option {
	return func(r *Renderer) {
		if t != nil {
			r.theme = t
		}
	}
}

// WithCurveCache shares a path geometry cache between renderers.
func WithCurveCache(c *CurveCache) Option {
	return func(r *Renderer) { r.curves = c }
}

// WithTerrainTint enables or disables the colour wash under terrain glyphs.
func WithTerrainTint(on bool) Option {
	return func(r *Renderer) { r.tint = on }
}

// New creates a Renderer. Without WithCurveCache it allocates its own cache.
func New(opts ...Option) *Renderer {
	r := &Renderer{theme: theme.Default(), tint: true}
	for _, o := range opts {
		o(r)
	}
	if r.curves == nil {
		c, err := NewCurveCache(1 << 16)
		if err != nil {
			log.Printf("curve cache: %v", err)
		}
		r.curves = c
	}
	return r
}

// Theme returns the active theme.
func (r *Renderer) Theme() *theme.Theme { return r.theme }

// Close releases the curve cache.
func (r *Renderer) Close() { r.curves.Close() }

// pass is the per-frame drawing context shared by the layers.
type pass struct {
	r    *Renderer
	th   *theme.Theme
	dc   *gg.Context
	f    Frame
	g    grid.Map
	view grid.Rect
	lo   grid.Coord
	hi   grid.Coord
	any  bool
}

type layer func(*pass)

// layers are drawn back to front.
var layers = []layer{
	drawCells,
	drawWalls,
	drawGridLines,
	drawTerrain,
	drawPaths,
	drawFeatures,
	drawFog,
	drawTokens,
	drawLabels,
	drawDraftPath,
	drawSnap,
	drawHover,
	drawFeaturePreview,
	drawWallPreview,
	drawHandles,
	drawLabelEntry,
}

// Render draws f into dst. It checks ctx between layers and returns its
// error if the frame was abandoned.
func (r *Renderer) Render(ctx context.Context, dst *image.RGBA, f Frame) error {
	if f.Model == nil {
		return nil
	}
	if f.Zoom <= 0 {
		f.Zoom = 1
	}
	if f.Width == 0 || f.Height == 0 {
		f.Width, f.Height = dst.Bounds().Dx(), dst.Bounds().Dy()
	}
	dc := gg.NewContextForRGBA(dst)
	dc.SetColor(nrgba(r.theme.Background))
	dc.Clear()

	p := &pass{r: r, th: r.theme, dc: dc, f: f, g: f.Model.Grid()}
	p.view = grid.Rect{
		Min: f.Offset.Scale(-1 / f.Zoom),
		Max: grid.Point{X: float64(f.Width), Y: float64(f.Height)}.Sub(f.Offset).Scale(1 / f.Zoom),
	}
	p.lo, p.hi, p.any = p.g.CellsIn(p.view)

	dc.Translate(f.Offset.X, f.Offset.Y)
	dc.Scale(f.Zoom, f.Zoom)
	for _, l := range layers {
		if err := ctx.Err(); err != nil {
			return err
		}
		dc.Push()
		l(p)
		dc.Pop()
		dc.ClearPath()
	}
	return nil
}

// px converts a screen pixel length to world units.
func (p *pass) px(v float64) float64 { return v / p.f.Zoom }

// stroke strokes the current path with a width in screen pixels.
func (p *pass) stroke(c color.Color, widthPx float64) {
	p.dc.SetColor(c)
	p.dc.SetLineWidth(widthPx)
	p.dc.Stroke()
}

func (p *pass) polygon(pts []grid.Point) {
	if len(pts) == 0 {
		return
	}
	p.dc.MoveTo(pts[0].X, pts[0].Y)
	for _, q := range pts[1:] {
		p.dc.LineTo(q.X, q.Y)
	}
	p.dc.ClosePath()
}

// eachCell calls f for every cell in the visible range.
func (p *pass) eachCell(f func(grid.Coord)) {
	if !p.any {
		return
	}
	for col := p.lo.Col; col <= p.hi.Col; col++ {
		for row := p.lo.Row; row <= p.hi.Row; row++ {
			f(grid.Coord{Col: col, Row: row})
		}
	}
}

// cellRect is the world rectangle of a run of square cells.
func (p *pass) cellRect(c grid.Coord, w, h int) (x, y, rw, rh float64) {
	s := p.g.CellSize
	return float64(c.Col) * s, float64(c.Row) * s, float64(w) * s, float64(h) * s
}

// text draws s centred at world point at, in screen space, with a face of
// sizePx screen pixels. A non-zero halo colour outlines the glyphs.
func (p *pass) text(s string, at grid.Point, sizePx float64, fg color.Color, halo color.Color) {
	face, err := FaceForSize(sizePx)
	if err != nil {
		log.Printf("font: %v", err)
		return
	}
	scr := at.Scale(p.f.Zoom).Add(p.f.Offset)
	dc := p.dc
	dc.Push()
	dc.Identity()
	dc.SetFontFace(face)
	if halo != nil {
		dc.SetColor(halo)
		for _, d := range [...]grid.Point{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: 1, Y: 1}, {X: 0, Y: -1}, {X: 0, Y: 1}, {X: -1}, {X: 1}} {
			dc.DrawStringAnchored(s, scr.X+d.X, scr.Y+d.Y, 0.5, 0.35)
		}
	}
	dc.SetColor(fg)
	dc.DrawStringAnchored(s, scr.X, scr.Y, 0.5, 0.35)
	dc.Pop()
}

func drawCells(p *pass) {
	p.dc.SetColor(nrgba(p.th.CellFill))
	if p.g.Type == grid.Square {
		if !p.any {
			return
		}
		x, y, _, _ := p.cellRect(p.lo, 0, 0)
		p.dc.DrawRectangle(x, y, float64(p.hi.Col-p.lo.Col+1)*p.g.CellSize, float64(p.hi.Row-p.lo.Row+1)*p.g.CellSize)
		p.dc.Fill()
		return
	}
	p.eachCell(func(c grid.Coord) { p.polygon(p.g.CellPolygon(c)) })
	p.dc.Fill()
}

func drawWalls(p *pass) {
	if p.g.Type != grid.Square {
		return
	}
	n := 0
	for _, c := range p.f.Model.Walls() {
		if !p.any || c.Col < p.lo.Col || c.Col > p.hi.Col || c.Row < p.lo.Row || c.Row > p.hi.Row {
			continue
		}
		x, y, w, h := p.cellRect(c, 1, 1)
		p.dc.DrawRectangle(x, y, w, h)
		n++
	}
	if n == 0 {
		return
	}
	p.dc.SetColor(nrgba(p.th.WallFill))
	p.dc.FillPreserve()
	p.stroke(nrgba(p.th.WallEdge), 1.5)
}

func drawGridLines(p *pass) {
	if !p.any {
		return
	}
	if p.g.Type == grid.Square {
		s := p.g.CellSize
		x0, y0 := float64(p.lo.Col)*s, float64(p.lo.Row)*s
		x1, y1 := float64(p.hi.Col+1)*s, float64(p.hi.Row+1)*s
		for col := p.lo.Col; col <= p.hi.Col+1; col++ {
			p.dc.MoveTo(float64(col)*s, y0)
			p.dc.LineTo(float64(col)*s, y1)
		}
		for row := p.lo.Row; row <= p.hi.Row+1; row++ {
			p.dc.MoveTo(x0, float64(row)*s)
			p.dc.LineTo(x1, float64(row)*s)
		}
	} else {
		p.eachCell(func(c grid.Coord) { p.polygon(p.g.CellPolygon(c)) })
	}
	p.stroke(nrgba(p.th.GridLine), 1)

	w, h := p.g.PixelSize()
	p.dc.DrawRectangle(0, 0, w, h)
	p.stroke(nrgba(p.th.MapBorder), 2)
}

func drawTerrain(p *pass) {
	if !p.any {
		return
	}
	type stamp struct {
		c grid.Coord
		t content.TerrainStamp
	}
	var stamps []stamp
	p.f.Model.EachTerrain(p.lo, p.hi, func(c grid.Coord, t content.TerrainStamp) {
		stamps = append(stamps, stamp{c, t})
	})
	if p.r.tint {
		for _, s := range stamps {
			p.polygon(p.g.CellPolygon(s.c))
			p.dc.SetColor(withAlpha(TerrainTint(s.t.Terrain), 110))
			p.dc.Fill()
		}
	}
	size := p.g.CellSize * 0.45 * p.f.Zoom
	if size < 6 {
		return
	}
	for _, s := range stamps {
		style := styleForTerrain(s.t.Terrain)
		glyph := style.glyphs[max(0, min(s.t.Variant, content.VariantCount-1))]
		dark := color.NRGBA{R: style.tint.R / 2, G: style.tint.G / 2, B: style.tint.B / 2, A: 255}
		p.text(glyph, p.g.CellCenter(s.c), size, dark, nil)
	}
}

func drawPaths(p *pass) {
	paths := p.f.Model.Paths()
	// Water first so roads and borders cross over rivers.
	for _, water := range []bool{true, false} {
		for _, path := range paths {
			if path.Type.IsWater() != water {
				continue
			}
			st := stylePath(path.Type, p.th)
			cv := p.r.curves.Get(path)
			if !cv.Bounds.Inset(-st.width).Intersects(p.view) {
				continue
			}
			p.dc.SetLineCap(gg.LineCapRound)
			p.dc.SetLineJoin(gg.LineJoinRound)
			if path.ID == p.f.State.SelectedPath {
				p.dc.SetDash()
				p.curve(cv)
				p.stroke(selectionColor(p), (st.width+4)*p.f.Zoom)
			}
			if st.dash != nil {
				dash := make([]float64, len(st.dash))
				for i, d := range st.dash {
					dash[i] = d * p.f.Zoom
				}
				p.dc.SetDash(dash...)
			} else {
				p.dc.SetDash()
			}
			p.curve(cv)
			p.stroke(nrgba(st.color), st.width*p.f.Zoom)
		}
	}
}

func (p *pass) curve(cv *Curve) {
	for i, s := range cv.Segments {
		if i == 0 {
			p.dc.MoveTo(s.P0.X, s.P0.Y)
		}
		p.dc.CubicTo(s.C1.X, s.C1.Y, s.C2.X, s.C2.Y, s.P3.X, s.P3.Y)
	}
}

// selectionColor marks the erase tool's pending target differently from a
// plain selection.
func selectionColor(p *pass) color.Color {
	if p.f.State.Tool == editor.ToolErase {
		return withAlpha(p.th.EraseMark, 160)
	}
	return withAlpha(p.th.Selection, 160)
}

func drawFeatures(p *pass) {
	if p.g.Type != grid.Square {
		return
	}
	for _, f := range p.f.Model.Features() {
		spec, ok := content.LookupFeature(f.Type)
		if !ok {
			continue
		}
		w, h := spec.Footprint(f.Rotation)
		x, y, rw, rh := p.cellRect(f.Position, w, h)
		if !(grid.Rect{Min: grid.Point{X: x, Y: y}, Max: grid.Point{X: x + rw, Y: y + rh}}).Intersects(p.view) {
			continue
		}
		inset := p.g.CellSize * 0.08
		p.dc.DrawRoundedRectangle(x+inset, y+inset, rw-2*inset, rh-2*inset, inset)
		p.dc.SetColor(nrgba(p.th.FeatureFill))
		p.dc.FillPreserve()
		edge, width := color.Color(nrgba(p.th.FeatureText)), 1.0
		if f.ID == p.f.State.SelectedFeature {
			edge, width = selectionColor(p), 3
		}
		p.stroke(edge, width)
		centre := grid.Point{X: x + rw/2, Y: y + rh/2}
		p.text(spec.Glyph, centre, math.Min(rw, rh)*0.5*p.f.Zoom, nrgba(p.th.FeatureText), nil)
	}
}

func drawFog(p *pass) {
	o := p.f.Overlay
	if o == nil {
		return
	}
	var hidden int
	p.eachCell(func(c grid.Coord) {
		if !o.IsRevealed(c) {
			p.polygon(p.g.CellPolygon(c))
			hidden++
		}
	})
	if !o.IsDM {
		if hidden > 0 {
			p.dc.SetColor(nrgba(p.th.FogPlayer))
			p.dc.Fill()
		}
		return
	}
	if hidden > 0 {
		p.dc.SetColor(nrgba(p.th.FogDM))
		p.dc.ClipPreserve()
		p.dc.Fill()
		// Diagonal stripes over the hidden area.
		step := p.px(12)
		span := (p.view.Max.X - p.view.Min.X) + (p.view.Max.Y - p.view.Min.Y)
		for d := -span; d <= span; d += step {
			p.dc.MoveTo(p.view.Min.X+d, p.view.Min.Y)
			p.dc.LineTo(p.view.Min.X+d+span, p.view.Min.Y+span)
		}
		p.stroke(withAlpha(p.th.FogDM, uint8(min(255, int(p.th.FogDM.A)*2))), 1)
		p.dc.ResetClip()
	}
	drawFogEdge(p, o)
}

// drawFogEdge outlines the revealed area by stroking every revealed cell
// edge whose neighbour across it is hidden or off the map.
func drawFogEdge(p *pass, o *session.Overlay) {
	n := 0
	p.eachCell(func(c grid.Coord) {
		if !o.IsRevealed(c) {
			return
		}
		poly := p.g.CellPolygon(c)
		centre := p.g.CellCenter(c)
		for i := range poly {
			a, b := poly[i], poly[(i+1)%len(poly)]
			across := a.Mid(b).Scale(2).Sub(centre)
			if nc, ok := p.g.CellAt(across); ok && nc != c && o.IsRevealed(nc) {
				continue
			}
			p.dc.MoveTo(a.X, a.Y)
			p.dc.LineTo(b.X, b.Y)
			n++
		}
	})
	if n > 0 {
		p.stroke(nrgba(p.th.FogEdge), 2)
	}
}

func drawTokens(p *pass) {
	o := p.f.Overlay
	if o == nil {
		return
	}
	radius := p.g.CellSize * 0.4
	for _, t := range o.VisibleTokens() {
		pos := t.Position
		if t.ID == p.f.State.DraggingToken {
			pos = p.f.State.TokenCell
		}
		centre := p.g.CellCenter(pos)
		if !p.view.Inset(-radius).Contains(centre) {
			continue
		}
		drawToken(p, t, centre, radius, t.ID == o.SelectedTokenID)
	}
}

func drawToken(p *pass, t session.Token, centre grid.Point, radius float64, selected bool) {
	dc := p.dc
	diam := int(math.Ceil(radius * 2 * p.f.Zoom))
	if diam >= 4 {
		sprite := ShadowSprite(diam, max(2, diam/8), 0.45)
		scr := centre.Scale(p.f.Zoom).Add(p.f.Offset)
		dc.Push()
		dc.Identity()
		dc.DrawImageAnchored(sprite, int(scr.X)+2, int(scr.Y)+3, 0.5, 0.5)
		dc.Pop()
	}
	dc.DrawCircle(centre.X, centre.Y, radius)
	dc.SetColor(nrgba(p.th.TokenBackground))
	dc.FillPreserve()
	p.stroke(nrgba(tokenBorder(t, p.th)), math.Max(2, radius*0.15*p.f.Zoom))
	if selected {
		dc.DrawCircle(centre.X, centre.Y, radius+p.px(4))
		p.stroke(nrgba(p.th.Selection), 2)
	}
	p.text(abbreviate(t.Name), centre, radius*0.9*p.f.Zoom, nrgba(p.th.TokenText), nil)
}

func drawLabels(p *pass) {
	o := p.f.Overlay
	for _, l := range p.f.Model.Labels() {
		if l.ID == entryID(p) {
			continue
		}
		if !l.Bounds().Intersects(p.view) {
			continue
		}
		if o != nil && !o.IsDM {
			c, ok := p.g.CellAt(l.Position)
			if !ok || !o.IsRevealed(c) {
				continue
			}
		}
		if l.ID == p.f.State.SelectedLabel {
			b := l.Bounds()
			p.dc.DrawRectangle(b.Min.X, b.Min.Y, b.Max.X-b.Min.X, b.Max.Y-b.Min.Y)
			p.stroke(selectionColor(p), 1.5)
		}
		p.text(l.Text, l.Position, l.Size.Points()*p.f.Zoom, nrgba(p.th.LabelText), nrgba(p.th.LabelHalo))
	}
}

func entryID(p *pass) string {
	if p.f.State.Entry == nil {
		return ""
	}
	return p.f.State.Entry.ID
}

func drawDraftPath(p *pass) {
	s := p.f.State
	if len(s.Draft) == 0 {
		return
	}
	pts := s.Draft
	if s.SnapOK {
		pts = append(pts[:len(pts):len(pts)], s.Snap)
	} else if s.HoverOK {
		pts = append(pts[:len(pts):len(pts)], s.Hover)
	}
	st := stylePath(s.DraftType, p.th)
	p.dc.MoveTo(pts[0].X, pts[0].Y)
	for _, q := range pts[1:] {
		p.dc.LineTo(q.X, q.Y)
	}
	p.dc.SetDash(6, 4)
	p.stroke(withAlpha(st.color, 200), st.width*p.f.Zoom)
	p.dc.SetDash()
	for _, q := range s.Draft {
		p.dc.DrawCircle(q.X, q.Y, p.px(3))
	}
	p.dc.SetColor(nrgba(p.th.Draft))
	p.dc.Fill()
}

func drawSnap(p *pass) {
	s := p.f.State
	if !s.SnapOK || s.Tool != editor.ToolPath {
		return
	}
	p.dc.DrawCircle(s.Snap.X, s.Snap.Y, p.px(5))
	p.stroke(nrgba(p.th.Snap), 2)
}

func drawHover(p *pass) {
	s := p.f.State
	if !s.HoverOK {
		return
	}
	c, ok := p.g.CellAt(s.Hover)
	if !ok {
		return
	}
	switch s.Tool {
	case editor.ToolTerrain:
		p.polygon(p.g.CellPolygon(c))
		if s.Terrain == content.ClearTerrain {
			p.stroke(nrgba(p.th.EraseMark), 2)
			return
		}
		p.dc.SetColor(withAlpha(TerrainTint(s.Terrain), 90))
		p.dc.FillPreserve()
		p.stroke(nrgba(p.th.Selection), 2)
	case editor.ToolErase:
		poly := p.g.CellPolygon(c)
		p.polygon(poly)
		p.stroke(nrgba(p.th.EraseMark), 1.5)
		b := grid.Bounds(poly).Inset(p.g.CellSize * 0.25)
		p.dc.MoveTo(b.Min.X, b.Min.Y)
		p.dc.LineTo(b.Max.X, b.Max.Y)
		p.dc.MoveTo(b.Max.X, b.Min.Y)
		p.dc.LineTo(b.Min.X, b.Max.Y)
		p.stroke(nrgba(p.th.EraseMark), 2)
	}
}

func drawFeaturePreview(p *pass) {
	s := p.f.State
	if s.Tool != editor.ToolFeature || !s.HoverOK || s.SelectedFeature != "" {
		return
	}
	c, ok := p.g.CellAt(s.Hover)
	if !ok {
		return
	}
	spec, ok := content.LookupFeature(s.FeatureType)
	if !ok {
		return
	}
	w, h := spec.Footprint(s.FeatureRotation)
	x, y, rw, rh := p.cellRect(c, w, h)
	p.dc.DrawRectangle(x, y, rw, rh)
	tint := p.th.PreviewValid
	if !s.FeatureFits {
		tint = p.th.PreviewInvalid
	}
	p.dc.SetColor(nrgba(tint))
	p.dc.Fill()
}

func drawWallPreview(p *pass) {
	s := p.f.State
	if s.Tool != editor.ToolWall || !s.HoverOK {
		return
	}
	c, ok := p.g.CellAt(s.Hover)
	if !ok {
		return
	}
	x, y, w, h := p.cellRect(c, 1, 1)
	p.dc.DrawRectangle(x, y, w, h)
	if s.WallAdd {
		p.dc.SetColor(withAlpha(p.th.WallFill, 120))
		p.dc.Fill()
		return
	}
	p.dc.MoveTo(x, y)
	p.dc.LineTo(x+w, y+h)
	p.dc.MoveTo(x+w, y)
	p.dc.LineTo(x, y+h)
	p.stroke(nrgba(p.th.EraseMark), 2)
}

func drawHandles(p *pass) {
	s := p.f.State
	if s.Tool != editor.ToolPath || s.SelectedPath == "" {
		return
	}
	path, ok := p.f.Model.Path(s.SelectedPath)
	if !ok {
		return
	}
	half := p.px(4)
	for _, q := range path.Points {
		p.dc.DrawRectangle(q.X-half, q.Y-half, 2*half, 2*half)
	}
	p.dc.SetColor(nrgba(p.th.Handle))
	p.dc.FillPreserve()
	p.stroke(nrgba(p.th.Selection), 1.5)
}

func drawLabelEntry(p *pass) {
	e := p.f.State.Entry
	if e == nil {
		return
	}
	size := e.Size.Points() * p.f.Zoom
	w, h, err := MeasureText(e.Text+"|", size)
	if err != nil {
		log.Printf("measure label: %v", err)
		return
	}
	w, h = p.px(w)+p.px(8), p.px(h)+p.px(4)
	p.dc.DrawRectangle(e.Position.X-w/2, e.Position.Y-h/2, w, h)
	p.dc.SetColor(nrgba(p.th.LabelHalo))
	p.dc.FillPreserve()
	p.stroke(nrgba(p.th.Selection), 1.5)
	p.text(e.Text+"|", e.Position, size, nrgba(p.th.LabelText), nil)
}
