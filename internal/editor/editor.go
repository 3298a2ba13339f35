// Package editor implements the drawing state machine of the map canvas:
// which tool is active, what construct is in progress, what is selected and
// how pointer and keyboard input turn into content mutations.
package editor

import (
	"time"

	"github.com/example/mapforge/internal/content"
	"github.com/example/mapforge/internal/grid"
	"github.com/example/mapforge/internal/session"
	"github.com/example/mapforge/internal/viewport"
)

const (
	// DoubleClickGap is the longest pause between two clicks that still
	// counts as a double-click.
	DoubleClickGap = 300 * time.Millisecond

	DefaultSnapThreshold = 15.0

	pathHitPx   = 6.0
	handleHitPx = 8.0
)

// LabelEntry is an open inline text field. ID is empty for a new label.
type LabelEntry struct {
	ID       string
	Position grid.Point
	Text     string
	Size     content.LabelSize
}

type dragKind int

const (
	dragNone dragKind = iota
	dragVertex
	dragLabel
	dragFeature
	dragToken
)

type dragState struct {
	kind   dragKind
	id     string
	index  int
	offset grid.Point
	cell   grid.Coord
	from   grid.Coord
	moved  bool
}

// Editor owns the interaction state of one open map canvas. It is driven
// from a single event goroutine.
type Editor struct {
	model *content.Model
	vp    *viewport.Viewport
	g     grid.Map

	overlay  func() *session.Overlay
	sink     session.IntentSink
	redraw   func()
	message  func(string)
	now      func() time.Time
	snapPx   float64
	toolSeen func(Tool)

	tool      Tool
	spaceHeld bool

	terrain         string
	pathType        content.PathType
	labelSize       content.LabelSize
	wallAdd         bool
	featureType     string
	featureRotation int

	painting  bool
	lastPaint string

	draft     []grid.Point
	lastClick time.Time
	clickID   string

	selPath    string
	selLabel   string
	selFeature string

	entry *LabelEntry
	drag  dragState

	hover      grid.Point
	hoverOK    bool
	snap       grid.Point
	snapOK     bool
	sessionCel *grid.Coord
}

// Option configures an Editor.
type Option func(*Editor)

// WithOverlay supplies the current session snapshot, which may be nil.
func WithOverlay(f func() *session.Overlay) Option {
	return func(e *Editor) { e.overlay = f }
}

// WithIntentSink receives session intents.
func WithIntentSink(s session.IntentSink) Option {
	return func(e *Editor) { e.sink = s }
}

// WithRedraw registers the frame request hook.
func WithRedraw(f func()) Option {
	return func(e *Editor) { e.redraw = f }
}

// WithMessage registers a hook for short user-facing messages.
func WithMessage(f func(string)) Option {
	return func(e *Editor) { e.message = f }
}

// WithNow replaces the clock used for double-click detection.
func WithNow(f func() time.Time) Option {
	return func(e *Editor) { e.now = f }
}

// WithSnapThreshold sets the snapping radius in screen pixels.
func WithSnapThreshold(px float64) Option {
	return func(e *Editor) {
		if px > 0 {
			e.snapPx = px
		}
	}
}

// WithToolChange registers a hook run after the selected tool changes.
func WithToolChange(f func(Tool)) Option {
	return func(e *Editor) { e.toolSeen = f }
}

// New returns an editor for m viewed through vp.
func New(m *content.Model, vp *viewport.Viewport, opts ...Option) *Editor {
	e := &Editor{
		model:       m,
		vp:          vp,
		g:           m.Grid(),
		now:         time.Now,
		snapPx:      DefaultSnapThreshold,
		terrain:     content.TerrainTypes[0],
		labelSize:   content.Medium,
		wallAdd:     true,
		featureType: content.Features[0].Name,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Editor) requestRedraw() {
	if e.redraw != nil {
		e.redraw()
	}
}

func (e *Editor) say(msg string) {
	if e.message != nil {
		e.message(msg)
	}
}

func (e *Editor) session() *session.Overlay {
	if e.overlay == nil {
		return nil
	}
	return e.overlay()
}

// sessionMode reports whether pointer input belongs to the running session
// rather than to the editing tools.
func (e *Editor) sessionMode() bool {
	o := e.session()
	return o != nil && o.SessionTool != "" && o.SessionTool != "edit"
}

// Tool returns the effective tool, which is pan while space is held.
func (e *Editor) Tool() Tool {
	if e.spaceHeld {
		return ToolPan
	}
	return e.tool
}

// SelectedTool returns the tool chosen by the user, ignoring the space
// override.
func (e *Editor) SelectedTool() Tool { return e.tool }

// SetTool switches tools. Tools illegal for the grid are ignored. Switching
// discards any in-progress construct and clears the selection.
func (e *Editor) SetTool(t Tool) bool {
	if t < 0 || t >= toolCount || !t.Legal(e.g.Type) {
		return false
	}
	if t == e.tool {
		return true
	}
	e.discardConstructs()
	e.clearSelection()
	e.tool = t
	if e.toolSeen != nil {
		e.toolSeen(t)
	}
	e.requestRedraw()
	return true
}

func (e *Editor) discardConstructs() {
	e.draft = nil
	e.entry = nil
	e.drag = dragState{}
	e.painting = false
	e.lastPaint = ""
	e.vp.EndPan()
}

func (e *Editor) clearSelection() {
	e.selPath, e.selLabel, e.selFeature = "", "", ""
}

func (e *Editor) selectPath(id string) {
	e.clearSelection()
	e.selPath = id
}

func (e *Editor) selectLabel(id string) {
	e.clearSelection()
	e.selLabel = id
}

func (e *Editor) selectFeature(id string) {
	e.clearSelection()
	e.selFeature = id
}

// SetTerrain selects the terrain brush.
func (e *Editor) SetTerrain(name string) { e.terrain = name; e.requestRedraw() }

// SetPathType selects the type of new paths.
func (e *Editor) SetPathType(t content.PathType) { e.pathType = t; e.requestRedraw() }

// SetLabelSize selects the size of new labels.
func (e *Editor) SetLabelSize(s content.LabelSize) {
	e.labelSize = s
	if e.entry != nil {
		e.entry.Size = s
	}
	e.requestRedraw()
}

// SetWallMode selects between adding and removing walls.
func (e *Editor) SetWallMode(add bool) { e.wallAdd = add; e.requestRedraw() }

// SetFeatureType selects the feature placed by the feature tool.
func (e *Editor) SetFeatureType(name string) bool {
	if _, ok := content.LookupFeature(name); !ok {
		return false
	}
	e.featureType = name
	e.requestRedraw()
	return true
}

// PointerDown handles a press at screen point s.
func (e *Editor) PointerDown(s grid.Point) {
	if !s.Finite() {
		return
	}
	p := pointer{screen: s, world: e.vp.ScreenToWorld(s)}
	e.updateHover(p)
	if e.sessionMode() && !e.spaceHeld {
		e.sessionDown(p)
	} else if h := handlers[e.Tool()]; h.down != nil {
		h.down(e, p)
	}
	e.requestRedraw()
}

// PointerMove handles motion with or without a button held.
func (e *Editor) PointerMove(s grid.Point) {
	if !s.Finite() {
		return
	}
	p := pointer{screen: s, world: e.vp.ScreenToWorld(s)}
	e.updateHover(p)
	if e.vp.Panning() {
		e.vp.PanTo(s)
	} else if e.sessionMode() && !e.spaceHeld {
		e.sessionMove(p)
	} else if h := handlers[e.Tool()]; h.move != nil {
		h.move(e, p)
	}
	e.requestRedraw()
}

// PointerUp handles a release.
func (e *Editor) PointerUp(s grid.Point) {
	if !s.Finite() {
		e.PointerLeave()
		return
	}
	p := pointer{screen: s, world: e.vp.ScreenToWorld(s)}
	if e.vp.Panning() {
		e.vp.EndPan()
	} else if e.sessionMode() && !e.spaceHeld {
		e.sessionUp(p)
	} else if h := handlers[e.Tool()]; h.up != nil {
		h.up(e, p)
	}
	e.requestRedraw()
}

// PointerLeave cancels active pans, paints and drags. Anything already
// committed stays.
func (e *Editor) PointerLeave() {
	e.vp.EndPan()
	e.painting = false
	e.lastPaint = ""
	e.drag = dragState{}
	e.sessionCel = nil
	e.hoverOK = false
	e.snapOK = false
	e.requestRedraw()
}

func (e *Editor) updateHover(p pointer) {
	e.hover = p.world
	e.hoverOK = true
	e.snapOK = false
	if e.Tool() == ToolPath && e.g.Type == grid.Hex {
		t := e.pathType
		if e.drag.kind == dragVertex {
			if path, ok := e.model.Path(e.drag.id); ok {
				t = path.Type
			}
		}
		e.snap, e.snapOK = e.snapPoint(p.world, t.CornersOnly())
	}
}

func (e *Editor) snapPoint(w grid.Point, cornersOnly bool) (grid.Point, bool) {
	if e.g.Type != grid.Hex {
		return grid.Point{}, false
	}
	return grid.FindNearestSnapPoint(w, e.g.CellSize, e.g.Width, e.g.Height, e.snapPx/e.vp.Zoom, cornersOnly)
}

func (e *Editor) snapped(w grid.Point, cornersOnly bool) grid.Point {
	if s, ok := e.snapPoint(w, cornersOnly); ok {
		return s
	}
	return w
}

// isDoubleClick records a click on id and reports whether it follows a
// click on the same target within DoubleClickGap.
func (e *Editor) isDoubleClick(id string) bool {
	now := e.now()
	dbl := !e.lastClick.IsZero() && now.Sub(e.lastClick) <= DoubleClickGap && e.clickID == id
	e.lastClick = now
	e.clickID = id
	if dbl {
		e.lastClick = time.Time{}
	}
	return dbl
}

func panDown(e *Editor, p pointer) { e.vp.BeginPan(p.screen) }
func panMove(e *Editor, p pointer) { e.vp.PanTo(p.screen) }
func panUp(e *Editor, _ pointer)   { e.vp.EndPan() }

func terrainDown(e *Editor, p pointer) {
	e.painting = true
	e.lastPaint = ""
	e.paintTerrain(p.world)
}

func terrainMove(e *Editor, p pointer) {
	if e.painting {
		e.paintTerrain(p.world)
	}
}

func (e *Editor) paintTerrain(w grid.Point) {
	if e.g.Type != grid.Hex {
		return
	}
	c, ok := e.g.CellAt(w)
	if !ok || c.Key() == e.lastPaint {
		return
	}
	e.lastPaint = c.Key()
	e.model.StampTerrain(c, e.terrain)
}

func paintUp(e *Editor, _ pointer) {
	e.painting = false
	e.lastPaint = ""
}

func wallDown(e *Editor, p pointer) {
	e.painting = true
	e.lastPaint = ""
	e.paintWall(p.world)
}

func wallMove(e *Editor, p pointer) {
	if e.painting {
		e.paintWall(p.world)
	}
}

func (e *Editor) paintWall(w grid.Point) {
	if e.g.Type != grid.Square {
		return
	}
	c, ok := e.g.CellAt(w)
	if !ok || c.Key() == e.lastPaint {
		return
	}
	e.lastPaint = c.Key()
	e.model.SetWall(c, e.wallAdd)
}

func dragUp(e *Editor, _ pointer) {
	e.drag = dragState{}
}

func eraseDown(e *Editor, p pointer) {
	tol := pathHitPx / e.vp.Zoom
	if path, ok := e.model.PathAt(p.world, tol); ok {
		if e.selPath == path.ID {
			e.model.DeletePath(path.ID)
			e.clearSelection()
		} else {
			e.selectPath(path.ID)
		}
		return
	}
	if l, ok := e.model.LabelAt(p.world); ok {
		if e.selLabel == l.ID {
			e.model.DeleteLabel(l.ID)
			e.clearSelection()
		} else {
			e.selectLabel(l.ID)
		}
		return
	}
	c, inside := e.g.CellAt(p.world)
	if inside {
		if f, ok := e.model.FeatureAt(c); ok {
			if e.selFeature == f.ID {
				e.model.DeleteFeature(f.ID)
				e.clearSelection()
			} else {
				e.selectFeature(f.ID)
			}
			return
		}
		if e.model.SetWall(c, false) {
			e.clearSelection()
			return
		}
		if e.model.ClearTerrain(c) {
			e.clearSelection()
			return
		}
	}
	e.clearSelection()
}

func pathDown(e *Editor, p pointer) {
	if len(e.draft) == 0 {
		if e.selPath != "" {
			if idx, ok := e.vertexAt(e.selPath, p.world); ok {
				e.drag = dragState{kind: dragVertex, id: e.selPath, index: idx}
				return
			}
		}
		if path, ok := e.model.PathAt(p.world, pathHitPx/e.vp.Zoom); ok {
			e.selectPath(path.ID)
			return
		}
		e.clearSelection()
		e.isDoubleClick("draft")
		e.draft = []grid.Point{e.snapped(p.world, e.pathType.CornersOnly())}
		return
	}
	if e.isDoubleClick("draft") {
		e.FinishPath()
		return
	}
	pt := e.snapped(p.world, e.pathType.CornersOnly())
	if pt == e.draft[len(e.draft)-1] {
		return
	}
	e.draft = append(e.draft, pt)
}

func (e *Editor) vertexAt(id string, w grid.Point) (int, bool) {
	path, ok := e.model.Path(id)
	if !ok {
		return 0, false
	}
	r := handleHitPx / e.vp.Zoom
	for i := len(path.Points) - 1; i >= 0; i-- {
		if path.Points[i].Dist(w) <= r {
			return i, true
		}
	}
	return 0, false
}

func pathMove(e *Editor, p pointer) {
	if e.drag.kind != dragVertex {
		return
	}
	path, ok := e.model.Path(e.drag.id)
	if !ok {
		e.drag = dragState{}
		return
	}
	e.model.UpdatePathPoint(e.drag.id, e.drag.index, e.snapped(p.world, path.Type.CornersOnly()))
}

// FinishPath commits the in-progress path. Drafts with fewer than two points
// are discarded.
func (e *Editor) FinishPath() bool {
	draft := e.draft
	e.draft = nil
	e.lastClick = time.Time{}
	if len(draft) < 2 {
		return false
	}
	path, err := e.model.AddPath(e.pathType, draft)
	if err != nil {
		return false
	}
	e.selectPath(path.ID)
	e.requestRedraw()
	return true
}

func labelDown(e *Editor, p pointer) {
	if e.entry != nil {
		e.CommitLabel()
	}
	l, ok := e.model.LabelAt(p.world)
	if !ok {
		e.clearSelection()
		e.isDoubleClick("")
		e.entry = &LabelEntry{Position: p.world, Size: e.labelSize}
		return
	}
	switch {
	case e.isDoubleClick(l.ID):
		e.drag = dragState{}
		e.selectLabel(l.ID)
		e.entry = &LabelEntry{ID: l.ID, Position: l.Position, Text: l.Text, Size: l.Size}
	case e.selLabel == l.ID:
		e.drag = dragState{kind: dragLabel, id: l.ID, offset: p.world.Sub(l.Position)}
	default:
		e.selectLabel(l.ID)
	}
}

func labelMove(e *Editor, p pointer) {
	if e.drag.kind == dragLabel {
		e.model.MoveLabel(e.drag.id, p.world.Sub(e.drag.offset))
	}
}

// LabelEntry returns the open text field, if any.
func (e *Editor) LabelEntry() (LabelEntry, bool) {
	if e.entry == nil {
		return LabelEntry{}, false
	}
	return *e.entry, true
}

// TypeRune appends r to the open text field.
func (e *Editor) TypeRune(r rune) bool {
	if e.entry == nil || r < ' ' {
		return false
	}
	e.entry.Text += string(r)
	e.requestRedraw()
	return true
}

// Backspace removes the last rune of the open text field.
func (e *Editor) Backspace() bool {
	if e.entry == nil {
		return false
	}
	rs := []rune(e.entry.Text)
	if len(rs) > 0 {
		e.entry.Text = string(rs[:len(rs)-1])
	}
	e.requestRedraw()
	return true
}

// CommitLabel confirms the open text field. Empty text discards a new label
// and deletes an existing one.
func (e *Editor) CommitLabel() {
	entry := e.entry
	e.entry = nil
	if entry == nil {
		return
	}
	text := trimLabel(entry.Text)
	switch {
	case entry.ID == "" && text == "":
	case entry.ID == "":
		if l, err := e.model.AddLabel(text, entry.Position, entry.Size); err == nil {
			e.selectLabel(l.ID)
		}
	case text == "":
		e.model.DeleteLabel(entry.ID)
		e.clearSelection()
	default:
		_ = e.model.SetLabelText(entry.ID, text)
	}
	e.requestRedraw()
}

// CancelLabel closes the open text field without changes.
func (e *Editor) CancelLabel() {
	e.entry = nil
	e.requestRedraw()
}

func featureDown(e *Editor, p pointer) {
	c, ok := e.g.CellAt(p.world)
	if !ok || e.g.Type != grid.Square {
		return
	}
	if f, hit := e.model.FeatureAt(c); hit {
		if e.selFeature == f.ID {
			e.drag = dragState{kind: dragFeature, id: f.ID, from: f.Position,
				cell: grid.Coord{Col: c.Col - f.Position.Col, Row: c.Row - f.Position.Row}}
			return
		}
		e.selectFeature(f.ID)
		e.featureRotation = f.Rotation
		return
	}
	e.clearSelection()
	if _, err := e.model.PlaceFeature(e.featureType, c, e.featureRotation); err != nil {
		e.say(e.featureType + " does not fit here")
	}
}

func featureMove(e *Editor, p pointer) {
	if e.drag.kind != dragFeature {
		return
	}
	c, ok := e.g.CellAt(p.world)
	if !ok {
		return
	}
	anchor := grid.Coord{Col: c.Col - e.drag.cell.Col, Row: c.Row - e.drag.cell.Row}
	// Positions that do not fit are skipped; the feature stays put.
	_ = e.model.MoveFeature(e.drag.id, anchor)
}

// Rotate turns the selected feature, or the pending one, a quarter turn.
func (e *Editor) Rotate(reverse bool) bool {
	if e.Tool() != ToolFeature {
		return false
	}
	if e.selFeature != "" {
		f, ok := e.model.Feature(e.selFeature)
		if !ok {
			return false
		}
		next := content.NextRotation(f.Rotation, reverse)
		if err := e.model.RotateFeature(f.ID, next); err != nil {
			e.say("rotated " + f.Type + " does not fit")
			return false
		}
		e.featureRotation = next
	} else {
		e.featureRotation = content.NextRotation(e.featureRotation, reverse)
	}
	e.requestRedraw()
	return true
}

// DeleteSelection removes the selected path, label or feature.
func (e *Editor) DeleteSelection() bool {
	var ok bool
	switch {
	case e.selPath != "":
		ok = e.model.DeletePath(e.selPath)
	case e.selLabel != "":
		ok = e.model.DeleteLabel(e.selLabel)
	case e.selFeature != "":
		ok = e.model.DeleteFeature(e.selFeature)
	}
	e.clearSelection()
	e.requestRedraw()
	return ok
}

// Cancel abandons the in-progress construct, or clears the selection when
// nothing is in progress.
func (e *Editor) Cancel() {
	switch {
	case e.entry != nil:
		e.entry = nil
	case len(e.draft) > 0:
		e.draft = nil
	case e.drag.kind != dragNone:
		e.drag = dragState{}
	default:
		e.clearSelection()
	}
	e.requestRedraw()
}

func (e *Editor) sessionDown(p pointer) {
	o := e.session()
	if o.SessionTool == "pan" {
		e.vp.BeginPan(p.screen)
		return
	}
	c, ok := e.g.CellAt(p.world)
	if !ok {
		return
	}
	if t, hit := o.TokenAt(c); hit {
		e.drag = dragState{kind: dragToken, id: t.ID, from: c, cell: c}
		return
	}
	e.sessionCel = &c
}

func (e *Editor) sessionMove(p pointer) {
	if e.drag.kind != dragToken {
		return
	}
	if c, ok := e.g.CellAt(p.world); ok && c != e.drag.cell {
		e.drag.cell = c
		e.drag.moved = true
	}
}

func (e *Editor) sessionUp(p pointer) {
	drag := e.drag
	pending := e.sessionCel
	e.drag = dragState{}
	e.sessionCel = nil
	if e.sink == nil {
		return
	}
	c, ok := e.g.CellAt(p.world)
	switch {
	case drag.kind == dragToken && ok && c != drag.from:
		e.sink.OnTokenDrag(drag.id, c)
	case drag.kind == dragToken:
		e.sink.OnTokenClick(drag.id)
	case pending != nil && ok && c == *pending:
		e.sink.OnCellClick(c)
	}
}
