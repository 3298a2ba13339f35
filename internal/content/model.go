// Package content holds the editable entities of a map, their serialized
// document form and the debounced persistence of that document.
package content

import (
	"errors"
	"log"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/mapforge/internal/grid"
)

var (
	ErrPathTooShort   = errors.New("path needs at least two points")
	ErrEmptyLabel     = errors.New("label text is empty")
	ErrOutOfBounds    = errors.New("outside map bounds")
	ErrUnknownFeature = errors.New("unknown feature type")
	ErrBadRotation    = errors.New("rotation must be 0, 90, 180 or 270")
	ErrInvalidPoint   = errors.New("point is not finite")
	ErrNotFound       = errors.New("no such entity")
)

// Model is the single in-memory owner of a map's content. Cell-keyed
// collections hold at most one entry per key; id-keyed ones keep insertion
// order, which is also their draw order.
type Model struct {
	mu sync.RWMutex

	grid     grid.Map
	terrain  map[string]TerrainStamp
	paths    []Path
	labels   []Label
	walls    map[string]struct{}
	features []Feature

	onChange func()
	newID    func() string
	rng      *rand.Rand
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithRand sets the source used to pick terrain variants.
func WithRand(r *rand.Rand) ModelOption {
	return func(m *Model) { m.rng = r }
}

// WithIDFunc replaces the id generator.
func WithIDFunc(f func() string) ModelOption {
	return func(m *Model) { m.newID = f }
}

// WithOnChange registers a hook called after every mutation.
func WithOnChange(f func()) ModelOption {
	return func(m *Model) { m.onChange = f }
}

// NewModel returns an empty model for a map of geometry g.
func NewModel(g grid.Map, opts ...ModelOption) *Model {
	m := &Model{
		grid:    g,
		terrain: map[string]TerrainStamp{},
		walls:   map[string]struct{}{},
		newID:   uuid.NewString,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// SetOnChange replaces the mutation hook.
func (m *Model) SetOnChange(f func()) {
	m.mu.Lock()
	m.onChange = f
	m.mu.Unlock()
}

// Grid returns the map geometry.
func (m *Model) Grid() grid.Map { return m.grid }

func (m *Model) changed() {
	m.mu.RLock()
	f := m.onChange
	m.mu.RUnlock()
	if f != nil {
		f()
	}
}

// StampTerrain sets the terrain of c with a freshly picked variant. Stamping
// ClearTerrain removes the stamp instead. Restamping a cell always picks a
// new variant. It reports whether anything was written.
func (m *Model) StampTerrain(c grid.Coord, terrain string) bool {
	if terrain == ClearTerrain {
		return m.ClearTerrain(c)
	}
	if terrain == "" || !m.grid.InBounds(c) {
		return false
	}
	m.mu.Lock()
	m.terrain[c.Key()] = TerrainStamp{Terrain: terrain, Variant: m.rng.Intn(VariantCount)}
	m.mu.Unlock()
	m.changed()
	return true
}

// ClearTerrain removes the stamp on c.
func (m *Model) ClearTerrain(c grid.Coord) bool {
	key := c.Key()
	m.mu.Lock()
	_, ok := m.terrain[key]
	delete(m.terrain, key)
	m.mu.Unlock()
	if ok {
		m.changed()
	}
	return ok
}

// Terrain returns the stamp on c.
func (m *Model) Terrain(c grid.Coord) (TerrainStamp, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.terrain[c.Key()]
	return t, ok
}

// TerrainCount returns the number of stamped cells.
func (m *Model) TerrainCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.terrain)
}

// EachTerrain calls f for every stamp in the inclusive cell range lo..hi.
func (m *Model) EachTerrain(lo, hi grid.Coord, f func(grid.Coord, TerrainStamp)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for col := lo.Col; col <= hi.Col; col++ {
		for row := lo.Row; row <= hi.Row; row++ {
			c := grid.Coord{Col: col, Row: row}
			if t, ok := m.terrain[c.Key()]; ok {
				f(c, t)
			}
		}
	}
}

// AddPath stores a new path. Paths need at least two finite points.
func (m *Model) AddPath(t PathType, pts []grid.Point) (Path, error) {
	if len(pts) < 2 {
		return Path{}, ErrPathTooShort
	}
	for _, p := range pts {
		if !p.Finite() {
			return Path{}, ErrInvalidPoint
		}
	}
	m.mu.Lock()
	p := Path{ID: m.newID(), Type: t, Points: append([]grid.Point(nil), pts...)}
	m.paths = append(m.paths, p)
	m.mu.Unlock()
	m.changed()
	return p.clone(), nil
}

// UpdatePathPoint moves vertex i of path id.
func (m *Model) UpdatePathPoint(id string, i int, pt grid.Point) bool {
	if !pt.Finite() {
		return false
	}
	m.mu.Lock()
	idx := m.pathIndex(id)
	if idx < 0 || i < 0 || i >= len(m.paths[idx].Points) || m.paths[idx].Points[i] == pt {
		m.mu.Unlock()
		return false
	}
	m.paths[idx].Points[i] = pt
	m.mu.Unlock()
	m.changed()
	return true
}

// DeletePath removes path id.
func (m *Model) DeletePath(id string) bool {
	m.mu.Lock()
	idx := m.pathIndex(id)
	if idx >= 0 {
		m.paths = append(m.paths[:idx], m.paths[idx+1:]...)
	}
	m.mu.Unlock()
	if idx < 0 {
		return false
	}
	m.changed()
	return true
}

func (m *Model) pathIndex(id string) int {
	for i := range m.paths {
		if m.paths[i].ID == id {
			return i
		}
	}
	return -1
}

// Path returns a copy of path id.
func (m *Model) Path(id string) (Path, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.pathIndex(id); i >= 0 {
		return m.paths[i].clone(), true
	}
	return Path{}, false
}

// Paths returns copies of all paths in draw order.
func (m *Model) Paths() []Path {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Path, len(m.paths))
	for i, p := range m.paths {
		out[i] = p.clone()
	}
	return out
}

// PathAt returns the topmost path passing within tol of p.
func (m *Model) PathAt(p grid.Point, tol float64) (Path, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.paths) - 1; i >= 0; i-- {
		pts := m.paths[i].Points
		for j := 1; j < len(pts); j++ {
			if segmentDist(p, pts[j-1], pts[j]) <= tol {
				return m.paths[i].clone(), true
			}
		}
	}
	return Path{}, false
}

func segmentDist(p, a, b grid.Point) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Dist(a.Add(ab.Scale(t)))
}

// AddLabel stores a new label.
func (m *Model) AddLabel(text string, pos grid.Point, size LabelSize) (Label, error) {
	if text == "" {
		return Label{}, ErrEmptyLabel
	}
	if !pos.Finite() {
		return Label{}, ErrInvalidPoint
	}
	m.mu.Lock()
	l := Label{ID: m.newID(), Text: text, Position: pos, Size: size}
	m.labels = append(m.labels, l)
	m.mu.Unlock()
	m.changed()
	return l, nil
}

// SetLabelText replaces the text of label id.
func (m *Model) SetLabelText(id, text string) error {
	if text == "" {
		return ErrEmptyLabel
	}
	m.mu.Lock()
	i := m.labelIndex(id)
	if i < 0 {
		m.mu.Unlock()
		return ErrNotFound
	}
	same := m.labels[i].Text == text
	m.labels[i].Text = text
	m.mu.Unlock()
	if !same {
		m.changed()
	}
	return nil
}

// MoveLabel re-anchors label id at pos.
func (m *Model) MoveLabel(id string, pos grid.Point) bool {
	if !pos.Finite() {
		return false
	}
	m.mu.Lock()
	i := m.labelIndex(id)
	if i < 0 || m.labels[i].Position == pos {
		m.mu.Unlock()
		return false
	}
	m.labels[i].Position = pos
	m.mu.Unlock()
	m.changed()
	return true
}

// DeleteLabel removes label id.
func (m *Model) DeleteLabel(id string) bool {
	m.mu.Lock()
	i := m.labelIndex(id)
	if i >= 0 {
		m.labels = append(m.labels[:i], m.labels[i+1:]...)
	}
	m.mu.Unlock()
	if i < 0 {
		return false
	}
	m.changed()
	return true
}

func (m *Model) labelIndex(id string) int {
	for i := range m.labels {
		if m.labels[i].ID == id {
			return i
		}
	}
	return -1
}

// Label returns label id.
func (m *Model) Label(id string) (Label, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.labelIndex(id); i >= 0 {
		return m.labels[i], true
	}
	return Label{}, false
}

// Labels returns all labels in draw order.
func (m *Model) Labels() []Label {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Label(nil), m.labels...)
}

// LabelAt returns the topmost label whose bounds contain p.
func (m *Model) LabelAt(p grid.Point) (Label, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.labels) - 1; i >= 0; i-- {
		if m.labels[i].Bounds().Contains(p) {
			return m.labels[i], true
		}
	}
	return Label{}, false
}

// SetWall adds (present) or removes a wall on c. Adding an existing wall or
// removing an absent one does nothing. It reports whether the set changed.
func (m *Model) SetWall(c grid.Coord, present bool) bool {
	if !m.grid.InBounds(c) {
		return false
	}
	key := c.Key()
	m.mu.Lock()
	_, has := m.walls[key]
	changed := has != present
	if changed {
		if present {
			m.walls[key] = struct{}{}
		} else {
			delete(m.walls, key)
		}
	}
	m.mu.Unlock()
	if changed {
		m.changed()
	}
	return changed
}

// HasWall reports whether c holds a wall.
func (m *Model) HasWall(c grid.Coord) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.walls[c.Key()]
	return ok
}

// WallCount returns the number of wall cells.
func (m *Model) WallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.walls)
}

// Walls returns the wall cells sorted by row then column.
func (m *Model) Walls() []grid.Coord {
	m.mu.RLock()
	out := make([]grid.Coord, 0, len(m.walls))
	for k := range m.walls {
		if c, err := grid.ParseKey(k); err == nil {
			out = append(out, c)
		}
	}
	m.mu.RUnlock()
	sortCoords(out)
	return out
}

func sortCoords(cs []grid.Coord) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Row != cs[j].Row {
			return cs[i].Row < cs[j].Row
		}
		return cs[i].Col < cs[j].Col
	})
}

// PlaceFeature adds a feature anchored at c. Placement fails when the rotated
// footprint leaves the map.
func (m *Model) PlaceFeature(typ string, c grid.Coord, rotation int) (Feature, error) {
	spec, ok := LookupFeature(typ)
	if !ok {
		return Feature{}, ErrUnknownFeature
	}
	if !ValidRotation(rotation) {
		return Feature{}, ErrBadRotation
	}
	if !FootprintFits(m.grid, spec, c, rotation) {
		return Feature{}, ErrOutOfBounds
	}
	m.mu.Lock()
	f := Feature{ID: m.newID(), Type: typ, Position: c, Rotation: rotation}
	m.features = append(m.features, f)
	m.mu.Unlock()
	m.changed()
	return f, nil
}

// MoveFeature re-anchors feature id at c, keeping its rotation.
func (m *Model) MoveFeature(id string, c grid.Coord) error {
	return m.updateFeature(id, func(f *Feature) { f.Position = c })
}

// RotateFeature sets the rotation of feature id.
func (m *Model) RotateFeature(id string, rotation int) error {
	if !ValidRotation(rotation) {
		return ErrBadRotation
	}
	return m.updateFeature(id, func(f *Feature) { f.Rotation = rotation })
}

func (m *Model) updateFeature(id string, edit func(*Feature)) error {
	m.mu.Lock()
	i := m.featureIndex(id)
	if i < 0 {
		m.mu.Unlock()
		return ErrNotFound
	}
	next := m.features[i]
	edit(&next)
	if next == m.features[i] {
		m.mu.Unlock()
		return nil
	}
	spec, _ := LookupFeature(next.Type)
	if !FootprintFits(m.grid, spec, next.Position, next.Rotation) {
		m.mu.Unlock()
		return ErrOutOfBounds
	}
	m.features[i] = next
	m.mu.Unlock()
	m.changed()
	return nil
}

// DeleteFeature removes feature id.
func (m *Model) DeleteFeature(id string) bool {
	m.mu.Lock()
	i := m.featureIndex(id)
	if i >= 0 {
		m.features = append(m.features[:i], m.features[i+1:]...)
	}
	m.mu.Unlock()
	if i < 0 {
		return false
	}
	m.changed()
	return true
}

func (m *Model) featureIndex(id string) int {
	for i := range m.features {
		if m.features[i].ID == id {
			return i
		}
	}
	return -1
}

// Feature returns feature id.
func (m *Model) Feature(id string) (Feature, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.featureIndex(id); i >= 0 {
		return m.features[i], true
	}
	return Feature{}, false
}

// Features returns all features in draw order.
func (m *Model) Features() []Feature {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Feature(nil), m.features...)
}

// FeatureAt returns the topmost feature whose footprint covers c.
func (m *Model) FeatureAt(c grid.Coord) (Feature, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.features) - 1; i >= 0; i-- {
		for _, fc := range m.features[i].Cells() {
			if fc == c {
				return m.features[i], true
			}
		}
	}
	return Feature{}, false
}

// Document snapshots the model. Terrain is ordered by row then column.
func (m *Model) Document() Document {
	m.mu.RLock()
	d := Document{Terrain: make([]TerrainEntry, 0, len(m.terrain))}
	cells := make([]grid.Coord, 0, len(m.terrain))
	for k := range m.terrain {
		if c, err := grid.ParseKey(k); err == nil {
			cells = append(cells, c)
		}
	}
	sortCoords(cells)
	for _, c := range cells {
		t := m.terrain[c.Key()]
		d.Terrain = append(d.Terrain, TerrainEntry{CellKey: c.Key(), Terrain: t.Terrain, Variant: t.Variant})
	}
	for _, p := range m.paths {
		d.Paths = append(d.Paths, p.clone())
	}
	d.Labels = append(d.Labels, m.labels...)
	d.Features = append(d.Features, m.features...)
	m.mu.RUnlock()
	for _, c := range m.Walls() {
		d.Walls = append(d.Walls, c.Key())
	}
	d.Version = d.DerivedVersion()
	return d
}

// Load replaces the model content with d. Entries that do not fit the map
// or are malformed are skipped; the number skipped is returned. Loading does
// not count as a mutation.
func (m *Model) Load(d Document) int {
	dropped := 0
	terrain := map[string]TerrainStamp{}
	for _, t := range d.Terrain {
		c, err := grid.ParseKey(t.CellKey)
		if err != nil || !m.grid.InBounds(c) || t.Terrain == "" || t.Terrain == ClearTerrain ||
			t.Variant < 0 || t.Variant >= VariantCount {
			dropped++
			continue
		}
		terrain[c.Key()] = TerrainStamp{Terrain: t.Terrain, Variant: t.Variant}
	}

	seen := map[string]bool{}
	fresh := func(id string) bool {
		if id == "" || seen[id] {
			return false
		}
		seen[id] = true
		return true
	}

	var paths []Path
	for _, p := range d.Paths {
		if len(p.Points) < 2 || !allFinite(p.Points) || !fresh("p:"+p.ID) {
			dropped++
			continue
		}
		paths = append(paths, p.clone())
	}
	var labels []Label
	for _, l := range d.Labels {
		if l.Text == "" || !l.Position.Finite() || !fresh("l:"+l.ID) {
			dropped++
			continue
		}
		labels = append(labels, l)
	}
	walls := map[string]struct{}{}
	for _, k := range d.Walls {
		c, err := grid.ParseKey(k)
		if err != nil || !m.grid.InBounds(c) {
			dropped++
			continue
		}
		walls[c.Key()] = struct{}{}
	}
	var features []Feature
	for _, f := range d.Features {
		spec, ok := LookupFeature(f.Type)
		if !ok || !ValidRotation(f.Rotation) || !FootprintFits(m.grid, spec, f.Position, f.Rotation) || !fresh("f:"+f.ID) {
			dropped++
			continue
		}
		features = append(features, f)
	}

	m.mu.Lock()
	m.terrain, m.paths, m.labels, m.walls, m.features = terrain, paths, labels, walls, features
	m.mu.Unlock()
	if dropped > 0 {
		log.Printf("content: skipped %d invalid entries while loading", dropped)
	}
	return dropped
}

func allFinite(pts []grid.Point) bool {
	for _, p := range pts {
		if !p.Finite() {
			return false
		}
	}
	return true
}
