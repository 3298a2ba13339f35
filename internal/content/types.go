package content

import (
	"fmt"
	"strings"

	"github.com/example/mapforge/internal/grid"
)

// ClearTerrain is the terrain brush that removes stamps instead of adding them.
const ClearTerrain = "clear"

// TerrainTypes lists the terrain brushes in palette order.
var TerrainTypes = []string{
	"plains", "forest", "hills", "mountains", "water", "swamp", "desert", "tundra", "village", "castle", ClearTerrain,
}

// VariantCount is the number of visual variants per terrain type.
const VariantCount = 3

// TerrainStamp is the content of one stamped hex cell.
type TerrainStamp struct {
	Terrain string
	Variant int
}

// PathType selects how a path is drawn and snapped.
type PathType int

const (
	Road PathType = iota
	River
	Stream
	Border
	Trail
)

var pathTypeNames = [...]string{"road", "river", "stream", "border", "trail"}

func (t PathType) String() string {
	if t < 0 || int(t) >= len(pathTypeNames) {
		return fmt.Sprintf("PathType(%d)", int(t))
	}
	return pathTypeNames[t]
}

// ParsePathType reverses PathType.String.
func ParsePathType(s string) (PathType, error) {
	for i, n := range pathTypeNames {
		if strings.EqualFold(n, s) {
			return PathType(i), nil
		}
	}
	return Road, fmt.Errorf("unknown path type %q", s)
}

func (t PathType) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(pathTypeNames) {
		return nil, fmt.Errorf("unknown path type %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *PathType) UnmarshalText(b []byte) error {
	v, err := ParsePathType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// IsWater reports whether paths of this type are smoothed and drawn beneath
// the others.
func (t PathType) IsWater() bool { return t == River || t == Stream }

// CornersOnly reports whether vertices snap only to hex corners.
func (t PathType) CornersOnly() bool { return t == Border }

// Path is a polyline in world space.
type Path struct {
	ID     string       `json:"id"`
	Type   PathType     `json:"type"`
	Points []grid.Point `json:"points"`
}

func (p Path) clone() Path {
	p.Points = append([]grid.Point(nil), p.Points...)
	return p
}

// LabelSize selects a label's font size.
type LabelSize int

const (
	Small LabelSize = iota
	Medium
	Large
	XLarge
)

var labelSizeNames = [...]string{"small", "medium", "large", "xlarge"}
var labelSizePoints = [...]float64{12, 16, 24, 32}

func (s LabelSize) String() string {
	if s < 0 || int(s) >= len(labelSizeNames) {
		return fmt.Sprintf("LabelSize(%d)", int(s))
	}
	return labelSizeNames[s]
}

// Points returns the font size in world units.
func (s LabelSize) Points() float64 {
	if s < 0 || int(s) >= len(labelSizePoints) {
		return labelSizePoints[Medium]
	}
	return labelSizePoints[s]
}

// ParseLabelSize reverses LabelSize.String.
func ParseLabelSize(s string) (LabelSize, error) {
	for i, n := range labelSizeNames {
		if strings.EqualFold(n, s) {
			return LabelSize(i), nil
		}
	}
	return Medium, fmt.Errorf("unknown label size %q", s)
}

func (s LabelSize) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(labelSizeNames) {
		return nil, fmt.Errorf("unknown label size %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *LabelSize) UnmarshalText(b []byte) error {
	v, err := ParseLabelSize(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Label is a piece of text anchored at its center.
type Label struct {
	ID       string     `json:"id"`
	Text     string     `json:"text"`
	Position grid.Point `json:"position"`
	Size     LabelSize  `json:"size"`
}

// Bounds approximates the world rectangle covered by the label text.
func (l Label) Bounds() grid.Rect {
	pt := l.Size.Points()
	w := float64(len([]rune(l.Text))) * pt * 0.6
	if w < pt {
		w = pt
	}
	h := pt * 1.2
	return grid.Rect{
		Min: grid.Point{X: l.Position.X - w/2, Y: l.Position.Y - h/2},
		Max: grid.Point{X: l.Position.X + w/2, Y: l.Position.Y + h/2},
	}
}

// FeatureSpec describes a dungeon feature type.
type FeatureSpec struct {
	Name  string
	W, H  int
	Glyph string
}

// Features is the catalogue of placeable dungeon features. Footprints are
// given at rotation 0.
var Features = []FeatureSpec{
	{Name: "door", W: 1, H: 1, Glyph: "D"},
	{Name: "stairs", W: 1, H: 2, Glyph: "S"},
	{Name: "pillar", W: 1, H: 1, Glyph: "o"},
	{Name: "chest", W: 1, H: 1, Glyph: "C"},
	{Name: "trap", W: 1, H: 1, Glyph: "!"},
	{Name: "statue", W: 1, H: 1, Glyph: "&"},
	{Name: "table", W: 2, H: 1, Glyph: "T"},
	{Name: "bed", W: 1, H: 2, Glyph: "B"},
	{Name: "altar", W: 2, H: 1, Glyph: "A"},
	{Name: "fountain", W: 2, H: 2, Glyph: "F"},
}

// LookupFeature finds a feature type by name.
func LookupFeature(name string) (FeatureSpec, bool) {
	for _, f := range Features {
		if f.Name == name {
			return f, true
		}
	}
	return FeatureSpec{}, false
}

// Footprint returns the cell extent of the feature at the given rotation.
// Quarter turns swap width and height; the anchor stays the top-left cell.
func (f FeatureSpec) Footprint(rotation int) (w, h int) {
	if rotation == 90 || rotation == 270 {
		return f.H, f.W
	}
	return f.W, f.H
}

// ValidRotation reports whether r is one of 0, 90, 180 or 270.
func ValidRotation(r int) bool {
	return r == 0 || r == 90 || r == 180 || r == 270
}

// NextRotation steps r by a quarter turn, backwards when reverse is set.
func NextRotation(r int, reverse bool) int {
	if reverse {
		return (r + 270) % 360
	}
	return (r + 90) % 360
}

// Feature is a placed dungeon feature.
type Feature struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Position grid.Coord `json:"position"`
	Rotation int        `json:"rotation"`
}

// Cells returns the cells covered by f, or nil for an unknown type.
func (f Feature) Cells() []grid.Coord {
	spec, ok := LookupFeature(f.Type)
	if !ok {
		return nil
	}
	return footprintCells(spec, f.Position, f.Rotation)
}

func footprintCells(spec FeatureSpec, at grid.Coord, rotation int) []grid.Coord {
	w, h := spec.Footprint(rotation)
	out := make([]grid.Coord, 0, w*h)
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			out = append(out, grid.Coord{Col: at.Col + dx, Row: at.Row + dy})
		}
	}
	return out
}

// FootprintFits reports whether a feature of spec at the given anchor and
// rotation lies entirely inside m.
func FootprintFits(m grid.Map, spec FeatureSpec, at grid.Coord, rotation int) bool {
	w, h := spec.Footprint(rotation)
	return m.InBounds(at) && m.InBounds(grid.Coord{Col: at.Col + w - 1, Row: at.Row + h - 1})
}
