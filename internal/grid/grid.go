package grid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type selects the cell geometry of a map.
type Type int

const (
	Square Type = iota
	Hex
)

func (t Type) String() string {
	switch t {
	case Square:
		return "SQUARE"
	case Hex:
		return "HEX"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType accepts SQUARE or HEX in any case.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SQUARE":
		return Square, nil
	case "HEX":
		return Hex, nil
	}
	return Square, fmt.Errorf("unknown grid type %q", s)
}

// Coord addresses a cell. Hex coordinates use flat-top odd-q offset layout:
// odd columns sit half a cell lower than even ones.
type Coord struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Key returns the "col,row" form used by cell-keyed collections.
func (c Coord) Key() string {
	return strconv.Itoa(c.Col) + "," + strconv.Itoa(c.Row)
}

func (c Coord) String() string { return c.Key() }

// ParseKey reverses Coord.Key.
func ParseKey(key string) (Coord, error) {
	parts := strings.Split(key, ",")
	if len(parts) != 2 {
		return Coord{}, fmt.Errorf("invalid cell key %q", key)
	}
	col, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Coord{}, fmt.Errorf("invalid cell key %q: %w", key, err)
	}
	row, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Coord{}, fmt.Errorf("invalid cell key %q: %w", key, err)
	}
	return Coord{Col: col, Row: row}, nil
}

// Point is a position in world space (map pixels at 100% zoom) or screen space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }
func (p Point) Finite() bool { return finite(p.X) && finite(p.Y) }
func (p Point) Mid(q Point) Point { return Point{(p.X + q.X) / 2, (p.Y + q.Y) / 2} }
func (p Point) Eq(q Point, eps float64) bool { return math.Abs(p.X-q.X) <= eps && math.Abs(p.Y-q.Y) <= eps }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Rect is an axis-aligned world rectangle. Max is exclusive for culling purposes.
type Rect struct {
	Min, Max Point
}

// Intersects reports whether r and o overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.Min.X < o.Max.X && o.Min.X < r.Max.X && r.Min.Y < o.Max.Y && o.Min.Y < r.Max.Y
}

// Inset grows (negative d) or shrinks r on every side.
func (r Rect) Inset(d float64) Rect {
	return Rect{Min: Point{r.Min.X + d, r.Min.Y + d}, Max: Point{r.Max.X - d, r.Max.Y - d}}
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X < r.Max.X && p.Y >= r.Min.Y && p.Y < r.Max.Y
}

// Bounds returns the bounding box of pts.
func Bounds(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	r := Rect{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r.Min.X = math.Min(r.Min.X, p.X)
		r.Min.Y = math.Min(r.Min.Y, p.Y)
		r.Max.X = math.Max(r.Max.X, p.X)
		r.Max.Y = math.Max(r.Max.Y, p.Y)
	}
	return r
}

// Map describes the read-only geometry of a map.
type Map struct {
	Type     Type
	Width    int
	Height   int
	CellSize float64
}

// InBounds reports whether c addresses a cell of m.
func (m Map) InBounds(c Coord) bool {
	return c.Col >= 0 && c.Col < m.Width && c.Row >= 0 && c.Row < m.Height
}

// CellCenter returns the world-space center of c.
func (m Map) CellCenter(c Coord) Point {
	if m.Type == Hex {
		return HexToPixel(c, m.CellSize)
	}
	return SquareToPixel(c, m.CellSize)
}

// CellAt converts a world point into the cell under it. The second result is
// false for non-finite input or points outside the map.
func (m Map) CellAt(p Point) (Coord, bool) {
	if !p.Finite() || m.CellSize <= 0 {
		return Coord{}, false
	}
	var c Coord
	if m.Type == Hex {
		c = PixelToHex(p.X, p.Y, m.CellSize)
	} else {
		c = PixelToSquare(p.X, p.Y, m.CellSize)
	}
	return c, m.InBounds(c)
}

// PixelSize returns the world-space extent of the whole map.
func (m Map) PixelSize() (w, h float64) {
	if m.Width <= 0 || m.Height <= 0 {
		return 0, 0
	}
	if m.Type == Square {
		return float64(m.Width) * m.CellSize, float64(m.Height) * m.CellSize
	}
	size := m.CellSize / 2
	hexH := math.Sqrt(3) * size
	w = 2*size + float64(m.Width-1)*1.5*size
	h = float64(m.Height) * hexH
	if (m.Width-1)&1 == 1 {
		h += hexH / 2
	}
	return w, h
}

// CellPolygon returns the outline of c in world space: six corners for hex
// cells, four for square cells.
func (m Map) CellPolygon(c Coord) []Point {
	if m.Type == Hex {
		corners := HexCorners(HexToPixel(c, m.CellSize), m.CellSize)
		return corners[:]
	}
	x := float64(c.Col) * m.CellSize
	y := float64(c.Row) * m.CellSize
	s := m.CellSize
	return []Point{{x, y}, {x + s, y}, {x + s, y + s}, {x, y + s}}
}

// CellsIn returns the inclusive cell range that may intersect r, clamped to
// the map. ok is false when the range is empty.
func (m Map) CellsIn(r Rect) (minC, maxC Coord, ok bool) {
	if m.CellSize <= 0 || m.Width <= 0 || m.Height <= 0 {
		return Coord{}, Coord{}, false
	}
	var colW, rowH float64
	if m.Type == Hex {
		colW = 0.75 * m.CellSize
		rowH = math.Sqrt(3) * m.CellSize / 2
	} else {
		colW, rowH = m.CellSize, m.CellSize
	}
	minC = Coord{Col: int(math.Floor(r.Min.X/colW)) - 1, Row: int(math.Floor(r.Min.Y/rowH)) - 1}
	maxC = Coord{Col: int(math.Floor(r.Max.X/colW)) + 1, Row: int(math.Floor(r.Max.Y/rowH)) + 1}
	minC.Col = clampInt(minC.Col, 0, m.Width-1)
	minC.Row = clampInt(minC.Row, 0, m.Height-1)
	maxC.Col = clampInt(maxC.Col, 0, m.Width-1)
	maxC.Row = clampInt(maxC.Row, 0, m.Height-1)
	if r.Max.X < 0 || r.Max.Y < 0 {
		return minC, maxC, false
	}
	w, h := m.PixelSize()
	if r.Min.X > w || r.Min.Y > h {
		return minC, maxC, false
	}
	return minC, maxC, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SquareToPixel returns the center of a square cell.
func SquareToPixel(c Coord, cellSize float64) Point {
	return Point{
		X: (float64(c.Col) + 0.5) * cellSize,
		Y: (float64(c.Row) + 0.5) * cellSize,
	}
}

// PixelToSquare returns the square cell containing (x, y).
func PixelToSquare(x, y, cellSize float64) Coord {
	return Coord{Col: int(math.Floor(x / cellSize)), Row: int(math.Floor(y / cellSize))}
}
