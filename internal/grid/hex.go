package grid

import "math"

// Flat-top odd-q neighbour offsets, indexed by column parity.
var hexDirections = [2][6]Coord{
	{{1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {0, 1}},
	{{1, 1}, {1, 0}, {0, -1}, {-1, 0}, {-1, 1}, {0, 1}},
}

func hexMetrics(cellSize float64) (size, hexH, horiz float64) {
	size = cellSize / 2
	hexH = math.Sqrt(3) * size
	horiz = 1.5 * size
	return
}

// HexToPixel returns the world-space center of a hex cell.
func HexToPixel(c Coord, cellSize float64) Point {
	size, hexH, horiz := hexMetrics(cellSize)
	x := size + float64(c.Col)*horiz
	y := hexH/2 + float64(c.Row)*hexH
	if c.Col&1 == 1 {
		y += hexH / 2
	}
	return Point{X: x, Y: y}
}

// PixelToHex returns the hex cell whose center is nearest to (x, y). The
// rounded estimate can be off by one near the zig-zag row boundaries, so the
// estimate and its neighbours are compared by distance.
func PixelToHex(x, y, cellSize float64) Coord {
	size, hexH, horiz := hexMetrics(cellSize)
	col := int(math.Round((x - size) / horiz))
	shift := 0.0
	if col&1 == 1 {
		shift = hexH / 2
	}
	row := int(math.Round((y - hexH/2 - shift) / hexH))
	est := Coord{Col: col, Row: row}

	p := Point{X: x, Y: y}
	best := est
	bestDist := HexToPixel(est, cellSize).Dist(p)
	for _, n := range HexNeighbors(est) {
		if d := HexToPixel(n, cellSize).Dist(p); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

// HexNeighbors returns the six cells adjacent to c, in bounds or not.
func HexNeighbors(c Coord) [6]Coord {
	var out [6]Coord
	for i, d := range hexDirections[c.Col&1] {
		out[i] = Coord{Col: c.Col + d.Col, Row: c.Row + d.Row}
	}
	return out
}

// HexCorners returns the six corners of a flat-top hex centred at center,
// starting at the rightmost corner and going clockwise in screen space.
func HexCorners(center Point, cellSize float64) [6]Point {
	size := cellSize / 2
	var out [6]Point
	for i := 0; i < 6; i++ {
		a := math.Pi / 3 * float64(i)
		out[i] = Point{X: center.X + size*math.Cos(a), Y: center.Y + size*math.Sin(a)}
	}
	return out
}

// HexEdgeMidpoints returns the midpoints of the six edges of a hex.
func HexEdgeMidpoints(center Point, cellSize float64) [6]Point {
	corners := HexCorners(center, cellSize)
	var out [6]Point
	for i := range corners {
		out[i] = corners[i].Mid(corners[(i+1)%6])
	}
	return out
}

// FindNearestSnapPoint returns the hex corner, or when cornersOnly is false
// the corner or edge midpoint, closest to p among the cells of a width×height
// map around p. threshold is in world units; callers holding a screen-pixel
// threshold divide it by the current zoom first.
func FindNearestSnapPoint(p Point, cellSize float64, width, height int, threshold float64, cornersOnly bool) (Point, bool) {
	if !p.Finite() || cellSize <= 0 || threshold <= 0 {
		return Point{}, false
	}
	m := Map{Type: Hex, Width: width, Height: height, CellSize: cellSize}
	home := PixelToHex(p.X, p.Y, cellSize)
	candidates := make([]Coord, 0, 7)
	candidates = append(candidates, home)
	for _, n := range HexNeighbors(home) {
		candidates = append(candidates, n)
	}

	var best Point
	bestDist := math.Inf(1)
	consider := func(q Point) {
		if d := q.Dist(p); d < bestDist {
			best, bestDist = q, d
		}
	}
	for _, c := range candidates {
		if !m.InBounds(c) {
			continue
		}
		center := HexToPixel(c, cellSize)
		for _, corner := range HexCorners(center, cellSize) {
			consider(corner)
		}
		if cornersOnly {
			continue
		}
		for _, mid := range HexEdgeMidpoints(center, cellSize) {
			consider(mid)
		}
	}
	if bestDist > threshold {
		return Point{}, false
	}
	return best, true
}
