package render

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"strconv"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/example/mapforge/internal/content"
	"github.com/example/mapforge/internal/grid"
)

// Segment is one cubic Bezier piece of a smoothed path.
type Segment struct {
	P0, C1, C2, P3 grid.Point
}

// Curve is the drawn geometry of a path plus its bounding box.
type Curve struct {
	Segments []Segment
	Bounds   grid.Rect
}

// CurveCache memoizes path geometry by path id, type and point signature,
// so an edited path gets a fresh entry while unchanged paths are reused.
type CurveCache struct {
	c *ristretto.Cache[string, *Curve]
}

// NewCurveCache creates a cache holding roughly maxSegments segments.
func NewCurveCache(maxSegments int64) (*CurveCache, error) {
	// Cost counts segments only.
	c, err := ristretto.NewCache(&ristretto.Config[string, *Curve]{
		NumCounters:        maxSegments * 10,
		MaxCost:            maxSegments,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &CurveCache{c: c}, nil
}

// Get returns the curve for p, computing and storing it on a miss. Water
// paths are smoothed; every other type keeps its snapped vertices joined by
// straight segments.
func (cc *CurveCache) Get(p content.Path) *Curve {
	key := curveKey(p)
	if cc != nil {
		if v, ok := cc.c.Get(key); ok {
			return v
		}
	}
	var cv *Curve
	if p.Type.IsWater() {
		cv = Smooth(p.Points)
	} else {
		cv = Polyline(p.Points)
	}
	if cc != nil {
		cc.c.Set(key, cv, int64(len(cv.Segments)+1))
	}
	return cv
}

// Wait blocks until pending writes are visible.
func (cc *CurveCache) Wait() {
	if cc != nil {
		cc.c.Wait()
	}
}

// Close stops the cache's background goroutines.
func (cc *CurveCache) Close() {
	if cc != nil {
		cc.c.Close()
	}
}

func curveKey(p content.Path) string {
	h := fnv.New64a()
	var buf [8]byte
	for _, pt := range p.Points {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(pt.X))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(pt.Y))
		h.Write(buf[:])
	}
	return p.ID + ":" + p.Type.String() + ":" + strconv.FormatUint(h.Sum64(), 16)
}

// Smooth converts a polyline into a Catmull-Rom spline through every point,
// expressed as cubic Bezier segments. Two points give a straight segment.
func Smooth(pts []grid.Point) *Curve {
	cv := &Curve{Bounds: grid.Bounds(pts)}
	if len(pts) < 2 {
		return cv
	}
	at := func(i int) grid.Point {
		return pts[max(0, min(i, len(pts)-1))]
	}
	for i := 0; i < len(pts)-1; i++ {
		p0, p1, p2, p3 := at(i-1), at(i), at(i+1), at(i+2)
		seg := Segment{
			P0: p1,
			C1: p1.Add(p2.Sub(p0).Scale(1.0 / 6)),
			C2: p2.Sub(p3.Sub(p1).Scale(1.0 / 6)),
			P3: p2,
		}
		cv.Segments = append(cv.Segments, seg)
		cv.Bounds = union(cv.Bounds, grid.Bounds([]grid.Point{seg.C1, seg.C2}))
	}
	return cv
}

// Polyline joins pts with straight segments. Control points sit on the chord
// so the result draws through the same CubicTo path as a spline.
func Polyline(pts []grid.Point) *Curve {
	cv := &Curve{Bounds: grid.Bounds(pts)}
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		d := b.Sub(a)
		cv.Segments = append(cv.Segments, Segment{
			P0: a,
			C1: a.Add(d.Scale(1.0 / 3)),
			C2: a.Add(d.Scale(2.0 / 3)),
			P3: b,
		})
	}
	return cv
}

func union(a, b grid.Rect) grid.Rect {
	return grid.Rect{
		Min: grid.Point{X: math.Min(a.Min.X, b.Min.X), Y: math.Min(a.Min.Y, b.Min.Y)},
		Max: grid.Point{X: math.Max(a.Max.X, b.Max.X), Y: math.Max(a.Max.Y, b.Max.Y)},
	}
}
