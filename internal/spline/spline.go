// Package spline provides Catmull-Rom interpolation for smooth price and band
// curves.
package spline

// Point is a 2D pixel coordinate.
type Point struct {
	X, Y float64
}

// Segment is one cubic Bézier piece: from the previous end point through
// control points C1, C2 to End.
type Segment struct {
	C1, C2, End Point
}

// CatmullRom converts points into cubic Bézier segments of a uniform
// Catmull-Rom spline passing through every point. tension 0.5 is the classic
// curve; 0 yields straight lines. End points are duplicated as phantom
// neighbours. Fewer than two points yield no segments.
func CatmullRom(pts []Point, tension float64) []Segment {
	n := len(pts)
	if n < 2 {
		return nil
	}
	k := tension / 3
	segs := make([]Segment, 0, n-1)
	for i := 0; i < n-1; i++ {
		p0 := pts[max(i-1, 0)]
		p1 := pts[i]
		p2 := pts[i+1]
		p3 := pts[min(i+2, n-1)]
		segs = append(segs, Segment{
			C1:  Point{p1.X + (p2.X-p0.X)*k, p1.Y + (p2.Y-p0.Y)*k},
			C2:  Point{p2.X - (p3.X-p1.X)*k, p2.Y - (p3.Y-p1.Y)*k},
			End: p2,
		})
	}
	return segs
}

// Sample evaluates the spline at steps points per segment, including the
// first and last input points. Used where a backend cannot draw curves and by
// hit-testing.
func Sample(pts []Point, tension float64, steps int) []Point {
	if len(pts) < 2 {
		return append([]Point(nil), pts...)
	}
	if steps < 1 {
		steps = 1
	}
	out := make([]Point, 0, (len(pts)-1)*steps+1)
	out = append(out, pts[0])
	start := pts[0]
	for _, s := range CatmullRom(pts, tension) {
		for j := 1; j <= steps; j++ {
			out = append(out, Bezier(start, s.C1, s.C2, s.End, float64(j)/float64(steps)))
		}
		start = s.End
	}
	return out
}

// Bezier evaluates a cubic Bézier curve at t ∈ [0,1].
func Bezier(p0, c1, c2, p1 Point, t float64) Point {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	c := 3 * u * t * t
	d := t * t * t
	return Point{
		X: a*p0.X + b*c1.X + c*c2.X + d*p1.X,
		Y: a*p0.Y + b*c1.Y + c*c2.Y + d*p1.Y,
	}
}
