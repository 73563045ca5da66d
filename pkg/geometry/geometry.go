// Package geometry provides the pure distance/angle kernel used for
// particle placement and ensemble statistics. All functions are
// side-effect free and total: degenerate inputs (zero-length segments,
// parallel or coincident segment pairs) take explicit fallback branches
// and always yield a finite, non-negative result.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Locus is the geometric anchor of a body: a Point for spheres, the
// axis Segment for rods. It is a closed sum; Distance dispatches on the
// dynamic type of each operand.
type Locus interface {
	// Translated returns the locus shifted by delta.
	Translated(delta r3.Vec) Locus

	// Midpoint returns the point itself, or the segment midpoint.
	Midpoint() r3.Vec

	isLocus()
}

// Point is a single position in space.
type Point r3.Vec

func (p Point) isLocus() {}

// Translated returns the point shifted by delta.
func (p Point) Translated(delta r3.Vec) Locus {
	return Point(r3.Add(r3.Vec(p), delta))
}

// Midpoint returns the point itself.
func (p Point) Midpoint() r3.Vec { return r3.Vec(p) }

// Segment is a finite line segment between two endpoints.
type Segment struct {
	A, B r3.Vec
}

func (s Segment) isLocus() {}

// Translated returns the segment shifted by delta.
func (s Segment) Translated(delta r3.Vec) Locus {
	return Segment{A: r3.Add(s.A, delta), B: r3.Add(s.B, delta)}
}

// Midpoint returns the midpoint of the two endpoints.
func (s Segment) Midpoint() r3.Vec {
	return r3.Scale(0.5, r3.Add(s.A, s.B))
}

// Direction returns the vector from A to B.
func (s Segment) Direction() r3.Vec { return r3.Sub(s.B, s.A) }

// Distance returns the shortest Euclidean distance between two loci:
// point-point, point-segment, or segment-segment as appropriate.
func Distance(a, b Locus) float64 {
	switch a := a.(type) {
	case Point:
		switch b := b.(type) {
		case Point:
			return r3.Norm(r3.Sub(r3.Vec(a), r3.Vec(b)))
		case Segment:
			return PointSegmentDistance(r3.Vec(a), b)
		}
	case Segment:
		switch b := b.(type) {
		case Point:
			return PointSegmentDistance(r3.Vec(b), a)
		case Segment:
			return SegmentSegmentDistance(a, b)
		}
	}
	// Unreachable for the two known locus kinds.
	return math.NaN()
}

// PointSegmentDistance returns the shortest distance from a point to a
// finite segment. The projection parameter onto the segment's carrier
// line is clamped to [0,1]. A zero-length segment degenerates to the
// point-point distance.
func PointSegmentDistance(p r3.Vec, seg Segment) float64 {
	d := seg.Direction()
	dd := r3.Dot(d, d)
	if dd == 0 {
		return r3.Norm(r3.Sub(p, seg.A))
	}
	t := clamp01(r3.Dot(r3.Sub(p, seg.A), d) / dd)
	closest := r3.Add(seg.A, r3.Scale(t, d))
	return r3.Norm(r3.Sub(p, closest))
}

// SegmentSegmentDistance returns the shortest distance between two
// finite segments. The closest-approach parameters (sc, tc) solve the
// standard 2x2 system in the segment direction dot products; a zero
// determinant (parallel or degenerate segments) falls back to testing
// the first endpoint of seg1 against seg2. Both parameters are clamped
// to [0,1] before the final distance is taken.
func SegmentSegmentDistance(seg1, seg2 Segment) float64 {
	u := seg1.Direction()
	v := seg2.Direction()
	w0 := r3.Sub(seg1.A, seg2.A)

	a := r3.Dot(u, u)
	b := r3.Dot(u, v)
	c := r3.Dot(v, v)
	d := r3.Dot(u, w0)
	e := r3.Dot(v, w0)

	var sc, tc float64
	denom := a*c - b*b
	if denom == 0 {
		sc = 0
		if c != 0 {
			tc = e / c
		}
	} else {
		sc = (b*e - c*d) / denom
		tc = (a*e - b*d) / denom
	}

	sc = clamp01(sc)
	tc = clamp01(tc)

	p1 := r3.Add(seg1.A, r3.Scale(sc, u))
	p2 := r3.Add(seg2.A, r3.Scale(tc, v))
	return r3.Norm(r3.Sub(p1, p2))
}

// AngleToSegment returns the angle in degrees, in [0,180], between a
// segment's axis and the vector from point to the segment's nearer
// endpoint. The axis direction runs from the endpoint farther from the
// point toward the nearer one. Degenerate inputs (point coincident with
// an endpoint, zero-length segment) return 0.
func AngleToSegment(p r3.Vec, seg Segment) float64 {
	var axis, toNear r3.Vec
	if r3.Norm(r3.Sub(p, seg.A)) > r3.Norm(r3.Sub(p, seg.B)) {
		axis = r3.Sub(seg.A, seg.B)
		toNear = r3.Sub(seg.B, p)
	} else {
		axis = r3.Sub(seg.B, seg.A)
		toNear = r3.Sub(seg.A, p)
	}

	na := r3.Norm(toNear)
	nd := r3.Norm(axis)
	if na == 0 || nd == 0 {
		return 0
	}
	cos := r3.Dot(toNear, axis) / (na * nd)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Abs(math.Acos(cos) * 180 / math.Pi)
}

// RotateXYZ rotates a vector by three Euler angles in degrees, applied
// about the x-axis, then the y-axis, then the z-axis. The composition
// order is load-bearing: rod endpoints and rod voxel lattices must be
// rotated identically.
func RotateXYZ(p r3.Vec, degrees [3]float64) r3.Vec {
	rx := r3.NewRotation(degrees[0]*math.Pi/180, r3.Vec{X: 1})
	ry := r3.NewRotation(degrees[1]*math.Pi/180, r3.Vec{Y: 1})
	rz := r3.NewRotation(degrees[2]*math.Pi/180, r3.Vec{Z: 1})
	return rz.Rotate(ry.Rotate(rx.Rotate(p)))
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
