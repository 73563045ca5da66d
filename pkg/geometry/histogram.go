package geometry

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Distribution is a histogram: Counts holds per-bin tallies and
// BinEdges the monotonically increasing boundaries, with
// len(BinEdges) == len(Counts)+1.
type Distribution struct {
	Counts   []int
	BinEdges []float64
}

// Histogram category labels. The labels double as file stems for the
// CSV export collaborator, so they match the persisted naming scheme.
const (
	CategoryAngle      = "angle"   // sphere-rod axis angles
	CategorySphereRod  = "dist_sr" // sphere-rod distances
	CategorySpheres    = "dist_ss" // sphere-sphere distances
	CategoryRods       = "dist_rr" // rod-rod distances
)

const (
	angleBins    = 36
	distanceBins = 78
)

// Body is the minimal view of a particle needed for pairwise
// statistics. The dynamic type of Anchor distinguishes spheres (Point)
// from rods (Segment).
type Body interface {
	Anchor() Locus
	Radius() float64
}

// EvaluateDistribution partitions bodies into spheres and rods and
// bins their pairwise statistics: sphere-rod angles over [0,180]
// degrees and sphere-rod, sphere-sphere, and rod-rod distances over
// [2r, 80r], where r is the arithmetic-mean sphere radius. A category
// is present iff its population suffices: the two sphere-rod
// categories need at least one body of each kind, the same-kind
// categories at least two. When no sphere exists the distance range
// falls back to the mean rod radius.
func EvaluateDistribution(bodies []Body) map[string]Distribution {
	var (
		spheres, rods []Body
		sphereRadii   float64
		rodRadii      float64
	)
	for _, b := range bodies {
		switch b.Anchor().(type) {
		case Point:
			spheres = append(spheres, b)
			sphereRadii += b.Radius()
		case Segment:
			rods = append(rods, b)
			rodRadii += b.Radius()
		}
	}

	var radius float64
	switch {
	case len(spheres) > 0:
		radius = sphereRadii / float64(len(spheres))
	case len(rods) > 0:
		radius = rodRadii / float64(len(rods))
	default:
		return map[string]Distribution{}
	}
	distLo, distHi := 2*radius, 80*radius

	result := make(map[string]Distribution)

	if len(spheres) > 0 && len(rods) > 0 {
		var angles, dists []float64
		for _, s := range spheres {
			p := s.Anchor().(Point)
			for _, r := range rods {
				seg := r.Anchor().(Segment)
				angles = append(angles, AngleToSegment(r3.Vec(p), seg))
				dists = append(dists, PointSegmentDistance(r3.Vec(p), seg))
			}
		}
		result[CategoryAngle] = bin(angles, angleBins, 0, 180)
		result[CategorySphereRod] = bin(dists, distanceBins, distLo, distHi)
	}

	if len(spheres) > 1 {
		var dists []float64
		for i := 0; i < len(spheres); i++ {
			for j := i + 1; j < len(spheres); j++ {
				dists = append(dists, Distance(spheres[i].Anchor(), spheres[j].Anchor()))
			}
		}
		result[CategorySpheres] = bin(dists, distanceBins, distLo, distHi)
	}

	if len(rods) > 1 {
		var dists []float64
		for i := 0; i < len(rods); i++ {
			for j := i + 1; j < len(rods); j++ {
				dists = append(dists, Distance(rods[i].Anchor(), rods[j].Anchor()))
			}
		}
		result[CategoryRods] = bin(dists, distanceBins, distLo, distHi)
	}

	return result
}

// bin tallies values into n equal-width bins over [lo, hi]. Values
// outside the range are discarded; a value exactly at hi lands in the
// last bin, matching the histogram convention of the downstream
// analysis tooling.
func bin(values []float64, n int, lo, hi float64) Distribution {
	edges := floats.Span(make([]float64, n+1), lo, hi)
	counts := make([]int, n)

	inRange := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= lo && v < hi {
			inRange = append(inRange, v)
		} else if v == hi {
			counts[n-1]++
		}
	}
	if len(inRange) > 0 {
		sort.Float64s(inRange)
		for i, c := range stat.Histogram(nil, edges, inRange, nil) {
			counts[i] += int(c)
		}
	}
	return Distribution{Counts: counts, BinEdges: edges}
}
