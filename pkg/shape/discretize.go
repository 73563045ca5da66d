package shape

import (
	"fmt"
	"math"
	"sort"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/geometry"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// LatticePoint is an integer dipole coordinate.
type LatticePoint [3]int

// Discretizer converts a placed shape into its set of unique integer
// lattice points. Implementations must agree on the output, a
// deduplicated set of world-frame dipole coordinates, but may trade
// scan strategy for performance.
type Discretizer interface {
	Discretize(s Shape) []LatticePoint
}

// Compile-time interface checks.
var _ Discretizer = LatticeDiscretizer{}
var _ Discretizer = SDFDiscretizer{}

// LatticeDiscretizer is the default, exhaustive strategy: it scans
// every integer point of the local-frame bounding box, keeps those the
// shape contains, rotates rods by their fixed orientation, translates
// by the shape's centroid, rounds to the nearest lattice point, and
// deduplicates. Cost scales with the bounding-box volume.
type LatticeDiscretizer struct{}

// Discretize voxelizes the shape onto the dipole lattice.
func (LatticeDiscretizer) Discretize(s Shape) []LatticePoint {
	b := s.LocalBounds()
	nx := int(math.Ceil(b.X))
	ny := int(math.Ceil(b.Y))
	nz := int(math.Ceil(b.Z))

	rot := s.Orientation()
	rotate := rot != [3]float64{}
	c := s.Centroid()

	seen := make(map[LatticePoint]struct{})
	for x := -nx; x <= nx; x++ {
		for y := -ny; y <= ny; y++ {
			for z := -nz; z <= nz; z++ {
				p := r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)}
				if !s.PointInside(p) {
					continue
				}
				if rotate {
					p = geometry.RotateXYZ(p, rot)
				}
				seen[LatticePoint{
					int(math.Round(p.X + c.X)),
					int(math.Round(p.Y + c.Y)),
					int(math.Round(p.Z + c.Z)),
				}] = struct{}{}
			}
		}
	}
	return sortedPoints(seen)
}

// SDFDiscretizer voxelizes by evaluating a signed-distance solid over
// the world-frame lattice instead of testing exact containment in the
// local frame. It exists as an alternative backend behind the same
// contract; results may differ from LatticeDiscretizer by at most the
// rounding of boundary points.
type SDFDiscretizer struct{}

// Discretize builds an sdfx solid for the shape, applies its rotation
// and translation, and keeps every lattice point inside the zero
// level set of the solid's bounding box scan.
func (SDFDiscretizer) Discretize(s Shape) []LatticePoint {
	solid := worldSolid(s)
	bb := solid.BoundingBox()

	seen := make(map[LatticePoint]struct{})
	for x := int(math.Floor(bb.Min.X)); x <= int(math.Ceil(bb.Max.X)); x++ {
		for y := int(math.Floor(bb.Min.Y)); y <= int(math.Ceil(bb.Max.Y)); y++ {
			for z := int(math.Floor(bb.Min.Z)); z <= int(math.Ceil(bb.Max.Z)); z++ {
				p := v3.Vec{X: float64(x), Y: float64(y), Z: float64(z)}
				if solid.Evaluate(p) <= 0 {
					seen[LatticePoint{x, y, z}] = struct{}{}
				}
			}
		}
	}
	return sortedPoints(seen)
}

// worldSolid builds the world-frame SDF for a shape: the primitive in
// its local frame, rotated x-then-y-then-z, translated to the
// centroid. Construction errors cannot occur for validated shapes.
func worldSolid(s Shape) sdf.SDF3 {
	var solid sdf.SDF3
	var err error
	switch body := s.(type) {
	case *Sphere:
		solid, err = sdf.Sphere3D(body.Radius())
	case *Rod:
		// A cylinder rounded by its own radius is a spherocylinder.
		solid, err = sdf.Cylinder3D(body.Height(), body.Radius(), body.Radius())
	default:
		err = fmt.Errorf("unsupported shape kind %q", s.Kind())
	}
	if err != nil {
		panic(fmt.Sprintf("shape: building SDF solid: %v", err))
	}

	if rot := s.Orientation(); rot != [3]float64{} {
		const degToRad = math.Pi / 180.0
		m := sdf.RotateZ(rot[2] * degToRad).
			Mul(sdf.RotateY(rot[1] * degToRad)).
			Mul(sdf.RotateX(rot[0] * degToRad))
		solid = sdf.Transform3D(solid, m)
	}

	c := s.Centroid()
	return sdf.Transform3D(solid, sdf.Translate3d(v3.Vec{X: c.X, Y: c.Y, Z: c.Z}))
}

// sortedPoints flattens a dedup set into lexicographic order so
// discretization output is deterministic.
func sortedPoints(seen map[LatticePoint]struct{}) []LatticePoint {
	points := make([]LatticePoint, 0, len(seen))
	for p := range seen {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})
	return points
}
