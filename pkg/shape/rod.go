package shape

import (
	"fmt"
	"math"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface check.
var _ Shape = (*Rod)(nil)

// Rod is a spherocylinder: a cylinder of total end-to-end length
// `height` capped by two hemispheres of the same radius. The local
// axis runs along z; the rotation is applied once at construction and
// never re-applied. The stored axis segment joins the two cap centers
// after rotation and translation.
type Rod struct {
	radius   float64
	height   float64
	rotation [3]float64
	axis     geometry.Segment
	position r3.Vec
	material Material
}

// NewRod returns a rod with the given radius and total height in
// dipole units. Height must exceed the two cap radii so the caps do
// not overlap.
func NewRod(radius, height float64, rot Rotation) (*Rod, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("rod radius must be positive, got %g", radius)
	}
	if height <= 2*radius {
		return nil, fmt.Errorf("rod height must exceed twice the radius, got height=%g radius=%g", height, radius)
	}
	angles, err := rot.resolve()
	if err != nil {
		return nil, fmt.Errorf("rod rotation: %w", err)
	}

	half := height/2 - radius
	r := &Rod{
		radius:   radius,
		height:   height,
		rotation: angles,
		axis: geometry.Segment{
			A: geometry.RotateXYZ(r3.Vec{Z: half}, angles),
			B: geometry.RotateXYZ(r3.Vec{Z: -half}, angles),
		},
	}
	return r, nil
}

// Kind returns KindRod.
func (r *Rod) Kind() Kind { return KindRod }

// Radius returns the rod radius.
func (r *Rod) Radius() float64 { return r.radius }

// Height returns the total end-to-end length including the caps.
func (r *Rod) Height() float64 { return r.height }

// Volume returns the cap volume (one full sphere) plus the cylinder
// volume pi*r^2*(height - 2r).
func (r *Rod) Volume() float64 {
	caps := 4.0 / 3.0 * math.Pi * r.radius * r.radius * r.radius
	cyl := math.Pi * r.radius * r.radius * (r.height - 2*r.radius)
	return caps + cyl
}

// Anchor returns the world-frame axis segment.
func (r *Rod) Anchor() geometry.Locus { return r.axis }

// Axis returns the world-frame axis segment joining the cap centers.
func (r *Rod) Axis() geometry.Segment { return r.axis }

// Centroid returns the axis midpoint.
func (r *Rod) Centroid() r3.Vec { return r.axis.Midpoint() }

// Position returns the cumulative translation.
func (r *Rod) Position() r3.Vec { return r.position }

// Translate shifts both axis endpoints by delta.
func (r *Rod) Translate(delta r3.Vec) {
	r.axis = r.axis.Translated(delta).(geometry.Segment)
	r.position = r3.Add(r.position, delta)
}

// PointInside reports whether a local-frame (unrotated) point lies
// within the rod: inside the finite cylinder, or inside either
// hemispherical cap centered at z = +-(height/2 - radius).
func (r *Rod) PointInside(p r3.Vec) bool {
	half := r.height/2 - r.radius
	radial := math.Hypot(p.X, p.Y)
	if radial <= r.radius && math.Abs(p.Z) <= half {
		return true
	}
	capCenter := r3.Vec{Z: half}
	return r3.Norm(r3.Sub(p, capCenter)) <= r.radius ||
		r3.Norm(r3.Add(p, capCenter)) <= r.radius
}

// LocalBounds returns the half-extents of the local bounding box.
func (r *Rod) LocalBounds() r3.Vec {
	return r3.Vec{X: r.radius, Y: r.radius, Z: r.height / 2}
}

// Orientation returns the Euler angles fixed at construction.
func (r *Rod) Orientation() [3]float64 { return r.rotation }

// Material returns the assigned material tag.
func (r *Rod) Material() Material { return r.material }

// SetMaterial assigns the material tag.
func (r *Rod) SetMaterial(m Material) { r.material = m }
