package shape

import (
	"fmt"
	"math"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface check.
var _ Shape = (*Sphere)(nil)

// Sphere is a solid sphere. It is constructed at the local origin and
// moved into place by translation.
type Sphere struct {
	radius   float64
	position r3.Vec
	material Material
}

// NewSphere returns a sphere of the given radius in dipole units.
func NewSphere(radius float64) (*Sphere, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("sphere radius must be positive, got %g", radius)
	}
	return &Sphere{radius: radius}, nil
}

// Kind returns KindSphere.
func (s *Sphere) Kind() Kind { return KindSphere }

// Radius returns the sphere radius.
func (s *Sphere) Radius() float64 { return s.radius }

// Volume returns (4/3)*pi*r^3.
func (s *Sphere) Volume() float64 {
	return 4.0 / 3.0 * math.Pi * s.radius * s.radius * s.radius
}

// Anchor returns the current center as a point locus.
func (s *Sphere) Anchor() geometry.Locus { return geometry.Point(s.position) }

// Centroid returns the current center.
func (s *Sphere) Centroid() r3.Vec { return s.position }

// Position returns the cumulative translation.
func (s *Sphere) Position() r3.Vec { return s.position }

// Translate shifts the sphere by delta.
func (s *Sphere) Translate(delta r3.Vec) {
	s.position = r3.Add(s.position, delta)
}

// PointInside reports whether a local-frame point lies within the
// sphere.
func (s *Sphere) PointInside(p r3.Vec) bool {
	return r3.Norm(p) <= s.radius
}

// LocalBounds returns the half-extents of the local bounding box.
func (s *Sphere) LocalBounds() r3.Vec {
	return r3.Vec{X: s.radius, Y: s.radius, Z: s.radius}
}

// Orientation returns zero angles; spheres are rotation-invariant.
func (s *Sphere) Orientation() [3]float64 { return [3]float64{} }

// Material returns the assigned material tag.
func (s *Sphere) Material() Material { return s.material }

// SetMaterial assigns the material tag.
func (s *Sphere) SetMaterial(m Material) { s.material = m }
