// Package shape models the particle bodies placed into ensembles:
// solid spheres and spherocylindrical rods. Shapes are built in a
// local frame, optionally rotated (rods), translated into the cloud,
// and discretized onto an integer dipole lattice.
package shape

import (
	"fmt"
	"math/rand"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// Kind discriminates the shape variants.
type Kind string

const (
	KindSphere Kind = "sphere"
	KindRod    Kind = "rod"
)

// Material tags a body with the material family that produced it.
// The generator assigns it after construction; shapes carry it only
// so downstream collaborators can recover it per body.
type Material struct {
	Name  string
	Index int
}

// Shape is a placed particle body.
type Shape interface {
	Kind() Kind
	Radius() float64

	// Volume is the continuous geometric volume in dipole units cubed.
	Volume() float64

	// Anchor returns the world-frame collision locus: the center point
	// for spheres, the axis segment for rods.
	Anchor() geometry.Locus

	// Centroid returns the world-frame geometric center (the axis
	// midpoint for rods).
	Centroid() r3.Vec

	// Position returns the cumulative translation applied so far.
	Position() r3.Vec

	// Translate shifts the body by delta.
	Translate(delta r3.Vec)

	// PointInside reports containment of a point given in the shape's
	// local, unrotated frame.
	PointInside(p r3.Vec) bool

	// LocalBounds returns the half-extents of the local-frame
	// axis-aligned bounding box.
	LocalBounds() r3.Vec

	// Orientation returns the Euler angles in degrees fixed at
	// construction; all zero for spheres.
	Orientation() [3]float64

	Material() Material
	SetMaterial(m Material)
}

// Rotation selects a rod's orientation at construction: either three
// explicit Euler angles in degrees, or a fresh uniform sample per axis
// from an explicit random source. Spheres ignore it.
type Rotation struct {
	angles [3]float64
	rng    *rand.Rand
	random bool
}

// Fixed returns a Rotation with explicit Euler angles in degrees.
func Fixed(x, y, z float64) Rotation {
	return Rotation{angles: [3]float64{x, y, z}}
}

// Random returns a Rotation that samples each angle uniformly from
// [0,360) at construction time.
func Random(rng *rand.Rand) Rotation {
	return Rotation{rng: rng, random: true}
}

// resolve produces the concrete angles for this rotation.
func (r Rotation) resolve() ([3]float64, error) {
	if !r.random {
		return r.angles, nil
	}
	if r.rng == nil {
		return [3]float64{}, fmt.Errorf("random rotation requires a non-nil random source")
	}
	return [3]float64{
		r.rng.Float64() * 360,
		r.rng.Float64() * 360,
		r.rng.Float64() * 360,
	}, nil
}

// Spec identifies a shape family from configuration: the kind plus its
// size parameters (radius for spheres; radius and height for rods).
type Spec struct {
	Kind   Kind
	Params []float64
}

// New constructs a shape from a family spec. Rods take their
// orientation from rot; spheres ignore it.
func New(spec Spec, rot Rotation) (Shape, error) {
	switch spec.Kind {
	case KindSphere:
		if len(spec.Params) < 1 {
			return nil, fmt.Errorf("sphere spec requires a radius parameter")
		}
		return NewSphere(spec.Params[0])
	case KindRod:
		if len(spec.Params) < 2 {
			return nil, fmt.Errorf("rod spec requires radius and height parameters")
		}
		return NewRod(spec.Params[0], spec.Params[1], rot)
	default:
		return nil, fmt.Errorf("unknown shape kind %q", spec.Kind)
	}
}
