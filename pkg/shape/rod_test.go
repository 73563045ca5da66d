package shape

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewRodValidation(t *testing.T) {
	tests := []struct {
		name           string
		radius, height float64
		wantErr        bool
	}{
		{"valid", 1, 4, false},
		{"long", 2, 45, false},
		{"zero radius", 0, 4, true},
		{"negative radius", -1, 4, true},
		{"height equals diameter", 1, 2, true},
		{"height below diameter", 1, 1.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRod(tt.radius, tt.height, Fixed(0, 0, 0))
			if (err != nil) != tt.wantErr {
				t.Errorf("NewRod(%g, %g) error = %v, wantErr %v", tt.radius, tt.height, err, tt.wantErr)
			}
		})
	}
}

func TestNewRodRandomRotationRequiresSource(t *testing.T) {
	if _, err := NewRod(1, 4, Random(nil)); err == nil {
		t.Error("NewRod with nil random source: expected error")
	}
	rng := rand.New(rand.NewSource(1))
	rod, err := NewRod(1, 4, Random(rng))
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range rod.Orientation() {
		if a < 0 || a >= 360 {
			t.Errorf("angle %d = %v, want in [0,360)", i, a)
		}
	}
}

func TestRodVolume(t *testing.T) {
	rod, err := NewRod(1, 4, Fixed(0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	// Two hemispherical caps (one full sphere) plus cylinder of length 2.
	want := 4.0/3.0*math.Pi + math.Pi*2
	if got := rod.Volume(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Volume() = %v, want %v", got, want)
	}
}

func TestRodAxisEndpoints(t *testing.T) {
	t.Run("unrotated", func(t *testing.T) {
		rod, err := NewRod(1, 4, Fixed(0, 0, 0))
		if err != nil {
			t.Fatal(err)
		}
		axis := rod.Axis()
		if !vecAlmostEqual(axis.A, r3.Vec{Z: 1}) || !vecAlmostEqual(axis.B, r3.Vec{Z: -1}) {
			t.Errorf("axis = %+v, want endpoints (0,0,1) and (0,0,-1)", axis)
		}
	})
	t.Run("rotated 90 about x", func(t *testing.T) {
		rod, err := NewRod(1, 4, Fixed(90, 0, 0))
		if err != nil {
			t.Fatal(err)
		}
		// Right-hand rotation about x maps +z to -y.
		axis := rod.Axis()
		if !vecAlmostEqual(axis.A, r3.Vec{Y: -1}) || !vecAlmostEqual(axis.B, r3.Vec{Y: 1}) {
			t.Errorf("axis = %+v, want endpoints (0,-1,0) and (0,1,0)", axis)
		}
	})
}

func TestRodTranslate(t *testing.T) {
	rod, err := NewRod(1, 4, Fixed(0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	rod.Translate(r3.Vec{X: 3, Y: 4})
	axis := rod.Axis()
	if !vecAlmostEqual(axis.A, r3.Vec{X: 3, Y: 4, Z: 1}) {
		t.Errorf("axis.A = %v, want (3,4,1)", axis.A)
	}
	if !vecAlmostEqual(rod.Centroid(), r3.Vec{X: 3, Y: 4}) {
		t.Errorf("Centroid() = %v, want (3,4,0)", rod.Centroid())
	}
}

func TestRodPointInside(t *testing.T) {
	rod, err := NewRod(1, 6, Fixed(0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	// Cylinder spans |z| <= 2; caps centered at z = +-2.
	tests := []struct {
		name string
		p    r3.Vec
		want bool
	}{
		{"origin", r3.Vec{}, true},
		{"cylinder wall", r3.Vec{X: 1, Z: 1}, true},
		{"outside wall", r3.Vec{X: 1.01, Z: 1}, false},
		{"cap apex", r3.Vec{Z: 3}, true},
		{"beyond cap apex", r3.Vec{Z: 3.01}, false},
		{"inside lower cap", r3.Vec{X: 0.5, Z: -2.5}, true},
		{"corner outside both", r3.Vec{X: 1, Z: 2.9}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rod.PointInside(tt.p); got != tt.want {
				t.Errorf("PointInside(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestRodDiscretize(t *testing.T) {
	rod, err := NewRod(2, 10, Fixed(0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	points := LatticeDiscretizer{}.Discretize(rod)

	index := make(map[LatticePoint]bool, len(points))
	for _, p := range points {
		index[p] = true
	}
	if len(index) != len(points) {
		t.Fatalf("discretization contains duplicates")
	}

	// Unrotated rod is symmetric under z sign flip and x/y flips.
	for _, p := range points {
		for axis := 0; axis < 3; axis++ {
			q := p
			q[axis] = -q[axis]
			if !index[q] {
				t.Fatalf("point %v present but axis-%d mirror %v missing", p, axis, q)
			}
		}
	}

	// Count approximates the continuous volume.
	want := rod.Volume()
	got := float64(len(points))
	if math.Abs(got-want)/want > 0.15 {
		t.Errorf("lattice count = %v, want within 15%% of volume %v", got, want)
	}
}

// Rotating a rod by 90 degrees about x maps the voxel set of the
// unrotated rod onto the rotated one.
func TestRodDiscretizeRotationConsistency(t *testing.T) {
	upright, err := NewRod(2, 9, Fixed(0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	rotated, err := NewRod(2, 9, Fixed(90, 0, 0))
	if err != nil {
		t.Fatal(err)
	}

	up := LatticeDiscretizer{}.Discretize(upright)
	rot := LatticeDiscretizer{}.Discretize(rotated)
	if len(up) != len(rot) {
		t.Fatalf("point counts differ after rotation: %d vs %d", len(up), len(rot))
	}

	index := make(map[LatticePoint]bool, len(rot))
	for _, p := range rot {
		index[p] = true
	}
	for _, p := range up {
		// (x, y, z) -> (x, -z, y) under Rx(90).
		if !index[LatticePoint{p[0], -p[2], p[1]}] {
			t.Fatalf("rotated image of %v missing", p)
		}
	}
}

func vecAlmostEqual(a, b r3.Vec) bool {
	const tol = 1e-9
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}
