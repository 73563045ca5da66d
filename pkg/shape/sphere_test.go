package shape

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewSphereValidation(t *testing.T) {
	tests := []struct {
		name    string
		radius  float64
		wantErr bool
	}{
		{"valid", 1, false},
		{"large", 25, false},
		{"zero", 0, true},
		{"negative", -3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSphere(tt.radius)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSphere(%g) error = %v, wantErr %v", tt.radius, err, tt.wantErr)
			}
		})
	}
}

func TestSphereVolume(t *testing.T) {
	s, err := NewSphere(2)
	if err != nil {
		t.Fatal(err)
	}
	want := 4.0 / 3.0 * math.Pi * 8
	if got := s.Volume(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Volume() = %v, want %v", got, want)
	}
}

func TestSpherePointInside(t *testing.T) {
	s, err := NewSphere(2)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		p    r3.Vec
		want bool
	}{
		{"origin", r3.Vec{}, true},
		{"interior", r3.Vec{X: 1, Y: 1}, true},
		{"on surface", r3.Vec{X: 2}, true},
		{"just outside", r3.Vec{X: 2 + 1e-9}, false},
		{"far outside", r3.Vec{X: 5, Y: 5, Z: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.PointInside(tt.p); got != tt.want {
				t.Errorf("PointInside(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestSphereTranslate(t *testing.T) {
	s, err := NewSphere(1)
	if err != nil {
		t.Fatal(err)
	}
	s.Translate(r3.Vec{X: 1, Y: 2, Z: 3})
	s.Translate(r3.Vec{X: 1})
	want := r3.Vec{X: 2, Y: 2, Z: 3}
	if got := s.Centroid(); got != want {
		t.Errorf("Centroid() = %v, want %v", got, want)
	}
	if got := s.Position(); got != want {
		t.Errorf("Position() = %v, want %v", got, want)
	}
}

func TestSphereDiscretizeSymmetryAndCount(t *testing.T) {
	s, err := NewSphere(4)
	if err != nil {
		t.Fatal(err)
	}
	points := LatticeDiscretizer{}.Discretize(s)

	index := make(map[LatticePoint]bool, len(points))
	for _, p := range points {
		index[p] = true
	}
	if len(index) != len(points) {
		t.Fatalf("discretization contains duplicates: %d points, %d unique", len(points), len(index))
	}

	// Sign-flip symmetry about the origin on every axis.
	for _, p := range points {
		for axis := 0; axis < 3; axis++ {
			q := p
			q[axis] = -q[axis]
			if !index[q] {
				t.Fatalf("point %v present but axis-%d mirror %v missing", p, axis, q)
			}
		}
	}

	// Lattice count approximates the continuous volume.
	want := s.Volume()
	got := float64(len(points))
	if math.Abs(got-want)/want > 0.15 {
		t.Errorf("lattice count = %v, want within 15%% of volume %v", got, want)
	}
}

func TestSphereDiscretizeIntegerTranslation(t *testing.T) {
	a, err := NewSphere(3)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewSphere(3)
	if err != nil {
		t.Fatal(err)
	}
	b.Translate(r3.Vec{X: 5, Y: -6, Z: 7})

	pa := LatticeDiscretizer{}.Discretize(a)
	pb := LatticeDiscretizer{}.Discretize(b)
	if len(pa) != len(pb) {
		t.Fatalf("point counts differ: %d vs %d", len(pa), len(pb))
	}
	for i := range pa {
		want := LatticePoint{pa[i][0] + 5, pa[i][1] - 6, pa[i][2] + 7}
		if pb[i] != want {
			t.Fatalf("point %d = %v, want %v", i, pb[i], want)
		}
	}
}

func TestSphereSDFDiscretizerMatchesLattice(t *testing.T) {
	s, err := NewSphere(2.5)
	if err != nil {
		t.Fatal(err)
	}
	exact := LatticeDiscretizer{}.Discretize(s)
	viaSDF := SDFDiscretizer{}.Discretize(s)
	if len(exact) != len(viaSDF) {
		t.Fatalf("point counts differ: lattice %d, sdf %d", len(exact), len(viaSDF))
	}
	for i := range exact {
		if exact[i] != viaSDF[i] {
			t.Fatalf("point %d differs: lattice %v, sdf %v", i, exact[i], viaSDF[i])
		}
	}
}
