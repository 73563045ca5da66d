package export

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/ensemble"
	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/geometry"
	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/shape"
)

func TestWriteShape(t *testing.T) {
	dipoles := []ensemble.Dipole{
		{Point: shape.LatticePoint{0, 0, 0}, MaterialIdx: 1},
		{Point: shape.LatticePoint{-1, 2, 3}, MaterialIdx: 2},
	}

	var sb strings.Builder
	if err := WriteShape(&sb, "cloud-ab12", dipoles); err != nil {
		t.Fatalf("WriteShape: %v", err)
	}

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if len(lines) != 9 {
		t.Fatalf("got %d lines, want 9:\n%s", len(lines), sb.String())
	}
	if lines[0] != "cloud-ab12" {
		t.Errorf("description line = %q", lines[0])
	}
	if lines[1] != "2 = NAT " {
		t.Errorf("NAT line = %q", lines[1])
	}
	if !strings.Contains(lines[2], "A_1 vector") || !strings.Contains(lines[3], "A_2 vector") {
		t.Errorf("basis vector lines = %q, %q", lines[2], lines[3])
	}
	if !strings.HasPrefix(lines[6], "JA") {
		t.Errorf("column header line = %q", lines[6])
	}
	if lines[7] != "1 0 0 0 1 1 1" {
		t.Errorf("first dipole row = %q", lines[7])
	}
	if lines[8] != "2 -1 2 3 2 2 2" {
		t.Errorf("second dipole row = %q", lines[8])
	}
}

func TestWriteShapeEmpty(t *testing.T) {
	var sb strings.Builder
	if err := WriteShape(&sb, "empty", nil); err != nil {
		t.Fatalf("WriteShape: %v", err)
	}
	if !strings.Contains(sb.String(), "0 = NAT") {
		t.Errorf("missing zero dipole count:\n%s", sb.String())
	}
}

func TestWriteHistogramCSV(t *testing.T) {
	dist := geometry.Distribution{
		Counts:   []int{3, 0, 7},
		BinEdges: []float64{0, 10, 20, 30},
	}

	var sb strings.Builder
	if err := WriteHistogramCSV(&sb, dist); err != nil {
		t.Fatalf("WriteHistogramCSV: %v", err)
	}

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d rows, want 3:\n%s", len(lines), sb.String())
	}
	if lines[0] != "3,0,7" {
		t.Errorf("counts row = %q", lines[0])
	}
	if lines[1] != "0,10,20" {
		t.Errorf("lower edges row = %q", lines[1])
	}
	if lines[2] != "10,20,30" {
		t.Errorf("upper edges row = %q", lines[2])
	}
}

func TestWriteDistributions(t *testing.T) {
	dir := t.TempDir()
	dists := map[string]geometry.Distribution{
		geometry.CategoryAngle: {
			Counts:   []int{1, 2},
			BinEdges: []float64{0, 90, 180},
		},
		geometry.CategorySpheres: {
			Counts:   []int{4},
			BinEdges: []float64{2, 80},
		},
		"empty": {},
	}

	if err := WriteDistributions(dir, dists); err != nil {
		t.Fatalf("WriteDistributions: %v", err)
	}

	for _, want := range []string{"angle_dist.csv", "dist_ss_dist.csv"} {
		if _, err := os.Stat(filepath.Join(dir, want)); err != nil {
			t.Errorf("missing %s: %v", want, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "empty_dist.csv")); !os.IsNotExist(err) {
		t.Error("empty distribution should not produce a file")
	}

	data, err := os.ReadFile(filepath.Join(dir, "angle_dist.csv"))
	if err != nil {
		t.Fatalf("read angle csv: %v", err)
	}
	if !strings.HasPrefix(string(data), "1,2\n") {
		t.Errorf("angle csv starts with %q", string(data))
	}
}

func TestEffectiveRadius(t *testing.T) {
	sph, err := shape.NewSphere(3)
	if err != nil {
		t.Fatalf("NewSphere: %v", err)
	}
	ens := &ensemble.Ensemble{
		CloudRadius: 10,
		DipoleSize:  2,
		Bodies:      []shape.Shape{sph},
	}

	// One sphere: the effective radius is its own radius in physical
	// units.
	if got := EffectiveRadius(ens); math.Abs(got-6) > 1e-9 {
		t.Errorf("EffectiveRadius = %v, want 6", got)
	}
}
