package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/ensemble"
	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/shape"
	"gonum.org/v1/gonum/spatial/r3"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ensembles.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testCloud(t *testing.T) *ensemble.Ensemble {
	t.Helper()
	sph, err := shape.NewSphere(1.5)
	if err != nil {
		t.Fatalf("NewSphere: %v", err)
	}
	sph.Translate(r3.Vec{X: 1, Y: 2, Z: 3})
	sph.SetMaterial(shape.Material{Name: "Ag", Index: 1})

	rod, err := shape.NewRod(1, 4, shape.Fixed(30, 45, 60))
	if err != nil {
		t.Fatalf("NewRod: %v", err)
	}
	rod.Translate(r3.Vec{X: -2, Z: 5})
	rod.SetMaterial(shape.Material{Name: "ice", Index: 2})

	return &ensemble.Ensemble{
		CloudRadius:    10,
		DipoleSize:     2,
		Polydispersity: 0.1,
		Strategy:       ensemble.VolumeToEnsemble,
		Families: []ensemble.Family{
			{Name: "Ag", Shape: shape.KindSphere, Params: []float64{1.5}, VolumeFraction: 0.05, Material: "Ag", MaterialIdx: 1},
			{Name: "ice", Shape: shape.KindRod, Params: []float64{1, 4}, VolumeFraction: 0.1, Material: "ice", MaterialIdx: 2},
		},
		Bodies: []shape.Shape{sph, rod},
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("Open with blank path did not fail")
	}
}

func TestSaveAndLoadEnsemble(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ens := testCloud(t)

	id, err := s.SaveEnsemble(ctx, ens)
	if err != nil {
		t.Fatalf("SaveEnsemble: %v", err)
	}
	if len(id) != keyBytes*2 {
		t.Errorf("id %q has length %d, want %d hex chars", id, len(id), keyBytes*2)
	}

	loaded, err := s.LoadEnsemble(ctx, id)
	if err != nil {
		t.Fatalf("LoadEnsemble: %v", err)
	}
	if loaded.CloudRadius != ens.CloudRadius {
		t.Errorf("cloud radius = %v, want %v", loaded.CloudRadius, ens.CloudRadius)
	}
	if loaded.DipoleSize != ens.DipoleSize {
		t.Errorf("dipole size = %v, want %v", loaded.DipoleSize, ens.DipoleSize)
	}
	if loaded.Strategy != ens.Strategy {
		t.Errorf("strategy = %q, want %q", loaded.Strategy, ens.Strategy)
	}
	if loaded.Polydispersity != ens.Polydispersity {
		t.Errorf("polydispersity = %v, want %v", loaded.Polydispersity, ens.Polydispersity)
	}
	if !reflect.DeepEqual(loaded.Records(), ens.Records()) {
		t.Error("particle records changed across a save/load round trip")
	}
}

func TestSaveAllocatesDistinctKeys(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		id, err := s.SaveEnsemble(ctx, testCloud(t))
		if err != nil {
			t.Fatalf("SaveEnsemble %d: %v", i, err)
		}
		if seen[id] {
			t.Fatalf("duplicate ensemble id %q", id)
		}
		seen[id] = true
	}
}

func TestLoadUnknownEnsemble(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.LoadEnsemble(context.Background(), "deadbeef00"); err == nil {
		t.Fatal("LoadEnsemble for unknown id did not fail")
	}
}

func TestSetFlag(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SaveEnsemble(ctx, testCloud(t))
	if err != nil {
		t.Fatalf("SaveEnsemble: %v", err)
	}

	for _, flag := range []string{"ensemble_data", "ddscat_run", "postprocessing_run"} {
		if err := s.SetFlag(ctx, id, flag); err != nil {
			t.Errorf("SetFlag(%s): %v", flag, err)
		}
	}

	infos, err := s.ListEnsembles(ctx)
	if err != nil {
		t.Fatalf("ListEnsembles: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("got %d ensembles, want 1", len(infos))
	}
	info := infos[0]
	if !info.EnsembleData || !info.DDSCATRun || !info.Postprocessing {
		t.Errorf("flags not all set: %+v", info)
	}
}

func TestSetFlagRejectsUnknown(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SaveEnsemble(ctx, testCloud(t))
	if err != nil {
		t.Fatalf("SaveEnsemble: %v", err)
	}
	if err := s.SetFlag(ctx, id, "ensembles; DROP TABLE ensembles"); err == nil {
		t.Fatal("SetFlag with unknown column did not fail")
	}
	if err := s.SetFlag(ctx, "missing", "ddscat_run"); err == nil {
		t.Fatal("SetFlag for unknown ensemble did not fail")
	}
}

func TestInsertScattering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SaveEnsemble(ctx, testCloud(t))
	if err != nil {
		t.Fatalf("SaveEnsemble: %v", err)
	}

	enh := 1.4
	rec := ScatteringRecord{Wavelength: 532, NumOrientations: 27, AbsEff: 0.8, ScaEff: 0.3, AbsEnh: &enh}
	if err := s.InsertScattering(ctx, id, rec); err != nil {
		t.Fatalf("InsertScattering: %v", err)
	}

	// The (ensemble, wavelength, orientations) key is unique.
	if err := s.InsertScattering(ctx, id, rec); err == nil {
		t.Fatal("duplicate scattering row did not fail")
	}
}

func TestFractionColumnsByPosition(t *testing.T) {
	// Two families of the same shape must still land in separate
	// metadata columns, first declared to plasmonic_fv.
	ens := &ensemble.Ensemble{
		Families: []ensemble.Family{
			{Name: "silver", Shape: shape.KindSphere, Params: []float64{1}, VolumeFraction: 0.03, Material: "silver", MaterialIdx: 1},
			{Name: "gold", Shape: shape.KindSphere, Params: []float64{2}, VolumeFraction: 0.07, Material: "gold", MaterialIdx: 2},
		},
	}
	plasmonic, dielectric := fractionColumns(ens)
	if plasmonic != 0.03 {
		t.Errorf("plasmonic fraction = %v, want 0.03", plasmonic)
	}
	if dielectric != 0.07 {
		t.Errorf("dielectric fraction = %v, want 0.07", dielectric)
	}
}
