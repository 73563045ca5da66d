package ensemble

import (
	"fmt"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/shape"
	"gonum.org/v1/gonum/spatial/r3"
)

// ParticleRecord is the flat per-particle row exchanged with the
// persistence collaborator. All lengths are in physical units; the
// optional fields are present for rods only.
type ParticleRecord struct {
	Index       int
	MaterialIdx int
	Material    string
	Shape       string
	Radius      float64
	Length      *float64
	Volume      float64
	CX, CY, CZ  float64
	RX, RY, RZ  *float64
}

// Snapshot is the persisted ensemble-level metadata needed to
// rehydrate a cloud. CloudRadius is stored in physical units.
type Snapshot struct {
	CloudRadius    float64
	DipoleSize     float64
	Polydispersity float64
	Strategy       Strategy
}

// Records converts the cloud into persistence rows, multiplying
// lengths by DipoleSize and volumes by its cube. Row order follows
// body insertion order.
func (e *Ensemble) Records() []ParticleRecord {
	ds := e.DipoleSize
	records := make([]ParticleRecord, 0, len(e.Bodies))
	for i, b := range e.Bodies {
		mat := b.Material()
		pos := b.Position()
		rec := ParticleRecord{
			Index:       i,
			MaterialIdx: mat.Index,
			Material:    mat.Name,
			Shape:       string(b.Kind()),
			Radius:      b.Radius() * ds,
			Volume:      b.Volume() * ds * ds * ds,
			CX:          pos.X * ds,
			CY:          pos.Y * ds,
			CZ:          pos.Z * ds,
		}
		if rod, ok := b.(*shape.Rod); ok {
			length := rod.Height() * ds
			rec.Length = &length
			rot := rod.Orientation()
			rx, ry, rz := rot[0], rot[1], rot[2]
			rec.RX, rec.RY, rec.RZ = &rx, &ry, &rz
		}
		records = append(records, rec)
	}
	return records
}

// Rehydrate reconstructs an in-memory Ensemble from persisted rows,
// dividing physical units back into dipole units. Rod rotations are
// reapplied exactly as stored; rows without a length are spheres.
func Rehydrate(meta Snapshot, rows []ParticleRecord) (*Ensemble, error) {
	if meta.DipoleSize <= 0 {
		return nil, fmt.Errorf("rehydrate: dipole size must be positive, got %g", meta.DipoleSize)
	}
	ds := meta.DipoleSize

	ens := &Ensemble{
		CloudRadius:    meta.CloudRadius / ds,
		DipoleSize:     ds,
		Polydispersity: meta.Polydispersity,
		Strategy:       meta.Strategy,
	}
	for _, row := range rows {
		spec := shape.Spec{Kind: shape.Kind(row.Shape), Params: []float64{row.Radius / ds}}
		rot := shape.Fixed(0, 0, 0)
		if row.Shape == string(shape.KindRod) {
			if row.Length == nil {
				return nil, fmt.Errorf("rehydrate: rod row %d has no length", row.Index)
			}
			spec.Params = append(spec.Params, *row.Length/ds)
			if row.RX != nil && row.RY != nil && row.RZ != nil {
				rot = shape.Fixed(*row.RX, *row.RY, *row.RZ)
			}
		}

		body, err := shape.New(spec, rot)
		if err != nil {
			return nil, fmt.Errorf("rehydrate: row %d: %w", row.Index, err)
		}
		body.SetMaterial(shape.Material{Name: row.Material, Index: row.MaterialIdx})
		body.Translate(r3.Vec{X: row.CX / ds, Y: row.CY / ds, Z: row.CZ / ds})
		ens.Bodies = append(ens.Bodies, body)
	}
	return ens, nil
}
