// Package preview turns a generated ensemble into triangle meshes for
// visual inspection, one mesh per placed body, through the abstract
// geometry kernel.
package preview

import (
	"fmt"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/ensemble"
	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/kernel"
	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/shape"
)

// solidFor builds the kernel solid for one placed body: the primitive
// in its local frame, rotated, then translated to its world centroid.
func solidFor(k kernel.Kernel, b shape.Shape) (kernel.Solid, error) {
	var s kernel.Solid
	switch b.Kind() {
	case shape.KindSphere:
		s = k.Sphere(b.Radius())
	case shape.KindRod:
		rod, ok := b.(*shape.Rod)
		if !ok {
			return nil, fmt.Errorf("rod body has unexpected type %T", b)
		}
		s = k.Capsule(rod.Height(), rod.Radius())
		rot := b.Orientation()
		s = k.Rotate(s, rot[0], rot[1], rot[2])
	default:
		return nil, fmt.Errorf("unknown body kind %q", b.Kind())
	}
	c := b.Centroid()
	return k.Translate(s, c.X, c.Y, c.Z), nil
}

// Meshes renders every body of the ensemble to its own labeled mesh.
// Labels carry the body's index and material name so a viewer can
// color by family.
func Meshes(ens *ensemble.Ensemble, k kernel.Kernel) ([]*kernel.Mesh, error) {
	meshes := make([]*kernel.Mesh, 0, len(ens.Bodies))
	for i, b := range ens.Bodies {
		solid, err := solidFor(k, b)
		if err != nil {
			return nil, fmt.Errorf("body %d: %w", i, err)
		}
		mesh, err := k.ToMesh(solid)
		if err != nil {
			return nil, fmt.Errorf("body %d: %w", i, err)
		}
		mesh.Label = fmt.Sprintf("%s-%d", b.Material().Name, i)
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// Merged renders the whole ensemble as a single union solid. Useful
// for exporting one watertight preview of the cloud.
func Merged(ens *ensemble.Ensemble, k kernel.Kernel) (*kernel.Mesh, error) {
	if len(ens.Bodies) == 0 {
		return &kernel.Mesh{}, nil
	}
	var acc kernel.Solid
	for i, b := range ens.Bodies {
		solid, err := solidFor(k, b)
		if err != nil {
			return nil, fmt.Errorf("body %d: %w", i, err)
		}
		if acc == nil {
			acc = solid
		} else {
			acc = k.Union(acc, solid)
		}
	}
	return k.ToMesh(acc)
}
