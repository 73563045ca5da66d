// Package kernel defines the abstract geometry kernel interface used
// to turn placed particle bodies into triangle meshes for preview.
// Implementations provide solid modeling behind this interface, so
// backends can be swapped without changing the rest of the system.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives, both centered at the origin. Capsule is a cylinder
	// with hemispherical caps whose total tip-to-tip length is height,
	// aligned with the Z axis.
	Sphere(radius float64) Solid
	Capsule(height, radius float64) Solid

	// Union returns the boolean union of two solids.
	Union(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees, applied X then Y then Z

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
