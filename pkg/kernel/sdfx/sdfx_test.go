package sdfx

import (
	"math"
	"testing"
)

func TestSphere(t *testing.T) {
	k := New()
	sph := k.Sphere(10)
	mesh, err := k.ToMesh(sph)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if mesh.VertexCount() == 0 {
		t.Fatal("expected non-zero vertex count")
	}
	// Verify vertex and index array sizes are consistent.
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), mesh.TriangleCount()*3)
	}
}

func TestSphereBoundingBox(t *testing.T) {
	k := New()
	sph := k.Sphere(10)
	min, max := sph.BoundingBox()

	const tol = 0.01
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]+10) > tol {
			t.Errorf("min[%d] = %f, expected -10", i, min[i])
		}
		if math.Abs(max[i]-10) > tol {
			t.Errorf("max[%d] = %f, expected 10", i, max[i])
		}
	}
}

func TestCapsuleBoundingBox(t *testing.T) {
	k := New()
	solid := k.Capsule(50, 10)
	min, max := solid.BoundingBox()

	// Tip to tip along Z is the full height; radial extent is the radius.
	const tol = 0.01
	if math.Abs(max[2]-min[2]-50) > tol {
		t.Errorf("Z extent = %f, expected 50", max[2]-min[2])
	}
	if math.Abs(max[0]-min[0]-20) > tol {
		t.Errorf("X extent = %f, expected 20", max[0]-min[0])
	}
}

func TestCapsuleMesh(t *testing.T) {
	k := New()
	solid := k.Capsule(50, 10)
	mesh, err := k.ToMesh(solid)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	t.Logf("capsule triangle count: %d", mesh.TriangleCount())
}

func TestUnion(t *testing.T) {
	k := New()
	s1 := k.Sphere(10)
	s2 := k.Translate(k.Sphere(10), 8, 0, 0)
	u := k.Union(s1, s2)
	mesh, err := k.ToMesh(u)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("union mesh is empty")
	}

	min, max := u.BoundingBox()
	if max[0]-min[0] <= 20 {
		t.Errorf("union X extent = %f, expected wider than a single sphere", max[0]-min[0])
	}
}

func TestTranslate(t *testing.T) {
	k := New()
	sph := k.Sphere(5)
	translated := k.Translate(sph, 100, 200, 300)

	min, max := translated.BoundingBox()

	const tol = 0.5
	expectMin := [3]float64{95, 195, 295}
	expectMax := [3]float64{105, 205, 305}

	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], expectMax[i])
		}
	}
}

func TestRotate(t *testing.T) {
	k := New()
	solid := k.Capsule(100, 5)

	// A Z-aligned capsule rotated 90 degrees around X should extend
	// along Y instead.
	rotated := k.Rotate(solid, 90, 0, 0)
	min, max := rotated.BoundingBox()

	yExtent := max[1] - min[1]
	zExtent := max[2] - min[2]

	const tol = 1.0
	if math.Abs(yExtent-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", yExtent)
	}
	if math.Abs(zExtent-10) > tol {
		t.Errorf("rotated Z extent = %f, expected ~10", zExtent)
	}
}
