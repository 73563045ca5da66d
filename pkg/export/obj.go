package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/kernel"
)

// WriteOBJ writes preview meshes as a Wavefront OBJ document, one
// named object per mesh. OBJ vertex references are 1-based and global
// across objects, so later objects offset their face indices by the
// vertices written before them.
func WriteOBJ(w io.Writer, meshes []*kernel.Mesh) error {
	bw := bufio.NewWriter(w)

	offset := 0
	for i, m := range meshes {
		if m.IsEmpty() {
			continue
		}

		name := m.Label
		if name == "" {
			name = fmt.Sprintf("body-%d", i)
		}
		fmt.Fprintf(bw, "o %s\n", name)

		for v := 0; v+2 < len(m.Vertices); v += 3 {
			fmt.Fprintf(bw, "v %g %g %g\n", m.Vertices[v], m.Vertices[v+1], m.Vertices[v+2])
		}
		for t := 0; t+2 < len(m.Indices); t += 3 {
			fmt.Fprintf(bw, "f %d %d %d\n",
				offset+int(m.Indices[t])+1,
				offset+int(m.Indices[t+1])+1,
				offset+int(m.Indices[t+2])+1)
		}
		offset += m.VertexCount()
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write obj: %w", err)
	}
	return nil
}
