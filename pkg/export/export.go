// Package export writes solver and statistics artifacts for a
// generated ensemble: the DDSCAT shape.dat dipole file and per-category
// histogram CSVs. The core packages stay free of file I/O; everything
// that touches disk lives here.
package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/ensemble"
	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/geometry"
)

// ShapeFileName is the DDSCAT target geometry filename.
const ShapeFileName = "shape.dat"

// WriteShape writes a DDSCAT shape.dat target description: a free-form
// description line, the dipole count, the fixed lattice header, and one
// "JA IX IY IZ ICOMP(x,y,z)" row per dipole. JA is 1-based and the
// material index is repeated for the three polarization axes.
func WriteShape(w io.Writer, description string, dipoles []ensemble.Dipole) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s\n", description)
	fmt.Fprintf(bw, "%d = NAT \n", len(dipoles))
	bw.WriteString("1.000000  0.000000  0.000000 = A_1 vector\n")
	bw.WriteString("0.000000  1.000000  0.000000 = A_2 vector\n")
	bw.WriteString("1.000000  1.000000  1.000000 = lattice spacings (d_x,d_y,d_z)/d\n")
	bw.WriteString("0.000000  0.000000  0.000000 = lattice offset x0(1-3) = (x_TF,y_TF,z_TF)/d for dipole 0 0 0\n")
	bw.WriteString("JA  IX  IY  IZ ICOMP(x,y,z)\n")

	for i, d := range dipoles {
		fmt.Fprintf(bw, "%d %d %d %d %d %d %d\n",
			i+1, d.Point[0], d.Point[1], d.Point[2],
			d.MaterialIdx, d.MaterialIdx, d.MaterialIdx)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write shape file: %w", err)
	}
	return nil
}

// WriteShapeFile writes shape.dat into dir.
func WriteShapeFile(dir, description string, dipoles []ensemble.Dipole) error {
	f, err := os.Create(filepath.Join(dir, ShapeFileName))
	if err != nil {
		return fmt.Errorf("create shape file: %w", err)
	}
	defer f.Close()

	if err := WriteShape(f, description, dipoles); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close shape file: %w", err)
	}
	return nil
}

// WriteHistogramCSV serializes one histogram as three rows: bin
// counts, lower bin edges, and upper bin edges.
func WriteHistogramCSV(w io.Writer, dist geometry.Distribution) error {
	cw := csv.NewWriter(w)

	counts := make([]string, len(dist.Counts))
	for i, c := range dist.Counts {
		counts[i] = strconv.Itoa(c)
	}
	if err := cw.Write(counts); err != nil {
		return fmt.Errorf("write counts row: %w", err)
	}

	edges := dist.BinEdges
	lower := make([]string, 0, len(edges)-1)
	upper := make([]string, 0, len(edges)-1)
	for i := 0; i+1 < len(edges); i++ {
		lower = append(lower, formatEdge(edges[i]))
		upper = append(upper, formatEdge(edges[i+1]))
	}
	if err := cw.Write(lower); err != nil {
		return fmt.Errorf("write lower edges row: %w", err)
	}
	if err := cw.Write(upper); err != nil {
		return fmt.Errorf("write upper edges row: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func formatEdge(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteDistributions writes every histogram category into dir as
// <label>_dist.csv. Empty distributions are skipped. Categories are
// written in sorted order so repeated runs touch files in the same
// sequence.
func WriteDistributions(dir string, dists map[string]geometry.Distribution) error {
	labels := make([]string, 0, len(dists))
	for label := range dists {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		dist := dists[label]
		if len(dist.Counts) == 0 {
			continue
		}

		path := filepath.Join(dir, label+"_dist.csv")
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := WriteHistogramCSV(f, dist); err != nil {
			_ = f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", path, err)
		}
	}
	return nil
}

// EffectiveRadius returns the radius, in physical units, of the sphere
// whose volume equals the summed body volume of the ensemble. DDSCAT
// parameter files use it as the target's effective radius.
func EffectiveRadius(ens *ensemble.Ensemble) float64 {
	total := 0.0
	for _, b := range ens.Bodies {
		total += b.Volume()
	}
	return math.Cbrt(3*total/(4*math.Pi)) * ens.DipoleSize
}
