// Package ensemble constructs particle clouds for discrete-dipole
// scattering simulations: it places non-overlapping spheres and rods
// inside a confinement sphere according to target volume fractions,
// voxelizes the result onto the dipole lattice, and derives pairwise
// distance and angle statistics.
package ensemble

import (
	"math"
	"runtime"
	"sync"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/geometry"
	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/shape"
)

// Ensemble is a generated particle cloud. It is populated by exactly
// one placement strategy and treated as immutable afterwards; the
// derived views below never mutate it. Bodies keeps insertion order,
// which external persistence relies on for stable indexing.
type Ensemble struct {
	CloudRadius    float64 // confinement radius, dipole units
	DipoleSize     float64 // physical length per lattice unit
	Polydispersity float64
	Strategy       Strategy
	Families       []Family
	Bodies         []shape.Shape
}

// Dipole is one lattice site tagged with the material index of the
// body that produced it.
type Dipole struct {
	Point       shape.LatticePoint
	MaterialIdx int
}

// Discretize voxelizes every body with the given discretizer (the
// exhaustive lattice scan when nil) and concatenates the per-body
// dipole sets in body order. Bodies are independent, so the work fans
// out across a bounded worker pool; the output order stays
// deterministic regardless.
func (e *Ensemble) Discretize(d shape.Discretizer) []Dipole {
	if d == nil {
		d = shape.LatticeDiscretizer{}
	}

	perBody := make([][]shape.LatticePoint, len(e.Bodies))
	workers := runtime.GOMAXPROCS(0)
	if workers > len(e.Bodies) {
		workers = len(e.Bodies)
	}

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				perBody[i] = d.Discretize(e.Bodies[i])
			}
		}()
	}
	for i := range e.Bodies {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var dipoles []Dipole
	for i, points := range perBody {
		idx := e.Bodies[i].Material().Index
		for _, p := range points {
			dipoles = append(dipoles, Dipole{Point: p, MaterialIdx: idx})
		}
	}
	return dipoles
}

// Distributions returns the pairwise angle/distance histograms for the
// cloud, keyed by category label. See geometry.EvaluateDistribution
// for the binning and presence rules.
func (e *Ensemble) Distributions() map[string]geometry.Distribution {
	bodies := make([]geometry.Body, len(e.Bodies))
	for i, b := range e.Bodies {
		bodies[i] = b
	}
	return geometry.EvaluateDistribution(bodies)
}

// radialBins is the bin count of the coarse center-distance histogram.
const radialBins = 20

// RadialDistribution bins all pairwise anchor distances into 20 equal
// bins over [0, 2*CloudRadius). Distances beyond the range are
// dropped.
func (e *Ensemble) RadialDistribution() []int {
	counts := make([]int, radialBins)
	step := 2 * e.CloudRadius / radialBins
	if step <= 0 {
		return counts
	}
	for i := 0; i < len(e.Bodies); i++ {
		for j := i + 1; j < len(e.Bodies); j++ {
			dist := geometry.Distance(e.Bodies[i].Anchor(), e.Bodies[j].Anchor())
			idx := int(math.Floor(dist / step))
			if idx >= 0 && idx < radialBins {
				counts[idx]++
			}
		}
	}
	return counts
}
