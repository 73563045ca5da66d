package ensemble

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/geometry"
	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/shape"
	"gonum.org/v1/gonum/spatial/r3"
)

// cellLayout is the derived tiling for cell-to-ensemble: per-cell
// body counts for the two families and the cubic cell edge length.
type cellLayout struct {
	n1, n2 int
	edge   float64
}

// planCells chooses integer per-cell counts (n1, n2) approximating the
// volume-fraction ratio r = (phi1*V2)/(phi2*V1) by a fraction with
// denominator at most 20, then sizes the cubic cell so family one
// meets its fraction exactly: edge = ceil(cbrt(n1*V1/phi1)).
func planCells(f1, f2 Family) (cellLayout, error) {
	v1, err := f1.bodyVolume()
	if err != nil {
		return cellLayout{}, err
	}
	v2, err := f2.bodyVolume()
	if err != nil {
		return cellLayout{}, err
	}

	ratio := (f1.VolumeFraction * v2) / (f2.VolumeFraction * v1)
	n1, n2 := limitDenominator(ratio, 20)
	if n1 < 1 {
		n1 = 1
	}

	cellVolume := float64(n1) * v1 / f1.VolumeFraction
	return cellLayout{n1: n1, n2: n2, edge: math.Ceil(math.Cbrt(cellVolume))}, nil
}

// limitDenominator returns the reduced fraction p/q closest to x with
// 1 <= q <= maxDenom, scanning all admissible denominators.
func limitDenominator(x float64, maxDenom int) (p, q int) {
	p, q = int(math.Round(x)), 1
	best := math.Abs(x - float64(p))
	for d := 2; d <= maxDenom; d++ {
		n := int(math.Round(x * float64(d)))
		if err := math.Abs(x - float64(n)/float64(d)); err < best {
			p, q, best = n, d, err
		}
	}
	if g := gcd(p, q); g > 1 {
		p, q = p/g, q/g
	}
	return p, q
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// fillCells runs the cell-to-ensemble strategy: tile the bounding cube
// of the cloud with cubic cells, place exactly n1+n2 fresh bodies in
// each at uniformly random positions that keep the body's anchor
// inside the cell, and reject candidates closer than
// radius_i + radius_j + 1 to a body already accepted in the same cell.
// Cross-cell overlap is a documented approximation of this strategy
// and is deliberately not checked. Afterwards only bodies whose
// centroid lies inside the confinement radius are retained.
func (g *Generator) fillCells(ens *Ensemble, cfg Config) error {
	f1, f2 := cfg.Families[0], cfg.Families[1]
	layout, err := planCells(f1, f2)
	if err != nil {
		return err
	}
	g.log.Info("cell layout planned",
		slog.Int("perCell1", layout.n1),
		slog.Int("perCell2", layout.n2),
		slog.Float64("edge", layout.edge))

	R := cfg.CloudRadius
	var accepted []shape.Shape

	truncate := func() error {
		ens.Bodies = filterCloud(accepted, R)
		g.log.Warn("placement retry budget exhausted, truncating cloud",
			slog.Int("accepted", len(ens.Bodies)))
		return fmt.Errorf("cell placement: %w", ErrPlacementExhausted)
	}

	for x := -R; x < R+layout.edge; x += layout.edge {
		for y := -R; y < R+layout.edge; y += layout.edge {
			for z := -R; z < R+layout.edge; z += layout.edge {
				cellCenter := r3.Vec{X: x, Y: y, Z: z}
				var cellBodies []shape.Shape

				for slot := 0; slot < layout.n1+layout.n2; slot++ {
					fam := f1
					if slot >= layout.n1 {
						fam = f2
					}
					body, err := fam.newBody(g.rng)
					if err != nil {
						return err
					}

					trials := 0
					for {
						pos, feasible := g.cellPosition(body, cellCenter, layout.edge)
						if feasible && !collides(body, pos, cellBodies, 1) {
							body.Translate(pos)
							cellBodies = append(cellBodies, body)
							break
						}
						trials++
						if trials > retryBudget {
							accepted = append(accepted, cellBodies...)
							return truncate()
						}
					}
				}
				accepted = append(accepted, cellBodies...)
			}
		}
	}

	ens.Bodies = filterCloud(accepted, R)
	return nil
}

// cellPosition samples a uniform position for body inside the cell
// centered at center, constrained so the body's anchor points stay
// within the cell. The surface may overhang the cell boundary by up
// to the body radius. Reports false when the anchor span exceeds the
// cell edge (a rod longer than the cell).
func (g *Generator) cellPosition(body shape.Shape, center r3.Vec, edge float64) (r3.Vec, bool) {
	mn, mx := anchorExtents(body)
	half := edge / 2
	lo := r3.Vec{X: center.X - half - mn.X, Y: center.Y - half - mn.Y, Z: center.Z - half - mn.Z}
	hi := r3.Vec{X: center.X + half - mx.X, Y: center.Y + half - mx.Y, Z: center.Z + half - mx.Z}
	if hi.X < lo.X || hi.Y < lo.Y || hi.Z < lo.Z {
		return r3.Vec{}, false
	}
	return r3.Vec{
		X: g.uniform(lo.X, hi.X),
		Y: g.uniform(lo.Y, hi.Y),
		Z: g.uniform(lo.Z, hi.Z),
	}, true
}

// collides reports whether body, shifted to pos, comes closer than
// radius_i + radius_j + margin to any accepted neighbor.
func collides(body shape.Shape, pos r3.Vec, neighbors []shape.Shape, margin float64) bool {
	cand := body.Anchor().Translated(pos)
	for _, old := range neighbors {
		if geometry.Distance(cand, old.Anchor()) < body.Radius()+old.Radius()+margin {
			return true
		}
	}
	return false
}
