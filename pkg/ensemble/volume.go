package ensemble

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/shape"
	"gonum.org/v1/gonum/spatial/r3"
)

// fillVolume runs the volume-to-ensemble strategy. For each family in
// turn it keeps placing fresh bodies until the family's accumulated
// volume reaches (4/3)*pi*(2R)^3 * fraction, sampling candidate
// positions uniformly by volume inside the oversized sphere of radius
// 2R. A candidate is rejected when it comes closer than
// radius_i + radius_j + dipoleSize + 1 to any body accepted so far in
// the whole cloud (global scope, unlike cell-to-ensemble). Afterwards
// only bodies whose centroid lies inside the confinement radius are
// retained; the oversizing compensates the edge loss.
func (g *Generator) fillVolume(ens *Ensemble, cfg Config) error {
	R := cfg.CloudRadius
	outer := 2 * R
	margin := cfg.DipoleSize + 1

	var accepted []shape.Shape
	for _, fam := range cfg.Families {
		target := 4 * math.Pi / 3 * outer * outer * outer * fam.VolumeFraction
		placed := 0.0

		for placed < target {
			body, err := fam.newBody(g.rng)
			if err != nil {
				return err
			}

			trials := 0
			for {
				pos := g.pointInBall(outer)
				if !collides(body, pos, accepted, margin) {
					body.Translate(pos)
					accepted = append(accepted, body)
					placed += body.Volume()
					break
				}
				trials++
				if trials > retryBudget {
					ens.Bodies = filterCloud(accepted, R)
					g.log.Warn("placement retry budget exhausted, truncating cloud",
						slog.String("family", fam.Name),
						slog.Int("accepted", len(ens.Bodies)))
					return fmt.Errorf("volume placement: %w", ErrPlacementExhausted)
				}
			}
		}
		g.log.Info("family volume target met",
			slog.String("family", fam.Name),
			slog.Float64("placed", placed),
			slog.Float64("target", target))
	}

	ens.Bodies = filterCloud(accepted, R)
	return nil
}

// pointInBall samples a point uniformly by volume inside a sphere of
// the given radius: a uniform direction on the unit sphere, scaled by
// the cube root of a uniform draw.
func (g *Generator) pointInBall(radius float64) r3.Vec {
	phi := g.rng.Float64() * 2 * math.Pi
	cosTheta := g.uniform(-1, 1)
	sinTheta := math.Sqrt(1 - cosTheta*cosTheta)
	dir := r3.Vec{
		X: sinTheta * math.Cos(phi),
		Y: sinTheta * math.Sin(phi),
		Z: cosTheta,
	}
	return r3.Scale(math.Cbrt(g.rng.Float64())*radius, dir)
}
