package ensemble

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/geometry"
	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/shape"
	"gonum.org/v1/gonum/spatial/r3"
)

// Strategy names a placement algorithm. The two strategies differ
// deliberately in collision scope and clearance margin; see the
// per-strategy documentation.
type Strategy string

const (
	// CellToEnsemble tiles the cloud's bounding cube with cubic cells
	// and fills each with a fixed count of bodies per material family.
	// Collisions are checked only within a cell.
	CellToEnsemble Strategy = "cell-to-ensemble"

	// VolumeToEnsemble accumulates per-family placed volume up to the
	// family's target fraction, sampling positions uniformly by volume
	// in an oversized sphere. Collisions are checked globally.
	VolumeToEnsemble Strategy = "volume-to-ensemble"
)

// Family configures one material family of particles.
type Family struct {
	Name           string
	Shape          shape.Kind
	Params         []float64 // radius, or radius and height
	VolumeFraction float64   // target fraction of the confinement volume, in (0,1]
	Material       string
	MaterialIdx    int
}

func (f Family) spec() shape.Spec {
	return shape.Spec{Kind: f.Shape, Params: f.Params}
}

// newBody constructs a fresh, material-tagged body for this family.
// Rods draw a fresh random orientation from rng.
func (f Family) newBody(rng *rand.Rand) (shape.Shape, error) {
	s, err := shape.New(f.spec(), shape.Random(rng))
	if err != nil {
		return nil, fmt.Errorf("family %q: %w", f.Name, err)
	}
	s.SetMaterial(shape.Material{Name: f.Material, Index: f.MaterialIdx})
	return s, nil
}

// bodyVolume returns the per-particle volume of this family's shape.
func (f Family) bodyVolume() (float64, error) {
	s, err := shape.New(f.spec(), shape.Fixed(0, 0, 0))
	if err != nil {
		return 0, fmt.Errorf("family %q: %w", f.Name, err)
	}
	return s.Volume(), nil
}

// Config is the full input for one generation run.
type Config struct {
	CloudRadius    float64 // dipole units
	DipoleSize     float64 // physical length per lattice unit
	Polydispersity float64
	Strategy       Strategy
	Families       []Family
}

// Validate fails fast on configuration errors before any placement
// work begins.
func (c Config) Validate() error {
	if c.CloudRadius <= 0 {
		return fmt.Errorf("cloud radius must be positive, got %g", c.CloudRadius)
	}
	if c.DipoleSize <= 0 {
		return fmt.Errorf("dipole size must be positive, got %g", c.DipoleSize)
	}
	switch c.Strategy {
	case CellToEnsemble:
		if len(c.Families) != 2 {
			return fmt.Errorf("%s requires exactly two families, got %d", c.Strategy, len(c.Families))
		}
	case VolumeToEnsemble:
		if len(c.Families) == 0 {
			return fmt.Errorf("%s requires at least one family", c.Strategy)
		}
	default:
		return fmt.Errorf("unknown placement strategy %q", c.Strategy)
	}
	for _, f := range c.Families {
		if f.VolumeFraction <= 0 || f.VolumeFraction > 1 {
			return fmt.Errorf("family %q: volume fraction must be in (0,1], got %g", f.Name, f.VolumeFraction)
		}
		if f.MaterialIdx < 1 {
			return fmt.Errorf("family %q: material index must be positive, got %d", f.Name, f.MaterialIdx)
		}
		if _, err := shape.New(f.spec(), shape.Fixed(0, 0, 0)); err != nil {
			return fmt.Errorf("family %q: %w", f.Name, err)
		}
	}
	return nil
}

// retryBudget is the number of consecutive rejected trials allowed for
// a single body before generation truncates.
const retryBudget = 500

// ErrPlacementExhausted reports that a body exceeded the retry budget.
// The returned ensemble holds every body accepted before truncation;
// callers decide whether a partial cloud is acceptable.
var ErrPlacementExhausted = errors.New("placement retry budget exhausted")

// Generator builds ensembles from an explicit random source, so runs
// are reproducible under a fixed seed.
type Generator struct {
	rng *rand.Rand
	log *slog.Logger
}

// NewGenerator returns a generator drawing from rng. A nil logger
// discards progress output.
func NewGenerator(rng *rand.Rand, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Generator{rng: rng, log: log}
}

// Generate runs the configured placement strategy and returns the
// resulting cloud. On retry-budget exhaustion the partial ensemble is
// returned together with an error wrapping ErrPlacementExhausted.
func (g *Generator) Generate(cfg Config) (*Ensemble, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ensemble config: %w", err)
	}
	if g.rng == nil {
		return nil, fmt.Errorf("generator requires a random source")
	}

	ens := &Ensemble{
		CloudRadius:    cfg.CloudRadius,
		DipoleSize:     cfg.DipoleSize,
		Polydispersity: cfg.Polydispersity,
		Strategy:       cfg.Strategy,
		Families:       append([]Family(nil), cfg.Families...),
	}

	var err error
	switch cfg.Strategy {
	case CellToEnsemble:
		err = g.fillCells(ens, cfg)
	case VolumeToEnsemble:
		err = g.fillVolume(ens, cfg)
	}

	g.log.Info("ensemble generated",
		slog.String("strategy", string(cfg.Strategy)),
		slog.Int("bodies", len(ens.Bodies)),
		slog.Bool("truncated", errors.Is(err, ErrPlacementExhausted)))
	return ens, err
}

// filterCloud keeps bodies whose centroid (axis midpoint for rods)
// lies strictly inside the confinement radius.
func filterCloud(bodies []shape.Shape, cloudRadius float64) []shape.Shape {
	kept := make([]shape.Shape, 0, len(bodies))
	for _, b := range bodies {
		if r3.Norm(b.Centroid()) < cloudRadius {
			kept = append(kept, b)
		}
	}
	return kept
}

// anchorExtents returns the per-axis bounds of a body's anchor points
// (the center for spheres, both axis endpoints for rods) in its
// current frame. The body radius is deliberately not included: cell
// placement confines the anchor, not the full surface, so a body may
// protrude into a neighboring cell by up to its radius.
func anchorExtents(b shape.Shape) (min, max r3.Vec) {
	switch a := b.Anchor().(type) {
	case geometry.Point:
		min, max = r3.Vec(a), r3.Vec(a)
	case geometry.Segment:
		min = r3.Vec{X: math.Min(a.A.X, a.B.X), Y: math.Min(a.A.Y, a.B.Y), Z: math.Min(a.A.Z, a.B.Z)}
		max = r3.Vec{X: math.Max(a.A.X, a.B.X), Y: math.Max(a.A.Y, a.B.Y), Z: math.Max(a.A.Z, a.B.Z)}
	}
	return min, max
}

// uniform draws from [lo, hi).
func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}
