// Package main is the BUPTT command line tool. It generates particle
// ensembles from recipe files, persists them to the ensemble database,
// and writes DDSCAT and statistics artifacts for downstream runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/ensemble"
	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/export"
	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/kernel/sdfx"
	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/preview"
	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/recipe"
	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/shape"
	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/store"
)

// envConfig holds environment-driven settings shared by all
// subcommands.
type envConfig struct {
	OutputDir string `env:"BUPTT_OUTPUT_DIR" envDefault:"."`
	DBPath    string `env:"BUPTT_DB_PATH"`
}

const usage = `usage: buptt <command> [flags]

commands:
  generate  -recipe <file> [-seed N] [-sdf] [-preview]   generate and persist an ensemble
  inspect   [-id <ensemble-id>]                          list ensembles or show one
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(ctx, log, os.Args[1:]); err != nil {
		log.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, args []string) error {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.OutputDir, "ensembles.db")
	}

	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "generate":
		return runGenerate(ctx, log, cfg, args[1:])
	case "inspect":
		return runInspect(ctx, cfg, args[1:])
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runGenerate(ctx context.Context, log *slog.Logger, cfg envConfig, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	recipePath := fs.String("recipe", "", "path to the recipe file (required)")
	seed := fs.Int64("seed", 0, "random seed (overrides the recipe; 0 = recipe seed or current time)")
	useSDF := fs.Bool("sdf", false, "discretize through the SDF kernel instead of the lattice scan")
	writePreview := fs.Bool("preview", false, "write a cloud.obj preview mesh")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *recipePath == "" {
		return fmt.Errorf("generate: -recipe is required")
	}

	source, err := os.ReadFile(*recipePath)
	if err != nil {
		return fmt.Errorf("read recipe: %w", err)
	}

	rec, evalErrs, err := recipe.NewEngine().Evaluate(string(source))
	if err != nil {
		return fmt.Errorf("evaluate recipe: %w", err)
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			fmt.Fprintf(os.Stderr, "%s: %s\n", *recipePath, e.Error())
		}
		return fmt.Errorf("recipe has %d error(s)", len(evalErrs))
	}
	if rec.Config == nil {
		return fmt.Errorf("recipe %s defines no cloud", *recipePath)
	}

	runSeed := time.Now().UnixNano()
	if rec.Seed != nil {
		runSeed = *rec.Seed
	}
	if *seed != 0 {
		runSeed = *seed
	}
	log.Info("generating ensemble",
		slog.String("recipe", *recipePath),
		slog.Int64("seed", runSeed),
		slog.String("strategy", string(rec.Config.Strategy)))

	gen := ensemble.NewGenerator(rand.New(rand.NewSource(runSeed)), log)
	ens, err := gen.Generate(*rec.Config)
	if err != nil && !errors.Is(err, ensemble.ErrPlacementExhausted) {
		return fmt.Errorf("generate: %w", err)
	}
	if err != nil {
		log.Warn("cloud truncated, continuing with partial ensemble",
			slog.Int("bodies", len(ens.Bodies)))
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.SaveEnsemble(ctx, ens)
	if err != nil {
		return fmt.Errorf("save ensemble: %w", err)
	}

	outDir := filepath.Join(cfg.OutputDir, "ensembles", id)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var disc shape.Discretizer
	if *useSDF {
		disc = shape.SDFDiscretizer{}
	}
	dipoles := ens.Discretize(disc)
	if err := export.WriteShapeFile(outDir, id, dipoles); err != nil {
		return err
	}
	if err := export.WriteDistributions(outDir, ens.Distributions()); err != nil {
		return err
	}
	if err := db.SetFlag(ctx, id, "ensemble_data"); err != nil {
		return err
	}

	if *writePreview {
		meshes, err := preview.Meshes(ens, sdfx.New())
		if err != nil {
			return fmt.Errorf("preview: %w", err)
		}
		f, err := os.Create(filepath.Join(outDir, "cloud.obj"))
		if err != nil {
			return fmt.Errorf("create preview: %w", err)
		}
		defer f.Close()
		if err := export.WriteOBJ(f, meshes); err != nil {
			return err
		}
	}

	log.Info("ensemble stored",
		slog.String("id", id),
		slog.Int("bodies", len(ens.Bodies)),
		slog.Int("dipoles", len(dipoles)),
		slog.String("dir", outDir))
	fmt.Println(id)
	return nil
}

func runInspect(ctx context.Context, cfg envConfig, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	id := fs.String("id", "", "ensemble id to show (empty = list all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if *id == "" {
		infos, err := db.ListEnsembles(ctx)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("no ensembles stored")
			return nil
		}
		fmt.Printf("%-12s %-20s %10s %12s %s\n", "ID", "STRATEGY", "DIPOLE", "RADIUS", "FLAGS")
		for _, info := range infos {
			fmt.Printf("%-12s %-20s %10g %12g %s\n",
				info.ID, info.Strategy, info.DipoleSize, info.CloudRadius, flagString(info))
		}
		return nil
	}

	ens, err := db.LoadEnsemble(ctx, *id)
	if err != nil {
		return err
	}

	fmt.Printf("ensemble %s\n", *id)
	fmt.Printf("  strategy:       %s\n", ens.Strategy)
	fmt.Printf("  cloud radius:   %g dipole units\n", ens.CloudRadius)
	fmt.Printf("  dipole size:    %g\n", ens.DipoleSize)
	fmt.Printf("  bodies:         %d\n", len(ens.Bodies))

	spheres, rods := 0, 0
	for _, b := range ens.Bodies {
		if b.Kind() == shape.KindSphere {
			spheres++
		} else {
			rods++
		}
	}
	fmt.Printf("  spheres / rods: %d / %d\n", spheres, rods)
	fmt.Printf("  effective rad.: %g\n", export.EffectiveRadius(ens))

	dists := ens.Distributions()
	labels := make([]string, 0, len(dists))
	for label := range dists {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	fmt.Printf("  distributions:")
	for _, label := range labels {
		total := 0
		for _, c := range dists[label].Counts {
			total += c
		}
		fmt.Printf(" %s(%d)", label, total)
	}
	fmt.Println()
	return nil
}

func flagString(info store.EnsembleInfo) string {
	s := ""
	mark := func(set bool, name string) {
		if set {
			if s != "" {
				s += ","
			}
			s += name
		}
	}
	mark(info.EnsembleData, "data")
	mark(info.DDSCATRun, "ddscat")
	mark(info.Postprocessing, "post")
	if s == "" {
		return "-"
	}
	return s
}
