package recipe

import (
	"fmt"
	"strings"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/ensemble"
	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/shape"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms recipe source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: sphere-family -> sphere_family
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpFamily wraps an ensemble.Family so it can be returned from the
// family builtins and consumed by `cloud`.
type sexpFamily struct {
	fam ensemble.Family
}

func (f *sexpFamily) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s-family %q)", f.fam.Shape, f.fam.Name)
}
func (f *sexpFamily) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value, treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an int from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toStrategy converts a keyword or string to an ensemble.Strategy.
func toStrategy(s zygo.Sexp) (ensemble.Strategy, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return "", fmt.Errorf("expected strategy keyword: %w", err)
	}
	switch ensemble.Strategy(name) {
	case ensemble.CellToEnsemble:
		return ensemble.CellToEnsemble, nil
	case ensemble.VolumeToEnsemble:
		return ensemble.VolumeToEnsemble, nil
	}
	return "", fmt.Errorf("invalid strategy %q, expected cell-to-ensemble or volume-to-ensemble", name)
}

// familyCommon fills the fields shared by both family builtins.
func familyCommon(builtin string, pa kwArgs, fam *ensemble.Family) error {
	if v, ok := pa.kw["name"]; ok {
		s, err := toString(v)
		if err != nil {
			return fmt.Errorf("%s: name: %w", builtin, err)
		}
		fam.Name = s
	}
	if v, ok := pa.kw["fraction"]; ok {
		f, err := toFloat64(v)
		if err != nil {
			return fmt.Errorf("%s: fraction: %w", builtin, err)
		}
		fam.VolumeFraction = f
	}
	if v, ok := pa.kw["material"]; ok {
		s, err := toString(v)
		if err != nil {
			return fmt.Errorf("%s: material: %w", builtin, err)
		}
		fam.Material = s
	}
	if v, ok := pa.kw["index"]; ok {
		n, err := toInt(v)
		if err != nil {
			return fmt.Errorf("%s: index: %w", builtin, err)
		}
		fam.MaterialIdx = n
	}
	if fam.Material == "" {
		fam.Material = fam.Name
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all recipe builtins into a zygomys
// environment. The builtins populate rec during evaluation.
//
// Source code must be preprocessed with preprocessSource() before
// evaluation so that :keyword tokens are converted to recognizable
// string literals.
func registerBuiltins(env *zygo.Zlisp, rec *Recipe) {

	// -----------------------------------------------------------------------
	// (sphere-family :name "silver" :radius 3 :fraction 0.05
	//                :material "Ag" :index 1)
	//
	// Note: registered as "sphere_family" because zygomys does not
	// support hyphens in identifiers. The preprocessor converts
	// sphere-family to sphere_family in the source.
	// -----------------------------------------------------------------------
	env.AddFunction("sphere_family", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		fam := ensemble.Family{Shape: shape.KindSphere}

		if err := familyCommon("sphere-family", pa, &fam); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["radius"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere-family: radius: %w", err)
			}
			fam.Params = []float64{f}
		}

		return &sexpFamily{fam: fam}, nil
	})

	// -----------------------------------------------------------------------
	// (rod-family :name "ice" :radius 2 :height 12 :fraction 0.1
	//             :material "ice" :index 2)
	// -----------------------------------------------------------------------
	env.AddFunction("rod_family", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		fam := ensemble.Family{Shape: shape.KindRod}

		if err := familyCommon("rod-family", pa, &fam); err != nil {
			return zygo.SexpNull, err
		}

		var radius, height float64
		if v, ok := pa.kw["radius"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("rod-family: radius: %w", err)
			}
			radius = f
		}
		if v, ok := pa.kw["height"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("rod-family: height: %w", err)
			}
			height = f
		}
		fam.Params = []float64{radius, height}

		return &sexpFamily{fam: fam}, nil
	})

	// -----------------------------------------------------------------------
	// (cloud :radius 100 :dipole-size 1 :polydispersity 0
	//        :strategy :volume-to-ensemble
	//        (sphere-family ...) (rod-family ...))
	// -----------------------------------------------------------------------
	env.AddFunction("cloud", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if rec.Config != nil {
			return zygo.SexpNull, fmt.Errorf("cloud: a cloud is already defined in this recipe")
		}

		pa := parseArgs(args)
		cfg := ensemble.Config{Strategy: ensemble.VolumeToEnsemble}

		if v, ok := pa.kw["radius"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cloud: radius: %w", err)
			}
			cfg.CloudRadius = f
		}
		if v, ok := pa.kw["dipole-size"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cloud: dipole-size: %w", err)
			}
			cfg.DipoleSize = f
		}
		if v, ok := pa.kw["polydispersity"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cloud: polydispersity: %w", err)
			}
			cfg.Polydispersity = f
		}
		if v, ok := pa.kw["strategy"]; ok {
			s, err := toStrategy(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cloud: strategy: %w", err)
			}
			cfg.Strategy = s
		}

		for i, arg := range pa.positional {
			f, ok := arg.(*sexpFamily)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("cloud: argument %d: expected family, got %T (%s)",
					i, arg, arg.SexpString(nil))
			}
			cfg.Families = append(cfg.Families, f.fam)
		}

		if err := cfg.Validate(); err != nil {
			return zygo.SexpNull, fmt.Errorf("cloud: %w", err)
		}

		rec.Config = &cfg
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (seed 42)
	// -----------------------------------------------------------------------
	env.AddFunction("seed", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("seed requires exactly 1 argument, got %d", len(args))
		}
		n, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("seed: %w", err)
		}
		s := int64(n)
		rec.Seed = &s
		return zygo.SexpNull, nil
	})
}
