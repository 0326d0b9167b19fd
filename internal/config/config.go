package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/limaJavier/satfuzz/pkg/sat"
)

var ErrInvalidFile = errors.New("invalid configuration file")

const builtinPrefix = "builtin:"

// File is the optional configuration file: named solver definitions and run defaults. Command-line flags take
// precedence over every value in it.
type File struct {
	Solvers map[string]sat.SolverConfig `mapstructure:"solvers"`
	Workers int                         `mapstructure:"workers"`
	Timeout time.Duration               `mapstructure:"timeout"`
}

// Load reads a YAML or JSON configuration file, chosen by extension (YAML when unknown). An empty path yields the
// zero File.
func Load(path string) (File, error) {
	if path == "" {
		return File{}, nil
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("cannot read configuration file: %w", err)
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(bytes, &raw)
	default:
		err = yaml.Unmarshal(bytes, &raw)
	}
	if err != nil {
		return File{}, fmt.Errorf("%w: %v: %v", ErrInvalidFile, path, err)
	}
	return Decode(raw)
}

// Decode maps a generic document onto File. Durations are written as strings ("30s", "2m").
func Decode(raw map[string]any) (File, error) {
	var file File
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &file,
	})
	if err != nil {
		return File{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return File{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	if file.Workers < 0 {
		return File{}, fmt.Errorf("%w: workers must not be negative: %v", ErrInvalidFile, file.Workers)
	}
	for name, solver := range file.Solvers {
		if solver.Name == "" {
			solver.Name = name
		}
		if err := solver.Validate(); err != nil {
			return File{}, fmt.Errorf("%w: solver %q: %v", ErrInvalidFile, name, err)
		}
		file.Solvers[name] = solver
	}
	return file, nil
}

// Resolve turns a solver reference into its configuration. The reference is looked up among the file's solvers,
// then among the well-known presets; anything else is taken as an executable path. The file's timeout applies
// to solvers that do not set their own.
func (file File) Resolve(reference string) sat.SolverConfig {
	solver, ok := file.Solvers[reference]
	if !ok {
		solver, ok = sat.Presets[reference]
	}
	if !ok {
		solver = sat.SolverConfig{Path: reference}
	}

	solver.Flags = append([]string(nil), solver.Flags...)
	solver.Env = append([]string(nil), solver.Env...)
	if solver.Timeout == 0 {
		solver.Timeout = file.Timeout
	}
	return solver
}

// ResolveSpec resolves "reference" or "reference:flag,flag", the latter replacing the resolved solver's flags.
// Builtin references keep their own "builtin:" prefix, so "builtin:gini:x" passes flag x to gini.
func (file File) ResolveSpec(spec string) (sat.SolverConfig, error) {
	rest, builtin := strings.CutPrefix(spec, builtinPrefix)
	reference, flags, hasFlags := strings.Cut(rest, ":")
	if reference == "" {
		return sat.SolverConfig{}, fmt.Errorf("%w: empty solver reference in %q", sat.ErrInvalidSolverConfig, spec)
	}
	if builtin {
		reference = builtinPrefix + reference
	}

	solver := file.Resolve(reference)
	if hasFlags {
		solver.Flags = nil
		if flags != "" {
			solver.Flags = strings.Split(flags, ",")
		}
		solver.Name = spec
	}
	return solver, nil
}

// SolverNames lists the references Resolve knows by name.
func (file File) SolverNames() []string {
	names := lo.Uniq(append(lo.Keys(file.Solvers), lo.Keys(sat.Presets)...))
	slices.Sort(names)
	return names
}
