// Package config reads the optional bayan.hcl session file.
//
//	errors {
//	  color         = true
//	  context_lines = 2
//	  tab_stop      = 8
//	}
//	engine {
//	  max_depth       = 4096
//	  max_propagation = 1000
//	  max_call_depth  = 1000
//	  seed            = 42
//	}
//	store {
//	  path = "bayan.db"
//	}
//
// Every block and attribute is optional. Command-line flags override
// values read here.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// DefaultFile is the file name looked up when no path is given.
const DefaultFile = "bayan.hcl"

// Defaults used when neither the file nor a flag sets a value.
const (
	DefaultContextLines   = 1
	DefaultTabStop        = 4
	DefaultMaxDepth       = 4096
	DefaultMaxPropagation = 1000
	DefaultMaxCallDepth   = 1000
)

// Config is a resolved session configuration.
type Config struct {
	Errors ErrorsConfig
	Engine EngineConfig
	Store  StoreConfig

	// Source is the file the configuration came from, or empty.
	Source string
}

// ErrorsConfig controls how runtime faults are rendered.
type ErrorsConfig struct {
	Color        bool
	ContextLines int
	TabStop      int
}

// EngineConfig bounds the logic and entity engines.
type EngineConfig struct {
	MaxDepth       int
	MaxPropagation int
	// MaxCallDepth bounds nested Bayan function calls.
	MaxCallDepth int
	// Seed fixes the formula random source when HasSeed is set.
	Seed    int64
	HasSeed bool
}

// StoreConfig locates the session database. An empty Path disables
// persistence.
type StoreConfig struct {
	Path string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Errors: ErrorsConfig{ContextLines: DefaultContextLines, TabStop: DefaultTabStop},
		Engine: EngineConfig{
			MaxDepth:       DefaultMaxDepth,
			MaxPropagation: DefaultMaxPropagation,
			MaxCallDepth:   DefaultMaxCallDepth,
		},
	}
}

// hclFile is the decoding shape of bayan.hcl.
type hclFile struct {
	Errors *hclErrors `hcl:"errors,block"`
	Engine *hclEngine `hcl:"engine,block"`
	Store  *hclStore  `hcl:"store,block"`
}

type hclErrors struct {
	Color        *bool `hcl:"color,optional"`
	ContextLines *int  `hcl:"context_lines,optional"`
	TabStop      *int  `hcl:"tab_stop,optional"`
}

type hclEngine struct {
	MaxDepth       *int   `hcl:"max_depth,optional"`
	MaxPropagation *int   `hcl:"max_propagation,optional"`
	MaxCallDepth   *int   `hcl:"max_call_depth,optional"`
	Seed           *int64 `hcl:"seed,optional"`
}

type hclStore struct {
	Path *string `hcl:"path,optional"`
}

// Load reads path. A missing file is an error unless optional is set,
// in which case the defaults are returned.
func Load(path string, optional bool) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(src, path)
	if err != nil {
		return Config{}, err
	}
	cfg.Source = path
	return cfg, nil
}

// Parse decodes HCL source over the defaults. filename labels
// diagnostics.
func Parse(src []byte, filename string) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", filename, diags)
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode config %s: %w", filename, diags)
	}

	cfg := Default()
	if e := parsed.Errors; e != nil {
		setIf(&cfg.Errors.Color, e.Color)
		setIf(&cfg.Errors.ContextLines, e.ContextLines)
		setIf(&cfg.Errors.TabStop, e.TabStop)
	}
	if e := parsed.Engine; e != nil {
		setIf(&cfg.Engine.MaxDepth, e.MaxDepth)
		setIf(&cfg.Engine.MaxPropagation, e.MaxPropagation)
		setIf(&cfg.Engine.MaxCallDepth, e.MaxCallDepth)
		if e.Seed != nil {
			cfg.Engine.Seed, cfg.Engine.HasSeed = *e.Seed, true
		}
	}
	if s := parsed.Store; s != nil {
		setIf(&cfg.Store.Path, s.Path)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", filename, err)
	}
	return cfg, nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Validate reports the first out-of-range value.
func (c Config) Validate() error {
	var diags hcl.Diagnostics
	check := func(ok bool, field, detail string) {
		if !ok {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid " + field,
				Detail:   detail,
			})
		}
	}
	check(c.Errors.ContextLines >= 0, "context_lines", "context_lines must not be negative.")
	check(c.Errors.TabStop >= 1, "tab_stop", "tab_stop must be at least 1.")
	check(c.Engine.MaxDepth >= 1, "max_depth", "max_depth must be at least 1.")
	check(c.Engine.MaxPropagation >= 1, "max_propagation", "max_propagation must be at least 1.")
	check(c.Engine.MaxCallDepth >= 1, "max_call_depth", "max_call_depth must be at least 1.")
	if diags.HasErrors() {
		return diags
	}
	return nil
}
