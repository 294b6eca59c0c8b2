package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/bayan/internal/config"
	"github.com/roach88/bayan/internal/entity"
	"github.com/roach88/bayan/internal/interp"
	"github.com/roach88/bayan/internal/logic"
	"github.com/roach88/bayan/internal/store"
)

// SessionFlags are flags that override bayan.hcl.
type SessionFlags struct {
	Database       string
	Color          bool
	ContextLines   int
	TabStop        int
	MaxDepth       int
	MaxPropagation int
	MaxCallDepth   int
	Seed           int64
}

func (f *SessionFlags) registerStore(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Database, "db", "", "path to SQLite session database (overrides store.path)")
}

func (f *SessionFlags) registerEngine(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.Color, "color", false, "color code frames")
	cmd.Flags().IntVar(&f.ContextLines, "context-lines", config.DefaultContextLines, "source lines shown around a fault")
	cmd.Flags().IntVar(&f.TabStop, "tab-stop", config.DefaultTabStop, "tab width used to place the caret")
	cmd.Flags().IntVar(&f.MaxDepth, "max-depth", config.DefaultMaxDepth, "rule expansion depth limit")
	cmd.Flags().IntVar(&f.MaxPropagation, "max-propagation", config.DefaultMaxPropagation, "equation applications per write")
	cmd.Flags().IntVar(&f.MaxCallDepth, "max-call-depth", config.DefaultMaxCallDepth, "nested function call limit")
	cmd.Flags().Int64Var(&f.Seed, "seed", 0, "seed for formula rand()")
}

// resolveConfig reads the config file and applies flags the user set.
func resolveConfig(cmd *cobra.Command, root *RootOptions, f *SessionFlags) (config.Config, error) {
	path, optional := root.Config, false
	if path == "" {
		path, optional = config.DefaultFile, true
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	flags := cmd.Flags()
	changed := func(name string) bool {
		fl := flags.Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("db") {
		cfg.Store.Path = f.Database
	}
	if changed("color") {
		cfg.Errors.Color = f.Color
	}
	if changed("context-lines") {
		cfg.Errors.ContextLines = f.ContextLines
	}
	if changed("tab-stop") {
		cfg.Errors.TabStop = f.TabStop
	}
	if changed("max-depth") {
		cfg.Engine.MaxDepth = f.MaxDepth
	}
	if changed("max-propagation") {
		cfg.Engine.MaxPropagation = f.MaxPropagation
	}
	if changed("max-call-depth") {
		cfg.Engine.MaxCallDepth = f.MaxCallDepth
	}
	if changed("seed") {
		cfg.Engine.Seed, cfg.Engine.HasSeed = f.Seed, true
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// newLogger logs to w at Info, or Debug when verbose.
func newLogger(verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newInterpreter starts a session configured by cfg.
func newInterpreter(cfg config.Config, logger *slog.Logger, stdout io.Writer, opts ...interp.Option) (*interp.Interpreter, error) {
	kb := logic.NewKB(logic.WithMaxDepth(cfg.Engine.MaxDepth), logic.WithLogger(logger))
	entityOpts := []entity.Option{entity.WithMaxPropagation(cfg.Engine.MaxPropagation)}
	if cfg.Engine.HasSeed {
		seed := uint64(cfg.Engine.Seed)
		entityOpts = append(entityOpts, entity.WithRand(rand.New(rand.NewPCG(seed, seed)).Float64))
	}

	in, err := interp.New(append([]interp.Option{
		interp.WithKB(kb),
		interp.WithLogger(logger),
		interp.WithStdout(stdout),
		interp.WithMaxCallDepth(cfg.Engine.MaxCallDepth),
		interp.WithEntityOptions(entityOpts...),
	}, opts...)...)
	if err != nil {
		return nil, err
	}
	in.SetErrorFormatting(interp.ErrorFormat{
		Color:        cfg.Errors.Color,
		ContextLines: cfg.Errors.ContextLines,
		TabStop:      cfg.Errors.TabStop,
	})
	return in, nil
}

// openExistingStore opens a database that must already exist.
func openExistingStore(path string, logger *slog.Logger) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no database: pass --db or set store.path in bayan.hcl")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(path, store.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// pickSession returns the session with id, or the latest one.
func pickSession(ctx context.Context, st *store.Store, id string) (store.Session, error) {
	var (
		sess store.Session
		err  error
	)
	if id == "" {
		sess, err = st.LatestSession(ctx)
	} else {
		sess, err = st.ReadSession(ctx, id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		if id == "" {
			return store.Session{}, NewExitError(ExitCommandError, "database has no sessions")
		}
		return store.Session{}, NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", id))
	}
	if err != nil {
		return store.Session{}, WrapExitError(ExitCommandError, "failed to read session", err)
	}
	return sess, nil
}
