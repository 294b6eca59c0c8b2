package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/bayan/internal/ast"
	"github.com/roach88/bayan/internal/config"
	"github.com/roach88/bayan/internal/entity"
	"github.com/roach88/bayan/internal/interp"
	"github.com/roach88/bayan/internal/store"
	"github.com/roach88/bayan/internal/world"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	SessionFlags
	World  string
	Source string

	// IDGenerator allows overriding the session id generator (for testing).
	// If nil, sessions get UUIDv7 ids.
	IDGenerator interp.IDGenerator
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Output    string `json:"output"`
	Value     string `json:"value,omitempty"`
	FaultKind string `json:"fault_kind,omitempty"`
	Facts     int    `json:"facts"`
	Events    int    `json:"events"`
	Saved     bool   `json:"saved"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program.json>",
		Short: "Run a program",
		Long: `Run a Bayan program given as an AST JSON document.

A world directory of CUE files can set up entities, equations and operators
before the program starts. When a database is configured the session's
facts and entity events are saved to it, even when the program faults.

Exit codes:
  0 - The program finished
  1 - The program stopped with a fault or uncaught exception
  2 - Command error (unreadable program, bad world, bad config)

Examples:
  bayan run program.json
  bayan run program.json --world ./world --db bayan.db
  bayan run program.json --source program.bayan --context-lines 2 --color`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.World, "world", "", "directory of CUE world definitions")
	cmd.Flags().StringVar(&opts.Source, "source", "", "program source text, for code frames in errors")
	opts.registerStore(cmd)
	opts.registerEngine(cmd)

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg, err := resolveConfig(cmd, opts.RootOptions, &opts.SessionFlags)
	if err != nil {
		return err
	}
	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read program", err)
	}
	node, err := ast.Decode(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid program", err)
	}

	// JSON output carries program output in the payload.
	var captured bytes.Buffer
	var stdout io.Writer = cmd.OutOrStdout()
	if formatter.JSON() {
		stdout = &captured
	}

	var extra []interp.Option
	if opts.IDGenerator != nil {
		extra = append(extra, interp.WithIDGenerator(opts.IDGenerator))
	}
	in, err := newInterpreter(cfg, logger, stdout, extra...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start session", err)
	}
	defer in.Close()

	if opts.Source != "" {
		src, err := os.ReadFile(opts.Source)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read source", err)
		}
		in.SetSource(string(src), opts.Source)
	}

	if opts.World != "" {
		if err := applyWorld(in, opts.World, logger); err != nil {
			return err
		}
	}

	logger.Info("running program", "path", path, "session", in.SessionID())
	value, runErr := in.Interpret(node)

	result := RunResult{
		SessionID: in.SessionID(),
		Status:    store.StatusOK,
		Output:    captured.String(),
		Facts:     len(in.KB().Facts()),
		Events:    len(in.Entities().Events(entity.EventFilter{})),
	}
	if runErr != nil {
		result.Status = store.StatusError
		result.FaultKind, _ = interp.KindOf(runErr)
	} else if value != nil {
		if s, err := in.Repr(value); err == nil {
			result.Value = s
		}
	}

	if cfg.Store.Path != "" {
		if err := saveSession(cmd.Context(), cfg, in, path, runErr, logger); err != nil {
			return err
		}
		result.Saved = true
		logger.Info("session saved", "db", cfg.Store.Path, "session", in.SessionID(),
			"facts", result.Facts, "events", result.Events)
	}

	if runErr != nil {
		if formatter.JSON() {
			if err := formatter.Error(result.FaultKind, runErr.Error(), result); err != nil {
				return err
			}
		}
		return WrapExitError(ExitFailure, "program failed", runErr)
	}
	return formatter.Success(result, "")
}

func applyWorld(in *interp.Interpreter, dir string, logger *slog.Logger) error {
	w, errs := world.Load(dir, world.LoadModeFailFast)
	if len(errs) > 0 {
		return WrapExitError(ExitCommandError, "failed to load world", errors.Join(errs...))
	}
	if err := w.Apply(in.Entities(), func(name, action string) { in.DefineOperator(name, action) }); err != nil {
		return WrapExitError(ExitCommandError, "failed to apply world", err)
	}
	logger.Info("world applied", "dir", dir, "files", w.FileCount, "entities", len(w.Entities),
		"equations", len(w.Equations), "operators", len(w.Operators))
	return nil
}

func saveSession(ctx context.Context, cfg config.Config, in *interp.Interpreter, source string, runErr error, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(cfg.Store.Path, store.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	sess := store.Session{ID: in.SessionID(), SourceFile: source, Status: store.StatusOK}
	if runErr != nil {
		sess.Status = store.StatusError
		sess.Error = runErr.Error()
	}
	snap := store.Snapshot{
		Session: sess,
		Facts:   in.KB().Facts(),
		Events:  in.Entities().Events(entity.EventFilter{}),
	}
	if err := st.SaveSession(ctx, snap); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to save session %s", sess.ID), err)
	}
	return nil
}
