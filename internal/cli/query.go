package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bayan/internal/logic"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	SessionFlags
	Session string
}

// QueryResult is the JSON payload of the query command.
type QueryResult struct {
	SessionID string              `json:"session_id"`
	Goal      string              `json:"goal"`
	Restored  int                 `json:"restored"`
	Solutions []map[string]string `json:"solutions"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <goal>",
		Short: "Query the facts of a saved session",
		Long: `Restore a saved session's facts and prove a goal against them.

Variables start with "?"; bare words are atoms. Goals separated by commas
are proved as a conjunction. Rules are not saved, so only facts answer.

Examples:
  bayan query --db bayan.db "state(أحمد, جوع, ?V)"
  bayan query --db bayan.db --session 0192... "parent(?X, zaid), parent(zaid, ?Y)"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (default: latest)")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", logic.DefaultMaxDepth, "rule expansion depth limit")
	opts.registerStore(cmd)

	return cmd
}

func runQuery(opts *QueryOptions, goal string, cmd *cobra.Command) error {
	cfg, err := resolveConfig(cmd, opts.RootOptions, &opts.SessionFlags)
	if err != nil {
		return err
	}
	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())

	goals, scope, err := logic.ParseGoals(goal)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid goal", err)
	}

	st, err := openExistingStore(cfg.Store.Path, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := pickSession(ctx, st, opts.Session)
	if err != nil {
		return err
	}

	kb := logic.NewKB(logic.WithMaxDepth(cfg.Engine.MaxDepth), logic.WithLogger(logger))
	n, err := st.Restore(ctx, sess.ID, kb)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to restore session", err)
	}
	logger.Debug("session restored", "session", sess.ID, "facts", n)

	sols, err := kb.Query(goals...)
	if err != nil {
		return WrapExitError(ExitFailure, "query failed", err)
	}

	result := QueryResult{SessionID: sess.ID, Goal: goal, Restored: n, Solutions: make([]map[string]string, len(sols))}
	for i, sol := range sols {
		m := make(map[string]string, len(sol))
		for k, v := range sol {
			m[k] = logic.FormatValue(v)
		}
		result.Solutions[i] = m
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(result, formatSolutions(scope.Names(), result.Solutions))
}

// formatSolutions prints one solution per line, bindings in the order
// their variables first appear in the goal. A proof without variables
// prints "true."; no proof prints "false.".
func formatSolutions(names []string, sols []map[string]string) string {
	if len(sols) == 0 {
		return "false.\n"
	}
	var b strings.Builder
	for _, sol := range sols {
		var parts []string
		for _, name := range names {
			if v, ok := sol[name]; ok {
				parts = append(parts, fmt.Sprintf("%s = %s", name, v))
			}
		}
		if len(parts) == 0 {
			b.WriteString("true.\n")
			continue
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString("\n")
	}
	return b.String()
}
