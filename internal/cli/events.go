package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bayan/internal/entity"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	SessionFlags
	Session string
	Filter  entity.EventFilter
}

// EventsResult is the JSON payload of the events command.
type EventsResult struct {
	SessionID string         `json:"session_id"`
	Events    []entity.Event `json:"events"`
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the entity events of a saved session",
		Long: `List the actions a saved session applied, in the order they happened,
with every state or property each one changed.

Examples:
  bayan events --db bayan.db
  bayan events --db bayan.db --actor أحمد --action تقديم_وجبة
  bayan events --db bayan.db --session 0192... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (default: latest)")
	cmd.Flags().StringVar(&opts.Filter.Actor, "actor", "", "only events by this actor")
	cmd.Flags().StringVar(&opts.Filter.Action, "action", "", "only events of this action")
	cmd.Flags().StringVar(&opts.Filter.Target, "target", "", "only events on this target")
	opts.registerStore(cmd)

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	cfg, err := resolveConfig(cmd, opts.RootOptions, &opts.SessionFlags)
	if err != nil {
		return err
	}

	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())

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
	events, err := st.ReadEvents(ctx, sess.ID, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(EventsResult{SessionID: sess.ID, Events: events}, formatEvents(events))
}

func formatEvents(events []entity.Event) string {
	if len(events) == 0 {
		return "No events.\n"
	}
	var b strings.Builder
	for _, ev := range events {
		fmt.Fprintf(&b, "[%d] %s.%s(%s) value=%g sensitivity=%g\n",
			ev.Seq, ev.Actor, ev.Action, ev.Target, ev.Value, ev.Sensitivity)
		for _, c := range ev.Changes {
			fmt.Fprintf(&b, "    %s: %g -> %g\n", c.Key, c.Old, c.New)
		}
	}
	return b.String()
}
