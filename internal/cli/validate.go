package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bayan/internal/entity"
	"github.com/roach88/bayan/internal/logic"
	"github.com/roach88/bayan/internal/world"
)

// ValidateResult is the JSON payload of the validate command.
type ValidateResult struct {
	Valid     bool           `json:"valid"`
	Files     int            `json:"files"`
	Entities  int            `json:"entities"`
	Equations int            `json:"equations"`
	Opposites int            `json:"opposites"`
	Operators int            `json:"operators"`
	Errors    []ValidateItem `json:"errors,omitempty"`
}

// ValidateItem is one problem found in a world.
type ValidateItem struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Position string `json:"position,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <world-dir>",
		Short: "Validate a world definition",
		Long: `Load every CUE file of a world directory, report every problem found,
and check that its formulas parse by applying it to an empty engine.

Exit codes:
  0 - The world is valid
  1 - The world has errors
  2 - Command error (directory missing or has no CUE files)

Examples:
  bayan validate ./world
  bayan validate ./world --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	w, errs := world.Load(dir, world.LoadModeCollectAll)
	if len(errs) > 0 {
		var le *world.LoadError
		if errors.As(errs[0], &le) && w == nil {
			switch le.Code {
			case world.ErrCodeNotFound, world.ErrCodeNoFiles, world.ErrCodeScanError:
				return WrapExitError(ExitCommandError, "cannot validate world", le)
			}
		}
	}

	result := ValidateResult{Valid: true}
	for _, err := range errs {
		result.Errors = append(result.Errors, validateItem(err))
	}
	if w != nil {
		result.Files = w.FileCount
		result.Entities = len(w.Entities)
		result.Equations = len(w.Equations)
		result.Opposites = len(w.Opposites)
		result.Operators = len(w.Operators)

		if len(errs) == 0 {
			eng, err := entity.New(logic.NewKB())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to start entity engine", err)
			}
			if err := w.Apply(eng, nil); err != nil {
				result.Errors = append(result.Errors, ValidateItem{Code: world.ErrCodeGeneric, Message: err.Error()})
			}
		}
	}
	result.Valid = len(result.Errors) == 0

	if err := formatter.Success(result, formatValidate(dir, result)); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("world %s has %d error(s)", dir, len(result.Errors)))
	}
	return nil
}

func validateItem(err error) ValidateItem {
	var le *world.LoadError
	if !errors.As(err, &le) {
		return ValidateItem{Code: world.ErrCodeGeneric, Message: err.Error()}
	}
	item := ValidateItem{Code: le.Code, Message: le.Message}
	if le.Pos.IsValid() {
		item.Position = fmt.Sprintf("%s:%d:%d", le.Pos.Filename(), le.Pos.Line(), le.Pos.Column())
	}
	return item
}

func formatValidate(dir string, r ValidateResult) string {
	var b strings.Builder
	if r.Valid {
		fmt.Fprintf(&b, "World %s is valid: %d entities, %d equations, %d opposites, %d operators (%d files)\n",
			dir, r.Entities, r.Equations, r.Opposites, r.Operators, r.Files)
		return b.String()
	}
	for _, e := range r.Errors {
		if e.Position != "" {
			fmt.Fprintf(&b, "%s: %s: %s\n", e.Position, e.Code, e.Message)
		} else {
			fmt.Fprintf(&b, "%s: %s\n", e.Code, e.Message)
		}
	}
	return b.String()
}
