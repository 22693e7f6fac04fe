package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/recordsim/internal/metadata/schema"
)

// ValidationResult is the data payload of the validate command.
type ValidationResult struct {
	Valid    bool                     `json:"valid"`
	Entities int                      `json:"entities"`
	Errors   []schema.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Validate entity schemas",
		Long: `Compile the CUE schemas in a directory and check them for
structural problems: missing primary ids, duplicate attributes, option
attributes without options and lookups to unknown entities.

Exit codes:
  0 - Schemas are valid
  1 - Compile or validation errors were found
  2 - The schema directory could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	compiled, errs := ValidateSchemaDir(dir)
	if compiled == nil {
		return out.Fail(ExitCommandError, loadErrorCode(errs[0]), errs[0].Error(), nil)
	}
	out.VerboseLog("Found %d CUE file(s) in %s", compiled.FileCount, dir)

	var verrs []schema.ValidationError
	for _, err := range errs {
		var ve schema.ValidationError
		if errors.As(err, &ve) {
			verrs = append(verrs, ve)
			continue
		}
		verrs = append(verrs, schema.ValidationError{
			Field:   compileField(err),
			Message: err.Error(),
			Code:    ErrCodeCompile,
		})
	}

	result := ValidationResult{
		Valid:    len(verrs) == 0,
		Entities: len(compiled.Entities),
		Errors:   verrs,
	}
	if result.Valid {
		if out.json() {
			return out.Success(result)
		}
		fmt.Fprintf(out.Writer, "✓ %d entities valid\n", result.Entities)
		return nil
	}

	if out.json() {
		if err := out.Encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: verrs[0].Code, Message: verrs[0].Message},
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out.Writer, "✗ Validation failed")
		fmt.Fprintln(out.Writer)
		for _, ve := range verrs {
			if ve.Entity != "" {
				fmt.Fprintf(out.Writer, "%s.%s\n", ve.Entity, ve.Field)
			}
			fmt.Fprintf(out.Writer, "  %s: %s\n\n", ve.Code, ve.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(verrs)))
}

// ValidateSchemaDir compiles dir and validates the result. A nil result
// means the directory could not be loaded at all. The returned errors are
// compile errors followed by schema.ValidationError values.
func ValidateSchemaDir(dir string) (*schema.Result, []error) {
	compiled, errs := schema.LoadDir(dir)
	if compiled == nil {
		return nil, errs
	}
	for _, ve := range schema.Validate(compiled.Entities) {
		errs = append(errs, ve)
	}
	return compiled, errs
}

// loadErrorCode distinguishes CUE compile failures from missing input.
func loadErrorCode(err error) string {
	var ce *schema.CompileError
	if errors.As(err, &ce) {
		return ErrCodeCompile
	}
	return ErrCodeNotFound
}

func compileField(err error) string {
	var ce *schema.CompileError
	if errors.As(err, &ce) {
		return ce.Field
	}
	return "schema"
}
