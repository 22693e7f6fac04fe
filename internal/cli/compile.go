package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/recordsim/internal/metadata"
	"github.com/roach88/recordsim/internal/metadata/schema"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string
}

// CompilationResult is the compiled form of a schema directory.
type CompilationResult struct {
	Entities   []metadata.EntityMetadata `json:"entities"`
	OptionSets []metadata.OptionSet      `json:"optionsets"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schema-dir>",
		Short: "Compile CUE schemas to entity metadata",
		Long: `Compile the CUE entity schemas in a directory to metadata JSON.

The output is the same metadata a scenario loads through its schemas
list, and can be fed back through a scenario's inline metadata.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	compiled, errs := schema.LoadDir(dir)
	if compiled == nil {
		return out.Fail(ExitCommandError, loadErrorCode(errs[0]), errs[0].Error(), nil)
	}
	out.VerboseLog("Found %d CUE file(s) in %s", compiled.FileCount, dir)
	if len(errs) > 0 {
		return outputCompileErrors(out, errs)
	}

	result := &CompilationResult{
		Entities:   compiled.Entities,
		OptionSets: compiled.OptionSets,
	}
	if result.OptionSets == nil {
		result.OptionSets = []metadata.OptionSet{}
	}
	for _, e := range result.Entities {
		out.VerboseLog("Compiled entity: %s", e.LogicalName)
	}

	if opts.Output != "" {
		if err := writeMetadataFile(result, opts.Output); err != nil {
			return out.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	if out.json() {
		return out.Success(result)
	}
	fmt.Fprintf(out.Writer, "✓ Compiled %d entities, %d option sets\n\n",
		len(result.Entities), len(result.OptionSets))
	for _, e := range result.Entities {
		primaryID := e.PrimaryIDAttribute
		if primaryID == "" {
			primaryID = metadata.DefaultPrimaryID(e.LogicalName)
		}
		fmt.Fprintf(out.Writer, "  %s (%s): %d attributes\n",
			e.LogicalName, primaryID, len(e.Attributes))
	}
	if opts.Output != "" {
		fmt.Fprintf(out.Writer, "\nWrote metadata to %s\n", opts.Output)
	}
	return nil
}

func outputCompileErrors(out *OutputFormatter, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		cliErrors[i] = CLIError{Code: ErrCodeCompile, Message: err.Error()}
	}

	if out.json() {
		if err := out.Encode(CLIResponse{
			Status: "error",
			Data:   cliErrors,
			Error:  &cliErrors[0],
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out.Writer, "✗ Compilation failed")
		fmt.Fprintln(out.Writer)
		for _, ce := range cliErrors {
			fmt.Fprintf(out.Writer, "  %s: %s\n", ce.Code, ce.Message)
		}
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

func writeMetadataFile(result *CompilationResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
