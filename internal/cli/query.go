package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/harness"
	"github.com/roach88/recordsim/internal/ir"
)

// QueryResult is the data payload of the query command.
type QueryResult struct {
	Entity            string           `json:"entity"`
	Records           []map[string]any `json:"records"`
	MoreRecords       bool             `json:"more_records"`
	ContinuationToken string           `json:"continuation_token,omitempty"`
	TotalCount        int              `json:"total_count"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <scenario-file> <fetchxml-file>",
		Short: "Evaluate FetchXML against scenario data",
		Long: `Load a scenario's schemas, metadata and seed records, then
evaluate a FetchXML document against them. The scenario flow is not
executed. Pass "-" as the FetchXML file to read it from stdin.

Text output prints one canonical JSON record per line.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runQuery(opts *RootOptions, scenarioFile, fetchFile string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	fetch, err := readFetch(fetchFile, cmd.InOrStdin())
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}
	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeInvalidInput, err.Error(), nil)
	}

	res, err := harness.Query(scenario, fetch, harness.WithLogger(opts.logger()))
	if err != nil {
		var details any
		if code := fault.CodeOf(err); code != "" {
			details = map[string]string{"fault": string(code)}
		}
		return out.Fail(ExitFailure, ErrCodeQueryFailed, err.Error(), details)
	}

	result := QueryResult{
		Entity:            res.Entity,
		Records:           make([]map[string]any, len(res.Records)),
		MoreRecords:       res.MoreRecords,
		ContinuationToken: res.ContinuationToken,
		TotalCount:        res.TotalCount,
	}
	for i, r := range res.Records {
		result.Records[i] = ir.PlainRecord(r)
	}

	if out.json() {
		return out.Success(result)
	}
	for _, r := range result.Records {
		line, err := ir.MarshalCanonical(r)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to render record", err)
		}
		fmt.Fprintln(out.Writer, string(line))
	}
	out.VerboseLog("%d %s record(s), more_records=%t", len(result.Records), result.Entity, result.MoreRecords)
	return nil
}

func readFetch(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read FetchXML: %w", err)
	}
	return string(data), nil
}
