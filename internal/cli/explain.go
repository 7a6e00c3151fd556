package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codepb/fluentqueries/pkg/ir"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	QueryOptions
	Output string
}

// ExplainResult is the JSON payload of the explain command.
type ExplainResult struct {
	Query       string          `json:"query"`
	Expression  string          `json:"expression"`
	Fingerprint string          `json:"fingerprint"`
	Document    json.RawMessage `json:"document"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show a query's expression, document and fingerprint",
		Long: `Show the expression tree of a query, its portable document in
canonical JSON and the document fingerprint. Queries with equal
fingerprints have the same meaning.

With --output the document is also written to a file that eval and sql
accept through --doc.

Example:
  fluentq explain --defs queries/ --query adults -o adults.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the document to this file")

	return cmd
}

func runExplain(opts *ExplainOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadQuery(&opts.QueryOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), err)
	}

	doc, err := ir.Encode(loaded.Query.AsExpression())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeTranslation, err)
	}
	canonical, err := ir.MarshalCanonical(doc)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeTranslation, err)
	}
	fingerprint, err := ir.Fingerprint(doc)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeTranslation, err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, canonical, 0o644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("failed to write document: %w", err))
		}
		formatter.Debug("document written", "path", opts.Output, "bytes", len(canonical))
	}

	result := ExplainResult{
		Query:       loaded.Name,
		Expression:  loaded.Query.String(),
		Fingerprint: fingerprint,
		Document:    canonical,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "query:       %s\n", result.Query)
	fmt.Fprintf(formatter.Writer, "expression:  %s\n", result.Expression)
	fmt.Fprintf(formatter.Writer, "fingerprint: %s\n", result.Fingerprint)
	fmt.Fprintf(formatter.Writer, "document:    %s\n", result.Document)
	return nil
}
