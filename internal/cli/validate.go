package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codepb/fluentqueries/internal/definition"
	"github.com/codepb/fluentqueries/pkg/ir"
	"github.com/codepb/fluentqueries/pkg/query"
	"github.com/codepb/fluentqueries/pkg/querysql"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Queries []QueryValidation `json:"queries"`
}

// QueryValidation is the verdict for one query.
type QueryValidation struct {
	Name     string   `json:"name"`
	Portable bool     `json:"portable"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate definition files",
		Long: `Load YAML and CUE definition files and check every query in them.

Loading fails on syntax errors, unknown fields, unknown operators and
duplicate query names. Each loaded query is then checked for portability:
it must export to a document and translate to SQL.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	reg, err := LoadRegistry(paths)
	if err != nil {
		return outputValidateError(formatter, loadErrorCode(err), err)
	}

	result := validateAll(reg, formatter)
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// validateAll checks every registered query.
func validateAll(reg *query.Registry[definition.Record], formatter *OutputFormatter) ValidationResult {
	result := ValidationResult{Valid: true}

	for _, name := range reg.Names() {
		formatter.Debug("validating query", "name", name)
		q, _ := reg.Lookup(name)

		check := querysql.Validate(q.AsExpression())
		if _, err := ir.Encode(q.AsExpression()); err != nil {
			check.IsPortable = false
			check.Warnings = append(check.Warnings, fmt.Sprintf("Not exportable: %v", err))
		}

		result.Queries = append(result.Queries, QueryValidation{
			Name:     name,
			Portable: check.IsPortable,
			Warnings: check.Warnings,
		})
		if !check.IsPortable {
			result.Valid = false
		}
	}
	return result
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d queries valid\n", len(result.Queries))
	return nil
}

// outputValidateError outputs a load error.
func outputValidateError(formatter *OutputFormatter, code string, err error) error {
	_ = formatter.Error(code, err.Error(), nil)
	// Load errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, code, err)
}

// outputValidationErrors outputs the queries that failed their checks.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	failed := 0
	var first QueryValidation
	for _, q := range result.Queries {
		if !q.Portable {
			if failed == 0 {
				first = q
			}
			failed++
		}
	}
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d quer(ies)", failed))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    ErrCodeNotPortable,
				Message: fmt.Sprintf("query %s: %s", first.Name, first.Warnings[0]),
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		// Validation failures = exit code 1
		return exitErr
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, q := range result.Queries {
		if q.Portable {
			fmt.Fprintf(formatter.Writer, "  ✓ %s\n", q.Name)
			continue
		}
		fmt.Fprintf(formatter.Writer, "  ✗ %s\n", q.Name)
		for _, w := range q.Warnings {
			fmt.Fprintf(formatter.Writer, "      %s: %s\n", ErrCodeNotPortable, w)
		}
	}

	// Validation failures = exit code 1
	return exitErr
}
