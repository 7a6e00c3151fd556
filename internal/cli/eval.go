package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/spf13/cobra"

	"github.com/codepb/fluentqueries/internal/definition"
	"github.com/codepb/fluentqueries/internal/store"
	"github.com/codepb/fluentqueries/pkg/query"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	QueryOptions
	FailEmpty bool
	DB        string
}

// evalTable is the table records are imported into with --db.
const evalTable = "records"

// EvalResult is the JSON payload of the eval command.
type EvalResult struct {
	Query   string              `json:"query"`
	Read    int                 `json:"read"`
	Matched int                 `json:"matched"`
	Records []definition.Record `json:"records"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <records.json>",
		Short: "Filter JSON records with a query",
		Long: `Filter a JSON array of records with a named query or an expression
document. Matching records are written one per line, in input order.
Use "-" to read records from stdin.

With --db the records are imported into a SQLite database and the query
is translated to SQL and run there instead of in memory. Use ":memory:"
for a throwaway database.

Examples:
  fluentq eval --defs queries/ --query adults people.json
  fluentq eval --defs queries/ --query adults --db :memory: people.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&opts.FailEmpty, "fail-empty", false, "exit with status 1 when no record matches")
	cmd.Flags().StringVar(&opts.DB, "db", "", "evaluate in the SQLite database at this path")

	return cmd
}

func runEval(opts *EvalOptions, input string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadQuery(&opts.QueryOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), err)
	}
	formatter.Debug("query loaded", "name", loaded.Name, "expression", loaded.Query.String())

	r, closeInput, err := openInput(input, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, err)
	}
	defer closeInput()

	result := EvalResult{Query: loaded.Name, Records: []definition.Record{}}
	records, readErr := readRecords(r, &result.Read)

	emit := func(rec definition.Record) error {
		result.Matched++
		if formatter.Format == "json" {
			result.Records = append(result.Records, rec)
			return nil
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		fmt.Fprintln(formatter.Writer, string(line))
		return nil
	}

	if opts.DB != "" {
		if err := evalInStore(cmd.Context(), opts.DB, loaded, records, readErr, formatter, emit); err != nil {
			return err
		}
	} else {
		for rec, err := range query.Where(records, loaded.Query) {
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeEvaluation,
					fmt.Errorf("record %d: %w", result.Read-1, err))
			}
			if err := emit(rec); err != nil {
				return err
			}
		}
		if *readErr != nil {
			return formatter.Fail(ExitCommandError, ErrCodeBadInput, *readErr)
		}
	}
	formatter.Debug("records filtered", "read", result.Read, "matched", result.Matched)

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	}
	if opts.FailEmpty && result.Matched == 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("query %s matched none of %d record(s)", loaded.Name, result.Read))
	}
	return nil
}

// evalInStore imports records into the SQLite database at path and emits
// the rows the translated query selects.
func evalInStore(ctx context.Context, path string, loaded *LoadedQuery, records iter.Seq[definition.Record], readErr *error, formatter *OutputFormatter, emit func(definition.Record) error) error {
	var rows []map[string]any
	for rec := range records {
		rows = append(rows, rec)
	}
	if *readErr != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, *readErr)
	}

	db, err := store.Open(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	defer db.Close()

	if err := db.Import(ctx, evalTable, rows); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, err)
	}
	formatter.Debug("records imported", "db", path, "table", evalTable, "rows", len(rows))

	ids, err := db.Match(ctx, evalTable, loaded.Query.AsExpression())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeTranslation, err)
	}
	for _, id := range ids {
		if err := emit(rows[id-1]); err != nil {
			return err
		}
	}
	return nil
}

// openInput opens path, or stdin for "-".
func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open records: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// readRecords streams the objects of a JSON array. count tracks how many were
// decoded; the returned error pointer is set when the input is malformed and
// ends the sequence.
func readRecords(r io.Reader, count *int) (iter.Seq[definition.Record], *error) {
	var readErr error
	dec := json.NewDecoder(r)

	seq := func(yield func(definition.Record) bool) {
		tok, err := dec.Token()
		if err != nil {
			readErr = fmt.Errorf("failed to read records: %w", err)
			return
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			readErr = fmt.Errorf("records must be a JSON array")
			return
		}
		for dec.More() {
			var rec definition.Record
			if err := dec.Decode(&rec); err != nil {
				readErr = fmt.Errorf("record %d: %w", *count, err)
				return
			}
			*count++
			if !yield(rec) {
				return
			}
		}
		if _, err := dec.Token(); err != nil {
			readErr = fmt.Errorf("failed to read records: %w", err)
		}
	}
	return seq, &readErr
}
