package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codepb/fluentqueries/pkg/querysql"
)

// SQLOptions holds flags for the sql command.
type SQLOptions struct {
	*RootOptions
	QueryOptions
	Table   string
	Columns []string
}

// SQLResult is the JSON payload of the sql command.
type SQLResult struct {
	Query  string `json:"query"`
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Translate a query to SQLite SQL",
		Long: `Translate a query to a parameterized SQLite SELECT statement.

Record fields map to columns; nested fields and sequences are read from
JSON columns. Parameters are printed after the statement, numbered as
their ?N placeholders.

Example:
  fluentq sql --defs queries/ --query adults --table people --columns id,Name`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.Table, "table", "t", "records", "table to select from")
	cmd.Flags().StringSliceVarP(&opts.Columns, "columns", "c", nil, "columns to select (default all)")

	return cmd
}

func runSQL(opts *SQLOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadQuery(&opts.QueryOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), err)
	}

	sql, params, err := querysql.Compile(querysql.Select{
		From:    opts.Table,
		Filter:  loaded.Query.AsExpression(),
		Columns: opts.Columns,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeTranslation, err)
	}
	formatter.Debug("query translated", "name", loaded.Name, "params", len(params))

	if formatter.Format == "json" {
		return formatter.Success(SQLResult{Query: loaded.Name, SQL: sql, Params: params})
	}

	fmt.Fprintln(formatter.Writer, sql)
	for i, p := range params {
		fmt.Fprintf(formatter.Writer, "-- ?%d = %#v\n", i+1, p)
	}
	return nil
}
