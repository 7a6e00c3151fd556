package cli

import (
	"errors"
	"fmt"
	"os"
	"reflect"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/codepb/fluentqueries/internal/definition"
	"github.com/codepb/fluentqueries/pkg/expr"
	"github.com/codepb/fluentqueries/pkg/ir"
	"github.com/codepb/fluentqueries/pkg/query"
)

// QueryOptions selects the query a command works on: a named query from
// definition files, or a portable document written by explain.
type QueryOptions struct {
	Defs  []string // definition files or directories
	Query string   // name of a query in Defs
	Doc   string   // expression document file
}

// addFlags registers the query selection flags on cmd.
func (o *QueryOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&o.Defs, "defs", "d", nil, "definition files or directories (YAML or CUE)")
	cmd.Flags().StringVarP(&o.Query, "query", "q", "", "name of the query to use")
	cmd.Flags().StringVar(&o.Doc, "doc", "", "expression document to use instead of a named query")
}

// LoadedQuery is a query ready for a command, with the name it was selected
// by.
type LoadedQuery struct {
	Name  string
	Query query.Query[definition.Record]
}

// LoadError represents an error that occurred while loading a query.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadRegistry loads every definition under paths.
func LoadRegistry(paths []string) (*query.Registry[definition.Record], error) {
	if len(paths) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no definition paths given (use --defs)"}
	}

	reg, err := definition.Load(paths...)
	if err != nil {
		loadErr := &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Err: err}
		var defErr *definition.Error
		if errors.As(err, &defErr) {
			loadErr.Pos = defErr.Pos
			if defErr.Pos.IsValid() {
				loadErr.Message = defErr.Err.Error()
			}
		}
		return nil, loadErr
	}
	return reg, nil
}

// LoadQuery resolves the query selected by opts.
func LoadQuery(opts *QueryOptions) (*LoadedQuery, error) {
	switch {
	case opts.Doc != "" && opts.Query != "":
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "--doc and --query are mutually exclusive"}
	case opts.Doc != "":
		return loadDocument(opts.Doc)
	case opts.Query == "":
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "a query is required (use --query or --doc)"}
	}

	reg, err := LoadRegistry(opts.Defs)
	if err != nil {
		return nil, err
	}
	q, ok := reg.Lookup(opts.Query)
	if !ok {
		return nil, &LoadError{
			Code:    ErrCodeQueryNotFound,
			Message: fmt.Sprintf("no query named %q (have %v)", opts.Query, reg.Names()),
		}
	}
	return &LoadedQuery{Name: opts.Query, Query: q}, nil
}

// loadDocument decodes an expression document over records.
func loadDocument(path string) (*LoadedQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBadInput, Message: fmt.Sprintf("failed to read document: %v", err), Err: err}
	}

	var doc ir.IRObject
	if err := doc.UnmarshalJSON(data); err != nil {
		return nil, &LoadError{Code: ErrCodeBadInput, Message: fmt.Sprintf("%s: %v", path, err), Err: err}
	}

	l, err := ir.Decode(doc, reflect.TypeFor[definition.Record]())
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBadInput, Message: fmt.Sprintf("%s: %v", path, err), Err: err}
	}
	q, err := query.New[definition.Record](l)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBadInput, Message: fmt.Sprintf("%s: %v", path, err), Err: err}
	}
	return &LoadedQuery{Name: path, Query: q}, nil
}

// loadErrorCode returns the CLI error code for err.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	if expr.IsEvaluationFailure(err) {
		return ErrCodeEvaluation
	}
	return ErrCodeGeneric
}
