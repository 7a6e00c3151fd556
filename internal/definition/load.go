package definition

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/codepb/fluentqueries/pkg/query"
)

// schema closes the CUE form of a definition file, so misspelled fields are
// errors as they are in YAML.
const schema = `
#Condition: {
	field?:   string
	op?:      string
	value?:   _
	values?:  [..._]
	element?: #Condition
	all?:     [...#Condition]
	"any"?:   [...#Condition]
	"not"?:   #Condition
}

#File: {
	queries?: [string]: {
		description?: string
		where:        #Condition
	}
}
`

// ParseYAML decodes a YAML definition file. Unknown fields are rejected.
func ParseYAML(data []byte) (*File, error) {
	if err := rejectNullOps(data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &f, nil
}

// rejectNullOps reports an unquoted op: null. YAML reads it as a null value,
// which would otherwise surface as a condition without an operator.
func rejectNullOps(data []byte) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil // Decode reports syntax errors
	}

	var walk func(n *yaml.Node) error
	walk = func(n *yaml.Node) error {
		if n.Kind == yaml.MappingNode {
			for i := 0; i+1 < len(n.Content); i += 2 {
				k, v := n.Content[i], n.Content[i+1]
				if k.Value == "op" && v.Kind == yaml.ScalarNode && v.ShortTag() == "!!null" {
					return fmt.Errorf("line %d: op is a YAML null; quote it (op: \"null\") to test for null", v.Line)
				}
			}
		}
		for _, c := range n.Content {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(&root)
}

// ParseCUE decodes a CUE definition file. Queries are the fields of the
// top-level queries struct, in declaration order.
func ParseCUE(data []byte, filename string) (*File, error) {
	ctx := cuecontext.New()

	s := ctx.CompileString(schema).LookupPath(cue.ParsePath("#File"))
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, filename)
	}

	v = s.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, filename)
	}

	var f File
	queries := v.LookupPath(cue.ParsePath("queries"))
	if !queries.Exists() {
		return &f, nil
	}
	iter, err := queries.Fields()
	if err != nil {
		return nil, formatCUEError(err, filename)
	}
	for iter.Next() {
		var spec Spec
		if err := iter.Value().Decode(&spec); err != nil {
			return nil, formatCUEError(err, filename)
		}
		spec.Name = iter.Selector().Unquoted()
		f.Queries = append(f.Queries, spec)
	}
	return &f, nil
}

// formatCUEError keeps the position of the first CUE error, preferring one
// in filename over one in the schema.
func formatCUEError(err error, filename string) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	for _, pos := range positions {
		if pos.Filename() == filename {
			return &Error{Pos: pos, Err: firstErr}
		}
	}
	if len(positions) > 0 {
		return &Error{Pos: positions[0], Err: firstErr}
	}
	return err
}

// LoadFile reads a definition file. The extension picks the format: .yaml
// and .yml are YAML, .cue is CUE.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file: %w", err)
	}

	var f *File
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		f, err = ParseYAML(data)
	case ".cue":
		f, err = ParseCUE(data, path)
	default:
		return nil, fmt.Errorf("%s: unknown definition format", path)
	}
	if err != nil {
		var defErr *Error
		if errors.As(err, &defErr) {
			if defErr.File == "" {
				defErr.File = path
			}
			return nil, defErr
		}
		return nil, &Error{File: path, Err: err}
	}
	return f, nil
}

// FindFiles walks dir and returns the definition files in it, sorted.
func FindFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml", ".cue":
			if !info.IsDir() {
				files = append(files, path)
			}
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

// Register builds every query of f and adds it to reg. The first failure
// stops registration; a name registered twice is a DEFINITION_CONFLICT.
func Register(reg *query.Registry[Record], f *File) error {
	for _, spec := range f.Queries {
		q, err := Build(spec)
		if err != nil {
			return err
		}
		if err := reg.Register(spec.Name, q); err != nil {
			return &Error{Query: spec.Name, Err: err}
		}
	}
	return nil
}

// Load reads every path (a file, or a directory searched with FindFiles)
// into a new registry.
func Load(paths ...string) (*query.Registry[Record], error) {
	reg := query.NewRegistry[Record]()

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("definition path: %w", err)
		}

		files := []string{p}
		if info.IsDir() {
			if files, err = FindFiles(p); err != nil {
				return nil, fmt.Errorf("error scanning directory: %w", err)
			}
			if len(files) == 0 {
				return nil, fmt.Errorf("no definition files found in %s", p)
			}
		}

		for _, file := range files {
			f, err := LoadFile(file)
			if err != nil {
				return nil, err
			}
			if err := Register(reg, f); err != nil {
				var defErr *Error
				if errors.As(err, &defErr) && defErr.File == "" {
					defErr.File = file
				}
				return nil, err
			}
		}
	}
	return reg, nil
}
