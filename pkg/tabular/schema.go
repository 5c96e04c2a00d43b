package tabular

import (
	"fmt"

	"github.com/inferloop/privkit/pkg/errors"
)

// Column describes a single named, typed column
type Column struct {
	Name string    `json:"name"`
	Kind ValueKind `json:"kind"`
}

// Schema is the ordered set of columns shared by every row of a dataset
type Schema struct {
	columns []Column
	index   map[string]int
}

// NewSchema creates a schema from an ordered column list. Column names must
// be unique and non-empty.
func NewSchema(columns ...Column) (*Schema, error) {
	if len(columns) == 0 {
		return nil, errors.NewInvalidParameter("schema must have at least one column")
	}
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		if col.Name == "" {
			return nil, errors.NewInvalidParameter(fmt.Sprintf("column %d has an empty name", i))
		}
		if _, exists := index[col.Name]; exists {
			return nil, errors.NewInvalidParameter(fmt.Sprintf("duplicate column name %q", col.Name))
		}
		index[col.Name] = i
	}
	cols := make([]Column, len(columns))
	copy(cols, columns)
	return &Schema{columns: cols, index: index}, nil
}

// Len returns the number of columns
func (s *Schema) Len() int {
	return len(s.columns)
}

// Columns returns a copy of the ordered column list
func (s *Schema) Columns() []Column {
	cols := make([]Column, len(s.columns))
	copy(cols, s.columns)
	return cols
}

// Column returns the column with the given name
func (s *Schema) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// ColumnIndex returns the position of the named column
func (s *Schema) ColumnIndex(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Validate checks that a row conforms to the schema. Interval values are
// accepted in numeric columns: they are what numeric generalization produces.
func (s *Schema) Validate(row Row) error {
	if len(row) != len(s.columns) {
		return errors.WrapError(errors.ErrSchemaMismatch, errors.ErrorTypeValidation,
			errors.CodeInvalidParameter,
			fmt.Sprintf("row has %d fields, schema has %d columns", len(row), len(s.columns)))
	}
	for i, v := range row {
		col := s.columns[i]
		if v.Kind == col.Kind {
			continue
		}
		if col.Kind == KindNumeric && v.Kind == KindInterval {
			continue
		}
		return errors.WrapError(errors.ErrSchemaMismatch, errors.ErrorTypeValidation,
			errors.CodeInvalidParameter,
			fmt.Sprintf("column %q expects %s, row has %s", col.Name, col.Kind, v.Kind))
	}
	return nil
}
