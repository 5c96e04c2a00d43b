package tabular

import (
	"fmt"
	"strings"

	"github.com/inferloop/privkit/pkg/errors"
)

// Row is an ordered, fixed-arity tuple of typed field values. Rows are
// immutable once read into a dataset; generalization produces new rows.
type Row []Value

// Clone returns an independent copy of the row
func (r Row) Clone() Row {
	dup := make(Row, len(r))
	copy(dup, r)
	return dup
}

// Dataset is an ordered sequence of rows sharing one schema. Row order is
// insertion order; it carries no meaning beyond reproducible iteration.
type Dataset struct {
	schema *Schema
	rows   []Row
}

// NewDataset creates a dataset after validating every row against the schema
func NewDataset(schema *Schema, rows []Row) (*Dataset, error) {
	if schema == nil {
		return nil, errors.NewInvalidParameter("schema must not be nil")
	}
	owned := make([]Row, len(rows))
	for i, row := range rows {
		if err := schema.Validate(row); err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeValidation,
				errors.CodeInvalidParameter, fmt.Sprintf("row %d rejected", i))
		}
		owned[i] = row.Clone()
	}
	return &Dataset{schema: schema, rows: owned}, nil
}

// Schema returns the dataset schema
func (d *Dataset) Schema() *Schema {
	return d.schema
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Row returns a copy of the row at index i
func (d *Dataset) Row(i int) Row {
	return d.rows[i].Clone()
}

// Value returns the field at row i, named column
func (d *Dataset) Value(i int, column string) (Value, error) {
	idx, ok := d.schema.ColumnIndex(column)
	if !ok {
		return Value{}, errors.WrapError(errors.ErrUnknownColumn, errors.ErrorTypeValidation,
			errors.CodeInvalidParameter, fmt.Sprintf("column %q", column))
	}
	return d.rows[i][idx], nil
}

// Clone returns an independently-owned deep copy of the dataset, so repeated
// generalization attempts cannot corrupt or be corrupted by prior candidates.
func (d *Dataset) Clone() *Dataset {
	rows := make([]Row, len(d.rows))
	for i, row := range d.rows {
		rows[i] = row.Clone()
	}
	return &Dataset{schema: d.schema, rows: rows}
}

// ProjectionKey renders row i's projection on the quasi-identifier set as a
// single string key. Two rows share an equivalence class exactly when their
// keys are equal.
func (d *Dataset) ProjectionKey(i int, qis *QuasiIdentifierSet) string {
	parts := make([]string, len(qis.indices))
	for j, idx := range qis.indices {
		parts[j] = d.rows[i][idx].String()
	}
	return strings.Join(parts, "\x1f")
}

// QuasiIdentifierSet is an ordered, unique, non-empty subset of column names
// used as the projection key for equivalence classification.
type QuasiIdentifierSet struct {
	names   []string
	indices []int
}

// NewQuasiIdentifierSet validates the column names against the schema and
// resolves their positions.
func NewQuasiIdentifierSet(schema *Schema, names ...string) (*QuasiIdentifierSet, error) {
	if schema == nil {
		return nil, errors.NewInvalidParameter("schema must not be nil")
	}
	if len(names) == 0 {
		return nil, errors.WrapError(errors.ErrEmptyQuasiIdentifiers, errors.ErrorTypeValidation,
			errors.CodeInvalidParameter, "quasi-identifier set is empty")
	}
	seen := make(map[string]bool, len(names))
	owned := make([]string, 0, len(names))
	indices := make([]int, 0, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, errors.NewInvalidParameter(fmt.Sprintf("duplicate quasi-identifier %q", name))
		}
		idx, ok := schema.ColumnIndex(name)
		if !ok {
			return nil, errors.WrapError(errors.ErrUnknownColumn, errors.ErrorTypeValidation,
				errors.CodeInvalidParameter, fmt.Sprintf("quasi-identifier %q", name))
		}
		seen[name] = true
		owned = append(owned, name)
		indices = append(indices, idx)
	}
	return &QuasiIdentifierSet{names: owned, indices: indices}, nil
}

// Names returns a copy of the ordered quasi-identifier column names
func (q *QuasiIdentifierSet) Names() []string {
	names := make([]string, len(q.names))
	copy(names, q.names)
	return names
}

// Len returns the number of quasi-identifier columns
func (q *QuasiIdentifierSet) Len() int {
	return len(q.names)
}
