package client

import (
	"fmt"

	qerrors "github.com/onisimchukv/ksql/internal/errors"
	"github.com/onisimchukv/ksql/internal/sql/types"
)

// Row is one materialized result row. Values are held in the Go value model
// of the column types and have already been checked against them.
type Row struct {
	columnNames []string
	columnTypes []types.SqlType
	values      []any
	index       map[string]int
}

// ColumnNames returns the column names of the row, in order.
func (r *Row) ColumnNames() []string { return r.columnNames }

// ColumnTypes returns the column types of the row, in order.
func (r *Row) ColumnTypes() []types.SqlType { return r.columnTypes }

// Values returns the row values, in column order. A nil entry is a SQL NULL.
func (r *Row) Values() []any { return r.values }

// GetValue returns the value of the named column.
func (r *Row) GetValue(columnName string) (any, error) {
	i, ok := r.index[columnName]
	if !ok {
		return nil, qerrors.ColumnNotFoundError(columnName, "")
	}
	return r.values[i], nil
}

// GetValueAt returns the value at the 1-based column index.
func (r *Row) GetValueAt(columnIndex int) (any, error) {
	if columnIndex < 1 || columnIndex > len(r.values) {
		return nil, qerrors.DataErrorf("Column index %d out of bounds, row has %d columns", columnIndex, len(r.values))
	}
	return r.values[columnIndex-1], nil
}

// IsNull reports whether the named column holds no value.
func (r *Row) IsNull(columnName string) (bool, error) {
	v, err := r.GetValue(columnName)
	if err != nil {
		return false, err
	}
	return v == nil, nil
}

func (r *Row) String() string {
	return fmt.Sprint(r.values)
}

// BatchedQueryResult is the complete result of a query whose rows were
// collected before returning.
type BatchedQueryResult struct {
	QueryID     string
	ColumnNames []string
	ColumnTypes []types.SqlType
	Rows        []*Row
}

// Len returns the number of rows.
func (b *BatchedQueryResult) Len() int { return len(b.Rows) }

// valueToIndex maps each column name to its position; the first occurrence
// of a repeated name wins.
func valueToIndex(names []string) map[string]int {
	index := make(map[string]int, len(names))
	for i, name := range names {
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	return index
}
