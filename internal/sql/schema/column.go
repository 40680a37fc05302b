package schema

import (
	"github.com/onisimchukv/ksql/internal/sql/types"
)

// Column is a named, typed member of a LogicalSchema. Index is the position
// within the column's namespace.
type Column struct {
	Name      ColumnName
	Type      types.SqlType
	Namespace Namespace
	Index     int
}

// Equals compares name, type, namespace and index.
func (c Column) Equals(other Column) bool {
	return c.Name == other.Name &&
		c.Namespace == other.Namespace &&
		c.Index == other.Index &&
		types.Equal(c.Type, other.Type)
}

func (c Column) String() string {
	s := string(c.Name) + " " + c.Type.String()
	if c.Namespace == Key {
		s += " KEY"
	}
	return s
}
