package schema

import (
	"slices"
	"strings"

	qerrors "github.com/onisimchukv/ksql/internal/errors"
	"github.com/onisimchukv/ksql/internal/sql/types"
)

// LogicalSchema is an immutable, ordered set of key and value columns.
// Names are unique within each namespace; a name may appear in both.
type LogicalSchema struct {
	key        []Column
	value      []Column
	keyIndex   map[ColumnName]int
	valueIndex map[ColumnName]int
}

// Builder accumulates columns in declaration order.
type Builder struct {
	key   []Column
	value []Column
}

// NewBuilder creates an empty schema builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// KeyColumn appends a key column.
func (b *Builder) KeyColumn(name ColumnName, t types.SqlType) *Builder {
	b.key = append(b.key, Column{Name: name, Type: t, Namespace: Key})
	return b
}

// ValueColumn appends a value column.
func (b *Builder) ValueColumn(name ColumnName, t types.SqlType) *Builder {
	b.value = append(b.value, Column{Name: name, Type: t, Namespace: Value})
	return b
}

// KeyColumns appends columns to the key, whatever namespace they came from.
func (b *Builder) KeyColumns(columns []Column) *Builder {
	for _, c := range columns {
		b.KeyColumn(c.Name, c.Type)
	}
	return b
}

// ValueColumns appends columns to the value, whatever namespace they came from.
func (b *Builder) ValueColumns(columns []Column) *Builder {
	for _, c := range columns {
		b.ValueColumn(c.Name, c.Type)
	}
	return b
}

// Build finalizes the schema, failing if a name repeats within a namespace.
func (b *Builder) Build() (*LogicalSchema, error) {
	s := &LogicalSchema{
		key:        make([]Column, len(b.key)),
		value:      make([]Column, len(b.value)),
		keyIndex:   make(map[ColumnName]int, len(b.key)),
		valueIndex: make(map[ColumnName]int, len(b.value)),
	}
	if err := index(s.key, s.keyIndex, b.key, "key"); err != nil {
		return nil, err
	}
	if err := index(s.value, s.valueIndex, b.value, "value"); err != nil {
		return nil, err
	}
	return s, nil
}

func index(dst []Column, byName map[ColumnName]int, src []Column, namespace string) error {
	for i, c := range src {
		if c.Type == nil {
			return qerrors.InvalidTypeDefinitionError("Column '%s' has no type", c.Name)
		}
		if _, dup := byName[c.Name]; dup {
			return qerrors.DuplicateColumnError(namespace, string(c.Name))
		}
		c.Index = i
		dst[i] = c
		byName[c.Name] = i
	}
	return nil
}

// mustBuild is for derived schemas whose uniqueness follows from the source.
func (b *Builder) mustBuild() *LogicalSchema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// AsBuilder returns a builder seeded with this schema's columns.
func (s *LogicalSchema) AsBuilder() *Builder {
	return &Builder{key: slices.Clone(s.key), value: slices.Clone(s.value)}
}

// Key returns the key columns in declaration order.
func (s *LogicalSchema) Key() []Column { return slices.Clone(s.key) }

// Value returns the value columns in declaration order.
func (s *LogicalSchema) Value() []Column { return slices.Clone(s.value) }

// Columns returns the key columns followed by the value columns.
func (s *LogicalSchema) Columns() []Column {
	return slices.Concat(s.key, s.value)
}

// FindColumn looks name up in the key, then in the value.
func (s *LogicalSchema) FindColumn(name ColumnName) (Column, bool) {
	if i, ok := s.keyIndex[name]; ok {
		return s.key[i], true
	}
	return s.FindValueColumn(name)
}

// FindValueColumn looks name up in the value only.
func (s *LogicalSchema) FindValueColumn(name ColumnName) (Column, bool) {
	if i, ok := s.valueIndex[name]; ok {
		return s.value[i], true
	}
	return Column{}, false
}

// IsKeyColumn reports whether name is a key column.
func (s *LogicalSchema) IsKeyColumn(name ColumnName) bool {
	_, ok := s.keyIndex[name]
	return ok
}

// ValueContainsAny reports whether any of names is a value column.
func (s *LogicalSchema) ValueContainsAny(names ...ColumnName) bool {
	for _, n := range names {
		if _, ok := s.valueIndex[n]; ok {
			return true
		}
	}
	return false
}

// WithPseudoAndKeyColsInValue returns the internal processing layout: the user
// value columns followed by ROWTIME, copies of the key columns and, when
// windowed, WINDOWSTART and WINDOWEND.
func (s *LogicalSchema) WithPseudoAndKeyColsInValue(windowed bool) *LogicalSchema {
	b := NewBuilder().KeyColumns(s.key)
	for _, c := range s.value {
		if !s.isSystemOrKey(c.Name) {
			b.ValueColumn(c.Name, c.Type)
		}
	}
	b.ValueColumn(RowTimeName, types.BigInt)
	b.ValueColumns(s.key)
	if windowed {
		b.ValueColumn(WindowStartName, types.BigInt)
		b.ValueColumn(WindowEndName, types.BigInt)
	}
	return b.mustBuild()
}

// WithoutPseudoAndKeyColsInValue removes ROWTIME, window bounds and key copies
// from the value.
func (s *LogicalSchema) WithoutPseudoAndKeyColsInValue() *LogicalSchema {
	b := NewBuilder().KeyColumns(s.key)
	for _, c := range s.value {
		if !s.isSystemOrKey(c.Name) {
			b.ValueColumn(c.Name, c.Type)
		}
	}
	return b.mustBuild()
}

func (s *LogicalSchema) isSystemOrKey(name ColumnName) bool {
	return IsSystemColumn(name) || s.IsKeyColumn(name)
}

// Equals compares both namespaces column by column.
func (s *LogicalSchema) Equals(other *LogicalSchema) bool {
	if s == nil || other == nil {
		return s == other
	}
	return slices.EqualFunc(s.key, other.key, Column.Equals) &&
		slices.EqualFunc(s.value, other.value, Column.Equals)
}

// String renders the columns, e.g. "ID BIGINT KEY, NAME STRING".
func (s *LogicalSchema) String() string {
	cols := s.Columns()
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
