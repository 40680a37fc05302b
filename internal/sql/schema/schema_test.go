package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onisimchukv/ksql/internal/sql/types"
	"github.com/onisimchukv/ksql/internal/testutil"
)

func ordersSchema(t *testing.T) *LogicalSchema {
	t.Helper()
	s, err := NewBuilder().
		KeyColumn("ORDERID", types.BigInt).
		ValueColumn("ITEM", types.String).
		ValueColumn("PRICE", types.MustDecimal(10, 2)).
		ValueColumn("TAGS", types.ArrayOf(types.String)).
		Build()
	require.NoError(t, err)
	return s
}

func names(cols []Column) []ColumnName {
	out := make([]ColumnName, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func TestBuilder(t *testing.T) {
	s := ordersSchema(t)

	assert.Equal(t, []ColumnName{"ORDERID"}, names(s.Key()))
	assert.Equal(t, []ColumnName{"ITEM", "PRICE", "TAGS"}, names(s.Value()))
	assert.Equal(t, []ColumnName{"ORDERID", "ITEM", "PRICE", "TAGS"}, names(s.Columns()))
	assert.Equal(t, "ORDERID BIGINT KEY, ITEM STRING, PRICE DECIMAL(10, 2), TAGS ARRAY<STRING>", s.String())

	price, ok := s.FindValueColumn("PRICE")
	require.True(t, ok)
	assert.Equal(t, 1, price.Index)
	assert.Equal(t, Value, price.Namespace)
}

func TestBuilderRejectsDuplicates(t *testing.T) {
	_, err := NewBuilder().
		ValueColumn("A", types.Int).
		ValueColumn("A", types.String).
		Build()
	testutil.AssertPlanError(t, err, "Duplicate value columns found in schema: A")

	_, err = NewBuilder().
		KeyColumn("K", types.Int).
		KeyColumn("K", types.Int).
		Build()
	testutil.AssertPlanError(t, err, "Duplicate key columns found in schema: K")

	// The same name may live in both namespaces.
	_, err = NewBuilder().
		KeyColumn("K", types.Int).
		ValueColumn("K", types.Int).
		Build()
	assert.NoError(t, err)
}

func TestLookups(t *testing.T) {
	s := ordersSchema(t)

	assert.True(t, s.IsKeyColumn("ORDERID"))
	assert.False(t, s.IsKeyColumn("ITEM"))
	assert.False(t, s.IsKeyColumn("orderid"), "lookups are case-sensitive")

	c, ok := s.FindColumn("ORDERID")
	require.True(t, ok)
	assert.Equal(t, Key, c.Namespace)
	_, ok = s.FindValueColumn("ORDERID")
	assert.False(t, ok)
	_, ok = s.FindColumn("MISSING")
	assert.False(t, ok)

	assert.True(t, s.ValueContainsAny("NOPE", "TAGS"))
	assert.False(t, s.ValueContainsAny("ORDERID"))
}

func TestWithPseudoAndKeyColsInValue(t *testing.T) {
	s := ordersSchema(t)

	internal := s.WithPseudoAndKeyColsInValue(false)
	assert.Equal(t, []ColumnName{"ORDERID"}, names(internal.Key()))
	assert.Equal(t, []ColumnName{"ITEM", "PRICE", "TAGS", "ROWTIME", "ORDERID"}, names(internal.Value()))

	windowed := s.WithPseudoAndKeyColsInValue(true)
	assert.Equal(t,
		[]ColumnName{"ITEM", "PRICE", "TAGS", "ROWTIME", "ORDERID", "WINDOWSTART", "WINDOWEND"},
		names(windowed.Value()))

	// Applying it again does not duplicate the system columns.
	assert.True(t, internal.Equals(internal.WithPseudoAndKeyColsInValue(false)))
	assert.True(t, s.Equals(windowed.WithoutPseudoAndKeyColsInValue()))
	assert.True(t, s.Equals(s.WithoutPseudoAndKeyColsInValue()))
}

func TestSystemColumns(t *testing.T) {
	assert.True(t, IsPseudoColumn(RowTimeName))
	assert.False(t, IsPseudoColumn(WindowStartName))
	assert.True(t, IsWindowBound(WindowStartName))
	assert.True(t, IsWindowBound(WindowEndName))
	assert.False(t, IsWindowBound(RowKeyName))
	assert.True(t, IsSystemColumn(RowTimeName))
	assert.False(t, IsSystemColumn("ITEM"))
}

func TestAsBuilder(t *testing.T) {
	s := ordersSchema(t)
	extended, err := s.AsBuilder().ValueColumn("QTY", types.Int).Build()
	require.NoError(t, err)

	assert.Len(t, s.Value(), 3, "original is untouched")
	assert.Equal(t, []ColumnName{"ITEM", "PRICE", "TAGS", "QTY"}, names(extended.Value()))
	assert.False(t, s.Equals(extended))
}

func TestSchemaIsNotAliased(t *testing.T) {
	s := ordersSchema(t)
	cols := s.Value()
	cols[0].Name = "CHANGED"
	assert.Equal(t, ColumnName("ITEM"), s.Value()[0].Name)
}
