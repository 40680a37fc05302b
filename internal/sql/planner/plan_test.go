package planner

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onisimchukv/ksql/internal/sql/expr"
	"github.com/onisimchukv/ksql/internal/sql/schema"
	"github.com/onisimchukv/ksql/internal/sql/types"
	"github.com/onisimchukv/ksql/internal/testutil"
)

func names(cols []schema.Column) []schema.ColumnName {
	out := make([]schema.ColumnName, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func TestOrderColumns(t *testing.T) {
	source := ordersSource(t)
	source.Windowed = true
	node := sourceNode(t, source, "")

	assert.Equal(t,
		[]schema.ColumnName{"ITEM", "QTY", "PRICE", "CUSTOMER_ID", "TAGS", "ROWTIME", "ORDER_ID", "WINDOWSTART", "WINDOWEND"},
		names(node.Schema().Value()))

	ordered := OrderColumns(node.Schema().Value(), node.Schema())
	assert.Equal(t,
		[]schema.ColumnName{"ORDER_ID", "WINDOWSTART", "WINDOWEND", "ITEM", "QTY", "PRICE", "CUSTOMER_ID", "TAGS"},
		names(ordered))

	t.Run("idempotent", func(t *testing.T) {
		assert.Equal(t, ordered, OrderColumns(ordered, node.Schema()))
	})

	t.Run("filters to the given columns", func(t *testing.T) {
		subset := []schema.Column{ordered[4], ordered[0]}
		assert.Equal(t, []schema.ColumnName{"ORDER_ID", "QTY"}, names(OrderColumns(subset, node.Schema())))
	})
}

func TestResolveSelectStar(t *testing.T) {
	node := sourceNode(t, ordersSource(t), "")
	filter, err := NewFilterNode("Filter", node, expr.Boolean(true), functions)
	require.NoError(t, err)

	want := []schema.ColumnName{"ORDER_ID", "ITEM", "QTY", "PRICE", "CUSTOMER_ID", "TAGS"}

	t.Run("restartable", func(t *testing.T) {
		seq := filter.ResolveSelectStar(types.None[schema.SourceName]())
		assert.Equal(t, want, slices.Collect(seq))
		assert.Equal(t, want, slices.Collect(seq))
	})

	t.Run("early exit", func(t *testing.T) {
		var first []schema.ColumnName
		for name := range filter.ResolveSelectStar(types.None[schema.SourceName]()) {
			first = append(first, name)
			if len(first) == 2 {
				break
			}
		}
		assert.Equal(t, want[:2], first)
	})

	t.Run("matching qualifier", func(t *testing.T) {
		assert.Equal(t, want, slices.Collect(filter.ResolveSelectStar(types.Some[schema.SourceName]("ORDERS"))))
	})

	t.Run("other qualifier", func(t *testing.T) {
		assert.Empty(t, slices.Collect(filter.ResolveSelectStar(types.Some[schema.SourceName]("CUSTOMERS"))))
	})
}

func TestGetTheSourceNode(t *testing.T) {
	source := sourceNode(t, ordersSource(t), "")
	filter, err := NewFilterNode("Filter", source, expr.Boolean(true), functions)
	require.NoError(t, err)

	got, err := GetTheSourceNode(filter)
	require.NoError(t, err)
	assert.Same(t, source, got)

	got, err = GetTheSourceNode(source)
	require.NoError(t, err)
	assert.Same(t, source, got)

	_, err = GetTheSourceNode(nil)
	testutil.AssertInternalError(t, err, "No source node in hierarchy")
}

func TestSourcesIsACopy(t *testing.T) {
	source := sourceNode(t, ordersSource(t), "")
	filter, err := NewFilterNode("Filter", source, expr.Boolean(true), functions)
	require.NoError(t, err)

	children := filter.Sources()
	children[0] = nil
	assert.Same(t, source, filter.Sources()[0])
}

func TestValidateKeyPresent(t *testing.T) {
	compound, err := schema.NewBuilder().
		KeyColumn("REGION", types.String).
		KeyColumn("CITY", types.String).
		KeyColumn("STREET", types.String).
		ValueColumn("POPULATION", types.BigInt).
		Build()
	require.NoError(t, err)

	tests := []struct {
		name       string
		source     DataSource
		projection *expr.Projection
		expected   string
	}{
		{
			name:       "stream has no key requirement",
			source:     ordersSource(t),
			projection: selectItems(col("ITEM")),
		},
		{
			name:       "table key selected",
			source:     customersSource(t),
			projection: selectItems(col("NAME"), col("ID")),
		},
		{
			name:       "table key through star",
			source:     customersSource(t),
			projection: expr.NewProjection(&expr.AllColumns{}),
		},
		{
			name:       "table key missing",
			source:     customersSource(t),
			projection: selectItems(col("NAME")),
			expected:   "The query used to build SINK must include the primary key column ID in its projection.",
		},
		{
			name:       "two keys missing",
			source:     DataSource{Name: "PLACES", Type: Table, Schema: compound},
			projection: selectItems(col("CITY"), col("POPULATION")),
			expected:   "The query used to build SINK must include the primary key columns REGION and STREET in its projection.",
		},
		{
			name:       "three keys missing",
			source:     DataSource{Name: "PLACES", Type: Table, Schema: compound},
			projection: selectItems(col("POPULATION")),
			expected:   "The query used to build SINK must include the primary key columns REGION, CITY and STREET in its projection.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := sourceNode(t, tt.source, "")
			filter, err := NewFilterNode("Filter", node, expr.Boolean(true), functions)
			require.NoError(t, err)

			err = filter.ValidateKeyPresent("SINK", tt.projection)
			if tt.expected == "" {
				assert.NoError(t, err)
				return
			}
			testutil.AssertPlanError(t, err, tt.expected)
		})
	}
}

func TestJoinGrammatically(t *testing.T) {
	tests := []struct {
		items    []string
		expected string
	}{
		{nil, ""},
		{[]string{"A"}, "A"},
		{[]string{"A", "B"}, "A or B"},
		{[]string{"A", "B", "C"}, "A, B or C"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, joinGrammatically(tt.items, "or"))
	}
}
