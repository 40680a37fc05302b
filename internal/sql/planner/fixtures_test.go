package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onisimchukv/ksql/internal/sql/expr"
	"github.com/onisimchukv/ksql/internal/sql/function"
	"github.com/onisimchukv/ksql/internal/sql/schema"
	"github.com/onisimchukv/ksql/internal/sql/types"
)

var functions = function.NewRegistry()

// ordersSource is a stream keyed by ORDER_ID.
func ordersSource(t *testing.T) DataSource {
	t.Helper()
	s, err := schema.NewBuilder().
		KeyColumn("ORDER_ID", types.BigInt).
		ValueColumn("ITEM", types.String).
		ValueColumn("QTY", types.Int).
		ValueColumn("PRICE", types.Double).
		ValueColumn("CUSTOMER_ID", types.BigInt).
		ValueColumn("TAGS", types.ArrayOf(types.String)).
		Build()
	require.NoError(t, err)
	return DataSource{Name: "ORDERS", Type: Stream, Schema: s}
}

// customersSource is a table keyed by ID.
func customersSource(t *testing.T) DataSource {
	t.Helper()
	s, err := schema.NewBuilder().
		KeyColumn("ID", types.BigInt).
		ValueColumn("NAME", types.String).
		ValueColumn("REGION", types.String).
		Build()
	require.NoError(t, err)
	return DataSource{Name: "CUSTOMERS", Type: Table, Schema: s}
}

func sourceNode(t *testing.T, source DataSource, alias schema.SourceName) *DataSourceNode {
	t.Helper()
	n, err := NewDataSourceNode("Source", source, alias)
	require.NoError(t, err)
	return n
}

func col(name string) *expr.ColumnReference {
	return expr.Column(schema.ColumnName(name))
}

func qcol(source, name string) *expr.ColumnReference {
	return expr.QualifiedColumn(schema.SourceName(source), schema.ColumnName(name))
}

func selectItems(es ...expr.Expression) *expr.Projection {
	items := make([]expr.SelectItem, len(es))
	for i, e := range es {
		items[i] = &expr.SingleColumn{Expression: e}
	}
	return expr.NewProjection(items...)
}

func aliased(e expr.Expression, alias string) *expr.SingleColumn {
	return &expr.SingleColumn{Expression: e, Alias: schema.ColumnName(alias)}
}
