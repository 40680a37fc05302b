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

func joinInputs(t *testing.T, leftAlias, rightAlias schema.SourceName) (*PreJoinProjectNode, *PreJoinProjectNode) {
	t.Helper()
	left, err := NewPreJoinProjectNode("PreJoinProject", sourceNode(t, ordersSource(t), leftAlias), leftAlias)
	require.NoError(t, err)
	right, err := NewPreJoinProjectNode("PreJoinProject_1", sourceNode(t, customersSource(t), rightAlias), rightAlias)
	require.NoError(t, err)
	return left, right
}

func TestPreJoinProjectNode(t *testing.T) {
	left, _ := joinInputs(t, "O", "C")

	assert.Equal(t, "PreJoinProject(O)", left.String())
	assert.Equal(t, []schema.ColumnName{"O_ORDER_ID"}, names(left.Schema().Key()))
	assert.Equal(t,
		[]schema.ColumnName{"O_ITEM", "O_QTY", "O_PRICE", "O_CUSTOMER_ID", "O_TAGS", "O_ROWTIME", "O_ORDER_ID"},
		names(left.Schema().Value()))
	assert.Equal(t,
		[]schema.ColumnName{"O_ORDER_ID", "O_ITEM", "O_QTY", "O_PRICE", "O_CUSTOMER_ID", "O_TAGS"},
		slices.Collect(left.ResolveSelectStar(types.None[schema.SourceName]())))

	name, ok := left.SourceName()
	assert.True(t, ok)
	assert.Equal(t, schema.SourceName("O"), name)
}

func TestJoinNode(t *testing.T) {
	left, right := joinInputs(t, "O", "C")

	join, err := NewJoinNode("Join", LeftJoin, left, right, col("O_CUSTOMER_ID"), col("C_ID"), functions)
	require.NoError(t, err)

	assert.Equal(t, "Join(LEFT, O_CUSTOMER_ID = C_ID)", join.String())
	assert.Equal(t, Stream, join.NodeOutputType())
	assert.Same(t, left, join.Left())
	assert.Same(t, right, join.Right())
	assert.Equal(t, []schema.ColumnName{"O_CUSTOMER_ID"}, names(join.Schema().Key()))
	assert.Equal(t,
		[]schema.ColumnName{
			"O_ITEM", "O_QTY", "O_PRICE", "O_CUSTOMER_ID", "O_TAGS", "O_ROWTIME", "O_ORDER_ID",
			"C_NAME", "C_REGION", "C_ROWTIME", "C_ID",
		},
		names(join.Schema().Value()))

	t.Run("star", func(t *testing.T) {
		all := slices.Collect(join.ResolveSelectStar(types.None[schema.SourceName]()))
		assert.Equal(t, []schema.ColumnName{
			"O_ORDER_ID", "O_ITEM", "O_QTY", "O_PRICE", "O_CUSTOMER_ID", "O_TAGS",
			"C_ID", "C_NAME", "C_REGION",
		}, all)

		right := slices.Collect(join.ResolveSelectStar(types.Some[schema.SourceName]("C")))
		assert.Equal(t, []schema.ColumnName{"C_ID", "C_NAME", "C_REGION"}, right)
	})

	t.Run("qualified star through filter", func(t *testing.T) {
		filter, err := NewFilterNode("WhereFilter", join, expr.Binary(col("O_QTY"), expr.OpGreater, expr.Int(1)), functions)
		require.NoError(t, err)
		_, named := filter.SourceName()
		require.False(t, named)

		right := slices.Collect(filter.ResolveSelectStar(types.Some[schema.SourceName]("C")))
		assert.Equal(t, []schema.ColumnName{"C_ID", "C_NAME", "C_REGION"}, right)
		assert.Empty(t, slices.Collect(filter.ResolveSelectStar(types.Some[schema.SourceName]("X"))))
	})

	t.Run("key validation", func(t *testing.T) {
		assert.NoError(t, join.ValidateKeyPresent("SINK", selectItems(col("O_CUSTOMER_ID"))))
		assert.NoError(t, join.ValidateKeyPresent("SINK", selectItems(col("C_ID"))))
		testutil.AssertPlanError(t, join.ValidateKeyPresent("SINK", selectItems(col("O_ITEM"))),
			"The query used to build SINK must include the join expressions O_CUSTOMER_ID or C_ID in its projection.")
	})
}

func TestJoinNodeTableTable(t *testing.T) {
	left, err := NewPreJoinProjectNode("PreJoinProject", sourceNode(t, customersSource(t), "A"), "A")
	require.NoError(t, err)
	right, err := NewPreJoinProjectNode("PreJoinProject_1", sourceNode(t, customersSource(t), "B"), "B")
	require.NoError(t, err)

	join, err := NewJoinNode("Join", InnerJoin, left, right, col("A_ID"), col("B_ID"), functions)
	require.NoError(t, err)
	assert.Equal(t, Table, join.NodeOutputType())
}

func TestJoinNodeErrors(t *testing.T) {
	t.Run("same alias", func(t *testing.T) {
		left, right := joinInputs(t, "X", "X")
		_, err := NewJoinNode("Join", InnerJoin, left, right, col("X_CUSTOMER_ID"), col("X_ID"), functions)
		testutil.AssertPlanError(t, err, "Can not join 'X' to 'X': self joins require a distinct alias for each side")
	})

	t.Run("type mismatch", func(t *testing.T) {
		left, right := joinInputs(t, "O", "C")
		_, err := NewJoinNode("Join", InnerJoin, left, right, col("O_ITEM"), col("C_ID"), functions)
		testutil.AssertPlanError(t, err, "Invalid join condition: types don't match. Got O_ITEM{STRING} = C_ID{BIGINT}.")
	})

	t.Run("key from the wrong side", func(t *testing.T) {
		left, right := joinInputs(t, "O", "C")
		_, err := NewJoinNode("Join", InnerJoin, left, right, col("C_ID"), col("O_CUSTOMER_ID"), functions)
		testutil.AssertPlanError(t, err, "Column 'C_ID' cannot be resolved.")
	})
}

func TestJoinColumnName(t *testing.T) {
	assert.Equal(t, schema.ColumnName("O_ID"), JoinColumnName("O", "ID"))
	assert.Equal(t, "OUTER", OuterJoin.String())
	assert.Equal(t, "INNER", InnerJoin.String())
}
