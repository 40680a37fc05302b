package planner

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onisimchukv/ksql/internal/sql/expr"
	"github.com/onisimchukv/ksql/internal/sql/schema"
	"github.com/onisimchukv/ksql/internal/sql/types"
	"github.com/onisimchukv/ksql/internal/testutil"
)

func typerSchema(t *testing.T) *schema.LogicalSchema {
	t.Helper()
	s, err := schema.NewBuilder().
		KeyColumn("ID", types.BigInt).
		ValueColumn("I", types.Int).
		ValueColumn("B", types.BigInt).
		ValueColumn("D", types.Double).
		ValueColumn("DEC", types.MustDecimal(5, 2)).
		ValueColumn("S", types.String).
		ValueColumn("FLAG", types.Boolean).
		ValueColumn("ARR", types.ArrayOf(types.Int)).
		Build()
	require.NoError(t, err)
	return s
}

func TestTypeOf(t *testing.T) {
	s := typerSchema(t)

	tests := []struct {
		name     string
		e        expr.Expression
		expected types.SqlType
	}{
		{"key column", col("ID"), types.BigInt},
		{"literal", expr.String("x"), types.String},
		{"int plus int", expr.Binary(col("I"), expr.OpAdd, col("I")), types.Int},
		{"int plus bigint", expr.Binary(col("I"), expr.OpAdd, col("B")), types.BigInt},
		{"bigint times double", expr.Binary(col("B"), expr.OpMultiply, col("D")), types.Double},
		{"decimal plus decimal", expr.Binary(col("DEC"), expr.OpAdd, col("DEC")), types.MustDecimal(6, 2)},
		{"decimal times decimal", expr.Binary(col("DEC"), expr.OpMultiply, col("DEC")), types.MustDecimal(11, 4)},
		{"int plus decimal", expr.Binary(col("I"), expr.OpAdd, col("DEC")), types.MustDecimal(13, 2)},
		{"decimal minus bigint", expr.Binary(col("DEC"), expr.OpSubtract, col("B")), types.MustDecimal(22, 2)},
		{"decimal plus double", expr.Binary(col("DEC"), expr.OpAdd, col("D")), types.Double},
		{"decimal literal", expr.Decimal(apd.New(125, -2)), types.MustDecimal(3, 2)},
		{"comparison across widths", expr.Binary(col("I"), expr.OpLess, col("D")), types.Boolean},
		{"string comparison", expr.Binary(col("S"), expr.OpEqual, expr.String("a")), types.Boolean},
		{"logical", expr.Binary(col("FLAG"), expr.OpAnd, expr.Boolean(false)), types.Boolean},
		{"concat", expr.Binary(col("S"), expr.OpConcat, expr.String("!")), types.String},
		{"not", expr.Unary(expr.OpNot, col("FLAG")), types.Boolean},
		{"negate", expr.Unary(expr.OpNegate, col("D")), types.Double},
		{"is null", expr.Unary(expr.OpIsNull, col("ARR")), types.Boolean},
		{"aggregate", expr.Call("count", col("S")), types.BigInt},
		{"table function", expr.Call("EXPLODE", col("ARR")), types.Int},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := typeOf(tt.e, s, functions)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equals(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestTypeOfErrors(t *testing.T) {
	s := typerSchema(t)

	tests := []struct {
		name     string
		e        expr.Expression
		expected string
	}{
		{
			name:     "unknown column",
			e:        col("NOPE"),
			expected: "Column 'NOPE' cannot be resolved.",
		},
		{
			name:     "unresolved qualifier",
			e:        qcol("OTHER", "I"),
			expected: "Column 'OTHER.I' cannot be resolved.",
		},
		{
			name:     "string arithmetic",
			e:        expr.Binary(col("S"), expr.OpAdd, col("I")),
			expected: "Unsupported operand types for +: STRING and INT in (S + I)",
		},
		{
			name:     "boolean and int",
			e:        expr.Binary(col("FLAG"), expr.OpOr, col("I")),
			expected: "Unsupported operand types for OR: BOOLEAN and INT in (FLAG OR I)",
		},
		{
			name:     "string compared to int",
			e:        expr.Binary(col("S"), expr.OpGreater, col("I")),
			expected: "Unsupported operand types for >: STRING and INT in (S > I)",
		},
		{
			name:     "concat of numbers",
			e:        expr.Binary(col("I"), expr.OpConcat, col("I")),
			expected: "Unsupported operand types for ||: INT and INT in (I || I)",
		},
		{
			name:     "not of a string",
			e:        expr.Unary(expr.OpNot, col("S")),
			expected: "Operator NOT requires a BOOLEAN operand, got STRING in (NOT S)",
		},
		{
			name:     "negated string",
			e:        expr.Unary(expr.OpNegate, col("S")),
			expected: "Operator - requires a numeric operand, got STRING in (- S)",
		},
		{
			name:     "unknown function",
			e:        expr.Call("frobnicate", col("I")),
			expected: "Can't find any functions with the name 'FROBNICATE'",
		},
		{
			name:     "error in argument",
			e:        expr.Call("SUM", col("NOPE")),
			expected: "Column 'NOPE' cannot be resolved.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := typeOf(tt.e, s, functions)
			testutil.AssertPlanError(t, err, tt.expected)
		})
	}
}

func TestArgumentTypes(t *testing.T) {
	s := typerSchema(t)

	got, err := argumentTypes(expr.Call("F", col("I"), col("S"), expr.Null(types.Double)), s, functions)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Equals(types.Int))
	assert.True(t, got[1].Equals(types.String))
	assert.True(t, got[2].Equals(types.Double))

	got, err = argumentTypes(expr.Call("COUNT"), s, functions)
	require.NoError(t, err)
	assert.Empty(t, got)
}
