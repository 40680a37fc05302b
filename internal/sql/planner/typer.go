package planner

import (
	qerrors "github.com/onisimchukv/ksql/internal/errors"
	"github.com/onisimchukv/ksql/internal/sql/expr"
	"github.com/onisimchukv/ksql/internal/sql/function"
	"github.com/onisimchukv/ksql/internal/sql/schema"
	"github.com/onisimchukv/ksql/internal/sql/types"
)

// expressionTyper resolves the SQL type of an expression against a schema.
type expressionTyper struct {
	schema    *schema.LogicalSchema
	functions *function.Registry
	result    types.SqlType
}

func typeOf(e expr.Expression, s *schema.LogicalSchema, functions *function.Registry) (types.SqlType, error) {
	t := &expressionTyper{schema: s, functions: functions}
	if err := e.Accept(t); err != nil {
		return nil, err
	}
	return t.result, nil
}

// argumentTypes types each argument of call in order.
func argumentTypes(call *expr.FunctionCall, s *schema.LogicalSchema, functions *function.Registry) ([]types.SqlType, error) {
	argTypes := make([]types.SqlType, len(call.Args))
	for i, arg := range call.Args {
		t, err := typeOf(arg, s, functions)
		if err != nil {
			return nil, err
		}
		argTypes[i] = t
	}
	return argTypes, nil
}

func (t *expressionTyper) VisitColumnReference(ref *expr.ColumnReference) error {
	// Qualifiers are resolved away before nodes are built; one that survives
	// names a source this schema does not hold.
	if ref.IsQualified() {
		return qerrors.ColumnNotFoundError(string(ref.Name), string(ref.Qualifier))
	}
	c, ok := t.schema.FindColumn(ref.Name)
	if !ok {
		return qerrors.ColumnNotFoundError(string(ref.Name), "")
	}
	t.result = c.Type
	return nil
}

func (t *expressionTyper) VisitLiteral(lit *expr.Literal) error {
	t.result = lit.Type
	return nil
}

func (t *expressionTyper) VisitBinaryOp(op *expr.BinaryOp) error {
	left, err := typeOf(op.Left, t.schema, t.functions)
	if err != nil {
		return err
	}
	right, err := typeOf(op.Right, t.schema, t.functions)
	if err != nil {
		return err
	}

	switch {
	case op.Operator.IsLogical():
		if !left.Equals(types.Boolean) || !right.Equals(types.Boolean) {
			return operandError(op, left, right)
		}
		t.result = types.Boolean
	case op.Operator.IsComparison():
		if !canCompare(left, right) {
			return operandError(op, left, right)
		}
		t.result = types.Boolean
	case op.Operator == expr.OpConcat:
		if !left.Equals(types.String) || !right.Equals(types.String) {
			return operandError(op, left, right)
		}
		t.result = types.String
	case op.Operator.IsArithmetic():
		result, ok := arithmeticResult(op.Operator, left, right)
		if !ok {
			return operandError(op, left, right)
		}
		t.result = result
	default:
		return qerrors.InternalErrorf("unknown binary operator %s", op.Operator)
	}
	return nil
}

func (t *expressionTyper) VisitUnaryOp(op *expr.UnaryOp) error {
	operand, err := typeOf(op.Expr, t.schema, t.functions)
	if err != nil {
		return err
	}

	switch op.Operator {
	case expr.OpNot:
		if !operand.Equals(types.Boolean) {
			return qerrors.DatatypeMismatchError("Operator NOT requires a BOOLEAN operand, got %s in %s", operand, op)
		}
		t.result = types.Boolean
	case expr.OpNegate:
		if !operand.BaseType().IsNumber() {
			return qerrors.DatatypeMismatchError("Operator - requires a numeric operand, got %s in %s", operand, op)
		}
		t.result = operand
	case expr.OpIsNull, expr.OpIsNotNull:
		t.result = types.Boolean
	default:
		return qerrors.InternalErrorf("unknown unary operator %s", op.Operator)
	}
	return nil
}

func (t *expressionTyper) VisitFunctionCall(call *expr.FunctionCall) error {
	argTypes, err := argumentTypes(call, t.schema, t.functions)
	if err != nil {
		return err
	}

	switch {
	case t.functions.IsAggregate(call.Name):
		fn, err := t.functions.Aggregate(call.Name, argTypes)
		if err != nil {
			return err
		}
		t.result = fn.ReturnType()
	case t.functions.IsTableFunction(call.Name):
		fn, err := t.functions.TableFunction(call.Name, argTypes)
		if err != nil {
			return err
		}
		t.result = fn.ReturnType()
	default:
		return qerrors.FunctionNotFoundError(call.Name)
	}
	return nil
}

func operandError(op *expr.BinaryOp, left, right types.SqlType) error {
	return qerrors.DatatypeMismatchError("Unsupported operand types for %s: %s and %s in %s",
		op.Operator, left, right, op)
}

// canCompare reports whether values of a and b can be compared. Numbers
// compare across widths; everything else needs the same base type.
func canCompare(a, b types.SqlType) bool {
	if a.BaseType().IsNumber() && b.BaseType().IsNumber() {
		return true
	}
	switch a.BaseType() {
	case types.BaseBoolean, types.BaseString:
		return a.BaseType() == b.BaseType()
	default:
		return false
	}
}

// arithmeticResult widens numeric operands in the order INT, BIGINT, DECIMAL,
// DOUBLE. Integers mixed with decimals are treated as DECIMAL(10, 0) and
// DECIMAL(19, 0).
func arithmeticResult(op expr.BinaryOperator, a, b types.SqlType) (types.SqlType, bool) {
	ab, bb := a.BaseType(), b.BaseType()
	if !ab.IsNumber() || !bb.IsNumber() {
		return nil, false
	}

	switch {
	case ab == types.BaseDouble || bb == types.BaseDouble:
		return types.Double, true
	case ab == types.BaseDecimal || bb == types.BaseDecimal:
		d, err := decimalResult(op, asDecimalType(a), asDecimalType(b))
		if err != nil {
			return nil, false
		}
		return d, true
	case ab == types.BaseBigInt || bb == types.BaseBigInt:
		return types.BigInt, true
	default:
		return types.Int, true
	}
}

func asDecimalType(t types.SqlType) *types.Decimal {
	switch t.BaseType() {
	case types.BaseInt:
		return types.MustDecimal(10, 0)
	case types.BaseBigInt:
		return types.MustDecimal(19, 0)
	default:
		return t.(*types.Decimal)
	}
}

func decimalResult(op expr.BinaryOperator, a, b *types.Decimal) (*types.Decimal, error) {
	switch op {
	case expr.OpMultiply:
		return types.DecimalOf(a.Precision()+b.Precision()+1, a.Scale()+b.Scale())
	case expr.OpDivide:
		scale := max(6, a.Scale()+b.Precision()+1)
		return types.DecimalOf(a.Precision()-a.Scale()+b.Scale()+scale, scale)
	case expr.OpModulo:
		scale := max(a.Scale(), b.Scale())
		return types.DecimalOf(min(a.Precision()-a.Scale(), b.Precision()-b.Scale())+scale, scale)
	default:
		scale := max(a.Scale(), b.Scale())
		return types.DecimalOf(max(a.Precision()-a.Scale(), b.Precision()-b.Scale())+scale+1, scale)
	}
}
