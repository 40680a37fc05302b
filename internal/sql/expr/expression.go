package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/lib/pq"

	"github.com/onisimchukv/ksql/internal/sql/schema"
	"github.com/onisimchukv/ksql/internal/sql/types"
)

// Expression is a node of a scalar expression tree. Expressions are immutable.
type Expression interface {
	// String returns the canonical rendering, which also serves as identity.
	String() string
	// Accept accepts a visitor.
	Accept(visitor Visitor) error
}

// Visitor visits expressions.
type Visitor interface {
	VisitColumnReference(expr *ColumnReference) error
	VisitLiteral(expr *Literal) error
	VisitBinaryOp(expr *BinaryOp) error
	VisitUnaryOp(expr *UnaryOp) error
	VisitFunctionCall(expr *FunctionCall) error
}

// ColumnReference refers to a column, optionally qualified by a source name.
type ColumnReference struct {
	Qualifier schema.SourceName
	Name      schema.ColumnName
}

// Column creates an unqualified column reference.
func Column(name schema.ColumnName) *ColumnReference {
	return &ColumnReference{Name: name}
}

// QualifiedColumn creates a column reference qualified by source.
func QualifiedColumn(source schema.SourceName, name schema.ColumnName) *ColumnReference {
	return &ColumnReference{Qualifier: source, Name: name}
}

// IsQualified reports whether the reference names its source.
func (c *ColumnReference) IsQualified() bool {
	return c.Qualifier != ""
}

func (c *ColumnReference) String() string {
	if c.Qualifier != "" {
		return fmt.Sprintf("%s.%s", c.Qualifier, c.Name)
	}
	return string(c.Name)
}

func (c *ColumnReference) Accept(visitor Visitor) error {
	return visitor.VisitColumnReference(c)
}

// Literal is a constant of a known type. A nil Value is a typed NULL.
type Literal struct {
	Value any
	Type  types.SqlType
}

// NewLiteral creates a literal after checking value against t.
func NewLiteral(value any, t types.SqlType) (*Literal, error) {
	if err := t.ValidateValue(value); err != nil {
		return nil, err
	}
	return &Literal{Value: value, Type: t}, nil
}

// Null creates a NULL literal of type t.
func Null(t types.SqlType) *Literal {
	return &Literal{Type: t}
}

// String creates a STRING literal.
func String(v string) *Literal {
	return &Literal{Value: v, Type: types.String}
}

// Int creates an INT literal.
func Int(v int32) *Literal {
	return &Literal{Value: v, Type: types.Int}
}

// BigInt creates a BIGINT literal.
func BigInt(v int64) *Literal {
	return &Literal{Value: v, Type: types.BigInt}
}

// Double creates a DOUBLE literal.
func Double(v float64) *Literal {
	return &Literal{Value: v, Type: types.Double}
}

// Boolean creates a BOOLEAN literal.
func Boolean(v bool) *Literal {
	return &Literal{Value: v, Type: types.Boolean}
}

// Decimal creates a DECIMAL literal typed by the value's own precision and scale.
func Decimal(v *apd.Decimal) *Literal {
	scale := max(types.DecimalScale(v), 0)
	precision := max(types.DecimalPrecision(v), scale, 1)
	return &Literal{Value: v, Type: types.MustDecimal(precision, scale)}
}

func (l *Literal) String() string {
	if l.Value == nil {
		return "NULL"
	}

	switch v := l.Value.(type) {
	case string:
		// QuoteLiteral prefixes " E" when it escapes backslashes.
		return strings.TrimPrefix(pq.QuoteLiteral(v), " ")
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case *apd.Decimal:
		return v.Text('f')
	default:
		return fmt.Sprintf("%v", l.Value)
	}
}

func (l *Literal) Accept(visitor Visitor) error {
	return visitor.VisitLiteral(l)
}

// BinaryOp represents a binary operation.
type BinaryOp struct {
	Left     Expression
	Right    Expression
	Operator BinaryOperator
}

// BinaryOperator represents a binary operator.
type BinaryOperator int

const (
	// Arithmetic operators
	OpAdd BinaryOperator = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo

	// Comparison operators
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual

	// Logical operators
	OpAnd
	OpOr

	// String operators
	OpConcat
)

func (op BinaryOperator) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpModulo:
		return "%"
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterEqual:
		return ">="
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpConcat:
		return "||"
	default:
		return fmt.Sprintf("Unknown(%d)", op)
	}
}

// IsArithmetic reports whether op computes a number.
func (op BinaryOperator) IsArithmetic() bool {
	return op <= OpModulo
}

// IsComparison reports whether op compares two operands.
func (op BinaryOperator) IsComparison() bool {
	return op >= OpEqual && op <= OpGreaterEqual
}

// IsLogical reports whether op combines two booleans.
func (op BinaryOperator) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// Binary creates a binary operation.
func Binary(left Expression, op BinaryOperator, right Expression) *BinaryOp {
	return &BinaryOp{Left: left, Right: right, Operator: op}
}

func (b *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left.String(), b.Operator.String(), b.Right.String())
}

func (b *BinaryOp) Accept(visitor Visitor) error {
	return visitor.VisitBinaryOp(b)
}

// UnaryOp represents a unary operation.
type UnaryOp struct {
	Expr     Expression
	Operator UnaryOperator
}

// UnaryOperator represents a unary operator.
type UnaryOperator int

const (
	OpNot UnaryOperator = iota
	OpNegate
	OpIsNull
	OpIsNotNull
)

func (op UnaryOperator) String() string {
	switch op {
	case OpNot:
		return "NOT"
	case OpNegate:
		return "-"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	default:
		return fmt.Sprintf("Unknown(%d)", op)
	}
}

// Unary creates a unary operation.
func Unary(op UnaryOperator, e Expression) *UnaryOp {
	return &UnaryOp{Expr: e, Operator: op}
}

func (u *UnaryOp) String() string {
	if u.Operator == OpIsNull || u.Operator == OpIsNotNull {
		return fmt.Sprintf("(%s %s)", u.Expr.String(), u.Operator.String())
	}
	return fmt.Sprintf("(%s %s)", u.Operator.String(), u.Expr.String())
}

func (u *UnaryOp) Accept(visitor Visitor) error {
	return visitor.VisitUnaryOp(u)
}

// FunctionCall represents a call to a scalar, aggregate or table function.
// Names are upper-cased.
type FunctionCall struct {
	Name string
	Args []Expression
}

// Call creates a function call.
func Call(name string, args ...Expression) *FunctionCall {
	return &FunctionCall{Name: strings.ToUpper(name), Args: args}
}

func (f *FunctionCall) String() string {
	argStrs := make([]string, len(f.Args))
	for i, arg := range f.Args {
		argStrs[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(argStrs, ", "))
}

func (f *FunctionCall) Accept(visitor Visitor) error {
	return visitor.VisitFunctionCall(f)
}

// Equal reports whether a and b are the same expression. Expressions are
// compared by their canonical rendering.
func Equal(a, b Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}
