package planner

import (
	"fmt"
	"iter"

	qerrors "github.com/onisimchukv/ksql/internal/errors"
	"github.com/onisimchukv/ksql/internal/sql/expr"
	"github.com/onisimchukv/ksql/internal/sql/function"
	"github.com/onisimchukv/ksql/internal/sql/schema"
	"github.com/onisimchukv/ksql/internal/sql/types"
)

// JoinType is the kind of join.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	OuterJoin
)

func (j JoinType) String() string {
	switch j {
	case InnerJoin:
		return "INNER"
	case LeftJoin:
		return "LEFT"
	case OuterJoin:
		return "OUTER"
	default:
		return fmt.Sprintf("Unknown(%d)", int(j))
	}
}

// JoinColumnName is the name a column of the source aliased alias takes on
// the far side of a join.
func JoinColumnName(alias schema.SourceName, name schema.ColumnName) schema.ColumnName {
	return schema.ColumnName(string(alias) + "_" + string(name))
}

// PreJoinProjectNode prefixes every column of one join input with its alias,
// so the two sides can be combined without clashes.
type PreJoinProjectNode struct {
	basePlan
	Alias schema.SourceName
}

// NewPreJoinProjectNode wraps source for use as one side of a join.
func NewPreJoinProjectNode(id PlanNodeID, source PlanNode, alias schema.SourceName) (*PreJoinProjectNode, error) {
	b := schema.NewBuilder()
	for _, c := range source.Schema().Key() {
		b.KeyColumn(JoinColumnName(alias, c.Name), c.Type)
	}
	for _, c := range source.Schema().Value() {
		b.ValueColumn(JoinColumnName(alias, c.Name), c.Type)
	}
	prefixed, err := b.Build()
	if err != nil {
		return nil, err
	}

	return &PreJoinProjectNode{
		basePlan: basePlan{
			id:         id,
			outputType: source.NodeOutputType(),
			schema:     prefixed,
			sourceName: alias,
			children:   []PlanNode{source},
		},
		Alias: alias,
	}, nil
}

// Source returns the wrapped join input.
func (n *PreJoinProjectNode) Source() PlanNode { return n.children[0] }

// ResolveSelectStar yields the child's expansion with the alias prefix.
func (n *PreJoinProjectNode) ResolveSelectStar(types.Optional[schema.SourceName]) iter.Seq[schema.ColumnName] {
	return func(yield func(schema.ColumnName) bool) {
		for name := range n.Source().ResolveSelectStar(types.None[schema.SourceName]()) {
			if !yield(JoinColumnName(n.Alias, name)) {
				return
			}
		}
	}
}

// ValidateKeyPresent is a no-op: the join decides the key of its output.
func (n *PreJoinProjectNode) ValidateKeyPresent(schema.SourceName, *expr.Projection) error {
	return nil
}

func (n *PreJoinProjectNode) String() string {
	return fmt.Sprintf("PreJoinProject(%s)", n.Alias)
}

// JoinNode combines two aliased inputs on an equality of one expression from
// each side. The output is keyed by the left join key.
type JoinNode struct {
	basePlan
	JoinType JoinType
	LeftKey  expr.Expression
	RightKey expr.Expression
}

// NewJoinNode creates a join. Both sides must carry distinct source names and
// the key expressions must have the same type.
func NewJoinNode(
	id PlanNodeID,
	joinType JoinType,
	left, right *PreJoinProjectNode,
	leftKey, rightKey expr.Expression,
	functions *function.Registry,
) (*JoinNode, error) {
	if left.Alias == right.Alias {
		return nil, qerrors.PlanErrorf("Can not join '%s' to '%s': self joins require a distinct alias for each side",
			left.Alias, right.Alias)
	}

	leftType, err := typeOf(leftKey, left.Schema(), functions)
	if err != nil {
		return nil, err
	}
	rightType, err := typeOf(rightKey, right.Schema(), functions)
	if err != nil {
		return nil, err
	}
	if !leftType.Equals(rightType) {
		return nil, qerrors.DatatypeMismatchError("Invalid join condition: types don't match. Got %s{%s} = %s{%s}.",
			leftKey, leftType, rightKey, rightType)
	}

	keyName := schema.ColumnName("KSQL_COL_0")
	if ref, ok := leftKey.(*expr.ColumnReference); ok {
		keyName = ref.Name
	}
	joined, err := schema.NewBuilder().
		KeyColumn(keyName, leftType).
		ValueColumns(left.Schema().Value()).
		ValueColumns(right.Schema().Value()).
		Build()
	if err != nil {
		return nil, err
	}

	outputType := Stream
	if left.NodeOutputType() == Table && right.NodeOutputType() == Table {
		outputType = Table
	}

	return &JoinNode{
		basePlan: basePlan{
			id:         id,
			outputType: outputType,
			schema:     joined,
			children:   []PlanNode{left, right},
		},
		JoinType: joinType,
		LeftKey:  leftKey,
		RightKey: rightKey,
	}, nil
}

// Left returns the left input.
func (n *JoinNode) Left() *PreJoinProjectNode { return n.children[0].(*PreJoinProjectNode) }

// Right returns the right input.
func (n *JoinNode) Right() *PreJoinProjectNode { return n.children[1].(*PreJoinProjectNode) }

// ValidateKeyPresent requires either join expression in the projection. The
// inputs' key requirements no longer apply.
func (n *JoinNode) ValidateKeyPresent(sink schema.SourceName, projection *expr.Projection) error {
	if projection.ContainsExpression(n.LeftKey) || projection.ContainsExpression(n.RightKey) {
		return nil
	}
	return keysNotIncludedError(sink, "join expression", []expr.Expression{n.LeftKey, n.RightKey}, "or")
}

func (n *JoinNode) String() string {
	return fmt.Sprintf("Join(%s, %s = %s)", n.JoinType, n.LeftKey, n.RightKey)
}
