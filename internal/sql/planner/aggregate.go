package planner

import (
	"fmt"
	"slices"
	"strings"
	"time"

	qerrors "github.com/onisimchukv/ksql/internal/errors"
	"github.com/onisimchukv/ksql/internal/sql/expr"
	"github.com/onisimchukv/ksql/internal/sql/function"
	"github.com/onisimchukv/ksql/internal/sql/schema"
	"github.com/onisimchukv/ksql/internal/sql/types"
)

// WindowType is the kind of window an aggregation groups rows into.
type WindowType int

const (
	Tumbling WindowType = iota
	Hopping
	Session
)

func (w WindowType) String() string {
	switch w {
	case Tumbling:
		return "TUMBLING"
	case Hopping:
		return "HOPPING"
	case Session:
		return "SESSION"
	default:
		return fmt.Sprintf("Unknown(%d)", int(w))
	}
}

// WindowExpression describes a windowed aggregation. Advance applies to
// hopping windows only; Size is the gap for session windows.
type WindowExpression struct {
	Type    WindowType
	Size    time.Duration
	Advance time.Duration
}

func (w *WindowExpression) String() string {
	switch w.Type {
	case Hopping:
		return fmt.Sprintf("HOPPING (SIZE %d MILLISECONDS, ADVANCE BY %d MILLISECONDS)",
			w.Size.Milliseconds(), w.Advance.Milliseconds())
	case Session:
		return fmt.Sprintf("SESSION (%d MILLISECONDS)", w.Size.Milliseconds())
	default:
		return fmt.Sprintf("%s (SIZE %d MILLISECONDS)", w.Type, w.Size.Milliseconds())
	}
}

func (w *WindowExpression) validate() error {
	if w.Size <= 0 {
		return qerrors.PlanErrorf("%s window size must be positive", w.Type)
	}
	if w.Type == Hopping && (w.Advance <= 0 || w.Advance > w.Size) {
		return qerrors.PlanErrorf("HOPPING window advance must be positive and no larger than its size")
	}
	return nil
}

// AggregateNode groups its source and computes aggregate calls. Each distinct
// call becomes a KSQL_AGG_VARIABLE_<n> value column. The output is a table.
type AggregateNode struct {
	basePlan
	GroupBy    []expr.Expression
	Aggregates []*expr.FunctionCall
	Window     *WindowExpression
	functions  []function.AggregateFunction
	synthetic  map[string]schema.ColumnName
}

// NewAggregateNode creates an aggregation over the aggregate calls found in
// the select expressions. Columns used outside aggregate calls must be part
// of the GROUP BY. A nil window means an unwindowed aggregation.
func NewAggregateNode(
	id PlanNodeID,
	source PlanNode,
	groupBy []expr.Expression,
	selects []expr.Expression,
	window *WindowExpression,
	functions *function.Registry,
) (*AggregateNode, error) {
	if len(groupBy) == 0 {
		return nil, qerrors.GroupingErrorf("Aggregate query requires a GROUP BY clause")
	}
	if window != nil {
		if err := window.validate(); err != nil {
			return nil, err
		}
	}

	n := &AggregateNode{
		GroupBy:   groupBy,
		Window:    window,
		synthetic: make(map[string]schema.ColumnName),
	}
	in := source.Schema()
	isAggregate := func(c *expr.FunctionCall) bool { return functions.IsAggregate(c.Name) }

	var aggregateTypes []types.SqlType
	for _, e := range selects {
		for _, call := range expr.FunctionCalls(e, isAggregate) {
			key := call.String()
			if _, seen := n.synthetic[key]; seen {
				continue
			}
			argTypes, err := argumentTypes(call, in, functions)
			if err != nil {
				return nil, err
			}
			fn, err := functions.Aggregate(call.Name, argTypes)
			if err != nil {
				return nil, err
			}
			n.synthetic[key] = schema.ColumnName(fmt.Sprintf("KSQL_AGG_VARIABLE_%d", len(n.Aggregates)))
			n.Aggregates = append(n.Aggregates, call)
			n.functions = append(n.functions, fn)
			aggregateTypes = append(aggregateTypes, fn.ReturnType())
		}
	}

	required, err := n.requiredColumns(selects, in)
	if err != nil {
		return nil, err
	}

	keyName, keyType, err := groupingKey(groupBy, in, functions)
	if err != nil {
		return nil, err
	}
	b := schema.NewBuilder().KeyColumn(keyName, keyType)
	for _, c := range required {
		b.ValueColumn(c.Name, c.Type)
	}
	for i, call := range n.Aggregates {
		b.ValueColumn(n.synthetic[call.String()], aggregateTypes[i])
	}
	grouped, err := b.Build()
	if err != nil {
		return nil, err
	}

	n.basePlan = basePlan{
		id:         id,
		outputType: Table,
		schema:     grouped.WithPseudoAndKeyColsInValue(window != nil),
		children:   []PlanNode{source},
	}
	return n, nil
}

// groupingKey names the key of the grouped table. A single column keeps its
// name unless it is a system column; any other single expression becomes
// KSQL_COL_0; several expressions are
// combined into one STRING key.
func groupingKey(groupBy []expr.Expression, in *schema.LogicalSchema, functions *function.Registry) (schema.ColumnName, types.SqlType, error) {
	for _, g := range groupBy {
		if _, err := typeOf(g, in, functions); err != nil {
			return "", nil, err
		}
	}
	if len(groupBy) > 1 {
		return "KSQL_COL_0", types.String, nil
	}
	t, _ := typeOf(groupBy[0], in, functions)
	if ref, ok := groupBy[0].(*expr.ColumnReference); ok && !schema.IsSystemColumn(ref.Name) {
		return ref.Name, t, nil
	}
	return "KSQL_COL_0", t, nil
}

// requiredColumns returns the source columns the selects use outside
// aggregate calls, failing for any that the GROUP BY does not cover.
func (n *AggregateNode) requiredColumns(selects []expr.Expression, in *schema.LogicalSchema) ([]schema.Column, error) {
	grouped := make(map[schema.ColumnName]bool)
	for _, g := range n.GroupBy {
		for _, ref := range expr.ColumnReferences(g) {
			grouped[ref.Name] = true
		}
	}

	seen := make(map[schema.ColumnName]bool)
	for _, name := range n.synthetic {
		seen[name] = true
	}

	var required []schema.Column
	var ungrouped []string
	for _, e := range slices.Concat(n.GroupBy, selects) {
		for _, ref := range expr.ColumnReferences(n.ResolveSelect(0, e)) {
			if seen[ref.Name] {
				continue
			}
			seen[ref.Name] = true
			if n.Window != nil && schema.IsWindowBound(ref.Name) {
				continue
			}

			c, ok := in.FindColumn(ref.Name)
			if !ok {
				return nil, qerrors.ColumnNotFoundError(string(ref.Name), string(ref.Qualifier))
			}
			if !grouped[ref.Name] {
				ungrouped = append(ungrouped, string(ref.Name))
				continue
			}
			required = append(required, c)
		}
	}
	if len(ungrouped) > 0 {
		return nil, qerrors.GroupingErrorf("Non-aggregate SELECT expression(s) not part of GROUP BY: %s",
			strings.Join(ungrouped, ", "))
	}
	return required, nil
}

// Source returns the aggregated node.
func (n *AggregateNode) Source() PlanNode { return n.children[0] }

// Functions returns the resolved aggregates, parallel to Aggregates.
func (n *AggregateNode) Functions() []function.AggregateFunction { return n.functions }

// IsWindowed reports whether the aggregation is windowed.
func (n *AggregateNode) IsWindowed() bool { return n.Window != nil }

// ResolveSelect replaces aggregate calls with their synthetic columns.
func (n *AggregateNode) ResolveSelect(_ int, e expr.Expression) expr.Expression {
	return expr.Rewrite(e, func(node expr.Expression) (expr.Expression, bool) {
		call, ok := node.(*expr.FunctionCall)
		if !ok {
			return nil, false
		}
		if name, found := n.synthetic[call.String()]; found {
			return expr.Column(name), true
		}
		return nil, false
	})
}

// ValidateKeyPresent requires every grouping expression in the projection.
// The source's own key requirements no longer apply.
func (n *AggregateNode) ValidateKeyPresent(sink schema.SourceName, projection *expr.Projection) error {
	if missing := missingKeys(projection, n.GroupBy); len(missing) > 0 {
		return keysNotIncludedError(sink, "grouping expression", missing, "and")
	}
	return nil
}

func (n *AggregateNode) String() string {
	groups := make([]string, len(n.GroupBy))
	for i, g := range n.GroupBy {
		groups[i] = g.String()
	}
	parts := []string{"GROUP BY " + strings.Join(groups, ", ")}
	for _, call := range n.Aggregates {
		parts = append(parts, fmt.Sprintf("%s AS %s", call, n.synthetic[call.String()]))
	}
	if n.Window != nil {
		parts = append(parts, "WINDOW "+n.Window.String())
	}
	return fmt.Sprintf("Aggregate(%s)", strings.Join(parts, ", "))
}
