package planner

import (
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"

	qerrors "github.com/onisimchukv/ksql/internal/errors"
	"github.com/onisimchukv/ksql/internal/log"
	"github.com/onisimchukv/ksql/internal/sql/expr"
	"github.com/onisimchukv/ksql/internal/sql/function"
	"github.com/onisimchukv/ksql/internal/sql/schema"
	"github.com/onisimchukv/ksql/internal/sql/types"
)

// AliasedDataSource is a source as it appears in a FROM clause.
type AliasedDataSource struct {
	Source DataSource
	Alias  schema.SourceName
}

func (a AliasedDataSource) alias() schema.SourceName {
	if a.Alias != "" {
		return a.Alias
	}
	return a.Source.Name
}

// JoinInfo describes the join of the FROM source to a second source. The key
// expressions may be qualified by either source's alias.
type JoinInfo struct {
	Type     JoinType
	Right    AliasedDataSource
	LeftKey  expr.Expression
	RightKey expr.Expression
}

// Analysis is an analyzed query: the parts of a SELECT the planner turns into
// a plan. A non-empty Into makes the query persistent.
type Analysis struct {
	From        AliasedDataSource
	Join        *JoinInfo
	Where       expr.Expression
	PartitionBy expr.Expression
	GroupBy     []expr.Expression
	Window      *WindowExpression
	Projection  *expr.Projection
	Into        schema.SourceName
}

// LogicalPlanner builds logical plans from analyzed queries. A planner may be
// shared between goroutines; each BuildPlan call works on its own state.
type LogicalPlanner struct {
	functions *function.Registry
	logger    log.Logger
	queries   atomic.Int64
}

// NewLogicalPlanner creates a planner resolving functions through functions.
// A nil logger uses the package default.
func NewLogicalPlanner(functions *function.Registry, logger log.Logger) *LogicalPlanner {
	if logger == nil {
		logger = log.Default()
	}
	return &LogicalPlanner{
		functions: functions,
		logger:    logger.With(log.String("component", "planner")),
	}
}

// BuildPlan plans a query bottom-up: source, join, filter, flat map,
// partition, aggregation, projection and output.
func (p *LogicalPlanner) BuildPlan(a *Analysis) (*OutputNode, error) {
	if a.Projection == nil || len(a.Projection.Items()) == 0 {
		return nil, qerrors.PlanErrorf("The projection contains no columns")
	}
	b := &planBuilder{functions: p.functions, ids: make(map[string]int), windowed: a.Window != nil}

	current, err := b.buildSource(a)
	if err != nil {
		return nil, err
	}

	if a.Where != nil {
		where, err := b.normalize(a.Where)
		if err != nil {
			return nil, err
		}
		if current, err = NewFilterNode(b.id("Filter"), current, where, p.functions); err != nil {
			return nil, err
		}
	}

	groupBy, err := b.normalizeAll(a.GroupBy)
	if err != nil {
		return nil, err
	}
	selects, err := b.expandSelects(a.Projection, current, len(groupBy) > 0)
	if err != nil {
		return nil, err
	}
	// Keys are validated against the selects as written, before any
	// synthetic columns are substituted.
	written := make([]expr.SelectItem, len(selects))
	for i, s := range selects {
		written[i] = &expr.SingleColumn{Expression: s.Expression, Alias: s.Alias}
	}

	if p.hasCall(selects, p.functions.IsTableFunction) {
		flatMap, err := NewFlatMapNode(b.id("FlatMap"), current, expressions(selects), p.functions)
		if err != nil {
			return nil, err
		}
		resolveSelects(flatMap, selects)
		current = flatMap
	}

	if a.PartitionBy != nil {
		partitionBy, err := b.normalize(a.PartitionBy)
		if err != nil {
			return nil, err
		}
		if current, err = NewPartitionByNode(b.id("PartitionBy"), current, partitionBy, p.functions); err != nil {
			return nil, err
		}
	}

	switch {
	case len(groupBy) > 0 || p.hasCall(selects, p.functions.IsAggregate):
		aggregate, err := NewAggregateNode(b.id("Aggregate"), current, groupBy, expressions(selects), a.Window, p.functions)
		if err != nil {
			return nil, err
		}
		resolveSelects(aggregate, selects)
		current = aggregate
	case a.Window != nil:
		return nil, qerrors.PlanErrorf("WINDOW clause requires a GROUP BY clause")
	}

	project, err := NewProjectNode(b.id("Project"), current, selects, p.functions)
	if err != nil {
		return nil, err
	}

	output, err := NewOutputNode(b.id("Output"), project, a.Into, expr.NewProjection(written...), p.queryID(a.Into, project))
	if err != nil {
		return nil, err
	}

	if p.logger.Enabled(slog.LevelDebug) {
		p.logger.Debug("plan built",
			log.String("query_id", output.QueryID),
			log.String("output_type", output.NodeOutputType().String()),
			log.String("plan", ExplainPlan(output)))
	}
	return output, nil
}

// queryID names a transient query uniquely and a persistent one after the
// statement kind and sink.
func (p *LogicalPlanner) queryID(sink schema.SourceName, project PlanNode) string {
	if sink == "" {
		return "transient_" + uuid.NewString()
	}
	prefix := "CSAS"
	if project.NodeOutputType() == Table {
		prefix = "CTAS"
	}
	return fmt.Sprintf("%s_%s_%d", prefix, sink, p.queries.Add(1)-1)
}

func (p *LogicalPlanner) hasCall(selects []SelectExpression, match func(string) bool) bool {
	return slices.ContainsFunc(selects, func(s SelectExpression) bool {
		return len(expr.FunctionCalls(s.Expression, func(c *expr.FunctionCall) bool { return match(c.Name) })) > 0
	})
}

// planBuilder holds the state of one BuildPlan call.
type planBuilder struct {
	functions *function.Registry
	ids       map[string]int
	windowed  bool

	// left and right are the aliased sources in scope; right is set for joins.
	left, right *DataSourceNode
}

// id returns the next node id for kind: the kind itself, then kind_1, kind_2.
func (b *planBuilder) id(kind string) PlanNodeID {
	n := b.ids[kind]
	b.ids[kind] = n + 1
	if n == 0 {
		return PlanNodeID(kind)
	}
	return PlanNodeID(fmt.Sprintf("%s_%d", kind, n))
}

func (b *planBuilder) buildSource(a *Analysis) (PlanNode, error) {
	left, err := NewDataSourceNode(b.id("Source"), a.From.Source, a.From.alias())
	if err != nil {
		return nil, err
	}
	b.left = left
	if a.Join == nil {
		return left, nil
	}

	right, err := NewDataSourceNode(b.id("Source"), a.Join.Right.Source, a.Join.Right.alias())
	if err != nil {
		return nil, err
	}
	b.right = right

	leftProject, err := NewPreJoinProjectNode(b.id("PreJoinProject"), left, left.Alias)
	if err != nil {
		return nil, err
	}
	rightProject, err := NewPreJoinProjectNode(b.id("PreJoinProject"), right, right.Alias)
	if err != nil {
		return nil, err
	}
	leftKey, err := b.normalize(a.Join.LeftKey)
	if err != nil {
		return nil, err
	}
	rightKey, err := b.normalize(a.Join.RightKey)
	if err != nil {
		return nil, err
	}
	return NewJoinNode(b.id("Join"), a.Join.Type, leftProject, rightProject, leftKey, rightKey, b.functions)
}

// normalize resolves the qualifiers of column references in e. With one
// source the qualifier is dropped; in a join each reference is renamed to its
// prefixed join column.
func (b *planBuilder) normalize(e expr.Expression) (expr.Expression, error) {
	var err error
	normalized := expr.Rewrite(e, func(node expr.Expression) (expr.Expression, bool) {
		ref, ok := node.(*expr.ColumnReference)
		if !ok || err != nil {
			return nil, false
		}
		var resolved expr.Expression
		resolved, err = b.resolveReference(ref)
		return resolved, err == nil
	})
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

func (b *planBuilder) normalizeAll(es []expr.Expression) ([]expr.Expression, error) {
	out := make([]expr.Expression, len(es))
	for i, e := range es {
		n, err := b.normalize(e)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (b *planBuilder) resolveReference(ref *expr.ColumnReference) (expr.Expression, error) {
	if b.right == nil {
		if ref.IsQualified() && ref.Qualifier != b.left.Alias {
			return nil, qerrors.ColumnNotFoundError(string(ref.Name), string(ref.Qualifier))
		}
		return expr.Column(ref.Name), nil
	}

	if ref.IsQualified() {
		for _, side := range []*DataSourceNode{b.left, b.right} {
			if ref.Qualifier == side.Alias {
				return expr.Column(JoinColumnName(side.Alias, ref.Name)), nil
			}
		}
		return nil, qerrors.ColumnNotFoundError(string(ref.Name), string(ref.Qualifier))
	}

	if b.windowed && schema.IsWindowBound(ref.Name) {
		return ref, nil
	}
	_, inLeft := b.left.Schema().FindColumn(ref.Name)
	_, inRight := b.right.Schema().FindColumn(ref.Name)
	switch {
	case inLeft && inRight:
		return nil, qerrors.AmbiguousColumnError(string(ref.Name))
	case inLeft:
		return expr.Column(JoinColumnName(b.left.Alias, ref.Name)), nil
	case inRight:
		return expr.Column(JoinColumnName(b.right.Alias, ref.Name)), nil
	default:
		return nil, qerrors.ColumnNotFoundError(string(ref.Name), "")
	}
}

// expandSelects turns the select list into named expressions, expanding
// stars through source. Unaliased expressions other than column references
// are named KSQL_COL_<position>.
func (b *planBuilder) expandSelects(projection *expr.Projection, source PlanNode, grouped bool) ([]SelectExpression, error) {
	var selects []SelectExpression
	for _, item := range projection.Items() {
		switch item := item.(type) {
		case *expr.AllColumns:
			if grouped {
				return nil, qerrors.GroupingErrorf("SELECT * is not supported in aggregate queries")
			}
			qualifier := types.None[schema.SourceName]()
			if item.Source != "" {
				if !b.inScope(item.Source) {
					return nil, qerrors.SourceNotFoundError(string(item.Source))
				}
				qualifier = types.Some(item.Source)
			}
			for name := range source.ResolveSelectStar(qualifier) {
				selects = append(selects, SelectExpression{Alias: name, Expression: expr.Column(name)})
			}

		case *expr.SingleColumn:
			e, err := b.normalize(item.Expression)
			if err != nil {
				return nil, err
			}
			alias := item.Alias
			if alias == "" {
				if ref, ok := e.(*expr.ColumnReference); ok {
					alias = ref.Name
				} else {
					alias = schema.ColumnName(fmt.Sprintf("KSQL_COL_%d", len(selects)))
				}
			}
			selects = append(selects, SelectExpression{Alias: alias, Expression: e})
		}
	}
	return selects, nil
}

func (b *planBuilder) inScope(name schema.SourceName) bool {
	return name == b.left.Alias || (b.right != nil && name == b.right.Alias)
}

func expressions(selects []SelectExpression) []expr.Expression {
	es := make([]expr.Expression, len(selects))
	for i, s := range selects {
		es[i] = s.Expression
	}
	return es
}

// resolveSelects rewrites each select in place to match node's schema.
func resolveSelects(node PlanNode, selects []SelectExpression) {
	for i := range selects {
		selects[i].Expression = node.ResolveSelect(i, selects[i].Expression)
	}
}
