package planner

import (
	"fmt"
	"iter"
	"strings"

	qerrors "github.com/onisimchukv/ksql/internal/errors"
	"github.com/onisimchukv/ksql/internal/sql/expr"
	"github.com/onisimchukv/ksql/internal/sql/function"
	"github.com/onisimchukv/ksql/internal/sql/schema"
	"github.com/onisimchukv/ksql/internal/sql/types"
)

// DataSource is a stream or table registered with the engine.
type DataSource struct {
	Name     schema.SourceName
	Type     OutputType
	Schema   *schema.LogicalSchema
	Windowed bool
}

// DataSourceNode reads a data source. It is the only leaf kind.
type DataSourceNode struct {
	basePlan
	Source DataSource
	Alias  schema.SourceName
}

// NewDataSourceNode creates a source node. Its schema carries ROWTIME, the key
// columns and any window bounds in the value. An empty alias defaults to the
// source name.
func NewDataSourceNode(id PlanNodeID, source DataSource, alias schema.SourceName) (*DataSourceNode, error) {
	if source.Schema == nil {
		return nil, qerrors.PlanErrorf("Source '%s' has no schema", source.Name)
	}
	for _, c := range source.Schema.Columns() {
		if schema.IsSystemColumn(c.Name) {
			return nil, qerrors.PlanErrorf("'%s' is a reserved column name. Source '%s' cannot use it.", c.Name, source.Name)
		}
	}
	if source.Type == Table && len(source.Schema.Key()) == 0 {
		return nil, qerrors.PlanErrorf("Table '%s' has no primary key column", source.Name)
	}
	if alias == "" {
		alias = source.Name
	}

	return &DataSourceNode{
		basePlan: basePlan{
			id:         id,
			outputType: source.Type,
			schema:     source.Schema.WithPseudoAndKeyColsInValue(source.Windowed),
			sourceName: alias,
		},
		Source: source,
		Alias:  alias,
	}, nil
}

func (n *DataSourceNode) String() string {
	if n.Alias != n.Source.Name {
		return fmt.Sprintf("Source(%s AS %s, %s)", n.Source.Name, n.Alias, n.outputType)
	}
	return fmt.Sprintf("Source(%s, %s)", n.Source.Name, n.outputType)
}

// ResolveSelectStar ignores the qualifier: the parent has already matched it.
func (n *DataSourceNode) ResolveSelectStar(types.Optional[schema.SourceName]) iter.Seq[schema.ColumnName] {
	return columnNames(OrderColumns(n.schema.Value(), n.schema))
}

// ValidateKeyPresent requires a table's primary key columns in the projection.
func (n *DataSourceNode) ValidateKeyPresent(sink schema.SourceName, projection *expr.Projection) error {
	if n.outputType != Table {
		return nil
	}
	if missing := missingKeys(projection, keyReferences(n.Source.Schema)); len(missing) > 0 {
		return keysNotIncludedError(sink, "primary key column", missing, "and")
	}
	return nil
}

// FilterNode drops rows failing a predicate.
type FilterNode struct {
	basePlan
	Predicate expr.Expression
}

// NewFilterNode creates a filter. The predicate must be BOOLEAN.
func NewFilterNode(id PlanNodeID, source PlanNode, predicate expr.Expression, functions *function.Registry) (*FilterNode, error) {
	t, err := typeOf(predicate, source.Schema(), functions)
	if err != nil {
		return nil, err
	}
	if !t.Equals(types.Boolean) {
		return nil, qerrors.DatatypeMismatchError(
			"Type error in WHERE expression: Should evaluate to boolean but is %s (%s) instead.", predicate, t)
	}

	return &FilterNode{
		basePlan:  passThrough(id, source, source.Schema()),
		Predicate: predicate,
	}, nil
}

// Source returns the filtered node.
func (n *FilterNode) Source() PlanNode { return n.children[0] }

func (n *FilterNode) String() string {
	return fmt.Sprintf("Filter(%s)", n.Predicate.String())
}

// SelectExpression is a resolved select item: an expression and the name of
// the column it produces.
type SelectExpression struct {
	Alias      schema.ColumnName
	Expression expr.Expression
}

func (s SelectExpression) String() string {
	rendered := s.Expression.String()
	if rendered == string(s.Alias) {
		return rendered
	}
	return rendered + " AS " + string(s.Alias)
}

// ProjectNode computes the select list. Key columns pass through from the
// source; the value holds one column per select expression.
type ProjectNode struct {
	basePlan
	Selects []SelectExpression
}

// NewProjectNode creates a projection. Aliases must be unique.
func NewProjectNode(id PlanNodeID, source PlanNode, selects []SelectExpression, functions *function.Registry) (*ProjectNode, error) {
	if len(selects) == 0 {
		return nil, qerrors.PlanErrorf("The projection contains no columns")
	}

	b := schema.NewBuilder().KeyColumns(source.Schema().Key())
	for _, s := range selects {
		t, err := typeOf(s.Expression, source.Schema(), functions)
		if err != nil {
			return nil, err
		}
		b.ValueColumn(s.Alias, t)
	}
	projected, err := b.Build()
	if err != nil {
		return nil, err
	}

	return &ProjectNode{
		basePlan: passThrough(id, source, projected),
		Selects:  selects,
	}, nil
}

// Source returns the projected node.
func (n *ProjectNode) Source() PlanNode { return n.children[0] }

func (n *ProjectNode) String() string {
	parts := make([]string, len(n.Selects))
	for i, s := range n.Selects {
		parts[i] = s.String()
	}
	return fmt.Sprintf("Project(%s)", strings.Join(parts, ", "))
}

// FlatMapNode applies table functions, producing one row per output element.
// Each distinct call becomes a KSQL_SYNTH_<n> value column.
type FlatMapNode struct {
	basePlan
	TableFunctions []*expr.FunctionCall
	functions      []function.TableFunction
	synthetic      map[string]schema.ColumnName
}

// NewFlatMapNode creates a flat map over the table function calls found in
// the select expressions.
func NewFlatMapNode(id PlanNodeID, source PlanNode, selects []expr.Expression, functions *function.Registry) (*FlatMapNode, error) {
	n := &FlatMapNode{synthetic: make(map[string]schema.ColumnName)}
	b := source.Schema().AsBuilder()

	isTableFunction := func(c *expr.FunctionCall) bool { return functions.IsTableFunction(c.Name) }
	for _, e := range selects {
		for _, call := range expr.FunctionCalls(e, isTableFunction) {
			key := call.String()
			if _, seen := n.synthetic[key]; seen {
				continue
			}
			argTypes, err := argumentTypes(call, source.Schema(), functions)
			if err != nil {
				return nil, err
			}
			fn, err := functions.TableFunction(call.Name, argTypes)
			if err != nil {
				return nil, err
			}
			name := schema.ColumnName(fmt.Sprintf("KSQL_SYNTH_%d", len(n.TableFunctions)))
			n.synthetic[key] = name
			n.TableFunctions = append(n.TableFunctions, call)
			n.functions = append(n.functions, fn)
			b.ValueColumn(name, fn.ReturnType())
		}
	}
	if len(n.TableFunctions) == 0 {
		return nil, qerrors.InternalErrorf("Flat map requires at least one table function")
	}

	flattened, err := b.Build()
	if err != nil {
		return nil, err
	}
	n.basePlan = passThrough(id, source, flattened)
	return n, nil
}

// Source returns the flattened node.
func (n *FlatMapNode) Source() PlanNode { return n.children[0] }

// Functions returns the resolved table functions, parallel to TableFunctions.
func (n *FlatMapNode) Functions() []function.TableFunction { return n.functions }

// ResolveSelect replaces table function calls with their synthetic columns.
func (n *FlatMapNode) ResolveSelect(_ int, e expr.Expression) expr.Expression {
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

func (n *FlatMapNode) String() string {
	parts := make([]string, len(n.TableFunctions))
	for i, call := range n.TableFunctions {
		parts[i] = fmt.Sprintf("%s AS %s", call, n.synthetic[call.String()])
	}
	return fmt.Sprintf("FlatMap(%s)", strings.Join(parts, ", "))
}

// PartitionByNode re-keys its source by an expression.
type PartitionByNode struct {
	basePlan
	PartitionBy expr.Expression
}

// NewPartitionByNode creates a re-partition. A column reference keeps its
// name as the new key; any other expression becomes KSQL_COL_0.
func NewPartitionByNode(id PlanNodeID, source PlanNode, partitionBy expr.Expression, functions *function.Registry) (*PartitionByNode, error) {
	t, err := typeOf(partitionBy, source.Schema(), functions)
	if err != nil {
		return nil, err
	}
	keyName := schema.ColumnName("KSQL_COL_0")
	if ref, ok := partitionBy.(*expr.ColumnReference); ok {
		keyName = ref.Name
	}

	rekeyed, err := schema.NewBuilder().
		KeyColumn(keyName, t).
		ValueColumns(source.Schema().Value()).
		Build()
	if err != nil {
		return nil, err
	}

	return &PartitionByNode{
		basePlan:    passThrough(id, source, rekeyed),
		PartitionBy: partitionBy,
	}, nil
}

// Source returns the re-keyed node.
func (n *PartitionByNode) Source() PlanNode { return n.children[0] }

// ValidateKeyPresent requires the partitioning expression in the projection.
// The source's own key requirements no longer apply.
func (n *PartitionByNode) ValidateKeyPresent(sink schema.SourceName, projection *expr.Projection) error {
	if !projection.ContainsExpression(n.PartitionBy) {
		return keysNotIncludedError(sink, "partitioning expression", []expr.Expression{n.PartitionBy}, "and")
	}
	return nil
}

func (n *PartitionByNode) String() string {
	return fmt.Sprintf("PartitionBy(%s)", n.PartitionBy.String())
}

// OutputNode is the root of a plan. A persistent query writes to Sink; a
// transient one has no sink and streams rows to its caller.
type OutputNode struct {
	basePlan
	Sink    schema.SourceName
	QueryID string
}

// NewOutputNode creates the root node. For a persistent query the source tree
// is checked for the key columns the sink needs.
func NewOutputNode(id PlanNodeID, source PlanNode, sink schema.SourceName, projection *expr.Projection, queryID string) (*OutputNode, error) {
	if sink != "" {
		if err := source.ValidateKeyPresent(sink, projection); err != nil {
			return nil, err
		}
	}

	base := passThrough(id, source, source.Schema())
	if sink != "" {
		base.sourceName = sink
	}
	return &OutputNode{
		basePlan: base,
		Sink:     sink,
		QueryID:  queryID,
	}, nil
}

// Source returns the node whose rows are emitted.
func (n *OutputNode) Source() PlanNode { return n.children[0] }

// IsPersistent reports whether the query writes to a sink.
func (n *OutputNode) IsPersistent() bool { return n.Sink != "" }

func (n *OutputNode) String() string {
	if n.Sink == "" {
		return "Output(TRANSIENT)"
	}
	return fmt.Sprintf("Output(%s, %s)", n.Sink, n.outputType)
}

// passThrough builds the header of a single-child node that keeps the
// child's output type and source name.
func passThrough(id PlanNodeID, source PlanNode, s *schema.LogicalSchema) basePlan {
	name, _ := source.SourceName()
	return basePlan{
		id:         id,
		outputType: source.NodeOutputType(),
		schema:     s,
		sourceName: name,
		children:   []PlanNode{source},
	}
}
