package planner

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	qerrors "github.com/onisimchukv/ksql/internal/errors"
	"github.com/onisimchukv/ksql/internal/sql/expr"
	"github.com/onisimchukv/ksql/internal/sql/schema"
	"github.com/onisimchukv/ksql/internal/sql/types"
)

// PlanNodeID identifies a node within one plan.
type PlanNodeID string

// OutputType is the kind of collection a node produces.
type OutputType int

const (
	Stream OutputType = iota
	Table
)

func (o OutputType) String() string {
	if o == Table {
		return "TABLE"
	}
	return "STREAM"
}

// PlanNode is a node of a logical plan. The set of node kinds is closed: every
// implementation lives in this package.
//
// Nodes are immutable once constructed and may be read from many goroutines.
type PlanNode interface {
	// ID returns the node's identifier.
	ID() PlanNodeID
	// NodeOutputType returns whether the node produces a stream or a table.
	NodeOutputType() OutputType
	// Schema returns the node's output schema.
	Schema() *schema.LogicalSchema
	// SourceName returns the name star qualifiers are matched against.
	SourceName() (schema.SourceName, bool)
	// Sources returns the child nodes in order.
	Sources() []PlanNode
	// ResolveSelectStar expands "*" or "qualifier.*" into column names. The
	// sequence is lazy and may be iterated more than once.
	ResolveSelectStar(qualifier types.Optional[schema.SourceName]) iter.Seq[schema.ColumnName]
	// ResolveSelect rewrites the select expression at index to match the
	// node's schema.
	ResolveSelect(index int, e expr.Expression) expr.Expression
	// ValidateKeyPresent checks that a persistent query's projection carries
	// the key expressions its sink needs.
	ValidateKeyPresent(sink schema.SourceName, projection *expr.Projection) error
	// String returns a one-line description for debugging.
	String() string

	header() *basePlan
}

// basePlan is the header every node embeds.
type basePlan struct {
	id         PlanNodeID
	outputType OutputType
	schema     *schema.LogicalSchema
	sourceName schema.SourceName
	children   []PlanNode
}

func (p *basePlan) header() *basePlan { return p }

func (p *basePlan) ID() PlanNodeID { return p.id }

func (p *basePlan) NodeOutputType() OutputType { return p.outputType }

func (p *basePlan) Schema() *schema.LogicalSchema { return p.schema }

func (p *basePlan) SourceName() (schema.SourceName, bool) {
	return p.sourceName, p.sourceName != ""
}

func (p *basePlan) Sources() []PlanNode {
	return slices.Clone(p.children)
}

// ResolveSelectStar concatenates the expansions of the children whose source
// name matches qualifier, in child order. Children without a source name are
// searched too.
func (p *basePlan) ResolveSelectStar(qualifier types.Optional[schema.SourceName]) iter.Seq[schema.ColumnName] {
	return func(yield func(schema.ColumnName) bool) {
		for _, child := range p.children {
			if want, ok := qualifier.Get(); ok {
				if name, has := child.SourceName(); has && name != want {
					continue
				}
			}
			for name := range child.ResolveSelectStar(qualifier) {
				if !yield(name) {
					return
				}
			}
		}
	}
}

func (p *basePlan) ResolveSelect(_ int, e expr.Expression) expr.Expression {
	return e
}

func (p *basePlan) ValidateKeyPresent(sink schema.SourceName, projection *expr.Projection) error {
	for _, child := range p.children {
		if err := child.ValidateKeyPresent(sink, projection); err != nil {
			return err
		}
	}
	return nil
}

// GetTheSourceNode follows the first child of each node down to the data
// source. A tree without one is a planner defect.
func GetTheSourceNode(node PlanNode) (*DataSourceNode, error) {
	for node != nil {
		if source, ok := node.(*DataSourceNode); ok {
			return source, nil
		}
		children := node.Sources()
		if len(children) == 0 {
			break
		}
		node = children[0]
	}
	return nil, qerrors.InternalErrorf("No source node in hierarchy")
}

// OrderColumns puts columns in the order clients expect: key columns, then
// window bounds, then the remaining value columns. Pseudo columns are dropped.
// Processing appends keys and window bounds at the tail of the value, which
// is why the reordering is needed.
func OrderColumns(columns []schema.Column, s *schema.LogicalSchema) []schema.Column {
	ordered := make([]schema.Column, 0, len(columns))
	for _, c := range columns {
		if s.IsKeyColumn(c.Name) {
			ordered = append(ordered, c)
		}
	}
	for _, c := range columns {
		if schema.IsWindowBound(c.Name) {
			ordered = append(ordered, c)
		}
	}
	for _, c := range columns {
		if !schema.IsWindowBound(c.Name) && !schema.IsPseudoColumn(c.Name) && !s.IsKeyColumn(c.Name) {
			ordered = append(ordered, c)
		}
	}
	return ordered
}

func columnNames(columns []schema.Column) iter.Seq[schema.ColumnName] {
	return func(yield func(schema.ColumnName) bool) {
		for _, c := range columns {
			if !yield(c.Name) {
				return
			}
		}
	}
}

// missingKeys returns the required expressions the projection lacks.
func missingKeys(projection *expr.Projection, required []expr.Expression) []expr.Expression {
	var missing []expr.Expression
	for _, e := range required {
		if !projection.ContainsExpression(e) {
			missing = append(missing, e)
		}
	}
	return missing
}

func keysNotIncludedError(sink schema.SourceName, keyType string, keys []expr.Expression, conjunction string) error {
	postfix := ""
	if len(keys) != 1 {
		postfix = "s"
	}
	rendered := make([]string, len(keys))
	for i, k := range keys {
		rendered[i] = k.String()
	}
	msg := fmt.Sprintf("The query used to build %s must include the %s%s %s in its projection.",
		sink, keyType, postfix, joinGrammatically(rendered, conjunction))
	return qerrors.KeysNotIncludedError(string(sink), msg)
}

// joinGrammatically renders "a", "a and b" or "a, b and c".
func joinGrammatically(items []string, conjunction string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		last := len(items) - 1
		return strings.Join(items[:last], ", ") + " " + conjunction + " " + items[last]
	}
}

// keyReferences returns unqualified references to the key columns of s.
func keyReferences(s *schema.LogicalSchema) []expr.Expression {
	key := s.Key()
	refs := make([]expr.Expression, len(key))
	for i, c := range key {
		refs[i] = expr.Column(c.Name)
	}
	return refs
}
