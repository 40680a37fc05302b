package planner

import (
	qerrors "github.com/onisimchukv/ksql/internal/errors"
)

// PlanVisitor is a pass over a plan tree with one method per node kind. C is
// the context threaded through the pass and R its result.
type PlanVisitor[C, R any] interface {
	VisitDataSource(node *DataSourceNode, ctx C) (R, error)
	VisitFilter(node *FilterNode, ctx C) (R, error)
	VisitProject(node *ProjectNode, ctx C) (R, error)
	VisitAggregate(node *AggregateNode, ctx C) (R, error)
	VisitFlatMap(node *FlatMapNode, ctx C) (R, error)
	VisitPreJoinProject(node *PreJoinProjectNode, ctx C) (R, error)
	VisitJoin(node *JoinNode, ctx C) (R, error)
	VisitPartitionBy(node *PartitionByNode, ctx C) (R, error)
	VisitOutput(node *OutputNode, ctx C) (R, error)
}

// Accept dispatches node to the visitor method for its kind.
func Accept[C, R any](node PlanNode, v PlanVisitor[C, R], ctx C) (R, error) {
	switch n := node.(type) {
	case *DataSourceNode:
		return v.VisitDataSource(n, ctx)
	case *FilterNode:
		return v.VisitFilter(n, ctx)
	case *ProjectNode:
		return v.VisitProject(n, ctx)
	case *AggregateNode:
		return v.VisitAggregate(n, ctx)
	case *FlatMapNode:
		return v.VisitFlatMap(n, ctx)
	case *PreJoinProjectNode:
		return v.VisitPreJoinProject(n, ctx)
	case *JoinNode:
		return v.VisitJoin(n, ctx)
	case *PartitionByNode:
		return v.VisitPartitionBy(n, ctx)
	case *OutputNode:
		return v.VisitOutput(n, ctx)
	default:
		var zero R
		return zero, qerrors.InternalErrorf("unsupported plan node %T", node)
	}
}

// QueryBuilder turns a plan into an executable form, one node at a time. S is
// the builder's representation of a built stream; every method receives the
// already built children of its node.
type QueryBuilder[S any] interface {
	BuildDataSource(node *DataSourceNode) (S, error)
	BuildFilter(node *FilterNode, source S) (S, error)
	BuildProject(node *ProjectNode, source S) (S, error)
	BuildAggregate(node *AggregateNode, source S) (S, error)
	BuildFlatMap(node *FlatMapNode, source S) (S, error)
	BuildPreJoinProject(node *PreJoinProjectNode, source S) (S, error)
	BuildJoin(node *JoinNode, left, right S) (S, error)
	BuildPartitionBy(node *PartitionByNode, source S) (S, error)
	BuildOutput(node *OutputNode, source S) (S, error)
}

// BuildStream builds node bottom-up with b.
func BuildStream[S any](node PlanNode, b QueryBuilder[S]) (S, error) {
	return Accept[QueryBuilder[S], S](node, streamBuilder[S]{}, b)
}

// streamBuilder builds the children of each node before the node itself.
type streamBuilder[S any] struct{}

func (streamBuilder[S]) source(node PlanNode, b QueryBuilder[S]) (S, error) {
	return BuildStream(node.Sources()[0], b)
}

func (streamBuilder[S]) VisitDataSource(node *DataSourceNode, b QueryBuilder[S]) (S, error) {
	return b.BuildDataSource(node)
}

func (v streamBuilder[S]) VisitFilter(node *FilterNode, b QueryBuilder[S]) (S, error) {
	source, err := v.source(node, b)
	if err != nil {
		return source, err
	}
	return b.BuildFilter(node, source)
}

func (v streamBuilder[S]) VisitProject(node *ProjectNode, b QueryBuilder[S]) (S, error) {
	source, err := v.source(node, b)
	if err != nil {
		return source, err
	}
	return b.BuildProject(node, source)
}

func (v streamBuilder[S]) VisitAggregate(node *AggregateNode, b QueryBuilder[S]) (S, error) {
	source, err := v.source(node, b)
	if err != nil {
		return source, err
	}
	return b.BuildAggregate(node, source)
}

func (v streamBuilder[S]) VisitFlatMap(node *FlatMapNode, b QueryBuilder[S]) (S, error) {
	source, err := v.source(node, b)
	if err != nil {
		return source, err
	}
	return b.BuildFlatMap(node, source)
}

func (v streamBuilder[S]) VisitPreJoinProject(node *PreJoinProjectNode, b QueryBuilder[S]) (S, error) {
	source, err := v.source(node, b)
	if err != nil {
		return source, err
	}
	return b.BuildPreJoinProject(node, source)
}

func (v streamBuilder[S]) VisitJoin(node *JoinNode, b QueryBuilder[S]) (S, error) {
	left, err := BuildStream[S](node.Left(), b)
	if err != nil {
		return left, err
	}
	right, err := BuildStream[S](node.Right(), b)
	if err != nil {
		return right, err
	}
	return b.BuildJoin(node, left, right)
}

func (v streamBuilder[S]) VisitPartitionBy(node *PartitionByNode, b QueryBuilder[S]) (S, error) {
	source, err := v.source(node, b)
	if err != nil {
		return source, err
	}
	return b.BuildPartitionBy(node, source)
}

func (v streamBuilder[S]) VisitOutput(node *OutputNode, b QueryBuilder[S]) (S, error) {
	source, err := v.source(node, b)
	if err != nil {
		return source, err
	}
	return b.BuildOutput(node, source)
}
