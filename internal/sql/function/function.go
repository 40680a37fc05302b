// Package function describes the aggregate and table functions the planner
// can call: their type contracts and their runtime behaviour.
package function

import (
	"sync/atomic"

	"github.com/onisimchukv/ksql/internal/sql/types"
)

// AggregateFunction is the schema contract of an aggregate bound to one
// argument type, plus a factory for its runtime state.
type AggregateFunction interface {
	// Name returns the upper-case function name.
	Name() string
	// InputType returns the argument type the function was resolved for, or
	// nil when it takes no argument.
	InputType() types.SqlType
	// AggregateType returns the type of the intermediate aggregate.
	AggregateType() types.SqlType
	// ReturnType returns the type of the final result.
	ReturnType() types.SqlType
	// New creates a runtime aggregator bound to ctx.
	New(ctx *AggregationContext) Aggregator
}

// Aggregator holds the runtime logic of an aggregate. Values follow the
// types package value model; a nil input is a SQL NULL.
type Aggregator interface {
	Initialize() any
	Aggregate(current, aggregate any) any
	Merge(a, b any) any
	Map(aggregate any) any
}

// TableFunction maps one input value to zero or more output rows.
type TableFunction interface {
	Name() string
	InputType() types.SqlType
	ReturnType() types.SqlType
	Apply(input any) []any
}

// Sequence is a monotonic counter. The zero value starts at 0.
type Sequence struct {
	next atomic.Int64
}

// Next returns the current value and advances the sequence.
func (s *Sequence) Next() int64 {
	return s.next.Add(1) - 1
}

// AggregationContext carries per-query state shared by the aggregators of
// one query execution. Contexts never share state with each other.
type AggregationContext struct {
	sequence *Sequence
}

// NewAggregationContext creates a context with a fresh sequence.
func NewAggregationContext() *AggregationContext {
	return &AggregationContext{sequence: &Sequence{}}
}

// Sequence returns the context's offset sequence.
func (c *AggregationContext) Sequence() *Sequence {
	return c.sequence
}
