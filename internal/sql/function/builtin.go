package function

import (
	"github.com/onisimchukv/ksql/internal/sql/types"
)

// count counts non-null inputs, or every row when called without argument.
type count struct {
	input types.SqlType
}

func (f *count) Name() string                 { return "COUNT" }
func (f *count) InputType() types.SqlType     { return f.input }
func (f *count) AggregateType() types.SqlType { return types.BigInt }
func (f *count) ReturnType() types.SqlType    { return types.BigInt }

func (f *count) New(*AggregationContext) Aggregator {
	return &countAggregator{countRows: f.input == nil}
}

type countAggregator struct {
	countRows bool
}

func (a *countAggregator) Initialize() any { return int64(0) }

func (a *countAggregator) Aggregate(current, aggregate any) any {
	if current == nil && !a.countRows {
		return aggregate
	}
	return aggregate.(int64) + 1
}

func (a *countAggregator) Merge(x, y any) any { return x.(int64) + y.(int64) }

func (a *countAggregator) Map(aggregate any) any { return aggregate }

// sum adds numeric inputs, skipping nulls. The result keeps the input type.
type sum struct {
	input types.SqlType
}

func (f *sum) Name() string                 { return "SUM" }
func (f *sum) InputType() types.SqlType     { return f.input }
func (f *sum) AggregateType() types.SqlType { return f.input }
func (f *sum) ReturnType() types.SqlType    { return f.input }

func (f *sum) New(*AggregationContext) Aggregator {
	return &sumAggregator{base: f.input.BaseType()}
}

type sumAggregator struct {
	base types.BaseType
}

func (a *sumAggregator) Initialize() any {
	switch a.base {
	case types.BaseInt:
		return int32(0)
	case types.BaseBigInt:
		return int64(0)
	default:
		return float64(0)
	}
}

func (a *sumAggregator) Aggregate(current, aggregate any) any {
	if current == nil {
		return aggregate
	}
	return a.Merge(aggregate, current)
}

func (a *sumAggregator) Merge(x, y any) any {
	switch x := x.(type) {
	case int32:
		return x + y.(int32)
	case int64:
		return x + y.(int64)
	default:
		return x.(float64) + y.(float64)
	}
}

func (a *sumAggregator) Map(aggregate any) any { return aggregate }

// explode emits one row per element of an array.
type explode struct {
	input *types.Array
}

func (f *explode) Name() string              { return "EXPLODE" }
func (f *explode) InputType() types.SqlType  { return f.input }
func (f *explode) ReturnType() types.SqlType { return f.input.ItemType() }

func (f *explode) Apply(input any) []any {
	list, _ := input.([]any)
	return list
}
