package function

import (
	"github.com/onisimchukv/ksql/internal/sql/types"
)

const (
	seqField = "SEQ"
	valField = "VAL"
)

// latestByOffset returns the most recent value of a column by processing
// order. Its aggregate is STRUCT<SEQ BIGINT, VAL T>.
type latestByOffset struct {
	input     types.SqlType
	aggregate *types.Struct
}

func newLatestByOffset(input types.SqlType) *latestByOffset {
	return &latestByOffset{
		input: input,
		aggregate: types.MustStruct(
			types.Field{Name: seqField, Type: types.BigInt},
			types.Field{Name: valField, Type: input},
		),
	}
}

func (f *latestByOffset) Name() string                 { return "LATEST_BY_OFFSET" }
func (f *latestByOffset) InputType() types.SqlType     { return f.input }
func (f *latestByOffset) AggregateType() types.SqlType { return f.aggregate }
func (f *latestByOffset) ReturnType() types.SqlType    { return f.input }

func (f *latestByOffset) New(ctx *AggregationContext) Aggregator {
	return &latestAggregator{sequence: ctx.Sequence()}
}

type latestAggregator struct {
	sequence *Sequence
}

func (a *latestAggregator) entry(val any) types.StructValue {
	return types.StructValue{seqField: a.sequence.Next(), valField: val}
}

func (a *latestAggregator) Initialize() any {
	return a.entry(nil)
}

// Aggregate ignores nulls so the latest non-null value is kept.
func (a *latestAggregator) Aggregate(current, aggregate any) any {
	if current == nil {
		return aggregate
	}
	return a.entry(current)
}

// Merge keeps the entry with the higher sequence; ties keep a.
func (a *latestAggregator) Merge(x, y any) any {
	if seqOf(x) >= seqOf(y) {
		return x
	}
	return y
}

func (a *latestAggregator) Map(aggregate any) any {
	sv, _ := aggregate.(types.StructValue)
	return sv[valField]
}

func seqOf(aggregate any) int64 {
	sv, _ := aggregate.(types.StructValue)
	seq, _ := sv[seqField].(int64)
	return seq
}
