package function

import (
	"slices"
	"strings"

	qerrors "github.com/onisimchukv/ksql/internal/errors"
	"github.com/onisimchukv/ksql/internal/sql/types"
)

type aggregateFactory func(args []types.SqlType) (AggregateFunction, bool)

type tableFactory func(args []types.SqlType) (TableFunction, bool)

// Registry resolves function names and argument types to functions. A
// registry is read-only after construction and safe for concurrent use.
type Registry struct {
	aggregates map[string]aggregateFactory
	tables     map[string]tableFactory
}

// NewRegistry creates a registry holding the built-in functions.
func NewRegistry() *Registry {
	r := &Registry{
		aggregates: make(map[string]aggregateFactory),
		tables:     make(map[string]tableFactory),
	}

	latestInputs := []types.SqlType{types.Int, types.BigInt, types.Double, types.Boolean, types.String}
	r.aggregates["LATEST_BY_OFFSET"] = func(args []types.SqlType) (AggregateFunction, bool) {
		if len(args) != 1 || !slices.ContainsFunc(latestInputs, args[0].Equals) {
			return nil, false
		}
		return newLatestByOffset(args[0]), true
	}

	r.aggregates["COUNT"] = func(args []types.SqlType) (AggregateFunction, bool) {
		switch len(args) {
		case 0:
			return &count{}, true
		case 1:
			return &count{input: args[0]}, true
		default:
			return nil, false
		}
	}

	r.aggregates["SUM"] = func(args []types.SqlType) (AggregateFunction, bool) {
		if len(args) != 1 {
			return nil, false
		}
		switch args[0].BaseType() {
		case types.BaseInt, types.BaseBigInt, types.BaseDouble:
			return &sum{input: args[0]}, true
		default:
			return nil, false
		}
	}

	r.tables["EXPLODE"] = func(args []types.SqlType) (TableFunction, bool) {
		if len(args) != 1 {
			return nil, false
		}
		arr, ok := args[0].(*types.Array)
		if !ok {
			return nil, false
		}
		return &explode{input: arr}, true
	}

	return r
}

// IsAggregate reports whether name is an aggregate function.
func (r *Registry) IsAggregate(name string) bool {
	_, ok := r.aggregates[strings.ToUpper(name)]
	return ok
}

// IsTableFunction reports whether name is a table function.
func (r *Registry) IsTableFunction(name string) bool {
	_, ok := r.tables[strings.ToUpper(name)]
	return ok
}

// Aggregate resolves an aggregate function for the given argument types.
func (r *Registry) Aggregate(name string, args []types.SqlType) (AggregateFunction, error) {
	name = strings.ToUpper(name)
	factory, ok := r.aggregates[name]
	if !ok {
		return nil, qerrors.FunctionNotFoundError(name)
	}
	fn, ok := factory(args)
	if !ok {
		return nil, qerrors.FunctionArgumentsError(name, typeNames(args))
	}
	return fn, nil
}

// TableFunction resolves a table function for the given argument types.
func (r *Registry) TableFunction(name string, args []types.SqlType) (TableFunction, error) {
	name = strings.ToUpper(name)
	factory, ok := r.tables[name]
	if !ok {
		return nil, qerrors.FunctionNotFoundError(name)
	}
	fn, ok := factory(args)
	if !ok {
		return nil, qerrors.FunctionArgumentsError(name, typeNames(args))
	}
	return fn, nil
}

func typeNames(args []types.SqlType) []string {
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.String()
	}
	return names
}
