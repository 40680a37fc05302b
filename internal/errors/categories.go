package errors

import "strings"

// Category-specific error constructors for the logical layer

// Data errors

// DataErrorf creates a data validation error.
func DataErrorf(format string, args ...interface{}) *Error {
	return Newf(DataException, format, args...)
}

// TypeMismatchError reports a value whose runtime kind differs from the declared type.
func TypeMismatchError(expected, actual string) *Error {
	return Newf(DataException, "Expected %s, got %s", expected, actual).
		WithDataType(expected)
}

// WrapDataError prefixes the message of a nested data error, keeping its code.
func WrapDataError(prefix string, inner error) *Error {
	code := DataException
	if qErr := asError(inner); qErr != nil {
		code = qErr.Code
	}
	return Newf(code, "%s: %s", prefix, inner.Error()).WithCause(inner)
}

// InvalidTextRepresentationError creates an invalid text representation error
func InvalidTextRepresentationError(dataType, value string) *Error {
	return Newf(InvalidTextRepresentation, "invalid input syntax for type %s: \"%s\"", dataType, value).
		WithDataType(dataType)
}

// Plan construction errors

// InvalidTypeDefinitionError reports a type that cannot be constructed, such as
// a DECIMAL with an impossible precision or scale.
func InvalidTypeDefinitionError(format string, args ...interface{}) *Error {
	return Newf(InvalidColumnDefinition, format, args...)
}

// TypeSyntaxError reports a type string that does not follow the canonical syntax.
func TypeSyntaxError(text string, pos int, msg string) *Error {
	return Newf(SyntaxError, "Failed to parse type '%s' at position %d: %s", text, pos, msg).
		WithDataType(text)
}

// DuplicateColumnError reports a repeated column inside one schema partition.
func DuplicateColumnError(namespace, columnName string) *Error {
	return Newf(DuplicateColumn, "Duplicate %s columns found in schema: %s", namespace, columnName).
		WithColumn(columnName)
}

// DuplicateFieldError reports a repeated field name inside a STRUCT type.
func DuplicateFieldError(fieldName string) *Error {
	return Newf(DuplicateColumn, "Duplicate field names found in STRUCT: '%s'", fieldName).
		WithColumn(fieldName)
}

// ColumnNotFoundError creates an undefined column error
func ColumnNotFoundError(columnName, sourceName string) *Error {
	if sourceName != "" {
		return Newf(UndefinedColumn, "Column '%s.%s' cannot be resolved.", sourceName, columnName).
			WithSource(sourceName).
			WithColumn(columnName)
	}
	return Newf(UndefinedColumn, "Column '%s' cannot be resolved.", columnName).
		WithColumn(columnName)
}

// AmbiguousColumnError creates an ambiguous column error
func AmbiguousColumnError(columnName string) *Error {
	return Newf(AmbiguousColumn, "Column '%s' is ambiguous.", columnName).
		WithColumn(columnName)
}

// FunctionNotFoundError reports an unknown function name.
func FunctionNotFoundError(funcName string) *Error {
	return Newf(UndefinedFunction, "Can't find any functions with the name '%s'", funcName)
}

// FunctionArgumentsError reports a known function called with argument types
// it has no variant for.
func FunctionArgumentsError(funcName string, argTypes []string) *Error {
	return Newf(UndefinedFunction, "Function '%s' does not accept parameters (%s).",
		funcName, strings.Join(argTypes, ", "))
}

// KeysNotIncludedError reports key expressions that a persistent query's
// projection must contain.
func KeysNotIncludedError(sinkName, message string) *Error {
	return New(InvalidColumnReference, message).WithSource(sinkName)
}

// DatatypeMismatchError reports operands whose types an operator cannot combine.
func DatatypeMismatchError(format string, args ...interface{}) *Error {
	return Newf(DatatypeMismatch, format, args...)
}

// GroupingErrorf reports a select expression that is neither aggregated nor
// grouped.
func GroupingErrorf(format string, args ...interface{}) *Error {
	return Newf(GroupingError, format, args...)
}

// SourceNotFoundError reports a qualifier that names no source in the query.
func SourceNotFoundError(sourceName string) *Error {
	return Newf(UndefinedObject, "Source '%s' does not exist in the query.", sourceName).
		WithSource(sourceName)
}

// PlanErrorf creates a generic plan construction error.
func PlanErrorf(format string, args ...interface{}) *Error {
	return Newf(SyntaxErrorOrAccessRuleViolation, format, args...)
}

// Client errors

// ProtocolErrorf reports a malformed query response.
func ProtocolErrorf(format string, args ...interface{}) *Error {
	return Newf(ProtocolViolation, format, args...)
}

// RowLimitError reports a batched result that exceeded its configured row limit.
func RowLimitError(limit int) *Error {
	return Newf(ProgramLimitExceeded,
		"Reached max number of rows that may be returned by executeQuery(). "+
			"Increase the limit via Options.ExecuteQueryMaxResultRows. Current limit: %d", limit)
}

// Internal errors

// InternalErrorf creates an internal invariant violation.
func InternalErrorf(format string, args ...interface{}) *Error {
	return Newf(InternalError, format, args...)
}
