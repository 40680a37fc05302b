package errors

// SQLSTATE codes used by the logical layer.
// Based on PostgreSQL error codes: https://www.postgresql.org/docs/current/errcodes-appendix.html
//
// The class of a code decides the error kind:
//   - class 22 is a data error (a value does not conform to its declared type)
//   - class 42 is a plan construction error (malformed type, schema or plan)
//   - class XX is an internal invariant violation

// Class 08 - Connection Exception
const (
	ProtocolViolation = "08P01"
)

// Class 22 - Data Exception
const (
	DataException             = "22000"
	NumericValueOutOfRange    = "22003"
	InvalidParameterValue     = "22023"
	InvalidTextRepresentation = "22P02"
)

// Class 42 - Syntax Error or Access Rule Violation
const (
	SyntaxErrorOrAccessRuleViolation = "42000"
	SyntaxError                      = "42601"
	InvalidColumnDefinition          = "42611"
	DuplicateColumn                  = "42701"
	AmbiguousColumn                  = "42702"
	UndefinedColumn                  = "42703"
	UndefinedObject                  = "42704"
	GroupingError                    = "42803"
	DatatypeMismatch                 = "42804"
	UndefinedFunction                = "42883"
	InvalidColumnReference           = "42P10"
	DuplicateObject                  = "42710"
)

// Class 54 - Program Limit Exceeded
const (
	ProgramLimitExceeded = "54000"
)

// Class XX - Internal Error
const (
	InternalError = "XX000"
)

// Kind is the coarse classification callers use to decide how an error is
// reported.
type Kind int

const (
	// KindUnknown is any error that does not carry a recognised SQLSTATE class.
	KindUnknown Kind = iota
	// KindData is a value that does not conform to its declared type.
	KindData
	// KindPlan is a failure while building types, schemas or plans.
	KindPlan
	// KindInternal is a violated invariant of the planner itself.
	KindInternal
	// KindClient is a malformed or oversized query response.
	KindClient
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindPlan:
		return "plan"
	case KindInternal:
		return "internal"
	case KindClient:
		return "client"
	default:
		return "unknown"
	}
}

// KindOf maps a SQLSTATE code to its error kind.
func KindOf(code string) Kind {
	if len(code) < 2 {
		return KindUnknown
	}
	switch code[:2] {
	case "22":
		return KindData
	case "42":
		return KindPlan
	case "XX":
		return KindInternal
	case "08", "54":
		return KindClient
	default:
		return KindUnknown
	}
}
