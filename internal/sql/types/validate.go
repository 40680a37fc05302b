package types

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// StructValue is the runtime representation of a STRUCT value: field name to
// field value. It is a distinct type so that it is never mistaken for a MAP.
type StructValue map[string]any

type validateConfig struct {
	rejectUnknownFields bool
}

var defaultValidateConfig = &validateConfig{}

// ValidateOption adjusts how Validate checks a value.
type ValidateOption func(*validateConfig)

// RejectUnknownFields makes STRUCT validation fail on fields that the type
// does not declare. By default such fields are ignored.
func RejectUnknownFields() ValidateOption {
	return func(c *validateConfig) {
		c.rejectUnknownFields = true
	}
}

// Validate checks value against t using opts. ValidateValue is Validate
// without options.
func Validate(t SqlType, value any, opts ...ValidateOption) error {
	if len(opts) == 0 {
		return t.validate(value, defaultValidateConfig)
	}
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return t.validate(value, cfg)
}

// ValidateOptional checks an optional value; an absent value always conforms.
func ValidateOptional(t SqlType, value Optional[any], opts ...ValidateOption) error {
	v, ok := value.Get()
	if !ok {
		return nil
	}
	return Validate(t, v, opts...)
}

// BaseTypeOf returns the base type a Go value represents, or BaseInvalid.
func BaseTypeOf(value any) BaseType {
	b, _ := baseTypeOf(value)
	return b
}

// baseTypeOf maps a Go value onto its base type. The name is used in error
// messages and falls back to the Go type for unsupported values.
func baseTypeOf(value any) (BaseType, string) {
	var b BaseType
	switch value.(type) {
	case bool:
		b = BaseBoolean
	case int32:
		b = BaseInt
	case int64:
		b = BaseBigInt
	case float64:
		b = BaseDouble
	case string:
		b = BaseString
	case *apd.Decimal, apd.Decimal:
		b = BaseDecimal
	case []any:
		b = BaseArray
	case map[string]any:
		b = BaseMap
	case StructValue:
		b = BaseStruct
	default:
		return BaseInvalid, fmt.Sprintf("%T", value)
	}
	return b, b.String()
}

// isNull treats typed nil containers the same as an untyped nil.
func isNull(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case *apd.Decimal:
		return v == nil
	case []any:
		return v == nil
	case map[string]any:
		return v == nil
	case StructValue:
		return v == nil
	default:
		return false
	}
}
