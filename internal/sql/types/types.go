package types

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	qerrors "github.com/onisimchukv/ksql/internal/errors"
)

// BaseType is the discriminant of a SqlType.
type BaseType int

const (
	BaseInvalid BaseType = iota
	BaseBoolean
	BaseInt
	BaseBigInt
	BaseDecimal
	BaseDouble
	BaseString
	BaseArray
	BaseMap
	BaseStruct
)

func (b BaseType) String() string {
	switch b {
	case BaseBoolean:
		return "BOOLEAN"
	case BaseInt:
		return "INT"
	case BaseBigInt:
		return "BIGINT"
	case BaseDecimal:
		return "DECIMAL"
	case BaseDouble:
		return "DOUBLE"
	case BaseString:
		return "STRING"
	case BaseArray:
		return "ARRAY"
	case BaseMap:
		return "MAP"
	case BaseStruct:
		return "STRUCT"
	default:
		return fmt.Sprintf("Unknown(%d)", int(b))
	}
}

// IsNumber returns true for the numeric base types.
func (b BaseType) IsNumber() bool {
	switch b {
	case BaseInt, BaseBigInt, BaseDecimal, BaseDouble:
		return true
	default:
		return false
	}
}

// SqlType is a SQL type: one of *Primitive, *Decimal, *Array, *Map or *Struct.
//
// The set is closed; values are immutable and may be shared freely between
// goroutines. Equality is structural.
type SqlType interface {
	// BaseType returns the type's discriminant.
	BaseType() BaseType
	// ValidateValue checks that value conforms to the type. A nil value always
	// conforms.
	ValidateValue(value any) error
	// Equals reports structural equality.
	Equals(other SqlType) bool
	// Hash is consistent with Equals.
	Hash() uint64
	// String renders the canonical type syntax, e.g. ARRAY<BIGINT>.
	String() string

	validate(value any, cfg *validateConfig) error
	writeKey(sb *strings.Builder)
}

// Equal reports whether a and b are structurally equal. Two nil types are equal.
func Equal(a, b SqlType) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equals(b)
}

// hashOf hashes the canonical key of t. Struct keys list fields sorted by name
// so the hash ignores declaration order, as Equals does.
func hashOf(t SqlType) uint64 {
	var sb strings.Builder
	t.writeKey(&sb)
	return xxhash.Sum64String(sb.String())
}

// Primitive is a scalar type without parameters.
type Primitive struct {
	base BaseType
	hash uint64
}

// Interned primitive types.
var (
	Boolean = newPrimitive(BaseBoolean)
	Int     = newPrimitive(BaseInt)
	BigInt  = newPrimitive(BaseBigInt)
	Double  = newPrimitive(BaseDouble)
	String  = newPrimitive(BaseString)
)

func newPrimitive(base BaseType) *Primitive {
	p := &Primitive{base: base}
	p.hash = hashOf(p)
	return p
}

// PrimitiveOf returns the interned primitive for base.
func PrimitiveOf(base BaseType) (*Primitive, error) {
	switch base {
	case BaseBoolean:
		return Boolean, nil
	case BaseInt:
		return Int, nil
	case BaseBigInt:
		return BigInt, nil
	case BaseDouble:
		return Double, nil
	case BaseString:
		return String, nil
	default:
		return nil, qerrors.InvalidTypeDefinitionError("Invalid primitive type: %s", base)
	}
}

func (p *Primitive) BaseType() BaseType { return p.base }

func (p *Primitive) ValidateValue(value any) error {
	return p.validate(value, defaultValidateConfig)
}

func (p *Primitive) validate(value any, _ *validateConfig) error {
	if isNull(value) {
		return nil
	}
	actual, name := baseTypeOf(value)
	if actual != p.base {
		return qerrors.TypeMismatchError(p.base.String(), name)
	}
	return nil
}

func (p *Primitive) Equals(other SqlType) bool {
	o, ok := other.(*Primitive)
	return ok && o.base == p.base
}

func (p *Primitive) Hash() uint64 { return p.hash }

func (p *Primitive) String() string { return p.base.String() }

func (p *Primitive) writeKey(sb *strings.Builder) { sb.WriteString(p.base.String()) }
