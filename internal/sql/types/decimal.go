package types

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"

	qerrors "github.com/onisimchukv/ksql/internal/errors"
)

// Decimal is DECIMAL(precision, scale): precision total significant digits,
// scale digits after the decimal point.
type Decimal struct {
	precision int
	scale     int
	hash      uint64
}

// DecimalOf creates a DECIMAL type. It fails unless 1 <= precision and
// 0 <= scale <= precision.
func DecimalOf(precision, scale int) (*Decimal, error) {
	if precision < 1 {
		return nil, qerrors.InvalidTypeDefinitionError("DECIMAL precision must be >= 1: %d", precision)
	}
	if scale < 0 {
		return nil, qerrors.InvalidTypeDefinitionError("DECIMAL scale must be >= 0: %d", scale)
	}
	if scale > precision {
		return nil, qerrors.InvalidTypeDefinitionError("DECIMAL precision must be >= scale: %d < %d", precision, scale)
	}
	d := &Decimal{precision: precision, scale: scale}
	d.hash = hashOf(d)
	return d, nil
}

// MustDecimal is DecimalOf for statically known parameters; it panics on error.
func MustDecimal(precision, scale int) *Decimal {
	d, err := DecimalOf(precision, scale)
	if err != nil {
		panic(err)
	}
	return d
}

// Precision returns the total number of significant digits.
func (d *Decimal) Precision() int { return d.precision }

// Scale returns the number of digits after the decimal point.
func (d *Decimal) Scale() int { return d.scale }

func (d *Decimal) BaseType() BaseType { return BaseDecimal }

func (d *Decimal) ValidateValue(value any) error {
	return d.validate(value, defaultValidateConfig)
}

// validate checks precision before scale.
func (d *Decimal) validate(value any, _ *validateConfig) error {
	if isNull(value) {
		return nil
	}
	dec, ok := asDecimal(value)
	if !ok {
		_, name := baseTypeOf(value)
		return qerrors.TypeMismatchError(BaseDecimal.String(), name)
	}
	if p := DecimalPrecision(dec); p != d.precision {
		return qerrors.DataErrorf("Expected %s, got precision %d", d, p).WithDataType(d.String())
	}
	if s := DecimalScale(dec); s != d.scale {
		return qerrors.DataErrorf("Expected %s, got scale %d", d, s).WithDataType(d.String())
	}
	return nil
}

func (d *Decimal) Equals(other SqlType) bool {
	o, ok := other.(*Decimal)
	return ok && o.precision == d.precision && o.scale == d.scale
}

func (d *Decimal) Hash() uint64 { return d.hash }

func (d *Decimal) String() string {
	return fmt.Sprintf("DECIMAL(%d, %d)", d.precision, d.scale)
}

func (d *Decimal) writeKey(sb *strings.Builder) { sb.WriteString(d.String()) }

// DecimalPrecision returns the number of digits in the coefficient of dec.
func DecimalPrecision(dec *apd.Decimal) int {
	return int(dec.NumDigits())
}

// DecimalScale returns the number of digits after the decimal point of dec.
func DecimalScale(dec *apd.Decimal) int {
	return int(-dec.Exponent)
}

// ParseDecimal parses s keeping its trailing zeros, so "12.50" has scale 2.
func ParseDecimal(s string) (*apd.Decimal, error) {
	dec, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, qerrors.InvalidTextRepresentationError(BaseDecimal.String(), s).WithCause(err)
	}
	return dec, nil
}

func asDecimal(value any) (*apd.Decimal, bool) {
	switch v := value.(type) {
	case *apd.Decimal:
		return v, v != nil
	case apd.Decimal:
		return &v, true
	default:
		return nil, false
	}
}
