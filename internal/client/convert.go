package client

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/apd/v3"
	"github.com/tidwall/gjson"

	qerrors "github.com/onisimchukv/ksql/internal/errors"
	"github.com/onisimchukv/ksql/internal/sql/types"
)

// converter turns JSON values into the Go value model of a column type.
//
// Decimals are checked for fit rather than validated: the wire form drops
// leading zeros, so a DECIMAL(5, 2) column legitimately carries 1.50.
type converter struct {
	rejectUnknownFields bool
}

// DecodeValue converts a single JSON document to the Go value model of t,
// applying the same checks as row decoding.
func DecodeValue(text string, t types.SqlType, strict bool) (any, error) {
	if !gjson.Valid(text) {
		return nil, qerrors.InvalidTextRepresentationError(t.String(), text)
	}
	return converter{rejectUnknownFields: strict}.convert(gjson.Parse(text), t)
}

func (c converter) convert(value gjson.Result, t types.SqlType) (any, error) {
	if value.Type == gjson.Null || !value.Exists() {
		return nil, nil
	}

	switch t := t.(type) {
	case *types.Primitive:
		return convertPrimitive(value, t.BaseType())
	case *types.Decimal:
		return convertDecimal(value, t)
	case *types.Array:
		if !value.IsArray() {
			return nil, mismatch(t, value)
		}
		elements := value.Array()
		out := make([]any, len(elements))
		for i, element := range elements {
			v, err := c.convert(element, t.ItemType())
			if err != nil {
				return nil, qerrors.WrapDataError(fmt.Sprintf("ARRAY element %d", i+1), err)
			}
			out[i] = v
		}
		return out, nil
	case *types.Map:
		if !value.IsObject() {
			return nil, mismatch(t, value)
		}
		out := make(map[string]any)
		var err error
		value.ForEach(func(key, entry gjson.Result) bool {
			var v any
			if v, err = c.convert(entry, t.ValueType()); err != nil {
				err = qerrors.WrapDataError(fmt.Sprintf("MAP value for key '%s'", key.Str), err)
				return false
			}
			out[key.Str] = v
			return true
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	case *types.Struct:
		if !value.IsObject() {
			return nil, mismatch(t, value)
		}
		out := make(types.StructValue)
		var err error
		value.ForEach(func(key, entry gjson.Result) bool {
			field, declared := t.Field(key.Str)
			if !declared {
				if c.rejectUnknownFields {
					err = qerrors.DataErrorf("STRUCT has unexpected field '%s'", key.Str)
					return false
				}
				return true
			}
			var v any
			if v, err = c.convert(entry, field.Type); err != nil {
				err = qerrors.WrapDataError(fmt.Sprintf("STRUCT field '%s'", key.Str), err)
				return false
			}
			out[key.Str] = v
			return true
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, qerrors.InternalErrorf("unsupported column type %T", t)
	}
}

func convertPrimitive(value gjson.Result, base types.BaseType) (any, error) {
	switch base {
	case types.BaseBoolean:
		if !value.IsBool() {
			return nil, qerrors.TypeMismatchError(base.String(), jsonKind(value))
		}
		return value.Bool(), nil
	case types.BaseInt:
		if value.Type != gjson.Number {
			return nil, qerrors.TypeMismatchError(base.String(), jsonKind(value))
		}
		n, err := strconv.ParseInt(value.Raw, 10, 32)
		if err != nil {
			return nil, qerrors.InvalidTextRepresentationError(base.String(), value.Raw).WithCause(err)
		}
		return int32(n), nil
	case types.BaseBigInt:
		if value.Type != gjson.Number {
			return nil, qerrors.TypeMismatchError(base.String(), jsonKind(value))
		}
		n, err := strconv.ParseInt(value.Raw, 10, 64)
		if err != nil {
			return nil, qerrors.InvalidTextRepresentationError(base.String(), value.Raw).WithCause(err)
		}
		return n, nil
	case types.BaseDouble:
		if value.Type != gjson.Number {
			return nil, qerrors.TypeMismatchError(base.String(), jsonKind(value))
		}
		return value.Float(), nil
	case types.BaseString:
		if value.Type != gjson.String {
			return nil, qerrors.TypeMismatchError(base.String(), jsonKind(value))
		}
		return value.Str, nil
	default:
		return nil, qerrors.InternalErrorf("unsupported primitive type %s", base)
	}
}

// convertDecimal accepts both JSON numbers and numeric strings. A value with
// fewer fraction digits than the column scale is padded with zeros.
func convertDecimal(value gjson.Result, t *types.Decimal) (any, error) {
	var text string
	switch value.Type {
	case gjson.Number:
		text = value.Raw
	case gjson.String:
		text = value.Str
	default:
		return nil, qerrors.TypeMismatchError(types.BaseDecimal.String(), jsonKind(value))
	}

	dec, err := types.ParseDecimal(text)
	if err != nil {
		return nil, err
	}
	if types.DecimalScale(dec) < t.Scale() {
		// Digits of the coefficient once the exponent is brought down to -scale.
		digits := int64(dec.NumDigits()) + int64(dec.Exponent) + int64(t.Scale())
		if !dec.IsZero() && digits > int64(t.Precision()) {
			return nil, qerrors.DataErrorf("Expected %s, got precision %d", t, digits).WithDataType(t.String())
		}
		padded := new(apd.Decimal)
		ctx := apd.BaseContext.WithPrecision(uint32(max(digits, 1)))
		if _, err := ctx.Quantize(padded, dec, -int32(t.Scale())); err != nil {
			return nil, qerrors.InvalidTextRepresentationError(t.String(), text).WithCause(err)
		}
		dec = padded
	}

	if scale := types.DecimalScale(dec); scale > t.Scale() {
		return nil, qerrors.DataErrorf("Expected %s, got scale %d", t, scale).WithDataType(t.String())
	}
	if precision := types.DecimalPrecision(dec); precision > t.Precision() {
		return nil, qerrors.DataErrorf("Expected %s, got precision %d", t, precision).WithDataType(t.String())
	}
	return dec, nil
}

func mismatch(t types.SqlType, value gjson.Result) error {
	return qerrors.TypeMismatchError(t.BaseType().String(), jsonKind(value))
}

// jsonKind names a JSON value the way type mismatch messages expect.
func jsonKind(value gjson.Result) string {
	switch value.Type {
	case gjson.True, gjson.False:
		return "BOOLEAN"
	case gjson.Number:
		return "NUMBER"
	case gjson.String:
		return "STRING"
	case gjson.JSON:
		if value.IsArray() {
			return "ARRAY"
		}
		return "OBJECT"
	default:
		return "NULL"
	}
}
