package types

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	qerrors "github.com/onisimchukv/ksql/internal/errors"
)

// Array is ARRAY<T>: an ordered, zero-based repetition of one item type.
type Array struct {
	item SqlType
	hash uint64
}

// ArrayOf creates ARRAY<item>.
func ArrayOf(item SqlType) *Array {
	a := &Array{item: item}
	a.hash = hashOf(a)
	return a
}

// ItemType returns the element type.
func (a *Array) ItemType() SqlType { return a.item }

func (a *Array) BaseType() BaseType { return BaseArray }

func (a *Array) ValidateValue(value any) error {
	return a.validate(value, defaultValidateConfig)
}

// validate stops at the first failing element and reports its 1-based position.
func (a *Array) validate(value any, cfg *validateConfig) error {
	if isNull(value) {
		return nil
	}
	list, ok := value.([]any)
	if !ok {
		_, name := baseTypeOf(value)
		return qerrors.TypeMismatchError(BaseArray.String(), name)
	}
	for i, elem := range list {
		if err := a.item.validate(elem, cfg); err != nil {
			return qerrors.WrapDataError(fmt.Sprintf("ARRAY element %d", i+1), err)
		}
	}
	return nil
}

func (a *Array) Equals(other SqlType) bool {
	o, ok := other.(*Array)
	return ok && a.item.Equals(o.item)
}

func (a *Array) Hash() uint64 { return a.hash }

func (a *Array) String() string {
	return "ARRAY<" + a.item.String() + ">"
}

func (a *Array) writeKey(sb *strings.Builder) {
	sb.WriteString("ARRAY<")
	a.item.writeKey(sb)
	sb.WriteByte('>')
}

// Map is MAP<STRING, V>. The key type is always STRING.
type Map struct {
	value SqlType
	hash  uint64
}

// MapOf creates MAP<STRING, value>.
func MapOf(value SqlType) *Map {
	m := &Map{value: value}
	m.hash = hashOf(m)
	return m
}

// KeyType returns the key type, which is always STRING.
func (m *Map) KeyType() SqlType { return String }

// ValueType returns the value type.
func (m *Map) ValueType() SqlType { return m.value }

func (m *Map) BaseType() BaseType { return BaseMap }

func (m *Map) ValidateValue(value any) error {
	return m.validate(value, defaultValidateConfig)
}

// validate visits keys in sorted order so the reported error is deterministic.
func (m *Map) validate(value any, cfg *validateConfig) error {
	if isNull(value) {
		return nil
	}
	entries, ok := value.(map[string]any)
	if !ok {
		_, name := baseTypeOf(value)
		return qerrors.TypeMismatchError(BaseMap.String(), name)
	}
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		if err := m.value.validate(entries[key], cfg); err != nil {
			return qerrors.WrapDataError(fmt.Sprintf("MAP value for key '%s'", key), err)
		}
	}
	return nil
}

func (m *Map) Equals(other SqlType) bool {
	o, ok := other.(*Map)
	return ok && m.value.Equals(o.value)
}

func (m *Map) Hash() uint64 { return m.hash }

func (m *Map) String() string {
	return "MAP<STRING, " + m.value.String() + ">"
}

func (m *Map) writeKey(sb *strings.Builder) {
	sb.WriteString("MAP<STRING,")
	m.value.writeKey(sb)
	sb.WriteByte('>')
}
