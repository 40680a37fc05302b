package types

import (
	"maps"
	"regexp"
	"slices"
	"strings"

	qerrors "github.com/onisimchukv/ksql/internal/errors"
)

// Field is a named member of a STRUCT type.
type Field struct {
	Name string
	Type SqlType
}

func (f Field) String() string {
	return quoteFieldName(f.Name) + " " + f.Type.String()
}

// Struct is STRUCT<f1 T1, f2 T2, ...>. Field order is kept for rendering but
// does not take part in equality.
type Struct struct {
	fields []Field
	byName map[string]int
	hash   uint64
}

// StructBuilder accumulates the fields of a STRUCT type in declaration order.
type StructBuilder struct {
	fields []Field
}

// NewStructBuilder creates an empty builder.
func NewStructBuilder() *StructBuilder {
	return &StructBuilder{}
}

// Field appends a field.
func (b *StructBuilder) Field(name string, t SqlType) *StructBuilder {
	b.fields = append(b.fields, Field{Name: name, Type: t})
	return b
}

// Build creates the STRUCT type, failing on duplicate field names.
func (b *StructBuilder) Build() (*Struct, error) {
	return StructOf(b.fields...)
}

// StructOf creates a STRUCT type from fields.
func StructOf(fields ...Field) (*Struct, error) {
	s := &Struct{
		fields: slices.Clone(fields),
		byName: make(map[string]int, len(fields)),
	}
	for i, f := range s.fields {
		if f.Type == nil {
			return nil, qerrors.InvalidTypeDefinitionError("STRUCT field '%s' has no type", f.Name)
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, qerrors.DuplicateFieldError(f.Name)
		}
		s.byName[f.Name] = i
	}
	s.hash = hashOf(s)
	return s, nil
}

// MustStruct is StructOf for statically known fields; it panics on error.
func MustStruct(fields ...Field) *Struct {
	s, err := StructOf(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the fields in declaration order.
func (s *Struct) Fields() []Field {
	return slices.Clone(s.fields)
}

// Field looks a field up by name.
func (s *Struct) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

func (s *Struct) BaseType() BaseType { return BaseStruct }

func (s *Struct) ValidateValue(value any) error {
	return s.validate(value, defaultValidateConfig)
}

// validate checks declared fields in declaration order, stopping at the first
// failure. Missing fields are null and therefore valid.
func (s *Struct) validate(value any, cfg *validateConfig) error {
	if isNull(value) {
		return nil
	}
	sv, ok := value.(StructValue)
	if !ok {
		_, name := baseTypeOf(value)
		return qerrors.TypeMismatchError(BaseStruct.String(), name)
	}
	for _, f := range s.fields {
		if err := f.Type.validate(sv[f.Name], cfg); err != nil {
			return qerrors.WrapDataError("STRUCT field '"+f.Name+"'", err)
		}
	}
	if cfg.rejectUnknownFields {
		for _, name := range slices.Sorted(maps.Keys(sv)) {
			if _, known := s.byName[name]; !known {
				return qerrors.DataErrorf("STRUCT has unexpected field '%s'", name)
			}
		}
	}
	return nil
}

func (s *Struct) Equals(other SqlType) bool {
	o, ok := other.(*Struct)
	if !ok || len(o.fields) != len(s.fields) {
		return false
	}
	for _, f := range s.fields {
		of, ok := o.Field(f.Name)
		if !ok || !f.Type.Equals(of.Type) {
			return false
		}
	}
	return true
}

func (s *Struct) Hash() uint64 { return s.hash }

func (s *Struct) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.String()
	}
	return "STRUCT<" + strings.Join(parts, ", ") + ">"
}

func (s *Struct) writeKey(sb *strings.Builder) {
	sorted := slices.SortedFunc(slices.Values(s.fields), func(a, b Field) int {
		return strings.Compare(a.Name, b.Name)
	})
	sb.WriteString("STRUCT<")
	for i, f := range sorted {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(quoteFieldName(f.Name))
		sb.WriteByte(' ')
		f.Type.writeKey(sb)
	}
	sb.WriteByte('>')
}

var plainIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quoteFieldName back-quotes names the type parser could not read bare.
func quoteFieldName(name string) string {
	if plainIdentifier.MatchString(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
