package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindClassification(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind Kind
	}{
		{"type mismatch", TypeMismatchError("BIGINT", "INT"), KindData},
		{"bad decimal", InvalidTypeDefinitionError("DECIMAL precision must be >= 1"), KindPlan},
		{"duplicate column", DuplicateColumnError("key", "ID"), KindPlan},
		{"type syntax", TypeSyntaxError("ARRAY<", 6, "unexpected end of input"), KindPlan},
		{"internal", InternalErrorf("No source node in hierarchy"), KindInternal},
		{"row limit", RowLimitError(10), KindClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind())
			assert.Equal(t, tt.kind == KindData, IsDataError(tt.err))
			assert.Equal(t, tt.kind == KindPlan, IsPlanError(tt.err))
			assert.Equal(t, tt.kind == KindInternal, IsInternal(tt.err))
		})
	}
}

func TestMessageIsVerbatim(t *testing.T) {
	err := TypeMismatchError("BIGINT", "INT")
	assert.Equal(t, "Expected BIGINT, got INT", err.Error())
	assert.Equal(t, "Expected BIGINT, got INT (SQLSTATE 22000)", err.Verbose())
}

func TestWrapDataError(t *testing.T) {
	inner := TypeMismatchError("BIGINT", "INT")
	outer := WrapDataError("ARRAY element 2", inner)

	assert.Equal(t, "ARRAY element 2: Expected BIGINT, got INT", outer.Error())
	assert.True(t, IsDataError(outer))
	assert.ErrorIs(t, outer, inner)
}

func TestGetErrorThroughWrapping(t *testing.T) {
	base := DuplicateColumnError("value", "NAME")
	wrapped := fmt.Errorf("building schema: %w", base)

	got := GetError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, DuplicateColumn, got.Code)
	assert.True(t, IsPlanError(wrapped))
	assert.True(t, IsError(wrapped, DuplicateColumn))

	generic := GetError(fmt.Errorf("boom"))
	assert.Equal(t, InternalError, generic.Code)
	assert.Nil(t, GetError(nil))
}
