package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/onisimchukv/ksql/internal/errors"
)

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, "config.yaml", "log:\n  level: debug\n")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "log:\n  level: debug\n", string(data))
}

func TestKindAssertions(t *testing.T) {
	AssertDataError(t, qerrors.TypeMismatchError("INT", "STRING"), "Expected INT, got STRING")
	AssertPlanError(t, qerrors.DuplicateFieldError("F1"), "Duplicate field names found in STRUCT: 'F1'")
	AssertInternalError(t, qerrors.InternalErrorf("No source node in hierarchy"), "")
}

func TestMustMatch(t *testing.T) {
	MustMatch(t, []string{"ROWKEY", "NAME"}, []string{"ROWKEY", "NAME"})
}
