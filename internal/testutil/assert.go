package testutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	qerrors "github.com/onisimchukv/ksql/internal/errors"
)

// AssertDataError checks that err is a data validation error with the exact message.
func AssertDataError(t *testing.T, err error, message string) {
	t.Helper()
	assertKind(t, err, qerrors.KindData, message)
}

// AssertPlanError checks that err is a plan construction error with the exact message.
func AssertPlanError(t *testing.T, err error, message string) {
	t.Helper()
	assertKind(t, err, qerrors.KindPlan, message)
}

// AssertInternalError checks that err is an internal invariant violation.
func AssertInternalError(t *testing.T, err error, message string) {
	t.Helper()
	assertKind(t, err, qerrors.KindInternal, message)
}

// AssertClientError checks that err is a query response decoding error.
func AssertClientError(t *testing.T, err error, message string) {
	t.Helper()
	assertKind(t, err, qerrors.KindClient, message)
}

func assertKind(t *testing.T, err error, kind qerrors.Kind, message string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error %q, got nil", kind, message)
	}
	qErr := qerrors.GetError(err)
	if qErr.Kind() != kind {
		t.Fatalf("expected %s error, got %s error: %v", kind, qErr.Kind(), err)
	}
	if message != "" && err.Error() != message {
		t.Fatalf("expected message %q, got %q", message, err.Error())
	}
}

// MustMatch fails the test with a readable diff when want and got differ.
// Types with unexported fields are compared through their Equal method when
// they have one, which is how the SQL types compare structurally.
func MustMatch(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}
