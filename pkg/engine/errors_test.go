package engine

import (
	"errors"
	"fmt"
	"testing"
)

func TestReconcileErrorRendering(t *testing.T) {
	err := Errorf(FailResolveNotFound, "site %q does not exist", "Global/USA").
		WithEntity("Global/USA")
	got := err.Error()
	want := `[resolve.not_found] site "Global/USA" does not exist (entity=Global/USA)`
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestReconcileErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewError(FailGatewayHTTP, "request failed", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestReconcileErrorIsMatchesKind(t *testing.T) {
	err := Errorf(FailTaskTimeout, "task did not finish")
	sentinel := &ReconcileError{Kind: FailTaskTimeout}
	if !errors.Is(err, sentinel) {
		t.Error("expected kind-based Is match")
	}
	other := &ReconcileError{Kind: FailTaskFailed}
	if errors.Is(err, other) {
		t.Error("kinds differ, Is must not match")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf(nil) = %q, want empty", got)
	}
	if got := KindOf(fmt.Errorf("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
	wrapped := fmt.Errorf("stage: %w", Errorf(FailPolicyDenied, "denied"))
	if got := KindOf(wrapped); got != FailPolicyDenied {
		t.Errorf("KindOf(wrapped) = %q, want %q", got, FailPolicyDenied)
	}
}

func TestSchemaKind(t *testing.T) {
	if !FailSchemaMissingRequired.SchemaKind() {
		t.Error("schema.missing_required is a schema kind")
	}
	if FailTaskFailed.SchemaKind() {
		t.Error("task.failed is not a schema kind")
	}
}

func TestFailureKindHelpers(t *testing.T) {
	if !IsNotFound(Errorf(FailResolveNotFound, "x")) {
		t.Error("IsNotFound")
	}
	if !IsTaskTimeout(Errorf(FailTaskTimeout, "x")) {
		t.Error("IsTaskTimeout")
	}
	if !IsTaskFailed(Errorf(FailTaskFailed, "x")) {
		t.Error("IsTaskFailed")
	}
	if !IsSchema(Errorf(FailSchemaEnumViolation, "x")) {
		t.Error("IsSchema")
	}
	if IsSchema(Errorf(FailGatewayHTTP, "x")) {
		t.Error("gateway error is not schema")
	}
}

func TestWithDetail(t *testing.T) {
	err := Errorf(FailTaskFailed, "failed").
		WithDetail("task_id", "t-1").
		WithDetail("progress", "stuck")
	if err.Details["task_id"] != "t-1" || err.Details["progress"] != "stuck" {
		t.Errorf("unexpected details: %#v", err.Details)
	}
}
