package engine

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind classifies a reconciliation error for reporting and for the
// executor's skip-dependents logic.
type FailureKind string

const (
	// FailSchemaMissingRequired reports a required field absent from input.
	FailSchemaMissingRequired FailureKind = "schema.missing_required"

	// FailSchemaTypeMismatch reports a field whose value cannot be coerced
	// to the schema type.
	FailSchemaTypeMismatch FailureKind = "schema.type_mismatch"

	// FailSchemaEnumViolation reports a value outside the field's choices.
	FailSchemaEnumViolation FailureKind = "schema.enum_violation"

	// FailSchemaDomainInvalid reports a domain validation failure
	// (IP address, VLAN range, duration suffix, site path).
	FailSchemaDomainInvalid FailureKind = "schema.domain_invalid"

	// FailSchemaCrossField reports an inter-field constraint violation.
	FailSchemaCrossField FailureKind = "schema.cross_field"

	// FailSchemaUnknownField reports a field the schema does not declare.
	FailSchemaUnknownField FailureKind = "schema.unknown_field"

	// FailResolveNotFound reports a natural key absent on the controller
	// when presence is required.
	FailResolveNotFound FailureKind = "resolve.not_found"

	// FailGatewayHTTP reports a transport failure or 5xx response.
	FailGatewayHTTP FailureKind = "gateway.http"

	// FailGatewayController reports a controller payload carrying an
	// errorcode or failureReason.
	FailGatewayController FailureKind = "gateway.controller_error"

	// FailTaskTimeout reports a task future that never reached a terminal
	// state within the configured timeout.
	FailTaskTimeout FailureKind = "task.timeout"

	// FailTaskFailed reports a task future that resolved with isError.
	FailTaskFailed FailureKind = "task.failed"

	// FailVerifyMismatch reports residual diffs found by config verify.
	FailVerifyMismatch FailureKind = "verify.mismatch"

	// FailVersionGate reports a controller below the feature's minimum
	// supported version.
	FailVersionGate FailureKind = "gateway.unsupported_version"

	// FailPolicyDenied reports a plan rejected by the policy gate.
	FailPolicyDenied FailureKind = "policy.denied"

	// FailPlaybookParse reports playbook input that is not valid YAML or
	// not shaped as a config document list.
	FailPlaybookParse FailureKind = "playbook.parse"
)

// SchemaKind reports whether the failure kind is a pre-flight schema error.
func (k FailureKind) SchemaKind() bool {
	return strings.HasPrefix(string(k), "schema.")
}

// ReconcileError is the classified error used across all pipeline stages.
type ReconcileError struct {
	// Kind is the failure classification.
	Kind FailureKind `json:"kind"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Entity is the natural key of the entity involved, if any.
	Entity string `json:"entity,omitempty"`

	// Operation is the gateway family.function or pipeline stage that
	// produced the error.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying cause.
	Err error `json:"-"`

	// Details carries machine-readable context for the report.
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ReconcileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Message)
	if e.Entity != "" {
		fmt.Fprintf(&b, " (entity=%s)", e.Entity)
	}
	if e.Operation != "" {
		fmt.Fprintf(&b, " (operation=%s)", e.Operation)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *ReconcileError) Unwrap() error {
	return e.Err
}

// Is matches on failure kind so callers can compare against sentinel
// *ReconcileError values.
func (e *ReconcileError) Is(target error) bool {
	t, ok := target.(*ReconcileError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates a classified reconciliation error.
func NewError(kind FailureKind, message string, err error) *ReconcileError {
	return &ReconcileError{Kind: kind, Message: message, Err: err}
}

// Errorf creates a classified error with a formatted message.
func Errorf(kind FailureKind, format string, args ...any) *ReconcileError {
	return &ReconcileError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithEntity attaches the entity natural key.
func (e *ReconcileError) WithEntity(naturalKey string) *ReconcileError {
	e.Entity = naturalKey
	return e
}

// WithOperation attaches the originating operation.
func (e *ReconcileError) WithOperation(op string) *ReconcileError {
	e.Operation = op
	return e
}

// WithDetail attaches a detail field.
func (e *ReconcileError) WithDetail(key string, value any) *ReconcileError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// KindOf returns the failure kind of err, or "" when err is not a
// ReconcileError.
func KindOf(err error) FailureKind {
	var e *ReconcileError
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsSchema reports whether err is a pre-flight schema error.
func IsSchema(err error) bool {
	return KindOf(err).SchemaKind()
}

// IsNotFound reports whether err is a resolve.not_found error.
func IsNotFound(err error) bool {
	return KindOf(err) == FailResolveNotFound
}

// IsTaskTimeout reports whether err is a task.timeout error.
func IsTaskTimeout(err error) bool {
	return KindOf(err) == FailTaskTimeout
}

// IsTaskFailed reports whether err is a task.failed error.
func IsTaskFailed(err error) bool {
	return KindOf(err) == FailTaskFailed
}
