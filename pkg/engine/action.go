package engine

import "fmt"

// ActionType classifies a plan step.
type ActionType string

const (
	// ActionCreate creates an entity absent from the controller.
	ActionCreate ActionType = "create"

	// ActionUpdate rewrites an existing entity whose comparable fields
	// diverge from the desired state.
	ActionUpdate ActionType = "update"

	// ActionDelete removes an existing entity.
	ActionDelete ActionType = "delete"

	// ActionNoOp records that the entity already converged, with a reason
	// string carried into the final report.
	ActionNoOp ActionType = "no-op"

	// ActionPrecondition is a synthesized side-effect that must complete
	// before its dependent action runs (telemetry enable, zone drain).
	ActionPrecondition ActionType = "precondition"

	// ActionAuthorize authorizes Plug-and-Play devices by serial number
	// during a LAN automation session.
	ActionAuthorize ActionType = "authorize"
)

// Validate checks the action type is known.
func (t ActionType) Validate() error {
	switch t {
	case ActionCreate, ActionUpdate, ActionDelete, ActionNoOp,
		ActionPrecondition, ActionAuthorize:
		return nil
	default:
		return fmt.Errorf("invalid action type: %s", t)
	}
}

// Mutates reports whether the action issues a state-changing controller call.
func (t ActionType) Mutates() bool {
	return t == ActionCreate || t == ActionUpdate || t == ActionDelete ||
		t == ActionPrecondition || t == ActionAuthorize
}

// Action is one typed step of a reconciliation plan.
type Action struct {
	// Type is the action variant.
	Type ActionType `json:"type"`

	// Entity is the desired entity for create/update, or the current
	// entity for delete/no-op.
	Entity Entity `json:"entity"`

	// PreviousID is the controller ID of the entity being updated or
	// deleted.
	PreviousID string `json:"previous_id,omitempty"`

	// Mask lists the payload fields that diverge, for updates.
	Mask []string `json:"mask,omitempty"`

	// Reason explains a no-op or a synthesized precondition.
	Reason string `json:"reason,omitempty"`

	// Serials are the PnP device serial numbers for authorize actions.
	Serials []string `json:"serials,omitempty"`

	// DependsOn lists plan indices that must succeed before this action
	// runs. A failed dependency skips the action.
	DependsOn []int `json:"depends_on,omitempty"`
}

// Describe renders a short human-readable form used in logs and plan output.
func (a Action) Describe() string {
	switch a.Type {
	case ActionNoOp:
		return fmt.Sprintf("no-op %s %q: %s", a.Entity.Kind, a.Entity.NaturalKey, a.Reason)
	case ActionPrecondition:
		return fmt.Sprintf("precondition for %s %q: %s", a.Entity.Kind, a.Entity.NaturalKey, a.Reason)
	case ActionAuthorize:
		return fmt.Sprintf("authorize %d PnP devices for %q", len(a.Serials), a.Entity.NaturalKey)
	default:
		return fmt.Sprintf("%s %s %q", a.Type, a.Entity.Kind, a.Entity.NaturalKey)
	}
}

// Plan is the ordered action list emitted by the differ. Order is
// significant and deterministic for identical input.
type Plan struct {
	// State is the reconciliation goal the plan was computed for.
	State State `json:"state"`

	// Actions are the plan steps in execution order.
	Actions []Action `json:"actions"`
}

// Mutations counts the state-changing actions in the plan.
func (p Plan) Mutations() int {
	n := 0
	for _, a := range p.Actions {
		if a.Type.Mutates() {
			n++
		}
	}
	return n
}

// HasDiff reports whether the plan contains any create or update action.
// The verifier uses this as the convergence test for merged state.
func (p Plan) HasDiff() bool {
	for _, a := range p.Actions {
		if a.Type == ActionCreate || a.Type == ActionUpdate {
			return true
		}
	}
	return false
}

// TaskFuture references a controller-side asynchronous job.
type TaskFuture struct {
	// TaskID is the controller task identifier.
	TaskID string `json:"task_id"`

	// SuccessMatch, when non-empty, overrides the default terminal
	// predicate: the task succeeds once its progress contains this string.
	SuccessMatch string `json:"success_match,omitempty"`
}
