package engine

// Outcome is the per-entity result of one applied action.
type Outcome string

const (
	// OutcomeCreated records a successful create.
	OutcomeCreated Outcome = "created"

	// OutcomeUpdated records a successful update.
	OutcomeUpdated Outcome = "updated"

	// OutcomeNoUpdate records an entity already converged.
	OutcomeNoUpdate Outcome = "no_update"

	// OutcomeDeleted records a successful delete.
	OutcomeDeleted Outcome = "deleted"

	// OutcomeAbsent records a delete target already missing.
	OutcomeAbsent Outcome = "absent"

	// OutcomeFailed records an action that errored.
	OutcomeFailed Outcome = "failed"
)

// Mutating reports whether the outcome changed controller state.
func (o Outcome) Mutating() bool {
	return o == OutcomeCreated || o == OutcomeUpdated || o == OutcomeDeleted
}

// ActionResult is one applied action's outcome, keyed by natural identity.
type ActionResult struct {
	// Kind is the entity kind.
	Kind Kind `json:"kind"`

	// NaturalKey is the entity's natural key.
	NaturalKey string `json:"natural_key"`

	// Outcome is the result classification.
	Outcome Outcome `json:"outcome"`

	// Message is the human-readable summary for this entity.
	Message string `json:"message,omitempty"`

	// TaskID is the controller task that carried the mutation, if any.
	TaskID string `json:"task_id,omitempty"`

	// Response carries controller response detail for the report.
	Response map[string]any `json:"response,omitempty"`
}

// RunResult is the aggregate outcome of one reconciliation run, shaped for
// the harness contract.
type RunResult struct {
	// Changed is true iff any mutating outcome occurred.
	Changed bool `json:"changed"`

	// Failed is true iff any action failed.
	Failed bool `json:"failed"`

	// Msg concatenates the non-empty outcome summaries.
	Msg string `json:"msg"`

	// Response maps outcome-list names (create_site, no_update_zone, ...)
	// to the natural keys that landed there.
	Response map[string][]string `json:"response"`

	// Details carries the full per-action results.
	Details []ActionResult `json:"details,omitempty"`
}
