// Package reconcile drives a playbook through the full pipeline:
// schema validation, desired-state build, controller version gating,
// state observation, diff, policy gate, execution, verification and
// run-history recording.
package reconcile
