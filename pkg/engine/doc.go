// Package engine defines the core types shared by every stage of the
// fabricward reconciliation pipeline.
//
// # Overview
//
// fabricward reconciles declared Software-Defined Access constructs against
// a Cisco Catalyst Center controller. A single run moves through six phases:
//
//  1. Validate - normalize playbook documents against per-module schemas (pkg/schema)
//  2. Want     - build desired state in canonical controller shape (pkg/desired)
//  3. Have     - read current state through the controller gateway (pkg/state)
//  4. Diff     - compute a minimal typed action plan (pkg/differ)
//  5. Apply    - execute actions, polling task futures to completion (pkg/executor)
//  6. Verify   - optionally re-read state and confirm convergence (pkg/verify)
//
// # Core Domain Types
//
//   - Entity: one declared SDA construct, keyed by natural key and, once
//     known, by the controller-assigned opaque ID
//   - Action: a typed plan step (create/update/delete/noop/precondition/authorize)
//   - Plan: the ordered action list emitted by the differ
//   - ActionResult / RunResult: per-action and per-run outcomes folded by
//     the report aggregator
//   - ReconcileError: the classified error taxonomy used across all stages
//
// Reconciliation is per-invocation and stateless across runs; the controller
// is the system of record.
package engine
