// Package schema validates playbook input against per-module declarative
// schemas.
//
// Validation runs in two passes. A structural CUE pass (Registry) rejects
// documents whose shape cannot possibly be valid, using the same compiled
// schema registry pattern throughout. The table pass (Schema.ValidateList)
// then performs everything CUE unification cannot express: field-name
// aliasing, string-to-int coercion, case normalization of enumerated
// values, cross-field constraints and domain validations (IP addresses,
// MAC, VLAN ranges, ignore-duration suffixes, severity/facility/mnemonic
// triples, site hierarchy paths).
//
// Validation never short-circuits within a document set: every failure is
// collected so a playbook author sees all problems at once. Input is never
// mutated; validated documents are fresh canonical copies.
package schema
