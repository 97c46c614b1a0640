// Package policy provides the Open Policy Agent (OPA) gate that action
// plans pass through before execution.
//
// Policies are written in Rego and evaluated against a document holding
// the plan, the reconciliation goal, and a timestamp. Each policy
// contributes a `deny` set; violations with error severity block the
// run, warnings are logged and reported but do not block.
//
// The package ships built-in guardrails (fabric-site deletion safety,
// delete-count blast radius, Global-root protection, credential
// hygiene) and loads custom .rego or .json policy files from
// user-supplied paths.
package policy
