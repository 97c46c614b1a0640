// Package report accumulates per-action outcomes into the run-level
// result contract: outcome-named lists, a concatenated message, and the
// changed/failed flags.
package report

import (
	"fmt"
	"strings"

	"github.com/fabricward/fabricward/pkg/engine"
)

// kindSuffix names the entity family in outcome lists: a created fabric
// site lands in "create_site", a converged zone in "no_update_zone".
var kindSuffix = map[engine.Kind]string{
	engine.KindFabricSite:        "site",
	engine.KindFabricZone:        "zone",
	engine.KindAuthProfile:       "profile",
	engine.KindIssueDefinition:   "issue_definition",
	engine.KindSystemIssue:       "system_issue",
	engine.KindIssueAction:       "issue_action",
	engine.KindDeviceCredential:  "credential",
	engine.KindCredentialBinding: "credential_binding",
	engine.KindLanSession:        "lan_session",
	engine.KindLinkUpdate:        "link",
	engine.KindHostnameUpdate:    "hostname",
	engine.KindLoopbackUpdate:    "loopback",
}

var outcomePrefix = map[engine.Outcome]string{
	engine.OutcomeCreated:  "create",
	engine.OutcomeUpdated:  "update",
	engine.OutcomeNoUpdate: "no_update",
	engine.OutcomeDeleted:  "delete",
	engine.OutcomeAbsent:   "absent",
	engine.OutcomeFailed:   "failed",
}

// ListName returns the outcome list an action result belongs to.
func ListName(result engine.ActionResult) string {
	suffix, ok := kindSuffix[result.Kind]
	if !ok {
		suffix = string(result.Kind)
	}
	return outcomePrefix[result.Outcome] + "_" + suffix
}

// Aggregator collects action results over one run.
type Aggregator struct {
	results []engine.ActionResult
	order   []string
	lists   map[string][]string
}

// New returns an empty aggregator.
func New() *Aggregator {
	return &Aggregator{lists: map[string][]string{}}
}

// Add appends action results, routing each natural key into its outcome
// list. List order is first-seen, so output is deterministic for a
// deterministic plan.
func (a *Aggregator) Add(results ...engine.ActionResult) {
	for _, result := range results {
		a.results = append(a.results, result)
		name := ListName(result)
		if _, seen := a.lists[name]; !seen {
			a.order = append(a.order, name)
		}
		a.lists[name] = append(a.lists[name], result.NaturalKey)
	}
}

// Failed reports whether any collected action failed.
func (a *Aggregator) Failed() bool {
	for _, result := range a.results {
		if result.Outcome == engine.OutcomeFailed {
			return true
		}
	}
	return false
}

// Changed reports whether any mutating outcome was collected.
func (a *Aggregator) Changed() bool {
	for _, result := range a.results {
		switch result.Outcome {
		case engine.OutcomeCreated, engine.OutcomeUpdated, engine.OutcomeDeleted:
			return true
		}
	}
	return false
}

// Result renders the final run result.
func (a *Aggregator) Result() engine.RunResult {
	response := make(map[string][]string, len(a.lists))
	summaries := make([]string, 0, len(a.order))
	for _, name := range a.order {
		keys := a.lists[name]
		response[name] = keys
		summaries = append(summaries, fmt.Sprintf("%s: %s", name, strings.Join(keys, ", ")))
	}
	return engine.RunResult{
		Changed:  a.Changed(),
		Failed:   a.Failed(),
		Msg:      strings.Join(summaries, "; "),
		Response: response,
		Details:  a.results,
	}
}
