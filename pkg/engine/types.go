package engine

import (
	"fmt"
	"sort"
)

// Kind identifies an SDA entity kind managed by the engine.
type Kind string

const (
	// KindFabricSite is a fabric site attached to a site hierarchy path.
	KindFabricSite Kind = "fabric_site"

	// KindFabricZone is a fabric zone nested under a fabric site.
	KindFabricZone Kind = "fabric_zone"

	// KindAuthProfile is an authentication profile template bound to a
	// fabric site or zone.
	KindAuthProfile Kind = "authentication_profile"

	// KindIssueDefinition is a user-defined assurance issue definition.
	KindIssueDefinition Kind = "assurance_issue_definition"

	// KindSystemIssue is a system-defined issue trigger definition.
	KindSystemIssue Kind = "system_issue_definition"

	// KindIssueAction is a resolve/ignore/execute action on open issues.
	KindIssueAction Kind = "issue_action"

	// KindDeviceCredential is a global device credential.
	KindDeviceCredential Kind = "device_credential"

	// KindCredentialBinding assigns credentials to a site.
	KindCredentialBinding Kind = "site_credential_binding"

	// KindLanSession is a LAN automation discovery session.
	KindLanSession Kind = "lan_automation_session"

	// KindLinkUpdate adds or removes a link on a discovered device.
	KindLinkUpdate Kind = "link_update"

	// KindHostnameUpdate renames a discovered device.
	KindHostnameUpdate Kind = "hostname_update"

	// KindLoopbackUpdate re-addresses a device loopback interface.
	KindLoopbackUpdate Kind = "loopback_update"
)

// Validate checks that the kind is one the engine knows how to reconcile.
func (k Kind) Validate() error {
	switch k {
	case KindFabricSite, KindFabricZone, KindAuthProfile,
		KindIssueDefinition, KindSystemIssue, KindIssueAction,
		KindDeviceCredential, KindCredentialBinding,
		KindLanSession, KindLinkUpdate, KindHostnameUpdate, KindLoopbackUpdate:
		return nil
	default:
		return fmt.Errorf("invalid entity kind: %s", k)
	}
}

// Entity is one declared SDA construct in canonical controller shape.
type Entity struct {
	// Kind is the entity kind.
	Kind Kind `json:"kind"`

	// NaturalKey is the human identity used by playbooks to match declared
	// state to current state (site path, credential description+username,
	// issue name, seed IP).
	NaturalKey string `json:"natural_key"`

	// ID is the controller-assigned opaque identifier. Empty until the
	// entity has been resolved or created on the controller.
	ID string `json:"id,omitempty"`

	// Exists reports whether the entity is present on the controller.
	Exists bool `json:"exists"`

	// Payload holds the semantic fields in the controller's camelCase
	// naming, as produced by the want and have builders.
	Payload map[string]any `json:"payload,omitempty"`
}

// Field returns a payload field, or nil when absent.
func (e Entity) Field(name string) any {
	if e.Payload == nil {
		return nil
	}
	return e.Payload[name]
}

// StringField returns a payload field as a string, or "" when absent or
// not a string.
func (e Entity) StringField(name string) string {
	s, _ := e.Field(name).(string)
	return s
}

// BoolField returns a payload field as a bool; ok is false when the field
// is absent or not a bool.
func (e Entity) BoolField(name string) (value, ok bool) {
	value, ok = e.Field(name).(bool)
	return value, ok
}

// Clone returns a deep-enough copy: the payload map is copied one level
// deep, which is sufficient because builders never mutate nested values
// in place.
func (e Entity) Clone() Entity {
	out := e
	if e.Payload != nil {
		out.Payload = make(map[string]any, len(e.Payload))
		for k, v := range e.Payload {
			out.Payload[k] = v
		}
	}
	return out
}

// DedupByNaturalKey removes duplicate natural keys within one kind,
// keeping the later occurrence at the first occurrence's position so the
// differ's emission order stays deterministic.
func DedupByNaturalKey(entities []Entity) []Entity {
	index := make(map[string]int, len(entities))
	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		key := string(e.Kind) + "/" + e.NaturalKey
		if at, seen := index[key]; seen {
			out[at] = e
			continue
		}
		index[key] = len(out)
		out = append(out, e)
	}
	return out
}

// State selects the reconciliation goal for a run.
type State string

const (
	// StateMerged converges declared entities toward presence.
	StateMerged State = "merged"

	// StateDeleted converges declared entities toward absence.
	StateDeleted State = "deleted"

	// StateGathered reads current state and emits a playbook document
	// (brownfield generator); never mutates.
	StateGathered State = "gathered"
)

// Validate checks the run state is one of the supported goals.
func (s State) Validate() error {
	switch s {
	case StateMerged, StateDeleted, StateGathered:
		return nil
	default:
		return fmt.Errorf("invalid state: %s (want merged, deleted or gathered)", s)
	}
}

// SortedPayloadKeys returns the payload keys in lexical order; used by
// differs and tests that need a stable field walk.
func SortedPayloadKeys(payload map[string]any) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
