// Package differ computes the ordered action plan between desired and
// current state. Only fields a playbook declares participate in the
// comparison, so an update never clobbers controller-managed fields the
// operator left unspecified.
package differ

import (
	"reflect"
	"sort"

	"github.com/rs/zerolog"

	"github.com/fabricward/fabricward/pkg/catalyst"
	"github.com/fabricward/fabricward/pkg/engine"
	"github.com/fabricward/fabricward/pkg/sites"
)

// mergedOrder fixes the emission order for merged runs: parents before
// children, credentials before the bindings that reference them, device
// discovery before the per-device updates that need inventory entries.
var mergedOrder = []engine.Kind{
	engine.KindDeviceCredential,
	engine.KindCredentialBinding,
	engine.KindFabricSite,
	engine.KindFabricZone,
	engine.KindAuthProfile,
	engine.KindIssueDefinition,
	engine.KindSystemIssue,
	engine.KindLanSession,
	engine.KindLinkUpdate,
	engine.KindHostnameUpdate,
	engine.KindLoopbackUpdate,
	engine.KindIssueAction,
}

// deletedOrder reverses the containment: zones drain before their parent
// fabric sites, sessions stop before anything structural goes away.
var deletedOrder = []engine.Kind{
	engine.KindLanSession,
	engine.KindIssueDefinition,
	engine.KindAuthProfile,
	engine.KindFabricZone,
	engine.KindFabricSite,
	engine.KindCredentialBinding,
}

// Differ computes plans.
type Differ struct {
	logger zerolog.Logger
}

// New returns a differ.
func New(logger zerolog.Logger) *Differ {
	return &Differ{logger: logger.With().Str("component", "differ").Logger()}
}

// Diff computes the plan converging have toward want under the given
// state. Both slices are aligned by (kind, natural key); want entries
// with no have counterpart are treated as absent.
func (d *Differ) Diff(state engine.State, want, have []engine.Entity) (engine.Plan, error) {
	if err := state.Validate(); err != nil {
		return engine.Plan{}, err
	}

	haveIndex := make(map[string]engine.Entity, len(have))
	for _, entity := range have {
		haveIndex[string(entity.Kind)+"/"+entity.NaturalKey] = entity
	}

	byKind := make(map[engine.Kind][]engine.Entity)
	for _, entity := range want {
		byKind[entity.Kind] = append(byKind[entity.Kind], entity)
	}

	plan := engine.Plan{State: state}
	order := mergedOrder
	if state == engine.StateDeleted {
		order = deletedOrder
	}

	// Plan indices of structural creates, used to wire DependsOn edges.
	siteCreates := map[string]int{}       // site path -> action index
	credentialCreates := map[string]int{} // credential natural key -> index
	// Zone deletes already in the plan, declared or synthesized, so a
	// site delete never drains the same zone twice.
	zoneDeletes := map[string]int{} // zone path -> action index

	for _, kind := range order {
		entities := byKind[kind]
		if kind == engine.KindFabricSite || kind == engine.KindFabricZone {
			sortByDepth(entities, state == engine.StateDeleted)
		}
		for _, wantEntity := range entities {
			haveEntity := haveIndex[string(kind)+"/"+wantEntity.NaturalKey]
			d.emit(&plan, state, wantEntity, haveEntity, siteCreates, credentialCreates, zoneDeletes)
		}
	}

	for _, action := range plan.Actions {
		d.logger.Debug().Str("action", action.Describe()).Msg("planned")
	}
	return plan, nil
}

// sortByDepth orders fabric constructs parents-first for creates and
// children-first for deletes. Ties keep lexical order for determinism.
func sortByDepth(entities []engine.Entity, deepestFirst bool) {
	sort.SliceStable(entities, func(i, j int) bool {
		di, dj := sites.Depth(entities[i].NaturalKey), sites.Depth(entities[j].NaturalKey)
		if di != dj {
			if deepestFirst {
				return di > dj
			}
			return di < dj
		}
		return entities[i].NaturalKey < entities[j].NaturalKey
	})
}

func (d *Differ) emit(plan *engine.Plan, state engine.State, want, have engine.Entity,
	siteCreates, credentialCreates, zoneDeletes map[string]int) {

	switch want.Kind {
	case engine.KindIssueAction:
		d.emitIssueAction(plan, state, want, have)
		return
	case engine.KindLinkUpdate:
		d.emitLinkUpdate(plan, want, have)
		return
	case engine.KindLanSession:
		d.emitLanSession(plan, state, want, have)
		return
	}

	if state == engine.StateDeleted {
		if !have.Exists {
			plan.Actions = append(plan.Actions, engine.Action{
				Type: engine.ActionNoOp, Entity: want,
				Reason: "already absent",
			})
			return
		}
		action := engine.Action{
			Type: engine.ActionDelete, Entity: want, PreviousID: have.ID,
		}
		switch want.Kind {
		case engine.KindFabricZone:
			zoneDeletes[want.NaturalKey] = len(plan.Actions)
		case engine.KindFabricSite:
			// The controller refuses to delete a site that still holds
			// zones, so every existing child zone drains first, whether
			// the playbook declares it or not.
			action.DependsOn = d.drainZones(plan, want.NaturalKey, have, zoneDeletes)
		}
		plan.Actions = append(plan.Actions, action)
		return
	}

	if !have.Exists {
		d.emitCreate(plan, want, siteCreates, credentialCreates)
		return
	}

	mask := diffMask(want.Payload, have.Payload)
	if apply, _ := want.BoolField("applyPendingEvents"); apply {
		// Pending events are applied even when the fabric site fields are
		// converged, but only when the gather actually found some; a site
		// with nothing pending diffs to a no-op.
		if pending, _ := have.BoolField("hasPendingEvents"); pending {
			mask = append(mask, "applyPendingEvents")
		}
	}
	if len(mask) == 0 {
		plan.Actions = append(plan.Actions, engine.Action{
			Type: engine.ActionNoOp, Entity: want,
			Reason: "already converged",
		})
		return
	}
	action := engine.Action{
		Type: engine.ActionUpdate, Entity: want,
		PreviousID: have.ID, Mask: mask,
	}
	action.DependsOn = dependencies(want, siteCreates, credentialCreates)
	plan.Actions = append(plan.Actions, action)
}

// drainZones wires a site delete behind the deletion of every existing
// child zone. Zones the playbook declares are already planned and only
// contribute dependency edges; the rest are synthesized from the
// gathered child zone listing, deepest first.
func (d *Differ) drainZones(plan *engine.Plan, sitePath string, have engine.Entity,
	zoneDeletes map[string]int) []int {

	var deps []int
	for path, at := range zoneDeletes {
		if len(path) > len(sitePath) && path[:len(sitePath)+1] == sitePath+"/" {
			deps = append(deps, at)
		}
	}

	type zone struct {
		path string
		id   string
	}
	var synthesized []zone
	children, _ := have.Field("childZones").([]any)
	for _, raw := range children {
		child, _ := raw.(map[string]any)
		path, _ := child["siteNameHierarchy"].(string)
		id, _ := child["id"].(string)
		if path == "" || id == "" {
			continue
		}
		if _, declared := zoneDeletes[path]; declared {
			continue
		}
		synthesized = append(synthesized, zone{path: path, id: id})
	}
	sort.Slice(synthesized, func(i, j int) bool {
		di, dj := sites.Depth(synthesized[i].path), sites.Depth(synthesized[j].path)
		if di != dj {
			return di > dj
		}
		return synthesized[i].path < synthesized[j].path
	})

	for _, z := range synthesized {
		at := len(plan.Actions)
		plan.Actions = append(plan.Actions, engine.Action{
			Type: engine.ActionDelete,
			Entity: engine.Entity{
				Kind:       engine.KindFabricZone,
				NaturalKey: z.path,
				ID:         z.id,
				Exists:     true,
			},
			PreviousID: z.id,
			Reason:     "existing child zone drains before the site delete",
		})
		zoneDeletes[z.path] = at
		deps = append(deps, at)
	}
	sort.Ints(deps)
	return deps
}

func (d *Differ) emitCreate(plan *engine.Plan, want engine.Entity,
	siteCreates, credentialCreates map[string]int) {

	action := engine.Action{Type: engine.ActionCreate, Entity: want}
	action.DependsOn = dependencies(want, siteCreates, credentialCreates)

	if want.Kind == engine.KindFabricSite {
		// Fabric provisioning requires wired telemetry collection on the
		// site; synthesize the enable step ahead of the create.
		plan.Actions = append(plan.Actions, engine.Action{
			Type: engine.ActionPrecondition, Entity: want,
			Reason: "enable wired data collection",
		})
		action.DependsOn = append(action.DependsOn, len(plan.Actions)-1)
	}

	at := len(plan.Actions)
	plan.Actions = append(plan.Actions, action)

	switch want.Kind {
	case engine.KindFabricSite:
		siteCreates[want.NaturalKey] = at
	case engine.KindDeviceCredential:
		credentialCreates[want.NaturalKey] = at
	}
}

// dependencies wires an action to the structural creates it needs: a
// zone or profile to its parent fabric site, a binding to every
// credential it references.
func dependencies(want engine.Entity, siteCreates, credentialCreates map[string]int) []int {
	var deps []int
	switch want.Kind {
	case engine.KindFabricZone:
		for path := want.NaturalKey; path != ""; path = sites.Parent(path) {
			if at, ok := siteCreates[path]; ok {
				deps = append(deps, at)
				break
			}
		}
	case engine.KindAuthProfile:
		sitePath := want.NaturalKey
		if i := indexByte(sitePath, '#'); i >= 0 {
			sitePath = sitePath[:i]
		}
		for path := sitePath; path != ""; path = sites.Parent(path) {
			if at, ok := siteCreates[path]; ok {
				deps = append(deps, at)
				break
			}
		}
	case engine.KindCredentialBinding:
		for _, kind := range catalyst.CredentialKinds {
			ref := want.StringField(string(kind))
			if ref == "" {
				continue
			}
			description, username := splitRef(ref)
			key := engine.CredentialKey(string(kind), description, username)
			if at, ok := credentialCreates[key]; ok {
				deps = append(deps, at)
			}
		}
	}
	return deps
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func splitRef(ref string) (description, username string) {
	if i := indexByte(ref, '|'); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return ref, ""
}

// emitIssueAction plans an action run: issue actions are imperative, so
// the "diff" is whether any matching open issues exist to act on.
func (d *Differ) emitIssueAction(plan *engine.Plan, state engine.State, want, have engine.Entity) {
	if state != engine.StateMerged {
		return
	}
	if !have.Exists {
		plan.Actions = append(plan.Actions, engine.Action{
			Type: engine.ActionNoOp, Entity: want,
			Reason: "no matching open issues",
		})
		return
	}
	// Carry the matched issue IDs from the gathered side.
	entity := want.Clone()
	entity.Payload["issueIds"] = have.Field("issueIds")
	plan.Actions = append(plan.Actions, engine.Action{
		Type: engine.ActionUpdate, Entity: entity,
	})
}

// emitLinkUpdate converges toward the declared feature: LINK_ADD wants
// the link present, LINK_DELETE wants it gone.
func (d *Differ) emitLinkUpdate(plan *engine.Plan, want, have engine.Entity) {
	feature := catalyst.DeviceUpdateFeature(want.StringField("feature"))
	switch feature {
	case catalyst.UpdateFeatureLinkAdd:
		if have.Exists {
			plan.Actions = append(plan.Actions, engine.Action{
				Type: engine.ActionNoOp, Entity: want,
				Reason: "link already present",
			})
			return
		}
		plan.Actions = append(plan.Actions, engine.Action{
			Type: engine.ActionCreate, Entity: want,
		})
	case catalyst.UpdateFeatureLinkDelete:
		if !have.Exists {
			plan.Actions = append(plan.Actions, engine.Action{
				Type: engine.ActionNoOp, Entity: want,
				Reason: "link already absent",
			})
			return
		}
		plan.Actions = append(plan.Actions, engine.Action{
			Type: engine.ActionDelete, Entity: want, PreviousID: have.ID,
		})
	}
}

// emitLanSession starts a session in merged state when no session for
// the seed device is active; stopping only happens in deleted state.
func (d *Differ) emitLanSession(plan *engine.Plan, state engine.State, want, have engine.Entity) {
	if state == engine.StateDeleted {
		if !have.Exists {
			plan.Actions = append(plan.Actions, engine.Action{
				Type: engine.ActionNoOp, Entity: want,
				Reason: "no active session for seed device",
			})
			return
		}
		plan.Actions = append(plan.Actions, engine.Action{
			Type: engine.ActionDelete, Entity: want, PreviousID: have.ID,
		})
		return
	}
	if have.Exists {
		plan.Actions = append(plan.Actions, engine.Action{
			Type: engine.ActionNoOp, Entity: want,
			Reason: "session already active for seed device",
		})
		return
	}
	plan.Actions = append(plan.Actions, engine.Action{
		Type: engine.ActionCreate, Entity: want,
	})
}

// diffMask returns the sorted names of declared fields whose current
// value diverges. Fields absent from want never appear.
func diffMask(want, have map[string]any) []string {
	var mask []string
	for _, name := range engine.SortedPayloadKeys(want) {
		if name == "applyPendingEvents" || name == "prevName" {
			// Execution directives, not comparable state.
			continue
		}
		if !fieldEqual(name, want[name], have[name]) {
			mask = append(mask, name)
		}
	}
	return mask
}

func fieldEqual(name string, want, have any) bool {
	if name == "preAuthAcl" {
		return aclEqual(want, have)
	}
	return reflect.DeepEqual(want, have)
}

// aclEqual compares pre-auth ACLs as a whole, with the contract list
// treated as a set: the controller reorders contracts on write.
func aclEqual(want, have any) bool {
	w, wok := want.(map[string]any)
	h, hok := have.(map[string]any)
	if !wok || !hok {
		return reflect.DeepEqual(want, have)
	}
	for key, wantValue := range w {
		if key == "accessContracts" {
			continue
		}
		if !reflect.DeepEqual(wantValue, h[key]) {
			return false
		}
	}
	return contractSetEqual(w["accessContracts"], h["accessContracts"])
}

func contractSetEqual(want, have any) bool {
	w, _ := want.([]any)
	h, _ := have.([]any)
	if len(w) != len(h) {
		return false
	}
	matched := make([]bool, len(h))
outer:
	for _, wc := range w {
		for i, hc := range h {
			if !matched[i] && reflect.DeepEqual(wc, hc) {
				matched[i] = true
				continue outer
			}
		}
		return false
	}
	return true
}
