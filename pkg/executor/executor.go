// Package executor applies a reconciliation plan against the
// controller: one typed handler per entity kind submits the gateway
// mutation, awaits its task, and records a per-action result. A failed
// action never stops the run; actions depending on it are skipped.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fabricward/fabricward/pkg/catalyst"
	"github.com/fabricward/fabricward/pkg/engine"
	"github.com/fabricward/fabricward/pkg/sites"
	"github.com/fabricward/fabricward/pkg/telemetry"
)

// Options tune the executor's task waits.
type Options struct {
	// TaskTimeout bounds ordinary controller task waits.
	TaskTimeout time.Duration

	// PollInterval is the ordinary task poll period.
	PollInterval time.Duration

	// LanTaskTimeout bounds LAN automation session waits.
	LanTaskTimeout time.Duration

	// LanPollInterval is the LAN automation poll period.
	LanPollInterval time.Duration

	// StopDrainTimeout bounds the wait for a stopped session to drain.
	StopDrainTimeout time.Duration
}

// DefaultOptions returns the production timeouts.
func DefaultOptions() Options {
	return Options{
		TaskTimeout:      catalyst.DefaultTaskTimeout,
		PollInterval:     catalyst.DefaultPollInterval,
		LanTaskTimeout:   catalyst.DefaultLanTaskTimeout,
		LanPollInterval:  catalyst.DefaultLanPollInterval,
		StopDrainTimeout: 1800 * time.Second,
	}
}

// Executor applies plans.
type Executor struct {
	gateway  catalyst.Controller
	resolver *sites.Resolver
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
	opts     Options
}

// New returns an executor over the given gateway.
func New(gateway catalyst.Controller, resolver *sites.Resolver,
	logger zerolog.Logger, metrics *telemetry.Metrics, opts Options) *Executor {
	if opts.TaskTimeout == 0 {
		opts = DefaultOptions()
	}
	return &Executor{
		gateway:  gateway,
		resolver: resolver,
		logger:   logger.With().Str("component", "executor").Logger(),
		metrics:  metrics,
		opts:     opts,
	}
}

// Execute runs every plan action in order. Failures are recorded, not
// propagated; only a context error aborts the walk. Actions whose
// dependencies failed or were skipped are skipped with a failed result.
func (e *Executor) Execute(ctx context.Context, plan engine.Plan) ([]engine.ActionResult, error) {
	results := make([]engine.ActionResult, 0, len(plan.Actions))
	succeeded := make([]bool, len(plan.Actions))

	for i, action := range plan.Actions {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		if blocked, dep := e.blockedBy(action, succeeded); blocked {
			result := engine.ActionResult{
				Kind:       action.Entity.Kind,
				NaturalKey: action.Entity.NaturalKey,
				Outcome:    engine.OutcomeFailed,
				Message: fmt.Sprintf("skipped: dependency %q failed",
					plan.Actions[dep].Entity.NaturalKey),
			}
			results = append(results, result)
			e.observe(result)
			continue
		}

		result := e.apply(ctx, action)
		succeeded[i] = result.Outcome != engine.OutcomeFailed
		results = append(results, result)
		e.observe(result)

		event := e.logger.Info()
		if result.Outcome == engine.OutcomeFailed {
			event = e.logger.Error()
		}
		event.
			Str("kind", string(action.Entity.Kind)).
			Str("entity", action.Entity.NaturalKey).
			Str("outcome", string(result.Outcome)).
			Str("message", result.Message).
			Msg("action applied")
	}
	return results, nil
}

func (e *Executor) blockedBy(action engine.Action, succeeded []bool) (bool, int) {
	for _, dep := range action.DependsOn {
		if dep >= 0 && dep < len(succeeded) && !succeeded[dep] {
			return true, dep
		}
	}
	return false, 0
}

func (e *Executor) observe(result engine.ActionResult) {
	if e.metrics != nil {
		e.metrics.ObserveOutcome(string(result.Kind), string(result.Outcome))
	}
}

func (e *Executor) apply(ctx context.Context, action engine.Action) engine.ActionResult {
	result := engine.ActionResult{
		Kind:       action.Entity.Kind,
		NaturalKey: action.Entity.NaturalKey,
	}

	switch action.Type {
	case engine.ActionNoOp:
		if action.Reason == "already absent" || action.Reason == "no active session for seed device" {
			result.Outcome = engine.OutcomeAbsent
		} else {
			result.Outcome = engine.OutcomeNoUpdate
		}
		result.Message = action.Reason
		return result
	case engine.ActionAuthorize:
		if err := e.authorizeSerials(ctx, action.Serials); err != nil {
			return failed(result, err)
		}
		result.Outcome = engine.OutcomeUpdated
		result.Message = fmt.Sprintf("authorized %d devices", len(action.Serials))
		return result
	}

	var err error
	switch action.Entity.Kind {
	case engine.KindFabricSite:
		result, err = e.applyFabricSite(ctx, action, result)
	case engine.KindFabricZone:
		result, err = e.applyFabricZone(ctx, action, result)
	case engine.KindAuthProfile:
		result, err = e.applyAuthProfile(ctx, action, result)
	case engine.KindIssueDefinition:
		result, err = e.applyIssueDefinition(ctx, action, result)
	case engine.KindSystemIssue:
		result, err = e.applySystemIssue(ctx, action, result)
	case engine.KindIssueAction:
		result, err = e.applyIssueAction(ctx, action, result)
	case engine.KindDeviceCredential:
		result, err = e.applyDeviceCredential(ctx, action, result)
	case engine.KindCredentialBinding:
		result, err = e.applyCredentialBinding(ctx, action, result)
	case engine.KindLanSession:
		result, err = e.applyLanSession(ctx, action, result)
	case engine.KindLinkUpdate, engine.KindHostnameUpdate, engine.KindLoopbackUpdate:
		result, err = e.applyDeviceUpdate(ctx, action, result)
	default:
		err = action.Entity.Kind.Validate()
	}
	if err != nil {
		return failed(result, err)
	}
	return result
}

func failed(result engine.ActionResult, err error) engine.ActionResult {
	result.Outcome = engine.OutcomeFailed
	result.Message = err.Error()
	return result
}

// await wraps the ordinary task wait, recording poll metrics.
func (e *Executor) await(ctx context.Context, future engine.TaskFuture) (*catalyst.TaskStatus, error) {
	start := time.Now()
	status, err := catalyst.AwaitTask(ctx, e.gateway, future, e.opts.TaskTimeout, e.opts.PollInterval)
	if e.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = string(engine.KindOf(err))
		}
		e.metrics.ObserveTaskWait(outcome, time.Since(start))
	}
	return status, err
}

func outcomeFor(actionType engine.ActionType) engine.Outcome {
	switch actionType {
	case engine.ActionCreate:
		return engine.OutcomeCreated
	case engine.ActionDelete:
		return engine.OutcomeDeleted
	default:
		return engine.OutcomeUpdated
	}
}

func (e *Executor) applyFabricSite(ctx context.Context, action engine.Action,
	result engine.ActionResult) (engine.ActionResult, error) {

	sitePath := action.Entity.NaturalKey
	siteID, err := e.resolver.Resolve(ctx, sitePath)
	if err != nil {
		return result, err
	}

	if action.Type == engine.ActionPrecondition {
		return e.enableWiredCollection(ctx, siteID, result)
	}

	if action.Type == engine.ActionDelete {
		future, err := e.gateway.DeleteFabricSite(ctx, action.PreviousID)
		if err != nil {
			return result, err
		}
		if _, err := e.await(ctx, future); err != nil {
			return result, err
		}
		result.Outcome = engine.OutcomeDeleted
		result.TaskID = future.TaskID
		return result, nil
	}

	payload := map[string]any{"siteId": siteID}
	if profile := action.Entity.StringField("authenticationProfileName"); profile != "" {
		payload["authenticationProfileName"] = profile
	} else if action.Type == engine.ActionCreate {
		payload["authenticationProfileName"] = "No Authentication"
	}
	if pubSub, ok := action.Entity.BoolField("isPubSubEnabled"); ok {
		payload["isPubSubEnabled"] = pubSub
	} else if action.Type == engine.ActionCreate {
		payload["isPubSubEnabled"] = true
	}

	needsWrite := action.Type == engine.ActionCreate || len(maskWithout(action.Mask, "applyPendingEvents")) > 0
	if needsWrite {
		var future engine.TaskFuture
		if action.Type == engine.ActionCreate {
			future, err = e.gateway.CreateFabricSite(ctx, payload)
		} else {
			payload["id"] = action.PreviousID
			future, err = e.gateway.UpdateFabricSite(ctx, payload)
		}
		if err != nil {
			return result, err
		}
		if _, err := e.await(ctx, future); err != nil {
			return result, err
		}
		result.TaskID = future.TaskID
	}

	if apply, _ := action.Entity.BoolField("applyPendingEvents"); apply {
		applied, err := e.applyPendingEvents(ctx, siteID, action.PreviousID)
		if err != nil {
			return result, err
		}
		if applied > 0 {
			result.Message = fmt.Sprintf("applied %d pending fabric events", applied)
			result.Outcome = engine.OutcomeUpdated
			if !needsWrite {
				return result, nil
			}
		}
		if !needsWrite && applied == 0 {
			result.Outcome = engine.OutcomeNoUpdate
			result.Message = "no pending fabric events"
			return result, nil
		}
	}

	result.Outcome = outcomeFor(action.Type)
	return result, nil
}

func maskWithout(mask []string, drop string) []string {
	out := mask[:0:0]
	for _, field := range mask {
		if field != drop {
			out = append(out, field)
		}
	}
	return out
}

func (e *Executor) enableWiredCollection(ctx context.Context, siteID string,
	result engine.ActionResult) (engine.ActionResult, error) {

	settings, err := e.gateway.GetTelemetrySettings(ctx, siteID)
	if err != nil {
		return result, err
	}
	if settings != nil && settings.WiredDataCollection != nil &&
		settings.WiredDataCollection.EnableWiredDataCollection {
		result.Outcome = engine.OutcomeNoUpdate
		result.Message = "wired data collection already enabled"
		return result, nil
	}
	future, err := e.gateway.SetTelemetrySettings(ctx, siteID, map[string]any{
		"wiredDataCollection": map[string]any{"enableWiredDataCollection": true},
	})
	if err != nil {
		return result, err
	}
	if _, err := e.await(ctx, future); err != nil {
		return result, err
	}
	result.Outcome = engine.OutcomeUpdated
	result.Message = "enabled wired data collection"
	result.TaskID = future.TaskID
	return result, nil
}

func (e *Executor) applyPendingEvents(ctx context.Context, siteID, fabricID string) (int, error) {
	if fabricID == "" {
		fabric, err := e.gateway.GetFabricSite(ctx, siteID)
		if err != nil {
			return 0, err
		}
		if fabric == nil {
			return 0, nil
		}
		fabricID = fabric.ID
	}
	events, err := e.gateway.GetPendingFabricEvents(ctx, fabricID)
	if err != nil {
		return 0, err
	}
	for _, event := range events {
		future, err := e.gateway.ApplyPendingFabricEvent(ctx, fabricID, event.ID)
		if err != nil {
			return 0, err
		}
		if _, err := e.await(ctx, future); err != nil {
			return 0, err
		}
	}
	return len(events), nil
}

func (e *Executor) applyFabricZone(ctx context.Context, action engine.Action,
	result engine.ActionResult) (engine.ActionResult, error) {

	if action.Type == engine.ActionDelete {
		future, err := e.gateway.DeleteFabricZone(ctx, action.PreviousID)
		if err != nil {
			return result, err
		}
		if _, err := e.await(ctx, future); err != nil {
			return result, err
		}
		result.Outcome = engine.OutcomeDeleted
		result.TaskID = future.TaskID
		return result, nil
	}

	siteID, err := e.resolver.Resolve(ctx, action.Entity.NaturalKey)
	if err != nil {
		return result, err
	}
	payload := map[string]any{"siteId": siteID}
	if profile := action.Entity.StringField("authenticationProfileName"); profile != "" {
		payload["authenticationProfileName"] = profile
	} else if action.Type == engine.ActionCreate {
		payload["authenticationProfileName"] = "No Authentication"
	}

	var future engine.TaskFuture
	if action.Type == engine.ActionCreate {
		future, err = e.gateway.CreateFabricZone(ctx, payload)
	} else {
		payload["id"] = action.PreviousID
		future, err = e.gateway.UpdateFabricZone(ctx, payload)
	}
	if err != nil {
		return result, err
	}
	if _, err := e.await(ctx, future); err != nil {
		return result, err
	}
	result.Outcome = outcomeFor(action.Type)
	result.TaskID = future.TaskID
	return result, nil
}

// applyAuthProfile handles create and update identically: the profile
// record is born with its fabric, so "create" means the first write
// after the fabric appeared in this run.
func (e *Executor) applyAuthProfile(ctx context.Context, action engine.Action,
	result engine.ActionResult) (engine.ActionResult, error) {

	sitePath := action.Entity.NaturalKey
	profileName := action.Entity.StringField("authenticationProfileName")
	if i := indexOfHash(sitePath); i >= 0 {
		sitePath = sitePath[:i]
	}

	siteID, err := e.resolver.Resolve(ctx, sitePath)
	if err != nil {
		return result, err
	}
	fabricID := ""
	if fabric, err := e.gateway.GetFabricSite(ctx, siteID); err != nil {
		return result, err
	} else if fabric != nil {
		fabricID = fabric.ID
	} else if zone, err := e.gateway.GetFabricZone(ctx, siteID); err != nil {
		return result, err
	} else if zone != nil {
		fabricID = zone.ID
	}
	if fabricID == "" {
		return result, engine.Errorf(engine.FailResolveNotFound,
			"site %q is not a fabric, cannot update its authentication profile", sitePath).
			WithEntity(action.Entity.NaturalKey)
	}

	profiles, err := e.gateway.GetAuthProfiles(ctx, fabricID, profileName)
	if err != nil {
		return result, err
	}
	if len(profiles) == 0 {
		return result, engine.Errorf(engine.FailResolveNotFound,
			"fabric at %q has no %q authentication profile", sitePath, profileName).
			WithEntity(action.Entity.NaturalKey)
	}

	payload := map[string]any{
		"id":                        profiles[0].ID,
		"fabricId":                  fabricID,
		"authenticationProfileName": profileName,
	}
	for _, field := range []string{
		"authenticationOrder", "dot1xToMabFallbackTimeout", "wakeOnLan",
		"numberOfHosts", "isBpduGuardEnabled", "preAuthAcl",
	} {
		if value := action.Entity.Field(field); value != nil {
			payload[field] = value
		}
	}

	future, err := e.gateway.UpdateAuthProfile(ctx, payload)
	if err != nil {
		return result, err
	}
	if _, err := e.await(ctx, future); err != nil {
		return result, err
	}
	result.Outcome = engine.OutcomeUpdated
	result.TaskID = future.TaskID
	return result, nil
}

func indexOfHash(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '#' {
			return i
		}
	}
	return -1
}

func (e *Executor) applyDeviceCredential(ctx context.Context, action engine.Action,
	result engine.ActionResult) (engine.ActionResult, error) {

	kind := catalyst.CredentialKind(action.Entity.StringField("kind"))
	if err := kind.Validate(); err != nil {
		return result, err
	}

	body := map[string]any{}
	for key, value := range action.Entity.Payload {
		if key == "kind" || key == "oldDescription" || key == "oldUsername" {
			continue
		}
		body[key] = value
	}

	var future engine.TaskFuture
	var err error
	if action.Type == engine.ActionCreate {
		future, err = e.gateway.CreateGlobalCredentials(ctx, map[string]any{
			string(kind): []any{body},
		})
	} else {
		body["id"] = action.PreviousID
		future, err = e.gateway.UpdateGlobalCredential(ctx, kind, body)
	}
	if err != nil {
		return result, err
	}
	if _, err := e.await(ctx, future); err != nil {
		return result, err
	}
	result.Outcome = outcomeFor(action.Type)
	result.TaskID = future.TaskID
	return result, nil
}

// applyCredentialBinding re-reads the global credential index so
// references to credentials created earlier in this run resolve.
func (e *Executor) applyCredentialBinding(ctx context.Context, action engine.Action,
	result engine.ActionResult) (engine.ActionResult, error) {

	siteID, err := e.resolver.Resolve(ctx, action.Entity.NaturalKey)
	if err != nil {
		return result, err
	}
	creds, err := e.gateway.GetGlobalCredentials(ctx)
	if err != nil {
		return result, err
	}

	payload := map[string]any{}
	for _, kind := range catalyst.CredentialKinds {
		raw, declared := action.Entity.Payload[string(kind)]
		if !declared {
			continue
		}
		ref, _ := raw.(string)
		key := catalyst.SettingKeyFor(kind)
		if ref == "" {
			// Explicit unset: clear the binding so children inherit from
			// higher up.
			payload[key] = map[string]any{"credentialsId": ""}
			continue
		}
		description, username := splitRef(ref)
		bound := creds.Find(kind, description, username)
		if bound == nil {
			return result, engine.Errorf(engine.FailResolveNotFound,
				"no global %s credential %q/%q", kind, description, username).
				WithEntity(action.Entity.NaturalKey)
		}
		payload[key] = map[string]any{"credentialsId": bound.ID}
	}

	future, err := e.gateway.AssignSiteCredentials(ctx, siteID, payload)
	if err != nil {
		return result, err
	}
	if _, err := e.await(ctx, future); err != nil {
		return result, err
	}
	result.Outcome = outcomeFor(action.Type)
	result.TaskID = future.TaskID
	return result, nil
}

func splitRef(ref string) (description, username string) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == '|' {
			return ref[:i], ref[i+1:]
		}
	}
	return ref, ""
}

// applyDeviceUpdate submits one LAN automation device update selected by
// the entity kind.
func (e *Executor) applyDeviceUpdate(ctx context.Context, action engine.Action,
	result engine.ActionResult) (engine.ActionResult, error) {

	var feature catalyst.DeviceUpdateFeature
	payload := map[string]any{}

	switch action.Entity.Kind {
	case engine.KindLinkUpdate:
		feature = catalyst.DeviceUpdateFeature(action.Entity.StringField("feature"))
		link := map[string]any{
			"sourceDeviceManagementIPAddress":      action.Entity.StringField("sourceDeviceManagementIPAddress"),
			"sourceDeviceInterfaceName":            action.Entity.StringField("sourceDeviceInterfaceName"),
			"destinationDeviceManagementIPAddress": action.Entity.StringField("destinationDeviceManagementIPAddress"),
			"destinationDeviceInterfaceName":       action.Entity.StringField("destinationDeviceInterfaceName"),
		}
		if feature == catalyst.UpdateFeatureLinkAdd {
			link["ipPoolName"] = action.Entity.StringField("ipPoolName")
		}
		payload["linkUpdate"] = link
	case engine.KindHostnameUpdate:
		feature = catalyst.UpdateFeatureHostname
		payload["hostnameUpdateDevices"] = []any{map[string]any{
			"deviceManagementIPAddress": action.Entity.NaturalKey,
			"newHostName":               action.Entity.StringField("hostname"),
		}}
	case engine.KindLoopbackUpdate:
		feature = catalyst.UpdateFeatureLoopback
		payload["loopbackUpdateDeviceList"] = []any{map[string]any{
			"deviceManagementIPAddress": action.Entity.NaturalKey,
			"newLoopback0IPAddress":     action.Entity.StringField("ipAddress"),
		}}
	}

	future, err := e.gateway.UpdateDevice(ctx, feature, payload)
	if err != nil {
		return result, err
	}
	if _, err := e.await(ctx, future); err != nil {
		return result, err
	}
	if action.Type == engine.ActionDelete {
		result.Outcome = engine.OutcomeDeleted
	} else {
		result.Outcome = outcomeFor(action.Type)
	}
	result.TaskID = future.TaskID
	return result, nil
}
