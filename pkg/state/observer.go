// Package state builds the "have" side of a reconcile run: for every
// declared entity it reads the corresponding current state from the
// controller and renders it in the same canonical payload shape the
// want builder produces, so the differ compares like with like.
package state

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fabricward/fabricward/pkg/catalyst"
	"github.com/fabricward/fabricward/pkg/engine"
	"github.com/fabricward/fabricward/pkg/sites"
)

// Observer reads current controller state for declared entities.
type Observer struct {
	gateway  catalyst.Controller
	resolver *sites.Resolver
	logger   zerolog.Logger

	// credentials caches the one-read global credential index for the
	// life of the run.
	credentials *catalyst.GlobalCredentials

	// zones caches the one-read fabric zone listing for the life of the
	// run, used to find existing zones under a fabric site.
	zones       []catalyst.FabricZone
	zonesLoaded bool
}

// NewObserver returns an observer over the given gateway.
func NewObserver(gateway catalyst.Controller, resolver *sites.Resolver, logger zerolog.Logger) *Observer {
	return &Observer{
		gateway:  gateway,
		resolver: resolver,
		logger:   logger.With().Str("component", "state-observer").Logger(),
	}
}

// Gather reads current state for every desired entity and returns the
// matching have entities, aligned by kind and natural key. Desired
// entities whose current state cannot be read stop the run; partial
// state would produce a wrong plan.
func (o *Observer) Gather(ctx context.Context, desired []engine.Entity) ([]engine.Entity, error) {
	have := make([]engine.Entity, 0, len(desired))
	for _, want := range desired {
		entity, err := o.gatherOne(ctx, want)
		if err != nil {
			return nil, err
		}
		have = append(have, entity)
	}
	return have, nil
}

func (o *Observer) gatherOne(ctx context.Context, want engine.Entity) (engine.Entity, error) {
	switch want.Kind {
	case engine.KindFabricSite:
		return o.fabricSite(ctx, want)
	case engine.KindFabricZone:
		return o.fabricZone(ctx, want)
	case engine.KindAuthProfile:
		return o.authProfile(ctx, want)
	case engine.KindIssueDefinition:
		return o.issueDefinition(ctx, want)
	case engine.KindSystemIssue:
		return o.systemIssue(ctx, want)
	case engine.KindIssueAction:
		return o.issueAction(ctx, want)
	case engine.KindDeviceCredential:
		return o.deviceCredential(ctx, want)
	case engine.KindCredentialBinding:
		return o.credentialBinding(ctx, want)
	case engine.KindLanSession:
		return o.lanSession(ctx, want)
	case engine.KindLinkUpdate:
		return o.linkUpdate(ctx, want)
	case engine.KindHostnameUpdate:
		return o.hostnameUpdate(ctx, want)
	case engine.KindLoopbackUpdate:
		return o.loopbackUpdate(ctx, want)
	default:
		return engine.Entity{}, want.Kind.Validate()
	}
}

func absent(want engine.Entity) engine.Entity {
	return engine.Entity{Kind: want.Kind, NaturalKey: want.NaturalKey}
}

func (o *Observer) fabricSite(ctx context.Context, want engine.Entity) (engine.Entity, error) {
	siteID, err := o.resolver.Resolve(ctx, want.NaturalKey)
	if err != nil {
		return engine.Entity{}, err
	}
	fabric, err := o.gateway.GetFabricSite(ctx, siteID)
	if err != nil {
		return engine.Entity{}, err
	}
	if fabric == nil {
		return absent(want), nil
	}
	payload := map[string]any{
		"authenticationProfileName": fabric.AuthenticationProfileName,
		"isPubSubEnabled":           fabric.IsPubSubEnabled,
	}

	zones, err := o.childZones(ctx, want.NaturalKey)
	if err != nil {
		return engine.Entity{}, err
	}
	if len(zones) > 0 {
		payload["childZones"] = zones
	}

	if apply, _ := want.BoolField("applyPendingEvents"); apply {
		events, err := o.gateway.GetPendingFabricEvents(ctx, fabric.ID)
		if err != nil {
			return engine.Entity{}, err
		}
		payload["hasPendingEvents"] = len(events) > 0
	}

	return engine.Entity{
		Kind:       engine.KindFabricSite,
		NaturalKey: want.NaturalKey,
		ID:         fabric.ID,
		Exists:     true,
		Payload:    payload,
	}, nil
}

// childZones returns the existing fabric zones beneath a site path as
// {"id", "siteNameHierarchy"} mappings; deleted-state runs drain them
// before the site itself. The full zone listing is read once per run.
func (o *Observer) childZones(ctx context.Context, sitePath string) ([]any, error) {
	if !o.zonesLoaded {
		zones, err := o.gateway.ListFabricZones(ctx)
		if err != nil {
			return nil, err
		}
		o.zones = zones
		o.zonesLoaded = true
	}

	var children []any
	for _, zone := range o.zones {
		path, err := o.resolver.PathOf(ctx, zone.SiteID)
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(path, sitePath+"/") {
			continue
		}
		children = append(children, map[string]any{
			"id":                zone.ID,
			"siteNameHierarchy": path,
		})
	}
	return children, nil
}

func (o *Observer) fabricZone(ctx context.Context, want engine.Entity) (engine.Entity, error) {
	siteID, err := o.resolver.Resolve(ctx, want.NaturalKey)
	if err != nil {
		return engine.Entity{}, err
	}
	zone, err := o.gateway.GetFabricZone(ctx, siteID)
	if err != nil {
		return engine.Entity{}, err
	}
	if zone == nil {
		return absent(want), nil
	}
	return engine.Entity{
		Kind:       engine.KindFabricZone,
		NaturalKey: want.NaturalKey,
		ID:         zone.ID,
		Exists:     true,
		Payload: map[string]any{
			"authenticationProfileName": zone.AuthenticationProfileName,
		},
	}, nil
}

// authProfile reads the named profile template of the fabric at the
// entity's site path. When the site is not yet a fabric the profile
// cannot exist either.
func (o *Observer) authProfile(ctx context.Context, want engine.Entity) (engine.Entity, error) {
	sitePath, profileName, ok := strings.Cut(want.NaturalKey, "#")
	if !ok {
		return engine.Entity{}, engine.Errorf(engine.FailResolveNotFound,
			"malformed authentication profile key %q", want.NaturalKey)
	}
	siteID, err := o.resolver.Resolve(ctx, sitePath)
	if err != nil {
		return engine.Entity{}, err
	}

	fabricID := ""
	if fabric, err := o.gateway.GetFabricSite(ctx, siteID); err != nil {
		return engine.Entity{}, err
	} else if fabric != nil {
		fabricID = fabric.ID
	} else if zone, err := o.gateway.GetFabricZone(ctx, siteID); err != nil {
		return engine.Entity{}, err
	} else if zone != nil {
		fabricID = zone.ID
	}
	if fabricID == "" {
		return absent(want), nil
	}

	profiles, err := o.gateway.GetAuthProfiles(ctx, fabricID, profileName)
	if err != nil {
		return engine.Entity{}, err
	}
	if len(profiles) == 0 {
		return absent(want), nil
	}
	profile := profiles[0]

	payload := map[string]any{
		"authenticationProfileName": profile.AuthenticationProfileName,
		"authenticationOrder":       profile.AuthenticationOrder,
		"dot1xToMabFallbackTimeout": profile.Dot1xToMabFallbackTimeout,
		"wakeOnLan":                 profile.WakeOnLan,
		"numberOfHosts":             profile.NumberOfHosts,
	}
	if profile.IsBpduGuardEnabled != nil {
		payload["isBpduGuardEnabled"] = *profile.IsBpduGuardEnabled
	}
	if profile.PreAuthAcl != nil {
		payload["preAuthAcl"] = preAuthACLPayload(profile.PreAuthAcl)
	}
	return engine.Entity{
		Kind:       engine.KindAuthProfile,
		NaturalKey: want.NaturalKey,
		ID:         profile.ID,
		Exists:     true,
		Payload:    payload,
	}, nil
}

// preAuthACLPayload renders the ACL as one nested value so the differ
// treats it as a whole: any contract difference replaces the full ACL.
func preAuthACLPayload(acl *catalyst.PreAuthACL) map[string]any {
	contracts := make([]any, 0, len(acl.AccessContracts))
	for _, c := range acl.AccessContracts {
		contracts = append(contracts, map[string]any{
			"action":   c.Action,
			"protocol": c.Protocol,
			"port":     c.Port,
		})
	}
	return map[string]any{
		"enabled":         acl.Enabled,
		"implicitAction":  acl.ImplicitAction,
		"description":     acl.Description,
		"accessContracts": contracts,
	}
}

// issueDefinition matches by current name first, then by the previous
// name a rename declares.
func (o *Observer) issueDefinition(ctx context.Context, want engine.Entity) (engine.Entity, error) {
	names := []string{want.NaturalKey}
	if prev := want.StringField("prevName"); prev != "" {
		names = append(names, prev)
	}
	for _, name := range names {
		defs, err := o.gateway.GetCustomIssueDefinitions(ctx, name)
		if err != nil {
			return engine.Entity{}, err
		}
		if len(defs) == 0 {
			continue
		}
		def := defs[0]
		rules := make([]any, 0, len(def.Rules))
		for _, rule := range def.Rules {
			rules = append(rules, map[string]any{
				"severity":          rule.Severity,
				"facility":          rule.Facility,
				"mnemonic":          rule.Mnemonic,
				"pattern":           rule.Pattern,
				"occurrences":       rule.Occurrences,
				"durationInMinutes": rule.DurationInMinutes,
			})
		}
		return engine.Entity{
			Kind:       engine.KindIssueDefinition,
			NaturalKey: want.NaturalKey,
			ID:         def.ID,
			Exists:     true,
			Payload: map[string]any{
				"name":                  def.Name,
				"description":           def.Description,
				"rules":                 rules,
				"isEnabled":             def.IsEnabled,
				"priority":              def.Priority,
				"isNotificationEnabled": def.IsNotificationEnabled,
			},
		}, nil
	}
	return absent(want), nil
}

func (o *Observer) systemIssue(ctx context.Context, want engine.Entity) (engine.Entity, error) {
	deviceType := want.StringField("deviceType")
	// The listing is filtered by device type; both enabled and disabled
	// definitions must be visible to decide an update.
	for _, enabled := range []bool{true, false} {
		defs, err := o.gateway.GetSystemIssueDefinitions(ctx, deviceType, enabled)
		if err != nil {
			return engine.Entity{}, err
		}
		for _, def := range defs {
			if def.Name != want.NaturalKey && def.DisplayName != want.NaturalKey {
				continue
			}
			return engine.Entity{
				Kind:       engine.KindSystemIssue,
				NaturalKey: want.NaturalKey,
				ID:         def.ID,
				Exists:     true,
				Payload: map[string]any{
					"deviceType":                   def.DeviceType,
					"issueEnabled":                 def.IssueEnabled,
					"priority":                     def.Priority,
					"synchronizeToHealthThreshold": def.SynchronizeToHealthThreshold,
					"thresholdValue":               def.ThresholdValue,
				},
			}, nil
		}
	}
	return absent(want), nil
}

// issueAction gathers the open issues an action would operate on. The
// action "exists" when at least one matching open issue is present;
// the matched IDs ride in the payload for the executor.
func (o *Observer) issueAction(ctx context.Context, want engine.Entity) (engine.Entity, error) {
	params := map[string]any{"issueName": want.NaturalKey}
	if sitePath := want.StringField("siteHierarchy"); sitePath != "" {
		siteID, err := o.resolver.Resolve(ctx, sitePath)
		if err != nil {
			return engine.Entity{}, err
		}
		params["siteId"] = siteID
	}
	if mac := want.StringField("macAddress"); mac != "" {
		params["macAddress"] = mac
	}
	if ip := want.StringField("deviceIpAddress"); ip != "" {
		devices, err := o.gateway.GetDeviceList(ctx, map[string]any{"managementIpAddress": ip})
		if err != nil {
			return engine.Entity{}, err
		}
		if len(devices) == 0 {
			return engine.Entity{}, engine.Errorf(engine.FailResolveNotFound,
				"no inventory device with management IP %q", ip)
		}
		params["deviceId"] = devices[0].ID
	}
	if name := want.StringField("deviceName"); name != "" {
		devices, err := o.gateway.GetDeviceList(ctx, map[string]any{"hostname": name})
		if err != nil {
			return engine.Entity{}, err
		}
		if len(devices) == 0 {
			return engine.Entity{}, engine.Errorf(engine.FailResolveNotFound,
				"no inventory device named %q", name)
		}
		params["deviceId"] = devices[0].ID
	}
	if start := want.StringField("startTime"); start != "" {
		params["startTime"] = start
	}
	if end := want.StringField("endTime"); end != "" {
		params["endTime"] = end
	}

	issues, err := o.gateway.ListIssues(ctx, params)
	if err != nil {
		return engine.Entity{}, err
	}
	ids := make([]any, 0, len(issues))
	for _, issue := range issues {
		if issue.Status == "resolved" || issue.Status == "ignored" {
			continue
		}
		ids = append(ids, issue.IssueID)
	}
	if len(ids) == 0 {
		return absent(want), nil
	}
	return engine.Entity{
		Kind:       engine.KindIssueAction,
		NaturalKey: want.NaturalKey,
		Exists:     true,
		Payload:    map[string]any{"issueIds": ids},
	}, nil
}

func (o *Observer) globalCredentials(ctx context.Context) (*catalyst.GlobalCredentials, error) {
	if o.credentials != nil {
		return o.credentials, nil
	}
	creds, err := o.gateway.GetGlobalCredentials(ctx)
	if err != nil {
		return nil, err
	}
	o.credentials = creds
	return creds, nil
}

// deviceCredential matches by (kind, description, username), falling
// back to the old pair when a rename declares one.
func (o *Observer) deviceCredential(ctx context.Context, want engine.Entity) (engine.Entity, error) {
	creds, err := o.globalCredentials(ctx)
	if err != nil {
		return engine.Entity{}, err
	}

	kind := catalyst.CredentialKind(want.StringField("kind"))
	description := want.StringField("description")
	username := want.StringField("username")

	found := creds.Find(kind, description, username)
	renamed := false
	if found == nil {
		oldDescription := want.StringField("oldDescription")
		oldUsername := want.StringField("oldUsername")
		if oldDescription == "" {
			oldDescription = description
		}
		if oldUsername == "" {
			oldUsername = username
		}
		if oldDescription != description || oldUsername != username {
			found = creds.Find(kind, oldDescription, oldUsername)
			renamed = found != nil
		}
	}
	if found == nil {
		return absent(want), nil
	}
	payload := map[string]any{
		"kind":        string(kind),
		"description": found.Description,
		"username":    found.Username,
	}
	if renamed {
		// A rename match must diff against the declared identity so the
		// differ emits an update.
		payload["renamedFrom"] = found.Description
	}
	return engine.Entity{
		Kind:       engine.KindDeviceCredential,
		NaturalKey: want.NaturalKey,
		ID:         found.ID,
		Exists:     true,
		Payload:    payload,
	}, nil
}

// credentialBinding reads the direct (non-inherited) binding of a site.
// The payload maps each declared kind to the canonical reference string
// "description|username" of the bound credential, "" meaning unbound.
// References rather than IDs make the have side comparable to a want
// side that may name credentials created later in the same run.
func (o *Observer) credentialBinding(ctx context.Context, want engine.Entity) (engine.Entity, error) {
	siteID, err := o.resolver.Resolve(ctx, want.NaturalKey)
	if err != nil {
		return engine.Entity{}, err
	}
	// Inherited values count as assigned: a binding the site already
	// satisfies through its ancestors needs no write.
	settings, err := o.gateway.GetSiteCredentialSettings(ctx, siteID, true)
	if err != nil {
		return engine.Entity{}, err
	}
	creds, err := o.globalCredentials(ctx)
	if err != nil {
		return engine.Entity{}, err
	}

	payload := map[string]any{}
	exists := false
	for _, kind := range catalyst.CredentialKinds {
		// Only kinds the playbook declares participate in the diff;
		// undeclared kinds are left alone.
		if want.Field(string(kind)) == nil {
			continue
		}
		ref := ""
		if settings != nil {
			if id := settings.Assigned[kind]; id != "" {
				if bound := creds.FindByID(id); bound != nil {
					ref = bound.Description + "|" + bound.Username
				} else {
					ref = id
				}
			}
		}
		payload[string(kind)] = ref
		if ref != "" {
			exists = true
		}
	}
	return engine.Entity{
		Kind:       engine.KindCredentialBinding,
		NaturalKey: want.NaturalKey,
		ID:         siteID,
		Exists:     exists,
		Payload:    payload,
	}, nil
}

// lanSession matches an active session by its primary seed device IP.
func (o *Observer) lanSession(ctx context.Context, want engine.Entity) (engine.Entity, error) {
	ids, err := o.gateway.ActiveSessionIDs(ctx)
	if err != nil {
		return engine.Entity{}, err
	}
	for _, id := range ids {
		session, err := o.gateway.SessionStatus(ctx, id)
		if err != nil {
			return engine.Entity{}, err
		}
		if session == nil {
			continue
		}
		if session.PrimaryDeviceManagmentIPAddress != want.NaturalKey {
			continue
		}
		return engine.Entity{
			Kind:       engine.KindLanSession,
			NaturalKey: want.NaturalKey,
			ID:         session.ID,
			Exists:     true,
			Payload: map[string]any{
				"status": session.Status,
				"discoveredDeviceSiteNameHierarchy": session.DiscoveredDeviceSiteNameHierarchy,
			},
		}, nil
	}
	return absent(want), nil
}

// deviceByIP resolves an inventory device by management IP.
func (o *Observer) deviceByIP(ctx context.Context, ip string) (*catalyst.Device, error) {
	devices, err := o.gateway.GetDeviceList(ctx, map[string]any{"managementIpAddress": ip})
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, engine.Errorf(engine.FailResolveNotFound,
			"no inventory device with management IP %q", ip)
	}
	return &devices[0], nil
}

// linkUpdate probes whether the declared link is present: a link exists
// only when the source interface carries an IPv4 address, has IS-IS
// support, and lists addresses. Both devices must be in inventory.
func (o *Observer) linkUpdate(ctx context.Context, want engine.Entity) (engine.Entity, error) {
	sourceIP := want.StringField("sourceDeviceManagementIPAddress")
	sourceInterface := want.StringField("sourceDeviceInterfaceName")
	destIP := want.StringField("destinationDeviceManagementIPAddress")

	source, err := o.deviceByIP(ctx, sourceIP)
	if err != nil {
		return engine.Entity{}, err
	}
	if _, err := o.deviceByIP(ctx, destIP); err != nil {
		return engine.Entity{}, err
	}

	details, err := o.gateway.GetInterfaceDetails(ctx, source.ID, sourceInterface)
	if err != nil {
		return engine.Entity{}, err
	}
	linked := details != nil &&
		details.IPv4Address != "" &&
		details.IsisSupport != "false" &&
		len(details.Addresses) > 0
	if !linked {
		return absent(want), nil
	}
	return engine.Entity{
		Kind:       engine.KindLinkUpdate,
		NaturalKey: want.NaturalKey,
		ID:         details.ID,
		Exists:     true,
		Payload:    map[string]any{"sourceDeviceId": source.ID},
	}, nil
}

func (o *Observer) hostnameUpdate(ctx context.Context, want engine.Entity) (engine.Entity, error) {
	device, err := o.deviceByIP(ctx, want.NaturalKey)
	if err != nil {
		return engine.Entity{}, err
	}
	return engine.Entity{
		Kind:       engine.KindHostnameUpdate,
		NaturalKey: want.NaturalKey,
		ID:         device.ID,
		Exists:     true,
		Payload:    map[string]any{"hostname": device.Hostname},
	}, nil
}

func (o *Observer) loopbackUpdate(ctx context.Context, want engine.Entity) (engine.Entity, error) {
	device, err := o.deviceByIP(ctx, want.NaturalKey)
	if err != nil {
		return engine.Entity{}, err
	}
	details, err := o.gateway.GetInterfaceDetails(ctx, device.ID, "Loopback0")
	if err != nil {
		return engine.Entity{}, err
	}
	payload := map[string]any{"ipAddress": ""}
	if details != nil {
		payload["ipAddress"] = details.IPv4Address
	}
	return engine.Entity{
		Kind:       engine.KindLoopbackUpdate,
		NaturalKey: want.NaturalKey,
		ID:         device.ID,
		Exists:     true,
		Payload:    payload,
	}, nil
}
