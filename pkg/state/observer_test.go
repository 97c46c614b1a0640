package state

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fabricward/fabricward/pkg/catalyst"
	"github.com/fabricward/fabricward/pkg/engine"
	"github.com/fabricward/fabricward/pkg/sites"
)

// observerGateway is an in-memory catalyst.Controller serving the read
// paths the observer exercises. Mutation methods are never reached.
type observerGateway struct {
	catalyst.Controller // panic on anything not stubbed below

	sites           map[string]string
	fabricSites     map[string]*catalyst.FabricSite
	fabricZones     map[string]*catalyst.FabricZone
	pendingEvents   map[string][]catalyst.PendingFabricEvent
	authProfiles    map[string][]catalyst.AuthProfile
	issueDefs       map[string][]catalyst.IssueDefinition
	systemIssues    []catalyst.SystemIssueDefinition
	issues          []catalyst.Issue
	credentials     *catalyst.GlobalCredentials
	credentialReads int
	siteBindings    map[string]map[catalyst.CredentialKind]string
	inheritedReads  []bool
	lanSessions     []catalyst.LanSession
	devices         []catalyst.Device
	interfaces      map[string]*catalyst.InterfaceDetails // deviceID/name
}

func newObserverGateway() *observerGateway {
	return &observerGateway{
		sites: map[string]string{
			"Global":        "site-root",
			"Global/USA":    "site-usa",
			"Global/USA/SJ": "site-sj",
		},
		fabricSites:   map[string]*catalyst.FabricSite{},
		fabricZones:   map[string]*catalyst.FabricZone{},
		pendingEvents: map[string][]catalyst.PendingFabricEvent{},
		authProfiles:  map[string][]catalyst.AuthProfile{},
		issueDefs:     map[string][]catalyst.IssueDefinition{},
		credentials:   &catalyst.GlobalCredentials{ByKind: map[catalyst.CredentialKind][]catalyst.GlobalCredential{}},
		siteBindings:  map[string]map[catalyst.CredentialKind]string{},
		interfaces:    map[string]*catalyst.InterfaceDetails{},
	}
}

func (g *observerGateway) GetSite(_ context.Context, nameHierarchy string) (*catalyst.Site, error) {
	id, ok := g.sites[nameHierarchy]
	if !ok {
		return nil, nil
	}
	return &catalyst.Site{ID: id, NameHierarchy: nameHierarchy}, nil
}

func (g *observerGateway) ListSites(_ context.Context, _ string) ([]catalyst.Site, error) {
	var out []catalyst.Site
	for path, id := range g.sites {
		out = append(out, catalyst.Site{ID: id, NameHierarchy: path})
	}
	return out, nil
}

func (g *observerGateway) GetFabricSite(_ context.Context, siteID string) (*catalyst.FabricSite, error) {
	return g.fabricSites[siteID], nil
}

func (g *observerGateway) GetFabricZone(_ context.Context, siteID string) (*catalyst.FabricZone, error) {
	return g.fabricZones[siteID], nil
}

func (g *observerGateway) ListFabricZones(_ context.Context) ([]catalyst.FabricZone, error) {
	var out []catalyst.FabricZone
	for siteID, zone := range g.fabricZones {
		z := *zone
		z.SiteID = siteID
		out = append(out, z)
	}
	return out, nil
}

func (g *observerGateway) GetPendingFabricEvents(_ context.Context, fabricID string) ([]catalyst.PendingFabricEvent, error) {
	return g.pendingEvents[fabricID], nil
}

func (g *observerGateway) GetAuthProfiles(_ context.Context, fabricID, _ string) ([]catalyst.AuthProfile, error) {
	return g.authProfiles[fabricID], nil
}

func (g *observerGateway) GetCustomIssueDefinitions(_ context.Context, name string) ([]catalyst.IssueDefinition, error) {
	return g.issueDefs[name], nil
}

func (g *observerGateway) GetSystemIssueDefinitions(_ context.Context, _ string, enabled bool) ([]catalyst.SystemIssueDefinition, error) {
	var out []catalyst.SystemIssueDefinition
	for _, def := range g.systemIssues {
		if def.IssueEnabled == enabled {
			out = append(out, def)
		}
	}
	return out, nil
}

func (g *observerGateway) ListIssues(_ context.Context, _ map[string]any) ([]catalyst.Issue, error) {
	return g.issues, nil
}

func (g *observerGateway) GetGlobalCredentials(_ context.Context) (*catalyst.GlobalCredentials, error) {
	g.credentialReads++
	return g.credentials, nil
}

func (g *observerGateway) GetSiteCredentialSettings(_ context.Context, siteID string, inherited bool) (*catalyst.SiteCredentialSettings, error) {
	g.inheritedReads = append(g.inheritedReads, inherited)
	assigned := g.siteBindings[siteID]
	if assigned == nil {
		assigned = map[catalyst.CredentialKind]string{}
	}
	return &catalyst.SiteCredentialSettings{SiteID: siteID, Assigned: assigned}, nil
}

func (g *observerGateway) ActiveSessionIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(g.lanSessions))
	for _, s := range g.lanSessions {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

func (g *observerGateway) SessionStatus(_ context.Context, id string) (*catalyst.LanSession, error) {
	for i := range g.lanSessions {
		if g.lanSessions[i].ID == id {
			return &g.lanSessions[i], nil
		}
	}
	return nil, nil
}

func (g *observerGateway) GetDeviceList(_ context.Context, params map[string]any) ([]catalyst.Device, error) {
	ip, _ := params["managementIpAddress"].(string)
	hostname, _ := params["hostname"].(string)
	var out []catalyst.Device
	for _, device := range g.devices {
		if ip != "" && device.ManagementIPAddress != ip {
			continue
		}
		if hostname != "" && device.Hostname != hostname {
			continue
		}
		out = append(out, device)
	}
	return out, nil
}

func (g *observerGateway) GetInterfaceDetails(_ context.Context, deviceID, interfaceName string) (*catalyst.InterfaceDetails, error) {
	return g.interfaces[deviceID+"/"+interfaceName], nil
}

func newObserver(g *observerGateway) *Observer {
	return NewObserver(g, sites.NewResolver(g, zerolog.Nop()), zerolog.Nop())
}

func TestGatherFabricSitePresentAndAbsent(t *testing.T) {
	g := newObserverGateway()
	g.fabricSites["site-usa"] = &catalyst.FabricSite{
		ID: "fabric-usa", SiteID: "site-usa",
		AuthenticationProfileName: "Closed Authentication",
		IsPubSubEnabled:           true,
	}
	o := newObserver(g)

	have, err := o.Gather(context.Background(), []engine.Entity{
		{Kind: engine.KindFabricSite, NaturalKey: "Global/USA"},
		{Kind: engine.KindFabricSite, NaturalKey: "Global/USA/SJ"},
	})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if !have[0].Exists || have[0].ID != "fabric-usa" {
		t.Errorf("present site = %+v", have[0])
	}
	if have[0].Payload["authenticationProfileName"] != "Closed Authentication" {
		t.Errorf("payload = %v", have[0].Payload)
	}
	if have[1].Exists || have[1].Payload != nil {
		t.Errorf("absent site = %+v", have[1])
	}
}

func TestGatherCredentialRenameMatchesOldPair(t *testing.T) {
	g := newObserverGateway()
	g.credentials.ByKind[catalyst.CredentialCLI] = []catalyst.GlobalCredential{
		{ID: "cred-1", Kind: catalyst.CredentialCLI, Description: "Old CLI", Username: "cli-1"},
	}
	o := newObserver(g)

	want := engine.Entity{
		Kind:       engine.KindDeviceCredential,
		NaturalKey: engine.CredentialKey("cliCredential", "New CLI", "cli-1"),
		Payload: map[string]any{
			"kind": "cliCredential", "description": "New CLI", "username": "cli-1",
			"oldDescription": "Old CLI",
		},
	}
	have, err := o.Gather(context.Background(), []engine.Entity{want})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if !have[0].Exists || have[0].ID != "cred-1" {
		t.Fatalf("have = %+v", have[0])
	}
	if have[0].Payload["renamedFrom"] != "Old CLI" {
		t.Errorf("rename marker missing: %v", have[0].Payload)
	}
}

func TestGatherCredentialIndexReadOnce(t *testing.T) {
	g := newObserverGateway()
	o := newObserver(g)

	entity := func(description string) engine.Entity {
		return engine.Entity{
			Kind:       engine.KindDeviceCredential,
			NaturalKey: engine.CredentialKey("cliCredential", description, "u"),
			Payload:    map[string]any{"kind": "cliCredential", "description": description, "username": "u"},
		}
	}
	if _, err := o.Gather(context.Background(), []engine.Entity{entity("a"), entity("b"), entity("c")}); err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if g.credentialReads != 1 {
		t.Errorf("credential index read %d times, want 1", g.credentialReads)
	}
}

func TestGatherBindingMapsIDsToRefs(t *testing.T) {
	g := newObserverGateway()
	g.credentials.ByKind[catalyst.CredentialCLI] = []catalyst.GlobalCredential{
		{ID: "cred-9", Kind: catalyst.CredentialCLI, Description: "CLI Sample 1", Username: "cli-1"},
	}
	g.siteBindings["site-usa"] = map[catalyst.CredentialKind]string{
		catalyst.CredentialCLI: "cred-9",
	}
	o := newObserver(g)

	want := engine.Entity{
		Kind:       engine.KindCredentialBinding,
		NaturalKey: "Global/USA",
		Payload: map[string]any{
			"cliCredential": "CLI Sample 1|cli-1",
			"snmpV2cRead":   "",
		},
	}
	have, err := o.Gather(context.Background(), []engine.Entity{want})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if have[0].Payload["cliCredential"] != "CLI Sample 1|cli-1" {
		t.Errorf("bound ref = %v", have[0].Payload["cliCredential"])
	}
	if have[0].Payload["snmpV2cRead"] != "" {
		t.Errorf("unbound kind = %v", have[0].Payload["snmpV2cRead"])
	}
	if _, declared := have[0].Payload["snmpV3"]; declared {
		t.Error("undeclared kind leaked into the have payload")
	}
	if !have[0].Exists {
		t.Error("binding with one assignment should exist")
	}
}

func TestGatherLanSessionMatchedBySeedIP(t *testing.T) {
	g := newObserverGateway()
	g.lanSessions = []catalyst.LanSession{
		{ID: "session-a", PrimaryDeviceManagmentIPAddress: "204.1.2.9", Status: "ACTIVE"},
		{ID: "session-b", PrimaryDeviceManagmentIPAddress: "204.1.2.2", Status: "ACTIVE"},
	}
	o := newObserver(g)

	have, err := o.Gather(context.Background(), []engine.Entity{
		{Kind: engine.KindLanSession, NaturalKey: "204.1.2.2"},
		{Kind: engine.KindLanSession, NaturalKey: "204.1.2.99"},
	})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if !have[0].Exists || have[0].ID != "session-b" {
		t.Errorf("matched session = %+v", have[0])
	}
	if have[1].Exists {
		t.Errorf("no session expected for unknown seed: %+v", have[1])
	}
}

func TestGatherLinkProbe(t *testing.T) {
	g := newObserverGateway()
	g.devices = []catalyst.Device{
		{ID: "dev-1", ManagementIPAddress: "204.1.2.5", Hostname: "SJ-Access"},
		{ID: "dev-2", ManagementIPAddress: "204.1.2.6", Hostname: "SJ-Edge"},
	}
	g.interfaces["dev-1/TenGigabitEthernet1/0/3"] = &catalyst.InterfaceDetails{
		ID: "if-1", DeviceID: "dev-1", PortName: "TenGigabitEthernet1/0/3",
		IPv4Address: "10.4.0.1", IsisSupport: "true", Addresses: []string{"10.4.0.1"},
	}
	o := newObserver(g)

	link := func(sourceInterface string) engine.Entity {
		return engine.Entity{
			Kind:       engine.KindLinkUpdate,
			NaturalKey: engine.LinkKey("204.1.2.5", sourceInterface, "204.1.2.6", "TenGigabitEthernet1/0/4"),
			Payload: map[string]any{
				"sourceDeviceManagementIPAddress":      "204.1.2.5",
				"sourceDeviceInterfaceName":            sourceInterface,
				"destinationDeviceManagementIPAddress": "204.1.2.6",
				"destinationDeviceInterfaceName":       "TenGigabitEthernet1/0/4",
			},
		}
	}
	have, err := o.Gather(context.Background(), []engine.Entity{
		link("TenGigabitEthernet1/0/3"),
		link("TenGigabitEthernet1/0/7"),
	})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if !have[0].Exists {
		t.Errorf("addressed interface should read as linked: %+v", have[0])
	}
	if have[1].Exists {
		t.Errorf("bare interface should read as unlinked: %+v", have[1])
	}
}

func TestGatherLinkMissingDeviceFails(t *testing.T) {
	g := newObserverGateway()
	g.devices = []catalyst.Device{{ID: "dev-1", ManagementIPAddress: "204.1.2.5"}}
	o := newObserver(g)

	_, err := o.Gather(context.Background(), []engine.Entity{{
		Kind:       engine.KindLinkUpdate,
		NaturalKey: engine.LinkKey("204.1.2.5", "Te1/0/3", "204.9.9.9", "Te1/0/4"),
		Payload: map[string]any{
			"sourceDeviceManagementIPAddress":      "204.1.2.5",
			"sourceDeviceInterfaceName":            "Te1/0/3",
			"destinationDeviceManagementIPAddress": "204.9.9.9",
			"destinationDeviceInterfaceName":       "Te1/0/4",
		},
	}})
	if engine.KindOf(err) != engine.FailResolveNotFound {
		t.Fatalf("err = %v, want resolve.not_found", err)
	}
}

func TestGatherLinkIgnoresInterfaceWithoutIsis(t *testing.T) {
	g := newObserverGateway()
	g.devices = []catalyst.Device{
		{ID: "dev-1", ManagementIPAddress: "204.1.2.5", Hostname: "SJ-Access"},
		{ID: "dev-2", ManagementIPAddress: "204.1.2.6", Hostname: "SJ-Edge"},
	}
	// Addressed but routing-disabled: the migration tooling leaves
	// stale IPv4 bindings behind, so an address alone is not a link.
	g.interfaces["dev-1/TenGigabitEthernet1/0/3"] = &catalyst.InterfaceDetails{
		ID: "if-1", DeviceID: "dev-1", PortName: "TenGigabitEthernet1/0/3",
		IPv4Address: "192.168.99.1", IsisSupport: "false",
	}
	o := newObserver(g)

	have, err := o.Gather(context.Background(), []engine.Entity{{
		Kind:       engine.KindLinkUpdate,
		NaturalKey: engine.LinkKey("204.1.2.5", "TenGigabitEthernet1/0/3", "204.1.2.6", "TenGigabitEthernet1/0/4"),
		Payload: map[string]any{
			"sourceDeviceManagementIPAddress":      "204.1.2.5",
			"sourceDeviceInterfaceName":            "TenGigabitEthernet1/0/3",
			"destinationDeviceManagementIPAddress": "204.1.2.6",
			"destinationDeviceInterfaceName":       "TenGigabitEthernet1/0/4",
		},
	}})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if have[0].Exists {
		t.Errorf("interface without IS-IS support should read as unlinked: %+v", have[0])
	}
}

func TestGatherFabricSiteListsChildZones(t *testing.T) {
	g := newObserverGateway()
	g.sites["Global/USA/SJ/Floor1"] = "site-floor1"
	g.sites["Global/EMEA"] = "site-emea"
	g.fabricSites["site-usa"] = &catalyst.FabricSite{ID: "fabric-usa", SiteID: "site-usa"}
	g.fabricZones["site-sj"] = &catalyst.FabricZone{ID: "zone-sj"}
	g.fabricZones["site-floor1"] = &catalyst.FabricZone{ID: "zone-floor1"}
	g.fabricZones["site-emea"] = &catalyst.FabricZone{ID: "zone-emea"}
	o := newObserver(g)

	have, err := o.Gather(context.Background(), []engine.Entity{
		{Kind: engine.KindFabricSite, NaturalKey: "Global/USA"},
	})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	zones, _ := have[0].Payload["childZones"].([]any)
	if len(zones) != 2 {
		t.Fatalf("childZones = %v, want the two zones under Global/USA", zones)
	}
	seen := map[string]string{}
	for _, raw := range zones {
		zone := raw.(map[string]any)
		seen[zone["siteNameHierarchy"].(string)] = zone["id"].(string)
	}
	if seen["Global/USA/SJ"] != "zone-sj" || seen["Global/USA/SJ/Floor1"] != "zone-floor1" {
		t.Errorf("childZones = %v", seen)
	}
}

func TestGatherFabricSitePendingEventsOnDeclaration(t *testing.T) {
	g := newObserverGateway()
	g.fabricSites["site-usa"] = &catalyst.FabricSite{ID: "fabric-usa", SiteID: "site-usa"}
	g.fabricSites["site-sj"] = &catalyst.FabricSite{ID: "fabric-sj", SiteID: "site-sj"}
	g.pendingEvents["fabric-usa"] = []catalyst.PendingFabricEvent{
		{ID: "event-1", FabricID: "fabric-usa", Detail: "IP pool update"},
	}
	o := newObserver(g)

	have, err := o.Gather(context.Background(), []engine.Entity{
		{
			Kind: engine.KindFabricSite, NaturalKey: "Global/USA",
			Payload: map[string]any{"applyPendingEvents": true},
		},
		{
			Kind: engine.KindFabricSite, NaturalKey: "Global/USA/SJ",
			Payload: map[string]any{"applyPendingEvents": true},
		},
		{Kind: engine.KindFabricSite, NaturalKey: "Global/USA"},
	})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if have[0].Payload["hasPendingEvents"] != true {
		t.Errorf("site with queued events: payload = %v", have[0].Payload)
	}
	if have[1].Payload["hasPendingEvents"] != false {
		t.Errorf("site without queued events: payload = %v", have[1].Payload)
	}
	if _, read := have[2].Payload["hasPendingEvents"]; read {
		t.Errorf("undeclared site should not read pending events: %v", have[2].Payload)
	}
}

func TestGatherBindingReadsInheritedSettings(t *testing.T) {
	g := newObserverGateway()
	g.credentials.ByKind[catalyst.CredentialCLI] = []catalyst.GlobalCredential{
		{ID: "cred-9", Kind: catalyst.CredentialCLI, Description: "CLI Sample 1", Username: "cli-1"},
	}
	g.siteBindings["site-sj"] = map[catalyst.CredentialKind]string{
		catalyst.CredentialCLI: "cred-9",
	}
	o := newObserver(g)

	have, err := o.Gather(context.Background(), []engine.Entity{{
		Kind:       engine.KindCredentialBinding,
		NaturalKey: "Global/USA/SJ",
		Payload:    map[string]any{"cliCredential": "CLI Sample 1|cli-1"},
	}})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(g.inheritedReads) != 1 || !g.inheritedReads[0] {
		t.Fatalf("inherited reads = %v, want a single inherited read", g.inheritedReads)
	}
	if have[0].Payload["cliCredential"] != "CLI Sample 1|cli-1" {
		t.Errorf("inherited binding should read as assigned: %v", have[0].Payload)
	}
}

func TestGatherIssueActionFiltersClosedIssues(t *testing.T) {
	g := newObserverGateway()
	g.issues = []catalyst.Issue{
		{IssueID: "issue-1", Status: "active"},
		{IssueID: "issue-2", Status: "resolved"},
		{IssueID: "issue-3", Status: "ignored"},
	}
	o := newObserver(g)

	have, err := o.Gather(context.Background(), []engine.Entity{{
		Kind:       engine.KindIssueAction,
		NaturalKey: "switch_issue_power",
		Payload:    map[string]any{"issueName": "switch_issue_power"},
	}})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	ids, _ := have[0].Payload["issueIds"].([]any)
	if len(ids) != 1 || ids[0] != "issue-1" {
		t.Errorf("issueIds = %v, want only the active issue", ids)
	}
}

func TestGatherSystemIssueMatchesDisplayName(t *testing.T) {
	g := newObserverGateway()
	g.systemIssues = []catalyst.SystemIssueDefinition{{
		ID: "sys-1", Name: "radio_util_trigger", DisplayName: "Radio Utilization",
		DeviceType: "UNIFIED_AP", IssueEnabled: false, Priority: "P2",
	}}
	o := newObserver(g)

	have, err := o.Gather(context.Background(), []engine.Entity{{
		Kind:       engine.KindSystemIssue,
		NaturalKey: "Radio Utilization",
		Payload:    map[string]any{"deviceType": "UNIFIED_AP"},
	}})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if !have[0].Exists || have[0].ID != "sys-1" {
		t.Errorf("have = %+v", have[0])
	}
	if have[0].Payload["issueEnabled"] != false {
		t.Errorf("payload = %v", have[0].Payload)
	}
}
