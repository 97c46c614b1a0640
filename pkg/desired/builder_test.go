package desired

import (
	"testing"

	"github.com/fabricward/fabricward/pkg/engine"
	"github.com/fabricward/fabricward/pkg/schema"
)

func find(t *testing.T, entities []engine.Entity, kind engine.Kind, key string) engine.Entity {
	t.Helper()
	for _, e := range entities {
		if e.Kind == kind && e.NaturalKey == key {
			return e
		}
	}
	t.Fatalf("no %s entity with key %q in %v", kind, key, entities)
	return engine.Entity{}
}

func TestBuildDedupLaterWins(t *testing.T) {
	entities, err := Build([]map[string]any{
		{schema.KeyFabricSites: []any{
			map[string]any{
				"site_name_hierarchy":    "Global/USA",
				"fabric_type":            "fabric_site",
				"authentication_profile": "No Authentication",
			},
			map[string]any{
				"site_name_hierarchy": "Global/EU",
				"fabric_type":         "fabric_site",
			},
			map[string]any{
				"site_name_hierarchy":    "Global/USA",
				"fabric_type":            "fabric_site",
				"authentication_profile": "Closed Authentication",
			},
		}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("len = %d, want 2 after dedup", len(entities))
	}
	// Later occurrence wins, first position kept.
	if entities[0].NaturalKey != "Global/USA" {
		t.Errorf("first entity = %q, want Global/USA", entities[0].NaturalKey)
	}
	if got := entities[0].StringField("authenticationProfileName"); got != "Closed Authentication" {
		t.Errorf("profile = %q, want the later declaration", got)
	}
}

func TestFabricZoneOmitsSiteOnlyFields(t *testing.T) {
	entities, err := Build([]map[string]any{
		{schema.KeyFabricSites: []any{
			map[string]any{
				"site_name_hierarchy": "Global/USA/SJ/Floor1",
				"fabric_type":         "fabric_zone",
				"is_pub_sub_enabled":  true,
			},
		}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	zone := find(t, entities, engine.KindFabricZone, "Global/USA/SJ/Floor1")
	if zone.Field("isPubSubEnabled") != nil {
		t.Error("isPubSubEnabled leaked into a zone payload")
	}
}

func TestAuthProfileBpduDefault(t *testing.T) {
	entities, err := Build([]map[string]any{
		{schema.KeyFabricSites: []any{
			map[string]any{
				"site_name_hierarchy":    "Global/USA",
				"authentication_profile": "Closed Authentication",
				"update_authentication_profile": map[string]any{
					"authentication_order": "dot1x",
				},
			},
		}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	profile := find(t, entities, engine.KindAuthProfile,
		engine.ProfileKey("Global/USA", "Closed Authentication"))
	if bpdu, ok := profile.BoolField("isBpduGuardEnabled"); !ok || !bpdu {
		t.Errorf("isBpduGuardEnabled = %v/%v, want defaulted true for Closed Authentication", bpdu, ok)
	}

	// Any other profile gets no implicit BPDU flag.
	entities, err = Build([]map[string]any{
		{schema.KeyFabricSites: []any{
			map[string]any{
				"site_name_hierarchy":    "Global/USA",
				"authentication_profile": "Open Authentication",
				"update_authentication_profile": map[string]any{
					"authentication_order": "mac",
				},
			},
		}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	profile = find(t, entities, engine.KindAuthProfile,
		engine.ProfileKey("Global/USA", "Open Authentication"))
	if profile.Field("isBpduGuardEnabled") != nil {
		t.Error("isBpduGuardEnabled set for a non-Closed profile")
	}
}

func TestIssueActionIgnoreHours(t *testing.T) {
	entities, err := Build([]map[string]any{
		{schema.KeyIssueActions: []any{
			map[string]any{
				"issue_name":         "AP Down",
				"issue_process_type": "ignore",
				"ignore_duration":    "2d",
				"mac_address":        "E4-38-7E-02-6A-00",
			},
		}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	action := find(t, entities, engine.KindIssueAction, "AP Down")
	if got := action.Field("ignoreHours"); got != 48 {
		t.Errorf("ignoreHours = %v, want 48 (2d)", got)
	}
	if got := action.StringField("macAddress"); got != "e4:38:7e:02:6a:00" {
		t.Errorf("macAddress = %q, want normalized colon form", got)
	}
}

func TestIssueRuleSeverityMapping(t *testing.T) {
	entities, err := Build([]map[string]any{
		{schema.KeyUserDefinedIssues: []any{
			map[string]any{
				"name": "OSPF Flap",
				"rules": []any{map[string]any{
					"severity": "Notice",
					"facility": "OSPF",
					"mnemonic": "ADJCHG",
				}},
			},
		}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	def := find(t, entities, engine.KindIssueDefinition, "OSPF Flap")
	rules, _ := def.Field("rules").([]any)
	if len(rules) != 1 {
		t.Fatalf("rules = %v", rules)
	}
	rule := rules[0].(map[string]any)
	if rule["severity"] != 5 {
		t.Errorf("severity = %v, want 5 for Notice", rule["severity"])
	}
}

func TestCredentialFanOut(t *testing.T) {
	entities, err := Build([]map[string]any{
		{schema.KeyGlobalCredentials: map[string]any{
			"cli_credential": []any{
				map[string]any{"description": "CLI Sample 1", "username": "cli-1", "password": "secret"},
			},
			"snmp_v2c_read": []any{
				map[string]any{"description": "SNMP RO", "read_community": "public"},
			},
		}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	cli := find(t, entities, engine.KindDeviceCredential,
		engine.CredentialKey("cliCredential", "CLI Sample 1", "cli-1"))
	if got := cli.StringField("kind"); got != "cliCredential" {
		t.Errorf("kind = %q", got)
	}
	snmp := find(t, entities, engine.KindDeviceCredential,
		engine.CredentialKey("snmpV2cRead", "SNMP RO", ""))
	if got := snmp.StringField("readCommunity"); got != "public" {
		t.Errorf("readCommunity = %q", got)
	}
}

func TestBindingFanOutAndUnset(t *testing.T) {
	entities, err := Build([]map[string]any{
		{schema.KeySiteCredentials: []any{
			map[string]any{
				"site_name": []any{"Global", "Global/USA"},
				"cli_credential": map[string]any{
					"description": "CLI Sample 1",
					"username":    "cli-1",
				},
				"snmp_v2c_read": map[string]any{},
			},
		}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, sitePath := range []string{"Global", "Global/USA"} {
		binding := find(t, entities, engine.KindCredentialBinding, sitePath)
		if got := binding.StringField("cliCredential"); got != "CLI Sample 1|cli-1" {
			t.Errorf("%s cliCredential = %q", sitePath, got)
		}
		ref, present := binding.Payload["snmpV2cRead"]
		if !present || ref != "" {
			t.Errorf("%s snmpV2cRead = %v/%v, want explicit empty unset", sitePath, ref, present)
		}
		if binding.Field("snmpV3") != nil {
			t.Errorf("%s snmpV3 should be absent (inherit)", sitePath)
		}
	}
}

func TestDeviceUpdateKeys(t *testing.T) {
	entities, err := Build([]map[string]any{
		{schema.KeyLanDeviceUpdate: map[string]any{
			"link_add": map[string]any{
				"source_device_management_ip_address":      "204.1.2.2",
				"source_device_interface_name":             "HundredGigE1/0/2",
				"destination_device_management_ip_address": "204.1.2.3",
				"destination_device_interface_name":        "HundredGigE1/0/3",
				"ip_pool_name":                             "underlay_sub",
			},
			"hostname_update_devices": []any{
				map[string]any{
					"device_management_ip_address": "204.1.2.5",
					"new_host_name":                "SJ-Access-9300",
				},
			},
		}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	link := find(t, entities, engine.KindLinkUpdate,
		engine.LinkKey("204.1.2.2", "HundredGigE1/0/2", "204.1.2.3", "HundredGigE1/0/3"))
	if got := link.StringField("feature"); got != "LINK_ADD" {
		t.Errorf("feature = %q", got)
	}
	rename := find(t, entities, engine.KindHostnameUpdate, "204.1.2.5")
	if got := rename.StringField("hostname"); got != "SJ-Access-9300" {
		t.Errorf("hostname = %q", got)
	}
}
