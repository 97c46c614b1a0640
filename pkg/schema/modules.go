package schema

import (
	"fmt"

	"github.com/fabricward/fabricward/pkg/engine"
)

// Module keys recognized at the top level of a playbook config document.
const (
	KeyFabricSites        = "fabric_sites"
	KeyUserDefinedIssues  = "assurance_user_defined_issue_settings"
	KeySystemIssues       = "assurance_system_issue_settings"
	KeyIssueActions       = "assurance_issue"
	KeyGlobalCredentials  = "global_credential_details"
	KeySiteCredentials    = "assign_credentials_to_site"
	KeyLanAutomation      = "lan_automation"
	KeyLanDeviceUpdate    = "lan_automated_device_update"
)

// AuthProfileNames are the authentication profile templates the
// controller ships.
var AuthProfileNames = []string{
	"Closed Authentication", "Low Impact", "No Authentication", "Open Authentication",
}

// FabricSiteSchema describes one fabric_sites entry.
func FabricSiteSchema() *Schema {
	return &Schema{
		Fields: map[string]Field{
			"site_name_hierarchy": {
				Type: TypeString, Required: true, Domain: DomainSitePath,
				Aliases: []string{"site_name"},
			},
			"fabric_type": {
				Type: TypeString, Default: "fabric_site",
				Choices: []string{"fabric_site", "fabric_zone"},
			},
			"authentication_profile": {
				Type: TypeString, Choices: AuthProfileNames,
			},
			"is_pub_sub_enabled": {Type: TypeBool, Default: true},
			"apply_pending_events": {Type: TypeBool, Default: false},
			"update_authentication_profile": {
				Type: TypeDict, Elem: authProfileUpdateSchema(),
			},
		},
		CrossField: fabricSiteCrossField,
	}
}

func authProfileUpdateSchema() *Schema {
	return &Schema{
		Fields: map[string]Field{
			"authentication_order": {
				Type: TypeString, Choices: []string{"dot1x", "mac"},
			},
			"dot1x_fallback_timeout": {Type: TypeInt, Min: 3, Max: 120},
			"wake_on_lan":            {Type: TypeBool},
			"number_of_hosts": {
				Type: TypeString, Choices: []string{"Single", "Unlimited"},
			},
			"enable_bpdu_guard": {Type: TypeBool},
			"pre_auth_acl": {
				Type: TypeDict, Elem: preAuthACLSchema(),
			},
		},
	}
}

func preAuthACLSchema() *Schema {
	return &Schema{
		Fields: map[string]Field{
			"enabled":         {Type: TypeBool, Default: true},
			"implicit_action": {Type: TypeString, Default: "DENY", Choices: []string{"PERMIT", "DENY"}},
			"description":     {Type: TypeString},
			"access_contracts": {
				Type: TypeList, MaxLen: 3, Elem: accessContractSchema(),
			},
		},
		CrossField: func(doc map[string]any, path string) []Issue {
			contracts, _ := doc["access_contracts"].([]any)
			seen := make(map[string]bool, len(contracts))
			var issues []Issue
			for i, raw := range contracts {
				contract, _ := raw.(map[string]any)
				port, _ := contract["port"].(string)
				if seen[port] {
					issues = append(issues, Issue{
						Kind:    engine.FailSchemaCrossField,
						Path:    fmt.Sprintf("%s.access_contracts[%d].port", path, i),
						Message: fmt.Sprintf("duplicate access contract port %q", port),
					})
				}
				seen[port] = true
			}
			return issues
		},
	}
}

func accessContractSchema() *Schema {
	return &Schema{
		Fields: map[string]Field{
			"action":   {Type: TypeString, Required: true, Choices: []string{"PERMIT", "DENY"}},
			"protocol": {Type: TypeString, Required: true, Choices: []string{"UDP", "TCP", "TCP_UDP"}},
			"port":     {Type: TypeString, Required: true, Choices: []string{"domain", "bootpc", "bootps"}},
		},
	}
}

// fabricSiteCrossField rejects a pre-auth ACL on any profile other than
// Low Impact.
func fabricSiteCrossField(doc map[string]any, path string) []Issue {
	update, _ := doc["update_authentication_profile"].(map[string]any)
	if update == nil {
		return nil
	}
	if _, hasACL := update["pre_auth_acl"]; !hasACL {
		return nil
	}
	if profile, _ := doc["authentication_profile"].(string); profile != "Low Impact" {
		return []Issue{{
			Kind:    engine.FailSchemaCrossField,
			Path:    path + ".update_authentication_profile.pre_auth_acl",
			Message: fmt.Sprintf("pre_auth_acl applies only to the Low Impact profile, not %q", profile),
		}}
	}
	return nil
}

// UserDefinedIssueSchema describes one user-defined issue definition.
func UserDefinedIssueSchema() *Schema {
	return &Schema{
		Fields: map[string]Field{
			"name":        {Type: TypeString, Required: true},
			"description": {Type: TypeString},
			"prev_name":   {Type: TypeString},
			"rules": {
				Type: TypeList, Elem: issueRuleSchema(),
			},
			"is_enabled": {Type: TypeBool, Default: true},
			"priority": {
				Type: TypeString, Choices: []string{"P1", "P2", "P3", "P4"},
			},
			"is_notification_enabled": {Type: TypeBool, Default: false},
		},
	}
}

func issueRuleSchema() *Schema {
	return &Schema{
		Fields: map[string]Field{
			// Severity accepts the integer form or a human label; the
			// want builder maps labels to integers.
			"severity":            {Type: TypeString, Stringify: true, Aliases: []string{"rule_severity"}},
			"facility":            {Type: TypeString, Required: true},
			"mnemonic":            {Type: TypeString, Required: true},
			"pattern":             {Type: TypeString},
			"occurrences":         {Type: TypeInt, Min: 1, Max: 100},
			"duration_in_minutes": {Type: TypeInt, Min: 1, Max: 60},
		},
		CrossField: func(doc map[string]any, path string) []Issue {
			label, _ := doc["severity"].(string)
			severity, ok := SeverityFromLabel(label)
			if !ok {
				if n, intOK := coerceInt(label); intOK && n >= 0 && n <= 6 {
					severity, ok = n, true
				}
			}
			if !ok {
				return []Issue{{
					Kind:    engine.FailSchemaDomainInvalid,
					Path:    path + ".severity",
					Message: fmt.Sprintf("severity %q is neither 0..6 nor a severity label", label),
				}}
			}
			facility, _ := doc["facility"].(string)
			mnemonic, _ := doc["mnemonic"].(string)
			if msg := CheckSyslogTriple(severity, facility, mnemonic); msg != "" {
				return []Issue{{
					Kind:    engine.FailSchemaDomainInvalid,
					Path:    path + ".mnemonic",
					Message: msg,
				}}
			}
			return nil
		},
	}
}

// SystemIssueSchema describes one system issue definition update.
func SystemIssueSchema() *Schema {
	return &Schema{
		Fields: map[string]Field{
			"name":        {Type: TypeString, Required: true},
			"description": {Type: TypeString},
			"device_type": {Type: TypeString, Required: true},
			"synchronize_to_health_threshold": {Type: TypeBool, Default: false},
			"priority": {
				Type: TypeString, Choices: []string{"P1", "P2", "P3", "P4"},
			},
			"issue_enabled":   {Type: TypeBool, Default: true},
			"threshold_value": {Type: TypeFloat},
		},
	}
}

// IssueActionSchema describes one issue action (resolve, ignore or
// suggested-command execution).
func IssueActionSchema() *Schema {
	return &Schema{
		Fields: map[string]Field{
			"issue_name": {Type: TypeString, Required: true},
			"issue_process_type": {
				Type: TypeString, Required: true,
				Choices: []string{"resolution", "ignore", "command_execution"},
			},
			"ignore_duration": {Type: TypeString, Domain: DomainIgnoreDuration},
			"site_hierarchy":  {Type: TypeString, Domain: DomainSitePath},
			"device_name":     {Type: TypeString},
			"mac_address":     {Type: TypeString, Domain: DomainMAC},
			"network_device_ip_address": {Type: TypeString, Domain: DomainIPv4},
			"start_datetime":  {Type: TypeString, Domain: DomainDatetime},
			"end_datetime":    {Type: TypeString, Domain: DomainDatetime},
		},
		CrossField: issueActionCrossField,
	}
}

func issueActionCrossField(doc map[string]any, path string) []Issue {
	var issues []Issue

	start, _ := doc["start_datetime"].(string)
	end, _ := doc["end_datetime"].(string)
	if start != "" && end != "" && end < start {
		// The lexical order of "YYYY-MM-DD HH:MM:SS" is the time order.
		issues = append(issues, Issue{
			Kind:    engine.FailSchemaCrossField,
			Path:    path + ".end_datetime",
			Message: fmt.Sprintf("end_datetime %q is earlier than start_datetime %q", end, start),
		})
	}

	if _, hasSite := doc["site_hierarchy"]; hasSite {
		for _, deviceField := range []string{"device_name", "mac_address", "network_device_ip_address"} {
			if _, hasDevice := doc[deviceField]; hasDevice {
				issues = append(issues, Issue{
					Kind:    engine.FailSchemaCrossField,
					Path:    path + "." + deviceField,
					Message: "site_hierarchy and device identifiers cannot both be present",
				})
			}
		}
	}

	if _, hasDuration := doc["ignore_duration"]; hasDuration {
		if process, _ := doc["issue_process_type"].(string); process != "ignore" {
			issues = append(issues, Issue{
				Kind:    engine.FailSchemaCrossField,
				Path:    path + ".ignore_duration",
				Message: fmt.Sprintf("ignore_duration applies only to ignore actions, not %q", process),
			})
		}
	}
	return issues
}

// GlobalCredentialSchema describes the global_credential_details mapping.
func GlobalCredentialSchema() *Schema {
	return &Schema{
		Fields: map[string]Field{
			"cli_credential": {
				Type: TypeList, Elem: &Schema{Fields: map[string]Field{
					"description":     {Type: TypeString, Required: true},
					"username":        {Type: TypeString, Required: true},
					"password":        {Type: TypeString, Required: true},
					"enable_password": {Type: TypeString},
					"old_description": {Type: TypeString},
					"old_username":    {Type: TypeString},
				}},
			},
			"snmp_v2c_read": {
				Type: TypeList, Elem: &Schema{Fields: map[string]Field{
					"description":     {Type: TypeString, Required: true},
					"read_community":  {Type: TypeString, Required: true},
					"old_description": {Type: TypeString},
				}},
			},
			"snmp_v2c_write": {
				Type: TypeList, Elem: &Schema{Fields: map[string]Field{
					"description":     {Type: TypeString, Required: true},
					"write_community": {Type: TypeString, Required: true},
					"old_description": {Type: TypeString},
				}},
			},
			"snmp_v3": {
				Type: TypeList, Elem: &Schema{Fields: map[string]Field{
					"description":      {Type: TypeString, Required: true},
					"username":         {Type: TypeString, Required: true},
					"snmp_mode":        {Type: TypeString, Default: "AUTHPRIV", Choices: []string{"AUTHPRIV", "AUTHNOPRIV", "NOAUTHNOPRIV"}},
					"auth_type":        {Type: TypeString, Choices: []string{"SHA", "MD5"}},
					"auth_password":    {Type: TypeString},
					"privacy_type":     {Type: TypeString, Choices: []string{"AES128", "AES192", "AES256"}},
					"privacy_password": {Type: TypeString},
					"old_description":  {Type: TypeString},
				}},
			},
			"https_read": {
				Type: TypeList, Elem: &Schema{Fields: map[string]Field{
					"description":     {Type: TypeString, Required: true},
					"username":        {Type: TypeString, Required: true},
					"password":        {Type: TypeString, Required: true},
					"port":            {Type: TypeInt, Default: 443, Min: 1, Max: 65535},
					"old_description": {Type: TypeString},
				}},
			},
			"https_write": {
				Type: TypeList, Elem: &Schema{Fields: map[string]Field{
					"description":     {Type: TypeString, Required: true},
					"username":        {Type: TypeString, Required: true},
					"password":        {Type: TypeString, Required: true},
					"port":            {Type: TypeInt, Default: 443, Min: 1, Max: 65535},
					"old_description": {Type: TypeString},
				}},
			},
		},
	}
}

// CredentialBindingKeys are the playbook field names of the six binding
// kinds.
var CredentialBindingKeys = []string{
	"cli_credential", "snmp_v2c_read", "snmp_v2c_write",
	"snmp_v3", "https_read", "https_write",
}

// SiteCredentialSchema describes one assign_credentials_to_site entry.
func SiteCredentialSchema() *Schema {
	ref := func() Field {
		// Credential references are opaque dicts: {description, username}
		// selects a global credential; {} is an explicit unset on the
		// Global site.
		return Field{Type: TypeDict}
	}
	return &Schema{
		Fields: map[string]Field{
			"site_name": {
				Type: TypeList, Required: true, ElemType: TypeString, Domain: DomainSitePath,
			},
			"cli_credential":  ref(),
			"snmp_v2c_read":   ref(),
			"snmp_v2c_write":  ref(),
			"snmp_v3":         ref(),
			"https_read":      ref(),
			"https_write":     ref(),
		},
		CrossField: siteCredentialCrossField,
	}
}

// siteCredentialCrossField enforces the root-unset rule: an empty mapping
// is an explicit unset and is legal only on the Global site.
func siteCredentialCrossField(doc map[string]any, path string) []Issue {
	sites, _ := doc["site_name"].([]any)
	allGlobal := len(sites) > 0
	for _, s := range sites {
		if name, _ := s.(string); name != "Global" {
			allGlobal = false
			break
		}
	}
	if allGlobal {
		return nil
	}
	var issues []Issue
	for _, key := range CredentialBindingKeys {
		ref, present := doc[key]
		if !present {
			continue
		}
		if m, ok := ref.(map[string]any); ok && len(m) == 0 {
			issues = append(issues, Issue{
				Kind:    engine.FailSchemaCrossField,
				Path:    path + "." + key,
				Message: "explicit credential unset ({}) is only valid on the Global site",
			})
		}
	}
	return issues
}

// LanAutomationSchema describes the lan_automation mapping.
func LanAutomationSchema() *Schema {
	return &Schema{
		Fields: map[string]Field{
			"primary_device_management_ip_address": {
				Type: TypeString, Required: true, Domain: DomainIPv4,
			},
			"peer_device_management_ip_address": {Type: TypeString, Domain: DomainIPv4},
			"primary_device_interface_names":    {Type: TypeList, ElemType: TypeString},
			"discovered_device_site_name_hierarchy": {
				Type: TypeString, Domain: DomainSitePath,
			},
			"ip_pools": {
				Type: TypeList, Elem: &Schema{Fields: map[string]Field{
					"ip_pool_name": {Type: TypeString, Required: true},
					"ip_pool_role": {
						Type: TypeString, Required: true,
						Choices: []string{"MAIN_POOL", "PHYSICAL_LINK_POOL"},
					},
				}},
			},
			"multicast_enabled":       {Type: TypeBool, Default: false},
			"host_name_prefix":        {Type: TypeString},
			"host_name_file_id":       {Type: TypeString},
			"isis_domain_password":    {Type: TypeString},
			"redistribute_isis_to_bgp": {Type: TypeBool, Default: false},
			"discovery_level":         {Type: TypeInt, Default: 2, Min: 1, Max: 5},
			"discovery_timeout":       {Type: TypeInt, Min: 20, Max: 10080},
			"discovery_devices": {
				Type: TypeList, Elem: &Schema{Fields: map[string]Field{
					"device_serial_number":         {Type: TypeString, Required: true},
					"device_host_name":             {Type: TypeString, Domain: DomainHostname},
					"device_site_name_hierarchy":   {Type: TypeString, Domain: DomainSitePath},
					"device_management_ip_address": {Type: TypeString, Domain: DomainIPv4},
				}},
			},
			"launch_and_wait":   {Type: TypeBool, Default: false},
			"pnp_authorization": {Type: TypeBool, Default: false},
			"device_serial_number_authorized": {Type: TypeList, ElemType: TypeString},
		},
		CrossField: func(doc map[string]any, path string) []Issue {
			primary, _ := doc["primary_device_management_ip_address"].(string)
			peer, _ := doc["peer_device_management_ip_address"].(string)
			if primary != "" && primary == peer {
				return []Issue{{
					Kind:    engine.FailSchemaCrossField,
					Path:    path + ".peer_device_management_ip_address",
					Message: "peer device must differ from the primary seed device",
				}}
			}
			return nil
		},
	}
}

// LanDeviceUpdateSchema describes the lan_automated_device_update mapping.
func LanDeviceUpdateSchema() *Schema {
	link := func(withPool bool) *Schema {
		fields := map[string]Field{
			"source_device_management_ip_address":      {Type: TypeString, Required: true, Domain: DomainIPv4},
			"source_device_interface_name":             {Type: TypeString, Required: true},
			"destination_device_management_ip_address": {Type: TypeString, Required: true, Domain: DomainIPv4},
			"destination_device_interface_name":        {Type: TypeString, Required: true},
		}
		if withPool {
			fields["ip_pool_name"] = Field{Type: TypeString, Required: true}
		}
		return &Schema{Fields: fields}
	}
	return &Schema{
		Fields: map[string]Field{
			"loopback_update_device_list": {
				Type: TypeList, Elem: &Schema{Fields: map[string]Field{
					"device_management_ip_address": {Type: TypeString, Required: true, Domain: DomainIPv4},
					"new_loopback0_ip_address":     {Type: TypeString, Required: true, Domain: DomainIPv4},
				}},
			},
			"hostname_update_devices": {
				Type: TypeList, Elem: &Schema{Fields: map[string]Field{
					"device_management_ip_address": {Type: TypeString, Required: true, Domain: DomainIPv4},
					"new_host_name":                {Type: TypeString, Required: true, Domain: DomainHostname},
				}},
			},
			"link_add":    {Type: TypeDict, Elem: link(true)},
			"link_delete": {Type: TypeDict, Elem: link(false)},
		},
	}
}

// moduleField describes how one top-level module key is validated.
type moduleField struct {
	list   bool
	schema *Schema
}

// moduleSchemas maps every recognized top-level key to its schema.
func moduleSchemas() map[string]moduleField {
	return map[string]moduleField{
		KeyFabricSites:       {list: true, schema: FabricSiteSchema()},
		KeyUserDefinedIssues: {list: true, schema: UserDefinedIssueSchema()},
		KeySystemIssues:      {list: true, schema: SystemIssueSchema()},
		KeyIssueActions:      {list: true, schema: IssueActionSchema()},
		KeyGlobalCredentials: {list: false, schema: GlobalCredentialSchema()},
		KeySiteCredentials:   {list: true, schema: SiteCredentialSchema()},
		KeyLanAutomation:     {list: false, schema: LanAutomationSchema()},
		KeyLanDeviceUpdate:   {list: false, schema: LanDeviceUpdateSchema()},
	}
}

// ValidateConfig validates a full playbook config list: each document may
// declare any subset of the module keys. All failures across all
// documents are aggregated.
func ValidateConfig(docs []map[string]any) Result {
	modules := moduleSchemas()
	result := Result{Docs: make([]map[string]any, 0, len(docs))}

	for i, doc := range docs {
		docPath := fmt.Sprintf("config[%d]", i)
		validated := make(map[string]any, len(doc))
		for key, value := range doc {
			module, known := modules[key]
			if !known {
				result.Issues = append(result.Issues, Issue{
					Kind:    engine.FailSchemaUnknownField,
					Path:    docPath + "." + key,
					Message: "unknown module key",
				})
				continue
			}
			keyPath := docPath + "." + key
			if module.list {
				rawList, ok := value.([]any)
				if !ok {
					result.Issues = append(result.Issues, typeMismatch(keyPath, "list", value))
					continue
				}
				listDocs := make([]map[string]any, 0, len(rawList))
				badElem := false
				for j, elem := range rawList {
					m, ok := elem.(map[string]any)
					if !ok {
						result.Issues = append(result.Issues,
							typeMismatch(fmt.Sprintf("%s[%d]", keyPath, j), "mapping", elem))
						badElem = true
						continue
					}
					listDocs = append(listDocs, m)
				}
				if badElem {
					continue
				}
				listResult := module.schema.ValidateList(listDocs, keyPath)
				result.Issues = append(result.Issues, listResult.Issues...)
				cleaned := make([]any, 0, len(listResult.Docs))
				for _, d := range listResult.Docs {
					cleaned = append(cleaned, d)
				}
				validated[key] = cleaned
				continue
			}
			m, ok := value.(map[string]any)
			if !ok {
				result.Issues = append(result.Issues, typeMismatch(keyPath, "mapping", value))
				continue
			}
			cleanDoc, issues := module.schema.Validate(m, keyPath)
			result.Issues = append(result.Issues, issues...)
			validated[key] = cleanDoc
		}
		result.Docs = append(result.Docs, validated)
	}
	return result
}
