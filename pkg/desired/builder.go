// Package desired builds the "want" side of a reconcile run: validated
// playbook documents are rendered into entities in the controller's
// canonical camelCase payload shape. Payloads carry only the fields a
// playbook declares; undeclared fields never participate in the diff.
package desired

import (
	"fmt"

	"github.com/fabricward/fabricward/pkg/catalyst"
	"github.com/fabricward/fabricward/pkg/engine"
	"github.com/fabricward/fabricward/pkg/schema"
)

// Build renders validated config documents into desired entities,
// de-duplicated by natural key with the later declaration winning.
func Build(docs []map[string]any) ([]engine.Entity, error) {
	var entities []engine.Entity
	for i, doc := range docs {
		docEntities, err := buildDoc(doc)
		if err != nil {
			return nil, fmt.Errorf("config[%d]: %w", i, err)
		}
		entities = append(entities, docEntities...)
	}
	return engine.DedupByNaturalKey(entities), nil
}

func buildDoc(doc map[string]any) ([]engine.Entity, error) {
	var entities []engine.Entity

	for _, raw := range listOf(doc, schema.KeyFabricSites) {
		built, err := fabricEntities(raw)
		if err != nil {
			return nil, err
		}
		entities = append(entities, built...)
	}
	for _, raw := range listOf(doc, schema.KeyUserDefinedIssues) {
		entity, err := issueDefinitionEntity(raw)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	for _, raw := range listOf(doc, schema.KeySystemIssues) {
		entities = append(entities, systemIssueEntity(raw))
	}
	for _, raw := range listOf(doc, schema.KeyIssueActions) {
		entity, err := issueActionEntity(raw)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	if creds, ok := doc[schema.KeyGlobalCredentials].(map[string]any); ok {
		entities = append(entities, credentialEntities(creds)...)
	}
	for _, raw := range listOf(doc, schema.KeySiteCredentials) {
		entities = append(entities, bindingEntities(raw)...)
	}
	if session, ok := doc[schema.KeyLanAutomation].(map[string]any); ok {
		entities = append(entities, lanSessionEntity(session))
	}
	if updates, ok := doc[schema.KeyLanDeviceUpdate].(map[string]any); ok {
		entities = append(entities, deviceUpdateEntities(updates)...)
	}
	return entities, nil
}

func listOf(doc map[string]any, key string) []map[string]any {
	raw, _ := doc[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, elem := range raw {
		if m, ok := elem.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// fabricEntities renders one fabric_sites entry into a fabric site or
// zone entity, plus an authentication profile entity when the entry
// declares profile updates.
func fabricEntities(doc map[string]any) ([]engine.Entity, error) {
	sitePath, _ := doc["site_name_hierarchy"].(string)
	fabricType, _ := doc["fabric_type"].(string)

	payload := map[string]any{}
	if profile, ok := doc["authentication_profile"].(string); ok {
		payload["authenticationProfileName"] = profile
	}

	var entities []engine.Entity
	if fabricType == "fabric_zone" {
		entities = append(entities, engine.Entity{
			Kind:       engine.KindFabricZone,
			NaturalKey: sitePath,
			Payload:    payload,
		})
	} else {
		if pubSub, ok := doc["is_pub_sub_enabled"].(bool); ok {
			payload["isPubSubEnabled"] = pubSub
		}
		if apply, ok := doc["apply_pending_events"].(bool); ok && apply {
			payload["applyPendingEvents"] = true
		}
		entities = append(entities, engine.Entity{
			Kind:       engine.KindFabricSite,
			NaturalKey: sitePath,
			Payload:    payload,
		})
	}

	update, ok := doc["update_authentication_profile"].(map[string]any)
	if !ok || len(update) == 0 {
		return entities, nil
	}
	profileName, _ := doc["authentication_profile"].(string)
	if profileName == "" {
		return nil, engine.Errorf(engine.FailSchemaCrossField,
			"%s: update_authentication_profile requires authentication_profile", sitePath)
	}
	entities = append(entities, authProfileEntity(sitePath, profileName, update))
	return entities, nil
}

func authProfileEntity(sitePath, profileName string, update map[string]any) engine.Entity {
	payload := map[string]any{
		"authenticationProfileName": profileName,
	}
	if order, ok := update["authentication_order"].(string); ok {
		payload["authenticationOrder"] = order
	}
	if timeout, ok := update["dot1x_fallback_timeout"].(int); ok {
		payload["dot1xToMabFallbackTimeout"] = timeout
	}
	if wol, ok := update["wake_on_lan"].(bool); ok {
		payload["wakeOnLan"] = wol
	}
	if hosts, ok := update["number_of_hosts"].(string); ok {
		payload["numberOfHosts"] = hosts
	}
	if bpdu, ok := update["enable_bpdu_guard"].(bool); ok {
		payload["isBpduGuardEnabled"] = bpdu
	} else if profileName == "Closed Authentication" {
		// The controller defaults BPDU guard on for Closed Authentication;
		// declaring the profile without the flag must not flap it off.
		payload["isBpduGuardEnabled"] = true
	}
	if acl, ok := update["pre_auth_acl"].(map[string]any); ok && len(acl) > 0 {
		payload["preAuthAcl"] = preAuthACLPayload(acl)
	}
	return engine.Entity{
		Kind:       engine.KindAuthProfile,
		NaturalKey: engine.ProfileKey(sitePath, profileName),
		Payload:    payload,
	}
}

func preAuthACLPayload(acl map[string]any) map[string]any {
	payload := map[string]any{}
	if enabled, ok := acl["enabled"].(bool); ok {
		payload["enabled"] = enabled
	}
	if action, ok := acl["implicit_action"].(string); ok {
		payload["implicitAction"] = action
	}
	if description, ok := acl["description"].(string); ok {
		payload["description"] = description
	}
	raw, _ := acl["access_contracts"].([]any)
	contracts := make([]any, 0, len(raw))
	for _, elem := range raw {
		contract, _ := elem.(map[string]any)
		contracts = append(contracts, map[string]any{
			"action":   contract["action"],
			"protocol": contract["protocol"],
			"port":     contract["port"],
		})
	}
	payload["accessContracts"] = contracts
	return payload
}

func issueDefinitionEntity(doc map[string]any) (engine.Entity, error) {
	name, _ := doc["name"].(string)
	payload := map[string]any{"name": name}
	if description, ok := doc["description"].(string); ok {
		payload["description"] = description
	}
	if prev, ok := doc["prev_name"].(string); ok {
		payload["prevName"] = prev
	}
	if enabled, ok := doc["is_enabled"].(bool); ok {
		payload["isEnabled"] = enabled
	}
	if priority, ok := doc["priority"].(string); ok {
		payload["priority"] = priority
	}
	if notify, ok := doc["is_notification_enabled"].(bool); ok {
		payload["isNotificationEnabled"] = notify
	}

	raw, _ := doc["rules"].([]any)
	rules := make([]any, 0, len(raw))
	for _, elem := range raw {
		rule, _ := elem.(map[string]any)
		label, _ := rule["severity"].(string)
		severity, ok := schema.SeverityFromLabel(label)
		if !ok {
			if _, err := fmt.Sscanf(label, "%d", &severity); err != nil {
				return engine.Entity{}, engine.Errorf(engine.FailSchemaDomainInvalid,
					"issue %q: unmappable severity %q", name, label)
			}
		}
		out := map[string]any{
			"severity": severity,
			"facility": rule["facility"],
			"mnemonic": rule["mnemonic"],
		}
		if pattern, ok := rule["pattern"].(string); ok {
			out["pattern"] = pattern
		}
		if occurrences, ok := rule["occurrences"].(int); ok {
			out["occurrences"] = occurrences
		}
		if duration, ok := rule["duration_in_minutes"].(int); ok {
			out["durationInMinutes"] = duration
		}
		rules = append(rules, out)
	}
	if len(rules) > 0 {
		payload["rules"] = rules
	}
	return engine.Entity{
		Kind:       engine.KindIssueDefinition,
		NaturalKey: name,
		Payload:    payload,
	}, nil
}

func systemIssueEntity(doc map[string]any) engine.Entity {
	name, _ := doc["name"].(string)
	payload := map[string]any{}
	if deviceType, ok := doc["device_type"].(string); ok {
		payload["deviceType"] = deviceType
	}
	if enabled, ok := doc["issue_enabled"].(bool); ok {
		payload["issueEnabled"] = enabled
	}
	if priority, ok := doc["priority"].(string); ok {
		payload["priority"] = priority
	}
	if sync, ok := doc["synchronize_to_health_threshold"].(bool); ok {
		payload["synchronizeToHealthThreshold"] = sync
	}
	if threshold, ok := doc["threshold_value"].(float64); ok {
		payload["thresholdValue"] = threshold
	}
	return engine.Entity{
		Kind:       engine.KindSystemIssue,
		NaturalKey: name,
		Payload:    payload,
	}
}

func issueActionEntity(doc map[string]any) (engine.Entity, error) {
	name, _ := doc["issue_name"].(string)
	process, _ := doc["issue_process_type"].(string)
	payload := map[string]any{"processType": process}

	if sitePath, ok := doc["site_hierarchy"].(string); ok {
		payload["siteHierarchy"] = sitePath
	}
	if deviceName, ok := doc["device_name"].(string); ok {
		payload["deviceName"] = deviceName
	}
	if mac, ok := doc["mac_address"].(string); ok {
		payload["macAddress"] = schema.NormalizeMAC(mac)
	}
	if ip, ok := doc["network_device_ip_address"].(string); ok {
		payload["deviceIpAddress"] = ip
	}
	if start, ok := doc["start_datetime"].(string); ok {
		payload["startTime"] = start
	}
	if end, ok := doc["end_datetime"].(string); ok {
		payload["endTime"] = end
	}
	if duration, ok := doc["ignore_duration"].(string); ok {
		hours, err := schema.IgnoreDurationHours(duration)
		if err != nil {
			return engine.Entity{}, engine.Errorf(engine.FailSchemaDomainInvalid,
				"issue action %q: %v", name, err)
		}
		payload["ignoreHours"] = hours
	}
	return engine.Entity{
		Kind:       engine.KindIssueAction,
		NaturalKey: name,
		Payload:    payload,
	}, nil
}

// credentialFieldKinds maps playbook credential list keys to the
// controller kind names.
var credentialFieldKinds = map[string]catalyst.CredentialKind{
	"cli_credential": catalyst.CredentialCLI,
	"snmp_v2c_read":  catalyst.CredentialSNMPv2Read,
	"snmp_v2c_write": catalyst.CredentialSNMPv2Write,
	"snmp_v3":        catalyst.CredentialSNMPv3,
	"https_read":     catalyst.CredentialHTTPSRead,
	"https_write":    catalyst.CredentialHTTPSWrite,
}

func credentialEntities(doc map[string]any) []engine.Entity {
	var entities []engine.Entity
	for _, field := range schema.CredentialBindingKeys {
		kind := credentialFieldKinds[field]
		raw, _ := doc[field].([]any)
		for _, elem := range raw {
			cred, _ := elem.(map[string]any)
			description, _ := cred["description"].(string)
			username, _ := cred["username"].(string)

			payload := map[string]any{
				"kind":        string(kind),
				"description": description,
			}
			if username != "" {
				payload["username"] = username
			}
			for from, to := range map[string]string{
				"password":         "password",
				"enable_password":  "enablePassword",
				"read_community":   "readCommunity",
				"write_community":  "writeCommunity",
				"snmp_mode":        "snmpMode",
				"auth_type":        "authType",
				"auth_password":    "authPassword",
				"privacy_type":     "privacyType",
				"privacy_password": "privacyPassword",
				"old_description":  "oldDescription",
				"old_username":     "oldUsername",
			} {
				if value, ok := cred[from]; ok {
					payload[to] = value
				}
			}
			if port, ok := cred["port"].(int); ok {
				payload["port"] = port
			}
			entities = append(entities, engine.Entity{
				Kind:       engine.KindDeviceCredential,
				NaturalKey: engine.CredentialKey(string(kind), description, username),
				Payload:    payload,
			})
		}
	}
	return entities
}

// bindingEntities fans one assign_credentials_to_site entry out into one
// entity per named site. Payload values are canonical reference strings:
// "description|username" selects a credential, "" is an explicit unset,
// absence means inherit.
func bindingEntities(doc map[string]any) []engine.Entity {
	raw, _ := doc["site_name"].([]any)
	var entities []engine.Entity
	for _, elem := range raw {
		sitePath, _ := elem.(string)
		payload := map[string]any{}
		for _, field := range schema.CredentialBindingKeys {
			ref, present := doc[field].(map[string]any)
			if !present {
				continue
			}
			kind := string(credentialFieldKinds[field])
			if len(ref) == 0 {
				payload[kind] = ""
				continue
			}
			description, _ := ref["description"].(string)
			username, _ := ref["username"].(string)
			payload[kind] = description + "|" + username
		}
		entities = append(entities, engine.Entity{
			Kind:       engine.KindCredentialBinding,
			NaturalKey: sitePath,
			Payload:    payload,
		})
	}
	return entities
}

func lanSessionEntity(doc map[string]any) engine.Entity {
	seed, _ := doc["primary_device_management_ip_address"].(string)
	payload := map[string]any{
		"primaryDeviceManagmentIPAddress": seed,
	}
	if peer, ok := doc["peer_device_management_ip_address"].(string); ok {
		payload["peerDeviceManagmentIPAddress"] = peer
	}
	if names, ok := doc["primary_device_interface_names"].([]any); ok {
		payload["primaryDeviceInterfaceNames"] = names
	}
	if sitePath, ok := doc["discovered_device_site_name_hierarchy"].(string); ok {
		payload["discoveredDeviceSiteNameHierarchy"] = sitePath
	}
	if pools, ok := doc["ip_pools"].([]any); ok {
		rendered := make([]any, 0, len(pools))
		for _, elem := range pools {
			pool, _ := elem.(map[string]any)
			rendered = append(rendered, map[string]any{
				"ipPoolName": pool["ip_pool_name"],
				"ipPoolRole": pool["ip_pool_role"],
			})
		}
		payload["ipPools"] = rendered
	}
	for from, to := range map[string]string{
		"multicast_enabled":        "multicastEnabled",
		"redistribute_isis_to_bgp": "redistributeIsisToBgp",
		"launch_and_wait":          "launchAndWait",
		"pnp_authorization":        "pnpAuthorization",
	} {
		if value, ok := doc[from].(bool); ok {
			payload[to] = value
		}
	}
	for from, to := range map[string]string{
		"host_name_prefix":     "hostNamePrefix",
		"host_name_file_id":    "hostNameFileId",
		"isis_domain_password": "isisDomainPwd",
	} {
		if value, ok := doc[from].(string); ok {
			payload[to] = value
		}
	}
	if level, ok := doc["discovery_level"].(int); ok {
		payload["discoveryLevel"] = level
	}
	if timeout, ok := doc["discovery_timeout"].(int); ok {
		payload["discoveryTimeout"] = timeout
	}
	if devices, ok := doc["discovery_devices"].([]any); ok {
		rendered := make([]any, 0, len(devices))
		for _, elem := range devices {
			device, _ := elem.(map[string]any)
			out := map[string]any{"deviceSerialNumber": device["device_serial_number"]}
			if hostname, ok := device["device_host_name"].(string); ok {
				out["deviceHostName"] = hostname
			}
			if sitePath, ok := device["device_site_name_hierarchy"].(string); ok {
				out["deviceSiteNameHierarchy"] = sitePath
			}
			if ip, ok := device["device_management_ip_address"].(string); ok {
				out["deviceManagementIPAddress"] = ip
			}
			rendered = append(rendered, out)
		}
		payload["discoveryDevices"] = rendered
	}
	if serials, ok := doc["device_serial_number_authorized"].([]any); ok {
		payload["deviceSerialNumberAuthorized"] = serials
	}
	return engine.Entity{
		Kind:       engine.KindLanSession,
		NaturalKey: seed,
		Payload:    payload,
	}
}

func deviceUpdateEntities(doc map[string]any) []engine.Entity {
	var entities []engine.Entity

	link := func(feature catalyst.DeviceUpdateFeature, raw map[string]any) engine.Entity {
		sourceIP, _ := raw["source_device_management_ip_address"].(string)
		sourceInterface, _ := raw["source_device_interface_name"].(string)
		destIP, _ := raw["destination_device_management_ip_address"].(string)
		destInterface, _ := raw["destination_device_interface_name"].(string)

		payload := map[string]any{
			"feature":                              string(feature),
			"sourceDeviceManagementIPAddress":      sourceIP,
			"sourceDeviceInterfaceName":            sourceInterface,
			"destinationDeviceManagementIPAddress": destIP,
			"destinationDeviceInterfaceName":       destInterface,
		}
		if pool, ok := raw["ip_pool_name"].(string); ok {
			payload["ipPoolName"] = pool
		}
		return engine.Entity{
			Kind:       engine.KindLinkUpdate,
			NaturalKey: engine.LinkKey(sourceIP, sourceInterface, destIP, destInterface),
			Payload:    payload,
		}
	}

	if raw, ok := doc["link_add"].(map[string]any); ok && len(raw) > 0 {
		entities = append(entities, link(catalyst.UpdateFeatureLinkAdd, raw))
	}
	if raw, ok := doc["link_delete"].(map[string]any); ok && len(raw) > 0 {
		entities = append(entities, link(catalyst.UpdateFeatureLinkDelete, raw))
	}
	if raw, ok := doc["hostname_update_devices"].([]any); ok {
		for _, elem := range raw {
			device, _ := elem.(map[string]any)
			ip, _ := device["device_management_ip_address"].(string)
			hostname, _ := device["new_host_name"].(string)
			entities = append(entities, engine.Entity{
				Kind:       engine.KindHostnameUpdate,
				NaturalKey: engine.DeviceKey(ip),
				Payload:    map[string]any{"hostname": hostname},
			})
		}
	}
	if raw, ok := doc["loopback_update_device_list"].([]any); ok {
		for _, elem := range raw {
			device, _ := elem.(map[string]any)
			ip, _ := device["device_management_ip_address"].(string)
			address, _ := device["new_loopback0_ip_address"].(string)
			entities = append(entities, engine.Entity{
				Kind:       engine.KindLoopbackUpdate,
				NaturalKey: engine.DeviceKey(ip),
				Payload:    map[string]any{"ipAddress": address},
			})
		}
	}
	return entities
}
