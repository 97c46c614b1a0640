package engine

import "strings"

// Natural keys are the playbook-side identities entities are matched on.
// They are plain strings so they can key maps and appear in logs; the
// helpers below build the composite forms.

// CredentialKey builds the natural key of a global device credential.
// Username is empty for kinds that carry none.
func CredentialKey(kind, description, username string) string {
	if username == "" {
		return kind + "/" + description
	}
	return kind + "/" + description + "/" + username
}

// LinkKey builds the natural key of a link add or delete between two
// device interfaces.
func LinkKey(sourceIP, sourceInterface, destIP, destInterface string) string {
	return strings.Join([]string{sourceIP, sourceInterface, destIP, destInterface}, "|")
}

// DeviceKey builds the natural key of a per-device update (hostname or
// loopback) from the device management IP.
func DeviceKey(ip string) string { return ip }

// ProfileKey builds the natural key of an authentication profile update
// scoped to one fabric site.
func ProfileKey(sitePath, profileName string) string {
	return sitePath + "#" + profileName
}
