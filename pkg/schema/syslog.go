package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Severity labels accepted in playbooks, mapped to the controller's
// integer severities.
var severityLabels = map[string]int{
	"Emergency":     0,
	"Alert":         1,
	"Critical":      2,
	"Error":         3,
	"Warning":       4,
	"Notice":        5,
	"Info":          6,
	"Informational": 6,
}

// SeverityFromLabel maps a human severity label to its integer form.
// Integer strings in 0..6 are accepted directly.
func SeverityFromLabel(label string) (int, bool) {
	if n, ok := severityLabels[label]; ok {
		return n, ok
	}
	for name, n := range severityLabels {
		if strings.EqualFold(label, name) {
			return n, true
		}
	}
	return 0, false
}

// syslogTriples maps severity to facility to the mnemonics valid for that
// pair. User-defined issue rules must name a triple from this table.
var syslogTriples = map[int]map[string][]string{
	0: {
		"PLATFORM":      {"PFM_FAULT", "OVERTEMP_SHUTDOWN"},
		"SYS":           {"EMERG_RELOAD"},
		"ENVIRONMENTAL": {"SHUTDOWN"},
	},
	1: {
		"PLATFORM_ENV": {"FRU_PS_FAN_FAILED", "RPS_FAN_FAILED"},
		"ENVMON":       {"FAN_FAILURE_ALERT"},
		"SYS":          {"STACK_POWER_CRITICAL"},
	},
	2: {
		"PLATFORM": {"PS_FAIL", "FAN_CRITICAL"},
		"SPA":      {"TEMP_CRITICAL"},
		"SYS":      {"CPUHOG", "MALLOCFAIL"},
	},
	3: {
		"CTS":      {"AUTHZ_POLICY_SGACL_ACE_FAILED", "AUTHZ_POLICY_FAILED", "SXP_CONN_STATE_CHG_OFF"},
		"LINK":     {"UPDOWN_ERROR"},
		"SYS":      {"OVERRUN", "SELF_TEST_FAILED"},
		"OSPF":     {"CONFIG_ERROR", "NOBACKBONE"},
		"PM":       {"ERR_DISABLE"},
		"REDUNDANCY": {"STANDBY_LOST", "SWITCHOVER"},
	},
	4: {
		"REDUNDANCY": {"PEER_MONITOR_EVENT", "PEER_DOWN"},
		"CTS":        {"SXP_CONN_RETRY"},
		"SYS":        {"CONFIG_RESOLVE_FAILURE"},
		"C4K_IOSMODPORTMAN": {"POWERSUPPLYBAD"},
		"MEM":        {"LOW_MEMORY"},
	},
	5: {
		"CLNS":   {"ADJCHG"},
		"BGP":    {"ADJCHANGE", "NBR_RESET"},
		"OSPF":   {"ADJCHG"},
		"SYS":    {"CONFIG_I", "RELOAD", "RESTART"},
		"LINEPROTO": {"UPDOWN"},
		"DUAL":   {"NBRCHANGE"},
	},
	6: {
		"LINK": {"UPDOWN"},
		"SYS":  {"LOGGINGHOST_STARTSTOP"},
		"PNP":  {"PNP_DISCOVERY_STOPPED"},
		"DHCP": {"ADDRESS_ASSIGN"},
	},
}

// CheckSyslogTriple verifies that the (severity, facility, mnemonic)
// combination is one the controller accepts for user-defined issue rules.
// An empty return means valid.
func CheckSyslogTriple(severity int, facility, mnemonic string) string {
	facilities, ok := syslogTriples[severity]
	if !ok {
		return fmt.Sprintf("severity %d is outside 0..6", severity)
	}
	mnemonics, ok := facilities[facility]
	if !ok {
		return fmt.Sprintf("facility %q is not valid for severity %d (valid: %s)",
			facility, severity, strings.Join(facilityNames(facilities), ", "))
	}
	for _, m := range mnemonics {
		if m == mnemonic {
			return ""
		}
	}
	return fmt.Sprintf("mnemonic %q is not valid for severity %d facility %q (valid: %s)",
		mnemonic, severity, facility, strings.Join(mnemonics, ", "))
}

func facilityNames(facilities map[string][]string) []string {
	names := make([]string, 0, len(facilities))
	for name := range facilities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
