package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Domain names a domain validation applied to a coerced field value.
type Domain string

const (
	// DomainIPv4 requires a dotted-quad IPv4 address.
	DomainIPv4 Domain = "ipv4"

	// DomainIPv6 requires an IPv6 address.
	DomainIPv6 Domain = "ipv6"

	// DomainMAC requires a colon- or dash-separated MAC address.
	DomainMAC Domain = "mac"

	// DomainDatetime requires "YYYY-MM-DD HH:MM:SS".
	DomainDatetime Domain = "datetime"

	// DomainSitePath requires a hierarchy path rooted at Global.
	DomainSitePath Domain = "site_path"

	// DomainVLANID requires a VLAN ID in [2, 4094] excluding the
	// controller-reserved IDs.
	DomainVLANID Domain = "vlan_id"

	// DomainIgnoreDuration requires "<n>h" (1..720) or "<n>d" (1..30).
	DomainIgnoreDuration Domain = "ignore_duration"

	// DomainHostname requires a DNS hostname.
	DomainHostname Domain = "hostname"
)

var domainValidator = validator.New()

var (
	ignoreDurationRe = regexp.MustCompile(`^(\d+)([hd])$`)
	sitePathRe       = regexp.MustCompile(`^Global(/[^/]+)*$`)
)

// reservedVLANs are VLAN IDs the controller refuses.
var reservedVLANs = map[int]bool{
	1002: true, 1003: true, 1004: true, 1005: true, 2046: true,
}

// checkDomain validates a string value; the empty return means valid.
func checkDomain(domain Domain, value string) string {
	switch domain {
	case DomainIPv4:
		if err := domainValidator.Var(value, "ipv4"); err != nil {
			return fmt.Sprintf("%q is not a valid IPv4 address", value)
		}
	case DomainIPv6:
		if err := domainValidator.Var(value, "ipv6"); err != nil {
			return fmt.Sprintf("%q is not a valid IPv6 address", value)
		}
	case DomainMAC:
		if err := domainValidator.Var(value, "mac"); err != nil {
			return fmt.Sprintf("%q is not a valid MAC address", value)
		}
	case DomainHostname:
		if err := domainValidator.Var(value, "hostname"); err != nil {
			return fmt.Sprintf("%q is not a valid hostname", value)
		}
	case DomainDatetime:
		if _, err := time.Parse("2006-01-02 15:04:05", value); err != nil {
			return fmt.Sprintf("%q does not match YYYY-MM-DD HH:MM:SS", value)
		}
	case DomainSitePath:
		if !sitePathRe.MatchString(value) {
			return fmt.Sprintf("%q is not a site hierarchy path rooted at Global", value)
		}
	case DomainIgnoreDuration:
		return checkIgnoreDuration(value)
	}
	return ""
}

// checkIntDomain validates an integer value; the empty return means valid.
func checkIntDomain(domain Domain, value int) string {
	if domain == DomainVLANID {
		if value < 2 || value > 4094 || reservedVLANs[value] {
			return fmt.Sprintf("VLAN ID %d is outside [2, 4094] or reserved", value)
		}
	}
	return ""
}

// checkIgnoreDuration validates the "<n>h"/"<n>d" form: hours 1..720,
// days 1..30.
func checkIgnoreDuration(value string) string {
	m := ignoreDurationRe.FindStringSubmatch(value)
	if m == nil {
		return fmt.Sprintf("%q does not match the <number>[h|d] duration form", value)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return fmt.Sprintf("%q has an unparseable duration value", value)
	}
	switch m[2] {
	case "h":
		if n < 1 || n > 720 {
			return fmt.Sprintf("ignore duration %q is outside 1h..720h", value)
		}
	case "d":
		if n < 1 || n > 30 {
			return fmt.Sprintf("ignore duration %q is outside 1d..30d", value)
		}
	}
	return ""
}

// IgnoreDurationHours converts a validated ignore duration to hours, the
// unit the controller takes; days multiply by 24.
func IgnoreDurationHours(value string) (int, error) {
	if msg := checkIgnoreDuration(value); msg != "" {
		return 0, fmt.Errorf("%s", msg)
	}
	m := ignoreDurationRe.FindStringSubmatch(value)
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, err
	}
	if m[2] == "d" {
		n *= 24
	}
	return n, nil
}

// NormalizeMAC rewrites a dash-separated MAC to the colon form the
// controller stores.
func NormalizeMAC(value string) string {
	return strings.ReplaceAll(value, "-", ":")
}
