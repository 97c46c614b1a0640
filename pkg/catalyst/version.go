package catalyst

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fabricward/fabricward/pkg/engine"
)

// Feature names a version-gated controller capability.
type Feature string

const (
	// FeatureDeviceCredentials covers global credentials and site bindings.
	FeatureDeviceCredentials Feature = "device_credentials"

	// FeatureFabric covers fabric sites, zones and authentication profiles.
	FeatureFabric Feature = "fabric_sites_zones"

	// FeatureLanAutomationV2 covers the v2 LAN automation session API.
	FeatureLanAutomationV2 Feature = "lan_automation_v2"

	// FeatureAssuranceWorkflow covers issue definitions and issue actions.
	FeatureAssuranceWorkflow Feature = "assurance_workflow"

	// FeaturePendingFabricEvents covers pending fabric event application.
	FeaturePendingFabricEvents Feature = "pending_fabric_events"

	// FeaturePreAuthACL covers the Low Impact pre-auth ACL block.
	FeaturePreAuthACL Feature = "low_impact_pre_auth_acl"

	// FeatureIgnoreDuration covers the issue ignore-duration parameter.
	FeatureIgnoreDuration Feature = "issue_ignore_duration"
)

// MinimumVersions maps each gated feature to the first controller version
// supporting it.
var MinimumVersions = map[Feature]string{
	FeatureDeviceCredentials:   "2.3.5.3",
	FeatureFabric:              "2.3.7.6",
	FeatureLanAutomationV2:     "2.3.7.6",
	FeatureAssuranceWorkflow:   "2.3.7.6",
	FeaturePendingFabricEvents: "2.3.7.9",
	FeaturePreAuthACL:          "2.3.7.9",
	FeatureIgnoreDuration:      "2.3.7.10",
}

// CompareVersions returns -1, 0 or 1 comparing two dotted version strings
// numerically segment by segment; a missing segment counts as zero.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// CheckVersion fails with a precise diagnostic when the controller version
// is below the feature's minimum.
func CheckVersion(controllerVersion string, feature Feature) error {
	minimum, ok := MinimumVersions[feature]
	if !ok {
		return fmt.Errorf("unknown feature: %s", feature)
	}
	if CompareVersions(controllerVersion, minimum) < 0 {
		return engine.Errorf(engine.FailVersionGate,
			"feature %s requires controller version %s or later, found %s",
			feature, minimum, controllerVersion)
	}
	return nil
}
