package reconcile

import (
	"github.com/fabricward/fabricward/pkg/catalyst"
	"github.com/fabricward/fabricward/pkg/engine"
)

// requiredFeatures collects the version-gated controller features the
// desired entities exercise.
func requiredFeatures(want []engine.Entity) []catalyst.Feature {
	seen := make(map[catalyst.Feature]bool)
	var features []catalyst.Feature
	add := func(f catalyst.Feature) {
		if !seen[f] {
			seen[f] = true
			features = append(features, f)
		}
	}

	for _, entity := range want {
		switch entity.Kind {
		case engine.KindFabricSite:
			add(catalyst.FeatureFabric)
			if _, ok := entity.Payload["applyPendingEvents"]; ok {
				add(catalyst.FeaturePendingFabricEvents)
			}
		case engine.KindFabricZone:
			add(catalyst.FeatureFabric)
		case engine.KindAuthProfile:
			add(catalyst.FeatureFabric)
			if _, ok := entity.Payload["preAuthAcl"]; ok {
				add(catalyst.FeaturePreAuthACL)
			}
		case engine.KindDeviceCredential, engine.KindCredentialBinding:
			add(catalyst.FeatureDeviceCredentials)
		case engine.KindIssueDefinition, engine.KindSystemIssue:
			add(catalyst.FeatureAssuranceWorkflow)
		case engine.KindIssueAction:
			add(catalyst.FeatureAssuranceWorkflow)
			if _, ok := entity.Payload["ignoreHours"]; ok {
				add(catalyst.FeatureIgnoreDuration)
			}
		case engine.KindLanSession, engine.KindLinkUpdate,
			engine.KindHostnameUpdate, engine.KindLoopbackUpdate:
			add(catalyst.FeatureLanAutomationV2)
		}
	}
	return features
}

// gateVersion fails when the controller version is below the minimum of
// any feature the desired entities need.
func gateVersion(controllerVersion string, want []engine.Entity) error {
	for _, feature := range requiredFeatures(want) {
		if err := catalyst.CheckVersion(controllerVersion, feature); err != nil {
			return err
		}
	}
	return nil
}
