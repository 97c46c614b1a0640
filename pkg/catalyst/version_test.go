package catalyst

import (
	"errors"
	"testing"

	"github.com/fabricward/fabricward/pkg/engine"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2.3.7.6", "2.3.7.6", 0},
		{"2.3.7.6", "2.3.7.9", -1},
		{"2.3.7.10", "2.3.7.9", 1},
		{"2.3.7", "2.3.7.0", 0},
		{"2.10.0", "2.9.9", 1},
		{"2.3.5.3", "2.3.7.6", -1},
	}
	for _, tt := range tests {
		if got := CompareVersions(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCheckVersion(t *testing.T) {
	if err := CheckVersion("2.3.7.9", FeatureFabric); err != nil {
		t.Errorf("2.3.7.9 should support fabric: %v", err)
	}
	if err := CheckVersion("2.3.7.9", FeatureIgnoreDuration); err == nil {
		t.Error("2.3.7.9 should not support ignore duration")
	}

	err := CheckVersion("2.3.5.3", FeaturePendingFabricEvents)
	if err == nil {
		t.Fatal("expected version gate failure")
	}
	var rerr *engine.ReconcileError
	if !errors.As(err, &rerr) || rerr.Kind != engine.FailVersionGate {
		t.Errorf("expected %s, got %v", engine.FailVersionGate, err)
	}
}

func TestCheckVersionUnknownFeature(t *testing.T) {
	if err := CheckVersion("2.3.7.9", Feature("bogus")); err == nil {
		t.Error("expected error for unknown feature")
	}
}
