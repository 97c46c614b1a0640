package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		siteDeleteWithZonesPolicy(),
		maxDeleteCountPolicy(),
		protectedRootPolicy(),
		credentialHygienePolicy(),
	}
}

// siteDeleteWithZonesPolicy blocks deleting a fabric site while a zone
// beneath it is kept by the same plan.
func siteDeleteWithZonesPolicy() Policy {
	return Policy{
		Name:        "site-delete-with-zones",
		Description: "Blocks fabric site deletion while a child fabric zone is not also deleted",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"fabric", "safety"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package fabricward.policies.fabric

import rego.v1

deny contains violation if {
	some action in input.plan.actions
	action.type == "delete"
	action.entity.kind == "fabric_site"

	some other in input.plan.actions
	other.entity.kind == "fabric_zone"
	startswith(other.entity.natural_key, concat("", [action.entity.natural_key, "/"]))
	other.type != "delete"

	violation := {
		"message": sprintf("fabric site %s cannot be deleted while zone %s is kept", [action.entity.natural_key, other.entity.natural_key]),
		"severity": "error",
		"entity": action.entity.natural_key,
	}
}
`,
	}
}

// maxDeleteCountPolicy bounds the blast radius of one run.
func maxDeleteCountPolicy() Policy {
	return Policy{
		Name:        "max-delete-count",
		Description: "Blocks plans that delete more than 20 entities in one run",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"safety", "blast-radius"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package fabricward.policies.blast_radius

import rego.v1

max_deletes := 20

deny contains violation if {
	deletes := [action | some action in input.plan.actions; action.type == "delete"]
	count(deletes) > max_deletes

	violation := {
		"message": sprintf("plan deletes %d entities, above the limit of %d", [count(deletes), max_deletes]),
		"severity": "error",
		"entity": "plan",
	}
}
`,
	}
}

// protectedRootPolicy blocks structural deletions at the Global root.
func protectedRootPolicy() Policy {
	return Policy{
		Name:        "protected-root",
		Description: "Blocks deleting fabric constructs at the Global root site",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"fabric", "safety"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package fabricward.policies.root

import rego.v1

deny contains violation if {
	some action in input.plan.actions
	action.type == "delete"
	action.entity.kind in {"fabric_site", "fabric_zone"}
	action.entity.natural_key == "Global"

	violation := {
		"message": "the Global root site cannot carry fabric deletions",
		"severity": "error",
		"entity": "Global",
	}
}
`,
	}
}

// credentialHygienePolicy warns on weak credential material. Warnings
// do not block the run.
func credentialHygienePolicy() Policy {
	return Policy{
		Name:        "credential-hygiene",
		Description: "Warns when a device credential reuses its username as password",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"credentials"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package fabricward.policies.credentials

import rego.v1

deny contains violation if {
	some action in input.plan.actions
	action.entity.kind == "device_credential"
	action.type in {"create", "update"}
	action.entity.payload.password == action.entity.payload.username

	violation := {
		"message": sprintf("credential %s uses its username as password", [action.entity.natural_key]),
		"severity": "warning",
		"entity": action.entity.natural_key,
	}
}
`,
	}
}
