package catalyst

import (
	"context"

	"github.com/fabricward/fabricward/pkg/engine"
)

// Sites exposes the site-design family used by the site resolver.
type Sites interface {
	// GetSite returns the site at the given hierarchy path, or (nil, nil)
	// when the path does not exist.
	GetSite(ctx context.Context, nameHierarchy string) (*Site, error)

	// ListSites returns every site whose hierarchy path starts with the
	// given prefix. Pagination is hidden from the caller.
	ListSites(ctx context.Context, prefix string) ([]Site, error)
}

// SDA exposes the fabric-site, fabric-zone and authentication-profile
// operations.
type SDA interface {
	// GetFabricSite returns the fabric site attached to siteID, or
	// (nil, nil) when the site is not a fabric site.
	GetFabricSite(ctx context.Context, siteID string) (*FabricSite, error)

	// CreateFabricSite submits a fabric site create and returns its task.
	CreateFabricSite(ctx context.Context, payload map[string]any) (engine.TaskFuture, error)

	// UpdateFabricSite submits a fabric site update and returns its task.
	UpdateFabricSite(ctx context.Context, payload map[string]any) (engine.TaskFuture, error)

	// DeleteFabricSite submits a fabric site delete and returns its task.
	DeleteFabricSite(ctx context.Context, id string) (engine.TaskFuture, error)

	// GetFabricZone returns the fabric zone attached to siteID, or
	// (nil, nil) when absent.
	GetFabricZone(ctx context.Context, siteID string) (*FabricZone, error)

	// CreateFabricZone submits a fabric zone create and returns its task.
	CreateFabricZone(ctx context.Context, payload map[string]any) (engine.TaskFuture, error)

	// UpdateFabricZone submits a fabric zone update and returns its task.
	UpdateFabricZone(ctx context.Context, payload map[string]any) (engine.TaskFuture, error)

	// DeleteFabricZone submits a fabric zone delete and returns its task.
	DeleteFabricZone(ctx context.Context, id string) (engine.TaskFuture, error)

	// ListFabricZones returns every fabric zone on the controller.
	// Pagination is hidden from the caller.
	ListFabricZones(ctx context.Context) ([]FabricZone, error)

	// GetAuthProfiles returns the authentication profiles of a fabric,
	// optionally filtered by profile name.
	GetAuthProfiles(ctx context.Context, fabricID, profileName string) ([]AuthProfile, error)

	// UpdateAuthProfile submits an authentication profile update.
	UpdateAuthProfile(ctx context.Context, payload map[string]any) (engine.TaskFuture, error)

	// GetPendingFabricEvents enumerates pending fabric events for a
	// fabric. Pagination is hidden from the caller.
	GetPendingFabricEvents(ctx context.Context, fabricID string) ([]PendingFabricEvent, error)

	// ApplyPendingFabricEvent applies one pending fabric event.
	ApplyPendingFabricEvent(ctx context.Context, fabricID, eventID string) (engine.TaskFuture, error)

	// ListFabricVlans returns the layer 2 virtual networks of a fabric.
	// Pagination is hidden from the caller.
	ListFabricVlans(ctx context.Context, fabricID string) ([]FabricVlan, error)

	// ListVirtualNetworks returns the layer 3 virtual networks attached
	// to a fabric; empty fabricID returns all.
	ListVirtualNetworks(ctx context.Context, fabricID string) ([]VirtualNetwork, error)

	// ListAnycastGateways returns the anycast gateways of a fabric.
	ListAnycastGateways(ctx context.Context, fabricID string) ([]AnycastGateway, error)
}

// Settings exposes the network-settings family: telemetry, global device
// credentials and site credential bindings.
type Settings interface {
	// GetTelemetrySettings returns the telemetry settings of a site.
	GetTelemetrySettings(ctx context.Context, siteID string) (*TelemetrySettings, error)

	// SetTelemetrySettings updates the telemetry settings of a site.
	SetTelemetrySettings(ctx context.Context, siteID string, payload map[string]any) (engine.TaskFuture, error)

	// GetGlobalCredentials returns all global device credentials in one
	// read.
	GetGlobalCredentials(ctx context.Context) (*GlobalCredentials, error)

	// CreateGlobalCredentials submits new global credentials.
	CreateGlobalCredentials(ctx context.Context, payload map[string]any) (engine.TaskFuture, error)

	// UpdateGlobalCredential updates one global credential of the given
	// kind.
	UpdateGlobalCredential(ctx context.Context, kind CredentialKind, payload map[string]any) (engine.TaskFuture, error)

	// GetSiteCredentialSettings returns the credential binding of a site.
	// With inherited true, unset kinds carry the nearest ancestor value.
	GetSiteCredentialSettings(ctx context.Context, siteID string, inherited bool) (*SiteCredentialSettings, error)

	// AssignSiteCredentials updates the credential binding of a site.
	AssignSiteCredentials(ctx context.Context, siteID string, payload map[string]any) (engine.TaskFuture, error)
}

// Issues exposes the assurance issue family.
type Issues interface {
	// GetCustomIssueDefinitions returns user-defined issue definitions
	// filtered by name; empty name returns all. Absent names yield an
	// empty slice.
	GetCustomIssueDefinitions(ctx context.Context, name string) ([]IssueDefinition, error)

	// CreateCustomIssueDefinition creates a user-defined issue definition.
	CreateCustomIssueDefinition(ctx context.Context, payload map[string]any) (*IssueDefinition, error)

	// UpdateCustomIssueDefinition updates a user-defined issue definition.
	UpdateCustomIssueDefinition(ctx context.Context, id string, payload map[string]any) (*IssueDefinition, error)

	// DeleteCustomIssueDefinition removes a user-defined issue definition.
	DeleteCustomIssueDefinition(ctx context.Context, id string) error

	// GetSystemIssueDefinitions returns system issue trigger definitions
	// for a device type and enabled flag.
	GetSystemIssueDefinitions(ctx context.Context, deviceType string, issueEnabled bool) ([]SystemIssueDefinition, error)

	// UpdateSystemIssueDefinition updates one system issue definition.
	UpdateSystemIssueDefinition(ctx context.Context, id string, payload map[string]any) (*SystemIssueDefinition, error)

	// ListIssues returns open issues matching the given filters.
	ListIssues(ctx context.Context, params map[string]any) ([]Issue, error)

	// ResolveIssues resolves the given issue IDs in a single batched call.
	ResolveIssues(ctx context.Context, issueIDs []string) (map[string]any, error)

	// IgnoreIssues ignores the given issue IDs for ignoreHours hours.
	IgnoreIssues(ctx context.Context, issueIDs []string, ignoreHours int) (map[string]any, error)

	// ExecuteSuggestedActions runs the suggested action commands of an
	// issue and returns the execution ID to poll.
	ExecuteSuggestedActions(ctx context.Context, issueID string) (string, error)

	// GetExecutionStatus returns the status of a suggested-actions
	// execution.
	GetExecutionStatus(ctx context.Context, executionID string) (*ExecutionStatus, error)
}

// Devices exposes inventory reads used by hostname, loopback and link
// updates.
type Devices interface {
	// GetDeviceList returns inventory devices matching the filters.
	GetDeviceList(ctx context.Context, params map[string]any) ([]Device, error)

	// GetInterfaceDetails returns one interface of a device, or (nil, nil)
	// when the interface does not exist.
	GetInterfaceDetails(ctx context.Context, deviceID, interfaceName string) (*InterfaceDetails, error)
}

// LanAutomation exposes the LAN automation session family.
type LanAutomation interface {
	// ActiveSessionIDs returns the IDs of all active sessions.
	ActiveSessionIDs(ctx context.Context) ([]string, error)

	// SessionStatus returns the status of one session, or (nil, nil) when
	// the session is gone.
	SessionStatus(ctx context.Context, id string) (*LanSession, error)

	// StartSession launches a LAN automation session and returns its task.
	StartSession(ctx context.Context, payload map[string]any) (engine.TaskFuture, error)

	// StopSession stops a session and returns its task.
	StopSession(ctx context.Context, id string) (engine.TaskFuture, error)

	// SessionLogs returns the accumulated session log entries.
	SessionLogs(ctx context.Context, id string) ([]LanLogEntry, error)

	// UpdateDevice submits a LAN automation device update (link add or
	// delete, hostname rename, loopback re-address) selected by feature.
	UpdateDevice(ctx context.Context, feature DeviceUpdateFeature, payload map[string]any) (engine.TaskFuture, error)
}

// Onboarding exposes the Plug-and-Play device authorization operations.
type Onboarding interface {
	// GetPnpDevices returns PnP devices filtered by serial number.
	GetPnpDevices(ctx context.Context, serials []string) ([]PnpDevice, error)

	// AuthorizeDevices authorizes the given PnP device IDs.
	AuthorizeDevices(ctx context.Context, deviceIDs []string) error
}

// Tasks exposes the asynchronous task status endpoint.
type Tasks interface {
	// TaskStatus returns the current status of a controller task.
	TaskStatus(ctx context.Context, taskID string) (*TaskStatus, error)
}

// Controller aggregates every gateway family. The reconcile pipeline is
// wired against this interface; stage packages accept only the families
// they use.
type Controller interface {
	Sites
	SDA
	Settings
	Issues
	Devices
	LanAutomation
	Onboarding
	Tasks
}
