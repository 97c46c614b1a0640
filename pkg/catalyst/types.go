package catalyst

import "fmt"

// Site is a node of the site hierarchy.
type Site struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	NameHierarchy string `json:"nameHierarchy"`
	Type          string `json:"type"`
}

// FabricSite is an SDA fabric site as returned by the controller.
type FabricSite struct {
	ID                        string `json:"id"`
	SiteID                    string `json:"siteId"`
	AuthenticationProfileName string `json:"authenticationProfileName"`
	IsPubSubEnabled           bool   `json:"isPubSubEnabled"`

	// SiteNameHierarchy is annotated by the site resolver; the controller
	// returns fabric sites by site ID only.
	SiteNameHierarchy string `json:"-"`
}

// FabricZone is an SDA fabric zone as returned by the controller.
type FabricZone struct {
	ID                        string `json:"id"`
	SiteID                    string `json:"siteId"`
	AuthenticationProfileName string `json:"authenticationProfileName"`

	// SiteNameHierarchy is annotated by the site resolver.
	SiteNameHierarchy string `json:"-"`
}

// AccessContract is one pre-auth ACL contract entry.
type AccessContract struct {
	Action   string `json:"action"`
	Protocol string `json:"protocol"`
	Port     string `json:"port"`
}

// PreAuthACL is the access list applied before authentication completes
// under the Low Impact profile.
type PreAuthACL struct {
	Enabled         bool             `json:"enabled"`
	ImplicitAction  string           `json:"implicitAction"`
	Description     string           `json:"description"`
	AccessContracts []AccessContract `json:"accessContracts"`
}

// AuthProfile is a per-fabric authentication profile template.
type AuthProfile struct {
	ID                        string      `json:"id"`
	FabricID                  string      `json:"fabricId"`
	AuthenticationProfileName string      `json:"authenticationProfileName"`
	AuthenticationOrder       string      `json:"authenticationOrder"`
	Dot1xToMabFallbackTimeout int         `json:"dot1xToMabFallbackTimeout"`
	WakeOnLan                 bool        `json:"wakeOnLan"`
	NumberOfHosts             string      `json:"numberOfHosts"`
	IsBpduGuardEnabled        *bool       `json:"isBpduGuardEnabled,omitempty"`
	PreAuthAcl                *PreAuthACL `json:"preAuthAcl,omitempty"`
}

// PendingFabricEvent is a fabric change waiting to be applied.
type PendingFabricEvent struct {
	ID       string `json:"id"`
	FabricID string `json:"fabricId"`
	Detail   string `json:"detail"`
}

// FabricVlan is a layer 2 virtual network (fabric VLAN) of a fabric.
type FabricVlan struct {
	ID                         string `json:"id"`
	FabricID                   string `json:"fabricId"`
	VlanName                   string `json:"vlanName"`
	VlanID                     int    `json:"vlanId"`
	TrafficType                string `json:"trafficType"`
	IsFabricEnabledWireless    bool   `json:"isFabricEnabledWireless"`
	AssociatedL3VirtualNetwork string `json:"associatedLayer3VirtualNetworkName"`
}

// VirtualNetwork is a layer 3 virtual network, possibly anchored and
// attached to several fabrics.
type VirtualNetwork struct {
	ID                 string   `json:"id"`
	VirtualNetworkName string   `json:"virtualNetworkName"`
	FabricIDs          []string `json:"fabricIds"`
	AnchoredSiteID     string   `json:"anchoredSiteId"`
}

// AnycastGateway is the layer 3 gateway of an IP pool inside a fabric
// virtual network.
type AnycastGateway struct {
	ID                          string `json:"id"`
	FabricID                    string `json:"fabricId"`
	VirtualNetworkName          string `json:"virtualNetworkName"`
	IPPoolName                  string `json:"ipPoolName"`
	TCPMssAdjustment            int    `json:"tcpMssAdjustment"`
	VlanName                    string `json:"vlanName"`
	VlanID                      int    `json:"vlanId"`
	TrafficType                 string `json:"trafficType"`
	PoolType                    string `json:"poolType"`
	SecurityGroupName           string `json:"securityGroupName"`
	IsCriticalPool              bool   `json:"isCriticalPool"`
	IsLayer2FloodingEnabled     bool   `json:"isLayer2FloodingEnabled"`
	IsWirelessPool              bool   `json:"isWirelessPool"`
	IsIPDirectedBroadcast       bool   `json:"isIpDirectedBroadcast"`
	IsIntraSubnetRoutingEnabled bool   `json:"isIntraSubnetRoutingEnabled"`
	IsMultipleIPToMacAddresses  bool   `json:"isMultipleIpToMacAddresses"`
	IsSupplicantBasedOnboarding bool   `json:"isSupplicantBasedExtendedNodeOnboarding"`
	IsGroupPolicyEnforcement    bool   `json:"isGroupBasedPolicyEnforcementEnabled"`
	AutoGenerateVlanName        bool   `json:"autoGenerateVlanName"`
}

// WiredDataCollection is the wired telemetry toggle of a site.
type WiredDataCollection struct {
	EnableWiredDataCollection bool `json:"enableWiredDataCollection"`
}

// TelemetrySettings is the telemetry configuration of a site.
type TelemetrySettings struct {
	WiredDataCollection *WiredDataCollection `json:"wiredDataCollection,omitempty"`
}

// IssueRule is one trigger rule of a user-defined issue definition.
type IssueRule struct {
	Severity          int    `json:"severity"`
	Facility          string `json:"facility"`
	Mnemonic          string `json:"mnemonic"`
	Pattern           string `json:"pattern"`
	Occurrences       int    `json:"occurrences"`
	DurationInMinutes int    `json:"durationInMinutes"`
}

// IssueDefinition is a user-defined assurance issue definition.
type IssueDefinition struct {
	ID                    string      `json:"id"`
	Name                  string      `json:"name"`
	Description           string      `json:"description"`
	Rules                 []IssueRule `json:"rules"`
	IsEnabled             bool        `json:"isEnabled"`
	Priority              string      `json:"priority"`
	IsNotificationEnabled bool        `json:"isNotificationEnabled"`
}

// SystemIssueDefinition is a system-defined issue trigger definition.
type SystemIssueDefinition struct {
	ID                           string `json:"id"`
	Name                         string `json:"name"`
	DisplayName                  string `json:"displayName"`
	DeviceType                   string `json:"deviceType"`
	IssueEnabled                 bool   `json:"issueEnabled"`
	Priority                     string `json:"priority"`
	DefinitionStatus             string `json:"definitionStatus"`
	SynchronizeToHealthThreshold bool   `json:"synchronizeToHealthThreshold"`
	ThresholdValue               float64 `json:"thresholdValue"`
}

// Issue is an open assurance issue instance.
type Issue struct {
	IssueID     string `json:"issueId"`
	Name        string `json:"name"`
	DeviceID    string `json:"deviceId"`
	Status      string `json:"status"`
	SiteID      string `json:"siteId"`
	LastOccurredTime int64 `json:"lastOccurredTime"`
}

// ExecutionStatus is the status of a suggested-actions execution.
type ExecutionStatus struct {
	ExecutionID      string `json:"executionId"`
	Status           string `json:"status"`
	BapiError        string `json:"bapiError,omitempty"`
	BapiSyncResponse string `json:"bapiSyncResponse,omitempty"`
}

// CredentialKind names one of the six global device credential kinds.
type CredentialKind string

const (
	CredentialCLI        CredentialKind = "cliCredential"
	CredentialSNMPv2Read CredentialKind = "snmpV2cRead"
	CredentialSNMPv2Write CredentialKind = "snmpV2cWrite"
	CredentialSNMPv3     CredentialKind = "snmpV3"
	CredentialHTTPSRead  CredentialKind = "httpsRead"
	CredentialHTTPSWrite CredentialKind = "httpsWrite"
)

// CredentialKinds lists every kind in the binding's fixed order.
var CredentialKinds = []CredentialKind{
	CredentialCLI, CredentialSNMPv2Read, CredentialSNMPv2Write,
	CredentialSNMPv3, CredentialHTTPSRead, CredentialHTTPSWrite,
}

// Validate checks the credential kind.
func (k CredentialKind) Validate() error {
	for _, known := range CredentialKinds {
		if k == known {
			return nil
		}
	}
	return fmt.Errorf("invalid credential kind: %s", k)
}

// GlobalCredential is one global device credential of any kind.
type GlobalCredential struct {
	ID          string         `json:"id"`
	Kind        CredentialKind `json:"credentialType"`
	Description string         `json:"description"`
	Username    string         `json:"username,omitempty"`
}

// GlobalCredentials is the one-read index of all global credentials.
type GlobalCredentials struct {
	ByKind map[CredentialKind][]GlobalCredential `json:"byKind"`
}

// Find returns the credential matching (kind, description, username), or
// nil when absent. Username is ignored for kinds that carry none.
func (g *GlobalCredentials) Find(kind CredentialKind, description, username string) *GlobalCredential {
	for i := range g.ByKind[kind] {
		c := &g.ByKind[kind][i]
		if c.Description == description && c.Username == username {
			return c
		}
	}
	return nil
}

// FindByID returns the credential with the given controller ID.
func (g *GlobalCredentials) FindByID(id string) *GlobalCredential {
	for _, list := range g.ByKind {
		for i := range list {
			if list[i].ID == id {
				return &list[i]
			}
		}
	}
	return nil
}

// SiteCredentialSettings is the credential binding of one site. Assigned
// maps each kind to the bound credential ID; InheritedFrom records, per
// kind, the site the value was inherited from when the read asked for
// inherited values.
type SiteCredentialSettings struct {
	SiteID        string                    `json:"siteId"`
	Assigned      map[CredentialKind]string `json:"assigned"`
	InheritedFrom map[CredentialKind]string `json:"inheritedFrom,omitempty"`
}

// Device is an inventory device.
type Device struct {
	ID                  string `json:"id"`
	Hostname            string `json:"hostname"`
	ManagementIPAddress string `json:"managementIpAddress"`
	SerialNumber        string `json:"serialNumber"`
	Family              string `json:"family"`
	Role                string `json:"role"`
	ReachabilityStatus  string `json:"reachabilityStatus"`
}

// InterfaceDetails is one interface of an inventory device.
type InterfaceDetails struct {
	ID          string   `json:"id"`
	DeviceID    string   `json:"deviceId"`
	PortName    string   `json:"portName"`
	IPv4Address string   `json:"ipv4Address"`
	IsisSupport string   `json:"isisSupport"`
	Addresses   []string `json:"addresses"`
}

// LanSession is the status of one LAN automation session.
type LanSession struct {
	ID                                string   `json:"id"`
	PrimaryDeviceManagmentIPAddress   string   `json:"primaryDeviceManagmentIPAddress"`
	Status                            string   `json:"status"`
	DiscoveredDeviceSiteNameHierarchy string   `json:"discoveredDeviceSiteNameHierarchy"`
	DiscoveredDeviceList              []string `json:"discoveredDeviceList,omitempty"`
}

// LanLogEntry is one LAN automation session log record.
type LanLogEntry struct {
	NWOrchID  string `json:"nwOrchId"`
	Entry     string `json:"entry"`
	Timestamp string `json:"timestamp"`
	DeviceID  string `json:"deviceId,omitempty"`
	LogLevel  string `json:"logLevel,omitempty"`
}

// DeviceUpdateFeature selects a LAN automation device update operation.
type DeviceUpdateFeature string

const (
	// UpdateFeatureLinkAdd adds a link between two interfaces.
	UpdateFeatureLinkAdd DeviceUpdateFeature = "LINK_ADD"

	// UpdateFeatureLinkDelete removes a link between two interfaces.
	UpdateFeatureLinkDelete DeviceUpdateFeature = "LINK_DELETE"

	// UpdateFeatureHostname renames a device.
	UpdateFeatureHostname DeviceUpdateFeature = "HOSTNAME_UPDATE"

	// UpdateFeatureLoopback re-addresses a device loopback interface.
	UpdateFeatureLoopback DeviceUpdateFeature = "LOOPBACK0_IPADDRESS_UPDATE"
)

// PnP device states relevant to authorization.
const (
	PnpStatePendingAuthorization = "Pending Authorization"
	PnpStateAuthorized           = "Authorized"
	PnpStateProvisioned          = "Provisioned"
)

// PnpDevice is a Plug-and-Play onboarding device.
type PnpDevice struct {
	ID           string `json:"id"`
	SerialNumber string `json:"serialNumber"`
	State        string `json:"state"`
	Hostname     string `json:"hostname,omitempty"`
}

// TaskStatus is the polled status of an asynchronous controller task.
type TaskStatus struct {
	TaskID        string `json:"taskId"`
	IsError       bool   `json:"isError"`
	FailureReason string `json:"failureReason,omitempty"`
	Progress      string `json:"progress"`
	EndTime       int64  `json:"endTime,omitempty"`
}

// ErrorMessage returns the controller's failure reason, falling back to
// the progress string when no reason was reported.
func (t *TaskStatus) ErrorMessage() string {
	if t.FailureReason != "" {
		return t.FailureReason
	}
	return t.Progress
}
