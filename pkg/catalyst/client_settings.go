package catalyst

import (
	"context"
	"net/http"

	"github.com/fabricward/fabricward/pkg/engine"
)

// credentialSettingKeys maps credential kinds to the field names the site
// device-credential endpoint uses.
var credentialSettingKeys = map[CredentialKind]string{
	CredentialCLI:         "cliCredentialsId",
	CredentialSNMPv2Read:  "snmpv2cReadCredentialsId",
	CredentialSNMPv2Write: "snmpv2cWriteCredentialsId",
	CredentialSNMPv3:      "snmpv3CredentialsId",
	CredentialHTTPSRead:   "httpReadCredentialsId",
	CredentialHTTPSWrite:  "httpWriteCredentialsId",
}

// SettingKeyFor returns the field name the site device-credential
// endpoint uses for a credential kind, for callers assembling binding
// payloads.
func SettingKeyFor(kind CredentialKind) string {
	return credentialSettingKeys[kind]
}

// rawCredentialRef is one credential assignment in the site binding
// response.
type rawCredentialRef struct {
	CredentialsID   string `json:"credentialsId"`
	InheritedSiteID string `json:"inheritedSiteId,omitempty"`
}

// rawCredential is one credential record in the global credential read.
type rawCredential struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Username    string `json:"username,omitempty"`
}

// GetGlobalCredentials returns all global device credentials. One read
// serves the whole run.
func (c *Client) GetGlobalCredentials(ctx context.Context) (*GlobalCredentials, error) {
	var raw map[string][]rawCredential
	found, err := c.getJSON(ctx, "discovery", "get_all_global_credentials_v2",
		"/dna/intent/api/v2/global-credential", nil, &raw)
	if err != nil {
		return nil, err
	}
	out := &GlobalCredentials{ByKind: make(map[CredentialKind][]GlobalCredential)}
	if !found {
		return out, nil
	}
	for _, kind := range CredentialKinds {
		for _, rc := range raw[string(kind)] {
			out.ByKind[kind] = append(out.ByKind[kind], GlobalCredential{
				ID:          rc.ID,
				Kind:        kind,
				Description: rc.Description,
				Username:    rc.Username,
			})
		}
	}
	return out, nil
}

// CreateGlobalCredentials submits new global credentials. The payload maps
// credential-kind keys to lists of credential bodies.
func (c *Client) CreateGlobalCredentials(ctx context.Context, payload map[string]any) (engine.TaskFuture, error) {
	return c.submitTask(ctx, "discovery", "create_global_credentials_v2", http.MethodPost,
		"/dna/intent/api/v2/global-credential", nil, payload)
}

// UpdateGlobalCredential updates one global credential of the given kind.
func (c *Client) UpdateGlobalCredential(ctx context.Context, kind CredentialKind, payload map[string]any) (engine.TaskFuture, error) {
	return c.submitTask(ctx, "discovery", "update_global_credentials_v2", http.MethodPut,
		"/dna/intent/api/v2/global-credential", nil, map[string]any{string(kind): payload})
}

// GetSiteCredentialSettings returns the credential binding of a site.
func (c *Client) GetSiteCredentialSettings(ctx context.Context, siteID string, inherited bool) (*SiteCredentialSettings, error) {
	var raw map[string]*rawCredentialRef
	found, err := c.getJSON(ctx, "network_settings", "get_device_credential_settings_for_a_site",
		"/dna/intent/api/v1/sites/"+siteID+"/deviceCredentials",
		map[string]any{"_inherited": inherited}, &raw)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	out := &SiteCredentialSettings{
		SiteID:        siteID,
		Assigned:      make(map[CredentialKind]string),
		InheritedFrom: make(map[CredentialKind]string),
	}
	for kind, key := range credentialSettingKeys {
		ref := raw[key]
		if ref == nil || ref.CredentialsID == "" {
			continue
		}
		out.Assigned[kind] = ref.CredentialsID
		if ref.InheritedSiteID != "" {
			out.InheritedFrom[kind] = ref.InheritedSiteID
		}
	}
	return out, nil
}

// AssignSiteCredentials updates the credential binding of a site.
func (c *Client) AssignSiteCredentials(ctx context.Context, siteID string, payload map[string]any) (engine.TaskFuture, error) {
	return c.submitTask(ctx, "network_settings", "update_device_credential_settings_for_a_site",
		http.MethodPut, "/dna/intent/api/v1/sites/"+siteID+"/deviceCredentials", nil, payload)
}
