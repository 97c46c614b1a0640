package catalyst

import (
	"context"
	"net/http"
	"strings"

	"github.com/fabricward/fabricward/pkg/engine"
)

// ActiveSessionIDs returns the IDs of all active LAN automation sessions.
func (c *Client) ActiveSessionIDs(ctx context.Context) ([]string, error) {
	var resp struct {
		MaxSupportedCount string   `json:"maxSupportedCount"`
		ActiveSessions    string   `json:"activeSessions"`
		ActiveSessionIDs  []string `json:"activeSessionIds"`
	}
	found, err := c.getJSON(ctx, "lan_automation", "lan_automation_active_sessions",
		"/dna/intent/api/v1/lan-automation/sessions", nil, &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return resp.ActiveSessionIDs, nil
}

// SessionStatus returns the status of one session, or (nil, nil) when the
// session no longer exists.
func (c *Client) SessionStatus(ctx context.Context, id string) (*LanSession, error) {
	var sessions []LanSession
	found, err := c.getJSON(ctx, "lan_automation", "lan_automation_status_by_id",
		"/dna/intent/api/v1/lan-automation/status/"+id, nil, &sessions)
	if err != nil {
		return nil, err
	}
	if !found || len(sessions) == 0 {
		return nil, nil
	}
	session := sessions[0]
	if session.ID == "" {
		session.ID = id
	}
	return &session, nil
}

// StartSession launches a LAN automation session.
func (c *Client) StartSession(ctx context.Context, payload map[string]any) (engine.TaskFuture, error) {
	return c.submitTask(ctx, "lan_automation", "lan_automation_start_v2", http.MethodPost,
		"/dna/intent/api/v2/lan-automation", nil, []map[string]any{payload})
}

// StopSession stops a session.
func (c *Client) StopSession(ctx context.Context, id string) (engine.TaskFuture, error) {
	return c.submitTask(ctx, "lan_automation", "lan_automation_stop", http.MethodDelete,
		"/dna/intent/api/v1/lan-automation/"+id, nil, nil)
}

// SessionLogs returns the accumulated session log entries.
func (c *Client) SessionLogs(ctx context.Context, id string) ([]LanLogEntry, error) {
	var raw []struct {
		NWOrchID string `json:"nwOrchId"`
		Entry    []struct {
			LogLevel  string `json:"logLevel"`
			TimeStamp string `json:"timeStamp"`
			Record    string `json:"record"`
			DeviceID  string `json:"deviceId"`
		} `json:"entry"`
	}
	found, err := c.getJSON(ctx, "lan_automation", "lan_automation_log_by_id",
		"/dna/intent/api/v1/lan-automation/log/"+id, nil, &raw)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	var out []LanLogEntry
	for _, rec := range raw {
		for _, e := range rec.Entry {
			out = append(out, LanLogEntry{
				NWOrchID:  rec.NWOrchID,
				Entry:     e.Record,
				Timestamp: e.TimeStamp,
				DeviceID:  e.DeviceID,
				LogLevel:  e.LogLevel,
			})
		}
	}
	return out, nil
}

// UpdateDevice submits a LAN automation device update selected by feature.
func (c *Client) UpdateDevice(ctx context.Context, feature DeviceUpdateFeature, payload map[string]any) (engine.TaskFuture, error) {
	return c.submitTask(ctx, "lan_automation", "lan_automation_device_update", http.MethodPut,
		"/dna/intent/api/v2/lan-automation/updateDevice",
		map[string]any{"feature": string(feature)}, payload)
}

// GetDeviceList returns inventory devices matching the filters.
func (c *Client) GetDeviceList(ctx context.Context, params map[string]any) ([]Device, error) {
	var devices []Device
	_, err := c.getJSON(ctx, "devices", "get_device_list",
		"/dna/intent/api/v1/network-device", params, &devices)
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// GetInterfaceDetails returns one interface of a device, or (nil, nil)
// when the interface does not exist.
func (c *Client) GetInterfaceDetails(ctx context.Context, deviceID, interfaceName string) (*InterfaceDetails, error) {
	var details InterfaceDetails
	found, err := c.getJSON(ctx, "devices", "get_interface_details",
		"/dna/intent/api/v1/interface/network-device/"+deviceID+"/interface-name",
		map[string]any{"name": interfaceName}, &details)
	if err != nil {
		// The controller reports unknown interfaces as errors rather than
		// empty responses on some versions.
		if strings.Contains(err.Error(), "interface") && engine.KindOf(err) == engine.FailGatewayController {
			return nil, nil
		}
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &details, nil
}

// GetPnpDevices returns PnP devices filtered by serial number.
func (c *Client) GetPnpDevices(ctx context.Context, serials []string) ([]PnpDevice, error) {
	var raw []struct {
		ID         string `json:"id"`
		DeviceInfo struct {
			SerialNumber string `json:"serialNumber"`
			State        string `json:"state"`
			Hostname     string `json:"hostname"`
		} `json:"deviceInfo"`
	}
	params := map[string]any{}
	if len(serials) > 0 {
		params["serialNumber"] = strings.Join(serials, ",")
	}
	_, err := c.getJSON(ctx, "device_onboarding_pnp", "get_device_list",
		"/dna/intent/api/v1/onboarding/pnp-device", params, &raw)
	if err != nil {
		return nil, err
	}
	out := make([]PnpDevice, 0, len(raw))
	for _, r := range raw {
		out = append(out, PnpDevice{
			ID:           r.ID,
			SerialNumber: r.DeviceInfo.SerialNumber,
			State:        r.DeviceInfo.State,
			Hostname:     r.DeviceInfo.Hostname,
		})
	}
	return out, nil
}

// AuthorizeDevices authorizes the given PnP device IDs.
func (c *Client) AuthorizeDevices(ctx context.Context, deviceIDs []string) error {
	_, err := c.request(ctx, "device_onboarding_pnp", "authorize_device", http.MethodPost,
		"/api/v1/onboarding/pnp-device/authorize", nil,
		map[string]any{"deviceIdList": deviceIDs})
	return err
}
