package catalyst

import (
	"context"
	"net/http"

	"github.com/fabricward/fabricward/pkg/engine"
)

// GetFabricSite returns the fabric site attached to siteID, or (nil, nil)
// when the site is not a fabric site.
func (c *Client) GetFabricSite(ctx context.Context, siteID string) (*FabricSite, error) {
	var sites []FabricSite
	found, err := c.getJSON(ctx, "sda", "get_fabric_sites", "/dna/intent/api/v1/sda/fabricSites",
		map[string]any{"siteId": siteID}, &sites)
	if err != nil {
		return nil, err
	}
	if !found || len(sites) == 0 {
		return nil, nil
	}
	return &sites[0], nil
}

// CreateFabricSite submits a fabric site create.
func (c *Client) CreateFabricSite(ctx context.Context, payload map[string]any) (engine.TaskFuture, error) {
	return c.submitTask(ctx, "sda", "add_fabric_site", http.MethodPost,
		"/dna/intent/api/v1/sda/fabricSites", nil, []map[string]any{payload})
}

// UpdateFabricSite submits a fabric site update.
func (c *Client) UpdateFabricSite(ctx context.Context, payload map[string]any) (engine.TaskFuture, error) {
	return c.submitTask(ctx, "sda", "update_fabric_site", http.MethodPut,
		"/dna/intent/api/v1/sda/fabricSites", nil, []map[string]any{payload})
}

// DeleteFabricSite submits a fabric site delete.
func (c *Client) DeleteFabricSite(ctx context.Context, id string) (engine.TaskFuture, error) {
	return c.submitTask(ctx, "sda", "delete_fabric_site_by_id", http.MethodDelete,
		"/dna/intent/api/v1/sda/fabricSites/"+id, nil, nil)
}

// GetFabricZone returns the fabric zone attached to siteID, or (nil, nil)
// when absent.
func (c *Client) GetFabricZone(ctx context.Context, siteID string) (*FabricZone, error) {
	var zones []FabricZone
	found, err := c.getJSON(ctx, "sda", "get_fabric_zones", "/dna/intent/api/v1/sda/fabricZones",
		map[string]any{"siteId": siteID}, &zones)
	if err != nil {
		return nil, err
	}
	if !found || len(zones) == 0 {
		return nil, nil
	}
	return &zones[0], nil
}

// ListFabricZones returns every fabric zone on the controller with
// offset pagination.
func (c *Client) ListFabricZones(ctx context.Context) ([]FabricZone, error) {
	return Paginate(ctx, func(ctx context.Context, offset int) ([]FabricZone, error) {
		var page []FabricZone
		_, err := c.getJSON(ctx, "sda", "get_fabric_zones",
			"/dna/intent/api/v1/sda/fabricZones",
			map[string]any{"offset": offset, "limit": PageSize}, &page)
		return page, err
	})
}

// CreateFabricZone submits a fabric zone create.
func (c *Client) CreateFabricZone(ctx context.Context, payload map[string]any) (engine.TaskFuture, error) {
	return c.submitTask(ctx, "sda", "add_fabric_zone", http.MethodPost,
		"/dna/intent/api/v1/sda/fabricZones", nil, []map[string]any{payload})
}

// UpdateFabricZone submits a fabric zone update.
func (c *Client) UpdateFabricZone(ctx context.Context, payload map[string]any) (engine.TaskFuture, error) {
	return c.submitTask(ctx, "sda", "update_fabric_zone", http.MethodPut,
		"/dna/intent/api/v1/sda/fabricZones", nil, []map[string]any{payload})
}

// DeleteFabricZone submits a fabric zone delete.
func (c *Client) DeleteFabricZone(ctx context.Context, id string) (engine.TaskFuture, error) {
	return c.submitTask(ctx, "sda", "delete_fabric_zone_by_id", http.MethodDelete,
		"/dna/intent/api/v1/sda/fabricZones/"+id, nil, nil)
}

// GetAuthProfiles returns the authentication profiles of a fabric,
// optionally filtered by profile name.
func (c *Client) GetAuthProfiles(ctx context.Context, fabricID, profileName string) ([]AuthProfile, error) {
	params := map[string]any{"fabricId": fabricID}
	if profileName != "" {
		params["authenticationProfileName"] = profileName
	}
	var profiles []AuthProfile
	_, err := c.getJSON(ctx, "sda", "get_authentication_profiles",
		"/dna/intent/api/v1/sda/authenticationProfiles", params, &profiles)
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// UpdateAuthProfile submits an authentication profile update.
func (c *Client) UpdateAuthProfile(ctx context.Context, payload map[string]any) (engine.TaskFuture, error) {
	return c.submitTask(ctx, "sda", "update_authentication_profile", http.MethodPut,
		"/dna/intent/api/v1/sda/authenticationProfiles", nil, []map[string]any{payload})
}

// GetPendingFabricEvents enumerates pending fabric events for a fabric
// with offset pagination.
func (c *Client) GetPendingFabricEvents(ctx context.Context, fabricID string) ([]PendingFabricEvent, error) {
	return Paginate(ctx, func(ctx context.Context, offset int) ([]PendingFabricEvent, error) {
		var page []PendingFabricEvent
		_, err := c.getJSON(ctx, "sda", "get_pending_fabric_events",
			"/dna/intent/api/v1/sda/pendingFabricEvents",
			map[string]any{"fabricId": fabricID, "offset": offset, "limit": PageSize}, &page)
		return page, err
	})
}

// ListFabricVlans returns the layer 2 virtual networks of a fabric with
// offset pagination.
func (c *Client) ListFabricVlans(ctx context.Context, fabricID string) ([]FabricVlan, error) {
	return Paginate(ctx, func(ctx context.Context, offset int) ([]FabricVlan, error) {
		var page []FabricVlan
		_, err := c.getJSON(ctx, "sda", "get_layer2_virtual_networks",
			"/dna/intent/api/v1/sda/layer2VirtualNetworks",
			map[string]any{"fabricId": fabricID, "offset": offset, "limit": PageSize}, &page)
		return page, err
	})
}

// ListVirtualNetworks returns the layer 3 virtual networks attached to a
// fabric; empty fabricID returns all.
func (c *Client) ListVirtualNetworks(ctx context.Context, fabricID string) ([]VirtualNetwork, error) {
	return Paginate(ctx, func(ctx context.Context, offset int) ([]VirtualNetwork, error) {
		params := map[string]any{"offset": offset, "limit": PageSize}
		if fabricID != "" {
			params["fabricId"] = fabricID
		}
		var page []VirtualNetwork
		_, err := c.getJSON(ctx, "sda", "get_layer3_virtual_networks",
			"/dna/intent/api/v1/sda/layer3VirtualNetworks", params, &page)
		return page, err
	})
}

// ListAnycastGateways returns the anycast gateways of a fabric with
// offset pagination.
func (c *Client) ListAnycastGateways(ctx context.Context, fabricID string) ([]AnycastGateway, error) {
	return Paginate(ctx, func(ctx context.Context, offset int) ([]AnycastGateway, error) {
		var page []AnycastGateway
		_, err := c.getJSON(ctx, "sda", "get_anycast_gateways",
			"/dna/intent/api/v1/sda/anycastGateways",
			map[string]any{"fabricId": fabricID, "offset": offset, "limit": PageSize}, &page)
		return page, err
	})
}

// ApplyPendingFabricEvent applies one pending fabric event.
func (c *Client) ApplyPendingFabricEvent(ctx context.Context, fabricID, eventID string) (engine.TaskFuture, error) {
	return c.submitTask(ctx, "sda", "apply_pending_fabric_events", http.MethodPost,
		"/dna/intent/api/v1/sda/pendingFabricEvents/apply", nil,
		[]map[string]any{{"fabricId": fabricID, "id": eventID}})
}
