package catalyst

import (
	"context"
	"net/http"
	"strings"

	"github.com/fabricward/fabricward/pkg/engine"
)

// GetSite returns the site at the given hierarchy path, or (nil, nil) when
// the path does not exist on the controller.
func (c *Client) GetSite(ctx context.Context, nameHierarchy string) (*Site, error) {
	var sites []Site
	found, err := c.getJSON(ctx, "site_design", "get_sites", "/dna/intent/api/v1/sites",
		map[string]any{"nameHierarchy": nameHierarchy}, &sites)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	for i := range sites {
		if sites[i].NameHierarchy == nameHierarchy {
			return &sites[i], nil
		}
	}
	return nil, nil
}

// ListSites returns every site whose hierarchy path starts with prefix.
func (c *Client) ListSites(ctx context.Context, prefix string) ([]Site, error) {
	all, err := Paginate(ctx, func(ctx context.Context, offset int) ([]Site, error) {
		var page []Site
		_, err := c.getJSON(ctx, "site_design", "get_sites", "/dna/intent/api/v1/sites",
			map[string]any{"offset": offset, "limit": PageSize}, &page)
		return page, err
	})
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		return all, nil
	}
	out := make([]Site, 0, len(all))
	for _, s := range all {
		if s.NameHierarchy == prefix || strings.HasPrefix(s.NameHierarchy, prefix+"/") {
			out = append(out, s)
		}
	}
	return out, nil
}

// GetTelemetrySettings returns the telemetry settings of a site.
func (c *Client) GetTelemetrySettings(ctx context.Context, siteID string) (*TelemetrySettings, error) {
	var settings TelemetrySettings
	found, err := c.getJSON(ctx, "network_settings", "retrieve_telemetry_settings_for_a_site",
		"/dna/intent/api/v1/sites/"+siteID+"/telemetrySettings", nil, &settings)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &settings, nil
}

// SetTelemetrySettings updates the telemetry settings of a site.
func (c *Client) SetTelemetrySettings(ctx context.Context, siteID string, payload map[string]any) (engine.TaskFuture, error) {
	return c.submitTask(ctx, "network_settings", "set_telemetry_settings_for_a_site",
		http.MethodPut, "/dna/intent/api/v1/sites/"+siteID+"/telemetrySettings", nil, payload)
}
