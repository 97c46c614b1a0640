package playbook

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/fabricward/fabricward/pkg/catalyst"
	"github.com/fabricward/fabricward/pkg/engine"
	"github.com/fabricward/fabricward/pkg/sites"
)

// Generator reads the virtual-network configuration of existing fabric
// sites and emits it as a playbook, for bringing brownfield fabrics under
// declarative management.
type Generator struct {
	gateway  catalyst.Controller
	resolver *sites.Resolver
	logger   zerolog.Logger
}

// NewGenerator creates a brownfield playbook generator.
func NewGenerator(gateway catalyst.Controller, resolver *sites.Resolver, logger zerolog.Logger) *Generator {
	return &Generator{
		gateway:  gateway,
		resolver: resolver,
		logger:   logger.With().Str("component", "generator").Logger(),
	}
}

// fabricLocation is one resolved fabric site or zone.
type fabricLocation struct {
	fabricID   string
	sitePath   string
	fabricType string
}

// Generate reads fabric VLANs, virtual networks and anycast gateways of
// the given fabric sites and writes them to path as an ordered playbook.
// An empty path picks a timestamped default name in the working
// directory. The written filename is returned.
func (g *Generator) Generate(ctx context.Context, sitePaths []string, path string) (string, error) {
	locations, err := g.resolveFabrics(ctx, sitePaths)
	if err != nil {
		return "", err
	}

	doc, err := g.buildDocument(ctx, locations)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = DefaultGeneratedName(time.Now())
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode playbook: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write playbook: %w", err)
	}

	g.logger.Info().
		Str("path", path).
		Int("fabrics", len(locations)).
		Msg("Generated playbook")
	return path, nil
}

// DefaultGeneratedName is the timestamped filename used when the caller
// does not name the output file.
func DefaultGeneratedName(now time.Time) string {
	return fmt.Sprintf("fabric_virtual_networks_playbook_%s_%03d.yml",
		now.Format("02_Jan_2006_15_04_05"), now.Nanosecond()/1e6)
}

func (g *Generator) resolveFabrics(ctx context.Context, sitePaths []string) ([]fabricLocation, error) {
	locations := make([]fabricLocation, 0, len(sitePaths))
	for _, path := range sitePaths {
		siteID, err := g.resolver.Resolve(ctx, path)
		if err != nil {
			return nil, err
		}
		site, err := g.gateway.GetFabricSite(ctx, siteID)
		if err != nil {
			return nil, err
		}
		if site != nil {
			locations = append(locations, fabricLocation{
				fabricID: site.ID, sitePath: path, fabricType: "fabric_site",
			})
			continue
		}
		zone, err := g.gateway.GetFabricZone(ctx, siteID)
		if err != nil {
			return nil, err
		}
		if zone == nil {
			return nil, engine.Errorf(engine.FailResolveNotFound,
				"site %s is not a fabric site or zone", path).WithEntity(path)
		}
		locations = append(locations, fabricLocation{
			fabricID: zone.ID, sitePath: path, fabricType: "fabric_zone",
		})
	}
	return locations, nil
}

func (g *Generator) buildDocument(ctx context.Context, locations []fabricLocation) (*yaml.Node, error) {
	vlans, err := g.collectVlans(ctx, locations)
	if err != nil {
		return nil, err
	}
	networks, err := g.collectVirtualNetworks(ctx, locations)
	if err != nil {
		return nil, err
	}
	gateways, err := g.collectGateways(ctx, locations)
	if err != nil {
		return nil, err
	}

	entry := mapping()
	if len(vlans.Content) > 0 {
		pair(entry, "fabric_vlan", vlans)
	}
	if len(networks.Content) > 0 {
		pair(entry, "virtual_networks", networks)
	}
	if len(gateways.Content) > 0 {
		pair(entry, "anycast_gateways", gateways)
	}

	root := mapping()
	pair(root, "config", sequence(entry))
	return root, nil
}

// collectVlans groups layer 2 virtual networks by (name, id) so that a
// VLAN spanning several fabrics renders as one entry with all of its
// fabric site locations.
func (g *Generator) collectVlans(ctx context.Context, locations []fabricLocation) (*yaml.Node, error) {
	type vlanKey struct {
		name string
		id   int
	}
	var order []vlanKey
	entries := make(map[vlanKey]*yaml.Node)
	sitesOf := make(map[vlanKey]*yaml.Node)

	for _, loc := range locations {
		vlans, err := g.gateway.ListFabricVlans(ctx, loc.fabricID)
		if err != nil {
			return nil, err
		}
		for _, vlan := range vlans {
			key := vlanKey{name: vlan.VlanName, id: vlan.VlanID}
			if _, seen := entries[key]; !seen {
				locs := sequence()
				entry := mapping()
				pair(entry, "vlan_name", scalar(vlan.VlanName))
				pair(entry, "vlan_id", scalar(vlan.VlanID))
				pair(entry, "fabric_site_locations", locs)
				pair(entry, "traffic_type", scalar(vlan.TrafficType))
				pair(entry, "fabric_enabled_wireless", scalar(vlan.IsFabricEnabledWireless))
				if vlan.AssociatedL3VirtualNetwork != "" {
					pair(entry, "associated_layer3_virtual_network",
						scalar(vlan.AssociatedL3VirtualNetwork))
				}
				entries[key] = entry
				sitesOf[key] = locs
				order = append(order, key)
			}
			location := mapping()
			pair(location, "site_name_hierarchy", scalar(loc.sitePath))
			pair(location, "fabric_type", scalar(loc.fabricType))
			sitesOf[key].Content = append(sitesOf[key].Content, location)
		}
	}

	out := sequence()
	for _, key := range order {
		out.Content = append(out.Content, entries[key])
	}
	return out, nil
}

func (g *Generator) collectVirtualNetworks(ctx context.Context, locations []fabricLocation) (*yaml.Node, error) {
	pathOf := make(map[string]fabricLocation, len(locations))
	for _, loc := range locations {
		pathOf[loc.fabricID] = loc
	}

	var order []string
	entries := make(map[string]*yaml.Node)
	sitesOf := make(map[string]*yaml.Node)

	for _, loc := range locations {
		networks, err := g.gateway.ListVirtualNetworks(ctx, loc.fabricID)
		if err != nil {
			return nil, err
		}
		for _, vn := range networks {
			entry, seen := entries[vn.VirtualNetworkName]
			if !seen {
				locs := sequence()
				entry = mapping()
				pair(entry, "vn_name", scalar(vn.VirtualNetworkName))
				pair(entry, "fabric_site_locations", locs)
				if vn.AnchoredSiteID != "" {
					anchor, err := g.resolver.PathOf(ctx, vn.AnchoredSiteID)
					if err != nil {
						return nil, err
					}
					pair(entry, "anchored_site_name", scalar(anchor))
				}
				entries[vn.VirtualNetworkName] = entry
				sitesOf[vn.VirtualNetworkName] = locs
				order = append(order, vn.VirtualNetworkName)
			}
			location := mapping()
			pair(location, "site_name_hierarchy", scalar(loc.sitePath))
			pair(location, "fabric_type", scalar(loc.fabricType))
			sitesOf[vn.VirtualNetworkName].Content = append(
				sitesOf[vn.VirtualNetworkName].Content, location)
		}
	}

	out := sequence()
	for _, name := range order {
		out.Content = append(out.Content, entries[name])
	}
	return out, nil
}

func (g *Generator) collectGateways(ctx context.Context, locations []fabricLocation) (*yaml.Node, error) {
	out := sequence()
	for _, loc := range locations {
		gateways, err := g.gateway.ListAnycastGateways(ctx, loc.fabricID)
		if err != nil {
			return nil, err
		}
		for _, gw := range gateways {
			location := mapping()
			pair(location, "site_name_hierarchy", scalar(loc.sitePath))
			pair(location, "fabric_type", scalar(loc.fabricType))

			entry := mapping()
			pair(entry, "vn_name", scalar(gw.VirtualNetworkName))
			pair(entry, "fabric_site_location", location)
			pair(entry, "ip_pool_name", scalar(gw.IPPoolName))
			if gw.TCPMssAdjustment != 0 {
				pair(entry, "tcp_mss_adjustment", scalar(gw.TCPMssAdjustment))
			}
			pair(entry, "vlan_name", scalar(gw.VlanName))
			pair(entry, "vlan_id", scalar(gw.VlanID))
			pair(entry, "traffic_type", scalar(gw.TrafficType))
			if gw.PoolType != "" {
				pair(entry, "pool_type", scalar(gw.PoolType))
			}
			if gw.SecurityGroupName != "" {
				pair(entry, "security_group_name", scalar(gw.SecurityGroupName))
			}
			pair(entry, "is_critical_pool", scalar(gw.IsCriticalPool))
			pair(entry, "layer2_flooding_enabled", scalar(gw.IsLayer2FloodingEnabled))
			pair(entry, "fabric_enabled_wireless", scalar(gw.IsWirelessPool))
			pair(entry, "ip_directed_broadcast", scalar(gw.IsIPDirectedBroadcast))
			pair(entry, "intra_subnet_routing_enabled", scalar(gw.IsIntraSubnetRoutingEnabled))
			pair(entry, "multiple_ip_to_mac_addresses", scalar(gw.IsMultipleIPToMacAddresses))
			pair(entry, "supplicant_based_extended_node_onboarding", scalar(gw.IsSupplicantBasedOnboarding))
			pair(entry, "group_policy_enforcement_enabled", scalar(gw.IsGroupPolicyEnforcement))
			pair(entry, "auto_generate_vlan_name", scalar(gw.AutoGenerateVlanName))
			out.Content = append(out.Content, entry)
		}
	}
	return out, nil
}

// yaml.Node construction helpers. Mappings built through pair keep their
// key order in the emitted document.

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func sequence(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

func pair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, scalar(key), value)
}

func scalar(v any) *yaml.Node {
	node := &yaml.Node{Kind: yaml.ScalarNode}
	switch value := v.(type) {
	case string:
		node.Tag = "!!str"
		node.Value = value
	case int:
		node.Tag = "!!int"
		node.Value = strconv.Itoa(value)
	case bool:
		node.Tag = "!!bool"
		node.Value = strconv.FormatBool(value)
	default:
		node.Tag = "!!str"
		node.Value = fmt.Sprint(value)
	}
	return node
}
