package reconcile

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fabricward/fabricward/pkg/catalyst"
	"github.com/fabricward/fabricward/pkg/engine"
	"github.com/fabricward/fabricward/pkg/executor"
	"github.com/fabricward/fabricward/pkg/playbook"
	"github.com/fabricward/fabricward/pkg/policy"
	"github.com/fabricward/fabricward/pkg/sites"
	"github.com/fabricward/fabricward/pkg/stores"
)

// pipelineGateway serves the read and mutate paths a fabric-site run
// touches. Everything else panics through the nil embedded interface.
type pipelineGateway struct {
	catalyst.Controller

	sites       map[string]string
	fabricSites map[string]*catalyst.FabricSite
	calls       []string
}

func (g *pipelineGateway) GetSite(_ context.Context, nameHierarchy string) (*catalyst.Site, error) {
	id, ok := g.sites[nameHierarchy]
	if !ok {
		return nil, nil
	}
	return &catalyst.Site{ID: id, NameHierarchy: nameHierarchy}, nil
}

func (g *pipelineGateway) GetFabricSite(_ context.Context, siteID string) (*catalyst.FabricSite, error) {
	return g.fabricSites[siteID], nil
}

func (g *pipelineGateway) ListFabricZones(_ context.Context) ([]catalyst.FabricZone, error) {
	return nil, nil
}

func (g *pipelineGateway) GetTelemetrySettings(_ context.Context, _ string) (*catalyst.TelemetrySettings, error) {
	return &catalyst.TelemetrySettings{
		WiredDataCollection: &catalyst.WiredDataCollection{EnableWiredDataCollection: true},
	}, nil
}

func (g *pipelineGateway) CreateFabricSite(_ context.Context, payload map[string]any) (engine.TaskFuture, error) {
	g.calls = append(g.calls, "create_fabric_site")
	siteID, _ := payload["siteId"].(string)
	g.fabricSites[siteID] = &catalyst.FabricSite{ID: "fabric-" + siteID, SiteID: siteID}
	return engine.TaskFuture{TaskID: "task-1"}, nil
}

func (g *pipelineGateway) DeleteFabricSite(_ context.Context, id string) (engine.TaskFuture, error) {
	g.calls = append(g.calls, "delete_fabric_site")
	for siteID, site := range g.fabricSites {
		if site.ID == id {
			delete(g.fabricSites, siteID)
		}
	}
	return engine.TaskFuture{TaskID: "task-del"}, nil
}

func (g *pipelineGateway) TaskStatus(_ context.Context, taskID string) (*catalyst.TaskStatus, error) {
	return &catalyst.TaskStatus{TaskID: taskID, Progress: "task performed successfully"}, nil
}

func sitePlaybook(t *testing.T) *playbook.Playbook {
	t.Helper()
	input := `
config:
  - fabric_sites:
      - site_name_hierarchy: Global/USA
        fabric_type: fabric_site
`
	pb, err := playbook.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	return pb
}

func newTestPipeline(t *testing.T, gateway *pipelineGateway, opts Options) *Pipeline {
	t.Helper()
	logger := zerolog.Nop()
	if opts.ControllerVersion == "" {
		opts.ControllerVersion = "2.3.7.9"
	}
	if opts.Executor.TaskTimeout == 0 {
		opts.Executor = executor.Options{
			TaskTimeout:  2 * time.Second,
			PollInterval: time.Millisecond,
		}
	}
	return New(gateway, sites.NewResolver(gateway, logger), nil, nil,
		logger, nil, nil, opts)
}

func newPipelineGateway() *pipelineGateway {
	return &pipelineGateway{
		sites:       map[string]string{"Global": "site-root", "Global/USA": "site-usa"},
		fabricSites: map[string]*catalyst.FabricSite{},
	}
}

func TestPlanComputesCreate(t *testing.T) {
	gateway := newPipelineGateway()
	pipe := newTestPipeline(t, gateway, Options{})

	out, err := pipe.Plan(context.Background(), sitePlaybook(t), engine.StateMerged)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if out.RunID == "" {
		t.Error("expected a run ID")
	}
	if len(out.Plan.Actions) != 1 || out.Plan.Actions[0].Type != engine.ActionCreate {
		t.Fatalf("expected one create action, got %+v", out.Plan.Actions)
	}
	if len(gateway.calls) != 0 {
		t.Errorf("plan must not mutate, saw %v", gateway.calls)
	}
}

func TestApplyCreatesFabricSite(t *testing.T) {
	gateway := newPipelineGateway()
	pipe := newTestPipeline(t, gateway, Options{})

	result, err := pipe.Apply(context.Background(), sitePlaybook(t), engine.StateMerged)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !result.Changed || result.Failed {
		t.Errorf("expected changed clean run, got %+v", result)
	}
	if got := result.Response["create_site"]; len(got) != 1 || got[0] != "Global/USA" {
		t.Errorf("unexpected response lists: %#v", result.Response)
	}
	if len(gateway.calls) != 1 {
		t.Errorf("expected one create call, got %v", gateway.calls)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	gateway := newPipelineGateway()
	pipe := newTestPipeline(t, gateway, Options{})

	if _, err := pipe.Apply(context.Background(), sitePlaybook(t), engine.StateMerged); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	result, err := pipe.Apply(context.Background(), sitePlaybook(t), engine.StateMerged)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if result.Changed {
		t.Errorf("second apply should be a no-op, got %+v", result)
	}
	if got := result.Response["no_update_site"]; len(got) != 1 {
		t.Errorf("expected no_update_site list, got %#v", result.Response)
	}
}

func TestApplyVersionGate(t *testing.T) {
	gateway := newPipelineGateway()
	pipe := newTestPipeline(t, gateway, Options{ControllerVersion: "2.3.5.3"})

	_, err := pipe.Apply(context.Background(), sitePlaybook(t), engine.StateMerged)
	if err == nil {
		t.Fatal("expected version gate failure")
	}
	if engine.KindOf(err) != engine.FailVersionGate {
		t.Errorf("expected %s, got %v", engine.FailVersionGate, err)
	}
	if len(gateway.calls) != 0 {
		t.Errorf("gate must run before any mutation, saw %v", gateway.calls)
	}
}

func TestApplySchemaFailureStopsEarly(t *testing.T) {
	gateway := newPipelineGateway()
	pipe := newTestPipeline(t, gateway, Options{})

	pb, err := playbook.Parse(strings.NewReader(
		"config:\n  - fabric_sites:\n      - fabric_type: fabric_site\n"))
	if err != nil {
		t.Fatal(err)
	}
	result, err := pipe.Apply(context.Background(), pb, engine.StateMerged)
	if err == nil {
		t.Fatal("expected schema failure")
	}
	if !result.Failed {
		t.Error("result must report failure")
	}
	if !engine.KindOf(err).SchemaKind() {
		t.Errorf("expected a schema failure kind, got %v", err)
	}
}

func TestApplyPolicyGateAllowsNonRootDelete(t *testing.T) {
	gateway := newPipelineGateway()
	gateway.fabricSites["site-usa"] = &catalyst.FabricSite{ID: "fabric-usa", SiteID: "site-usa"}
	input := `
config:
  - fabric_sites:
      - site_name_hierarchy: Global/USA
        fabric_type: fabric_site
`
	pb, err := playbook.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	logger := zerolog.Nop()
	policies, err := policy.NewEngine(logger)
	if err != nil {
		t.Fatal(err)
	}
	pipe := New(gateway, sites.NewResolver(gateway, logger), policies, nil,
		logger, nil, nil, Options{
			ControllerVersion: "2.3.7.9",
			Executor:          executor.Options{TaskTimeout: 2 * time.Second, PollInterval: time.Millisecond},
		})

	// protected-root blocks deletes of "Global" itself; Global/USA
	// passes the builtin set.
	result, err := pipe.Apply(context.Background(), pb, engine.StateDeleted)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Failed {
		t.Errorf("expected clean delete, got %+v", result)
	}
}

func TestApplyPolicyGateBlocksRootDelete(t *testing.T) {
	gateway := newPipelineGateway()
	gateway.fabricSites["site-root"] = &catalyst.FabricSite{ID: "fabric-root", SiteID: "site-root"}
	pb, err := playbook.Parse(strings.NewReader(
		"config:\n  - fabric_sites:\n      - site_name_hierarchy: Global\n"))
	if err != nil {
		t.Fatal(err)
	}

	logger := zerolog.Nop()
	policies, err := policy.NewEngine(logger)
	if err != nil {
		t.Fatal(err)
	}
	pipe := New(gateway, sites.NewResolver(gateway, logger), policies, nil,
		logger, nil, nil, Options{
			ControllerVersion: "2.3.7.9",
			Executor:          executor.Options{TaskTimeout: 2 * time.Second, PollInterval: time.Millisecond},
		})

	result, err := pipe.Apply(context.Background(), pb, engine.StateDeleted)
	if err == nil {
		t.Fatal("expected policy denial")
	}
	if engine.KindOf(err) != engine.FailPolicyDenied {
		t.Errorf("expected %s, got %v", engine.FailPolicyDenied, err)
	}
	if !result.Failed {
		t.Error("result must report failure")
	}
	if len(gateway.calls) != 0 {
		t.Errorf("denied plan must not execute, saw %v", gateway.calls)
	}
}

func TestApplyRecordsHistory(t *testing.T) {
	gateway := newPipelineGateway()
	store, err := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	logger := zerolog.Nop()
	pipe := New(gateway, sites.NewResolver(gateway, logger), nil, store,
		logger, nil, nil, Options{
			ControllerVersion: "2.3.7.9",
			Executor:          executor.Options{TaskTimeout: 2 * time.Second, PollInterval: time.Millisecond},
		})

	if _, err := pipe.Apply(ctx, sitePlaybook(t), engine.StateMerged); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(runs))
	}
	if runs[0].Status != stores.RunStatusCompleted || !runs[0].Changed {
		t.Errorf("unexpected run record: %+v", runs[0])
	}
	actions, err := store.ListActions(ctx, runs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 1 || actions[0].Outcome != string(engine.OutcomeCreated) {
		t.Errorf("unexpected action records: %+v", actions)
	}
}
