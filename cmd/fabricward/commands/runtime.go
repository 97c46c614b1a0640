package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/fabricward/fabricward/pkg/catalyst"
	"github.com/fabricward/fabricward/pkg/engine"
	"github.com/fabricward/fabricward/pkg/policy"
	"github.com/fabricward/fabricward/pkg/reconcile"
	"github.com/fabricward/fabricward/pkg/sites"
	"github.com/fabricward/fabricward/pkg/stores"
	"github.com/fabricward/fabricward/pkg/telemetry"
)

// runtime wires the shared pipeline collaborators from the global flags.
type runtime struct {
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
	tracer   *telemetry.Tracer
	gateway  catalyst.Controller
	resolver *sites.Resolver
}

// buildRuntime constructs the controller client and telemetry stack.
func buildRuntime(version string) (*runtime, error) {
	cfg := telemetryConfig(version)
	logger, err := telemetry.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	metrics := telemetry.NewMetrics(cfg.Metrics)
	metrics.Serve()

	tracer, err := telemetry.NewTracer(cfg.Tracing, cfg.ServiceName, version)
	if err != nil {
		return nil, err
	}

	client, err := catalyst.NewClient(controllerConfig(), logger, metrics)
	if err != nil {
		return nil, err
	}

	return &runtime{
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		gateway:  client,
		resolver: sites.NewResolver(client, logger),
	}, nil
}

// pipeline builds a reconcile pipeline; policies and store may be nil.
func (r *runtime) pipeline(policies *policy.Engine, store stores.Store, opts reconcile.Options) *reconcile.Pipeline {
	return reconcile.New(r.gateway, r.resolver, policies, store,
		r.logger, r.metrics, r.tracer, opts)
}

// shutdown flushes pending telemetry.
func (r *runtime) shutdown(ctx context.Context) {
	if r.tracer != nil {
		_ = r.tracer.Shutdown(ctx)
	}
}

// openStore initializes the run-history store at path.
func openStore(ctx context.Context, path string) (stores.Store, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// emitResult prints the run result: JSON on stdout when requested, and a
// nonzero exit through the returned error when the run failed.
func emitResult(result engine.RunResult, runErr error) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		fmt.Printf("changed=%v failed=%v\n", result.Changed, result.Failed)
		if result.Msg != "" {
			fmt.Println(result.Msg)
		}
	}
	if runErr != nil {
		return runErr
	}
	if result.Failed {
		return fmt.Errorf("run failed: %s", result.Msg)
	}
	return nil
}
