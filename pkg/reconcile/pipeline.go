package reconcile

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fabricward/fabricward/pkg/catalyst"
	"github.com/fabricward/fabricward/pkg/desired"
	"github.com/fabricward/fabricward/pkg/differ"
	"github.com/fabricward/fabricward/pkg/engine"
	"github.com/fabricward/fabricward/pkg/executor"
	"github.com/fabricward/fabricward/pkg/playbook"
	"github.com/fabricward/fabricward/pkg/policy"
	"github.com/fabricward/fabricward/pkg/report"
	"github.com/fabricward/fabricward/pkg/schema"
	"github.com/fabricward/fabricward/pkg/sites"
	"github.com/fabricward/fabricward/pkg/state"
	"github.com/fabricward/fabricward/pkg/stores"
	"github.com/fabricward/fabricward/pkg/telemetry"
	"github.com/fabricward/fabricward/pkg/verify"
)

// Options tunes one pipeline run.
type Options struct {
	// ControllerVersion is the reported controller version used for
	// feature gating.
	ControllerVersion string

	// SkipPolicy disables the policy gate.
	SkipPolicy bool

	// Verify re-reads controller state after apply and fails on
	// residual diffs.
	Verify bool

	// Executor carries task polling knobs.
	Executor executor.Options
}

// Pipeline drives a playbook through validation, desired-state build,
// observation, diff, policy gate, execution and verification.
type Pipeline struct {
	gateway  catalyst.Controller
	resolver *sites.Resolver
	policies *policy.Engine
	store    stores.Store
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
	tracer   *telemetry.Tracer
	opts     Options
}

// New creates a pipeline. policies, store, metrics and tracer may each be
// nil to disable the corresponding stage.
func New(gateway catalyst.Controller, resolver *sites.Resolver, policies *policy.Engine,
	store stores.Store, logger zerolog.Logger, metrics *telemetry.Metrics,
	tracer *telemetry.Tracer, opts Options) *Pipeline {
	return &Pipeline{
		gateway:  gateway,
		resolver: resolver,
		policies: policies,
		store:    store,
		logger:   logger.With().Str("component", "pipeline").Logger(),
		metrics:  metrics,
		tracer:   tracer,
		opts:     opts,
	}
}

// PlanOutput is the result of the read-only pipeline stages.
type PlanOutput struct {
	// RunID identifies the run across logs, traces and history.
	RunID string

	// Want are the canonical desired entities.
	Want []engine.Entity

	// Have are the observed entities, aligned with Want.
	Have []engine.Entity

	// Plan is the ordered action plan.
	Plan engine.Plan
}

// Validate runs the structural pre-pass and schema validation, returning
// the canonical documents.
func (p *Pipeline) Validate(pb *playbook.Playbook) ([]map[string]any, error) {
	registry, err := schema.NewRegistry()
	if err != nil {
		return nil, err
	}
	if err := registry.CheckConfig(pb.Docs); err != nil {
		return nil, err
	}

	result := schema.ValidateConfig(pb.Docs)
	if err := result.Err(); err != nil {
		if p.metrics != nil {
			for _, issue := range result.Issues {
				p.metrics.ObserveSchemaFailure(string(issue.Kind))
			}
		}
		return nil, err
	}
	return result.Docs, nil
}

// Plan runs the read-only stages: validate, build desired state, gate on
// controller version, observe current state and diff.
func (p *Pipeline) Plan(ctx context.Context, pb *playbook.Playbook, goal engine.State) (*PlanOutput, error) {
	runID := uuid.New().String()
	logger := telemetry.WithRun(p.logger, runID)
	out := &PlanOutput{RunID: runID}

	err := p.phase(ctx, "validate", runID, func(ctx context.Context) error {
		docs, err := p.Validate(pb)
		if err != nil {
			return err
		}
		want, err := desired.Build(docs)
		if err != nil {
			return err
		}
		out.Want = want
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := gateVersion(p.opts.ControllerVersion, out.Want); err != nil {
		return nil, err
	}

	err = p.phase(ctx, "gather", runID, func(ctx context.Context) error {
		have, err := state.NewObserver(p.gateway, p.resolver, logger).Gather(ctx, out.Want)
		if err != nil {
			return err
		}
		out.Have = have
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.phase(ctx, "diff", runID, func(ctx context.Context) error {
		plan, err := differ.New(logger).Diff(goal, out.Want, out.Have)
		if err != nil {
			return err
		}
		out.Plan = plan
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("state", string(goal)).
		Int("entities", len(out.Want)).
		Int("actions", len(out.Plan.Actions)).
		Msg("plan computed")
	return out, nil
}

// Apply runs the full pipeline and returns the aggregated run result.
// The result is populated even when err is non-nil.
func (p *Pipeline) Apply(ctx context.Context, pb *playbook.Playbook, goal engine.State) (engine.RunResult, error) {
	out, err := p.Plan(ctx, pb, goal)
	if err != nil {
		return failedRun(err), err
	}
	logger := telemetry.WithRun(p.logger, out.RunID)

	if p.policies != nil && !p.opts.SkipPolicy {
		err = p.phase(ctx, "policy", out.RunID, func(ctx context.Context) error {
			_, err := p.policies.Gate(ctx, goal, &out.Plan)
			return err
		})
		if err != nil {
			return failedRun(err), err
		}
	}

	if p.store != nil {
		run := &stores.Run{ID: out.RunID, PlaybookPath: pb.Path, State: goal}
		if err := p.store.CreateRun(ctx, run); err != nil {
			logger.Warn().Err(err).Msg("run history unavailable")
		}
	}

	var results []engine.ActionResult
	execErr := p.phase(ctx, "execute", out.RunID, func(ctx context.Context) error {
		exec := executor.New(p.gateway, p.resolver, logger, p.metrics, p.opts.Executor)
		var err error
		results, err = exec.Execute(ctx, out.Plan)
		return err
	})

	aggregator := report.New()
	aggregator.Add(results...)
	result := aggregator.Result()

	if execErr == nil && p.opts.Verify && goal != engine.StateGathered {
		execErr = p.phase(ctx, "verify", out.RunID, func(ctx context.Context) error {
			return verify.New(p.gateway, p.resolver, logger).Verify(ctx, goal, out.Want)
		})
		if execErr != nil {
			result.Failed = true
			result.Msg = joinMsg(result.Msg, execErr.Error())
		}
	}

	if p.store != nil {
		if err := p.store.RecordActions(ctx, out.RunID, results); err != nil {
			logger.Warn().Err(err).Msg("failed to record actions")
		}
		if err := p.store.FinishRun(ctx, out.RunID, result, execErr); err != nil {
			logger.Warn().Err(err).Msg("failed to finish run record")
		}
	}

	logger.Info().
		Bool("changed", result.Changed).
		Bool("failed", result.Failed).
		Msg("run finished")
	return result, execErr
}

// VerifyOnly runs validation, build and the convergence check without
// mutating anything.
func (p *Pipeline) VerifyOnly(ctx context.Context, pb *playbook.Playbook, goal engine.State) error {
	docs, err := p.Validate(pb)
	if err != nil {
		return err
	}
	want, err := desired.Build(docs)
	if err != nil {
		return err
	}
	if err := gateVersion(p.opts.ControllerVersion, want); err != nil {
		return err
	}
	return verify.New(p.gateway, p.resolver, p.logger).Verify(ctx, goal, want)
}

// phase runs fn under a tracing span when a tracer is configured.
func (p *Pipeline) phase(ctx context.Context, name, runID string, fn func(context.Context) error) error {
	if p.tracer == nil {
		return fn(ctx)
	}
	ctx, span := p.tracer.StartPhase(ctx, name, runID)
	err := fn(ctx)
	telemetry.EndPhase(span, err)
	return err
}

// failedRun is the run result of a pipeline that failed before execution.
func failedRun(err error) engine.RunResult {
	return engine.RunResult{Failed: true, Msg: err.Error()}
}

func joinMsg(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
