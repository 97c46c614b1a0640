// Package verify implements the post-apply convergence check: current
// state is re-read and the plan recomputed; residual mutations mean the
// run did not converge.
package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fabricward/fabricward/pkg/catalyst"
	"github.com/fabricward/fabricward/pkg/differ"
	"github.com/fabricward/fabricward/pkg/engine"
	"github.com/fabricward/fabricward/pkg/sites"
	"github.com/fabricward/fabricward/pkg/state"
)

// Verifier re-checks declared entities against controller state.
type Verifier struct {
	gateway  catalyst.Controller
	resolver *sites.Resolver
	logger   zerolog.Logger
}

// New returns a verifier over the given gateway.
func New(gateway catalyst.Controller, resolver *sites.Resolver, logger zerolog.Logger) *Verifier {
	return &Verifier{
		gateway:  gateway,
		resolver: resolver,
		logger:   logger.With().Str("component", "verifier").Logger(),
	}
}

// Verify re-gathers current state for the declared entities and
// recomputes the plan. Merged state passes iff the recomputed plan
// holds no create or update; deleted state passes iff every deletable
// declared entity reads as absent. A stale credential index would hide
// same-run creates, so the gather always uses a fresh observer.
func (v *Verifier) Verify(ctx context.Context, goal engine.State, want []engine.Entity) error {
	observer := state.NewObserver(v.gateway, v.resolver, v.logger)
	have, err := observer.Gather(ctx, want)
	if err != nil {
		return err
	}

	var residual []string
	switch goal {
	case engine.StateDeleted:
		for _, entity := range have {
			if entity.Exists && deletable(entity.Kind) {
				residual = append(residual, fmt.Sprintf("%s %q still present",
					entity.Kind, entity.NaturalKey))
			}
		}
	default:
		plan, err := differ.New(v.logger).Diff(goal, want, have)
		if err != nil {
			return err
		}
		for _, action := range plan.Actions {
			if action.Type != engine.ActionCreate && action.Type != engine.ActionUpdate {
				continue
			}
			residual = append(residual, fmt.Sprintf("%s %q still needs %s",
				action.Entity.Kind, action.Entity.NaturalKey, action.Type))
		}
	}

	if len(residual) == 0 {
		v.logger.Info().Str("state", string(goal)).Int("entities", len(want)).
			Msg("verification passed")
		return nil
	}
	return engine.Errorf(engine.FailVerifyMismatch,
		"%d entities did not converge: %s", len(residual), strings.Join(residual, "; "))
}

// deletable reports whether deleted-state verification applies to the
// kind. Action-like kinds (issue actions, link and device updates) have
// no deleted representation to check.
func deletable(kind engine.Kind) bool {
	switch kind {
	case engine.KindFabricSite, engine.KindFabricZone, engine.KindAuthProfile,
		engine.KindIssueDefinition, engine.KindLanSession, engine.KindCredentialBinding:
		return true
	}
	return false
}
