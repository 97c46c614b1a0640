package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Loader reads policy definitions from .rego and .json files. Policies
// are read once per run; the engine compiles and holds them after that.
type Loader struct {
	logger zerolog.Logger
}

// NewLoader returns a policy loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "policy-loader").Logger(),
	}
}

// LoadFromPaths reads every policy under the given files or
// directories.
func (l *Loader) LoadFromPaths(ctx context.Context, paths []string) ([]Policy, error) {
	var policies []Policy
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		loaded, err := l.loadPath(path)
		if err != nil {
			return nil, fmt.Errorf("load policies from %s: %w", path, err)
		}
		policies = append(policies, loaded...)
	}

	l.logger.Info().
		Int("count", len(policies)).
		Int("sources", len(paths)).
		Msg("policies loaded")
	return policies, nil
}

func (l *Loader) loadPath(path string) ([]Policy, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		policy, err := l.readPolicy(path)
		if err != nil {
			return nil, err
		}
		return []Policy{*policy}, nil
	}

	var policies []Policy
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isPolicyFile(p) {
			return nil
		}
		policy, err := l.readPolicy(p)
		if err != nil {
			// One broken file must not take down the rest of the bundle.
			l.logger.Warn().Err(err).Str("path", p).Msg("skipping unreadable policy file")
			return nil
		}
		policies = append(policies, *policy)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return policies, nil
}

func isPolicyFile(path string) bool {
	return strings.HasSuffix(path, ".rego") || strings.HasSuffix(path, ".json")
}

// readPolicy parses one policy file. A rego file becomes an enabled
// warning-severity policy named after the file, with the leading
// comment block as its description; a JSON file carries the full
// policy definition.
func (l *Loader) readPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".json") {
		return parsePolicyJSON(data)
	}

	now := time.Now()
	policy := &Policy{
		Name:        strings.TrimSuffix(filepath.Base(path), ".rego"),
		Description: headerComment(string(data)),
		Rego:        string(data),
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	l.logger.Debug().Str("path", path).Str("policy", policy.Name).Msg("policy read")
	return policy, nil
}

func parsePolicyJSON(data []byte) (*Policy, error) {
	var policy Policy
	if err := json.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("parse policy definition: %w", err)
	}
	if policy.Severity == "" {
		policy.Severity = SeverityWarning
	}
	now := time.Now()
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = now
	}
	if policy.UpdatedAt.IsZero() {
		policy.UpdatedAt = now
	}
	return &policy, nil
}

// headerComment joins the first comment block of a rego source into one
// line, skipping package declarations.
func headerComment(source string) string {
	var parts []string
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			text := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
			if text != "" && !strings.HasPrefix(text, "package") {
				parts = append(parts, text)
			}
		case trimmed != "" && len(parts) > 0:
			return strings.Join(parts, " ")
		}
	}
	return strings.Join(parts, " ")
}
