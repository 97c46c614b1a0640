// Package sites resolves site hierarchy paths to controller site IDs.
//
// Playbooks name sites by their full hierarchy path ("Global/USA/SAN
// JOSE") while every controller API keys on opaque site IDs. The
// resolver translates between the two and memoizes both directions for
// the lifetime of one run, so repeated lookups of the same path across
// phases cost one controller read.
package sites

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fabricward/fabricward/pkg/catalyst"
	"github.com/fabricward/fabricward/pkg/engine"
)

// WildcardSuffix expands a path to every site beneath it.
const WildcardSuffix = "/.*"

// Resolver translates hierarchy paths to site IDs with per-run
// memoization.
type Resolver struct {
	gateway catalyst.Sites
	logger  zerolog.Logger

	mu     sync.Mutex
	byPath map[string]string
	byID   map[string]string
}

// NewResolver returns a resolver over the given site gateway.
func NewResolver(gateway catalyst.Sites, logger zerolog.Logger) *Resolver {
	return &Resolver{
		gateway: gateway,
		logger:  logger.With().Str("component", "site-resolver").Logger(),
		byPath:  make(map[string]string),
		byID:    make(map[string]string),
	}
}

// Resolve returns the site ID for a hierarchy path. A path that does not
// exist on the controller is a resolve.not_found failure.
func (r *Resolver) Resolve(ctx context.Context, path string) (string, error) {
	r.mu.Lock()
	id, hit := r.byPath[path]
	r.mu.Unlock()
	if hit {
		return id, nil
	}

	site, err := r.gateway.GetSite(ctx, path)
	if err != nil {
		return "", err
	}
	if site == nil {
		return "", engine.Errorf(engine.FailResolveNotFound,
			"site %q does not exist on the controller", path)
	}

	r.remember(path, site.ID)
	r.logger.Debug().Str("site", path).Str("site_id", site.ID).Msg("resolved site")
	return site.ID, nil
}

// PathOf returns the hierarchy path for a site ID seen earlier in the
// run. IDs the resolver has not met resolve through a prefix listing
// from the root.
func (r *Resolver) PathOf(ctx context.Context, id string) (string, error) {
	r.mu.Lock()
	path, hit := r.byID[id]
	r.mu.Unlock()
	if hit {
		return path, nil
	}

	all, err := r.gateway.ListSites(ctx, "Global")
	if err != nil {
		return "", err
	}
	for _, site := range all {
		r.remember(site.NameHierarchy, site.ID)
	}

	r.mu.Lock()
	path, hit = r.byID[id]
	r.mu.Unlock()
	if !hit {
		return "", engine.Errorf(engine.FailResolveNotFound,
			"no site with ID %q exists on the controller", id)
	}
	return path, nil
}

// Expand resolves a path that may end in the wildcard suffix. A plain
// path yields itself; "Global/USA/.*" yields USA and every site beneath
// it, sorted so parents precede children.
func (r *Resolver) Expand(ctx context.Context, path string) ([]string, error) {
	if !strings.HasSuffix(path, WildcardSuffix) {
		if _, err := r.Resolve(ctx, path); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	prefix := strings.TrimSuffix(path, WildcardSuffix)
	matches, err := r.gateway.ListSites(ctx, prefix)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(matches))
	for _, site := range matches {
		if site.NameHierarchy != prefix && !strings.HasPrefix(site.NameHierarchy, prefix+"/") {
			continue
		}
		r.remember(site.NameHierarchy, site.ID)
		paths = append(paths, site.NameHierarchy)
	}
	if len(paths) == 0 {
		return nil, engine.Errorf(engine.FailResolveNotFound,
			"wildcard %q matched no sites on the controller", path)
	}
	sort.Strings(paths)
	return paths, nil
}

// Parent returns the hierarchy path one level up, or "" for the root.
func Parent(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// Depth returns the number of segments in a hierarchy path.
func Depth(path string) int {
	return strings.Count(path, "/") + 1
}

// Validate checks that a path is rooted at Global with no empty
// segments. The schema pass already rejects malformed paths in playbook
// input; this guards paths assembled at runtime.
func Validate(path string) error {
	segments := strings.Split(path, "/")
	if segments[0] != "Global" {
		return fmt.Errorf("site path %q is not rooted at Global", path)
	}
	for _, segment := range segments {
		if segment == "" {
			return fmt.Errorf("site path %q has an empty segment", path)
		}
	}
	return nil
}

func (r *Resolver) remember(path, id string) {
	r.mu.Lock()
	r.byPath[path] = id
	r.byID[id] = path
	r.mu.Unlock()
}
