package sites

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fabricward/fabricward/pkg/catalyst"
	"github.com/fabricward/fabricward/pkg/engine"
)

// mockSites is a hand-rolled catalyst.Sites recording call counts.
type mockSites struct {
	sites     map[string]string // path -> ID
	getCalls  int
	listCalls int
}

func (m *mockSites) GetSite(_ context.Context, nameHierarchy string) (*catalyst.Site, error) {
	m.getCalls++
	id, ok := m.sites[nameHierarchy]
	if !ok {
		return nil, nil
	}
	return &catalyst.Site{ID: id, NameHierarchy: nameHierarchy}, nil
}

func (m *mockSites) ListSites(_ context.Context, prefix string) ([]catalyst.Site, error) {
	m.listCalls++
	var out []catalyst.Site
	for path, id := range m.sites {
		if len(path) >= len(prefix) && path[:len(prefix)] == prefix {
			out = append(out, catalyst.Site{ID: id, NameHierarchy: path})
		}
	}
	return out, nil
}

func newTestResolver(sites map[string]string) (*Resolver, *mockSites) {
	mock := &mockSites{sites: sites}
	return NewResolver(mock, zerolog.Nop()), mock
}

func TestResolveMemoizes(t *testing.T) {
	r, mock := newTestResolver(map[string]string{
		"Global/USA/SAN JOSE": "site-sj",
	})

	for i := 0; i < 3; i++ {
		id, err := r.Resolve(context.Background(), "Global/USA/SAN JOSE")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if id != "site-sj" {
			t.Fatalf("Resolve = %q, want site-sj", id)
		}
	}
	if mock.getCalls != 1 {
		t.Errorf("getCalls = %d, want 1 (memoized)", mock.getCalls)
	}
}

func TestResolveNotFound(t *testing.T) {
	r, _ := newTestResolver(map[string]string{})
	_, err := r.Resolve(context.Background(), "Global/Nowhere")
	if err == nil {
		t.Fatal("Resolve succeeded for a missing site")
	}
	if !engine.IsNotFound(err) {
		t.Errorf("error kind = %v, want resolve.not_found", engine.KindOf(err))
	}
}

func TestPathOfUsesMemoThenListing(t *testing.T) {
	r, mock := newTestResolver(map[string]string{
		"Global":              "site-root",
		"Global/USA":          "site-usa",
		"Global/USA/SAN JOSE": "site-sj",
	})

	// Resolving a path makes the reverse lookup free.
	if _, err := r.Resolve(context.Background(), "Global/USA"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	path, err := r.PathOf(context.Background(), "site-usa")
	if err != nil {
		t.Fatalf("PathOf: %v", err)
	}
	if path != "Global/USA" || mock.listCalls != 0 {
		t.Errorf("PathOf = %q (listCalls %d), want memo hit", path, mock.listCalls)
	}

	// An unseen ID falls back to one full listing.
	path, err = r.PathOf(context.Background(), "site-sj")
	if err != nil {
		t.Fatalf("PathOf: %v", err)
	}
	if path != "Global/USA/SAN JOSE" || mock.listCalls != 1 {
		t.Errorf("PathOf = %q (listCalls %d)", path, mock.listCalls)
	}

	if _, err := r.PathOf(context.Background(), "site-missing"); !engine.IsNotFound(err) {
		t.Errorf("missing ID error = %v", err)
	}
}

func TestExpandWildcard(t *testing.T) {
	r, _ := newTestResolver(map[string]string{
		"Global":                     "site-root",
		"Global/USA":                 "site-usa",
		"Global/USA/SAN JOSE":        "site-sj",
		"Global/USA/SAN JOSE/BLD23":  "site-bld23",
		"Global/USALIKE":             "site-usalike",
	})

	paths, err := r.Expand(context.Background(), "Global/USA/.*")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := []string{"Global/USA", "Global/USA/SAN JOSE", "Global/USA/SAN JOSE/BLD23"}
	if len(paths) != len(want) {
		t.Fatalf("Expand = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("Expand[%d] = %q, want %q", i, paths[i], want[i])
		}
	}

	// A sibling whose name merely shares the prefix must not match.
	for _, p := range paths {
		if p == "Global/USALIKE" {
			t.Error("prefix sibling Global/USALIKE leaked into wildcard expansion")
		}
	}

	if _, err := r.Expand(context.Background(), "Global/EU/.*"); !engine.IsNotFound(err) {
		t.Errorf("empty wildcard error = %v", err)
	}
}

func TestExpandPlainPath(t *testing.T) {
	r, _ := newTestResolver(map[string]string{"Global/USA": "site-usa"})
	paths, err := r.Expand(context.Background(), "Global/USA")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(paths) != 1 || paths[0] != "Global/USA" {
		t.Errorf("Expand = %v", paths)
	}
}

func TestParentAndDepth(t *testing.T) {
	if got := Parent("Global/USA/SAN JOSE"); got != "Global/USA" {
		t.Errorf("Parent = %q", got)
	}
	if got := Parent("Global"); got != "" {
		t.Errorf("Parent(Global) = %q, want empty", got)
	}
	if got := Depth("Global/USA/SAN JOSE"); got != 3 {
		t.Errorf("Depth = %d, want 3", got)
	}
}
