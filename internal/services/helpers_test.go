package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/ontoroute/ontoroute/internal/clients/resource"
	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/platform/dbctx"
)

// fakeClient serves a fixed conversion table and counts calls. When dumpAll
// is set it returns the whole table regardless of the requested batch, the
// shape a bulk resource produces when queried from the target side.
type fakeClient struct {
	name       string
	table      map[string][]string
	confidence float64
	dumpAll    bool

	mu       sync.Mutex
	calls    int
	failures int
}

func (c *fakeClient) Name() string { return c.name }

func (c *fakeClient) MapIdentifiers(ctx context.Context, identifiers []string, _ datatypes.JSON) (map[string]resource.MappedValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.calls++
	fail := c.calls <= c.failures
	c.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("resource %s unavailable", c.name)
	}
	conf := c.confidence
	if conf == 0 {
		conf = 1.0
	}
	out := make(map[string]resource.MappedValue)
	if c.dumpAll {
		for src, targets := range c.table {
			out[src] = resource.MappedValue{TargetIDs: append([]string(nil), targets...), Confidence: conf}
		}
		return out, nil
	}
	for _, id := range identifiers {
		targets, ok := c.table[id]
		if !ok {
			continue
		}
		out[id] = resource.MappedValue{TargetIDs: append([]string(nil), targets...), Confidence: conf}
	}
	return out, nil
}

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeReverseClient adds the specialized reverse capability on top of the
// forward table.
type fakeReverseClient struct {
	fakeClient
	perIDErrs map[string]string

	rmu          sync.Mutex
	reverseCalls int
}

func (c *fakeReverseClient) ReverseMapIdentifiers(ctx context.Context, identifiers []string) (resource.ReverseResult, error) {
	if err := ctx.Err(); err != nil {
		return resource.ReverseResult{}, err
	}
	c.rmu.Lock()
	c.reverseCalls++
	c.rmu.Unlock()
	inverse := map[string][]string{}
	for src, targets := range c.table {
		for _, t := range targets {
			inverse[t] = append(inverse[t], src)
		}
	}
	out := resource.ReverseResult{InputToPrimary: map[string][]string{}}
	for _, id := range identifiers {
		if reason, ok := c.perIDErrs[id]; ok {
			out.Errors = append(out.Errors, resource.ReverseError{InputID: id, Reason: reason})
			continue
		}
		out.InputToPrimary[id] = append([]string(nil), inverse[id]...)
	}
	return out, nil
}

type fakePathRepo struct {
	rows []*types.MappingPath
	err  error
}

func (f *fakePathRepo) ListPaths(_ dbctx.Context, sourceType, targetType string) ([]*types.MappingPath, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*types.MappingPath
	for _, r := range f.rows {
		if r.SourceType == sourceType && r.TargetType == targetType && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakePathRepo) Create(_ dbctx.Context, paths []*types.MappingPath) error {
	f.rows = append(f.rows, paths...)
	return nil
}

type fakeEndpointRepo struct {
	props []*types.EndpointPropertyConfig
}

func (f *fakeEndpointRepo) ListSecondary(_ dbctx.Context, endpoint string) ([]*types.EndpointPropertyConfig, error) {
	var out []*types.EndpointPropertyConfig
	for _, p := range f.props {
		if p.Endpoint == endpoint && !p.IsPrimary {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeEndpointRepo) GetPrimary(_ dbctx.Context, endpoint string) (*types.EndpointPropertyConfig, error) {
	for _, p := range f.props {
		if p.Endpoint == endpoint && p.IsPrimary {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeEndpointRepo) Create(_ dbctx.Context, props []*types.EndpointPropertyConfig) error {
	f.props = append(f.props, props...)
	return nil
}

type fakePreferenceRepo struct {
	prefs []*types.OntologyPreference
}

func (f *fakePreferenceRepo) ListByEndpoint(_ dbctx.Context, endpoint, _ string) ([]*types.OntologyPreference, error) {
	var out []*types.OntologyPreference
	for _, p := range f.prefs {
		if p.Endpoint == endpoint {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePreferenceRepo) Create(_ dbctx.Context, prefs []*types.OntologyPreference) error {
	f.prefs = append(f.prefs, prefs...)
	return nil
}

// memStore is an in-memory CacheStore.
type memStore struct {
	mu      sync.Mutex
	entries map[string]*types.MappingCacheEntry
	fail    bool
	upserts int
}

func newMemStore() *memStore {
	return &memStore{entries: map[string]*types.MappingCacheEntry{}}
}

func (s *memStore) key(sourceOntology, targetOntology, identifier string) string {
	return sourceOntology + "|" + targetOntology + "|" + identifier
}

func (s *memStore) GetBatch(_ context.Context, sourceOntology, targetOntology string, identifiers []string) ([]*types.MappingCacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, fmt.Errorf("store unavailable")
	}
	var out []*types.MappingCacheEntry
	for _, id := range identifiers {
		if e, ok := s.entries[s.key(sourceOntology, targetOntology, id)]; ok {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memStore) Upsert(_ context.Context, entries []*types.MappingCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("store unavailable")
	}
	s.upserts++
	for _, e := range entries {
		copied := *e
		s.entries[s.key(e.SourceOntology, e.TargetOntology, e.Identifier)] = &copied
	}
	return nil
}

func (s *memStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, e := range s.entries {
		if e.ExpiresAt != nil && !e.ExpiresAt.After(before) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

func newPathRow(name, sourceType, targetType string, priority int, resources ...types.MappingResource) *types.MappingPath {
	p := &types.MappingPath{
		ID:         uuid.New(),
		Name:       name,
		SourceType: sourceType,
		TargetType: targetType,
		Priority:   priority,
		Active:     true,
	}
	for i, res := range resources {
		if res.ID == uuid.Nil {
			res.ID = uuid.New()
		}
		p.Steps = append(p.Steps, types.MappingPathStep{
			ID:         uuid.New(),
			PathID:     p.ID,
			ResourceID: res.ID,
			Resource:   res,
			StepOrder:  i + 1,
		})
	}
	return p
}

func execPath(name, sourceType, targetType string, priority int, resources ...types.MappingResource) *types.ExecutablePath {
	return types.NewExecutablePath(newPathRow(name, sourceType, targetType, priority, resources...))
}
