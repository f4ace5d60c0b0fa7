package services

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/ontoroute/ontoroute/internal/clients/resource"
	"github.com/ontoroute/ontoroute/internal/data/repos/testutil"
	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/pkg/mapperr"
)

func newExecutor(t *testing.T, cache CacheManager, clients ...resource.Client) PathExecutor {
	t.Helper()
	registry := resource.NewRegistryFromClients(testutil.Logger(t), clients...)
	return NewPathExecutor(testutil.Logger(t), registry, cache, 0, time.Millisecond)
}

func TestExecutePathSingleStep(t *testing.T) {
	client := &fakeClient{name: "uniprot-api", table: map[string][]string{"P12345": {"1ABC"}}}
	exec := newExecutor(t, nil, client)
	path := execPath("direct", "uniprot", "pdb", 1, types.MappingResource{Name: "uniprot-api"})

	out, err := exec.ExecutePath(context.Background(), path, []string{"P12345", "P99999"}, "uniprot", "pdb", ExecuteOptions{})
	if err != nil {
		t.Fatalf("ExecutePath: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("want one outcome per identifier, got %d", len(out))
	}

	hit := out["P12345"]
	if !hit.Resolved() {
		t.Fatalf("P12345 not resolved: %+v", hit)
	}
	if !reflect.DeepEqual(hit.TargetIDs, []string{"1ABC"}) {
		t.Fatalf("want targets [1ABC], got %v", hit.TargetIDs)
	}
	if hit.HopCount != 1 || hit.Confidence != 1.0 {
		t.Fatalf("want hop 1 conf 1.0, got hop %d conf %v", hit.HopCount, hit.Confidence)
	}
	if len(hit.Provenance) != 1 || hit.Provenance[0].ResourceName != "uniprot-api" {
		t.Fatalf("unexpected provenance %+v", hit.Provenance)
	}

	miss := out["P99999"]
	if miss.Status != types.StatusUnresolved || miss.Reason != types.ReasonNoMatch {
		t.Fatalf("want unresolved no_match, got %s/%s", miss.Status, miss.Reason)
	}
	if miss.TargetIDs == nil || len(miss.TargetIDs) != 0 {
		t.Fatalf("want explicit empty target set, got %v", miss.TargetIDs)
	}
}

func TestExecutePathChainsConfidenceAndHops(t *testing.T) {
	first := &fakeClient{name: "to-gene", table: map[string][]string{"P12345": {"ENSG1"}}, confidence: 0.8}
	second := &fakeClient{name: "to-pdb", table: map[string][]string{"ENSG1": {"1ABC", "2DEF"}}, confidence: 0.9}
	exec := newExecutor(t, nil, first, second)
	path := execPath("chained", "uniprot", "pdb", 1,
		types.MappingResource{Name: "to-gene"},
		types.MappingResource{Name: "to-pdb"},
	)

	out, err := exec.ExecutePath(context.Background(), path, []string{"P12345"}, "uniprot", "pdb", ExecuteOptions{})
	if err != nil {
		t.Fatalf("ExecutePath: %v", err)
	}
	o := out["P12345"]
	if !o.Resolved() {
		t.Fatalf("not resolved: %+v", o)
	}
	if !reflect.DeepEqual(o.TargetIDs, []string{"1ABC", "2DEF"}) {
		t.Fatalf("unexpected targets %v", o.TargetIDs)
	}
	if o.HopCount != 2 {
		t.Fatalf("want 2 hops, got %d", o.HopCount)
	}
	if math.Abs(o.Confidence-0.72) > 1e-9 {
		t.Fatalf("want confidence 0.72, got %v", o.Confidence)
	}
	if len(o.Provenance) != 2 || o.Provenance[0].ResourceName != "to-gene" || o.Provenance[1].ResourceName != "to-pdb" {
		t.Fatalf("unexpected provenance %+v", o.Provenance)
	}
}

func TestExecutePathHopLimit(t *testing.T) {
	first := &fakeClient{name: "to-gene", table: map[string][]string{"P12345": {"ENSG1"}}}
	second := &fakeClient{name: "to-pdb", table: map[string][]string{"ENSG1": {"1ABC"}}}
	exec := newExecutor(t, nil, first, second)
	path := execPath("chained", "uniprot", "pdb", 1,
		types.MappingResource{Name: "to-gene"},
		types.MappingResource{Name: "to-pdb"},
	)

	out, err := exec.ExecutePath(context.Background(), path, []string{"P12345"}, "uniprot", "pdb", ExecuteOptions{MaxHopCount: 1})
	if err != nil {
		t.Fatalf("ExecutePath: %v", err)
	}
	o := out["P12345"]
	if o.Status != types.StatusUnresolved || o.Reason != types.ReasonHopLimit {
		t.Fatalf("want unresolved %s, got %s/%s", types.ReasonHopLimit, o.Status, o.Reason)
	}
	if second.callCount() != 0 {
		t.Fatalf("second step called %d times past the hop budget", second.callCount())
	}
}

func TestExecutePathMinConfidenceFilters(t *testing.T) {
	client := &fakeClient{name: "weak", table: map[string][]string{"P12345": {"1ABC"}}, confidence: 0.5}
	exec := newExecutor(t, nil, client)
	path := execPath("direct", "uniprot", "pdb", 1, types.MappingResource{Name: "weak"})

	out, err := exec.ExecutePath(context.Background(), path, []string{"P12345"}, "uniprot", "pdb", ExecuteOptions{MinConfidence: 0.8})
	if err != nil {
		t.Fatalf("ExecutePath: %v", err)
	}
	o := out["P12345"]
	if o.Status != types.StatusUnresolved || o.Reason != types.ReasonBelowMinConfidence {
		t.Fatalf("want unresolved %s, got %s/%s", types.ReasonBelowMinConfidence, o.Status, o.Reason)
	}
	if len(o.TargetIDs) != 0 {
		t.Fatalf("filtered targets leaked into TargetIDs: %v", o.TargetIDs)
	}
	if len(o.Filtered) != 1 || o.Filtered[0].TargetID != "1ABC" || o.Filtered[0].Confidence != 0.5 {
		t.Fatalf("unexpected filtered set %+v", o.Filtered)
	}
}

func TestExecutePathBulkFailureIsPerIdentifier(t *testing.T) {
	client := &fakeClient{name: "down", table: map[string][]string{}, failures: 1 << 20}
	exec := newExecutor(t, nil, client)
	path := execPath("direct", "uniprot", "pdb", 1, types.MappingResource{Name: "down"})

	out, err := exec.ExecutePath(context.Background(), path, []string{"a", "b"}, "uniprot", "pdb", ExecuteOptions{})
	if err != nil {
		t.Fatalf("bulk failure must not abort the call: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		o := out[id]
		if o == nil || o.Status != types.StatusFailed || o.Reason != types.ReasonClientError {
			t.Fatalf("%s: want failed %s, got %+v", id, types.ReasonClientError, o)
		}
	}
}

func TestExecutePathRetriesTransientFailures(t *testing.T) {
	client := &fakeClient{name: "flaky", table: map[string][]string{"P12345": {"1ABC"}}, failures: 1}
	registry := resource.NewRegistryFromClients(testutil.Logger(t), client)
	exec := NewPathExecutor(testutil.Logger(t), registry, nil, 2, time.Millisecond)
	path := execPath("direct", "uniprot", "pdb", 1, types.MappingResource{Name: "flaky"})

	out, err := exec.ExecutePath(context.Background(), path, []string{"P12345"}, "uniprot", "pdb", ExecuteOptions{})
	if err != nil {
		t.Fatalf("ExecutePath: %v", err)
	}
	if !out["P12345"].Resolved() {
		t.Fatalf("want resolved after retry, got %+v", out["P12345"])
	}
	if client.callCount() != 2 {
		t.Fatalf("want 2 attempts, got %d", client.callCount())
	}
}

func TestExecutePathReverseByInversion(t *testing.T) {
	// Forward table a->x, b->x, c->y, traversed backward over [x y z].
	client := &fakeClient{
		name:    "forward-only",
		table:   map[string][]string{"a": {"x"}, "b": {"x"}, "c": {"y"}},
		dumpAll: true,
	}
	exec := newExecutor(t, nil, client)
	path := execPath("a-to-b", "uniprot", "pdb", 1, types.MappingResource{Name: "forward-only"}).Reverse()

	out, err := exec.ExecutePath(context.Background(), path, []string{"x", "y", "z"}, "pdb", "uniprot", ExecuteOptions{})
	if err != nil {
		t.Fatalf("ExecutePath: %v", err)
	}
	if got := out["x"].TargetIDs; !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("x: want [a b], got %v", got)
	}
	if got := out["y"].TargetIDs; !reflect.DeepEqual(got, []string{"c"}) {
		t.Fatalf("y: want [c], got %v", got)
	}
	z := out["z"]
	if z.Status != types.StatusUnresolved || z.Reason != types.ReasonNoMatch {
		t.Fatalf("z: want unresolved no_match, got %s/%s", z.Status, z.Reason)
	}
	if out["x"].Direction != types.DirectionReverse {
		t.Fatalf("want reverse direction, got %s", out["x"].Direction)
	}
}

func TestExecutePathSpecializedReverse(t *testing.T) {
	client := &fakeReverseClient{
		fakeClient: fakeClient{name: "sifts", table: map[string][]string{"a": {"x"}, "c": {"y"}}},
		perIDErrs:  map[string]string{"y": "upstream timeout"},
	}
	exec := newExecutor(t, nil, client)
	path := execPath("a-to-b", "uniprot", "pdb", 1, types.MappingResource{Name: "sifts", SupportsReverse: true}).Reverse()

	out, err := exec.ExecutePath(context.Background(), path, []string{"x", "y"}, "pdb", "uniprot", ExecuteOptions{})
	if err != nil {
		t.Fatalf("ExecutePath: %v", err)
	}
	if client.reverseCalls == 0 {
		t.Fatal("specialized reverse capability not used")
	}
	if client.callCount() != 0 {
		t.Fatal("forward call made despite specialized reverse")
	}
	if got := out["x"].TargetIDs; !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("x: want [a], got %v", got)
	}
	y := out["y"]
	if y.Status != types.StatusFailed || y.Reason != types.ReasonClientError {
		t.Fatalf("y: want failed %s, got %s/%s", types.ReasonClientError, y.Status, y.Reason)
	}
}

func TestExecutePathWarmCacheSkipsResources(t *testing.T) {
	client := &fakeClient{name: "uniprot-api", table: map[string][]string{"P12345": {"1ABC"}}}
	store := newMemStore()
	cache := NewCacheManager(testutil.Logger(t), store, time.Hour, time.Hour)
	exec := newExecutor(t, cache, client)
	path := execPath("direct", "uniprot", "pdb", 1, types.MappingResource{Name: "uniprot-api"})

	first, err := exec.ExecutePath(context.Background(), path, []string{"P12345"}, "uniprot", "pdb", ExecuteOptions{})
	if err != nil {
		t.Fatalf("cold ExecutePath: %v", err)
	}
	second, err := exec.ExecutePath(context.Background(), path, []string{"P12345"}, "uniprot", "pdb", ExecuteOptions{})
	if err != nil {
		t.Fatalf("warm ExecutePath: %v", err)
	}
	if client.callCount() != 1 {
		t.Fatalf("warm run hit the resource: %d calls", client.callCount())
	}
	if !reflect.DeepEqual(first["P12345"].TargetIDs, second["P12345"].TargetIDs) {
		t.Fatalf("warm result diverged: %v vs %v", first["P12345"].TargetIDs, second["P12345"].TargetIDs)
	}
}

func TestAdvanceSurfacesClientFailureReason(t *testing.T) {
	_, _, reason := advance([]string{"a"}, nil, map[string]string{"a": "upstream timeout"})
	if reason != "upstream timeout" {
		t.Fatalf("want the client's reason, got %q", reason)
	}
}

func TestExecutePathWarmCacheKeepsReverseOutcome(t *testing.T) {
	client := &fakeClient{
		name:    "forward-only",
		table:   map[string][]string{"a": {"x"}, "b": {"x"}},
		dumpAll: true,
	}
	store := newMemStore()
	cache := NewCacheManager(testutil.Logger(t), store, time.Hour, time.Hour)
	exec := newExecutor(t, cache, client)
	path := execPath("a-to-b", "uniprot", "pdb", 1, types.MappingResource{Name: "forward-only"}).Reverse()

	cold, err := exec.ExecutePath(context.Background(), path, []string{"x"}, "pdb", "uniprot", ExecuteOptions{})
	if err != nil {
		t.Fatalf("cold ExecutePath: %v", err)
	}
	warm, err := exec.ExecutePath(context.Background(), path, []string{"x"}, "pdb", "uniprot", ExecuteOptions{})
	if err != nil {
		t.Fatalf("warm ExecutePath: %v", err)
	}
	if client.callCount() != 1 {
		t.Fatalf("warm run hit the resource: %d calls", client.callCount())
	}
	if warm["x"].Direction != types.DirectionReverse {
		t.Fatalf("warm hit lost the traversal direction: got %s", warm["x"].Direction)
	}
	if !reflect.DeepEqual(cold["x"], warm["x"]) {
		t.Fatalf("warm outcome diverged from cold:\ncold %+v\nwarm %+v", cold["x"], warm["x"])
	}
}

func TestExecutePathCachesDefinitiveNoMatch(t *testing.T) {
	client := &fakeClient{name: "uniprot-api", table: map[string][]string{}}
	store := newMemStore()
	cache := NewCacheManager(testutil.Logger(t), store, time.Hour, time.Hour)
	exec := newExecutor(t, cache, client)
	path := execPath("direct", "uniprot", "pdb", 1, types.MappingResource{Name: "uniprot-api"})

	for i := 0; i < 2; i++ {
		out, err := exec.ExecutePath(context.Background(), path, []string{"P404"}, "uniprot", "pdb", ExecuteOptions{})
		if err != nil {
			t.Fatalf("ExecutePath: %v", err)
		}
		o := out["P404"]
		if o.Status != types.StatusUnresolved || o.Reason != types.ReasonNoMatch {
			t.Fatalf("want unresolved no_match, got %s/%s", o.Status, o.Reason)
		}
	}
	if client.callCount() != 1 {
		t.Fatalf("cached no-match re-attempted: %d calls", client.callCount())
	}
}

func TestExecutePathFailuresAreNotCached(t *testing.T) {
	store := newMemStore()
	cache := NewCacheManager(testutil.Logger(t), store, time.Hour, time.Hour)
	path := execPath("direct", "uniprot", "pdb", 1, types.MappingResource{Name: "uniprot-api"})

	bad := &fakeClient{name: "uniprot-api", failures: 1 << 20}
	out, err := newExecutor(t, cache, bad).ExecutePath(context.Background(), path, []string{"P12345"}, "uniprot", "pdb", ExecuteOptions{})
	if err != nil {
		t.Fatalf("ExecutePath: %v", err)
	}
	if out["P12345"].Status != types.StatusFailed {
		t.Fatalf("want failed, got %+v", out["P12345"])
	}

	good := &fakeClient{name: "uniprot-api", table: map[string][]string{"P12345": {"1ABC"}}}
	out, err = newExecutor(t, cache, good).ExecutePath(context.Background(), path, []string{"P12345"}, "uniprot", "pdb", ExecuteOptions{})
	if err != nil {
		t.Fatalf("ExecutePath after recovery: %v", err)
	}
	if !out["P12345"].Resolved() {
		t.Fatalf("transient failure was cached: %+v", out["P12345"])
	}
	if good.callCount() != 1 {
		t.Fatalf("recovered client not called: %d", good.callCount())
	}
}

func TestExecutePathValidation(t *testing.T) {
	exec := newExecutor(t, nil)
	if _, err := exec.ExecutePath(context.Background(), nil, []string{"a"}, "uniprot", "pdb", ExecuteOptions{}); !errors.Is(err, mapperr.ErrInvalidArgument) {
		t.Fatalf("nil path: want ErrInvalidArgument, got %v", err)
	}

	path := execPath("direct", "uniprot", "pdb", 1, types.MappingResource{Name: "ghost"})
	_, err := exec.ExecutePath(context.Background(), path, []string{"a"}, "uniprot", "pdb", ExecuteOptions{})
	var initErr *mapperr.ClientInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("unregistered resource: want ClientInitError, got %v", err)
	}
	if initErr.Resource != "ghost" {
		t.Fatalf("want resource ghost, got %q", initErr.Resource)
	}
}

func TestExecutePathDeduplicatesInput(t *testing.T) {
	client := &fakeClient{name: "uniprot-api", table: map[string][]string{"P12345": {"1ABC"}}}
	exec := newExecutor(t, nil, client)
	path := execPath("direct", "uniprot", "pdb", 1, types.MappingResource{Name: "uniprot-api"})

	out, err := exec.ExecutePath(context.Background(), path, []string{"P12345", "P12345", ""}, "uniprot", "pdb", ExecuteOptions{})
	if err != nil {
		t.Fatalf("ExecutePath: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("want 1 outcome after dedupe, got %d", len(out))
	}
}
