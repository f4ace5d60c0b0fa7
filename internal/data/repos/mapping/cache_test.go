package mapping_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ontoroute/ontoroute/internal/data/repos/mapping"
	"github.com/ontoroute/ontoroute/internal/data/repos/testutil"
	types "github.com/ontoroute/ontoroute/internal/domain"
)

func cacheEntry(identifier, source, target, status string, expiresAt *time.Time) *types.MappingCacheEntry {
	return &types.MappingCacheEntry{
		ID:             uuid.New(),
		Identifier:     identifier,
		SourceOntology: source,
		TargetOntology: target,
		Status:         status,
		Direction:      string(types.DirectionForward),
		TargetIDs:      []byte(`["1ABC"]`),
		Confidence:     1.0,
		HopCount:       1,
		CreatedAt:      time.Now(),
		ExpiresAt:      expiresAt,
	}
}

func TestCacheEntryUpsertAndGetBatch(t *testing.T) {
	ctx := context.Background()
	repo := mapping.NewCacheEntryRepo(testutil.DB(t), testutil.Logger(t))

	err := repo.Upsert(ctx, []*types.MappingCacheEntry{
		cacheEntry("P12345", "uniprot", "pdb", types.CacheStatusResolved, nil),
		cacheEntry("P67890", "uniprot", "pdb", types.CacheStatusUnresolved, nil),
		cacheEntry("P12345", "uniprot", "ensembl", types.CacheStatusResolved, nil),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	entries, err := repo.GetBatch(ctx, "uniprot", "pdb", []string{"P12345", "P67890", "P00000"})
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 entries for the pair, got %d", len(entries))
	}
	byID := map[string]*types.MappingCacheEntry{}
	for _, e := range entries {
		byID[e.Identifier] = e
	}
	if byID["P12345"].Status != types.CacheStatusResolved {
		t.Fatalf("P12345 status %q", byID["P12345"].Status)
	}
	if byID["P67890"].Status != types.CacheStatusUnresolved {
		t.Fatalf("P67890 status %q", byID["P67890"].Status)
	}
}

func TestCacheEntryUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	repo := mapping.NewCacheEntryRepo(testutil.DB(t), testutil.Logger(t))

	first := cacheEntry("P12345", "uniprot", "pdb", types.CacheStatusUnresolved, nil)
	if err := repo.Upsert(ctx, []*types.MappingCacheEntry{first}); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	second := cacheEntry("P12345", "uniprot", "pdb", types.CacheStatusResolved, nil)
	second.TargetIDs = []byte(`["2DEF"]`)
	second.Confidence = 0.8
	second.Direction = string(types.DirectionReverse)
	if err := repo.Upsert(ctx, []*types.MappingCacheEntry{second}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	entries, err := repo.GetBatch(ctx, "uniprot", "pdb", []string{"P12345"})
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("upsert duplicated the key: %d rows", len(entries))
	}
	e := entries[0]
	if e.Status != types.CacheStatusResolved || e.Confidence != 0.8 {
		t.Fatalf("old value survived the upsert: %+v", e)
	}
	if string(e.TargetIDs) != `["2DEF"]` {
		t.Fatalf("targets not replaced: %s", e.TargetIDs)
	}
	if e.Direction != string(types.DirectionReverse) {
		t.Fatalf("direction not replaced: %s", e.Direction)
	}
}

func TestCacheEntryDeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := mapping.NewCacheEntryRepo(testutil.DB(t), testutil.Logger(t))

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	err := repo.Upsert(ctx, []*types.MappingCacheEntry{
		cacheEntry("stale", "uniprot", "pdb", types.CacheStatusResolved, &past),
		cacheEntry("live", "uniprot", "pdb", types.CacheStatusResolved, &future),
		cacheEntry("forever", "uniprot", "pdb", types.CacheStatusResolved, nil),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	n, err := repo.DeleteExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("want 1 deleted, got %d", n)
	}

	entries, err := repo.GetBatch(ctx, "uniprot", "pdb", []string{"stale", "live", "forever"})
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 surviving entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Identifier == "stale" {
			t.Fatal("expired entry survived")
		}
	}
}
