package services

import (
	"context"
	"encoding/json"
	"time"

	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

// CacheStore is the narrow key-value surface the cache manager needs. The
// SQL repo and the Redis client both satisfy it; the engine never depends on
// a particular storage engine.
type CacheStore interface {
	GetBatch(ctx context.Context, sourceOntology, targetOntology string, identifiers []string) ([]*types.MappingCacheEntry, error)
	Upsert(ctx context.Context, entries []*types.MappingCacheEntry) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// CacheManager is the read-through/write-through cache of resolved
// conversions. Store failures degrade to misses: the engine falls back to
// direct resource calls rather than failing the request.
type CacheManager interface {
	// CheckCache splits identifiers into hits and misses. A hit requires a
	// live entry: entries past their own expiry, or created before the
	// optional notBefore cutoff, are misses even if the row still exists.
	// Cached definitive no-matches count as hits so they are not
	// re-attempted.
	CheckCache(ctx context.Context, identifiers []string, sourceOntology, targetOntology string, notBefore *time.Time) (map[string]*types.Outcome, []string)
	// WriteCache upserts definitive outcomes. The newest resolution fully
	// replaces any cached value, provenance included. Transient failures
	// are never written.
	WriteCache(ctx context.Context, outcomes map[string]*types.Outcome, sourceOntology, targetOntology string)
	// DeleteExpired removes entries whose own expiry has passed.
	DeleteExpired(ctx context.Context) (int64, error)
}

type cacheManager struct {
	log   *logger.Logger
	store CacheStore
	ttl   time.Duration
	// noMatchTTL bounds how long a definitive "no match" suppresses
	// re-attempts; usually shorter than the hit TTL.
	noMatchTTL time.Duration
}

func NewCacheManager(baseLog *logger.Logger, store CacheStore, ttl, noMatchTTL time.Duration) CacheManager {
	return &cacheManager{
		log:        baseLog.With("service", "CacheManager"),
		store:      store,
		ttl:        ttl,
		noMatchTTL: noMatchTTL,
	}
}

func (m *cacheManager) CheckCache(ctx context.Context, identifiers []string, sourceOntology, targetOntology string, notBefore *time.Time) (map[string]*types.Outcome, []string) {
	hits := make(map[string]*types.Outcome)
	if len(identifiers) == 0 {
		return hits, nil
	}
	entries, err := m.store.GetBatch(ctx, sourceOntology, targetOntology, identifiers)
	if err != nil {
		m.log.Warn("cache read failed, treating all as misses", "error", err)
		return hits, append([]string(nil), identifiers...)
	}
	now := time.Now()
	byID := make(map[string]*types.MappingCacheEntry, len(entries))
	for _, e := range entries {
		if e != nil && e.Live(now, notBefore) {
			byID[e.Identifier] = e
		}
	}
	misses := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		e, ok := byID[id]
		if !ok {
			misses = append(misses, id)
			continue
		}
		out, err := entryToOutcome(e)
		if err != nil {
			m.log.Warn("undecodable cache entry, treating as miss", "identifier", id, "error", err)
			misses = append(misses, id)
			continue
		}
		hits[id] = out
	}
	return hits, misses
}

func (m *cacheManager) WriteCache(ctx context.Context, outcomes map[string]*types.Outcome, sourceOntology, targetOntology string) {
	if len(outcomes) == 0 {
		return
	}
	now := time.Now()
	entries := make([]*types.MappingCacheEntry, 0, len(outcomes))
	for id, out := range outcomes {
		if out == nil || !cacheable(out) {
			continue
		}
		e, err := outcomeToEntry(id, out, sourceOntology, targetOntology, now)
		if err != nil {
			m.log.Warn("failed to encode outcome for cache", "identifier", id, "error", err)
			continue
		}
		ttl := m.ttl
		if e.Status == types.CacheStatusUnresolved {
			ttl = m.noMatchTTL
		}
		if ttl > 0 {
			exp := now.Add(ttl)
			e.ExpiresAt = &exp
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return
	}
	if err := m.store.Upsert(ctx, entries); err != nil {
		m.log.Warn("cache write failed", "entries", len(entries), "error", err)
	}
}

func (m *cacheManager) DeleteExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, time.Now())
}

// cacheable reports whether an outcome is definitive. Resolved results and
// confirmed no-matches are; transient failures are not.
func cacheable(out *types.Outcome) bool {
	switch out.Status {
	case types.StatusResolved:
		return true
	case types.StatusUnresolved:
		return out.Reason == types.ReasonNoMatch
	default:
		return false
	}
}

type cachedProvenance struct {
	Chain    []types.ProvenanceRecord `json:"chain,omitempty"`
	Filtered []types.FilteredResult   `json:"filtered,omitempty"`
}

func outcomeToEntry(id string, out *types.Outcome, sourceOntology, targetOntology string, now time.Time) (*types.MappingCacheEntry, error) {
	targets, err := json.Marshal(out.TargetIDs)
	if err != nil {
		return nil, err
	}
	prov, err := json.Marshal(cachedProvenance{Chain: out.Provenance, Filtered: out.Filtered})
	if err != nil {
		return nil, err
	}
	status := types.CacheStatusResolved
	if out.Status != types.StatusResolved {
		status = types.CacheStatusUnresolved
	}
	direction := out.Direction
	if direction == "" {
		direction = types.DirectionForward
	}
	return &types.MappingCacheEntry{
		Identifier:     id,
		SourceOntology: sourceOntology,
		TargetOntology: targetOntology,
		Status:         status,
		Direction:      string(direction),
		TargetIDs:      targets,
		Confidence:     out.Confidence,
		HopCount:       out.HopCount,
		Provenance:     prov,
		CreatedAt:      now,
	}, nil
}

func entryToOutcome(e *types.MappingCacheEntry) (*types.Outcome, error) {
	var targets []string
	if len(e.TargetIDs) > 0 {
		if err := json.Unmarshal(e.TargetIDs, &targets); err != nil {
			return nil, err
		}
	}
	var prov cachedProvenance
	if len(e.Provenance) > 0 {
		if err := json.Unmarshal(e.Provenance, &prov); err != nil {
			return nil, err
		}
	}
	direction := types.MappingDirection(e.Direction)
	if direction == "" {
		direction = types.DirectionForward
	}
	out := &types.Outcome{
		Identifier: e.Identifier,
		TargetIDs:  targets,
		Confidence: e.Confidence,
		HopCount:   e.HopCount,
		Direction:  direction,
		Provenance: prov.Chain,
		Filtered:   prov.Filtered,
	}
	if e.Status == types.CacheStatusResolved {
		out.Status = types.StatusResolved
	} else {
		out.Status = types.StatusUnresolved
		out.Reason = types.ReasonNoMatch
	}
	return out, nil
}
