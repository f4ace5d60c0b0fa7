package services

import (
	"context"
	"errors"
	"sort"

	"github.com/ontoroute/ontoroute/internal/data/repos"
	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/pkg/mapperr"
	"github.com/ontoroute/ontoroute/internal/platform/dbctx"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

// IndirectMappingPenalty discounts confidence for results reached through a
// derived primary identifier rather than the direct path.
const IndirectMappingPenalty = 0.9

// DerivedID records one derived primary identifier and its origin.
type DerivedID struct {
	OriginalID        string  `json:"original_id"`
	DerivedID         string  `json:"derived_id"`
	SecondaryOntology string  `json:"secondary_ontology"`
	PathID            string  `json:"path_id"`
	PathName          string  `json:"path_name"`
	Confidence        float64 `json:"confidence"`
	HopCount          int     `json:"hop_count"`
}

// IterativeMappingInput parameterizes one fallback pass.
type IterativeMappingInput struct {
	UnmappedIDs           []string
	SourceEndpoint        string
	TargetEndpoint        string
	PrimarySourceOntology string
	PrimaryTargetOntology string
	// PrimaryPath may be nil, in which case the re-mapping phase is skipped
	// entirely and only derivations are returned.
	PrimaryPath  *types.ExecutablePath
	AllowReverse bool
	Options      ExecuteOptions
}

// IterativeMappingResult holds the fallback pass products: identifiers
// resolved in this pass, the set of resolved ids, and every derived primary
// id record (resolved or not) for caller-side diagnostics.
type IterativeMappingResult struct {
	Successful   map[string]*types.Outcome
	ProcessedIDs []string
	Derived      map[string][]DerivedID
}

// IterativeMappingService orchestrates multi-round fallback resolution for
// identifiers the primary path could not resolve: derive candidate primary
// identifiers through the endpoint's secondary ontologies, then retry the
// primary path on those.
type IterativeMappingService interface {
	PerformIterativeMapping(ctx context.Context, in IterativeMappingInput) (*IterativeMappingResult, error)
}

type iterativeMappingService struct {
	log         *logger.Logger
	endpoints   repos.EndpointPropertyRepo
	preferences repos.OntologyPreferenceRepo
	finder      PathFinder
	executor    PathExecutor
	cache       CacheManager
}

func NewIterativeMappingService(
	baseLog *logger.Logger,
	endpoints repos.EndpointPropertyRepo,
	preferences repos.OntologyPreferenceRepo,
	finder PathFinder,
	executor PathExecutor,
	cache CacheManager,
) IterativeMappingService {
	return &iterativeMappingService{
		log:         baseLog.With("service", "IterativeMappingService"),
		endpoints:   endpoints,
		preferences: preferences,
		finder:      finder,
		executor:    executor,
		cache:       cache,
	}
}

func (s *iterativeMappingService) PerformIterativeMapping(ctx context.Context, in IterativeMappingInput) (*IterativeMappingResult, error) {
	res := &IterativeMappingResult{
		Successful: map[string]*types.Outcome{},
		Derived:    map[string][]DerivedID{},
	}
	if len(in.UnmappedIDs) == 0 {
		return res, nil
	}
	if in.SourceEndpoint == "" || in.PrimarySourceOntology == "" || in.PrimaryTargetOntology == "" {
		return nil, mapperr.ErrInvalidArgument
	}
	unmapped := dedupe(in.UnmappedIDs)

	secondaries, err := s.orderedSecondaries(ctx, in)
	if err != nil {
		return nil, err
	}

	// Phase 1: derive candidate primary identifiers, highest-priority
	// secondary ontology first. Once every unmapped id has a derivation
	// there is nothing left to gain from lower-priority ontologies.
	for _, secondary := range secondaries {
		pending := make([]string, 0, len(unmapped))
		for _, id := range unmapped {
			if len(res.Derived[id]) == 0 {
				pending = append(pending, id)
			}
		}
		if len(pending) == 0 {
			break
		}

		path, err := s.finder.FindBestPath(ctx, secondary, in.PrimarySourceOntology, types.DirectionForward, in.AllowReverse)
		if err != nil {
			if errors.Is(err, mapperr.ErrPathNotFound) {
				continue
			}
			return nil, err
		}

		outcomes, err := s.executor.ExecutePath(ctx, path, pending, secondary, in.PrimarySourceOntology, in.Options)
		if err != nil {
			var initErr *mapperr.ClientInitError
			if errors.As(err, &initErr) {
				// This secondary's path is unusable; others may still work.
				s.log.Warn("skipping secondary ontology, client init failed",
					"secondary", secondary, "error", err)
				continue
			}
			return nil, err
		}
		for _, id := range pending {
			o := outcomes[id]
			if o == nil || !o.Resolved() {
				continue
			}
			for _, derived := range o.TargetIDs {
				res.Derived[id] = append(res.Derived[id], DerivedID{
					OriginalID:        id,
					DerivedID:         derived,
					SecondaryOntology: secondary,
					PathID:            path.ID.String(),
					PathName:          path.Name,
					Confidence:        o.Confidence,
					HopCount:          o.HopCount,
				})
			}
		}
	}

	if in.PrimaryPath == nil {
		return res, nil
	}

	// Phase 2: retry the primary path on each derived id, strictly in the
	// order it was derived. First non-empty result wins; remaining derived
	// ids for that original are not attempted.
	for _, id := range unmapped {
		for _, d := range res.Derived[id] {
			outcome, err := s.resolveDerived(ctx, in, d)
			if err != nil {
				return nil, err
			}
			if outcome == nil || !outcome.Resolved() {
				continue
			}
			final := &types.Outcome{
				Identifier:     id,
				Status:         types.StatusResolved,
				TargetIDs:      append([]string(nil), outcome.TargetIDs...),
				Confidence:     outcome.Confidence * IndirectMappingPenalty,
				HopCount:       d.HopCount + 1,
				Direction:      in.PrimaryPath.Direction(),
				DerivedPath:    true,
				IntermediateID: d.DerivedID,
				DerivedStep: &types.DerivedStepProvenance{
					SecondaryOntology: d.SecondaryOntology,
					PathID:            d.PathID,
					PathName:          d.PathName,
					Confidence:        d.Confidence,
				},
			}
			final.Provenance = append(final.Provenance, types.ProvenanceRecord{
				PathID:      d.PathID,
				PathName:    d.PathName,
				DerivedFrom: id,
			})
			final.Provenance = append(final.Provenance, outcome.Provenance...)
			res.Successful[id] = final
			res.ProcessedIDs = append(res.ProcessedIDs, id)
			break
		}
	}
	return res, nil
}

// resolveDerived checks the cache for the derived id before executing the
// primary path on it.
func (s *iterativeMappingService) resolveDerived(ctx context.Context, in IterativeMappingInput, d DerivedID) (*types.Outcome, error) {
	if s.cache != nil && !in.Options.SkipCache {
		hits, _ := s.cache.CheckCache(ctx, []string{d.DerivedID}, in.PrimarySourceOntology, in.PrimaryTargetOntology, in.Options.CacheNotBefore)
		if hit := hits[d.DerivedID]; hit != nil {
			return hit, nil
		}
	}
	outcomes, err := s.executor.ExecutePath(ctx, in.PrimaryPath, []string{d.DerivedID}, in.PrimarySourceOntology, in.PrimaryTargetOntology, in.Options)
	if err != nil {
		return nil, err
	}
	return outcomes[d.DerivedID], nil
}

// orderedSecondaries lists the endpoint's secondary ontology types ordered
// by its ontology preferences; unlisted types sort last in declaration
// order.
func (s *iterativeMappingService) orderedSecondaries(ctx context.Context, in IterativeMappingInput) ([]string, error) {
	dbc := dbctx.Context{Ctx: ctx}
	props, err := s.endpoints.ListSecondary(dbc, in.SourceEndpoint)
	if err != nil {
		return nil, err
	}
	prefs, err := s.preferences.ListByEndpoint(dbc, in.SourceEndpoint, in.TargetEndpoint)
	if err != nil {
		return nil, err
	}
	rank := make(map[string]int, len(prefs))
	for _, p := range prefs {
		if _, ok := rank[p.OntologyType]; !ok {
			rank[p.OntologyType] = p.Priority
		}
	}

	out := make([]string, 0, len(props))
	seen := map[string]bool{}
	for _, p := range props {
		if p.OntologyType == "" || p.OntologyType == in.PrimarySourceOntology || seen[p.OntologyType] {
			continue
		}
		seen[p.OntologyType] = true
		out = append(out, p.OntologyType)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, iOK := rank[out[i]]
		rj, jOK := rank[out[j]]
		switch {
		case iOK && jOK:
			return ri < rj
		case iOK:
			return true
		case jOK:
			return false
		default:
			return false
		}
	})
	return out, nil
}
