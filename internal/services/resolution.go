package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/pkg/mapperr"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

// ResolveOptions tune one resolution request.
type ResolveOptions struct {
	PreferredDirection types.MappingDirection
	AllowReverse       bool
	Execute            ExecuteOptions
}

// ResolveRequest is a batch of source identifiers to resolve into the target
// ontology.
type ResolveRequest struct {
	Identifiers    []string
	SourceEndpoint string
	TargetEndpoint string
	SourceOntology string
	TargetOntology string
	Options        ResolveOptions
}

// ResolveResult always carries one outcome per requested identifier; absence
// of a mapping is expressed through the outcome's status and reason, never a
// missing key.
type ResolveResult struct {
	Mappings     map[string]*types.Outcome `json:"mappings"`
	ProcessedIDs []string                  `json:"processed_ids"`
	Derived      map[string][]DerivedID    `json:"derived_primary_ids"`
}

// ResolutionService is the engine's single entry point for the orchestration
// layer: composite pre-split, primary path execution through the cache,
// composite re-aggregation, then iterative fallback for the leftovers.
type ResolutionService interface {
	Resolve(ctx context.Context, req ResolveRequest) (*ResolveResult, error)
}

type resolutionService struct {
	log       *logger.Logger
	finder    PathFinder
	executor  PathExecutor
	iterative IterativeMappingService
	composite CompositeHandler
	tracer    trace.Tracer
}

func NewResolutionService(
	baseLog *logger.Logger,
	finder PathFinder,
	executor PathExecutor,
	iterative IterativeMappingService,
	composite CompositeHandler,
) ResolutionService {
	return &resolutionService{
		log:       baseLog.With("service", "ResolutionService"),
		finder:    finder,
		executor:  executor,
		iterative: iterative,
		composite: composite,
		tracer:    otel.Tracer("ontoroute/resolution"),
	}
}

func (s *resolutionService) Resolve(ctx context.Context, req ResolveRequest) (*ResolveResult, error) {
	if len(req.Identifiers) == 0 || req.SourceOntology == "" || req.TargetOntology == "" {
		return nil, mapperr.ErrInvalidArgument
	}
	ctx, span := s.tracer.Start(ctx, "resolve", trace.WithAttributes(
		attribute.Int("identifiers", len(req.Identifiers)),
		attribute.String("source_ontology", req.SourceOntology),
		attribute.String("target_ontology", req.TargetOntology),
	))
	defer span.End()

	ids := dedupe(req.Identifiers)

	// Composite pre-processing: split every identifier into its components
	// and group components by their effective source ontology (a pattern
	// may declare that its components live in a different namespace).
	preprocessed := make(map[string][]string, len(ids))
	componentOntology := map[string]string{}
	componentOrder := map[string][]string{}
	for _, id := range ids {
		composite, components, pattern := s.composite.SplitComposite(id, req.SourceOntology)
		preprocessed[id] = components
		ontology := req.SourceOntology
		if composite && pattern != nil && pattern.ComponentOntologyType != "" {
			ontology = pattern.ComponentOntologyType
		}
		for _, comp := range components {
			if _, ok := componentOntology[comp]; !ok {
				componentOntology[comp] = ontology
				componentOrder[ontology] = append(componentOrder[ontology], comp)
			}
		}
	}

	primaryPath, err := s.finder.FindBestPath(ctx, req.SourceOntology, req.TargetOntology, req.Options.PreferredDirection, req.Options.AllowReverse)
	if err != nil && !errors.Is(err, mapperr.ErrPathNotFound) {
		return nil, err
	}

	componentResults := make(map[string]*types.Outcome)
	for ontology, components := range componentOrder {
		path := primaryPath
		if ontology != req.SourceOntology {
			path, err = s.finder.FindBestPath(ctx, ontology, req.TargetOntology, req.Options.PreferredDirection, req.Options.AllowReverse)
			if err != nil && !errors.Is(err, mapperr.ErrPathNotFound) {
				return nil, err
			}
		}
		if path == nil {
			for _, comp := range components {
				componentResults[comp] = &types.Outcome{
					Identifier: comp,
					Status:     types.StatusUnresolved,
					Reason:     types.ReasonNoPath,
					TargetIDs:  []string{},
					Direction:  types.DirectionForward,
				}
			}
			continue
		}
		outcomes, err := s.executor.ExecutePath(ctx, path, components, ontology, req.TargetOntology, req.Options.Execute)
		if err != nil {
			return nil, err
		}
		for comp, o := range outcomes {
			componentResults[comp] = o
		}
	}

	mappings := s.composite.AggregateResults(ids, componentResults, preprocessed, req.SourceOntology)

	unresolved := make([]string, 0, len(ids))
	for _, id := range ids {
		if o := mappings[id]; o == nil || !o.Resolved() {
			unresolved = append(unresolved, id)
		}
	}

	result := &ResolveResult{
		Mappings: mappings,
		Derived:  map[string][]DerivedID{},
	}
	if len(unresolved) > 0 && req.SourceEndpoint != "" {
		iter, err := s.iterative.PerformIterativeMapping(ctx, IterativeMappingInput{
			UnmappedIDs:           unresolved,
			SourceEndpoint:        req.SourceEndpoint,
			TargetEndpoint:        req.TargetEndpoint,
			PrimarySourceOntology: req.SourceOntology,
			PrimaryTargetOntology: req.TargetOntology,
			PrimaryPath:           primaryPath,
			AllowReverse:          req.Options.AllowReverse,
			Options:               req.Options.Execute,
		})
		if err != nil {
			return nil, err
		}
		for id, o := range iter.Successful {
			result.Mappings[id] = o
		}
		result.Derived = iter.Derived
	}

	for _, id := range ids {
		if result.Mappings[id] == nil {
			result.Mappings[id] = &types.Outcome{
				Identifier: id,
				Status:     types.StatusUnresolved,
				Reason:     types.ReasonNoMatch,
				TargetIDs:  []string{},
				Direction:  types.DirectionForward,
			}
		}
		if result.Mappings[id].Resolved() {
			result.ProcessedIDs = append(result.ProcessedIDs, id)
		}
	}

	span.SetAttributes(attribute.Int("resolved", len(result.ProcessedIDs)))
	s.log.Info("resolution complete",
		"requested", len(ids),
		"resolved", len(result.ProcessedIDs),
		"derived", len(result.Derived),
	)
	return result, nil
}
