package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/ontoroute/ontoroute/internal/domain"
)

func SeedResource(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.MappingResource {
	tb.Helper()
	r := &types.MappingResource{
		ID:         uuid.New(),
		Name:       name,
		ClientType: "static",
		Active:     true,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed resource: %v", err)
	}
	return r
}

func SeedPath(tb testing.TB, ctx context.Context, tx *gorm.DB, name, sourceType, targetType string, priority int, resources ...*types.MappingResource) *types.MappingPath {
	tb.Helper()
	p := &types.MappingPath{
		ID:         uuid.New(),
		Name:       name,
		SourceType: sourceType,
		TargetType: targetType,
		Priority:   priority,
		Active:     true,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed path: %v", err)
	}
	for i, res := range resources {
		s := &types.MappingPathStep{
			ID:         uuid.New(),
			PathID:     p.ID,
			ResourceID: res.ID,
			StepOrder:  i + 1,
		}
		if err := tx.WithContext(ctx).Create(s).Error; err != nil {
			tb.Fatalf("seed step: %v", err)
		}
	}
	return p
}

func SeedPreference(tb testing.TB, ctx context.Context, tx *gorm.DB, endpoint, ontologyType string, priority int) *types.OntologyPreference {
	tb.Helper()
	pref := &types.OntologyPreference{
		ID:           uuid.New(),
		Endpoint:     endpoint,
		OntologyType: ontologyType,
		Priority:     priority,
	}
	if err := tx.WithContext(ctx).Create(pref).Error; err != nil {
		tb.Fatalf("seed preference: %v", err)
	}
	return pref
}

func SeedPattern(tb testing.TB, ctx context.Context, tx *gorm.DB, ontologyType, pattern, delimiters, strategy string, priority int) *types.CompositePatternConfig {
	tb.Helper()
	cp := &types.CompositePatternConfig{
		ID:                  uuid.New(),
		OntologyType:        ontologyType,
		Pattern:             pattern,
		Delimiters:          delimiters,
		AggregationStrategy: strategy,
		Priority:            priority,
		Active:              true,
	}
	if err := tx.WithContext(ctx).Create(cp).Error; err != nil {
		tb.Fatalf("seed pattern: %v", err)
	}
	return cp
}
