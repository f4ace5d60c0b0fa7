package services

import (
	"context"
	"sort"

	"github.com/ontoroute/ontoroute/internal/data/repos"
	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/pkg/mapperr"
	"github.com/ontoroute/ontoroute/internal/platform/dbctx"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

// PathFinder selects the best available mapping path between two ontology
// types. Selection is deterministic: identical configuration and inputs
// always yield the same path.
type PathFinder interface {
	// FindBestPath returns the preferred path for (sourceType, targetType).
	// When allowReverse is set, paths configured for the opposite pair are
	// considered as reversed candidates. A nil path with ErrPathNotFound
	// means no path exists in either direction; callers treat that as a
	// normal "unmapped" outcome, not a failure.
	FindBestPath(ctx context.Context, sourceType, targetType string, preferredDirection types.MappingDirection, allowReverse bool) (*types.ExecutablePath, error)
}

type pathFinder struct {
	log   *logger.Logger
	paths repos.MappingPathRepo
}

func NewPathFinder(baseLog *logger.Logger, paths repos.MappingPathRepo) PathFinder {
	return &pathFinder{
		log:   baseLog.With("service", "PathFinder"),
		paths: paths,
	}
}

func (f *pathFinder) FindBestPath(ctx context.Context, sourceType, targetType string, preferredDirection types.MappingDirection, allowReverse bool) (*types.ExecutablePath, error) {
	if sourceType == "" || targetType == "" {
		return nil, mapperr.ErrInvalidArgument
	}

	forward, err := f.candidates(ctx, sourceType, targetType, false)
	if err != nil {
		return nil, err
	}
	var reversed []*types.ExecutablePath
	if allowReverse {
		reversed, err = f.candidates(ctx, targetType, sourceType, true)
		if err != nil {
			return nil, err
		}
	}

	first, second := forward, reversed
	if preferredDirection == types.DirectionReverse {
		first, second = reversed, forward
	}
	if len(first) > 0 {
		return first[0], nil
	}
	if len(second) > 0 {
		return second[0], nil
	}
	f.log.Debug("no mapping path found",
		"source_type", sourceType,
		"target_type", targetType,
		"allow_reverse", allowReverse,
	)
	return nil, mapperr.ErrPathNotFound
}

func (f *pathFinder) candidates(ctx context.Context, sourceType, targetType string, reverse bool) ([]*types.ExecutablePath, error) {
	rows, err := f.paths.ListPaths(dbctx.Context{Ctx: ctx}, sourceType, targetType)
	if err != nil {
		return nil, err
	}
	out := make([]*types.ExecutablePath, 0, len(rows))
	for _, row := range rows {
		if len(row.Steps) == 0 {
			f.log.Warn("skipping path with no steps", "path", row.Name)
			continue
		}
		p := types.NewExecutablePath(row)
		if reverse {
			p = p.Reverse()
		}
		out = append(out, p)
	}
	rankPaths(out)
	return out, nil
}

// rankPaths orders candidates by explicit priority, then fewer steps, then
// path id as a stable final tie-break.
func rankPaths(paths []*types.ExecutablePath) {
	sort.Slice(paths, func(i, j int) bool {
		a, b := paths[i], paths[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.StepCount != b.StepCount {
			return a.StepCount < b.StepCount
		}
		return a.ID.String() < b.ID.String()
	})
}
