package mapping

import (
	"gorm.io/gorm"

	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/platform/dbctx"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

type MappingPathRepo interface {
	// ListPaths returns the active paths for a (source, target) ontology
	// pair, steps and resources preloaded, ordered by priority then name.
	ListPaths(dbc dbctx.Context, sourceType, targetType string) ([]*types.MappingPath, error)
	Create(dbc dbctx.Context, paths []*types.MappingPath) error
}

type mappingPathRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMappingPathRepo(db *gorm.DB, baseLog *logger.Logger) MappingPathRepo {
	return &mappingPathRepo{
		db:  db,
		log: baseLog.With("repo", "MappingPathRepo"),
	}
}

func (r *mappingPathRepo) ListPaths(dbc dbctx.Context, sourceType, targetType string) ([]*types.MappingPath, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.MappingPath
	if sourceType == "" || targetType == "" {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Preload("Steps").
		Preload("Steps.Resource").
		Where("source_type = ? AND target_type = ? AND active = ?", sourceType, targetType, true).
		Order("priority ASC, name ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mappingPathRepo) Create(dbc dbctx.Context, paths []*types.MappingPath) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(paths) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(&paths).Error
}
