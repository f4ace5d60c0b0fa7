package mapping

import (
	"gorm.io/gorm"

	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/platform/dbctx"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

type MappingResourceRepo interface {
	ListActive(dbc dbctx.Context) ([]*types.MappingResource, error)
	Create(dbc dbctx.Context, resources []*types.MappingResource) error
}

type mappingResourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMappingResourceRepo(db *gorm.DB, baseLog *logger.Logger) MappingResourceRepo {
	return &mappingResourceRepo{
		db:  db,
		log: baseLog.With("repo", "MappingResourceRepo"),
	}
}

func (r *mappingResourceRepo) ListActive(dbc dbctx.Context) ([]*types.MappingResource, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.MappingResource
	err := transaction.WithContext(dbc.Ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mappingResourceRepo) Create(dbc dbctx.Context, resources []*types.MappingResource) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(resources) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(&resources).Error
}
