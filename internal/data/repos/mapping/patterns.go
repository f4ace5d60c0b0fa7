package mapping

import (
	"gorm.io/gorm"

	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/platform/dbctx"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

type CompositePatternRepo interface {
	// ListByOntologyType returns the active composite patterns for an
	// ontology type by ascending priority.
	ListByOntologyType(dbc dbctx.Context, ontologyType string) ([]*types.CompositePatternConfig, error)
	// ListActive returns every active pattern across ontology types.
	ListActive(dbc dbctx.Context) ([]*types.CompositePatternConfig, error)
	Create(dbc dbctx.Context, patterns []*types.CompositePatternConfig) error
}

type compositePatternRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompositePatternRepo(db *gorm.DB, baseLog *logger.Logger) CompositePatternRepo {
	return &compositePatternRepo{
		db:  db,
		log: baseLog.With("repo", "CompositePatternRepo"),
	}
}

func (r *compositePatternRepo) ListByOntologyType(dbc dbctx.Context, ontologyType string) ([]*types.CompositePatternConfig, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.CompositePatternConfig
	if ontologyType == "" {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("ontology_type = ? AND active = ?", ontologyType, true).
		Order("priority ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *compositePatternRepo) ListActive(dbc dbctx.Context) ([]*types.CompositePatternConfig, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.CompositePatternConfig
	err := transaction.WithContext(dbc.Ctx).
		Where("active = ?", true).
		Order("ontology_type ASC, priority ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *compositePatternRepo) Create(dbc dbctx.Context, patterns []*types.CompositePatternConfig) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(patterns) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(&patterns).Error
}
