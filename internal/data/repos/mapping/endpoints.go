package mapping

import (
	"gorm.io/gorm"

	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/platform/dbctx"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

type EndpointPropertyRepo interface {
	// ListSecondary returns the endpoint's declared ontology/property pairs
	// excluding the primary one, by ascending priority.
	ListSecondary(dbc dbctx.Context, endpoint string) ([]*types.EndpointPropertyConfig, error)
	GetPrimary(dbc dbctx.Context, endpoint string) (*types.EndpointPropertyConfig, error)
	Create(dbc dbctx.Context, props []*types.EndpointPropertyConfig) error
}

type endpointPropertyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEndpointPropertyRepo(db *gorm.DB, baseLog *logger.Logger) EndpointPropertyRepo {
	return &endpointPropertyRepo{
		db:  db,
		log: baseLog.With("repo", "EndpointPropertyRepo"),
	}
}

func (r *endpointPropertyRepo) ListSecondary(dbc dbctx.Context, endpoint string) ([]*types.EndpointPropertyConfig, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.EndpointPropertyConfig
	if endpoint == "" {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("endpoint = ? AND is_primary = ?", endpoint, false).
		Order("priority ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *endpointPropertyRepo) GetPrimary(dbc dbctx.Context, endpoint string) (*types.EndpointPropertyConfig, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if endpoint == "" {
		return nil, nil
	}
	var prop types.EndpointPropertyConfig
	err := transaction.WithContext(dbc.Ctx).
		Where("endpoint = ? AND is_primary = ?", endpoint, true).
		Limit(1).
		Find(&prop).Error
	if err != nil {
		return nil, err
	}
	if prop.Endpoint == "" {
		return nil, nil
	}
	return &prop, nil
}

func (r *endpointPropertyRepo) Create(dbc dbctx.Context, props []*types.EndpointPropertyConfig) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(props) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(&props).Error
}
