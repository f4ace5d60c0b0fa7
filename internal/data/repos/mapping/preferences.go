package mapping

import (
	"gorm.io/gorm"

	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/platform/dbctx"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

type OntologyPreferenceRepo interface {
	// ListByEndpoint returns the endpoint's ontology preferences by
	// ascending priority. When relatedEndpoint is non-empty, pair-specific
	// rows are returned if any exist, otherwise the endpoint-wide rows.
	ListByEndpoint(dbc dbctx.Context, endpoint, relatedEndpoint string) ([]*types.OntologyPreference, error)
	Create(dbc dbctx.Context, prefs []*types.OntologyPreference) error
}

type ontologyPreferenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOntologyPreferenceRepo(db *gorm.DB, baseLog *logger.Logger) OntologyPreferenceRepo {
	return &ontologyPreferenceRepo{
		db:  db,
		log: baseLog.With("repo", "OntologyPreferenceRepo"),
	}
}

func (r *ontologyPreferenceRepo) ListByEndpoint(dbc dbctx.Context, endpoint, relatedEndpoint string) ([]*types.OntologyPreference, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.OntologyPreference
	if endpoint == "" {
		return out, nil
	}
	if relatedEndpoint != "" {
		err := transaction.WithContext(dbc.Ctx).
			Where("endpoint = ? AND related_endpoint = ?", endpoint, relatedEndpoint).
			Order("priority ASC").
			Find(&out).Error
		if err != nil {
			return nil, err
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("endpoint = ? AND (related_endpoint = '' OR related_endpoint IS NULL)", endpoint).
		Order("priority ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ontologyPreferenceRepo) Create(dbc dbctx.Context, prefs []*types.OntologyPreference) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(prefs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(&prefs).Error
}
