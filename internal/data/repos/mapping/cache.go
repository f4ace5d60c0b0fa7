package mapping

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

// CacheEntryRepo is the SQL backend of the resolution cache. It deliberately
// exposes only a narrow key-value surface so the engine never depends on
// query composition; a Redis-backed store satisfies the same interface.
type CacheEntryRepo interface {
	GetBatch(ctx context.Context, sourceOntology, targetOntology string, identifiers []string) ([]*types.MappingCacheEntry, error)
	Upsert(ctx context.Context, entries []*types.MappingCacheEntry) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type cacheEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCacheEntryRepo(db *gorm.DB, baseLog *logger.Logger) CacheEntryRepo {
	return &cacheEntryRepo{
		db:  db,
		log: baseLog.With("repo", "CacheEntryRepo"),
	}
}

func (r *cacheEntryRepo) GetBatch(ctx context.Context, sourceOntology, targetOntology string, identifiers []string) ([]*types.MappingCacheEntry, error) {
	var out []*types.MappingCacheEntry
	if len(identifiers) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).
		Where("source_ontology = ? AND target_ontology = ? AND identifier IN ?", sourceOntology, targetOntology, identifiers).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert fully replaces any prior entry for the same key, provenance
// included. A write never depends on a previously cached value.
func (r *cacheEntryRepo) Upsert(ctx context.Context, entries []*types.MappingCacheEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now()
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "identifier"},
				{Name: "source_ontology"},
				{Name: "target_ontology"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "direction", "target_ids", "confidence", "hop_count",
				"provenance", "created_at", "expires_at",
			}),
		}).
		Create(&entries).Error
}

func (r *cacheEntryRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", before).
		Delete(&types.MappingCacheEntry{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
