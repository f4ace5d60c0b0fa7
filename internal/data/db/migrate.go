package db

import (
	"gorm.io/gorm"

	types "github.com/ontoroute/ontoroute/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Mapping configuration
		// =========================
		&types.MappingResource{},
		&types.MappingPath{},
		&types.MappingPathStep{},
		&types.OntologyPreference{},
		&types.EndpointPropertyConfig{},
		&types.CompositePatternConfig{},

		// =========================
		// Resolution cache
		// =========================
		&types.MappingCacheEntry{},
	)
}
