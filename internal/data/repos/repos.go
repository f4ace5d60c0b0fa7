package repos

import (
	"gorm.io/gorm"

	"github.com/ontoroute/ontoroute/internal/data/repos/mapping"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

type MappingResourceRepo = mapping.MappingResourceRepo
type MappingPathRepo = mapping.MappingPathRepo
type OntologyPreferenceRepo = mapping.OntologyPreferenceRepo
type CompositePatternRepo = mapping.CompositePatternRepo
type EndpointPropertyRepo = mapping.EndpointPropertyRepo
type CacheEntryRepo = mapping.CacheEntryRepo

func NewMappingResourceRepo(db *gorm.DB, baseLog *logger.Logger) MappingResourceRepo {
	return mapping.NewMappingResourceRepo(db, baseLog)
}
func NewMappingPathRepo(db *gorm.DB, baseLog *logger.Logger) MappingPathRepo {
	return mapping.NewMappingPathRepo(db, baseLog)
}
func NewOntologyPreferenceRepo(db *gorm.DB, baseLog *logger.Logger) OntologyPreferenceRepo {
	return mapping.NewOntologyPreferenceRepo(db, baseLog)
}
func NewCompositePatternRepo(db *gorm.DB, baseLog *logger.Logger) CompositePatternRepo {
	return mapping.NewCompositePatternRepo(db, baseLog)
}
func NewEndpointPropertyRepo(db *gorm.DB, baseLog *logger.Logger) EndpointPropertyRepo {
	return mapping.NewEndpointPropertyRepo(db, baseLog)
}
func NewCacheEntryRepo(db *gorm.DB, baseLog *logger.Logger) CacheEntryRepo {
	return mapping.NewCacheEntryRepo(db, baseLog)
}
