package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Cached entry statuses. An unresolved entry is a cached "no match": it keeps
// repeated misses from hammering the external resource. Transient failures
// are never cached.
const (
	CacheStatusResolved   = "resolved"
	CacheStatusUnresolved = "unresolved"
)

// MappingCacheEntry is one resolved (or definitively unresolved) conversion,
// keyed by (identifier, source ontology, target ontology). Writes are
// full-replace upserts; at most one live entry exists per key.
type MappingCacheEntry struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Identifier     string         `gorm:"column:identifier;not null;uniqueIndex:idx_cache_key" json:"identifier"`
	SourceOntology string         `gorm:"column:source_ontology;not null;uniqueIndex:idx_cache_key" json:"source_ontology"`
	TargetOntology string         `gorm:"column:target_ontology;not null;uniqueIndex:idx_cache_key" json:"target_ontology"`
	Status         string         `gorm:"column:status;not null" json:"status"`
	Direction      string         `gorm:"column:direction;not null;default:'forward'" json:"direction"`
	TargetIDs      datatypes.JSON `gorm:"column:target_ids;type:jsonb" json:"target_ids"`
	Confidence     float64        `gorm:"column:confidence;not null;default:0" json:"confidence"`
	HopCount       int            `gorm:"column:hop_count;not null;default:0" json:"hop_count"`
	Provenance     datatypes.JSON `gorm:"column:provenance;type:jsonb" json:"provenance,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
	ExpiresAt      *time.Time     `gorm:"column:expires_at;index" json:"expires_at,omitempty"`
}

func (MappingCacheEntry) TableName() string { return "mapping_cache_entry" }

func (e *MappingCacheEntry) BeforeCreate(*gorm.DB) error { assignID(&e.ID); return nil }

// Live reports whether the entry is usable at the given instant, applying
// both the entry's own expiry and an optional caller-supplied cutoff: entries
// created before the cutoff count as misses even if the row still exists.
func (e *MappingCacheEntry) Live(now time.Time, notBefore *time.Time) bool {
	if e.ExpiresAt != nil && !e.ExpiresAt.After(now) {
		return false
	}
	if notBefore != nil && e.CreatedAt.Before(*notBefore) {
		return false
	}
	return true
}
