package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IDs are assigned in Go rather than by the database so the same schema
// migrates on postgres and on the sqlite databases the tests run against.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// MappingResource describes one external conversion system. Rows are loaded
// once per resolution session and treated as read-only.
type MappingResource struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string         `gorm:"column:name;not null;uniqueIndex" json:"name"`
	ClientType      string         `gorm:"column:client_type;not null" json:"client_type"`
	Config          datatypes.JSON `gorm:"column:config;type:jsonb" json:"config,omitempty"`
	SupportsReverse bool           `gorm:"column:supports_reverse;not null;default:false" json:"supports_reverse"`
	Active          bool           `gorm:"column:active;not null;default:true;index" json:"active"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (MappingResource) TableName() string { return "mapping_resource" }

func (r *MappingResource) BeforeCreate(*gorm.DB) error { assignID(&r.ID); return nil }

// MappingPath is an ordered chain of conversion steps from a source ontology
// type to a target ontology type. Lower priority wins.
type MappingPath struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string            `gorm:"column:name;not null" json:"name"`
	SourceType string            `gorm:"column:source_type;not null;index:idx_path_pair" json:"source_type"`
	TargetType string            `gorm:"column:target_type;not null;index:idx_path_pair" json:"target_type"`
	Priority   int               `gorm:"column:priority;not null;default:100" json:"priority"`
	Active     bool              `gorm:"column:active;not null;default:true;index" json:"active"`
	Steps      []MappingPathStep `gorm:"foreignKey:PathID" json:"steps"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null" json:"updated_at"`
}

func (MappingPath) TableName() string { return "mapping_path" }

func (p *MappingPath) BeforeCreate(*gorm.DB) error { assignID(&p.ID); return nil }

// MappingPathStep references the resource used at one position of a path.
// StepOrder is 1-based, contiguous and unique per path.
type MappingPathStep struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PathID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"path_id"`
	ResourceID uuid.UUID       `gorm:"type:uuid;not null" json:"resource_id"`
	Resource   MappingResource `gorm:"foreignKey:ResourceID" json:"resource"`
	StepOrder  int             `gorm:"column:step_order;not null" json:"step_order"`
	Config     datatypes.JSON  `gorm:"column:config;type:jsonb" json:"config,omitempty"`
}

func (MappingPathStep) TableName() string { return "mapping_path_step" }

func (s *MappingPathStep) BeforeCreate(*gorm.DB) error { assignID(&s.ID); return nil }

// OntologyPreference orders the secondary ontology types to try first during
// fallback resolution, per endpoint and optionally per endpoint pair.
type OntologyPreference struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Endpoint        string    `gorm:"column:endpoint;not null;index" json:"endpoint"`
	RelatedEndpoint string    `gorm:"column:related_endpoint;index" json:"related_endpoint,omitempty"`
	OntologyType    string    `gorm:"column:ontology_type;not null" json:"ontology_type"`
	Priority        int       `gorm:"column:priority;not null;default:100" json:"priority"`
}

func (OntologyPreference) TableName() string { return "ontology_preference" }

func (p *OntologyPreference) BeforeCreate(*gorm.DB) error { assignID(&p.ID); return nil }

// EndpointPropertyConfig declares which ontology types an endpoint carries
// and on which property. Exactly one row per endpoint is primary.
type EndpointPropertyConfig struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Endpoint     string    `gorm:"column:endpoint;not null;index" json:"endpoint"`
	OntologyType string    `gorm:"column:ontology_type;not null" json:"ontology_type"`
	PropertyName string    `gorm:"column:property_name;not null" json:"property_name"`
	IsPrimary    bool      `gorm:"column:is_primary;not null;default:false" json:"is_primary"`
	Priority     int       `gorm:"column:priority;not null;default:100" json:"priority"`
}

func (EndpointPropertyConfig) TableName() string { return "endpoint_property_config" }

func (c *EndpointPropertyConfig) BeforeCreate(*gorm.DB) error { assignID(&c.ID); return nil }

// Aggregation strategies for composite identifiers.
const (
	AggregateFirstMatch = "first_match"
	AggregateAllMatches = "all_matches"
)

// CompositePatternConfig detects identifiers that encode multiple entities in
// one string. Patterns for the same ontology type compete by priority; the
// first matching regex wins.
type CompositePatternConfig struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OntologyType          string    `gorm:"column:ontology_type;not null;index" json:"ontology_type"`
	Pattern               string    `gorm:"column:pattern;not null" json:"pattern"`
	Delimiters            string    `gorm:"column:delimiters;not null" json:"delimiters"`
	AggregationStrategy   string    `gorm:"column:aggregation_strategy;not null;default:'first_match'" json:"aggregation_strategy"`
	ComponentOntologyType string    `gorm:"column:component_ontology_type" json:"component_ontology_type,omitempty"`
	Priority              int       `gorm:"column:priority;not null;default:100" json:"priority"`
	Active                bool      `gorm:"column:active;not null;default:true;index" json:"active"`
}

func (CompositePatternConfig) TableName() string { return "composite_pattern_config" }

func (c *CompositePatternConfig) BeforeCreate(*gorm.DB) error { assignID(&c.ID); return nil }
