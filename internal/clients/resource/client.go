package resource

import (
	"context"

	"gorm.io/datatypes"
)

// MappedValue is one identifier's conversion result from a resource call.
// TargetIDs nil means the resource definitively knows no mapping.
type MappedValue struct {
	TargetIDs  []string          `json:"target_ids"`
	Confidence float64           `json:"confidence"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Client is the capability every conversion resource implements. A client
// instance is shared, reusable and safe for concurrent calls from multiple
// batches. The returned map carries one entry per element of the requested
// batch that the resource recognized; absent identifiers are unmapped.
type Client interface {
	Name() string
	MapIdentifiers(ctx context.Context, identifiers []string, config datatypes.JSON) (map[string]MappedValue, error)
}

// ReverseError is a per-identifier failure from a specialized reverse call.
type ReverseError struct {
	InputID string `json:"input_id"`
	Reason  string `json:"reason"`
}

// ReverseResult is the outcome of a specialized reverse lookup.
type ReverseResult struct {
	InputToPrimary map[string][]string `json:"input_to_primary"`
	Errors         []ReverseError      `json:"errors,omitempty"`
}

// ReverseMapper is the optional specialized reverse capability. Resources
// that declare supports_reverse in configuration are expected to satisfy it;
// for all others the executor falls back to forward-map inversion.
type ReverseMapper interface {
	ReverseMapIdentifiers(ctx context.Context, identifiers []string) (ReverseResult, error)
}
