package domain

// OutcomeStatus tags every per-identifier result. Per-identifier failures are
// represented as data, never as propagated errors: a partial-failure batch
// still returns results for the identifiers that succeeded.
type OutcomeStatus string

const (
	StatusResolved   OutcomeStatus = "resolved"
	StatusUnresolved OutcomeStatus = "unresolved"
	StatusFailed     OutcomeStatus = "failed"
)

// Unresolved/failed reason codes.
const (
	ReasonNoMatch            = "no_match"
	ReasonNoPath             = "no_path_found"
	ReasonHopLimit           = "hop_limit_exceeded"
	ReasonBelowMinConfidence = "below_min_confidence"
	ReasonClientError        = "client_error"
)

// MappingDirection describes how a path was traversed.
type MappingDirection string

const (
	DirectionForward MappingDirection = "forward"
	DirectionReverse MappingDirection = "reverse"
)

// ProvenanceRecord is one hop of the chain that produced an outcome.
type ProvenanceRecord struct {
	PathID       string `json:"path_id"`
	PathName     string `json:"path_name"`
	ResourceName string `json:"resource_name"`
	DerivedFrom  string `json:"derived_from,omitempty"`
}

// DerivedStepProvenance records how a derived primary identifier was
// obtained during iterative fallback: which secondary ontology and path
// produced it, and at what confidence.
type DerivedStepProvenance struct {
	SecondaryOntology string  `json:"secondary_ontology"`
	PathID            string  `json:"path_id"`
	PathName          string  `json:"path_name"`
	Confidence        float64 `json:"confidence"`
}

// FilteredResult is a target that resolved below the confidence floor. It is
// excluded from TargetIDs but retained so callers can see it was attempted.
type FilteredResult struct {
	TargetID   string  `json:"target_id"`
	Confidence float64 `json:"confidence"`
}

// Outcome is the per-identifier result of a resolution request.
type Outcome struct {
	Identifier     string                 `json:"identifier"`
	Status         OutcomeStatus          `json:"status"`
	Reason         string                 `json:"reason,omitempty"`
	TargetIDs      []string               `json:"target_ids"`
	Confidence     float64                `json:"confidence"`
	HopCount       int                    `json:"hop_count"`
	Direction      MappingDirection       `json:"direction"`
	DerivedPath    bool                   `json:"derived_path"`
	IntermediateID string                 `json:"intermediate_id,omitempty"`
	Provenance     []ProvenanceRecord     `json:"provenance,omitempty"`
	Filtered       []FilteredResult       `json:"filtered,omitempty"`
	DerivedStep    *DerivedStepProvenance `json:"derived_step_provenance,omitempty"`
}

// Resolved reports whether the outcome carries at least one target.
func (o *Outcome) Resolved() bool {
	return o != nil && o.Status == StatusResolved && len(o.TargetIDs) > 0
}

// Clone returns a deep copy so callers can hold outcomes without aliasing
// engine-internal slices.
func (o *Outcome) Clone() *Outcome {
	if o == nil {
		return nil
	}
	out := *o
	out.TargetIDs = append([]string(nil), o.TargetIDs...)
	out.Provenance = append([]ProvenanceRecord(nil), o.Provenance...)
	out.Filtered = append([]FilteredResult(nil), o.Filtered...)
	if o.DerivedStep != nil {
		ds := *o.DerivedStep
		out.DerivedStep = &ds
	}
	return &out
}
