package services

import (
	"regexp"
	"sort"
	"strings"

	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

// CompositeHandler detects, splits and re-aggregates identifiers that encode
// multiple entities in one string (e.g. "P12345_P67890").
type CompositeHandler interface {
	IsComposite(id, ontologyType string) bool
	// SplitComposite returns whether the identifier matched a composite
	// pattern, its trimmed components, and the pattern that matched.
	// Non-matching identifiers are already atomic: (false, [id], nil).
	SplitComposite(id, ontologyType string) (bool, []string, *types.CompositePatternConfig)
	// AggregateResults folds component outcomes back onto the original
	// identifiers according to each matched pattern's strategy. Originals
	// whose components all failed get an explicit empty outcome, so
	// "attempted and failed" is distinguishable from "not attempted".
	AggregateResults(originalIDs []string, componentResults map[string]*types.Outcome, preprocessed map[string][]string, ontologyType string) map[string]*types.Outcome
}

type compiledPattern struct {
	cfg *types.CompositePatternConfig
	re  *regexp.Regexp
}

type compositeHandler struct {
	log      *logger.Logger
	patterns map[string][]compiledPattern
}

// NewCompositeHandler compiles the configured patterns once. Patterns are
// session configuration; the handler is immutable after construction.
func NewCompositeHandler(baseLog *logger.Logger, configs []*types.CompositePatternConfig) (CompositeHandler, error) {
	log := baseLog.With("service", "CompositeHandler")
	byType := make(map[string][]compiledPattern)
	for _, cfg := range configs {
		if cfg == nil || !cfg.Active {
			continue
		}
		re, err := regexp.Compile(cfg.Pattern)
		if err != nil {
			log.Warn("skipping uncompilable composite pattern",
				"ontology_type", cfg.OntologyType,
				"pattern", cfg.Pattern,
				"error", err,
			)
			continue
		}
		byType[cfg.OntologyType] = append(byType[cfg.OntologyType], compiledPattern{cfg: cfg, re: re})
	}
	for _, ps := range byType {
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].cfg.Priority < ps[j].cfg.Priority })
	}
	return &compositeHandler{log: log, patterns: byType}, nil
}

func (h *compositeHandler) IsComposite(id, ontologyType string) bool {
	composite, _, _ := h.SplitComposite(id, ontologyType)
	return composite
}

func (h *compositeHandler) SplitComposite(id, ontologyType string) (bool, []string, *types.CompositePatternConfig) {
	id = strings.TrimSpace(id)
	for _, p := range h.patterns[ontologyType] {
		if !p.re.MatchString(id) {
			continue
		}
		components := splitOnDelimiters(id, p.cfg.Delimiters)
		if len(components) < 2 {
			continue
		}
		return true, components, p.cfg
	}
	return false, []string{id}, nil
}

func (h *compositeHandler) AggregateResults(originalIDs []string, componentResults map[string]*types.Outcome, preprocessed map[string][]string, ontologyType string) map[string]*types.Outcome {
	out := make(map[string]*types.Outcome, len(originalIDs))
	for _, orig := range originalIDs {
		components, ok := preprocessed[orig]
		if !ok || len(components) == 0 {
			components = []string{orig}
		}

		composite, _, pattern := h.SplitComposite(orig, ontologyType)
		if !composite || len(components) == 1 {
			if o := componentResults[components[0]]; o != nil {
				res := o.Clone()
				res.Identifier = orig
				out[orig] = res
			} else {
				out[orig] = emptyOutcome(orig)
			}
			continue
		}

		strategy := types.AggregateFirstMatch
		if pattern != nil && pattern.AggregationStrategy != "" {
			strategy = pattern.AggregationStrategy
		}

		switch strategy {
		case types.AggregateAllMatches:
			out[orig] = aggregateAllMatches(orig, components, componentResults)
		default:
			out[orig] = aggregateFirstMatch(orig, components, componentResults)
		}
	}
	return out
}

// aggregateFirstMatch uses exactly the outcome of the first component that
// produced any result; later components are ignored even if they matched.
func aggregateFirstMatch(orig string, components []string, componentResults map[string]*types.Outcome) *types.Outcome {
	for _, comp := range components {
		o := componentResults[comp]
		if o == nil || !o.Resolved() {
			continue
		}
		res := o.Clone()
		res.Identifier = orig
		markRepresentative(res, comp)
		return res
	}
	return emptyOutcome(orig)
}

// aggregateAllMatches unions the target sets of every component that
// produced a result; the first successful component is recorded as the
// representative source in provenance.
func aggregateAllMatches(orig string, components []string, componentResults map[string]*types.Outcome) *types.Outcome {
	var res *types.Outcome
	seen := map[string]bool{}
	var targets []string
	for _, comp := range components {
		o := componentResults[comp]
		if o == nil || !o.Resolved() {
			continue
		}
		if res == nil {
			res = o.Clone()
			res.Identifier = orig
			markRepresentative(res, comp)
		}
		for _, t := range o.TargetIDs {
			if !seen[t] {
				seen[t] = true
				targets = append(targets, t)
			}
		}
	}
	if res == nil {
		return emptyOutcome(orig)
	}
	res.TargetIDs = targets
	return res
}

func markRepresentative(o *types.Outcome, component string) {
	if len(o.Provenance) > 0 {
		o.Provenance[0].DerivedFrom = component
		return
	}
	o.Provenance = []types.ProvenanceRecord{{DerivedFrom: component}}
}

// emptyOutcome is explicit "attempted and nothing matched".
func emptyOutcome(id string) *types.Outcome {
	return &types.Outcome{
		Identifier: id,
		Status:     types.StatusUnresolved,
		Reason:     types.ReasonNoMatch,
		TargetIDs:  []string{},
		Direction:  types.DirectionForward,
	}
}

func splitOnDelimiters(id, delimiters string) []string {
	if delimiters == "" {
		return []string{id}
	}
	parts := strings.FieldsFunc(id, func(r rune) bool {
		return strings.ContainsRune(delimiters, r)
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
