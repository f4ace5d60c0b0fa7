package domain

import (
	"sort"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ReversePriorityPenalty is added to a path's priority when it is selected
// for reverse traversal, so forward paths win ties.
const ReversePriorityPenalty = 10

// ExecutableStep is an immutable, resolved step of a selected path.
type ExecutableStep struct {
	Order    int
	Resource MappingResource
	Config   datatypes.JSON
}

// ExecutablePath is the immutable value handed to the executor once a path
// is selected. Reversal is a copy/transform at selection time; it never
// delegates back to the configuration row.
type ExecutablePath struct {
	ID         uuid.UUID
	Name       string
	SourceType string
	TargetType string
	Priority   int
	StepCount  int
	Reversed   bool
	Steps      []ExecutableStep
}

// NewExecutablePath snapshots a configured path, ordering its steps by
// step_order.
func NewExecutablePath(p *MappingPath) *ExecutablePath {
	steps := make([]ExecutableStep, 0, len(p.Steps))
	for _, s := range p.Steps {
		steps = append(steps, ExecutableStep{
			Order:    s.StepOrder,
			Resource: s.Resource,
			Config:   s.Config,
		})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
	return &ExecutablePath{
		ID:         p.ID,
		Name:       p.Name,
		SourceType: p.SourceType,
		TargetType: p.TargetType,
		Priority:   p.Priority,
		StepCount:  len(steps),
		Steps:      steps,
	}
}

// Reverse returns a new path presenting this one as traversed backward:
// source/target swapped, steps in reverse order, priority penalized so a
// forward path beats it on ties, name suffixed to mark direction. The
// receiver is not mutated.
func (p *ExecutablePath) Reverse() *ExecutablePath {
	steps := make([]ExecutableStep, len(p.Steps))
	for i := range p.Steps {
		s := p.Steps[len(p.Steps)-1-i]
		s.Order = i + 1
		steps[i] = s
	}
	return &ExecutablePath{
		ID:         p.ID,
		Name:       p.Name + " (reversed)",
		SourceType: p.TargetType,
		TargetType: p.SourceType,
		Priority:   p.Priority + ReversePriorityPenalty,
		StepCount:  len(steps),
		Reversed:   true,
		Steps:      steps,
	}
}

// Direction reports how the executor should traverse each resource.
func (p *ExecutablePath) Direction() MappingDirection {
	if p.Reversed {
		return DirectionReverse
	}
	return DirectionForward
}
