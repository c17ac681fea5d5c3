package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// Status is the lifecycle state of an experiment.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusRunning Status = "running"
	// StatusPaused is reserved in the taxonomy; no transition reaches it yet.
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusRunning, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// Experiment is an A/B test definition. The variant set and traffic
// percentage are mutable only while the experiment is in DRAFT.
type Experiment struct {
	ID                string
	Name              string
	Description       *string
	Status            Status
	OrgID             string
	Variants          map[string]json.RawMessage
	TargetingRules    json.RawMessage
	TrafficPercentage int
	StartedAt         *time.Time
	EndedAt           *time.Time
	CreatedAt         time.Time
}

// VariantNames returns the variant names in lexicographic order.
// The stable ordering is what makes hash-based variant selection
// reproducible across processes.
func (e *Experiment) VariantNames() []string {
	names := make([]string, 0, len(e.Variants))
	for name := range e.Variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
