package domain

import "time"

// Assignment binds a subject to a variant of an experiment. At most one
// assignment exists per (experiment, subject) pair; the storage layer
// enforces this with a unique index. Once created it is never
// re-evaluated, even if the experiment definition changes later.
type Assignment struct {
	ExperimentID string
	SubjectID    string
	Variant      string
	AssignedAt   time.Time
}
