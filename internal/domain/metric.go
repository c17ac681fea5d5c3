package domain

import "time"

// MetricObservation is a single recorded metric value for a subject.
// Multiple observations per subject per metric are allowed; they are
// aggregated, not overwritten.
type MetricObservation struct {
	ExperimentID string
	SubjectID    string
	MetricName   string
	Value        float64
	RecordedAt   time.Time
}

// VariantStats holds per-variant descriptive statistics for one metric,
// aggregated by joining observations through assignments. Orphaned
// observations (subjects without an assignment) are excluded by the join.
type VariantStats struct {
	VariantName  string
	SubjectCount int64
	Mean         float64
	StdDev       float64
	Min          float64
	Max          float64
}

// Results is the computed outcome of an experiment for one metric.
// PValue is nil when no significance test applies (variants != 2 or
// insufficient subjects).
type Results struct {
	ExperimentID    string
	ExperimentName  string
	Status          Status
	VariantStats    map[string]VariantStats
	PValue          *float64
	IsSignificant   bool
	ConfidenceLevel float64
}
