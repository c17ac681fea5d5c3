package ports

import "context"

// EngineMetrics exports operational counters for the experiment engine
// to an external observability system.
type EngineMetrics interface {
	// AssignmentCreated counts a new subject assignment to a variant.
	AssignmentCreated(ctx context.Context, experimentID, variant string)
	// SubjectExcluded counts a subject kept out by the traffic gate.
	SubjectExcluded(ctx context.Context, experimentID string)
	// ObservationRecorded counts a recorded metric observation.
	ObservationRecorded(ctx context.Context, experimentID, metricName string)
	// Close shuts down the exporter and flushes any pending metrics.
	Close(ctx context.Context) error
}
