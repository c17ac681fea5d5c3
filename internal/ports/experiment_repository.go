package ports

import (
	"context"

	"github.com/hatchpoint/variance/internal/domain"
)

// ExperimentRepository is the storage boundary for experiments,
// assignments, and metric observations.
//
// Lookup methods return (nil, nil) when no row matches. Create methods
// surface uniqueness violations as domain errors of KindConflict; the
// services treat a conflict on assignment insert as a lost race and
// re-read rather than failing.
type ExperimentRepository interface {
	CreateExperiment(ctx context.Context, experiment *domain.Experiment) error
	GetExperimentByID(ctx context.Context, id string) (*domain.Experiment, error)
	GetExperimentByName(ctx context.Context, name, orgID string) (*domain.Experiment, error)
	ListExperiments(ctx context.Context, orgID string, status *domain.Status, limit, offset int64) ([]*domain.Experiment, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Experiment, error)
	UpdateExperiment(ctx context.Context, experiment *domain.Experiment) error

	GetAssignment(ctx context.Context, experimentID, subjectID string) (*domain.Assignment, error)
	CreateAssignment(ctx context.Context, assignment *domain.Assignment) error
	CountAssignmentsByVariant(ctx context.Context, experimentID string) (map[string]int64, error)

	RecordMetric(ctx context.Context, observation *domain.MetricObservation) error
	GetMetricStats(ctx context.Context, experimentID, metricName string) ([]domain.VariantStats, error)
}
