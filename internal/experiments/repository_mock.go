package experiments

import (
	"context"

	"github.com/hatchpoint/variance/internal/domain"
)

// MockRepository is a mock implementation of ports.ExperimentRepository
// for testing.
type MockRepository struct {
	CreateExperimentFunc          func(ctx context.Context, experiment *domain.Experiment) error
	GetExperimentByIDFunc         func(ctx context.Context, id string) (*domain.Experiment, error)
	GetExperimentByNameFunc       func(ctx context.Context, name, orgID string) (*domain.Experiment, error)
	ListExperimentsFunc           func(ctx context.Context, orgID string, status *domain.Status, limit, offset int64) ([]*domain.Experiment, error)
	ListByStatusFunc              func(ctx context.Context, status domain.Status) ([]*domain.Experiment, error)
	UpdateExperimentFunc          func(ctx context.Context, experiment *domain.Experiment) error
	GetAssignmentFunc             func(ctx context.Context, experimentID, subjectID string) (*domain.Assignment, error)
	CreateAssignmentFunc          func(ctx context.Context, assignment *domain.Assignment) error
	CountAssignmentsByVariantFunc func(ctx context.Context, experimentID string) (map[string]int64, error)
	RecordMetricFunc              func(ctx context.Context, observation *domain.MetricObservation) error
	GetMetricStatsFunc            func(ctx context.Context, experimentID, metricName string) ([]domain.VariantStats, error)
}

func (m *MockRepository) CreateExperiment(ctx context.Context, experiment *domain.Experiment) error {
	if m.CreateExperimentFunc != nil {
		return m.CreateExperimentFunc(ctx, experiment)
	}
	return nil
}

func (m *MockRepository) GetExperimentByID(ctx context.Context, id string) (*domain.Experiment, error) {
	if m.GetExperimentByIDFunc != nil {
		return m.GetExperimentByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockRepository) GetExperimentByName(ctx context.Context, name, orgID string) (*domain.Experiment, error) {
	if m.GetExperimentByNameFunc != nil {
		return m.GetExperimentByNameFunc(ctx, name, orgID)
	}
	return nil, nil
}

func (m *MockRepository) ListExperiments(ctx context.Context, orgID string, status *domain.Status, limit, offset int64) ([]*domain.Experiment, error) {
	if m.ListExperimentsFunc != nil {
		return m.ListExperimentsFunc(ctx, orgID, status, limit, offset)
	}
	return []*domain.Experiment{}, nil
}

func (m *MockRepository) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Experiment, error) {
	if m.ListByStatusFunc != nil {
		return m.ListByStatusFunc(ctx, status)
	}
	return []*domain.Experiment{}, nil
}

func (m *MockRepository) UpdateExperiment(ctx context.Context, experiment *domain.Experiment) error {
	if m.UpdateExperimentFunc != nil {
		return m.UpdateExperimentFunc(ctx, experiment)
	}
	return nil
}

func (m *MockRepository) GetAssignment(ctx context.Context, experimentID, subjectID string) (*domain.Assignment, error) {
	if m.GetAssignmentFunc != nil {
		return m.GetAssignmentFunc(ctx, experimentID, subjectID)
	}
	return nil, nil
}

func (m *MockRepository) CreateAssignment(ctx context.Context, assignment *domain.Assignment) error {
	if m.CreateAssignmentFunc != nil {
		return m.CreateAssignmentFunc(ctx, assignment)
	}
	return nil
}

func (m *MockRepository) CountAssignmentsByVariant(ctx context.Context, experimentID string) (map[string]int64, error) {
	if m.CountAssignmentsByVariantFunc != nil {
		return m.CountAssignmentsByVariantFunc(ctx, experimentID)
	}
	return map[string]int64{}, nil
}

func (m *MockRepository) RecordMetric(ctx context.Context, observation *domain.MetricObservation) error {
	if m.RecordMetricFunc != nil {
		return m.RecordMetricFunc(ctx, observation)
	}
	return nil
}

func (m *MockRepository) GetMetricStats(ctx context.Context, experimentID, metricName string) ([]domain.VariantStats, error) {
	if m.GetMetricStatsFunc != nil {
		return m.GetMetricStatsFunc(ctx, experimentID, metricName)
	}
	return []domain.VariantStats{}, nil
}
