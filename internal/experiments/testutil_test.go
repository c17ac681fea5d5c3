package experiments

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hatchpoint/variance/internal/domain"
)

// nopMetrics discards engine counters in tests.
type nopMetrics struct{}

func (nopMetrics) AssignmentCreated(context.Context, string, string) {}

func (nopMetrics) SubjectExcluded(context.Context, string) {}

func (nopMetrics) ObservationRecorded(context.Context, string, string) {}

func (nopMetrics) Close(context.Context) error { return nil }

// nopLogger discards log lines in tests.
type nopLogger struct{}

func (nopLogger) Debug(string) {}
func (nopLogger) Error(string) {}

func newTestService(repo *MockRepository) *Service {
	return NewService(repo, nopMetrics{}, nopLogger{})
}

func twoVariants() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"control":   json.RawMessage(`{}`),
		"treatment": json.RawMessage(`{"top_k":10}`),
	}
}

func runningExperiment(id string) *domain.Experiment {
	now := time.Now().UTC()
	return &domain.Experiment{
		ID:                id,
		Name:              "test-experiment",
		Status:            domain.StatusRunning,
		OrgID:             "org-1",
		Variants:          twoVariants(),
		TrafficPercentage: 100,
		StartedAt:         &now,
		CreatedAt:         now,
	}
}
