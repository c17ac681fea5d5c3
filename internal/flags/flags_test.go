package flags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hatchpoint/variance/internal/domain"
	"github.com/hatchpoint/variance/internal/experiments"
	"github.com/hatchpoint/variance/internal/ports"
)

type nopMetrics struct{}

func (nopMetrics) AssignmentCreated(context.Context, string, string) {}

func (nopMetrics) SubjectExcluded(context.Context, string) {}

func (nopMetrics) ObservationRecorded(context.Context, string, string) {}

func (nopMetrics) Close(context.Context) error { return nil }

func newFlags(repo *experiments.MockRepository) *Flags {
	service := experiments.NewService(repo, nopMetrics{}, ports.NopLogger{})
	return New(repo, service, ports.NopLogger{})
}

func runningExperiment(name string) *domain.Experiment {
	now := time.Now().UTC()
	return &domain.Experiment{
		ID:     "exp-1",
		Name:   name,
		Status: domain.StatusRunning,
		OrgID:  "org-1",
		Variants: map[string]json.RawMessage{
			"control":   json.RawMessage(`{}`),
			"treatment": json.RawMessage(`{}`),
		},
		TrafficPercentage: 100,
		StartedAt:         &now,
		CreatedAt:         now,
	}
}

func TestIsEnabled_MissingExperimentIsOff(t *testing.T) {
	f := newFlags(&experiments.MockRepository{})

	if f.IsEnabled(context.Background(), "new_chat_ui", "subject-1", "org-1") {
		t.Error("missing experiment must read as off")
	}
}

func TestIsEnabled_NotRunningIsOff(t *testing.T) {
	experiment := runningExperiment("new_chat_ui")
	experiment.Status = domain.StatusDraft

	repo := &experiments.MockRepository{
		GetExperimentByNameFunc: func(ctx context.Context, name, orgID string) (*domain.Experiment, error) {
			return experiment, nil
		},
	}
	f := newFlags(repo)

	if f.IsEnabled(context.Background(), "new_chat_ui", "subject-1", "org-1") {
		t.Error("draft experiment must read as off")
	}
}

func TestIsEnabled_RepositoryErrorIsOff(t *testing.T) {
	repo := &experiments.MockRepository{
		GetExperimentByNameFunc: func(ctx context.Context, name, orgID string) (*domain.Experiment, error) {
			return nil, errors.New("storage down")
		},
	}
	f := newFlags(repo)

	if f.IsEnabled(context.Background(), "new_chat_ui", "subject-1", "org-1") {
		t.Error("storage errors must read as off")
	}
}

func TestIsEnabled_TrafficExclusionIsOff(t *testing.T) {
	experiment := runningExperiment("new_chat_ui")
	experiment.TrafficPercentage = 1

	repo := &experiments.MockRepository{
		GetExperimentByNameFunc: func(ctx context.Context, name, orgID string) (*domain.Experiment, error) {
			return experiment, nil
		},
		GetExperimentByIDFunc: func(ctx context.Context, id string) (*domain.Experiment, error) {
			return experiment, nil
		},
	}
	f := newFlags(repo)

	// At 1% traffic nearly every subject is excluded; all of them must
	// read as off rather than erroring.
	on := 0
	for i := 0; i < 100; i++ {
		if f.IsEnabled(context.Background(), "new_chat_ui", fmt.Sprintf("subject-%d", i), "org-1") {
			on++
		}
	}
	if on > 10 {
		t.Errorf("expected almost all subjects off at 1%% traffic, got %d on", on)
	}
}

func TestIsEnabled_ControlVariantIsOff(t *testing.T) {
	experiment := runningExperiment("new_chat_ui")
	repo := &experiments.MockRepository{
		GetExperimentByNameFunc: func(ctx context.Context, name, orgID string) (*domain.Experiment, error) {
			return experiment, nil
		},
		GetExperimentByIDFunc: func(ctx context.Context, id string) (*domain.Experiment, error) {
			return experiment, nil
		},
		GetAssignmentFunc: func(ctx context.Context, experimentID, subjectID string) (*domain.Assignment, error) {
			return &domain.Assignment{ExperimentID: experimentID, SubjectID: subjectID, Variant: "control"}, nil
		},
	}
	f := newFlags(repo)

	if f.IsEnabled(context.Background(), "new_chat_ui", "subject-1", "org-1") {
		t.Error("control variant must read as off")
	}
}

func TestIsEnabled_TreatmentVariantIsOn(t *testing.T) {
	experiment := runningExperiment("new_chat_ui")
	repo := &experiments.MockRepository{
		GetExperimentByNameFunc: func(ctx context.Context, name, orgID string) (*domain.Experiment, error) {
			return experiment, nil
		},
		GetExperimentByIDFunc: func(ctx context.Context, id string) (*domain.Experiment, error) {
			return experiment, nil
		},
		GetAssignmentFunc: func(ctx context.Context, experimentID, subjectID string) (*domain.Assignment, error) {
			return &domain.Assignment{ExperimentID: experimentID, SubjectID: subjectID, Variant: "treatment"}, nil
		},
	}
	f := newFlags(repo)

	if !f.IsEnabled(context.Background(), "new_chat_ui", "subject-1", "org-1") {
		t.Error("non-control variant must read as on")
	}
}

func TestVariant_ReturnsAssignedVariant(t *testing.T) {
	experiment := runningExperiment("chat_top_k_test")
	repo := &experiments.MockRepository{
		GetExperimentByNameFunc: func(ctx context.Context, name, orgID string) (*domain.Experiment, error) {
			return experiment, nil
		},
		GetExperimentByIDFunc: func(ctx context.Context, id string) (*domain.Experiment, error) {
			return experiment, nil
		},
		GetAssignmentFunc: func(ctx context.Context, experimentID, subjectID string) (*domain.Assignment, error) {
			return &domain.Assignment{ExperimentID: experimentID, SubjectID: subjectID, Variant: "treatment"}, nil
		},
	}
	f := newFlags(repo)

	if got := f.Variant(context.Background(), "chat_top_k_test", "subject-1", "org-1"); got != "treatment" {
		t.Errorf("expected treatment, got %q", got)
	}
}

func TestVariant_AbsentOnFailure(t *testing.T) {
	f := newFlags(&experiments.MockRepository{})

	if got := f.Variant(context.Background(), "missing", "subject-1", "org-1"); got != "" {
		t.Errorf("expected empty variant on failure, got %q", got)
	}
}

func TestFind_NoOrgScansRunningExperiments(t *testing.T) {
	experiment := runningExperiment("cross_org_flag")
	repo := &experiments.MockRepository{
		ListByStatusFunc: func(ctx context.Context, status domain.Status) ([]*domain.Experiment, error) {
			if status != domain.StatusRunning {
				t.Errorf("expected running filter, got %s", status)
			}
			return []*domain.Experiment{runningExperiment("other"), experiment}, nil
		},
		GetExperimentByIDFunc: func(ctx context.Context, id string) (*domain.Experiment, error) {
			return experiment, nil
		},
		GetAssignmentFunc: func(ctx context.Context, experimentID, subjectID string) (*domain.Assignment, error) {
			return &domain.Assignment{ExperimentID: experimentID, SubjectID: subjectID, Variant: "treatment"}, nil
		},
	}
	f := newFlags(repo)

	if got := f.Variant(context.Background(), "cross_org_flag", "subject-1", ""); got != "treatment" {
		t.Errorf("expected treatment via cross-org scan, got %q", got)
	}
}
