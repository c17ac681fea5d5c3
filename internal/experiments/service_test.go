package experiments

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hatchpoint/variance/internal/domain"
)

func TestCreate_RequiresTwoVariants(t *testing.T) {
	service := newTestService(&MockRepository{})

	_, err := service.Create(context.Background(), CreateParams{
		Name:  "solo",
		OrgID: "org-1",
		Variants: map[string]json.RawMessage{
			"control": json.RawMessage(`{}`),
		},
		TrafficPercentage: 100,
	})
	if !domain.IsKind(err, domain.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreate_RejectsOutOfRangeTraffic(t *testing.T) {
	service := newTestService(&MockRepository{})

	for _, traffic := range []int{0, -5, 101} {
		_, err := service.Create(context.Background(), CreateParams{
			Name:              "bad-traffic",
			OrgID:             "org-1",
			Variants:          twoVariants(),
			TrafficPercentage: traffic,
		})
		if !domain.IsKind(err, domain.KindValidation) {
			t.Errorf("traffic %d: expected validation error, got %v", traffic, err)
		}
	}
}

func TestCreate_RejectsDuplicateName(t *testing.T) {
	existing := runningExperiment("exp-1")
	repo := &MockRepository{
		GetExperimentByNameFunc: func(ctx context.Context, name, orgID string) (*domain.Experiment, error) {
			return existing, nil
		},
	}
	service := newTestService(repo)

	_, err := service.Create(context.Background(), CreateParams{
		Name:              existing.Name,
		OrgID:             "org-1",
		Variants:          twoVariants(),
		TrafficPercentage: 100,
	})
	if !domain.IsKind(err, domain.KindDuplicateName) {
		t.Errorf("expected duplicate-name error, got %v", err)
	}
}

func TestCreate_MapsInsertConflictToDuplicateName(t *testing.T) {
	// The pre-insert name check can lose a race; the unique index wins.
	repo := &MockRepository{
		CreateExperimentFunc: func(ctx context.Context, experiment *domain.Experiment) error {
			return domain.Errorf(domain.KindConflict, "unique constraint")
		},
	}
	service := newTestService(repo)

	_, err := service.Create(context.Background(), CreateParams{
		Name:              "raced",
		OrgID:             "org-1",
		Variants:          twoVariants(),
		TrafficPercentage: 100,
	})
	if !domain.IsKind(err, domain.KindDuplicateName) {
		t.Errorf("expected duplicate-name error, got %v", err)
	}
}

func TestCreate_PersistsDraft(t *testing.T) {
	var created *domain.Experiment
	repo := &MockRepository{
		CreateExperimentFunc: func(ctx context.Context, experiment *domain.Experiment) error {
			created = experiment
			return nil
		},
	}
	service := newTestService(repo)

	experiment, err := service.Create(context.Background(), CreateParams{
		Name:              "fresh",
		OrgID:             "org-1",
		Variants:          twoVariants(),
		TrafficPercentage: 50,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if experiment.Status != domain.StatusDraft {
		t.Errorf("expected draft status, got %s", experiment.Status)
	}
	if experiment.ID == "" {
		t.Error("expected a generated id")
	}
	if created == nil || created.ID != experiment.ID {
		t.Error("expected experiment to be persisted")
	}
}

func TestUpdate_OnlyDraft(t *testing.T) {
	repo := &MockRepository{
		GetExperimentByIDFunc: func(ctx context.Context, id string) (*domain.Experiment, error) {
			return runningExperiment(id), nil
		},
	}
	service := newTestService(repo)

	_, err := service.Update(context.Background(), "exp-1", UpdatePatch{Description: strPtr("nope")})
	if !domain.IsKind(err, domain.KindInvalidState) {
		t.Errorf("expected invalid-state error, got %v", err)
	}
}

func TestUpdate_AppliesPartialPatch(t *testing.T) {
	experiment := runningExperiment("exp-1")
	experiment.Status = domain.StatusDraft
	experiment.StartedAt = nil

	var updated *domain.Experiment
	repo := &MockRepository{
		GetExperimentByIDFunc: func(ctx context.Context, id string) (*domain.Experiment, error) {
			return experiment, nil
		},
		UpdateExperimentFunc: func(ctx context.Context, e *domain.Experiment) error {
			updated = e
			return nil
		},
	}
	service := newTestService(repo)

	traffic := 25
	result, err := service.Update(context.Background(), "exp-1", UpdatePatch{TrafficPercentage: &traffic})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if result.TrafficPercentage != 25 {
		t.Errorf("expected traffic 25, got %d", result.TrafficPercentage)
	}
	if len(result.Variants) != 2 {
		t.Errorf("expected variants untouched, got %d", len(result.Variants))
	}
	if updated == nil {
		t.Error("expected update to be persisted")
	}
}

func TestStart_OnlyDraft(t *testing.T) {
	repo := &MockRepository{
		GetExperimentByIDFunc: func(ctx context.Context, id string) (*domain.Experiment, error) {
			return runningExperiment(id), nil
		},
	}
	service := newTestService(repo)

	_, err := service.Start(context.Background(), "exp-1")
	if !domain.IsKind(err, domain.KindInvalidState) {
		t.Errorf("expected invalid-state error for already running, got %v", err)
	}
}

func TestStart_StampsStartTime(t *testing.T) {
	experiment := runningExperiment("exp-1")
	experiment.Status = domain.StatusDraft
	experiment.StartedAt = nil

	repo := &MockRepository{
		GetExperimentByIDFunc: func(ctx context.Context, id string) (*domain.Experiment, error) {
			return experiment, nil
		},
	}
	service := newTestService(repo)

	result, err := service.Start(context.Background(), "exp-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if result.Status != domain.StatusRunning {
		t.Errorf("expected running, got %s", result.Status)
	}
	if result.StartedAt == nil {
		t.Error("expected start time to be stamped")
	}
}

func TestStop_OnlyRunning(t *testing.T) {
	experiment := runningExperiment("exp-1")
	experiment.Status = domain.StatusDraft

	repo := &MockRepository{
		GetExperimentByIDFunc: func(ctx context.Context, id string) (*domain.Experiment, error) {
			return experiment, nil
		},
	}
	service := newTestService(repo)

	_, err := service.Stop(context.Background(), "exp-1")
	if !domain.IsKind(err, domain.KindInvalidState) {
		t.Errorf("expected invalid-state error for draft, got %v", err)
	}
}

func TestStop_StampsEndTime(t *testing.T) {
	repo := &MockRepository{
		GetExperimentByIDFunc: func(ctx context.Context, id string) (*domain.Experiment, error) {
			return runningExperiment(id), nil
		},
	}
	service := newTestService(repo)

	result, err := service.Stop(context.Background(), "exp-1")
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if result.Status != domain.StatusCompleted {
		t.Errorf("expected completed, got %s", result.Status)
	}
	if result.EndedAt == nil {
		t.Error("expected end time to be stamped")
	}
}

func TestMutations_NotFound(t *testing.T) {
	service := newTestService(&MockRepository{})
	ctx := context.Background()

	if _, err := service.Update(ctx, "missing", UpdatePatch{}); !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("Update: expected not-found, got %v", err)
	}
	if _, err := service.Start(ctx, "missing"); !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("Start: expected not-found, got %v", err)
	}
	if _, err := service.Stop(ctx, "missing"); !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("Stop: expected not-found, got %v", err)
	}
	if _, err := service.Get(ctx, "missing"); !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("Get: expected not-found, got %v", err)
	}
	if err := service.RecordMetric(ctx, "missing", "s", "score", 1.0); !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("RecordMetric: expected not-found, got %v", err)
	}
}

func strPtr(s string) *string { return &s }
