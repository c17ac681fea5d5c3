// Package experiments implements the experiment lifecycle manager and
// the deterministic assignment engine.
package experiments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hatchpoint/variance/internal/domain"
	"github.com/hatchpoint/variance/internal/ports"
)

// Service manages the experiment lifecycle: create, update, start, stop,
// assign, record, analyze. All state lives behind the repository; the
// service itself is stateless and safe for concurrent use.
type Service struct {
	repo    ports.ExperimentRepository
	metrics ports.EngineMetrics
	logger  ports.Logger
}

// NewService creates a new experiment service.
func NewService(repo ports.ExperimentRepository, metrics ports.EngineMetrics, logger ports.Logger) *Service {
	return &Service{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateParams holds the inputs for creating an experiment.
type CreateParams struct {
	Name              string
	Description       *string
	OrgID             string
	Variants          map[string]json.RawMessage
	TargetingRules    json.RawMessage
	TrafficPercentage int
}

// UpdatePatch holds a partial update for a DRAFT experiment. Nil fields
// are left unchanged.
type UpdatePatch struct {
	Description       *string
	Variants          map[string]json.RawMessage
	TargetingRules    json.RawMessage
	TrafficPercentage *int
}

// Create validates params and persists a new experiment in DRAFT.
func (s *Service) Create(ctx context.Context, params CreateParams) (*domain.Experiment, error) {
	if len(params.Variants) < 2 {
		return nil, domain.Errorf(domain.KindValidation, "experiment must have at least 2 variants")
	}
	if params.TrafficPercentage < 1 || params.TrafficPercentage > 100 {
		return nil, domain.Errorf(domain.KindValidation, "traffic percentage must be in [1,100], got %d", params.TrafficPercentage)
	}

	existing, err := s.repo.GetExperimentByName(ctx, params.Name, params.OrgID)
	if err != nil {
		return nil, fmt.Errorf("check experiment name: %w", err)
	}
	if existing != nil {
		return nil, domain.Errorf(domain.KindDuplicateName, "experiment %q already exists", params.Name)
	}

	experiment := &domain.Experiment{
		ID:                uuid.NewString(),
		Name:              params.Name,
		Description:       params.Description,
		Status:            domain.StatusDraft,
		OrgID:             params.OrgID,
		Variants:          params.Variants,
		TargetingRules:    params.TargetingRules,
		TrafficPercentage: params.TrafficPercentage,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.repo.CreateExperiment(ctx, experiment); err != nil {
		// The name check above is not race-free; the unique index on
		// (org_id, name) is authoritative.
		if domain.IsKind(err, domain.KindConflict) {
			return nil, domain.Errorf(domain.KindDuplicateName, "experiment %q already exists", params.Name)
		}
		return nil, fmt.Errorf("create experiment: %w", err)
	}

	s.logger.Debug(fmt.Sprintf("created experiment %s (%s)", experiment.Name, experiment.ID))
	return experiment, nil
}

// Update applies a partial update to a DRAFT experiment.
func (s *Service) Update(ctx context.Context, id string, patch UpdatePatch) (*domain.Experiment, error) {
	experiment, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if experiment.Status != domain.StatusDraft {
		return nil, domain.Errorf(domain.KindInvalidState, "can only update draft experiments, status is %s", experiment.Status)
	}

	if patch.Description != nil {
		experiment.Description = patch.Description
	}
	if patch.Variants != nil {
		if len(patch.Variants) < 2 {
			return nil, domain.Errorf(domain.KindValidation, "experiment must have at least 2 variants")
		}
		experiment.Variants = patch.Variants
	}
	if patch.TargetingRules != nil {
		experiment.TargetingRules = patch.TargetingRules
	}
	if patch.TrafficPercentage != nil {
		if *patch.TrafficPercentage < 1 || *patch.TrafficPercentage > 100 {
			return nil, domain.Errorf(domain.KindValidation, "traffic percentage must be in [1,100], got %d", *patch.TrafficPercentage)
		}
		experiment.TrafficPercentage = *patch.TrafficPercentage
	}

	if err := s.repo.UpdateExperiment(ctx, experiment); err != nil {
		return nil, fmt.Errorf("update experiment: %w", err)
	}
	return experiment, nil
}

// Start transitions a DRAFT experiment to RUNNING and stamps its start time.
func (s *Service) Start(ctx context.Context, id string) (*domain.Experiment, error) {
	experiment, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if experiment.Status != domain.StatusDraft {
		return nil, domain.Errorf(domain.KindInvalidState, "can only start draft experiments, status is %s", experiment.Status)
	}

	now := time.Now().UTC()
	experiment.Status = domain.StatusRunning
	experiment.StartedAt = &now

	if err := s.repo.UpdateExperiment(ctx, experiment); err != nil {
		return nil, fmt.Errorf("start experiment: %w", err)
	}
	s.logger.Debug(fmt.Sprintf("started experiment %s", experiment.Name))
	return experiment, nil
}

// Stop transitions a RUNNING experiment to COMPLETED and stamps its end time.
func (s *Service) Stop(ctx context.Context, id string) (*domain.Experiment, error) {
	experiment, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if experiment.Status != domain.StatusRunning {
		return nil, domain.Errorf(domain.KindInvalidState, "can only stop running experiments, status is %s", experiment.Status)
	}

	now := time.Now().UTC()
	experiment.Status = domain.StatusCompleted
	experiment.EndedAt = &now

	if err := s.repo.UpdateExperiment(ctx, experiment); err != nil {
		return nil, fmt.Errorf("stop experiment: %w", err)
	}
	s.logger.Debug(fmt.Sprintf("stopped experiment %s", experiment.Name))
	return experiment, nil
}

// Get returns an experiment by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Experiment, error) {
	return s.getExisting(ctx, id)
}

// List returns experiments for an organization, optionally filtered by status.
func (s *Service) List(ctx context.Context, orgID string, status *domain.Status, limit, offset int64) ([]*domain.Experiment, error) {
	return s.repo.ListExperiments(ctx, orgID, status, limit, offset)
}

func (s *Service) getExisting(ctx context.Context, id string) (*domain.Experiment, error) {
	experiment, err := s.repo.GetExperimentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get experiment: %w", err)
	}
	if experiment == nil {
		return nil, domain.Errorf(domain.KindNotFound, "experiment %s not found", id)
	}
	return experiment, nil
}
