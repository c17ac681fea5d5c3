// Package flags exposes feature flags backed by the experiment engine.
//
// A flag is a RUNNING experiment looked up by name; the assigned variant
// decides the flag state. Every failure is swallowed and reported as
// "off": consuming code paths cannot afford an error here, so the facade
// fails closed by design.
package flags

import (
	"context"
	"fmt"

	"github.com/hatchpoint/variance/internal/domain"
	"github.com/hatchpoint/variance/internal/experiments"
	"github.com/hatchpoint/variance/internal/ports"
)

const controlVariant = "control"

// Flags answers feature-flag queries for application code.
//
// Usage:
//
//	f := flags.New(repo, service, logger)
//	if f.IsEnabled(ctx, "new_chat_ui", userID, orgID) {
//		// show new UI
//	}
type Flags struct {
	repo    ports.ExperimentRepository
	service *experiments.Service
	logger  ports.Logger
}

// New creates a feature-flag facade over the experiment engine.
func New(repo ports.ExperimentRepository, service *experiments.Service, logger ports.Logger) *Flags {
	return &Flags{
		repo:    repo,
		service: service,
		logger:  logger,
	}
}

// IsEnabled reports whether a flag is on for a subject: a RUNNING
// experiment with that name exists and the subject's variant is not
// "control". Missing experiments, wrong states, traffic exclusion, and
// storage errors all read as off.
func (f *Flags) IsEnabled(ctx context.Context, flagName, subjectID, orgID string) bool {
	variant := f.Variant(ctx, flagName, subjectID, orgID)
	return variant != "" && variant != controlVariant
}

// Variant returns the variant assigned to a subject for a flag, or the
// empty string on any failure.
func (f *Flags) Variant(ctx context.Context, flagName, subjectID, orgID string) string {
	experiment, err := f.find(ctx, flagName, orgID)
	if err != nil {
		f.logger.Debug(fmt.Sprintf("flag %s: lookup failed: %v", flagName, err))
		return ""
	}
	if experiment == nil {
		return ""
	}

	variant, err := f.service.Assign(ctx, experiment.ID, subjectID)
	if err != nil {
		f.logger.Debug(fmt.Sprintf("flag %s: subject not assigned: %v", flagName, err))
		return ""
	}
	return variant
}

// find resolves a RUNNING experiment by name. With an organization scope
// this is a single indexed lookup. Without one it scans every running
// experiment across organizations and matches by name — slow and unsafe
// for multi-tenant isolation; production callers should always pass an
// organization id.
func (f *Flags) find(ctx context.Context, name, orgID string) (*domain.Experiment, error) {
	if orgID != "" {
		experiment, err := f.repo.GetExperimentByName(ctx, name, orgID)
		if err != nil {
			return nil, err
		}
		if experiment != nil && experiment.Status == domain.StatusRunning {
			return experiment, nil
		}
		return nil, nil
	}

	running, err := f.repo.ListByStatus(ctx, domain.StatusRunning)
	if err != nil {
		return nil, err
	}
	for _, experiment := range running {
		if experiment.Name == name {
			return experiment, nil
		}
	}
	return nil, nil
}
