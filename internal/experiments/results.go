package experiments

import (
	"context"
	"fmt"
	"time"

	"github.com/hatchpoint/variance/internal/domain"
)

// RecordMetric appends a metric observation for a subject. The subject
// does not need an assignment: observations from unassigned subjects are
// orphaned and drop out of the per-variant aggregation join.
func (s *Service) RecordMetric(ctx context.Context, experimentID, subjectID, metricName string, value float64) error {
	if _, err := s.getExisting(ctx, experimentID); err != nil {
		return err
	}

	observation := &domain.MetricObservation{
		ExperimentID: experimentID,
		SubjectID:    subjectID,
		MetricName:   metricName,
		Value:        value,
		RecordedAt:   time.Now().UTC(),
	}
	if err := s.repo.RecordMetric(ctx, observation); err != nil {
		return fmt.Errorf("record metric: %w", err)
	}

	s.metrics.ObservationRecorded(ctx, experimentID, metricName)
	return nil
}

// Results aggregates per-variant statistics for one metric and, when
// exactly two variants each have at least 2 subjects, runs Welch's
// significance test.
func (s *Service) Results(ctx context.Context, experimentID, metricName string, confidenceLevel float64) (*domain.Results, error) {
	experiment, err := s.getExisting(ctx, experimentID)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.GetMetricStats(ctx, experimentID, metricName)
	if err != nil {
		return nil, fmt.Errorf("get metric stats: %w", err)
	}

	variantStats := make(map[string]domain.VariantStats, len(stats))
	for i := range stats {
		vs := stats[i]
		vs.Mean = domain.RoundTo(vs.Mean, 4)
		vs.StdDev = domain.RoundTo(vs.StdDev, 4)
		vs.Min = domain.RoundTo(vs.Min, 4)
		vs.Max = domain.RoundTo(vs.Max, 4)
		variantStats[vs.VariantName] = vs
	}

	results := &domain.Results{
		ExperimentID:    experimentID,
		ExperimentName:  experiment.Name,
		Status:          experiment.Status,
		VariantStats:    variantStats,
		ConfidenceLevel: confidenceLevel,
	}

	if len(stats) == 2 {
		a, b := variantStats[stats[0].VariantName], variantStats[stats[1].VariantName]
		if a.SubjectCount >= 2 && b.SubjectCount >= 2 {
			p := domain.WelchPValue(a.Mean, a.StdDev, a.SubjectCount, b.Mean, b.StdDev, b.SubjectCount)
			// Rounding must not erase the positive floor on tiny p-values.
			if p >= 1e-6 {
				p = domain.RoundTo(p, 6)
			}
			results.PValue = &p
			results.IsSignificant = p < (1 - confidenceLevel)
		}
	}

	return results, nil
}
