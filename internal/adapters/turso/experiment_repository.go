package turso

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/hatchpoint/variance/internal/domain"
	"github.com/hatchpoint/variance/internal/util"
)

// ExperimentRepository is the libsql-backed storage for experiments,
// assignments, and metric observations.
type ExperimentRepository struct {
	db *sql.DB
}

func NewExperimentRepository(db *sql.DB) *ExperimentRepository {
	return &ExperimentRepository{db: db}
}

const experimentColumns = `id, name, description, status, org_id, variants, targeting_rules, traffic_percentage, started_at, ended_at, created_at`

func (r *ExperimentRepository) CreateExperiment(ctx context.Context, experiment *domain.Experiment) error {
	variants, err := json.Marshal(experiment.Variants)
	if err != nil {
		return fmt.Errorf("marshal variants: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO experiments (`+experimentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		experiment.ID,
		experiment.Name,
		util.NullStringPtr(experiment.Description),
		string(experiment.Status),
		experiment.OrgID,
		string(variants),
		rawMessageToNull(experiment.TargetingRules),
		experiment.TrafficPercentage,
		nullTime(experiment.StartedAt),
		nullTime(experiment.EndedAt),
		experiment.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.Errorf(domain.KindConflict, "experiment name %q taken in organization %s", experiment.Name, experiment.OrgID)
		}
		return fmt.Errorf("failed to create experiment: %w", err)
	}
	return nil
}

func (r *ExperimentRepository) GetExperimentByID(ctx context.Context, id string) (*domain.Experiment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+experimentColumns+` FROM experiments WHERE id = ?`, id)
	experiment, err := scanExperiment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}
	return experiment, nil
}

func (r *ExperimentRepository) GetExperimentByName(ctx context.Context, name, orgID string) (*domain.Experiment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+experimentColumns+` FROM experiments WHERE name = ? AND org_id = ?`, name, orgID)
	experiment, err := scanExperiment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get experiment by name: %w", err)
	}
	return experiment, nil
}

func (r *ExperimentRepository) ListExperiments(ctx context.Context, orgID string, status *domain.Status, limit, offset int64) ([]*domain.Experiment, error) {
	query := `SELECT ` + experimentColumns + ` FROM experiments WHERE org_id = ?`
	args := []any{orgID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	return collectExperiments(rows)
}

func (r *ExperimentRepository) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Experiment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+experimentColumns+` FROM experiments WHERE status = ? ORDER BY created_at DESC`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments by status: %w", err)
	}
	defer rows.Close()

	return collectExperiments(rows)
}

func (r *ExperimentRepository) UpdateExperiment(ctx context.Context, experiment *domain.Experiment) error {
	variants, err := json.Marshal(experiment.Variants)
	if err != nil {
		return fmt.Errorf("marshal variants: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE experiments
		SET name = ?, description = ?, status = ?, variants = ?, targeting_rules = ?,
		    traffic_percentage = ?, started_at = ?, ended_at = ?
		WHERE id = ?`,
		experiment.Name,
		util.NullStringPtr(experiment.Description),
		string(experiment.Status),
		string(variants),
		rawMessageToNull(experiment.TargetingRules),
		experiment.TrafficPercentage,
		nullTime(experiment.StartedAt),
		nullTime(experiment.EndedAt),
		experiment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update experiment: %w", err)
	}
	return nil
}

func (r *ExperimentRepository) GetAssignment(ctx context.Context, experimentID, subjectID string) (*domain.Assignment, error) {
	var assignment domain.Assignment
	var assignedAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT experiment_id, subject_id, variant, assigned_at
		FROM experiment_assignments
		WHERE experiment_id = ? AND subject_id = ?`,
		experimentID, subjectID,
	).Scan(&assignment.ExperimentID, &assignment.SubjectID, &assignment.Variant, &assignedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	assignment.AssignedAt, _ = time.Parse(time.RFC3339, assignedAt)
	return &assignment, nil
}

func (r *ExperimentRepository) CreateAssignment(ctx context.Context, assignment *domain.Assignment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO experiment_assignments (experiment_id, subject_id, variant, assigned_at)
		VALUES (?, ?, ?, ?)`,
		assignment.ExperimentID,
		assignment.SubjectID,
		assignment.Variant,
		assignment.AssignedAt.Format(time.RFC3339),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.Errorf(domain.KindConflict, "subject %s already assigned in experiment %s", assignment.SubjectID, assignment.ExperimentID)
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (r *ExperimentRepository) CountAssignmentsByVariant(ctx context.Context, experimentID string) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT variant, COUNT(*) FROM experiment_assignments
		WHERE experiment_id = ?
		GROUP BY variant`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count assignments: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var variant string
		var count int64
		if err := rows.Scan(&variant, &count); err != nil {
			return nil, fmt.Errorf("failed to scan assignment count: %w", err)
		}
		counts[variant] = count
	}
	return counts, rows.Err()
}

func (r *ExperimentRepository) RecordMetric(ctx context.Context, observation *domain.MetricObservation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO experiment_metrics (experiment_id, subject_id, metric_name, metric_value, recorded_at)
		VALUES (?, ?, ?, ?, ?)`,
		observation.ExperimentID,
		observation.SubjectID,
		observation.MetricName,
		observation.Value,
		observation.RecordedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record metric: %w", err)
	}
	return nil
}

// GetMetricStats aggregates observations per variant by joining through
// the assignment table, so orphaned observations (subjects that were
// never assigned) are excluded. SQLite has no stddev aggregate; the
// sample standard deviation is derived from the sum of squares.
func (r *ExperimentRepository) GetMetricStats(ctx context.Context, experimentID, metricName string) ([]domain.VariantStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.variant,
		       COUNT(m.id),
		       AVG(m.metric_value),
		       MIN(m.metric_value),
		       MAX(m.metric_value),
		       SUM(m.metric_value * m.metric_value)
		FROM experiment_metrics m
		JOIN experiment_assignments a
		  ON a.experiment_id = m.experiment_id AND a.subject_id = m.subject_id
		WHERE m.experiment_id = ? AND m.metric_name = ?
		GROUP BY a.variant
		ORDER BY a.variant`,
		experimentID, metricName)
	if err != nil {
		return nil, fmt.Errorf("failed to get metric stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.VariantStats
	for rows.Next() {
		var vs domain.VariantStats
		var sumSquares float64
		if err := rows.Scan(&vs.VariantName, &vs.SubjectCount, &vs.Mean, &vs.Min, &vs.Max, &sumSquares); err != nil {
			return nil, fmt.Errorf("failed to scan metric stats: %w", err)
		}
		vs.StdDev = sampleStdDev(vs.SubjectCount, vs.Mean, sumSquares)
		stats = append(stats, vs)
	}
	return stats, rows.Err()
}

// sampleStdDev computes the sample standard deviation from count, mean,
// and sum of squares. Floating point can push the variance slightly
// negative for constant series; clamp at zero.
func sampleStdDev(n int64, mean, sumSquares float64) float64 {
	if n < 2 {
		return 0
	}
	variance := (sumSquares - float64(n)*mean*mean) / float64(n-1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

func scanExperiment(row *sql.Row) (*domain.Experiment, error) {
	var e domain.Experiment
	var description sql.NullString
	var status, variants, createdAt string
	var targetingRules, startedAt, endedAt sql.NullString

	err := row.Scan(&e.ID, &e.Name, &description, &status, &e.OrgID, &variants,
		&targetingRules, &e.TrafficPercentage, &startedAt, &endedAt, &createdAt)
	if err != nil {
		return nil, err
	}
	return buildExperiment(&e, description, status, variants, targetingRules, startedAt, endedAt, createdAt)
}

func collectExperiments(rows *sql.Rows) ([]*domain.Experiment, error) {
	var experiments []*domain.Experiment
	for rows.Next() {
		var e domain.Experiment
		var description sql.NullString
		var status, variants, createdAt string
		var targetingRules, startedAt, endedAt sql.NullString

		err := rows.Scan(&e.ID, &e.Name, &description, &status, &e.OrgID, &variants,
			&targetingRules, &e.TrafficPercentage, &startedAt, &endedAt, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", err)
		}
		experiment, err := buildExperiment(&e, description, status, variants, targetingRules, startedAt, endedAt, createdAt)
		if err != nil {
			return nil, err
		}
		experiments = append(experiments, experiment)
	}
	return experiments, rows.Err()
}

func buildExperiment(e *domain.Experiment, description sql.NullString, status, variants string, targetingRules, startedAt, endedAt sql.NullString, createdAt string) (*domain.Experiment, error) {
	e.Description = util.NullStringToPtr(description)
	e.Status = domain.Status(status)

	if err := json.Unmarshal([]byte(variants), &e.Variants); err != nil {
		return nil, fmt.Errorf("unmarshal variants: %w", err)
	}
	if targetingRules.Valid {
		e.TargetingRules = json.RawMessage(targetingRules.String)
	}

	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	e.StartedAt = parseNullTime(startedAt)
	e.EndedAt = parseNullTime(endedAt)
	return e, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func rawMessageToNull(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}
