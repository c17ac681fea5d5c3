package experiments

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/hatchpoint/variance/internal/domain"
)

// Assign buckets a subject into a variant of a RUNNING experiment.
//
// Assignment is sticky: an existing persisted assignment is returned
// unchanged even if the experiment definition has changed since. New
// subjects first pass the traffic gate, then get a deterministic
// hash-based variant. The traffic gate and the variant pick hash
// independent inputs so that changing the traffic percentage does not
// skew the relative balance between variants among admitted subjects.
func (s *Service) Assign(ctx context.Context, experimentID, subjectID string) (string, error) {
	experiment, err := s.getExisting(ctx, experimentID)
	if err != nil {
		return "", err
	}
	if experiment.Status != domain.StatusRunning {
		return "", domain.Errorf(domain.KindInvalidState, "experiment %s is not running", experiment.Name)
	}

	existing, err := s.repo.GetAssignment(ctx, experimentID, subjectID)
	if err != nil {
		return "", fmt.Errorf("get assignment: %w", err)
	}
	if existing != nil {
		return existing.Variant, nil
	}

	if !inTraffic(experimentID, subjectID, experiment.TrafficPercentage) {
		// No record is kept for excluded subjects: raising the traffic
		// percentage later can still admit them.
		s.metrics.SubjectExcluded(ctx, experimentID)
		return "", domain.Errorf(domain.KindTrafficExcluded, "subject not in experiment traffic")
	}

	variant := pickVariant(experimentID, subjectID, experiment.VariantNames())
	assignment := &domain.Assignment{
		ExperimentID: experimentID,
		SubjectID:    subjectID,
		Variant:      variant,
		AssignedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreateAssignment(ctx, assignment); err != nil {
		if domain.IsKind(err, domain.KindConflict) {
			// Lost a first-assignment race; the winner's row is
			// authoritative.
			winner, rerr := s.repo.GetAssignment(ctx, experimentID, subjectID)
			if rerr != nil {
				return "", fmt.Errorf("re-read assignment after conflict: %w", rerr)
			}
			if winner != nil {
				return winner.Variant, nil
			}
		}
		return "", fmt.Errorf("create assignment: %w", err)
	}

	s.metrics.AssignmentCreated(ctx, experimentID, variant)
	s.logger.Debug(fmt.Sprintf("assigned subject %s to variant %s of %s", subjectID, variant, experiment.Name))
	return variant, nil
}

// AssignmentCounts returns the number of assignments per variant.
func (s *Service) AssignmentCounts(ctx context.Context, experimentID string) (map[string]int64, error) {
	if _, err := s.getExisting(ctx, experimentID); err != nil {
		return nil, err
	}
	return s.repo.CountAssignmentsByVariant(ctx, experimentID)
}

// inTraffic decides the traffic gate with a fast non-cryptographic hash.
// A percentage of 100 always admits without hashing.
func inTraffic(experimentID, subjectID string, trafficPercentage int) bool {
	if trafficPercentage >= 100 {
		return true
	}
	bucket := xxhash.Sum64String("traffic:"+experimentID+":"+subjectID) % 100
	return bucket < uint64(trafficPercentage)
}

// pickVariant selects a variant deterministically. The digest is
// cryptographic so subjects cannot cheaply bias their bucket.
func pickVariant(experimentID, subjectID string, variantNames []string) string {
	digest := sha256.Sum256([]byte(experimentID + ":" + subjectID))
	index := binary.BigEndian.Uint64(digest[:8]) % uint64(len(variantNames))
	return variantNames[index]
}
