// Package policy holds the capacity and grading rules checked before a write.
// Callers run these inside a transaction that has locked the parent row.
package policy

import (
	"fmt"

	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"
	"contest_registry/internal/platform/metrics"
)

// CheckGradingSupervisor requires the grading supervisor to be the contestant's own.
func CheckGradingSupervisor(c *model.Contestant, supervisorID uint) error {
	if !c.SupervisedBy(supervisorID) {
		return common.NewValidationError("supervisor_id", "supervisor is not assigned to this contestant")
	}
	return nil
}

// CheckCompetitionCapacity refuses a new score once the competition holds MaxContestants scores.
func CheckCompetitionCapacity(c *model.Competition, current int64) error {
	if current >= int64(c.MaxContestants) {
		metrics.CapacityRejections.WithLabelValues("competition").Inc()
		return fmt.Errorf("competition %d is full (%d of %d contestants): %w", c.ID, current, c.MaxContestants, common.ErrCapacity)
	}
	return nil
}

// CheckSupervisorCapacity refuses assigning another contestant to a full supervisor.
func CheckSupervisorCapacity(s *model.Supervisor, current int64) error {
	if current >= int64(s.MaxContestants) {
		metrics.CapacityRejections.WithLabelValues("supervisor").Inc()
		return fmt.Errorf("supervisor %d is full (%d of %d contestants): %w", s.ID, current, s.MaxContestants, common.ErrCapacity)
	}
	return nil
}

// CheckSupervisorLimit refuses lowering a supervisor's limit below their current load.
func CheckSupervisorLimit(newMax int, current int64) error {
	if int64(newMax) < current {
		metrics.CapacityRejections.WithLabelValues("supervisor").Inc()
		return fmt.Errorf("max contestants %d is below the %d contestants already assigned: %w", newMax, current, common.ErrCapacity)
	}
	return nil
}
