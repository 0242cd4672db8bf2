package policy

import (
	"errors"
	"testing"

	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"
)

func TestCheckGradingSupervisor(t *testing.T) {
	sup := uint(3)
	c := &model.Contestant{SupervisorID: &sup}
	if err := CheckGradingSupervisor(c, 3); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := CheckGradingSupervisor(c, 4); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := CheckGradingSupervisor(&model.Contestant{}, 3); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error for unassigned contestant, got %v", err)
	}
}

func TestCheckCompetitionCapacity(t *testing.T) {
	c := &model.Competition{ID: 1, MaxContestants: 2}
	if err := CheckCompetitionCapacity(c, 1); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := CheckCompetitionCapacity(c, 2); !errors.Is(err, common.ErrCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}
}

func TestCheckSupervisorCapacity(t *testing.T) {
	s := &model.Supervisor{ID: 1, MaxContestants: 1}
	if err := CheckSupervisorCapacity(s, 0); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := CheckSupervisorCapacity(s, 1); !errors.Is(err, common.ErrCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}
}

func TestCheckSupervisorLimit(t *testing.T) {
	if err := CheckSupervisorLimit(3, 3); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := CheckSupervisorLimit(2, 3); !errors.Is(err, common.ErrCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}
}
