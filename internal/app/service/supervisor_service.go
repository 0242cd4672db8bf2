package service

import (
	"context"
	"fmt"
	"log"

	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"
	"contest_registry/internal/domain/policy"
	"contest_registry/internal/domain/repository"
	"contest_registry/internal/domain/stats"
	"contest_registry/internal/platform/cache"
)

type SupervisorService struct {
	store repository.Store
	cache StatsCache
	now   Clock
}

func NewSupervisorService(store repository.Store, statsCache StatsCache, clock Clock) *SupervisorService {
	return &SupervisorService{store: store, cache: orNoopCache(statsCache), now: orSystemClock(clock)}
}

type CreateSupervisorRequest struct {
	Name           string `json:"name"`
	HireDate       string `json:"hire_date"`
	Department     string `json:"department"`
	Qualification  string `json:"qualification"`
	EmployeeID     string `json:"employee_id"`
	MaxContestants *int   `json:"max_contestants,omitempty"`
	IsActive       *bool  `json:"is_active,omitempty"`
	Notes          string `json:"notes"`
}

type UpdateSupervisorRequest struct {
	Name           *string `json:"name,omitempty"`
	HireDate       *string `json:"hire_date,omitempty"`
	Department     *string `json:"department,omitempty"`
	Qualification  *string `json:"qualification,omitempty"`
	EmployeeID     *string `json:"employee_id,omitempty"`
	MaxContestants *int    `json:"max_contestants,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

type SupervisorListRequest struct {
	Search     string
	Department string
	Active     *bool
	PageRequest
}

func (s *SupervisorService) Create(ctx context.Context, req CreateSupervisorRequest) (*model.Supervisor, error) {
	now := s.now()
	ve := &common.ValidationError{}
	sup := &model.Supervisor{
		Name:           req.Name,
		HireDate:       parseDateField(ve, "hire_date", req.HireDate, true),
		Department:     req.Department,
		Qualification:  req.Qualification,
		EmployeeID:     req.EmployeeID,
		MaxContestants: model.DefaultSupervisorCapacity,
		IsActive:       true,
		Notes:          req.Notes,
	}
	if req.MaxContestants != nil {
		sup.MaxContestants = *req.MaxContestants
	}
	if req.IsActive != nil {
		sup.IsActive = *req.IsActive
	}
	sup.Normalize()
	ve.Merge(sup.Validate(now))
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if sup.EmployeeID == "" {
			seq, err := tx.Sequences().Next(ctx, model.SequenceSupervisor, now.Year())
			if err != nil {
				return fmt.Errorf("allocate employee id: %w", err)
			}
			sup.EmployeeID = model.FormatEmployeeID(now.Year(), seq)
		}
		return tx.Supervisors().Create(ctx, sup)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create supervisor: %w", err)
	}
	log.Printf("INFO: supervisor %d (%s) created", sup.ID, sup.EmployeeID)
	return sup, nil
}

func (s *SupervisorService) Get(ctx context.Context, id uint) (*model.Supervisor, error) {
	sup, err := s.store.Supervisors().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sup, nil
}

func (s *SupervisorService) List(ctx context.Context, req SupervisorListRequest) (*ListResult[model.Supervisor], error) {
	items, total, err := s.store.Supervisors().List(ctx, repository.SupervisorFilter{
		Search:     model.NormalizeText(req.Search),
		Department: model.NormalizeText(req.Department),
		Active:     req.Active,
		Page:       req.repoPage(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list supervisors: %w", err)
	}
	return newListResult(items, total, req.PageRequest), nil
}

func (s *SupervisorService) Update(ctx context.Context, id uint, req UpdateSupervisorRequest) (*model.Supervisor, error) {
	now := s.now()
	var sup *model.Supervisor
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		sup, err = tx.Supervisors().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previousMax := sup.MaxContestants

		ve := &common.ValidationError{}
		if req.Name != nil {
			sup.Name = *req.Name
		}
		if req.HireDate != nil {
			if t := parseDateField(ve, "hire_date", *req.HireDate, true); !t.IsZero() {
				sup.HireDate = t
			}
		}
		if req.Department != nil {
			sup.Department = *req.Department
		}
		if req.Qualification != nil {
			sup.Qualification = *req.Qualification
		}
		if req.EmployeeID != nil && *req.EmployeeID != "" {
			sup.EmployeeID = *req.EmployeeID
		}
		if req.MaxContestants != nil {
			sup.MaxContestants = *req.MaxContestants
		}
		if req.IsActive != nil {
			sup.IsActive = *req.IsActive
		}
		if req.Notes != nil {
			sup.Notes = *req.Notes
		}
		sup.Normalize()
		ve.Merge(sup.Validate(now))
		if err := ve.OrNil(); err != nil {
			return err
		}

		if sup.MaxContestants < previousMax {
			current, err := tx.Contestants().CountBySupervisor(ctx, id)
			if err != nil {
				return err
			}
			if err := policy.CheckSupervisorLimit(sup.MaxContestants, current); err != nil {
				return err
			}
		}
		return tx.Supervisors().Update(ctx, sup)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update supervisor %d: %w", id, err)
	}
	invalidateStats(ctx, s.cache, cache.SupervisorKey(id))
	return sup, nil
}

// Delete soft-deletes a supervisor that no longer has contestants assigned.
func (s *SupervisorService) Delete(ctx context.Context, id uint) error {
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Supervisors().FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		assigned, err := tx.Contestants().CountBySupervisor(ctx, id)
		if err != nil {
			return err
		}
		if assigned > 0 {
			return fmt.Errorf("supervisor still has %d contestants: %w", assigned, common.ErrStateConflict)
		}
		return tx.Supervisors().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete supervisor %d: %w", id, err)
	}
	invalidateStats(ctx, s.cache, cache.SupervisorKey(id))
	log.Printf("INFO: supervisor %d deleted", id)
	return nil
}

// Statistics reports load and score figures over the supervisor's contestants.
func (s *SupervisorService) Statistics(ctx context.Context, id uint) (*stats.SupervisorStatistics, error) {
	sup, err := s.store.Supervisors().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	st, err := cachedStats(ctx, s.cache, cache.SupervisorKey(id), func() (stats.SupervisorStatistics, error) {
		count, err := s.store.Contestants().CountBySupervisor(ctx, id)
		if err != nil {
			return stats.SupervisorStatistics{}, err
		}
		values, err := s.store.Scores().ValuesBySupervisor(ctx, id)
		if err != nil {
			return stats.SupervisorStatistics{}, err
		}
		return stats.ForSupervisor(sup.MaxContestants, int(count), values), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute statistics for supervisor %d: %w", id, err)
	}
	return &st, nil
}
