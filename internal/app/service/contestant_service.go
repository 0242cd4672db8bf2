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

const SearchLimit = 10

type ContestantService struct {
	store   repository.Store
	cache   StatsCache
	indexer ContestantIndexer
	now     Clock
}

func NewContestantService(store repository.Store, statsCache StatsCache, indexer ContestantIndexer, clock Clock) *ContestantService {
	return &ContestantService{store: store, cache: orNoopCache(statsCache), indexer: indexer, now: orSystemClock(clock)}
}

type CreateContestantRequest struct {
	Name               string `json:"name"`
	BirthDate          string `json:"birth_date"`
	Address            string `json:"address"`
	EducationLevel     string `json:"education_level"`
	RegistrationNumber string `json:"registration_number"`
	SupervisorID       *uint  `json:"supervisor_id,omitempty"`
	IsActive           *bool  `json:"is_active,omitempty"`
	Notes              string `json:"notes"`
}

type UpdateContestantRequest struct {
	Name           *string `json:"name,omitempty"`
	BirthDate      *string `json:"birth_date,omitempty"`
	Address        *string `json:"address,omitempty"`
	EducationLevel *string `json:"education_level,omitempty"`
	SupervisorID   *uint   `json:"supervisor_id,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

type ContestantListRequest struct {
	Search         string
	SupervisorID   *uint
	EducationLevel string
	Active         *bool
	PageRequest
}

// assignSupervisor locks the supervisor row and refuses the assignment when they are full.
func assignSupervisor(ctx context.Context, tx repository.Store, supervisorID uint) error {
	sup, err := tx.Supervisors().FindByIDForUpdate(ctx, supervisorID)
	if err != nil {
		return fmt.Errorf("supervisor %d: %w", supervisorID, err)
	}
	current, err := tx.Contestants().CountBySupervisor(ctx, supervisorID)
	if err != nil {
		return err
	}
	return policy.CheckSupervisorCapacity(sup, current)
}

func (s *ContestantService) Create(ctx context.Context, req CreateContestantRequest) (*model.Contestant, error) {
	now := s.now()
	ve := &common.ValidationError{}
	c := &model.Contestant{
		Name:               req.Name,
		BirthDate:          parseDateField(ve, "birth_date", req.BirthDate, true),
		Address:            req.Address,
		EducationLevel:     req.EducationLevel,
		RegistrationNumber: req.RegistrationNumber,
		SupervisorID:       req.SupervisorID,
		IsActive:           true,
		Notes:              req.Notes,
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	c.Normalize()
	ve.Merge(c.Validate(now))
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if c.SupervisorID != nil {
			if err := assignSupervisor(ctx, tx, *c.SupervisorID); err != nil {
				return err
			}
		}
		if c.RegistrationNumber == "" {
			seq, err := tx.Sequences().Next(ctx, model.SequenceContestant, now.Year())
			if err != nil {
				return fmt.Errorf("allocate registration number: %w", err)
			}
			c.RegistrationNumber = model.FormatRegistrationNumber(now.Year(), seq)
		}
		return tx.Contestants().Create(ctx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create contestant: %w", err)
	}

	s.reindex(ctx, c)
	if c.SupervisorID != nil {
		invalidateStats(ctx, s.cache, cache.SupervisorKey(*c.SupervisorID))
	}
	log.Printf("INFO: contestant %d (%s) registered", c.ID, c.RegistrationNumber)
	return c, nil
}

func (s *ContestantService) Get(ctx context.Context, id uint) (*model.Contestant, error) {
	return s.store.Contestants().FindByID(ctx, id)
}

func (s *ContestantService) List(ctx context.Context, req ContestantListRequest) (*ListResult[model.Contestant], error) {
	items, total, err := s.store.Contestants().List(ctx, repository.ContestantFilter{
		Search:         model.NormalizeText(req.Search),
		SupervisorID:   req.SupervisorID,
		EducationLevel: model.NormalizeText(req.EducationLevel),
		Active:         req.Active,
		Page:           req.repoPage(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list contestants: %w", err)
	}
	return newListResult(items, total, req.PageRequest), nil
}

func (s *ContestantService) Update(ctx context.Context, id uint, req UpdateContestantRequest) (*model.Contestant, error) {
	now := s.now()
	var c *model.Contestant
	var previousSupervisor *uint
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		c, err = tx.Contestants().FindByID(ctx, id)
		if err != nil {
			return err
		}
		previousSupervisor = c.SupervisorID

		ve := &common.ValidationError{}
		if req.Name != nil {
			c.Name = *req.Name
		}
		if req.BirthDate != nil {
			if t := parseDateField(ve, "birth_date", *req.BirthDate, true); !t.IsZero() {
				c.BirthDate = t
			}
		}
		if req.Address != nil {
			c.Address = *req.Address
		}
		if req.EducationLevel != nil {
			c.EducationLevel = *req.EducationLevel
		}
		if req.IsActive != nil {
			c.IsActive = *req.IsActive
		}
		if req.Notes != nil {
			c.Notes = *req.Notes
		}
		c.Normalize()
		ve.Merge(c.Validate(now))
		if err := ve.OrNil(); err != nil {
			return err
		}

		// Capacity is only re-checked when the contestant moves to another supervisor.
		if req.SupervisorID != nil && !c.SupervisedBy(*req.SupervisorID) {
			if err := assignSupervisor(ctx, tx, *req.SupervisorID); err != nil {
				return err
			}
			newSupervisor := *req.SupervisorID
			c.SupervisorID = &newSupervisor
		}
		return tx.Contestants().Update(ctx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update contestant %d: %w", id, err)
	}

	s.reindex(ctx, c)
	keys := []string{}
	if previousSupervisor != nil {
		keys = append(keys, cache.SupervisorKey(*previousSupervisor))
	}
	if c.SupervisorID != nil {
		keys = append(keys, cache.SupervisorKey(*c.SupervisorID))
	}
	invalidateStats(ctx, s.cache, keys...)
	return c, nil
}

// Delete soft-deletes the contestant together with their scores.
func (s *ContestantService) Delete(ctx context.Context, id uint) error {
	var c *model.Contestant
	var scored []model.Score
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		c, err = tx.Contestants().FindByID(ctx, id)
		if err != nil {
			return err
		}
		scored, _, err = tx.Scores().List(ctx, repository.ScoreFilter{ContestantID: &id})
		if err != nil {
			return err
		}
		if err := tx.Scores().DeleteByContestant(ctx, id); err != nil {
			return err
		}
		return tx.Contestants().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete contestant %d: %w", id, err)
	}

	if s.indexer != nil {
		if err := s.indexer.DeleteContestant(ctx, id); err != nil {
			log.Printf("WARN: failed to remove contestant %d from search index: %v", id, err)
		}
	}
	keys := []string{}
	if c.SupervisorID != nil {
		keys = append(keys, cache.SupervisorKey(*c.SupervisorID))
	}
	for _, sc := range scored {
		keys = append(keys, cache.CompetitionKey(sc.CompetitionID))
	}
	invalidateStats(ctx, s.cache, keys...)
	log.Printf("INFO: contestant %d deleted with %d scores", id, len(scored))
	return nil
}

// Search looks contestants up by name or registration number, at most SearchLimit of them.
// The search index is tried first; the database answers when the index is absent or failing.
func (s *ContestantService) Search(ctx context.Context, term string, supervisorID *uint) ([]model.Contestant, error) {
	term = model.NormalizeText(term)
	if s.indexer != nil && term != "" {
		ids, err := s.indexer.SearchContestants(ctx, term, supervisorID, SearchLimit)
		if err == nil {
			return s.loadInOrder(ctx, ids)
		}
		log.Printf("WARN: contestant search index failed, falling back to database: %v", err)
	}
	found, err := s.store.Contestants().Search(ctx, term, supervisorID, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search contestants: %w", err)
	}
	return found, nil
}

func (s *ContestantService) loadInOrder(ctx context.Context, ids []uint) ([]model.Contestant, error) {
	if len(ids) == 0 {
		return []model.Contestant{}, nil
	}
	rows, err := s.store.Contestants().FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load contestants: %w", err)
	}
	byID := make(map[uint]model.Contestant, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]model.Contestant, 0, len(ids))
	for _, id := range ids {
		// The index can briefly hold contestants that were already deleted.
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Average is the mean of all the contestant's scores, 0 with none.
func (s *ContestantService) Average(ctx context.Context, id uint) (float64, error) {
	if _, err := s.store.Contestants().FindByID(ctx, id); err != nil {
		return 0, err
	}
	values, err := s.store.Scores().ValuesByContestant(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to load scores of contestant %d: %w", id, err)
	}
	return stats.Mean(values), nil
}

// LatestScore is the most recently recorded score of the contestant, with its result.
func (s *ContestantService) LatestScore(ctx context.Context, id uint) (*model.Score, error) {
	if _, err := s.store.Contestants().FindByID(ctx, id); err != nil {
		return nil, err
	}
	sc, err := s.store.Scores().LatestByContestant(ctx, id)
	if err != nil {
		return nil, err
	}
	comp, err := s.store.Competitions().FindByID(ctx, sc.CompetitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load competition %d: %w", sc.CompetitionID, err)
	}
	return sc.WithResult(comp), nil
}

func (s *ContestantService) reindex(ctx context.Context, c *model.Contestant) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexContestant(ctx, c); err != nil {
		log.Printf("WARN: failed to index contestant %d: %v", c.ID, err)
	}
}
