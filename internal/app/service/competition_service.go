package service

import (
	"context"
	"fmt"
	"log"

	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"
	"contest_registry/internal/domain/repository"
	"contest_registry/internal/domain/stats"
	"contest_registry/internal/platform/cache"
)

type CompetitionService struct {
	store repository.Store
	cache StatsCache
	now   Clock
}

func NewCompetitionService(store repository.Store, statsCache StatsCache, clock Clock) *CompetitionService {
	return &CompetitionService{store: store, cache: orNoopCache(statsCache), now: orSystemClock(clock)}
}

type CreateCompetitionRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	MaxScore       *float64 `json:"max_score,omitempty"`
	PassingScore   *float64 `json:"passing_score,omitempty"`
	MaxContestants *int     `json:"max_contestants,omitempty"`
	Notes          string   `json:"notes"`
}

type UpdateCompetitionRequest struct {
	Title          *string  `json:"title,omitempty"`
	Description    *string  `json:"description,omitempty"`
	StartDate      *string  `json:"start_date,omitempty"`
	EndDate        *string  `json:"end_date,omitempty"`
	MaxScore       *float64 `json:"max_score,omitempty"`
	PassingScore   *float64 `json:"passing_score,omitempty"`
	MaxContestants *int     `json:"max_contestants,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
}

type CompetitionListRequest struct {
	Search string
	Status model.CompetitionStatus
	PageRequest
}

// ScoreChange is one entry of a bulk score edit.
type ScoreChange struct {
	ContestantID uint    `json:"contestant_id"`
	ScoreValue   float64 `json:"score_value"`
	Notes        *string `json:"notes,omitempty"`
}

func (s *CompetitionService) Create(ctx context.Context, req CreateCompetitionRequest) (*model.Competition, error) {
	ve := &common.ValidationError{}
	c := &model.Competition{
		Title:          req.Title,
		Description:    req.Description,
		StartDate:      parseDateField(ve, "start_date", req.StartDate, true),
		EndDate:        parseDateField(ve, "end_date", req.EndDate, true),
		MaxScore:       model.DefaultMaxScore,
		PassingScore:   model.DefaultPassingScore,
		MaxContestants: model.DefaultCompetitionMaxContestants,
		Notes:          req.Notes,
	}
	if req.MaxScore != nil {
		c.MaxScore = *req.MaxScore
	}
	if req.PassingScore != nil {
		c.PassingScore = *req.PassingScore
	}
	if req.MaxContestants != nil {
		c.MaxContestants = *req.MaxContestants
	}
	c.Normalize()
	ve.Merge(c.Validate())
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	if err := s.store.Competitions().Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create competition: %w", err)
	}
	log.Printf("INFO: competition %d %q created", c.ID, c.Title)
	return c.WithStatus(s.now()), nil
}

func (s *CompetitionService) Get(ctx context.Context, id uint) (*model.Competition, error) {
	c, err := s.store.Competitions().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.WithStatus(s.now()), nil
}

func (s *CompetitionService) List(ctx context.Context, req CompetitionListRequest) (*ListResult[model.Competition], error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, common.NewValidationError("status", "must be one of upcoming, ongoing, ended")
	}
	now := s.now()
	items, total, err := s.store.Competitions().List(ctx, repository.CompetitionFilter{
		Search: model.NormalizeText(req.Search),
		Status: req.Status,
		Today:  model.DateOnly(now),
		Page:   req.repoPage(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	for i := range items {
		items[i].WithStatus(now)
	}
	return newListResult(items, total, req.PageRequest), nil
}

func (s *CompetitionService) Update(ctx context.Context, id uint, req UpdateCompetitionRequest) (*model.Competition, error) {
	var c *model.Competition
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		c, err = tx.Competitions().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		ve := &common.ValidationError{}
		if req.Title != nil {
			c.Title = *req.Title
		}
		if req.Description != nil {
			c.Description = *req.Description
		}
		if req.StartDate != nil {
			if t := parseDateField(ve, "start_date", *req.StartDate, true); !t.IsZero() {
				c.StartDate = t
			}
		}
		if req.EndDate != nil {
			if t := parseDateField(ve, "end_date", *req.EndDate, true); !t.IsZero() {
				c.EndDate = t
			}
		}
		if req.MaxScore != nil {
			c.MaxScore = *req.MaxScore
		}
		if req.PassingScore != nil {
			c.PassingScore = *req.PassingScore
		}
		if req.MaxContestants != nil {
			c.MaxContestants = *req.MaxContestants
		}
		if req.Notes != nil {
			c.Notes = *req.Notes
		}
		c.Normalize()
		ve.Merge(c.Validate())
		if err := ve.OrNil(); err != nil {
			return err
		}
		return tx.Competitions().Update(ctx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update competition %d: %w", id, err)
	}
	invalidateStats(ctx, s.cache, cache.CompetitionKey(id))
	return c.WithStatus(s.now()), nil
}

// Delete soft-deletes a competition that has no recorded scores.
func (s *CompetitionService) Delete(ctx context.Context, id uint) error {
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Competitions().FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		recorded, err := tx.Scores().CountByCompetition(ctx, id)
		if err != nil {
			return err
		}
		if recorded > 0 {
			return fmt.Errorf("competition still has %d scores: %w", recorded, common.ErrStateConflict)
		}
		return tx.Competitions().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete competition %d: %w", id, err)
	}
	invalidateStats(ctx, s.cache, cache.CompetitionKey(id))
	log.Printf("INFO: competition %d deleted", id)
	return nil
}

// Statistics summarises pass/fail counts and the average of one competition.
func (s *CompetitionService) Statistics(ctx context.Context, id uint) (*stats.CompetitionStatistics, error) {
	c, err := s.store.Competitions().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	st, err := cachedStats(ctx, s.cache, cache.CompetitionKey(id), func() (stats.CompetitionStatistics, error) {
		values, err := s.store.Scores().ValuesByCompetition(ctx, id)
		if err != nil {
			return stats.CompetitionStatistics{}, err
		}
		return stats.ForCompetition(c.PassingScore, values), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute statistics for competition %d: %w", id, err)
	}
	return &st, nil
}

// UpdateScores applies every change or none. The competition must be ongoing and
// each contestant must already have a score in it.
func (s *CompetitionService) UpdateScores(ctx context.Context, id uint, changes []ScoreChange) ([]model.Score, error) {
	if len(changes) == 0 {
		return nil, common.NewValidationError("scores", "at least one score is required")
	}
	now := s.now()
	updated := make([]model.Score, 0, len(changes))
	stale := map[string]struct{}{cache.CompetitionKey(id): {}}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		comp, err := tx.Competitions().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if status := comp.StatusAt(now); status != model.CompetitionOngoing {
			return fmt.Errorf("competition is %s: %w", status, common.ErrStateConflict)
		}

		for _, ch := range changes {
			sc, err := tx.Scores().FindByPair(ctx, ch.ContestantID, id)
			if err != nil {
				return fmt.Errorf("score of contestant %d: %w", ch.ContestantID, err)
			}
			sc.ScoreValue = ch.ScoreValue
			if ch.Notes != nil {
				sc.Notes = model.NormalizeText(*ch.Notes)
			}
			if err := sc.Validate(comp); err != nil {
				return fmt.Errorf("score of contestant %d: %w", ch.ContestantID, err)
			}
			if err := tx.Scores().Update(ctx, sc); err != nil {
				return err
			}
			keys, err := scoreStatsKeys(ctx, tx, sc)
			if err != nil {
				return err
			}
			for _, k := range keys {
				stale[k] = struct{}{}
			}
			updated = append(updated, *sc.WithResult(comp))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update scores of competition %d: %w", id, err)
	}

	keys := make([]string, 0, len(stale))
	for k := range stale {
		keys = append(keys, k)
	}
	invalidateStats(ctx, s.cache, keys...)
	log.Printf("INFO: %d scores of competition %d updated", len(updated), id)
	return updated, nil
}
