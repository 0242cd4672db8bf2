package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"
	"contest_registry/internal/domain/policy"
	"contest_registry/internal/domain/repository"
	"contest_registry/internal/platform/cache"
	"contest_registry/internal/platform/metrics"
)

type ScoreService struct {
	store repository.Store
	cache StatsCache
	now   Clock
}

func NewScoreService(store repository.Store, statsCache StatsCache, clock Clock) *ScoreService {
	return &ScoreService{store: store, cache: orNoopCache(statsCache), now: orSystemClock(clock)}
}

type RecordScoreRequest struct {
	CompetitionID uint    `json:"competition_id"`
	ContestantID  uint    `json:"contestant_id"`
	SupervisorID  uint    `json:"supervisor_id"`
	ScoreValue    float64 `json:"score_value"`
	Notes         string  `json:"notes"`
	// EntryDate defaults to now when empty.
	EntryDate string `json:"entry_date,omitempty"`
}

type UpdateScoreRequest struct {
	ScoreValue *float64 `json:"score_value,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
}

type ScoreListRequest struct {
	CompetitionID *uint
	ContestantID  *uint
	SupervisorID  *uint
	PageRequest
}

// Record stores a contestant's score in a competition. The competition row stays locked
// until commit so concurrent recordings cannot overfill it.
func (s *ScoreService) Record(ctx context.Context, req RecordScoreRequest) (*model.Score, error) {
	now := s.now()
	sc := &model.Score{
		CompetitionID: req.CompetitionID,
		ContestantID:  req.ContestantID,
		SupervisorID:  req.SupervisorID,
		ScoreValue:    req.ScoreValue,
		Notes:         model.NormalizeText(req.Notes),
		EntryDate:     now,
	}
	if req.EntryDate != "" {
		t, err := model.ParseTimestamp(req.EntryDate)
		if err != nil {
			return nil, common.NewValidationError("entry_date", "must be an RFC 3339 timestamp or YYYY-MM-DD date")
		}
		sc.EntryDate = t
	}

	var comp *model.Competition
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		comp, err = tx.Competitions().FindByIDForUpdate(ctx, req.CompetitionID)
		if err != nil {
			return fmt.Errorf("competition %d: %w", req.CompetitionID, err)
		}
		contestant, err := tx.Contestants().FindByID(ctx, req.ContestantID)
		if err != nil {
			return fmt.Errorf("contestant %d: %w", req.ContestantID, err)
		}
		if _, err := tx.Supervisors().FindByID(ctx, req.SupervisorID); err != nil {
			return fmt.Errorf("supervisor %d: %w", req.SupervisorID, err)
		}

		if err := sc.Validate(comp); err != nil {
			return err
		}
		if status := comp.StatusAt(now); status != model.CompetitionOngoing {
			return fmt.Errorf("competition is %s: %w", status, common.ErrStateConflict)
		}
		if err := policy.CheckGradingSupervisor(contestant, req.SupervisorID); err != nil {
			return err
		}

		if _, err := tx.Scores().FindByPair(ctx, req.ContestantID, req.CompetitionID); err == nil {
			return fmt.Errorf("contestant %d already has a score in competition %d: %w", req.ContestantID, req.CompetitionID, common.ErrConflict)
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		current, err := tx.Scores().CountByCompetition(ctx, req.CompetitionID)
		if err != nil {
			return err
		}
		if err := policy.CheckCompetitionCapacity(comp, current); err != nil {
			return err
		}
		return tx.Scores().Create(ctx, sc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record score: %w", err)
	}

	metrics.ScoresRecorded.Inc()
	invalidateStats(ctx, s.cache, cache.CompetitionKey(sc.CompetitionID), cache.SupervisorKey(sc.SupervisorID))
	log.Printf("INFO: score %d recorded for contestant %d in competition %d", sc.ID, sc.ContestantID, sc.CompetitionID)
	return sc.WithResult(comp), nil
}

// Update changes the value or notes of a score while its competition is ongoing.
func (s *ScoreService) Update(ctx context.Context, id uint, req UpdateScoreRequest) (*model.Score, error) {
	now := s.now()
	var sc *model.Score
	var comp *model.Competition
	var keys []string
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		sc, err = tx.Scores().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if keys, err = scoreStatsKeys(ctx, tx, sc); err != nil {
			return err
		}
		comp, err = tx.Competitions().FindByIDForUpdate(ctx, sc.CompetitionID)
		if err != nil {
			return fmt.Errorf("competition %d: %w", sc.CompetitionID, err)
		}
		if status := comp.StatusAt(now); status != model.CompetitionOngoing {
			return fmt.Errorf("competition is %s: %w", status, common.ErrStateConflict)
		}

		if req.ScoreValue != nil {
			sc.ScoreValue = *req.ScoreValue
		}
		if req.Notes != nil {
			sc.Notes = model.NormalizeText(*req.Notes)
		}
		if err := sc.Validate(comp); err != nil {
			return err
		}
		return tx.Scores().Update(ctx, sc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update score %d: %w", id, err)
	}
	invalidateStats(ctx, s.cache, keys...)
	return sc.WithResult(comp), nil
}

func (s *ScoreService) Delete(ctx context.Context, id uint) error {
	var keys []string
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		sc, err := tx.Scores().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if keys, err = scoreStatsKeys(ctx, tx, sc); err != nil {
			return err
		}
		return tx.Scores().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete score %d: %w", id, err)
	}
	invalidateStats(ctx, s.cache, keys...)
	return nil
}

// scoreStatsKeys lists the cached statistics a change to sc makes stale. Supervisor
// statistics follow the contestant's current supervisor, which may differ from the
// one who graded the score.
func scoreStatsKeys(ctx context.Context, tx repository.Store, sc *model.Score) ([]string, error) {
	keys := []string{cache.CompetitionKey(sc.CompetitionID), cache.SupervisorKey(sc.SupervisorID)}
	c, err := tx.Contestants().FindByID(ctx, sc.ContestantID)
	if errors.Is(err, common.ErrNotFound) {
		return keys, nil
	}
	if err != nil {
		return nil, fmt.Errorf("contestant %d: %w", sc.ContestantID, err)
	}
	if c.SupervisorID != nil && *c.SupervisorID != sc.SupervisorID {
		keys = append(keys, cache.SupervisorKey(*c.SupervisorID))
	}
	return keys, nil
}

func (s *ScoreService) Get(ctx context.Context, id uint) (*model.Score, error) {
	sc, err := s.store.Scores().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comp, err := s.store.Competitions().FindByID(ctx, sc.CompetitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load competition %d: %w", sc.CompetitionID, err)
	}
	return sc.WithResult(comp), nil
}

func (s *ScoreService) List(ctx context.Context, req ScoreListRequest) (*ListResult[model.Score], error) {
	items, total, err := s.store.Scores().List(ctx, repository.ScoreFilter{
		CompetitionID: req.CompetitionID,
		ContestantID:  req.ContestantID,
		SupervisorID:  req.SupervisorID,
		Page:          req.repoPage(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	if err := s.attachResults(ctx, items); err != nil {
		return nil, err
	}
	return newListResult(items, total, req.PageRequest), nil
}

func (s *ScoreService) attachResults(ctx context.Context, items []model.Score) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(items))
	for _, sc := range items {
		ids = append(ids, sc.CompetitionID)
	}
	comps, err := s.store.Competitions().FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load competitions: %w", err)
	}
	byID := make(map[uint]*model.Competition, len(comps))
	for i := range comps {
		byID[comps[i].ID] = &comps[i]
	}
	for i := range items {
		if comp, ok := byID[items[i].CompetitionID]; ok {
			items[i].WithResult(comp)
		}
	}
	return nil
}

// Rank is 1 plus the number of strictly higher scores in the same competition.
func (s *ScoreService) Rank(ctx context.Context, id uint) (int, error) {
	sc, err := s.store.Scores().FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	higher, err := s.store.Scores().CountHigher(ctx, sc.CompetitionID, sc.ScoreValue)
	if err != nil {
		return 0, fmt.Errorf("failed to rank score %d: %w", id, err)
	}
	return int(higher) + 1, nil
}
