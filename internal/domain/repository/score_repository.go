package repository

import (
	"context"

	"contest_registry/internal/domain/model"

	"gorm.io/gorm"
)

type ScoreRepository interface {
	Create(ctx context.Context, s *model.Score) error
	Update(ctx context.Context, s *model.Score) error
	Delete(ctx context.Context, id uint) error
	DeleteByContestant(ctx context.Context, contestantID uint) error
	FindByID(ctx context.Context, id uint) (*model.Score, error)
	FindByPair(ctx context.Context, contestantID, competitionID uint) (*model.Score, error)
	LatestByContestant(ctx context.Context, contestantID uint) (*model.Score, error)
	CountByCompetition(ctx context.Context, competitionID uint) (int64, error)
	// CountHigher counts scores in the competition strictly above value.
	CountHigher(ctx context.Context, competitionID uint, value float64) (int64, error)
	ValuesByCompetition(ctx context.Context, competitionID uint) ([]float64, error)
	ValuesByContestant(ctx context.Context, contestantID uint) ([]float64, error)
	// ValuesBySupervisor returns the scores of the supervisor's current contestants.
	ValuesBySupervisor(ctx context.Context, supervisorID uint) ([]float64, error)
	List(ctx context.Context, f ScoreFilter) ([]model.Score, int64, error)
}

type gormScoreRepository struct {
	db *gorm.DB
}

func (r *gormScoreRepository) Create(ctx context.Context, s *model.Score) error {
	return translateError("create score", r.db.WithContext(ctx).Create(s).Error)
}

func (r *gormScoreRepository) Update(ctx context.Context, s *model.Score) error {
	return translateError("update score", r.db.WithContext(ctx).Save(s).Error)
}

func (r *gormScoreRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Score{}, id)
	if res.Error == nil && res.RowsAffected == 0 {
		return translateError("delete score", gorm.ErrRecordNotFound)
	}
	return translateError("delete score", res.Error)
}

func (r *gormScoreRepository) DeleteByContestant(ctx context.Context, contestantID uint) error {
	err := r.db.WithContext(ctx).Where("contestant_id = ?", contestantID).Delete(&model.Score{}).Error
	return translateError("delete contestant scores", err)
}

func (r *gormScoreRepository) FindByID(ctx context.Context, id uint) (*model.Score, error) {
	var s model.Score
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, translateError("find score", err)
	}
	return &s, nil
}

func (r *gormScoreRepository) FindByPair(ctx context.Context, contestantID, competitionID uint) (*model.Score, error) {
	var s model.Score
	err := r.db.WithContext(ctx).
		Where("contestant_id = ? AND competition_id = ?", contestantID, competitionID).
		First(&s).Error
	if err != nil {
		return nil, translateError("find score", err)
	}
	return &s, nil
}

func (r *gormScoreRepository) LatestByContestant(ctx context.Context, contestantID uint) (*model.Score, error) {
	var s model.Score
	err := r.db.WithContext(ctx).
		Where("contestant_id = ?", contestantID).
		Order("created_at DESC, id DESC").
		First(&s).Error
	if err != nil {
		return nil, translateError("find latest score", err)
	}
	return &s, nil
}

func (r *gormScoreRepository) CountByCompetition(ctx context.Context, competitionID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Score{}).Where("competition_id = ?", competitionID).Count(&n).Error
	return n, translateError("count scores", err)
}

func (r *gormScoreRepository) CountHigher(ctx context.Context, competitionID uint, value float64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Score{}).
		Where("competition_id = ? AND score_value > ?", competitionID, value).
		Count(&n).Error
	return n, translateError("count higher scores", err)
}

func (r *gormScoreRepository) ValuesByCompetition(ctx context.Context, competitionID uint) ([]float64, error) {
	var values []float64
	err := r.db.WithContext(ctx).Model(&model.Score{}).
		Where("competition_id = ?", competitionID).
		Pluck("score_value", &values).Error
	return values, translateError("competition score values", err)
}

func (r *gormScoreRepository) ValuesByContestant(ctx context.Context, contestantID uint) ([]float64, error) {
	var values []float64
	err := r.db.WithContext(ctx).Model(&model.Score{}).
		Where("contestant_id = ?", contestantID).
		Pluck("score_value", &values).Error
	return values, translateError("contestant score values", err)
}

func (r *gormScoreRepository) ValuesBySupervisor(ctx context.Context, supervisorID uint) ([]float64, error) {
	var values []float64
	err := r.db.WithContext(ctx).Model(&model.Score{}).
		Joins("JOIN contestants ON contestants.id = scores.contestant_id AND contestants.deleted_at IS NULL").
		Where("contestants.supervisor_id = ?", supervisorID).
		Pluck("scores.score_value", &values).Error
	return values, translateError("supervisor score values", err)
}

func (r *gormScoreRepository) List(ctx context.Context, f ScoreFilter) ([]model.Score, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Score{})
	if f.CompetitionID != nil {
		q = q.Where("competition_id = ?", *f.CompetitionID)
	}
	if f.ContestantID != nil {
		q = q.Where("contestant_id = ?", *f.ContestantID)
	}
	if f.SupervisorID != nil {
		q = q.Where("supervisor_id = ?", *f.SupervisorID)
	}

	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError("count scores", err)
	}
	var out []model.Score
	if err := paginate(q.Order("entry_date DESC, id DESC"), f.Page).Find(&out).Error; err != nil {
		return nil, 0, translateError("list scores", err)
	}
	return out, total, nil
}
