package repository

import (
	"context"

	"contest_registry/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CompetitionRepository interface {
	Create(ctx context.Context, c *model.Competition) error
	Update(ctx context.Context, c *model.Competition) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Competition, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Competition, error)
	FindByTitle(ctx context.Context, title string) (*model.Competition, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Competition, error)
	List(ctx context.Context, f CompetitionFilter) ([]model.Competition, int64, error)
}

type gormCompetitionRepository struct {
	db *gorm.DB
}

func (r *gormCompetitionRepository) Create(ctx context.Context, c *model.Competition) error {
	return translateError("create competition", r.db.WithContext(ctx).Create(c).Error)
}

func (r *gormCompetitionRepository) Update(ctx context.Context, c *model.Competition) error {
	return translateError("update competition", r.db.WithContext(ctx).Save(c).Error)
}

func (r *gormCompetitionRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Competition{}, id)
	if res.Error == nil && res.RowsAffected == 0 {
		return translateError("delete competition", gorm.ErrRecordNotFound)
	}
	return translateError("delete competition", res.Error)
}

func (r *gormCompetitionRepository) FindByID(ctx context.Context, id uint) (*model.Competition, error) {
	var c model.Competition
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translateError("find competition", err)
	}
	return &c, nil
}

func (r *gormCompetitionRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Competition, error) {
	var c model.Competition
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, id).Error
	if err != nil {
		return nil, translateError("lock competition", err)
	}
	return &c, nil
}

func (r *gormCompetitionRepository) FindByTitle(ctx context.Context, title string) (*model.Competition, error) {
	var c model.Competition
	if err := r.db.WithContext(ctx).Where("title = ?", title).Order("id").First(&c).Error; err != nil {
		return nil, translateError("find competition by title", err)
	}
	return &c, nil
}

func (r *gormCompetitionRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Competition, error) {
	var out []model.Competition
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, translateError("find competitions", err)
	}
	return out, nil
}

func (r *gormCompetitionRepository) List(ctx context.Context, f CompetitionFilter) ([]model.Competition, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Competition{})
	if f.Search != "" {
		q = q.Where("title ILIKE ?", likePattern(f.Search))
	}
	// Status is never stored; translate it into date predicates.
	today := model.DateOnly(f.Today)
	switch f.Status {
	case model.CompetitionUpcoming:
		q = q.Where("start_date > ?", today)
	case model.CompetitionOngoing:
		q = q.Where("start_date <= ? AND end_date >= ?", today, today)
	case model.CompetitionEnded:
		q = q.Where("end_date < ?", today)
	}

	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError("count competitions", err)
	}
	var out []model.Competition
	if err := paginate(q.Order("start_date DESC, id DESC"), f.Page).Find(&out).Error; err != nil {
		return nil, 0, translateError("list competitions", err)
	}
	return out, total, nil
}
