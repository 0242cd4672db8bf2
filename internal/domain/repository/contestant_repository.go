package repository

import (
	"context"

	"contest_registry/internal/domain/model"

	"gorm.io/gorm"
)

type ContestantRepository interface {
	Create(ctx context.Context, c *model.Contestant) error
	Update(ctx context.Context, c *model.Contestant) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Contestant, error)
	FindByName(ctx context.Context, name string) (*model.Contestant, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Contestant, error)
	CountBySupervisor(ctx context.Context, supervisorID uint) (int64, error)
	List(ctx context.Context, f ContestantFilter) ([]model.Contestant, int64, error)
	// Search matches name or registration number, case-insensitively.
	Search(ctx context.Context, term string, supervisorID *uint, limit int) ([]model.Contestant, error)
}

type gormContestantRepository struct {
	db *gorm.DB
}

func (r *gormContestantRepository) Create(ctx context.Context, c *model.Contestant) error {
	return translateError("create contestant", r.db.WithContext(ctx).Create(c).Error)
}

func (r *gormContestantRepository) Update(ctx context.Context, c *model.Contestant) error {
	return translateError("update contestant", r.db.WithContext(ctx).Save(c).Error)
}

func (r *gormContestantRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Contestant{}, id)
	if res.Error == nil && res.RowsAffected == 0 {
		return translateError("delete contestant", gorm.ErrRecordNotFound)
	}
	return translateError("delete contestant", res.Error)
}

func (r *gormContestantRepository) FindByID(ctx context.Context, id uint) (*model.Contestant, error) {
	var c model.Contestant
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translateError("find contestant", err)
	}
	return &c, nil
}

func (r *gormContestantRepository) FindByName(ctx context.Context, name string) (*model.Contestant, error) {
	var c model.Contestant
	if err := r.db.WithContext(ctx).Where("name = ?", name).Order("id").First(&c).Error; err != nil {
		return nil, translateError("find contestant by name", err)
	}
	return &c, nil
}

func (r *gormContestantRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Contestant, error) {
	var out []model.Contestant
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, translateError("find contestants", err)
	}
	return out, nil
}

func (r *gormContestantRepository) CountBySupervisor(ctx context.Context, supervisorID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Contestant{}).Where("supervisor_id = ?", supervisorID).Count(&n).Error
	return n, translateError("count contestants", err)
}

func (r *gormContestantRepository) List(ctx context.Context, f ContestantFilter) ([]model.Contestant, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Contestant{})
	if f.Search != "" {
		q = q.Where("name ILIKE ? OR registration_number ILIKE ?", likePattern(f.Search), likePattern(f.Search))
	}
	if f.SupervisorID != nil {
		q = q.Where("supervisor_id = ?", *f.SupervisorID)
	}
	if f.EducationLevel != "" {
		q = q.Where("education_level = ?", f.EducationLevel)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}

	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError("count contestants", err)
	}
	var out []model.Contestant
	if err := paginate(q.Order("name"), f.Page).Find(&out).Error; err != nil {
		return nil, 0, translateError("list contestants", err)
	}
	return out, total, nil
}

func (r *gormContestantRepository) Search(ctx context.Context, term string, supervisorID *uint, limit int) ([]model.Contestant, error) {
	q := r.db.WithContext(ctx).
		Where("name ILIKE ? OR registration_number ILIKE ?", likePattern(term), likePattern(term))
	if supervisorID != nil {
		q = q.Where("supervisor_id = ?", *supervisorID)
	}
	var out []model.Contestant
	if err := q.Order("name").Limit(limit).Find(&out).Error; err != nil {
		return nil, translateError("search contestants", err)
	}
	return out, nil
}
