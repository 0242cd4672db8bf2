package repository

import (
	"context"

	"contest_registry/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SupervisorRepository interface {
	Create(ctx context.Context, s *model.Supervisor) error
	Update(ctx context.Context, s *model.Supervisor) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Supervisor, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Supervisor, error)
	FindByName(ctx context.Context, name string) (*model.Supervisor, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Supervisor, error)
	List(ctx context.Context, f SupervisorFilter) ([]model.Supervisor, int64, error)
}

type gormSupervisorRepository struct {
	db *gorm.DB
}

func (r *gormSupervisorRepository) Create(ctx context.Context, s *model.Supervisor) error {
	return translateError("create supervisor", r.db.WithContext(ctx).Create(s).Error)
}

func (r *gormSupervisorRepository) Update(ctx context.Context, s *model.Supervisor) error {
	return translateError("update supervisor", r.db.WithContext(ctx).Save(s).Error)
}

func (r *gormSupervisorRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Supervisor{}, id)
	if res.Error == nil && res.RowsAffected == 0 {
		return translateError("delete supervisor", gorm.ErrRecordNotFound)
	}
	return translateError("delete supervisor", res.Error)
}

func (r *gormSupervisorRepository) FindByID(ctx context.Context, id uint) (*model.Supervisor, error) {
	var s model.Supervisor
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, translateError("find supervisor", err)
	}
	return &s, nil
}

func (r *gormSupervisorRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Supervisor, error) {
	var s model.Supervisor
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, id).Error
	if err != nil {
		return nil, translateError("lock supervisor", err)
	}
	return &s, nil
}

func (r *gormSupervisorRepository) FindByName(ctx context.Context, name string) (*model.Supervisor, error) {
	var s model.Supervisor
	if err := r.db.WithContext(ctx).Where("name = ?", name).Order("id").First(&s).Error; err != nil {
		return nil, translateError("find supervisor by name", err)
	}
	return &s, nil
}

func (r *gormSupervisorRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Supervisor, error) {
	var out []model.Supervisor
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, translateError("find supervisors", err)
	}
	return out, nil
}

func (r *gormSupervisorRepository) List(ctx context.Context, f SupervisorFilter) ([]model.Supervisor, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Supervisor{})
	if f.Search != "" {
		q = q.Where("name ILIKE ? OR employee_id ILIKE ?", likePattern(f.Search), likePattern(f.Search))
	}
	if f.Department != "" {
		q = q.Where("department = ?", f.Department)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}

	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError("count supervisors", err)
	}
	var out []model.Supervisor
	if err := paginate(q.Order("name"), f.Page).Find(&out).Error; err != nil {
		return nil, 0, translateError("list supervisors", err)
	}
	return out, total, nil
}
