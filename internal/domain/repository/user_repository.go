package repository

import (
	"context"

	"contest_registry/internal/domain/model"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id uint) (*model.User, error)
	List(ctx context.Context, p Page) ([]model.User, int64, error)
	Count(ctx context.Context) (int64, error)
}

type gormUserRepository struct {
	db *gorm.DB
}

func (r *gormUserRepository) Create(ctx context.Context, user *model.User) error {
	return translateError("create user", r.db.WithContext(ctx).Create(user).Error)
}

func (r *gormUserRepository) Update(ctx context.Context, user *model.User) error {
	return translateError("update user", r.db.WithContext(ctx).Save(user).Error)
}

func (r *gormUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translateError("find user by username", err)
	}
	return &u, nil
}

func (r *gormUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translateError("find user", err)
	}
	return &u, nil
}

func (r *gormUserRepository) List(ctx context.Context, p Page) ([]model.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.User{}).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError("count users", err)
	}
	var out []model.User
	if err := paginate(q.Order("username"), p).Find(&out).Error; err != nil {
		return nil, 0, translateError("list users", err)
	}
	return out, total, nil
}

func (r *gormUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error
	return n, translateError("count users", err)
}
