package repository

import (
	"context"

	"gorm.io/gorm"
)

type SequenceRepository interface {
	// Next atomically allocates the next value of the (name, year) sequence, starting at 1.
	Next(ctx context.Context, name string, year int) (int64, error)
}

type gormSequenceRepository struct {
	db *gorm.DB
}

func (r *gormSequenceRepository) Next(ctx context.Context, name string, year int) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO id_sequences (name, year, value) VALUES (?, ?, 1)
		ON CONFLICT (name, year) DO UPDATE SET value = id_sequences.value + 1
		RETURNING value`, name, year).Scan(&value).Error
	return value, translateError("next sequence value", err)
}
