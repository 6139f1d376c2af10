package repository

import (
	"context"

	"gorm.io/gorm"
)

// gormSequence is a pagination.Sequence over a prepared query. The query is
// kept in a reusable session so Count and Window do not leak into each other.
type gormSequence[T any] struct {
	db    *gorm.DB
	order string
}

func newGormSequence[T any](db *gorm.DB, order string) gormSequence[T] {
	if db == nil {
		return gormSequence[T]{order: order}
	}
	return gormSequence[T]{db: db.Model(new(T)).Session(&gorm.Session{}), order: order}
}

func (s gormSequence[T]) where(query interface{}, args ...interface{}) gormSequence[T] {
	if s.db == nil {
		return s
	}
	return gormSequence[T]{db: s.db.Where(query, args...).Session(&gorm.Session{}), order: s.order}
}

func (s gormSequence[T]) Count(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, ErrDBNotReady
	}
	var total int64
	if err := s.db.WithContext(ctx).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s gormSequence[T]) Window(ctx context.Context, offset, limit int) ([]T, error) {
	if s.db == nil {
		return nil, ErrDBNotReady
	}
	var items []T
	if err := s.db.WithContext(ctx).
		Order(s.order).
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
