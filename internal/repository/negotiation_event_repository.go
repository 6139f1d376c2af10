package repository

import (
	"context"

	"github.com/shinyyama/internship-market/internal/model"
	"gorm.io/gorm"
)

type NegotiationEventRepository interface {
	Create(ctx context.Context, e *model.NegotiationEvent) error
	ListByNegotiation(ctx context.Context, negotiationID uint64, limit int) ([]model.NegotiationEvent, error)
	SetDB(db *gorm.DB)
}

type negotiationEventRepository struct {
	db *gorm.DB
}

func NewNegotiationEventRepository(db *gorm.DB) NegotiationEventRepository {
	return &negotiationEventRepository{db: db}
}

func (r *negotiationEventRepository) Create(ctx context.Context, e *model.NegotiationEvent) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *negotiationEventRepository) ListByNegotiation(ctx context.Context, negotiationID uint64, limit int) ([]model.NegotiationEvent, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var list []model.NegotiationEvent
	if err := r.db.WithContext(ctx).
		Where("negotiation_id = ?", negotiationID).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *negotiationEventRepository) SetDB(db *gorm.DB) {
	r.db = db
}
