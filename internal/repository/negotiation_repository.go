package repository

import (
	"context"
	"time"

	"github.com/shinyyama/internship-market/internal/model"
	"github.com/shinyyama/internship-market/internal/pagination"
	"gorm.io/gorm"
)

// NegotiationSequence is a listing of active negotiations that can be narrowed further.
type NegotiationSequence interface {
	pagination.Sequence[model.Negotiation]
	ForProducts(productIDs []uint64) NegotiationSequence
	LastAttemptBefore(t time.Time) NegotiationSequence
}

type NegotiationRepository interface {
	AddNegotiation(ctx context.Context, n *model.Negotiation) (uint64, error)
	// UpdateNegotiation persists next only if the stored row still matches prev's
	// status and attempt counter; otherwise it returns ErrStaleRecord.
	UpdateNegotiation(ctx context.Context, prev, next *model.Negotiation) (uint64, error)
	GetNegotiation(ctx context.Context, id uint64) (*model.Negotiation, error)
	GetNegotiationByToken(ctx context.Context, token string) (*model.Negotiation, error)
	GetNegotiations() NegotiationSequence
	GetNegotiationsWithStatus(status model.NegotiationStatus) NegotiationSequence
	IsTokenTaken(ctx context.Context, token string) (bool, error)
	SetDB(db *gorm.DB)
}

type negotiationRepository struct {
	db *gorm.DB
}

func NewNegotiationRepository(db *gorm.DB) NegotiationRepository {
	return &negotiationRepository{db: db}
}

func (r *negotiationRepository) AddNegotiation(ctx context.Context, n *model.Negotiation) (uint64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return 0, translate(err)
	}
	return n.ID, nil
}

func (r *negotiationRepository) UpdateNegotiation(ctx context.Context, prev, next *model.Negotiation) (uint64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Negotiation{}).
		Where("id = ? AND is_active = ? AND status = ? AND attempt_counter = ?", prev.ID, true, prev.Status, prev.AttemptCounter).
		Updates(map[string]interface{}{
			"price":           next.Price,
			"attempt_counter": next.AttemptCounter,
			"last_attempt":    next.LastAttempt,
			"status":          next.Status,
		})
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrStaleRecord
	}
	return prev.ID, nil
}

func (r *negotiationRepository) GetNegotiation(ctx context.Context, id uint64) (*model.Negotiation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var n model.Negotiation
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *negotiationRepository) GetNegotiationByToken(ctx context.Context, token string) (*model.Negotiation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var n model.Negotiation
	if err := r.db.WithContext(ctx).
		Where("token = ? AND is_active = ?", token, true).
		First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *negotiationRepository) GetNegotiations() NegotiationSequence {
	seq := newGormSequence[model.Negotiation](r.db, "id ASC")
	return negotiationSequence{seq.where("is_active = ?", true)}
}

func (r *negotiationRepository) GetNegotiationsWithStatus(status model.NegotiationStatus) NegotiationSequence {
	seq := newGormSequence[model.Negotiation](r.db, "id ASC")
	return negotiationSequence{seq.where("is_active = ? AND status = ?", true, status)}
}

// IsTokenTaken also sees inactive rows: a token is never handed out twice.
func (r *negotiationRepository) IsTokenTaken(ctx context.Context, token string) (bool, error) {
	if r.db == nil {
		return false, ErrDBNotReady
	}
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Negotiation{}).
		Where("token = ?", token).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *negotiationRepository) SetDB(db *gorm.DB) {
	r.db = db
}

type negotiationSequence struct {
	gormSequence[model.Negotiation]
}

func (s negotiationSequence) ForProducts(productIDs []uint64) NegotiationSequence {
	return negotiationSequence{s.where("product_id IN ?", productIDs)}
}

func (s negotiationSequence) LastAttemptBefore(t time.Time) NegotiationSequence {
	return negotiationSequence{s.where("last_attempt < ?", t)}
}
