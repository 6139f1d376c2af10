package service

import (
	"context"

	"github.com/shinyyama/internship-market/internal/model"
	"github.com/shinyyama/internship-market/internal/reqctx"
	"github.com/shinyyama/internship-market/internal/repository"
	"go.uber.org/zap"
)

type NegotiationHistoryService interface {
	Record(ctx context.Context, kind model.NegotiationEventKind, prev *model.Negotiation, next model.Negotiation)
	List(ctx context.Context, negotiationID uint64, limit int) ([]model.NegotiationEvent, error)
}

type negotiationHistoryService struct {
	repo repository.NegotiationEventRepository
	log  *zap.Logger
}

func NewNegotiationHistoryService(repo repository.NegotiationEventRepository, log *zap.Logger) NegotiationHistoryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &negotiationHistoryService{repo: repo, log: log}
}

// Record logs write failures instead of returning them.
func (s *negotiationHistoryService) Record(ctx context.Context, kind model.NegotiationEventKind, prev *model.Negotiation, next model.Negotiation) {
	e := &model.NegotiationEvent{
		NegotiationID: next.ID,
		Kind:          kind,
		ToStatus:      next.Status,
		Price:         next.Price,
		Actor:         reqctx.Actor(ctx),
	}
	if prev != nil {
		from := prev.Status
		e.FromStatus = &from
	}
	if err := s.repo.Create(ctx, e); err != nil {
		s.log.Warn("negotiation history write failed",
			zap.String("rid", reqctx.RequestID(ctx)),
			zap.Uint64("negotiation_id", next.ID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

func (s *negotiationHistoryService) List(ctx context.Context, negotiationID uint64, limit int) ([]model.NegotiationEvent, error) {
	if negotiationID == 0 {
		return nil, ErrInvalidID
	}
	return s.repo.ListByNegotiation(ctx, negotiationID, limit)
}
