package service

import (
	"context"
	"errors"

	"github.com/shinyyama/internship-market/internal/ai"
	"github.com/shinyyama/internship-market/internal/model"
	"github.com/shinyyama/internship-market/internal/repository"
	"gorm.io/gorm"
)

// OfferAdviceService asks the advisor about a pending offer. It never changes the negotiation.
type OfferAdviceService interface {
	Advise(ctx context.Context, negotiationID uint64) (*ai.Advice, error)
}

type offerAdviceService struct {
	repo     repository.NegotiationRepository
	products ProductLookup
	advisor  ai.OfferAdvisor
}

func NewOfferAdviceService(repo repository.NegotiationRepository, products ProductLookup, advisor ai.OfferAdvisor) OfferAdviceService {
	return &offerAdviceService{repo: repo, products: products, advisor: advisor}
}

func (s *offerAdviceService) Advise(ctx context.Context, negotiationID uint64) (*ai.Advice, error) {
	if negotiationID == 0 {
		return nil, ErrInvalidID
	}
	n, err := s.repo.GetNegotiation(ctx, negotiationID)
	if err != nil {
		return nil, mapNegotiationErr(err)
	}
	if n.Status != model.NegotiationStatusPending {
		return nil, ErrNotPending
	}
	product, err := s.products.GetProduct(ctx, n.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return s.advisor.Advise(ctx, ai.OfferContext{
		ProductName:        product.Name,
		ProductDescription: product.Description,
		OfferedPrice:       n.Price,
		AttemptCounter:     n.AttemptCounter,
		MaxAttempts:        MaxResponseAttempts,
	})
}
