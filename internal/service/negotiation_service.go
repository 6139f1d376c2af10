package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shinyyama/internship-market/internal/model"
	"github.com/shinyyama/internship-market/internal/pagination"
	"github.com/shinyyama/internship-market/internal/reqctx"
	"github.com/shinyyama/internship-market/internal/repository"
	"github.com/shinyyama/internship-market/internal/token"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxInsertAttempts bounds how often a lost race on the token unique index is retried.
const maxInsertAttempts = 5

type NegotiationDetails struct {
	ID             uint64
	Price          decimal.Decimal
	AttemptCounter int
	LastAttempt    time.Time
	Status         model.NegotiationStatus
	Token          string
	ProductID      uint64
	ProductName    string
}

type NegotiationItem struct {
	ID          uint64
	Price       decimal.Decimal
	LastAttempt time.Time
	Status      model.NegotiationStatus
	ProductID   uint64
	ProductName string
}

// NegotiationQuery filters are joined with AND; zero values mean "no filter".
type NegotiationQuery struct {
	Status      *model.NegotiationStatus
	ProductName string
	Page        int
	PageSize    int
}

type NegotiationService interface {
	AddNegotiation(ctx context.Context, productID uint64, price decimal.Decimal) (string, error)
	GetNegotiation(ctx context.Context, id uint64) (*NegotiationDetails, error)
	GetNegotiationByToken(ctx context.Context, tok string) (*NegotiationDetails, error)
	ResponseToOffer(ctx context.Context, id uint64, status model.NegotiationStatus) (uint64, error)
	SendNewOffer(ctx context.Context, tok string, price decimal.Decimal) (uint64, error)
	GetNegotiations(ctx context.Context, q NegotiationQuery) (*pagination.Page[NegotiationItem], error)
}

type negotiationService struct {
	repo     repository.NegotiationRepository
	products ProductLookup
	names    *ProductNameResolver
	tokens   token.Generator
	history  NegotiationHistoryService
	log      *zap.Logger
	now      func() time.Time
}

func NewNegotiationService(
	repo repository.NegotiationRepository,
	products ProductLookup,
	names *ProductNameResolver,
	tokens token.Generator,
	history NegotiationHistoryService,
	log *zap.Logger,
) NegotiationService {
	if log == nil {
		log = zap.NewNop()
	}
	if names == nil {
		names = NewProductNameResolver(products, nil, 0, log)
	}
	return &negotiationService{
		repo:     repo,
		products: products,
		names:    names,
		tokens:   tokens,
		history:  history,
		log:      log,
		now:      time.Now,
	}
}

func (s *negotiationService) AddNegotiation(ctx context.Context, productID uint64, price decimal.Decimal) (string, error) {
	if !validPrice(price) {
		return "", ErrInvalidPrice
	}
	if productID == 0 {
		return "", ErrInvalidID
	}
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrProductNotFound
		}
		return "", err
	}
	if product == nil || !product.IsActive {
		return "", ErrProductNotFound
	}

	for attempt := 1; ; attempt++ {
		tok, err := s.unusedToken(ctx)
		if err != nil {
			return "", err
		}
		n := openNegotiation(productID, price, tok, s.now())
		id, err := s.repo.AddNegotiation(ctx, &n)
		if errors.Is(err, repository.ErrDuplicateKey) && attempt < maxInsertAttempts {
			s.log.Info("token taken between check and insert, drawing again",
				zap.String("rid", reqctx.RequestID(ctx)), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return "", err
		}
		n.ID = id
		s.record(ctx, model.NegotiationEventCreated, nil, n)
		return tok, nil
	}
}

// unusedToken draws until the store reports a token as free.
func (s *negotiationService) unusedToken(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		tok := s.tokens.NewToken()
		taken, err := s.repo.IsTokenTaken(ctx, tok)
		if err != nil {
			return "", err
		}
		if !taken {
			return tok, nil
		}
	}
}

func (s *negotiationService) GetNegotiation(ctx context.Context, id uint64) (*NegotiationDetails, error) {
	if id == 0 {
		return nil, ErrNegotiationNotFound
	}
	n, err := s.repo.GetNegotiation(ctx, id)
	if err != nil {
		return nil, mapNegotiationErr(err)
	}
	return s.details(ctx, n), nil
}

func (s *negotiationService) GetNegotiationByToken(ctx context.Context, tok string) (*NegotiationDetails, error) {
	if !token.Valid(tok) {
		return nil, ErrNegotiationNotFound
	}
	n, err := s.repo.GetNegotiationByToken(ctx, tok)
	if err != nil {
		return nil, mapNegotiationErr(err)
	}
	return s.details(ctx, n), nil
}

func (s *negotiationService) ResponseToOffer(ctx context.Context, id uint64, status model.NegotiationStatus) (uint64, error) {
	if id == 0 {
		return 0, ErrInvalidID
	}
	if !status.Valid() || status == model.NegotiationStatusPending {
		return 0, ErrInvalidStatus
	}
	cur, err := s.repo.GetNegotiation(ctx, id)
	if err != nil {
		return 0, mapNegotiationErr(err)
	}
	next, err := respondToOffer(*cur, status, s.now())
	if err != nil {
		return 0, err
	}
	if _, err := s.repo.UpdateNegotiation(ctx, cur, &next); err != nil {
		return 0, mapNegotiationErr(err)
	}
	if next.Status != status {
		s.log.Info("negotiation canceled after too many responses",
			zap.String("rid", reqctx.RequestID(ctx)),
			zap.Uint64("negotiation_id", next.ID),
			zap.Int("attempts", next.AttemptCounter))
	}
	s.record(ctx, model.NegotiationEventResponded, cur, next)
	return next.ID, nil
}

func (s *negotiationService) SendNewOffer(ctx context.Context, tok string, price decimal.Decimal) (uint64, error) {
	if strings.TrimSpace(tok) == "" {
		return 0, ErrEmptyToken
	}
	if !validPrice(price) {
		return 0, ErrInvalidPrice
	}
	if !token.Valid(tok) {
		return 0, ErrNegotiationNotFound
	}
	cur, err := s.repo.GetNegotiationByToken(ctx, tok)
	if err != nil {
		return 0, mapNegotiationErr(err)
	}
	next, err := sendNewOffer(*cur, price, s.now())
	if err != nil {
		return 0, err
	}
	if _, err := s.repo.UpdateNegotiation(ctx, cur, &next); err != nil {
		return 0, mapNegotiationErr(err)
	}
	s.record(ctx, model.NegotiationEventOffered, cur, next)
	return next.ID, nil
}

func (s *negotiationService) GetNegotiations(ctx context.Context, q NegotiationQuery) (*pagination.Page[NegotiationItem], error) {
	req := pagination.Request{Page: q.Page, PageSize: q.PageSize}
	if err := req.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	var filtered repository.NegotiationSequence
	if q.Status != nil {
		if !q.Status.Valid() {
			return nil, invalidInput(errors.New("unknown status filter"))
		}
		filtered = s.repo.GetNegotiationsWithStatus(*q.Status)
	} else {
		filtered = s.repo.GetNegotiations()
	}

	var seq pagination.Sequence[model.Negotiation] = filtered
	if name := strings.TrimSpace(q.ProductName); name != "" {
		products, err := pagination.Collect(ctx, s.products.GetProductsByName(name))
		if err != nil {
			return nil, err
		}
		if len(products) == 0 {
			seq = pagination.Empty[model.Negotiation]()
		} else {
			ids := make([]uint64, 0, len(products))
			for _, p := range products {
				ids = append(ids, p.ID)
			}
			seq = filtered.ForProducts(ids)
		}
	}

	page, err := pagination.Paginate(ctx, seq, req)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(page.Items))
	for _, n := range page.Items {
		ids = append(ids, n.ProductID)
	}
	names := s.names.Names(ctx, ids)
	return pagination.Map(page, func(n model.Negotiation) NegotiationItem {
		return NegotiationItem{
			ID:          n.ID,
			Price:       n.Price,
			LastAttempt: n.LastAttempt,
			Status:      n.Status,
			ProductID:   n.ProductID,
			ProductName: names[n.ProductID],
		}
	}), nil
}

func (s *negotiationService) details(ctx context.Context, n *model.Negotiation) *NegotiationDetails {
	return &NegotiationDetails{
		ID:             n.ID,
		Price:          n.Price,
		AttemptCounter: n.AttemptCounter,
		LastAttempt:    n.LastAttempt,
		Status:         n.Status,
		Token:          n.Token,
		ProductID:      n.ProductID,
		ProductName:    s.names.Name(ctx, n.ProductID),
	}
}

func (s *negotiationService) record(ctx context.Context, kind model.NegotiationEventKind, prev *model.Negotiation, next model.Negotiation) {
	if s.history != nil {
		s.history.Record(ctx, kind, prev, next)
	}
}

func mapNegotiationErr(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNegotiationNotFound
	case errors.Is(err, repository.ErrStaleRecord):
		return ErrConcurrentUpdate
	}
	return err
}
