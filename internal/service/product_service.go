package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shinyyama/internship-market/internal/model"
	"github.com/shinyyama/internship-market/internal/pagination"
	"github.com/shinyyama/internship-market/internal/repository"
	"gorm.io/gorm"
)

// ProductLookup is the read side of the product catalog the negotiation engine depends on.
type ProductLookup interface {
	GetProduct(ctx context.Context, id uint64) (*model.Product, error)
	GetProductsByName(name string) pagination.Sequence[model.Product]
}

type ProductQuery struct {
	Name     string
	Page     int
	PageSize int
}

type ProductService interface {
	AddProduct(ctx context.Context, name, description string) (uint64, error)
	GetProduct(ctx context.Context, id uint64) (*model.Product, error)
	GetProductList(ctx context.Context, q ProductQuery) (*pagination.Page[model.Product], error)
	UpdateProduct(ctx context.Context, id uint64, name, description string) (uint64, error)
}

type productService struct {
	repo  repository.ProductRepository
	names *ProductNameResolver
}

func NewProductService(repo repository.ProductRepository, names *ProductNameResolver) ProductService {
	return &productService{repo: repo, names: names}
}

func (s *productService) AddProduct(ctx context.Context, name, description string) (uint64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyName
	}
	taken, err := s.repo.IsNameTaken(ctx, name, 0)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, ErrProductNameTaken
	}
	p := &model.Product{
		Name:        name,
		Description: description,
		IsActive:    true,
	}
	id, err := s.repo.AddProduct(ctx, p)
	if errors.Is(err, repository.ErrDuplicateKey) {
		return 0, ErrProductNameTaken
	}
	return id, err
}

func (s *productService) GetProduct(ctx context.Context, id uint64) (*model.Product, error) {
	if id == 0 {
		return nil, ErrInvalidID
	}
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *productService) GetProductList(ctx context.Context, q ProductQuery) (*pagination.Page[model.Product], error) {
	req := pagination.Request{Page: q.Page, PageSize: q.PageSize}
	if err := req.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	var seq pagination.Sequence[model.Product]
	if name := strings.TrimSpace(q.Name); name != "" {
		seq = s.repo.GetProductsByName(name)
	} else {
		seq = s.repo.GetProducts()
	}
	return pagination.Paginate(ctx, seq, req)
}

func (s *productService) UpdateProduct(ctx context.Context, id uint64, name, description string) (uint64, error) {
	if id == 0 {
		return 0, ErrInvalidID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyName
	}
	taken, err := s.repo.IsNameTaken(ctx, name, id)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, ErrProductNameTaken
	}
	updated, err := s.repo.UpdateProduct(ctx, &model.Product{ID: id, Name: name, Description: description})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return 0, ErrProductNotFound
		case errors.Is(err, repository.ErrDuplicateKey):
			return 0, ErrProductNameTaken
		}
		return 0, err
	}
	if s.names != nil {
		s.names.Forget(ctx, id)
	}
	return updated, nil
}
