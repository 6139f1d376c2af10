package repository

import (
	"context"
	"strings"

	"github.com/shinyyama/internship-market/internal/model"
	"github.com/shinyyama/internship-market/internal/pagination"
	"gorm.io/gorm"
)

type ProductRepository interface {
	AddProduct(ctx context.Context, p *model.Product) (uint64, error)
	UpdateProduct(ctx context.Context, p *model.Product) (uint64, error)
	GetProduct(ctx context.Context, id uint64) (*model.Product, error)
	GetProducts() pagination.Sequence[model.Product]
	GetProductsByName(name string) pagination.Sequence[model.Product]
	// IsNameTaken ignores the product with id exceptID.
	IsNameTaken(ctx context.Context, name string, exceptID uint64) (bool, error)
	SetDB(db *gorm.DB)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) AddProduct(ctx context.Context, p *model.Product) (uint64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return 0, translate(err)
	}
	return p.ID, nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, p *model.Product) (uint64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND is_active = ?", p.ID, true).
		Updates(map[string]interface{}{
			"name":        p.Name,
			"description": p.Description,
		})
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return p.ID, nil
}

func (r *productRepository) GetProduct(ctx context.Context, id uint64) (*model.Product, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var p model.Product
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) GetProducts() pagination.Sequence[model.Product] {
	return newGormSequence[model.Product](r.db, "id ASC").where("is_active = ?", true)
}

func (r *productRepository) GetProductsByName(name string) pagination.Sequence[model.Product] {
	return newGormSequence[model.Product](r.db, "id ASC").
		where("is_active = ? AND LOWER(name) LIKE ?", true, containsPattern(name))
}

func (r *productRepository) IsNameTaken(ctx context.Context, name string, exceptID uint64) (bool, error) {
	if r.db == nil {
		return false, ErrDBNotReady
	}
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("is_active = ? AND LOWER(name) = ? AND id <> ?", true, strings.ToLower(name), exceptID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *productRepository) SetDB(db *gorm.DB) {
	r.db = db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
