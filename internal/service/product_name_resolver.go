package service

import (
	"context"
	"strconv"
	"time"

	"github.com/shinyyama/internship-market/internal/cache"
	"go.uber.org/zap"
)

// ProductNameResolver returns display names for products, through the cache when one is configured.
// A product that cannot be resolved has an empty name; listings never fail because of it.
type ProductNameResolver struct {
	products ProductLookup
	cache    cache.Cacher
	ttl      time.Duration
	log      *zap.Logger
}

func NewProductNameResolver(products ProductLookup, c cache.Cacher, ttl time.Duration, log *zap.Logger) *ProductNameResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductNameResolver{products: products, cache: c, ttl: ttl, log: log}
}

func productNameKey(id uint64) string {
	return "product:name:" + strconv.FormatUint(id, 10)
}

func (r *ProductNameResolver) Name(ctx context.Context, id uint64) string {
	if r.cache != nil {
		if v, ok, err := r.cache.Get(ctx, productNameKey(id)); err != nil {
			r.log.Warn("product name cache read failed", zap.Uint64("product_id", id), zap.Error(err))
		} else if ok {
			return v
		}
	}
	p, err := r.products.GetProduct(ctx, id)
	if err != nil || p == nil {
		return ""
	}
	if r.cache != nil && r.ttl > 0 {
		if err := r.cache.Set(ctx, productNameKey(id), p.Name, r.ttl); err != nil {
			r.log.Warn("product name cache write failed", zap.Uint64("product_id", id), zap.Error(err))
		}
	}
	return p.Name
}

// Names resolves each distinct id once.
func (r *ProductNameResolver) Names(ctx context.Context, ids []uint64) map[uint64]string {
	out := make(map[uint64]string, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		out[id] = r.Name(ctx, id)
	}
	return out
}

func (r *ProductNameResolver) Forget(ctx context.Context, id uint64) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, productNameKey(id)); err != nil {
		r.log.Warn("product name cache delete failed", zap.Uint64("product_id", id), zap.Error(err))
	}
}
