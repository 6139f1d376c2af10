// Package pagination slices filtered collections into 1-based pages.
package pagination

import (
	"context"
	"errors"
)

var ErrInvalidPage = errors.New("page and pageSize must be at least 1")

// Sequence is a store-backed collection that can be counted and windowed.
// Filters are applied by whoever builds the sequence.
type Sequence[T any] interface {
	Count(ctx context.Context) (int64, error)
	Window(ctx context.Context, offset, limit int) ([]T, error)
}

type Request struct {
	Page     int
	PageSize int
}

func (r Request) Validate() error {
	if r.Page < 1 || r.PageSize < 1 {
		return ErrInvalidPage
	}
	return nil
}

func (r Request) Offset() int {
	return r.PageSize * (r.Page - 1)
}

type Page[T any] struct {
	Items    []T
	Count    int64
	Pages    int
	Page     int
	PageSize int
}

// PageCount is ceil(count/pageSize); an empty collection has no pages.
func PageCount(count int64, pageSize int) int {
	if count <= 0 || pageSize < 1 {
		return 0
	}
	return int(1 + (count-1)/int64(pageSize))
}

// Paginate validates req before touching seq. A page past the end is empty, not an error.
func Paginate[T any](ctx context.Context, seq Sequence[T], req Request) (*Page[T], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	count, err := seq.Count(ctx)
	if err != nil {
		return nil, err
	}
	page := &Page[T]{
		Items:    []T{},
		Count:    count,
		Pages:    PageCount(count, req.PageSize),
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if int64(req.Offset()) >= count {
		return page, nil
	}
	items, err := seq.Window(ctx, req.Offset(), req.PageSize)
	if err != nil {
		return nil, err
	}
	if items != nil {
		page.Items = items
	}
	return page, nil
}

// Map converts the items of a page, keeping its counters.
func Map[T, U any](p *Page[T], fn func(T) U) *Page[U] {
	out := &Page[U]{
		Items:    make([]U, 0, len(p.Items)),
		Count:    p.Count,
		Pages:    p.Pages,
		Page:     p.Page,
		PageSize: p.PageSize,
	}
	for _, it := range p.Items {
		out.Items = append(out.Items, fn(it))
	}
	return out
}

// Collect reads the whole sequence.
func Collect[T any](ctx context.Context, seq Sequence[T]) ([]T, error) {
	count, err := seq.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	return seq.Window(ctx, 0, int(count))
}

// Empty returns a sequence with no elements.
func Empty[T any]() Sequence[T] {
	return SliceSequence[T]{}
}

// SliceSequence is an in-memory Sequence, optionally narrowed by predicates joined with AND.
type SliceSequence[T any] struct {
	Items []T
	Where []func(T) bool
}

func FromSlice[T any](items []T) SliceSequence[T] {
	return SliceSequence[T]{Items: items}
}

// Filter returns a copy narrowed by pred.
func (s SliceSequence[T]) Filter(pred func(T) bool) SliceSequence[T] {
	where := make([]func(T) bool, 0, len(s.Where)+1)
	where = append(where, s.Where...)
	where = append(where, pred)
	return SliceSequence[T]{Items: s.Items, Where: where}
}

func (s SliceSequence[T]) matching() []T {
	out := make([]T, 0, len(s.Items))
next:
	for _, it := range s.Items {
		for _, pred := range s.Where {
			if !pred(it) {
				continue next
			}
		}
		out = append(out, it)
	}
	return out
}

func (s SliceSequence[T]) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(s.matching())), nil
}

func (s SliceSequence[T]) Window(ctx context.Context, offset, limit int) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all := s.matching()
	if offset >= len(all) {
		return []T{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}
