package pagination

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSequence struct {
	SliceSequence[int]
	calls int
}

func (s *countingSequence) Count(ctx context.Context) (int64, error) {
	s.calls++
	return s.SliceSequence.Count(ctx)
}

func (s *countingSequence) Window(ctx context.Context, offset, limit int) ([]int, error) {
	s.calls++
	return s.SliceSequence.Window(ctx, offset, limit)
}

func TestPaginate(t *testing.T) {
	seq := FromSlice([]int{1, 2, 3, 4, 5})
	tests := []struct {
		name  string
		page  int
		want  []int
		pages int
	}{
		{"first page", 1, []int{1, 2}, 3},
		{"second page", 2, []int{3, 4}, 3},
		{"last partial page", 3, []int{5}, 3},
		{"beyond range", 4, []int{}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Paginate[int](context.Background(), seq, Request{Page: tt.page, PageSize: 2})
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Items)
			assert.Equal(t, int64(5), p.Count)
			assert.Equal(t, tt.pages, p.Pages)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, 2, p.PageSize)
		})
	}
}

func TestPaginateRejectsBadRequestBeforeStoreAccess(t *testing.T) {
	for _, req := range []Request{{0, 10}, {1, 0}, {-1, 5}, {3, -2}} {
		seq := &countingSequence{SliceSequence: FromSlice([]int{1, 2, 3})}
		_, err := Paginate[int](context.Background(), seq, req)
		assert.ErrorIs(t, err, ErrInvalidPage)
		assert.Zero(t, seq.calls)
	}
}

func TestPaginateEmptyCollection(t *testing.T) {
	p, err := Paginate[int](context.Background(), Empty[int](), Request{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Count)
	assert.Equal(t, 0, p.Pages)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
}

type failingSequence struct{}

var errStore = errors.New("store down")

func (failingSequence) Count(context.Context) (int64, error)            { return 0, errStore }
func (failingSequence) Window(context.Context, int, int) ([]int, error) { return nil, errStore }

func TestPaginatePropagatesStoreErrors(t *testing.T) {
	_, err := Paginate[int](context.Background(), failingSequence{}, Request{Page: 1, PageSize: 1})
	assert.ErrorIs(t, err, errStore)
}

func TestFilterComposesWithAnd(t *testing.T) {
	seq := FromSlice([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}).
		Filter(func(i int) bool { return i%2 == 0 }).
		Filter(func(i int) bool { return i > 4 })

	all, err := Collect[int](context.Background(), seq)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 8, 10}, all)
}

func TestMap(t *testing.T) {
	p := &Page[int]{Items: []int{1, 2}, Count: 7, Pages: 4, Page: 1, PageSize: 2}
	out := Map(p, func(i int) string { return string(rune('a' + i)) })
	assert.Equal(t, []string{"b", "c"}, out.Items)
	assert.Equal(t, int64(7), out.Count)
	assert.Equal(t, 4, out.Pages)
}

func TestPageProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("pages * pageSize covers count without a spare page", prop.ForAll(
		func(count int64, size int) bool {
			pages := PageCount(count, size)
			if count == 0 {
				return pages == 0
			}
			return int64(pages)*int64(size) >= count && int64(pages-1)*int64(size) < count
		},
		gen.Int64Range(0, 100000),
		gen.IntRange(1, 500),
	))

	properties.Property("concatenated pages reproduce the collection", prop.ForAll(
		func(n int, size int) bool {
			items := make([]int, n)
			for i := range items {
				items[i] = i
			}
			seq := FromSlice(items)
			var got []int
			pages := PageCount(int64(n), size)
			for page := 1; page <= pages+1; page++ {
				p, err := Paginate[int](context.Background(), seq, Request{Page: page, PageSize: size})
				if err != nil || len(p.Items) > size {
					return false
				}
				got = append(got, p.Items...)
			}
			if len(got) != n {
				return false
			}
			for i, v := range got {
				if v != i {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 200),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
