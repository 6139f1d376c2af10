package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shinyyama/internship-market/internal/ai"
	"github.com/shinyyama/internship-market/internal/model"
	"github.com/shinyyama/internship-market/internal/pagination"
	"github.com/shinyyama/internship-market/internal/repository"
	"gorm.io/gorm"
)

// fakeNegotiationRepo is an in-memory NegotiationRepository with call counters.
type fakeNegotiationRepo struct {
	mu       sync.Mutex
	rows     map[uint64]model.Negotiation
	nextID   uint64
	taken    map[string]bool
	addErrs  []error
	updErr   map[uint64]error
	calls    int
	checks   int
	inserts  int
	updates  int
	sequence int
}

func newFakeNegotiationRepo() *fakeNegotiationRepo {
	return &fakeNegotiationRepo{
		rows:   make(map[uint64]model.Negotiation),
		taken:  make(map[string]bool),
		updErr: make(map[uint64]error),
	}
}

func (r *fakeNegotiationRepo) seed(n model.Negotiation) model.Negotiation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == 0 {
		r.nextID++
		n.ID = r.nextID
	} else if n.ID > r.nextID {
		r.nextID = n.ID
	}
	r.rows[n.ID] = n
	r.taken[n.Token] = true
	return n
}

func (r *fakeNegotiationRepo) get(id uint64) model.Negotiation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

func (r *fakeNegotiationRepo) AddNegotiation(_ context.Context, n *model.Negotiation) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.inserts++
	if len(r.addErrs) > 0 {
		err := r.addErrs[0]
		r.addErrs = r.addErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	if r.taken[n.Token] {
		return 0, repository.ErrDuplicateKey
	}
	r.nextID++
	n.ID = r.nextID
	r.rows[n.ID] = *n
	r.taken[n.Token] = true
	return n.ID, nil
}

func (r *fakeNegotiationRepo) UpdateNegotiation(_ context.Context, prev, next *model.Negotiation) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.updates++
	if err := r.updErr[prev.ID]; err != nil {
		return 0, err
	}
	cur, ok := r.rows[prev.ID]
	if !ok || !cur.IsActive || cur.Status != prev.Status || cur.AttemptCounter != prev.AttemptCounter {
		return 0, repository.ErrStaleRecord
	}
	cur.Price = next.Price
	cur.AttemptCounter = next.AttemptCounter
	cur.LastAttempt = next.LastAttempt
	cur.Status = next.Status
	r.rows[prev.ID] = cur
	return prev.ID, nil
}

func (r *fakeNegotiationRepo) GetNegotiation(_ context.Context, id uint64) (*model.Negotiation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	n, ok := r.rows[id]
	if !ok || !n.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return &n, nil
}

func (r *fakeNegotiationRepo) GetNegotiationByToken(_ context.Context, tok string) (*model.Negotiation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	for _, n := range r.rows {
		if n.Token == tok && n.IsActive {
			n := n
			return &n, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeNegotiationRepo) GetNegotiations() repository.NegotiationSequence {
	return fakeNegotiationSequence{repo: r, where: []func(model.Negotiation) bool{isActive}}
}

func (r *fakeNegotiationRepo) GetNegotiationsWithStatus(status model.NegotiationStatus) repository.NegotiationSequence {
	return fakeNegotiationSequence{repo: r, where: []func(model.Negotiation) bool{
		isActive,
		func(n model.Negotiation) bool { return n.Status == status },
	}}
}

func (r *fakeNegotiationRepo) IsTokenTaken(_ context.Context, tok string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.checks++
	return r.taken[tok], nil
}

func (r *fakeNegotiationRepo) SetDB(*gorm.DB) {}

func isActive(n model.Negotiation) bool { return n.IsActive }

type fakeNegotiationSequence struct {
	repo  *fakeNegotiationRepo
	where []func(model.Negotiation) bool
}

func (s fakeNegotiationSequence) with(pred func(model.Negotiation) bool) fakeNegotiationSequence {
	where := append(append([]func(model.Negotiation) bool{}, s.where...), pred)
	return fakeNegotiationSequence{repo: s.repo, where: where}
}

func (s fakeNegotiationSequence) ForProducts(ids []uint64) repository.NegotiationSequence {
	set := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return s.with(func(n model.Negotiation) bool { return set[n.ProductID] })
}

func (s fakeNegotiationSequence) LastAttemptBefore(t time.Time) repository.NegotiationSequence {
	return s.with(func(n model.Negotiation) bool { return n.LastAttempt.Before(t) })
}

func (s fakeNegotiationSequence) snapshot() pagination.SliceSequence[model.Negotiation] {
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	s.repo.sequence++
	rows := make([]model.Negotiation, 0, len(s.repo.rows))
	for _, n := range s.repo.rows {
		rows = append(rows, n)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	seq := pagination.FromSlice(rows)
	for _, pred := range s.where {
		seq = seq.Filter(pred)
	}
	return seq
}

func (s fakeNegotiationSequence) Count(ctx context.Context) (int64, error) {
	return s.snapshot().Count(ctx)
}

func (s fakeNegotiationSequence) Window(ctx context.Context, offset, limit int) ([]model.Negotiation, error) {
	return s.snapshot().Window(ctx, offset, limit)
}

// fakeProducts serves the product catalog from memory; like the store it hides inactive rows.
type fakeProducts struct {
	mu    sync.Mutex
	rows  map[uint64]model.Product
	calls int
}

func newFakeProducts(ps ...model.Product) *fakeProducts {
	f := &fakeProducts{rows: make(map[uint64]model.Product)}
	for _, p := range ps {
		f.rows[p.ID] = p
	}
	return f
}

func (f *fakeProducts) GetProduct(_ context.Context, id uint64) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	p, ok := f.rows[id]
	if !ok || !p.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (f *fakeProducts) active() []model.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Product, 0, len(f.rows))
	for _, p := range f.rows {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeProducts) GetProducts() pagination.Sequence[model.Product] {
	return pagination.FromSlice(f.active())
}

func (f *fakeProducts) GetProductsByName(name string) pagination.Sequence[model.Product] {
	needle := strings.ToLower(name)
	return pagination.FromSlice(f.active()).Filter(func(p model.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	})
}

// fakeProductRepo extends fakeProducts with the write side.
type fakeProductRepo struct {
	*fakeProducts
	nextID uint64
}

func newFakeProductRepo(ps ...model.Product) *fakeProductRepo {
	r := &fakeProductRepo{fakeProducts: newFakeProducts(ps...)}
	for _, p := range ps {
		if p.ID > r.nextID {
			r.nextID = p.ID
		}
	}
	return r
}

func (r *fakeProductRepo) AddProduct(_ context.Context, p *model.Product) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	r.rows[p.ID] = *p
	return p.ID, nil
}

func (r *fakeProductRepo) UpdateProduct(_ context.Context, p *model.Product) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[p.ID]
	if !ok || !cur.IsActive {
		return 0, gorm.ErrRecordNotFound
	}
	cur.Name = p.Name
	cur.Description = p.Description
	r.rows[p.ID] = cur
	return p.ID, nil
}

func (r *fakeProductRepo) IsNameTaken(_ context.Context, name string, exceptID uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.IsActive && p.ID != exceptID && strings.EqualFold(p.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeProductRepo) SetDB(*gorm.DB) {}

// scriptedTokens hands out tokens in order and counts draws.
type scriptedTokens struct {
	tokens []string
	calls  int
}

func (s *scriptedTokens) NewToken() string {
	tok := s.tokens[s.calls%len(s.tokens)]
	s.calls++
	return tok
}

type recordedEvent struct {
	kind model.NegotiationEventKind
	from *model.NegotiationStatus
	to   model.NegotiationStatus
}

type fakeHistory struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (h *fakeHistory) Record(_ context.Context, kind model.NegotiationEventKind, prev *model.Negotiation, next model.Negotiation) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e := recordedEvent{kind: kind, to: next.Status}
	if prev != nil {
		from := prev.Status
		e.from = &from
	}
	h.events = append(h.events, e)
}

func (h *fakeHistory) List(context.Context, uint64, int) ([]model.NegotiationEvent, error) {
	return nil, nil
}

func (h *fakeHistory) kinds() []model.NegotiationEventKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]model.NegotiationEventKind, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.kind)
	}
	return out
}

type fakeCache struct {
	mu      sync.Mutex
	values  map[string]string
	gets    int
	deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (c *fakeCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key, val string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = val
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	delete(c.values, key)
	return nil
}

func (c *fakeCache) Close() error { return nil }

type fakeArchiver struct {
	names []string
	err   error
}

func (a *fakeArchiver) Archive(_ context.Context, name string, _ time.Time, _ interface{}) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.names = append(a.names, name)
	return "gs://bucket/" + name + ".json", nil
}

type fakeAdvisor struct {
	got    ai.OfferContext
	advice *ai.Advice
}

func (a *fakeAdvisor) Advise(_ context.Context, o ai.OfferContext) (*ai.Advice, error) {
	a.got = o
	return a.advice, nil
}
