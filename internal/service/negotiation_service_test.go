package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shinyyama/internship-market/internal/model"
	"github.com/shinyyama/internship-market/internal/repository"
	"github.com/shinyyama/internship-market/internal/token"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

type negotiationFixture struct {
	svc      *negotiationService
	repo     *fakeNegotiationRepo
	products *fakeProducts
	tokens   *scriptedTokens
	history  *fakeHistory
}

func newNegotiationFixture(products ...model.Product) *negotiationFixture {
	repo := newFakeNegotiationRepo()
	prods := newFakeProducts(products...)
	tokens := &scriptedTokens{tokens: []string{"Tok000000001", "Tok000000002", "Tok000000003", "Tok000000004", "Tok000000005"}}
	history := &fakeHistory{}
	svc := NewNegotiationService(repo, prods, nil, tokens, history, nil).(*negotiationService)
	svc.now = func() time.Time { return fixedNow }
	return &negotiationFixture{svc: svc, repo: repo, products: prods, tokens: tokens, history: history}
}

func chair() model.Product {
	return model.Product{ID: 4, Name: "Office Chair", Description: "ergonomic", IsActive: true}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pendingNegotiation(tok string) model.Negotiation {
	return model.Negotiation{
		IsActive:    true,
		Price:       dec("20"),
		Status:      model.NegotiationStatusPending,
		Token:       tok,
		ProductID:   4,
		LastAttempt: fixedNow.Add(-time.Hour),
	}
}

func TestAddNegotiationRejectsInvalidPriceWithoutStoreAccess(t *testing.T) {
	for _, price := range []string{"0", "-1", "-0.01", "0.004", "10.455"} {
		t.Run(price, func(t *testing.T) {
			f := newNegotiationFixture(chair())
			_, err := f.svc.AddNegotiation(context.Background(), 4, dec(price))
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.ErrorIs(t, err, ErrInvalidPrice)
			assert.Zero(t, f.repo.calls)
			assert.Zero(t, f.products.calls)
			assert.Zero(t, f.tokens.calls)
		})
	}
}

func TestAddNegotiationRequiresActiveProduct(t *testing.T) {
	inactive := model.Product{ID: 5, Name: "Old Desk", IsActive: false}
	f := newNegotiationFixture(chair(), inactive)

	_, err := f.svc.AddNegotiation(context.Background(), 99, dec("10"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.AddNegotiation(context.Background(), 5, dec("10"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, f.repo.inserts)
}

func TestAddNegotiationRetriesUntilTokenIsFree(t *testing.T) {
	f := newNegotiationFixture(chair())
	// The first three draws are already in use.
	for _, tok := range f.tokens.tokens[:3] {
		f.repo.taken[tok] = true
	}

	tok, err := f.svc.AddNegotiation(context.Background(), 4, dec("10.4"))
	require.NoError(t, err)
	assert.Equal(t, "Tok000000004", tok)
	assert.Equal(t, 4, f.tokens.calls)
	assert.Equal(t, 4, f.repo.checks)
	assert.Equal(t, 1, f.repo.inserts)
}

func TestAddNegotiationDrawsAgainAfterLosingInsertRace(t *testing.T) {
	f := newNegotiationFixture(chair())
	f.repo.addErrs = []error{repository.ErrDuplicateKey}

	tok, err := f.svc.AddNegotiation(context.Background(), 4, dec("10"))
	require.NoError(t, err)
	assert.Equal(t, "Tok000000002", tok)
	assert.Equal(t, 2, f.repo.inserts)
}

func TestAddNegotiationGivesUpOnPersistentDuplicates(t *testing.T) {
	f := newNegotiationFixture(chair())
	f.repo.addErrs = []error{
		repository.ErrDuplicateKey, repository.ErrDuplicateKey, repository.ErrDuplicateKey,
		repository.ErrDuplicateKey, repository.ErrDuplicateKey,
	}

	_, err := f.svc.AddNegotiation(context.Background(), 4, dec("10"))
	assert.ErrorIs(t, err, repository.ErrDuplicateKey)
	assert.Equal(t, maxInsertAttempts, f.repo.inserts)
}

func TestCreateThenFetchByToken(t *testing.T) {
	f := newNegotiationFixture(chair())
	f.svc.tokens = token.NewGenerator()

	tok, err := f.svc.AddNegotiation(context.Background(), 4, dec("10.4"))
	require.NoError(t, err)
	assert.Len(t, tok, token.Length)

	d, err := f.svc.GetNegotiationByToken(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, model.NegotiationStatusPending, d.Status)
	assert.Equal(t, 0, d.AttemptCounter)
	assert.True(t, dec("10.4").Equal(d.Price))
	assert.Equal(t, uint64(4), d.ProductID)
	assert.Equal(t, "Office Chair", d.ProductName)
	assert.Equal(t, fixedNow, d.LastAttempt)
	assert.Equal(t, []model.NegotiationEventKind{model.NegotiationEventCreated}, f.history.kinds())
}

func TestGetNegotiationStructurallyInvalidIsNotFound(t *testing.T) {
	f := newNegotiationFixture(chair())

	_, err := f.svc.GetNegotiation(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.GetNegotiationByToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.GetNegotiationByToken(context.Background(), "short")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, f.repo.calls)
}

func TestGetNegotiationHidesInactive(t *testing.T) {
	f := newNegotiationFixture(chair())
	n := pendingNegotiation("Hidden000001")
	n.IsActive = false
	n = f.repo.seed(n)

	_, err := f.svc.GetNegotiation(context.Background(), n.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.GetNegotiationByToken(context.Background(), n.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResponseToOfferAppliesDecision(t *testing.T) {
	for _, status := range []model.NegotiationStatus{
		model.NegotiationStatusAccepted,
		model.NegotiationStatusRejected,
		model.NegotiationStatusCanceled,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newNegotiationFixture(chair())
			n := f.repo.seed(pendingNegotiation("Pending00001"))

			id, err := f.svc.ResponseToOffer(context.Background(), n.ID, status)
			require.NoError(t, err)
			assert.Equal(t, n.ID, id)

			got := f.repo.get(n.ID)
			assert.Equal(t, status, got.Status)
			assert.Equal(t, 1, got.AttemptCounter)
			assert.Equal(t, fixedNow, got.LastAttempt)
		})
	}
}

func TestResponseToOfferForcesCancelPastAttemptLimit(t *testing.T) {
	f := newNegotiationFixture(chair())
	n := pendingNegotiation("Pending00001")
	n.AttemptCounter = 3
	n = f.repo.seed(n)

	_, err := f.svc.ResponseToOffer(context.Background(), n.ID, model.NegotiationStatusAccepted)
	require.NoError(t, err)

	got := f.repo.get(n.ID)
	assert.Equal(t, model.NegotiationStatusCanceled, got.Status)
	assert.Equal(t, 4, got.AttemptCounter)
}

func TestNegotiationAttemptLimitScenario(t *testing.T) {
	f := newNegotiationFixture(chair())
	ctx := context.Background()
	tok, err := f.svc.AddNegotiation(ctx, 4, dec("10.4"))
	require.NoError(t, err)
	d, err := f.svc.GetNegotiationByToken(ctx, tok)
	require.NoError(t, err)

	// Three rounds of reject and re-offer keep the requested decision.
	for round := 1; round <= 3; round++ {
		_, err := f.svc.ResponseToOffer(ctx, d.ID, model.NegotiationStatusRejected)
		require.NoError(t, err)
		got := f.repo.get(d.ID)
		assert.Equal(t, model.NegotiationStatusRejected, got.Status, "round %d", round)
		assert.Equal(t, round, got.AttemptCounter)

		_, err = f.svc.SendNewOffer(ctx, tok, dec("11").Add(decimal.NewFromInt(int64(round))))
		require.NoError(t, err)
	}

	// The fourth response cancels even though the employee accepts.
	_, err = f.svc.ResponseToOffer(ctx, d.ID, model.NegotiationStatusAccepted)
	require.NoError(t, err)
	got := f.repo.get(d.ID)
	assert.Equal(t, model.NegotiationStatusCanceled, got.Status)
	assert.Equal(t, 4, got.AttemptCounter)
	assert.True(t, dec("14").Equal(got.Price))

	// Terminal: nothing else is accepted.
	_, err = f.svc.ResponseToOffer(ctx, d.ID, model.NegotiationStatusAccepted)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = f.svc.SendNewOffer(ctx, tok, dec("15"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestResponseToOfferOnNonPendingConflictsWithoutMutation(t *testing.T) {
	for _, status := range []model.NegotiationStatus{
		model.NegotiationStatusAccepted,
		model.NegotiationStatusRejected,
		model.NegotiationStatusCanceled,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newNegotiationFixture(chair())
			n := pendingNegotiation("Settled00001")
			n.Status = status
			n.AttemptCounter = 1
			n = f.repo.seed(n)

			_, err := f.svc.ResponseToOffer(context.Background(), n.ID, model.NegotiationStatusAccepted)
			assert.ErrorIs(t, err, ErrConflict)
			assert.ErrorIs(t, err, ErrNotPending)
			assert.Equal(t, n, f.repo.get(n.ID))
			assert.Zero(t, f.repo.updates)
		})
	}
}

func TestResponseToOfferValidation(t *testing.T) {
	tests := []struct {
		name   string
		id     uint64
		status model.NegotiationStatus
	}{
		{"zero id", 0, model.NegotiationStatusAccepted},
		{"pending target", 1, model.NegotiationStatusPending},
		{"unknown status", 1, model.NegotiationStatus("Accepted")},
		{"empty status", 1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newNegotiationFixture(chair())
			_, err := f.svc.ResponseToOffer(context.Background(), tt.id, tt.status)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Zero(t, f.repo.calls)
		})
	}
}

func TestResponseToOfferMissingNegotiation(t *testing.T) {
	f := newNegotiationFixture(chair())
	_, err := f.svc.ResponseToOffer(context.Background(), 77, model.NegotiationStatusAccepted)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResponseToOfferLostRaceIsConflict(t *testing.T) {
	f := newNegotiationFixture(chair())
	n := f.repo.seed(pendingNegotiation("Pending00001"))
	f.repo.updErr[n.ID] = repository.ErrStaleRecord

	_, err := f.svc.ResponseToOffer(context.Background(), n.ID, model.NegotiationStatusAccepted)
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
}

func TestResponseToOfferStoreFailurePropagates(t *testing.T) {
	f := newNegotiationFixture(chair())
	n := f.repo.seed(pendingNegotiation("Pending00001"))
	boom := errors.New("connection reset")
	f.repo.updErr[n.ID] = boom

	_, err := f.svc.ResponseToOffer(context.Background(), n.ID, model.NegotiationStatusAccepted)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrConflict)
}

func TestSendNewOfferOnlyFromRejected(t *testing.T) {
	tests := []struct {
		status  model.NegotiationStatus
		wantErr error
	}{
		{model.NegotiationStatusRejected, nil},
		{model.NegotiationStatusPending, ErrConflict},
		{model.NegotiationStatusAccepted, ErrConflict},
		{model.NegotiationStatusCanceled, ErrConflict},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := newNegotiationFixture(chair())
			n := pendingNegotiation("Offered00001")
			n.Status = tt.status
			n.AttemptCounter = 2
			n = f.repo.seed(n)

			id, err := f.svc.SendNewOffer(context.Background(), n.Token, dec("33.30"))
			got := f.repo.get(n.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, n, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, n.ID, id)
			assert.Equal(t, model.NegotiationStatusPending, got.Status)
			assert.True(t, dec("33.3").Equal(got.Price))
			assert.Equal(t, 2, got.AttemptCounter)
			assert.Equal(t, fixedNow, got.LastAttempt)
		})
	}
}

func TestSendNewOfferValidation(t *testing.T) {
	f := newNegotiationFixture(chair())

	_, err := f.svc.SendNewOffer(context.Background(), "", dec("10"))
	assert.ErrorIs(t, err, ErrEmptyToken)
	for _, price := range []string{"0", "0.004", "10.455"} {
		_, err = f.svc.SendNewOffer(context.Background(), "Offered00001", dec(price))
		assert.ErrorIs(t, err, ErrInvalidPrice, price)
	}
	assert.Zero(t, f.repo.calls)

	_, err = f.svc.SendNewOffer(context.Background(), "Unknown00001", dec("10"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func listFixture() *negotiationFixture {
	f := newNegotiationFixture(
		model.Product{ID: 1, Name: "Office Chair", IsActive: true},
		model.Product{ID: 2, Name: "Desk Lamp", IsActive: true},
		model.Product{ID: 3, Name: "Gaming CHAIR", IsActive: true},
	)
	seed := func(tok string, product uint64, status model.NegotiationStatus) {
		n := pendingNegotiation(tok)
		n.ProductID = product
		n.Status = status
		f.repo.seed(n)
	}
	seed("List00000001", 1, model.NegotiationStatusPending)
	seed("List00000002", 1, model.NegotiationStatusRejected)
	seed("List00000003", 2, model.NegotiationStatusRejected)
	seed("List00000004", 3, model.NegotiationStatusRejected)
	seed("List00000005", 3, model.NegotiationStatusPending)
	seed("List00000006", 2, model.NegotiationStatusPending)
	return f
}

func TestGetNegotiationsFilterComposition(t *testing.T) {
	f := listFixture()
	rejected := model.NegotiationStatusRejected

	t.Run("status and product name intersect", func(t *testing.T) {
		page, err := f.svc.GetNegotiations(context.Background(), NegotiationQuery{
			Status: &rejected, ProductName: "chair", Page: 1, PageSize: 10,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Count)
		assert.Equal(t, 1, page.Pages)
		require.Len(t, page.Items, 2)
		assert.Equal(t, uint64(2), page.Items[0].ID)
		assert.Equal(t, "Office Chair", page.Items[0].ProductName)
		assert.Equal(t, uint64(4), page.Items[1].ID)
		assert.Equal(t, "Gaming CHAIR", page.Items[1].ProductName)
	})

	t.Run("status only", func(t *testing.T) {
		page, err := f.svc.GetNegotiations(context.Background(), NegotiationQuery{Status: &rejected, Page: 1, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Count)
		assert.Equal(t, 2, page.Pages)
		assert.Len(t, page.Items, 2)
	})

	t.Run("product name only", func(t *testing.T) {
		page, err := f.svc.GetNegotiations(context.Background(), NegotiationQuery{ProductName: "lamp", Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Count)
		for _, it := range page.Items {
			assert.Equal(t, "Desk Lamp", it.ProductName)
		}
	})

	t.Run("no product matches", func(t *testing.T) {
		page, err := f.svc.GetNegotiations(context.Background(), NegotiationQuery{ProductName: "sofa", Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(0), page.Count)
		assert.Equal(t, 0, page.Pages)
		assert.Empty(t, page.Items)
	})

	t.Run("page beyond range", func(t *testing.T) {
		page, err := f.svc.GetNegotiations(context.Background(), NegotiationQuery{Page: 5, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(6), page.Count)
		assert.Empty(t, page.Items)
	})
}

func TestGetNegotiationsRejectsBadPagingBeforeStoreAccess(t *testing.T) {
	f := listFixture()
	for _, q := range []NegotiationQuery{{Page: 0, PageSize: 10}, {Page: 1, PageSize: 0}} {
		_, err := f.svc.GetNegotiations(context.Background(), q)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Zero(t, f.repo.sequence)
	assert.Zero(t, f.products.calls)
}
