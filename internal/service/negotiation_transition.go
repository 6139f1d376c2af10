package service

import (
	"time"

	"github.com/shinyyama/internship-market/internal/model"
	"github.com/shopspring/decimal"
)

// MaxResponseAttempts is how many employee responses a negotiation survives;
// the next one cancels it whatever the employee decided.
const MaxResponseAttempts = 3

// PriceScale is the number of decimal places a stored price keeps.
const PriceScale = 2

// validPrice reports whether price is positive and survives the store's
// decimal column unchanged.
func validPrice(price decimal.Decimal) bool {
	return price.IsPositive() && price.Equal(price.Round(PriceScale))
}

// The functions below take a negotiation by value and return the next value.
// They never touch the store.

func openNegotiation(productID uint64, price decimal.Decimal, tok string, now time.Time) model.Negotiation {
	return model.Negotiation{
		IsActive:       true,
		Price:          price,
		AttemptCounter: 0,
		LastAttempt:    now,
		Status:         model.NegotiationStatusPending,
		Token:          tok,
		ProductID:      productID,
	}
}

func respondToOffer(n model.Negotiation, decision model.NegotiationStatus, now time.Time) (model.Negotiation, error) {
	if !decision.Valid() || decision == model.NegotiationStatusPending {
		return n, ErrInvalidStatus
	}
	if n.Status != model.NegotiationStatusPending {
		return n, ErrNotPending
	}
	n.AttemptCounter++
	n.LastAttempt = now
	n.Status = decision
	if n.AttemptCounter > MaxResponseAttempts {
		n.Status = model.NegotiationStatusCanceled
	}
	return n, nil
}

func sendNewOffer(n model.Negotiation, price decimal.Decimal, now time.Time) (model.Negotiation, error) {
	if !validPrice(price) {
		return n, ErrInvalidPrice
	}
	if n.Status != model.NegotiationStatusRejected {
		return n, ErrNotRejected
	}
	n.Price = price
	n.Status = model.NegotiationStatusPending
	n.LastAttempt = now
	return n, nil
}

// expire cancels a negotiation left Rejected since before cutoff.
func expire(n model.Negotiation, cutoff time.Time) (model.Negotiation, bool) {
	if n.Status != model.NegotiationStatusRejected || !n.LastAttempt.Before(cutoff) {
		return n, false
	}
	n.Status = model.NegotiationStatusCanceled
	return n, true
}
