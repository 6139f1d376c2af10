package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type NegotiationStatus string

const (
	NegotiationStatusPending  NegotiationStatus = "pending"
	NegotiationStatusAccepted NegotiationStatus = "accepted"
	NegotiationStatusRejected NegotiationStatus = "rejected"
	NegotiationStatusCanceled NegotiationStatus = "canceled"
)

// ParseNegotiationStatus accepts only the exact wire values.
func ParseNegotiationStatus(s string) (NegotiationStatus, error) {
	st := NegotiationStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown negotiation status %q", s)
	}
	return st, nil
}

func (s NegotiationStatus) Valid() bool {
	switch s {
	case NegotiationStatusPending, NegotiationStatusAccepted, NegotiationStatusRejected, NegotiationStatusCanceled:
		return true
	}
	return false
}

type Negotiation struct {
	ID             uint64            `gorm:"primaryKey;autoIncrement"`
	IsActive       bool              `gorm:"column:is_active;index;not null;default:true"`
	Price          decimal.Decimal   `gorm:"column:price;type:decimal(12,2);not null"`
	AttemptCounter int               `gorm:"column:attempt_counter;not null;default:0"`
	LastAttempt    time.Time         `gorm:"column:last_attempt;index;not null"`
	Status         NegotiationStatus `gorm:"column:status;size:32;index;not null"`
	Token          string            `gorm:"column:token;size:12;uniqueIndex;not null"`
	ProductID      uint64            `gorm:"column:product_id;index;not null"`
	CreatedAt      time.Time         `gorm:"autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime"`
}

func (Negotiation) TableName() string {
	return "negotiations"
}
