package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type NegotiationEventKind string

const (
	NegotiationEventCreated   NegotiationEventKind = "created"
	NegotiationEventResponded NegotiationEventKind = "responded"
	NegotiationEventOffered   NegotiationEventKind = "offered"
	NegotiationEventExpired   NegotiationEventKind = "expired"
)

// NegotiationEvent is one entry of a negotiation's history.
type NegotiationEvent struct {
	ID            uint64               `gorm:"primaryKey;autoIncrement"`
	NegotiationID uint64               `gorm:"column:negotiation_id;index;not null"`
	Kind          NegotiationEventKind `gorm:"column:kind;size:32;not null"`
	FromStatus    *NegotiationStatus   `gorm:"column:from_status;size:32"`
	ToStatus      NegotiationStatus    `gorm:"column:to_status;size:32;not null"`
	Price         decimal.Decimal      `gorm:"column:price;type:decimal(12,2);not null"`
	Actor         string               `gorm:"column:actor;size:128"`
	CreatedAt     time.Time            `gorm:"autoCreateTime"`
}

func (NegotiationEvent) TableName() string {
	return "negotiation_events"
}
