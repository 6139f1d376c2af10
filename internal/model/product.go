package model

import "time"

type Product struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"column:name;size:120;index;not null"`
	Description string    `gorm:"column:description;type:text"`
	IsActive    bool      `gorm:"column:is_active;index;not null;default:true"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Product) TableName() string {
	return "products"
}
