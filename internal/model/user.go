package model

import "time"

type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	Nickname     string    `gorm:"column:nickname;size:64;uniqueIndex;not null"`
	Email        string    `gorm:"column:email;size:255;uniqueIndex;not null"`
	PhoneNumber  *string   `gorm:"column:phone_number;size:32"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
