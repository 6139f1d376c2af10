package repository

import (
	"context"

	"github.com/shinyyama/internship-market/internal/model"
	"gorm.io/gorm"
)

type UserRepository interface {
	AddUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	IsNicknameTaken(ctx context.Context, nickname string) (bool, error)
	SetDB(db *gorm.DB)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) AddUser(ctx context.Context, u *model.User) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return translate(r.db.WithContext(ctx).Create(u).Error)
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var u model.User
	if err := r.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", email, true).
		First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *userRepository) IsNicknameTaken(ctx context.Context, nickname string) (bool, error) {
	return r.exists(ctx, "nickname = ?", nickname)
}

func (r *userRepository) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	if r.db == nil {
		return false, ErrDBNotReady
	}
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where(query, arg).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *userRepository) SetDB(db *gorm.DB) {
	r.db = db
}
