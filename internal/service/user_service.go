package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shinyyama/internship-market/internal/model"
	"github.com/shinyyama/internship-market/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(u *model.User) (string, error)
}

type RegisterInput struct {
	Nickname    string
	Email       string
	Password    string
	PhoneNumber *string
}

type UserService interface {
	Register(ctx context.Context, in RegisterInput) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
}

type userService struct {
	repo   repository.UserRepository
	tokens TokenIssuer
	cost   int
}

func NewUserService(repo repository.UserRepository, tokens TokenIssuer) UserService {
	return &userService{repo: repo, tokens: tokens, cost: bcrypt.DefaultCost}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	nickname := strings.TrimSpace(in.Nickname)
	if email == "" || nickname == "" || in.Password == "" {
		return "", invalidInput(errors.New("nickname, email and password are required"))
	}
	taken, err := s.repo.IsEmailTaken(ctx, email)
	if err != nil {
		return "", err
	}
	if taken {
		return "", ErrEmailTaken
	}
	taken, err = s.repo.IsNicknameTaken(ctx, nickname)
	if err != nil {
		return "", err
	}
	if taken {
		return "", ErrNicknameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", invalidInput(err)
		}
		return "", err
	}
	u := &model.User{
		Nickname:     nickname,
		Email:        email,
		PhoneNumber:  in.PhoneNumber,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.repo.AddUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return "", ErrEmailTaken
		}
		return "", err
	}
	return s.tokens.Issue(u)
}

func (s *userService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", ErrInvalidCredential
	}
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredential
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredential
	}
	return s.tokens.Issue(u)
}
