package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/internship-market/internal/service"
	"go.uber.org/zap"
)

type UserHandler struct {
	svc service.UserService
	log *zap.Logger
}

func NewUserHandler(svc service.UserService, log *zap.Logger) *UserHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserHandler{svc: svc, log: log}
}

type RegisterRequest struct {
	Nickname    string  `json:"nickname" validate:"required,max=64"`
	Email       string  `json:"email" validate:"required,email,max=255"`
	Password    string  `json:"password" validate:"required,min=8,max=72"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,phone"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

func (h *UserHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	tok, err := h.svc.Register(c.Request().Context(), service.RegisterInput{
		Nickname:    req.Nickname,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return writeServiceError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, TokenResponse{Token: tok})
}

func (h *UserHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	tok, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeServiceError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, TokenResponse{Token: tok})
}
