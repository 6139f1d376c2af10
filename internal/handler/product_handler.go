package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/internship-market/internal/model"
	"github.com/shinyyama/internship-market/internal/service"
	"go.uber.org/zap"
)

type ProductHandler struct {
	svc service.ProductService
	log *zap.Logger
}

func NewProductHandler(svc service.ProductService, log *zap.Logger) *ProductHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductHandler{svc: svc, log: log}
}

type ProductRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

type ProductResponse struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func toProductResponse(p model.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *ProductHandler) Create(c echo.Context) error {
	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	id, err := h.svc.AddProduct(c.Request().Context(), req.Name, req.Description)
	if err != nil {
		return writeServiceError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, map[string]uint64{"id": id})
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid product id")
	}
	p, err := h.svc.GetProduct(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toProductResponse(*p))
}

// List serves ?name=&page=&pageSize=
func (h *ProductHandler) List(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return badRequest(c, err.Error())
	}
	pageSize, err := queryInt(c, "pageSize", defaultPageSize)
	if err != nil {
		return badRequest(c, err.Error())
	}
	res, err := h.svc.GetProductList(c.Request().Context(), service.ProductQuery{
		Name:     c.QueryParam("name"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return writeServiceError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toPageResponse(res, toProductResponse))
}

func (h *ProductHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid product id")
	}
	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	updated, err := h.svc.UpdateProduct(c.Request().Context(), id, req.Name, req.Description)
	if err != nil {
		return writeServiceError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]uint64{"id": updated})
}
