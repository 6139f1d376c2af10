package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/internship-market/internal/ai"
	"github.com/shinyyama/internship-market/internal/model"
	"github.com/shinyyama/internship-market/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPageSize     = 10
	defaultHistoryLimit = 50
)

type NegotiationHandler struct {
	svc     service.NegotiationService
	history service.NegotiationHistoryService
	advice  service.OfferAdviceService
	log     *zap.Logger
}

// NewNegotiationHandler wires the negotiation endpoints; advice may be nil when no advisor is configured.
func NewNegotiationHandler(
	svc service.NegotiationService,
	history service.NegotiationHistoryService,
	advice service.OfferAdviceService,
	log *zap.Logger,
) *NegotiationHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &NegotiationHandler{svc: svc, history: history, advice: advice, log: log}
}

type CreateNegotiationRequest struct {
	ProductID uint64           `json:"productId" validate:"required"`
	Price     *decimal.Decimal `json:"price" validate:"required"`
}

type NewOfferRequest struct {
	Price *decimal.Decimal `json:"price" validate:"required"`
}

type RespondRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted rejected canceled"`
}

type NegotiationResponse struct {
	ID             uint64          `json:"id"`
	Price          decimal.Decimal `json:"price"`
	AttemptCounter int             `json:"attemptCounter"`
	LastAttempt    string          `json:"lastAttempt"`
	Status         string          `json:"status"`
	Token          string          `json:"token,omitempty"`
	ProductID      uint64          `json:"productId"`
	ProductName    string          `json:"productName"`
}

type NegotiationItemResponse struct {
	ID          uint64          `json:"id"`
	Price       decimal.Decimal `json:"price"`
	LastAttempt string          `json:"lastAttempt"`
	Status      string          `json:"status"`
	ProductID   uint64          `json:"productId"`
	ProductName string          `json:"productName"`
}

type NegotiationEventResponse struct {
	ID         uint64          `json:"id"`
	Kind       string          `json:"kind"`
	FromStatus *string         `json:"fromStatus,omitempty"`
	ToStatus   string          `json:"toStatus"`
	Price      decimal.Decimal `json:"price"`
	Actor      string          `json:"actor,omitempty"`
	CreatedAt  string          `json:"createdAt"`
}

type AdviceResponse struct {
	Verdict      string           `json:"verdict"`
	CounterPrice *decimal.Decimal `json:"counterPrice,omitempty"`
}

func toNegotiationResponse(d *service.NegotiationDetails) NegotiationResponse {
	return NegotiationResponse{
		ID:             d.ID,
		Price:          d.Price,
		AttemptCounter: d.AttemptCounter,
		LastAttempt:    d.LastAttempt.UTC().Format(time.RFC3339),
		Status:         string(d.Status),
		Token:          d.Token,
		ProductID:      d.ProductID,
		ProductName:    d.ProductName,
	}
}

func toNegotiationItemResponse(n service.NegotiationItem) NegotiationItemResponse {
	return NegotiationItemResponse{
		ID:          n.ID,
		Price:       n.Price,
		LastAttempt: n.LastAttempt.UTC().Format(time.RFC3339),
		Status:      string(n.Status),
		ProductID:   n.ProductID,
		ProductName: n.ProductName,
	}
}

func toNegotiationEventResponse(e model.NegotiationEvent) NegotiationEventResponse {
	var from *string
	if e.FromStatus != nil {
		v := string(*e.FromStatus)
		from = &v
	}
	return NegotiationEventResponse{
		ID:         e.ID,
		Kind:       string(e.Kind),
		FromStatus: from,
		ToStatus:   string(e.ToStatus),
		Price:      e.Price,
		Actor:      e.Actor,
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create opens a negotiation for a customer and returns its token.
func (h *NegotiationHandler) Create(c echo.Context) error {
	var req CreateNegotiationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	tok, err := h.svc.AddNegotiation(c.Request().Context(), req.ProductID, *req.Price)
	if err != nil {
		return writeServiceError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"token": tok})
}

func (h *NegotiationHandler) GetByToken(c echo.Context) error {
	d, err := h.svc.GetNegotiationByToken(c.Request().Context(), c.Param("token"))
	if err != nil {
		return writeServiceError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toNegotiationResponse(d))
}

func (h *NegotiationHandler) SendNewOffer(c echo.Context) error {
	var req NewOfferRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	id, err := h.svc.SendNewOffer(c.Request().Context(), c.Param("token"), *req.Price)
	if err != nil {
		return writeServiceError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]uint64{"id": id})
}

func (h *NegotiationHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "negotiation not found"))
	}
	d, err := h.svc.GetNegotiation(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toNegotiationResponse(d))
}

// List serves the employee listing: ?status=&product=&page=&pageSize=
func (h *NegotiationHandler) List(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return badRequest(c, err.Error())
	}
	pageSize, err := queryInt(c, "pageSize", defaultPageSize)
	if err != nil {
		return badRequest(c, err.Error())
	}
	q := service.NegotiationQuery{
		ProductName: c.QueryParam("product"),
		Page:        page,
		PageSize:    pageSize,
	}
	if raw := c.QueryParam("status"); raw != "" {
		st, err := model.ParseNegotiationStatus(raw)
		if err != nil {
			return badRequest(c, err.Error())
		}
		q.Status = &st
	}
	res, err := h.svc.GetNegotiations(c.Request().Context(), q)
	if err != nil {
		return writeServiceError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toPageResponse(res, toNegotiationItemResponse))
}

func (h *NegotiationHandler) Respond(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid negotiation id")
	}
	var req RespondRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	updated, err := h.svc.ResponseToOffer(c.Request().Context(), id, model.NegotiationStatus(req.Status))
	if err != nil {
		return writeServiceError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]uint64{"id": updated})
}

func (h *NegotiationHandler) History(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid negotiation id")
	}
	limit, err := queryInt(c, "limit", defaultHistoryLimit)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if _, err := h.svc.GetNegotiation(c.Request().Context(), id); err != nil {
		return writeServiceError(c, h.log, err)
	}
	events, err := h.history.List(c.Request().Context(), id, limit)
	if err != nil {
		return writeServiceError(c, h.log, err)
	}
	out := make([]NegotiationEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toNegotiationEventResponse(e))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"events": out})
}

func (h *NegotiationHandler) Advice(c echo.Context) error {
	if h.advice == nil {
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "offer advice is not enabled"))
	}
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid negotiation id")
	}
	a, err := h.advice.Advise(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ai.ErrParseFailed) {
			return c.JSON(http.StatusBadGateway, NewErrorResponse("advisor_error", "advisor returned an unreadable answer"))
		}
		return writeServiceError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, AdviceResponse{Verdict: string(a.Verdict), CounterPrice: a.CounterPrice})
}
