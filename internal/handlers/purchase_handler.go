package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v5"

	"ticketd/internal/apperrors"
	"ticketd/internal/models"
	"ticketd/internal/services"
)

// PurchaseAPI is the slice of the purchase orchestrator the handler uses.
type PurchaseAPI interface {
	Purchase(ctx context.Context, req *services.PurchaseRequest) (*services.PurchaseResult, error)
	PurchaseByID(ctx context.Context, id string) (*models.Purchase, error)
	PaymentByReference(ctx context.Context, reference string) (*models.Payment, error)
}

// ResaleAPI is the slice of the resale orchestrator the handler uses.
type ResaleAPI interface {
	CreateListing(ctx context.Context, req *services.CreateListingRequest) (*models.ResaleListing, error)
	PurchaseListing(ctx context.Context, req *services.ResalePurchaseRequest) (*services.ResalePurchaseResult, error)
}

// PurchaseHandler exposes the primary and resale purchase flows.
type PurchaseHandler struct {
	purchases PurchaseAPI
	resales   ResaleAPI
	validate  *validator.Validate
}

func NewPurchaseHandler(purchases PurchaseAPI, resales ResaleAPI) *PurchaseHandler {
	return &PurchaseHandler{
		purchases: purchases,
		resales:   resales,
		validate:  validator.New(),
	}
}

// Register mounts the routes. Middleware applies to the mutating
// endpoints only.
func (h *PurchaseHandler) Register(e *echo.Echo, middleware ...echo.MiddlewareFunc) {
	e.POST("/ticket-purchases/purchase", h.Purchase, middleware...)
	e.POST("/ticket-purchases/resale", h.CreateListing, middleware...)
	e.POST("/ticket-purchases/resale/purchase", h.PurchaseListing, middleware...)
	e.GET("/ticket-purchases/:id", h.GetPurchase)
	e.GET("/payment/:reference", h.GetPayment)
}

// Purchase starts a primary ticket purchase and returns the pending
// purchase with the gateway checkout URL.
func (h *PurchaseHandler) Purchase(c echo.Context) error {
	var req services.PurchaseRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperrors.New(apperrors.KindValidation, "invalid request body"))
	}
	if err := h.validate.Struct(&req); err != nil {
		return respondError(c, apperrors.Wrap(apperrors.KindValidation, "invalid purchase request", err))
	}

	result, err := h.purchases.Purchase(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusCreated, result)
}

// CreateListing offers an owned ticket for resale.
func (h *PurchaseHandler) CreateListing(c echo.Context) error {
	var req services.CreateListingRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperrors.New(apperrors.KindValidation, "invalid request body"))
	}
	if err := h.validate.Struct(&req); err != nil {
		return respondError(c, apperrors.Wrap(apperrors.KindValidation, "invalid listing request", err))
	}

	listing, err := h.resales.CreateListing(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusCreated, listing)
}

// PurchaseListing buys a listed resale ticket.
func (h *PurchaseHandler) PurchaseListing(c echo.Context) error {
	var req services.ResalePurchaseRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperrors.New(apperrors.KindValidation, "invalid request body"))
	}
	if err := h.validate.Struct(&req); err != nil {
		return respondError(c, apperrors.Wrap(apperrors.KindValidation, "invalid resale purchase request", err))
	}

	result, err := h.resales.PurchaseListing(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusCreated, result)
}

// GetPurchase returns a purchase with its settlement status.
func (h *PurchaseHandler) GetPurchase(c echo.Context) error {
	purchase, err := h.purchases.PurchaseByID(c.Request().Context(), c.PathParam("id"))
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, purchase)
}

// GetPayment returns a payment by its reference.
func (h *PurchaseHandler) GetPayment(c echo.Context) error {
	payment, err := h.purchases.PaymentByReference(c.Request().Context(), c.PathParam("reference"))
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, payment)
}
