package handlers

import (
	"errors"
	"strings"

	"toko-checkout/internal/middleware"
	"toko-checkout/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PaymentHandler handles the PayPal create and capture callbacks.
type PaymentHandler struct {
	service    *services.PaymentService
	storefront string
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler. storefront is the origin used to
// build default return and cancel URLs.
func NewPaymentHandler(service *services.PaymentService, storefront string, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:    service,
		storefront: strings.TrimRight(storefront, "/"),
		validate:   validator.New(),
		logger:     logger,
	}
}

// RegisterRoutes registers the payment routes.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	paypal := router.Group("/payments/paypal")
	paypal.Post("/create", h.HandleCreate)
	paypal.Post("/capture", h.HandleCapture)
}

// CreatePaymentRequest is the body of POST /payments/paypal/create. Both URLs
// default to pages on the storefront.
type CreatePaymentRequest struct {
	ReturnURL string `json:"return_url" validate:"omitempty,url"`
	CancelURL string `json:"cancel_url" validate:"omitempty,url"`
}

// CapturePaymentRequest is the body of POST /payments/paypal/capture.
type CapturePaymentRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

func (h *PaymentHandler) HandleCreate(c *fiber.Ctx) error {
	var req CreatePaymentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}
	if req.ReturnURL == "" {
		req.ReturnURL = h.storefront + "/checkout/success"
	}
	if req.CancelURL == "" {
		req.CancelURL = h.storefront + "/checkout/cancel"
	}

	auth, err := h.service.StartPayment(c.UserContext(), middleware.UserID(c), req.ReturnURL, req.CancelURL)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order_id":     auth.ProviderOrderID,
		"approval_url": auth.ApprovalURL,
		"status":       auth.Status,
	})
}

// HandleCapture captures an approved payment. A capture the provider has not
// settled yet is answered with 202 and nothing is finalized.
func (h *PaymentHandler) HandleCapture(c *fiber.Ctx) error {
	var req CapturePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	result, err := h.service.CapturePayment(c.UserContext(), middleware.UserID(c), req.OrderID)
	if errors.Is(err, services.ErrCheckoutAlreadyProcessed) && result != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message":  "checkout already processed",
			"error":    string(services.KindCheckoutAlreadyProcessed),
			"order_id": result.OrderID,
		})
	}
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if !result.Completed {
		return c.Status(fiber.StatusAccepted).JSON(result)
	}
	return c.JSON(result)
}
