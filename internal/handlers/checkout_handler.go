package handlers

import (
	"toko-checkout/internal/middleware"
	"toko-checkout/internal/models"
	"toko-checkout/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CheckoutHandler exposes the shipping, billing and delivery steps.
type CheckoutHandler struct {
	service *services.CheckoutService
	logger  *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(service *services.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: service, logger: logger}
}

// RegisterRoutes registers the checkout routes.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	checkout := router.Group("/checkout")
	checkout.Get("/", h.HandleCurrent)
	checkout.Post("/shipping", h.HandleShipping)
	checkout.Post("/billing", h.HandleBilling)
	checkout.Get("/delivery", h.HandleDeliveryOptions)
	checkout.Post("/delivery", h.HandleDelivery)
	checkout.Post("/cancel", h.HandleCancel)
}

// DeliveryRequest is the body of POST /checkout/delivery.
type DeliveryRequest struct {
	DeliveryType string `json:"delivery_type"`
}

// HandleShipping starts the checkout or replaces its shipping address. Addresses
// are validated by the service.
func (h *CheckoutHandler) HandleShipping(c *fiber.Ctx) error {
	var addr models.Address
	if err := c.BodyParser(&addr); err != nil {
		return badBody(c, err)
	}
	snap, err := h.service.BeginShipping(c.UserContext(), middleware.UserID(c), addr)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(snap)
}

func (h *CheckoutHandler) HandleBilling(c *fiber.Ctx) error {
	var in services.BillingInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	snap, err := h.service.SetBillingAddress(c.UserContext(), middleware.UserID(c), in)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(snap)
}

// HandleDeliveryOptions lists the tiers the whole checkout can ship with.
func (h *CheckoutHandler) HandleDeliveryOptions(c *fiber.Ctx) error {
	options, err := h.service.DeliveryOptions(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"options": options})
}

func (h *CheckoutHandler) HandleDelivery(c *fiber.Ctx) error {
	var req DeliveryRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	quote, err := h.service.SelectDelivery(c.UserContext(), middleware.UserID(c), req.DeliveryType)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(quote)
}

func (h *CheckoutHandler) HandleCurrent(c *fiber.Ctx) error {
	snap, err := h.service.Current(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(snap)
}

// HandleCancel abandons the open checkout. Repeating it reports the final status.
func (h *CheckoutHandler) HandleCancel(c *fiber.Ctx) error {
	status, err := h.service.Cancel(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"status": status})
}
