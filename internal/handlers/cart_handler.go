package handlers

import (
	"toko-checkout/internal/middleware"
	"toko-checkout/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CartHandler handles HTTP requests for the caller's cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{service: service, validate: validator.New(), logger: logger}
}

// RegisterRoutes registers the cart routes.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cart := router.Group("/cart")
	cart.Get("/", h.HandleGetCart)
	cart.Delete("/", h.HandleClearCart)
	cart.Post("/items", h.HandleAddItem)
	cart.Patch("/items/:productId", h.HandleUpdateItem)
	cart.Delete("/items/:productId", h.HandleRemoveItem)
}

// AddItemRequest is the body of POST /cart/items.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// UpdateItemRequest is the body of PATCH /cart/items/:productId.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// HandleGetCart returns the active cart, creating it on first access.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	cart, err := h.service.GetCart(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(cart)
}

func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}
	cart, err := h.service.AddItem(c.UserContext(), middleware.UserID(c), req.ProductID, req.Quantity)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(cart)
}

func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	var req UpdateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}
	cart, err := h.service.UpdateQuantity(c.UserContext(), middleware.UserID(c), c.Params("productId"), req.Quantity)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(cart)
}

func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	cart, err := h.service.RemoveItem(c.UserContext(), middleware.UserID(c), c.Params("productId"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(cart)
}

// HandleClearCart retires the cart and every line in it.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	if err := h.service.Clear(c.UserContext(), middleware.UserID(c)); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
