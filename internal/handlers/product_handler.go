package handlers

import (
	"errors"

	"toko-checkout/internal/models"
	"toko-checkout/internal/repositories"
	"toko-checkout/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{service: service, validate: validator.New(), logger: logger}
}

// RegisterRoutes registers the product routes. Products are never deleted because
// cart lines and snapshots refer to them; set the status to inactive instead.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	products := router.Group("/products")
	products.Get("/", h.HandleGetProducts)
	products.Get("/:id", h.HandleGetProductByID)
	products.Post("/", h.HandleCreateProduct)
	products.Put("/:id", h.HandleUpdateProduct)
}

func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(products)
}

func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(product)
}

func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(product); err != nil {
		return validationFailed(c, err)
	}
	if err := h.service.CreateProduct(c.UserContext(), &product); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return badBody(c, err)
	}
	product.ID = c.Params("id")
	if product.Status == "" {
		product.Status = models.ProductActive
	}
	if err := h.validate.Struct(product); err != nil {
		return validationFailed(c, err)
	}
	if err := h.service.UpdateProduct(c.UserContext(), &product); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Product not found",
				"error":   string(services.KindNotFound),
			})
		}
		return respondError(c, h.logger, err)
	}
	return c.JSON(product)
}
