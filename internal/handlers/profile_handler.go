package handlers

import (
	"toko-checkout/internal/middleware"
	"toko-checkout/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProfileHandler lists the addresses saved from earlier checkouts.
type ProfileHandler struct {
	service *services.ProfileService
	logger  *zap.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(service *services.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{service: service, logger: logger}
}

// RegisterRoutes registers the profile routes.
func (h *ProfileHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/profile/addresses", h.HandleAddresses)
}

func (h *ProfileHandler) HandleAddresses(c *fiber.Ctx) error {
	addresses, err := h.service.SavedAddresses(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(addresses)
}
