package handlers

import (
	"errors"
	"fmt"

	"toko-checkout/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var kindStatus = map[services.Kind]int{
	services.KindInvalidInput:             fiber.StatusBadRequest,
	services.KindInvalidOrderData:         fiber.StatusBadRequest,
	services.KindDeliveryUnavailable:      fiber.StatusBadRequest,
	services.KindOutOfStock:               fiber.StatusBadRequest,
	services.KindProductUnavailable:       fiber.StatusBadRequest,
	services.KindEmptyCart:                fiber.StatusBadRequest,
	services.KindNoActiveCart:             fiber.StatusNotFound,
	services.KindNoCheckoutSession:        fiber.StatusNotFound,
	services.KindCheckoutSessionNotFound:  fiber.StatusNotFound,
	services.KindNotFound:                 fiber.StatusNotFound,
	services.KindCartLocked:               fiber.StatusConflict,
	services.KindCheckoutAlreadyProcessed: fiber.StatusConflict,
	services.KindPaymentInit:              fiber.StatusBadGateway,
	services.KindPaymentCapture:           fiber.StatusBadGateway,
	services.KindOrderTransactionFailed:   fiber.StatusInternalServerError,
}

// statusOf maps a service error to its HTTP status. Untagged errors are 500.
func statusOf(err error) int {
	if status, ok := kindStatus[services.KindOf(err)]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// respondError writes err as the JSON error body used across the API.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	status := statusOf(err)
	var serr *services.Error
	if !errors.As(err, &serr) {
		logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}
	if status >= fiber.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}

	body := fiber.Map{
		"message": serr.Message,
		"error":   string(serr.Kind),
	}
	if serr.Product != "" {
		body["product"] = serr.Product
	}
	if len(serr.Fields) > 0 {
		body["errors"] = serr.Fields
	}
	if serr.Kind == services.KindOrderTransactionFailed {
		body["retryable"] = true
	}
	return c.Status(status).JSON(body)
}

// badBody rejects an unparsable request body.
func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// validationFailed reports struct validation errors field by field.
func validationFailed(c *fiber.Ctx, err error) error {
	errorMessages := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"error":   string(services.KindInvalidInput),
		"errors":  errorMessages,
	})
}
