package handlers

import (
	"errors"
	"testing"

	"toko-checkout/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.ErrInvalidInput, fiber.StatusBadRequest},
		{services.ErrOutOfStock, fiber.StatusBadRequest},
		{services.ErrNoActiveCart, fiber.StatusNotFound},
		{services.ErrCheckoutSessionNotFound, fiber.StatusNotFound},
		{services.ErrCartLocked, fiber.StatusConflict},
		{services.ErrCheckoutAlreadyProcessed, fiber.StatusConflict},
		{services.ErrPaymentInit, fiber.StatusBadGateway},
		{services.ErrPaymentCapture, fiber.StatusBadGateway},
		{services.ErrOrderTransactionFailed, fiber.StatusInternalServerError},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusOf(tt.err), tt.err.Error())
	}
}
