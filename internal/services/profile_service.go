package services

import (
	"context"
	"encoding/json"

	"toko-checkout/internal/models"
	"toko-checkout/internal/repositories"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ProfileService stores addresses published by the checkout flow for reuse.
type ProfileService struct {
	users    repositories.UserRepository
	logger   *zap.Logger
	validate *validator.Validate
}

// NewProfileService creates a new ProfileService.
func NewProfileService(users repositories.UserRepository, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{users: users, logger: logger, validate: validator.New()}
}

// HandleAddressEvent stores the address carried by an AddressEvent message.
// Malformed messages are dropped; only storage failures are returned so the
// message is redelivered.
func (s *ProfileService) HandleAddressEvent(ctx context.Context, body []byte) error {
	var event AddressEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.logger.Warn("dropping malformed address event", zap.Error(err))
		return nil
	}
	if event.UserID == "" || (event.Kind != "shipping" && event.Kind != "billing") {
		s.logger.Warn("dropping incomplete address event", zap.String("user_id", event.UserID), zap.String("kind", event.Kind))
		return nil
	}
	if err := s.validate.Struct(event.Address); err != nil {
		s.logger.Warn("dropping invalid address event", zap.String("user_id", event.UserID), zap.Error(err))
		return nil
	}

	err := s.users.SaveAddress(ctx, &models.SavedAddress{
		UserID:  event.UserID,
		Kind:    event.Kind,
		Address: event.Address,
	})
	if err != nil {
		return err
	}
	s.logger.Info("address saved", zap.String("user_id", event.UserID), zap.String("kind", event.Kind))
	return nil
}

// SavedAddresses lists the user's stored addresses.
func (s *ProfileService) SavedAddresses(ctx context.Context, userID string) ([]models.SavedAddress, error) {
	return s.users.ListAddresses(ctx, userID)
}
