package handlers

import (
	"errors"
	"time"

	"toko-checkout/internal/middleware"
	"toko-checkout/internal/models"
	"toko-checkout/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	sessionTTL  time.Duration
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. sessionTTL sets the cookie lifetime.
func NewAuthHandler(authService *services.AuthService, sessionTTL time.Duration, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
		sessionTTL:  sessionTTL,
		logger:      logger,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/logout", h.HandleLogout)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var user models.User
	if err := c.BodyParser(&user); err != nil {
		return badBody(c, err)
	}

	// Validate the user struct
	if err := h.validate.Struct(user); err != nil {
		return validationFailed(c, err)
	}

	if err := h.authService.RegisterUser(c.UserContext(), &user); err != nil {
		if errors.Is(err, services.ErrAccountExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Registration failed",
				"error":   err.Error(),
			})
		}
		h.logger.Error("error registering user", zap.String("username", user.Username), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not register user",
		})
	}

	// For security, do not return the password hash
	user.Password = ""
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin issues a JWT and, when sessions are enabled, a session cookie.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	result, err := h.authService.LoginUser(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, services.ErrInvalidCredentials) {
			h.logger.Error("login failed", zap.String("username", req.Username), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Authentication unavailable",
			})
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
			"error":   err.Error(),
		})
	}

	if result.SessionID != "" {
		c.Cookie(&fiber.Cookie{
			Name:     middleware.SessionCookie,
			Value:    result.SessionID,
			Path:     "/",
			MaxAge:   int(h.sessionTTL.Seconds()),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   result.Token,
	})
}

// HandleLogout drops the session cookie and its Redis record.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext(), c.Cookies(middleware.SessionCookie)); err != nil {
		h.logger.Warn("failed to delete session", zap.Error(err))
	}
	c.ClearCookie(middleware.SessionCookie)
	return c.SendStatus(fiber.StatusNoContent)
}
