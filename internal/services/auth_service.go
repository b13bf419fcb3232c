package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"toko-checkout/internal/models"
	"toko-checkout/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrAccountExists is returned when the username or email is already registered.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials is returned for any failed login or unknown session.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// SessionStore maps opaque session ids to user ids. It holds identity only.
type SessionStore interface {
	Create(ctx context.Context, userID string) (string, error)
	Lookup(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

// LoginResult carries the credentials issued on login. SessionID is empty when no
// session store is configured.
type LoginResult struct {
	Token     string `json:"token"`
	SessionID string `json:"-"`
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	sessions   SessionStore
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour, // Token valid for 24 hours
	}
}

// WithSessions enables cookie sessions backed by store.
func (s *AuthService) WithSessions(store SessionStore) *AuthService {
	s.sessions = store
	return s
}

// RegisterUser registers a new user, hashes their password, and saves them to the database.
func (s *AuthService) RegisterUser(ctx context.Context, user *models.User) error {
	// Check if username or email already exists
	if existingUser, err := s.userRepo.GetByUsername(ctx, user.Username); err == nil && existingUser != nil {
		return fmt.Errorf("username '%s' already taken: %w", user.Username, ErrAccountExists)
	}
	if existingUser, err := s.userRepo.GetByEmail(ctx, user.Email); err == nil && existingUser != nil {
		return fmt.Errorf("email '%s' already registered: %w", user.Email, ErrAccountExists)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return fmt.Errorf("username or email already registered: %w", ErrAccountExists)
		}
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

// LoginUser authenticates a user and issues a JWT and, when enabled, a session id.
func (s *AuthService) LoginUser(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      now.Add(s.tokenDurat).Unix(),
		"iat":      now.Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	result := &LoginResult{Token: tokenString}
	if s.sessions != nil {
		sessionID, err := s.sessions.Create(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		result.SessionID = sessionID
	}
	return result, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// ResolveSession returns the user id behind a session cookie.
func (s *AuthService) ResolveSession(ctx context.Context, sessionID string) (string, error) {
	if s.sessions == nil || sessionID == "" {
		return "", ErrInvalidCredentials
	}
	userID, err := s.sessions.Lookup(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return userID, nil
}

// Logout drops a session. Unknown sessions are ignored.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if s.sessions == nil || sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}
