package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"toko-checkout/internal/models"
	"toko-checkout/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SaveAddress(ctx context.Context, address *models.SavedAddress) error {
	args := m.Called(address)
	return args.Error(0)
}

func (m *MockUserRepository) ListAddresses(ctx context.Context, userID string) ([]models.SavedAddress, error) {
	args := m.Called(userID)
	return args.Get(0).([]models.SavedAddress), args.Error(1)
}

// MockSessionStore is a mock implementation of services.SessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, userID string) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

func (m *MockSessionStore) Lookup(ctx context.Context, sessionID string) (string, error) {
	args := m.Called(sessionID)
	return args.String(0), args.Error(1)
}

func (m *MockSessionStore) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(sessionID)
	return args.Error(0)
}

func TestAuthService_RegisterUser(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, "test_jwt_secret")

	user := &models.User{
		Username: "testuser",
		Email:    "test@example.com",
		Password: "password123",
	}

	mockRepo.On("GetByUsername", user.Username).Return(nil, nil).Once()
	mockRepo.On("GetByEmail", user.Email).Return(nil, nil).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Once()

	err := authService.RegisterUser(ctx, user)
	assert.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	mockRepo.AssertExpectations(t)

	// Test username already taken
	mockRepo.On("GetByUsername", user.Username).Return(&models.User{ID: "1"}, nil).Once()
	err = authService.RegisterUser(ctx, user)
	assert.ErrorIs(t, err, services.ErrAccountExists)
	assert.Contains(t, err.Error(), "username 'testuser' already taken")
	mockRepo.AssertExpectations(t)

	// Test email already registered
	mockRepo.On("GetByUsername", user.Username).Return(nil, nil).Once()
	mockRepo.On("GetByEmail", user.Email).Return(&models.User{ID: "1"}, nil).Once()
	err = authService.RegisterUser(ctx, user)
	assert.ErrorIs(t, err, services.ErrAccountExists)
	assert.Contains(t, err.Error(), "email 'test@example.com' already registered")
	mockRepo.AssertExpectations(t)
}

func TestAuthService_LoginUser(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	testJWTSecret := "test_jwt_secret"
	authService := services.NewAuthService(mockRepo, testJWTSecret)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:       "user-123",
		Username: "testuser",
		Email:    "test@example.com",
		Password: string(hashedPassword),
	}

	mockRepo.On("GetByUsername", user.Username).Return(user, nil).Once()
	result, err := authService.LoginUser(ctx, "testuser", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Empty(t, result.SessionID)

	parsedToken, err := jwt.Parse(result.Token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	assert.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, user.Username, claims["username"])
	mockRepo.AssertExpectations(t)

	// Test invalid credentials (wrong password)
	mockRepo.On("GetByUsername", user.Username).Return(user, nil).Once()
	_, err = authService.LoginUser(ctx, "testuser", "wrongpassword")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)

	// Test invalid credentials (user not found)
	mockRepo.On("GetByUsername", "nonexistentuser").Return(nil, fmt.Errorf("user with username nonexistentuser not found")).Once()
	_, err = authService.LoginUser(ctx, "nonexistentuser", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_LoginUserCreatesSession(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	sessions := new(MockSessionStore)
	authService := services.NewAuthService(mockRepo, "test_jwt_secret").WithSessions(sessions)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{ID: "user-123", Username: "testuser", Password: string(hashedPassword)}

	mockRepo.On("GetByUsername", "testuser").Return(user, nil).Once()
	sessions.On("Create", "user-123").Return("sess-1", nil).Once()
	sessions.On("Lookup", "sess-1").Return("user-123", nil).Once()
	sessions.On("Lookup", "gone").Return("", errors.New("session not found")).Once()
	sessions.On("Delete", "sess-1").Return(nil).Once()

	result, err := authService.LoginUser(ctx, "testuser", "password123")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", result.SessionID)

	userID, err := authService.ResolveSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)

	_, err = authService.ResolveSession(ctx, "gone")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	assert.NoError(t, authService.Logout(ctx, "sess-1"))
	sessions.AssertExpectations(t)
}

func TestAuthService_ResolveSessionWithoutStore(t *testing.T) {
	authService := services.NewAuthService(new(MockUserRepository), "test_jwt_secret")
	_, err := authService.ResolveSession(context.Background(), "sess-1")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	assert.NoError(t, authService.Logout(context.Background(), "sess-1"))
}

func TestAuthService_ValidateToken(t *testing.T) {
	testJWTSecret := "test_jwt_secret"
	authService := services.NewAuthService(new(MockUserRepository), testJWTSecret)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  "user-123",
		"username": "testuser",
		"exp":      jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	validTokenString, _ := token.SignedString([]byte(testJWTSecret))

	claims, err := authService.ValidateToken(validTokenString)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", claims["user_id"])
	assert.Equal(t, "testuser", claims["username"])

	_, err = authService.ValidateToken("invalid.token.string")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")

	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  "user-123",
		"username": "testuser",
		"exp":      jwt.TimeFunc().Add(-time.Hour).Unix(),
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}
