package services_test

import (
	"context"
	"fmt"
	"testing"

	"toko-checkout/internal/models"
	"toko-checkout/internal/repositories"
	"toko-checkout/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	args := m.Called()
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func TestProductService_GetAllProducts(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)

	expectedProducts := []models.Product{
		{ID: "1", Name: "Product A", Price: 10, Stock: 100},
		{ID: "2", Name: "Product B", Price: 20, Stock: 50},
	}

	mockRepo.On("GetAll").Return(expectedProducts, nil).Once()

	products, err := service.GetAllProducts(context.Background())

	assert.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, expectedProducts, products)
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetProductByID(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)

	expectedProduct := &models.Product{ID: "1", Name: "Product A", Price: 10, Stock: 100}

	mockRepo.On("GetByID", "1").Return(expectedProduct, nil).Once()
	product, err := service.GetProductByID(ctx, "1")
	assert.NoError(t, err)
	assert.Equal(t, expectedProduct, product)

	// Test product not found
	mockRepo.On("GetByID", "99").Return(nil, fmt.Errorf("product 99: %w", repositories.ErrNotFound)).Once()
	product, err = service.GetProductByID(ctx, "99")
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.Nil(t, product)
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateAndUpdateProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)

	newProduct := &models.Product{Name: "New Product", Price: 50, Stock: 20}

	mockRepo.On("Create", newProduct).Return(nil).Once()
	assert.NoError(t, service.CreateProduct(ctx, newProduct))

	// Test creation failure (e.g., database error)
	mockRepo.On("Create", newProduct).Return(fmt.Errorf("database error")).Once()
	err := service.CreateProduct(ctx, newProduct)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database error")

	updated := &models.Product{ID: "1", Name: "Product A Updated", Price: 12, Stock: 95}
	mockRepo.On("Update", updated).Return(nil).Once()
	assert.NoError(t, service.UpdateProduct(ctx, updated))
	mockRepo.AssertExpectations(t)
}

func TestProductService_SeedSkipsExisting(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)

	catalog := []models.Product{
		{ID: "lamp", Name: "Desk Lamp", Price: 40, Stock: 10},
		{ID: "mug", Name: "Coffee Mug", Price: 30, Stock: 10},
	}
	mockRepo.On("GetByID", "lamp").Return(&catalog[0], nil).Once()
	mockRepo.On("GetByID", "mug").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", mock.MatchedBy(func(p *models.Product) bool { return p.ID == "mug" })).Return(nil).Once()

	added, err := service.Seed(context.Background(), catalog)
	assert.NoError(t, err)
	assert.Equal(t, 1, added)
	mockRepo.AssertExpectations(t)
}
