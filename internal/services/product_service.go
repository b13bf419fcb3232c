package services

import (
	"context"

	"toko-checkout/internal/models"
	"toko-checkout/internal/repositories"
)

// ProductService exposes the catalog lookups the storefront needs.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if isNotFound(err) {
		return nil, newError(KindNotFound, "product not found", err)
	}
	return product, err
}

// CreateProduct adds a product to the catalog.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	return s.repo.Create(ctx, product)
}

// UpdateProduct updates an existing product. Carts keep the price captured when
// the line was last touched.
func (s *ProductService) UpdateProduct(ctx context.Context, product *models.Product) error {
	return s.repo.Update(ctx, product)
}

// Seed inserts products whose IDs are not in the catalog yet and returns how many
// were added.
func (s *ProductService) Seed(ctx context.Context, products []models.Product) (int, error) {
	added := 0
	for i := range products {
		if products[i].ID != "" {
			if _, err := s.repo.GetByID(ctx, products[i].ID); err == nil {
				continue
			} else if !isNotFound(err) {
				return added, err
			}
		}
		if err := s.repo.Create(ctx, &products[i]); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
