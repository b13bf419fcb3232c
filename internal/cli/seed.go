package cli

import (
	"context"
	"fmt"

	"toko-checkout/internal/models"
	"toko-checkout/internal/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// demoProducts is the catalog inserted by --seed and the seed command.
var demoProducts = []models.Product{
	{ID: "prod-1", Name: "Laptop", Description: "High performance laptop", Price: 1200, Stock: 10, Status: models.ProductActive,
		DeliveryOptions: models.DeliveryTiers{models.DeliveryNormal, models.DeliverySpeed}},
	{ID: "prod-2", Name: "Keyboard", Description: "Mechanical keyboard", Price: 75, Stock: 25, Status: models.ProductActive,
		DeliveryOptions: models.DeliveryTiers{models.DeliveryNormal, models.DeliverySpeed, models.DeliveryExpress}},
	{ID: "prod-3", Name: "Mouse", Description: "Ergonomic wireless mouse", Price: 25, Stock: 50, Status: models.ProductActive,
		DeliveryOptions: models.DeliveryTiers{models.DeliveryNormal, models.DeliverySpeed, models.DeliveryExpress}},
}

func seedProducts(ctx context.Context, products *services.ProductService, logger *zap.Logger) (int, error) {
	catalog := make([]models.Product, len(demoProducts))
	copy(catalog, demoProducts)
	n, err := products.Seed(ctx, catalog)
	if err != nil {
		return n, fmt.Errorf("failed to seed products: %w", err)
	}
	logger.Info("seeded products", zap.Int("inserted", n), zap.Int("catalog", len(catalog)))
	return n, nil
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo product catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			n, err := seedProducts(cmd.Context(), services.NewProductService(rt.store.Products), rt.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d product(s)\n", n)
			return nil
		},
	}
}
