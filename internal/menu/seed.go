package menu

import (
	"context"
	"log/slog"

	"github.com/joao-fontenele/drinkshop/internal/catalog"
)

// Seed loads the built-in menu into an empty items table.
func Seed(ctx context.Context, repo *ItemRepository, logger *slog.Logger) error {
	n, err := repo.SeedIfEmpty(ctx, catalog.Default().Items())
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("menu seeded", "count", n)
	}
	return nil
}
