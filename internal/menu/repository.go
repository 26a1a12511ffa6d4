package menu

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/joao-fontenele/drinkshop/internal/catalog"
	"github.com/joao-fontenele/drinkshop/internal/domain"
)

type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `id, name, price, category, description, image, available, rating, reviews`

func (r *ItemRepository) List(ctx context.Context, f catalog.Filter) ([]domain.CatalogItem, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.MinRating > 0 {
		args = append(args, f.MinRating)
		where = append(where, fmt.Sprintf("rating >= $%d", len(args)))
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []domain.CatalogItem{}
	for rows.Next() {
		var item domain.CatalogItem
		if err := scanItem(rows, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *ItemRepository) Get(ctx context.Context, id int) (*domain.CatalogItem, error) {
	var item domain.CatalogItem
	err := scanItem(r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id), &item)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *ItemRepository) Create(ctx context.Context, item *domain.CatalogItem) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO items (name, price, category, description, image, available, rating, reviews)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, item.Name, item.Price, item.Category, item.Description, item.Image, item.Available, item.Rating, item.Reviews).Scan(&item.ID)
}

// Update overwrites the editable fields. Returns false when the item does
// not exist.
func (r *ItemRepository) Update(ctx context.Context, item *domain.CatalogItem) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET name = $2, price = $3, category = $4, description = $5, image = $6,
		    available = $7, updated_at = NOW()
		WHERE id = $1
	`, item.ID, item.Name, item.Price, item.Category, item.Description, item.Image, item.Available)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

func (r *ItemRepository) ToggleAvailability(ctx context.Context, id int) (*domain.CatalogItem, error) {
	var item domain.CatalogItem
	err := scanItem(r.db.QueryRowContext(ctx, `
		UPDATE items
		SET available = NOT available, updated_at = NOW()
		WHERE id = $1
		RETURNING `+itemColumns, id), &item)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *ItemRepository) Delete(ctx context.Context, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

// SeedIfEmpty inserts items when the table has no rows. It reports how many
// rows were inserted.
func (r *ItemRepository) SeedIfEmpty(ctx context.Context, items []domain.CatalogItem) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `LOCK TABLE items IN EXCLUSIVE MODE`); err != nil {
		return 0, err
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO items (id, name, price, category, description, image, available, rating, reviews)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, item.ID, item.Name, item.Price, item.Category, item.Description, item.Image, item.Available, item.Rating, item.Reviews)
		if err != nil {
			return 0, fmt.Errorf("seed item %d: %w", item.ID, err)
		}
	}

	// Explicit ids leave the serial behind.
	if _, err := tx.ExecContext(ctx, `SELECT setval(pg_get_serial_sequence('items', 'id'), (SELECT MAX(id) FROM items))`); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(items), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner, item *domain.CatalogItem) error {
	return row.Scan(&item.ID, &item.Name, &item.Price, &item.Category, &item.Description,
		&item.Image, &item.Available, &item.Rating, &item.Reviews)
}

func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
