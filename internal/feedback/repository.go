package feedback

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/joao-fontenele/drinkshop/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, f *domain.Feedback) error {
	f.ID = uuid.New().String()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feedback (id, rating, text, order_id, customer_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, f.ID, f.Rating, f.Text, f.OrderID, f.CustomerName, f.CreatedAt)
	return err
}

// List returns feedback newest first. limit <= 0 returns everything.
func (r *Repository) List(ctx context.Context, limit int) ([]domain.Feedback, error) {
	query := `SELECT id, rating, text, order_id, customer_name, created_at FROM feedback ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []domain.Feedback{}
	for rows.Next() {
		var f domain.Feedback
		if err := rows.Scan(&f.ID, &f.Rating, &f.Text, &f.OrderID, &f.CustomerName, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Delete reports whether a row was removed.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
