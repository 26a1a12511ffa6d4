package menu

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/drinkshop/internal/domain"
)

type PromotionRepository struct {
	db *sql.DB
}

func NewPromotionRepository(db *sql.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

const promotionColumns = `id, name, code, type, value, min_order, start_date, end_date, active, created_at, updated_at`

func (r *PromotionRepository) List(ctx context.Context) ([]domain.Promotion, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+promotionColumns+` FROM promotions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	promotions := []domain.Promotion{}
	for rows.Next() {
		var p domain.Promotion
		if err := scanPromotion(rows, &p); err != nil {
			return nil, err
		}
		promotions = append(promotions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return promotions, nil
}

// Current is the active promotion that ends soonest without having ended
// yet. Returns nil when none qualifies.
func (r *PromotionRepository) Current(ctx context.Context, now time.Time) (*domain.Promotion, error) {
	var p domain.Promotion
	err := scanPromotion(r.db.QueryRowContext(ctx, `
		SELECT `+promotionColumns+`
		FROM promotions
		WHERE active AND end_date >= $1
		ORDER BY end_date ASC
		LIMIT 1
	`, now), &p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PromotionRepository) Create(ctx context.Context, p *domain.Promotion) error {
	p.ID = uuid.New().String()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO promotions (`+promotionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.Name, p.Code, p.Type, p.Value, p.MinOrder, p.StartDate, p.EndDate, p.Active, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *PromotionRepository) Update(ctx context.Context, p *domain.Promotion) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE promotions
		SET name = $2, code = $3, type = $4, value = $5, min_order = $6,
		    start_date = $7, end_date = $8, active = $9, updated_at = $10
		WHERE id = $1
	`, p.ID, p.Name, p.Code, p.Type, p.Value, p.MinOrder, p.StartDate, p.EndDate, p.Active, p.UpdatedAt)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

func (r *PromotionRepository) Toggle(ctx context.Context, id string) (*domain.Promotion, error) {
	var p domain.Promotion
	err := scanPromotion(r.db.QueryRowContext(ctx, `
		UPDATE promotions
		SET active = NOT active, updated_at = NOW()
		WHERE id = $1
		RETURNING `+promotionColumns, id), &p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PromotionRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

func scanPromotion(row rowScanner, p *domain.Promotion) error {
	return row.Scan(&p.ID, &p.Name, &p.Code, &p.Type, &p.Value, &p.MinOrder,
		&p.StartDate, &p.EndDate, &p.Active, &p.CreatedAt, &p.UpdatedAt)
}
