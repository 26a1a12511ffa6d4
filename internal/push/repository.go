package push

import (
	"context"
	"database/sql"
)

type TokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Upsert stores reg, rebinding an existing token to the new order.
func (r *TokenRepository) Upsert(ctx context.Context, reg *Registration) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO tokens (token, audience, order_id, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (token) DO UPDATE
		SET audience = EXCLUDED.audience,
		    order_id = EXCLUDED.order_id,
		    phone = EXCLUDED.phone,
		    updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`, reg.Token, reg.Audience, reg.OrderID, reg.Phone, reg.UpdatedAt).Scan(&reg.CreatedAt, &reg.UpdatedAt)
}

// Targets returns the tokens a message reaches: every admin token, or the
// customer tokens bound to the order.
func (r *TokenRepository) Targets(ctx context.Context, msg Message) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if msg.Audience == AudienceAdmin {
		rows, err = r.db.QueryContext(ctx, `SELECT token FROM tokens WHERE audience = 'admin' ORDER BY token`)
	} else {
		rows, err = r.db.QueryContext(ctx, `
			SELECT token FROM tokens
			WHERE audience = 'customer' AND order_id = $1
			ORDER BY token
		`, msg.OrderID)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}
