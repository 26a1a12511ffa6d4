package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/drinkshop/internal/domain"
)

var ErrTerminalStatus = errors.New("order status cannot advance")

// ListFilter narrows List. Zero values mean no restriction.
type ListFilter struct {
	Status domain.OrderStatus
	Since  time.Time
	Limit  int
}

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `
	id, order_type, customer_name, phone, address, table_number,
	subtotal, discount_amount, total_price, note, status, is_paid,
	discount_code, discount_type, discount_value,
	created_at, updated_at, paid_at, cancelled_at`

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	order.ID = uuid.New().String()

	var code, discountType sql.NullString
	var value sql.NullInt64
	if d := order.AppliedDiscount; d != nil {
		code = sql.NullString{String: d.Code, Valid: true}
		discountType = sql.NullString{String: string(d.Type), Valid: true}
		value = sql.NullInt64{Int64: d.Value, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, order_type, customer_name, phone, address, table_number,
			subtotal, discount_amount, total_price, note, status, is_paid,
			discount_code, discount_type, discount_value, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, order.ID, order.Customer.Type, order.Customer.Name, order.Customer.Phone, order.Customer.Address, order.Customer.TableNumber,
		order.Subtotal, order.DiscountAmount, order.Total, order.Note, order.Status, order.IsPaid,
		code, discountType, value, order.CreatedAt)
	if err != nil {
		return err
	}

	for i, item := range order.Items {
		toppings, err := json.Marshal(nonNilToppings(item.Toppings))
		if err != nil {
			return fmt.Errorf("marshal toppings: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, position, item_id, name, price, quantity, sugar, ice, toppings, customization)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, uuid.New().String(), order.ID, i, item.ItemID, item.Name, item.Price, item.Quantity,
			int(item.Sugar), int(item.Ice), string(toppings), item.Customization)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	byID := map[string]*domain.Order{order.ID: order}
	if err := r.loadItems(ctx, byID, []string{order.ID}); err != nil {
		return nil, err
	}
	return order, nil
}

// List returns orders newest first with their items loaded in one batch.
func (r *OrderRepository) List(ctx context.Context, f ListFilter) ([]domain.Order, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[string]*domain.Order)
	var ids []string
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		byID[order.ID] = order
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []domain.Order{}, nil
	}
	if err := r.loadItems(ctx, byID, ids); err != nil {
		return nil, err
	}

	out := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, *byID[id])
	}
	return out, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, byID map[string]*domain.Order, ids []string) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, item_id, name, price, quantity, sugar, ice, toppings, customization
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			orderID     string
			item        domain.OrderItem
			sugar, ice  int
			rawToppings []byte
		)
		if err := rows.Scan(&orderID, &item.ItemID, &item.Name, &item.Price, &item.Quantity,
			&sugar, &ice, &rawToppings, &item.Customization); err != nil {
			return err
		}
		item.Sugar = domain.Level(sugar)
		item.Ice = domain.Level(ice)
		if err := json.Unmarshal(rawToppings, &item.Toppings); err != nil {
			return fmt.Errorf("unmarshal toppings of order %s: %w", orderID, err)
		}

		order, ok := byID[orderID]
		if !ok {
			continue
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

// UpdateStatus stores any status as reported by staff. Moving to cancelled
// stamps cancelled_at.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    updated_at = NOW(),
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END
		WHERE id = $2
	`, status, id)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// Advance moves an order one step along the status sequence. The row is
// locked so two concurrent advances cannot skip a step.
func (r *OrderRepository) Advance(ctx context.Context, id string) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var current domain.OrderStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	next, ok := domain.NextStatus(current)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTerminalStatus, current)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, next, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id string) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET is_paid = TRUE, paid_at = COALESCE(paid_at, NOW()), updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                              domain.Order
		code, discountType             sql.NullString
		value                          sql.NullInt64
		updatedAt, paidAt, cancelledAt sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.Customer.Type, &o.Customer.Name, &o.Customer.Phone, &o.Customer.Address, &o.Customer.TableNumber,
		&o.Subtotal, &o.DiscountAmount, &o.Total, &o.Note, &o.Status, &o.IsPaid,
		&code, &discountType, &value,
		&o.CreatedAt, &updatedAt, &paidAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	if code.Valid {
		o.AppliedDiscount = &domain.OrderDiscount{
			Code:   code.String,
			Type:   domain.DiscountType(discountType.String),
			Value:  value.Int64,
			Amount: o.DiscountAmount,
		}
	}
	o.UpdatedAt = timePtr(updatedAt)
	o.PaidAt = timePtr(paidAt)
	o.CancelledAt = timePtr(cancelledAt)
	return &o, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nonNilToppings(t []domain.Topping) []domain.Topping {
	if t == nil {
		return []domain.Topping{}
	}
	return t
}
