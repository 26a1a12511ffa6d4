package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/joao-fontenele/drinkshop/internal/catalog"
	"github.com/joao-fontenele/drinkshop/internal/discount"
	"github.com/joao-fontenele/drinkshop/internal/domain"
	"github.com/joao-fontenele/drinkshop/internal/localstore"
)

var ErrLineNotFound = errors.New("cart line not found")

// Storage is the durable key/value store the cart snapshots itself into.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Line is one customized product in the cart. UnitPrice is captured when the
// line is created and does not follow later catalog changes.
type Line struct {
	ItemID        int                  `json:"item_id"`
	Name          string               `json:"name"`
	Category      domain.Category      `json:"category"`
	UnitPrice     int64                `json:"unit_price"`
	Quantity      int                  `json:"quantity"`
	Customization domain.Customization `json:"customization"`
	Label         string               `json:"label"`
}

func (l Line) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

func (l Line) matches(itemID int, c domain.Customization) bool {
	return l.ItemID == itemID && l.Customization.SameAs(c)
}

// Summary holds the figures derived from the cart.
type Summary struct {
	Subtotal int64 `json:"subtotal"`
	Discount int64 `json:"discount"`
	Total    int64 `json:"total"`
	Items    int   `json:"item_count"`
}

type snapshot struct {
	Lines    []Line            `json:"lines"`
	Discount *discount.Applied `json:"discount,omitempty"`
}

// Cart is the storefront's mutable order-in-progress. Every mutation is
// written to storage before it becomes visible; a failed write leaves the
// previous state in place. Cart is not safe for concurrent use.
type Cart struct {
	lines    []Line
	discount *discount.Applied
	storage  Storage
}

// New returns an empty cart. storage may be nil for a cart that is never
// persisted.
func New(storage Storage) *Cart {
	return &Cart{storage: storage}
}

// Load rehydrates the cart saved in storage. A missing snapshot yields an
// empty cart.
func Load(ctx context.Context, storage Storage) (*Cart, error) {
	c := New(storage)

	raw, ok, err := storage.Get(ctx, localstore.KeyCart)
	if err != nil {
		return nil, fmt.Errorf("read cart snapshot: %w", err)
	}
	if !ok || raw == "" {
		return c, nil
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	c.lines = snap.Lines
	c.discount = snap.Discount
	return c, nil
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	for i, l := range c.lines {
		l.Customization.Toppings = slices.Clone(l.Customization.Toppings)
		out[i] = l
	}
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// Discount returns the active discount, if any.
func (c *Cart) Discount() (discount.Applied, bool) {
	if c.discount == nil {
		return discount.Applied{}, false
	}
	return *c.discount, true
}

func (c *Cart) Subtotal() int64 {
	return subtotal(c.lines)
}

// ItemCount is the sum of all line quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Summary recomputes the discount against the current subtotal. The code's
// minimum order is not re-checked here.
func (c *Cart) Summary() Summary {
	sub := c.Subtotal()
	var amount int64
	if c.discount != nil {
		amount = c.discount.Code.AmountFor(sub)
	}
	return Summary{
		Subtotal: sub,
		Discount: amount,
		Total:    discount.Total(sub, amount),
		Items:    c.ItemCount(),
	}
}

// Add merges into an existing line with the same item and customization or
// appends a new one.
func (c *Cart) Add(ctx context.Context, item domain.CatalogItem, custom domain.Customization, quantity int) (Line, error) {
	if quantity < 1 {
		return Line{}, domain.NewValidationError("quantity", "quantity must be at least 1")
	}
	custom = custom.Normalized()

	lines := c.cloneLines()
	idx := slices.IndexFunc(lines, func(l Line) bool { return l.matches(item.ID, custom) })
	if idx >= 0 {
		lines[idx].Quantity += quantity
	} else {
		res := catalog.Resolve(item, custom)
		lines = append(lines, Line{
			ItemID:        item.ID,
			Name:          item.Name,
			Category:      item.Category,
			UnitPrice:     res.UnitPrice,
			Quantity:      quantity,
			Customization: custom,
			Label:         res.Label,
		})
		idx = len(lines) - 1
	}

	if err := c.commit(ctx, lines, c.discount); err != nil {
		return Line{}, err
	}
	return c.lines[idx], nil
}

// UpdateQuantity adds delta to a line's quantity, never going below 1.
func (c *Cart) UpdateQuantity(ctx context.Context, index, delta int) (Line, error) {
	if index < 0 || index >= len(c.lines) {
		return Line{}, fmt.Errorf("%w: index %d", ErrLineNotFound, index)
	}
	return c.SetQuantity(ctx, index, c.lines[index].Quantity+delta)
}

// SetQuantity sets a line's quantity, clamped to at least 1. Use Remove to
// drop a line.
func (c *Cart) SetQuantity(ctx context.Context, index, quantity int) (Line, error) {
	if index < 0 || index >= len(c.lines) {
		return Line{}, fmt.Errorf("%w: index %d", ErrLineNotFound, index)
	}
	lines := c.cloneLines()
	lines[index].Quantity = max(1, quantity)

	if err := c.commit(ctx, lines, c.discount); err != nil {
		return Line{}, err
	}
	return c.lines[index], nil
}

// Remove deletes a line. An applied discount stays even if the cart empties.
func (c *Cart) Remove(ctx context.Context, index int) (Line, error) {
	if index < 0 || index >= len(c.lines) {
		return Line{}, fmt.Errorf("%w: index %d", ErrLineNotFound, index)
	}
	removed := c.lines[index]
	lines := slices.Delete(c.cloneLines(), index, index+1)

	if err := c.commit(ctx, lines, c.discount); err != nil {
		return Line{}, err
	}
	return removed, nil
}

// Clear empties the cart and drops the applied discount.
func (c *Cart) Clear(ctx context.Context) error {
	return c.commit(ctx, nil, nil)
}

// SetDiscount replaces any active discount.
func (c *Cart) SetDiscount(ctx context.Context, applied discount.Applied) error {
	return c.commit(ctx, c.lines, &applied)
}

func (c *Cart) ClearDiscount(ctx context.Context) error {
	return c.commit(ctx, c.lines, nil)
}

func (c *Cart) cloneLines() []Line {
	return slices.Clone(c.lines)
}

func (c *Cart) commit(ctx context.Context, lines []Line, applied *discount.Applied) error {
	if applied != nil {
		d := *applied
		d.Amount = d.Code.AmountFor(subtotal(lines))
		applied = &d
	}

	if c.storage != nil {
		data, err := json.Marshal(snapshot{Lines: lines, Discount: applied})
		if err != nil {
			return fmt.Errorf("encode cart snapshot: %w", err)
		}
		if err := c.storage.Set(ctx, localstore.KeyCart, string(data)); err != nil {
			return fmt.Errorf("save cart snapshot: %w", err)
		}
	}

	c.lines = lines
	c.discount = applied
	return nil
}

func subtotal(lines []Line) int64 {
	var sum int64
	for _, l := range lines {
		sum += l.Total()
	}
	return sum
}
