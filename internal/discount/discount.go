package discount

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joao-fontenele/drinkshop/internal/domain"
)

var (
	ErrUnknownCode   = errors.New("unknown discount code")
	ErrMinimumNotMet = errors.New("minimum order not met")
)

// Code is one entry of the promo code table.
type Code struct {
	Code        string              `json:"code"`
	Type        domain.DiscountType `json:"type"`
	Value       int64               `json:"value"`
	MinOrder    int64               `json:"min_order"`
	Description string              `json:"description"`
}

// AmountFor computes the discount on subtotal. Percentages truncate toward
// zero and the result never exceeds the subtotal.
func (c Code) AmountFor(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	var amount int64
	switch c.Type {
	case domain.DiscountPercentage:
		amount = subtotal * c.Value / 100
	default:
		amount = c.Value
	}
	return min(max(amount, 0), subtotal)
}

// Applied is the single active discount of a cart.
type Applied struct {
	Code   Code  `json:"code"`
	Amount int64 `json:"amount"`
}

// Record converts the discount into the form stored with an order.
func (a Applied) Record() *domain.OrderDiscount {
	return &domain.OrderDiscount{
		Code:   a.Code.Code,
		Type:   a.Code.Type,
		Value:  a.Code.Value,
		Amount: a.Amount,
	}
}

var defaultCodes = []Code{
	{Code: "WELCOME10", Type: domain.DiscountPercentage, Value: 10, MinOrder: 50000, Description: "Giảm 10% cho khách hàng mới"},
	{Code: "SAVE20K", Type: domain.DiscountFixed, Value: 20000, MinOrder: 100000, Description: "Giảm 20.000đ cho đơn từ 100.000đ"},
	{Code: "STUDENT15", Type: domain.DiscountPercentage, Value: 15, MinOrder: 30000, Description: "Giảm 15% cho học sinh sinh viên"},
	{Code: "WEEKEND25", Type: domain.DiscountFixed, Value: 25000, MinOrder: 150000, Description: "Giảm 25.000đ cuối tuần"},
}

// Engine validates promo codes against a fixed table.
type Engine struct {
	codes map[string]Code
}

func NewEngine(codes []Code) *Engine {
	m := make(map[string]Code, len(codes))
	for _, c := range codes {
		c.Code = normalize(c.Code)
		m[c.Code] = c
	}
	return &Engine{codes: m}
}

func DefaultEngine() *Engine {
	return NewEngine(defaultCodes)
}

// DefaultCodes returns a copy of the built-in code table.
func DefaultCodes() []Code {
	return slices.Clone(defaultCodes)
}

// FromPromotion turns a running promotion into a code entry. ok is false when
// the promotion is inactive or outside its dates at now.
func FromPromotion(p domain.Promotion, now time.Time) (Code, bool) {
	if !p.Active || now.Before(p.StartDate) || p.Expired(now) {
		return Code{}, false
	}
	return Code{
		Code:        normalize(p.Code),
		Type:        p.Type,
		Value:       p.Value,
		MinOrder:    p.MinOrder,
		Description: p.Name,
	}, true
}

func (e *Engine) Lookup(code string) (Code, bool) {
	c, ok := e.codes[normalize(code)]
	return c, ok
}

// Apply validates code for subtotal and returns the discount to activate.
func (e *Engine) Apply(code string, subtotal int64) (Applied, error) {
	c, ok := e.Lookup(code)
	if !ok {
		return Applied{}, fmt.Errorf("%w: %s", ErrUnknownCode, normalize(code))
	}
	if subtotal < c.MinOrder {
		return Applied{}, fmt.Errorf("%w: %s requires %d", ErrMinimumNotMet, c.Code, c.MinOrder)
	}
	return Applied{Code: c, Amount: c.AmountFor(subtotal)}, nil
}

// Total is the amount payable after a discount.
func Total(subtotal, discount int64) int64 {
	return domain.NetTotal(subtotal, discount)
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
