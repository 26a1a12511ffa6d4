package domain

import (
	"fmt"
	"strings"
	"time"
)

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine-in"
	OrderTypeDelivery OrderType = "delivery"
)

// CustomerInfo carries the contact block. Dine-in orders use TableNumber,
// delivery orders use Phone and Address.
type CustomerInfo struct {
	Type        OrderType `json:"type"`
	Name        string    `json:"customer_name"`
	Phone       string    `json:"phone,omitempty"`
	Address     string    `json:"address,omitempty"`
	TableNumber string    `json:"table_number,omitempty"`
}

// Validate checks the fields required by the order type.
func (c CustomerInfo) Validate() error {
	switch c.Type {
	case OrderTypeDineIn:
		if strings.TrimSpace(c.TableNumber) == "" {
			return NewValidationError("table number", "table number is required")
		}
	case OrderTypeDelivery:
		if strings.TrimSpace(c.Phone) == "" {
			return NewValidationError("phone", "phone is required")
		}
		if strings.TrimSpace(c.Address) == "" {
			return NewValidationError("address", "address is required")
		}
	default:
		return NewValidationError("type", fmt.Sprintf("unknown order type %q", c.Type))
	}
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("customer name", "customer name is required")
	}
	return nil
}

// OrderItem is a flattened cart line as stored with the order.
type OrderItem struct {
	ItemID        int       `json:"item_id"`
	Name          string    `json:"name"`
	Price         int64     `json:"price"`
	Quantity      int       `json:"quantity"`
	Sugar         Level     `json:"sugar"`
	Ice           Level     `json:"ice"`
	Toppings      []Topping `json:"toppings"`
	Customization string    `json:"customization"`
}

func (i OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// OrderDiscount records the promo code that was honoured at submission.
type OrderDiscount struct {
	Code   string       `json:"code"`
	Type   DiscountType `json:"type"`
	Value  int64        `json:"value"`
	Amount int64        `json:"amount"`
}

type Order struct {
	ID              string         `json:"id"`
	Items           []OrderItem    `json:"items"`
	Customer        CustomerInfo   `json:"customer_info"`
	Subtotal        int64          `json:"subtotal"`
	DiscountAmount  int64          `json:"discount_amount"`
	Total           int64          `json:"total_price"`
	Note            string         `json:"note"`
	Status          OrderStatus    `json:"status"`
	IsPaid          bool           `json:"is_paid"`
	AppliedDiscount *OrderDiscount `json:"applied_discount,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       *time.Time     `json:"updated_at,omitempty"`
	PaidAt          *time.Time     `json:"paid_at,omitempty"`
	CancelledAt     *time.Time     `json:"cancelled_at,omitempty"`
}

// ItemsSubtotal sums the line totals of the order.
func (o *Order) ItemsSubtotal() int64 {
	var sum int64
	for _, item := range o.Items {
		sum += item.LineTotal()
	}
	return sum
}

// NetTotal is max(0, subtotal - discount).
func NetTotal(subtotal, discount int64) int64 {
	return max(0, subtotal-discount)
}

// Validate checks an order as received from a client: customer block, at
// least one line, positive quantities, and totals that add up.
func (o *Order) Validate() error {
	if err := o.Customer.Validate(); err != nil {
		return err
	}
	if len(o.Items) == 0 {
		return NewValidationError("items", "order has no items")
	}
	for i, item := range o.Items {
		if item.Quantity < 1 {
			return NewValidationError("quantity", fmt.Sprintf("item %d has quantity %d", i, item.Quantity))
		}
		if item.Price < 0 {
			return NewValidationError("price", fmt.Sprintf("item %d has negative price", i))
		}
	}
	if o.DiscountAmount < 0 {
		return NewValidationError("discount_amount", "discount cannot be negative")
	}
	if sub := o.ItemsSubtotal(); o.Subtotal != sub {
		return NewValidationError("subtotal", fmt.Sprintf("subtotal %d does not match items %d", o.Subtotal, sub))
	}
	if want := NetTotal(o.Subtotal, o.DiscountAmount); o.Total != want {
		return NewValidationError("total_price", fmt.Sprintf("total %d does not match %d", o.Total, want))
	}
	return nil
}

// ShortOrderID is the prefix shown to customers in notifications.
func ShortOrderID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
