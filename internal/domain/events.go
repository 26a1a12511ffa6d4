package domain

import "time"

type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventOrderPaid          EventType = "order.paid"
)

// OrderEvent is published on the order.events topic, keyed by order id so a
// single order's changes stay in one partition and arrive in order.
type OrderEvent struct {
	Type         EventType   `json:"type"`
	OrderID      string      `json:"order_id"`
	Status       OrderStatus `json:"status"`
	CustomerName string      `json:"customer_name"`
	Phone        string      `json:"phone,omitempty"`
	Total        int64       `json:"total_price"`
	Timestamp    time.Time   `json:"timestamp"`
}

func NewOrderEvent(t EventType, order *Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:         t,
		OrderID:      order.ID,
		Status:       order.Status,
		CustomerName: order.Customer.Name,
		Phone:        order.Customer.Phone,
		Total:        order.Total,
		Timestamp:    at,
	}
}
