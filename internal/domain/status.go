package domain

import "fmt"

// OrderStatus is the logical lifecycle state of an order. Display text lives in
// statusLabels and is never used as a state key.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusArchived  OrderStatus = "archived"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// StatusSequence is the ordered progress path shown to customers.
var StatusSequence = []OrderStatus{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusCompleted,
	OrderStatusArchived,
}

var statusLabels = map[OrderStatus]string{
	OrderStatusPending:   "Đang chờ xử lý",
	OrderStatusPreparing: "Đang chuẩn bị",
	OrderStatusCompleted: "Đã hoàn thành",
	OrderStatusArchived:  "Đã lưu trữ",
	OrderStatusCancelled: "Đã hủy",
}

var legacyStatuses = map[string]OrderStatus{
	"Đang chờ xử lý": OrderStatusPending,
	"Đang chuẩn bị":  OrderStatusPreparing,
	"Đã hoàn thành":  OrderStatusCompleted,
	"Đã lưu trữ":     OrderStatusArchived,
	"Đã hủy":         OrderStatusCancelled,
}

func (s OrderStatus) Known() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusArchived || s == OrderStatusCancelled
}

// Label returns the customer-facing text. Unknown statuses are shown verbatim.
func (s OrderStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseStatus accepts both logical keys and the display labels stored by
// older clients.
func ParseStatus(s string) (OrderStatus, error) {
	if st := OrderStatus(s); st.Known() {
		return st, nil
	}
	if st, ok := legacyStatuses[s]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// NextStatus is the admin "advance" step. ok is false for terminal states.
func NextStatus(s OrderStatus) (OrderStatus, bool) {
	switch s {
	case OrderStatusPending:
		return OrderStatusPreparing, true
	case OrderStatusPreparing:
		return OrderStatusCompleted, true
	case OrderStatusCompleted:
		return OrderStatusArchived, true
	}
	return "", false
}
