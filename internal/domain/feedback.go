package domain

import "time"

const DefaultCustomerName = "Khách hàng"

type Feedback struct {
	ID           string    `json:"id"`
	Rating       int       `json:"rating"`
	Text         string    `json:"text"`
	OrderID      string    `json:"order_id,omitempty"`
	CustomerName string    `json:"customer_name"`
	CreatedAt    time.Time `json:"created_at"`
}
