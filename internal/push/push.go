// Package push keeps device tokens and fans messages out to them. Delivery
// to devices is simulated; the service logs what a real sender would send.
package push

import "time"

type Audience string

const (
	AudienceCustomer Audience = "customer"
	AudienceAdmin    Audience = "admin"
)

func (a Audience) Valid() bool {
	return a == AudienceCustomer || a == AudienceAdmin
}

// Registration binds a device token to an order (customers) or to the staff
// audience (admins).
type Registration struct {
	Token     string    `json:"token"`
	Audience  Audience  `json:"audience"`
	OrderID   string    `json:"order_id,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is addressed to one order's customer devices or to every admin
// device.
type Message struct {
	Audience Audience `json:"audience"`
	OrderID  string   `json:"order_id,omitempty"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
}

type SendResult struct {
	Delivered int `json:"delivered"`
}
