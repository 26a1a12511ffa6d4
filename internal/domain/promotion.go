package domain

import "time"

type Promotion struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Code      string       `json:"code"`
	Type      DiscountType `json:"type"`
	Value     int64        `json:"value"`
	MinOrder  int64        `json:"min_order"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (p Promotion) Expired(now time.Time) bool {
	return now.After(p.EndDate)
}
