// Package analytics turns order and feedback history into dashboard series
// and reports. Every function is pure: the same inputs and the same "now"
// always give the same output.
package analytics

import (
	"cmp"
	"slices"
	"time"

	"github.com/joao-fontenele/drinkshop/internal/domain"
)

const (
	dateLayout  = "2006-01-02"
	anonymous   = "anonymous"
	unknownName = "Unknown"
)

// DayRevenue is one calendar-day bucket of paid orders, in the location of
// the now passed to AggregateRevenue.
type DayRevenue struct {
	Date         string  `json:"date"`
	Revenue      int64   `json:"revenue"`
	Orders       int     `json:"orders"`
	AverageOrder float64 `json:"average_order"`
}

type ProductStats struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Revenue  int64  `json:"revenue"`
	Orders   int    `json:"orders"`
}

type CustomerStats struct {
	Key          string    `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Orders       int       `json:"orders"`
	TotalSpent   int64     `json:"total_spent"`
	AverageOrder float64   `json:"average_order"`
	FirstOrder   time.Time `json:"first_order"`
	LastOrder    time.Time `json:"last_order"`
}

type StatusCount struct {
	Status domain.OrderStatus `json:"status"`
	Label  string             `json:"label"`
	Count  int                `json:"count"`
}

type Segment string

const (
	SegmentNew     Segment = "new"
	SegmentRegular Segment = "regular"
	SegmentLoyal   Segment = "loyal"
	SegmentVIP     Segment = "vip"
)

var segmentLabels = map[Segment]string{
	SegmentNew:     "Khách mới",
	SegmentRegular: "Khách thường",
	SegmentLoyal:   "Khách quen",
	SegmentVIP:     "Khách VIP",
}

type SegmentCount struct {
	Segment Segment `json:"segment"`
	Label   string  `json:"label"`
	Count   int     `json:"count"`
}

// CustomerKey identifies a customer by phone, then name, then a shared
// anonymous bucket.
func CustomerKey(c domain.CustomerInfo) string {
	switch {
	case c.Phone != "":
		return c.Phone
	case c.Name != "":
		return c.Name
	}
	return anonymous
}

// AggregateRevenue returns exactly windowDays buckets ending with the day of
// now, oldest first. Days are calendar days in now's location. Only paid
// orders count.
func AggregateRevenue(orders []domain.Order, windowDays int, now time.Time) []DayRevenue {
	if windowDays <= 0 {
		return []DayRevenue{}
	}

	buckets := make([]DayRevenue, windowDays)
	index := make(map[string]int, windowDays)
	loc := now.Location()
	today := now
	for i := range windowDays {
		key := today.AddDate(0, 0, i-windowDays+1).Format(dateLayout)
		buckets[i] = DayRevenue{Date: key}
		index[key] = i
	}

	for _, o := range orders {
		if !o.IsPaid {
			continue
		}
		i, ok := index[o.CreatedAt.In(loc).Format(dateLayout)]
		if !ok {
			continue
		}
		buckets[i].Revenue += o.Total
		buckets[i].Orders++
	}

	for i := range buckets {
		if buckets[i].Orders > 0 {
			buckets[i].AverageOrder = float64(buckets[i].Revenue) / float64(buckets[i].Orders)
		}
	}
	return buckets
}

// AggregateProducts totals every line item by product name, best sellers
// first. Ties keep first-seen order.
func AggregateProducts(orders []domain.Order) []ProductStats {
	var out []ProductStats
	index := make(map[string]int)

	for _, o := range orders {
		for _, item := range o.Items {
			i, ok := index[item.Name]
			if !ok {
				i = len(out)
				index[item.Name] = i
				out = append(out, ProductStats{Name: item.Name})
			}
			out[i].Quantity += item.Quantity
			out[i].Revenue += item.LineTotal()
			out[i].Orders++
		}
	}

	slices.SortStableFunc(out, func(a, b ProductStats) int {
		return cmp.Compare(b.Quantity, a.Quantity)
	})
	if out == nil {
		return []ProductStats{}
	}
	return out
}

// AggregateCustomers groups orders by CustomerKey, biggest spenders first.
func AggregateCustomers(orders []domain.Order) []CustomerStats {
	var out []CustomerStats
	index := make(map[string]int)

	for _, o := range orders {
		key := CustomerKey(o.Customer)
		i, ok := index[key]
		if !ok {
			name := o.Customer.Name
			if name == "" {
				name = unknownName
			}
			i = len(out)
			index[key] = i
			out = append(out, CustomerStats{
				Key:        key,
				Name:       name,
				Phone:      o.Customer.Phone,
				FirstOrder: o.CreatedAt,
				LastOrder:  o.CreatedAt,
			})
		}

		c := &out[i]
		c.Orders++
		c.TotalSpent += o.Total
		c.AverageOrder = float64(c.TotalSpent) / float64(c.Orders)
		if o.CreatedAt.Before(c.FirstOrder) {
			c.FirstOrder = o.CreatedAt
		}
		if o.CreatedAt.After(c.LastOrder) {
			c.LastOrder = o.CreatedAt
		}
	}

	slices.SortStableFunc(out, func(a, b CustomerStats) int {
		return cmp.Compare(b.TotalSpent, a.TotalSpent)
	})
	if out == nil {
		return []CustomerStats{}
	}
	return out
}

// StatusBreakdown counts orders per status. Sequence statuses come first in
// lifecycle order, then cancelled, then anything else by name.
func StatusBreakdown(orders []domain.Order) []StatusCount {
	counts := make(map[domain.OrderStatus]int)
	for _, o := range orders {
		counts[o.Status]++
	}

	rank := func(s domain.OrderStatus) int {
		if i := slices.Index(domain.StatusSequence, s); i >= 0 {
			return i
		}
		if s == domain.OrderStatusCancelled {
			return len(domain.StatusSequence)
		}
		return len(domain.StatusSequence) + 1
	}

	out := make([]StatusCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, StatusCount{Status: s, Label: s.Label(), Count: n})
	}
	slices.SortFunc(out, func(a, b StatusCount) int {
		if c := cmp.Compare(rank(a.Status), rank(b.Status)); c != 0 {
			return c
		}
		return cmp.Compare(a.Status, b.Status)
	})
	return out
}

// Segments buckets customers by how often they order.
func Segments(customers []CustomerStats) []SegmentCount {
	order := []Segment{SegmentNew, SegmentRegular, SegmentLoyal, SegmentVIP}
	counts := make(map[Segment]int)
	for _, c := range customers {
		counts[segmentOf(c.Orders)]++
	}

	out := make([]SegmentCount, 0, len(order))
	for _, s := range order {
		if counts[s] == 0 {
			continue
		}
		out = append(out, SegmentCount{Segment: s, Label: segmentLabels[s], Count: counts[s]})
	}
	return out
}

func segmentOf(orders int) Segment {
	switch {
	case orders <= 1:
		return SegmentNew
	case orders <= 3:
		return SegmentRegular
	case orders <= 10:
		return SegmentLoyal
	}
	return SegmentVIP
}

// Since keeps orders created at or after start.
func Since(orders []domain.Order, start time.Time) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if !o.CreatedAt.Before(start) {
			out = append(out, o)
		}
	}
	return out
}

// AverageRating is the mean feedback rating, 0 without feedback.
func AverageRating(feedback []domain.Feedback) float64 {
	if len(feedback) == 0 {
		return 0
	}
	var sum int
	for _, f := range feedback {
		sum += f.Rating
	}
	return float64(sum) / float64(len(feedback))
}
