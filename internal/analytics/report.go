package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/joao-fontenele/drinkshop/internal/domain"
)

type ReportType string

const (
	ReportRevenue       ReportType = "revenue"
	ReportOrders        ReportType = "orders"
	ReportProducts      ReportType = "products"
	ReportCustomers     ReportType = "customers"
	ReportComprehensive ReportType = "comprehensive"
)

// ParseReportType maps unknown names to the comprehensive report.
func ParseReportType(s string) ReportType {
	switch t := ReportType(s); t {
	case ReportRevenue, ReportOrders, ReportProducts, ReportCustomers:
		return t
	}
	return ReportComprehensive
}

// Summary holds the headline figures of a report.
type Summary struct {
	TotalRevenue       int64   `json:"total_revenue"`
	TotalOrders        int     `json:"total_orders"`
	PaidOrders         int     `json:"paid_orders"`
	AverageOrderValue  float64 `json:"average_order_value"`
	BestDay            string  `json:"best_day,omitempty"`
	BestDayRevenue     int64   `json:"best_day_revenue"`
	TopProduct         string  `json:"top_product,omitempty"`
	TopProductQuantity int     `json:"top_product_quantity"`
	TotalItemsSold     int     `json:"total_items_sold"`
	UniqueProducts     int     `json:"unique_products"`
	TopCustomer        string  `json:"top_customer,omitempty"`
	TopCustomerSpent   int64   `json:"top_customer_spent"`
	TotalCustomers     int     `json:"total_customers"`
	RepeatCustomers    int     `json:"repeat_customers"`
}

type Report struct {
	Type        ReportType      `json:"type"`
	Days        int             `json:"days"`
	Period      string          `json:"period"`
	GeneratedAt time.Time       `json:"generated_at"`
	Summary     Summary         `json:"summary"`
	Revenue     []DayRevenue    `json:"daily_data,omitempty"`
	Statuses    []StatusCount   `json:"status_breakdown,omitempty"`
	Products    []ProductStats  `json:"products,omitempty"`
	Customers   []CustomerStats `json:"customers,omitempty"`
	Segments    []SegmentCount  `json:"segments,omitempty"`
}

// GenerateReport restricts orders to the trailing days window and builds
// the sections for reportType. The summary is always filled in.
func GenerateReport(orders []domain.Order, reportType ReportType, days int, now time.Time) Report {
	if days <= 0 {
		days = 30
	}
	window := Since(orders, now.Add(-time.Duration(days)*24*time.Hour))

	revenue := AggregateRevenue(window, days, now)
	products := AggregateProducts(window)
	customers := AggregateCustomers(window)

	r := Report{
		Type:        reportType,
		Days:        days,
		Period:      fmt.Sprintf("%d ngày qua", days),
		GeneratedAt: now,
		Summary:     summarize(window, revenue, products, customers),
	}

	switch reportType {
	case ReportRevenue:
		r.Revenue = revenue
	case ReportOrders:
		r.Statuses = StatusBreakdown(window)
	case ReportProducts:
		r.Products = products
	case ReportCustomers:
		r.Customers = customers
		r.Segments = Segments(customers)
	default:
		r.Type = ReportComprehensive
		r.Revenue = revenue
		r.Statuses = StatusBreakdown(window)
		r.Products = products
		r.Customers = customers
		r.Segments = Segments(customers)
	}
	return r
}

func summarize(orders []domain.Order, revenue []DayRevenue, products []ProductStats, customers []CustomerStats) Summary {
	s := Summary{
		TotalOrders:    len(orders),
		UniqueProducts: len(products),
		TotalCustomers: len(customers),
	}

	if len(revenue) > 0 {
		s.BestDay = revenue[0].Date
	}
	for _, day := range revenue {
		s.TotalRevenue += day.Revenue
		s.PaidOrders += day.Orders
		if day.Revenue > s.BestDayRevenue {
			s.BestDay = day.Date
			s.BestDayRevenue = day.Revenue
		}
	}
	if s.PaidOrders > 0 {
		s.AverageOrderValue = float64(s.TotalRevenue) / float64(s.PaidOrders)
	}

	for _, p := range products {
		s.TotalItemsSold += p.Quantity
	}
	if len(products) > 0 {
		s.TopProduct = products[0].Name
		s.TopProductQuantity = products[0].Quantity
	}

	if len(customers) > 0 {
		s.TopCustomer = customers[0].Name
		s.TopCustomerSpent = customers[0].TotalSpent
	}
	for _, c := range customers {
		if c.Orders > 1 {
			s.RepeatCustomers++
		}
	}
	return s
}

type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Start is the first instant included in the period, in now's location.
// Unknown periods behave like today.
func (p Period) Start(now time.Time) time.Time {
	y, m, d := now.Date()
	switch p {
	case PeriodWeek:
		return now.Add(-7 * 24 * time.Hour)
	case PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	case PeriodYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location())
	}
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// Days is the length of the revenue chart for the period.
func (p Period) Days() int {
	switch p {
	case PeriodToday:
		return 1
	case PeriodWeek:
		return 7
	case PeriodYear:
		return 365
	}
	return 30
}

// DashboardStats are the stat cards at the top of the admin dashboard.
type DashboardStats struct {
	Period        Period         `json:"period"`
	TotalOrders   int            `json:"total_orders"`
	TotalRevenue  int64          `json:"total_revenue"`
	ActiveOrders  int            `json:"active_orders"`
	AverageRating float64        `json:"average_rating"`
	Revenue       []DayRevenue   `json:"revenue"`
	TopProducts   []ProductStats `json:"top_products"`
}

const topProductsOnDashboard = 10

func Dashboard(orders []domain.Order, feedback []domain.Feedback, period Period, now time.Time) DashboardStats {
	window := Since(orders, period.Start(now))

	stats := DashboardStats{
		Period:        period,
		TotalOrders:   len(window),
		AverageRating: math.Round(AverageRating(feedback)*10) / 10,
		Revenue:       AggregateRevenue(orders, period.Days(), now),
	}
	for _, o := range window {
		if o.IsPaid {
			stats.TotalRevenue += o.Total
		}
		if o.Status == domain.OrderStatusPending || o.Status == domain.OrderStatusPreparing {
			stats.ActiveOrders++
		}
	}

	products := AggregateProducts(window)
	stats.TopProducts = products[:min(len(products), topProductsOnDashboard)]
	return stats
}

// SummaryCards are the four figures above the analytics charts.
type SummaryCards struct {
	Days         int   `json:"days"`
	TotalRevenue int64 `json:"total_revenue"`
	TotalOrders  int   `json:"total_orders"`
	Customers    int   `json:"new_customers"`
	Satisfaction int   `json:"satisfaction"`
}

func Summarize(orders []domain.Order, feedback []domain.Feedback, days int, now time.Time) SummaryCards {
	if days <= 0 {
		days = 30
	}
	window := Since(orders, now.Add(-time.Duration(days)*24*time.Hour))

	cards := SummaryCards{
		Days:         days,
		TotalOrders:  len(window),
		Satisfaction: int(math.Round(AverageRating(feedback) / 5 * 100)),
	}
	seen := make(map[string]struct{})
	for _, o := range window {
		if o.IsPaid {
			cards.TotalRevenue += o.Total
		}
		seen[CustomerKey(o.Customer)] = struct{}{}
	}
	cards.Customers = len(seen)
	return cards
}
