package catalog

import (
	"slices"

	"github.com/joao-fontenele/drinkshop/internal/domain"
)

var defaultItems = []domain.CatalogItem{
	{ID: 1, Name: "Trà Đá", Price: 5000, Category: domain.CategoryTea, Description: "Trà đá truyền thống, thơm mát, giải khát", Image: "images/tra-da.jpg", Available: true, Rating: 4.5, Reviews: 128},
	{ID: 2, Name: "Trà Chanh", Price: 10000, Category: domain.CategoryTea, Description: "Trà chanh tươi mát, chua ngọt hài hòa", Image: "images/tra-chanh.jpg", Available: true, Rating: 4.7, Reviews: 95},
	{ID: 3, Name: "Trà Quất", Price: 10000, Category: domain.CategoryTea, Description: "Trà quất thơm ngon, giàu vitamin C", Image: "images/tra-quat.jpg", Available: true, Rating: 4.6, Reviews: 87},
	{ID: 4, Name: "Cafe Nâu", Price: 20000, Category: domain.CategoryCoffee, Description: "Cà phê sữa đậm đà, thơm ngon", Image: "images/cafe-nau.jpg", Available: true, Rating: 4.8, Reviews: 156},
	{ID: 5, Name: "Cafe Đen", Price: 20000, Category: domain.CategoryCoffee, Description: "Cà phê đen nguyên chất, đậm đà", Image: "images/cafe-den.jpg", Available: true, Rating: 4.4, Reviews: 89},
	{ID: 6, Name: "Bạc Xỉu", Price: 25000, Category: domain.CategoryCoffee, Description: "Cà phê sữa ngọt ngào, êm dịu", Image: "images/bac-xiu.jpg", Available: true, Rating: 4.9, Reviews: 201},
	{ID: 7, Name: "Cafe Muối", Price: 25000, Category: domain.CategoryCoffee, Description: "Cà phê muối độc đáo, vị mặn ngọt hài hòa", Image: "images/cafe-muoi.jpg", Available: true, Rating: 4.3, Reviews: 67},
	{ID: 8, Name: "Sữa Chua Lắc", Price: 25000, Category: domain.CategorySmoothie, Description: "Sữa chua lắc mát lạnh, giàu dinh dưỡng", Image: "images/sua-chua-lac.jpg", Available: true, Rating: 4.5, Reviews: 112},
	{ID: 9, Name: "SC Lắc Dâu", Price: 30000, Category: domain.CategorySmoothie, Description: "Sữa chua lắc dâu tây tươi ngon", Image: "images/sc-lac-dau.jpg", Available: true, Rating: 4.7, Reviews: 98},
	{ID: 10, Name: "SC Lắc Việt Quất", Price: 30000, Category: domain.CategorySmoothie, Description: "Sữa chua lắc việt quất thơm ngon bổ dưỡng", Image: "images/sc-lac-viet-quat.jpg", Available: true, Rating: 4.6, Reviews: 76},
	{ID: 11, Name: "Bim Bim", Price: 6000, Category: domain.CategorySnacks, Description: "Snack giòn rụm, ăn vặt lý tưởng", Image: "images/bim-bim.jpg", Available: true, Rating: 4.2, Reviews: 54},
	{ID: 12, Name: "Hướng Dương", Price: 10000, Category: domain.CategorySnacks, Description: "Hạt hướng dương rang muối thơm béo", Image: "images/huong-duong.jpg", Available: true, Rating: 4.1, Reviews: 43},
	{ID: 13, Name: "Thăng Long Cứng", Price: 15000, Category: domain.CategorySnacks, Description: "Bánh kẹo truyền thống Hà Nội", Image: "images/thang-long-cung.jpg", Available: true, Rating: 4.0, Reviews: 32},
	{ID: 14, Name: "Cay Cay", Price: 2000, Category: domain.CategorySnacks, Description: "Kẹo cay cay ngọt ngọt, vị độc đáo", Image: "images/cay-cay.jpg", Available: true, Rating: 3.9, Reviews: 28},
}

var defaultToppings = []domain.Topping{
	{Name: "Nha đam", Price: 5000},
	{Name: "Thạch dừa", Price: 5000},
	{Name: "Trân châu", Price: 8000},
	{Name: "Pudding", Price: 8000},
	{Name: "Kem cheese", Price: 10000},
}

// Catalog is the read-only menu loaded for a session.
type Catalog struct {
	items    []domain.CatalogItem
	toppings []domain.Topping
}

func New(items []domain.CatalogItem, toppings []domain.Topping) *Catalog {
	return &Catalog{
		items:    slices.Clone(items),
		toppings: slices.Clone(toppings),
	}
}

// Default returns the shop's built-in menu.
func Default() *Catalog {
	return New(defaultItems, defaultToppings)
}

func (c *Catalog) Items() []domain.CatalogItem {
	return slices.Clone(c.items)
}

func (c *Catalog) Toppings() []domain.Topping {
	return slices.Clone(c.toppings)
}

func (c *Catalog) Find(id int) (domain.CatalogItem, bool) {
	for _, item := range c.items {
		if item.ID == id {
			return item, true
		}
	}
	return domain.CatalogItem{}, false
}

func (c *Catalog) Topping(name string) (domain.Topping, bool) {
	for _, t := range c.toppings {
		if t.Name == name {
			return t, true
		}
	}
	return domain.Topping{}, false
}

// Filter narrows the menu. An empty category matches all categories and a
// zero minRating matches all ratings.
type Filter struct {
	Category  domain.Category
	MinRating float64
}

func (c *Catalog) List(f Filter) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(c.items))
	for _, item := range c.items {
		if f.Category != "" && item.Category != f.Category {
			continue
		}
		if item.Rating < f.MinRating {
			continue
		}
		out = append(out, item)
	}
	return out
}

// AllowsToppings reports whether the category offers toppings. Coffee and
// snacks do not.
func AllowsToppings(c domain.Category) bool {
	return c == domain.CategoryTea || c == domain.CategorySmoothie
}
