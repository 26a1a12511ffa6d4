package domain

type Category string

const (
	CategoryTea      Category = "tea"
	CategoryCoffee   Category = "coffee"
	CategorySmoothie Category = "smoothie"
	CategorySnacks   Category = "snacks"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryTea, CategoryCoffee, CategorySmoothie, CategorySnacks:
		return true
	}
	return false
}

// CatalogItem is a purchasable menu entry. Prices are whole VND.
type CatalogItem struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Price       int64    `json:"price"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Available   bool     `json:"available"`
	Rating      float64  `json:"rating"`
	Reviews     int      `json:"reviews"`
}
