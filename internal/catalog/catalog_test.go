package catalog

import (
	"testing"

	"github.com/joao-fontenele/drinkshop/internal/domain"
)

func TestCatalog_List(t *testing.T) {
	c := Default()

	t.Run("no filter returns whole menu", func(t *testing.T) {
		if got := len(c.List(Filter{})); got != 14 {
			t.Errorf("expected 14 items, got %d", got)
		}
	})

	t.Run("filters by category", func(t *testing.T) {
		items := c.List(Filter{Category: domain.CategoryCoffee})
		if len(items) != 4 {
			t.Fatalf("expected 4 coffee items, got %d", len(items))
		}
		for _, item := range items {
			if item.Category != domain.CategoryCoffee {
				t.Errorf("unexpected category %s for %s", item.Category, item.Name)
			}
		}
	})

	t.Run("filters by minimum rating", func(t *testing.T) {
		for _, item := range c.List(Filter{MinRating: 4.7}) {
			if item.Rating < 4.7 {
				t.Errorf("item %s has rating %.1f below filter", item.Name, item.Rating)
			}
		}
	})
}

func TestCatalog_Find(t *testing.T) {
	c := Default()

	item, ok := c.Find(6)
	if !ok {
		t.Fatal("expected item 6 to exist")
	}
	if item.Name != "Bạc Xỉu" || item.Price != 25000 {
		t.Errorf("unexpected item: %+v", item)
	}

	if _, ok := c.Find(99); ok {
		t.Error("expected item 99 to be missing")
	}
}

func TestCatalog_ItemsAreCopies(t *testing.T) {
	c := Default()
	items := c.Items()
	items[0].Price = 1

	item, _ := c.Find(items[0].ID)
	if item.Price == 1 {
		t.Error("mutating the returned slice changed the catalog")
	}
}

func TestAllowsToppings(t *testing.T) {
	cases := map[domain.Category]bool{
		domain.CategoryTea:      true,
		domain.CategorySmoothie: true,
		domain.CategoryCoffee:   false,
		domain.CategorySnacks:   false,
	}
	for category, want := range cases {
		if got := AllowsToppings(category); got != want {
			t.Errorf("AllowsToppings(%s) = %v, want %v", category, got, want)
		}
	}
}
