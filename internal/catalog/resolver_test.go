package catalog

import (
	"testing"

	"github.com/joao-fontenele/drinkshop/internal/domain"
)

func TestResolve(t *testing.T) {
	item := domain.CatalogItem{ID: 2, Name: "Trà Chanh", Price: 10000, Category: domain.CategoryTea}

	t.Run("default customization has empty label", func(t *testing.T) {
		res := Resolve(item, domain.Customization{Sugar: 100, Ice: 100})
		if res.UnitPrice != 10000 {
			t.Errorf("expected unit price 10000, got %d", res.UnitPrice)
		}
		if res.Label != "" {
			t.Errorf("expected empty label, got %q", res.Label)
		}
	})

	t.Run("toppings add their surcharge", func(t *testing.T) {
		res := Resolve(item, domain.Customization{
			Sugar: 100,
			Ice:   100,
			Toppings: []domain.Topping{
				{Name: "Trân châu", Price: 8000},
				{Name: "Kem cheese", Price: 10000},
			},
		})
		if res.UnitPrice != 28000 {
			t.Errorf("expected unit price 28000, got %d", res.UnitPrice)
		}
		if res.Label != "Topping: Trân châu, Kem cheese" {
			t.Errorf("unexpected label %q", res.Label)
		}
	})

	t.Run("lists only non-default levels", func(t *testing.T) {
		res := Resolve(item, domain.Customization{Sugar: 50, Ice: 100})
		if res.Label != "50% đường" {
			t.Errorf("unexpected label %q", res.Label)
		}

		res = Resolve(item, domain.Customization{Sugar: 70, Ice: 0, Toppings: []domain.Topping{{Name: "Nha đam", Price: 5000}}})
		if res.Label != "70% đường, 0% đá, Topping: Nha đam" {
			t.Errorf("unexpected label %q", res.Label)
		}
	})

	t.Run("invalid levels fall back to 100", func(t *testing.T) {
		res := Resolve(item, domain.Customization{Sugar: 42, Ice: -5})
		if res.Label != "" {
			t.Errorf("expected empty label, got %q", res.Label)
		}
	})

	t.Run("negative surcharge is ignored", func(t *testing.T) {
		res := Resolve(item, domain.Customization{Sugar: 100, Ice: 100, Toppings: []domain.Topping{{Name: "x", Price: -3000}}})
		if res.UnitPrice != 10000 {
			t.Errorf("expected unit price 10000, got %d", res.UnitPrice)
		}
	})
}
