package catalog

import (
	"fmt"
	"strings"

	"github.com/joao-fontenele/drinkshop/internal/domain"
)

const labelSeparator = ", "

// Resolution is the priced, labelled form of a customized item.
type Resolution struct {
	UnitPrice int64
	Label     string
}

// Resolve prices an item with its customization. Out-of-range levels are
// treated as 100%.
func Resolve(item domain.CatalogItem, c domain.Customization) Resolution {
	c = c.Normalized()

	price := item.Price
	for _, t := range c.Toppings {
		price += max(0, t.Price)
	}

	return Resolution{
		UnitPrice: price,
		Label:     Label(c),
	}
}

// Label lists only the non-default selections.
func Label(c domain.Customization) string {
	c = c.Normalized()

	var parts []string
	if c.Sugar != domain.DefaultLevel {
		parts = append(parts, fmt.Sprintf("%d%% đường", c.Sugar))
	}
	if c.Ice != domain.DefaultLevel {
		parts = append(parts, fmt.Sprintf("%d%% đá", c.Ice))
	}
	if len(c.Toppings) > 0 {
		names := make([]string, len(c.Toppings))
		for i, t := range c.Toppings {
			names[i] = t.Name
		}
		parts = append(parts, "Topping: "+strings.Join(names, labelSeparator))
	}
	return strings.Join(parts, labelSeparator)
}
