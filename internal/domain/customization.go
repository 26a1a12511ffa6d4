package domain

import (
	"slices"
	"strconv"
)

// Level is a sugar or ice percentage.
type Level int

const (
	LevelFull  Level = 100
	LevelLess  Level = 70
	LevelHalf  Level = 50
	LevelLight Level = 30
	LevelNone  Level = 0
)

const DefaultLevel = LevelFull

var Levels = []Level{LevelFull, LevelLess, LevelHalf, LevelLight, LevelNone}

func (l Level) Valid() bool {
	return slices.Contains(Levels, l)
}

// Normalize maps anything outside the level set to the default.
func (l Level) Normalize() Level {
	if !l.Valid() {
		return DefaultLevel
	}
	return l
}

// ParseLevel accepts "70" or "70%". Unparseable input yields the default level.
func ParseLevel(s string) Level {
	if n := len(s); n > 0 && s[n-1] == '%' {
		s = s[:n-1]
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return DefaultLevel
	}
	return Level(v).Normalize()
}

type Topping struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type Customization struct {
	Sugar    Level     `json:"sugar"`
	Ice      Level     `json:"ice"`
	Toppings []Topping `json:"toppings"`
}

// Normalized returns a copy with both levels inside the level set.
func (c Customization) Normalized() Customization {
	return Customization{
		Sugar:    c.Sugar.Normalize(),
		Ice:      c.Ice.Normalize(),
		Toppings: slices.Clone(c.Toppings),
	}
}

// ToppingKey is the order-insensitive identity of the topping selection.
func (c Customization) ToppingKey() []string {
	names := make([]string, len(c.Toppings))
	for i, t := range c.Toppings {
		names[i] = t.Name
	}
	slices.Sort(names)
	return names
}

// SameAs reports whether two customizations are interchangeable for cart merging.
func (c Customization) SameAs(other Customization) bool {
	if c.Sugar.Normalize() != other.Sugar.Normalize() || c.Ice.Normalize() != other.Ice.Normalize() {
		return false
	}
	return slices.Equal(c.ToppingKey(), other.ToppingKey())
}
