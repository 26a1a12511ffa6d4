package discount

import (
	"errors"
	"testing"
	"time"

	"github.com/joao-fontenele/drinkshop/internal/domain"
)

func TestEngine_Apply(t *testing.T) {
	engine := NewEngine([]Code{
		{Code: "FIX20", Type: domain.DiscountFixed, Value: 20000, MinOrder: 30000},
		{Code: "BIG", Type: domain.DiscountFixed, Value: 20000, MinOrder: 50000},
		{Code: "pct15", Type: domain.DiscountPercentage, Value: 15, MinOrder: 0},
	})

	t.Run("fixed code over minimum", func(t *testing.T) {
		applied, err := engine.Apply("FIX20", 40000)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if applied.Amount != 20000 {
			t.Errorf("expected amount 20000, got %d", applied.Amount)
		}
		if total := Total(40000, applied.Amount); total != 20000 {
			t.Errorf("expected total 20000, got %d", total)
		}
	})

	t.Run("minimum not met", func(t *testing.T) {
		_, err := engine.Apply("BIG", 40000)
		if !errors.Is(err, ErrMinimumNotMet) {
			t.Errorf("expected ErrMinimumNotMet, got %v", err)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := engine.Apply("NOPE", 40000)
		if !errors.Is(err, ErrUnknownCode) {
			t.Errorf("expected ErrUnknownCode, got %v", err)
		}
	})

	t.Run("codes are case insensitive", func(t *testing.T) {
		applied, err := engine.Apply("  Pct15 ", 10000)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if applied.Code.Code != "PCT15" {
			t.Errorf("expected normalized code PCT15, got %s", applied.Code.Code)
		}
		if applied.Amount != 1500 {
			t.Errorf("expected amount 1500, got %d", applied.Amount)
		}
	})
}

func TestCode_AmountFor(t *testing.T) {
	t.Run("percentage truncates", func(t *testing.T) {
		c := Code{Type: domain.DiscountPercentage, Value: 15}
		// 15% of 33333 is 4999.95
		if got := c.AmountFor(33333); got != 4999 {
			t.Errorf("expected 4999, got %d", got)
		}
	})

	t.Run("percentage stays within subtotal", func(t *testing.T) {
		for _, value := range []int64{0, 1, 10, 15, 50, 99, 100} {
			c := Code{Type: domain.DiscountPercentage, Value: value}
			for _, subtotal := range []int64{0, 1, 999, 5000, 40000, 123457} {
				got := c.AmountFor(subtotal)
				want := subtotal * value / 100
				if got != want {
					t.Errorf("AmountFor(%d) at %d%% = %d, want %d", subtotal, value, got, want)
				}
				if got < 0 || got > subtotal {
					t.Errorf("amount %d out of range for subtotal %d", got, subtotal)
				}
			}
		}
	})

	t.Run("fixed amount is capped at subtotal", func(t *testing.T) {
		c := Code{Type: domain.DiscountFixed, Value: 25000}
		if got := c.AmountFor(10000); got != 10000 {
			t.Errorf("expected 10000, got %d", got)
		}
	})
}

func TestTotal_NeverNegative(t *testing.T) {
	cases := []struct{ subtotal, discount, want int64 }{
		{40000, 20000, 20000},
		{10000, 25000, 0},
		{0, 0, 0},
		{5000, 0, 5000},
	}
	for _, tc := range cases {
		if got := Total(tc.subtotal, tc.discount); got != tc.want {
			t.Errorf("Total(%d, %d) = %d, want %d", tc.subtotal, tc.discount, got, tc.want)
		}
	}
}

func TestDefaultEngine(t *testing.T) {
	engine := DefaultEngine()

	applied, err := engine.Apply("welcome10", 55000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied.Amount != 5500 {
		t.Errorf("expected 5500, got %d", applied.Amount)
	}

	if _, err := engine.Apply("SAVE20K", 99999); !errors.Is(err, ErrMinimumNotMet) {
		t.Errorf("expected ErrMinimumNotMet, got %v", err)
	}
}

func TestFromPromotion(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	promo := domain.Promotion{
		Name:      "Tháng 3",
		Code:      " march10 ",
		Type:      domain.DiscountPercentage,
		Value:     10,
		MinOrder:  30000,
		StartDate: now.Add(-24 * time.Hour),
		EndDate:   now.Add(24 * time.Hour),
		Active:    true,
	}

	t.Run("running promotion becomes a code", func(t *testing.T) {
		code, ok := FromPromotion(promo, now)
		if !ok {
			t.Fatal("expected promotion to be usable")
		}
		if code.Code != "MARCH10" || code.MinOrder != 30000 || code.Description != "Tháng 3" {
			t.Errorf("unexpected code %+v", code)
		}

		engine := NewEngine(append(DefaultCodes(), code))
		applied, err := engine.Apply("march10", 40000)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if applied.Amount != 4000 {
			t.Errorf("expected 4000, got %d", applied.Amount)
		}
		if _, ok := engine.Lookup("WELCOME10"); !ok {
			t.Error("default codes should still apply")
		}
	})

	t.Run("inactive, early or expired promotions are skipped", func(t *testing.T) {
		inactive := promo
		inactive.Active = false
		early := promo
		early.StartDate = now.Add(time.Hour)
		expired := promo
		expired.EndDate = now.Add(-time.Hour)

		for _, p := range []domain.Promotion{inactive, early, expired} {
			if _, ok := FromPromotion(p, now); ok {
				t.Errorf("expected %+v to be skipped", p)
			}
		}
	})
}
