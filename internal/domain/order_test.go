package domain

import (
	"errors"
	"testing"
)

func TestCustomerInfo_Validate(t *testing.T) {
	tests := []struct {
		name      string
		info      CustomerInfo
		wantField string
	}{
		{"dine-in ok", CustomerInfo{Type: OrderTypeDineIn, Name: "An", TableNumber: "5"}, ""},
		{"dine-in missing table", CustomerInfo{Type: OrderTypeDineIn, Name: "An"}, "table number"},
		{"dine-in missing name", CustomerInfo{Type: OrderTypeDineIn, TableNumber: "5"}, "customer name"},
		{"delivery ok", CustomerInfo{Type: OrderTypeDelivery, Name: "An", Phone: "0901", Address: "12 Hàng Bạc"}, ""},
		{"delivery missing phone", CustomerInfo{Type: OrderTypeDelivery, Name: "An", Address: "12 Hàng Bạc"}, "phone"},
		{"delivery blank address", CustomerInfo{Type: OrderTypeDelivery, Name: "An", Phone: "0901", Address: "  "}, "address"},
		{"unknown type", CustomerInfo{Type: "takeaway", Name: "An"}, "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var v *ValidationError
			if !errors.As(err, &v) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if v.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, v.Field)
			}
		})
	}
}

func TestOrder_Validate(t *testing.T) {
	valid := func() *Order {
		return &Order{
			Customer:       CustomerInfo{Type: OrderTypeDineIn, Name: "An", TableNumber: "3"},
			Items:          []OrderItem{{ItemID: 2, Price: 10000, Quantity: 2}, {ItemID: 6, Price: 33000, Quantity: 1}},
			Subtotal:       53000,
			DiscountAmount: 60000,
			Total:          0,
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("subtotal mismatch", func(t *testing.T) {
		o := valid()
		o.Subtotal = 50000
		if !IsValidation(o.Validate()) {
			t.Error("expected validation error")
		}
	})

	t.Run("total mismatch", func(t *testing.T) {
		o := valid()
		o.DiscountAmount = 3000
		o.Total = 53000
		if !IsValidation(o.Validate()) {
			t.Error("expected validation error")
		}
	})

	t.Run("empty items", func(t *testing.T) {
		o := valid()
		o.Items = nil
		if !IsValidation(o.Validate()) {
			t.Error("expected validation error")
		}
	})

	t.Run("zero quantity", func(t *testing.T) {
		o := valid()
		o.Items[0].Quantity = 0
		if !IsValidation(o.Validate()) {
			t.Error("expected validation error")
		}
	})
}

func TestNetTotal(t *testing.T) {
	for _, tc := range []struct{ sub, disc, want int64 }{
		{40000, 20000, 20000},
		{10000, 20000, 0},
		{0, 0, 0},
	} {
		if got := NetTotal(tc.sub, tc.disc); got != tc.want {
			t.Errorf("NetTotal(%d, %d) = %d, want %d", tc.sub, tc.disc, got, tc.want)
		}
	}
}
