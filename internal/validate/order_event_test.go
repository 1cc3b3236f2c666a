package validate

import (
	"strings"
	"testing"

	"github.com/ordergw/order-gateway/internal/model"
)

func validEvent() model.OrderEvent {
	return model.OrderEvent{
		OrderID:   "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Version:   1,
		BuyerID:   "b1",
		BuyerName: "Buyer One",
		Items: model.OrderItems{
			{ProductID: "p1", ProductName: "Widget", UnitPrice: 100, Quantity: 2},
		},
		Address:    model.Address{Street: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"},
		Payment:    model.Payment{CardName: "Buyer One", CardNumber: "411111******1111", Expiration: "12/29"},
		Status:     model.OrderStatusPending,
		TotalPrice: 200,
	}
}

func TestOrderEventAcceptsValid(t *testing.T) {
	if err := OrderEvent(validEvent()); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}
}

func TestOrderEventRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.OrderEvent)
		wantSub string
	}{
		{"empty order id", func(e *model.OrderEvent) { e.OrderID = " " }, "order_id"},
		{"zero version", func(e *model.OrderEvent) { e.Version = 0 }, "version"},
		{"empty buyer", func(e *model.OrderEvent) { e.BuyerID = "" }, "buyer_id"},
		{"no items", func(e *model.OrderEvent) { e.Items = nil }, "no items"},
		{"empty product id", func(e *model.OrderEvent) { e.Items[0].ProductID = "" }, "product_id"},
		{"zero price", func(e *model.OrderEvent) {
			e.Items[0].UnitPrice = 0
			e.TotalPrice = 0
		}, "unit_price"},
		{"negative quantity", func(e *model.OrderEvent) {
			e.Items[0].Quantity = -1
			e.TotalPrice = -100
		}, "quantity"},
		// items sum to 200 but the submitted total says 100
		{"total price mismatch", func(e *model.OrderEvent) { e.TotalPrice = 100 }, "total price mismatch"},
		{"bad status", func(e *model.OrderEvent) { e.Status = "unknown" }, "status"},
		{"empty postal code", func(e *model.OrderEvent) { e.Address.PostalCode = "" }, "postal_code"},
		{"lowercase country", func(e *model.OrderEvent) { e.Address.Country = "us" }, "country"},
		{"three letter country", func(e *model.OrderEvent) { e.Address.Country = "USA" }, "country"},
		{"short card number", func(e *model.OrderEvent) { e.Payment.CardNumber = "4111" }, "card_number"},
		{"card number letters", func(e *model.OrderEvent) { e.Payment.CardNumber = "4111abcd11111111" }, "card_number"},
		{"bad expiration month", func(e *model.OrderEvent) { e.Payment.Expiration = "13/29" }, "expiration"},
		{"bad expiration format", func(e *model.OrderEvent) { e.Payment.Expiration = "2029-12" }, "expiration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(&e)
			err := OrderEvent(e)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}
