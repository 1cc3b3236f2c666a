// Package validate holds the field rule sets applied to inbound order events
// before a projection is touched. A failure here is terminal for the
// message: it goes to the fault topic, never into a retry loop.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ordergw/order-gateway/internal/model"
)

var (
	countryRe    = regexp.MustCompile(`^[A-Z]{2}$`)
	cardNumberRe = regexp.MustCompile(`^[0-9*]{12,19}$`)
	expirationRe = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)
)

// Address checks the shipping address snapshot. Shared between the HTTP
// write path and event consumption so a request that binds cleanly cannot
// produce an event that faults downstream.
func Address(a model.Address) error {
	if strings.TrimSpace(a.PostalCode) == "" {
		return fmt.Errorf("postal_code is empty")
	}
	if !countryRe.MatchString(a.Country) {
		return fmt.Errorf("country %q is not a two-letter code", a.Country)
	}
	return nil
}

// Payment checks the (masked) payment snapshot.
func Payment(p model.Payment) error {
	if !cardNumberRe.MatchString(p.CardNumber) {
		return fmt.Errorf("card_number is not a valid (masked) number")
	}
	if !expirationRe.MatchString(p.Expiration) {
		return fmt.Errorf("expiration %q is not MM/YY", p.Expiration)
	}
	return nil
}

// OrderEvent checks an inbound event body. The rules mirror the write-side
// command checks, so a payload that passed the producer can only fail here
// if it was corrupted or hand-crafted.
func OrderEvent(e model.OrderEvent) error {
	if strings.TrimSpace(e.OrderID) == "" {
		return fmt.Errorf("order_id is empty")
	}
	if e.Version < 1 {
		return fmt.Errorf("version %d is not positive", e.Version)
	}
	if strings.TrimSpace(e.BuyerID) == "" {
		return fmt.Errorf("buyer_id is empty")
	}
	if len(e.Items) == 0 {
		return fmt.Errorf("order has no items")
	}
	for i, it := range e.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return fmt.Errorf("items[%d]: product_id is empty", i)
		}
		if it.UnitPrice <= 0 {
			return fmt.Errorf("items[%d]: unit_price %d is not positive", i, it.UnitPrice)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("items[%d]: quantity %d is not positive", i, it.Quantity)
		}
	}
	if got := e.Items.Total(); got != e.TotalPrice {
		return fmt.Errorf("total price mismatch: items sum to %d, total_price is %d", got, e.TotalPrice)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("unknown status %q", e.Status)
	}
	if err := Address(e.Address); err != nil {
		return err
	}
	return Payment(e.Payment)
}
