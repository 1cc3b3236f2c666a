package model

import "time"

const AggregateTypeOrder = "Order"

// Event type discriminators as stored in outbox rows and routed on the bus.
const (
	EventTypeOrderCreated = "OrderCreatedEvent"
	EventTypeOrderUpdated = "OrderUpdatedEvent"
	EventTypeOrderDeleted = "OrderDeletedEvent"
)

// KnownEventTypes in discriminator order.
var KnownEventTypes = []string{
	EventTypeOrderCreated,
	EventTypeOrderUpdated,
	EventTypeOrderDeleted,
}

// OrderEvent is the payload shared by OrderCreatedEvent, OrderUpdatedEvent
// and OrderDeletedEvent. It is a full snapshot of the aggregate, not a diff:
// an update event repeats unchanged fields so a view can be rebuilt from the
// latest applied event of each kind alone.
//
// Version equals the aggregate's RowVersion after the mutation that emitted
// the event. Consumers compare it against the view's per-event-type counter,
// never against delivery order.
type OrderEvent struct {
	OrderID    string      `json:"order_id"`
	Version    int64       `json:"version"`
	BuyerID    string      `json:"buyer_id"`
	BuyerName  string      `json:"buyer_name"`
	Items      OrderItems  `json:"items"`
	Address    Address     `json:"address"`
	Payment    Payment     `json:"payment"`
	Status     OrderStatus `json:"status"`
	TotalPrice int64       `json:"total_price"`
	IsDeleted  bool        `json:"is_deleted"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// NewOrderEvent snapshots the aggregate after a mutation.
func NewOrderEvent(o Order) OrderEvent {
	return OrderEvent{
		OrderID:    o.ID,
		Version:    o.RowVersion,
		BuyerID:    o.BuyerID,
		BuyerName:  o.BuyerName,
		Items:      o.Items,
		Address:    o.Address,
		Payment:    o.Payment,
		Status:     o.Status,
		TotalPrice: o.TotalPrice,
		IsDeleted:  o.IsDeleted,
		OccurredAt: time.Now().UTC(),
	}
}
