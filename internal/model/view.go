package model

import "time"

// OrderView is the read-model projection, keyed by the source aggregate id.
//
// It holds one version counter per event type it reacts to, not a single
// aggregate-wide counter: created/updated/deleted events for the same order
// travel on independent topics, can race or be redelivered independently,
// and each must be deduplicated on its own axis.
type OrderView struct {
	ID         string      `db:"id"`
	BuyerID    string      `db:"buyer_id"`
	BuyerName  string      `db:"buyer_name"`
	Items      OrderItems  `db:"items"`
	Street     string      `db:"street"`
	City       string      `db:"city"`
	PostalCode string      `db:"postal_code"`
	Country    string      `db:"country"`
	CardName   string      `db:"card_name"`
	CardNumber string      `db:"card_number"`
	Expiration string      `db:"card_expiration"`
	Status     OrderStatus `db:"status"`
	TotalPrice int64       `db:"total_price"`
	IsDeleted  bool        `db:"is_deleted"`

	OrderCreatedEventVersion int64 `db:"order_created_event_version"`
	OrderUpdatedEventVersion int64 `db:"order_updated_event_version"`
	OrderDeletedEventVersion int64 `db:"order_deleted_event_version"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// NewOrderView returns the minimal id-only shell created lazily on the first
// event seen for an id. All version counters start at zero so any event with
// Version >= 1 passes the gate.
func NewOrderView(id string) *OrderView {
	return &OrderView{ID: id}
}

// VersionFor returns the view's counter for the given event type.
func (v *OrderView) VersionFor(eventType string) int64 {
	switch eventType {
	case EventTypeOrderCreated:
		return v.OrderCreatedEventVersion
	case EventTypeOrderUpdated:
		return v.OrderUpdatedEventVersion
	case EventTypeOrderDeleted:
		return v.OrderDeletedEventVersion
	}
	return 0
}

// CanUpdate reports whether the event is newer than the last event of the
// same type applied to this view. A false result means the message was
// already applied (redelivery) or superseded (reordering) and must be
// acknowledged without mutation.
func (v *OrderView) CanUpdate(eventType string, e OrderEvent) bool {
	return e.Version > v.VersionFor(eventType)
}

// Apply overwrites the view with the event's snapshot and advances the
// counter for that event type to the event's version. Snapshot semantics:
// the view becomes a pure function of the latest applied event of each kind,
// which is what makes reapplication a no-op once the counter has advanced.
// Callers must check CanUpdate first.
func (v *OrderView) Apply(eventType string, e OrderEvent) {
	v.BuyerID = e.BuyerID
	v.BuyerName = e.BuyerName
	v.Items = e.Items
	v.Street = e.Address.Street
	v.City = e.Address.City
	v.PostalCode = e.Address.PostalCode
	v.Country = e.Address.Country
	v.CardName = e.Payment.CardName
	v.CardNumber = e.Payment.CardNumber
	v.Expiration = e.Payment.Expiration
	v.Status = e.Status
	v.TotalPrice = e.TotalPrice
	v.IsDeleted = e.IsDeleted

	switch eventType {
	case EventTypeOrderCreated:
		v.OrderCreatedEventVersion = e.Version
	case EventTypeOrderUpdated:
		v.OrderUpdatedEventVersion = e.Version
	case EventTypeOrderDeleted:
		v.OrderDeletedEventVersion = e.Version
	}
}

// OrderEventStream is the per-processed-event audit row written in the same
// transaction as the view update, keyed by view id. Raw payloads are kept
// for replay and debugging.
type OrderEventStream struct {
	ID        string    `db:"id"`
	ViewID    string    `db:"view_id"`
	EventType string    `db:"event_type"`
	Version   int64     `db:"version"`
	Payload   []byte    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}
