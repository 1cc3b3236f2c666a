package model

import "time"

// OutboxRecord is one durable row in the outbox table, co-committed with the
// aggregate mutation that produced it. (aggregate_id, version_id) is unique:
// at most one record per state transition. Records are updated by the
// dispatcher but never deleted; the table doubles as an audit trail.
type OutboxRecord struct {
	ID                  string    `db:"id"` // ULID, distinct from the aggregate id
	AggregateID         string    `db:"aggregate_id"`
	AggregateType       string    `db:"aggregate_type"`
	VersionID           int64     `db:"version_id"` // aggregate RowVersion at write time
	EventType           string    `db:"event_type"`
	Payload             []byte    `db:"payload"` // serialized OrderEvent
	IsDispatched        bool      `db:"is_dispatched"`
	NumberOfDispatchTry int       `db:"number_of_dispatch_try"`
	DispatchDateTime    time.Time `db:"dispatch_datetime"` // next attempt (pending) or completion (dispatched)
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}
