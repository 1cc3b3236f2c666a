package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// OrderEventReport is one processed-event row in the ClickHouse reporting
// table, mirrored there by the projector after the MySQL commit.
type OrderEventReport struct {
	OrderID   string    `db:"order_id"`
	EventType string    `db:"event_type"`
	Version   int64     `db:"version"`
	Payload   string    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}

// ReportsRepository reads and appends order-event analytics rows in
// ClickHouse. Appends are best-effort: the MySQL projection is the source of
// truth and a lost report row is re-creatable from order_event_stream.
type ReportsRepository interface {
	Append(ctx context.Context, rows []OrderEventReport) error
	ListByOrder(ctx context.Context, orderID, eventType string, limit, offset int) ([]OrderEventReport, error)
}

type reportsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewReportsRepository(ch *sqlx.DB) ReportsRepository {
	return &reportsRepository{ch: ch}
}

func (r *reportsRepository) Append(ctx context.Context, rows []OrderEventReport) error {
	if len(rows) == 0 {
		return nil
	}
	const q = `
		INSERT INTO ordgw.order_events (order_id, event_type, version, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, row := range rows {
		if _, err := r.ch.ExecContext(ctx, q,
			row.OrderID, row.EventType, row.Version, row.Payload, row.CreatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *reportsRepository) ListByOrder(ctx context.Context, orderID, eventType string, limit, offset int) ([]OrderEventReport, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT order_id, event_type, version, payload, created_at
		FROM ordgw.order_events
		WHERE order_id = ?
	`
	args := []any{orderID}

	if eventType != "" {
		q += " AND event_type = ?"
		args = append(args, eventType)
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []OrderEventReport
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
