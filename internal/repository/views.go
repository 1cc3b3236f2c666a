package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/ordergw/order-gateway/internal/model"
)

// ViewsRepository defines persistence for the order_views projection table
// and its order_event_stream audit companion.
type ViewsRepository interface {
	// Get loads a view by aggregate id; ErrNotFound when no event has been
	// applied for that id yet.
	Get(ctx context.Context, id string) (*model.OrderView, error)
	// SaveWithAudit upserts the view and appends the audit row in one
	// transaction: the projection never advances without its stream record.
	SaveWithAudit(ctx context.Context, v *model.OrderView, audit model.OrderEventStream) error
}

type ViewsRepositoryImpl struct {
	db *sqlx.DB
}

func NewViewsRepository(db *sqlx.DB) *ViewsRepositoryImpl {
	return &ViewsRepositoryImpl{db: db}
}

var _ ViewsRepository = (*ViewsRepositoryImpl)(nil)

func (r *ViewsRepositoryImpl) Get(ctx context.Context, id string) (*model.OrderView, error) {
	const q = `
		SELECT id, buyer_id, buyer_name, items, street, city, postal_code, country,
		       card_name, card_number, card_expiration, status, total_price, is_deleted,
		       order_created_event_version, order_updated_event_version, order_deleted_event_version,
		       created_at, updated_at
		  FROM order_views
		 WHERE id = ?
	`
	var v model.OrderView
	err := r.db.GetContext(ctx, &v, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *ViewsRepositoryImpl) SaveWithAudit(ctx context.Context, v *model.OrderView, audit model.OrderEventStream) error {
	const upsert = `
		INSERT INTO order_views
		    (id, buyer_id, buyer_name, items, street, city, postal_code, country,
		     card_name, card_number, card_expiration, status, total_price, is_deleted,
		     order_created_event_version, order_updated_event_version, order_deleted_event_version,
		     created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE
		    buyer_id = VALUES(buyer_id), buyer_name = VALUES(buyer_name),
		    items = VALUES(items), street = VALUES(street), city = VALUES(city),
		    postal_code = VALUES(postal_code), country = VALUES(country),
		    card_name = VALUES(card_name), card_number = VALUES(card_number),
		    card_expiration = VALUES(card_expiration), status = VALUES(status),
		    total_price = VALUES(total_price), is_deleted = VALUES(is_deleted),
		    order_created_event_version = VALUES(order_created_event_version),
		    order_updated_event_version = VALUES(order_updated_event_version),
		    order_deleted_event_version = VALUES(order_deleted_event_version),
		    updated_at = NOW()
	`
	const appendStream = `
		INSERT INTO order_event_stream
		    (id, view_id, event_type, version, payload, created_at)
		VALUES
		    (?, ?, ?, ?, ?, NOW())
	`
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsert,
		v.ID, v.BuyerID, v.BuyerName, v.Items,
		v.Street, v.City, v.PostalCode, v.Country,
		v.CardName, v.CardNumber, v.Expiration,
		v.Status.String(), v.TotalPrice, v.IsDeleted,
		v.OrderCreatedEventVersion, v.OrderUpdatedEventVersion, v.OrderDeletedEventVersion,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, appendStream,
		audit.ID, audit.ViewID, audit.EventType, audit.Version, audit.Payload,
	); err != nil {
		return err
	}
	return tx.Commit()
}
