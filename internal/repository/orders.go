package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/ordergw/order-gateway/internal/model"
)

// OrdersRepository defines persistence for the orders aggregate table.
// Mutations are whole-aggregate writes guarded by a row_version predicate.
type OrdersRepository interface {
	// Insert writes a fresh aggregate with row_version = 1.
	Insert(ctx context.Context, tx *sqlx.Tx, o model.Order) error
	// Get loads an aggregate by id. Soft-deleted rows are still returned;
	// callers decide whether a deleted aggregate is visible.
	Get(ctx context.Context, id string) (*model.Order, error)
	// UpdateVersioned overwrites the mutable fields and bumps row_version by
	// exactly one, but only when the stored version still equals
	// expectedVersion. A lost race returns ErrVersionConflict.
	UpdateVersioned(ctx context.Context, tx *sqlx.Tx, o model.Order, expectedVersion int64) error
}

type OrdersRepositoryImpl struct {
	db *sqlx.DB
}

func NewOrdersRepository(db *sqlx.DB) *OrdersRepositoryImpl {
	return &OrdersRepositoryImpl{db: db}
}

var _ OrdersRepository = (*OrdersRepositoryImpl)(nil)

func (r *OrdersRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

func (r *OrdersRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, o model.Order) error {
	const q = `
		INSERT INTO orders
		    (id, buyer_id, buyer_name, items, street, city, postal_code, country,
		     card_name, card_number, card_expiration, status, total_price,
		     row_version, is_deleted, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 0, NOW(), NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			o.ID, o.BuyerID, o.BuyerName, o.Items,
			o.Address.Street, o.Address.City, o.Address.PostalCode, o.Address.Country,
			o.Payment.CardName, o.Payment.CardNumber, o.Payment.Expiration,
			o.Status.String(), o.TotalPrice,
		)
		if isDuplicateKey(err) {
			return ErrVersionConflict
		}
		return err
	})
}

func (r *OrdersRepositoryImpl) Get(ctx context.Context, id string) (*model.Order, error) {
	const q = `
		SELECT id, buyer_id, buyer_name, items, street, city, postal_code, country,
		       card_name, card_number, card_expiration, status, total_price,
		       row_version, is_deleted, created_at, updated_at
		  FROM orders
		 WHERE id = ?
	`
	var o model.Order
	err := r.db.QueryRowxContext(ctx, q, id).Scan(
		&o.ID, &o.BuyerID, &o.BuyerName, &o.Items,
		&o.Address.Street, &o.Address.City, &o.Address.PostalCode, &o.Address.Country,
		&o.Payment.CardName, &o.Payment.CardNumber, &o.Payment.Expiration,
		&o.Status, &o.TotalPrice,
		&o.RowVersion, &o.IsDeleted, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrdersRepositoryImpl) UpdateVersioned(ctx context.Context, tx *sqlx.Tx, o model.Order, expectedVersion int64) error {
	const q = `
		UPDATE orders
		   SET buyer_id = ?, buyer_name = ?, items = ?,
		       street = ?, city = ?, postal_code = ?, country = ?,
		       card_name = ?, card_number = ?, card_expiration = ?,
		       status = ?, total_price = ?, is_deleted = ?,
		       row_version = row_version + 1, updated_at = NOW()
		 WHERE id = ? AND row_version = ?
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, q,
			o.BuyerID, o.BuyerName, o.Items,
			o.Address.Street, o.Address.City, o.Address.PostalCode, o.Address.Country,
			o.Payment.CardName, o.Payment.CardNumber, o.Payment.Expiration,
			o.Status.String(), o.TotalPrice, o.IsDeleted,
			o.ID, expectedVersion,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			// caller already loaded the row, so a miss here means the
			// version moved underneath us
			return ErrVersionConflict
		}
		return nil
	})
}
