package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ordergw/order-gateway/internal/model"
)

// DispatchResult is the outcome of one publish attempt, applied back to the
// record's state by the dispatcher at the end of a poll cycle.
type DispatchResult struct {
	RecordID    string
	Dispatched  bool
	NextAttempt time.Time // only meaningful when Dispatched is false
}

// OutboxRepository defines persistence for the outbox table. Records are
// inserted on the write path (inside the aggregate's transaction), read and
// updated by the dispatcher, and never deleted.
type OutboxRepository interface {
	// Insert writes a single outbox record. The (aggregate_id, version_id)
	// unique key guarantees at most one record per state transition; a
	// duplicate maps to ErrVersionConflict.
	Insert(ctx context.Context, tx *sqlx.Tx, rec model.OutboxRecord) error
	// FetchDue returns undispatched records whose dispatch_datetime has
	// passed, oldest first.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxRecord, error)
	// ApplyCycle commits the state transitions of one whole poll cycle in a
	// single transaction, so a batch of failures costs one commit, not many.
	ApplyCycle(ctx context.Context, results []DispatchResult) error
}

type OutboxRepositoryImpl struct {
	db *sqlx.DB
}

func NewOutboxRepository(db *sqlx.DB) *OutboxRepositoryImpl {
	return &OutboxRepositoryImpl{db: db}
}

var _ OutboxRepository = (*OutboxRepositoryImpl)(nil)

func (r *OutboxRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
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

func (r *OutboxRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, rec model.OutboxRecord) error {
	const q = `
		INSERT INTO outbox
		    (id, aggregate_id, aggregate_type, version_id, event_type, payload,
		     is_dispatched, number_of_dispatch_try, dispatch_datetime, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, 0, 0, NOW(), NOW(), NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			rec.ID, rec.AggregateID, rec.AggregateType, rec.VersionID,
			rec.EventType, rec.Payload,
		)
		if isDuplicateKey(err) {
			return ErrVersionConflict
		}
		return err
	})
}

func (r *OutboxRepositoryImpl) FetchDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
		SELECT id, aggregate_id, aggregate_type, version_id, event_type, payload,
		       is_dispatched, number_of_dispatch_try, dispatch_datetime, created_at, updated_at
		  FROM outbox
		 WHERE is_dispatched = 0 AND dispatch_datetime <= ?
		 ORDER BY created_at ASC
		 LIMIT ?
	`
	var recs []model.OutboxRecord
	if err := r.db.SelectContext(ctx, &recs, q, now, limit); err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *OutboxRepositoryImpl) ApplyCycle(ctx context.Context, results []DispatchResult) error {
	if len(results) == 0 {
		return nil
	}
	const dispatched = `
		UPDATE outbox
		   SET is_dispatched = 1,
		       number_of_dispatch_try = number_of_dispatch_try + 1,
		       dispatch_datetime = NOW(), updated_at = NOW()
		 WHERE id = ?
	`
	const rescheduled = `
		UPDATE outbox
		   SET number_of_dispatch_try = number_of_dispatch_try + 1,
		       dispatch_datetime = ?, updated_at = NOW()
		 WHERE id = ?
	`
	return r.withTx(ctx, nil, func(tx *sqlx.Tx) error {
		for _, res := range results {
			var err error
			if res.Dispatched {
				_, err = tx.ExecContext(ctx, dispatched, res.RecordID)
			} else {
				_, err = tx.ExecContext(ctx, rescheduled, res.NextAttempt, res.RecordID)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}
