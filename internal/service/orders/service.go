package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/ordergw/order-gateway/internal/model"
	"github.com/ordergw/order-gateway/internal/repository"
	"github.com/ordergw/order-gateway/internal/util"
)

// ErrTotalPriceMismatch means the submitted total does not equal the sum of
// the line items. The invariant is enforced here, at write time, so every
// event payload downstream carries a total consistent with its items.
var ErrTotalPriceMismatch = errors.New("total price does not match order items")

// Command carries the whole-aggregate field set for create and update.
// Update semantics are snapshot, not patch: unchanged fields are repeated.
type Command struct {
	BuyerID    string
	BuyerName  string
	Items      model.OrderItems
	Address    model.Address
	Payment    model.Payment
	Status     model.OrderStatus
	TotalPrice int64
}

// Service runs the write-side use cases: each mutation writes the aggregate
// and exactly one outbox record in a single MySQL transaction, with the
// record's version_id equal to the aggregate's new row_version.
type Service struct {
	db     *sqlx.DB
	orders repository.OrdersRepository
	outbox repository.OutboxRepository
}

func New(db *sqlx.DB, ordersRepo repository.OrdersRepository, outboxRepo repository.OutboxRepository) *Service {
	return &Service{db: db, orders: ordersRepo, outbox: outboxRepo}
}

// Create inserts a new aggregate at row_version 1 and enqueues an
// OrderCreatedEvent. Returns the stored aggregate.
func (s *Service) Create(ctx context.Context, cmd Command) (*model.Order, error) {
	if cmd.Items.Total() != cmd.TotalPrice {
		return nil, ErrTotalPriceMismatch
	}

	o := model.Order{
		ID:         util.New(),
		BuyerID:    cmd.BuyerID,
		BuyerName:  cmd.BuyerName,
		Items:      cmd.Items,
		Address:    cmd.Address,
		Payment:    cmd.Payment,
		Status:     cmd.Status,
		TotalPrice: cmd.TotalPrice,
		RowVersion: 1,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.orders.Insert(ctx, tx, o); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	if err := s.enqueueEvent(ctx, tx, o, model.EventTypeOrderCreated); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &o, nil
}

// Get loads the aggregate for the API. Soft-deleted orders read as not found.
func (s *Service) Get(ctx context.Context, id string) (*model.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.IsDeleted {
		return nil, repository.ErrNotFound
	}
	return o, nil
}

// Update overwrites the aggregate guarded by expectedVersion (from the
// client's If-Match tag), bumps row_version by one and enqueues an
// OrderUpdatedEvent. A stale or raced version returns ErrVersionConflict
// and leaves no outbox record behind.
func (s *Service) Update(ctx context.Context, id string, cmd Command, expectedVersion int64) (*model.Order, error) {
	if cmd.Items.Total() != cmd.TotalPrice {
		return nil, ErrTotalPriceMismatch
	}

	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.RowVersion != expectedVersion {
		return nil, repository.ErrVersionConflict
	}

	next := *cur
	next.BuyerID = cmd.BuyerID
	next.BuyerName = cmd.BuyerName
	next.Items = cmd.Items
	next.Address = cmd.Address
	next.Payment = cmd.Payment
	next.Status = cmd.Status
	next.TotalPrice = cmd.TotalPrice

	return s.mutate(ctx, next, expectedVersion, model.EventTypeOrderUpdated)
}

// Delete soft-deletes the aggregate and enqueues an OrderDeletedEvent.
// The row stays in place with is_deleted set; a later Get reads not-found.
func (s *Service) Delete(ctx context.Context, id string, expectedVersion int64) (*model.Order, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.RowVersion != expectedVersion {
		return nil, repository.ErrVersionConflict
	}

	next := *cur
	next.IsDeleted = true

	return s.mutate(ctx, next, expectedVersion, model.EventTypeOrderDeleted)
}

// mutate applies a versioned whole-aggregate write plus its outbox record in
// one transaction. On success next.RowVersion holds the new version.
func (s *Service) mutate(ctx context.Context, next model.Order, expectedVersion int64, eventType string) (*model.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.orders.UpdateVersioned(ctx, tx, next, expectedVersion); err != nil {
		return nil, err
	}
	next.RowVersion = expectedVersion + 1

	if err := s.enqueueEvent(ctx, tx, next, eventType); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Service) enqueueEvent(ctx context.Context, tx *sqlx.Tx, o model.Order, eventType string) error {
	ev := model.NewOrderEvent(o)
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}
	rec := model.OutboxRecord{
		ID:            util.New(),
		AggregateID:   o.ID,
		AggregateType: model.AggregateTypeOrder,
		VersionID:     o.RowVersion,
		EventType:     eventType,
		Payload:       payload,
	}
	if err := s.outbox.Insert(ctx, tx, rec); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}
