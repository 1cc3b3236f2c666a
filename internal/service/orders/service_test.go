package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/ordergw/order-gateway/internal/model"
	"github.com/ordergw/order-gateway/internal/repository"
)

type fakeOrdersRepo struct {
	current   *model.Order
	updateErr error
}

func (f *fakeOrdersRepo) Insert(ctx context.Context, tx *sqlx.Tx, o model.Order) error {
	return nil
}

func (f *fakeOrdersRepo) Get(ctx context.Context, id string) (*model.Order, error) {
	if f.current == nil {
		return nil, repository.ErrNotFound
	}
	cp := *f.current
	return &cp, nil
}

func (f *fakeOrdersRepo) UpdateVersioned(ctx context.Context, tx *sqlx.Tx, o model.Order, expectedVersion int64) error {
	return f.updateErr
}

type recordingOutbox struct {
	inserts []model.OutboxRecord
}

func (f *recordingOutbox) Insert(ctx context.Context, tx *sqlx.Tx, rec model.OutboxRecord) error {
	f.inserts = append(f.inserts, rec)
	return nil
}

func (f *recordingOutbox) FetchDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxRecord, error) {
	return nil, nil
}

func (f *recordingOutbox) ApplyCycle(ctx context.Context, results []repository.DispatchResult) error {
	return nil
}

func storedOrder(version int64) *model.Order {
	return &model.Order{
		ID:        "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		BuyerID:   "b1",
		BuyerName: "Buyer One",
		Items: model.OrderItems{
			{ProductID: "p1", ProductName: "Widget", UnitPrice: 100, Quantity: 2},
		},
		Address: model.Address{
			Street: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US",
		},
		Payment: model.Payment{
			CardName: "Buyer One", CardNumber: "411111******1111", Expiration: "12/29",
		},
		Status:     model.OrderStatusPending,
		TotalPrice: 200,
		RowVersion: version,
	}
}

func validCommand() Command {
	o := storedOrder(1)
	return Command{
		BuyerID:    o.BuyerID,
		BuyerName:  o.BuyerName,
		Items:      o.Items,
		Address:    o.Address,
		Payment:    o.Payment,
		Status:     o.Status,
		TotalPrice: o.TotalPrice,
	}
}

// A stale If-Match version must surface ErrVersionConflict and leave no
// outbox record, on both paths: the pre-check against the loaded row, and
// the row-predicate miss when a concurrent writer wins between load and
// update.
func TestStaleVersionConflictLeavesNoOutboxRecord(t *testing.T) {
	tests := []struct {
		name            string
		op              string
		currentVersion  int64
		expectedVersion int64
		updateErr       error
		wantTx          bool
	}{
		{name: "update pre-check", op: "update", currentVersion: 3, expectedVersion: 2},
		{name: "delete pre-check", op: "delete", currentVersion: 3, expectedVersion: 2},
		{name: "update lost race", op: "update", currentVersion: 2, expectedVersion: 2,
			updateErr: repository.ErrVersionConflict, wantTx: true},
		{name: "delete lost race", op: "delete", currentVersion: 2, expectedVersion: 2,
			updateErr: repository.ErrVersionConflict, wantTx: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqlDB, mock, err := sqlmock.New()
			if err != nil {
				t.Fatal(err)
			}
			defer sqlDB.Close()
			if tt.wantTx {
				// the mutation transaction opens and rolls back; a commit
				// here would mean the conflict leaked through
				mock.ExpectBegin()
				mock.ExpectRollback()
			}

			ordersRepo := &fakeOrdersRepo{
				current:   storedOrder(tt.currentVersion),
				updateErr: tt.updateErr,
			}
			outbox := &recordingOutbox{}
			s := New(sqlx.NewDb(sqlDB, "sqlmock"), ordersRepo, outbox)

			var opErr error
			switch tt.op {
			case "update":
				_, opErr = s.Update(context.Background(), "01ARZ3NDEKTSV4RRFFQ69G5FAV", validCommand(), tt.expectedVersion)
			case "delete":
				_, opErr = s.Delete(context.Background(), "01ARZ3NDEKTSV4RRFFQ69G5FAV", tt.expectedVersion)
			}

			if !errors.Is(opErr, repository.ErrVersionConflict) {
				t.Fatalf("%s err = %v, want ErrVersionConflict", tt.op, opErr)
			}
			if len(outbox.inserts) != 0 {
				t.Fatalf("outbox inserts = %d, want 0", len(outbox.inserts))
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("tx expectations: %v", err)
			}
		})
	}
}

// The total check runs before any transaction is opened, so a nil db is safe:
// reaching the database would panic and fail the test loudly.
func TestMutationsRejectTotalPriceMismatch(t *testing.T) {
	s := New(nil, nil, nil)
	cmd := Command{
		BuyerID:   "b1",
		BuyerName: "Buyer One",
		Items: model.OrderItems{
			{ProductID: "p1", ProductName: "Widget", UnitPrice: 100, Quantity: 2},
		},
		Status:     model.OrderStatusPending,
		TotalPrice: 150, // items sum to 200
	}

	if _, err := s.Create(context.Background(), cmd); !errors.Is(err, ErrTotalPriceMismatch) {
		t.Fatalf("Create err = %v, want ErrTotalPriceMismatch", err)
	}
	if _, err := s.Update(context.Background(), "01ARZ3NDEKTSV4RRFFQ69G5FAV", cmd, 1); !errors.Is(err, ErrTotalPriceMismatch) {
		t.Fatalf("Update err = %v, want ErrTotalPriceMismatch", err)
	}
}
