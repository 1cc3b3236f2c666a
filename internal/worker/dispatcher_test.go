package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ordergw/order-gateway/internal/model"
	"github.com/ordergw/order-gateway/internal/repository"
	"go.uber.org/zap"
)

type fakeOutbox struct {
	due      []model.OutboxRecord
	fetchErr error
	applyErr error
	applied  [][]repository.DispatchResult
}

func (f *fakeOutbox) Insert(ctx context.Context, tx *sqlx.Tx, rec model.OutboxRecord) error {
	return nil
}

func (f *fakeOutbox) FetchDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxRecord, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.due, nil
}

func (f *fakeOutbox) ApplyCycle(ctx context.Context, results []repository.DispatchResult) error {
	f.applied = append(f.applied, results)
	return f.applyErr
}

type publishCall struct {
	key   string
	value []byte
}

func mustPayload(t *testing.T, version int64) []byte {
	t.Helper()
	ev := model.OrderEvent{
		OrderID:    "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Version:    version,
		BuyerID:    "b1",
		Items:      model.OrderItems{{ProductID: "p1", UnitPrice: 100, Quantity: 2}},
		TotalPrice: 200,
		Status:     model.OrderStatusPending,
	}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func dueRecord(t *testing.T, id, eventType string, version int64) model.OutboxRecord {
	t.Helper()
	return model.OutboxRecord{
		ID:            id,
		AggregateID:   "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		AggregateType: model.AggregateTypeOrder,
		VersionID:     version,
		EventType:     eventType,
		Payload:       mustPayload(t, version),
	}
}

func TestRunCycleDispatchesDueRecord(t *testing.T) {
	outbox := &fakeOutbox{due: []model.OutboxRecord{
		dueRecord(t, "rec-1", model.EventTypeOrderCreated, 1),
	}}
	var calls []publishCall
	d := NewDispatcher(outbox, map[string]PublishFunc{
		model.EventTypeOrderCreated: func(ctx context.Context, key string, value []byte) error {
			calls = append(calls, publishCall{key, value})
			return nil
		},
	}, zap.NewNop())

	if err := d.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("publish calls = %d, want 1", len(calls))
	}
	if calls[0].key != "01ARZ3NDEKTSV4RRFFQ69G5FAV" {
		t.Fatalf("publish key = %q, want aggregate id", calls[0].key)
	}

	// the bus observes the wrapped event intact
	var env model.Envelope
	if err := json.Unmarshal(calls[0].value, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.ID == "" {
		t.Fatal("envelope missing correlation id")
	}
	if env.EventType != model.EventTypeOrderCreated {
		t.Fatalf("envelope event type = %q", env.EventType)
	}
	if env.Data.Version != 1 || env.Data.TotalPrice != 200 {
		t.Fatalf("event fields lost: %+v", env.Data)
	}

	if len(outbox.applied) != 1 || len(outbox.applied[0]) != 1 {
		t.Fatalf("applied = %+v, want one cycle with one result", outbox.applied)
	}
	res := outbox.applied[0][0]
	if res.RecordID != "rec-1" || !res.Dispatched {
		t.Fatalf("result = %+v, want dispatched rec-1", res)
	}
}

func TestRunCycleReschedulesOnPublishFailure(t *testing.T) {
	outbox := &fakeOutbox{due: []model.OutboxRecord{
		dueRecord(t, "rec-1", model.EventTypeOrderCreated, 1),
	}}
	d := NewDispatcher(outbox, map[string]PublishFunc{
		model.EventTypeOrderCreated: func(ctx context.Context, key string, value []byte) error {
			return errors.New("broker unreachable")
		},
	}, zap.NewNop())

	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	if err := d.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if len(outbox.applied) != 1 || len(outbox.applied[0]) != 1 {
		t.Fatalf("applied = %+v", outbox.applied)
	}
	res := outbox.applied[0][0]
	if res.Dispatched {
		t.Fatal("failed publish marked dispatched")
	}
	if want := fixed.Add(2 * time.Minute); !res.NextAttempt.Equal(want) {
		t.Fatalf("NextAttempt = %v, want %v", res.NextAttempt, want)
	}
}

func TestRunCycleUnknownEventTypeIsFatal(t *testing.T) {
	outbox := &fakeOutbox{due: []model.OutboxRecord{
		dueRecord(t, "rec-1", "SomeRenamedEvent", 1),
	}}
	d := NewDispatcher(outbox, map[string]PublishFunc{
		model.EventTypeOrderCreated: func(ctx context.Context, key string, value []byte) error { return nil },
	}, zap.NewNop())

	err := d.RunCycle(context.Background())
	if !errors.Is(err, ErrUnknownEventType) {
		t.Fatalf("err = %v, want ErrUnknownEventType", err)
	}
	// nothing is half-committed when the cycle aborts
	if len(outbox.applied) != 0 {
		t.Fatalf("applied = %+v, want none", outbox.applied)
	}
}

func TestRunCycleBatchesOneCommitPerCycle(t *testing.T) {
	outbox := &fakeOutbox{due: []model.OutboxRecord{
		dueRecord(t, "rec-1", model.EventTypeOrderCreated, 1),
		dueRecord(t, "rec-2", model.EventTypeOrderUpdated, 2),
		dueRecord(t, "rec-3", model.EventTypeOrderUpdated, 3),
	}}
	d := NewDispatcher(outbox, map[string]PublishFunc{
		model.EventTypeOrderCreated: func(ctx context.Context, key string, value []byte) error { return nil },
		model.EventTypeOrderUpdated: func(ctx context.Context, key string, value []byte) error {
			return errors.New("flaky")
		},
	}, zap.NewNop())

	if err := d.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	// mixed outcomes still land in a single ApplyCycle call
	if len(outbox.applied) != 1 {
		t.Fatalf("ApplyCycle called %d times, want 1", len(outbox.applied))
	}
	if len(outbox.applied[0]) != 3 {
		t.Fatalf("results = %d, want 3", len(outbox.applied[0]))
	}
	var ok, failed int
	for _, r := range outbox.applied[0] {
		if r.Dispatched {
			ok++
		} else {
			failed++
		}
	}
	if ok != 1 || failed != 2 {
		t.Fatalf("ok=%d failed=%d, want 1/2", ok, failed)
	}
}

func TestRunCycleFetchErrorPropagates(t *testing.T) {
	outbox := &fakeOutbox{fetchErr: errors.New("db gone")}
	d := NewDispatcher(outbox, nil, zap.NewNop())

	if err := d.RunCycle(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunCycleEmptyBatchIsQuiet(t *testing.T) {
	outbox := &fakeOutbox{}
	d := NewDispatcher(outbox, nil, zap.NewNop())

	if err := d.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(outbox.applied) != 0 {
		t.Fatalf("applied = %+v, want none", outbox.applied)
	}
}
