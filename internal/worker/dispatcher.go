package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ordergw/order-gateway/internal/metrics"
	"github.com/ordergw/order-gateway/internal/model"
	"github.com/ordergw/order-gateway/internal/repository"
	"go.uber.org/zap"
)

// ErrUnknownEventType means an outbox record names an event type with no
// registered publisher. No retry can fix a missing mapping, so the
// dispatcher treats it as fatal rather than silently re-polling the record.
var ErrUnknownEventType = errors.New("no publisher registered for event type")

// PublishFunc publishes one envelope, keyed by aggregate id.
type PublishFunc func(ctx context.Context, key string, value []byte) error

// Dispatcher:
// - polls the outbox for undispatched, due records,
// - routes each by EventType through the typed publisher registry,
// - applies all record-state transitions of the cycle in a single commit.
//
// Publish is at-least-once: a second dispatcher instance may race on the
// same due record, and a crash between publish and commit replays the
// record. Consumers dedup by event version, so neither case corrupts state.
type Dispatcher struct {
	// Dependencies
	Outbox     repository.OutboxRepository
	Publishers map[string]PublishFunc // event type -> typed publisher
	Log        *zap.Logger

	// Behavior
	PollInterval time.Duration // cycle period
	RetryBackoff time.Duration // delay before a failed record is due again
	BatchLimit   int           // max records per cycle

	now func() time.Time
}

// NewDispatcher builds a dispatcher with sane defaults.
func NewDispatcher(outbox repository.OutboxRepository, pubs map[string]PublishFunc, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		Outbox:       outbox,
		Publishers:   pubs,
		Log:          log,
		PollInterval: 2 * time.Second,
		RetryBackoff: 2 * time.Minute,
		BatchLimit:   100,
		now:          time.Now,
	}
}

// Run polls until ctx is cancelled. Any error escaping a cycle (lost
// database connectivity, unknown event type) is returned so the hosting
// process can log it as critical and stop: outbox delivery silently running
// half-broken is worse than not running at all.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.PollInterval <= 0 {
		d.PollInterval = 2 * time.Second
	}
	if d.RetryBackoff <= 0 {
		d.RetryBackoff = 2 * time.Minute
	}
	if d.BatchLimit <= 0 {
		d.BatchLimit = 100
	}
	if d.now == nil {
		d.now = time.Now
	}

	tick := time.NewTicker(d.PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if err := d.RunCycle(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("outbox dispatch cycle: %w", err)
			}
		}
	}
}

// RunCycle executes one poll cycle. Per-record publish failures are not
// errors: the record is rescheduled with backoff and the loop moves on.
// Only conditions that poison the loop itself propagate.
func (d *Dispatcher) RunCycle(ctx context.Context) error {
	now := d.now()

	recs, err := d.Outbox.FetchDue(ctx, now, d.BatchLimit)
	if err != nil {
		return fmt.Errorf("fetch due records: %w", err)
	}
	if len(recs) == 0 {
		return nil
	}

	results := make([]repository.DispatchResult, 0, len(recs))
	for _, rec := range recs {
		publish, ok := d.Publishers[rec.EventType]
		if !ok {
			return fmt.Errorf("%w: %q (record %s)", ErrUnknownEventType, rec.EventType, rec.ID)
		}

		value, err := d.envelope(rec)
		if err != nil {
			// unreadable payload; backoff keeps the audit trail visible
			// instead of dropping the record
			d.Log.Error("outbox payload unreadable",
				zap.String("record_id", rec.ID), zap.Error(err))
			results = append(results, repository.DispatchResult{
				RecordID:    rec.ID,
				NextAttempt: now.Add(d.RetryBackoff),
			})
			metrics.OutboxDispatchTotal.WithLabelValues(rec.EventType, "failed").Inc()
			continue
		}

		if err := publish(ctx, rec.AggregateID, value); err != nil {
			d.Log.Warn("outbox publish failed",
				zap.String("record_id", rec.ID),
				zap.String("event_type", rec.EventType),
				zap.Int("tries", rec.NumberOfDispatchTry+1),
				zap.Error(err))
			results = append(results, repository.DispatchResult{
				RecordID:    rec.ID,
				NextAttempt: now.Add(d.RetryBackoff),
			})
			metrics.OutboxDispatchTotal.WithLabelValues(rec.EventType, "failed").Inc()
			continue
		}

		results = append(results, repository.DispatchResult{
			RecordID:   rec.ID,
			Dispatched: true,
		})
		metrics.OutboxDispatchTotal.WithLabelValues(rec.EventType, "dispatched").Inc()
	}

	if err := d.Outbox.ApplyCycle(ctx, results); err != nil {
		return fmt.Errorf("apply cycle results: %w", err)
	}
	return nil
}

// envelope wraps the stored event payload for the bus, minting a fresh
// correlation id per publish attempt.
func (d *Dispatcher) envelope(rec model.OutboxRecord) ([]byte, error) {
	var ev model.OrderEvent
	if err := json.Unmarshal(rec.Payload, &ev); err != nil {
		return nil, err
	}
	return json.Marshal(model.Envelope{
		ID:        uuid.NewString(),
		EventType: rec.EventType,
		Data:      ev,
	})
}
