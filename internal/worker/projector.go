package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ordergw/order-gateway/internal/kafka"
	"github.com/ordergw/order-gateway/internal/metrics"
	"github.com/ordergw/order-gateway/internal/model"
	"github.com/ordergw/order-gateway/internal/repository"
	"github.com/ordergw/order-gateway/internal/util"
	"github.com/ordergw/order-gateway/internal/validate"
	"go.uber.org/zap"
)

// Source yields bus messages and acknowledges them. Offsets are committed
// only after a message is fully handled, so a crash mid-apply redelivers.
type Source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

// FaultSink receives messages rejected by validation.
type FaultSink interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Projector is one (view, event-type) consumer instantiation:
// - validates each inbound event; failures go to the fault topic,
// - loads or lazily creates the OrderView for the event's aggregate id,
// - applies the event only when its version beats the view's counter for
//   this event type, persisting view + audit row in one transaction.
//
// Stale and redelivered events are acknowledged without mutation; that
// version gate is the idempotency guarantee the at-least-once bus leans on.
type Projector struct {
	// Dependencies
	EventType string
	Consumer  Source
	Views     repository.ViewsRepository
	Fault     FaultSink
	Reports   repository.ReportsRepository // optional ClickHouse mirror
	Log       *zap.Logger

	Group string // consumer group, recorded on fault envelopes
}

// NewProjector wires one consumer for the given event type.
func NewProjector(eventType, group string, consumer Source, views repository.ViewsRepository, fault FaultSink, reports repository.ReportsRepository, log *zap.Logger) *Projector {
	return &Projector{
		EventType: eventType,
		Consumer:  consumer,
		Views:     views,
		Fault:     fault,
		Reports:   reports,
		Log:       log,
		Group:     group,
	}
}

// Run fetches until ctx is cancelled.
func (p *Projector) Run(ctx context.Context) error {
	for {
		m, err := p.Consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.Log.Warn("fetch failed", zap.String("event_type", p.EventType), zap.Error(err))
			time.Sleep(200 * time.Millisecond)
			continue
		}
		p.ProcessOne(ctx, m)
	}
}

// ProcessOne handles a single delivery. It commits the offset in every case
// except storage failures, where redelivery is the retry mechanism.
func (p *Projector) ProcessOne(ctx context.Context, m kafka.Message) {
	var env model.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		p.reject(ctx, m, env, "malformed envelope: "+err.Error())
		return
	}
	if env.EventType != p.EventType {
		p.reject(ctx, m, env, "event type "+env.EventType+" on "+p.EventType+" consumer")
		return
	}
	if err := validate.OrderEvent(env.Data); err != nil {
		p.reject(ctx, m, env, err.Error())
		return
	}

	view, err := p.Views.Get(ctx, env.Data.OrderID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		view = model.NewOrderView(env.Data.OrderID)
	default:
		// storage trouble: leave the offset alone, the bus redelivers
		p.Log.Error("load view failed",
			zap.String("order_id", env.Data.OrderID), zap.Error(err))
		return
	}

	if !view.CanUpdate(p.EventType, env.Data) {
		// already applied or superseded; ack as processed
		metrics.EventsConsumedTotal.WithLabelValues(p.EventType, "skipped").Inc()
		p.commit(ctx, m)
		return
	}

	view.Apply(p.EventType, env.Data)

	payload, err := json.Marshal(env.Data)
	if err != nil {
		p.reject(ctx, m, env, "marshal event: "+err.Error())
		return
	}
	audit := model.OrderEventStream{
		ID:        util.New(),
		ViewID:    view.ID,
		EventType: p.EventType,
		Version:   env.Data.Version,
		Payload:   payload,
	}
	if err := p.Views.SaveWithAudit(ctx, view, audit); err != nil {
		// no commit: redelivery is safe, the version gate makes
		// re-application a no-op once this save eventually lands
		p.Log.Error("save view failed",
			zap.String("order_id", view.ID),
			zap.Int64("version", env.Data.Version),
			zap.Error(err))
		return
	}

	p.mirrorReport(ctx, view.ID, env.Data.Version, payload)

	metrics.EventsConsumedTotal.WithLabelValues(p.EventType, "applied").Inc()
	p.commit(ctx, m)
}

// reject routes a message to the fault topic and acks it; faulted messages
// are preserved for inspection, not retried.
func (p *Projector) reject(ctx context.Context, m kafka.Message, env model.Envelope, reason string) {
	metrics.EventsConsumedTotal.WithLabelValues(p.EventType, "faulted").Inc()
	p.Log.Warn("event rejected",
		zap.String("event_type", p.EventType),
		zap.String("message_id", env.ID),
		zap.String("reason", reason))

	fault := model.FaultEnvelope{
		FaultedMessageID: env.ID,
		Consumer:         p.Group,
		Reason:           reason,
		Message:          env,
	}
	value, err := json.Marshal(fault)
	if err == nil {
		if err := p.Fault.Publish(ctx, env.Data.OrderID, value); err != nil {
			p.Log.Error("fault publish failed", zap.String("message_id", env.ID), zap.Error(err))
		}
	}
	p.commit(ctx, m)
}

// mirrorReport copies the processed event into ClickHouse for reporting.
// Best-effort: the MySQL audit row is authoritative.
func (p *Projector) mirrorReport(ctx context.Context, orderID string, version int64, payload []byte) {
	if p.Reports == nil {
		return
	}
	row := repository.OrderEventReport{
		OrderID:   orderID,
		EventType: p.EventType,
		Version:   version,
		Payload:   string(payload),
		CreatedAt: time.Now().UTC(),
	}
	if err := p.Reports.Append(ctx, []repository.OrderEventReport{row}); err != nil {
		p.Log.Warn("report mirror failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

func (p *Projector) commit(ctx context.Context, m kafka.Message) {
	if err := p.Consumer.Commit(ctx, m); err != nil {
		p.Log.Warn("commit failed", zap.String("event_type", p.EventType), zap.Error(err))
	}
}
