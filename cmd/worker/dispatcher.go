package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ordergw/order-gateway/internal/config"
	"github.com/ordergw/order-gateway/internal/db"
	"github.com/ordergw/order-gateway/internal/kafka"
	"github.com/ordergw/order-gateway/internal/logger"
	"github.com/ordergw/order-gateway/internal/metrics"
	"github.com/ordergw/order-gateway/internal/model"
	"github.com/ordergw/order-gateway/internal/repository"
	"github.com/ordergw/order-gateway/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var dispatcherCmd = &cobra.Command{
	Use:   "dispatcher",
	Short: "Run the outbox dispatcher",
	RunE:  runDispatcher,
}

func runDispatcher(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)
	zlog := logger.Log

	metrics.MustRegister(prometheus.DefaultRegisterer)

	dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
		PingTimeout:     cfg.MySQL.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	defer dbx.Close()

	writeTimeout := time.Duration(cfg.Kafka.WriteTimeout) * time.Millisecond

	// one typed publisher per event type, topic-per-event-type
	pubs := make(map[string]worker.PublishFunc, len(model.KnownEventTypes))
	for _, eventType := range model.KnownEventTypes {
		p := kafka.NewPublisher(cfg.Kafka.Brokers, worker.TopicFor(eventType), writeTimeout)
		defer p.Close()
		pubs[eventType] = p.Publish
	}

	d := worker.NewDispatcher(repository.NewOutboxRepository(dbx), pubs, zlog)
	if cfg.Outbox.PollInterval > 0 {
		d.PollInterval = cfg.Outbox.PollInterval
	}
	if cfg.Outbox.RetryBackoff > 0 {
		d.RetryBackoff = cfg.Outbox.RetryBackoff
	}
	if cfg.Outbox.BatchLimit > 0 {
		d.BatchLimit = cfg.Outbox.BatchLimit
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zlog.Info(">> outbox dispatcher started",
		zap.Duration("poll_interval", d.PollInterval),
		zap.Duration("retry_backoff", d.RetryBackoff),
		zap.Int("batch_limit", d.BatchLimit))

	if err := d.Run(ctx); err != nil {
		// fail fast: a dispatcher running half-broken silently breaks the
		// delivery guarantee, so the process stops instead of looping
		zlog.Error("outbox dispatcher stopped on fatal error", zap.Error(err))
		return err
	}
	return nil
}
