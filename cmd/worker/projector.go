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

var projectorCmd = &cobra.Command{
	Use:   "projector",
	Short: "Run a read-model projector (created | updated | deleted)",
}

var projectorCreatedCmd = &cobra.Command{
	Use:   "created",
	Short: "Consume OrderCreatedEvent into order views",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProjector(cmd, model.EventTypeOrderCreated)
	},
}

var projectorUpdatedCmd = &cobra.Command{
	Use:   "updated",
	Short: "Consume OrderUpdatedEvent into order views",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProjector(cmd, model.EventTypeOrderUpdated)
	},
}

var projectorDeletedCmd = &cobra.Command{
	Use:   "deleted",
	Short: "Consume OrderDeletedEvent into order views",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProjector(cmd, model.EventTypeOrderDeleted)
	},
}

func init() {
	projectorCmd.AddCommand(projectorCreatedCmd)
	projectorCmd.AddCommand(projectorUpdatedCmd)
	projectorCmd.AddCommand(projectorDeletedCmd)
}

func runProjector(cmd *cobra.Command, eventType string) error {
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

	// ClickHouse mirror is optional: projection still works without it
	var reports repository.ReportsRepository
	chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
		DSN:             cfg.ClickHouse.DSN,
		MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
		PingTimeout:     cfg.ClickHouse.PingTimeout,
	})
	if err != nil {
		zlog.Warn("clickhouse unavailable, reporting mirror disabled", zap.Error(err))
	} else {
		defer func() { _ = chDB.Close() }()
		reports = repository.NewReportsRepository(chDB)
	}

	group := cfg.Projector.GroupID
	if group == "" {
		group = "ordgw-projector"
	}
	group = group + "-" + worker.TopicFor(eventType)

	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          worker.TopicFor(eventType),
		GroupID:        group,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: 0, // commit per message; offsets gate redelivery
	})
	defer consumer.Close()

	fault := kafka.NewPublisher(cfg.Kafka.Brokers,
		worker.FaultTopicFor(eventType, group),
		time.Duration(cfg.Kafka.WriteTimeout)*time.Millisecond)
	defer fault.Close()

	p := worker.NewProjector(eventType, group, consumer,
		repository.NewViewsRepository(dbx), fault, reports, zlog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zlog.Info(">> projector started",
		zap.String("event_type", eventType),
		zap.String("topic", worker.TopicFor(eventType)),
		zap.String("group", group))

	return p.Run(ctx)
}
