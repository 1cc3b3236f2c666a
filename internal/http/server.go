package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/ordergw/order-gateway/internal/config"
	"github.com/ordergw/order-gateway/internal/http/middleware"
	"github.com/ordergw/order-gateway/internal/metrics"
	"github.com/ordergw/order-gateway/internal/repository"
	"github.com/ordergw/order-gateway/internal/service/orders"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	// repos (MySQL)
	clientsRepo := repository.NewClientsRepository(mysqlDB)
	ordersRepo := repository.NewOrdersRepository(mysqlDB)
	outboxRepo := repository.NewOutboxRepository(mysqlDB)
	viewsRepo := repository.NewViewsRepository(mysqlDB)

	// repos (ClickHouse)
	reportsRepo := repository.NewReportsRepository(clickhouseDB)

	// services
	ordersSvc := orders.New(mysqlDB, ordersRepo, outboxRepo)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(clientsRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:client:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.POST("/orders", createOrderHandler(ordersSvc))
	v1.GET("/orders/:id", getOrderHandler(ordersSvc))
	v1.PUT("/orders/:id", updateOrderHandler(ordersSvc))
	v1.DELETE("/orders/:id", deleteOrderHandler(ordersSvc))
	v1.GET("/views/orders/:id", getOrderViewHandler(viewsRepo))
	v1.GET("/reports/order-events", listOrderEventsHandler(reportsRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
