package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/ordergw/order-gateway/internal/config"
	"github.com/ordergw/order-gateway/internal/db"
	"github.com/ordergw/order-gateway/internal/model"
	"github.com/ordergw/order-gateway/internal/repository"
	"github.com/ordergw/order-gateway/internal/service/orders"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo API clients and one demo order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo clients...")
		if err := seedClients(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seeding demo order...")
		if err := seedDemoOrder(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seedClients inserts deterministic demo API clients (idempotent).
func seedClients(dbx *sqlx.DB) error {
	clients := []model.Client{
		{Name: "Storefront Web", APIKey: "dev-storefront-key", Status: "active"},
		{Name: "Mobile App", APIKey: "dev-mobile-key", Status: "active"},
		{Name: "Suspended Partner", APIKey: "dev-suspended-key", Status: "suspended"},
	}
	const q = `
		INSERT INTO clients (name, api_key, status, created_at, updated_at)
		VALUES (?, ?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE status = VALUES(status), updated_at = NOW()
	`
	for _, c := range clients {
		if _, err := dbx.Exec(q, c.Name, c.APIKey, c.Status); err != nil {
			return fmt.Errorf("seed client %s: %w", c.Name, err)
		}
	}
	return nil
}

// seedDemoOrder writes one order through the real write path so the outbox
// picks it up on the next dispatcher cycle.
func seedDemoOrder(dbx *sqlx.DB) error {
	svc := orders.New(dbx,
		repository.NewOrdersRepository(dbx),
		repository.NewOutboxRepository(dbx),
	)

	items := model.OrderItems{
		{ProductID: "SKU-1001", ProductName: "Mechanical Keyboard", UnitPrice: 8900, Quantity: 1},
		{ProductID: "SKU-2040", ProductName: "USB-C Cable", UnitPrice: 1200, Quantity: 2},
	}
	o, err := svc.Create(context.Background(), orders.Command{
		BuyerID:   "buyer-demo",
		BuyerName: "Demo Buyer",
		Items:     items,
		Address: model.Address{
			Street:     "1 Demo Street",
			City:       "Springfield",
			PostalCode: "12345",
			Country:    "US",
		},
		Payment: model.Payment{
			CardName:   "Demo Buyer",
			CardNumber: "411111******1111",
			Expiration: "12/29",
		},
		Status:     model.OrderStatusPending,
		TotalPrice: items.Total(),
	})
	if err != nil {
		return fmt.Errorf("seed order: %w", err)
	}
	log.Printf(">> demo order %s at version %d", o.ID, o.RowVersion)
	return nil
}
