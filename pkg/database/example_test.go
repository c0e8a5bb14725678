package database_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/twscan/pkg/config"
	"github.com/wonny/twscan/pkg/database"
)

// Example migrates the scanner schema and disables one instrument in a transaction
func Example() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	err = database.InTx(ctx, db.Pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE stocks SET enabled = FALSE WHERE stock_code = $1`, "1101")
		return err
	})
	if err != nil {
		log.Fatalf("Update failed: %v", err)
	}

	status, _ := db.HealthCheck(ctx)
	fmt.Printf("Tables: %v\n", status.Tables)
}
