// Package postgres owns the gorm connection used to persist score
// reports. Connect once at startup; GetDB returns nil until then and
// callers are expected to guard against that.
package postgres

import (
	"fmt"
	"os"
	"sync"

	"github.com/DePINScan/go-scoring/scoring/postgres/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// defaultDSN is used when SCORING_POSTGRES_DSN is unset.
const defaultDSN = "host=localhost user=postgres password=password dbname=scoring port=5432 sslmode=disable"

var (
	db      *gorm.DB
	connMux sync.Mutex
)

// Connect opens the database connection and migrates the report schema.
// Calling Connect again after a successful connection is a no-op.
func Connect() error {
	connMux.Lock()
	defer connMux.Unlock()

	if db != nil {
		return nil
	}

	dsn := os.Getenv("SCORING_POSTGRES_DSN")
	if dsn == "" {
		dsn = defaultDSN
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}

	if err := conn.AutoMigrate(&models.ScoreReport{}); err != nil {
		return fmt.Errorf("migrate report schema: %w", err)
	}

	db = conn
	return nil
}

// GetDB returns the shared connection, or nil when Connect has not
// succeeded yet.
func GetDB() *gorm.DB {
	connMux.Lock()
	defer connMux.Unlock()
	return db
}
