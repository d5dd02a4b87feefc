package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed schema.sql
var schemaSQL string

// PartitionBus is the partition key of bus locations.
const PartitionBus = "bus"

// DefaultLocationTTL is the retention of a stored location without updates.
const DefaultLocationTTL = time.Hour

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// EnsureSchema creates missing tables and indexes.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	log.Println("database schema ensured")
	return nil
}

// Store is the PostGIS backed location store and catalog reader.
type Store struct {
	db          *sql.DB
	locationTTL time.Duration
}

func NewStore(db *sql.DB, locationTTL time.Duration) *Store {
	if locationTTL <= 0 {
		locationTTL = DefaultLocationTTL
	}
	return &Store{db: db, locationTTL: locationTTL}
}

// LatestCatalogImport returns the version of the most recent catalog import.
func (s *Store) LatestCatalogImport(ctx context.Context) (string, error) {
	q := `SELECT version FROM catalog_imports ORDER BY imported_at DESC LIMIT 1`
	var version sql.NullString
	if err := s.db.QueryRowContext(ctx, q).Scan(&version); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("query catalog imports: %w", err)
	}
	return version.String, nil
}
