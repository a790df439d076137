package db

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnString returns the Postgres connection string from the environment.
// SUPADATABASE_URL takes precedence, DATABASE_URL is the fallback.
func ConnString() string {
	if s := os.Getenv("SUPADATABASE_URL"); s != "" {
		return s
	}
	return os.Getenv("DATABASE_URL")
}

func NewPool(ctx context.Context) (*pgxpool.Pool, error) {
	connStr := ConnString()
	if connStr == "" {
		return nil, fmt.Errorf("neither SUPADATABASE_URL nor DATABASE_URL is set")
	}

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}
