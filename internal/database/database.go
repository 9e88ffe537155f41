package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Aphatheology/future-stack-assessment/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Service wraps the database handle with health reporting
type Service struct {
	db *sql.DB
}

// New opens a PostgreSQL connection pool using the pgx stdlib driver
func New(cfg config.DatabaseConfig) (*Service, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Service{db: db}, nil
}

// DB exposes the underlying handle
func (s *Service) DB() *sql.DB {
	return s.db
}

// Health reports the pool's connectivity and utilization
func (s *Service) Health(ctx context.Context) map[string]string {
	health := make(map[string]string)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		health["status"] = "down"
		health["error"] = err.Error()
		return health
	}

	stats := s.db.Stats()
	health["status"] = "up"
	health["open_connections"] = fmt.Sprintf("%d", stats.OpenConnections)
	health["in_use"] = fmt.Sprintf("%d", stats.InUse)
	health["idle"] = fmt.Sprintf("%d", stats.Idle)

	return health
}

// Close releases the pool
func (s *Service) Close() error {
	return s.db.Close()
}
