package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds database configuration.
type Config struct {
	// URL is the connection string. Empty selects local SQLite mode.
	URL string

	// SQLitePath overrides the SQLite file path. Defaults to
	// ~/.anchora/anchora.db.
	SQLitePath string

	// MaxConns is the maximum number of connections (PostgreSQL only).
	MaxConns int
}

// Store holds an open connection to exactly one backend.
type Store struct {
	driver   Driver
	sqliteDB *sql.DB
	pgPool   *pgxpool.Pool
}

// Connect opens the backend selected by the configuration.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	switch DetectDriver(cfg.URL) {
	case DriverSQLite:
		path := cfg.SQLitePath
		if path == "" && cfg.URL != "" {
			path = SQLitePathFromURL(cfg.URL)
		}
		db, err := OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		return &Store{driver: DriverSQLite, sqliteDB: db}, nil
	case DriverPostgres:
		pool, err := OpenPostgres(ctx, cfg.URL, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		return &Store{driver: DriverPostgres, pgPool: pool}, nil
	default:
		return nil, fmt.Errorf("unsupported database URL: %s", cfg.URL)
	}
}

// Driver returns the backend this store is connected to.
func (s *Store) Driver() Driver { return s.driver }

// SQLite returns the SQLite handle, or nil for other backends.
func (s *Store) SQLite() *sql.DB { return s.sqliteDB }

// Postgres returns the connection pool, or nil for other backends.
func (s *Store) Postgres() *pgxpool.Pool { return s.pgPool }

// Ping verifies the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	switch s.driver {
	case DriverSQLite:
		return s.sqliteDB.PingContext(ctx)
	case DriverPostgres:
		return s.pgPool.Ping(ctx)
	default:
		return fmt.Errorf("no connection open")
	}
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s.sqliteDB != nil {
		return s.sqliteDB.Close()
	}
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	return nil
}
