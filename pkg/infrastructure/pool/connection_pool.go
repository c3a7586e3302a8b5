// Package pool provides database connection pooling for DuckDB.
package pool

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/rs/zerolog"

	pkgerrors "github.com/tabletalk/tabletalk/pkg/errors"
)

// Config represents pool configuration.
type Config struct {
	DSN                string        `json:"dsn"`
	MaxOpenConnections int           `json:"max_open_connections"`
	MaxIdleConnections int           `json:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `json:"conn_max_idle_time"`
	ConnectionTimeout  time.Duration `json:"connection_timeout"`
}

// ConnectionPool manages database connections.
type ConnectionPool interface {
	// Get returns the pooled database handle.
	Get(ctx context.Context) (*sql.DB, error)
	// Stats returns pool statistics.
	Stats() Stats
	// HealthCheck pings the database.
	HealthCheck(ctx context.Context) error
	// Close closes the connection pool.
	Close() error
}

// Stats represents connection pool statistics.
type Stats struct {
	OpenConnections int           `json:"open_connections"`
	InUse           int           `json:"in_use"`
	Idle            int           `json:"idle"`
	WaitCount       int64         `json:"wait_count"`
	WaitDuration    time.Duration `json:"wait_duration"`
	LastHealthCheck time.Time     `json:"last_health_check"`
}

type connectionPool struct {
	db     *sql.DB
	config Config
	logger zerolog.Logger

	closed          atomic.Bool
	lastHealthCheck atomic.Int64 // unix nanos
}

// New creates a connection pool over a DuckDB database.
func New(config Config, logger zerolog.Logger) (ConnectionPool, error) {
	db, err := sql.Open("duckdb", config.DSN)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "failed to open database")
	}

	if config.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(config.MaxOpenConnections)
	}
	if config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(config.MaxIdleConnections)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}

	p := &connectionPool{
		db:     db,
		config: config,
		logger: logger,
	}

	pingCtx := context.Background()
	if config.ConnectionTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(pingCtx, config.ConnectionTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "failed to ping database")
	}

	logger.Info().Str("dsn", config.DSN).Msg("Connection pool created")
	return p, nil
}

// Get returns the pooled database handle.
func (p *connectionPool) Get(ctx context.Context) (*sql.DB, error) {
	if p.closed.Load() {
		return nil, pkgerrors.New(pkgerrors.CodeConnectionFailed, "connection pool is closed")
	}
	return p.db, nil
}

// Stats returns pool statistics.
func (p *connectionPool) Stats() Stats {
	s := p.db.Stats()
	return Stats{
		OpenConnections: s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
		WaitCount:       s.WaitCount,
		WaitDuration:    s.WaitDuration,
		LastHealthCheck: time.Unix(0, p.lastHealthCheck.Load()),
	}
}

// HealthCheck pings the database.
func (p *connectionPool) HealthCheck(ctx context.Context) error {
	if p.closed.Load() {
		return pkgerrors.New(pkgerrors.CodeConnectionFailed, "connection pool is closed")
	}
	if err := p.db.PingContext(ctx); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "health check failed")
	}
	p.lastHealthCheck.Store(time.Now().UnixNano())
	return nil
}

// Close closes the connection pool.
func (p *connectionPool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.logger.Info().Msg("Closing connection pool")
	return p.db.Close()
}
