// Package db owns the gorm connection. Postgres is the production store;
// SQLite serves local development behind a feature flag and every
// repository test.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/scentlab/perfumery-backend/pkg/config"
	"github.com/scentlab/perfumery-backend/pkg/logger"
)

// Goose dialect names.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// TxRunner is the part of *Client services need for multi-statement writes.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Client struct {
	conn    *gorm.DB
	dialect string
}

// New connects to Postgres through pgx and applies the pool settings.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is required")
	}
	dialector := postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true})
	client, err := open(dialector, DialectPostgres, logg, func(pool *sql.DB) {
		if cfg.MaxOpenConns > 0 {
			pool.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			pool.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	})
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "postgres connected")
	}
	return client, nil
}

// NewSQLite opens the database file (or in-memory dsn) with foreign keys on.
// The pool is pinned to one connection because SQLite has a single writer.
func NewSQLite(ctx context.Context, dsn string, logg *logger.Logger) (*Client, error) {
	if dsn == "" {
		return nil, errors.New("sqlite path is required")
	}
	client, err := open(sqlite.Open(dsn), DialectSQLite, logg, func(pool *sql.DB) {
		pool.SetMaxOpenConns(1)
	})
	if err != nil {
		return nil, err
	}
	if err := client.conn.WithContext(ctx).Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlite foreign keys: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "sqlite_dsn", dsn), "sqlite opened")
	}
	return client, nil
}

func open(dialector gorm.Dialector, dialect string, logg *logger.Logger, tune func(*sql.DB)) (*Client, error) {
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger(logg),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	pool, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("%s pool: %w", dialect, err)
	}
	tune(pool)
	return &Client{conn: conn, dialect: dialect}, nil
}

func gormLogger(logg *logger.Logger) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return logg.Gorm(logger.GormOptions{})
}

// DB is the base handle repositories build queries on.
func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Dialect() string {
	return c.dialect
}

// SQL exposes the database/sql pool for goose.
func (c *Client) SQL() (*sql.DB, error) {
	return c.conn.DB()
}

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// WithTx commits when fn returns nil and rolls back on error or panic.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
