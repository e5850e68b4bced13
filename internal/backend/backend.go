// Package backend opens the document store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bookquery/internal/book"
	"bookquery/internal/config"
	"bookquery/internal/store/memdoc"
	"bookquery/internal/store/mongodoc"
	"bookquery/internal/store/pgdoc"

	"github.com/jackc/pgx/v5/pgxpool"
)

const pingTimeout = 2 * time.Second

// Store is what the commands need from a backend.
type Store interface {
	book.Store
	book.Seeder
}

// Backend is an open store together with its lifecycle hooks.
type Backend struct {
	Name  string
	Store Store
	ping  func(context.Context) error
	close func()
}

// Ping reports whether the store answers.
func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close releases the connections held by the backend.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open connects to the configured backend and checks it is reachable.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, fmt.Errorf("create db pool: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database (%s): %w", RedactDSN(cfg.DB.DSN), err)
		}
		logger.Info("database connection OK", "backend", cfg.Backend)
		return &Backend{
			Name:  cfg.Backend,
			Store: pgdoc.New(pool, cfg.DB.Timeout),
			ping:  pool.Ping,
			close: pool.Close,
		}, nil

	case config.BackendMongo:
		client, err := mongodoc.Connect(ctx, cfg.Mongo.URI, cfg.DB.Timeout)
		if err != nil {
			return nil, fmt.Errorf("connect mongo (%s): %w", RedactDSN(cfg.Mongo.URI), err)
		}
		logger.Info("mongo connection OK", "backend", cfg.Backend, "database", cfg.Mongo.Database)
		coll := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
		return &Backend{
			Name:  cfg.Backend,
			Store: mongodoc.New(coll),
			ping:  func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
				defer cancel()
				_ = client.Disconnect(ctx)
			},
		}, nil

	case config.BackendMemory:
		logger.Warn("using in-memory store; data is lost on exit", "backend", cfg.Backend)
		return &Backend{Name: cfg.Backend, Store: memdoc.New()}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// RedactDSN hides the credentials of a connection string.
func RedactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.LastIndex(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
