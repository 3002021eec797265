package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/V1nSky/key-bot/services/api/internal/app"
	"github.com/V1nSky/key-bot/services/api/internal/config"
	"github.com/V1nSky/key-bot/services/api/internal/storage/postgres"
	"github.com/V1nSky/key-bot/services/api/internal/storage/sqlite"
	"github.com/V1nSky/key-bot/services/api/migrations"
)

const startupTimeout = 5 * time.Second

type orderStore interface {
	app.OrderRepository
	app.AllocationRepository
}

// store is the set of repositories for whichever backend DATABASE_URL names.
type store struct {
	kind   string
	pool   *pgxpool.Pool
	keys   app.KeyRepository
	orders orderStore
	users  app.UserRepository
	admin  app.AdminRepository
	ping   func(ctx context.Context) error
	close  func()
}

func (s *store) Ping(ctx context.Context) error { return s.ping(ctx) }

func (s *store) Close() { s.close() }

// openStore connects to the configured backend. Postgres migrations run
// when migrate is true; the SQLite schema is always applied on open.
func openStore(ctx context.Context, cfg config.Config, migrate bool) (*store, error) {
	kind, dsn, err := cfg.Backend()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	switch kind {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect to db: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		if migrate {
			if _, err := migrations.Apply(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		return &store{
			kind:   kind,
			pool:   pool,
			keys:   postgres.NewKeyRepository(pool),
			orders: postgres.NewOrderRepository(pool),
			users:  postgres.NewUserRepository(pool),
			admin:  postgres.NewAdminRepository(pool),
			ping:   pool.Ping,
			close:  pool.Close,
		}, nil

	default:
		db, err := sqlite.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &store{
			kind:   kind,
			keys:   sqlite.NewKeyRepository(db),
			orders: sqlite.NewOrderRepository(db),
			users:  sqlite.NewUserRepository(db),
			admin:  sqlite.NewAdminRepository(db),
			ping:   db.Ping,
			close:  func() { _ = db.Close() },
		}, nil
	}
}
