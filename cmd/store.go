package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/pittman021/golf-directory-sub000/internal/db"
	"github.com/pittman021/golf-directory-sub000/internal/store"
)

// initStore opens the configured backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres", "":
		pool, err := db.NewPool(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, cfg.Store.MinConns)
		if err != nil {
			return nil, err
		}
		return store.NewPostgres(pool), nil
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
