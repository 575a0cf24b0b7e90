package main

import (
	"context"

	"github.com/sells-group/atlas-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	dsn := cfg.Store.DatabaseURL
	if cfg.Store.Driver == "sqlite" && dsn == "" {
		dsn = "atlas.db"
	}
	return store.Open(ctx, cfg.Store.Driver, dsn)
}
