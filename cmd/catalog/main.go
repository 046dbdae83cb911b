package main

import (
	"context"

	"go.uber.org/zap"

	"ShopCart/internal/catalog"
	"ShopCart/internal/config"
	"ShopCart/pkg/kit"
)

func main() {
	service := "catalog"
	cfg := config.LoadCatalog()

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	var store catalog.Store = catalog.NewSeededStore()
	if cfg.DatabaseURL != "" {
		db, err := catalog.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("catalog db unavailable", zap.Error(err))
		}
		defer db.Close()
		store = catalog.NewPostgresStore(db)
	} else {
		log.Info("DATABASE_URL not set, serving the seeded in-memory catalogue")
	}

	h := catalog.NewHandler(&catalog.Server{Store: store, Log: log}, catalog.HTTPDeps{
		Log:          log,
		Service:      service,
		Registry:     kit.NewRegistry(),
		MetricsToken: cfg.MetricsToken,
	})

	if err := kit.RunHTTPServer(ctx, ":"+cfg.Port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
