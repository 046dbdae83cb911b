package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"ShopCart/internal/cart"
	"ShopCart/internal/config"
	"ShopCart/pkg/kit"
)

func main() {
	service := "cart"
	cfg := config.LoadCart()

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	storage, closer, err := openStorage(cfg)
	if err != nil {
		log.Fatal("storage unavailable", zap.Error(err), zap.String("driver", cfg.StorageDriver))
	}
	if closer != nil {
		defer closer.Close()
	}

	reg := kit.NewRegistry()
	feed := cart.NewFeed(cfg.NotificationFeed)

	svc, err := cart.Open(ctx, cart.Deps{
		Catalog:   cart.NewCatalogClient(cfg.CatalogURL, cfg.CatalogTimeout),
		Persister: cart.NewPersister(storage, cfg.StorageKey),
		Notifier:  cart.Notifiers{cart.LogNotifier{Log: log}, feed},
		Metrics:   cart.NewMetrics(reg),
		Log:       log,
	})
	if err != nil {
		log.Fatal("load cart failed", zap.Error(err))
	}

	h, err := cart.NewHandler(&cart.Server{
		Cart:       svc,
		Feed:       feed,
		Storage:    storage,
		CatalogURL: cfg.CatalogURL,
		Log:        log,
	}, cart.HTTPDeps{
		Log:             log,
		Service:         service,
		Registry:        reg,
		MetricsEnabled:  true,
		MetricsToken:    cfg.MetricsToken,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	if err != nil {
		log.Fatal("init cart handler failed", zap.Error(err))
	}

	if err := kit.RunHTTPServer(ctx, ":"+cfg.Port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStorage(cfg config.Cart) (cart.Storage, io.Closer, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		return cart.NewMemStorage(), nil, nil
	case config.StorageRedis:
		s := cart.NewRedisStorage(cfg.RedisURL)
		return s, s, nil
	case config.StorageSQLite:
		s, err := cart.OpenSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}
