// Package config reads service settings from the environment. A .env file in
// the working directory is loaded first when present; real environment
// variables win over it.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

type Cart struct {
	Port     string
	LogLevel string

	CatalogURL     string
	CatalogTimeout time.Duration

	StorageDriver string
	StorageKey    string
	SQLitePath    string
	RedisURL      string

	MetricsToken     string
	RateLimitPerMin  int
	NotificationFeed int
}

type Catalog struct {
	Port         string
	LogLevel     string
	DatabaseURL  string
	MetricsToken string
}

// LoadCart reads the cart service settings.
func LoadCart() Cart {
	loadDotEnv()

	return Cart{
		Port:     getenv("PORT", "8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		CatalogURL:     getenv("CATALOG_URL", "http://localhost:8082"),
		CatalogTimeout: getenvDuration("CATALOG_TIMEOUT", 3*time.Second),

		StorageDriver: strings.ToLower(getenv("STORAGE_DRIVER", StorageSQLite)),
		StorageKey:    getenv("CART_STORAGE_KEY", "shopcart:cart"),
		SQLitePath:    getenv("SQLITE_PATH", "cart.db"),
		RedisURL:      getenv("REDIS_URL", "redis://localhost:6379/0"),

		MetricsToken:     os.Getenv("METRICS_TOKEN"),
		RateLimitPerMin:  getenvInt("CART_RATE_LIMIT", 120),
		NotificationFeed: getenvInt("NOTIFICATION_FEED_SIZE", 50),
	}
}

// LoadCatalog reads the catalog service settings. An empty DatabaseURL means
// the seeded in-memory store.
func LoadCatalog() Catalog {
	loadDotEnv()

	return Catalog{
		Port:         getenv("PORT", "8082"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		MetricsToken: os.Getenv("METRICS_TOKEN"),
	}
}

func loadDotEnv() {
	// missing .env is the normal case in containers
	_ = godotenv.Load()
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
