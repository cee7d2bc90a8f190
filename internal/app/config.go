package app

import (
	"os"
	"strconv"
	"time"
)

// Config описывает настройки запуска сервиса магазина.
type Config struct {
	// HTTPAddr — адрес HTTP/JSON API.
	HTTPAddr string
	// GRPCAddr — адрес gRPC health-эндпоинта.
	GRPCAddr string
	// MetricsAddr — адрес /metrics и HTTP health-проверок.
	MetricsAddr string

	// DBDSN — PostgreSQL DSN. Пустое значение включает in-memory хранилище.
	DBDSN string
	// KafkaBrokers — список брокеров через запятую; пустое значение
	// отключает публикацию событий.
	KafkaBrokers string
	// RedisAddr — адрес Redis для кэша остатков; пустое значение отключает кэш.
	RedisAddr string

	// LowStockThreshold — порог остатка для уведомлений.
	LowStockThreshold int32
	// NotificationRetention — срок хранения прочитанных уведомлений.
	NotificationRetention time.Duration
}

// DefaultConfig возвращает базовые адреса и настройки.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:              ":8080",
		GRPCAddr:              ":50051",
		MetricsAddr:           ":9090",
		LowStockThreshold:     5,
		NotificationRetention: 30 * 24 * time.Hour,
	}
}

// ConfigFromEnv строит конфигурацию из переменных окружения,
// начиная с DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("SHOP_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("SHOP_GRPC_ADDR"); v != "" {
		cfg.GRPCAddr = v
	}
	if v := os.Getenv("SHOP_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	cfg.DBDSN = os.Getenv("SHOP_DB_DSN")
	cfg.KafkaBrokers = os.Getenv("KAFKA_BROKERS")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")

	if v := os.Getenv("SHOP_LOW_STOCK_THRESHOLD"); v != "" {
		if threshold, err := strconv.ParseInt(v, 10, 32); err == nil && threshold >= 0 {
			cfg.LowStockThreshold = int32(threshold)
		}
	}
	if v := os.Getenv("SHOP_NOTIFICATION_RETENTION"); v != "" {
		if retention, err := time.ParseDuration(v); err == nil && retention > 0 {
			cfg.NotificationRetention = retention
		}
	}

	return cfg
}
