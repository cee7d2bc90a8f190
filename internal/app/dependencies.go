package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
	"github.com/vladislavdragonenkov/clinicshop/internal/storage/memory"
	"github.com/vladislavdragonenkov/clinicshop/internal/storage/postgres"
)

// Dependencies содержит репозитории приложения и ссылку на хранилище.
type Dependencies struct {
	Items         domain.ItemRepository
	Carts         domain.CartRepository
	Ledger        domain.InventoryLedger
	Checkout      domain.CheckoutRepository
	Orders        domain.OrderRepository
	Notifications domain.NotificationRepository
	Outbox        domain.OutboxRepository

	// Store не nil только при работе поверх PostgreSQL.
	Store  *postgres.Store
	Logger *log.Entry
}

// NewDependencies собирает слой хранения. Непустой DSN включает
// PostgreSQL с применением миграций, иначе используется in-memory
// хранилище для локальной разработки.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if cfg.DBDSN == "" {
		logger.Info("SHOP_DB_DSN is empty, using in-memory storage")
		store := memory.NewStore()
		return &Dependencies{
			Items:         memory.NewItemRepository(store),
			Carts:         memory.NewCartRepository(store),
			Ledger:        memory.NewInventoryLedger(store),
			Checkout:      memory.NewCheckoutRepository(store),
			Orders:        memory.NewOrderRepository(store),
			Notifications: memory.NewNotificationRepository(store),
			Outbox:        memory.NewOutboxRepository(store),
			Logger:        logger,
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("postgres storage initialized")

	return &Dependencies{
		Items:         postgres.NewItemRepository(store),
		Carts:         postgres.NewCartRepository(store),
		Ledger:        postgres.NewInventoryLedger(store),
		Checkout:      postgres.NewCheckoutRepository(store),
		Orders:        postgres.NewOrderRepository(store),
		Notifications: postgres.NewNotificationRepository(store),
		Outbox:        postgres.NewOutboxRepository(store),
		Store:         store,
		Logger:        logger,
	}, nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() {
	if d == nil || d.Store == nil {
		return
	}
	if err := d.Store.Close(); err != nil {
		d.Logger.WithError(err).Warn("failed to close postgres store")
	}
}
