package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
	"github.com/vladislavdragonenkov/clinicshop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/clinicshop/internal/metrics"
)

// Service управляет каталогом товаров и ручными движениями остатков.
type Service struct {
	items    domain.ItemRepository
	ledger   domain.InventoryLedger
	outbox   domain.OutboxRepository
	cache    domain.StockCache
	observer domain.StockObserver
	metrics  *metrics.ShopMetrics
	logger   *log.Entry
}

// Options задаёт опциональные зависимости каталога.
type Options struct {
	Outbox   domain.OutboxRepository
	Cache    domain.StockCache
	Observer domain.StockObserver
	Metrics  *metrics.ShopMetrics
	Logger   *log.Entry
}

// Option настраивает Service.
type Option func(*Options)

// WithOutbox включает публикацию событий каталога через transactional outbox.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(opts *Options) {
		opts.Outbox = outbox
	}
}

// WithStockCache включает обновление кэша остатков.
func WithStockCache(cache domain.StockCache) Option {
	return func(opts *Options) {
		opts.Cache = cache
	}
}

// WithStockObserver подключает наблюдателя за остатками.
func WithStockObserver(observer domain.StockObserver) Option {
	return func(opts *Options) {
		opts.Observer = observer
	}
}

// WithMetrics включает метрики движений остатков.
func WithMetrics(m *metrics.ShopMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// NewService создаёт сервис каталога.
func NewService(items domain.ItemRepository, ledger domain.InventoryLedger, options ...Option) *Service {
	var opts Options
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "catalog-service")
	}

	return &Service{
		items:    items,
		ledger:   ledger,
		outbox:   opts.Outbox,
		cache:    opts.Cache,
		observer: opts.Observer,
		metrics:  opts.Metrics,
		logger:   logger,
	}
}

// List возвращает витрину. Неактивные товары видны только персоналу.
func (s *Service) List(ident domain.Identity, includeInactive bool) ([]domain.Item, error) {
	if includeInactive && !ident.IsStaff() {
		includeInactive = false
	}
	return s.items.List(includeInactive)
}

// Get возвращает товар по идентификатору.
func (s *Service) Get(id string) (domain.Item, error) {
	return s.items.Get(id)
}

// Create добавляет новый товар в каталог.
func (s *Service) Create(ctx context.Context, patch domain.ItemPatch) (domain.Item, error) {
	if errs := patch.Validate(); len(errs) > 0 {
		return domain.Item{}, errors.Join(errs...)
	}

	now := time.Now().UTC()
	item := domain.Item{
		ID:          uuid.NewString(),
		Name:        patch.Name,
		Description: patch.Description,
		PriceMinor:  patch.PriceMinor,
		StockQty:    patch.StockQty,
		Category:    patch.Category,
		ImageURL:    patch.ImageURL,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.items.Create(item); err != nil {
		return domain.Item{}, err
	}

	s.refreshCache(ctx, item.ID, item.StockQty)
	s.logger.WithFields(log.Fields{"item_id": item.ID, "name": item.Name}).Info("item created")

	return item, nil
}

// Update перезаписывает атрибуты товара целиком.
func (s *Service) Update(ctx context.Context, id string, patch domain.ItemPatch) (domain.Item, error) {
	if errs := patch.Validate(); len(errs) > 0 {
		return domain.Item{}, errors.Join(errs...)
	}

	item, err := s.items.Update(id, patch)
	if err != nil {
		return domain.Item{}, err
	}

	s.refreshCache(ctx, item.ID, item.StockQty)
	s.logger.WithField("item_id", item.ID).Info("item updated")

	return item, nil
}

// Deactivate скрывает товар с витрины, сохраняя историю заказов.
func (s *Service) Deactivate(ctx context.Context, id string) (domain.Item, error) {
	item, err := s.items.SetActive(id, false)
	if err != nil {
		return domain.Item{}, err
	}

	s.forgetCache(ctx, id)
	s.enqueueDeactivated(item)
	s.logger.WithField("item_id", id).Info("item deactivated")

	return item, nil
}

// Reactivate возвращает товар на витрину.
func (s *Service) Reactivate(ctx context.Context, id string) (domain.Item, error) {
	item, err := s.items.SetActive(id, true)
	if err != nil {
		return domain.Item{}, err
	}

	s.refreshCache(ctx, item.ID, item.StockQty)
	s.logger.WithField("item_id", id).Info("item reactivated")

	return item, nil
}

// HardDelete удаляет товар без истории заказов. Товар с историей
// можно только деактивировать.
func (s *Service) HardDelete(ctx context.Context, id string) error {
	if err := s.items.HardDelete(id); err != nil {
		return err
	}

	s.forgetCache(ctx, id)
	s.logger.WithField("item_id", id).Info("item deleted")

	return nil
}

// AdjustStock применяет ручную корректировку остатка (приёмка, списание брака).
func (s *Service) AdjustStock(ctx context.Context, id string, delta int32) (int32, error) {
	if delta == 0 {
		return 0, domain.ErrQuantityInvalid
	}

	level, err := s.ledger.ApplyDelta(id, delta)
	if err != nil {
		return 0, err
	}

	s.refreshCache(ctx, id, level)
	if s.metrics != nil {
		s.metrics.RecordStockAdjustment()
	}
	if s.observer != nil && delta < 0 {
		item, getErr := s.items.Get(id)
		name := ""
		if getErr == nil {
			name = item.Name
		}
		s.observer.StockChanged(id, name, level)
	}

	s.logger.WithFields(log.Fields{"item_id": id, "delta": delta, "stock": level}).Info("stock adjusted")

	return level, nil
}

func (s *Service) refreshCache(ctx context.Context, itemID string, level int32) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetStock(ctx, itemID, level); err != nil {
		s.logger.WithError(err).WithField("item_id", itemID).Warn("failed to refresh stock cache")
	}
}

func (s *Service) forgetCache(ctx context.Context, itemID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Forget(ctx, itemID); err != nil {
		s.logger.WithError(err).WithField("item_id", itemID).Warn("failed to drop stock cache entry")
	}
}

func (s *Service) enqueueDeactivated(item domain.Item) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"itemId":        item.ID,
		"name":          item.Name,
		"deactivatedAt": item.UpdatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		s.logger.WithError(err).WithField("item_id", item.ID).Warn("failed to marshal deactivation event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "item",
		AggregateID:   item.ID,
		EventType:     string(kafka.EventTypeItemDeactivated),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("item_id", item.ID).Warn("failed to enqueue deactivation event")
	}
}
