package notifier

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
	"github.com/vladislavdragonenkov/clinicshop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/clinicshop/internal/metrics"
)

// DefaultThreshold — порог остатка, ниже или на котором создаётся уведомление.
const DefaultThreshold = int32(5)

// Service создаёт low-stock уведомления и обслуживает их чтение персоналом.
type Service struct {
	notifications domain.NotificationRepository
	outbox        domain.OutboxRepository
	metrics       *metrics.ShopMetrics
	threshold     int32
	logger        *log.Entry
}

// Options задаёт опциональные зависимости нотификатора.
type Options struct {
	Outbox    domain.OutboxRepository
	Metrics   *metrics.ShopMetrics
	Threshold int32
	Logger    *log.Entry
}

// Option настраивает Service.
type Option func(*Options)

// WithOutbox включает публикацию событий shop.stock.low.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(opts *Options) {
		opts.Outbox = outbox
	}
}

// WithMetrics подключает метрики уведомлений.
func WithMetrics(m *metrics.ShopMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithThreshold задаёт порог остатка.
func WithThreshold(threshold int32) Option {
	return func(opts *Options) {
		opts.Threshold = threshold
	}
}

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// NewService создаёт сервис low-stock уведомлений.
func NewService(notifications domain.NotificationRepository, options ...Option) *Service {
	opts := Options{Threshold: DefaultThreshold}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "low-stock-notifier")
	}
	if opts.Threshold < 0 {
		opts.Threshold = DefaultThreshold
	}

	return &Service{
		notifications: notifications,
		outbox:        opts.Outbox,
		metrics:       opts.Metrics,
		threshold:     opts.Threshold,
		logger:        logger,
	}
}

// Threshold возвращает действующий порог остатка.
func (s *Service) Threshold() int32 {
	return s.threshold
}

// StockChanged создаёт уведомление, если остаток упал до порога или ниже.
// Вызывается после фиксации списания; собственные ошибки только логирует.
func (s *Service) StockChanged(itemID, itemName string, level int32) {
	if level > s.threshold {
		return
	}

	created, err := s.notifications.Create(domain.LowStockNotification{
		ItemID:     itemID,
		ItemName:   itemName,
		StockLevel: level,
	})
	if err != nil {
		s.logger.WithError(err).WithField("item_id", itemID).Warn("failed to create low stock notification")
		return
	}

	if s.metrics != nil {
		s.metrics.RecordLowStockNotification()
	}
	s.enqueueLowStock(created)

	s.logger.WithFields(log.Fields{"item_id": itemID, "stock": level}).Info("low stock notification created")
}

// ListUnread возвращает непрочитанные уведомления, новые первыми.
func (s *Service) ListUnread() ([]domain.LowStockNotification, error) {
	return s.notifications.ListUnread()
}

// MarkRead помечает уведомление прочитанным.
func (s *Service) MarkRead(id string) error {
	return s.notifications.MarkRead(id)
}

// MarkAllRead помечает все уведомления прочитанными и возвращает их число.
func (s *Service) MarkAllRead() (int, error) {
	return s.notifications.MarkAllRead()
}

func (s *Service) enqueueLowStock(n domain.LowStockNotification) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"itemId":     n.ItemID,
		"itemName":   n.ItemName,
		"stockLevel": n.StockLevel,
		"createdAt":  n.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		s.logger.WithError(err).WithField("item_id", n.ItemID).Warn("failed to marshal low stock event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "item",
		AggregateID:   n.ItemID,
		EventType:     string(kafka.EventTypeStockLow),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("item_id", n.ItemID).Warn("failed to enqueue low stock event")
	}
}

var _ domain.StockObserver = (*Service)(nil)
