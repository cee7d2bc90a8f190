package checkout

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

// Input — данные формы оформления заказа.
type Input struct {
	CustomerName string
	PaymentToken string
	// ExpectedTotalMinor — сумма, которую видел покупатель. Ненулевое
	// значение сверяется с пересчитанной суммой корзины.
	ExpectedTotalMinor int64
}

// Service оформляет заказы из корзины и отдаёт историю покупок.
type Service struct {
	carts    domain.CartRepository
	checkout domain.CheckoutRepository
	orders   domain.OrderRepository
	outbox   domain.OutboxRepository
	observer domain.StockObserver
	cache    domain.StockCache
	metrics  *metrics.ShopMetrics
	logger   *log.Entry
}

// Options задаёт опциональные зависимости оформления.
type Options struct {
	Outbox   domain.OutboxRepository
	Observer domain.StockObserver
	Cache    domain.StockCache
	Metrics  *metrics.ShopMetrics
	Logger   *log.Entry
}

// Option настраивает Service.
type Option func(*Options)

// WithOutbox включает публикацию событий заказа: событие пишется в outbox
// той же транзакцией, что и сам заказ.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(opts *Options) {
		opts.Outbox = outbox
	}
}

// WithStockObserver подключает наблюдателя за остатками после списания.
func WithStockObserver(observer domain.StockObserver) Option {
	return func(opts *Options) {
		opts.Observer = observer
	}
}

// WithStockCache включает обновление кэша остатков после списания.
func WithStockCache(cache domain.StockCache) Option {
	return func(opts *Options) {
		opts.Cache = cache
	}
}

// WithMetrics подключает метрики оформления.
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

// NewService создаёт сервис оформления заказов.
func NewService(
	carts domain.CartRepository,
	checkoutRepo domain.CheckoutRepository,
	orders domain.OrderRepository,
	options ...Option,
) *Service {
	var opts Options
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "checkout-service")
	}

	return &Service{
		carts:    carts,
		checkout: checkoutRepo,
		orders:   orders,
		outbox:   opts.Outbox,
		observer: opts.Observer,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		logger:   logger,
	}
}

// Checkout превращает корзину пользователя в заказ. Списание остатков,
// создание заказа, очистка корзины и outbox-событие фиксируются одной
// транзакцией хранилища: при нехватке любого товара не меняется ничего.
func (s *Service) Checkout(ctx context.Context, userID string, input Input) (domain.Order, error) {
	started := time.Now()
	if s.metrics != nil {
		s.metrics.RecordCheckoutStarted()
	}

	order, err := s.doCheckout(ctx, userID, input)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordCheckoutRejected(rejectionReason(err))
		}
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordCheckoutCompleted(order.TotalMinor)
		s.metrics.RecordCheckoutDuration(time.Since(started))
	}

	return order, nil
}

func (s *Service) doCheckout(ctx context.Context, userID string, input Input) (domain.Order, error) {
	if userID == "" {
		return domain.Order{}, domain.ErrUserRequired
	}
	if input.CustomerName == "" {
		return domain.Order{}, domain.ErrCustomerNameRequired
	}
	if input.PaymentToken == "" {
		return domain.Order{}, domain.ErrPaymentTokenRequired
	}

	entries, err := s.carts.ListByUser(userID)
	if err != nil {
		return domain.Order{}, err
	}
	if len(entries) == 0 {
		return domain.Order{}, domain.ErrEmptyCart
	}

	// Предварительная сверка по снимку корзины собирает нехватку по всем
	// позициям сразу, чтобы покупатель исправил корзину за один заход.
	// Окончательное слово остаётся за условным списанием в транзакции.
	var shortages []domain.StockShortage
	for _, entry := range entries {
		if !entry.Item.Active {
			return domain.Order{}, domain.ErrItemInactive
		}
		if entry.Line.Qty > entry.Item.StockQty {
			shortages = append(shortages, domain.StockShortage{
				ItemID:    entry.Item.ID,
				ItemName:  entry.Item.Name,
				Requested: entry.Line.Qty,
				Available: entry.Item.StockQty,
			})
		}
	}
	if len(shortages) > 0 {
		return domain.Order{}, domain.NewInsufficientStockError(shortages...)
	}

	now := time.Now().UTC()
	orderID := uuid.NewString()
	lines := make([]domain.OrderLine, 0, len(entries))
	var total int64
	for _, entry := range entries {
		lines = append(lines, domain.OrderLine{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			ItemID:     entry.Item.ID,
			ItemName:   entry.Item.Name,
			Qty:        entry.Line.Qty,
			PriceMinor: entry.Item.PriceMinor,
			CreatedAt:  now,
		})
		total += entry.Subtotal()
	}

	if input.ExpectedTotalMinor != 0 && input.ExpectedTotalMinor != total {
		return domain.Order{}, domain.ErrAmountMismatch
	}

	order := domain.Order{
		ID:           orderID,
		UserID:       userID,
		Status:       domain.OrderStatusCompleted,
		TotalMinor:   total,
		CustomerName: input.CustomerName,
		PaymentToken: input.PaymentToken,
		Lines:        lines,
		CreatedAt:    now,
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errors.Join(errs...)
	}

	var events []domain.OutboxMessage
	if s.outbox != nil {
		if msg, ok := s.completedEvent(order); ok {
			events = append(events, msg)
		}
	}

	result, err := s.checkout.CommitOrder(order, events...)
	if err != nil {
		return domain.Order{}, err
	}

	s.afterCommit(ctx, result)

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"total":    order.TotalMinor,
		"lines":    len(order.Lines),
	}).Info("order completed")

	return result.Order, nil
}

// afterCommit выполняет пост-транзакционные шаги: кэш и наблюдатель
// остатков. Оба best-effort и заказ не откатывают.
func (s *Service) afterCommit(ctx context.Context, result domain.CheckoutResult) {
	names := make(map[string]string, len(result.Order.Lines))
	for _, line := range result.Order.Lines {
		names[line.ItemID] = line.ItemName
	}

	for itemID, level := range result.StockLevels {
		if s.cache != nil {
			if err := s.cache.SetStock(ctx, itemID, level); err != nil {
				s.logger.WithError(err).WithField("item_id", itemID).Warn("failed to refresh stock cache")
			}
		}
		if s.observer != nil {
			s.observer.StockChanged(itemID, names[itemID], level)
		}
	}
}

// completedEvent собирает outbox-событие завершённого заказа. Событие
// передаётся в CommitOrder и фиксируется той же транзакцией, что и заказ.
func (s *Service) completedEvent(order domain.Order) (domain.OutboxMessage, bool) {
	type eventLine struct {
		ItemID     string `json:"itemId"`
		Qty        int32  `json:"qty"`
		PriceMinor int64  `json:"priceMinor"`
	}
	lines := make([]eventLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, eventLine{ItemID: line.ItemID, Qty: line.Qty, PriceMinor: line.PriceMinor})
	}

	payload, err := json.Marshal(map[string]any{
		"orderId":    order.ID,
		"userId":     order.UserID,
		"totalMinor": order.TotalMinor,
		"lines":      lines,
		"createdAt":  order.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to marshal order event")
		return domain.OutboxMessage{}, false
	}

	return domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     string(kafka.EventTypeOrderCompleted),
		Payload:       payload,
	}, true
}

// GetOrder возвращает заказ пользователя по идентификатору.
func (s *Service) GetOrder(userID, orderID string) (domain.Order, error) {
	if userID == "" {
		return domain.Order{}, domain.ErrUserRequired
	}
	return s.orders.Get(orderID, userID)
}

// ListOrders возвращает историю заказов пользователя, новые первыми.
func (s *Service) ListOrders(userID string, limit int) ([]domain.Order, error) {
	if userID == "" {
		return nil, domain.ErrUserRequired
	}
	return s.orders.ListByUser(userID, limit)
}

func rejectionReason(err error) string {
	switch {
	case domain.IsInsufficientStock(err):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, domain.ErrAmountMismatch):
		return "amount_mismatch"
	case domain.IsValidation(err):
		return "validation"
	case domain.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}
