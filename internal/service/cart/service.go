package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

// View — корзина пользователя с промежуточным итогом.
type View struct {
	Entries    []domain.CartEntry
	TotalMinor int64
}

// Service управляет корзинами покупателей. Проверки остатка здесь
// совещательные: они отсекают заведомо невыполнимые заказы, но не
// резервируют товар. Авторитетная проверка происходит при оформлении.
type Service struct {
	carts  domain.CartRepository
	items  domain.ItemRepository
	cache  domain.StockCache
	logger *log.Entry
}

// Options задаёт опциональные зависимости корзины.
type Options struct {
	Cache  domain.StockCache
	Logger *log.Entry
}

// Option настраивает Service.
type Option func(*Options)

// WithStockCache включает чтение остатков из кэша.
func WithStockCache(cache domain.StockCache) Option {
	return func(opts *Options) {
		opts.Cache = cache
	}
}

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// NewService создаёт сервис корзины.
func NewService(carts domain.CartRepository, items domain.ItemRepository, options ...Option) *Service {
	var opts Options
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-service")
	}

	return &Service{
		carts:  carts,
		items:  items,
		cache:  opts.Cache,
		logger: logger,
	}
}

// Get возвращает корзину пользователя с итоговой суммой.
func (s *Service) Get(userID string) (View, error) {
	if userID == "" {
		return View{}, domain.ErrUserRequired
	}

	entries, err := s.carts.ListByUser(userID)
	if err != nil {
		return View{}, err
	}

	var total int64
	for _, entry := range entries {
		total += entry.Subtotal()
	}

	return View{Entries: entries, TotalMinor: total}, nil
}

// AddItem кладёт товар в корзину. Повторное добавление того же товара
// суммирует количество в одной строке.
func (s *Service) AddItem(ctx context.Context, userID, itemID string, qty int32) (domain.CartEntry, error) {
	if userID == "" {
		return domain.CartEntry{}, domain.ErrUserRequired
	}
	if qty < 1 {
		return domain.CartEntry{}, domain.ErrQuantityInvalid
	}

	item, err := s.items.Get(itemID)
	if err != nil {
		return domain.CartEntry{}, err
	}
	if !item.Active {
		return domain.CartEntry{}, domain.ErrItemInactive
	}

	// Проверка остатка совещательная, поэтому для неё достаточно снимка
	// корзины. Само слияние количеств выполняет Upsert атомарно: сервис
	// передаёт только добавляемую дельту.
	want := qty
	if existing, err := s.carts.FindByItem(userID, itemID); err == nil {
		want += existing.Qty
	}
	if err := s.checkStock(ctx, item, want); err != nil {
		return domain.CartEntry{}, err
	}

	stored, err := s.carts.Upsert(domain.CartLine{
		ID:      uuid.NewString(),
		UserID:  userID,
		ItemID:  itemID,
		Qty:     qty,
		AddedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.CartEntry{}, err
	}

	s.logger.WithFields(log.Fields{"user_id": userID, "item_id": itemID, "qty": stored.Qty}).Debug("cart line upserted")

	return domain.CartEntry{Line: stored, Item: item}, nil
}

// SetQuantity выставляет точное количество в строке корзины.
func (s *Service) SetQuantity(ctx context.Context, userID, lineID string, qty int32) (domain.CartEntry, error) {
	if qty < 1 {
		return domain.CartEntry{}, domain.ErrQuantityInvalid
	}

	entry, err := s.carts.GetLine(userID, lineID)
	if err != nil {
		return domain.CartEntry{}, err
	}

	if err := s.checkStock(ctx, entry.Item, qty); err != nil {
		return domain.CartEntry{}, err
	}

	if err := s.carts.SetQty(userID, lineID, qty); err != nil {
		return domain.CartEntry{}, err
	}

	entry.Line.Qty = qty
	return entry, nil
}

// Remove убирает строку из корзины.
func (s *Service) Remove(userID, lineID string) error {
	return s.carts.Remove(userID, lineID)
}

// Clear опустошает корзину пользователя.
func (s *Service) Clear(userID string) error {
	if userID == "" {
		return domain.ErrUserRequired
	}
	return s.carts.Clear(userID)
}

// checkStock сверяет желаемое количество с остатком из кэша, а при
// его недоступности с последним прочитанным остатком каталога.
func (s *Service) checkStock(ctx context.Context, item domain.Item, want int32) error {
	available := item.StockQty
	if s.cache != nil {
		if cached, ok, err := s.cache.GetStock(ctx, item.ID); err != nil {
			s.logger.WithError(err).WithField("item_id", item.ID).Warn("stock cache unavailable")
		} else if ok {
			available = cached
		}
	}

	if want > available {
		return domain.NewInsufficientStockError(domain.StockShortage{
			ItemID:    item.ID,
			ItemName:  item.Name,
			Requested: want,
			Available: available,
		})
	}

	return nil
}
