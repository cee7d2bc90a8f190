package domain

import "time"

// ItemRepository описывает требования к хранилищу каталога товаров.
type ItemRepository interface {
	// Create сохраняет новый товар. Возвращает ErrItemExists при конфликте ID.
	Create(item Item) error
	// Get возвращает товар по идентификатору или ErrItemNotFound, если его нет.
	Get(id string) (Item, error)
	// List возвращает товары, отсортированные по категории и названию.
	// includeInactive=false скрывает деактивированные товары (вид покупателя).
	List(includeInactive bool) ([]Item, error)
	// Update применяет патч ко всем изменяемым полям товара.
	Update(id string, patch ItemPatch) (Item, error)
	// SetActive включает или выключает товар (soft delete / реактивация).
	SetActive(id string, active bool) (Item, error)
	// HardDelete физически удаляет товар. Возвращает ErrItemHasOrderHistory,
	// если на товар ссылается хотя бы одна позиция заказа.
	HardDelete(id string) error
}

// CartRepository описывает требования к хранилищу корзин.
// Строки корзины секционированы по владельцу и между пользователями не конкурируют.
type CartRepository interface {
	// ListByUser возвращает строки корзины пользователя вместе с товарами,
	// новые строки первыми.
	ListByUser(userID string) ([]CartEntry, error)
	// GetLine возвращает строку корзины по ID с проверкой владельца.
	GetLine(userID, lineID string) (CartEntry, error)
	// FindByItem находит строку корзины пользователя для товара
	// или возвращает ErrCartLineNotFound.
	FindByItem(userID, itemID string) (CartLine, error)
	// Upsert кладёт товар в корзину: вставляет новую строку либо атомарно
	// прибавляет количество к существующей строке той же пары (user, item).
	// Возвращает строку с итоговым количеством.
	Upsert(line CartLine) (CartLine, error)
	// SetQty меняет количество в строке с проверкой владельца.
	SetQty(userID, lineID string, qty int32) error
	// Remove удаляет строку с проверкой владельца.
	Remove(userID, lineID string) error
	// Clear удаляет все строки корзины пользователя.
	Clear(userID string) error
}

// InventoryLedger — единственная точка изменения остатка товара.
// Любое списание и пополнение обязано идти через ApplyDelta, чтобы
// гарантия сериализуемости на уровне строки товара не обходилась.
type InventoryLedger interface {
	// ApplyDelta атомарно выполняет «прочитать остаток, проверить
	// current+delta >= 0, записать» относительно конкурентных вызовов по тому
	// же товару. Возвращает новый остаток; при уходе в минус — ошибку
	// InsufficientStockError без частичного применения.
	ApplyDelta(itemID string, delta int32) (int32, error)
}

// CheckoutResult — итог атомарной фиксации заказа.
type CheckoutResult struct {
	Order Order
	// StockLevels — остатки затронутых товаров после списания, по ID товара.
	StockLevels map[string]int32
}

// CheckoutRepository выполняет единственную в системе многострочную
// транзакцию: создание заказа с позициями, списание остатка по каждой
// позиции и очистку корзины владельца — всё фиксируется или откатывается
// как одно целое.
type CheckoutRepository interface {
	// CommitOrder фиксирует заказ вместе с переданными outbox-событиями.
	// При нехватке остатка по любой позиции возвращает InsufficientStockError,
	// и ни одно изменение — включая события — не сохраняется.
	CommitOrder(order Order, events ...OutboxMessage) (CheckoutResult, error)
}

// OrderRepository описывает чтение неизменяемых заказов.
// Запись заказов выполняет только CheckoutRepository.
type OrderRepository interface {
	// Get возвращает заказ пользователя с позициями или ErrOrderNotFound.
	Get(id, userID string) (Order, error)
	// ListByUser возвращает заказы пользователя, новые первыми,
	// с опциональным ограничением на количество.
	ListByUser(userID string, limit int) ([]Order, error)
}

// NotificationRepository хранит уведомления о низком остатке.
type NotificationRepository interface {
	// Create сохраняет новое непрочитанное уведомление.
	Create(n LowStockNotification) (LowStockNotification, error)
	// ListUnread возвращает непрочитанные уведомления, новые первыми.
	ListUnread() ([]LowStockNotification, error)
	// MarkRead помечает уведомление прочитанным или возвращает ErrNotificationNotFound.
	MarkRead(id string) error
	// MarkAllRead помечает все непрочитанные уведомления и возвращает их число.
	MarkAllRead() (int, error)
	// DeleteReadBefore удаляет прочитанные уведомления старше before порциями
	// до limit штук; возвращает число удалённых.
	DeleteReadBefore(before time.Time, limit int) (int, error)
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}
